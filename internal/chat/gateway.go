// Package chat – gateway client.
//
// The Gateway implements Client against a small HTTP+websocket bridge that
// owns the actual platform session (login, MQTT stream, cookies). Keeping
// the session in a separate process isolates the bot from the unofficial
// client's churn: the bridge exposes stable JSON over REST for calls and a
// websocket for the event stream.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// Gateway is a Client backed by the gateway bridge.
type Gateway struct {
	baseURL string
	token   string
	http    *http.Client
	selfID  string
}

// NewGateway constructs a Gateway for the bridge at baseURL. Call Login
// before use to resolve the session's own user id.
func NewGateway(baseURL, token string) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Login verifies the bridge session and caches the bot's own user id.
func (g *Gateway) Login(ctx context.Context) error {
	var me struct {
		UserID any `json:"user_id"`
	}
	if err := g.call(ctx, http.MethodGet, "/me", nil, &me); err != nil {
		return fmt.Errorf("gateway login: %w", err)
	}
	g.selfID = NormalizeID(me.UserID)
	if g.selfID == "" {
		return fmt.Errorf("gateway login: empty session user id")
	}
	return nil
}

// CurrentUserID returns the session's own user id resolved by Login.
func (g *Gateway) CurrentUserID() string { return g.selfID }

// SendMessage delivers content to a thread via the bridge.
func (g *Gateway) SendMessage(ctx context.Context, content, threadID string) (*MessageInfo, error) {
	body := map[string]string{"thread_id": threadID, "body": content}
	var info MessageInfo
	if err := g.call(ctx, http.MethodPost, "/messages", body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetUserInfo resolves profiles for the given user ids.
func (g *Gateway) GetUserInfo(ctx context.Context, ids ...string) (map[string]UserInfo, error) {
	q := url.Values{"ids": {strings.Join(ids, ",")}}
	var out map[string]UserInfo
	if err := g.call(ctx, http.MethodGet, "/users?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetThreadInfo fetches live thread state, including the admin id list.
func (g *Gateway) GetThreadInfo(ctx context.Context, threadID string) (*ThreadInfo, error) {
	var raw struct {
		ID             any    `json:"id"`
		Name           string `json:"name"`
		IsGroup        bool   `json:"is_group"`
		AdminIDs       []any  `json:"admin_ids"`
		ParticipantIDs []any  `json:"participant_ids"`
	}
	if err := g.call(ctx, http.MethodGet, "/threads/"+url.PathEscape(threadID), nil, &raw); err != nil {
		return nil, err
	}
	return &ThreadInfo{
		ID:             NormalizeID(raw.ID),
		Name:           raw.Name,
		IsGroup:        raw.IsGroup,
		AdminIDs:       normalizeIDs(raw.AdminIDs),
		ParticipantIDs: normalizeIDs(raw.ParticipantIDs),
	}, nil
}

// GetThreadList enumerates up to limit threads of the session.
func (g *Gateway) GetThreadList(ctx context.Context, limit int) ([]ThreadInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []ThreadInfo
	path := fmt.Sprintf("/threads?limit=%d", limit)
	if err := g.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].ID = strings.TrimSpace(out[i].ID)
	}
	return out, nil
}

// AddUserToGroup invites userID into the group thread.
func (g *Gateway) AddUserToGroup(ctx context.Context, userID, threadID string) error {
	body := map[string]string{"user_id": userID}
	return g.call(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/participants", body, nil)
}

// RemoveUserFromGroup removes userID from the group thread.
func (g *Gateway) RemoveUserFromGroup(ctx context.Context, userID, threadID string) error {
	path := "/threads/" + url.PathEscape(threadID) + "/participants/" + url.PathEscape(userID)
	return g.call(ctx, http.MethodDelete, path, nil, nil)
}

// Listen connects to the bridge event stream and invokes handle for every
// decoded event until ctx is canceled or the stream breaks. Malformed
// frames are logged and skipped; the caller decides whether to reconnect.
func (g *Gateway) Listen(ctx context.Context, handle func(Event)) error {
	wsURL := strings.Replace(g.baseURL, "http", "ws", 1) + "/events"
	hdr := http.Header{}
	if g.token != "" {
		hdr.Set("Authorization", "Bearer "+g.token)
	}
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: hdr})
	if err != nil {
		return fmt.Errorf("gateway stream dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "shutting down")
	// Event frames are small; the default 32 KiB read limit fits, but a
	// pasted wall of text in a group chat does not.
	conn.SetReadLimit(1 << 20)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("gateway stream read: %w", err)
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Warn().Err(err).Msg("dropping malformed event frame")
			continue
		}
		handle(*ev.Normalize())
	}
}

// call performs one JSON round trip against the bridge REST surface.
func (g *Gateway) call(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// normalizeIDs maps a raw id slice through NormalizeID, dropping empties.
func normalizeIDs(raw []any) []string {
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if id := NormalizeID(v); id != "" {
			out = append(out, id)
		}
	}
	return out
}
