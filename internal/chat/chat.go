// Package chat defines the transport boundary between the bot core and the
// messaging platform. The core only ever talks to the Client interface; the
// concrete implementation in gateway.go bridges to an external gateway
// process that holds the actual platform session.
package chat

import "context"

// Event is one inbound occurrence delivered by the transport. The Type
// discriminator follows the platform event stream: "message" and
// "message_reply" carry chat text, "event" carries group membership changes.
// Other types are ignored by the core.
type Event struct {
	Type string `json:"type"`

	MessageID  string `json:"message_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	ThreadID   string `json:"thread_id"`
	ThreadName string `json:"thread_name"`
	IsGroup    bool   `json:"is_group"`
	Body       string `json:"body"`

	// Mentions lists user ids referenced in the message body.
	Mentions []string `json:"mentions,omitempty"`

	// ReplyToID is set for message_reply events.
	ReplyToID string `json:"reply_to_id,omitempty"`

	// Membership fields, set for "event" type only.
	Action         string   `json:"action,omitempty"` // "add" or "remove"
	ParticipantIDs []string `json:"participant_ids,omitempty"`

	// TimestampMS is the platform send time in Unix milliseconds.
	TimestampMS int64 `json:"timestamp_ms,omitempty"`
}

// Event type discriminators understood by the core.
const (
	EventMessage      = "message"
	EventMessageReply = "message_reply"
	EventMembership   = "event"
)

// Membership actions.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
)

// MessageInfo describes a message accepted by the platform.
type MessageInfo struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
}

// UserInfo is the platform profile subset the bot cares about.
type UserInfo struct {
	Name   string `json:"name"`
	Gender string `json:"gender,omitempty"`
}

// ThreadInfo is the live state of a thread as reported by the platform.
// AdminIDs is the authoritative source for admin permission checks.
type ThreadInfo struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	IsGroup        bool     `json:"is_group"`
	AdminIDs       []string `json:"admin_ids"`
	ParticipantIDs []string `json:"participant_ids"`
}

// Client is the transport contract consumed by the bot core. Implementations
// must be safe for use from the single event-processing goroutine plus the
// status server's read-only calls.
type Client interface {
	// SendMessage delivers content to a thread. One attempt, no retries;
	// retry policy belongs to Sender.
	SendMessage(ctx context.Context, content, threadID string) (*MessageInfo, error)

	// GetUserInfo resolves profile data for one or more user ids.
	GetUserInfo(ctx context.Context, ids ...string) (map[string]UserInfo, error)

	// GetThreadInfo fetches live thread state, including admin ids.
	GetThreadInfo(ctx context.Context, threadID string) (*ThreadInfo, error)

	// GetThreadList enumerates threads the session participates in.
	GetThreadList(ctx context.Context, limit int) ([]ThreadInfo, error)

	// AddUserToGroup and RemoveUserFromGroup mutate group membership.
	AddUserToGroup(ctx context.Context, userID, threadID string) error
	RemoveUserFromGroup(ctx context.Context, userID, threadID string) error

	// CurrentUserID returns the platform id of the bot's own session.
	CurrentUserID() string
}
