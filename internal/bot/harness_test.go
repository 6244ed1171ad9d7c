package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nimbusbot/nimbus/internal/cache"
	"github.com/nimbusbot/nimbus/internal/chat"
	"github.com/nimbusbot/nimbus/internal/config"
	"github.com/nimbusbot/nimbus/internal/repo"
	"gorm.io/gorm"
)

// fakeChatClient is a scriptable chat.Client recording every outbound call.
type fakeChatClient struct {
	mu   sync.Mutex
	sent []sentMsg

	self       string
	threadInfo *chat.ThreadInfo
	threadErr  error
	userInfo   map[string]chat.UserInfo
	userErr    error
	addCalls   []string
	addErr     error
	removed    []string
}

type sentMsg struct {
	content  string
	threadID string
}

func (f *fakeChatClient) SendMessage(ctx context.Context, content, threadID string) (*chat.MessageInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMsg{content, threadID})
	return &chat.MessageInfo{MessageID: "m1", ThreadID: threadID}, nil
}

func (f *fakeChatClient) GetUserInfo(ctx context.Context, ids ...string) (map[string]chat.UserInfo, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return f.userInfo, nil
}

func (f *fakeChatClient) GetThreadInfo(ctx context.Context, threadID string) (*chat.ThreadInfo, error) {
	if f.threadErr != nil {
		return nil, f.threadErr
	}
	if f.threadInfo != nil {
		return f.threadInfo, nil
	}
	return &chat.ThreadInfo{ID: threadID}, nil
}

func (f *fakeChatClient) GetThreadList(ctx context.Context, limit int) ([]chat.ThreadInfo, error) {
	return nil, nil
}

func (f *fakeChatClient) AddUserToGroup(ctx context.Context, userID, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls = append(f.addCalls, userID)
	return f.addErr
}

func (f *fakeChatClient) RemoveUserFromGroup(ctx context.Context, userID, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, userID)
	return nil
}

func (f *fakeChatClient) CurrentUserID() string { return f.self }

func (f *fakeChatClient) sentMessages() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMsg, len(f.sent))
	copy(out, f.sent)
	return out
}

// scriptCooldown is a Cooldowner returning scripted outcomes and recording
// the keys it was asked about.
type scriptCooldown struct {
	onCooldown bool
	remaining  time.Duration
	keys       []string
}

func (s *scriptCooldown) CheckAndMark(ctx context.Context, key string, window time.Duration) (bool, time.Duration) {
	s.keys = append(s.keys, key)
	return s.onCooldown, s.remaining
}

// countAuth is an Authorizer counting calls.
type countAuth struct {
	allow bool
	calls int
}

func (a *countAuth) Authorize(ctx context.Context, def *Definition, invokerID, threadID string) bool {
	a.calls++
	return a.allow
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		BotName:         "Nimbus",
		OwnerID:         "100001",
		Prefix:          "N!",
		DefaultCooldown: 3 * time.Second,
		HandlerTimeout:  5 * time.Second,
		XP: config.XPConfig{
			Enabled:  true,
			MinGain:  10,
			MaxGain:  25,
			Cooldown: time.Minute,
		},
		Economy: config.EconomyConfig{StartingBalance: 100},
		Messages: config.Templates{
			UnknownCommand: `Unknown command "{command}".`,
			NoPermission:   "You don't have permission to use {command}.",
			Cooldown:       "Wait {time}s before using {command} again.",
			GenericError:   "Something went wrong running {command}.",
			Banned:         "You are banned from using this bot.",
			Maintenance:    "I'm under maintenance right now.",
			LevelUp:        "🎉 {user} just reached level {level}!",
			Welcome:        "Welcome to the group, {user}!",
		},
	}
}

// newTestDispatcher wires a Dispatcher against an in-memory database, a
// recording fake client, and a scripted cooldowner.
func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeChatClient, *scriptCooldown, *countAuth) {
	t.Helper()
	client := &fakeChatClient{self: "999"}
	cd := &scriptCooldown{}
	auth := &countAuth{allow: true}
	disabled, _ := cache.New("")
	d := &Dispatcher{
		Config:    testConfig(),
		DB:        newTestDB(t),
		Cache:     disabled,
		Cooldown:  cd,
		Registry:  NewRegistry(),
		Auth:      auth,
		Client:    client,
		Sender:    chat.NewSender(client),
		StartedAt: time.Now(),
	}
	return d, client, cd, auth
}

func msgEvent(body string) chat.Event {
	return chat.Event{
		Type:       chat.EventMessage,
		MessageID:  "mid-1",
		SenderID:   "200",
		SenderName: "Alice",
		ThreadID:   "9000",
		ThreadName: "General",
		IsGroup:    true,
		Body:       body,
	}
}

func pingDef(ran *int) *Definition {
	return &Definition{
		Name:        "ping",
		Category:    "info",
		Description: "Measure responsiveness.",
		Run: func(ctx context.Context, c *Context) error {
			if ran != nil {
				*ran++
			}
			c.Reply(ctx, "Pong!")
			return nil
		},
	}
}
