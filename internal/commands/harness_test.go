package commands

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/nimbusbot/nimbus/internal/bot"
	"github.com/nimbusbot/nimbus/internal/cache"
	"github.com/nimbusbot/nimbus/internal/chat"
	"github.com/nimbusbot/nimbus/internal/config"
	"github.com/nimbusbot/nimbus/internal/llm"
	"github.com/nimbusbot/nimbus/internal/music"
	"github.com/nimbusbot/nimbus/internal/repo"
)

// fakeClient is a scriptable chat.Client recording outbound calls.
type fakeClient struct {
	mu      sync.Mutex
	sent    []string
	sentTo  []string
	added   []string
	removed []string

	self       string
	threadInfo *chat.ThreadInfo
	threadList []chat.ThreadInfo
	userInfo   map[string]chat.UserInfo
}

func (f *fakeClient) SendMessage(ctx context.Context, content, threadID string) (*chat.MessageInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
	f.sentTo = append(f.sentTo, threadID)
	return &chat.MessageInfo{MessageID: "m1", ThreadID: threadID}, nil
}

func (f *fakeClient) GetUserInfo(ctx context.Context, ids ...string) (map[string]chat.UserInfo, error) {
	return f.userInfo, nil
}

func (f *fakeClient) GetThreadInfo(ctx context.Context, threadID string) (*chat.ThreadInfo, error) {
	if f.threadInfo != nil {
		return f.threadInfo, nil
	}
	return &chat.ThreadInfo{ID: threadID, IsGroup: true}, nil
}

func (f *fakeClient) GetThreadList(ctx context.Context, limit int) ([]chat.ThreadInfo, error) {
	return f.threadList, nil
}

func (f *fakeClient) AddUserToGroup(ctx context.Context, userID, threadID string) error {
	f.added = append(f.added, userID)
	return nil
}

func (f *fakeClient) RemoveUserFromGroup(ctx context.Context, userID, threadID string) error {
	f.removed = append(f.removed, userID)
	return nil
}

func (f *fakeClient) CurrentUserID() string { return f.self }

func (f *fakeClient) lastSent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

func testEconomy() config.EconomyConfig {
	return config.EconomyConfig{
		DailyReward:      200,
		DailyStreakBonus: 50,
		DailyWindow:      24 * time.Hour,
		StartingBalance:  100,
	}
}

func testConfig() config.Config {
	return config.Config{
		BotName:         "Nimbus",
		OwnerID:         "100001",
		Prefix:          "N!",
		DefaultCooldown: 3 * time.Second,
		HandlerTimeout:  5 * time.Second,
		Economy:         testEconomy(),
		XP:              config.XPConfig{Enabled: true, MinGain: 10, MaxGain: 25, Cooldown: time.Minute},
	}
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

// testCtx builds a command context as the dispatcher would for the given
// message body (prefix already stripped, first field is the command token).
func testCtx(t *testing.T, db *gorm.DB, client *fakeClient, body string) *bot.Context {
	t.Helper()
	fields := strings.Fields(body)
	var args []string
	if len(fields) > 1 {
		args = fields[1:]
	}
	cfg := testConfig()
	reg := bot.NewRegistry()
	for _, d := range All(Deps{}) {
		reg.Register(d)
	}
	disabled, _ := cache.New("")
	llmClient, _ := llm.New(context.Background(), "")
	disp := &bot.Dispatcher{
		Config:   cfg,
		DB:       db,
		Cache:    disabled,
		Registry: reg,
		Client:   client,
		Sender:   chat.NewSender(client),
	}
	return &bot.Context{
		Event: chat.Event{
			Type:       chat.EventMessage,
			SenderID:   "200",
			SenderName: "Alice",
			ThreadID:   "9000",
			ThreadName: "General",
			IsGroup:    true,
			Body:       cfg.Prefix + body,
		},
		Args:       args,
		Prefix:     cfg.Prefix,
		Config:     cfg,
		Registry:   reg,
		Dispatcher: disp,
		DB:         db,
		Cache:      disabled,
		Client:     client,
		Sender:     chat.NewSender(client),
		LLM:        llmClient,
		Music:      music.New(""),
		StartedAt:  time.Now().Add(-90 * time.Minute),
	}
}

// withRand pins the package random source for one test.
func withRand(t *testing.T, fn func(n int) int) {
	t.Helper()
	prev := randIntn
	randIntn = fn
	t.Cleanup(func() { randIntn = prev })
}
