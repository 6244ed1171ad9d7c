package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nimbusbot/nimbus/internal/domain"
	"github.com/nimbusbot/nimbus/internal/repo"
)

func TestDispatchRunsCommandAndRecordsStat(t *testing.T) {
	d, client, cd, _ := newTestDispatcher(t)
	ran := 0
	d.Registry.Register(pingDef(&ran))

	d.Dispatch(context.Background(), msgEvent("N!ping"))

	if ran != 1 {
		t.Fatalf("handler ran %d times, want 1", ran)
	}
	sent := client.sentMessages()
	if len(sent) != 1 || sent[0].content != "Pong!" || sent[0].threadID != "9000" {
		t.Fatalf("unexpected sends: %+v", sent)
	}
	if len(cd.keys) != 1 || cd.keys[0] != "cd:200:ping" {
		t.Errorf("cooldown keys = %v, want [cd:200:ping]", cd.keys)
	}

	total, succeeded, err := repo.CountCommandStats(context.Background(), d.DB)
	if err != nil {
		t.Fatalf("count stats: %v", err)
	}
	if total != 1 || succeeded != 1 {
		t.Errorf("stats total=%d succeeded=%d, want 1/1", total, succeeded)
	}
}

func TestDispatchIgnoresUnprefixedAndEmpty(t *testing.T) {
	d, client, _, _ := newTestDispatcher(t)
	ran := 0
	d.Registry.Register(pingDef(&ran))

	for _, body := range []string{"", "   ", "hello there", "ping", "N!", "N!   "} {
		d.Dispatch(context.Background(), msgEvent(body))
	}

	if ran != 0 {
		t.Errorf("handler ran %d times, want 0", ran)
	}
	if sent := client.sentMessages(); len(sent) != 0 {
		t.Errorf("unexpected sends: %+v", sent)
	}
}

func TestDispatchUnknownCommandNoTelemetry(t *testing.T) {
	d, client, _, _ := newTestDispatcher(t)

	d.Dispatch(context.Background(), msgEvent("N!frobnicate"))

	sent := client.sentMessages()
	if len(sent) != 1 || !strings.Contains(sent[0].content, `"frobnicate"`) {
		t.Fatalf("unexpected sends: %+v", sent)
	}
	total, _, err := repo.CountCommandStats(context.Background(), d.DB)
	if err != nil {
		t.Fatalf("count stats: %v", err)
	}
	if total != 0 {
		t.Errorf("stats total = %d, want 0 for rejected dispatch", total)
	}
}

func TestDispatchBannedUserShortCircuits(t *testing.T) {
	d, client, _, auth := newTestDispatcher(t)
	ran := 0
	d.Registry.Register(pingDef(&ran))
	ctx := context.Background()
	if err := repo.PutSetting(ctx, d.DB, BanKey("200"), true); err != nil {
		t.Fatalf("put ban: %v", err)
	}

	d.Dispatch(ctx, msgEvent("N!ping"))

	if ran != 0 {
		t.Error("handler ran for a banned user")
	}
	if auth.calls != 0 {
		t.Errorf("authorizer called %d times for a banned user, want 0", auth.calls)
	}
	sent := client.sentMessages()
	if len(sent) != 1 || sent[0].content != d.Config.Messages.Banned {
		t.Fatalf("unexpected sends: %+v", sent)
	}
	total, _, _ := repo.CountCommandStats(ctx, d.DB)
	if total != 0 {
		t.Errorf("stats total = %d, want 0", total)
	}
}

func TestDispatchPermissionDeniedNoTelemetry(t *testing.T) {
	d, client, _, auth := newTestDispatcher(t)
	auth.allow = false
	ran := 0
	d.Registry.Register(pingDef(&ran))

	d.Dispatch(context.Background(), msgEvent("N!ping"))

	if ran != 0 {
		t.Error("handler ran despite permission denial")
	}
	if auth.calls != 1 {
		t.Errorf("authorizer calls = %d, want 1", auth.calls)
	}
	sent := client.sentMessages()
	if len(sent) != 1 || !strings.Contains(sent[0].content, "permission") {
		t.Fatalf("unexpected sends: %+v", sent)
	}
	total, _, _ := repo.CountCommandStats(context.Background(), d.DB)
	if total != 0 {
		t.Errorf("stats total = %d, want 0", total)
	}
}

func TestDispatchCooldownReplyRoundsUp(t *testing.T) {
	d, client, cd, _ := newTestDispatcher(t)
	cd.onCooldown = true
	cd.remaining = 2500 * time.Millisecond
	ran := 0
	d.Registry.Register(pingDef(&ran))

	d.Dispatch(context.Background(), msgEvent("N!ping"))

	if ran != 0 {
		t.Error("handler ran while on cooldown")
	}
	sent := client.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("got %d sends, want 1", len(sent))
	}
	if want := "Wait 3s before using ping again."; sent[0].content != want {
		t.Errorf("cooldown reply = %q, want %q", sent[0].content, want)
	}
}

func TestDispatchHandlerErrorRecorded(t *testing.T) {
	d, client, _, _ := newTestDispatcher(t)
	d.Registry.Register(&Definition{
		Name:     "explode",
		Category: "fun",
		Run: func(ctx context.Context, c *Context) error {
			return errors.New("boom")
		},
	})
	ctx := context.Background()

	d.Dispatch(ctx, msgEvent("N!explode now"))

	sent := client.sentMessages()
	if len(sent) != 1 || !strings.Contains(sent[0].content, "explode") {
		t.Fatalf("unexpected sends: %+v", sent)
	}
	total, succeeded, err := repo.CountCommandStats(ctx, d.DB)
	if err != nil {
		t.Fatalf("count stats: %v", err)
	}
	if total != 1 || succeeded != 0 {
		t.Errorf("stats total=%d succeeded=%d, want 1/0", total, succeeded)
	}
	var logs []domain.ErrorLog
	if err := d.DB.WithContext(ctx).Find(&logs).Error; err != nil {
		t.Fatalf("read error logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Command != "explode" || !strings.Contains(logs[0].Message, "boom") {
		t.Errorf("unexpected error logs: %+v", logs)
	}
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	d, client, _, _ := newTestDispatcher(t)
	d.Registry.Register(&Definition{
		Name: "crash",
		Run: func(ctx context.Context, c *Context) error {
			panic("handler bug")
		},
	})
	ctx := context.Background()

	d.Dispatch(ctx, msgEvent("N!crash"))

	sent := client.sentMessages()
	if len(sent) != 1 || !strings.Contains(sent[0].content, "crash") {
		t.Fatalf("unexpected sends: %+v", sent)
	}
	total, succeeded, _ := repo.CountCommandStats(ctx, d.DB)
	if total != 1 || succeeded != 0 {
		t.Errorf("stats total=%d succeeded=%d, want 1/0", total, succeeded)
	}
}

func TestDispatchThreadPrefixOverride(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)
	ran := 0
	d.Registry.Register(pingDef(&ran))
	ctx := context.Background()

	if _, err := repo.GetOrCreateThread(ctx, d.DB, "9000", "General", true); err != nil {
		t.Fatalf("create thread: %v", err)
	}
	bang := "!"
	if err := repo.UpdateThreadPrefix(ctx, d.DB, "9000", &bang); err != nil {
		t.Fatalf("set prefix: %v", err)
	}

	d.Dispatch(ctx, msgEvent("N!ping"))
	if ran != 0 {
		t.Error("default prefix matched in a thread with an override")
	}
	d.Dispatch(ctx, msgEvent("!ping"))
	if ran != 1 {
		t.Errorf("handler ran %d times for overridden prefix, want 1", ran)
	}
}

func TestDispatchLockedThreadOwnerBypass(t *testing.T) {
	d, client, _, _ := newTestDispatcher(t)
	ran := 0
	d.Registry.Register(pingDef(&ran))
	ctx := context.Background()

	if _, err := repo.GetOrCreateThread(ctx, d.DB, "9000", "General", true); err != nil {
		t.Fatalf("create thread: %v", err)
	}
	if err := repo.PutThreadSetting(ctx, d.DB, "9000", "locked", true); err != nil {
		t.Fatalf("lock thread: %v", err)
	}

	d.Dispatch(ctx, msgEvent("N!ping"))
	if ran != 0 {
		t.Error("handler ran in a locked thread for a non-owner")
	}
	sent := client.sentMessages()
	if len(sent) != 1 || !strings.Contains(sent[0].content, "locked") {
		t.Fatalf("unexpected sends: %+v", sent)
	}

	owner := msgEvent("N!ping")
	owner.SenderID = d.Config.OwnerID
	d.Dispatch(ctx, owner)
	if ran != 1 {
		t.Errorf("owner dispatch ran %d times, want 1", ran)
	}
}

func TestMaintenanceNotifiesOncePerEpisode(t *testing.T) {
	d, client, _, _ := newTestDispatcher(t)
	ran := 0
	d.Registry.Register(pingDef(&ran))
	ctx := context.Background()

	d.SetMaintenance(ctx, true)

	d.Dispatch(ctx, msgEvent("N!ping"))
	d.Dispatch(ctx, msgEvent("N!ping"))
	if ran != 0 {
		t.Error("handler ran during maintenance for a non-owner")
	}
	if sent := client.sentMessages(); len(sent) != 1 || sent[0].content != d.Config.Messages.Maintenance {
		t.Fatalf("want exactly one maintenance notice, got %+v", sent)
	}

	// The owner is exempt.
	owner := msgEvent("N!ping")
	owner.SenderID = d.Config.OwnerID
	d.Dispatch(ctx, owner)
	if ran != 1 {
		t.Errorf("owner dispatch ran %d times, want 1", ran)
	}

	// Toggling off and on starts a new episode with fresh notifications.
	d.SetMaintenance(ctx, false)
	d.SetMaintenance(ctx, true)
	d.Dispatch(ctx, msgEvent("N!ping"))
	notices := 0
	for _, m := range client.sentMessages() {
		if m.content == d.Config.Messages.Maintenance {
			notices++
		}
	}
	if notices != 2 {
		t.Errorf("maintenance notices = %d, want 2 across two episodes", notices)
	}
}

func TestMaintenancePersistsAcrossRestart(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)
	ctx := context.Background()
	d.SetMaintenance(ctx, true)

	restarted := &Dispatcher{
		Config:   d.Config,
		DB:       d.DB,
		Cache:    d.Cache,
		Cooldown: d.Cooldown,
		Registry: d.Registry,
		Auth:     d.Auth,
		Client:   d.Client,
		Sender:   d.Sender,
	}
	restarted.LoadMaintenance(ctx)
	if !restarted.InMaintenance() {
		t.Error("maintenance flag lost across restart")
	}
}

func TestDispatchDefaultCooldownWindow(t *testing.T) {
	d, _, cd, _ := newTestDispatcher(t)
	windows := map[string]time.Duration{}
	d.Cooldown = &windowRecorder{inner: cd, windows: windows}

	d.Registry.Register(&Definition{
		Name: "quick",
		Run:  func(ctx context.Context, c *Context) error { return nil },
	})
	d.Registry.Register(&Definition{
		Name:     "slow",
		Cooldown: 30 * time.Second,
		Run:      func(ctx context.Context, c *Context) error { return nil },
	})

	ctx := context.Background()
	d.Dispatch(ctx, msgEvent("N!quick"))
	d.Dispatch(ctx, msgEvent("N!slow"))

	if got := windows["cd:200:quick"]; got != d.Config.DefaultCooldown {
		t.Errorf("quick window = %v, want default %v", got, d.Config.DefaultCooldown)
	}
	if got := windows["cd:200:slow"]; got != 30*time.Second {
		t.Errorf("slow window = %v, want 30s", got)
	}
}

type windowRecorder struct {
	inner   Cooldowner
	windows map[string]time.Duration
}

func (w *windowRecorder) CheckAndMark(ctx context.Context, key string, window time.Duration) (bool, time.Duration) {
	w.windows[key] = window
	return w.inner.CheckAndMark(ctx, key, window)
}
