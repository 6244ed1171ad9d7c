package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/nimbusbot/nimbus/internal/chat"
	"github.com/nimbusbot/nimbus/internal/domain"
	"github.com/nimbusbot/nimbus/internal/repo"
)

func TestApplyXPGain(t *testing.T) {
	tests := []struct {
		name      string
		level, xp int
		gain      int
		wantLevel int
		wantXP    int
		leveled   bool
	}{
		{"no rollover", 0, 10, 15, 0, 25, false},
		{"exact threshold", 0, 85, 15, 1, 0, true},
		{"rollover carries remainder", 0, 90, 15, 1, 5, true},
		{"higher level threshold", 1, 190, 20, 2, 10, true},
		{"just below threshold", 2, 299, 0, 2, 299, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &domain.User{Level: tt.level, XP: tt.xp}
			leveled := ApplyXPGain(u, tt.gain)
			if leveled != tt.leveled || u.Level != tt.wantLevel || u.XP != tt.wantXP {
				t.Errorf("got level=%d xp=%d leveled=%v, want level=%d xp=%d leveled=%v",
					u.Level, u.XP, leveled, tt.wantLevel, tt.wantXP, tt.leveled)
			}
			if u.TotalMessages != 1 {
				t.Errorf("TotalMessages = %d, want 1", u.TotalMessages)
			}
			if u.XP < 0 || u.XP >= domain.LevelThreshold(u.Level) {
				t.Errorf("invariant violated: xp=%d level=%d", u.XP, u.Level)
			}
		})
	}
}

func newTestXPEngine(t *testing.T) (*XPEngine, *fakeChatClient, *scriptCooldown) {
	t.Helper()
	client := &fakeChatClient{self: "999"}
	cd := &scriptCooldown{}
	x := NewXPEngine(testConfig(), newTestDB(t), cd, chat.NewSender(client))
	return x, client, cd
}

func TestXPHandleAwardsAndPersists(t *testing.T) {
	x, client, _ := newTestXPEngine(t)
	x.randInt = func(min, max int) int { return 15 }
	ctx := context.Background()

	x.Handle(ctx, msgEvent("hello"))

	u, err := repo.GetUser(ctx, x.DB, "200")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.XP != 15 || u.Level != 0 || u.TotalMessages != 1 {
		t.Errorf("user after award: xp=%d level=%d msgs=%d", u.XP, u.Level, u.TotalMessages)
	}
	if sent := client.sentMessages(); len(sent) != 0 {
		t.Errorf("unexpected sends without a level-up: %+v", sent)
	}
}

func TestXPHandleLevelUpNotice(t *testing.T) {
	x, client, _ := newTestXPEngine(t)
	x.randInt = func(min, max int) int { return 15 }
	ctx := context.Background()

	// Seed a user sitting just below the level step.
	u, err := repo.GetOrCreateUser(ctx, x.DB, "200", "Alice", 0)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	u.XP = 90
	if err := repo.SaveUser(ctx, x.DB, u); err != nil {
		t.Fatalf("save user: %v", err)
	}

	x.Handle(ctx, msgEvent("hello"))

	u, err = repo.GetUser(ctx, x.DB, "200")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Level != 1 || u.XP != 5 {
		t.Errorf("after rollover: level=%d xp=%d, want level=1 xp=5", u.Level, u.XP)
	}
	sent := client.sentMessages()
	if len(sent) != 1 || !strings.Contains(sent[0].content, "Alice") || !strings.Contains(sent[0].content, "level 1") {
		t.Errorf("unexpected level-up notice: %+v", sent)
	}
}

func TestXPHandleSkipsDuringCooldown(t *testing.T) {
	x, _, cd := newTestXPEngine(t)
	cd.onCooldown = true
	ctx := context.Background()

	x.Handle(ctx, msgEvent("hello"))

	if len(cd.keys) != 1 || cd.keys[0] != "cd:200:xp" {
		t.Errorf("cooldown keys = %v, want [cd:200:xp]", cd.keys)
	}
	if _, err := repo.GetUser(ctx, x.DB, "200"); err == nil {
		t.Error("user created despite cooldown skip")
	}
}

func TestXPHandleRespectsThreadToggle(t *testing.T) {
	x, _, cd := newTestXPEngine(t)
	ctx := context.Background()
	if _, err := repo.GetOrCreateThread(ctx, x.DB, "9000", "General", true); err != nil {
		t.Fatalf("create thread: %v", err)
	}
	if err := repo.PutThreadSetting(ctx, x.DB, "9000", ThreadXPOffKey, true); err != nil {
		t.Fatalf("disable xp: %v", err)
	}

	x.Handle(ctx, msgEvent("hello"))

	if len(cd.keys) != 0 {
		t.Errorf("cooldown consulted in an xp-off thread: %v", cd.keys)
	}
	if _, err := repo.GetUser(ctx, x.DB, "200"); err == nil {
		t.Error("user created despite thread toggle")
	}
}

func TestXPHandleDisabled(t *testing.T) {
	x, _, cd := newTestXPEngine(t)
	x.Config.XP.Enabled = false

	x.Handle(context.Background(), msgEvent("hello"))

	if len(cd.keys) != 0 {
		t.Errorf("cooldown consulted while XP disabled: %v", cd.keys)
	}
}
