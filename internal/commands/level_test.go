package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/nimbusbot/nimbus/internal/bot"
	"github.com/nimbusbot/nimbus/internal/repo"
)

func TestRunRankShowsProgress(t *testing.T) {
	db := newTestDB(t)
	client := &fakeClient{self: "999"}
	ctx := context.Background()

	u, err := repo.GetOrCreateUser(ctx, db, "200", "Alice", 100)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	u.Level, u.XP = 1, 40
	if err := repo.SaveUser(ctx, db, u); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	c := testCtx(t, db, client, "rank")
	if err := runRank(ctx, c); err != nil {
		t.Fatalf("runRank: %v", err)
	}
	got := client.lastSent()
	if !strings.Contains(got, "Alice") || !strings.Contains(got, "Level 1 — 40/200 XP") {
		t.Errorf("reply = %q", got)
	}
	// 40/200 fills 2 of 10 bar segments.
	if !strings.Contains(got, "██░░░░░░░░") {
		t.Errorf("progress bar missing in %q", got)
	}
}

func TestRunRankCreatesNewUser(t *testing.T) {
	db := newTestDB(t)
	client := &fakeClient{self: "999"}
	c := testCtx(t, db, client, "rank")
	if err := runRank(context.Background(), c); err != nil {
		t.Fatalf("runRank: %v", err)
	}
	if got := client.lastSent(); !strings.Contains(got, "Level 0 — 0/100 XP") {
		t.Errorf("reply = %q", got)
	}
}

func TestRunLeaderboardOrdersAndMedals(t *testing.T) {
	db := newTestDB(t)
	client := &fakeClient{self: "999"}
	ctx := context.Background()

	seed := []struct {
		id, name  string
		level, xp int
	}{
		{"1", "Ann", 2, 10},
		{"2", "Ben", 5, 0},
		{"3", "Cam", 5, 80},
		{"4", "Dee", 1, 99},
	}
	for _, s := range seed {
		u, err := repo.GetOrCreateUser(ctx, db, s.id, s.name, 0)
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		u.Level, u.XP = s.level, s.xp
		if err := repo.SaveUser(ctx, db, u); err != nil {
			t.Fatalf("seed save: %v", err)
		}
	}

	c := testCtx(t, db, client, "leaderboard")
	if err := runLeaderboard(ctx, c); err != nil {
		t.Fatalf("runLeaderboard: %v", err)
	}
	got := client.lastSent()
	lines := strings.Split(got, "\n")
	if len(lines) != 5 {
		t.Fatalf("reply lines = %d: %q", len(lines), got)
	}
	if !strings.HasPrefix(lines[1], "🥇 Cam") || !strings.HasPrefix(lines[2], "🥈 Ben") {
		t.Errorf("top rows = %q, %q", lines[1], lines[2])
	}
	if !strings.HasPrefix(lines[4], "4. Dee") {
		t.Errorf("fourth row = %q", lines[4])
	}
}

func TestRunLeaderboardEmpty(t *testing.T) {
	db := newTestDB(t)
	client := &fakeClient{self: "999"}
	c := testCtx(t, db, client, "leaderboard")
	if err := runLeaderboard(context.Background(), c); err != nil {
		t.Fatalf("runLeaderboard: %v", err)
	}
	if got := client.lastSent(); got != "Nobody has earned XP yet." {
		t.Errorf("reply = %q", got)
	}
}

func TestRunXPToggle(t *testing.T) {
	db := newTestDB(t)
	client := &fakeClient{self: "999"}
	ctx := context.Background()

	c := testCtx(t, db, client, "xp off")
	if err := runXPToggle(ctx, c); err != nil {
		t.Fatalf("runXPToggle off: %v", err)
	}
	if got := client.lastSent(); got != "XP gain disabled in this thread." {
		t.Errorf("reply = %q", got)
	}
	var off bool
	if err := repo.ThreadSetting(ctx, db, "9000", bot.ThreadXPOffKey, &off); err != nil || !off {
		t.Errorf("flag = %v, err = %v", off, err)
	}

	c = testCtx(t, db, client, "xp on")
	if err := runXPToggle(ctx, c); err != nil {
		t.Fatalf("runXPToggle on: %v", err)
	}
	if err := repo.ThreadSetting(ctx, db, "9000", bot.ThreadXPOffKey, &off); err != nil || off {
		t.Errorf("flag = %v, err = %v", off, err)
	}
}

func TestRunXPToggleBadArg(t *testing.T) {
	db := newTestDB(t)
	client := &fakeClient{self: "999"}
	c := testCtx(t, db, client, "xp maybe")
	if err := runXPToggle(context.Background(), c); err != nil {
		t.Fatalf("runXPToggle: %v", err)
	}
	if got := client.lastSent(); got != "Usage: N!xp <on|off>" {
		t.Errorf("reply = %q", got)
	}
}
