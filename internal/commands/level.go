// Package commands – leveling commands.
package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nimbusbot/nimbus/internal/bot"
	"github.com/nimbusbot/nimbus/internal/domain"
	"github.com/nimbusbot/nimbus/internal/repo"
)

func levelDefs() []*bot.Definition {
	return []*bot.Definition{
		{
			Name:        "rank",
			Category:    "level",
			Description: "Show your level and XP progress.",
			Usage:       "{prefix}rank",
			Run:         runRank,
		},
		{
			Name:        "leaderboard",
			Aliases:     []string{"top", "lb"},
			Category:    "level",
			Description: "Show the highest-level users.",
			Usage:       "{prefix}leaderboard",
			Cooldown:    10 * time.Second,
			Run:         runLeaderboard,
		},
		{
			Name:        "xp",
			Category:    "level",
			Description: "Toggle XP gain in this thread.",
			Usage:       "{prefix}xp <on|off>",
			AdminOnly:   true,
			Run:         runXPToggle,
		},
	}
}

func runRank(ctx context.Context, c *bot.Context) error {
	u, err := repo.GetOrCreateUser(ctx, c.DB, c.Event.SenderID, c.Event.SenderName, c.Config.Economy.StartingBalance)
	if err != nil {
		return err
	}
	threshold := domain.LevelThreshold(u.Level)
	filled := 0
	if threshold > 0 {
		filled = u.XP * 10 / threshold
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
	c.Reply(ctx, fmt.Sprintf(
		"🏅 %s\nLevel %d — %d/%d XP\n[%s]",
		displayName(u, c.Event.SenderID), u.Level, u.XP, threshold, bar,
	))
	return nil
}

func runLeaderboard(ctx context.Context, c *bot.Context) error {
	users, err := repo.Leaderboard(ctx, c.DB, 10)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		c.Reply(ctx, "Nobody has earned XP yet.")
		return nil
	}
	medals := []string{"🥇", "🥈", "🥉"}
	var b strings.Builder
	b.WriteString("🏆 Leaderboard\n")
	for i, u := range users {
		marker := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			marker = medals[i]
		}
		fmt.Fprintf(&b, "%s %s — level %d (%d XP)\n", marker, displayName(&u, u.PlatformID), u.Level, u.XP)
	}
	c.Reply(ctx, strings.TrimRight(b.String(), "\n"))
	return nil
}

func runXPToggle(ctx context.Context, c *bot.Context) error {
	on, err := parseOnOff(c.Arg(0))
	if err != nil {
		c.Reply(ctx, "Usage: "+renderUsage(c, "xp <on|off>"))
		return nil
	}
	reply := "XP gain enabled in this thread."
	if !on {
		reply = "XP gain disabled in this thread."
	}
	return setThreadFlag(bot.ThreadXPOffKey, !on, reply)(ctx, c)
}
