// Package commands – introspection commands.
package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nimbusbot/nimbus/internal/bot"
	"github.com/nimbusbot/nimbus/internal/config"
	"github.com/nimbusbot/nimbus/internal/repo"
	"github.com/nimbusbot/nimbus/internal/search"
	"github.com/nimbusbot/nimbus/internal/sysutil"
)

func infoDefs() []*bot.Definition {
	return []*bot.Definition{
		{
			Name:        "help",
			Aliases:     []string{"h", "commands"},
			Category:    "info",
			Description: "List commands or explain one.",
			Usage:       "{prefix}help [command or question]",
			Run:         runHelp,
		},
		{
			Name:        "ping",
			Category:    "info",
			Description: "Check that the bot is alive.",
			Usage:       "{prefix}ping",
			Run: func(ctx context.Context, c *bot.Context) error {
				c.Reply(ctx, "Pong! 🏓")
				return nil
			},
		},
		{
			Name:        "uptime",
			Category:    "info",
			Description: "Show how long the bot has been running.",
			Usage:       "{prefix}uptime",
			Run: func(ctx context.Context, c *bot.Context) error {
				c.Reply(ctx, "⏱ Up for "+formatUptime(time.Since(c.StartedAt)))
				return nil
			},
		},
		{
			Name:        "stats",
			Category:    "info",
			Description: "Show command usage statistics.",
			Usage:       "{prefix}stats",
			Run:         runStats,
		},
		{
			Name:        "botinfo",
			Category:    "info",
			Description: "Show information about the bot.",
			Usage:       "{prefix}botinfo",
			Run:         runBotInfo,
		},
		{
			Name:        "userinfo",
			Category:    "info",
			Description: "Show a user's profile and progress.",
			Usage:       "{prefix}userinfo [user]",
			Run:         runUserInfo,
		},
		{
			Name:        "threadinfo",
			Category:    "info",
			Description: "Show information about this thread.",
			Usage:       "{prefix}threadinfo",
			Run:         runThreadInfo,
		},
	}
}

func runHelp(ctx context.Context, c *bot.Context) error {
	query := c.Rest(0)
	if query == "" {
		c.Reply(ctx, helpOverview(c))
		return nil
	}

	token := strings.TrimPrefix(strings.ToLower(query), strings.ToLower(c.Prefix))
	if def, ok := c.Registry.Resolve(token); ok {
		c.Reply(ctx, helpDetail(c, def))
		return nil
	}

	// Free-text fallback: rank commands by similarity over their help texts.
	idx := helpIndex(c.Registry)
	results := idx.TopK(query, 3)
	if len(results) == 0 {
		c.Reply(ctx, fmt.Sprintf("No command matches %q. Try %shelp for the full list.", query, c.Prefix))
		return nil
	}
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = c.Prefix + r.Key
	}
	c.Reply(ctx, "Did you mean: "+strings.Join(names, ", ")+"?")
	return nil
}

func helpOverview(c *bot.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📖 %s commands (prefix %s)\n", c.Config.BotName, c.Prefix)
	for _, cat := range c.Registry.Categories() {
		defs := c.Registry.ByCategory(cat)
		names := make([]string, len(defs))
		for i, d := range defs {
			names[i] = d.Name
		}
		fmt.Fprintf(&b, "\n%s: %s", cat, strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "\n\nType %shelp <command> for details.", c.Prefix)
	return b.String()
}

func helpDetail(c *bot.Context, def *bot.Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s\n", def.Name, def.Description)
	fmt.Fprintf(&b, "Usage: %s", config.Render(def.Usage, def.Name, c.Prefix, ""))
	if len(def.Aliases) > 0 {
		fmt.Fprintf(&b, "\nAliases: %s", strings.Join(def.Aliases, ", "))
	}
	switch {
	case def.OwnerOnly:
		b.WriteString("\nOwner only.")
	case def.AdminOnly:
		b.WriteString("\nThread admins only.")
	}
	return b.String()
}

// helpIndex builds a similarity index over every command's help text. The
// catalog is small, so rebuilding per query is cheaper than tracking reloads.
func helpIndex(r *bot.Registry) *search.Index {
	defs := r.All()
	entries := make([]search.Entry, 0, len(defs))
	for _, d := range defs {
		text := strings.Join(append([]string{d.Name, d.Description, d.Usage}, d.Aliases...), " ")
		entries = append(entries, search.Entry{Key: d.Name, Text: text})
	}
	return search.New(entries, search.WithStopwords([]string{"the", "a", "an", "your", "to", "or", "prefix"}))
}

func runStats(ctx context.Context, c *bot.Context) error {
	top, err := repo.TopCommands(ctx, c.DB, 5)
	if err != nil {
		return err
	}
	total, succeeded, err := repo.CountCommandStats(ctx, c.DB)
	if err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %d commands executed, %d succeeded.\n", total, succeeded)
	if len(top) > 0 {
		b.WriteString("Most used:")
		for i, t := range top {
			fmt.Fprintf(&b, "\n%d. %s — %d", i+1, t.Command, t.Count)
		}
	}
	c.Reply(ctx, b.String())
	return nil
}

func runBotInfo(ctx context.Context, c *bot.Context) error {
	users, err := repo.CountUsers(ctx, c.DB)
	if err != nil {
		return err
	}
	threads, err := repo.CountThreads(ctx, c.DB)
	if err != nil {
		return err
	}
	c.Reply(ctx, fmt.Sprintf(
		"🤖 %s\nUptime: %s\nCommands: %d\nKnown users: %d\nKnown threads: %d\nMemory: %s",
		c.Config.BotName,
		formatUptime(time.Since(c.StartedAt)),
		c.Registry.Len(),
		users,
		threads,
		sysutil.MemoryUsage(),
	))
	return nil
}

func runUserInfo(ctx context.Context, c *bot.Context) error {
	target := c.Mention(0)
	if target == "" {
		target = c.Event.SenderID
	}
	u, err := repo.GetOrCreateUser(ctx, c.DB, target, "", c.Config.Economy.StartingBalance)
	if err != nil {
		return err
	}
	name := displayName(u, target)
	if info, err := c.Client.GetUserInfo(ctx, target); err == nil {
		if p, ok := info[target]; ok && p.Name != "" {
			name = p.Name
		}
	}
	c.Reply(ctx, fmt.Sprintf(
		"👤 %s\nLevel %d (%d/%d XP)\nMessages: %d\nBalance: %d coins\nDaily streak: %d",
		name, u.Level, u.XP, (u.Level+1)*100, u.TotalMessages, u.Balance, u.DailyStreak,
	))
	return nil
}

func runThreadInfo(ctx context.Context, c *bot.Context) error {
	info, err := c.Client.GetThreadInfo(ctx, c.Event.ThreadID)
	if err != nil {
		return fmt.Errorf("thread info: %w", err)
	}
	kind := "direct"
	if info.IsGroup {
		kind = "group"
	}
	name := info.Name
	if name == "" {
		name = c.Event.ThreadID
	}
	c.Reply(ctx, fmt.Sprintf(
		"💬 %s (%s)\nParticipants: %d\nAdmins: %d\nPrefix: %s",
		name, kind, len(info.ParticipantIDs), len(info.AdminIDs), c.Prefix,
	))
	return nil
}

// formatUptime renders an elapsed duration as "2d 3h 4m".
func formatUptime(d time.Duration) string {
	d = d.Round(time.Minute)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}
