// Package commands – moderation and owner commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nimbusbot/nimbus/internal/bot"
	"github.com/nimbusbot/nimbus/internal/repo"
)

func adminDefs(d Deps) []*bot.Definition {
	return []*bot.Definition{
		{
			Name:        "ban",
			Category:    "admin",
			Description: "Ban a user from using the bot.",
			Usage:       "{prefix}ban <user id or mention>",
			AdminOnly:   true,
			Run:         runBan,
		},
		{
			Name:        "unban",
			Category:    "admin",
			Description: "Lift a user's bot ban.",
			Usage:       "{prefix}unban <user id or mention>",
			AdminOnly:   true,
			Run:         runUnban,
		},
		{
			Name:        "kick",
			Category:    "admin",
			Description: "Remove a user from this group.",
			Usage:       "{prefix}kick <user id or mention>",
			AdminOnly:   true,
			Run:         runKick,
		},
		{
			Name:        "add",
			Category:    "admin",
			Description: "Add a user to this group by id.",
			Usage:       "{prefix}add <user id>",
			AdminOnly:   true,
			Run:         runAdd,
		},
		{
			Name:        "lock",
			Category:    "admin",
			Description: "Restrict commands in this thread to the owner.",
			Usage:       "{prefix}lock",
			AdminOnly:   true,
			Run:         setThreadFlag("locked", true, "Thread locked. Only the owner can run commands here."),
		},
		{
			Name:        "unlock",
			Category:    "admin",
			Description: "Lift the thread command lock.",
			Usage:       "{prefix}unlock",
			AdminOnly:   true,
			Run:         setThreadFlag("locked", false, "Thread unlocked."),
		},
		{
			Name:        "antileave",
			Category:    "admin",
			Description: "Toggle re-adding members who leave this group.",
			Usage:       "{prefix}antileave <on|off>",
			AdminOnly:   true,
			Run:         runAntiLeave,
		},
		{
			Name:        "setprefix",
			Category:    "admin",
			Description: "Set or reset this thread's command prefix.",
			Usage:       "{prefix}setprefix <new prefix|reset>",
			AdminOnly:   true,
			Run:         runSetPrefix,
		},
		{
			Name:        "resetcd",
			Category:    "admin",
			Description: "Clear a user's cooldown for one command.",
			Usage:       "{prefix}resetcd <user id or mention> <command>",
			AdminOnly:   true,
			Run:         runResetCooldown,
		},
		{
			Name:        "maintenance",
			Category:    "admin",
			Description: "Toggle global maintenance mode.",
			Usage:       "{prefix}maintenance <on|off>",
			OwnerOnly:   true,
			Run:         runMaintenance,
		},
		{
			Name:        "broadcast",
			Category:    "admin",
			Description: "Send a message to every thread the bot is in.",
			Usage:       "{prefix}broadcast <message>",
			OwnerOnly:   true,
			Cooldown:    time.Minute,
			Run:         runBroadcast,
		},
		{
			Name:        "reload",
			Category:    "admin",
			Description: "Rebuild the command registry.",
			Usage:       "{prefix}reload",
			OwnerOnly:   true,
			Run: func(ctx context.Context, c *bot.Context) error {
				c.Registry.Reload(All(d))
				c.Reply(ctx, fmt.Sprintf("Reloaded %d commands.", c.Registry.Len()))
				return nil
			},
		},
		{
			Name:        "shutdown",
			Category:    "admin",
			Description: "Shut the bot down gracefully.",
			Usage:       "{prefix}shutdown",
			OwnerOnly:   true,
			Run: func(ctx context.Context, c *bot.Context) error {
				c.Reply(ctx, "Shutting down. Bye! 👋")
				if d.Shutdown != nil {
					d.Shutdown()
				}
				return nil
			},
		},
	}
}

func runBan(ctx context.Context, c *bot.Context) error {
	target := c.Mention(0)
	if target == "" {
		c.Reply(ctx, "Usage: "+renderUsage(c, "ban <user id or mention>"))
		return nil
	}
	if target == c.Config.OwnerID {
		c.Reply(ctx, "Nice try. The owner cannot be banned.")
		return nil
	}
	if err := repo.PutSetting(ctx, c.DB, bot.BanKey(target), true); err != nil {
		return fmt.Errorf("ban %s: %w", target, err)
	}
	c.Reply(ctx, fmt.Sprintf("User %s is now banned from the bot.", target))
	return nil
}

func runUnban(ctx context.Context, c *bot.Context) error {
	target := c.Mention(0)
	if target == "" {
		c.Reply(ctx, "Usage: "+renderUsage(c, "unban <user id or mention>"))
		return nil
	}
	if err := repo.DeleteSetting(ctx, c.DB, bot.BanKey(target)); err != nil {
		return fmt.Errorf("unban %s: %w", target, err)
	}
	c.Reply(ctx, fmt.Sprintf("User %s is no longer banned.", target))
	return nil
}

func runKick(ctx context.Context, c *bot.Context) error {
	target := c.Mention(0)
	if target == "" {
		c.Reply(ctx, "Usage: "+renderUsage(c, "kick <user id or mention>"))
		return nil
	}
	if target == c.Client.CurrentUserID() {
		c.Reply(ctx, "I'm not kicking myself.")
		return nil
	}
	if err := c.Client.RemoveUserFromGroup(ctx, target, c.Event.ThreadID); err != nil {
		return fmt.Errorf("kick %s: %w", target, err)
	}
	c.Reply(ctx, fmt.Sprintf("Kicked %s from the group.", target))
	return nil
}

func runAdd(ctx context.Context, c *bot.Context) error {
	target := c.Arg(0)
	if target == "" {
		c.Reply(ctx, "Usage: "+renderUsage(c, "add <user id>"))
		return nil
	}
	if err := c.Client.AddUserToGroup(ctx, target, c.Event.ThreadID); err != nil {
		return fmt.Errorf("add %s: %w", target, err)
	}
	c.Reply(ctx, fmt.Sprintf("Added %s to the group.", target))
	return nil
}

// setThreadFlag returns a handler writing a boolean thread setting.
func setThreadFlag(key string, value bool, reply string) bot.HandlerFunc {
	return func(ctx context.Context, c *bot.Context) error {
		if _, err := repo.GetOrCreateThread(ctx, c.DB, c.Event.ThreadID, c.Event.ThreadName, c.Event.IsGroup); err != nil {
			return err
		}
		if err := repo.PutThreadSetting(ctx, c.DB, c.Event.ThreadID, key, value); err != nil {
			return err
		}
		c.Reply(ctx, reply)
		return nil
	}
}

func runAntiLeave(ctx context.Context, c *bot.Context) error {
	on, err := parseOnOff(c.Arg(0))
	if err != nil {
		c.Reply(ctx, "Usage: "+renderUsage(c, "antileave <on|off>"))
		return nil
	}
	reply := "Anti-leave disabled."
	if on {
		reply = "Anti-leave enabled. Leavers get pulled right back in."
	}
	return setThreadFlag("antileave", on, reply)(ctx, c)
}

func runSetPrefix(ctx context.Context, c *bot.Context) error {
	arg := c.Arg(0)
	if arg == "" {
		c.Reply(ctx, "Usage: "+renderUsage(c, "setprefix <new prefix|reset>"))
		return nil
	}
	if _, err := repo.GetOrCreateThread(ctx, c.DB, c.Event.ThreadID, c.Event.ThreadName, c.Event.IsGroup); err != nil {
		return err
	}
	if strings.EqualFold(arg, "reset") {
		if err := repo.UpdateThreadPrefix(ctx, c.DB, c.Event.ThreadID, nil); err != nil {
			return err
		}
		c.Reply(ctx, fmt.Sprintf("Prefix reset to the default %q.", c.Config.Prefix))
		return nil
	}
	if len(arg) > 8 {
		c.Reply(ctx, "Prefixes longer than 8 characters are not allowed.")
		return nil
	}
	if err := repo.UpdateThreadPrefix(ctx, c.DB, c.Event.ThreadID, &arg); err != nil {
		return err
	}
	c.Reply(ctx, fmt.Sprintf("Prefix for this thread is now %q.", arg))
	return nil
}

func runResetCooldown(ctx context.Context, c *bot.Context) error {
	target := c.Mention(0)
	name := strings.ToLower(c.Arg(1))
	if target == "" || name == "" {
		c.Reply(ctx, "Usage: "+renderUsage(c, "resetcd <user id or mention> <command>"))
		return nil
	}
	def, ok := c.Registry.Resolve(name)
	if !ok {
		c.Reply(ctx, fmt.Sprintf("Unknown command %q.", name))
		return nil
	}
	c.Cache.Delete(ctx, bot.CooldownKey(target, def.Name))
	c.Reply(ctx, fmt.Sprintf("Cooldown on %s cleared for %s.", def.Name, target))
	return nil
}

func runMaintenance(ctx context.Context, c *bot.Context) error {
	on, err := parseOnOff(c.Arg(0))
	if err != nil {
		c.Reply(ctx, "Usage: "+renderUsage(c, "maintenance <on|off>"))
		return nil
	}
	c.Dispatcher.SetMaintenance(ctx, on)
	if on {
		c.Reply(ctx, "Maintenance mode enabled. Only you can run commands now.")
	} else {
		c.Reply(ctx, "Maintenance mode disabled. Back in business.")
	}
	return nil
}

func runBroadcast(ctx context.Context, c *bot.Context) error {
	msg := c.Rest(0)
	if msg == "" {
		c.Reply(ctx, "Usage: "+renderUsage(c, "broadcast <message>"))
		return nil
	}
	threads, err := c.Client.GetThreadList(ctx, 100)
	if err != nil {
		return fmt.Errorf("broadcast: list threads: %w", err)
	}
	sent := 0
	for _, th := range threads {
		if th.ID == "" {
			continue
		}
		c.Sender.SendPaced(ctx, msg, th.ID)
		sent++
	}
	c.Reply(ctx, fmt.Sprintf("Broadcast delivered to %d threads.", sent))
	return nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "enable":
		return true, nil
	case "off", "false", "0", "disable":
		return false, nil
	default:
		return false, errors.New("expected on or off")
	}
}

// renderUsage prepends the thread's effective prefix to a usage tail.
func renderUsage(c *bot.Context, tail string) string {
	return c.Prefix + tail
}
