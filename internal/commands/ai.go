// Package commands – the LLM-backed ask command.
package commands

import (
	"context"
	"time"

	"github.com/nimbusbot/nimbus/internal/bot"
)

func aiDefs() []*bot.Definition {
	return []*bot.Definition{
		{
			Name:        "ask",
			Aliases:     []string{"ai"},
			Category:    "ai",
			Description: "Ask the AI a question.",
			Usage:       "{prefix}ask <question>",
			Cooldown:    15 * time.Second,
			Run:         runAsk,
		},
	}
}

func runAsk(ctx context.Context, c *bot.Context) error {
	prompt := c.Rest(0)
	if prompt == "" {
		c.Reply(ctx, "Usage: "+renderUsage(c, "ask <question>"))
		return nil
	}
	if !c.LLM.Enabled() {
		c.Reply(ctx, "The AI feature is not configured on this bot.")
		return nil
	}
	answer, err := c.LLM.Ask(ctx, prompt)
	if err != nil {
		return err
	}
	c.Reply(ctx, answer)
	return nil
}
