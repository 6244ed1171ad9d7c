// Package bot – command execution context.
package bot

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nimbusbot/nimbus/internal/cache"
	"github.com/nimbusbot/nimbus/internal/chat"
	"github.com/nimbusbot/nimbus/internal/config"
	"github.com/nimbusbot/nimbus/internal/llm"
	"github.com/nimbusbot/nimbus/internal/music"
)

// Context is handed to a command handler for one invocation. It exposes the
// normalized inbound event, the parsed arguments, the effective prefix, the
// shared collaborators, and reply capabilities bound to the originating
// thread.
type Context struct {
	Event  chat.Event
	Args   []string // whitespace-split positional arguments, no quoting
	Prefix string   // effective prefix for this thread

	Config     config.Config
	Registry   *Registry
	Dispatcher *Dispatcher
	DB         *gorm.DB
	Cache      *cache.Cache
	Client     chat.Client
	Sender     *chat.Sender
	LLM        *llm.Client
	Music      *music.Client

	// StartedAt is the process start time, for the uptime command.
	StartedAt time.Time
}

// Reply sends content to the originating thread, fire-and-forget with the
// standard retry policy.
func (c *Context) Reply(ctx context.Context, content string) {
	c.Sender.Send(ctx, content, c.Event.ThreadID)
}

// SendTo sends content to an arbitrary thread.
func (c *Context) SendTo(ctx context.Context, threadID, content string) {
	c.Sender.Send(ctx, content, threadID)
}

// Arg returns the i-th positional argument or "" when absent.
func (c *Context) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Rest joins the arguments from index i onward with single spaces, for
// commands that treat the tail of the message as free text.
func (c *Context) Rest(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return strings.Join(c.Args[i:], " ")
}

// Mention returns the first mentioned user id, falling back to the given
// argument index. Moderation commands accept either form.
func (c *Context) Mention(argIdx int) string {
	if len(c.Event.Mentions) > 0 {
		return c.Event.Mentions[0]
	}
	return c.Arg(argIdx)
}
