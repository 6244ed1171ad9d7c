// Package bot implements the command dispatch core: the registry of command
// definitions, permission resolution, per-user cooldowns, the dispatch state
// machine, and the XP accrual engine. Everything here is glue between the
// transport boundary (internal/chat) and the persistence layer
// (internal/repo); the command handlers themselves live in
// internal/commands.
package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// HandlerFunc is the execution function of a command. A returned error is
// reported to the user as the generic error message and recorded in the
// error log; it never crashes the dispatcher.
type HandlerFunc func(ctx context.Context, c *Context) error

// Definition is the static metadata and handler of one command, loaded at
// startup. Immutable after registration except through Registry.Reload.
type Definition struct {
	Name        string        // canonical name, unique, stored lowercase
	Aliases     []string      // alternate tokens resolving to this command
	Category    string        // grouping for the help command
	Description string        // one-line summary
	Usage       string        // e.g. "{prefix}ban <user id>"
	Cooldown    time.Duration // 0 falls back to the configured default
	AdminOnly   bool          // requires thread admin (owner bypasses)
	OwnerOnly   bool          // requires the configured owner
	Run         HandlerFunc
}

// Registry maps canonical command names and aliases to definitions. It is
// read-mostly: lookups happen on every inbound message, writes only at
// startup and on an explicit reload. A RWMutex covers the status server and
// reloads happening alongside dispatch.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Definition
	aliases  map[string]string
	order    []string // canonical names in registration order
	cats     []string // categories in first-seen order
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Definition),
		aliases:  make(map[string]string),
	}
}

// Register adds a command under its canonical lowercase name and maps each
// declared alias to it. An alias already mapped to a different command is
// overwritten — last registration wins — but the collision is logged so a
// shadowed command is an operator-visible event, not a silent one.
func (r *Registry) Register(def *Definition) {
	name := strings.ToLower(strings.TrimSpace(def.Name))
	if name == "" || def.Run == nil {
		log.Warn().Str("name", def.Name).Msg("skipping command with no name or handler")
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; !exists {
		r.order = append(r.order, name)
	}
	r.commands[name] = def
	if def.Category != "" && !containsString(r.cats, def.Category) {
		r.cats = append(r.cats, def.Category)
	}
	for _, a := range def.Aliases {
		alias := strings.ToLower(strings.TrimSpace(a))
		if alias == "" {
			continue
		}
		if prev, ok := r.aliases[alias]; ok && prev != name {
			log.Warn().
				Str("alias", alias).
				Str("was", prev).
				Str("now", name).
				Msg("alias collision; later registration wins")
		}
		r.aliases[alias] = name
	}
}

// Resolve maps a token to its command definition. The token is lowercased,
// checked against the alias map first, and then treated as a canonical name.
func (r *Registry) Resolve(token string) (*Definition, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	r.mu.RLock()
	defer r.mu.RUnlock()
	if canonical, ok := r.aliases[token]; ok {
		token = canonical
	}
	def, ok := r.commands[token]
	return def, ok
}

// ByCategory returns the definitions of one category in registration order.
func (r *Registry) ByCategory(category string) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Definition
	for _, name := range r.order {
		if d := r.commands[name]; d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Categories returns the distinct categories in first-seen order.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.cats))
	copy(out, r.cats)
	return out
}

// All returns every definition in registration order.
func (r *Registry) All() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name])
	}
	return out
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Reload clears the registry and re-registers the given definitions.
// In-flight dispatches hold their resolved *Definition and are unaffected.
func (r *Registry) Reload(defs []*Definition) {
	r.mu.Lock()
	r.commands = make(map[string]*Definition)
	r.aliases = make(map[string]string)
	r.order = nil
	r.cats = nil
	r.mu.Unlock()
	for _, d := range defs {
		r.Register(d)
	}
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
