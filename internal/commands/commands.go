// Package commands defines the command catalog: every user-facing command,
// grouped by category, built as bot.Definition values and registered into
// the dispatcher's registry at startup (and on reload).
package commands

import (
	"github.com/nimbusbot/nimbus/internal/bot"
)

// Deps carries the few collaborators that are not already on bot.Context.
type Deps struct {
	// Shutdown initiates graceful process shutdown; wired to the main
	// signal handler. Nil disables the shutdown command's action.
	Shutdown func()
}

// All returns the full command catalog in presentation order. Calling it
// again produces fresh definitions, which is what Registry.Reload wants.
func All(d Deps) []*bot.Definition {
	var defs []*bot.Definition
	defs = append(defs, infoDefs()...)
	defs = append(defs, economyDefs()...)
	defs = append(defs, levelDefs()...)
	defs = append(defs, funDefs()...)
	defs = append(defs, gameDefs(newArena())...)
	defs = append(defs, musicDefs()...)
	defs = append(defs, aiDefs()...)
	defs = append(defs, adminDefs(d)...)
	return defs
}
