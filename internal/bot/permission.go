// Package bot – permission resolution.
package bot

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/nimbusbot/nimbus/internal/chat"
)

// Authorizer decides whether an invoker may run a command. Extracted as an
// interface so dispatcher tests can count and stub authorization calls.
type Authorizer interface {
	Authorize(ctx context.Context, def *Definition, invokerID, threadID string) bool
}

// PermissionResolver is the production Authorizer. Owner checks are a plain
// string comparison against the configured owner id; admin checks require a
// live thread info lookup, which is the most expensive step in dispatch and
// is only performed for commands that declare AdminOnly.
type PermissionResolver struct {
	OwnerID string
	Client  chat.Client
}

// Authorize applies the permission rules in order, short-circuiting:
//
//  1. OwnerOnly: allowed iff the invoker is the configured owner.
//  2. AdminOnly: the owner bypasses the check; otherwise the invoker must
//     appear in the thread's live admin id list. A failed lookup denies —
//     administrative actions are never permitted when admin status cannot
//     be confirmed.
//  3. Neither: always allowed.
func (p *PermissionResolver) Authorize(ctx context.Context, def *Definition, invokerID, threadID string) bool {
	switch {
	case def.OwnerOnly:
		return invokerID == p.OwnerID
	case def.AdminOnly:
		if invokerID == p.OwnerID {
			return true
		}
		info, err := p.Client.GetThreadInfo(ctx, threadID)
		if err != nil {
			// Fail closed.
			log.Warn().Err(err).
				Str("thread_id", threadID).
				Str("command", def.Name).
				Msg("admin lookup failed; denying")
			return false
		}
		for _, id := range info.AdminIDs {
			if id == invokerID {
				return true
			}
		}
		return false
	default:
		return true
	}
}
