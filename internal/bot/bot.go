// Package bot – event fan-in.
package bot

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/nimbusbot/nimbus/internal/chat"
	"github.com/nimbusbot/nimbus/internal/config"
	"github.com/nimbusbot/nimbus/internal/repo"
)

// Bot routes inbound transport events to the dispatcher, the XP engine, and
// the membership handlers. Events are processed one at a time in delivery
// order; the transport's serialization is the only ordering guarantee.
type Bot struct {
	Dispatcher *Dispatcher
	XP         *XPEngine
}

// HandleEvent processes one inbound event to completion.
func (b *Bot) HandleEvent(ctx context.Context, ev chat.Event) {
	ev.Normalize()
	if ev.SenderID == b.Dispatcher.Client.CurrentUserID() {
		return
	}
	messagesTotal.WithLabelValues(ev.Type).Inc()

	switch ev.Type {
	case chat.EventMessage, chat.EventMessageReply:
		// XP accrues whether or not the message matches a command.
		b.XP.Handle(ctx, ev)
		b.Dispatcher.Dispatch(ctx, ev)
	case chat.EventMembership:
		b.handleMembership(ctx, ev)
	default:
		// Typing indicators, read receipts, and other noise.
	}
}

// handleMembership reacts to group membership changes: a welcome message
// for new participants and the anti-leave re-add when the thread has opted
// in. Both are best effort.
func (b *Bot) handleMembership(ctx context.Context, ev chat.Event) {
	d := b.Dispatcher
	self := d.Client.CurrentUserID()

	switch ev.Action {
	case chat.ActionAdd:
		names := b.participantNames(ctx, ev)
		for _, name := range names {
			d.Sender.Send(ctx, config.RenderUser(d.Config.Messages.Welcome, name, ""), ev.ThreadID)
		}
	case chat.ActionRemove:
		var antiLeave bool
		if err := repo.ThreadSetting(ctx, d.DB, ev.ThreadID, "antileave", &antiLeave); err != nil || !antiLeave {
			return
		}
		for _, id := range ev.ParticipantIDs {
			if id == self {
				continue
			}
			if err := d.Client.AddUserToGroup(ctx, id, ev.ThreadID); err != nil {
				log.Warn().Err(err).
					Str("user_id", id).
					Str("thread_id", ev.ThreadID).
					Msg("anti-leave re-add failed")
				continue
			}
			d.Sender.Send(ctx, "Nice try! Nobody leaves this group. 😏", ev.ThreadID)
		}
	}
}

// participantNames resolves display names for the event's participants,
// falling back to raw ids when the profile lookup fails.
func (b *Bot) participantNames(ctx context.Context, ev chat.Event) []string {
	self := b.Dispatcher.Client.CurrentUserID()
	ids := make([]string, 0, len(ev.ParticipantIDs))
	for _, id := range ev.ParticipantIDs {
		if id != self {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	names := make([]string, 0, len(ids))
	info, err := b.Dispatcher.Client.GetUserInfo(ctx, ids...)
	for _, id := range ids {
		if err == nil {
			if u, ok := info[id]; ok && u.Name != "" {
				names = append(names, u.Name)
				continue
			}
		}
		names = append(names, id)
	}
	return names
}
