// Package bot – the XP accrual engine.
//
// Runs once per non-self chat message, independent of command dispatch.
// Awards are cooldown-gated through the cache (fail open) and apply a
// single-level rollover: gains are always well below the 100-point level
// step, so one message can never skip a level.
package bot

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/nimbusbot/nimbus/internal/chat"
	"github.com/nimbusbot/nimbus/internal/config"
	"github.com/nimbusbot/nimbus/internal/domain"
	"github.com/nimbusbot/nimbus/internal/repo"
)

// XPEngine accrues experience for observed messages and announces level-ups.
type XPEngine struct {
	Config   config.Config
	DB       *gorm.DB
	Cooldown Cooldowner
	Sender   *chat.Sender

	// randInt draws a uniform value in [min,max]; swappable in tests.
	randInt func(min, max int) int
}

// NewXPEngine constructs an XPEngine with the default random source.
func NewXPEngine(cfg config.Config, db *gorm.DB, cd Cooldowner, sender *chat.Sender) *XPEngine {
	return &XPEngine{
		Config:   cfg,
		DB:       db,
		Cooldown: cd,
		Sender:   sender,
		randInt:  func(min, max int) int { return min + rand.Intn(max-min+1) },
	}
}

// Handle processes one inbound message for XP. Messages inside the per-user
// cooldown window are skipped entirely (no counter increment); eligible
// messages award a random gain and roll the level over when the threshold
// is crossed.
func (x *XPEngine) Handle(ctx context.Context, ev chat.Event) {
	if !x.Config.XP.Enabled {
		return
	}
	var off bool
	if err := repo.ThreadSetting(ctx, x.DB, ev.ThreadID, ThreadXPOffKey, &off); err == nil && off {
		return
	}
	if onCD, _ := x.Cooldown.CheckAndMark(ctx, xpCooldownKey(ev.SenderID), x.Config.XP.Cooldown); onCD {
		return
	}

	u, err := repo.GetOrCreateUser(ctx, x.DB, ev.SenderID, ev.SenderName, x.Config.Economy.StartingBalance)
	if err != nil {
		log.Warn().Err(err).Str("user_id", ev.SenderID).Msg("xp user lookup failed")
		return
	}

	gain := x.randInt(x.Config.XP.MinGain, x.Config.XP.MaxGain)
	leveled := ApplyXPGain(u, gain)
	u.LastXPGain = time.Now().UTC()

	if err := repo.UpdateUserXP(ctx, x.DB, u); err != nil {
		log.Warn().Err(err).Str("user_id", ev.SenderID).Msg("xp update failed")
		return
	}
	xpAwardsTotal.Inc()

	if leveled {
		levelUpsTotal.Inc()
		name := u.Name
		if name == "" {
			name = ev.SenderID
		}
		// Best effort; a lost notice is not worth a retry.
		x.Sender.Send(ctx, config.RenderUser(x.Config.Messages.LevelUp, name, strconv.Itoa(u.Level)), ev.ThreadID)
	}
}

// ApplyXPGain adds gain to the user's running XP, increments the message
// counter, and performs the single-level rollover. It reports whether a
// level-up occurred. The invariant 0 <= xp < (level+1)*100 holds on return
// for any gain below the level step.
func ApplyXPGain(u *domain.User, gain int) (leveledUp bool) {
	u.TotalMessages++
	newXP := u.XP + gain
	threshold := domain.LevelThreshold(u.Level)
	if newXP >= threshold {
		u.Level++
		u.XP = newXP - threshold
		return true
	}
	u.XP = newXP
	return false
}

func xpCooldownKey(userID string) string {
	return "cd:" + userID + ":xp"
}
