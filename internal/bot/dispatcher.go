// Package bot – the dispatch state machine.
//
// One inbound message runs the pipeline: normalize → prefix match → ban
// check → thread lock → maintenance gate → registry lookup → permission →
// cooldown → handler → telemetry. Every rejected path produces exactly one
// reply to the originating thread; telemetry is recorded only when a
// handler actually ran, succeed or fail.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/nimbusbot/nimbus/internal/cache"
	"github.com/nimbusbot/nimbus/internal/chat"
	"github.com/nimbusbot/nimbus/internal/config"
	"github.com/nimbusbot/nimbus/internal/llm"
	"github.com/nimbusbot/nimbus/internal/music"
	"github.com/nimbusbot/nimbus/internal/repo"
)

// Cooldowner is the check-and-mark contract the dispatcher needs from the
// cache. Extracted so tests can script cooldown outcomes.
type Cooldowner interface {
	CheckAndMark(ctx context.Context, key string, window time.Duration) (onCooldown bool, remaining time.Duration)
}

// Setting keys used by the dispatch pipeline.
const (
	settingMaintenance = "maintenance"
	banKeyPrefix       = "ban:"
	lockKey            = "locked"

	// ThreadXPOffKey is the thread setting that suspends XP gain there.
	ThreadXPOffKey = "xp_off"
)

// BanKey returns the settings key holding a user's ban flag.
func BanKey(userID string) string { return banKeyPrefix + userID }

// Dispatcher owns the command pipeline for inbound messages.
type Dispatcher struct {
	Config   config.Config
	DB       *gorm.DB
	Cache    *cache.Cache
	Cooldown Cooldowner
	Registry *Registry
	Auth     Authorizer
	Client   chat.Client
	Sender   *chat.Sender
	LLM      *llm.Client
	Music    *music.Client

	// StartedAt is the process start time, threaded into handler contexts.
	StartedAt time.Time

	// Maintenance episode state. notified tracks which threads have seen
	// the maintenance notice in the current episode.
	maintMu  sync.Mutex
	maintOn  bool
	notified map[string]struct{}
}

// LoadMaintenance restores the persisted maintenance flag at startup so a
// restart does not silently end an episode.
func (d *Dispatcher) LoadMaintenance(ctx context.Context) {
	var on bool
	if err := repo.GetSetting(ctx, d.DB, settingMaintenance, &on); err == nil && on {
		d.maintMu.Lock()
		d.maintOn = true
		d.notified = make(map[string]struct{})
		d.maintMu.Unlock()
	}
}

// SetMaintenance toggles global maintenance mode. Enabling starts a fresh
// episode: the per-thread notification set is cleared so each thread gets
// one notice again. The flag is persisted best-effort.
func (d *Dispatcher) SetMaintenance(ctx context.Context, on bool) {
	d.maintMu.Lock()
	d.maintOn = on
	if on {
		d.notified = make(map[string]struct{})
	}
	d.maintMu.Unlock()
	if err := repo.PutSetting(ctx, d.DB, settingMaintenance, on); err != nil {
		log.Warn().Err(err).Msg("persisting maintenance flag failed")
	}
}

// InMaintenance reports whether global maintenance mode is active.
func (d *Dispatcher) InMaintenance() bool {
	d.maintMu.Lock()
	defer d.maintMu.Unlock()
	return d.maintOn
}

// shouldNotifyMaintenance marks the thread as notified for the current
// episode and reports whether this call was the first for it.
func (d *Dispatcher) shouldNotifyMaintenance(threadID string) bool {
	d.maintMu.Lock()
	defer d.maintMu.Unlock()
	if d.notified == nil {
		d.notified = make(map[string]struct{})
	}
	if _, seen := d.notified[threadID]; seen {
		return false
	}
	d.notified[threadID] = struct{}{}
	return true
}

// Dispatch runs the full pipeline for one inbound message event.
func (d *Dispatcher) Dispatch(ctx context.Context, ev chat.Event) {
	// The transport returns numeric ids inconsistently; normalize before
	// anything keys off them.
	ev.Normalize()

	body := strings.TrimSpace(ev.Body)
	if body == "" {
		return
	}

	prefix := d.effectivePrefix(ctx, ev)
	if !strings.HasPrefix(body, prefix) {
		return
	}

	fields := strings.Fields(body[len(prefix):])
	if len(fields) == 0 {
		return
	}
	token := strings.ToLower(fields[0])
	args := fields[1:]
	msgs := d.Config.Messages

	// Ban check runs before anything else; a banned user gets the denial
	// and nothing more, including telemetry.
	if banned, _ := repo.HasSetting(ctx, d.DB, BanKey(ev.SenderID)); banned {
		rejectionsTotal.WithLabelValues("banned").Inc()
		d.Sender.Send(ctx, msgs.Banned, ev.ThreadID)
		return
	}

	// Locked threads only accept commands from the owner.
	if d.threadLocked(ctx, ev.ThreadID) && ev.SenderID != d.Config.OwnerID {
		rejectionsTotal.WithLabelValues("locked").Inc()
		d.Sender.Send(ctx, "This thread is locked.", ev.ThreadID)
		return
	}

	if d.InMaintenance() && ev.SenderID != d.Config.OwnerID {
		if d.shouldNotifyMaintenance(ev.ThreadID) {
			d.Sender.Send(ctx, config.Render(msgs.Maintenance, token, prefix, ""), ev.ThreadID)
		}
		rejectionsTotal.WithLabelValues("maintenance").Inc()
		return
	}

	def, ok := d.Registry.Resolve(token)
	if !ok {
		rejectionsTotal.WithLabelValues("unknown").Inc()
		d.Sender.Send(ctx, config.Render(msgs.UnknownCommand, token, prefix, ""), ev.ThreadID)
		return
	}

	if !d.Auth.Authorize(ctx, def, ev.SenderID, ev.ThreadID) {
		rejectionsTotal.WithLabelValues("permission").Inc()
		d.Sender.Send(ctx, config.Render(msgs.NoPermission, def.Name, prefix, ""), ev.ThreadID)
		return
	}

	window := def.Cooldown
	if window == 0 {
		window = d.Config.DefaultCooldown
	}
	if onCD, remaining := d.Cooldown.CheckAndMark(ctx, CooldownKey(ev.SenderID, def.Name), window); onCD {
		rejectionsTotal.WithLabelValues("cooldown").Inc()
		secs := strconv.Itoa(cache.RemainingSeconds(remaining))
		d.Sender.Send(ctx, config.Render(msgs.Cooldown, def.Name, prefix, secs), ev.ThreadID)
		return
	}

	c := &Context{
		Event:      ev,
		Args:       args,
		Prefix:     prefix,
		Config:     d.Config,
		Registry:   d.Registry,
		Dispatcher: d,
		DB:         d.DB,
		Cache:      d.Cache,
		Client:     d.Client,
		Sender:     d.Sender,
		LLM:        d.LLM,
		Music:      d.Music,
		StartedAt:  d.StartedAt,
	}

	start := time.Now()
	err := d.runHandler(ctx, def, c)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		log.Error().
			Err(err).
			Str("command", def.Name).
			Strs("args", args).
			Str("user_id", ev.SenderID).
			Str("thread_id", ev.ThreadID).
			Msg("command failed")
		d.Sender.Send(ctx, config.Render(msgs.GenericError, def.Name, prefix, ""), ev.ThreadID)
		if dbErr := repo.AppendErrorLog(ctx, d.DB, def.Name, strings.Join(args, " "), ev.SenderID, ev.ThreadID, err.Error()); dbErr != nil {
			log.Warn().Err(dbErr).Msg("error log write failed")
		}
	} else {
		log.Info().
			Str("command", def.Name).
			Str("user_id", ev.SenderID).
			Str("thread_id", ev.ThreadID).
			Dur("elapsed", elapsed).
			Msg("command executed")
	}

	commandsTotal.WithLabelValues(def.Name, status).Inc()
	commandDuration.WithLabelValues(def.Name).Observe(elapsed.Seconds())

	// Telemetry is the terminal action for the dispatch cycle, written on
	// success and failure alike.
	if dbErr := repo.AppendCommandStat(ctx, d.DB, def.Name, ev.SenderID, ev.ThreadID, err == nil, elapsed); dbErr != nil {
		log.Warn().Err(dbErr).Msg("command stat write failed")
	}
}

// runHandler invokes the command handler under a deadline with panic
// recovery. A hung handler would otherwise stall the whole event loop.
func (d *Dispatcher) runHandler(ctx context.Context, def *Definition, c *Context) (err error) {
	hctx, cancel := context.WithTimeout(ctx, d.Config.HandlerTimeout)
	defer cancel()

	tracer := otel.Tracer("nimbusbot/bot")
	hctx, span := tracer.Start(hctx, "command."+def.Name)
	span.SetAttributes(
		attribute.String("command", def.Name),
		attribute.String("thread_id", c.Event.ThreadID),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	return def.Run(hctx, c)
}

// effectivePrefix resolves the per-thread prefix override, falling back to
// the global default when the thread has none or the database is
// unavailable.
func (d *Dispatcher) effectivePrefix(ctx context.Context, ev chat.Event) string {
	th, err := repo.GetOrCreateThread(ctx, d.DB, ev.ThreadID, ev.ThreadName, ev.IsGroup)
	if err != nil {
		log.Warn().Err(err).Str("thread_id", ev.ThreadID).Msg("thread lookup failed; using default prefix")
		return d.Config.Prefix
	}
	if th.Prefix != nil && *th.Prefix != "" {
		return *th.Prefix
	}
	return d.Config.Prefix
}

// threadLocked reports whether the thread has the locked flag set. Lookup
// failures read as unlocked so a broken database does not mute the bot.
func (d *Dispatcher) threadLocked(ctx context.Context, threadID string) bool {
	var locked bool
	if err := repo.ThreadSetting(ctx, d.DB, threadID, lockKey, &locked); err != nil {
		return false
	}
	return locked
}

// CooldownKey is the cache key gating one user's use of one command.
func CooldownKey(userID, command string) string {
	return "cd:" + userID + ":" + command
}
