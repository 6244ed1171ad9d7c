// Command nimbus runs the chat bot: it connects to the gateway bridge,
// processes inbound events through the XP engine and command dispatcher, and
// serves the read-only status API alongside.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nimbusbot/nimbus/internal/bot"
	"github.com/nimbusbot/nimbus/internal/cache"
	"github.com/nimbusbot/nimbus/internal/chat"
	"github.com/nimbusbot/nimbus/internal/commands"
	"github.com/nimbusbot/nimbus/internal/config"
	"github.com/nimbusbot/nimbus/internal/llm"
	"github.com/nimbusbot/nimbus/internal/music"
	"github.com/nimbusbot/nimbus/internal/observability"
	"github.com/nimbusbot/nimbus/internal/repo"
	"github.com/nimbusbot/nimbus/internal/server"
	"github.com/nimbusbot/nimbus/internal/sysutil"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// listenRetryDelay paces gateway reconnects after a dropped event stream.
const listenRetryDelay = 5 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	sysutil.SetLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", version).Str("bot", cfg.BotName).Msg("starting")

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	cacheClient, err := cache.New(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis url invalid")
	}
	if cacheClient.Enabled() {
		if err := cacheClient.Ping(ctx); err != nil {
			// Cooldowns fail open, so a dead cache is degraded, not fatal.
			log.Warn().Err(err).Msg("redis unreachable; cooldowns disabled")
		}
	}

	gw := chat.NewGateway(cfg.GatewayURL, cfg.GatewayToken)
	if err := gw.Login(ctx); err != nil {
		log.Fatal().Err(err).Msg("gateway login failed")
	}
	log.Info().Str("user_id", gw.CurrentUserID()).Msg("gateway session established")

	llmClient, err := llm.New(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("llm client setup failed")
	}

	startedAt := time.Now()
	sender := chat.NewSender(gw)
	registry := bot.NewRegistry()

	dispatcher := &bot.Dispatcher{
		Config:    cfg,
		DB:        db,
		Cache:     cacheClient,
		Cooldown:  cacheClient,
		Registry:  registry,
		Auth:      &bot.PermissionResolver{OwnerID: cfg.OwnerID, Client: gw},
		Client:    gw,
		Sender:    sender,
		LLM:       llmClient,
		Music:     music.New(""),
		StartedAt: startedAt,
	}
	dispatcher.LoadMaintenance(ctx)

	for _, def := range commands.All(commands.Deps{Shutdown: stop}) {
		registry.Register(def)
	}
	log.Info().Int("commands", registry.Len()).Msg("command registry built")

	b := &bot.Bot{
		Dispatcher: dispatcher,
		XP:         bot.NewXPEngine(cfg, db, cacheClient, sender),
	}

	srv := server.New(cfg, db, cacheClient, registry, dispatcher, startedAt)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("status server failed")
			stop()
		}
	}()

	go func() {
		for {
			err := gw.Listen(ctx, func(ev chat.Event) {
				b.HandleEvent(ctx, ev)
			})
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Dur("retry_in", listenRetryDelay).Msg("event stream dropped; reconnecting")
			select {
			case <-ctx.Done():
				return
			case <-time.After(listenRetryDelay):
			}
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("status server shutdown failed")
	}
	if err := cacheClient.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Warn().Err(err).Msg("database close failed")
		}
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown failed")
	}
	log.Info().Msg("bye")
}
