// Package server exposes the read-only status HTTP API that runs alongside
// the bot: health, Prometheus metrics, command usage stats, and the level
// leaderboard. Everything the API serves is derived state; the chat
// transport remains the only write path.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/nimbusbot/nimbus/internal/bot"
	"github.com/nimbusbot/nimbus/internal/cache"
	"github.com/nimbusbot/nimbus/internal/config"
	"github.com/nimbusbot/nimbus/internal/http/middleware"
	"github.com/nimbusbot/nimbus/internal/repo"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// Server is the status HTTP server.
type Server struct {
	cfg        config.Config
	db         *gorm.DB
	cache      *cache.Cache
	registry   *bot.Registry
	dispatcher *bot.Dispatcher
	startedAt  time.Time

	httpSrv *http.Server
}

// New constructs a Server. Call Start to begin serving and Shutdown to stop.
func New(cfg config.Config, db *gorm.DB, c *cache.Cache, reg *bot.Registry, disp *bot.Dispatcher, startedAt time.Time) *Server {
	return &Server{
		cfg:        cfg,
		db:         db,
		cache:      c,
		registry:   reg,
		dispatcher: disp,
		startedAt:  startedAt,
	}
}

// Router builds the gin engine with the full middleware chain and routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(s.cfg.GinMode)
	r := gin.New()

	corsCfg := cors.DefaultConfig()
	if len(s.cfg.CORS.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = s.cfg.CORS.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{http.MethodGet, http.MethodOptions}

	limiter := middleware.NewRateLimiter(s.cfg.RateRPS, s.cfg.RateBurst, middleware.KeyByIP())

	r.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.Metrics(),
		limiter.Handler(),
		cors.New(corsCfg),
		gzip.Gzip(gzip.DefaultCompression),
	)

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.GET("/status", s.status)
	api.GET("/commands", s.commands)
	api.GET("/stats/commands", s.commandStats)
	api.GET("/leaderboard", s.leaderboard)

	return r
}

// Start begins serving on the configured port. It blocks until the listener
// closes; http.ErrServerClosed is swallowed as the normal shutdown path.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", s.httpSrv.Addr).Msg("status server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// health reports liveness of the server plus its dependencies. A failing
// database is a 503; a failing cache is reported but not fatal, matching
// the cooldown layer's fail-open stance.
func (s *Server) health(c *gin.Context) {
	ctx := c.Request.Context()

	dbStatus := "ok"
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		dbStatus = "unavailable"
	}

	cacheStatus := "disabled"
	if s.cache.Enabled() {
		cacheStatus = "ok"
		if err := s.cache.Ping(ctx); err != nil {
			cacheStatus = "unavailable"
		}
	}

	code := http.StatusOK
	if dbStatus != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": map[int]string{http.StatusOK: "ok", http.StatusServiceUnavailable: "degraded"}[code],
		"db":     dbStatus,
		"cache":  cacheStatus,
	})
}

// status reports bot-level runtime state.
func (s *Server) status(c *gin.Context) {
	ctx := c.Request.Context()
	users, err := repo.CountUsers(ctx, s.db)
	if err != nil {
		s.fail(c, err)
		return
	}
	threads, err := repo.CountThreads(ctx, s.db)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bot_name":       s.cfg.BotName,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"maintenance":    s.dispatcher.InMaintenance(),
		"commands":       s.registry.Len(),
		"users":          users,
		"threads":        threads,
	})
}

// commandInfo is the public shape of one catalog entry.
type commandInfo struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Usage       string   `json:"usage"`
	AdminOnly   bool     `json:"admin_only,omitempty"`
	OwnerOnly   bool     `json:"owner_only,omitempty"`
}

// commands lists the registered catalog grouped in registration order.
func (s *Server) commands(c *gin.Context) {
	defs := s.registry.All()
	out := make([]commandInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, commandInfo{
			Name:        d.Name,
			Aliases:     d.Aliases,
			Category:    d.Category,
			Description: d.Description,
			Usage:       config.Render(d.Usage, d.Name, s.cfg.Prefix, ""),
			AdminOnly:   d.AdminOnly,
			OwnerOnly:   d.OwnerOnly,
		})
	}
	c.JSON(http.StatusOK, gin.H{"commands": out})
}

// commandStats serves execution totals and the most used commands.
func (s *Server) commandStats(c *gin.Context) {
	ctx := c.Request.Context()
	top, err := repo.TopCommands(ctx, s.db, listLimit(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	total, succeeded, err := repo.CountCommandStats(ctx, s.db)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"succeeded": succeeded,
		"top":       top,
	})
}

// leaderboardEntry is the public shape of one leaderboard row.
type leaderboardEntry struct {
	PlatformID string `json:"platform_id"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	XP         int    `json:"xp"`
}

// leaderboard serves the highest-level users.
func (s *Server) leaderboard(c *gin.Context) {
	users, err := repo.Leaderboard(c.Request.Context(), s.db, listLimit(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]leaderboardEntry, 0, len(users))
	for _, u := range users {
		out = append(out, leaderboardEntry{
			PlatformID: u.PlatformID,
			Name:       u.Name,
			Level:      u.Level,
			XP:         u.XP,
		})
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": out})
}

// fail logs the error with the request-scoped logger and answers 500.
func (s *Server) fail(c *gin.Context, err error) {
	middleware.LoggerFrom(c).Error().Err(err).Msg("status api query failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}

// listLimit parses the ?limit query parameter with clamping.
func listLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
