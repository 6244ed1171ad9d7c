// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes bot identity,
// transport credentials, database and cache connection strings, cooldown and
// leveling parameters, and the user-facing message templates.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Templates holds the user-facing reply templates for rejected dispatch
// paths and notifications. Dispatch templates may contain {command},
// {prefix} and {time} placeholders; the level-up template uses {user} and
// {level}. Placeholders are substituted with plain string replacement.
type Templates struct {
	UnknownCommand string // sent when the command token resolves to nothing
	NoPermission   string // sent on a permission denial
	Cooldown       string // sent while a command is still on cooldown
	GenericError   string // sent when a handler fails
	Banned         string // sent to banned users
	Maintenance    string // sent once per thread per maintenance episode
	LevelUp        string // sent on XP level rollover
	Welcome        string // sent when a participant joins a group thread
}

// Render substitutes the {command}, {prefix} and {time} placeholders in tpl.
func Render(tpl, command, prefix, timeVal string) string {
	r := strings.NewReplacer(
		"{command}", command,
		"{prefix}", prefix,
		"{time}", timeVal,
	)
	return r.Replace(tpl)
}

// RenderUser substitutes the {user} and {level} placeholders used by the
// level-up and welcome templates.
func RenderUser(tpl, user, level string) string {
	r := strings.NewReplacer(
		"{user}", user,
		"{level}", level,
	)
	return r.Replace(tpl)
}

// XPConfig defines the leveling feature parameters.
type XPConfig struct {
	Enabled  bool          // XP_ENABLED
	MinGain  int           // XP_MIN_GAIN, lower bound of a single award
	MaxGain  int           // XP_MAX_GAIN, upper bound of a single award
	Cooldown time.Duration // XP_COOLDOWN between awards per user
}

// EconomyConfig defines the daily-claim reward parameters.
type EconomyConfig struct {
	DailyReward      int64         // DAILY_REWARD base coins per claim
	DailyStreakBonus int64         // DAILY_STREAK_BONUS extra coins per streak day
	DailyWindow      time.Duration // DAILY_WINDOW between claims
	StartingBalance  int64         // STARTING_BALANCE for new users
}

// CORSConfig defines Cross-Origin Resource Sharing settings for the status
// server.
type CORSConfig struct {
	AllowedOrigins []string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "nimbus")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Bot identity
	BotName string // display name used in replies
	OwnerID string // platform user id of the bot owner (required)
	Prefix  string // global default command prefix

	// Transport
	GatewayURL   string // base URL of the chat gateway bridge (required)
	GatewayToken string // bearer token for the gateway

	// Storage
	DatabaseURL string // postgres:// URL or a SQLite file path
	RedisURL    string // optional; empty disables the cache entirely

	// External APIs
	GeminiAPIKey string // optional; empty disables the ask command

	// Dispatch
	DefaultCooldown time.Duration // applied when a command declares none
	HandlerTimeout  time.Duration // hard deadline for a single handler

	// Features
	XP      XPConfig
	Economy EconomyConfig

	// Templates
	Messages Templates

	// Status server
	Port      string
	GinMode   string // debug|release|test
	RateRPS   float64
	RateBurst int
	CORS      CORSConfig
	OTEL      OTELConfig

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Bot identity
		BotName: getenv("BOT_NAME", "Nimbus"),
		OwnerID: strings.TrimSpace(getenv("OWNER_ID", "")),
		Prefix:  getenv("PREFIX", "N!"),

		// Transport
		GatewayURL:   strings.TrimSpace(getenv("GATEWAY_URL", "")),
		GatewayToken: getenv("GATEWAY_TOKEN", ""),

		// Storage
		DatabaseURL: getenv("DATABASE_URL", "nimbus.db"),
		RedisURL:    getenv("REDIS_URL", ""),

		// External APIs
		GeminiAPIKey: getenv("GEMINI_API_KEY", ""),

		// Dispatch
		DefaultCooldown: getdur("DEFAULT_COOLDOWN", 3*time.Second),
		HandlerTimeout:  getdur("HANDLER_TIMEOUT", 30*time.Second),

		// Features
		XP: XPConfig{
			Enabled:  getbool("XP_ENABLED", true),
			MinGain:  getint("XP_MIN_GAIN", 10),
			MaxGain:  getint("XP_MAX_GAIN", 25),
			Cooldown: getdur("XP_COOLDOWN", time.Minute),
		},
		Economy: EconomyConfig{
			DailyReward:      getint64("DAILY_REWARD", 500),
			DailyStreakBonus: getint64("DAILY_STREAK_BONUS", 50),
			DailyWindow:      getdur("DAILY_WINDOW", 24*time.Hour),
			StartingBalance:  getint64("STARTING_BALANCE", 1000),
		},

		// Templates
		Messages: Templates{
			UnknownCommand: getenv("MSG_UNKNOWN_COMMAND", `Unknown command "{command}". Type {prefix}help to see what I can do.`),
			NoPermission:   getenv("MSG_NO_PERMISSION", "You don't have permission to use {command}."),
			Cooldown:       getenv("MSG_COOLDOWN", "Slow down! You can use {command} again in {time}s."),
			GenericError:   getenv("MSG_GENERIC_ERROR", "Something went wrong running {command}. Please try again later."),
			Banned:         getenv("MSG_BANNED", "You are banned from using this bot."),
			Maintenance:    getenv("MSG_MAINTENANCE", "I'm under maintenance right now. Back soon!"),
			LevelUp:        getenv("MSG_LEVEL_UP", "🎉 {user} just reached level {level}!"),
			Welcome:        getenv("MSG_WELCOME", "Welcome to the group, {user}!"),
		},

		// Status server
		Port:      getenv("PORT", "8080"),
		GinMode:   strings.ToLower(getenv("GIN_MODE", "release")),
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "nimbus"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if cfg.OwnerID == "" {
		return cfg, errors.New("OWNER_ID must not be empty")
	}
	if cfg.GatewayURL == "" {
		return cfg, errors.New("GATEWAY_URL must not be empty")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return cfg, errors.New("DATABASE_URL must not be empty")
	}
	if strings.TrimSpace(cfg.Prefix) == "" {
		return cfg, errors.New("PREFIX must not be empty")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.DefaultCooldown < 0 {
		return cfg, errors.New("DEFAULT_COOLDOWN must be >= 0")
	}
	if cfg.HandlerTimeout <= 0 {
		return cfg, errors.New("HANDLER_TIMEOUT must be > 0")
	}
	if cfg.XP.MinGain <= 0 || cfg.XP.MaxGain < cfg.XP.MinGain || cfg.XP.MaxGain >= 100 {
		return cfg, errors.New("XP gain bounds must satisfy 0 < XP_MIN_GAIN <= XP_MAX_GAIN < 100")
	}
	if cfg.XP.Cooldown < 0 {
		return cfg, errors.New("XP_COOLDOWN must be >= 0")
	}
	if cfg.Economy.DailyReward < 0 || cfg.Economy.DailyStreakBonus < 0 {
		return cfg, errors.New("daily reward values must be >= 0")
	}
	if cfg.Economy.DailyWindow <= 0 {
		return cfg, errors.New("DAILY_WINDOW must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
