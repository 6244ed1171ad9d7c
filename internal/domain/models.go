// Package domain defines the persistence models for users, threads, settings,
// and command telemetry. These types are mapped with GORM and form the core
// data layer of the bot.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// LevelThreshold returns the XP total required to advance past the given
// level. A user at level L levels up when their running XP reaches
// (L+1)*100, carrying the remainder into the new level.
func LevelThreshold(level int) int {
	return (level + 1) * 100
}

// User represents a platform user observed by the bot. Rows are created
// lazily on first interaction and never hard-deleted.
//
// Fields:
//   - PlatformID: opaque platform user id (stable string), unique.
//   - Name: display name cached from the transport; may be stale.
//   - XP: running experience within the current level. The invariant
//     0 <= XP < (Level+1)*100 holds after every XP update.
//   - Level: non-negative, starts at 0, never decreases.
//   - TotalMessages: monotonically incremented per observed message.
//   - Balance: coin balance for the economy commands.
//   - DailyStreak / LastDailyClaim: daily-claim bookkeeping.
//   - LastXPGain: observability only; cooldown gating lives in the cache.
type User struct {
	ID             uint      `json:"-"           gorm:"primaryKey"`
	PlatformID     string    `json:"platform_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	Name           string    `json:"name"        gorm:"type:varchar(255)"`
	XP             int       `json:"xp"          gorm:"not null;default:0"`
	Level          int       `json:"level"       gorm:"not null;default:0"`
	TotalMessages  int64     `json:"total_messages" gorm:"not null;default:0"`
	Balance        int64     `json:"balance"     gorm:"not null;default:0"`
	DailyStreak    int       `json:"daily_streak" gorm:"not null;default:0"`
	LastDailyClaim time.Time `json:"last_daily_claim"`
	LastXPGain     time.Time `json:"last_xp_gain"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Thread represents a chat thread (group or 1:1) the bot has seen. Rows are
// created lazily on first thread-scoped action.
//
// Most per-thread flags (locks, feature toggles) live in the free-form
// Settings blob rather than typed columns; Prefix is typed because it is
// read on every inbound message.
type Thread struct {
	ID         uint           `json:"-"           gorm:"primaryKey"`
	PlatformID string         `json:"platform_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	Name       string         `json:"name"        gorm:"type:varchar(255)"`
	IsGroup    bool           `json:"is_group"    gorm:"not null;default:false"`
	Prefix     *string        `json:"prefix,omitempty" gorm:"type:varchar(16)"` // nil falls back to the global default
	Settings   datatypes.JSON `json:"settings,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Thread.
func (Thread) TableName() string { return "threads" }

// CommandStat is an append-only telemetry record for one command execution.
// Rows are never updated or deleted; they feed aggregate statistics only.
type CommandStat struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	Command    string    `json:"command"     gorm:"type:varchar(64);not null;index"`
	UserID     string    `json:"user_id"     gorm:"type:varchar(64);not null;index"`
	ThreadID   string    `json:"thread_id"   gorm:"type:varchar(64);not null;index"`
	Success    bool      `json:"success"     gorm:"not null"`
	DurationMS int64     `json:"duration_ms" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index"`
}

// TableName returns the database table name for CommandStat.
func (CommandStat) TableName() string { return "command_stats" }

// ErrorLog is an append-only record of a handler failure, captured with the
// full invocation context for later inspection.
type ErrorLog struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Command   string    `json:"command"   gorm:"type:varchar(64);not null;index"`
	Args      string    `json:"args"      gorm:"type:text"`
	UserID    string    `json:"user_id"   gorm:"type:varchar(64)"`
	ThreadID  string    `json:"thread_id" gorm:"type:varchar(64)"`
	Message   string    `json:"message"   gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for ErrorLog.
func (ErrorLog) TableName() string { return "error_logs" }

// Setting is a generic key -> JSON value store used for bans, thread locks,
// maintenance state, and other persisted flags. Absence of a key is a valid,
// meaningful state ("not banned", "not locked"). Updates are last-write-wins.
type Setting struct {
	Key       string         `json:"key"   gorm:"type:varchar(128);primaryKey"`
	Value     datatypes.JSON `json:"value" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Setting.
func (Setting) TableName() string { return "settings" }
