// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the append-only telemetry stores:
// per-execution command stats and handler error logs, plus the aggregate
// queries that feed the stats command and the status API.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nimbusbot/nimbus/internal/domain"
)

// CommandCount is one row of the top-commands aggregate.
type CommandCount struct {
	Command string `json:"command"`
	Count   int64  `json:"count"`
}

// AppendCommandStat inserts one telemetry record for a completed dispatch.
// Records are never updated or deleted.
func AppendCommandStat(ctx context.Context, db *gorm.DB, command, userID, threadID string, success bool, duration time.Duration) error {
	rec := &domain.CommandStat{
		ID:         uuid.NewString(),
		Command:    command,
		UserID:     userID,
		ThreadID:   threadID,
		Success:    success,
		DurationMS: duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(rec).Error
}

// AppendErrorLog inserts one handler failure record with its invocation
// context.
func AppendErrorLog(ctx context.Context, db *gorm.DB, command, args, userID, threadID, message string) error {
	rec := &domain.ErrorLog{
		ID:        uuid.NewString(),
		Command:   command,
		Args:      args,
		UserID:    userID,
		ThreadID:  threadID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(rec).Error
}

// TopCommands returns up to limit commands ordered by execution count
// descending.
func TopCommands(ctx context.Context, db *gorm.DB, limit int) ([]CommandCount, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []CommandCount
	err := db.WithContext(ctx).
		Model(&domain.CommandStat{}).
		Select("command, count(*) as count").
		Group("command").
		Order("count desc").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// CountCommandStats returns the total number of recorded executions and how
// many of them succeeded.
func CountCommandStats(ctx context.Context, db *gorm.DB) (total, succeeded int64, err error) {
	q := db.WithContext(ctx).Model(&domain.CommandStat{})
	if err = q.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = db.WithContext(ctx).Model(&domain.CommandStat{}).
		Where("success = ?", true).Count(&succeeded).Error
	return total, succeeded, err
}
