// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated. The bot layer decides whether a
//     failure degrades the feature or aborts the operation.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/nimbusbot/nimbus/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the bot layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetOrCreateUser fetches the user with the given platform id, creating a
// fresh row when none exists. New rows start at level 0 with the provided
// starting balance. The cached display name is refreshed when a non-empty
// name is supplied and differs from the stored one.
func GetOrCreateUser(ctx context.Context, db *gorm.DB, platformID, name string, startingBalance int64) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where("platform_id = ?", platformID).First(&u).Error
	switch {
	case err == nil:
		if name != "" && name != u.Name {
			u.Name = name
			// Best effort; the stale name is still usable on failure.
			db.WithContext(ctx).Model(&u).Update("name", name)
		}
		return &u, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		u = domain.User{
			PlatformID: platformID,
			Name:       name,
			Balance:    startingBalance,
			CreatedAt:  time.Now().UTC(),
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			return nil, err
		}
		return &u, nil
	default:
		return nil, err
	}
}

// GetUser fetches a user by platform id, returning ErrNotFound when missing.
func GetUser(ctx context.Context, db *gorm.DB, platformID string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("platform_id = ?", platformID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveUser persists all mutable fields of an existing user row.
func SaveUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return db.WithContext(ctx).Save(u).Error
}

// UpdateUserXP writes the XP, level, message counter, and last-gain
// timestamp of a user in a single UPDATE.
func UpdateUserXP(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("platform_id = ?", u.PlatformID).
		Updates(map[string]any{
			"xp":             u.XP,
			"level":          u.Level,
			"total_messages": u.TotalMessages,
			"last_xp_gain":   u.LastXPGain,
		}).Error
}

// AddBalance atomically adjusts a user's balance by delta (which may be
// negative). It returns ErrNotFound when the user row does not exist and
// ErrInsufficientFunds when the adjustment would drive the balance below
// zero.
func AddBalance(ctx context.Context, db *gorm.DB, platformID string, delta int64) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("platform_id = ? AND balance + ? >= 0", platformID, delta).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := db.WithContext(ctx).Model(&domain.User{}).
			Where("platform_id = ?", platformID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrInsufficientFunds
	}
	return nil
}

// ErrInsufficientFunds is returned when a balance adjustment would make the
// balance negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Leaderboard returns up to limit users ordered by level descending and XP
// descending, for the rank and top commands.
func Leaderboard(ctx context.Context, db *gorm.DB, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []domain.User
	err := db.WithContext(ctx).
		Order("level desc, xp desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// TopBalances returns up to limit users ordered by coin balance descending.
func TopBalances(ctx context.Context, db *gorm.DB, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []domain.User
	err := db.WithContext(ctx).
		Order("balance desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountUsers returns the total number of known users.
func CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error
	return total, err
}
