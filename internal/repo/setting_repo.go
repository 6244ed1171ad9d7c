// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the generic key -> JSON value settings
// store used for bans, maintenance state, thread locks, and other persisted
// flags.
//
// Semantics:
//   - Keys are unique; PutSetting is an upsert with last-write-wins.
//   - Absence of a key is a valid, meaningful state. GetSetting returns
//     ErrNotFound rather than an empty value so callers can distinguish
//     "unset" from a stored zero value.
package repo

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nimbusbot/nimbus/internal/domain"
)

// GetSetting reads the JSON value stored under key into out. It returns
// ErrNotFound when the key is absent.
func GetSetting(ctx context.Context, db *gorm.DB, key string, out any) error {
	var s domain.Setting
	if err := db.WithContext(ctx).Where("key = ?", key).First(&s).Error; err != nil {
		return err
	}
	return json.Unmarshal(s.Value, out)
}

// PutSetting stores value (JSON-marshaled) under key, overwriting any
// previous value.
func PutSetting(ctx context.Context, db *gorm.DB, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s := domain.Setting{
		Key:       key,
		Value:     datatypes.JSON(raw),
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&s).Error
}

// DeleteSetting removes the value stored under key. Deleting an absent key
// is not an error.
func DeleteSetting(ctx context.Context, db *gorm.DB, key string) error {
	return db.WithContext(ctx).Where("key = ?", key).Delete(&domain.Setting{}).Error
}

// HasSetting reports whether key currently holds a value.
func HasSetting(ctx context.Context, db *gorm.DB, key string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Setting{}).Where("key = ?", key).Count(&n).Error
	return n > 0, err
}
