// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Thread
// model, including the free-form per-thread settings blob.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nimbusbot/nimbus/internal/domain"
)

// GetOrCreateThread fetches the thread with the given platform id, creating
// a fresh row when none exists. The cached name and group flag are refreshed
// when they change.
func GetOrCreateThread(ctx context.Context, db *gorm.DB, platformID, name string, isGroup bool) (*domain.Thread, error) {
	var th domain.Thread
	err := db.WithContext(ctx).Where("platform_id = ?", platformID).First(&th).Error
	switch {
	case err == nil:
		if (name != "" && name != th.Name) || isGroup != th.IsGroup {
			th.Name = name
			th.IsGroup = isGroup
			db.WithContext(ctx).Model(&th).Updates(map[string]any{"name": name, "is_group": isGroup})
		}
		return &th, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		th = domain.Thread{
			PlatformID: platformID,
			Name:       name,
			IsGroup:    isGroup,
			CreatedAt:  time.Now().UTC(),
		}
		if err := db.WithContext(ctx).Create(&th).Error; err != nil {
			return nil, err
		}
		return &th, nil
	default:
		return nil, err
	}
}

// GetThread fetches a thread by platform id, returning ErrNotFound when
// missing.
func GetThread(ctx context.Context, db *gorm.DB, platformID string) (*domain.Thread, error) {
	var th domain.Thread
	if err := db.WithContext(ctx).Where("platform_id = ?", platformID).First(&th).Error; err != nil {
		return nil, err
	}
	return &th, nil
}

// UpdateThreadPrefix sets (or, with nil, clears) the per-thread prefix
// override. Returns ErrNotFound when the thread row does not exist.
func UpdateThreadPrefix(ctx context.Context, db *gorm.DB, platformID string, prefix *string) error {
	res := db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("platform_id = ?", platformID).
		Update("prefix", prefix)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ThreadSetting reads a single key from the thread's settings blob into out.
// It returns ErrNotFound when either the thread or the key is absent.
func ThreadSetting(ctx context.Context, db *gorm.DB, platformID, key string, out any) error {
	th, err := GetThread(ctx, db, platformID)
	if err != nil {
		return err
	}
	if len(th.Settings) == 0 {
		return ErrNotFound
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(th.Settings, &m); err != nil {
		return err
	}
	raw, ok := m[key]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, out)
}

// PutThreadSetting writes a single key into the thread's settings blob,
// preserving unrelated keys. The value must be JSON-marshalable.
func PutThreadSetting(ctx context.Context, db *gorm.DB, platformID, key string, value any) error {
	th, err := GetThread(ctx, db, platformID)
	if err != nil {
		return err
	}
	m := map[string]json.RawMessage{}
	if len(th.Settings) > 0 {
		if err := json.Unmarshal(th.Settings, &m); err != nil {
			// A corrupt blob is replaced rather than wedging the thread.
			m = map[string]json.RawMessage{}
		}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m[key] = raw
	blob, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("platform_id = ?", platformID).
		Update("settings", datatypes.JSON(blob)).Error
}

// CountThreads returns the total number of known threads.
func CountThreads(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Thread{}).Count(&total).Error
	return total, err
}
