package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotRecord is the relational row behind GormSnapshotStore.
type SnapshotRecord struct {
	Key       string    `gorm:"column:snapshot_key;primaryKey;size:191"`
	Payload   string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	UpdatedAt time.Time
}

func (SnapshotRecord) TableName() string {
	return "cart_snapshots"
}

// GormSnapshotStore keeps snapshots in a SQL table. Expired rows are hidden
// from Load and removed by PurgeExpired.
type GormSnapshotStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func NewGormSnapshotStore(db *gorm.DB, ttl time.Duration) *GormSnapshotStore {
	return &GormSnapshotStore{db: db, ttl: ttl, now: time.Now}
}

func (s *GormSnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	var record SnapshotRecord
	err := s.db.WithContext(ctx).
		Where("snapshot_key = ? AND expires_at > ?", key, s.now()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		logger.Error("Failed to load cart snapshot from database", err, map[string]interface{}{
			"key": key,
		})
		return nil, fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}
	return []byte(record.Payload), nil
}

func (s *GormSnapshotStore) Save(ctx context.Context, key string, payload []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	now := s.now()
	record := SnapshotRecord{
		Key:       key,
		Payload:   string(payload),
		ExpiresAt: now.Add(s.ttl),
		UpdatedAt: now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		logger.Error("Failed to save cart snapshot to database", err, map[string]interface{}{
			"key": key,
		})
		return fmt.Errorf("failed to save snapshot %s: %w", key, err)
	}
	return nil
}

func (s *GormSnapshotStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("snapshot_key = ?", key).Delete(&SnapshotRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (s *GormSnapshotStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&SnapshotRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired snapshots: %w", result.Error)
	}
	return result.RowsAffected, nil
}
