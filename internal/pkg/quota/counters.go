package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/facilohq/facilo/app/models"
)

// GormCounters reads usage from the database. Users and objects are counted
// live on every call; storage reads the maintained snapshot row because
// summing document sizes per request would not scale.
type GormCounters struct {
	db *gorm.DB
}

func NewGormCounters(db *gorm.DB) *GormCounters {
	return &GormCounters{db: db}
}

func (c *GormCounters) Count(ctx context.Context, orgID uint, kind Kind) (int64, error) {
	switch kind {
	case KindUsers:
		var n int64
		err := c.db.WithContext(ctx).Model(&models.OrganizationMember{}).
			Where("organization_id = ? AND revoked_at IS NULL", orgID).
			Count(&n).Error
		return n, err
	case KindObjects:
		var n int64
		err := c.db.WithContext(ctx).Model(&models.FacilityObject{}).
			Where("organization_id = ?", orgID).
			Count(&n).Error
		return n, err
	case KindStorage:
		return c.storageBytes(ctx, orgID)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// storageBytes reads the snapshot row. A missing row means the org has never
// stored anything, which counts as zero usage.
func (c *GormCounters) storageBytes(ctx context.Context, orgID uint) (int64, error) {
	var snap models.UsageSnapshot
	err := c.db.WithContext(ctx).Where("organization_id = ?", orgID).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return snap.TotalUsedBytes, nil
}

// AddStorageBytes adjusts the snapshot by delta bytes. Negative deltas
// release capacity after a delete. The update is atomic in SQL so concurrent
// uploads do not lose increments.
func (c *GormCounters) AddStorageBytes(ctx context.Context, orgID uint, delta int64) error {
	now := time.Now()
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "organization_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_used_bytes":   gorm.Expr("GREATEST(usage_snapshots.total_used_bytes + ?, 0)", delta),
			"last_calculated_at": now,
		}),
	}).Create(&models.UsageSnapshot{
		OrganizationID:   orgID,
		TotalUsedBytes:   maxInt64(delta, 0),
		LastCalculatedAt: now,
	}).Error
}

// RecalculateStorage rebuilds the snapshot from the documents table. Run it
// after bulk deletes or when the incremental counter is suspected to have
// drifted.
func (c *GormCounters) RecalculateStorage(ctx context.Context, orgID uint) (int64, error) {
	var total int64
	err := c.db.WithContext(ctx).Model(&models.Document{}).
		Where("organization_id = ?", orgID).
		Select("COALESCE(SUM(file_size), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}

	now := time.Now()
	err = c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "organization_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_used_bytes":   total,
			"last_calculated_at": now,
		}),
	}).Create(&models.UsageSnapshot{
		OrganizationID:   orgID,
		TotalUsedBytes:   total,
		LastCalculatedAt: now,
	}).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
