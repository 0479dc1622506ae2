package models

import "time"

// UsageSnapshot caches the total stored bytes per organization. User and
// object counts are intentionally not snapshotted; they are counted live
// because they change rarely and must never drift. Storage is incrementally
// maintained and periodically reconciled against the document table.
type UsageSnapshot struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	OrganizationID   uint      `gorm:"uniqueIndex;not null" json:"organization_id"`
	TotalUsedBytes   int64     `gorm:"not null;default:0" json:"total_used_bytes"`
	LastCalculatedAt time.Time `gorm:"type:timestamp;not null" json:"last_calculated_at"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
