package models

import (
	"time"

	"gorm.io/gorm"
)

// Document is a file attached to a maintenance task or facility object,
// stored in S3-compatible object storage. FileSize feeds the per-organization
// storage usage snapshot.
type Document struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UUID             string         `gorm:"type:char(36);uniqueIndex;not null" json:"uuid"`
	OrganizationID   uint           `gorm:"not null;index" json:"organization_id"`
	UploaderID       uint           `gorm:"not null;index" json:"uploader_id"`
	FacilityObjectID *uint          `gorm:"default:null;index" json:"facility_object_id,omitempty"`
	TaskID           *uint          `gorm:"default:null;index" json:"task_id,omitempty"`
	FileName         string         `gorm:"type:varchar(255);not null" json:"file_name"`
	ContentType      string         `gorm:"type:varchar(100);not null;default:''" json:"content_type"`
	FileSize         int64          `gorm:"not null;default:0" json:"file_size"`
	ObjectKey        string         `gorm:"type:varchar(255);not null" json:"-"`
	ThumbnailKey     string         `gorm:"type:varchar(255);default:''" json:"-"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsImage reports whether the document can get a thumbnail variant.
func (d *Document) IsImage() bool {
	switch d.ContentType {
	case "image/jpeg", "image/png", "image/gif":
		return true
	default:
		return false
	}
}
