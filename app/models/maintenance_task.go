package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	TaskStatusOpen       = "open"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
	TaskStatusCanceled   = "canceled"
)

const (
	TaskPriorityLow    = "low"
	TaskPriorityNormal = "normal"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"
)

// MaintenanceTask is a unit of maintenance work on a facility object,
// optionally scoped to a sector or a single article.
type MaintenanceTask struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	OrganizationID   uint           `gorm:"not null;index" json:"organization_id"`
	FacilityObjectID uint           `gorm:"not null;index" json:"facility_object_id"`
	SectorID         *uint          `gorm:"default:null;index" json:"sector_id,omitempty"`
	ArticleID        *uint          `gorm:"default:null;index" json:"article_id,omitempty"`
	AssigneeID       *uint          `gorm:"default:null;index" json:"assignee_id,omitempty"`
	Title            string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=2,max=200"`
	Description      string         `gorm:"type:text" json:"description" validate:"max=10000"`
	Status           string         `gorm:"type:varchar(20);not null;default:'open';index" json:"status" validate:"oneof=open in_progress done canceled"`
	Priority         string         `gorm:"type:varchar(20);not null;default:'normal'" json:"priority" validate:"oneof=low normal high urgent"`
	DueAt            *time.Time     `gorm:"type:timestamp;default:null" json:"due_at,omitempty"`
	CompletedAt      *time.Time     `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *MaintenanceTask) Validate() error {
	v := validator.New()

	return v.Struct(t)
}
