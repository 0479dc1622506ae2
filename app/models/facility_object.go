package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ObjectTypeBuilding  = "building"
	ObjectTypeSite      = "site"
	ObjectTypeApartment = "apartment"
	ObjectTypeOther     = "other"
)

// FacilityObject is a managed real-estate/facility unit. Creation is gated
// by the organization's object quota.
type FacilityObject struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OrganizationID uint           `gorm:"not null;index" json:"organization_id"`
	Name           string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=2,max=200"`
	ObjectType     string         `gorm:"type:varchar(50);not null;default:'building'" json:"object_type" validate:"oneof=building site apartment other"`
	Address        string         `gorm:"type:varchar(255);default:''" json:"address" validate:"max=255"`
	Notes          string         `gorm:"type:text" json:"notes" validate:"max=5000"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (o *FacilityObject) Validate() error {
	v := validator.New()

	return v.Struct(o)
}

// Sector subdivides a facility object (floors, wings, outdoor areas).
type Sector struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	OrganizationID   uint           `gorm:"not null;index" json:"organization_id"`
	FacilityObjectID uint           `gorm:"not null;index" json:"facility_object_id"`
	Name             string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=1,max=200"`
	Description      string         `gorm:"type:text" json:"description" validate:"max=2000"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Sector) Validate() error {
	v := validator.New()

	return v.Struct(s)
}

// Article is an inventory item tracked within a sector (equipment, fittings).
type Article struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OrganizationID uint           `gorm:"not null;index" json:"organization_id"`
	SectorID       uint           `gorm:"not null;index" json:"sector_id"`
	Name           string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=1,max=200"`
	SerialNumber   string         `gorm:"type:varchar(100);default:''" json:"serial_number" validate:"max=100"`
	Quantity       int            `gorm:"not null;default:1" json:"quantity" validate:"min=0"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (a *Article) Validate() error {
	v := validator.New()

	return v.Struct(a)
}
