package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Organization is the tenant unit. Every facility object, member, document
// and subscription belongs to exactly one organization.
type Organization struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=2,max=200"`
	Slug      string         `gorm:"type:varchar(200);uniqueIndex" json:"slug" validate:"required,min=2,max=200"`
	OwnerID   uint           `gorm:"not null;index" json:"owner_id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (o *Organization) Validate() error {
	v := validator.New()

	return v.Struct(o)
}

const (
	MemberRoleOwner  = "owner"
	MemberRoleAdmin  = "admin"
	MemberRoleMember = "member"
)

// OrganizationMember links a user to an organization. A member with a
// non-null RevokedAt no longer counts against the user quota.
type OrganizationMember struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	OrganizationID uint       `gorm:"not null;index:ux_org_members_org_user,unique,priority:1" json:"organization_id"`
	UserID         uint       `gorm:"not null;index:ux_org_members_org_user,unique,priority:2" json:"user_id"`
	Role           string     `gorm:"type:varchar(20);not null;default:'member'" json:"role" validate:"oneof=owner admin member"`
	RevokedAt      *time.Time `gorm:"type:timestamp;default:null;index" json:"revoked_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the membership still counts against quotas.
func (m *OrganizationMember) IsActive() bool {
	return m != nil && m.RevokedAt == nil
}

// FindActiveMembership returns the non-revoked membership of a user in an
// organization, or gorm.ErrRecordNotFound.
func FindActiveMembership(db *gorm.DB, orgID, userID uint) (*OrganizationMember, error) {
	var member OrganizationMember
	err := db.Where("organization_id = ? AND user_id = ? AND revoked_at IS NULL", orgID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindFirstActiveMembership returns the oldest non-revoked membership of a
// user across all organizations.
func FindFirstActiveMembership(db *gorm.DB, userID uint) (*OrganizationMember, error) {
	var member OrganizationMember
	err := db.Where("user_id = ? AND revoked_at IS NULL", userID).
		Order("created_at ASC").
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}
