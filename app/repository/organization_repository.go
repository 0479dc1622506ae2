package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/facilohq/facilo/app/models"
)

// organizationRepository implements the OrganizationRepository interface
type organizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new organization repository instance
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(org *models.Organization) error {
	return r.db.Create(org).Error
}

func (r *organizationRepository) GetByID(id uint) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) GetBySlug(slug string) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.Where("slug = ?", slug).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) Update(org *models.Organization) error {
	return r.db.Save(org).Error
}

func (r *organizationRepository) Delete(id uint) error {
	return r.db.Delete(&models.Organization{}, id).Error
}

// ListByUser returns the organizations where the user holds a non-revoked
// membership.
func (r *organizationRepository) ListByUser(userID uint) ([]models.Organization, error) {
	var orgs []models.Organization
	err := r.db.
		Joins("JOIN organization_members ON organization_members.organization_id = organizations.id").
		Where("organization_members.user_id = ? AND organization_members.revoked_at IS NULL", userID).
		Order("organizations.created_at ASC").
		Find(&orgs).Error
	return orgs, err
}

func (r *organizationRepository) AddMember(member *models.OrganizationMember) error {
	return r.db.Create(member).Error
}

func (r *organizationRepository) GetMember(orgID, userID uint) (*models.OrganizationMember, error) {
	var member models.OrganizationMember
	err := r.db.Where("organization_id = ? AND user_id = ?", orgID, userID).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// RevokeMember marks a membership revoked. The row is kept so the user's
// history is preserved; revoked members no longer count against quotas.
func (r *organizationRepository) RevokeMember(orgID, userID uint) error {
	now := time.Now()
	result := r.db.Model(&models.OrganizationMember{}).
		Where("organization_id = ? AND user_id = ? AND revoked_at IS NULL", orgID, userID).
		Update("revoked_at", &now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RestoreMember clears the revocation flag. Callers must pass a quota check
// first since the member starts counting again.
func (r *organizationRepository) RestoreMember(orgID, userID uint) error {
	result := r.db.Model(&models.OrganizationMember{}).
		Where("organization_id = ? AND user_id = ? AND revoked_at IS NOT NULL", orgID, userID).
		Update("revoked_at", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *organizationRepository) ListMembers(orgID uint, includeRevoked bool) ([]models.OrganizationMember, error) {
	var members []models.OrganizationMember
	q := r.db.Where("organization_id = ?", orgID)
	if !includeRevoked {
		q = q.Where("revoked_at IS NULL")
	}
	err := q.Order("created_at ASC").Find(&members).Error
	return members, err
}

func (r *organizationRepository) CountActiveMembers(orgID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.OrganizationMember{}).
		Where("organization_id = ? AND revoked_at IS NULL", orgID).
		Count(&count).Error
	return count, err
}
