package repository

import (
	"gorm.io/gorm"

	"github.com/facilohq/facilo/app/models"
)

// documentRepository implements the DocumentRepository interface
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository instance
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(doc *models.Document) error {
	return r.db.Create(doc).Error
}

func (r *documentRepository) GetByUUID(uuid string) (*models.Document, error) {
	var doc models.Document
	if err := r.db.Where("uuid = ?", uuid).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) ListByOrg(orgID uint, offset, limit int) ([]models.Document, error) {
	var docs []models.Document
	err := r.db.Where("organization_id = ?", orgID).
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

func (r *documentRepository) ListByObject(objectID uint) ([]models.Document, error) {
	var docs []models.Document
	err := r.db.Where("facility_object_id = ?", objectID).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

func (r *documentRepository) Delete(id uint) error {
	return r.db.Delete(&models.Document{}, id).Error
}

// SumSizeByOrg returns the exact stored byte total for an organization.
// Used by the storage reconciliation job, not by per-request quota checks.
func (r *documentRepository) SumSizeByOrg(orgID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.Document{}).
		Where("organization_id = ?", orgID).
		Select("COALESCE(SUM(file_size), 0)").
		Scan(&total).Error
	return total, err
}
