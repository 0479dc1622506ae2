package repository

import (
	"gorm.io/gorm"

	"github.com/facilohq/facilo/app/models"
)

// facilityObjectRepository implements the FacilityObjectRepository interface
type facilityObjectRepository struct {
	db *gorm.DB
}

// NewFacilityObjectRepository creates a new facility object repository instance
func NewFacilityObjectRepository(db *gorm.DB) FacilityObjectRepository {
	return &facilityObjectRepository{db: db}
}

func (r *facilityObjectRepository) Create(obj *models.FacilityObject) error {
	return r.db.Create(obj).Error
}

func (r *facilityObjectRepository) GetByID(id uint) (*models.FacilityObject, error) {
	var obj models.FacilityObject
	if err := r.db.First(&obj, id).Error; err != nil {
		return nil, err
	}
	return &obj, nil
}

func (r *facilityObjectRepository) ListByOrg(orgID uint, offset, limit int) ([]models.FacilityObject, error) {
	var objs []models.FacilityObject
	err := r.db.Where("organization_id = ?", orgID).
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&objs).Error
	return objs, err
}

func (r *facilityObjectRepository) Update(obj *models.FacilityObject) error {
	return r.db.Save(obj).Error
}

func (r *facilityObjectRepository) Delete(id uint) error {
	return r.db.Delete(&models.FacilityObject{}, id).Error
}

func (r *facilityObjectRepository) CountByOrg(orgID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.FacilityObject{}).
		Where("organization_id = ?", orgID).
		Count(&count).Error
	return count, err
}

// sectorRepository implements the SectorRepository interface
type sectorRepository struct {
	db *gorm.DB
}

// NewSectorRepository creates a new sector repository instance
func NewSectorRepository(db *gorm.DB) SectorRepository {
	return &sectorRepository{db: db}
}

func (r *sectorRepository) Create(sector *models.Sector) error {
	return r.db.Create(sector).Error
}

func (r *sectorRepository) GetByID(id uint) (*models.Sector, error) {
	var sector models.Sector
	if err := r.db.First(&sector, id).Error; err != nil {
		return nil, err
	}
	return &sector, nil
}

func (r *sectorRepository) ListByObject(objectID uint) ([]models.Sector, error) {
	var sectors []models.Sector
	err := r.db.Where("facility_object_id = ?", objectID).
		Order("name ASC").
		Find(&sectors).Error
	return sectors, err
}

func (r *sectorRepository) Update(sector *models.Sector) error {
	return r.db.Save(sector).Error
}

func (r *sectorRepository) Delete(id uint) error {
	return r.db.Delete(&models.Sector{}, id).Error
}

// articleRepository implements the ArticleRepository interface
type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository creates a new article repository instance
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) Create(article *models.Article) error {
	return r.db.Create(article).Error
}

func (r *articleRepository) GetByID(id uint) (*models.Article, error) {
	var article models.Article
	if err := r.db.First(&article, id).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *articleRepository) ListBySector(sectorID uint) ([]models.Article, error) {
	var articles []models.Article
	err := r.db.Where("sector_id = ?", sectorID).
		Order("name ASC").
		Find(&articles).Error
	return articles, err
}

func (r *articleRepository) Update(article *models.Article) error {
	return r.db.Save(article).Error
}

func (r *articleRepository) Delete(id uint) error {
	return r.db.Delete(&models.Article{}, id).Error
}
