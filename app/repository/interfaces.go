package repository

import (
	"gorm.io/gorm"

	"github.com/facilohq/facilo/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// OrganizationRepository defines the interface for tenant operations,
// including membership management.
type OrganizationRepository interface {
	Create(org *models.Organization) error
	GetByID(id uint) (*models.Organization, error)
	GetBySlug(slug string) (*models.Organization, error)
	Update(org *models.Organization) error
	Delete(id uint) error
	ListByUser(userID uint) ([]models.Organization, error)

	AddMember(member *models.OrganizationMember) error
	GetMember(orgID, userID uint) (*models.OrganizationMember, error)
	RevokeMember(orgID, userID uint) error
	RestoreMember(orgID, userID uint) error
	ListMembers(orgID uint, includeRevoked bool) ([]models.OrganizationMember, error)
	CountActiveMembers(orgID uint) (int64, error)
}

// FacilityObjectRepository defines the interface for facility object operations
type FacilityObjectRepository interface {
	Create(obj *models.FacilityObject) error
	GetByID(id uint) (*models.FacilityObject, error)
	ListByOrg(orgID uint, offset, limit int) ([]models.FacilityObject, error)
	Update(obj *models.FacilityObject) error
	Delete(id uint) error
	CountByOrg(orgID uint) (int64, error)
}

// SectorRepository defines the interface for sector operations
type SectorRepository interface {
	Create(sector *models.Sector) error
	GetByID(id uint) (*models.Sector, error)
	ListByObject(objectID uint) ([]models.Sector, error)
	Update(sector *models.Sector) error
	Delete(id uint) error
}

// ArticleRepository defines the interface for article operations
type ArticleRepository interface {
	Create(article *models.Article) error
	GetByID(id uint) (*models.Article, error)
	ListBySector(sectorID uint) ([]models.Article, error)
	Update(article *models.Article) error
	Delete(id uint) error
}

// MaintenanceTaskRepository defines the interface for maintenance task operations
type MaintenanceTaskRepository interface {
	Create(task *models.MaintenanceTask) error
	GetByID(id uint) (*models.MaintenanceTask, error)
	ListByOrg(orgID uint, status string, offset, limit int) ([]models.MaintenanceTask, error)
	ListByObject(objectID uint) ([]models.MaintenanceTask, error)
	Update(task *models.MaintenanceTask) error
	Delete(id uint) error
}

// DocumentRepository defines the interface for document metadata operations
type DocumentRepository interface {
	Create(doc *models.Document) error
	GetByUUID(uuid string) (*models.Document, error)
	ListByOrg(orgID uint, offset, limit int) ([]models.Document, error)
	ListByObject(objectID uint) ([]models.Document, error)
	Delete(id uint) error
	SumSizeByOrg(orgID uint) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User           UserRepository
	Organization   OrganizationRepository
	FacilityObject FacilityObjectRepository
	Sector         SectorRepository
	Article        ArticleRepository
	Task           MaintenanceTaskRepository
	Document       DocumentRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:           NewUserRepository(db),
		Organization:   NewOrganizationRepository(db),
		FacilityObject: NewFacilityObjectRepository(db),
		Sector:         NewSectorRepository(db),
		Article:        NewArticleRepository(db),
		Task:           NewMaintenanceTaskRepository(db),
		Document:       NewDocumentRepository(db),
	}
}
