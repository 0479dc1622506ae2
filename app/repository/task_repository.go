package repository

import (
	"gorm.io/gorm"

	"github.com/facilohq/facilo/app/models"
)

// maintenanceTaskRepository implements the MaintenanceTaskRepository interface
type maintenanceTaskRepository struct {
	db *gorm.DB
}

// NewMaintenanceTaskRepository creates a new maintenance task repository instance
func NewMaintenanceTaskRepository(db *gorm.DB) MaintenanceTaskRepository {
	return &maintenanceTaskRepository{db: db}
}

func (r *maintenanceTaskRepository) Create(task *models.MaintenanceTask) error {
	return r.db.Create(task).Error
}

func (r *maintenanceTaskRepository) GetByID(id uint) (*models.MaintenanceTask, error) {
	var task models.MaintenanceTask
	if err := r.db.First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *maintenanceTaskRepository) ListByOrg(orgID uint, status string, offset, limit int) ([]models.MaintenanceTask, error) {
	var tasks []models.MaintenanceTask
	q := r.db.Where("organization_id = ?", orgID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Offset(offset).Limit(limit).
		Order("due_at IS NULL, due_at ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *maintenanceTaskRepository) ListByObject(objectID uint) ([]models.MaintenanceTask, error) {
	var tasks []models.MaintenanceTask
	err := r.db.Where("facility_object_id = ?", objectID).
		Order("due_at IS NULL, due_at ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *maintenanceTaskRepository) Update(task *models.MaintenanceTask) error {
	return r.db.Save(task).Error
}

func (r *maintenanceTaskRepository) Delete(id uint) error {
	return r.db.Delete(&models.MaintenanceTask{}, id).Error
}
