package billing

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/facilohq/facilo/app/models"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetPlanByTier(tier string) (*models.Plan, error)
	GetPlanByID(id uint) (*models.Plan, error)
	GetPlanByPriceID(priceID string) (*models.Plan, error)
	ListPlans() ([]models.Plan, error)
	SeedPlan(plan *models.Plan) error
	GetSubscriptionByOrg(orgID uint) (*models.Subscription, error)
	GetSubscriptionByProviderSubID(providerSubID string) (*models.Subscription, error)
	GetSubscriptionByProviderCustomerID(providerCustomerID string) (*models.Subscription, error)
	UpsertSubscription(sub *models.Subscription) error
	GetOrganization(id uint) (*models.Organization, error)
	GetUser(id uint) (*models.User, error)
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetPlanByTier(tier string) (*models.Plan, error) {
	var p models.Plan
	if err := r.db.Where("tier = ?", tier).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetPlanByID(id uint) (*models.Plan, error) {
	var p models.Plan
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetPlanByPriceID(priceID string) (*models.Plan, error) {
	var p models.Plan
	if err := r.db.Where("stripe_price_id = ?", priceID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) ListPlans() ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.Order("price_monthly_cents ASC").Find(&plans).Error
	return plans, err
}

// SeedPlan upserts a catalog row keyed by tier. Limits and prices are
// refreshed on every boot so catalog changes ship with the binary.
func (r *gormRepository) SeedPlan(plan *models.Plan) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tier"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name",
			"price_monthly_cents",
			"price_yearly_cents",
			"max_users",
			"max_objects",
			"max_storage_bytes",
			"features_json",
			"updated_at",
		}),
	}).Create(plan).Error; err != nil {
		return err
	}
	return r.db.Where("tier = ?", plan.Tier).First(plan).Error
}

func (r *gormRepository) GetSubscriptionByOrg(orgID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Preload("Plan").Where("organization_id = ?", orgID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriptionByProviderSubID(providerSubID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Preload("Plan").Where("stripe_subscription_id = ?", providerSubID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriptionByProviderCustomerID(providerCustomerID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Preload("Plan").Where("stripe_customer_id = ?", providerCustomerID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpsertSubscription writes the row keyed by organization_id. All mutations
// to subscription state go through this single statement so concurrent
// writers for different organizations never block each other.
func (r *gormRepository) UpsertSubscription(sub *models.Subscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "organization_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_id",
			"previous_plan_id",
			"status",
			"stripe_customer_id",
			"stripe_subscription_id",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"last_write_source",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("organization_id = ?", sub.OrganizationID).First(sub).Error
}

func (r *gormRepository) GetOrganization(id uint) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *gormRepository) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
