package models

import "time"

// Plan tier keys. Seeded at migration time; referenced by subscriptions.
const (
	PlanTierFree       = "free"
	PlanTierPersonal   = "personal"
	PlanTierBusiness   = "business"
	PlanTierEnterprise = "enterprise"
)

// Plan is a quota/price bundle. A nil Max* limit means unlimited. Stripe
// identifiers are null for non-payable tiers (free, enterprise/contact-only).
type Plan struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Tier              string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"tier"`
	DisplayName       string    `gorm:"type:varchar(100);not null" json:"display_name"`
	PriceMonthlyCents int64     `gorm:"not null;default:0" json:"price_monthly_cents"`
	PriceYearlyCents  int64     `gorm:"not null;default:0" json:"price_yearly_cents"`
	MaxUsers          *int64    `gorm:"default:null" json:"max_users,omitempty"`
	MaxObjects        *int64    `gorm:"default:null" json:"max_objects,omitempty"`
	MaxStorageBytes   *int64    `gorm:"default:null" json:"max_storage_bytes,omitempty"`
	FeaturesJSON      string    `gorm:"type:text" json:"features_json"`
	StripeProductID   *string   `gorm:"type:varchar(191);default:null" json:"-"`
	StripePriceID     *string   `gorm:"type:varchar(191);default:null" json:"-"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsPayable reports whether the plan can be bought through the payment
// provider. Plans without a configured price are either free or contact-only.
func (p *Plan) IsPayable() bool {
	return p != nil && p.StripePriceID != nil && *p.StripePriceID != ""
}

// IsContactOnly reports whether the plan requires sales contact instead of
// self-service checkout.
func (p *Plan) IsContactOnly() bool {
	return p != nil && p.Tier == PlanTierEnterprise && !p.IsPayable()
}
