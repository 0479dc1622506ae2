package models

import "time"

// Subscription status values. Absence of a subscription row is treated as the
// free tier everywhere; there is no explicit "free" status.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusUnpaid   = "unpaid"
)

// Writers of the subscription row. The webhook reconciler must not clobber
// fields owned by a local admin override.
const (
	WriteSourceExternal = "external"
	WriteSourceAdmin    = "admin"
)

// Subscription binds one organization to one plan plus external billing
// state. One row per organization; all mutations go through upserts keyed by
// organization_id.
type Subscription struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	OrganizationID       uint       `gorm:"uniqueIndex;not null" json:"organization_id"`
	PlanID               uint       `gorm:"not null;index" json:"plan_id"`
	Plan                 *Plan      `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	PreviousPlanID       *uint      `gorm:"default:null" json:"previous_plan_id,omitempty"`
	Status               string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	StripeCustomerID     *string    `gorm:"type:varchar(191);default:null;index" json:"-"`
	StripeSubscriptionID *string    `gorm:"type:varchar(191);default:null;index" json:"-"`
	CurrentPeriodStart   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `gorm:"default:false" json:"cancel_at_period_end"`
	LastWriteSource      string     `gorm:"type:varchar(16);not null;default:'external'" json:"last_write_source"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsAdminOwned reports whether the row was last written by a local
// administrative override.
func (s *Subscription) IsAdminOwned() bool {
	return s != nil && s.LastWriteSource == WriteSourceAdmin
}
