package billing

import (
	"errors"
	"time"
)

var (
	// ErrPlanNotFound is returned when a requested plan tier does not exist
	// in the catalog.
	ErrPlanNotFound = errors.New("billing: plan not found")

	// ErrProviderUnavailable is returned when a payable checkout is requested
	// but the payment provider is not configured. Distinct from
	// ErrPlanNotFound so the UI can message accordingly.
	ErrProviderUnavailable = errors.New("billing: payment provider not configured")

	// ErrSubscriptionNotFound is returned by lookups when an organization has
	// no subscription row. Callers treating absence as the free tier should
	// check for it rather than propagate.
	ErrSubscriptionNotFound = errors.New("billing: subscription not found")
)

// CheckoutResult is the outcome of StartCheckout. Exactly one of the three
// shapes applies: a local free-tier activation, a static contact redirect,
// or an external checkout session URL.
type CheckoutResult struct {
	Activated   bool   `json:"success"`
	RedirectURL string `json:"url,omitempty"`
}

// SubscriptionUpdate is the normalized shape a provider event is reduced to
// before it touches the subscription row.
type SubscriptionUpdate struct {
	OrganizationID         uint
	ProviderCustomerID     string
	ProviderSubscriptionID string
	ProviderPriceID        string
	Status                 string
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
