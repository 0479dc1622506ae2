package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestPlanIsPayable(t *testing.T) {
	assert.False(t, (&Plan{Tier: PlanTierFree}).IsPayable())
	assert.False(t, (&Plan{Tier: PlanTierPersonal, StripePriceID: strPtr("")}).IsPayable())
	assert.True(t, (&Plan{Tier: PlanTierPersonal, StripePriceID: strPtr("price_123")}).IsPayable())

	var nilPlan *Plan
	assert.False(t, nilPlan.IsPayable())
}

func TestPlanIsContactOnly(t *testing.T) {
	assert.True(t, (&Plan{Tier: PlanTierEnterprise}).IsContactOnly())
	// an enterprise tier with a configured price sells through checkout
	assert.False(t, (&Plan{Tier: PlanTierEnterprise, StripePriceID: strPtr("price_ent")}).IsContactOnly())
	assert.False(t, (&Plan{Tier: PlanTierBusiness}).IsContactOnly())
}

func TestSubscriptionIsAdminOwned(t *testing.T) {
	assert.False(t, (&Subscription{LastWriteSource: WriteSourceExternal}).IsAdminOwned())
	assert.True(t, (&Subscription{LastWriteSource: WriteSourceAdmin}).IsAdminOwned())

	var nilSub *Subscription
	assert.False(t, nilSub.IsAdminOwned())
}

func TestDocumentIsImage(t *testing.T) {
	assert.True(t, (&Document{ContentType: "image/jpeg"}).IsImage())
	assert.True(t, (&Document{ContentType: "image/png"}).IsImage())
	assert.False(t, (&Document{ContentType: "application/pdf"}).IsImage())
	assert.False(t, (&Document{}).IsImage())
}
