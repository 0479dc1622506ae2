package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/facilohq/facilo/app/models"
)

type fakeRepo struct {
	plans  []*models.Plan
	subs   map[uint]*models.Subscription
	orgs   map[uint]*models.Organization
	users  map[uint]*models.User
	events map[string]*models.BillingWebhookEvent
	nextID uint
}

func newFakeRepo() *fakeRepo {
	r := &fakeRepo{
		subs:   make(map[uint]*models.Subscription),
		orgs:   make(map[uint]*models.Organization),
		users:  make(map[uint]*models.User),
		events: make(map[string]*models.BillingWebhookEvent),
	}
	limit := func(v int64) *int64 { return &v }
	price := "price_personal_123"
	r.plans = []*models.Plan{
		{ID: 1, Tier: models.PlanTierFree, DisplayName: "Free", MaxUsers: limit(3), MaxObjects: limit(3), MaxStorageBytes: limit(1 << 30)},
		{ID: 2, Tier: models.PlanTierPersonal, DisplayName: "Personal", PriceMonthlyCents: 990, MaxUsers: limit(5), MaxObjects: limit(10), MaxStorageBytes: limit(10 << 30), StripePriceID: &price},
		{ID: 3, Tier: models.PlanTierEnterprise, DisplayName: "Enterprise"},
	}
	r.orgs[1] = &models.Organization{ID: 1, Name: "Acme Facilities", OwnerID: 1}
	r.users[1] = &models.User{ID: 1, Name: "alice", Email: "alice@example.com"}
	return r
}

func (r *fakeRepo) GetPlanByTier(tier string) (*models.Plan, error) {
	for _, p := range r.plans {
		if p.Tier == tier {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) GetPlanByID(id uint) (*models.Plan, error) {
	for _, p := range r.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) GetPlanByPriceID(priceID string) (*models.Plan, error) {
	for _, p := range r.plans {
		if p.StripePriceID != nil && *p.StripePriceID == priceID {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) ListPlans() ([]models.Plan, error) {
	out := make([]models.Plan, 0, len(r.plans))
	for _, p := range r.plans {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeRepo) SeedPlan(plan *models.Plan) error {
	for _, p := range r.plans {
		if p.Tier == plan.Tier {
			*plan = *p
			return nil
		}
	}
	r.nextID++
	plan.ID = 100 + r.nextID
	r.plans = append(r.plans, plan)
	return nil
}

func (r *fakeRepo) GetSubscriptionByOrg(orgID uint) (*models.Subscription, error) {
	if sub, ok := r.subs[orgID]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) GetSubscriptionByProviderSubID(providerSubID string) (*models.Subscription, error) {
	for _, sub := range r.subs {
		if sub.StripeSubscriptionID != nil && *sub.StripeSubscriptionID == providerSubID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) GetSubscriptionByProviderCustomerID(providerCustomerID string) (*models.Subscription, error) {
	for _, sub := range r.subs {
		if sub.StripeCustomerID != nil && *sub.StripeCustomerID == providerCustomerID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) UpsertSubscription(sub *models.Subscription) error {
	if existing, ok := r.subs[sub.OrganizationID]; ok {
		sub.ID = existing.ID
	} else {
		r.nextID++
		sub.ID = r.nextID
	}
	cp := *sub
	r.subs[sub.OrganizationID] = &cp
	return nil
}

func (r *fakeRepo) GetOrganization(id uint) (*models.Organization, error) {
	if org, ok := r.orgs[id]; ok {
		return org, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) GetUser(id uint) (*models.User, error) {
	if user, ok := r.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + ":" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		return false, stored, nil
	}
	r.nextID++
	event.ID = r.nextID
	r.events[key] = event
	return true, event, nil
}

func (r *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, e := range r.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeProvider struct {
	configured    bool
	customerCalls int
	sessionCalls  int
	lastSession   CheckoutSessionInput
	customerID    string
	checkoutURL   string
	customerErr   error
	checkoutErr   error
}

func (p *fakeProvider) Configured() bool { return p.configured }

func (p *fakeProvider) EnsureCustomer(ctx context.Context, in CustomerInput) (string, error) {
	p.customerCalls++
	if p.customerErr != nil {
		return "", p.customerErr
	}
	if in.ExistingID != "" {
		return in.ExistingID, nil
	}
	return p.customerID, nil
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (string, error) {
	p.sessionCalls++
	p.lastSession = in
	if p.checkoutErr != nil {
		return "", p.checkoutErr
	}
	return p.checkoutURL, nil
}

func newTestService(repo *fakeRepo, provider Provider) *Service {
	return NewService(repo, provider, "/contact-sales")
}

func TestEffectivePlanAbsenceIsFree(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeProvider{})

	plan, err := svc.EffectivePlan(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, models.PlanTierFree, plan.Tier)
}

func TestEffectivePlanMissingPlanFallsBackToFree(t *testing.T) {
	repo := newFakeRepo()
	repo.subs[1] = &models.Subscription{ID: 1, OrganizationID: 1, PlanID: 999, Status: models.SubscriptionStatusActive}
	svc := newTestService(repo, &fakeProvider{})

	plan, err := svc.EffectivePlan(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.PlanTierFree, plan.Tier)
}

func TestStartCheckoutFreeActivatesLocally(t *testing.T) {
	repo := newFakeRepo()
	provider := &fakeProvider{configured: true, customerID: "cus_1", checkoutURL: "https://pay.example/x"}
	svc := newTestService(repo, provider)

	res, err := svc.StartCheckout(context.Background(), 1, 1, "free")
	require.NoError(t, err)
	assert.True(t, res.Activated)

	sub := repo.subs[1]
	require.NotNil(t, sub)
	assert.Equal(t, uint(1), sub.PlanID)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Nil(t, sub.StripeCustomerID)
	assert.Nil(t, sub.StripeSubscriptionID)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.WithinDuration(t, time.Now().AddDate(1, 0, 0), *sub.CurrentPeriodEnd, time.Minute)

	// The provider is never touched for the free tier.
	assert.Zero(t, provider.customerCalls)
	assert.Zero(t, provider.sessionCalls)
}

func TestStartCheckoutFreeIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeProvider{})

	_, err := svc.StartCheckout(context.Background(), 1, 1, "free")
	require.NoError(t, err)
	first := *repo.subs[1]

	_, err = svc.StartCheckout(context.Background(), 1, 1, "free")
	require.NoError(t, err)
	second := *repo.subs[1]

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.PlanID, second.PlanID)
	assert.Equal(t, first.Status, second.Status)
}

func TestStartCheckoutContactOnly(t *testing.T) {
	repo := newFakeRepo()
	provider := &fakeProvider{configured: true}
	svc := newTestService(repo, provider)

	res, err := svc.StartCheckout(context.Background(), 1, 1, "enterprise")
	require.NoError(t, err)
	assert.False(t, res.Activated)
	assert.Equal(t, "/contact-sales", res.RedirectURL)
	assert.Zero(t, provider.sessionCalls)
}

func TestStartCheckoutPayableUnconfigured(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeProvider{configured: false})

	_, err := svc.StartCheckout(context.Background(), 1, 1, "personal")
	require.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Empty(t, repo.subs)
}

func TestStartCheckoutUnknownPlan(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeProvider{configured: true})

	_, err := svc.StartCheckout(context.Background(), 1, 1, "platinum")
	require.ErrorIs(t, err, ErrPlanNotFound)
}

func TestStartCheckoutPayable(t *testing.T) {
	repo := newFakeRepo()
	provider := &fakeProvider{configured: true, customerID: "cus_abc", checkoutURL: "https://pay.example/session"}
	svc := newTestService(repo, provider)

	res, err := svc.StartCheckout(context.Background(), 1, 1, "personal")
	require.NoError(t, err)
	assert.False(t, res.Activated)
	assert.Equal(t, "https://pay.example/session", res.RedirectURL)

	assert.Equal(t, 1, provider.customerCalls)
	assert.Equal(t, 1, provider.sessionCalls)
	assert.Equal(t, uint(1), provider.lastSession.OrganizationID)
	assert.Equal(t, uint(2), provider.lastSession.PlanID)
	assert.Equal(t, "price_personal_123", provider.lastSession.PriceID)

	// The provisional row carries the customer ID for later reconciliation.
	sub := repo.subs[1]
	require.NotNil(t, sub)
	require.NotNil(t, sub.StripeCustomerID)
	assert.Equal(t, "cus_abc", *sub.StripeCustomerID)
}

func TestApplyCheckoutCompleted(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeProvider{})

	err := svc.ApplyCheckoutCompleted(context.Background(), SubscriptionUpdate{
		OrganizationID:         1,
		ProviderCustomerID:     "cus_abc",
		ProviderSubscriptionID: "sub_123",
	})
	require.NoError(t, err)

	sub := repo.subs[1]
	require.NotNil(t, sub)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	require.NotNil(t, sub.StripeSubscriptionID)
	assert.Equal(t, "sub_123", *sub.StripeSubscriptionID)
}

func TestApplySubscriptionChangeIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeProvider{})

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	update := SubscriptionUpdate{
		OrganizationID:         1,
		ProviderCustomerID:     "cus_abc",
		ProviderSubscriptionID: "sub_123",
		ProviderPriceID:        "price_personal_123",
		Status:                 "active",
		CurrentPeriodStart:     &start,
		CurrentPeriodEnd:       &end,
	}

	require.NoError(t, svc.ApplySubscriptionChange(context.Background(), update))
	first := *repo.subs[1]

	require.NoError(t, svc.ApplySubscriptionChange(context.Background(), update))
	second := *repo.subs[1]

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.PlanID, second.PlanID)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.StripeSubscriptionID, second.StripeSubscriptionID)
	assert.Equal(t, first.CurrentPeriodEnd, second.CurrentPeriodEnd)
	assert.Equal(t, uint(2), second.PlanID)
}

func TestApplySubscriptionDeletedDowngradesToFree(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeProvider{})

	subID := "sub_123"
	repo.subs[1] = &models.Subscription{
		ID:                   1,
		OrganizationID:       1,
		PlanID:               2,
		Status:               models.SubscriptionStatusActive,
		StripeSubscriptionID: &subID,
		LastWriteSource:      models.WriteSourceExternal,
	}

	err := svc.ApplySubscriptionDeleted(context.Background(), SubscriptionUpdate{
		ProviderSubscriptionID: "sub_123",
	})
	require.NoError(t, err)

	sub := repo.subs[1]
	assert.Equal(t, models.SubscriptionStatusCanceled, sub.Status)
	assert.Equal(t, uint(1), sub.PlanID)
	require.NotNil(t, sub.PreviousPlanID)
	assert.Equal(t, uint(2), *sub.PreviousPlanID)

	// Quota checks now resolve to free.
	plan, err := svc.EffectivePlan(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.PlanTierFree, plan.Tier)
}

func TestApplyPaymentFailedMarksPastDue(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeProvider{})

	custID := "cus_abc"
	repo.subs[1] = &models.Subscription{
		ID:               1,
		OrganizationID:   1,
		PlanID:           2,
		Status:           models.SubscriptionStatusActive,
		StripeCustomerID: &custID,
		LastWriteSource:  models.WriteSourceExternal,
	}

	err := svc.ApplyPaymentFailed(context.Background(), SubscriptionUpdate{ProviderCustomerID: "cus_abc"})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusPastDue, repo.subs[1].Status)
}

func TestMissingMetadataIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeProvider{})

	repo.subs[1] = &models.Subscription{ID: 1, OrganizationID: 1, PlanID: 2, Status: models.SubscriptionStatusActive}
	before := *repo.subs[1]

	err := svc.ApplySubscriptionChange(context.Background(), SubscriptionUpdate{Status: "canceled"})
	require.NoError(t, err)
	assert.Equal(t, before, *repo.subs[1])
}

func TestAdminOverrideSurvivesReconciliation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeProvider{})

	_, err := svc.AdminOverride(context.Background(), 1, 2, models.SubscriptionStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.WriteSourceAdmin, repo.subs[1].LastWriteSource)

	// A provider event must not clobber plan or status on an admin-owned row.
	err = svc.ApplySubscriptionChange(context.Background(), SubscriptionUpdate{
		OrganizationID:         1,
		ProviderSubscriptionID: "sub_123",
		ProviderPriceID:        "price_personal_123",
		Status:                 "canceled",
	})
	require.NoError(t, err)

	sub := repo.subs[1]
	assert.Equal(t, uint(2), sub.PlanID)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, models.WriteSourceAdmin, sub.LastWriteSource)
	// External identifiers are still refreshed.
	require.NotNil(t, sub.StripeSubscriptionID)
	assert.Equal(t, "sub_123", *sub.StripeSubscriptionID)

	// A deletion event is ignored entirely.
	err = svc.ApplySubscriptionDeleted(context.Background(), SubscriptionUpdate{OrganizationID: 1})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, repo.subs[1].Status)
}

func TestAdminOverrideInvalidStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeProvider{})

	_, err := svc.AdminOverride(context.Background(), 1, 2, "bogus")
	require.Error(t, err)
}

func TestRecordWebhookEventDeduplicates(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeProvider{})

	in := WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_1",
		EventType:       "customer.subscription.updated",
		PayloadJSON:     `{}`,
		SignatureValid:  true,
	}

	created, first, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)

	created, second, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestWebhookRedeliveryAfterFailedProcessing(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeProvider{})
	ctx := context.Background()

	in := WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_retry_1",
		EventType:       "customer.subscription.updated",
		PayloadJSON:     `{}`,
		SignatureValid:  true,
	}

	created, first, err := svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	require.True(t, created)

	// First delivery fails downstream; the provider will redeliver.
	require.NoError(t, svc.MarkWebhookProcessed(ctx, first.ID, errors.New("plan lookup failed")))

	created, stored, err := svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, stored.ProcessedOK(), "a failed event must be handled again on redelivery")

	// The redelivery succeeds; any further copy is a pure duplicate.
	require.NoError(t, svc.MarkWebhookProcessed(ctx, first.ID, nil))

	created, stored, err = svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, stored.ProcessedOK())
}
