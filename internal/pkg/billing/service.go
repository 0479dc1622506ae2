package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/facilohq/facilo/app/models"
	"github.com/facilohq/facilo/internal/pkg/notify"
)

// Provider is the external payment side of checkout. Implemented by
// StripeClient; faked in tests.
type Provider interface {
	Configured() bool
	EnsureCustomer(ctx context.Context, in CustomerInput) (string, error)
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (string, error)
}

// CustomerInput carries what the provider needs to create or reuse a
// customer record.
type CustomerInput struct {
	ExistingID     string
	OrganizationID uint
	OrgName        string
	UserID         uint
	UserEmail      string
	UserName       string
}

// CheckoutSessionInput scopes a provider checkout session to one org/plan
// pair. The identifiers are embedded in session metadata so the webhook
// reconciler can resolve completion events back to the organization.
type CheckoutSessionInput struct {
	CustomerID     string
	PriceID        string
	OrganizationID uint
	PlanID         uint
}

// Service owns subscription lifecycle state: plan resolution, checkout and
// webhook-driven reconciliation.
type Service struct {
	repo       Repository
	provider   Provider
	notifier   notify.Notifier
	contactURL string
}

// SetNotifier attaches a lifecycle notifier. Optional; nil means signals
// are dropped.
func (s *Service) SetNotifier(n notify.Notifier) {
	s.notifier = n
}

// NewService creates a billing service from an injected repository and
// payment provider.
func NewService(repo Repository, provider Provider, contactURL string) *Service {
	if contactURL == "" {
		contactURL = "/contact-sales"
	}
	return &Service{repo: repo, provider: provider, contactURL: contactURL}
}

// NewServiceFromDB creates a billing service from a GORM DB handle with the
// Stripe client configured from the environment.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), NewStripeClientFromEnv(), "")
}

// EffectivePlan resolves the plan that governs an organization's quotas.
// Fail-closed: no subscription row, a canceled plan reference or a missing
// plan all resolve to the free tier, never to unlimited.
func (s *Service) EffectivePlan(ctx context.Context, orgID uint) (*models.Plan, error) {
	_ = ctx
	sub, err := s.repo.GetSubscriptionByOrg(orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.freePlan()
		}
		return nil, err
	}

	if sub.Plan != nil {
		return sub.Plan, nil
	}
	plan, err := s.repo.GetPlanByID(sub.PlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("billing: org %d references missing plan %d, falling back to free", orgID, sub.PlanID)
			return s.freePlan()
		}
		return nil, err
	}
	return plan, nil
}

func (s *Service) freePlan() (*models.Plan, error) {
	plan, err := s.repo.GetPlanByTier(models.PlanTierFree)
	if err != nil {
		return nil, fmt.Errorf("billing: free plan missing from catalog: %w", err)
	}
	return plan, nil
}

// GetSubscription returns the organization's subscription row.
func (s *Service) GetSubscription(ctx context.Context, orgID uint) (*models.Subscription, error) {
	_ = ctx
	sub, err := s.repo.GetSubscriptionByOrg(orgID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	return sub, err
}

// ListPlans returns the catalog ordered by price.
func (s *Service) ListPlans(ctx context.Context) ([]models.Plan, error) {
	_ = ctx
	return s.repo.ListPlans()
}

// StartCheckout begins a plan change for an organization.
//
// Free tier: activated locally with a one-year window, no provider call.
// Contact-only tier: returns the sales contact URL, no provider call.
// Payable tier: ensures a provider customer exists, then creates a checkout
// session. The local row is only touched after the provider calls succeed,
// so a provider timeout leaves no partial state.
func (s *Service) StartCheckout(ctx context.Context, orgID, userID uint, tier string) (*CheckoutResult, error) {
	plan, err := s.repo.GetPlanByTier(strings.ToLower(strings.TrimSpace(tier)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	if plan.Tier == models.PlanTierFree {
		if err := s.activateFreePlan(orgID, plan); err != nil {
			return nil, err
		}
		return &CheckoutResult{Activated: true, RedirectURL: "/account/billing"}, nil
	}

	if plan.IsContactOnly() {
		return &CheckoutResult{RedirectURL: s.contactURL}, nil
	}

	if !plan.IsPayable() {
		return nil, ErrPlanNotFound
	}
	if s.provider == nil || !s.provider.Configured() {
		return nil, ErrProviderUnavailable
	}

	customerID, err := s.ensureCustomer(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.provider.CreateCheckoutSession(ctx, CheckoutSessionInput{
		CustomerID:     customerID,
		PriceID:        *plan.StripePriceID,
		OrganizationID: orgID,
		PlanID:         plan.ID,
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{RedirectURL: url}, nil
}

// activateFreePlan upserts an ACTIVE free-tier row with a one-year period
// window and no external identifiers. Idempotent by organization key.
func (s *Service) activateFreePlan(orgID uint, freePlan *models.Plan) error {
	now := time.Now()
	end := now.AddDate(1, 0, 0)

	sub := s.currentOrBlank(orgID)
	sub.PlanID = freePlan.ID
	sub.Plan = nil
	sub.Status = models.SubscriptionStatusActive
	sub.StripeSubscriptionID = nil
	sub.CurrentPeriodStart = &now
	sub.CurrentPeriodEnd = &end
	sub.CancelAtPeriodEnd = false
	sub.LastWriteSource = models.WriteSourceExternal
	return s.repo.UpsertSubscription(sub)
}

// ensureCustomer resolves or creates the provider customer for an org and
// persists the identifier on the subscription row (a provisional record the
// reconciler later confirms).
func (s *Service) ensureCustomer(ctx context.Context, orgID, userID uint) (string, error) {
	existing := ""
	sub, err := s.repo.GetSubscriptionByOrg(orgID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	if sub != nil && sub.StripeCustomerID != nil {
		existing = *sub.StripeCustomerID
	}

	org, err := s.repo.GetOrganization(orgID)
	if err != nil {
		return "", err
	}
	user, err := s.repo.GetUser(userID)
	if err != nil {
		return "", err
	}

	customerID, err := s.provider.EnsureCustomer(ctx, CustomerInput{
		ExistingID:     existing,
		OrganizationID: orgID,
		OrgName:        org.Name,
		UserID:         userID,
		UserEmail:      user.Email,
		UserName:       user.Name,
	})
	if err != nil {
		return "", err
	}

	if customerID != existing {
		record := s.currentOrBlank(orgID)
		if record.PlanID == 0 {
			free, err := s.freePlan()
			if err != nil {
				return "", err
			}
			record.PlanID = free.ID
			record.Status = models.SubscriptionStatusActive
		}
		record.Plan = nil
		record.StripeCustomerID = &customerID
		if err := s.repo.UpsertSubscription(record); err != nil {
			return "", err
		}
	}
	return customerID, nil
}

// currentOrBlank loads the org's subscription row or returns a fresh one
// carrying forward nothing. Callers fill in the fields they own before the
// upsert.
func (s *Service) currentOrBlank(orgID uint) *models.Subscription {
	sub, err := s.repo.GetSubscriptionByOrg(orgID)
	if err != nil {
		return &models.Subscription{OrganizationID: orgID, LastWriteSource: models.WriteSourceExternal}
	}
	return sub
}

// AdminOverride sets plan and status directly, bypassing the provider. The
// row is tagged so the reconciler will not clobber plan or status on the
// next incoming webhook.
func (s *Service) AdminOverride(ctx context.Context, orgID, planID uint, status string) (*models.Subscription, error) {
	_ = ctx
	if _, err := s.repo.GetPlanByID(planID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	switch status {
	case models.SubscriptionStatusActive, models.SubscriptionStatusPastDue,
		models.SubscriptionStatusCanceled, models.SubscriptionStatusUnpaid:
	default:
		return nil, fmt.Errorf("billing: invalid status %q", status)
	}

	sub := s.currentOrBlank(orgID)
	if sub.PlanID != 0 && sub.PlanID != planID {
		prev := sub.PlanID
		sub.PreviousPlanID = &prev
	}
	sub.PlanID = planID
	sub.Plan = nil
	sub.Status = status
	sub.LastWriteSource = models.WriteSourceAdmin
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// ClearAdminOverride hands ownership of the row back to the provider.
func (s *Service) ClearAdminOverride(ctx context.Context, orgID uint) error {
	_ = ctx
	sub, err := s.repo.GetSubscriptionByOrg(orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubscriptionNotFound
		}
		return err
	}
	sub.Plan = nil
	sub.LastWriteSource = models.WriteSourceExternal
	return s.repo.UpsertSubscription(sub)
}

// ApplyCheckoutCompleted confirms a provisional checkout: binds the external
// identifiers and activates the purchased plan.
func (s *Service) ApplyCheckoutCompleted(ctx context.Context, in SubscriptionUpdate) error {
	_ = ctx
	if in.OrganizationID == 0 {
		log.Warnf("billing: checkout completion without organization metadata, ignoring")
		return nil
	}

	sub := s.currentOrBlank(in.OrganizationID)

	planID := sub.PlanID
	if in.ProviderPriceID != "" {
		if plan, err := s.repo.GetPlanByPriceID(in.ProviderPriceID); err == nil {
			planID = plan.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if planID == 0 {
		free, err := s.freePlan()
		if err != nil {
			return err
		}
		planID = free.ID
	}

	if sub.PlanID != 0 && sub.PlanID != planID {
		prev := sub.PlanID
		sub.PreviousPlanID = &prev
	}
	sub.PlanID = planID
	sub.Plan = nil
	sub.Status = models.SubscriptionStatusActive
	if in.ProviderCustomerID != "" {
		sub.StripeCustomerID = &in.ProviderCustomerID
	}
	if in.ProviderSubscriptionID != "" {
		sub.StripeSubscriptionID = &in.ProviderSubscriptionID
	}
	if in.CurrentPeriodStart != nil {
		sub.CurrentPeriodStart = in.CurrentPeriodStart
	}
	if in.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = in.CurrentPeriodEnd
	}
	sub.CancelAtPeriodEnd = in.CancelAtPeriodEnd
	sub.LastWriteSource = models.WriteSourceExternal
	return s.repo.UpsertSubscription(sub)
}

// ApplySubscriptionChange reconciles a provider "created" or "updated"
// event. Events are applied as they arrive; there is no timestamp-based
// reordering, so a stale update arriving after a delete wins at the row
// level (last-write-wins).
func (s *Service) ApplySubscriptionChange(ctx context.Context, in SubscriptionUpdate) error {
	_ = ctx
	sub, ok := s.resolveSubscription(in)
	if !ok {
		return nil
	}

	if sub.IsAdminOwned() {
		// Admin override owns plan and status; only external identifiers
		// and the period window are refreshed from the provider.
		log.Infof("billing: org %d is admin-owned, skipping plan/status from provider event", sub.OrganizationID)
	} else {
		if in.ProviderPriceID != "" {
			if plan, err := s.repo.GetPlanByPriceID(in.ProviderPriceID); err == nil {
				if sub.PlanID != 0 && sub.PlanID != plan.ID {
					prev := sub.PlanID
					sub.PreviousPlanID = &prev
				}
				sub.PlanID = plan.ID
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			} else {
				log.Warnf("billing: no plan mapped to price %q, keeping current plan for org %d", in.ProviderPriceID, sub.OrganizationID)
			}
		}
		if mapped := mapProviderStatus(in.Status); mapped != "" {
			sub.Status = mapped
		}
		sub.LastWriteSource = models.WriteSourceExternal
	}

	if in.ProviderCustomerID != "" {
		sub.StripeCustomerID = &in.ProviderCustomerID
	}
	if in.ProviderSubscriptionID != "" {
		sub.StripeSubscriptionID = &in.ProviderSubscriptionID
	}
	if in.CurrentPeriodStart != nil {
		sub.CurrentPeriodStart = in.CurrentPeriodStart
	}
	if in.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = in.CurrentPeriodEnd
	}
	sub.CancelAtPeriodEnd = in.CancelAtPeriodEnd
	sub.Plan = nil
	return s.repo.UpsertSubscription(sub)
}

// ApplySubscriptionDeleted cancels the subscription and downgrades the
// effective plan to free so quota checks immediately reflect the reduced
// entitlement. The previous plan reference is preserved for inspection.
func (s *Service) ApplySubscriptionDeleted(ctx context.Context, in SubscriptionUpdate) error {
	sub, ok := s.resolveSubscription(in)
	if !ok {
		return nil
	}

	free, err := s.freePlan()
	if err != nil {
		return err
	}

	if sub.IsAdminOwned() {
		log.Infof("billing: org %d is admin-owned, ignoring provider deletion", sub.OrganizationID)
		return nil
	}

	if sub.PlanID != 0 && sub.PlanID != free.ID {
		prev := sub.PlanID
		sub.PreviousPlanID = &prev
	}
	sub.PlanID = free.ID
	sub.Plan = nil
	sub.Status = models.SubscriptionStatusCanceled
	sub.CancelAtPeriodEnd = false
	sub.LastWriteSource = models.WriteSourceExternal
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return err
	}
	if s.notifier != nil {
		if err := s.notifier.SubscriptionCanceled(ctx, sub.OrganizationID); err != nil {
			log.Errorf("billing: cancellation notification for org %d failed: %v", sub.OrganizationID, err)
		}
	}
	return nil
}

// ApplyPaymentFailed marks the subscription past due.
func (s *Service) ApplyPaymentFailed(ctx context.Context, in SubscriptionUpdate) error {
	sub, ok := s.resolveSubscription(in)
	if !ok {
		return nil
	}
	if sub.IsAdminOwned() {
		log.Infof("billing: org %d is admin-owned, ignoring payment failure", sub.OrganizationID)
		return nil
	}
	sub.Status = models.SubscriptionStatusPastDue
	sub.Plan = nil
	sub.LastWriteSource = models.WriteSourceExternal
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return err
	}
	if s.notifier != nil {
		if err := s.notifier.PaymentPastDue(ctx, sub.OrganizationID); err != nil {
			log.Errorf("billing: past-due notification for org %d failed: %v", sub.OrganizationID, err)
		}
	}
	return nil
}

// resolveSubscription locates the row an event refers to: organization
// metadata first, then the provider subscription ID, then the customer ID.
// A miss is a logged no-op, never an error, so a malformed or foreign event
// cannot corrupt an unrelated organization and never triggers provider
// retries.
func (s *Service) resolveSubscription(in SubscriptionUpdate) (*models.Subscription, bool) {
	if in.OrganizationID != 0 {
		sub, err := s.repo.GetSubscriptionByOrg(in.OrganizationID)
		if err == nil {
			return sub, true
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// First event for this org: start a fresh row.
			return &models.Subscription{
				OrganizationID:  in.OrganizationID,
				LastWriteSource: models.WriteSourceExternal,
			}, true
		}
		log.Errorf("billing: subscription lookup for org %d failed: %v", in.OrganizationID, err)
		return nil, false
	}

	if in.ProviderSubscriptionID != "" {
		sub, err := s.repo.GetSubscriptionByProviderSubID(in.ProviderSubscriptionID)
		if err == nil {
			return sub, true
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("billing: subscription lookup by provider id failed: %v", err)
			return nil, false
		}
	}

	if in.ProviderCustomerID != "" {
		sub, err := s.repo.GetSubscriptionByProviderCustomerID(in.ProviderCustomerID)
		if err == nil {
			return sub, true
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("billing: subscription lookup by customer id failed: %v", err)
			return nil, false
		}
	}

	log.Warnf("billing: event without resolvable organization (sub %q, customer %q), ignoring",
		in.ProviderSubscriptionID, in.ProviderCustomerID)
	return nil, false
}

// mapProviderStatus reduces provider status values to the local enum. An
// unknown status maps to empty, which leaves the current status untouched.
func mapProviderStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return models.SubscriptionStatusActive
	case "past_due":
		return models.SubscriptionStatusPastDue
	case "canceled":
		return models.SubscriptionStatusCanceled
	case "unpaid":
		return models.SubscriptionStatusUnpaid
	default:
		return ""
	}
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
