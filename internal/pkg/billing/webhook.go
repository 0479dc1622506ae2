package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/facilohq/facilo/internal/pkg/env"
)

// Reconciler consumes Stripe webhook events and applies idempotent state
// transitions to subscription rows. Signature verification is the
// authentication mechanism for the endpoint; an unverifiable payload is
// rejected before any state is read.
type Reconciler struct {
	svc    *Service
	secret string
}

// NewReconciler creates a reconciler with an explicit webhook secret.
func NewReconciler(svc *Service, secret string) *Reconciler {
	return &Reconciler{svc: svc, secret: strings.TrimSpace(secret)}
}

// NewReconcilerFromEnv reads STRIPE_WEBHOOK_SECRET from the environment.
func NewReconcilerFromEnv(svc *Service) *Reconciler {
	return NewReconciler(svc, env.GetEnv("STRIPE_WEBHOOK_SECRET", ""))
}

// Configured reports whether a webhook secret is present.
func (r *Reconciler) Configured() bool {
	return r != nil && r.secret != ""
}

// VerifyAndParse checks the provider signature over the raw payload. It
// fails on a missing header, a forged signature or a missing secret; no
// state is touched in any of those cases.
func (r *Reconciler) VerifyAndParse(payload []byte, sigHeader string) (*stripe.Event, error) {
	if !r.Configured() {
		return nil, ErrProviderUnavailable
	}
	if strings.TrimSpace(sigHeader) == "" {
		return nil, fmt.Errorf("billing: missing webhook signature header")
	}
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, r.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("billing: webhook signature verification failed: %w", err)
	}
	return &event, nil
}

// HandleEvent dispatches a verified event. Unrecognized kinds are a no-op
// success: the provider must not retry events we intentionally ignore.
// Events are applied as they arrive with no timestamp ordering, so replaying
// any event yields the same row state as the first application.
func (r *Reconciler) HandleEvent(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var sess checkoutSessionEvent
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("billing: decode checkout.session: %w", err)
		}
		if sess.Mode != "" && sess.Mode != "subscription" {
			log.Infof("billing: ignoring %s checkout session %s", sess.Mode, sess.ID)
			return nil
		}
		return r.svc.ApplyCheckoutCompleted(ctx, SubscriptionUpdate{
			OrganizationID:         orgIDFromMetadata(sess.Metadata),
			ProviderCustomerID:     sess.Customer,
			ProviderSubscriptionID: sess.Subscription,
		})

	case "customer.subscription.created", "customer.subscription.updated":
		sub, err := decodeSubscriptionEvent(event.Data.Raw)
		if err != nil {
			return err
		}
		return r.svc.ApplySubscriptionChange(ctx, sub)

	case "customer.subscription.deleted":
		sub, err := decodeSubscriptionEvent(event.Data.Raw)
		if err != nil {
			return err
		}
		return r.svc.ApplySubscriptionDeleted(ctx, sub)

	case "invoice.payment_failed":
		var inv invoiceEvent
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("billing: decode invoice: %w", err)
		}
		return r.svc.ApplyPaymentFailed(ctx, SubscriptionUpdate{
			OrganizationID:         orgIDFromMetadata(inv.Metadata),
			ProviderCustomerID:     inv.Customer,
			ProviderSubscriptionID: inv.Subscription,
		})

	default:
		log.Infof("billing: ignoring webhook event type %s (%s)", event.Type, event.ID)
		return nil
	}
}

// checkoutSessionEvent is a minimal representation of a Stripe
// checkout.session payload.
type checkoutSessionEvent struct {
	ID           string            `json:"id"`
	Mode         string            `json:"mode"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

// subscriptionEvent is a minimal representation of a Stripe subscription
// payload. The period window lives at the top level in older API versions
// and on the subscription item in newer ones; both are read.
type subscriptionEvent struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []struct {
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
			Price              struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

type invoiceEvent struct {
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

func decodeSubscriptionEvent(raw json.RawMessage) (SubscriptionUpdate, error) {
	var sub subscriptionEvent
	if err := json.Unmarshal(raw, &sub); err != nil {
		return SubscriptionUpdate{}, fmt.Errorf("billing: decode subscription: %w", err)
	}

	priceID := ""
	periodStart := sub.CurrentPeriodStart
	periodEnd := sub.CurrentPeriodEnd
	for _, item := range sub.Items.Data {
		if priceID == "" {
			priceID = strings.TrimSpace(item.Price.ID)
		}
		if periodStart == 0 {
			periodStart = item.CurrentPeriodStart
		}
		if periodEnd == 0 {
			periodEnd = item.CurrentPeriodEnd
		}
	}

	return SubscriptionUpdate{
		OrganizationID:         orgIDFromMetadata(sub.Metadata),
		ProviderCustomerID:     sub.Customer,
		ProviderSubscriptionID: sub.ID,
		ProviderPriceID:        priceID,
		Status:                 sub.Status,
		CurrentPeriodStart:     unixTimePtr(periodStart),
		CurrentPeriodEnd:       unixTimePtr(periodEnd),
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
	}, nil
}

func orgIDFromMetadata(meta map[string]string) uint {
	raw := strings.TrimSpace(meta["organization_id"])
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		log.Warnf("billing: unparseable organization_id metadata %q", raw)
		return 0
	}
	return uint(id)
}

func unixTimePtr(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0)
	return &t
}
