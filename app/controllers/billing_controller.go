package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/facilohq/facilo/app/models"
	"github.com/facilohq/facilo/internal/pkg/billing"
	"github.com/facilohq/facilo/internal/pkg/database"
	"github.com/facilohq/facilo/internal/pkg/notify"
	"github.com/facilohq/facilo/internal/pkg/usercontext"
)

type checkoutRequest struct {
	PlanType string `json:"planType"`
}

func newBillingService() *billing.Service {
	svc := billing.NewServiceFromDB(database.GetDB())
	svc.SetNotifier(notify.NewLogNotifier())
	return svc
}

// HandleStartCheckout begins a plan change for the caller's organization.
// Free-tier activation is local and idempotent; payable tiers return a
// provider redirect URL and must not be retried blindly since each call may
// open a new checkout session.
func HandleStartCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.PlanType) == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "planType is required")
	}

	svc := newBillingService()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	result, err := svc.StartCheckout(ctx, userCtx.OrganizationID, userCtx.UserID, req.PlanType)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrPlanNotFound):
			return jsonError(c, fiber.StatusNotFound, "plan_not_found", "Unknown plan type")
		case errors.Is(err, billing.ErrProviderUnavailable):
			return jsonError(c, fiber.StatusServiceUnavailable, "provider_unavailable", "Payment provider is not configured")
		default:
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Checkout failed")
		}
	}

	if result.Activated {
		return c.JSON(fiber.Map{"success": true, "url": result.RedirectURL})
	}
	return c.JSON(fiber.Map{"url": result.RedirectURL})
}

// HandleGetSubscription returns the organization's subscription state. An
// organization without a row is reported as the free tier.
func HandleGetSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	svc := newBillingService()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub, err := svc.GetSubscription(ctx, userCtx.OrganizationID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			plan, perr := svc.EffectivePlan(ctx, userCtx.OrganizationID)
			if perr != nil {
				return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to resolve plan")
			}
			return c.JSON(fiber.Map{
				"plan":   plan,
				"status": models.SubscriptionStatusActive,
			})
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscription")
	}

	return c.JSON(fiber.Map{
		"plan":                 sub.Plan,
		"status":               sub.Status,
		"current_period_start": formatTimePtr(sub.CurrentPeriodStart),
		"current_period_end":   formatTimePtr(sub.CurrentPeriodEnd),
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
	})
}

// HandleListPlans returns the plan catalog for the pricing page.
func HandleListPlans(c *fiber.Ctx) error {
	svc := newBillingService()
	plans, err := svc.ListPlans(context.Background())
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load plans")
	}
	return c.JSON(fiber.Map{"plans": plans})
}

// HandleStripeWebhook receives signed provider events. The status code is
// the only thing the provider inspects: 200 acknowledges (including events
// we intentionally ignore), 400 triggers a retry.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	sigHeader := c.Get("Stripe-Signature")

	svc := newBillingService()
	reconciler := billing.NewReconcilerFromEnv(svc)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	event, verifyErr := reconciler.VerifyAndParse(rawBody, sigHeader)
	if errors.Is(verifyErr, billing.ErrProviderUnavailable) {
		return jsonError(c, fiber.StatusServiceUnavailable, "provider_unavailable", "Webhook secret is not configured")
	}

	eventID := ""
	eventType := ""
	if event != nil {
		eventID = event.ID
		eventType = string(event.Type)
	}

	created, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: eventID,
		EventType:       eventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  verifyErr == nil,
	})
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "webhook_persist_failed", "Failed to persist event")
	}
	if verifyErr != nil {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, verifyErr)
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "Invalid webhook signature")
	}
	// A redelivery is only a pure duplicate once the first delivery was
	// handled cleanly. A stored event whose processing failed gets re-run:
	// the 400 below asks the provider to retry exactly for that case, and
	// the handlers are idempotent upserts.
	if !created && stored.ProcessedOK() {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	handleErr := reconciler.HandleEvent(ctx, event)
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, handleErr)
	if handleErr != nil {
		return jsonError(c, fiber.StatusBadRequest, "processing_failed", handleErr.Error())
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
