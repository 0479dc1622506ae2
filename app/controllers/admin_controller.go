package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/facilohq/facilo/internal/pkg/billing"
	"github.com/facilohq/facilo/internal/pkg/database"
	"github.com/facilohq/facilo/internal/pkg/quota"
)

type adminOverrideRequest struct {
	PlanID uint   `json:"planId"`
	Status string `json:"status"`
}

// HandleAdminOverrideSubscription pins an organization's plan and status.
// Rows written here are tagged as admin-owned, so incoming provider webhooks
// refresh external identifiers but leave plan and status alone until the
// override is cleared.
func HandleAdminOverrideSubscription(c *fiber.Ctx) error {
	orgID := paramUint(c, "id")
	if orgID == 0 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid organization id")
	}

	var req adminOverrideRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub, err := newBillingService().AdminOverride(ctx, orgID, req.PlanID, req.Status)
	if err != nil {
		if errors.Is(err, billing.ErrPlanNotFound) {
			return jsonError(c, fiber.StatusNotFound, "plan_not_found", "Unknown plan")
		}
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", err.Error())
	}
	return c.JSON(sub)
}

// HandleAdminClearOverride hands the subscription row back to the provider.
func HandleAdminClearOverride(c *fiber.Ctx) error {
	orgID := paramUint(c, "id")
	if orgID == 0 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid organization id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := newBillingService().ClearAdminOverride(ctx, orgID); err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "No subscription for organization")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to clear override")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleAdminRecalculateStorage rebuilds the storage snapshot for an
// organization from the document table. Used when the incremental counter
// has drifted, for example after a failed upload cleanup.
func HandleAdminRecalculateStorage(c *fiber.Ctx) error {
	orgID := paramUint(c, "id")
	if orgID == 0 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid organization id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	total, err := quota.NewGormCounters(database.GetDB()).RecalculateStorage(ctx, orgID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Recalculation failed")
	}
	return c.JSON(fiber.Map{"organization_id": orgID, "total_used_bytes": total})
}

// HandleAdminGetUsage reports live usage for every metered dimension.
func HandleAdminGetUsage(c *fiber.Ctx) error {
	orgID := paramUint(c, "id")
	if orgID == 0 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid organization id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	guard := newQuotaGuard()
	usage := fiber.Map{}
	for _, kind := range []quota.Kind{quota.KindUsers, quota.KindObjects, quota.KindStorage} {
		decision, err := guard.Usage(ctx, orgID, kind)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to read usage")
		}
		usage[string(kind)] = decision
	}
	return c.JSON(fiber.Map{"organization_id": orgID, "usage": usage})
}
