package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/facilohq/facilo/internal/pkg/billing"
	"github.com/facilohq/facilo/internal/pkg/cache"
	"github.com/facilohq/facilo/internal/pkg/database"
	"github.com/facilohq/facilo/internal/pkg/quota"
	"github.com/facilohq/facilo/internal/pkg/usercontext"
)

// quotaCacheTTL bounds staleness of the quota display endpoints. Usage
// changes are not latency-sensitive for display, so a few seconds of
// caching keeps the counters off the hot path.
const quotaCacheTTL = 15 * time.Second

func newQuotaGuard() *quota.Guard {
	db := database.GetDB()
	return quota.NewGuard(billing.NewServiceFromDB(db), quota.NewGormCounters(db))
}

// HandleGetQuota returns current usage and limits for all resource kinds.
func HandleGetQuota(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	orgID := userCtx.OrganizationID

	cacheKey := fmt.Sprintf("quota:%d:all", orgID)
	var cached fiber.Map
	if err := cache.GetJSON(cacheKey, &cached); err == nil {
		return c.JSON(cached)
	}

	guard := newQuotaGuard()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := fiber.Map{}
	for _, kind := range []quota.Kind{quota.KindUsers, quota.KindObjects, quota.KindStorage} {
		decision, err := guard.Usage(ctx, orgID, kind)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to compute usage")
		}
		result[string(kind)] = decision
	}

	_ = cache.SetJSON(cacheKey, result, quotaCacheTTL)
	return c.JSON(result)
}

// HandleCheckQuota answers whether the organization may consume delta more
// units of one resource kind. Read-only; callers perform the mutation.
func HandleCheckQuota(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	orgID := userCtx.OrganizationID

	kind := quota.Kind(c.Params("kind"))
	switch kind {
	case quota.KindUsers, quota.KindObjects, quota.KindStorage:
	default:
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Unknown resource kind")
	}

	delta := int64(c.QueryInt("delta", 1))
	if delta < 0 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "delta must be >= 0")
	}

	cacheKey := fmt.Sprintf("quota:%d:%s:%d", orgID, kind, delta)
	var cached quota.Decision
	if err := cache.GetJSON(cacheKey, &cached); err == nil {
		return c.JSON(cached)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	decision, err := newQuotaGuard().CheckLimit(ctx, orgID, kind, delta)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to check limit")
	}

	_ = cache.SetJSON(cacheKey, decision, quotaCacheTTL)
	return c.JSON(decision)
}
