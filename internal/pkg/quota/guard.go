package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/facilohq/facilo/app/models"
)

// Kind identifies a metered resource.
type Kind string

const (
	KindUsers   Kind = "users"
	KindObjects Kind = "objects"
	KindStorage Kind = "storage"
)

var ErrUnknownKind = errors.New("quota: unknown resource kind")

// Decision is the outcome of a limit check. Current and Limit are reported
// even when the check fails so callers can render usage to the user.
// Unlimited decisions carry Limit == 0.
type Decision struct {
	Allowed   bool  `json:"allowed"`
	Current   int64 `json:"current"`
	Limit     int64 `json:"limit"`
	Unlimited bool  `json:"unlimited"`
}

// PlanResolver resolves the effective plan for an organization. When no
// subscription exists, or the lookup fails, implementations fall back to
// the free plan so limit checks stay conservative.
type PlanResolver interface {
	EffectivePlan(ctx context.Context, orgID uint) (*models.Plan, error)
}

// Counters reports current resource usage for an organization.
type Counters interface {
	Count(ctx context.Context, orgID uint, kind Kind) (int64, error)
}

// Guard checks prospective resource consumption against plan limits. The
// check is read-only: it never reserves capacity, so two concurrent writers
// can both pass a check that only one of them should. Callers accept this
// because limits are advisory, not billing-grade.
type Guard struct {
	plans    PlanResolver
	counters Counters
}

func NewGuard(plans PlanResolver, counters Counters) *Guard {
	return &Guard{plans: plans, counters: counters}
}

// CheckLimit reports whether an organization may consume delta more units of
// a resource. A zero delta answers "is the org currently within its limit".
// Negative deltas are rejected; releases never need a check.
func (g *Guard) CheckLimit(ctx context.Context, orgID uint, kind Kind, delta int64) (Decision, error) {
	if delta < 0 {
		return Decision{}, fmt.Errorf("quota: negative delta %d for %s", delta, kind)
	}

	plan, err := g.plans.EffectivePlan(ctx, orgID)
	if err != nil {
		return Decision{}, fmt.Errorf("quota: resolve plan for org %d: %w", orgID, err)
	}

	limit, err := limitFor(plan, kind)
	if err != nil {
		return Decision{}, err
	}

	current, err := g.counters.Count(ctx, orgID, kind)
	if err != nil {
		return Decision{}, fmt.Errorf("quota: count %s for org %d: %w", kind, orgID, err)
	}

	if limit == nil {
		return Decision{Allowed: true, Current: current, Unlimited: true}, nil
	}

	d := Decision{
		Allowed: current+delta <= *limit,
		Current: current,
		Limit:   *limit,
	}
	if !d.Allowed {
		log.Infof("quota: org %d denied %s delta %d (current %d, limit %d)", orgID, kind, delta, current, *limit)
	}
	return d, nil
}

// Usage returns the current consumption and limit for one resource without
// checking a prospective delta.
func (g *Guard) Usage(ctx context.Context, orgID uint, kind Kind) (Decision, error) {
	return g.CheckLimit(ctx, orgID, kind, 0)
}

func limitFor(plan *models.Plan, kind Kind) (*int64, error) {
	switch kind {
	case KindUsers:
		return plan.MaxUsers, nil
	case KindObjects:
		return plan.MaxObjects, nil
	case KindStorage:
		return plan.MaxStorageBytes, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
