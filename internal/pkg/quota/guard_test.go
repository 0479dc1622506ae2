package quota

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilohq/facilo/app/models"
)

type stubPlans struct {
	plan *models.Plan
	err  error
}

func (s *stubPlans) EffectivePlan(ctx context.Context, orgID uint) (*models.Plan, error) {
	return s.plan, s.err
}

type stubCounters struct {
	counts map[Kind]int64
	err    error
}

func (s *stubCounters) Count(ctx context.Context, orgID uint, kind Kind) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.counts[kind], nil
}

func int64Ptr(v int64) *int64 { return &v }

func TestCheckLimit(t *testing.T) {
	tests := []struct {
		name      string
		limit     *int64
		current   int64
		delta     int64
		allowed   bool
		unlimited bool
	}{
		{name: "well under limit", limit: int64Ptr(10), current: 3, delta: 1, allowed: true},
		{name: "exactly at ceiling", limit: int64Ptr(10), current: 9, delta: 1, allowed: true},
		{name: "one over ceiling", limit: int64Ptr(10), current: 10, delta: 1, allowed: false},
		{name: "zero delta within limit", limit: int64Ptr(10), current: 10, delta: 0, allowed: true},
		{name: "zero delta already over", limit: int64Ptr(10), current: 12, delta: 0, allowed: false},
		{name: "zero limit blocks everything", limit: int64Ptr(0), current: 0, delta: 1, allowed: false},
		{name: "nil limit is unlimited", limit: nil, current: 1_000_000, delta: 1_000_000, allowed: true, unlimited: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := NewGuard(
				&stubPlans{plan: &models.Plan{Tier: models.PlanTierPersonal, MaxUsers: tt.limit}},
				&stubCounters{counts: map[Kind]int64{KindUsers: tt.current}},
			)

			d, err := guard.CheckLimit(context.Background(), 1, KindUsers, tt.delta)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.current, d.Current)
			assert.Equal(t, tt.unlimited, d.Unlimited)
			if tt.limit != nil {
				assert.Equal(t, *tt.limit, d.Limit)
			}
		})
	}
}

func TestCheckLimitRejectsNegativeDelta(t *testing.T) {
	guard := NewGuard(
		&stubPlans{plan: &models.Plan{Tier: models.PlanTierFree, MaxUsers: int64Ptr(1)}},
		&stubCounters{counts: map[Kind]int64{KindUsers: 0}},
	)

	_, err := guard.CheckLimit(context.Background(), 1, KindUsers, -1)
	require.Error(t, err)
}

func TestCheckLimitUnknownKind(t *testing.T) {
	guard := NewGuard(
		&stubPlans{plan: &models.Plan{Tier: models.PlanTierFree}},
		&stubCounters{counts: map[Kind]int64{}},
	)

	_, err := guard.CheckLimit(context.Background(), 1, Kind("bananas"), 1)
	require.ErrorIs(t, err, ErrUnknownKind)
}

// A free organization fills its three object slots, gets denied on the
// fourth, and regains headroom after moving to a bigger plan.
func TestObjectQuotaAcrossPlanUpgrade(t *testing.T) {
	plans := &stubPlans{plan: &models.Plan{Tier: models.PlanTierFree, MaxObjects: int64Ptr(3)}}
	counters := &stubCounters{counts: map[Kind]int64{KindObjects: 0}}
	guard := NewGuard(plans, counters)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := guard.CheckLimit(ctx, 1, KindObjects, 1)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		counters.counts[KindObjects]++
	}

	d, err := guard.CheckLimit(ctx, 1, KindObjects, 1)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(3), d.Current)

	plans.plan = &models.Plan{Tier: models.PlanTierPersonal, MaxObjects: int64Ptr(10)}

	d, err = guard.CheckLimit(ctx, 1, KindObjects, 1)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(10), d.Limit)
}

// The check is advisory: two callers that both pre-check at limit-1 both get
// a green light, and the second mutation lands one unit over the limit. This
// pins the accepted behavior so a future hard-enforcement change is a
// deliberate one.
func TestCheckThenActRaceIsPermitted(t *testing.T) {
	counters := &stubCounters{counts: map[Kind]int64{KindUsers: 4}}
	guard := NewGuard(
		&stubPlans{plan: &models.Plan{Tier: models.PlanTierPersonal, MaxUsers: int64Ptr(5)}},
		counters,
	)
	ctx := context.Background()

	first, err := guard.CheckLimit(ctx, 1, KindUsers, 1)
	require.NoError(t, err)
	second, err := guard.CheckLimit(ctx, 1, KindUsers, 1)
	require.NoError(t, err)

	assert.True(t, first.Allowed)
	assert.True(t, second.Allowed)

	// both callers act on their decision
	counters.counts[KindUsers] += 2

	after, err := guard.Usage(ctx, 1, KindUsers)
	require.NoError(t, err)
	assert.False(t, after.Allowed)
	assert.Equal(t, int64(6), after.Current)
}

func TestCheckLimitPropagatesResolverError(t *testing.T) {
	guard := NewGuard(
		&stubPlans{err: assert.AnError},
		&stubCounters{counts: map[Kind]int64{}},
	)

	_, err := guard.CheckLimit(context.Background(), 1, KindUsers, 1)
	require.Error(t, err)
}
