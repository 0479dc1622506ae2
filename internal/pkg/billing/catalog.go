package billing

import (
	"github.com/facilohq/facilo/app/models"
)

func limit(v int64) *int64 { return &v }

// defaultPlans is the shipped catalog. Stripe identifiers are not seeded
// here; they are attached per environment through admin configuration and
// survive reseeding because SeedPlan does not touch them.
func defaultPlans() []models.Plan {
	return []models.Plan{
		{
			Tier:              models.PlanTierFree,
			DisplayName:       "Free",
			PriceMonthlyCents: 0,
			PriceYearlyCents:  0,
			MaxUsers:          limit(3),
			MaxObjects:        limit(3),
			MaxStorageBytes:   limit(1 * 1024 * 1024 * 1024), // 1 GiB
			FeaturesJSON:      `["basic_objects","basic_tasks"]`,
		},
		{
			Tier:              models.PlanTierPersonal,
			DisplayName:       "Personal",
			PriceMonthlyCents: 990,
			PriceYearlyCents:  9900,
			MaxUsers:          limit(5),
			MaxObjects:        limit(10),
			MaxStorageBytes:   limit(10 * 1024 * 1024 * 1024), // 10 GiB
			FeaturesJSON:      `["basic_objects","basic_tasks","documents"]`,
		},
		{
			Tier:              models.PlanTierBusiness,
			DisplayName:       "Business",
			PriceMonthlyCents: 4990,
			PriceYearlyCents:  49900,
			MaxUsers:          limit(25),
			MaxObjects:        limit(100),
			MaxStorageBytes:   limit(100 * 1024 * 1024 * 1024), // 100 GiB
			FeaturesJSON:      `["basic_objects","basic_tasks","documents","maintenance_planning"]`,
		},
		{
			Tier:         models.PlanTierEnterprise,
			DisplayName:  "Enterprise",
			FeaturesJSON: `["basic_objects","basic_tasks","documents","maintenance_planning","priority_support"]`,
			// nil limits: unlimited
		},
	}
}

// SeedPlans writes the default catalog. Called once at startup after
// migrations; safe to call repeatedly.
func (s *Service) SeedPlans() error {
	for _, p := range defaultPlans() {
		plan := p
		if err := s.repo.SeedPlan(&plan); err != nil {
			return err
		}
	}
	return nil
}
