package domain

// Recruiter plan tiers.
const (
	PlanRecruiterBasic    = "recruiter_basic"
	PlanRecruiterStandard = "recruiter_standard"
	PlanRecruiterPro      = "recruiter_pro"
)

// Plan represents a paid recruiter plan.
type Plan struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	ApplicationsPerDay int    `json:"applicationsPerDay"`
	PriceUSD           int    `json:"priceUsd"` // Monthly price in USD cents
	Popular            bool   `json:"popular"`
}

// AvailablePlans returns all recruiter plans, cheapest first.
func AvailablePlans() []Plan {
	return []Plan{
		{
			ID:                 PlanRecruiterBasic,
			Name:               "Recruiter Basic",
			ApplicationsPerDay: 4,
			PriceUSD:           19900,
		},
		{
			ID:                 PlanRecruiterStandard,
			Name:               "Recruiter Standard",
			ApplicationsPerDay: 12,
			PriceUSD:           39900,
			Popular:            true,
		},
		{
			ID:                 PlanRecruiterPro,
			Name:               "Recruiter Pro",
			ApplicationsPerDay: 25,
			PriceUSD:           69900,
		},
	}
}

// GetPlan returns the plan for a given ID.
func GetPlan(id string) (Plan, bool) {
	for _, p := range AvailablePlans() {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// IsRecruiterPlan reports whether planType is one of the recruiter tiers.
func IsRecruiterPlan(planType string) bool {
	_, ok := GetPlan(planType)
	return ok
}

// DailyQuota is the number of applications per day a recruiter owes on a plan.
// Unknown plans have no quota.
func DailyQuota(planType string) int {
	p, _ := GetPlan(planType)
	return p.ApplicationsPerDay
}
