package core

import (
	"fmt"
	"strings"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
)

// PlanLimits describes what a plan allows. Zero means unlimited for the
// numeric limits.
type PlanLimits struct {
	MonthlyRuns      int  `json:"monthly_runs"`
	MaxOpportunities int  `json:"max_opportunities"`
	Competitors      bool `json:"competitors"`
	Export           bool `json:"export"`
}

var planLimits = map[Plan]PlanLimits{
	PlanFree:    {MonthlyRuns: 1, MaxOpportunities: 50},
	PlanStarter: {MonthlyRuns: 5, MaxOpportunities: 50},
	PlanPro:     {Competitors: true, Export: true},
}

// Limits returns the limits of the plan. Unknown plans get the free limits.
func (p Plan) Limits() PlanLimits {
	if l, ok := planLimits[p]; ok {
		return l
	}
	return planLimits[PlanFree]
}

// ParsePlan parses a case-insensitive plan name.
func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := planLimits[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlan, s)
	}
	return p, nil
}
