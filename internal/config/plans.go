package config

import (
    "github.com/homescope/viewing-api/internal/model"
)

// LoadPlanPolicy builds the plan policy handed to the subscription
// lifecycle manager. Defaults mirror the product's published tiers and
// can be overridden per tier:
//
//   PLAN_<TIER>_TERM_MONTHS, PLAN_<TIER>_TERM_YEARS, PLAN_<TIER>_PRICE_CENTS
//
// A tier with zero months and zero years never expires.
func LoadPlanPolicy() model.PlanPolicy {
    policy := model.DefaultPlanPolicy()
    for plan, prefix := range map[model.PlanType]string{
        model.PlanFree:       "PLAN_FREE_",
        model.PlanBasic:      "PLAN_BASIC_",
        model.PlanPremium:    "PLAN_PREMIUM_",
        model.PlanEnterprise: "PLAN_ENTERPRISE_",
    } {
        term := policy.Terms[plan]
        term.Months = envInt(prefix+"TERM_MONTHS", term.Months)
        term.Years = envInt(prefix+"TERM_YEARS", term.Years)
        term.PriceCents = int64(envInt(prefix+"PRICE_CENTS", int(term.PriceCents)))
        policy.Terms[plan] = term
    }
    return policy
}
