package model

import "time"

// PlanType enumerates subscription tiers. The order is total and is the
// basis for every feature-gate comparison: FREE < BASIC < PREMIUM <
// ENTERPRISE.
type PlanType string

const (
    PlanFree       PlanType = "FREE"
    PlanBasic      PlanType = "BASIC"
    PlanPremium    PlanType = "PREMIUM"
    PlanEnterprise PlanType = "ENTERPRISE"
)

var planRanks = map[PlanType]int{
    PlanFree:       0,
    PlanBasic:      1,
    PlanPremium:    2,
    PlanEnterprise: 3,
}

// Rank returns the numeric position of p in the tier order, or -1 for an
// unknown plan.
func (p PlanType) Rank() int {
    if r, ok := planRanks[p]; ok {
        return r
    }
    return -1
}

// Valid reports whether p is a defined tier.
func (p PlanType) Valid() bool { return p.Rank() >= 0 }

// ParsePlanType returns the tier matching raw and whether it was
// recognized.
func ParsePlanType(raw string) (PlanType, bool) {
    p := PlanType(raw)
    return p, p.Valid()
}

// Subscription is the single current plan of one user. There is at most
// one row per user; plans are deactivated, never deleted.
//
// Active and expiry are independent: a manually cancelled subscription is
// inactive but may not be expired, and an active one may already be past
// its end date if the sweep has not run yet.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – owner; unique across rows.
//  PlanType   – current tier.
//  StartDate  – calendar date the current term started.
//  EndDate    – calendar date the term ends; nil means no fixed expiry.
//  PriceCents – term price in cents; nil when not set.
//  Active     – whether the subscription is in force.
//  AutoRenew  – whether the sweep extends the term instead of deactivating.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – touched on every mutation.
type Subscription struct {
    ID         uint64     // subscriptions.id
    UserID     uint64     // subscriptions.user_id (unique)
    PlanType   PlanType   // subscriptions.plan_type
    StartDate  time.Time  // subscriptions.start_date (DATE)
    EndDate    *time.Time // subscriptions.end_date (nullable DATE)
    PriceCents *int64     // subscriptions.price_cents (nullable)
    Active     bool       // subscriptions.active
    AutoRenew  bool       // subscriptions.auto_renew
    CreatedAt  time.Time  // subscriptions.created_at
    UpdatedAt  time.Time  // subscriptions.updated_at
}

// IsExpired reports whether the subscription's end date lies strictly
// before today. It is derived on every read, never stored.
func (s *Subscription) IsExpired(today time.Time) bool {
    if s.EndDate == nil {
        return false
    }
    return DateOnly(*s.EndDate).Before(DateOnly(today))
}

// PlanTerm describes the term length and price of one tier. A zero
// Months/Years pair means the plan never expires.
type PlanTerm struct {
    Months     int
    Years      int
    PriceCents int64
}

// Open reports whether the term has no fixed length.
func (t PlanTerm) Open() bool { return t.Months == 0 && t.Years == 0 }

// EndDate computes the term's end date starting from the given day, or
// nil for an open term.
func (t PlanTerm) EndDate(from time.Time) *time.Time {
    if t.Open() {
        return nil
    }
    end := DateOnly(from).AddDate(t.Years, t.Months, 0)
    return &end
}

// PlanPolicy maps each tier to its term. It is explicit configuration
// handed to the lifecycle manager at construction; the engine holds no
// process-wide plan table.
type PlanPolicy struct {
    Terms map[PlanType]PlanTerm
}

// Term returns the configured term for p, falling back to an open
// zero-priced term for unknown or unconfigured tiers.
func (pp PlanPolicy) Term(p PlanType) PlanTerm {
    if t, ok := pp.Terms[p]; ok {
        return t
    }
    return PlanTerm{}
}

// DefaultPlanPolicy is the standard pricing: FREE is open-ended, BASIC
// and PREMIUM run one month, ENTERPRISE one year.
func DefaultPlanPolicy() PlanPolicy {
    return PlanPolicy{Terms: map[PlanType]PlanTerm{
        PlanFree:       {},
        PlanBasic:      {Months: 1, PriceCents: 999},
        PlanPremium:    {Months: 1, PriceCents: 1999},
        PlanEnterprise: {Years: 1, PriceCents: 4999},
    }}
}
