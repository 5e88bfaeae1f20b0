package model

import "time"

// ViewingStatus enumerates the states a viewing request can be in.
// The set is closed; any value outside these constants is rejected
// at the boundary by ParseViewingStatus.
type ViewingStatus string

const (
    ViewingPending   ViewingStatus = "PENDING"   // submitted, awaiting agent action
    ViewingConfirmed ViewingStatus = "CONFIRMED" // confirmed by the property's agent
    ViewingRejected  ViewingStatus = "REJECTED"  // rejected with a reason
    ViewingCompleted ViewingStatus = "COMPLETED" // the viewing took place
    ViewingCancelled ViewingStatus = "CANCELLED" // withdrawn by the requester or an admin
)

// viewingTransitions is the explicit edge table of the status machine.
// Rejected, Completed and Cancelled have no outgoing edges.
var viewingTransitions = map[ViewingStatus]map[ViewingStatus]bool{
    ViewingPending: {
        ViewingConfirmed: true,
        ViewingRejected:  true,
        ViewingCancelled: true,
    },
    ViewingConfirmed: {
        ViewingCompleted: true,
        ViewingCancelled: true,
    },
}

// CanTransitionTo reports whether the edge from s to target exists.
func (s ViewingStatus) CanTransitionTo(target ViewingStatus) bool {
    return viewingTransitions[s][target]
}

// Terminal reports whether s has no outgoing edges.
func (s ViewingStatus) Terminal() bool {
    return len(viewingTransitions[s]) == 0
}

// Valid reports whether s is one of the defined statuses.
func (s ViewingStatus) Valid() bool {
    switch s {
    case ViewingPending, ViewingConfirmed, ViewingRejected, ViewingCompleted, ViewingCancelled:
        return true
    }
    return false
}

// ParseViewingStatus returns the status matching raw (case sensitive,
// matching the stored column values) and whether it was recognized.
func ParseViewingStatus(raw string) (ViewingStatus, bool) {
    s := ViewingStatus(raw)
    return s, s.Valid()
}

// Viewing records one request to view a property on a calendar date at a
// time of day. The conflict rule operates on (PropertyID, ViewingDate)
// only; ViewingTime is informational for the agent.
//
// Exactly one of the four transition timestamps is set once Status leaves
// PENDING, and it matches the current status. RejectionReason is set only
// when Status is REJECTED.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – requesting user.
//  PropertyID      – property to be viewed.
//  ViewingDate     – calendar date of the viewing (midnight UTC).
//  ViewingTime     – time of day in "HH:MM" form.
//  Status          – current state in the machine above.
//  Notes           – optional note from the requester.
//  RejectionReason – agent's reason, REJECTED only.
//  CreatedAt       – creation timestamp.
//  ConfirmedAt     – set on PENDING → CONFIRMED.
//  RejectedAt      – set on PENDING → REJECTED.
//  CompletedAt     – set on CONFIRMED → COMPLETED.
//  CancelledAt     – set on cancel from PENDING or CONFIRMED.
type Viewing struct {
    ID              uint64        // viewings.id
    UserID          uint64        // viewings.user_id
    PropertyID      uint64        // viewings.property_id
    ViewingDate     time.Time     // viewings.viewing_date (DATE)
    ViewingTime     string        // viewings.viewing_time (TIME, "HH:MM")
    Status          ViewingStatus // viewings.status
    Notes           *string       // viewings.notes (nullable)
    RejectionReason *string       // viewings.rejection_reason (nullable)
    CreatedAt       time.Time     // viewings.created_at
    ConfirmedAt     *time.Time    // viewings.confirmed_at (nullable)
    RejectedAt      *time.Time    // viewings.rejected_at (nullable)
    CompletedAt     *time.Time    // viewings.completed_at (nullable)
    CancelledAt     *time.Time    // viewings.cancelled_at (nullable)
}

// DateOnly truncates t to its calendar date in UTC. Viewing dates and
// subscription start/end dates are always stored this way.
func DateOnly(t time.Time) time.Time {
    y, m, d := t.UTC().Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
