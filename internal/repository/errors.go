// Package repository defines the data access layer and the sentinel
// errors shared by stores, the scheduling engine and the lifecycle
// manager. Handlers translate each sentinel into a stable HTTP status;
// the stores and engines never retry on them.
package repository

import "errors"

// ErrNotFound is returned when a referenced property, user, viewing or
// subscription does not exist. Handlers map it to 404.
var ErrNotFound = errors.New("not found")

// ErrInvalidSchedule is returned for a viewing request whose date/time is
// malformed or not strictly in the future, or whose property is not
// available. Handlers map it to 400.
var ErrInvalidSchedule = errors.New("invalid schedule")

// ErrConflictingViewing is returned when the (property, date) slot already
// has a pending or confirmed viewing. The check is day-granular on
// purpose: one agent-facing slot per calendar day regardless of the
// time requested. Handlers map it to 409.
var ErrConflictingViewing = errors.New("conflicting viewing")

// ErrForbidden is returned when the acting user lacks authorization for
// the requested operation. Handlers map it to 403.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidTransition is returned when the requested status edge does
// not exist from the viewing's current state. Handlers map it to 422.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrAlreadyExists is returned when creating a subscription for a user
// who already has one. Handlers map it to 409.
var ErrAlreadyExists = errors.New("already exists")

// ErrInvalidDowngrade is returned when an upgrade targets a tier ranked
// at or below the current one. Handlers map it to 422.
var ErrInvalidDowngrade = errors.New("invalid downgrade")

// ErrInvalidPlan is returned when a plan type outside the closed tier set
// reaches the lifecycle manager. Handlers map it to 400.
var ErrInvalidPlan = errors.New("invalid plan type")

// ErrEmailExists is returned on registration with a taken email.
var ErrEmailExists = errors.New("email already exists")
