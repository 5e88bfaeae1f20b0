// Package queue defines the audit events exchanged over the message
// broker and the machinery to publish and consume them.
package queue

import (
    "time"

    "github.com/google/uuid"
)

// Audit event types emitted by the scheduling engine and the
// subscription lifecycle manager.
const (
    EventViewingConfirmed   = "viewing.confirmed"
    EventViewingRejected    = "viewing.rejected"
    EventViewingCompleted   = "viewing.completed"
    EventViewingCancelled   = "viewing.cancelled"
    EventSubscriptionExpired = "subscription.expired"
)

// AuditEvent is the payload delivered to the audit sink on every
// successful lifecycle transition. Delivery is fire-and-forget: a
// failure to publish never rolls back the transition that produced it.
type AuditEvent struct {
    ID             string `json:"id"`
    Type           string `json:"type"`
    ViewingID      uint64 `json:"viewing_id,omitempty"`
    SubscriptionID uint64 `json:"subscription_id,omitempty"`
    UserID         uint64 `json:"user_id,omitempty"`
    PropertyID     uint64 `json:"property_id,omitempty"`
    OccurredAt     string `json:"occurred_at"`
}

// NewViewingEvent builds an audit event for a viewing transition.
func NewViewingEvent(eventType string, viewingID, userID, propertyID uint64, at time.Time) AuditEvent {
    return AuditEvent{
        ID:         uuid.NewString(),
        Type:       eventType,
        ViewingID:  viewingID,
        UserID:     userID,
        PropertyID: propertyID,
        OccurredAt: at.UTC().Format(time.RFC3339),
    }
}

// NewSubscriptionEvent builds an audit event for a subscription
// transition.
func NewSubscriptionEvent(eventType string, subscriptionID, userID uint64, at time.Time) AuditEvent {
    return AuditEvent{
        ID:             uuid.NewString(),
        Type:           eventType,
        SubscriptionID: subscriptionID,
        UserID:         userID,
        OccurredAt:     at.UTC().Format(time.RFC3339),
    }
}
