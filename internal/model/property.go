package model

import "time"

// Property is a listing owned by an agent. The scheduling engine treats
// properties as an external directory; only existence, ownership and
// availability feed into its decisions.
//
// Fields:
//  ID          – primary key identifier.
//  OwnerID     – agent who listed the property.
//  Title       – short listing title.
//  City        – city the property is located in.
//  Address     – street address.
//  PriceCents  – asking price in cents.
//  Available   – whether viewings may be scheduled.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Property struct {
    ID         uint64    // properties.id
    OwnerID    uint64    // properties.owner_id
    Title      string    // properties.title
    City       string    // properties.city
    Address    string    // properties.address
    PriceCents uint64    // properties.price_cents
    Available  bool      // properties.available
    CreatedAt  time.Time // properties.created_at
    UpdatedAt  time.Time // properties.updated_at
}

// PropertyRef is the slice of a property the scheduling engine needs.
type PropertyRef struct {
    ID        uint64
    OwnerID   uint64
    Available bool
}

// Ref projects the directory view of the property.
func (p *Property) Ref() PropertyRef {
    return PropertyRef{ID: p.ID, OwnerID: p.OwnerID, Available: p.Available}
}
