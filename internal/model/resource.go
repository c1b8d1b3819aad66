package model

import (
    "strconv"
    "time"
)

// ResourceKind distinguishes flights from places (rooms).
type ResourceKind string

const (
    KindFlight ResourceKind = "FLIGHT"
    KindPlace  ResourceKind = "PLACE"
)

// Valid reports whether k is a known kind.
func (k ResourceKind) Valid() bool { return k == KindFlight || k == KindPlace }

// labelPrefix is the leading letter of an assignment label: A for flight
// seats, R for rooms.
func (k ResourceKind) labelPrefix() string {
    if k == KindPlace {
        return "R"
    }
    return "A"
}

// AssignmentLabel derives the seat or room label from the capacity left
// after the decrement that admitted the booking, e.g. A149 for the first
// seat sold on a 150-seat flight.  Labels are not unique once bookings are
// cancelled out of order.
func AssignmentLabel(kind ResourceKind, remainingAfter int) string {
    return kind.labelPrefix() + strconv.Itoa(remainingAfter)
}

// Resource is a bookable inventory unit stored in `resources`.  Flights
// use Origin/Destination and StartsAt/EndsAt as departure/arrival; places
// use Name/Location and StartsAt/EndsAt as check-in/check-out.
//
// Fields:
//  ID                – primary key identifier.
//  Kind              – FLIGHT or PLACE.
//  Code              – unique identifying code (flight number, room code).
//  Name              – display name.
//  Origin            – departure airport/city (flights).
//  Destination       – arrival airport/city (flights).
//  Location          – address or city (places).
//  StartsAt          – departure or check-in time (nullable).
//  EndsAt            – arrival or check-out time (nullable).
//  CapacityTotal     – total bookable units.
//  CapacityRemaining – units still available; mutated only by the
//                      conditional decrement/increment in the ledger.
//  PriceCents        – unit price in cents.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Resource struct {
    ID                uint64       `json:"id"`                    // resources.id
    Kind              ResourceKind `json:"kind"`                  // resources.kind
    Code              string       `json:"code"`                  // resources.code
    Name              string       `json:"name"`                  // resources.name
    Origin            string       `json:"origin,omitempty"`      // resources.origin
    Destination       string       `json:"destination,omitempty"` // resources.destination
    Location          string       `json:"location,omitempty"`    // resources.location
    StartsAt          *time.Time   `json:"starts_at,omitempty"`   // resources.starts_at
    EndsAt            *time.Time   `json:"ends_at,omitempty"`     // resources.ends_at
    CapacityTotal     int          `json:"capacity_total"`        // resources.capacity_total
    CapacityRemaining int          `json:"capacity_remaining"`    // resources.capacity_remaining
    PriceCents        int64        `json:"price_cents"`           // resources.price_cents
    CreatedAt         time.Time    `json:"created_at"`            // resources.created_at
    UpdatedAt         time.Time    `json:"updated_at"`            // resources.updated_at
}

// CapacityAudit compares a resource's stored remaining capacity with the
// value implied by its confirmed bookings.
type CapacityAudit struct {
    ResourceID        uint64 `json:"resource_id"`
    Code              string `json:"code"`
    CapacityTotal     int    `json:"capacity_total"`
    CapacityRemaining int    `json:"capacity_remaining"`
    ConfirmedBookings int    `json:"confirmed_bookings"`
    Consistent        bool   `json:"consistent"`
}
