package model

import "time"

// Booking statuses.
const (
    BookingConfirmed = "CONFIRMED"
    BookingCancelled = "CANCELLED"
)

// Booking records one unit of a resource's capacity held by a user.
// UserID and ResourceID never change after creation; Status only moves
// from CONFIRMED to CANCELLED.
//
// Fields:
//  ID             – primary key identifier.
//  Reference      – public UUID handed to clients and events.
//  UserID         – owner of the booking.
//  ResourceID     – booked resource.
//  Status         – CONFIRMED or CANCELLED.
//  Assignment     – seat or room label.
//  IdempotencyKey – caller-supplied key, unique per user (optional).
//  CreatedAt      – creation timestamp.
//  CancelledAt    – when the booking was cancelled (nullable).
type Booking struct {
    ID             uint64     `json:"id"`                        // bookings.id
    Reference      string     `json:"reference"`                 // bookings.reference
    UserID         uint64     `json:"user_id"`                   // bookings.user_id
    ResourceID     uint64     `json:"resource_id"`               // bookings.resource_id
    Status         string     `json:"status"`                    // bookings.status
    Assignment     string     `json:"assignment"`                // bookings.assignment
    IdempotencyKey string     `json:"idempotency_key,omitempty"` // bookings.idempotency_key (nullable)
    CreatedAt      time.Time  `json:"created_at"`                // bookings.created_at
    CancelledAt    *time.Time `json:"cancelled_at,omitempty"`    // bookings.cancelled_at (nullable)
}

// BookingDetail joins a booking with the resource it holds, for listings
// and the booking detail endpoint.
type BookingDetail struct {
    Booking
    ResourceCode string       `json:"resource_code"`
    ResourceKind ResourceKind `json:"resource_kind"`
    ResourceName string       `json:"resource_name"`
    Origin       string       `json:"origin,omitempty"`
    Destination  string       `json:"destination,omitempty"`
    Location     string       `json:"location,omitempty"`
    StartsAt     *time.Time   `json:"starts_at,omitempty"`
    EndsAt       *time.Time   `json:"ends_at,omitempty"`
    PriceCents   int64        `json:"price_cents"`
}
