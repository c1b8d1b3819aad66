// Package queue defines message payloads exchanged over the message broker
// and the broker adapters that carry them.
package queue

import "time"

// Event types.  With RabbitMQ each type is also the name of its durable
// queue.
const (
    EventBookingConfirmed = "booking.confirmed"
    EventBookingCancelled = "booking.cancelled"
)

// EventTypes lists every event the booking engine emits.
var EventTypes = []string{EventBookingConfirmed, EventBookingCancelled}

// BookingEvent is published whenever a booking is confirmed or cancelled.
// It carries enough information for downstream consumers to log, notify or
// trigger analytics without querying the primary database.
type BookingEvent struct {
    Type         string    `json:"type"`
    BookingID    uint64    `json:"booking_id"`
    Reference    string    `json:"reference"`
    UserID       uint64    `json:"user_id"`
    ResourceID   uint64    `json:"resource_id"`
    ResourceCode string    `json:"resource_code"`
    Kind         string    `json:"kind"`
    Assignment   string    `json:"assignment"`
    Status       string    `json:"status"`
    PriceCents   int64     `json:"price_cents"`
    OccurredAt   time.Time `json:"occurred_at"`
}
