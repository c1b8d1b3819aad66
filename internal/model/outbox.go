package model

import "time"

// Outbox statuses.
const (
    OutboxPending   = "PENDING"
    OutboxPublished = "PUBLISHED"
    OutboxFailed    = "FAILED"
)

// OutboxEvent is a domain event written in the same transaction as the
// state change it describes and relayed to the broker afterwards.
type OutboxEvent struct {
    ID          uint64     // outbox_events.id
    EventType   string     // outbox_events.event_type
    AggregateID string     // outbox_events.aggregate_id (booking reference)
    Payload     []byte     // outbox_events.payload (JSON)
    Status      string     // outbox_events.status
    Attempts    int        // outbox_events.attempts
    LastError   string     // outbox_events.last_error
    CreatedAt   time.Time  // outbox_events.created_at
    PublishedAt *time.Time // outbox_events.published_at (nullable)
}
