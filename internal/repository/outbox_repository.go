package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/travel-booking/internal/database"
	"github.com/iliyamo/travel-booking/internal/model"
)

// OutboxRepo stores events written alongside booking changes.  Create joins
// the caller's transaction; the relay-side methods run on the pool.  A
// single relay instance is assumed: FetchPending does not claim rows.
type OutboxRepo struct{ db *database.DB }

func NewOutboxRepo(db *database.DB) *OutboxRepo { return &OutboxRepo{db: db} }

const outboxColumns = "id,event_type,aggregate_id,payload,status,attempts,last_error,created_at,published_at"

func (r *OutboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error {
	if e.Status == "" {
		e.Status = model.OutboxPending
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	id, err := r.db.InsertID(ctx, executor(ctx, r.db),
		`INSERT INTO outbox_events (event_type, aggregate_id, payload, status, attempts, created_at)
		 VALUES (?,?,?,?,?,?)`,
		e.EventType, e.AggregateID, string(e.Payload), e.Status, e.Attempts, e.CreatedAt.UTC())
	if err != nil {
		return classify("insert outbox event", err)
	}
	e.ID = id
	return nil
}

// FetchPending returns up to limit PENDING events in insertion order.
func (r *OutboxRepo) FetchPending(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind("SELECT "+outboxColumns+" FROM outbox_events WHERE status=? ORDER BY id ASC LIMIT ?"),
		model.OutboxPending, limit)
	if err != nil {
		return nil, classify("query outbox", err)
	}
	return scanOutbox(rows)
}

// ListByAggregate returns every event recorded for one booking reference.
func (r *OutboxRepo) ListByAggregate(ctx context.Context, aggregateID string) ([]model.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind("SELECT "+outboxColumns+" FROM outbox_events WHERE aggregate_id=? ORDER BY id ASC"),
		aggregateID)
	if err != nil {
		return nil, classify("query outbox by aggregate", err)
	}
	return scanOutbox(rows)
}

func scanOutbox(rows *sql.Rows) ([]model.OutboxEvent, error) {
	defer rows.Close()
	var out []model.OutboxEvent
	for rows.Next() {
		var (
			e         model.OutboxEvent
			payload   string
			lastErr   sql.NullString
			published sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.EventType, &e.AggregateID, &payload, &e.Status, &e.Attempts,
			&lastErr, &e.CreatedAt, &published); err != nil {
			return nil, classify("scan outbox event", err)
		}
		e.Payload = []byte(payload)
		e.LastError = lastErr.String
		e.PublishedAt = timePtr(published)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("scan outbox events", err)
	}
	return out, nil
}

// MarkPublished records a successful publish.
func (r *OutboxRepo) MarkPublished(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE outbox_events SET status=?, published_at=? WHERE id=?"),
		model.OutboxPublished, at.UTC(), id)
	return classify("mark published", err)
}

// MarkFailed counts a failed attempt.  The event stays PENDING until it has
// failed maxAttempts times, then it is parked as FAILED.  status is
// assigned before attempts because MySQL evaluates SET left to right.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id uint64, reason string, maxAttempts int) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE outbox_events
			SET status = CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END,
			    last_error = ?,
			    attempts = attempts + 1
			WHERE id = ?`),
		maxAttempts, model.OutboxFailed, model.OutboxPending, reason, id)
	return classify("mark failed", err)
}
