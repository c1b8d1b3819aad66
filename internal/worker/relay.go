// Package worker runs the outbox relay: booking events committed together
// with their booking are picked up here and published to the broker.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/travel-booking/internal/metrics"
	"github.com/iliyamo/travel-booking/internal/model"
)

// Publisher delivers one event to the broker.  key is the booking
// reference.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, body []byte) error
}

// OutboxStore is the part of the outbox the relay works on.
type OutboxStore interface {
	FetchPending(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uint64, at time.Time) error
	MarkFailed(ctx context.Context, id uint64, reason string, maxAttempts int) error
}

// Relay polls PENDING outbox rows in insertion order and publishes them.
// Only one relay may run per database: rows are not claimed, so two relays
// would publish the same event twice.
type Relay struct {
	outbox      OutboxStore
	pub         Publisher
	batch       int
	interval    time.Duration
	maxAttempts int
	sendTimeout time.Duration
}

func NewRelay(outbox OutboxStore, pub Publisher, batch int, interval time.Duration, maxAttempts int) *Relay {
	if batch < 1 {
		batch = 1
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Relay{
		outbox:      outbox,
		pub:         pub,
		batch:       batch,
		interval:    interval,
		maxAttempts: maxAttempts,
		sendTimeout: 5 * time.Second,
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("outbox relay started", "interval", r.interval, "batch", r.batch)
	for {
		select {
		case <-ctx.Done():
			slog.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := r.ProcessBatch(ctx); err != nil {
				slog.Error("outbox relay: batch failed", "err", err)
			}
		}
	}
}

// ProcessBatch publishes one batch and returns how many events went out.
// A failed publish is counted against the event and does not stop the
// rest of the batch, but later events of the same booking are held back
// until it goes out or is parked, so a cancellation never overtakes its
// confirmation.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	events, err := r.outbox.FetchPending(ctx, r.batch)
	if err != nil {
		return 0, err
	}

	sent := 0
	blocked := map[string]bool{}
	for _, e := range events {
		if blocked[e.AggregateID] {
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
		err := r.pub.Publish(sendCtx, e.EventType, e.AggregateID, e.Payload)
		cancel()

		if err != nil {
			metrics.OutboxPublishErrors.Inc()
			slog.Warn("outbox relay: publish failed", "event_id", e.ID, "type", e.EventType, "attempts", e.Attempts+1, "err", err)
			if mErr := r.outbox.MarkFailed(ctx, e.ID, err.Error(), r.maxAttempts); mErr != nil {
				return sent, mErr
			}
			blocked[e.AggregateID] = true
			continue
		}

		if err := r.outbox.MarkPublished(ctx, e.ID, time.Now().UTC()); err != nil {
			return sent, err
		}
		metrics.OutboxPublished.Inc()
		sent++
	}
	if sent > 0 {
		slog.Debug("outbox relay: published", "count", sent)
	}
	return sent, nil
}
