package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/metrics"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/queue"
	"github.com/iliyamo/travel-booking/internal/repository"
)

// ResourceLedger is the inventory the engine draws capacity from.
// Decrement and Increment must run on the transaction carried by ctx.
type ResourceLedger interface {
	GetByID(ctx context.Context, id uint64) (*model.Resource, error)
	Decrement(ctx context.Context, id uint64) (*model.Resource, error)
	Increment(ctx context.Context, id uint64) error
}

// BookingStore persists bookings.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) (uint64, error)
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	GetByUserAndKey(ctx context.Context, userID uint64, key string) (*model.Booking, error)
	MarkCancelled(ctx context.Context, id uint64, at time.Time) error
	GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
}

// UserLookup resolves the caller of a booking operation.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// EventRecorder stores booking events in the outbox.  It runs on the same
// transaction as the booking change.
type EventRecorder interface {
	Create(ctx context.Context, e *model.OutboxEvent) error
}

// BookingService is the booking engine.  Every reserve and cancel runs the
// capacity change, the booking row change and the outbox insert in one
// transaction.
type BookingService struct {
	tx       repository.Transactor
	users    UserLookup
	ledger   ResourceLedger
	bookings BookingStore
	events   EventRecorder
	retry    retryPolicy
	now      func() time.Time
}

// NewBookingService wires the engine.  events may be nil, in which case no
// outbox rows are written.
func NewBookingService(
	tx repository.Transactor,
	users UserLookup,
	ledger ResourceLedger,
	bookings BookingStore,
	events EventRecorder,
	cfg config.Booking,
) *BookingService {
	return &BookingService{
		tx:       tx,
		users:    users,
		ledger:   ledger,
		bookings: bookings,
		events:   events,
		retry:    retryPolicy{attempts: cfg.MaxAttempts, backoff: cfg.RetryBackoff},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Reserve takes one unit of the resource's capacity for userID.  A non-empty
// idempotencyKey makes the call safe to repeat: a second call with the same
// key reports ErrAlreadyBooked and takes nothing.
func (s *BookingService) Reserve(ctx context.Context, userID, resourceID uint64, idempotencyKey string) (*model.Booking, error) {
	start := time.Now()
	defer func() { metrics.ReserveDuration.Observe(time.Since(start).Seconds()) }()

	if err := s.authenticate(ctx, userID); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(idempotencyKey)

	var booking *model.Booking
	err := s.retry.do(ctx, "reserve", func(ctx context.Context) error {
		booking = nil
		return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if key != "" {
				_, err := s.bookings.GetByUserAndKey(ctx, userID, key)
				if err == nil {
					return ErrAlreadyBooked
				}
				if !errors.Is(err, repository.ErrNotFound) {
					return err
				}
			}

			res, err := s.ledger.Decrement(ctx, resourceID)
			if err != nil {
				return err
			}

			b := &model.Booking{
				Reference:      uuid.NewString(),
				UserID:         userID,
				ResourceID:     resourceID,
				Status:         model.BookingConfirmed,
				Assignment:     model.AssignmentLabel(res.Kind, res.CapacityRemaining),
				IdempotencyKey: key,
				CreatedAt:      s.now(),
			}
			if b.ID, err = s.bookings.Create(ctx, b); err != nil {
				return err
			}
			if err := s.record(ctx, queue.EventBookingConfirmed, b, res, b.CreatedAt); err != nil {
				return err
			}
			booking = b
			return nil
		})
	})
	if err != nil {
		err = s.translateReserve(err)
		metrics.Reservations.WithLabelValues(reserveResult(err)).Inc()
		return nil, err
	}

	metrics.Reservations.WithLabelValues(metrics.ResultConfirmed).Inc()
	slog.Info("booking confirmed",
		"booking_id", booking.ID, "reference", booking.Reference,
		"user_id", userID, "resource_id", resourceID, "assignment", booking.Assignment)
	return booking, nil
}

func (s *BookingService) translateReserve(err error) error {
	switch {
	case errors.Is(err, ErrAlreadyBooked), errors.Is(err, repository.ErrDuplicate):
		return ErrAlreadyBooked
	case errors.Is(err, repository.ErrNoCapacity):
		return ErrNoCapacity
	case errors.Is(err, repository.ErrNotFound):
		return ErrResourceNotFound
	}
	return storageFailure("reserve", err)
}

func reserveResult(err error) string {
	switch {
	case errors.Is(err, ErrNoCapacity):
		return metrics.ResultNoCapacity
	case errors.Is(err, ErrResourceNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, ErrAlreadyBooked):
		return metrics.ResultAlreadyBooked
	}
	return metrics.ResultError
}

// Cancel releases the booking's unit back to its resource.  Only the owner
// may cancel.  Cancelling a booking that is already cancelled succeeds
// without touching capacity.
func (s *BookingService) Cancel(ctx context.Context, bookingID, userID uint64) error {
	if userID == 0 {
		return ErrUnauthenticated
	}

	var cancelled bool
	err := s.retry.do(ctx, "cancel", func(ctx context.Context) error {
		cancelled = false
		return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			b, err := s.bookings.GetByID(ctx, bookingID)
			if err != nil {
				return err
			}
			if b.UserID != userID {
				return ErrUnauthorized
			}
			if b.Status == model.BookingCancelled {
				return nil
			}

			at := s.now()
			if err := s.bookings.MarkCancelled(ctx, b.ID, at); err != nil {
				// Someone else cancelled it between the read and the update.
				if errors.Is(err, repository.ErrConflict) {
					return nil
				}
				return err
			}
			if err := s.ledger.Increment(ctx, b.ResourceID); err != nil {
				if errors.Is(err, repository.ErrCapacityFull) {
					slog.Error("capacity already full while cancelling a confirmed booking",
						"booking_id", b.ID, "resource_id", b.ResourceID)
				}
				return err
			}

			res, err := s.ledger.GetByID(ctx, b.ResourceID)
			if err != nil {
				return err
			}
			b.Status = model.BookingCancelled
			b.CancelledAt = &at
			if err := s.record(ctx, queue.EventBookingCancelled, b, res, at); err != nil {
				return err
			}
			cancelled = true
			return nil
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthorized):
			return ErrUnauthorized
		case errors.Is(err, repository.ErrNotFound):
			return ErrNotFound
		}
		return storageFailure("cancel", err)
	}

	if cancelled {
		metrics.Cancellations.Inc()
		slog.Info("booking cancelled", "booking_id", bookingID, "user_id", userID)
	}
	return nil
}

// Get returns one of the caller's bookings together with its resource.
func (s *BookingService) Get(ctx context.Context, bookingID, userID uint64) (*model.BookingDetail, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	d, err := s.bookings.GetDetail(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageFailure("get booking", err)
	}
	if d.UserID != userID {
		return nil, ErrUnauthorized
	}
	return d, nil
}

// ListForUser returns the caller's bookings, newest first.
func (s *BookingService) ListForUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	list, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageFailure("list bookings", err)
	}
	return list, nil
}

func (s *BookingService) authenticate(ctx context.Context, userID uint64) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthenticated
		}
		return storageFailure("load user", err)
	}
	return nil
}

func (s *BookingService) record(ctx context.Context, eventType string, b *model.Booking, res *model.Resource, at time.Time) error {
	if s.events == nil {
		return nil
	}
	payload, err := json.Marshal(queue.BookingEvent{
		Type:         eventType,
		BookingID:    b.ID,
		Reference:    b.Reference,
		UserID:       b.UserID,
		ResourceID:   b.ResourceID,
		ResourceCode: res.Code,
		Kind:         string(res.Kind),
		Assignment:   b.Assignment,
		Status:       b.Status,
		PriceCents:   res.PriceCents,
		OccurredAt:   at,
	})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return s.events.Create(ctx, &model.OutboxEvent{
		EventType:   eventType,
		AggregateID: b.Reference,
		Payload:     payload,
		CreatedAt:   at,
	})
}
