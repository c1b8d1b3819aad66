package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/travel-booking/internal/database"
	"github.com/iliyamo/travel-booking/internal/model"
)

// BookingRepo persists bookings.  Rows are never deleted; cancellation is a
// conditional status transition.
type BookingRepo struct{ db *database.DB }

func NewBookingRepo(db *database.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = "id,reference,user_id,resource_id,status,assignment,idempotency_key,created_at,cancelled_at"

func scanBooking(s rowScanner, extra ...any) (*model.Booking, error) {
	var (
		b         model.Booking
		key       sql.NullString
		cancelled sql.NullTime
	)
	dest := []any{&b.ID, &b.Reference, &b.UserID, &b.ResourceID, &b.Status, &b.Assignment, &key, &b.CreatedAt, &cancelled}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	b.IdempotencyKey = key.String
	b.CancelledAt = timePtr(cancelled)
	return &b, nil
}

// Create inserts a booking and returns its ID.  A second booking with the
// same (user_id, idempotency_key) is rejected with ErrDuplicate.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) (uint64, error) {
	var key any
	if b.IdempotencyKey != "" {
		key = b.IdempotencyKey
	}
	id, err := r.db.InsertID(ctx, executor(ctx, r.db),
		`INSERT INTO bookings (reference, user_id, resource_id, status, assignment, idempotency_key, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		b.Reference, b.UserID, b.ResourceID, b.Status, b.Assignment, key, b.CreatedAt.UTC())
	if err != nil {
		return 0, classify("insert booking", err)
	}
	return id, nil
}

// GetByID returns the booking or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	row := executor(ctx, r.db).QueryRowContext(ctx,
		r.db.Rebind("SELECT "+bookingColumns+" FROM bookings WHERE id=?"), id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, errNoRows("get booking", err)
	}
	return b, nil
}

// GetByUserAndKey finds the booking a user created with an idempotency key.
func (r *BookingRepo) GetByUserAndKey(ctx context.Context, userID uint64, key string) (*model.Booking, error) {
	row := executor(ctx, r.db).QueryRowContext(ctx,
		r.db.Rebind("SELECT "+bookingColumns+" FROM bookings WHERE user_id=? AND idempotency_key=?"), userID, key)
	b, err := scanBooking(row)
	if err != nil {
		return nil, errNoRows("get booking by key", err)
	}
	return b, nil
}

// MarkCancelled moves a CONFIRMED booking to CANCELLED.  ErrConflict means
// the booking was not CONFIRMED any more (or does not exist).
func (r *BookingRepo) MarkCancelled(ctx context.Context, id uint64, at time.Time) error {
	res, err := executor(ctx, r.db).ExecContext(ctx,
		r.db.Rebind("UPDATE bookings SET status=?, cancelled_at=? WHERE id=? AND status=?"),
		model.BookingCancelled, at.UTC(), id, model.BookingConfirmed)
	if err != nil {
		return classify("cancel booking", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("cancel booking", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// CountConfirmed returns the number of CONFIRMED bookings on a resource.
func (r *BookingRepo) CountConfirmed(ctx context.Context, resourceID uint64) (int, error) {
	var n int
	err := executor(ctx, r.db).QueryRowContext(ctx,
		r.db.Rebind("SELECT COUNT(*) FROM bookings WHERE resource_id=? AND status=?"),
		resourceID, model.BookingConfirmed).Scan(&n)
	if err != nil {
		return 0, classify("count bookings", err)
	}
	return n, nil
}

const bookingDetailSQL = `SELECT
		b.id, b.reference, b.user_id, b.resource_id, b.status, b.assignment, b.idempotency_key, b.created_at, b.cancelled_at,
		r.code, r.kind, r.name, r.origin, r.destination, r.location, r.starts_at, r.ends_at, r.price_cents
	FROM bookings b
	JOIN resources r ON r.id = b.resource_id`

func scanBookingDetail(s rowScanner) (*model.BookingDetail, error) {
	var (
		d            model.BookingDetail
		kind         string
		starts, ends sql.NullTime
	)
	b, err := scanBooking(s, &d.ResourceCode, &kind, &d.ResourceName, &d.Origin, &d.Destination, &d.Location,
		&starts, &ends, &d.PriceCents)
	if err != nil {
		return nil, err
	}
	d.Booking = *b
	d.ResourceKind = model.ResourceKind(kind)
	d.StartsAt = timePtr(starts)
	d.EndsAt = timePtr(ends)
	return &d, nil
}

// GetDetail returns the booking joined with its resource.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error) {
	row := executor(ctx, r.db).QueryRowContext(ctx, r.db.Rebind(bookingDetailSQL+" WHERE b.id=?"), id)
	d, err := scanBookingDetail(row)
	if err != nil {
		return nil, errNoRows("get booking detail", err)
	}
	return d, nil
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx,
		r.db.Rebind(bookingDetailSQL+" WHERE b.user_id=? ORDER BY b.created_at DESC, b.id DESC"), userID)
	if err != nil {
		return nil, classify("list bookings", err)
	}
	defer rows.Close()

	out := []model.BookingDetail{}
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, classify("scan booking", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list bookings", err)
	}
	return out, nil
}
