package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/travel-booking/internal/database"
	"github.com/iliyamo/travel-booking/internal/model"
)

// ResourceRepo is the inventory ledger.  Capacity only changes through
// Decrement and Increment, both single conditional UPDATE statements, so
// concurrent callers can never push capacity_remaining below zero or above
// capacity_total.
type ResourceRepo struct{ db *database.DB }

func NewResourceRepo(db *database.DB) *ResourceRepo { return &ResourceRepo{db: db} }

const resourceColumns = `id,kind,code,name,origin,destination,location,starts_at,ends_at,
	capacity_total,capacity_remaining,price_cents,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(s rowScanner) (*model.Resource, error) {
	var (
		res          model.Resource
		kind         string
		starts, ends sql.NullTime
	)
	if err := s.Scan(&res.ID, &kind, &res.Code, &res.Name, &res.Origin, &res.Destination, &res.Location,
		&starts, &ends, &res.CapacityTotal, &res.CapacityRemaining, &res.PriceCents,
		&res.CreatedAt, &res.UpdatedAt); err != nil {
		return nil, err
	}
	res.Kind = model.ResourceKind(kind)
	res.StartsAt = timePtr(starts)
	res.EndsAt = timePtr(ends)
	return &res, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// Create inserts a resource for administrative seeding.  The remaining
// capacity always starts equal to the total; there is no other way to set
// it.
func (r *ResourceRepo) Create(ctx context.Context, res *model.Resource) (uint64, error) {
	now := time.Now().UTC()
	res.CapacityRemaining = res.CapacityTotal
	res.CreatedAt, res.UpdatedAt = now, now
	id, err := r.db.InsertID(ctx, executor(ctx, r.db),
		`INSERT INTO resources (kind, code, name, origin, destination, location, starts_at, ends_at,
			capacity_total, capacity_remaining, price_cents, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		string(res.Kind), res.Code, res.Name, res.Origin, res.Destination, res.Location,
		nullTime(res.StartsAt), nullTime(res.EndsAt),
		res.CapacityTotal, res.CapacityRemaining, res.PriceCents, now, now)
	if err != nil {
		return 0, classify(fmt.Sprintf("insert resource %q", res.Code), err)
	}
	res.ID = id
	return id, nil
}

// GetByID returns the resource or ErrNotFound.
func (r *ResourceRepo) GetByID(ctx context.Context, id uint64) (*model.Resource, error) {
	row := executor(ctx, r.db).QueryRowContext(ctx,
		r.db.Rebind("SELECT "+resourceColumns+" FROM resources WHERE id=?"), id)
	res, err := scanResource(row)
	if err != nil {
		return nil, errNoRows("get resource", err)
	}
	return res, nil
}

// GetByCode returns the resource with the given code or ErrNotFound.
func (r *ResourceRepo) GetByCode(ctx context.Context, code string) (*model.Resource, error) {
	row := executor(ctx, r.db).QueryRowContext(ctx,
		r.db.Rebind("SELECT "+resourceColumns+" FROM resources WHERE code=?"), code)
	res, err := scanResource(row)
	if err != nil {
		return nil, errNoRows("get resource", err)
	}
	return res, nil
}

// Decrement takes one unit of capacity and returns the resource as it is
// after the update.  It reports ErrNoCapacity when nothing is left and
// ErrNotFound when the resource does not exist; in both cases no row is
// changed.  Called inside a transaction, the row stays locked until commit
// so the returned remaining capacity is the caller's own.
func (r *ResourceRepo) Decrement(ctx context.Context, id uint64) (*model.Resource, error) {
	n, err := r.conditionalUpdate(ctx,
		`UPDATE resources SET capacity_remaining = capacity_remaining - 1, updated_at = ?
		 WHERE id = ? AND capacity_remaining > 0`, id)
	if err != nil {
		return nil, classify("decrement capacity", err)
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrNoCapacity
	}
	return r.GetByID(ctx, id)
}

// Increment returns one unit of capacity.  It reports ErrCapacityFull when
// the resource is already at its total and ErrNotFound when it does not
// exist.
func (r *ResourceRepo) Increment(ctx context.Context, id uint64) error {
	n, err := r.conditionalUpdate(ctx,
		`UPDATE resources SET capacity_remaining = capacity_remaining + 1, updated_at = ?
		 WHERE id = ? AND capacity_remaining < capacity_total`, id)
	if err != nil {
		return classify("increment capacity", err)
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrCapacityFull
	}
	return nil
}

func (r *ResourceRepo) conditionalUpdate(ctx context.Context, q string, id uint64) (int64, error) {
	res, err := executor(ctx, r.db).ExecContext(ctx, r.db.Rebind(q), time.Now().UTC(), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Audit compares the stored remaining capacity with the total minus the
// number of confirmed bookings.
func (r *ResourceRepo) Audit(ctx context.Context, id uint64) (*model.CapacityAudit, error) {
	res, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var confirmed int
	err = executor(ctx, r.db).QueryRowContext(ctx,
		r.db.Rebind("SELECT COUNT(*) FROM bookings WHERE resource_id=? AND status=?"),
		id, model.BookingConfirmed).Scan(&confirmed)
	if err != nil {
		return nil, classify("count confirmed bookings", err)
	}
	return &model.CapacityAudit{
		ResourceID:        res.ID,
		Code:              res.Code,
		CapacityTotal:     res.CapacityTotal,
		CapacityRemaining: res.CapacityRemaining,
		ConfirmedBookings: confirmed,
		Consistent:        res.CapacityRemaining == res.CapacityTotal-confirmed,
	}, nil
}
