package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/travel-booking/internal/model"
)

// ResourceQuery defines filters & pagination for listing resources.
// Results are ordered by start time then id; there is no ranking.
type ResourceQuery struct {
	Kind          model.ResourceKind
	Origin        string
	Destination   string
	Location      string
	Text          string // substring of code or name
	AvailableOnly bool
	From          *time.Time // starts_at >= From
	To            *time.Time // starts_at <  To
	Page          int
	PageSize      int
}

func (r *ResourceRepo) Search(ctx context.Context, q ResourceQuery) ([]model.Resource, int64, error) {
	where := []string{}
	args := []any{}

	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if q.Origin != "" {
		where = append(where, "LOWER(origin) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Origin)+"%")
	}
	if q.Destination != "" {
		where = append(where, "LOWER(destination) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Destination)+"%")
	}
	if q.Location != "" {
		where = append(where, "LOWER(location) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Location)+"%")
	}
	if q.Text != "" {
		where = append(where, "(LOWER(code) LIKE ? OR LOWER(name) LIKE ?)")
		t := "%" + strings.ToLower(q.Text) + "%"
		args = append(args, t, t)
	}
	if q.AvailableOnly {
		where = append(where, "capacity_remaining > 0")
	}
	if q.From != nil {
		where = append(where, "starts_at >= ?")
		args = append(args, q.From.UTC())
	}
	if q.To != nil {
		where = append(where, "starts_at < ?")
		args = append(args, q.To.UTC())
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}

	ex := executor(ctx, r.db)

	var total int64
	countSQL := "SELECT COUNT(*) FROM resources WHERE " + cond
	if err := ex.QueryRowContext(ctx, r.db.Rebind(countSQL), args...).Scan(&total); err != nil {
		return nil, 0, classify("count resources", err)
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := "SELECT " + resourceColumns + " FROM resources WHERE " + cond +
		" ORDER BY starts_at ASC, id ASC LIMIT ? OFFSET ?"
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := ex.QueryContext(ctx, r.db.Rebind(dataSQL), argsData...)
	if err != nil {
		return nil, 0, classify("list resources", err)
	}
	defer rows.Close()

	out := make([]model.Resource, 0, limit)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, 0, classify("scan resource", err)
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify("list resources", err)
	}
	return out, total, nil
}
