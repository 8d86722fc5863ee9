package repository

// This file is the resource catalog used by the booking flow.  A Resource
// is any event or space that tickets or seats can be booked against.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/seat-booking-service/internal/model"
)

const resourceColumns = `id, name, type, description, location, capacity, start_time, end_time, is_active, created_at, updated_at`

// ResourceRepo manages persistence for resources.
type ResourceRepo struct {
	db *sql.DB
}

// NewResourceRepo returns a ResourceRepo bound to db.
func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{db: db} }

func scanResource(sc rowScanner) (model.Resource, error) {
	var res model.Resource
	var typ string
	var desc, loc sql.NullString
	var capacity sql.NullInt64
	var start, end sql.NullTime
	if err := sc.Scan(&res.ID, &res.Name, &typ, &desc, &loc, &capacity, &start, &end,
		&res.IsActive, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return model.Resource{}, err
	}
	res.Type = model.ResourceType(typ)
	if desc.Valid {
		d := desc.String
		res.Description = &d
	}
	if loc.Valid {
		l := loc.String
		res.Location = &l
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		res.Capacity = &c
	}
	if start.Valid {
		t := start.Time.UTC()
		res.StartTime = &t
	}
	if end.Valid {
		t := end.Time.UTC()
		res.EndTime = &t
	}
	return res, nil
}

// GetByID returns a resource or ErrResourceNotFound.
func (r *ResourceRepo) GetByID(ctx context.Context, id uint64) (*model.Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetByName returns a resource by its unique name or ErrResourceNotFound.
func (r *ResourceRepo) GetByName(ctx context.Context, name string) (*model.Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetByIDForUpdateTx locks the resource row for the rest of the transaction.
// Bookings against the same resource queue behind this lock, which is what
// keeps the capacity check and the insert atomic.
func (r *ResourceRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Resource, error) {
	res, err := scanResource(tx.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateTx inserts a resource inside the caller's transaction and reads
// back generated fields.  A duplicate name yields ErrDuplicate.
func (r *ResourceRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Resource) error {
	const q = `INSERT INTO resources (name, type, description, location, capacity, start_time, end_time, is_active) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var capacity sql.NullInt64
	if res.Capacity != nil {
		capacity = sql.NullInt64{Int64: int64(*res.Capacity), Valid: true}
	}
	typ := res.Type
	if typ == "" {
		typ = model.ResourceEvent
	}
	out, err := tx.ExecContext(ctx, q, res.Name, string(typ), nullString(res.Description), nullString(res.Location),
		capacity, nullTime(res.StartTime), nullTime(res.EndTime), res.IsActive)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert resource: %w", err)
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	row, err := scanResource(tx.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id))
	if err != nil {
		return err
	}
	*res = row
	return nil
}

// ListWithoutSeats returns the ids of resources that have no seats yet.
func (r *ResourceRepo) ListWithoutSeats(ctx context.Context) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id FROM resources r LEFT JOIN seats s ON s.resource_id = r.id WHERE s.id IS NULL ORDER BY r.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
