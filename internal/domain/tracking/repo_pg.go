package tracking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitaluxe/pharmacy-bridge/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const updateCols = `id, order_line_id, pharmacy_id, tracking_number, carrier, status,
	status_details, location, estimated_delivery, actual_delivery, raw_payload, created_at`

func (r *repoPG) scan(row pgx.Row) (*Update, error) {
	var u Update
	err := row.Scan(&u.ID, &u.OrderLineID, &u.PharmacyID, &u.TrackingNumber, &u.Carrier, &u.Status,
		&u.StatusDetails, &u.Location, &u.EstimatedDelivery, &u.ActualDelivery, &u.RawPayload, &u.CreatedAt)
	return &u, err
}

func (r *repoPG) Create(ctx context.Context, u *Update) error {
	u.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO pharmacy_tracking_update (id, order_line_id, pharmacy_id, tracking_number,
			carrier, status, status_details, location, estimated_delivery, actual_delivery, raw_payload)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		u.ID, u.OrderLineID, u.PharmacyID, u.TrackingNumber,
		u.Carrier, u.Status, u.StatusDetails, u.Location, u.EstimatedDelivery, u.ActualDelivery, u.RawPayload)
	return err
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Update, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	idx := 1
	if filter.OrderLineID != nil {
		where += fmt.Sprintf(" AND order_line_id = $%d", idx)
		args = append(args, *filter.OrderLineID)
		idx++
	}
	if filter.PharmacyID != nil {
		where += fmt.Sprintf(" AND pharmacy_id = $%d", idx)
		args = append(args, *filter.PharmacyID)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM pharmacy_tracking_update `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := fmt.Sprintf(`SELECT %s FROM pharmacy_tracking_update %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, updateCols, where, idx, idx+1)
	rows, err := r.conn(ctx).Query(ctx, dataSQL, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Update
	for rows.Next() {
		u, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}
