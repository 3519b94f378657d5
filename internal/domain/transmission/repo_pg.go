package transmission

import (
	"context"
	"fmt"
	"time"

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

const transmissionCols = `id, order_id, order_line_id, pharmacy_id, transmission_type, request_payload,
	response_status, response_body, success, error_message, retry_count,
	manually_retried, retried_at, retried_by, created_at`

func (r *repoPG) scan(row pgx.Row) (*Transmission, error) {
	var t Transmission
	err := row.Scan(&t.ID, &t.OrderID, &t.OrderLineID, &t.PharmacyID, &t.TransmissionType, &t.RequestPayload,
		&t.ResponseStatus, &t.ResponseBody, &t.Success, &t.ErrorMessage, &t.RetryCount,
		&t.ManuallyRetried, &t.RetriedAt, &t.RetriedBy, &t.CreatedAt)
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Transmission) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO pharmacy_order_transmission (id, order_id, order_line_id, pharmacy_id,
			transmission_type, request_payload, response_status, response_body,
			success, error_message, retry_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		t.ID, t.OrderID, t.OrderLineID, t.PharmacyID,
		t.TransmissionType, t.RequestPayload, t.ResponseStatus, t.ResponseBody,
		t.Success, t.ErrorMessage, t.RetryCount)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Transmission, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+transmissionCols+` FROM pharmacy_order_transmission WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Transmission, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	idx := 1
	if filter.OrderID != nil {
		where += fmt.Sprintf(" AND order_id = $%d", idx)
		args = append(args, *filter.OrderID)
		idx++
	}
	if filter.PharmacyID != nil {
		where += fmt.Sprintf(" AND pharmacy_id = $%d", idx)
		args = append(args, *filter.PharmacyID)
		idx++
	}
	if filter.Success != nil {
		where += fmt.Sprintf(" AND success = $%d", idx)
		args = append(args, *filter.Success)
		idx++
	}

	var total int
	countSQL := `SELECT COUNT(*) FROM pharmacy_order_transmission ` + where
	if err := r.conn(ctx).QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := fmt.Sprintf(`SELECT %s FROM pharmacy_order_transmission %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, transmissionCols, where, idx, idx+1)
	rows, err := r.conn(ctx).Query(ctx, dataSQL, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Transmission
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *repoPG) MarkRetried(ctx context.Context, id uuid.UUID, retriedBy string, retriedAt time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE pharmacy_order_transmission
		SET manually_retried = TRUE, retried_at = $2, retried_by = $3
		WHERE id = $1`,
		id, retriedAt, retriedBy)
	return err
}

func (r *repoPG) LatestSuccessfulNewOrder(ctx context.Context, orderID, pharmacyID uuid.UUID) (*Transmission, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `
		SELECT `+transmissionCols+` FROM pharmacy_order_transmission
		WHERE order_id = $1 AND pharmacy_id = $2 AND transmission_type = $3 AND success = TRUE
		ORDER BY created_at DESC LIMIT 1`,
		orderID, pharmacyID, TypeNewOrder))
}
