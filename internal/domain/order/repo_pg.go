package order

import (
	"context"

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

const orderCols = `id, order_number, practice_id, patient_id, status, total_amount, created_at, updated_at`

const lineCols = `id, order_id, assigned_pharmacy_id, product_name, ndc_code, quantity, unit_price,
	status, tracking_number, carrier, delivered_at, created_at, updated_at`

func (r *repoPG) scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.PracticeID, &o.PatientID, &o.Status,
		&o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *repoPG) scanLine(row pgx.Row) (*OrderLine, error) {
	var l OrderLine
	err := row.Scan(&l.ID, &l.OrderID, &l.AssignedPharmacyID, &l.ProductName, &l.NDCCode,
		&l.Quantity, &l.UnitPrice, &l.Status, &l.TrackingNumber, &l.Carrier,
		&l.DeliveredAt, &l.CreatedAt, &l.UpdatedAt)
	return &l, err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.scanOrder(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id = $1`, id))
}

func (r *repoPG) GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return r.scanOrder(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE order_number = $1`, orderNumber))
}

func (r *repoPG) GetLines(ctx context.Context, orderID uuid.UUID) ([]*OrderLine, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+lineCols+` FROM order_line WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*OrderLine
	for rows.Next() {
		l, err := r.scanLine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func (r *repoPG) GetLineByID(ctx context.Context, id uuid.UUID) (*OrderLine, error) {
	return r.scanLine(r.conn(ctx).QueryRow(ctx,
		`SELECT `+lineCols+` FROM order_line WHERE id = $1`, id))
}

func (r *repoPG) GetLineForPharmacy(ctx context.Context, orderID, pharmacyID uuid.UUID) (*OrderLine, error) {
	return r.scanLine(r.conn(ctx).QueryRow(ctx,
		`SELECT `+lineCols+` FROM order_line
		WHERE order_id = $1 AND assigned_pharmacy_id = $2
		ORDER BY created_at LIMIT 1`, orderID, pharmacyID))
}

func (r *repoPG) UpdateLineTracking(ctx context.Context, line *OrderLine) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE order_line SET status=$2, tracking_number=$3, carrier=$4, delivered_at=$5, updated_at=NOW()
		WHERE id = $1`,
		line.ID, line.Status, line.TrackingNumber, line.Carrier, line.DeliveredAt)
	return err
}
