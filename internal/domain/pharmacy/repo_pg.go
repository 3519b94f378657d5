package pharmacy

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

const pharmacyCols = `id, name, contact_email, api_enabled, api_endpoint_url, api_auth_type,
	webhook_secret, retry_count, timeout_seconds, api_auth_key_name, created_at, updated_at`

func (r *repoPG) scanPharmacy(row pgx.Row) (*Pharmacy, error) {
	var p Pharmacy
	err := row.Scan(&p.ID, &p.Name, &p.ContactEmail, &p.APIEnabled, &p.APIEndpointURL, &p.APIAuthType,
		&p.WebhookSecret, &p.RetryCount, &p.TimeoutSeconds, &p.APIAuthKeyName, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Pharmacy) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO pharmacy (id, name, contact_email, api_enabled, api_endpoint_url, api_auth_type,
			webhook_secret, retry_count, timeout_seconds, api_auth_key_name)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.Name, p.ContactEmail, p.APIEnabled, p.APIEndpointURL, p.APIAuthType,
		p.WebhookSecret, p.RetryCount, p.TimeoutSeconds, p.APIAuthKeyName)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Pharmacy, error) {
	return r.scanPharmacy(r.conn(ctx).QueryRow(ctx,
		`SELECT `+pharmacyCols+` FROM pharmacy WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Pharmacy) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE pharmacy SET name=$2, contact_email=$3, api_enabled=$4, api_endpoint_url=$5,
			api_auth_type=$6, webhook_secret=$7, retry_count=$8, timeout_seconds=$9,
			api_auth_key_name=$10, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.ContactEmail, p.APIEnabled, p.APIEndpointURL,
		p.APIAuthType, p.WebhookSecret, p.RetryCount, p.TimeoutSeconds,
		p.APIAuthKeyName)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Pharmacy, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM pharmacy`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+pharmacyCols+` FROM pharmacy ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Pharmacy
	for rows.Next() {
		p, err := r.scanPharmacy(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) SetCredential(ctx context.Context, cred *Credential) error {
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO pharmacy_api_credential (id, pharmacy_id, credential_type, value)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (pharmacy_id, credential_type)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		cred.ID, cred.PharmacyID, cred.CredentialType, cred.Value)
	return err
}

func (r *repoPG) GetCredentials(ctx context.Context, pharmacyID uuid.UUID) ([]*Credential, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, pharmacy_id, credential_type, value, created_at, updated_at
		FROM pharmacy_api_credential WHERE pharmacy_id = $1`, pharmacyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Credential
	for rows.Next() {
		var c Credential
		if err := rows.Scan(&c.ID, &c.PharmacyID, &c.CredentialType, &c.Value,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}
