package pharmacy

import (
	"time"

	"github.com/google/uuid"
)

// Auth types a pharmacy integration can be configured with. An empty auth
// type means the endpoint takes no credentials (e.g. IP-allowlisted).
const (
	AuthTypeBearer   = "bearer"
	AuthTypeAPIKey   = "api_key"
	AuthTypeBasic    = "basic"
	AuthTypeBareMeds = "baremeds"
)

// Credential types stored per pharmacy.
const (
	CredentialBearerToken       = "bearer_token"
	CredentialAPIKey            = "api_key"
	CredentialBasicAuthUsername = "basic_auth_username"
	CredentialBasicAuthPassword = "basic_auth_password"
)

const (
	defaultRetryCount     = 3
	defaultTimeoutSeconds = 30
	defaultAPIKeyHeader   = "X-API-Key"
)

// Pharmacy maps to the pharmacy table: one row per third-party pharmacy a
// practice can route orders to, including its API integration settings.
type Pharmacy struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	ContactEmail   *string   `db:"contact_email" json:"contact_email,omitempty"`
	APIEnabled     bool      `db:"api_enabled" json:"api_enabled"`
	APIEndpointURL *string   `db:"api_endpoint_url" json:"api_endpoint_url,omitempty"`
	APIAuthType    string    `db:"api_auth_type" json:"api_auth_type,omitempty"`
	// WebhookSecret signs inbound status callbacks; never serialized.
	WebhookSecret  *string   `db:"webhook_secret" json:"-"`
	RetryCount     int       `db:"retry_count" json:"retry_count"`
	TimeoutSeconds int       `db:"timeout_seconds" json:"timeout_seconds"`
	APIAuthKeyName *string   `db:"api_auth_key_name" json:"api_auth_key_name,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Credential maps to the pharmacy_api_credential table. Values are secrets
// and never serialized or logged.
type Credential struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PharmacyID     uuid.UUID `db:"pharmacy_id" json:"pharmacy_id"`
	CredentialType string    `db:"credential_type" json:"credential_type"`
	Value          string    `db:"value" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// EffectiveRetryCount returns the configured outbound attempt budget,
// defaulting to 3.
func (p *Pharmacy) EffectiveRetryCount() int {
	if p.RetryCount <= 0 {
		return defaultRetryCount
	}
	return p.RetryCount
}

// EffectiveTimeout returns the per-attempt timeout, defaulting to 30s.
func (p *Pharmacy) EffectiveTimeout() time.Duration {
	secs := p.TimeoutSeconds
	if secs <= 0 {
		secs = defaultTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

// APIKeyHeaderName returns the header name used for api_key auth, defaulting
// to X-API-Key.
func (p *Pharmacy) APIKeyHeaderName() string {
	if p.APIAuthKeyName != nil && *p.APIAuthKeyName != "" {
		return *p.APIAuthKeyName
	}
	return defaultAPIKeyHeader
}

// HasEndpoint reports whether the pharmacy has a usable API endpoint URL.
func (p *Pharmacy) HasEndpoint() bool {
	return p.APIEndpointURL != nil && *p.APIEndpointURL != ""
}
