package transmission

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Transmission types.
const (
	TypeNewOrder     = "new_order"
	TypeCancellation = "cancellation"
)

// Batch retry outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Transmission maps to the pharmacy_order_transmission table: one immutable
// row per outbound attempt cycle. A manual retry never edits the outcome of a
// prior row; it flags the original as manually_retried and inserts a new row
// for the fresh attempt, preserving the full audit trail.
type Transmission struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	OrderID          uuid.UUID       `db:"order_id" json:"order_id"`
	OrderLineID      *uuid.UUID      `db:"order_line_id" json:"order_line_id,omitempty"`
	PharmacyID       uuid.UUID       `db:"pharmacy_id" json:"pharmacy_id"`
	TransmissionType string          `db:"transmission_type" json:"transmission_type"`
	RequestPayload   json.RawMessage `db:"request_payload" json:"request_payload,omitempty"`
	ResponseStatus   *int            `db:"response_status" json:"response_status,omitempty"`
	ResponseBody     *string         `db:"response_body" json:"response_body,omitempty"`
	Success          bool            `db:"success" json:"success"`
	ErrorMessage     *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount       int             `db:"retry_count" json:"retry_count"`
	ManuallyRetried  bool            `db:"manually_retried" json:"manually_retried"`
	RetriedAt        *time.Time      `db:"retried_at" json:"retried_at,omitempty"`
	RetriedBy        *string         `db:"retried_by" json:"retried_by,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// Result is the outcome of one executor run (all attempts included).
type Result struct {
	Success        bool
	ResponseStatus int
	ResponseBody   string
	ErrorMessage   string
	AttemptsUsed   int
}

// RetryDetail is the per-transmission outcome of a batch retry.
type RetryDetail struct {
	TransmissionID    uuid.UUID  `json:"transmission_id"`
	Outcome           string     `json:"outcome"`
	Reason            string     `json:"reason,omitempty"`
	NewTransmissionID *uuid.UUID `json:"new_transmission_id,omitempty"`
}

// RetryBatchResult summarises a batch retry for the operator.
type RetryBatchResult struct {
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Details    []RetryDetail `json:"details"`
}

// CancelResult is returned by the cancellation notifier.
type CancelResult struct {
	Success bool   `json:"success"`
	Note    string `json:"note,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TransmitDetail is the per-pharmacy outcome of a new-order push.
type TransmitDetail struct {
	PharmacyID     uuid.UUID  `json:"pharmacy_id"`
	TransmissionID *uuid.UUID `json:"transmission_id,omitempty"`
	Outcome        string     `json:"outcome"`
	Reason         string     `json:"reason,omitempty"`
}

// TransmitResult summarises a new-order push across the order's pharmacies.
type TransmitResult struct {
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Skipped    int              `json:"skipped"`
	Details    []TransmitDetail `json:"details"`
}
