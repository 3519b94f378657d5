package tracking

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Update maps to the pharmacy_tracking_update table: one row per accepted
// webhook delivery. The table is append-only and keeps the raw payload
// verbatim for forensics; duplicate deliveries of the same upstream event
// produce duplicate rows.
type Update struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	OrderLineID       uuid.UUID       `db:"order_line_id" json:"order_line_id"`
	PharmacyID        uuid.UUID       `db:"pharmacy_id" json:"pharmacy_id"`
	TrackingNumber    *string         `db:"tracking_number" json:"tracking_number,omitempty"`
	Carrier           *string         `db:"carrier" json:"carrier,omitempty"`
	Status            string          `db:"status" json:"status"`
	StatusDetails     *string         `db:"status_details" json:"status_details,omitempty"`
	Location          *string         `db:"location" json:"location,omitempty"`
	EstimatedDelivery *time.Time      `db:"estimated_delivery" json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time      `db:"actual_delivery" json:"actual_delivery,omitempty"`
	RawPayload        json.RawMessage `db:"raw_payload" json:"raw_payload,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}
