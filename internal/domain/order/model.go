package order

import (
	"time"

	"github.com/google/uuid"
)

// Order line statuses. Inbound tracking updates may move a line to shipped or
// delivered; cancellation is driven by the practice side.
const (
	LineStatusPending    = "pending"
	LineStatusProcessing = "processing"
	LineStatusShipped    = "shipped"
	LineStatusDelivered  = "delivered"
	LineStatusCancelled  = "cancelled"
)

// Order maps to the orders table. Orders are created and managed by the
// surrounding practice application; this service reads them for transmission
// payloads and webhook resolution.
type Order struct {
	ID          uuid.UUID `db:"id" json:"id"`
	OrderNumber string    `db:"order_number" json:"order_number"`
	PracticeID  uuid.UUID `db:"practice_id" json:"practice_id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	Status      string    `db:"status" json:"status"`
	TotalAmount *float64  `db:"total_amount" json:"total_amount,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// OrderLine maps to the order_line table. A line is the unit assigned to a
// pharmacy; its tracking fields are mutated only by accepted webhooks.
type OrderLine struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	OrderID            uuid.UUID  `db:"order_id" json:"order_id"`
	AssignedPharmacyID *uuid.UUID `db:"assigned_pharmacy_id" json:"assigned_pharmacy_id,omitempty"`
	ProductName        string     `db:"product_name" json:"product_name"`
	NDCCode            *string    `db:"ndc_code" json:"ndc_code,omitempty"`
	Quantity           int        `db:"quantity" json:"quantity"`
	UnitPrice          *float64   `db:"unit_price" json:"unit_price,omitempty"`
	Status             string     `db:"status" json:"status"`
	TrackingNumber     *string    `db:"tracking_number" json:"tracking_number,omitempty"`
	Carrier            *string    `db:"carrier" json:"carrier,omitempty"`
	DeliveredAt        *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}
