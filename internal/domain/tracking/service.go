package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/vitaluxe/pharmacy-bridge/internal/domain/order"
	"github.com/vitaluxe/pharmacy-bridge/internal/domain/pharmacy"
)

// Webhook rejection errors, mapped to HTTP statuses by the handler. All of
// them fire before any database write; rejected deliveries leave no trace.
var (
	ErrPharmacyNotFoundOrDisabled = errors.New("pharmacy not found or API disabled")
	ErrSignatureInvalid           = errors.New("invalid signature")
	ErrMalformedPayload           = errors.New("malformed JSON payload")
	ErrOrderLineNotFound          = errors.New("order or order line not found")
)

// PayloadError carries the full validation error list.
type PayloadError struct {
	Errors []string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("payload validation failed: %v", e.Errors)
}

// Service accepts pharmacy status callbacks. A delivery is persisted only
// after its signature and payload validate; the order line's tracking fields
// are then updated as a side effect.
type Service struct {
	repo       Repository
	orders     order.Repository
	pharmacies pharmacy.Repository
	now        func() time.Time
}

func NewService(repo Repository, orders order.Repository, pharmacies pharmacy.Repository) *Service {
	return &Service{
		repo:       repo,
		orders:     orders,
		pharmacies: pharmacies,
		now:        time.Now,
	}
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Update, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

// ProcessWebhook runs the acceptance pipeline for one delivery: pharmacy
// lookup, signature check over the raw body, payload validation, order line
// resolution, then a single insert plus the line update. Any failed step
// short-circuits with no partial side effects.
func (s *Service) ProcessWebhook(ctx context.Context, pharmacyID uuid.UUID, signatureHeader string, rawBody []byte) (*Update, error) {
	ph, err := s.pharmacies.GetByID(ctx, pharmacyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPharmacyNotFoundOrDisabled
	}
	if err != nil {
		return nil, fmt.Errorf("pharmacy lookup: %w", err)
	}
	if !ph.APIEnabled {
		return nil, ErrPharmacyNotFoundOrDisabled
	}

	secret := ""
	if ph.WebhookSecret != nil {
		secret = *ph.WebhookSecret
	}
	if sig := ValidateSignature(signatureHeader, rawBody, secret); !sig.Valid {
		log.Warn().
			Str("pharmacy_id", pharmacyID.String()).
			Str("reason", sig.Reason).
			Msg("webhook signature rejected")
		return nil, fmt.Errorf("%w: %s", ErrSignatureInvalid, sig.Reason)
	}

	var decoded interface{}
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return nil, ErrMalformedPayload
	}
	if result := ValidatePayload(decoded); !result.Valid {
		return nil, &PayloadError{Errors: result.Errors}
	}

	var payload Payload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, ErrMalformedPayload
	}

	line, err := s.resolveLine(ctx, ph.ID, &payload)
	if err != nil {
		return nil, err
	}

	update := &Update{
		OrderLineID:       line.ID,
		PharmacyID:        ph.ID,
		TrackingNumber:    payload.TrackingNumber,
		Carrier:           payload.Carrier,
		Status:            payload.Status,
		StatusDetails:     payload.StatusDetails,
		Location:          payload.Location,
		EstimatedDelivery: payload.EstimatedDelivery,
		ActualDelivery:    payload.ActualDelivery,
		RawPayload:        rawBody,
	}
	if err := s.repo.Create(ctx, update); err != nil {
		return nil, fmt.Errorf("persist tracking update: %w", err)
	}

	if payload.TrackingNumber != nil && *payload.TrackingNumber != "" {
		if err := s.applyToLine(ctx, line, &payload); err != nil {
			return nil, fmt.Errorf("update order line: %w", err)
		}
	}

	return update, nil
}

func (s *Service) resolveLine(ctx context.Context, pharmacyID uuid.UUID, payload *Payload) (*order.OrderLine, error) {
	if payload.OrderLineID != nil && *payload.OrderLineID != "" {
		lineID, err := uuid.Parse(*payload.OrderLineID)
		if err != nil {
			return nil, ErrOrderLineNotFound
		}
		line, err := s.orders.GetLineByID(ctx, lineID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderLineNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("line lookup: %w", err)
		}
		return line, nil
	}

	ord, err := s.orders.GetByOrderNumber(ctx, *payload.VitaluxeOrderNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order lookup: %w", err)
	}
	line, err := s.orders.GetLineForPharmacy(ctx, ord.ID, pharmacyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("line lookup: %w", err)
	}
	return line, nil
}

// applyToLine maps the pharmacy's status vocabulary onto the order line:
// delivered passes through and stamps delivered_at, in_transit becomes
// shipped, anything else leaves the line status untouched.
func (s *Service) applyToLine(ctx context.Context, line *order.OrderLine, payload *Payload) error {
	line.TrackingNumber = payload.TrackingNumber
	if payload.Carrier != nil {
		line.Carrier = payload.Carrier
	}

	switch payload.Status {
	case "delivered":
		line.Status = order.LineStatusDelivered
		deliveredAt := s.now().UTC()
		if payload.ActualDelivery != nil {
			deliveredAt = *payload.ActualDelivery
		}
		line.DeliveredAt = &deliveredAt
	case "in_transit":
		line.Status = order.LineStatusShipped
	}

	return s.orders.UpdateLineTracking(ctx, line)
}
