package transmission

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

var ErrNotFound = errors.New("transmission not found")

// Service pushes orders and cancellations to pharmacy endpoints and keeps the
// append-only transmission log. Every outbound cycle, successful or not, ends
// with exactly one new row.
type Service struct {
	repo       Repository
	orders     order.Repository
	pharmacies pharmacy.Repository
	resolver   *CredentialResolver
	executor   *Executor
	now        func() time.Time
}

func NewService(repo Repository, orders order.Repository, pharmacies pharmacy.Repository, resolver *CredentialResolver, executor *Executor) *Service {
	return &Service{
		repo:       repo,
		orders:     orders,
		pharmacies: pharmacies,
		resolver:   resolver,
		executor:   executor,
		now:        time.Now,
	}
}

type orderSnapshot struct {
	Order *order.Order       `json:"order"`
	Lines []*order.OrderLine `json:"lines"`
}

type newOrderPayload struct {
	OrderID          uuid.UUID     `json:"order_id"`
	OrderNumber      string        `json:"order_number"`
	TransmissionType string        `json:"transmission_type"`
	RequestBody      orderSnapshot `json:"request_body"`
}

type cancellationPayload struct {
	OrderID             uuid.UUID  `json:"order_id"`
	OrderLineID         *uuid.UUID `json:"order_line_id"`
	VitaluxeOrderNumber string     `json:"vitaluxe_order_number"`
	CancellationReason  string     `json:"cancellation_reason"`
	CancelledAt         time.Time  `json:"cancelled_at"`
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Transmission, error) {
	t, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Transmission, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

// TransmitOrder pushes a new-order payload to every pharmacy with lines on
// the order. Lines are grouped per pharmacy so each pharmacy receives one
// request covering all of its lines.
func (s *Service) TransmitOrder(ctx context.Context, orderID uuid.UUID) (*TransmitResult, error) {
	ord, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	lines, err := s.orders.GetLines(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order lines: %w", err)
	}

	byPharmacy := map[uuid.UUID][]*order.OrderLine{}
	var pharmacyOrder []uuid.UUID
	for _, line := range lines {
		if line.AssignedPharmacyID == nil {
			continue
		}
		id := *line.AssignedPharmacyID
		if _, seen := byPharmacy[id]; !seen {
			pharmacyOrder = append(pharmacyOrder, id)
		}
		byPharmacy[id] = append(byPharmacy[id], line)
	}

	result := &TransmitResult{}
	for _, pharmacyID := range pharmacyOrder {
		detail := s.transmitToPharmacy(ctx, ord, byPharmacy[pharmacyID], pharmacyID)
		result.Details = append(result.Details, detail)
		switch detail.Outcome {
		case OutcomeSuccess:
			result.Successful++
		case OutcomeFailed:
			result.Failed++
		default:
			result.Skipped++
		}
	}
	return result, nil
}

func (s *Service) transmitToPharmacy(ctx context.Context, ord *order.Order, lines []*order.OrderLine, pharmacyID uuid.UUID) TransmitDetail {
	detail := TransmitDetail{PharmacyID: pharmacyID}

	ph, err := s.pharmacies.GetByID(ctx, pharmacyID)
	if err != nil {
		detail.Outcome = OutcomeSkipped
		detail.Reason = "pharmacy not found"
		return detail
	}
	if !ph.APIEnabled || !ph.HasEndpoint() {
		detail.Outcome = OutcomeSkipped
		detail.Reason = "pharmacy API disabled or endpoint not configured"
		return detail
	}

	payload, err := json.Marshal(newOrderPayload{
		OrderID:          ord.ID,
		OrderNumber:      ord.OrderNumber,
		TransmissionType: TypeNewOrder,
		RequestBody:      orderSnapshot{Order: ord, Lines: lines},
	})
	if err != nil {
		detail.Outcome = OutcomeFailed
		detail.Reason = "payload encoding failed"
		return detail
	}

	var lineID *uuid.UUID
	if len(lines) == 1 {
		lineID = &lines[0].ID
	}

	row := s.deliver(ctx, ph, ord.ID, lineID, TypeNewOrder, payload, ph.EffectiveRetryCount(), ph.EffectiveTimeout(), LinearBackoff)
	if err := s.repo.Create(ctx, row); err != nil {
		log.Error().Err(err).
			Str("order_id", ord.ID.String()).
			Str("pharmacy_id", pharmacyID.String()).
			Msg("failed to record transmission")
		detail.Outcome = OutcomeFailed
		detail.Reason = "failed to record transmission"
		return detail
	}

	detail.TransmissionID = &row.ID
	if row.Success {
		detail.Outcome = OutcomeSuccess
	} else {
		detail.Outcome = OutcomeFailed
		if row.ErrorMessage != nil {
			detail.Reason = *row.ErrorMessage
		}
	}
	return detail
}

// deliver resolves headers and runs the executor, returning an unsaved
// transmission row describing the outcome. A header resolution failure (for
// example an expired delegated token fetch) is recorded as a failed row with
// zero attempts; no HTTP retry budget is consumed against the pharmacy.
func (s *Service) deliver(ctx context.Context, ph *pharmacy.Pharmacy, orderID uuid.UUID, lineID *uuid.UUID, txType string, payload []byte, attempts int, timeout time.Duration, backoff Backoff) *Transmission {
	row := &Transmission{
		OrderID:          orderID,
		OrderLineID:      lineID,
		PharmacyID:       ph.ID,
		TransmissionType: txType,
		RequestPayload:   payload,
	}

	creds, err := s.pharmacies.GetCredentials(ctx, ph.ID)
	if err != nil {
		msg := fmt.Sprintf("credential lookup failed: %v", err)
		row.ErrorMessage = &msg
		return row
	}
	headers, err := s.resolver.BuildHeaders(ctx, ph, creds)
	if err != nil {
		msg := err.Error()
		row.ErrorMessage = &msg
		return row
	}

	res := s.executor.ExecuteWith(ctx, *ph.APIEndpointURL, headers, payload, attempts, timeout, backoff)
	row.Success = res.Success
	row.RetryCount = res.AttemptsUsed
	if res.ResponseStatus != 0 {
		row.ResponseStatus = &res.ResponseStatus
		row.ResponseBody = &res.ResponseBody
	}
	if res.ErrorMessage != "" {
		row.ErrorMessage = &res.ErrorMessage
	}
	return row
}

// CancelOrder notifies a pharmacy that a previously transmitted order was
// cancelled. If the order never reached the pharmacy, or its API is now
// disabled, there is nothing to notify and the call is a successful no-op.
// Cancellations run on a tighter budget than new orders: two attempts with a
// fixed two second spacing.
func (s *Service) CancelOrder(ctx context.Context, orderID, pharmacyID uuid.UUID, reason string) (*CancelResult, error) {
	prior, err := s.repo.LatestSuccessfulNewOrder(ctx, orderID, pharmacyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return &CancelResult{Success: true, Note: "order was never transmitted to this pharmacy"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup prior transmission: %w", err)
	}

	ph, err := s.pharmacies.GetByID(ctx, pharmacyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch pharmacy: %w", err)
	}
	if !ph.APIEnabled || !ph.HasEndpoint() {
		return &CancelResult{Success: true, Note: "pharmacy API disabled, nothing to notify"}, nil
	}

	ord, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}

	payload, err := json.Marshal(cancellationPayload{
		OrderID:             orderID,
		OrderLineID:         prior.OrderLineID,
		VitaluxeOrderNumber: ord.OrderNumber,
		CancellationReason:  reason,
		CancelledAt:         s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	row := s.deliver(ctx, ph, orderID, prior.OrderLineID, TypeCancellation, payload,
		2, ph.EffectiveTimeout(), FixedBackoff(2*time.Second))
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("record cancellation: %w", err)
	}

	out := &CancelResult{Success: row.Success}
	if !row.Success && row.ErrorMessage != nil {
		out.Error = *row.ErrorMessage
	}
	return out, nil
}

// RetryBatch re-runs failed transmissions one at a time. Each retry gets a
// fresh order snapshot and freshly resolved credentials; the original row is
// flagged manually_retried whether or not the new attempt succeeds. Per-item
// failures never abort the batch.
func (s *Service) RetryBatch(ctx context.Context, ids []uuid.UUID, actorUserID string) *RetryBatchResult {
	result := &RetryBatchResult{}
	for _, id := range ids {
		detail := s.retryOne(ctx, id, actorUserID)
		result.Details = append(result.Details, detail)
		switch detail.Outcome {
		case OutcomeSuccess:
			result.Successful++
		case OutcomeFailed:
			result.Failed++
		default:
			result.Skipped++
		}
	}
	return result
}

func (s *Service) retryOne(ctx context.Context, id uuid.UUID, actorUserID string) RetryDetail {
	detail := RetryDetail{TransmissionID: id}

	original, err := s.repo.GetByID(ctx, id)
	if err != nil {
		detail.Outcome = OutcomeSkipped
		detail.Reason = "transmission not found"
		return detail
	}
	// Re-running a delivery the pharmacy already accepted would submit the
	// order twice.
	if original.Success {
		detail.Outcome = OutcomeSkipped
		detail.Reason = "original transmission succeeded"
		return detail
	}

	ph, err := s.pharmacies.GetByID(ctx, original.PharmacyID)
	if err != nil {
		detail.Outcome = OutcomeSkipped
		detail.Reason = "pharmacy not found"
		return detail
	}
	// Configuration may have changed since the original failure; a pharmacy
	// taken offline is a skip, not a failure, and its original row stays
	// untouched.
	if !ph.APIEnabled || !ph.HasEndpoint() {
		detail.Outcome = OutcomeSkipped
		detail.Reason = "pharmacy API disabled or endpoint not configured"
		return detail
	}

	payload, err := s.retryPayload(ctx, original)
	if err != nil {
		detail.Outcome = OutcomeSkipped
		detail.Reason = err.Error()
		return detail
	}

	row := s.deliver(ctx, ph, original.OrderID, original.OrderLineID, original.TransmissionType,
		payload, ph.EffectiveRetryCount(), ph.EffectiveTimeout(), LinearBackoff)
	if err := s.repo.Create(ctx, row); err != nil {
		log.Error().Err(err).Str("transmission_id", id.String()).Msg("failed to record retry transmission")
		detail.Outcome = OutcomeFailed
		detail.Reason = "failed to record transmission"
		return detail
	}

	flagErr := s.repo.MarkRetried(ctx, id, actorUserID, s.now().UTC())
	if flagErr != nil {
		log.Error().Err(flagErr).Str("transmission_id", id.String()).Msg("failed to flag original transmission")
	}

	detail.NewTransmissionID = &row.ID
	if row.Success {
		detail.Outcome = OutcomeSuccess
	} else {
		detail.Outcome = OutcomeFailed
		if row.ErrorMessage != nil {
			detail.Reason = *row.ErrorMessage
		}
	}
	// An unflagged original stays eligible for another batch, so the operator
	// needs to see it even when the new attempt went through.
	if flagErr != nil {
		if detail.Reason != "" {
			detail.Reason += "; "
		}
		detail.Reason += "original transmission could not be flagged as retried"
	}
	return detail
}

// retryPayload rebuilds the outbound body. New-order retries always take a
// fresh snapshot so stale pricing or statuses from the failed attempt are
// never retransmitted; cancellations resend the recorded payload since the
// cancellation facts do not change.
func (s *Service) retryPayload(ctx context.Context, original *Transmission) ([]byte, error) {
	if original.TransmissionType == TypeCancellation {
		if len(original.RequestPayload) == 0 {
			return nil, errors.New("original payload missing")
		}
		return original.RequestPayload, nil
	}

	ord, err := s.orders.GetByID(ctx, original.OrderID)
	if err != nil {
		return nil, errors.New("order not found")
	}
	lines, err := s.orders.GetLines(ctx, original.OrderID)
	if err != nil {
		return nil, errors.New("order lines not found")
	}
	var pharmacyLines []*order.OrderLine
	for _, line := range lines {
		if line.AssignedPharmacyID != nil && *line.AssignedPharmacyID == original.PharmacyID {
			pharmacyLines = append(pharmacyLines, line)
		}
	}
	return json.Marshal(newOrderPayload{
		OrderID:          ord.ID,
		OrderNumber:      ord.OrderNumber,
		TransmissionType: TypeNewOrder,
		RequestBody:      orderSnapshot{Order: ord, Lines: pharmacyLines},
	})
}
