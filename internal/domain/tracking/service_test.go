package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vitaluxe/pharmacy-bridge/internal/domain/order"
	"github.com/vitaluxe/pharmacy-bridge/internal/domain/pharmacy"
)

type mockUpdateRepo struct {
	updates   []*Update
	createErr error
}

func (m *mockUpdateRepo) Create(_ context.Context, u *Update) error {
	if m.createErr != nil {
		return m.createErr
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.updates = append(m.updates, u)
	return nil
}

func (m *mockUpdateRepo) List(_ context.Context, _ ListFilter, _, _ int) ([]*Update, int, error) {
	return m.updates, len(m.updates), nil
}

type mockOrderRepo struct {
	orders  map[uuid.UUID]*order.Order
	lines   map[uuid.UUID]*order.OrderLine
	updated []*order.OrderLine
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders: make(map[uuid.UUID]*order.Order),
		lines:  make(map[uuid.UUID]*order.OrderLine),
	}
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockOrderRepo) GetByOrderNumber(_ context.Context, orderNumber string) (*order.Order, error) {
	for _, o := range m.orders {
		if o.OrderNumber == orderNumber {
			return o, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockOrderRepo) GetLines(_ context.Context, orderID uuid.UUID) ([]*order.OrderLine, error) {
	var result []*order.OrderLine
	for _, l := range m.lines {
		if l.OrderID == orderID {
			result = append(result, l)
		}
	}
	return result, nil
}

func (m *mockOrderRepo) GetLineByID(_ context.Context, id uuid.UUID) (*order.OrderLine, error) {
	l, ok := m.lines[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return l, nil
}

func (m *mockOrderRepo) GetLineForPharmacy(_ context.Context, orderID, pharmacyID uuid.UUID) (*order.OrderLine, error) {
	for _, l := range m.lines {
		if l.OrderID == orderID && l.AssignedPharmacyID != nil && *l.AssignedPharmacyID == pharmacyID {
			return l, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockOrderRepo) UpdateLineTracking(_ context.Context, line *order.OrderLine) error {
	m.updated = append(m.updated, line)
	return nil
}

type mockPharmacyRepo struct {
	pharmacies map[uuid.UUID]*pharmacy.Pharmacy
}

func newMockPharmacyRepo() *mockPharmacyRepo {
	return &mockPharmacyRepo{pharmacies: make(map[uuid.UUID]*pharmacy.Pharmacy)}
}

func (m *mockPharmacyRepo) Create(_ context.Context, p *pharmacy.Pharmacy) error {
	m.pharmacies[p.ID] = p
	return nil
}

func (m *mockPharmacyRepo) GetByID(_ context.Context, id uuid.UUID) (*pharmacy.Pharmacy, error) {
	p, ok := m.pharmacies[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockPharmacyRepo) Update(_ context.Context, p *pharmacy.Pharmacy) error {
	m.pharmacies[p.ID] = p
	return nil
}

func (m *mockPharmacyRepo) List(_ context.Context, _, _ int) ([]*pharmacy.Pharmacy, int, error) {
	return nil, 0, nil
}

func (m *mockPharmacyRepo) SetCredential(_ context.Context, _ *pharmacy.Credential) error {
	return nil
}

func (m *mockPharmacyRepo) GetCredentials(_ context.Context, _ uuid.UUID) ([]*pharmacy.Credential, error) {
	return nil, nil
}

type fixture struct {
	svc        *Service
	updates    *mockUpdateRepo
	orders     *mockOrderRepo
	pharmacies *mockPharmacyRepo
	pharmacy   *pharmacy.Pharmacy
	line       *order.OrderLine
	secret     string
}

func newFixture() *fixture {
	f := &fixture{
		updates:    &mockUpdateRepo{},
		orders:     newMockOrderRepo(),
		pharmacies: newMockPharmacyRepo(),
		secret:     "whsec_fixture",
	}
	f.svc = NewService(f.updates, f.orders, f.pharmacies)

	f.pharmacy = &pharmacy.Pharmacy{
		ID:            uuid.New(),
		Name:          "Hallandale",
		APIEnabled:    true,
		WebhookSecret: &f.secret,
	}
	f.pharmacies.pharmacies[f.pharmacy.ID] = f.pharmacy

	o := &order.Order{ID: uuid.New(), OrderNumber: "VL-1001", Status: "processing"}
	f.orders.orders[o.ID] = o
	f.line = &order.OrderLine{
		ID:                 uuid.New(),
		OrderID:            o.ID,
		AssignedPharmacyID: &f.pharmacy.ID,
		ProductName:        "Semaglutide 2mg",
		Quantity:           1,
		Status:             order.LineStatusProcessing,
	}
	f.orders.lines[f.line.ID] = f.line
	return f
}

func (f *fixture) process(t *testing.T, body string) error {
	t.Helper()
	raw := []byte(body)
	_, err := f.svc.ProcessWebhook(context.Background(), f.pharmacy.ID, Sign(raw, f.secret), raw)
	return err
}

func TestWebhookDeliveredUpdatesLine(t *testing.T) {
	f := newFixture()
	err := f.process(t, `{"order_line_id":"`+f.line.ID.String()+`","status":"delivered","tracking_number":"1Z999","carrier":"UPS"}`)
	if err != nil {
		t.Fatalf("ProcessWebhook: %v", err)
	}

	if len(f.updates.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(f.updates.updates))
	}
	u := f.updates.updates[0]
	if u.OrderLineID != f.line.ID || u.Status != "delivered" {
		t.Errorf("update = %+v", u)
	}
	if len(u.RawPayload) == 0 {
		t.Error("raw payload not preserved")
	}

	if f.line.Status != order.LineStatusDelivered {
		t.Errorf("line status = %q, want delivered", f.line.Status)
	}
	if f.line.DeliveredAt == nil {
		t.Error("delivered_at not set")
	}
	if f.line.TrackingNumber == nil || *f.line.TrackingNumber != "1Z999" {
		t.Errorf("tracking number = %v", f.line.TrackingNumber)
	}
	if len(f.orders.updated) != 1 {
		t.Errorf("line updates = %d, want 1", len(f.orders.updated))
	}
}

func TestWebhookInTransitMapsToShipped(t *testing.T) {
	f := newFixture()
	err := f.process(t, `{"order_line_id":"`+f.line.ID.String()+`","status":"in_transit","tracking_number":"1Z999"}`)
	if err != nil {
		t.Fatalf("ProcessWebhook: %v", err)
	}
	if f.line.Status != order.LineStatusShipped {
		t.Errorf("line status = %q, want shipped", f.line.Status)
	}
	if f.line.DeliveredAt != nil {
		t.Error("delivered_at must only be set on delivered status")
	}
}

func TestWebhookUnknownStatusLeavesLineStatus(t *testing.T) {
	f := newFixture()
	err := f.process(t, `{"order_line_id":"`+f.line.ID.String()+`","status":"label_created","tracking_number":"1Z999"}`)
	if err != nil {
		t.Fatalf("ProcessWebhook: %v", err)
	}
	if f.line.Status != order.LineStatusProcessing {
		t.Errorf("line status = %q, want processing (unchanged)", f.line.Status)
	}
	if f.line.TrackingNumber == nil {
		t.Error("tracking number should still be recorded")
	}
}

func TestWebhookWithoutTrackingNumberSkipsLineUpdate(t *testing.T) {
	f := newFixture()
	err := f.process(t, `{"order_line_id":"`+f.line.ID.String()+`","status":"delivered"}`)
	if err != nil {
		t.Fatalf("ProcessWebhook: %v", err)
	}
	if len(f.updates.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(f.updates.updates))
	}
	if len(f.orders.updated) != 0 {
		t.Error("line must not be touched without a tracking number")
	}
}

func TestWebhookResolvesByOrderNumber(t *testing.T) {
	f := newFixture()
	err := f.process(t, `{"vitaluxe_order_number":"VL-1001","status":"in_transit","tracking_number":"1Z999"}`)
	if err != nil {
		t.Fatalf("ProcessWebhook: %v", err)
	}
	if len(f.updates.updates) != 1 || f.updates.updates[0].OrderLineID != f.line.ID {
		t.Errorf("updates = %+v", f.updates.updates)
	}
}

func TestWebhookRejections(t *testing.T) {
	t.Run("unknown pharmacy", func(t *testing.T) {
		f := newFixture()
		raw := []byte(`{"order_line_id":"x","status":"shipped"}`)
		_, err := f.svc.ProcessWebhook(context.Background(), uuid.New(), Sign(raw, f.secret), raw)
		if !errors.Is(err, ErrPharmacyNotFoundOrDisabled) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("disabled pharmacy", func(t *testing.T) {
		f := newFixture()
		f.pharmacy.APIEnabled = false
		if err := f.process(t, `{"order_line_id":"x","status":"shipped"}`); !errors.Is(err, ErrPharmacyNotFoundOrDisabled) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		f := newFixture()
		raw := []byte(`{"order_line_id":"x","status":"shipped"}`)
		sig := Sign(raw, f.secret)
		raw[5] ^= 0x01
		_, err := f.svc.ProcessWebhook(context.Background(), f.pharmacy.ID, sig, raw)
		if !errors.Is(err, ErrSignatureInvalid) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		f := newFixture()
		if err := f.process(t, `{not json`); !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("validation errors", func(t *testing.T) {
		f := newFixture()
		err := f.process(t, `{}`)
		var payloadErr *PayloadError
		if !errors.As(err, &payloadErr) {
			t.Fatalf("err = %v", err)
		}
		if len(payloadErr.Errors) != 2 {
			t.Errorf("errors = %v, want 2", payloadErr.Errors)
		}
	})

	t.Run("unresolvable line", func(t *testing.T) {
		f := newFixture()
		if err := f.process(t, `{"order_line_id":"`+uuid.NewString()+`","status":"shipped"}`); !errors.Is(err, ErrOrderLineNotFound) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("rejections leave no rows", func(t *testing.T) {
		f := newFixture()
		f.process(t, `{}`)
		f.process(t, `{not json`)
		if len(f.updates.updates) != 0 || len(f.orders.updated) != 0 {
			t.Error("rejected webhooks must not write anything")
		}
	})
}
