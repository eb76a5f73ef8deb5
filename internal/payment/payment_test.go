package payment

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wichananm65/storefront-backend/internal/booking"
	"github.com/wichananm65/storefront-backend/internal/mq"
	"github.com/wichananm65/storefront-backend/internal/order"
	"github.com/wichananm65/storefront-backend/internal/testutil"
)

type fakeProcessor struct {
	status    string
	createErr error
	requests  []ChargeRequest
	events    map[string]Event
}

func (p *fakeProcessor) CreateCharge(_ context.Context, req ChargeRequest) (Charge, error) {
	if p.createErr != nil {
		return Charge{}, p.createErr
	}
	p.requests = append(p.requests, req)
	ch := Charge{
		ID:       "chrg_" + strconv.Itoa(len(p.requests)),
		Status:   p.status,
		Amount:   req.Amount,
		Currency: req.Currency,
		Metadata: req.Metadata,
	}
	if ch.Status == ChargePending {
		ch.AuthorizeURI = "https://pay.example.com/authorize/" + ch.ID
	}
	return ch, nil
}

func (p *fakeProcessor) RetrieveEvent(_ context.Context, id string) (Event, error) {
	ev, ok := p.events[id]
	if !ok {
		return Event{}, errors.New("event not found")
	}
	return ev, nil
}

type emailBook map[string]string

func (e emailBook) Email(_ context.Context, id string) (string, error) {
	if addr, ok := e[id]; ok {
		return addr, nil
	}
	return "", errors.New("unknown profile")
}

type capturePublisher struct {
	mu     sync.Mutex
	keys   []string
	events []mq.PaymentEvent
}

func (p *capturePublisher) PublishJSON(_ context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if evt, ok := v.(mq.PaymentEvent); ok {
		p.keys = append(p.keys, key)
		p.events = append(p.events, evt)
	}
	return nil
}

type fixture struct {
	app       *fiber.App
	svc       *Service
	processor *fakeProcessor
	orders    *order.InMemoryRepository
	bookings  *booking.Service
	events    *capturePublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		processor: &fakeProcessor{status: ChargePending, events: map[string]Event{}},
		orders:    order.NewInMemoryRepository(),
		events:    &capturePublisher{},
	}
	orders := order.NewService(f.orders, nil, nil, nil, nil)
	f.bookings = booking.NewService(booking.NewInMemoryRepository(), booking.Options{
		Slots: []string{"09:00", "10:00"},
		Now:   func() time.Time { return time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC) },
	})
	f.svc = NewService(f.processor, orders, f.bookings, emailBook{"p1": "p1@example.com"}, f.events,
		Config{Currency: "thb", ReturnURI: "https://shop.example.com/payment/complete"}, nil)

	f.app = testutil.NewApp()
	h := NewHandler(f.svc, nil)
	h.RegisterPublicRoutes(f.app)
	h.RegisterProtectedRoutes(f.app)
	return f
}

func (f fixture) order(t *testing.T, profileID string, total int64) order.Order {
	t.Helper()
	o, err := f.orders.Create(t.Context(), order.Order{ProfileID: profileID, TotalCents: total, Status: order.StatusPending})
	require.NoError(t, err)
	return o
}

func (f fixture) booking(t *testing.T, profileID string) booking.Booking {
	t.Helper()
	b, err := f.bookings.Create(t.Context(), booking.CreateInput{
		ProfileID: profileID, Date: "2030-06-02", Slot: "09:00", Service: "Grooming",
		ClientName: "Ann", ClientEmail: "ann@example.com",
	})
	require.NoError(t, err)
	return b
}

func TestPayOrder_Pending(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, "p1", 104900)

	res := testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/payment", UserID: "p1",
		Body: `{"orderId":` + strconv.Itoa(o.ID) + `,"sourceType":"promptpay"}`})
	require.Equal(t, fiber.StatusOK, res.Status, res.Raw)
	assert.Equal(t, true, res.Body["success"])
	assert.Equal(t, "chrg_1", res.Body["chargeId"])
	assert.Equal(t, ChargePending, res.Body["status"])
	assert.NotEmpty(t, res.Body["authorizeUri"])

	require.Len(t, f.processor.requests, 1)
	req := f.processor.requests[0]
	assert.Equal(t, int64(104900), req.Amount)
	assert.Equal(t, "thb", req.Currency)
	assert.Equal(t, map[string]string{"target": TargetOrder, "target_id": strconv.Itoa(o.ID)}, req.Metadata)

	stored, err := f.orders.GetByID(t.Context(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "chrg_1", stored.PaymentRef)
	assert.Equal(t, order.StatusPending, stored.Status)
	assert.Empty(t, f.events.keys, "pending charges wait for the webhook")
}

func TestPayOrder_ImmediateSuccess(t *testing.T) {
	f := newFixture(t)
	f.processor.status = ChargeSuccessful
	o := f.order(t, "p1", 5000)

	res := testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/payment", UserID: "p1",
		Body: `{"orderId":` + strconv.Itoa(o.ID) + `,"cardToken":"tokn_test"}`})
	require.Equal(t, fiber.StatusOK, res.Status, res.Raw)

	stored, _ := f.orders.GetByID(t.Context(), o.ID)
	assert.Equal(t, order.StatusPaid, stored.Status)
	require.Equal(t, []string{mq.RKPaymentPaid}, f.events.keys)
	assert.Equal(t, "p1@example.com", f.events.events[0].Email)

	res = testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/payment", UserID: "p1",
		Body: `{"orderId":` + strconv.Itoa(o.ID) + `,"cardToken":"tokn_test"}`})
	assert.Equal(t, fiber.StatusBadRequest, res.Status)
	assert.Equal(t, "order is already paid", res.Body["error"])
}

func TestPayOrder_Errors(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, "p1", 5000)
	body := `{"orderId":` + strconv.Itoa(o.ID) + `,"cardToken":"tokn_test"}`

	res := testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/payment", UserID: "p2", Body: body})
	assert.Equal(t, fiber.StatusNotFound, res.Status, "other profiles cannot pay")

	res = testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/payment", UserID: "p1", Body: `{"orderId":999,"cardToken":"tokn_test"}`})
	assert.Equal(t, fiber.StatusNotFound, res.Status)

	res = testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/payment", UserID: "p1", Body: `{"orderId":` + strconv.Itoa(o.ID) + `}`})
	assert.Equal(t, fiber.StatusBadRequest, res.Status)

	res = testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/payment", UserID: "p1", Body: `{"cardToken":"tokn_test"}`})
	assert.Equal(t, fiber.StatusBadRequest, res.Status)

	f.processor.createErr = errors.New("gateway timeout")
	res = testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/payment", UserID: "p1", Body: body})
	assert.Equal(t, fiber.StatusInternalServerError, res.Status)
	assert.Equal(t, "internal server error", res.Body["error"])
}

func TestDeposit(t *testing.T) {
	f := newFixture(t)
	b := f.booking(t, "p1")
	body := `{"bookingId":` + strconv.Itoa(b.ID) + `,"amountCents":50000,"cardToken":"tokn_test"}`

	res := testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/deposit", UserID: "p2", Role: "customer", Body: body})
	assert.Equal(t, fiber.StatusNotFound, res.Status)

	res = testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/deposit", UserID: "admin-1", Role: "admin", Body: body})
	require.Equal(t, fiber.StatusOK, res.Status, res.Raw)

	stored, err := f.bookings.GetByID(t.Context(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), stored.DepositCents)
	assert.Equal(t, "chrg_1", stored.PaymentRef)

	res = testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/deposit", UserID: "p1", Body: `{"bookingId":` + strconv.Itoa(b.ID) + `,"amountCents":0,"cardToken":"t"}`})
	assert.Equal(t, fiber.StatusBadRequest, res.Status)

	_, err = f.bookings.UpdateStatus(t.Context(), "admin-1", b.ID, booking.StatusCancelled)
	require.NoError(t, err)
	res = testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/deposit", UserID: "p1", Body: body})
	assert.Equal(t, fiber.StatusBadRequest, res.Status)
}

func TestWebhook_SettlesOrderAndBooking(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, "p1", 5000)
	b := f.booking(t, "p9")

	f.processor.events["evnt_order"] = Event{ID: "evnt_order", Key: EventChargeComplete, Charge: &Charge{
		ID: "chrg_a", Status: ChargeFailed, Amount: 5000, Currency: "thb", FailureCode: "insufficient_fund",
		Metadata: map[string]string{"target": TargetOrder, "target_id": strconv.Itoa(o.ID)},
	}}
	f.processor.events["evnt_booking"] = Event{ID: "evnt_booking", Key: EventChargeComplete, Charge: &Charge{
		ID: "chrg_b", Status: ChargeSuccessful, Amount: 50000, Currency: "thb",
		Metadata: map[string]string{"target": TargetBooking, "target_id": strconv.Itoa(b.ID)},
	}}
	f.processor.events["evnt_other"] = Event{ID: "evnt_other", Key: "customer.create"}

	res := testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/webhooks/payment", Body: `{"id":"evnt_order","key":"charge.complete"}`})
	require.Equal(t, fiber.StatusOK, res.Status, res.Raw)
	stored, _ := f.orders.GetByID(t.Context(), o.ID)
	assert.Equal(t, order.StatusFailed, stored.Status)

	res = testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/webhooks/payment", Body: `{"id":"evnt_booking","key":"charge.complete"}`})
	require.Equal(t, fiber.StatusOK, res.Status, res.Raw)
	confirmed, _ := f.bookings.GetByID(t.Context(), b.ID)
	assert.Equal(t, booking.StatusConfirmed, confirmed.Status)

	res = testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/webhooks/payment", Body: `{"id":"evnt_other"}`})
	assert.Equal(t, fiber.StatusOK, res.Status)

	require.Equal(t, []string{mq.RKPaymentFailed, mq.RKPaymentPaid}, f.events.keys)
	assert.Equal(t, "insufficient_fund", f.events.events[0].FailureCode)
	assert.Equal(t, "p1@example.com", f.events.events[0].Email)
	assert.Equal(t, "ann@example.com", f.events.events[1].Email)
	assert.Equal(t, TargetBooking, f.events.events[1].Target)
}

func TestWebhook_UnknownEventIsUnauthorized(t *testing.T) {
	f := newFixture(t)

	res := testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/webhooks/payment", Body: `{"id":"evnt_forged","key":"charge.complete"}`})
	assert.Equal(t, fiber.StatusUnauthorized, res.Status)

	res = testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/webhooks/payment", Body: `{}`})
	assert.Equal(t, fiber.StatusBadRequest, res.Status)
}

func TestWebhook_BadMetadataIsServerError(t *testing.T) {
	f := newFixture(t)
	f.processor.events["evnt_x"] = Event{ID: "evnt_x", Key: EventChargeComplete, Charge: &Charge{
		ID: "chrg_x", Status: ChargeSuccessful, Metadata: map[string]string{"target": "gift-card", "target_id": "1"},
	}}

	res := testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/webhooks/payment", Body: `{"id":"evnt_x"}`})
	assert.Equal(t, fiber.StatusInternalServerError, res.Status)
}

func TestWebhook_LateFailureDoesNotUndoPayment(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, "p1", 5000)
	b := f.booking(t, "p9")
	orderMeta := map[string]string{"target": TargetOrder, "target_id": strconv.Itoa(o.ID)}
	bookingMeta := map[string]string{"target": TargetBooking, "target_id": strconv.Itoa(b.ID)}

	f.processor.events["evnt_paid"] = Event{ID: "evnt_paid", Key: EventChargeComplete, Charge: &Charge{
		ID: "chrg_b", Status: ChargeSuccessful, Amount: 5000, Metadata: orderMeta,
	}}
	f.processor.events["evnt_late"] = Event{ID: "evnt_late", Key: EventChargeComplete, Charge: &Charge{
		ID: "chrg_a", Status: ChargeFailed, Amount: 5000, Metadata: orderMeta,
	}}
	f.processor.events["evnt_deposit"] = Event{ID: "evnt_deposit", Key: EventChargeComplete, Charge: &Charge{
		ID: "chrg_d", Status: ChargeSuccessful, Amount: 50000, Metadata: bookingMeta,
	}}
	f.processor.events["evnt_deposit_late"] = Event{ID: "evnt_deposit_late", Key: EventChargeComplete, Charge: &Charge{
		ID: "chrg_c", Status: ChargeFailed, Amount: 50000, Metadata: bookingMeta,
	}}

	for _, id := range []string{"evnt_paid", "evnt_late", "evnt_deposit", "evnt_deposit_late"} {
		require.NoError(t, f.svc.HandleEvent(t.Context(), id), id)
	}

	stored, err := f.orders.GetByID(t.Context(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, stored.Status)

	confirmed, err := f.bookings.GetByID(t.Context(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, confirmed.Status)

	assert.Equal(t, []string{mq.RKPaymentPaid, mq.RKPaymentPaid}, f.events.keys, "stale failures publish nothing")
}

func TestWebhook_FailureForSupersededCharge(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, "p1", 5000)

	res := testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/payment", UserID: "p1",
		Body: `{"orderId":` + strconv.Itoa(o.ID) + `,"sourceType":"promptpay"}`})
	require.Equal(t, fiber.StatusOK, res.Status, res.Raw)
	res = testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/payment", UserID: "p1",
		Body: `{"orderId":` + strconv.Itoa(o.ID) + `,"sourceType":"promptpay"}`})
	require.Equal(t, fiber.StatusOK, res.Status, res.Raw)

	meta := map[string]string{"target": TargetOrder, "target_id": strconv.Itoa(o.ID)}
	f.processor.events["evnt_1"] = Event{ID: "evnt_1", Key: EventChargeComplete, Charge: &Charge{ID: "chrg_1", Status: ChargeFailed, Metadata: meta}}
	f.processor.events["evnt_2"] = Event{ID: "evnt_2", Key: EventChargeComplete, Charge: &Charge{ID: "chrg_2", Status: ChargeFailed, Metadata: meta}}

	require.NoError(t, f.svc.HandleEvent(t.Context(), "evnt_1"))
	stored, _ := f.orders.GetByID(t.Context(), o.ID)
	assert.Equal(t, order.StatusPending, stored.Status, "chrg_1 was replaced by chrg_2")
	assert.Empty(t, f.events.keys)

	require.NoError(t, f.svc.HandleEvent(t.Context(), "evnt_2"))
	stored, _ = f.orders.GetByID(t.Context(), o.ID)
	assert.Equal(t, order.StatusFailed, stored.Status)
	assert.Equal(t, []string{mq.RKPaymentFailed}, f.events.keys)
}
