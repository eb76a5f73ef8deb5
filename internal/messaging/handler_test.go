package messaging

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

	"github.com/wichananm65/storefront-backend/internal/testutil"
	"github.com/wichananm65/storefront-backend/internal/webhook"
)

type stubProvider struct {
	mu   sync.Mutex
	err  error
	sent []Message
}

func (p *stubProvider) Send(_ context.Context, m Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.sent = append(p.sent, m)
	return "prov_" + strconv.Itoa(len(p.sent)), nil
}

const testSecret = "whsec_test"

var webhookNow = time.Unix(1700000000, 0)

type fixture struct {
	app   *fiber.App
	svc   *Service
	repo  *InMemoryRepository
	email *stubProvider
	sms   *stubProvider
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{repo: NewInMemoryRepository(), email: &stubProvider{}, sms: &stubProvider{}}
	f.svc = NewService(f.repo, map[string]Provider{ChannelEmail: f.email, ChannelSMS: f.sms}, nil)
	f.app = testutil.NewApp()
	h := NewHandler(f.svc, HandlerConfig{WebhookSecret: testSecret, Now: func() time.Time { return webhookNow }}, nil)
	h.RegisterPublicRoutes(f.app)
	h.RegisterProtectedRoutes(f.app)
	return f
}

func admin(r testutil.Request) testutil.Request {
	r.UserID, r.Role = "admin-1", "admin"
	return r
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t)

	res := testutil.Do(t, f.app, admin(testutil.Request{Method: "POST", Path: "/api/messages",
		Body: `{"recipients":["ann@example.com"],"message":"Hello","subject":"Hi","channel":"email"}`}))
	require.Equal(t, fiber.StatusOK, res.Status, res.Raw)
	id, _ := res.Body["messageId"].(string)
	require.NotEmpty(t, id)

	l, err := f.repo.GetByID(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, l.Status)
	assert.Equal(t, "prov_1", l.ProviderID)
	assert.Equal(t, 1, l.Attempts)
	require.Len(t, f.email.sent, 1)
	assert.Equal(t, "Hi", f.email.sent[0].Subject)

	res = testutil.Do(t, f.app, admin(testutil.Request{Method: "POST", Path: "/api/messages",
		Body: `{"recipients":["+66811111111"],"message":"Hello","channel":"sms"}`}))
	require.Equal(t, fiber.StatusOK, res.Status, res.Raw)
	assert.Len(t, f.sms.sent, 1)
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture(t)

	cases := map[string]string{
		"no recipients":    `{"recipients":[],"message":"Hello","channel":"email"}`,
		"unknown channel":  `{"recipients":["a@example.com"],"message":"Hello","channel":"fax"}`,
		"empty message":    `{"recipients":["a@example.com"],"message":"","channel":"email"}`,
		"bad email":        `{"recipients":["not-an-email"],"message":"Hello","channel":"email"}`,
		"bad phone number": `{"recipients":["0811111111"],"message":"Hello","channel":"sms"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			res := testutil.Do(t, f.app, admin(testutil.Request{Method: "POST", Path: "/api/messages", Body: body}))
			assert.Equal(t, fiber.StatusBadRequest, res.Status, res.Raw)
		})
	}

	res := testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/messages", UserID: "p1", Role: "customer",
		Body: `{"recipients":["a@example.com"],"message":"Hello","channel":"email"}`})
	assert.Equal(t, fiber.StatusForbidden, res.Status)
	assert.Empty(t, f.email.sent)
}

func TestSendMessage_ProviderFailureKeepsLog(t *testing.T) {
	f := newFixture(t)
	f.email.err = errors.New("rate limited")

	res := testutil.Do(t, f.app, admin(testutil.Request{Method: "POST", Path: "/api/messages",
		Body: `{"recipients":["ann@example.com"],"message":"Hello","channel":"email"}`}))
	assert.Equal(t, fiber.StatusInternalServerError, res.Status)
	assert.Equal(t, "message dispatch failed", res.Body["error"])

	logs, total, err := f.repo.List(t.Context(), Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, StatusFailed, logs[0].Status)
	assert.Equal(t, "rate limited", logs[0].Error)

	f.email.err = nil
	res = testutil.Do(t, f.app, admin(testutil.Request{Method: "POST", Path: "/api/messages/" + logs[0].ID + "/resend"}))
	require.Equal(t, fiber.StatusOK, res.Status, res.Raw)
	assert.EqualValues(t, 2, res.Body["attempts"])

	l, _ := f.repo.GetByID(t.Context(), logs[0].ID)
	assert.Equal(t, StatusSent, l.Status)
	assert.Empty(t, l.Error)
}

func TestSend_ReusesLogForSameID(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	m := Message{ID: "6f1c2b8e-3d4a-5b6c-8d7e-9f0a1b2c3d4e", Channel: ChannelEmail, Recipients: []string{"a@example.com"}, Body: "x"}

	f.email.err = errors.New("provider down")
	_, err := f.svc.Send(ctx, m)
	assert.ErrorIs(t, err, ErrDispatch)

	f.email.err = nil
	l, err := f.svc.Send(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, m.ID, l.ID)
	assert.Equal(t, StatusSent, l.Status)
	assert.Equal(t, 2, l.Attempts)

	again, err := f.svc.Send(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Attempts, "a sent message is not dispatched again")
	assert.Len(t, f.email.sent, 1)

	_, total, err := f.repo.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, err = f.svc.Send(ctx, Message{ID: "not-a-uuid", Channel: ChannelEmail, Recipients: []string{"a@example.com"}, Body: "x"})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestResend_NotFound(t *testing.T) {
	f := newFixture(t)

	res := testutil.Do(t, f.app, admin(testutil.Request{Method: "POST", Path: "/api/messages/2b1d0c8e-53a4-4c1e-9c1f-0b8f6f1a2b3c/resend"}))
	assert.Equal(t, fiber.StatusNotFound, res.Status)

	res = testutil.Do(t, f.app, admin(testutil.Request{Method: "POST", Path: "/api/messages/not-a-uuid/resend"}))
	assert.Equal(t, fiber.StatusNotFound, res.Status)
}

func TestLogs(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	for i := 0; i < 3; i++ {
		_, err := f.svc.Send(ctx, Message{Channel: ChannelEmail, Recipients: []string{"a@example.com"}, Body: "x"})
		require.NoError(t, err)
	}
	_, err := f.svc.Send(ctx, Message{Channel: ChannelSMS, Recipients: []string{"+66811111111"}, Body: "x"})
	require.NoError(t, err)

	res := testutil.Do(t, f.app, admin(testutil.Request{Method: "GET", Path: "/api/messages/logs?channel=email&limit=2"}))
	require.Equal(t, fiber.StatusOK, res.Status, res.Raw)
	assert.Len(t, res.Body["logs"], 2)
	assert.EqualValues(t, 3, res.Body["total"])
	assert.EqualValues(t, 1, res.Body["page"])
	assert.EqualValues(t, 2, res.Body["limit"])

	res = testutil.Do(t, f.app, admin(testutil.Request{Method: "GET", Path: "/api/messages/logs?channel=email&limit=2&page=2"}))
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Len(t, res.Body["logs"], 1)

	res = testutil.Do(t, f.app, admin(testutil.Request{Method: "GET", Path: "/api/messages/logs?limit=500"}))
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.EqualValues(t, 100, res.Body["limit"])
	assert.EqualValues(t, 4, res.Body["total"])

	for _, q := range []string{"channel=fax", "status=lost"} {
		res = testutil.Do(t, f.app, admin(testutil.Request{Method: "GET", Path: "/api/messages/logs?" + q}))
		assert.Equal(t, fiber.StatusBadRequest, res.Status, q)
	}
}

func TestDeliveryWebhook(t *testing.T) {
	f := newFixture(t)
	l, err := f.svc.Send(t.Context(), Message{Channel: ChannelEmail, Recipients: []string{"a@example.com"}, Body: "x"})
	require.NoError(t, err)

	payload := `{"type":"email.bounced","created_at":"2023-11-14T22:13:20Z","data":{"email_id":"` + l.ProviderID + `","to":["a@example.com"],"bounce":{"message":"mailbox full"}}}`
	header := webhook.Sign(payload, strconv.FormatInt(webhookNow.Unix(), 10), testSecret)

	res := testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/webhooks/messaging", Body: payload,
		Headers: map[string]string{"resend-signature": header}})
	require.Equal(t, fiber.StatusOK, res.Status, res.Raw)

	updated, _ := f.repo.GetByID(t.Context(), l.ID)
	assert.Equal(t, StatusBounced, updated.Status)
	assert.Equal(t, "mailbox full", updated.Error)

	delivered := `{"type":"email.delivered","data":{"email_id":"` + l.ProviderID + `"}}`
	res = testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/webhooks/messaging", Body: delivered,
		Headers: map[string]string{"webhook-signature": webhook.Sign(delivered, strconv.FormatInt(webhookNow.Unix(), 10), testSecret)}})
	require.Equal(t, fiber.StatusOK, res.Status)
	updated, _ = f.repo.GetByID(t.Context(), l.ID)
	assert.Equal(t, StatusBounced, updated.Status, "a bounce is final")
}

func TestApplyDeliveryEvent_NeverMovesBackwards(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	l, err := f.svc.Send(ctx, Message{Channel: ChannelEmail, Recipients: []string{"a@example.com"}, Body: "x"})
	require.NoError(t, err)
	event := func(typ string) DeliveryEvent {
		ev := DeliveryEvent{Type: typ}
		ev.Data.EmailID = l.ProviderID
		return ev
	}

	require.NoError(t, f.svc.ApplyDeliveryEvent(ctx, event(EventEmailDelayed)))
	stored, _ := f.repo.GetByID(ctx, l.ID)
	assert.Equal(t, StatusSent, stored.Status)
	assert.Equal(t, "delivery delayed", stored.Error)

	require.NoError(t, f.svc.ApplyDeliveryEvent(ctx, event(EventEmailDelivered)))
	require.NoError(t, f.svc.ApplyDeliveryEvent(ctx, event(EventEmailSent)))
	require.NoError(t, f.svc.ApplyDeliveryEvent(ctx, event(EventEmailDelayed)))
	stored, _ = f.repo.GetByID(ctx, l.ID)
	assert.Equal(t, StatusDelivered, stored.Status)

	require.NoError(t, f.svc.ApplyDeliveryEvent(ctx, event(EventEmailBounced)))
	require.NoError(t, f.svc.ApplyDeliveryEvent(ctx, event(EventEmailDelivered)))
	stored, _ = f.repo.GetByID(ctx, l.ID)
	assert.Equal(t, StatusBounced, stored.Status)
}

func TestDeliveryWebhook_Rejected(t *testing.T) {
	f := newFixture(t)
	payload := `{"type":"email.delivered","data":{"email_id":"prov_1"}}`
	ts := strconv.FormatInt(webhookNow.Unix(), 10)

	res := testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/webhooks/messaging", Body: payload,
		Headers: map[string]string{"resend-signature": webhook.Sign(payload, ts, "wrong-secret")}})
	assert.Equal(t, fiber.StatusUnauthorized, res.Status)

	res = testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/webhooks/messaging", Body: payload})
	assert.Equal(t, fiber.StatusUnauthorized, res.Status)

	stale := strconv.FormatInt(webhookNow.Add(-time.Hour).Unix(), 10)
	res = testutil.Do(t, f.app, testutil.Request{Method: "POST", Path: "/api/webhooks/messaging", Body: payload,
		Headers: map[string]string{"resend-signature": webhook.Sign(payload, stale, testSecret)}})
	assert.Equal(t, fiber.StatusUnauthorized, res.Status)
	assert.Equal(t, "stale signature", res.Body["error"])
}

func TestNewService_FallsBackToLogProvider(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo, nil, nil)

	l, err := svc.Send(t.Context(), Message{Channel: ChannelSMS, Recipients: []string{"+66811111111"}, Body: "x"})
	require.NoError(t, err)
	assert.Equal(t, StatusSent, l.Status)
	assert.Regexp(t, `^log_`, l.ProviderID)
}
