package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/hospital-booking-platform/internal/appointments"
	"github.com/wolfman30/hospital-booking-platform/internal/events"
)

const webhookSecret = "whsec_test"

func capturedBody(orderID, paymentID string) string {
	return fmt.Sprintf(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q,"status":"captured"}}}}`, paymentID, orderID)
}

func webhookRequest(body, eventID, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/razorpay", strings.NewReader(body))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	req.Header.Set("X-Razorpay-Signature", hex.EncodeToString(mac.Sum(nil)))
	if eventID != "" {
		req.Header.Set("X-Razorpay-Event-Id", eventID)
	}
	return req
}

func TestWebhookConfirmsCapturedPayment(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, f.user, f.appt.ID, 500)
	require.NoError(t, err)

	h := NewRazorpayWebhookHandler(webhookSecret, f.svc, events.NewMemoryProcessedStore(), nil)
	body := capturedBody(order.OrderID, "pay_77")

	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(body, "evt_1", webhookSecret))
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.lifecycle.Get(ctx, f.user, f.appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appointments.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, 1, f.notifier.calls)

	// redelivery of the same event is acknowledged without side effects
	rec = httptest.NewRecorder()
	h.Handle(rec, webhookRequest(body, "evt_1", webhookSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.notifier.calls)

	// a second event for an order the checkout callback already settled
	rec = httptest.NewRecorder()
	h.Handle(rec, webhookRequest(body, "evt_2", webhookSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.notifier.calls)
}

func TestWebhookRejectsBadRequests(t *testing.T) {
	f := newFixture(t, "")
	h := NewRazorpayWebhookHandler(webhookSecret, f.svc, events.NewMemoryProcessedStore(), nil)
	body := capturedBody("order_x", "pay_x")

	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(body, "evt_1", "wrong"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Handle(rec, webhookRequest(body, "", webhookSecret))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Handle(rec, webhookRequest("{not json", "evt_2", webhookSecret))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	unsigned := NewRazorpayWebhookHandler("", f.svc, events.NewMemoryProcessedStore(), nil)
	rec = httptest.NewRecorder()
	unsigned.Handle(rec, webhookRequest(body, "evt_3", ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookAcknowledgesUnknownOrdersAndOtherEvents(t *testing.T) {
	f := newFixture(t, "")
	processed := events.NewMemoryProcessedStore()
	h := NewRazorpayWebhookHandler(webhookSecret, f.svc, processed, nil)

	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(capturedBody("order_missing", "pay_1"), "evt_1", webhookSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
	seen, _ := processed.AlreadyProcessed(context.Background(), "razorpay", "evt_1")
	assert.True(t, seen)

	rec = httptest.NewRecorder()
	h.Handle(rec, webhookRequest(`{"event":"refund.created","payload":{}}`, "evt_2", webhookSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, f.notifier.calls)
}

type failingTracker struct{}

func (failingTracker) AlreadyProcessed(context.Context, string, string) (bool, error) {
	return false, errors.New("db down")
}

func (failingTracker) MarkProcessed(context.Context, string, string) (bool, error) {
	return false, errors.New("db down")
}

func TestWebhookProcessedLookupFailure(t *testing.T) {
	f := newFixture(t, "")
	h := NewRazorpayWebhookHandler(webhookSecret, f.svc, failingTracker{}, nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(capturedBody("order_x", "pay_x"), "evt_1", webhookSecret))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
