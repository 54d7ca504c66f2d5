package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/hospital-booking-platform/internal/appointments"
	"github.com/wolfman30/hospital-booking-platform/internal/scheduling"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func paidAppointment() *appointments.Appointment {
	return &appointments.Appointment{
		ID:            uuid.New(),
		Name:          "Asha Rao",
		Age:           34,
		Sex:           appointments.SexFemale,
		Date:          scheduling.NewDay(2026, 10, 20),
		Time:          scheduling.Clock{Hour: 9},
		Department:    "Cardiology",
		Doctor:        "Dr. Mehta",
		TokenNumber:   4,
		PaymentStatus: appointments.PaymentPaid,
	}
}

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{FromEmail: "desk@example.com"}, nil))
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "key", FromEmail: "desk@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, "Hospital Appointments", sender.from.Name)
}

func TestSendGridSender_Send(t *testing.T) {
	var body map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "sg-key", FromEmail: "noreply@example.com", Host: srv.URL, Sandbox: true}, nil)
	err := sender.Send(context.Background(), EmailMessage{
		To: "desk@example.com", Subject: "hello", Text: "plain",
		Category: "payment_confirmation", Args: map[string]string{"appointment_id": "a-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer sg-key", auth)
	assert.Equal(t, "hello", body["subject"])
	assert.Equal(t, []any{"payment_confirmation"}, body["categories"])

	personalizations := body["personalizations"].([]any)
	require.Len(t, personalizations, 1)
	first := personalizations[0].(map[string]any)
	assert.Equal(t, map[string]any{"appointment_id": "a-1"}, first["custom_args"])

	settings := body["mail_settings"].(map[string]any)
	assert.Equal(t, map[string]any{"enable": true}, settings["sandbox_mode"])
	assert.Len(t, body["content"], 1)
}

func TestSendGridSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "bad", FromEmail: "noreply@example.com", Host: srv.URL}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: "desk@example.com", Subject: "x", Text: "y"})
	assert.ErrorContains(t, err, "status 401")
}

func TestSendGridSender_NilReceiver(t *testing.T) {
	var sender *SendGridSender
	assert.Error(t, sender.Send(context.Background(), EmailMessage{To: "a@b.c"}))
}

func TestPaymentConfirmed(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, " desk@example.com ", nil)

	require.NoError(t, svc.PaymentConfirmed(context.Background(), paidAppointment(), "pay_123"))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "desk@example.com", msg.To)
	assert.Contains(t, msg.Subject, "token #4")
	assert.Equal(t, "payment_confirmation", msg.Category)
	assert.NotEmpty(t, msg.Args["appointment_id"])
	assert.Contains(t, msg.Text, "Asha Rao")
	assert.Contains(t, msg.Text, "Payment ID: pay_123")
	assert.Contains(t, msg.Text, "Date: 2026-10-20 at 09:00:00")
}

func TestPaymentConfirmed_SkippedWithoutFrontDesk(t *testing.T) {
	sender := &recordingSender{}
	require.NoError(t, NewService(sender, "", nil).PaymentConfirmed(context.Background(), paidAppointment(), "pay_1"))
	assert.Empty(t, sender.sent)
}

func TestPaymentConfirmed_PropagatesSendError(t *testing.T) {
	sender := &recordingSender{err: errors.New("boom")}
	err := NewService(sender, "desk@example.com", nil).PaymentConfirmed(context.Background(), paidAppointment(), "")
	assert.ErrorContains(t, err, "boom")
}
