package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/wolfman30/hospital-booking-platform/internal/appointments"
	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

const maxWebhookBody = 1 << 20

// ProcessedTracker remembers which webhook deliveries were applied.
type ProcessedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// RazorpayWebhookHandler confirms payments whose checkout callback never
// reached us. It serves POST /api/webhooks/razorpay.
type RazorpayWebhookHandler struct {
	secret    string
	service   *Service
	processed ProcessedTracker
	logger    *logging.Logger
}

func NewRazorpayWebhookHandler(secret string, service *Service, processed ProcessedTracker, logger *logging.Logger) *RazorpayWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RazorpayWebhookHandler{secret: secret, service: service, processed: processed, logger: logger}
}

func (h *RazorpayWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if !verifyWebhookSignature(h.secret, payload, r.Header.Get("X-Razorpay-Signature")) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var evt razorpayEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger.Error("failed to decode razorpay event", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	eventID := strings.TrimSpace(r.Header.Get("X-Razorpay-Event-Id"))
	if eventID == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}

	if processed, err := h.processed.AlreadyProcessed(r.Context(), "razorpay", eventID); err != nil {
		h.logger.Error("processed lookup failed", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	} else if processed {
		w.WriteHeader(http.StatusOK)
		return
	}

	payment := evt.Payload.Payment.Entity
	if evt.Event != "payment.captured" || payment.OrderID == "" {
		h.logger.Debug("ignoring razorpay event", "event", evt.Event, "event_id", eventID)
		w.WriteHeader(http.StatusOK)
		return
	}

	_, err = h.service.Captured(r.Context(), payment.OrderID, payment.ID)
	switch {
	case err == nil:
		h.logger.Info("payment captured via webhook", "order_id", payment.OrderID, "payment_id", payment.ID)
	case errors.Is(err, appointments.ErrAlreadyPaid):
		// the checkout callback got there first
	case errors.Is(err, appointments.ErrNotFound):
		// acknowledge to stop retries; the appointment was cancelled or never existed
		h.logger.Warn("webhook for unknown order", "order_id", payment.OrderID, "event_id", eventID)
	default:
		h.logger.Error("failed to apply capture", "error", err, "order_id", payment.OrderID)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	if _, err := h.processed.MarkProcessed(r.Context(), "razorpay", eventID); err != nil {
		h.logger.Error("failed to mark webhook processed", "error", err, "event_id", eventID)
	}
	w.WriteHeader(http.StatusOK)
}

// verifyWebhookSignature checks HMAC-SHA256(body) keyed with the webhook
// secret, hex encoded.
func verifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
