package payments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/wolfman30/hospital-booking-platform/internal/appointments"
	"github.com/wolfman30/hospital-booking-platform/internal/identity"
	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

type createOrderRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Amount        *int64    `json:"amount"`
}

type verifyRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// Handler serves /api/payments.
type Handler struct {
	service    *Service
	defaultFee int64
	logger     *logging.Logger
}

// NewHandler builds the handler. defaultFee (rupees) is charged when a
// request omits the amount.
func NewHandler(service *Service, defaultFee int64, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, defaultFee: defaultFee, logger: logger}
}

// CreateOrder handles POST /api/payments/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.AppointmentID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Appointment ID is required"})
		return
	}
	amount := h.defaultFee
	if req.Amount != nil {
		amount = *req.Amount
	}

	order, err := h.service.CreateOrder(r.Context(), userID, req.AppointmentID, amount)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Verify handles POST /api/payments/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	confirmation, err := h.service.Verify(r.Context(), userID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Payment successful", "appointment": confirmation})
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid amount"})
	case errors.Is(err, ErrMissingPaymentDetails):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing payment details"})
	case errors.Is(err, ErrSignatureMismatch):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Payment verification failed"})
	case errors.Is(err, appointments.ErrAlreadyPaid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Appointment is already paid for"})
	case errors.Is(err, appointments.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Invalid appointment"})
	case errors.Is(err, ErrGatewayRejected):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrGatewayUnavailable):
		h.logger.Warn("payment gateway unavailable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Payment gateway error. Please try again later."})
	default:
		h.logger.Error("payment request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "An unexpected error occurred. Please try again."})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
