package appointments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/hospital-booking-platform/internal/identity"
	"github.com/wolfman30/hospital-booking-platform/internal/scheduling"
	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

// Handler exposes the appointment lifecycle over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes mounts the handlers under /api/appointments.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Put("/", h.Update)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Cancel)
}

// Create handles POST /api/appointments.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	req.UserID = userID

	appt, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondErr(w, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// Update handles PUT /api/appointments/{id}; the id may also come in the body.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if raw := chi.URLParam(r, "id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid appointment id")
			return
		}
		req.ID = id
	}
	req.UserID = userID

	appt, err := h.service.Update(r.Context(), req)
	if err != nil {
		h.respondErr(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// List handles GET /api/appointments.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	appts, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		h.respondErr(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts, "count": len(appts)})
}

// Cancel handles DELETE /api/appointments/{id}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid appointment id")
		return
	}
	if err := h.service.Cancel(r.Context(), userID, id); err != nil {
		h.respondErr(w, "cancel", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Appointment cancelled successfully"})
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	if rej, ok := scheduling.AsRejection(err); ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":      "validation_failed",
			"rejections": rej.Rejections,
		})
		return
	}
	switch {
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Appointment not found")
	case errors.Is(err, ErrCannotCancelPast):
		writeError(w, http.StatusBadRequest, "cannot_cancel_past", "Cannot cancel past appointments")
	case errors.Is(err, ErrAlreadyPaid):
		writeError(w, http.StatusBadRequest, "already_paid", "Appointment is already paid for")
	case errors.Is(err, ErrTransient):
		writeError(w, http.StatusServiceUnavailable, "try_again", "Booking is busy, please retry")
	case errors.Is(err, ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "profile_not_found", "Profile not found")
	default:
		h.logger.Error("appointment request failed", "operation", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
