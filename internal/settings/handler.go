package settings

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/hospital-booking-platform/internal/scheduling"
	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

// Handler serves the appointment configuration.
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

// Get handles GET /api/appointments/config and GET /admin/appointments/config.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Current(r.Context())
	if err != nil {
		h.logger.Error("failed to load appointment config", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// Update handles PUT /admin/appointments/config.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var limits scheduling.Limits
	if err := json.NewDecoder(r.Body).Decode(&limits); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request", "message": "invalid request body"})
		return
	}
	cfg, err := h.service.Set(r.Context(), limits)
	if err != nil {
		if errors.Is(err, scheduling.ErrInvalidLimits) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_limits", "message": err.Error()})
			return
		}
		h.logger.Error("failed to save appointment config", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}
	h.logger.Info("appointment config updated",
		"max_daily_appointments", cfg.MaxDailyAppointments,
		"max_per_hour", cfg.MaxPerHour,
	)
	writeJSON(w, http.StatusOK, cfg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
