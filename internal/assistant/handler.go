package assistant

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfman30/hospital-booking-platform/internal/identity"
	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

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

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	// Malformed session ids are treated like unknown ones.
	sessionID, _ := uuid.Parse(strings.TrimSpace(req.SessionID))

	reply, err := h.service.Chat(r.Context(), userID, req.Message, sessionID)
	switch {
	case errors.Is(err, ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Message cannot be empty"})
	case err != nil:
		h.logger.Error("assistant chat failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	default:
		writeJSON(w, http.StatusOK, reply)
	}
}

// History handles GET /api/chat/history[?session_id=].
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if raw == "" {
		sessions, err := h.service.History(r.Context(), userID, uuid.Nil)
		if err != nil {
			h.logger.Error("assistant history failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		writeJSON(w, http.StatusOK, sessions)
		return
	}

	sessionID, err := uuid.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Chat session not found"})
		return
	}
	sessions, err := h.service.History(r.Context(), userID, sessionID)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Chat session not found"})
	case err != nil:
		h.logger.Error("assistant history failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	default:
		writeJSON(w, http.StatusOK, sessions[0])
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
