package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/user/campus-assistant/internal/delivery/http/response"
	"github.com/user/campus-assistant/internal/usecase"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	dashboard usecase.Dashboard
	chat      usecase.Chat
	checks    map[string]Pinger
	logger    *zap.Logger
}

// NewHandler creates the HTTP handlers. checks maps component names to the
// dependencies reported by the health endpoint.
func NewHandler(dashboard usecase.Dashboard, chat usecase.Chat, checks map[string]Pinger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		dashboard: dashboard,
		chat:      chat,
		checks:    checks,
		logger:    logger,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
