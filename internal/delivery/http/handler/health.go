package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/user/campus-assistant/internal/delivery/http/response"
	"go.uber.org/zap"
)

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := response.HealthResponse{Status: "ok", Components: make(map[string]string, len(h.checks))}
	for name, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			h.logger.Error("health check failed", zap.String("component", name), zap.Error(err))
			resp.Components[name] = "unhealthy"
			resp.Status = "unhealthy"
			continue
		}
		resp.Components[name] = "healthy"
	}

	if resp.Status != "ok" {
		h.writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}
