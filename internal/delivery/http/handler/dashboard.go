package handler

import (
	"errors"
	"net/http"

	"github.com/user/campus-assistant/internal/delivery/http/request"
	"github.com/user/campus-assistant/internal/delivery/http/response"
	"github.com/user/campus-assistant/internal/usecase"
	"go.uber.org/zap"
)

func (h *Handler) HandleUpdateDashboard(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateDashboardRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.MobileNumber == "" {
		h.writeJSONError(w, "Mobile number is required", http.StatusBadRequest)
		return
	}

	update, err := h.dashboard.Refresh(r.Context(), req.MobileNumber)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, response.DashboardUpdateResponse{
			Message: "Dashboard data updated successfully",
			Outcome: update.Outcome,
			Data:    update.Result,
		})
	case errors.Is(err, usecase.ErrInvalidMobile):
		h.writeJSONError(w, "Invalid mobile number", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrNoCredentials):
		h.writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, usecase.ErrPortalLogin):
		h.writeJSON(w, http.StatusBadGateway, response.LoginFailedResponse{
			Error: "Could not log in to the portal",
			Data:  update.Result,
		})
	default:
		h.logger.Error("failed to refresh dashboard", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	mobile := r.URL.Query().Get("mobile_number")
	if mobile == "" {
		h.writeJSONError(w, "mobile_number query parameter is required", http.StatusBadRequest)
		return
	}

	result, err := h.dashboard.Latest(r.Context(), mobile)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, result)
	case errors.Is(err, usecase.ErrInvalidMobile):
		h.writeJSONError(w, "Invalid mobile number", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrNoDashboardData):
		h.writeJSONError(w, "No dashboard data for this mobile number", http.StatusNotFound)
	default:
		h.logger.Error("failed to load dashboard", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}
