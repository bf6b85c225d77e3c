package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/user/campus-assistant/internal/delivery/http/request"
	"github.com/user/campus-assistant/internal/delivery/http/response"
	"github.com/user/campus-assistant/internal/usecase"
	"go.uber.org/zap"
)

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req request.ChatRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := h.chat.Ask(r.Context(), req.UserID, req.Query)
	if err != nil {
		h.writeChatError(w, "failed to answer chat question", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.ChatResponse{ID: rec.ID, Response: rec.Response})
}

func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.chat.History(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeChatError(w, "failed to load chat history", err)
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

func (h *Handler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	n, err := h.chat.ClearHistory(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeChatError(w, "failed to clear chat history", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.ClearHistoryResponse{
		Message:      "Chat history cleared successfully",
		DeletedCount: n,
	})
}

func (h *Handler) HandleRate(w http.ResponseWriter, r *http.Request) {
	var req request.RateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.MessageID == "" || req.UserID == "" || req.Rating == 0 {
		h.writeJSONError(w, "Message ID, rating, and user ID are required", http.StatusBadRequest)
		return
	}

	if err := h.chat.Rate(r.Context(), req.UserID, req.MessageID, req.Rating); err != nil {
		h.writeChatError(w, "failed to rate message", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.MessageResponse{Message: "Message rated successfully"})
}

func (h *Handler) writeChatError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, usecase.ErrEmptyQuery),
		errors.Is(err, usecase.ErrMissingUserID),
		errors.Is(err, usecase.ErrInvalidRating):
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, usecase.ErrChatNotFound):
		h.writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, usecase.ErrChatDisabled):
		h.writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		h.logger.Error(msg, zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}
