package handler

import (
	"log/slog"
	"net/http"
)

// RatingHandler serves member feedback history.
type RatingHandler struct {
	exchange ExchangeService
	logger   *slog.Logger
}

// NewRatingHandler creates a RatingHandler.
func NewRatingHandler(exchange ExchangeService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{exchange: exchange, logger: logger}
}

// ListForUser returns the ratings a member has received, newest first.
// GET /api/users/{id}/ratings
func (h *RatingHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	ratings, err := h.exchange.ListRatingsForUser(r.Context(), id, parseListOpts(r))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ratings": ratings})
}
