package handler

import (
	"log/slog"
	"net/http"
)

// OfferHandler serves offer endpoints not tied to a single listing.
type OfferHandler struct {
	exchange ExchangeService
	logger   *slog.Logger
}

// NewOfferHandler creates an OfferHandler.
func NewOfferHandler(exchange ExchangeService, logger *slog.Logger) *OfferHandler {
	return &OfferHandler{exchange: exchange, logger: logger}
}

// ListMine returns the caller's offers across listings, newest first.
// GET /api/offers
func (h *OfferHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	offers, err := h.exchange.ListOffersByUser(r.Context(), caller, parseListOpts(r))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"offers": offers})
}

// CancelOffer withdraws the caller's pending or held offer.
// POST /api/offers/{id}/cancel
func (h *OfferHandler) CancelOffer(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.exchange.CancelOffer(r.Context(), id, caller); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
