package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/doumori-team/tradingpost/internal/domain"
	"github.com/doumori-team/tradingpost/internal/server/middleware"
	"github.com/doumori-team/tradingpost/internal/service"
)

// ExchangeService defines what the listing and offer handlers require from
// the service layer. Declared locally so the handler package does not depend
// on the concrete implementation.
type ExchangeService interface {
	CreateTrade(ctx context.Context, p service.CreateTradeParams) (domain.Listing, error)
	MakeOffer(ctx context.Context, p service.MakeOfferParams) (domain.Offer, error)
	AcceptOffer(ctx context.Context, listingID, offerID, callerID uuid.UUID) (domain.Listing, error)
	ShareInfo(ctx context.Context, p service.ShareInfoParams) (service.ShareInfoResult, error)
	CompleteTrade(ctx context.Context, listingID, callerID uuid.UUID) error
	FailTrade(ctx context.Context, listingID, callerID uuid.UUID) error
	SubmitFeedback(ctx context.Context, p service.SubmitFeedbackParams) (domain.Rating, error)
	CancelOffer(ctx context.Context, offerID, callerID uuid.UUID) error
	AddComment(ctx context.Context, listingID, userID uuid.UUID, text string) (domain.Comment, error)
	ListComments(ctx context.Context, listingID uuid.UUID, opts domain.ListOpts) ([]domain.Comment, error)
	GetListing(ctx context.Context, listingID, callerID uuid.UUID) (service.ListingDetail, error)
	ListListings(ctx context.Context, filter domain.ListingFilter, opts domain.ListOpts) ([]domain.Listing, error)
	ListOffersByUser(ctx context.Context, userID uuid.UUID, opts domain.ListOpts) ([]domain.Offer, error)
	ListRatingsForUser(ctx context.Context, userID uuid.UUID, opts domain.ListOpts) ([]domain.Rating, error)
}

// ListingHandler serves the trade lifecycle endpoints.
type ListingHandler struct {
	exchange ExchangeService
	logger   *slog.Logger
}

// NewListingHandler creates a ListingHandler.
func NewListingHandler(exchange ExchangeService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{exchange: exchange, logger: logger}
}

type offerTermsBody struct {
	CurrencyAmount *int64          `json:"currency_amount"`
	Comment        string          `json:"comment"`
	Items          []offerItemBody `json:"items"`
	Companions     []string        `json:"companions"`
	Address        string          `json:"address"`
}

type offerItemBody struct {
	CatalogItemID string `json:"catalog_item_id"`
	Quantity      int    `json:"quantity"`
}

func (b offerTermsBody) terms() service.OfferTerms {
	items := make([]domain.OfferItem, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, domain.OfferItem{CatalogItemID: it.CatalogItemID, Quantity: it.Quantity})
	}
	return service.OfferTerms{
		CurrencyAmount: b.CurrencyAmount,
		Comment:        b.Comment,
		Items:          items,
		Companions:     b.Companions,
		Address:        b.Address,
	}
}

type createListingBody struct {
	GameID string         `json:"game_id"` // empty means unscoped
	Type   string         `json:"type"`
	Terms  offerTermsBody `json:"terms"`
}

// CreateListing opens a new listing with the creator's terms.
// POST /api/listings
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	var body createListingBody
	if err := decodeBody(w, r, &body); err != nil {
		return
	}

	scope := domain.Unscoped()
	if body.GameID != "" {
		scope = domain.ScopeFor(body.GameID)
	}

	listing, err := h.exchange.CreateTrade(r.Context(), service.CreateTradeParams{
		CreatorID: caller,
		Scope:     scope,
		Type:      domain.ListingType(body.Type),
		Terms:     body.Terms.terms(),
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, listing)
}

// GetListing returns a listing with its offers and comments.
// GET /api/listings/{id}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	// Bystanders may view listings; contact payloads are redacted for them.
	caller, _ := middleware.UserID(r.Context())

	detail, err := h.exchange.GetListing(r.Context(), id, caller)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// ListListings returns listings filtered by status, creator, or game.
// GET /api/listings?status=open&creator=<uuid>&game=nl&limit=50&offset=0
func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.ListingFilter{
		Status: domain.ListingStatus(q.Get("status")),
		GameID: q.Get("game"),
	}
	if raw := q.Get("creator"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid creator id")
			return
		}
		filter.CreatorID = id
	}

	listings, err := h.exchange.ListListings(r.Context(), filter, parseListOpts(r))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

// MakeOffer records a competing offer on an open listing.
// POST /api/listings/{id}/offers
func (h *ListingHandler) MakeOffer(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var body offerTermsBody
	if err := decodeBody(w, r, &body); err != nil {
		return
	}

	offer, err := h.exchange.MakeOffer(r.Context(), service.MakeOfferParams{
		ListingID: id,
		UserID:    caller,
		Terms:     body.terms(),
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, offer)
}

// AcceptOffer accepts one pending offer on behalf of the listing creator.
// POST /api/listings/{id}/offers/{offerID}/accept
func (h *ListingHandler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	offerID, ok := pathUUID(w, r, "offerID")
	if !ok {
		return
	}

	listing, err := h.exchange.AcceptOffer(r.Context(), id, offerID, caller)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

type shareInfoBody struct {
	Method    string `json:"method"`
	Character string `json:"character"`
	Town      string `json:"town"`
}

// ShareInfo exchanges contact details between the committed parties.
// POST /api/listings/{id}/contact
func (h *ListingHandler) ShareInfo(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var body shareInfoBody
	if err := decodeBody(w, r, &body); err != nil {
		return
	}

	result, err := h.exchange.ShareInfo(r.Context(), service.ShareInfoParams{
		ListingID: id,
		CallerID:  caller,
		Kind:      domain.ContactKind(body.Method),
		Character: body.Character,
		Town:      body.Town,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// CompleteTrade finishes an in-progress trade.
// POST /api/listings/{id}/complete
func (h *ListingHandler) CompleteTrade(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.exchange.CompleteTrade(r.Context(), id, caller); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.ListingStatusCompleted)})
}

// FailTrade abandons a trade after acceptance.
// POST /api/listings/{id}/fail
func (h *ListingHandler) FailTrade(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.exchange.FailTrade(r.Context(), id, caller); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.ListingStatusFailed)})
}

type feedbackBody struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// SubmitFeedback records the caller's rating of their counterparty.
// POST /api/listings/{id}/feedback
func (h *ListingHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var body feedbackBody
	if err := decodeBody(w, r, &body); err != nil {
		return
	}

	rating, err := h.exchange.SubmitFeedback(r.Context(), service.SubmitFeedbackParams{
		ListingID: id,
		CallerID:  caller,
		Score:     body.Score,
		Comment:   body.Comment,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, rating)
}

type commentBody struct {
	Text string `json:"text"`
}

// AddComment appends a note to the listing's thread.
// POST /api/listings/{id}/comments
func (h *ListingHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var body commentBody
	if err := decodeBody(w, r, &body); err != nil {
		return
	}

	comment, err := h.exchange.AddComment(r.Context(), id, caller, body.Text)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// ListComments returns the listing's comment thread.
// GET /api/listings/{id}/comments
func (h *ListingHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	comments, err := h.exchange.ListComments(r.Context(), id, parseListOpts(r))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}
