package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doumori-team/tradingpost/internal/domain"
	"github.com/doumori-team/tradingpost/internal/exchange"
	"github.com/doumori-team/tradingpost/internal/notify"
)

// tradeChannel is the pub/sub channel carrying committed transition events.
// tradeStream is the durable stream mirror of the same events.
const (
	tradeChannel = "trades"
	tradeStream  = "trades:log"
)

// maxCommentLen bounds free-text comment bodies.
const maxCommentLen = 2000

// ExchangeService implements the trade lifecycle over the store interfaces.
// All state-machine guards run inside the store transaction; the service
// owns validation, authorization, identity provisioning, and post-commit
// event fan-out.
type ExchangeService struct {
	store    domain.ExchangeStore
	comments domain.CommentStore
	ratings  domain.RatingStore
	audit    domain.AuditStore
	identity domain.IdentityStore
	catalog  domain.CatalogLookup
	bus      domain.SignalBus
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewExchangeService creates an ExchangeService with all required
// dependencies. bus and notifier may be nil; event fan-out is then skipped.
func NewExchangeService(
	store domain.ExchangeStore,
	comments domain.CommentStore,
	ratings domain.RatingStore,
	audit domain.AuditStore,
	identity domain.IdentityStore,
	catalog domain.CatalogLookup,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *ExchangeService {
	return &ExchangeService{
		store:    store,
		comments: comments,
		ratings:  ratings,
		audit:    audit,
		identity: identity,
		catalog:  catalog,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "exchange_service")),
	}
}

// OfferTerms carries what a party puts on the table. Address applies only
// to unscoped listings, which exchange real-world delivery data up front
// instead of going through share_info.
type OfferTerms struct {
	CurrencyAmount *int64
	Comment        string
	Items          []domain.OfferItem
	Companions     []string
	Address        string
}

func (t OfferTerms) contact() *domain.ContactMethod {
	if t.Address == "" {
		return nil
	}
	return &domain.ContactMethod{Kind: domain.ContactKindAddress, Value: t.Address}
}

// CreateTradeParams describes a new listing and the creator's own terms.
type CreateTradeParams struct {
	CreatorID uuid.UUID
	Scope     domain.Scope
	Type      domain.ListingType
	Terms     OfferTerms
}

// CreateTrade opens a listing together with the creator's auto-accepted
// offer in a single transaction.
func (s *ExchangeService) CreateTrade(ctx context.Context, p CreateTradeParams) (domain.Listing, error) {
	if p.CreatorID == uuid.Nil {
		return domain.Listing{}, fmt.Errorf("%w: creator id is required", domain.ErrValidation)
	}
	if p.Type != domain.ListingTypeSell && p.Type != domain.ListingTypeBuy {
		return domain.Listing{}, fmt.Errorf("%w: unknown listing type %q", domain.ErrValidation, p.Type)
	}
	if err := s.validateTerms(ctx, p.Scope, p.Terms); err != nil {
		return domain.Listing{}, err
	}

	now := time.Now().UTC()
	listing := domain.Listing{
		ID:            uuid.New(),
		CreatorID:     p.CreatorID,
		Scope:         p.Scope,
		Type:          p.Type,
		Status:        domain.ListingStatusOpen,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	creatorOffer := domain.Offer{
		ID:             uuid.New(),
		ListingID:      listing.ID,
		UserID:         p.CreatorID,
		CurrencyAmount: p.Terms.CurrencyAmount,
		Comment:        p.Terms.Comment,
		Status:         domain.OfferStatusAccepted,
		Items:          p.Terms.Items,
		Companions:     p.Terms.Companions,
		Contact:        p.Terms.contact(),
		CreatedAt:      now,
	}

	if err := s.store.CreateListing(ctx, listing, creatorOffer); err != nil {
		return domain.Listing{}, fmt.Errorf("exchange_service: create trade: %w", err)
	}

	s.emit(ctx, domain.EventListingCreated, listing, nil, p.CreatorID)
	return listing, nil
}

// MakeOfferParams describes a competing offer against an open listing.
type MakeOfferParams struct {
	ListingID uuid.UUID
	UserID    uuid.UUID
	Terms     OfferTerms
}

// MakeOffer records a pending offer. The listing must still be open and the
// caller must not be the listing creator.
func (s *ExchangeService) MakeOffer(ctx context.Context, p MakeOfferParams) (domain.Offer, error) {
	if p.UserID == uuid.Nil {
		return domain.Offer{}, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	listing, err := s.store.GetListing(ctx, p.ListingID)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("exchange_service: make offer: %w", err)
	}
	if listing.CreatorID == p.UserID {
		return domain.Offer{}, fmt.Errorf("%w: creator cannot bid on their own listing", domain.ErrValidation)
	}
	if err := s.validateTerms(ctx, listing.Scope, p.Terms); err != nil {
		return domain.Offer{}, err
	}

	offer := domain.Offer{
		ID:             uuid.New(),
		ListingID:      p.ListingID,
		UserID:         p.UserID,
		CurrencyAmount: p.Terms.CurrencyAmount,
		Comment:        p.Terms.Comment,
		Status:         domain.OfferStatusPending,
		Items:          p.Terms.Items,
		Companions:     p.Terms.Companions,
		Contact:        p.Terms.contact(),
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.store.CreateOffer(ctx, offer); err != nil {
		return domain.Offer{}, fmt.Errorf("exchange_service: make offer: %w", err)
	}

	s.emit(ctx, domain.EventOfferMade, listing, &offer.ID, p.UserID)
	return offer, nil
}

// AcceptOffer accepts the target pending offer on behalf of the listing
// creator. Every other pending offer goes on hold. Acceptance is not
// idempotent: a second call fails with ErrAcceptedOfferExists.
func (s *ExchangeService) AcceptOffer(ctx context.Context, listingID, offerID, callerID uuid.UUID) (domain.Listing, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("exchange_service: accept offer: %w", err)
	}
	if listing.CreatorID != callerID {
		return domain.Listing{}, fmt.Errorf("exchange_service: accept offer: %w", domain.ErrNotCreator)
	}

	// Unscoped trades exchange contact details outside the system, so they
	// skip share_info and promote as soon as both sides carry contact data.
	promote := !listing.Scope.IsScoped()

	updated, err := s.store.AcceptOffer(ctx, listingID, offerID, promote)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("exchange_service: accept offer: %w", err)
	}

	s.emit(ctx, domain.EventOfferAccepted, updated, &offerID, callerID)
	return updated, nil
}

// ShareInfoParams carries the caller's choice of contact method. Character
// and Town register the caller's in-game character when Kind is character.
type ShareInfoParams struct {
	ListingID uuid.UUID
	CallerID  uuid.UUID
	Kind      domain.ContactKind
	Character string
	Town      string
}

// ShareInfoResult holds the contact payloads attached to both committed
// offers.
type ShareInfoResult struct {
	Creator  domain.ContactMethod
	Accepted domain.ContactMethod
}

// ShareInfo exchanges delivery data between the two committed parties and
// moves the listing to in_progress. The method must be supported by the
// listing's game scope; parties with no identity on file for the scope get
// one provisioned on demand.
func (s *ExchangeService) ShareInfo(ctx context.Context, p ShareInfoParams) (ShareInfoResult, error) {
	listing, err := s.store.GetListing(ctx, p.ListingID)
	if err != nil {
		return ShareInfoResult{}, fmt.Errorf("exchange_service: share info: %w", err)
	}
	if err := exchange.CheckShareInfo(listing); err != nil {
		return ShareInfoResult{}, fmt.Errorf("exchange_service: share info: %w", err)
	}

	accepted, err := s.committedCounterparty(ctx, listing, p.CallerID)
	if err != nil {
		return ShareInfoResult{}, fmt.Errorf("exchange_service: share info: %w", err)
	}

	gameID, _ := listing.Scope.GameID()
	game, err := s.catalog.GetGame(ctx, gameID)
	if err != nil {
		return ShareInfoResult{}, fmt.Errorf("exchange_service: share info: game %s: %w", gameID, err)
	}
	if err := exchange.ValidateMethod(game, p.Kind); err != nil {
		return ShareInfoResult{}, fmt.Errorf("exchange_service: share info: %w", err)
	}

	if p.Kind == domain.ContactKindCharacter && p.Character != "" {
		ref := exchange.CharacterRef(p.Character, p.Town)
		if err := s.identity.PutContactValue(ctx, p.CallerID, gameID, domain.ContactKindCharacter, ref); err != nil {
			return ShareInfoResult{}, fmt.Errorf("exchange_service: share info: save character: %w", err)
		}
	}

	creatorContact, err := s.contactFor(ctx, listing.CreatorID, gameID, p.Kind)
	if err != nil {
		return ShareInfoResult{}, fmt.Errorf("exchange_service: share info: creator contact: %w", err)
	}
	acceptedContact, err := s.contactFor(ctx, accepted.UserID, gameID, p.Kind)
	if err != nil {
		return ShareInfoResult{}, fmt.Errorf("exchange_service: share info: accepted contact: %w", err)
	}

	if err := s.store.AttachContact(ctx, p.ListingID, creatorContact, acceptedContact); err != nil {
		return ShareInfoResult{}, fmt.Errorf("exchange_service: share info: %w", err)
	}

	listing.Status = domain.ListingStatusInProgress
	s.emit(ctx, domain.EventInfoShared, listing, &accepted.ID, p.CallerID)
	return ShareInfoResult{Creator: creatorContact, Accepted: acceptedContact}, nil
}

// contactFor resolves or provisions the contact payload for one party.
// Friend codes and character references persist per user and game; transfer
// codes are generated fresh with a short TTL and never stored.
func (s *ExchangeService) contactFor(ctx context.Context, userID uuid.UUID, gameID string, kind domain.ContactKind) (domain.ContactMethod, error) {
	switch kind {
	case domain.ContactKindTransferCode:
		return exchange.GenerateTransferCode(time.Now().UTC())

	case domain.ContactKindFriendCode:
		value, err := s.identity.GetContactValue(ctx, userID, gameID, kind)
		if errors.Is(err, domain.ErrNotFound) {
			value, err = exchange.GenerateFriendCode()
			if err != nil {
				return domain.ContactMethod{}, err
			}
			if err := s.identity.PutContactValue(ctx, userID, gameID, kind, value); err != nil {
				return domain.ContactMethod{}, err
			}
		} else if err != nil {
			return domain.ContactMethod{}, err
		}
		return domain.ContactMethod{Kind: kind, Value: value}, nil

	case domain.ContactKindCharacter:
		value, err := s.identity.GetContactValue(ctx, userID, gameID, kind)
		if err != nil {
			// Characters are player data and cannot be generated.
			return domain.ContactMethod{}, fmt.Errorf("no character on file for user %s: %w", userID, err)
		}
		return domain.ContactMethod{Kind: kind, Value: value}, nil

	default:
		return domain.ContactMethod{}, fmt.Errorf("%w: unknown contact kind %q", domain.ErrValidation, kind)
	}
}

// CompleteTrade finishes an in-progress trade. Both committed offers are
// marked completed and every held offer is rejected.
func (s *ExchangeService) CompleteTrade(ctx context.Context, listingID, callerID uuid.UUID) error {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return fmt.Errorf("exchange_service: complete trade: %w", err)
	}
	if _, err := s.committedCounterparty(ctx, listing, callerID); err != nil {
		return fmt.Errorf("exchange_service: complete trade: %w", err)
	}

	if err := s.store.CompleteListing(ctx, listingID); err != nil {
		return fmt.Errorf("exchange_service: complete trade: %w", err)
	}

	listing.Status = domain.ListingStatusCompleted
	s.emit(ctx, domain.EventTradeCompleted, listing, nil, callerID)
	return nil
}

// FailTrade abandons a trade that fell through after acceptance.
func (s *ExchangeService) FailTrade(ctx context.Context, listingID, callerID uuid.UUID) error {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return fmt.Errorf("exchange_service: fail trade: %w", err)
	}
	if _, err := s.committedCounterparty(ctx, listing, callerID); err != nil {
		return fmt.Errorf("exchange_service: fail trade: %w", err)
	}

	if err := s.store.FailListing(ctx, listingID); err != nil {
		return fmt.Errorf("exchange_service: fail trade: %w", err)
	}

	listing.Status = domain.ListingStatusFailed
	s.emit(ctx, domain.EventTradeFailed, listing, nil, callerID)
	return nil
}

// SubmitFeedbackParams carries one party's rating of the other.
type SubmitFeedbackParams struct {
	ListingID uuid.UUID
	CallerID  uuid.UUID
	Score     int
	Comment   string
}

// SubmitFeedback records the caller's rating of their counterparty. Once
// both committed parties have rated, the listing closes.
func (s *ExchangeService) SubmitFeedback(ctx context.Context, p SubmitFeedbackParams) (domain.Rating, error) {
	if p.Score < 1 || p.Score > 5 {
		return domain.Rating{}, fmt.Errorf("%w: score must be between 1 and 5", domain.ErrValidation)
	}

	listing, err := s.store.GetListing(ctx, p.ListingID)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("exchange_service: submit feedback: %w", err)
	}
	if err := exchange.CheckFeedback(listing); err != nil {
		return domain.Rating{}, fmt.Errorf("exchange_service: submit feedback: %w", err)
	}

	accepted, err := s.committedCounterparty(ctx, listing, p.CallerID)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("exchange_service: submit feedback: %w", err)
	}

	// The rating attaches to the caller's own committed offer; the rated
	// party is the other side of the trade.
	var offerID, ratedID uuid.UUID
	if p.CallerID == listing.CreatorID {
		creatorOffer, err := s.creatorOffer(ctx, listing)
		if err != nil {
			return domain.Rating{}, fmt.Errorf("exchange_service: submit feedback: %w", err)
		}
		offerID, ratedID = creatorOffer.ID, accepted.UserID
	} else {
		offerID, ratedID = accepted.ID, listing.CreatorID
	}

	rating := domain.Rating{
		ID:        uuid.New(),
		ListingID: p.ListingID,
		RaterID:   p.CallerID,
		RatedID:   ratedID,
		Score:     p.Score,
		Comment:   p.Comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.ratings.Record(ctx, rating); err != nil {
		return domain.Rating{}, fmt.Errorf("exchange_service: submit feedback: %w", err)
	}

	closed, err := s.store.AttachRating(ctx, p.ListingID, offerID, rating.ID)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("exchange_service: submit feedback: %w", err)
	}

	s.emit(ctx, domain.EventFeedbackSubmitted, listing, &offerID, p.CallerID)
	if closed {
		listing.Status = domain.ListingStatusClosed
		s.emit(ctx, domain.EventListingClosed, listing, nil, p.CallerID)
	}
	return rating, nil
}

// CancelOffer withdraws the caller's pending or held offer.
func (s *ExchangeService) CancelOffer(ctx context.Context, offerID, callerID uuid.UUID) error {
	offer, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		return fmt.Errorf("exchange_service: cancel offer: %w", err)
	}

	if err := s.store.CancelOffer(ctx, offerID, callerID); err != nil {
		return fmt.Errorf("exchange_service: cancel offer: %w", err)
	}

	listing, err := s.store.GetListing(ctx, offer.ListingID)
	if err != nil {
		return fmt.Errorf("exchange_service: cancel offer: %w", err)
	}
	s.emit(ctx, domain.EventOfferCancelled, listing, &offerID, callerID)
	return nil
}

// AddComment appends a note to the listing's thread. Comments stay writable
// until the listing reaches a terminal status.
func (s *ExchangeService) AddComment(ctx context.Context, listingID, userID uuid.UUID, text string) (domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Comment{}, fmt.Errorf("%w: comment text is required", domain.ErrValidation)
	}
	if len(text) > maxCommentLen {
		return domain.Comment{}, fmt.Errorf("%w: comment exceeds %d characters", domain.ErrValidation, maxCommentLen)
	}

	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("exchange_service: add comment: %w", err)
	}
	if listing.Status.Terminal() {
		return domain.Comment{}, fmt.Errorf("%w: listing is %s", domain.ErrInvalidTransition, listing.Status)
	}

	c := domain.Comment{
		ID:        uuid.New(),
		ListingID: listingID,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.comments.Add(ctx, c); err != nil {
		return domain.Comment{}, fmt.Errorf("exchange_service: add comment: %w", err)
	}
	return c, nil
}

// ListComments returns the listing's comment thread, oldest first.
func (s *ExchangeService) ListComments(ctx context.Context, listingID uuid.UUID, opts domain.ListOpts) ([]domain.Comment, error) {
	out, err := s.comments.ListByListing(ctx, listingID, opts)
	if err != nil {
		return nil, fmt.Errorf("exchange_service: list comments: %w", err)
	}
	return out, nil
}

// ListingDetail bundles a listing with its offers and comment thread.
type ListingDetail struct {
	Listing  domain.Listing
	Offers   []domain.Offer
	Comments []domain.Comment
}

// GetListing returns the listing with its offers and comments. Contact
// payloads are visible only to the two committed parties; for anyone else
// they are stripped from the response.
func (s *ExchangeService) GetListing(ctx context.Context, listingID, callerID uuid.UUID) (ListingDetail, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return ListingDetail{}, fmt.Errorf("exchange_service: get listing: %w", err)
	}

	offers, err := s.store.ListOffers(ctx, listingID)
	if err != nil {
		return ListingDetail{}, fmt.Errorf("exchange_service: get listing: %w", err)
	}

	comments, err := s.comments.ListByListing(ctx, listingID, domain.ListOpts{})
	if err != nil {
		return ListingDetail{}, fmt.Errorf("exchange_service: get listing: %w", err)
	}

	if !s.isCommitted(ctx, listing, callerID) {
		for i := range offers {
			offers[i].Contact = nil
		}
	}

	return ListingDetail{Listing: listing, Offers: offers, Comments: comments}, nil
}

// ListListings returns listings matching the filter.
func (s *ExchangeService) ListListings(ctx context.Context, filter domain.ListingFilter, opts domain.ListOpts) ([]domain.Listing, error) {
	out, err := s.store.ListListings(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("exchange_service: list listings: %w", err)
	}
	return out, nil
}

// ListOffersByUser returns the user's offers across listings.
func (s *ExchangeService) ListOffersByUser(ctx context.Context, userID uuid.UUID, opts domain.ListOpts) ([]domain.Offer, error) {
	out, err := s.store.ListOffersByUser(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("exchange_service: list offers by user: %w", err)
	}
	return out, nil
}

// ListRatingsForUser returns feedback the user has received.
func (s *ExchangeService) ListRatingsForUser(ctx context.Context, userID uuid.UUID, opts domain.ListOpts) ([]domain.Rating, error) {
	out, err := s.ratings.ListByUser(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("exchange_service: list ratings: %w", err)
	}
	return out, nil
}

// validateTerms checks an offer's terms against the listing scope. Catalog
// items require a scoped listing with a tradable game; unscoped listings
// describe their goods in free text.
func (s *ExchangeService) validateTerms(ctx context.Context, scope domain.Scope, t OfferTerms) error {
	if t.CurrencyAmount != nil && *t.CurrencyAmount < 0 {
		return fmt.Errorf("%w: currency amount must not be negative", domain.ErrValidation)
	}
	if len(t.Comment) > maxCommentLen {
		return fmt.Errorf("%w: comment exceeds %d characters", domain.ErrValidation, maxCommentLen)
	}

	gameID, scoped := scope.GameID()
	if !scoped {
		if len(t.Items) > 0 {
			return fmt.Errorf("%w: catalog items require a game scope", domain.ErrValidation)
		}
		return nil
	}
	if t.Address != "" {
		return fmt.Errorf("%w: addresses apply only to unscoped listings", domain.ErrValidation)
	}

	game, err := s.catalog.GetGame(ctx, gameID)
	if err != nil {
		return fmt.Errorf("exchange_service: resolve scope %s: %w", gameID, err)
	}
	if !game.TradingEnabled {
		return fmt.Errorf("exchange_service: scope %s: %w", gameID, domain.ErrScopeNotTradable)
	}

	if len(t.Items) == 0 {
		return nil
	}

	ids := make([]string, 0, len(t.Items))
	for _, it := range t.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %s quantity must be positive", domain.ErrValidation, it.CatalogItemID)
		}
		ids = append(ids, it.CatalogItemID)
	}

	resolved, err := s.catalog.ResolveItems(ctx, gameID, ids)
	if err != nil {
		return fmt.Errorf("exchange_service: resolve items: %w", err)
	}
	known := make(map[string]domain.CatalogItem, len(resolved))
	for _, it := range resolved {
		known[it.ID] = it
	}
	for _, it := range t.Items {
		meta, ok := known[it.CatalogItemID]
		if !ok {
			return fmt.Errorf("%w: unknown item %s for game %s", domain.ErrValidation, it.CatalogItemID, gameID)
		}
		if !meta.Tradable {
			return fmt.Errorf("%w: item %s is not tradable", domain.ErrValidation, it.CatalogItemID)
		}
	}
	return nil
}

// committedCounterparty verifies the caller is one of the two committed
// parties and returns the accepted offer.
func (s *ExchangeService) committedCounterparty(ctx context.Context, listing domain.Listing, callerID uuid.UUID) (domain.Offer, error) {
	accepted, err := s.store.AcceptedOffer(ctx, listing.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Offer{}, domain.ErrNotParticipant
		}
		return domain.Offer{}, err
	}
	if callerID != listing.CreatorID && callerID != accepted.UserID {
		return domain.Offer{}, domain.ErrNotParticipant
	}
	return accepted, nil
}

// creatorOffer finds the creator's own offer on the listing.
func (s *ExchangeService) creatorOffer(ctx context.Context, listing domain.Listing) (domain.Offer, error) {
	offers, err := s.store.ListOffers(ctx, listing.ID)
	if err != nil {
		return domain.Offer{}, err
	}
	for _, o := range offers {
		if o.UserID == listing.CreatorID {
			return o, nil
		}
	}
	return domain.Offer{}, domain.ErrNotFound
}

func (s *ExchangeService) isCommitted(ctx context.Context, listing domain.Listing, callerID uuid.UUID) bool {
	if callerID == listing.CreatorID {
		return true
	}
	accepted, err := s.store.AcceptedOffer(ctx, listing.ID)
	return err == nil && accepted.UserID == callerID
}

// emit records the committed transition in the audit log and fans it out to
// the signal bus and the notifier. Fan-out failures are logged and never
// roll back the transition.
func (s *ExchangeService) emit(ctx context.Context, event string, listing domain.Listing, offerID *uuid.UUID, actorID uuid.UUID) {
	ev := domain.TradeEvent{
		Event:     event,
		ListingID: listing.ID,
		OfferID:   offerID,
		ActorID:   actorID,
		Status:    listing.Status,
		Timestamp: time.Now().UTC(),
	}

	detail := map[string]any{
		"listing_id": listing.ID.String(),
		"actor_id":   actorID.String(),
		"status":     string(listing.Status),
	}
	if offerID != nil {
		detail["offer_id"] = offerID.String()
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "exchange_service: audit log failed",
			slog.String("event", event),
			slog.String("listing_id", listing.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	if s.bus != nil {
		payload, err := json.Marshal(ev)
		if err != nil {
			s.logger.ErrorContext(ctx, "exchange_service: marshal event",
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
			return
		}
		if err := s.bus.Publish(ctx, tradeChannel, payload); err != nil {
			s.logger.WarnContext(ctx, "exchange_service: publish failed",
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
		}
		if err := s.bus.StreamAppend(ctx, tradeStream, payload); err != nil {
			s.logger.WarnContext(ctx, "exchange_service: stream append failed",
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.notifier != nil {
		title, message := notify.FormatTradeEvent(ev)
		if err := s.notifier.Notify(ctx, event, title, message); err != nil {
			s.logger.WarnContext(ctx, "exchange_service: notify failed",
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
		}
	}
}
