package service

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doumori-team/tradingpost/internal/domain"
	"github.com/doumori-team/tradingpost/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*ExchangeService, *memory.Store) {
	t.Helper()

	catalog := memory.NewCatalog(
		domain.Game{ID: "gc", Title: "Population: Growing", TradingEnabled: true},
		domain.Game{ID: "nl", Title: "New Leaf", TradingEnabled: true, HasFriendCodes: true},
		domain.Game{ID: "nh", Title: "New Horizons", TradingEnabled: true, HasTransferCodes: true},
		domain.Game{ID: "hh", Title: "Happy Home", TradingEnabled: false},
	)
	catalog.SeedItems(
		domain.CatalogItem{ID: "nl-chair", GameID: "nl", Name: "Froggy Chair", Category: "furniture", Tradable: true},
		domain.CatalogItem{ID: "nl-axe", GameID: "nl", Name: "Golden Axe", Category: "tools", Tradable: true},
		domain.CatalogItem{ID: "nl-mail", GameID: "nl", Name: "Mother's Letter", Category: "mail", Tradable: false},
	)

	store := memory.New()
	svc := NewExchangeService(store, store, store, store, store, catalog, nil, nil, testLogger())
	return svc, store
}

func scopedTrade(t *testing.T, svc *ExchangeService) domain.Listing {
	t.Helper()

	listing, err := svc.CreateTrade(context.Background(), CreateTradeParams{
		CreatorID: uuid.New(),
		Scope:     domain.ScopeFor("nl"),
		Type:      domain.ListingTypeSell,
		Terms: OfferTerms{
			Items: []domain.OfferItem{{CatalogItemID: "nl-chair", Quantity: 1}},
		},
	})
	require.NoError(t, err)
	return listing
}

func bid(t *testing.T, svc *ExchangeService, listingID uuid.UUID) domain.Offer {
	t.Helper()

	amount := int64(5000)
	offer, err := svc.MakeOffer(context.Background(), MakeOfferParams{
		ListingID: listingID,
		UserID:    uuid.New(),
		Terms:     OfferTerms{CurrencyAmount: &amount},
	})
	require.NoError(t, err)
	return offer
}

func TestRoundTripThroughEveryState(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	listing := scopedTrade(t, svc)
	assert.Equal(t, domain.ListingStatusOpen, listing.Status)

	o1 := bid(t, svc, listing.ID)
	o2 := bid(t, svc, listing.ID)

	updated, err := svc.AcceptOffer(ctx, listing.ID, o1.ID, listing.CreatorID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusOfferAccepted, updated.Status)

	held, err := store.GetOffer(ctx, o2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusOnHold, held.Status)

	// Both parties need a character on file; the caller registers theirs in
	// the request, the counterparty has one already.
	require.NoError(t, store.PutContactValue(ctx, o1.UserID, "nl", domain.ContactKindCharacter, "Bo of Birch"))

	result, err := svc.ShareInfo(ctx, ShareInfoParams{
		ListingID: listing.ID,
		CallerID:  listing.CreatorID,
		Kind:      domain.ContactKindCharacter,
		Character: "Ann",
		Town:      "Aspen",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ann of Aspen", result.Creator.Value)
	assert.Equal(t, "Bo of Birch", result.Accepted.Value)

	got, err := store.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusInProgress, got.Status)

	require.NoError(t, svc.CompleteTrade(ctx, listing.ID, o1.UserID))

	got, err = store.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusCompleted, got.Status)

	done, err := store.GetOffer(ctx, o1.ID)
	require.NoError(t, err)
	assert.True(t, done.Completed)

	rejected, err := store.GetOffer(ctx, o2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusRejected, rejected.Status)

	r1, err := svc.SubmitFeedback(ctx, SubmitFeedbackParams{
		ListingID: listing.ID, CallerID: listing.CreatorID, Score: 5, Comment: "smooth trade",
	})
	require.NoError(t, err)
	assert.Equal(t, o1.UserID, r1.RatedID)

	got, err = store.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusCompleted, got.Status)

	r2, err := svc.SubmitFeedback(ctx, SubmitFeedbackParams{
		ListingID: listing.ID, CallerID: o1.UserID, Score: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, listing.CreatorID, r2.RatedID)

	got, err = store.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusClosed, got.Status)
}

func TestAcceptRequiresCreator(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	listing := scopedTrade(t, svc)
	offer := bid(t, svc, listing.ID)

	_, err := svc.AcceptOffer(ctx, listing.ID, offer.ID, offer.UserID)
	require.ErrorIs(t, err, domain.ErrNotCreator)
}

func TestAcceptIsNotIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	listing := scopedTrade(t, svc)
	offer := bid(t, svc, listing.ID)

	_, err := svc.AcceptOffer(ctx, listing.ID, offer.ID, listing.CreatorID)
	require.NoError(t, err)

	_, err = svc.AcceptOffer(ctx, listing.ID, offer.ID, listing.CreatorID)
	require.ErrorIs(t, err, domain.ErrAcceptedOfferExists)
}

func TestCreatorCannotBidOnOwnListing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	listing := scopedTrade(t, svc)
	_, err := svc.MakeOffer(ctx, MakeOfferParams{
		ListingID: listing.ID,
		UserID:    listing.CreatorID,
		Terms:     OfferTerms{Comment: "my own goods"},
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestCompletePreconditionLeavesOffersUntouched(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	listing := scopedTrade(t, svc)
	winner := bid(t, svc, listing.ID)
	loser := bid(t, svc, listing.ID)

	_, err := svc.AcceptOffer(ctx, listing.ID, winner.ID, listing.CreatorID)
	require.NoError(t, err)

	err = svc.CompleteTrade(ctx, listing.ID, winner.UserID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	w, err := store.GetOffer(ctx, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusAccepted, w.Status)
	assert.False(t, w.Completed)

	l, err := store.GetOffer(ctx, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusOnHold, l.Status)
}

func TestShareInfoRejectsUnscoped(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	listing, err := svc.CreateTrade(ctx, CreateTradeParams{
		CreatorID: uuid.New(),
		Scope:     domain.Unscoped(),
		Type:      domain.ListingTypeSell,
		Terms:     OfferTerms{Comment: "vinyl figure, region-free"},
	})
	require.NoError(t, err)

	_, err = svc.ShareInfo(ctx, ShareInfoParams{
		ListingID: listing.ID,
		CallerID:  listing.CreatorID,
		Kind:      domain.ContactKindFriendCode,
	})
	require.ErrorIs(t, err, domain.ErrUnscopedListing)
}

func TestUnscopedAddressesPromoteOnAccept(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	listing, err := svc.CreateTrade(ctx, CreateTradeParams{
		CreatorID: uuid.New(),
		Scope:     domain.Unscoped(),
		Type:      domain.ListingTypeSell,
		Terms:     OfferTerms{Comment: "amiibo card lot", Address: "1 Main St, Springfield"},
	})
	require.NoError(t, err)

	offer, err := svc.MakeOffer(ctx, MakeOfferParams{
		ListingID: listing.ID,
		UserID:    uuid.New(),
		Terms:     OfferTerms{Comment: "trade for my lot", Address: "9 Elm Ave, Shelbyville"},
	})
	require.NoError(t, err)

	updated, err := svc.AcceptOffer(ctx, listing.ID, offer.ID, listing.CreatorID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusInProgress, updated.Status)

	require.NoError(t, svc.CompleteTrade(ctx, listing.ID, offer.UserID))

	got, err := store.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusCompleted, got.Status)
}

func TestShareInfoRejectsMethodOutsideScope(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	listing := scopedTrade(t, svc)
	offer := bid(t, svc, listing.ID)
	_, err := svc.AcceptOffer(ctx, listing.ID, offer.ID, listing.CreatorID)
	require.NoError(t, err)

	// Transfer codes exist only in the newest generation; nl has none.
	_, err = svc.ShareInfo(ctx, ShareInfoParams{
		ListingID: listing.ID,
		CallerID:  offer.UserID,
		Kind:      domain.ContactKindTransferCode,
	})
	require.ErrorIs(t, err, domain.ErrMethodNotSupported)
}

func TestShareInfoProvisionsFriendCodes(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	listing := scopedTrade(t, svc)
	offer := bid(t, svc, listing.ID)
	_, err := svc.AcceptOffer(ctx, listing.ID, offer.ID, listing.CreatorID)
	require.NoError(t, err)

	result, err := svc.ShareInfo(ctx, ShareInfoParams{
		ListingID: listing.ID,
		CallerID:  offer.UserID,
		Kind:      domain.ContactKindFriendCode,
	})
	require.NoError(t, err)

	codeRe := regexp.MustCompile(`^\d{4}-\d{4}-\d{4}$`)
	assert.Regexp(t, codeRe, result.Creator.Value)
	assert.Regexp(t, codeRe, result.Accepted.Value)

	// Provisioned codes persist for reuse.
	saved, err := store.GetContactValue(ctx, offer.UserID, "nl", domain.ContactKindFriendCode)
	require.NoError(t, err)
	assert.Equal(t, result.Accepted.Value, saved)
}

func TestFailTradeThenFeedback(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	listing := scopedTrade(t, svc)
	offer := bid(t, svc, listing.ID)
	_, err := svc.AcceptOffer(ctx, listing.ID, offer.ID, listing.CreatorID)
	require.NoError(t, err)

	require.NoError(t, svc.FailTrade(ctx, listing.ID, offer.UserID))

	got, err := store.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusFailed, got.Status)

	// Both parties may still leave feedback on an abandoned trade.
	_, err = svc.SubmitFeedback(ctx, SubmitFeedbackParams{
		ListingID: listing.ID, CallerID: listing.CreatorID, Score: 1, Comment: "never showed up",
	})
	require.NoError(t, err)
}

func TestFailRequiresParticipant(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	listing := scopedTrade(t, svc)
	offer := bid(t, svc, listing.ID)
	_, err := svc.AcceptOffer(ctx, listing.ID, offer.ID, listing.CreatorID)
	require.NoError(t, err)

	require.ErrorIs(t, svc.FailTrade(ctx, listing.ID, uuid.New()), domain.ErrNotParticipant)
}

func TestCancelOffer(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	listing := scopedTrade(t, svc)
	offer := bid(t, svc, listing.ID)

	require.ErrorIs(t, svc.CancelOffer(ctx, offer.ID, uuid.New()), domain.ErrNotParticipant)
	require.NoError(t, svc.CancelOffer(ctx, offer.ID, offer.UserID))

	got, err := store.GetOffer(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusCancelled, got.Status)
}

func TestFeedbackValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	listing := scopedTrade(t, svc)

	_, err := svc.SubmitFeedback(ctx, SubmitFeedbackParams{
		ListingID: listing.ID, CallerID: listing.CreatorID, Score: 0,
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	// Feedback requires a finished trade.
	_, err = svc.SubmitFeedback(ctx, SubmitFeedbackParams{
		ListingID: listing.ID, CallerID: listing.CreatorID, Score: 3,
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDoubleFeedbackRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	listing := scopedTrade(t, svc)
	offer := bid(t, svc, listing.ID)
	_, err := svc.AcceptOffer(ctx, listing.ID, offer.ID, listing.CreatorID)
	require.NoError(t, err)
	require.NoError(t, svc.FailTrade(ctx, listing.ID, listing.CreatorID))

	_, err = svc.SubmitFeedback(ctx, SubmitFeedbackParams{
		ListingID: listing.ID, CallerID: listing.CreatorID, Score: 2,
	})
	require.NoError(t, err)

	_, err = svc.SubmitFeedback(ctx, SubmitFeedbackParams{
		ListingID: listing.ID, CallerID: listing.CreatorID, Score: 2,
	})
	require.ErrorIs(t, err, domain.ErrAlreadyRated)
}

func TestCreateTradeValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	creator := uuid.New()

	_, err := svc.CreateTrade(ctx, CreateTradeParams{
		CreatorID: creator,
		Scope:     domain.ScopeFor("nl"),
		Type:      "barter",
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateTrade(ctx, CreateTradeParams{
		CreatorID: creator,
		Scope:     domain.ScopeFor("zz"),
		Type:      domain.ListingTypeSell,
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.CreateTrade(ctx, CreateTradeParams{
		CreatorID: creator,
		Scope:     domain.ScopeFor("hh"),
		Type:      domain.ListingTypeSell,
	})
	require.ErrorIs(t, err, domain.ErrScopeNotTradable)

	_, err = svc.CreateTrade(ctx, CreateTradeParams{
		CreatorID: creator,
		Scope:     domain.ScopeFor("nl"),
		Type:      domain.ListingTypeSell,
		Terms:     OfferTerms{Items: []domain.OfferItem{{CatalogItemID: "nl-mail", Quantity: 1}}},
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateTrade(ctx, CreateTradeParams{
		CreatorID: creator,
		Scope:     domain.Unscoped(),
		Type:      domain.ListingTypeBuy,
		Terms:     OfferTerms{Items: []domain.OfferItem{{CatalogItemID: "nl-chair", Quantity: 1}}},
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetListingRedactsContacts(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	listing := scopedTrade(t, svc)
	offer := bid(t, svc, listing.ID)
	_, err := svc.AcceptOffer(ctx, listing.ID, offer.ID, listing.CreatorID)
	require.NoError(t, err)

	require.NoError(t, store.PutContactValue(ctx, offer.UserID, "nl", domain.ContactKindCharacter, "Bo of Birch"))
	_, err = svc.ShareInfo(ctx, ShareInfoParams{
		ListingID: listing.ID,
		CallerID:  listing.CreatorID,
		Kind:      domain.ContactKindCharacter,
		Character: "Ann",
		Town:      "Aspen",
	})
	require.NoError(t, err)

	// A committed party sees the contact payloads.
	detail, err := svc.GetListing(ctx, listing.ID, offer.UserID)
	require.NoError(t, err)
	var sawContact bool
	for _, o := range detail.Offers {
		if o.Contact != nil {
			sawContact = true
		}
	}
	assert.True(t, sawContact)

	// A bystander does not.
	detail, err = svc.GetListing(ctx, listing.ID, uuid.New())
	require.NoError(t, err)
	for _, o := range detail.Offers {
		assert.Nil(t, o.Contact)
	}
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	listing := scopedTrade(t, svc)

	_, err := svc.AddComment(ctx, listing.ID, uuid.New(), "  ")
	require.ErrorIs(t, err, domain.ErrValidation)

	c, err := svc.AddComment(ctx, listing.ID, uuid.New(), "still available?")
	require.NoError(t, err)
	assert.Equal(t, "still available?", c.Text)

	comments, err := svc.ListComments(ctx, listing.ID, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, comments, 1)
}
