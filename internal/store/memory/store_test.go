package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doumori-team/tradingpost/internal/domain"
)

func newListing(t *testing.T, s *Store) (domain.Listing, domain.Offer) {
	t.Helper()

	now := time.Now().UTC()
	listing := domain.Listing{
		ID:            uuid.New(),
		CreatorID:     uuid.New(),
		Scope:         domain.ScopeFor("nl"),
		Type:          domain.ListingTypeSell,
		Status:        domain.ListingStatusOpen,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	creatorOffer := domain.Offer{
		ID:        uuid.New(),
		ListingID: listing.ID,
		UserID:    listing.CreatorID,
		Status:    domain.OfferStatusAccepted,
		Items:     []domain.OfferItem{{CatalogItemID: "nl-item-1", Quantity: 2}},
		CreatedAt: now,
	}
	require.NoError(t, s.CreateListing(context.Background(), listing, creatorOffer))
	return listing, creatorOffer
}

func addPending(t *testing.T, s *Store, listingID uuid.UUID) domain.Offer {
	t.Helper()

	o := domain.Offer{
		ID:        uuid.New(),
		ListingID: listingID,
		UserID:    uuid.New(),
		Status:    domain.OfferStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateOffer(context.Background(), o))
	return o
}

func TestCreatorOfferDoesNotBlockAccept(t *testing.T) {
	ctx := context.Background()
	s := New()
	listing, _ := newListing(t, s)

	// The creator's auto-accepted offer is not a competing acceptance.
	_, err := s.AcceptedOffer(ctx, listing.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	offer := addPending(t, s, listing.ID)
	updated, err := s.AcceptOffer(ctx, listing.ID, offer.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusOfferAccepted, updated.Status)
}

func TestAcceptFansOutAndBlocksSecondAccept(t *testing.T) {
	ctx := context.Background()
	s := New()
	listing, _ := newListing(t, s)

	first := addPending(t, s, listing.ID)
	second := addPending(t, s, listing.ID)

	_, err := s.AcceptOffer(ctx, listing.ID, first.ID, false)
	require.NoError(t, err)

	held, err := s.GetOffer(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusOnHold, held.Status)

	// Once held, the second offer is no longer pending.
	_, err = s.AcceptOffer(ctx, listing.ID, second.ID, false)
	require.ErrorIs(t, err, domain.ErrAcceptedOfferExists)

	// Accepting the same offer again is not idempotent either.
	_, err = s.AcceptOffer(ctx, listing.ID, first.ID, false)
	require.ErrorIs(t, err, domain.ErrAcceptedOfferExists)
}

func TestAcceptRaceAdmitsExactlyOne(t *testing.T) {
	ctx := context.Background()
	s := New()
	listing, _ := newListing(t, s)

	const contenders = 16
	offers := make([]domain.Offer, contenders)
	for i := range offers {
		offers[i] = addPending(t, s, listing.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := range offers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.AcceptOffer(ctx, listing.ID, offers[i].ID, false)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, domain.ErrAcceptedOfferExists)
		}
	}
	assert.Equal(t, 1, wins)

	accepted, err := s.AcceptedOffer(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusAccepted, accepted.Status)
}

func TestOfferRejectedOnNonOpenListing(t *testing.T) {
	ctx := context.Background()
	s := New()
	listing, _ := newListing(t, s)

	offer := addPending(t, s, listing.ID)
	_, err := s.AcceptOffer(ctx, listing.ID, offer.ID, false)
	require.NoError(t, err)

	late := domain.Offer{
		ID:        uuid.New(),
		ListingID: listing.ID,
		UserID:    uuid.New(),
		Status:    domain.OfferStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	require.ErrorIs(t, s.CreateOffer(ctx, late), domain.ErrInvalidTransition)
}

func TestContactPromotesToInProgress(t *testing.T) {
	ctx := context.Background()
	s := New()
	listing, creatorOffer := newListing(t, s)

	offer := addPending(t, s, listing.ID)
	_, err := s.AcceptOffer(ctx, listing.ID, offer.ID, false)
	require.NoError(t, err)

	creatorContact := domain.ContactMethod{Kind: domain.ContactKindFriendCode, Value: "1234-5678-9012"}
	acceptedContact := domain.ContactMethod{Kind: domain.ContactKindFriendCode, Value: "2345-6789-0123"}
	require.NoError(t, s.AttachContact(ctx, listing.ID, creatorContact, acceptedContact))

	got, err := s.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusInProgress, got.Status)

	co, err := s.GetOffer(ctx, creatorOffer.ID)
	require.NoError(t, err)
	require.NotNil(t, co.Contact)
	assert.Equal(t, "1234-5678-9012", co.Contact.Value)
}

func TestCompleteRejectsHeldOffers(t *testing.T) {
	ctx := context.Background()
	s := New()
	listing, creatorOffer := newListing(t, s)

	winner := addPending(t, s, listing.ID)
	loser := addPending(t, s, listing.ID)

	_, err := s.AcceptOffer(ctx, listing.ID, winner.ID, false)
	require.NoError(t, err)

	// Completion requires in_progress; until then nothing changes.
	err = s.CompleteListing(ctx, listing.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	held, err := s.GetOffer(ctx, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusOnHold, held.Status)

	cc := domain.ContactMethod{Kind: domain.ContactKindCharacter, Value: "Ann of Aspen"}
	ac := domain.ContactMethod{Kind: domain.ContactKindCharacter, Value: "Bo of Birch"}
	require.NoError(t, s.AttachContact(ctx, listing.ID, cc, ac))
	require.NoError(t, s.CompleteListing(ctx, listing.ID))

	got, err := s.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusCompleted, got.Status)

	held, err = s.GetOffer(ctx, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusRejected, held.Status)

	won, err := s.GetOffer(ctx, winner.ID)
	require.NoError(t, err)
	assert.True(t, won.Completed)
	co, err := s.GetOffer(ctx, creatorOffer.ID)
	require.NoError(t, err)
	assert.True(t, co.Completed)
}

func TestFailFromOfferAccepted(t *testing.T) {
	ctx := context.Background()
	s := New()
	listing, _ := newListing(t, s)

	offer := addPending(t, s, listing.ID)
	_, err := s.AcceptOffer(ctx, listing.ID, offer.ID, false)
	require.NoError(t, err)

	require.NoError(t, s.FailListing(ctx, listing.ID))
	got, err := s.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusFailed, got.Status)

	// Terminal: no further transitions.
	require.ErrorIs(t, s.FailListing(ctx, listing.ID), domain.ErrInvalidTransition)
}

func TestCancelOffer(t *testing.T) {
	ctx := context.Background()
	s := New()
	listing, _ := newListing(t, s)

	offer := addPending(t, s, listing.ID)

	require.ErrorIs(t, s.CancelOffer(ctx, offer.ID, uuid.New()), domain.ErrNotParticipant)
	require.NoError(t, s.CancelOffer(ctx, offer.ID, offer.UserID))

	got, err := s.GetOffer(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusCancelled, got.Status)

	require.ErrorIs(t, s.CancelOffer(ctx, offer.ID, offer.UserID), domain.ErrInvalidTransition)
}

func TestRatingClosesAfterBothParties(t *testing.T) {
	ctx := context.Background()
	s := New()
	listing, creatorOffer := newListing(t, s)

	offer := addPending(t, s, listing.ID)
	_, err := s.AcceptOffer(ctx, listing.ID, offer.ID, false)
	require.NoError(t, err)
	cc := domain.ContactMethod{Kind: domain.ContactKindCharacter, Value: "Ann of Aspen"}
	ac := domain.ContactMethod{Kind: domain.ContactKindCharacter, Value: "Bo of Birch"}
	require.NoError(t, s.AttachContact(ctx, listing.ID, cc, ac))
	require.NoError(t, s.CompleteListing(ctx, listing.ID))

	closed, err := s.AttachRating(ctx, listing.ID, creatorOffer.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, closed)

	_, err = s.AttachRating(ctx, listing.ID, creatorOffer.ID, uuid.New())
	require.ErrorIs(t, err, domain.ErrAlreadyRated)

	closed, err = s.AttachRating(ctx, listing.ID, offer.ID, uuid.New())
	require.NoError(t, err)
	assert.True(t, closed)

	got, err := s.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusClosed, got.Status)
}

func TestListListingsFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	l1, _ := newListing(t, s)
	l2, _ := newListing(t, s)
	_ = l2

	byCreator, err := s.ListListings(ctx, domain.ListingFilter{CreatorID: l1.CreatorID}, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, byCreator, 1)
	assert.Equal(t, l1.ID, byCreator[0].ID)

	byGame, err := s.ListListings(ctx, domain.ListingFilter{GameID: "nl"}, domain.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, byGame, 2)

	limited, err := s.ListListings(ctx, domain.ListingFilter{}, domain.ListOpts{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
