package exchange

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doumori-team/tradingpost/internal/domain"
)

func openListing() domain.Listing {
	return domain.Listing{
		ID:        uuid.New(),
		CreatorID: uuid.New(),
		Scope:     domain.ScopeFor("nh"),
		Type:      domain.ListingTypeSell,
		Status:    domain.ListingStatusOpen,
	}
}

func pendingOffer(listingID uuid.UUID) domain.Offer {
	return domain.Offer{
		ID:        uuid.New(),
		ListingID: listingID,
		UserID:    uuid.New(),
		Status:    domain.OfferStatusPending,
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to domain.ListingStatus
		ok       bool
	}{
		{domain.ListingStatusOpen, domain.ListingStatusOfferAccepted, true},
		{domain.ListingStatusOpen, domain.ListingStatusInProgress, true},
		{domain.ListingStatusOfferAccepted, domain.ListingStatusInProgress, true},
		{domain.ListingStatusOfferAccepted, domain.ListingStatusFailed, true},
		{domain.ListingStatusInProgress, domain.ListingStatusCompleted, true},
		{domain.ListingStatusInProgress, domain.ListingStatusFailed, true},
		{domain.ListingStatusCompleted, domain.ListingStatusClosed, true},
		{domain.ListingStatusFailed, domain.ListingStatusClosed, true},

		{domain.ListingStatusOpen, domain.ListingStatusCompleted, false},
		{domain.ListingStatusOpen, domain.ListingStatusClosed, false},
		{domain.ListingStatusCompleted, domain.ListingStatusOpen, false},
		{domain.ListingStatusClosed, domain.ListingStatusOpen, false},
		{domain.ListingStatusFailed, domain.ListingStatusInProgress, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.ok, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestCheckAccept(t *testing.T) {
	l := openListing()
	target := pendingOffer(l.ID)

	require.NoError(t, CheckAccept(l, target, false))

	// Existing accepted offer blocks acceptance, even of the same offer.
	err := CheckAccept(l, target, true)
	assert.ErrorIs(t, err, domain.ErrAcceptedOfferExists)

	// Acceptance is only valid from pending.
	for _, st := range []domain.OfferStatus{
		domain.OfferStatusRejected,
		domain.OfferStatusCancelled,
		domain.OfferStatusOnHold,
		domain.OfferStatusAccepted,
	} {
		o := target
		o.Status = st
		assert.ErrorIs(t, CheckAccept(l, o, false), domain.ErrOfferNotPending, "status %s", st)
	}

	// Terminal listings reject acceptance outright.
	for _, st := range []domain.ListingStatus{
		domain.ListingStatusCompleted,
		domain.ListingStatusFailed,
		domain.ListingStatusClosed,
	} {
		bad := l
		bad.Status = st
		assert.ErrorIs(t, CheckAccept(bad, target, false), domain.ErrInvalidTransition, "status %s", st)
	}
}

func TestCheckShareInfo(t *testing.T) {
	l := openListing()
	l.Status = domain.ListingStatusOfferAccepted
	require.NoError(t, CheckShareInfo(l))

	l.Status = domain.ListingStatusInProgress
	require.NoError(t, CheckShareInfo(l))

	l.Status = domain.ListingStatusOpen
	assert.ErrorIs(t, CheckShareInfo(l), domain.ErrInvalidTransition)

	// Unscoped listings are rejected regardless of status.
	for _, st := range []domain.ListingStatus{
		domain.ListingStatusOpen,
		domain.ListingStatusOfferAccepted,
		domain.ListingStatusInProgress,
		domain.ListingStatusCompleted,
	} {
		unscoped := openListing()
		unscoped.Scope = domain.Unscoped()
		unscoped.Status = st
		assert.ErrorIs(t, CheckShareInfo(unscoped), domain.ErrUnscopedListing, "status %s", st)
	}
}

func TestCheckComplete(t *testing.T) {
	l := openListing()
	for _, st := range []domain.ListingStatus{
		domain.ListingStatusOpen,
		domain.ListingStatusOfferAccepted,
		domain.ListingStatusCompleted,
		domain.ListingStatusFailed,
		domain.ListingStatusClosed,
	} {
		l.Status = st
		assert.ErrorIs(t, CheckComplete(l), domain.ErrInvalidTransition, "status %s", st)
	}

	l.Status = domain.ListingStatusInProgress
	assert.NoError(t, CheckComplete(l))
}

func TestCheckFeedback(t *testing.T) {
	l := openListing()

	l.Status = domain.ListingStatusCompleted
	assert.NoError(t, CheckFeedback(l))

	l.Status = domain.ListingStatusFailed
	assert.NoError(t, CheckFeedback(l))

	l.Status = domain.ListingStatusInProgress
	assert.ErrorIs(t, CheckFeedback(l), domain.ErrInvalidTransition)
}

func TestCheckCancelOffer(t *testing.T) {
	o := pendingOffer(uuid.New())
	assert.NoError(t, CheckCancelOffer(o))

	o.Status = domain.OfferStatusOnHold
	assert.NoError(t, CheckCancelOffer(o))

	for _, st := range []domain.OfferStatus{
		domain.OfferStatusAccepted,
		domain.OfferStatusRejected,
		domain.OfferStatusCancelled,
	} {
		o.Status = st
		assert.ErrorIs(t, CheckCancelOffer(o), domain.ErrInvalidTransition, "status %s", st)
	}
}
