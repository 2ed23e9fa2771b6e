// Package exchange holds the trade state machine: the legal listing and
// offer transitions, the per-operation precondition checks, and the
// contact-method rules for scoped trades. It is pure logic over domain
// types; persistence re-expresses the same guards as conditional updates.
package exchange

import (
	"fmt"

	"github.com/doumori-team/tradingpost/internal/domain"
)

// listingTransitions is the closed transition table for listings.
// open is initial; closed and failed are terminal.
var listingTransitions = map[domain.ListingStatus][]domain.ListingStatus{
	domain.ListingStatusOpen: {
		domain.ListingStatusOfferAccepted,
		// Unscoped trades with both contact payloads on file skip straight
		// to in_progress on acceptance.
		domain.ListingStatusInProgress,
	},
	domain.ListingStatusOfferAccepted: {
		domain.ListingStatusInProgress,
		domain.ListingStatusFailed,
	},
	domain.ListingStatusInProgress: {
		domain.ListingStatusCompleted,
		domain.ListingStatusFailed,
	},
	domain.ListingStatusCompleted: {
		domain.ListingStatusClosed,
	},
	domain.ListingStatusFailed: {
		domain.ListingStatusClosed,
	},
}

// CanTransition reports whether a listing may move from one status to
// another in a single step.
func CanTransition(from, to domain.ListingStatus) bool {
	for _, next := range listingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckMakeOffer verifies that a new offer may be made against the listing.
func CheckMakeOffer(listing domain.Listing) error {
	if listing.Status != domain.ListingStatusOpen {
		return fmt.Errorf("%w: listing is %s, offers require open", domain.ErrInvalidTransition, listing.Status)
	}
	return nil
}

// CheckAccept verifies the acceptance preconditions: the listing must be in
// an acceptable status, no offer may already be accepted, and the target
// must still be pending. Acceptance is deliberately not idempotent: naming
// the already-accepted offer is an error like any other.
func CheckAccept(listing domain.Listing, target domain.Offer, hasAccepted bool) error {
	switch listing.Status {
	case domain.ListingStatusOpen, domain.ListingStatusOfferAccepted, domain.ListingStatusInProgress:
	default:
		return fmt.Errorf("%w: listing is %s", domain.ErrInvalidTransition, listing.Status)
	}
	if hasAccepted {
		return domain.ErrAcceptedOfferExists
	}
	if target.Status != domain.OfferStatusPending {
		return fmt.Errorf("%w: offer is %s", domain.ErrOfferNotPending, target.Status)
	}
	return nil
}

// CheckShareInfo verifies that contact details may be exchanged. Unscoped
// trades exchange information outside the system and are rejected here
// regardless of listing status.
func CheckShareInfo(listing domain.Listing) error {
	if !listing.Scope.IsScoped() {
		return domain.ErrUnscopedListing
	}
	switch listing.Status {
	case domain.ListingStatusOfferAccepted, domain.ListingStatusInProgress:
		return nil
	default:
		return fmt.Errorf("%w: listing is %s", domain.ErrInvalidTransition, listing.Status)
	}
}

// CheckComplete verifies the completion precondition.
func CheckComplete(listing domain.Listing) error {
	if listing.Status != domain.ListingStatusInProgress {
		return fmt.Errorf("%w: listing is %s, completion requires in_progress", domain.ErrInvalidTransition, listing.Status)
	}
	return nil
}

// CheckFail verifies that a trade may be abandoned.
func CheckFail(listing domain.Listing) error {
	switch listing.Status {
	case domain.ListingStatusOfferAccepted, domain.ListingStatusInProgress:
		return nil
	default:
		return fmt.Errorf("%w: listing is %s", domain.ErrInvalidTransition, listing.Status)
	}
}

// CheckFeedback verifies that feedback may be submitted.
func CheckFeedback(listing domain.Listing) error {
	switch listing.Status {
	case domain.ListingStatusCompleted, domain.ListingStatusFailed:
		return nil
	default:
		return fmt.Errorf("%w: listing is %s, feedback requires completed or failed", domain.ErrInvalidTransition, listing.Status)
	}
}

// CheckCancelOffer verifies that the offer may still be withdrawn.
func CheckCancelOffer(offer domain.Offer) error {
	switch offer.Status {
	case domain.OfferStatusPending, domain.OfferStatusOnHold:
		return nil
	default:
		return fmt.Errorf("%w: offer is %s", domain.ErrInvalidTransition, offer.Status)
	}
}
