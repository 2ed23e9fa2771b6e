package domain

import (
	"time"

	"github.com/google/uuid"
)

// OfferStatus tracks the offer lifecycle. Transitions are monotone: an offer
// never leaves completed, rejected, or cancelled.
type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusOnHold    OfferStatus = "on_hold"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusCancelled OfferStatus = "cancelled"
)

// Terminal reports whether the status admits no further transition.
func (s OfferStatus) Terminal() bool {
	return s == OfferStatusRejected || s == OfferStatusCancelled
}

// OfferItem is one catalog item line within an offer's terms.
type OfferItem struct {
	CatalogItemID string
	Quantity      int
}

// ContactKind enumerates the delivery methods a scoped trade can use.
type ContactKind string

const (
	// ContactKindFriendCode exchanges console friend codes.
	ContactKindFriendCode ContactKind = "friend_code"
	// ContactKindCharacter references an in-game character and town.
	ContactKindCharacter ContactKind = "character"
	// ContactKindTransferCode is a short-lived code for direct visits,
	// supported only by the newest game generation.
	ContactKindTransferCode ContactKind = "transfer_code"
	// ContactKindAddress is a mailing address supplied up front on offers
	// against unscoped (real-world) listings.
	ContactKindAddress ContactKind = "address"
)

// ContactMethod carries the delivery data attached to a committed offer
// during the share-info step. ExpiresAt is set only for transfer codes.
type ContactMethod struct {
	Kind      ContactKind
	Value     string
	ExpiresAt *time.Time
}

// Offer is one party's proposed terms against a listing. The creator's own
// initial offer is created together with the listing and starts accepted.
type Offer struct {
	ID             uuid.UUID
	ListingID      uuid.UUID
	UserID         uuid.UUID
	CurrencyAmount *int64
	Comment        string
	Status         OfferStatus
	Items          []OfferItem
	Companions     []string
	Contact        *ContactMethod
	Completed      bool
	RatingID       *uuid.UUID
	CreatedAt      time.Time
}
