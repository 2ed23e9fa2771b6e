package domain

import (
	"time"

	"github.com/google/uuid"
)

// ListingType indicates whether the creator is selling or buying.
type ListingType string

const (
	ListingTypeSell ListingType = "sell"
	ListingTypeBuy  ListingType = "buy"
)

// ListingStatus tracks the listing lifecycle.
type ListingStatus string

const (
	ListingStatusOpen          ListingStatus = "open"
	ListingStatusOfferAccepted ListingStatus = "offer_accepted"
	ListingStatusInProgress    ListingStatus = "in_progress"
	ListingStatusCompleted     ListingStatus = "completed"
	ListingStatusFailed        ListingStatus = "failed"
	ListingStatusClosed        ListingStatus = "closed"
)

// Terminal reports whether no further transition may leave this status.
func (s ListingStatus) Terminal() bool {
	return s == ListingStatusClosed || s == ListingStatusFailed
}

// Listing is the top-level trade envelope a member posts. Closure is a
// status change; listings are never physically deleted.
type Listing struct {
	ID            uuid.UUID
	CreatorID     uuid.UUID
	Scope         Scope
	Type          ListingType
	Status        ListingStatus
	CreatedAt     time.Time
	LastUpdatedAt time.Time
}
