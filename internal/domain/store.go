package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ListingFilter narrows ListListings results.
type ListingFilter struct {
	Status    ListingStatus // empty matches all
	CreatorID uuid.UUID     // zero matches all
	GameID    string        // empty matches all; "unscoped" is not a game ID
}

// ExchangeStore persists listings and offers and owns their status fields.
// Every method that mutates more than one row runs inside a single
// transaction; partial application of a transition is never observable.
// Status guards are expressed as conditional updates so that concurrent
// transitions on the same listing serialize at the store, not merely in the
// caller.
type ExchangeStore interface {
	// CreateListing inserts the listing together with the creator's own
	// auto-accepted offer.
	CreateListing(ctx context.Context, listing Listing, creatorOffer Offer) error
	GetListing(ctx context.Context, id uuid.UUID) (Listing, error)
	ListListings(ctx context.Context, filter ListingFilter, opts ListOpts) ([]Listing, error)

	// CreateOffer inserts a pending offer. It fails with ErrInvalidTransition
	// when the listing is not open.
	CreateOffer(ctx context.Context, offer Offer) error
	GetOffer(ctx context.Context, id uuid.UUID) (Offer, error)
	ListOffers(ctx context.Context, listingID uuid.UUID) ([]Offer, error)
	ListOffersByUser(ctx context.Context, userID uuid.UUID, opts ListOpts) ([]Offer, error)

	// AcceptedOffer returns the single accepted offer on the listing, or
	// ErrNotFound when none exists. The uniqueness is backed by a storage
	// constraint, not by caller discipline.
	AcceptedOffer(ctx context.Context, listingID uuid.UUID) (Offer, error)

	// AcceptOffer atomically accepts the target pending offer, puts every
	// other pending offer on hold, and moves the listing to offer_accepted.
	// When promoteOnContact is set and both committed offers already carry
	// contact data, the listing moves straight to in_progress instead.
	// Fails with ErrAcceptedOfferExists, ErrOfferNotPending, or
	// ErrInvalidTransition without mutating anything.
	AcceptOffer(ctx context.Context, listingID, offerID uuid.UUID, promoteOnContact bool) (Listing, error)

	// AttachContact stores each party's contact method on their committed
	// offer (creator's offer and accepted offer) and moves the listing to
	// in_progress.
	AttachContact(ctx context.Context, listingID uuid.UUID, creatorContact, acceptedContact ContactMethod) error

	// CompleteListing marks both committed offers completed, rejects every
	// on-hold offer, and moves the listing to completed. The listing must be
	// in_progress.
	CompleteListing(ctx context.Context, listingID uuid.UUID) error

	// FailListing abandons a trade from offer_accepted or in_progress.
	FailListing(ctx context.Context, listingID uuid.UUID) error

	// CancelOffer withdraws a pending or on-hold offer owned by userID.
	CancelOffer(ctx context.Context, offerID, userID uuid.UUID) error

	// AttachRating records the rating id on the rater's committed offer and
	// reports whether the listing is now closed (both parties rated).
	AttachRating(ctx context.Context, listingID, offerID, ratingID uuid.UUID) (closed bool, err error)
}

// CommentStore persists append-only listing comments.
type CommentStore interface {
	Add(ctx context.Context, c Comment) error
	ListByListing(ctx context.Context, listingID uuid.UUID, opts ListOpts) ([]Comment, error)
}

// RatingStore records feedback ratings. Aggregation is owned elsewhere.
type RatingStore interface {
	Record(ctx context.Context, r Rating) error
	GetByID(ctx context.Context, id uuid.UUID) (Rating, error)
	ListByUser(ctx context.Context, ratedID uuid.UUID, opts ListOpts) ([]Rating, error)
}

// AuditEntry is a single trade-event log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only log of committed transitions.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
	ListBefore(ctx context.Context, before time.Time) ([]AuditEntry, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// IdentityStore holds per-user, per-game identity data (friend codes and
// character references) provisioned on demand during share-info.
type IdentityStore interface {
	// GetContactValue returns the stored value for the user, game, and kind,
	// or ErrNotFound when none has been provisioned.
	GetContactValue(ctx context.Context, userID uuid.UUID, gameID string, kind ContactKind) (string, error)
	// PutContactValue stores a freshly generated value.
	PutContactValue(ctx context.Context, userID uuid.UUID, gameID string, kind ContactKind, value string) error
}
