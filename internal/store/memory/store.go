// Package memory implements the domain store interfaces in process memory.
// It mirrors the postgres guard semantics under a single mutex and backs the
// engine tests and the local development mode. It is a store, not a cache:
// nothing here shadows another copy of listing or offer state.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doumori-team/tradingpost/internal/domain"
	"github.com/doumori-team/tradingpost/internal/exchange"
)

// Store holds all exchange state in memory.
type Store struct {
	mu sync.Mutex

	listings map[uuid.UUID]domain.Listing
	offers   map[uuid.UUID]domain.Offer
	creator  map[uuid.UUID]bool // offer id -> is the creator's own offer

	comments   map[uuid.UUID][]domain.Comment
	ratings    map[uuid.UUID]domain.Rating
	identities map[identityKey]string

	auditSeq int64
	audit    []domain.AuditEntry
}

type identityKey struct {
	userID uuid.UUID
	gameID string
	kind   domain.ContactKind
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		listings:   make(map[uuid.UUID]domain.Listing),
		offers:     make(map[uuid.UUID]domain.Offer),
		creator:    make(map[uuid.UUID]bool),
		comments:   make(map[uuid.UUID][]domain.Comment),
		ratings:    make(map[uuid.UUID]domain.Rating),
		identities: make(map[identityKey]string),
	}
}

func cloneOffer(o domain.Offer) domain.Offer {
	c := o
	c.Items = append([]domain.OfferItem(nil), o.Items...)
	c.Companions = append([]string(nil), o.Companions...)
	if o.Contact != nil {
		contact := *o.Contact
		c.Contact = &contact
	}
	if o.RatingID != nil {
		id := *o.RatingID
		c.RatingID = &id
	}
	return c
}

// CreateListing inserts the listing and the creator's auto-accepted offer.
func (s *Store) CreateListing(_ context.Context, listing domain.Listing, creatorOffer domain.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listings[listing.ID] = listing
	s.offers[creatorOffer.ID] = cloneOffer(creatorOffer)
	s.creator[creatorOffer.ID] = true
	return nil
}

// GetListing returns the listing by id.
func (s *Store) GetListing(_ context.Context, id uuid.UUID) (domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getListingLocked(id)
}

func (s *Store) getListingLocked(id uuid.UUID) (domain.Listing, error) {
	l, ok := s.listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l, nil
}

// ListListings returns listings matching the filter, newest first.
func (s *Store) ListListings(_ context.Context, filter domain.ListingFilter, opts domain.ListOpts) ([]domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Listing
	for _, l := range s.listings {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.CreatorID != uuid.Nil && l.CreatorID != filter.CreatorID {
			continue
		}
		if filter.GameID != "" {
			id, ok := l.Scope.GameID()
			if !ok || id != filter.GameID {
				continue
			}
		}
		out = append(out, l)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, opts), nil
}

func paginate[T any](in []T, opts domain.ListOpts) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(in) {
			return nil
		}
		in = in[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(in) {
		in = in[:opts.Limit]
	}
	return in
}

// CreateOffer inserts a pending competing offer after the open-status guard.
func (s *Store) CreateOffer(_ context.Context, offer domain.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, err := s.getListingLocked(offer.ListingID)
	if err != nil {
		return err
	}
	if err := exchange.CheckMakeOffer(listing); err != nil {
		return err
	}

	s.offers[offer.ID] = cloneOffer(offer)
	s.creator[offer.ID] = false
	return nil
}

// GetOffer returns the offer by id.
func (s *Store) GetOffer(_ context.Context, id uuid.UUID) (domain.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.offers[id]
	if !ok {
		return domain.Offer{}, domain.ErrNotFound
	}
	return cloneOffer(o), nil
}

// ListOffers returns all offers on a listing, creator's offer first, then
// oldest first.
func (s *Store) ListOffers(_ context.Context, listingID uuid.UUID) ([]domain.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Offer
	for _, o := range s.offers {
		if o.ListingID == listingID {
			out = append(out, cloneOffer(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := s.creator[out[i].ID], s.creator[out[j].ID]
		if ci != cj {
			return ci
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ListOffersByUser returns a user's offers, newest first.
func (s *Store) ListOffersByUser(_ context.Context, userID uuid.UUID, opts domain.ListOpts) ([]domain.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Offer
	for _, o := range s.offers {
		if o.UserID == userID {
			out = append(out, cloneOffer(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, opts), nil
}

func (s *Store) acceptedOfferLocked(listingID uuid.UUID) (domain.Offer, bool) {
	for _, o := range s.offers {
		if o.ListingID == listingID && o.Status == domain.OfferStatusAccepted && !s.creator[o.ID] {
			return o, true
		}
	}
	return domain.Offer{}, false
}

func (s *Store) creatorOfferLocked(listingID uuid.UUID) (domain.Offer, bool) {
	for _, o := range s.offers {
		if o.ListingID == listingID && s.creator[o.ID] {
			return o, true
		}
	}
	return domain.Offer{}, false
}

// AcceptedOffer returns the accepted competing offer on the listing.
func (s *Store) AcceptedOffer(_ context.Context, listingID uuid.UUID) (domain.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o, ok := s.acceptedOfferLocked(listingID); ok {
		return cloneOffer(o), nil
	}
	return domain.Offer{}, domain.ErrNotFound
}

// AcceptOffer performs the acceptance fan-out atomically under the store
// mutex, so racing calls serialize and at most one succeeds.
func (s *Store) AcceptOffer(_ context.Context, listingID, offerID uuid.UUID, promoteOnContact bool) (domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, err := s.getListingLocked(listingID)
	if err != nil {
		return domain.Listing{}, err
	}

	target, ok := s.offers[offerID]
	if !ok || target.ListingID != listingID {
		return domain.Listing{}, domain.ErrNotFound
	}

	_, hasAccepted := s.acceptedOfferLocked(listingID)
	if err := exchange.CheckAccept(listing, target, hasAccepted); err != nil {
		return domain.Listing{}, err
	}
	if s.creator[offerID] {
		return domain.Listing{}, domain.ErrOfferNotPending
	}

	target.Status = domain.OfferStatusAccepted
	s.offers[offerID] = target

	for id, o := range s.offers {
		if o.ListingID == listingID && o.Status == domain.OfferStatusPending && !s.creator[id] && id != offerID {
			o.Status = domain.OfferStatusOnHold
			s.offers[id] = o
		}
	}

	newStatus := domain.ListingStatusOfferAccepted
	if promoteOnContact {
		creatorOffer, ok := s.creatorOfferLocked(listingID)
		if ok && creatorOffer.Contact != nil && target.Contact != nil {
			newStatus = domain.ListingStatusInProgress
		}
	}

	listing.Status = newStatus
	listing.LastUpdatedAt = time.Now().UTC()
	s.listings[listingID] = listing
	return listing, nil
}

// AttachContact stores each party's contact method and promotes the listing
// to in_progress.
func (s *Store) AttachContact(_ context.Context, listingID uuid.UUID, creatorContact, acceptedContact domain.ContactMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, err := s.getListingLocked(listingID)
	if err != nil {
		return err
	}
	if err := exchange.CheckShareInfo(listing); err != nil {
		return err
	}

	accepted, ok := s.acceptedOfferLocked(listingID)
	if !ok {
		return domain.ErrNotFound
	}
	creatorOffer, ok := s.creatorOfferLocked(listingID)
	if !ok {
		return domain.ErrNotFound
	}

	cc := creatorContact
	creatorOffer.Contact = &cc
	s.offers[creatorOffer.ID] = creatorOffer

	ac := acceptedContact
	accepted.Contact = &ac
	s.offers[accepted.ID] = accepted

	listing.Status = domain.ListingStatusInProgress
	listing.LastUpdatedAt = time.Now().UTC()
	s.listings[listingID] = listing
	return nil
}

// CompleteListing marks committed offers completed, rejects held offers, and
// moves the listing to completed.
func (s *Store) CompleteListing(_ context.Context, listingID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, err := s.getListingLocked(listingID)
	if err != nil {
		return err
	}
	if err := exchange.CheckComplete(listing); err != nil {
		return err
	}

	for id, o := range s.offers {
		if o.ListingID != listingID {
			continue
		}
		switch {
		case s.creator[id] || o.Status == domain.OfferStatusAccepted:
			o.Completed = true
		case o.Status == domain.OfferStatusOnHold:
			o.Status = domain.OfferStatusRejected
		}
		s.offers[id] = o
	}

	listing.Status = domain.ListingStatusCompleted
	listing.LastUpdatedAt = time.Now().UTC()
	s.listings[listingID] = listing
	return nil
}

// FailListing abandons the trade.
func (s *Store) FailListing(_ context.Context, listingID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, err := s.getListingLocked(listingID)
	if err != nil {
		return err
	}
	if err := exchange.CheckFail(listing); err != nil {
		return err
	}

	listing.Status = domain.ListingStatusFailed
	listing.LastUpdatedAt = time.Now().UTC()
	s.listings[listingID] = listing
	return nil
}

// CancelOffer withdraws a pending or on-hold offer owned by userID.
func (s *Store) CancelOffer(_ context.Context, offerID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.offers[offerID]
	if !ok {
		return domain.ErrNotFound
	}
	if o.UserID != userID {
		return domain.ErrNotParticipant
	}
	if err := exchange.CheckCancelOffer(o); err != nil {
		return err
	}

	o.Status = domain.OfferStatusCancelled
	s.offers[offerID] = o
	return nil
}

// AttachRating records the rating on the rater's committed offer and closes
// the listing once both committed offers carry one.
func (s *Store) AttachRating(_ context.Context, listingID, offerID, ratingID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, err := s.getListingLocked(listingID)
	if err != nil {
		return false, err
	}
	if err := exchange.CheckFeedback(listing); err != nil {
		return false, err
	}

	o, ok := s.offers[offerID]
	if !ok || o.ListingID != listingID {
		return false, domain.ErrNotFound
	}
	if o.RatingID != nil {
		return false, domain.ErrAlreadyRated
	}
	id := ratingID
	o.RatingID = &id
	s.offers[offerID] = o

	for oid, other := range s.offers {
		if other.ListingID != listingID {
			continue
		}
		if (s.creator[oid] || other.Status == domain.OfferStatusAccepted) && other.RatingID == nil {
			return false, nil
		}
	}

	listing.Status = domain.ListingStatusClosed
	listing.LastUpdatedAt = time.Now().UTC()
	s.listings[listingID] = listing
	return true, nil
}

// Compile-time interface check.
var _ domain.ExchangeStore = (*Store)(nil)
