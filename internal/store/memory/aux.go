package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/doumori-team/tradingpost/internal/domain"
)

// Add appends a thread comment to the listing.
func (s *Store) Add(_ context.Context, c domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getListingLocked(c.ListingID); err != nil {
		return err
	}
	s.comments[c.ListingID] = append(s.comments[c.ListingID], c)
	return nil
}

// ListByListing returns the listing's comments, oldest first.
func (s *Store) ListByListing(_ context.Context, listingID uuid.UUID, opts domain.ListOpts) ([]domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]domain.Comment(nil), s.comments[listingID]...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return paginate(out, opts), nil
}

// Record stores a feedback rating.
func (s *Store) Record(_ context.Context, r domain.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings[r.ID] = r
	return nil
}

// GetByID returns the rating by id.
func (s *Store) GetByID(_ context.Context, id uuid.UUID) (domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.ratings[id]
	if !ok {
		return domain.Rating{}, domain.ErrNotFound
	}
	return r, nil
}

// ListByUser returns ratings received by the user, newest first.
func (s *Store) ListByUser(_ context.Context, ratedID uuid.UUID, opts domain.ListOpts) ([]domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Rating
	for _, r := range s.ratings {
		if r.RatedID == ratedID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, opts), nil
}

// Log appends an audit entry.
func (s *Store) Log(_ context.Context, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditSeq++
	s.audit = append(s.audit, domain.AuditEntry{
		ID:        s.auditSeq,
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// List returns audit entries, newest first.
func (s *Store) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]domain.AuditEntry(nil), s.audit...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID > out[j].ID
	})
	return paginate(out, opts), nil
}

// ListBefore returns audit entries recorded before the cutoff, oldest first.
func (s *Store) ListBefore(_ context.Context, before time.Time) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.AuditEntry
	for _, e := range s.audit {
		if e.CreatedAt.Before(before) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteBefore drops audit entries recorded before the cutoff.
func (s *Store) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.audit[:0]
	var dropped int64
	for _, e := range s.audit {
		if e.CreatedAt.Before(before) {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	s.audit = kept
	return dropped, nil
}

// GetContactValue returns the user's saved contact value for a game and kind.
func (s *Store) GetContactValue(_ context.Context, userID uuid.UUID, gameID string, kind domain.ContactKind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.identities[identityKey{userID, gameID, kind}]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

// PutContactValue saves or replaces the user's contact value.
func (s *Store) PutContactValue(_ context.Context, userID uuid.UUID, gameID string, kind domain.ContactKind, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identities[identityKey{userID, gameID, kind}] = value
	return nil
}

var (
	_ domain.CommentStore  = (*Store)(nil)
	_ domain.RatingStore   = (*Store)(nil)
	_ domain.AuditStore    = (*Store)(nil)
	_ domain.IdentityStore = (*Store)(nil)
)
