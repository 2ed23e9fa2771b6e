package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doumori-team/tradingpost/internal/domain"
	"github.com/doumori-team/tradingpost/internal/exchange"
)

// ExchangeStore implements domain.ExchangeStore using PostgreSQL. Every
// multi-row transition runs inside one transaction with the listing row
// locked, and offer status changes are conditional updates guarded by the
// current status. The offers_one_accepted_per_listing partial unique index
// backs the single-acceptance invariant below the application layer.
type ExchangeStore struct {
	pool *pgxpool.Pool
}

// NewExchangeStore creates an ExchangeStore backed by the given pool.
func NewExchangeStore(pool *pgxpool.Pool) *ExchangeStore {
	return &ExchangeStore{pool: pool}
}

const listingSelectCols = `id, creator_id, game_id, type, status, created_at, last_updated_at`

const offerSelectCols = `id, listing_id, user_id, currency_amount, comment, status,
	items, companions, contact_kind, contact_value, contact_expires_at,
	completed, rating_id, created_at`

func (s *ExchangeStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (domain.Listing, error) {
	var (
		l      domain.Listing
		gameID *string
	)
	err := row.Scan(&l.ID, &l.CreatorID, &gameID, &l.Type, &l.Status, &l.CreatedAt, &l.LastUpdatedAt)
	if err != nil {
		return domain.Listing{}, err
	}
	if gameID != nil {
		l.Scope = domain.ScopeFor(*gameID)
	} else {
		l.Scope = domain.Unscoped()
	}
	return l, nil
}

func scanOffer(row rowScanner) (domain.Offer, error) {
	var (
		o              domain.Offer
		itemsJSON      []byte
		companionsJSON []byte
		contactKind    *string
		contactValue   *string
		contactExpires *time.Time
	)
	err := row.Scan(&o.ID, &o.ListingID, &o.UserID, &o.CurrencyAmount, &o.Comment, &o.Status,
		&itemsJSON, &companionsJSON, &contactKind, &contactValue, &contactExpires,
		&o.Completed, &o.RatingID, &o.CreatedAt)
	if err != nil {
		return domain.Offer{}, err
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return domain.Offer{}, fmt.Errorf("postgres: unmarshal offer items: %w", err)
	}
	if err := json.Unmarshal(companionsJSON, &o.Companions); err != nil {
		return domain.Offer{}, fmt.Errorf("postgres: unmarshal offer companions: %w", err)
	}

	if contactKind != nil && contactValue != nil {
		o.Contact = &domain.ContactMethod{
			Kind:      domain.ContactKind(*contactKind),
			Value:     *contactValue,
			ExpiresAt: contactExpires,
		}
	}
	return o, nil
}

func contactColumns(c *domain.ContactMethod) (kind, value *string, expires any) {
	if c == nil {
		return nil, nil, nil
	}
	k := string(c.Kind)
	v := c.Value
	if c.ExpiresAt != nil {
		return &k, &v, *c.ExpiresAt
	}
	return &k, &v, nil
}

func gameIDColumn(s domain.Scope) *string {
	if id, ok := s.GameID(); ok {
		return &id
	}
	return nil
}

// lockListing loads the listing row FOR UPDATE so concurrent transitions on
// the same listing serialize.
func lockListing(ctx context.Context, tx pgx.Tx, id uuid.UUID) (domain.Listing, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+listingSelectCols+` FROM listings WHERE id = $1 FOR UPDATE`, id)
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, fmt.Errorf("postgres: lock listing %s: %w", id, err)
	}
	return l, nil
}

func setListingStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.ListingStatus) error {
	_, err := tx.Exec(ctx,
		`UPDATE listings SET status = $1, last_updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("postgres: set listing %s status %s: %w", id, status, err)
	}
	return nil
}

func insertOffer(ctx context.Context, tx pgx.Tx, o domain.Offer, isCreator bool) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("postgres: marshal offer items: %w", err)
	}
	companionsJSON, err := json.Marshal(o.Companions)
	if err != nil {
		return fmt.Errorf("postgres: marshal offer companions: %w", err)
	}
	kind, value, expires := contactColumns(o.Contact)

	_, err = tx.Exec(ctx, `
		INSERT INTO offers (
			id, listing_id, user_id, is_creator, currency_amount, comment,
			status, items, companions, contact_kind, contact_value,
			contact_expires_at, completed, rating_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.ID, o.ListingID, o.UserID, isCreator, o.CurrencyAmount, o.Comment,
		o.Status, itemsJSON, companionsJSON, kind, value, expires,
		o.Completed, o.RatingID, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert offer %s: %w", o.ID, err)
	}
	return nil
}

// CreateListing inserts the listing together with the creator's auto-accepted
// offer in one transaction.
func (s *ExchangeStore) CreateListing(ctx context.Context, listing domain.Listing, creatorOffer domain.Offer) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO listings (id, creator_id, game_id, type, status, created_at, last_updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			listing.ID, listing.CreatorID, gameIDColumn(listing.Scope),
			listing.Type, listing.Status, listing.CreatedAt, listing.LastUpdatedAt)
		if err != nil {
			return fmt.Errorf("postgres: insert listing %s: %w", listing.ID, err)
		}
		return insertOffer(ctx, tx, creatorOffer, true)
	})
}

// GetListing returns the listing by id.
func (s *ExchangeStore) GetListing(ctx context.Context, id uuid.UUID) (domain.Listing, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+listingSelectCols+` FROM listings WHERE id = $1`, id)
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, fmt.Errorf("postgres: get listing %s: %w", id, err)
	}
	return l, nil
}

// ListListings returns listings matching the filter, newest first.
func (s *ExchangeStore) ListListings(ctx context.Context, filter domain.ListingFilter, opts domain.ListOpts) ([]domain.Listing, error) {
	query := `SELECT ` + listingSelectCols + ` FROM listings WHERE 1=1`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.CreatorID != uuid.Nil {
		query += fmt.Sprintf(" AND creator_id = $%d", argIdx)
		args = append(args, filter.CreatorID)
		argIdx++
	}
	if filter.GameID != "" {
		query += fmt.Sprintf(" AND game_id = $%d", argIdx)
		args = append(args, filter.GameID)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// CreateOffer inserts a pending competing offer. The listing row is locked
// first so the open-status guard cannot race a concurrent transition.
func (s *ExchangeStore) CreateOffer(ctx context.Context, offer domain.Offer) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		listing, err := lockListing(ctx, tx, offer.ListingID)
		if err != nil {
			return err
		}
		if err := exchange.CheckMakeOffer(listing); err != nil {
			return err
		}
		return insertOffer(ctx, tx, offer, false)
	})
}

// GetOffer returns the offer by id.
func (s *ExchangeStore) GetOffer(ctx context.Context, id uuid.UUID) (domain.Offer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+offerSelectCols+` FROM offers WHERE id = $1`, id)
	o, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Offer{}, domain.ErrNotFound
		}
		return domain.Offer{}, fmt.Errorf("postgres: get offer %s: %w", id, err)
	}
	return o, nil
}

// ListOffers returns all offers on a listing, creator's offer first, then
// oldest first.
func (s *ExchangeStore) ListOffers(ctx context.Context, listingID uuid.UUID) ([]domain.Offer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+offerSelectCols+` FROM offers
		 WHERE listing_id = $1 ORDER BY is_creator DESC, created_at ASC`, listingID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list offers for %s: %w", listingID, err)
	}
	defer rows.Close()
	return scanOfferRows(rows)
}

// ListOffersByUser returns a user's offers, newest first.
func (s *ExchangeStore) ListOffersByUser(ctx context.Context, userID uuid.UUID, opts domain.ListOpts) ([]domain.Offer, error) {
	query := `SELECT ` + offerSelectCols + ` FROM offers WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{userID}
	if opts.Limit > 0 {
		query += " LIMIT $2"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET $3"
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list offers by user %s: %w", userID, err)
	}
	defer rows.Close()
	return scanOfferRows(rows)
}

func scanOfferRows(rows pgx.Rows) ([]domain.Offer, error) {
	var offers []domain.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan offer: %w", err)
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

// AcceptedOffer returns the accepted competing offer on the listing. The
// result is a derived query; uniqueness is guaranteed by the partial index.
func (s *ExchangeStore) AcceptedOffer(ctx context.Context, listingID uuid.UUID) (domain.Offer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+offerSelectCols+` FROM offers
		 WHERE listing_id = $1 AND status = 'accepted' AND NOT is_creator`, listingID)
	o, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Offer{}, domain.ErrNotFound
		}
		return domain.Offer{}, fmt.Errorf("postgres: accepted offer for %s: %w", listingID, err)
	}
	return o, nil
}

// AcceptOffer performs the acceptance fan-out atomically. See the interface
// contract in domain for the guard semantics.
func (s *ExchangeStore) AcceptOffer(ctx context.Context, listingID, offerID uuid.UUID, promoteOnContact bool) (domain.Listing, error) {
	var result domain.Listing
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		listing, err := lockListing(ctx, tx, listingID)
		if err != nil {
			return err
		}

		var hasAccepted bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM offers
				WHERE listing_id = $1 AND status = 'accepted' AND NOT is_creator
			)`, listingID).Scan(&hasAccepted)
		if err != nil {
			return fmt.Errorf("postgres: check accepted offer: %w", err)
		}

		target, err := getOfferTx(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if target.ListingID != listingID {
			return domain.ErrNotFound
		}

		if err := exchange.CheckAccept(listing, target, hasAccepted); err != nil {
			return err
		}

		// Conditional update: only a still-pending competing offer can win.
		tag, err := tx.Exec(ctx, `
			UPDATE offers SET status = 'accepted'
			WHERE id = $1 AND listing_id = $2 AND status = 'pending' AND NOT is_creator`,
			offerID, listingID)
		if err != nil {
			return fmt.Errorf("postgres: accept offer %s: %w", offerID, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrOfferNotPending
		}

		// Every other pending offer goes on hold.
		_, err = tx.Exec(ctx, `
			UPDATE offers SET status = 'on_hold'
			WHERE listing_id = $1 AND status = 'pending' AND NOT is_creator AND id <> $2`,
			listingID, offerID)
		if err != nil {
			return fmt.Errorf("postgres: hold competing offers: %w", err)
		}

		newStatus := domain.ListingStatusOfferAccepted
		if promoteOnContact {
			var bothHaveContact bool
			err = tx.QueryRow(ctx, `
				SELECT
					(SELECT contact_value IS NOT NULL FROM offers
					 WHERE listing_id = $1 AND is_creator)
					AND
					(SELECT contact_value IS NOT NULL FROM offers WHERE id = $2)`,
				listingID, offerID).Scan(&bothHaveContact)
			if err != nil {
				return fmt.Errorf("postgres: check contact payloads: %w", err)
			}
			if bothHaveContact {
				newStatus = domain.ListingStatusInProgress
			}
		}

		if err := setListingStatus(ctx, tx, listingID, newStatus); err != nil {
			return err
		}

		result = listing
		result.Status = newStatus
		return nil
	})
	if err != nil {
		return domain.Listing{}, err
	}
	return result, nil
}

func getOfferTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (domain.Offer, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+offerSelectCols+` FROM offers WHERE id = $1`, id)
	o, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Offer{}, domain.ErrNotFound
		}
		return domain.Offer{}, fmt.Errorf("postgres: get offer %s: %w", id, err)
	}
	return o, nil
}

// AttachContact stores each party's contact method on their committed offer
// and promotes the listing to in_progress.
func (s *ExchangeStore) AttachContact(ctx context.Context, listingID uuid.UUID, creatorContact, acceptedContact domain.ContactMethod) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		listing, err := lockListing(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if err := exchange.CheckShareInfo(listing); err != nil {
			return err
		}

		ck, cv, ce := contactColumns(&creatorContact)
		_, err = tx.Exec(ctx, `
			UPDATE offers SET contact_kind = $1, contact_value = $2, contact_expires_at = $3
			WHERE listing_id = $4 AND is_creator`,
			ck, cv, ce, listingID)
		if err != nil {
			return fmt.Errorf("postgres: attach creator contact: %w", err)
		}

		ak, av, ae := contactColumns(&acceptedContact)
		tag, err := tx.Exec(ctx, `
			UPDATE offers SET contact_kind = $1, contact_value = $2, contact_expires_at = $3
			WHERE listing_id = $4 AND status = 'accepted' AND NOT is_creator`,
			ak, av, ae, listingID)
		if err != nil {
			return fmt.Errorf("postgres: attach accepted contact: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}

		return setListingStatus(ctx, tx, listingID, domain.ListingStatusInProgress)
	})
}

// CompleteListing marks both committed offers completed, rejects the on-hold
// offers, and closes out the listing status to completed.
func (s *ExchangeStore) CompleteListing(ctx context.Context, listingID uuid.UUID) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		listing, err := lockListing(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if err := exchange.CheckComplete(listing); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE offers SET completed = TRUE
			WHERE listing_id = $1 AND (is_creator OR status = 'accepted')`,
			listingID)
		if err != nil {
			return fmt.Errorf("postgres: mark offers completed: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE offers SET status = 'rejected'
			WHERE listing_id = $1 AND status = 'on_hold'`,
			listingID)
		if err != nil {
			return fmt.Errorf("postgres: reject held offers: %w", err)
		}

		return setListingStatus(ctx, tx, listingID, domain.ListingStatusCompleted)
	})
}

// FailListing abandons the trade from offer_accepted or in_progress.
func (s *ExchangeStore) FailListing(ctx context.Context, listingID uuid.UUID) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		listing, err := lockListing(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if err := exchange.CheckFail(listing); err != nil {
			return err
		}
		return setListingStatus(ctx, tx, listingID, domain.ListingStatusFailed)
	})
}

// CancelOffer withdraws a pending or on-hold offer owned by userID.
func (s *ExchangeStore) CancelOffer(ctx context.Context, offerID, userID uuid.UUID) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		offer, err := getOfferTx(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if offer.UserID != userID {
			return domain.ErrNotParticipant
		}
		if err := exchange.CheckCancelOffer(offer); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE offers SET status = 'cancelled'
			WHERE id = $1 AND status IN ('pending', 'on_hold')`,
			offerID)
		if err != nil {
			return fmt.Errorf("postgres: cancel offer %s: %w", offerID, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrInvalidTransition
		}
		return nil
	})
}

// AttachRating records the rating on the rater's committed offer, and closes
// the listing once both parties have rated.
func (s *ExchangeStore) AttachRating(ctx context.Context, listingID, offerID, ratingID uuid.UUID) (bool, error) {
	var closed bool
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		listing, err := lockListing(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if err := exchange.CheckFeedback(listing); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE offers SET rating_id = $1
			WHERE id = $2 AND listing_id = $3 AND rating_id IS NULL`,
			ratingID, offerID, listingID)
		if err != nil {
			return fmt.Errorf("postgres: attach rating to offer %s: %w", offerID, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrAlreadyRated
		}

		var unrated int
		err = tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM offers
			WHERE listing_id = $1 AND (is_creator OR status = 'accepted') AND rating_id IS NULL`,
			listingID).Scan(&unrated)
		if err != nil {
			return fmt.Errorf("postgres: count unrated offers: %w", err)
		}

		if unrated == 0 {
			if err := setListingStatus(ctx, tx, listingID, domain.ListingStatusClosed); err != nil {
				return err
			}
			closed = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return closed, nil
}

// Compile-time interface check.
var _ domain.ExchangeStore = (*ExchangeStore)(nil)
