package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doumori-team/tradingpost/internal/domain"
)

// RatingStore implements domain.RatingStore using PostgreSQL. Reputation
// aggregation over these rows is owned by the main site.
type RatingStore struct {
	pool *pgxpool.Pool
}

// NewRatingStore creates a RatingStore backed by the given connection pool.
func NewRatingStore(pool *pgxpool.Pool) *RatingStore {
	return &RatingStore{pool: pool}
}

// Record inserts a rating row.
func (s *RatingStore) Record(ctx context.Context, r domain.Rating) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ratings (id, listing_id, rater_id, rated_id, score, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.ListingID, r.RaterID, r.RatedID, r.Score, r.Comment, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: record rating %s: %w", r.ID, err)
	}
	return nil
}

// GetByID returns the rating with the given id.
func (s *RatingStore) GetByID(ctx context.Context, id uuid.UUID) (domain.Rating, error) {
	var r domain.Rating
	err := s.pool.QueryRow(ctx, `
		SELECT id, listing_id, rater_id, rated_id, score, comment, created_at
		FROM ratings WHERE id = $1`, id,
	).Scan(&r.ID, &r.ListingID, &r.RaterID, &r.RatedID, &r.Score, &r.Comment, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Rating{}, domain.ErrNotFound
		}
		return domain.Rating{}, fmt.Errorf("postgres: get rating %s: %w", id, err)
	}
	return r, nil
}

// ListByUser returns ratings received by a user, newest first.
func (s *RatingStore) ListByUser(ctx context.Context, ratedID uuid.UUID, opts domain.ListOpts) ([]domain.Rating, error) {
	query := `SELECT id, listing_id, rater_id, rated_id, score, comment, created_at
		FROM ratings WHERE rated_id = $1 ORDER BY created_at DESC`
	args := []any{ratedID}
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
		return nil, fmt.Errorf("postgres: list ratings for %s: %w", ratedID, err)
	}
	defer rows.Close()

	var ratings []domain.Rating
	for rows.Next() {
		var r domain.Rating
		if err := rows.Scan(&r.ID, &r.ListingID, &r.RaterID, &r.RatedID, &r.Score, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

// Compile-time interface check.
var _ domain.RatingStore = (*RatingStore)(nil)
