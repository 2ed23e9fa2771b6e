package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doumori-team/tradingpost/internal/domain"
)

// CommentStore implements domain.CommentStore using PostgreSQL.
type CommentStore struct {
	pool *pgxpool.Pool
}

// NewCommentStore creates a CommentStore backed by the given connection pool.
func NewCommentStore(pool *pgxpool.Pool) *CommentStore {
	return &CommentStore{pool: pool}
}

// Add appends a comment. Comments are append-only; there is no update or
// delete path.
func (s *CommentStore) Add(ctx context.Context, c domain.Comment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO listing_comments (id, listing_id, user_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.ListingID, c.UserID, c.Text, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: add comment %s: %w", c.ID, err)
	}
	return nil
}

// ListByListing returns a listing's comments, oldest first.
func (s *CommentStore) ListByListing(ctx context.Context, listingID uuid.UUID, opts domain.ListOpts) ([]domain.Comment, error) {
	query := `SELECT id, listing_id, user_id, body, created_at
		FROM listing_comments WHERE listing_id = $1 ORDER BY created_at ASC`
	args := []any{listingID}
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
		return nil, fmt.Errorf("postgres: list comments for %s: %w", listingID, err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.ListingID, &c.UserID, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Compile-time interface check.
var _ domain.CommentStore = (*CommentStore)(nil)
