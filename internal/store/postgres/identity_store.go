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

// IdentityStore implements domain.IdentityStore using PostgreSQL. It holds
// the durable per-user, per-game contact values (friend codes and character
// references). Transfer codes are ephemeral and never stored here.
type IdentityStore struct {
	pool *pgxpool.Pool
}

// NewIdentityStore creates an IdentityStore backed by the given pool.
func NewIdentityStore(pool *pgxpool.Pool) *IdentityStore {
	return &IdentityStore{pool: pool}
}

// GetContactValue returns the stored value for the user, game, and kind.
func (s *IdentityStore) GetContactValue(ctx context.Context, userID uuid.UUID, gameID string, kind domain.ContactKind) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `
		SELECT value FROM user_game_contacts
		WHERE user_id = $1 AND game_id = $2 AND kind = $3`,
		userID, gameID, kind,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("postgres: get contact value: %w", err)
	}
	return value, nil
}

// PutContactValue stores a contact value, replacing any previous one.
func (s *IdentityStore) PutContactValue(ctx context.Context, userID uuid.UUID, gameID string, kind domain.ContactKind, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_game_contacts (user_id, game_id, kind, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, game_id, kind) DO UPDATE SET value = EXCLUDED.value`,
		userID, gameID, kind, value)
	if err != nil {
		return fmt.Errorf("postgres: put contact value: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.IdentityStore = (*IdentityStore)(nil)
