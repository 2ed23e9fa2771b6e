package domain

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a free-text note on a listing. Comments are append-only and
// have no effect on listing or offer state.
type Comment struct {
	ID        uuid.UUID
	ListingID uuid.UUID
	UserID    uuid.UUID
	Text      string
	CreatedAt time.Time
}
