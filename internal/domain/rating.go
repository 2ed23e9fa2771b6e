package domain

import (
	"time"

	"github.com/google/uuid"
)

// Rating is one party's feedback about the other after a trade completes or
// fails. Aggregation into user reputation is owned by the rating collaborator.
type Rating struct {
	ID        uuid.UUID
	ListingID uuid.UUID
	RaterID   uuid.UUID
	RatedID   uuid.UUID
	Score     int // 1..5
	Comment   string
	CreatedAt time.Time
}
