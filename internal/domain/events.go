package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trade-event names, as published on the signal bus and written to the
// audit log.
const (
	EventListingCreated   = "listing_created"
	EventOfferMade        = "offer_made"
	EventOfferAccepted    = "offer_accepted"
	EventOfferCancelled   = "offer_cancelled"
	EventInfoShared       = "info_shared"
	EventTradeCompleted   = "trade_completed"
	EventTradeFailed      = "trade_failed"
	EventFeedbackSubmitted = "feedback_submitted"
	EventListingClosed    = "listing_closed"
)

// TradeEvent is the payload published after a transition commits.
type TradeEvent struct {
	Event     string        `json:"event"`
	ListingID uuid.UUID     `json:"listing_id"`
	OfferID   *uuid.UUID    `json:"offer_id,omitempty"`
	ActorID   uuid.UUID     `json:"actor_id"`
	Status    ListingStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}
