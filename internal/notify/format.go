package notify

import (
	"fmt"

	"github.com/doumori-team/tradingpost/internal/domain"
)

// eventTitles maps trade events to notification titles. Events without an
// entry fall back to the raw event name.
var eventTitles = map[string]string{
	domain.EventListingCreated:    "New listing",
	domain.EventOfferMade:         "New offer",
	domain.EventOfferAccepted:     "Offer accepted",
	domain.EventOfferCancelled:    "Offer cancelled",
	domain.EventInfoShared:        "Contact info exchanged",
	domain.EventTradeCompleted:    "Trade completed",
	domain.EventTradeFailed:       "Trade failed",
	domain.EventFeedbackSubmitted: "Feedback submitted",
	domain.EventListingClosed:     "Listing closed",
}

// FormatTradeEvent renders a trade event as a notification title and body.
func FormatTradeEvent(ev domain.TradeEvent) (title, message string) {
	title, ok := eventTitles[ev.Event]
	if !ok {
		title = ev.Event
	}

	message = fmt.Sprintf("listing %s is now %s (actor %s)", ev.ListingID, ev.Status, ev.ActorID)
	if ev.OfferID != nil {
		message = fmt.Sprintf("%s, offer %s", message, *ev.OfferID)
	}
	return title, message
}
