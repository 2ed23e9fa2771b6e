package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTransition   = errors.New("invalid listing transition")
	ErrOfferNotPending     = errors.New("offer is not pending")
	ErrAcceptedOfferExists = errors.New("listing already has an accepted offer")
	ErrNotParticipant      = errors.New("caller is not a participant in this trade")
	ErrNotCreator          = errors.New("caller is not the listing creator")
	ErrUnscopedListing     = errors.New("listing has no game scope")
	ErrMethodNotSupported  = errors.New("contact method not supported for this scope")
	ErrScopeNotTradable    = errors.New("scope does not allow trading")
	ErrAlreadyRated        = errors.New("caller already submitted feedback")
	ErrRateLimited         = errors.New("rate limited")
	ErrLockHeld            = errors.New("lock already held")
	ErrUnauthorized        = errors.New("unauthorized")
)
