package domain

import "errors"

// Sentinel errors returned by the settlement engine and its stores. Every
// failure aborts the enclosing operation with zero partial state change.
var (
	ErrAlreadyInitialized = errors.New("registry already initialized")
	ErrNotInitialized     = errors.New("registry not initialized")
	ErrNotAdmin           = errors.New("caller is not the administrator")
	ErrMarketNotFound     = errors.New("market not found")
	ErrMarketResolved     = errors.New("market already resolved")
	ErrMarketNotResolved  = errors.New("market not resolved")
	ErrMarketExpired      = errors.New("market expired")
	ErrPositionExists     = errors.New("position already exists")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNoWinnings         = errors.New("no claimable winnings")
	ErrNotFound           = errors.New("not found")
)

// ErrorKind buckets engine failures for transport layers and callers that
// dispatch on class rather than on the individual sentinel.
type ErrorKind string

const (
	KindAuthorization ErrorKind = "authorization"
	KindNotFound      ErrorKind = "not_found"
	KindStateConflict ErrorKind = "state_conflict"
	KindValidation    ErrorKind = "validation"
	KindTemporal      ErrorKind = "temporal"
	KindEntitlement   ErrorKind = "entitlement"
	KindInternal      ErrorKind = "internal"
)

// KindOf classifies err into an ErrorKind. ErrNoWinnings deliberately covers
// never-bet, wrong-side, and already-claimed uniformly. Unrecognized errors
// classify as KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotAdmin):
		return KindAuthorization
	case errors.Is(err, ErrMarketNotFound), errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyInitialized),
		errors.Is(err, ErrNotInitialized),
		errors.Is(err, ErrMarketResolved),
		errors.Is(err, ErrMarketNotResolved),
		errors.Is(err, ErrPositionExists),
		errors.Is(err, ErrInsufficientFunds):
		return KindStateConflict
	case errors.Is(err, ErrInvalidAmount):
		return KindValidation
	case errors.Is(err, ErrMarketExpired):
		return KindTemporal
	case errors.Is(err, ErrNoWinnings):
		return KindEntitlement
	default:
		return KindInternal
	}
}
