package execution

import "errors"

// Venue-level failure taxonomy. Every venue-specific error is normalized to
// one of these before it reaches an outcome record.
var (
	// ErrTokenUnavailable is returned when no configured venue can trade
	// the token.
	ErrTokenUnavailable = errors.New("token unavailable on any venue")

	// ErrVenueTimeout is returned when a venue call exceeds its deadline.
	ErrVenueTimeout = errors.New("venue timeout")

	// ErrVenueRejected is returned when a venue refuses the order.
	ErrVenueRejected = errors.New("venue rejected order")

	// ErrAllVenuesExhausted is returned when every eligible venue failed.
	ErrAllVenuesExhausted = errors.New("all venues exhausted")
)
