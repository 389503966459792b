package execution

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderRequest is the venue-agnostic order derived from one trade signal.
type OrderRequest struct {
	TokenSymbol string
	TokenMint   string
	Direction   string // "buy" | "sell"
	SizeUSD     decimal.Decimal
}

// Fill is a successful venue execution.
type Fill struct {
	// Price is the realized per-token price in USD. It may differ from any
	// price implied by the signal; callers must not assume equality.
	Price decimal.Decimal
	// VenueRef is the venue's identifier for the fill, when it has one.
	VenueRef string
}

// Venue is one execution target. Implementations wrap a venue's public API;
// both calls must honor context cancellation.
type Venue interface {
	Name() string
	// CheckAvailability reports whether the token is currently tradable on
	// this venue with non-trivial liquidity.
	CheckAvailability(ctx context.Context, mint string) (bool, error)
	// SubmitOrder executes the order. Errors wrap ErrVenueRejected when the
	// venue refused the order; transport deadline errors are classified by
	// the router.
	SubmitOrder(ctx context.Context, req OrderRequest) (*Fill, error)
}
