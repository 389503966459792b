package domain

// Venue identifies the exchange protocol a trade originated from or is
// routed to.
const (
	VenueUnknown  = ""
	VenueRaydium  = "raydium"
	VenueJupiter  = "jupiter"
	VenuePumpFun  = "pumpfun"
	VenueOpenbook = "openbook"
)
