package domain

import "github.com/shopspring/decimal"

// NormalizedTrade is the uniform internal trade record produced from exactly
// one RawTransaction. Venue and TradeKind start unset and are filled in by
// the classifier; all other fields are immutable after normalization.
type NormalizedTrade struct {
	ID             string          // deterministic hash, see idhash
	TxSignature    string          // originating transaction signature
	EventIndex     int             // index of the swap within the transaction
	Slot           int64           // Solana slot number
	Timestamp      int64           // Unix timestamp in milliseconds
	TokenSymbol    string          // tracked token symbol, e.g. "SOL"
	TokenMint      string          // token mint address
	Side           string          // "buy" | "sell"
	BaseAmount     decimal.Decimal // token units traded
	QuoteAmountUSD decimal.Decimal // USD-equivalent volume, never negative
	Venue          string          // set by classifier, VenueUnknown until then
	TradeKind      string          // set by classifier, TradeKindUnknown until then
	Counterparty   string          // account on the other side of the trade
}

// Trade side constants
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Trade kind constants
const (
	TradeKindUnknown   = ""
	TradeKindAMMSwap   = "amm_swap"
	TradeKindOrderbook = "orderbook"
)
