package domain

import "github.com/shopspring/decimal"

// TradeSignal is a directional trading decision derived from whale events.
// Consumed exactly once by the execution router; never resubmitted after a
// terminal outcome.
type TradeSignal struct {
	ID          string          // unique signal identifier (uuid)
	TokenSymbol string          // tracked token
	TokenMint   string          // token mint address
	Direction   string          // "buy" | "sell"
	SizeUSD     decimal.Decimal // position size in USD, always positive
	Confidence  float64         // 0..1
	GeneratedAt int64           // Unix ms
}
