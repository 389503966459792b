package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskState is the per-token exposure ledger owned by the strategy engine.
// Invariant: CurrentExposureUSD <= MaxExposureUSD after every mutation;
// the engine rejects signals that would violate it.
type RiskState struct {
	TokenSymbol        string
	CurrentExposureUSD decimal.Decimal
	MaxExposureUSD     decimal.Decimal
	OpenPositionSide   string // "buy" | "sell" | "" when flat
	LastSignalAt       int64  // Unix ms, zero if no signal yet
	Cooldown           time.Duration
}
