package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenThresholds holds the watchlist entry for one tracked token. A token
// without thresholds is never evaluated by the detector.
type TokenThresholds struct {
	Symbol         string
	Mint           string
	MinUSD         decimal.Decimal // window volume that arms a normal event
	MaxUSD         decimal.Decimal // window volume that marks an extreme event
	Window         time.Duration   // sliding window duration
	MaxExposureUSD decimal.Decimal // risk cap for the strategy engine
}
