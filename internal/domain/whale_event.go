package domain

import "github.com/shopspring/decimal"

// WhaleEvent is emitted when a token's window aggregate crosses a configured
// threshold. Immutable; consumed once by the strategy engine and not
// persisted beyond a single process run by the core itself.
type WhaleEvent struct {
	TokenSymbol    string          // tracked token
	Trigger        NormalizedTrade // trade that caused the crossing
	WindowVolume   decimal.Decimal // aggregate USD volume over the window
	WindowCount    int             // trades currently in the window
	Severity       string          // "normal" | "extreme"
	ObservedAt     int64           // Unix ms, timestamp of the trigger trade
}

// Severity constants
const (
	SeverityNormal  = "normal"
	SeverityExtreme = "extreme"
)

// VolumeSnapshot is an archival record of a token's window aggregate at the
// moment a whale event fired. Stored for offline analysis only.
type VolumeSnapshot struct {
	TokenSymbol string
	Timestamp   int64 // Unix ms
	VolumeUSD   decimal.Decimal
	TradeCount  int
	Severity    string
}
