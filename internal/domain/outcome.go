package domain

import "github.com/shopspring/decimal"

// ExecutionOutcome is the terminal record of routing one trade signal.
// Reported upward and then discarded by the core; persistence is the
// storage layer's concern.
type ExecutionOutcome struct {
	Signal        TradeSignal
	VenueUsed     string          // venue that produced the terminal status
	Status        string          // "filled" | "rejected" | "failed"
	Reason        string          // failure reason, empty on fill
	ExecutedPrice decimal.Decimal // realized fill price, zero unless filled
	Attempts      []VenueAttempt  // every venue tried, in order
	CompletedAt   int64           // Unix ms
}

// VenueAttempt records a single venue submission for telemetry.
type VenueAttempt struct {
	Venue  string
	Reason string // empty on success
}

// Execution status constants
const (
	StatusFilled   = "filled"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)
