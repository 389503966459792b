package detect

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"solana-whale-watch/internal/domain"
)

// Detector maintains a sliding volume window per tracked token and emits a
// WhaleEvent when the window aggregate crosses a configured threshold.
//
// Detection is edge triggered: once the aggregate crosses min_usd an event
// fires and the trigger disarms until the aggregate falls back below min_usd.
// The extreme trigger works the same way against max_usd, so a window that
// climbs through both thresholds produces at most one event per level.
type Detector struct {
	tokens map[string]*tokenState // keyed by symbol
}

// tokenState is the per-token window. Tokens are processed independently, so
// each state carries its own lock and cross-token calls never contend.
type tokenState struct {
	mu sync.Mutex

	thresholds domain.TokenThresholds
	trades     []domain.NormalizedTrade // sorted by Timestamp ascending
	seen       map[string]struct{}      // trade IDs currently in the window

	normalArmed  bool
	extremeArmed bool
}

// NewDetector creates a detector for the given watchlist.
func NewDetector(watchlist []domain.TokenThresholds) *Detector {
	tokens := make(map[string]*tokenState, len(watchlist))
	for _, t := range watchlist {
		tokens[t.Symbol] = &tokenState{
			thresholds:   t,
			seen:         make(map[string]struct{}),
			normalArmed:  true,
			extremeArmed: true,
		}
	}
	return &Detector{tokens: tokens}
}

// Observe feeds one normalized trade into the token's window. Returns a
// WhaleEvent when the trade causes a threshold crossing, nil otherwise.
// Trades for tokens outside the watchlist and duplicate trade IDs are
// ignored.
func (d *Detector) Observe(trade *domain.NormalizedTrade) *domain.WhaleEvent {
	state, ok := d.tokens[trade.TokenSymbol]
	if !ok {
		return nil
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if _, dup := state.seen[trade.ID]; dup {
		return nil
	}
	state.seen[trade.ID] = struct{}{}

	state.insert(*trade)
	state.evict()

	volume, count := state.aggregate()
	return state.evaluate(trade, volume, count)
}

// WindowSnapshot returns the current window aggregate for a token, for
// archival and inspection. The second return is false for untracked tokens.
func (d *Detector) WindowSnapshot(symbol string) (domain.VolumeSnapshot, bool) {
	state, ok := d.tokens[symbol]
	if !ok {
		return domain.VolumeSnapshot{}, false
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	volume, count := state.aggregate()
	snap := domain.VolumeSnapshot{
		TokenSymbol: symbol,
		VolumeUSD:   volume,
		TradeCount:  count,
	}
	if count > 0 {
		snap.Timestamp = state.trades[count-1].Timestamp
	}
	return snap, true
}

// insert places the trade in timestamp order. Out-of-order arrivals within
// the window are legal; the sort key keeps eviction correct.
func (s *tokenState) insert(trade domain.NormalizedTrade) {
	i := sort.Search(len(s.trades), func(i int) bool {
		return s.trades[i].Timestamp > trade.Timestamp
	})
	s.trades = append(s.trades, domain.NormalizedTrade{})
	copy(s.trades[i+1:], s.trades[i:])
	s.trades[i] = trade
}

// evict drops trades older than the window measured from the newest trade.
// Using the newest trade rather than wall clock keeps detection
// deterministic under replay.
func (s *tokenState) evict() {
	if len(s.trades) == 0 {
		return
	}
	cutoff := s.trades[len(s.trades)-1].Timestamp - s.thresholds.Window.Milliseconds()
	i := 0
	for i < len(s.trades) && s.trades[i].Timestamp < cutoff {
		delete(s.seen, s.trades[i].ID)
		i++
	}
	if i > 0 {
		s.trades = append(s.trades[:0], s.trades[i:]...)
	}
}

func (s *tokenState) aggregate() (decimal.Decimal, int) {
	volume := decimal.Zero
	for _, t := range s.trades {
		volume = volume.Add(t.QuoteAmountUSD)
	}
	return volume, len(s.trades)
}

// evaluate applies the edge triggers against the fresh aggregate.
func (s *tokenState) evaluate(trigger *domain.NormalizedTrade, volume decimal.Decimal, count int) *domain.WhaleEvent {
	// Re-arm on the falling edge first so a window that oscillates around a
	// threshold fires once per crossing.
	if volume.LessThan(s.thresholds.MinUSD) {
		s.normalArmed = true
	}
	if volume.LessThanOrEqual(s.thresholds.MaxUSD) {
		s.extremeArmed = true
	}

	if volume.GreaterThan(s.thresholds.MaxUSD) && s.extremeArmed {
		s.extremeArmed = false
		s.normalArmed = false
		return s.newEvent(trigger, volume, count, domain.SeverityExtreme)
	}
	if volume.GreaterThanOrEqual(s.thresholds.MinUSD) && s.normalArmed {
		s.normalArmed = false
		return s.newEvent(trigger, volume, count, domain.SeverityNormal)
	}
	return nil
}

func (s *tokenState) newEvent(trigger *domain.NormalizedTrade, volume decimal.Decimal, count int, severity string) *domain.WhaleEvent {
	return &domain.WhaleEvent{
		TokenSymbol:  s.thresholds.Symbol,
		Trigger:      *trigger,
		WindowVolume: volume,
		WindowCount:  count,
		Severity:     severity,
		ObservedAt:   trigger.Timestamp,
	}
}
