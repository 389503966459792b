package strategy

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"solana-whale-watch/internal/domain"
)

// Sizing fractions per event severity.
var (
	sizeFractionNormal  = decimal.NewFromFloat(0.10)
	sizeFractionExtreme = decimal.NewFromFloat(0.25)
)

// SignalPolicy decides signal direction and confidence for a whale event.
// The risk gate around it is fixed; only the decision function is pluggable.
type SignalPolicy interface {
	Decide(event *domain.WhaleEvent, thresholds domain.TokenThresholds) (direction string, confidence float64)
}

// MirrorPolicy mirrors the whale: a large buy begets a buy signal, a large
// sell a sell signal. Confidence is higher when the trigger trade alone
// dwarfs the detection threshold.
type MirrorPolicy struct{}

func (MirrorPolicy) Decide(event *domain.WhaleEvent, thresholds domain.TokenThresholds) (string, float64) {
	confidence := 0.7
	if event.Trigger.QuoteAmountUSD.GreaterThan(thresholds.MinUSD.Mul(decimal.NewFromInt(10))) {
		confidence = 0.9
	}
	return event.Trigger.Side, confidence
}

// Engine turns whale events into risk-gated trade signals. It owns one
// RiskState per tracked token; exposure mutations happen under the token's
// lock so concurrent evaluations for different tokens never contend and
// same-token callers cannot race the exposure invariant.
type Engine struct {
	tokens map[string]*riskSlot
	policy SignalPolicy
}

type riskSlot struct {
	mu         sync.Mutex
	state      domain.RiskState
	thresholds domain.TokenThresholds
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPolicy replaces the default MirrorPolicy.
func WithPolicy(p SignalPolicy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// NewEngine creates an engine for the given watchlist. The cooldown applies
// uniformly to every token.
func NewEngine(watchlist []domain.TokenThresholds, cooldown time.Duration, opts ...EngineOption) *Engine {
	e := &Engine{
		tokens: make(map[string]*riskSlot, len(watchlist)),
		policy: MirrorPolicy{},
	}
	for _, t := range watchlist {
		e.tokens[t.Symbol] = &riskSlot{
			state: domain.RiskState{
				TokenSymbol:    t.Symbol,
				MaxExposureUSD: t.MaxExposureUSD,
				Cooldown:       cooldown,
			},
			thresholds: t,
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate consumes one whale event and returns a trade signal, or nil when
// the risk gate suppresses it (cooldown active, exposure exhausted, or the
// token is untracked).
//
// On emit the token's exposure is provisionally increased by the signal size
// and the cooldown clock restarts. The caller must Release the size if
// execution later fails.
func (e *Engine) Evaluate(event *domain.WhaleEvent, now time.Time) *domain.TradeSignal {
	slot, ok := e.tokens[event.TokenSymbol]
	if !ok {
		return nil
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	state := &slot.state
	if state.LastSignalAt != 0 && now.UnixMilli()-state.LastSignalAt < state.Cooldown.Milliseconds() {
		return nil
	}

	size := e.size(slot, event)
	if !size.IsPositive() {
		return nil
	}

	direction, confidence := e.policy.Decide(event, slot.thresholds)
	if direction != domain.SideBuy && direction != domain.SideSell {
		return nil
	}

	state.CurrentExposureUSD = state.CurrentExposureUSD.Add(size)
	state.LastSignalAt = now.UnixMilli()
	state.OpenPositionSide = direction

	return &domain.TradeSignal{
		ID:          uuid.NewString(),
		TokenSymbol: event.TokenSymbol,
		TokenMint:   slot.thresholds.Mint,
		Direction:   direction,
		SizeUSD:     size,
		Confidence:  confidence,
		GeneratedAt: now.UnixMilli(),
	}
}

// size computes the position size: proportional to window volume and event
// severity, scaled down as exposure fills, and clamped to the remaining
// headroom so CurrentExposureUSD never exceeds MaxExposureUSD.
func (e *Engine) size(slot *riskSlot, event *domain.WhaleEvent) decimal.Decimal {
	state := &slot.state
	headroom := state.MaxExposureUSD.Sub(state.CurrentExposureUSD)
	if !headroom.IsPositive() {
		return decimal.Zero
	}

	fraction := sizeFractionNormal
	if event.Severity == domain.SeverityExtreme {
		fraction = sizeFractionExtreme
	}

	// 1 - current/max, in (0, 1].
	utilization := decimal.NewFromInt(1).Sub(state.CurrentExposureUSD.Div(state.MaxExposureUSD))

	desired := event.WindowVolume.Mul(fraction).Mul(utilization)
	if desired.GreaterThan(headroom) {
		return headroom
	}
	return desired
}

// Release reverts a provisional exposure increment after a failed execution.
// The orchestrator calls it with the exact emitted signal size.
func (e *Engine) Release(symbol string, size decimal.Decimal) {
	slot, ok := e.tokens[symbol]
	if !ok {
		return
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	slot.state.CurrentExposureUSD = slot.state.CurrentExposureUSD.Sub(size)
	if slot.state.CurrentExposureUSD.IsNegative() {
		slot.state.CurrentExposureUSD = decimal.Zero
	}
	if slot.state.CurrentExposureUSD.IsZero() {
		slot.state.OpenPositionSide = ""
	}
}

// Exposure reports a token's current provisional exposure.
func (e *Engine) Exposure(symbol string) decimal.Decimal {
	slot, ok := e.tokens[symbol]
	if !ok {
		return decimal.Zero
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	return slot.state.CurrentExposureUSD
}
