package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"solana-whale-watch/internal/domain"
)

func solThresholds() []domain.TokenThresholds {
	return []domain.TokenThresholds{
		{
			Symbol:         "SOL",
			Mint:           "So11111111111111111111111111111111111111112",
			MinUSD:         decimal.NewFromInt(5000),
			MaxUSD:         decimal.NewFromInt(50000),
			Window:         30 * time.Second,
			MaxExposureUSD: decimal.NewFromInt(10000),
		},
	}
}

func whaleEvent(volume, trigger int64, severity string) *domain.WhaleEvent {
	return &domain.WhaleEvent{
		TokenSymbol: "SOL",
		Trigger: domain.NormalizedTrade{
			TokenSymbol:    "SOL",
			Side:           domain.SideBuy,
			QuoteAmountUSD: decimal.NewFromInt(trigger),
		},
		WindowVolume: decimal.NewFromInt(volume),
		WindowCount:  3,
		Severity:     severity,
	}
}

func TestEvaluate_EmitsSignal(t *testing.T) {
	e := NewEngine(solThresholds(), 0)
	now := time.Now()

	sig := e.Evaluate(whaleEvent(60000, 6000, domain.SeverityNormal), now)
	if sig == nil {
		t.Fatal("Expected a signal")
	}
	if sig.Direction != domain.SideBuy {
		t.Errorf("Expected mirrored buy, got %s", sig.Direction)
	}
	// 10% of $60k window volume at zero exposure.
	if !sig.SizeUSD.Equal(decimal.NewFromInt(6000)) {
		t.Errorf("Expected size 6000, got %s", sig.SizeUSD)
	}
	if sig.Confidence != 0.7 {
		t.Errorf("Expected confidence 0.7, got %v", sig.Confidence)
	}
	if sig.ID == "" {
		t.Error("Signal must carry an ID")
	}
	if sig.GeneratedAt != now.UnixMilli() {
		t.Error("GeneratedAt must reflect evaluation time")
	}
	if !e.Exposure("SOL").Equal(sig.SizeUSD) {
		t.Errorf("Exposure not incremented: %s", e.Exposure("SOL"))
	}
}

func TestEvaluate_ExposureClamp(t *testing.T) {
	e := NewEngine(solThresholds(), 0)
	now := time.Now()

	// First signal fills exposure to $9000.
	sig := e.Evaluate(whaleEvent(90000, 6000, domain.SeverityNormal), now)
	if sig == nil || !sig.SizeUSD.Equal(decimal.NewFromInt(9000)) {
		t.Fatalf("Expected first signal of 9000, got %+v", sig)
	}

	// Desired size computes to $2000 but only $1000 headroom remains.
	sig = e.Evaluate(whaleEvent(200000, 6000, domain.SeverityNormal), now.Add(time.Second))
	if sig == nil {
		t.Fatal("Expected clamped signal")
	}
	if !sig.SizeUSD.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected clamp to 1000, got %s", sig.SizeUSD)
	}
	if !e.Exposure("SOL").Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Exposure must equal max after clamp, got %s", e.Exposure("SOL"))
	}

	// Zero headroom left: no signal.
	if sig := e.Evaluate(whaleEvent(200000, 6000, domain.SeverityNormal), now.Add(2*time.Second)); sig != nil {
		t.Errorf("Expected nil at full exposure, got size %s", sig.SizeUSD)
	}
}

func TestEvaluate_SeverityScalesSize(t *testing.T) {
	e := NewEngine(solThresholds(), 0)
	now := time.Now()

	sig := e.Evaluate(whaleEvent(20000, 6000, domain.SeverityExtreme), now)
	if sig == nil {
		t.Fatal("Expected a signal")
	}
	// 25% of $20k at zero exposure.
	if !sig.SizeUSD.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("Expected size 5000 at extreme severity, got %s", sig.SizeUSD)
	}
}

func TestEvaluate_CooldownSuppresses(t *testing.T) {
	e := NewEngine(solThresholds(), 5*time.Minute)
	now := time.Now()

	if sig := e.Evaluate(whaleEvent(60000, 6000, domain.SeverityNormal), now); sig == nil {
		t.Fatal("Expected first signal")
	}
	if sig := e.Evaluate(whaleEvent(60000, 6000, domain.SeverityExtreme), now.Add(time.Minute)); sig != nil {
		t.Error("Cooldown must suppress regardless of severity")
	}
	if sig := e.Evaluate(whaleEvent(60000, 6000, domain.SeverityNormal), now.Add(6*time.Minute)); sig == nil {
		t.Error("Expected signal after cooldown expiry")
	}
}

func TestRelease_RevertsExposure(t *testing.T) {
	e := NewEngine(solThresholds(), 0)
	now := time.Now()

	sig := e.Evaluate(whaleEvent(60000, 6000, domain.SeverityNormal), now)
	if sig == nil {
		t.Fatal("Expected a signal")
	}

	e.Release("SOL", sig.SizeUSD)
	if !e.Exposure("SOL").Equal(decimal.Zero) {
		t.Errorf("Expected exposure back to zero, got %s", e.Exposure("SOL"))
	}

	// Over-release must not go negative.
	e.Release("SOL", decimal.NewFromInt(500))
	if e.Exposure("SOL").IsNegative() {
		t.Error("Exposure went negative after over-release")
	}
}

func TestEvaluate_MirrorsSellSide(t *testing.T) {
	e := NewEngine(solThresholds(), 0)

	ev := whaleEvent(60000, 6000, domain.SeverityNormal)
	ev.Trigger.Side = domain.SideSell

	sig := e.Evaluate(ev, time.Now())
	if sig == nil {
		t.Fatal("Expected a signal")
	}
	if sig.Direction != domain.SideSell {
		t.Errorf("Expected mirrored sell, got %s", sig.Direction)
	}
}

func TestEvaluate_HighConfidenceTrigger(t *testing.T) {
	e := NewEngine(solThresholds(), 0)

	// Trigger alone is more than 10x the min threshold.
	sig := e.Evaluate(whaleEvent(80000, 60000, domain.SeverityExtreme), time.Now())
	if sig == nil {
		t.Fatal("Expected a signal")
	}
	if sig.Confidence != 0.9 {
		t.Errorf("Expected confidence 0.9, got %v", sig.Confidence)
	}
}

func TestEvaluate_UntrackedToken(t *testing.T) {
	e := NewEngine(solThresholds(), 0)

	ev := whaleEvent(60000, 6000, domain.SeverityNormal)
	ev.TokenSymbol = "WIF"
	if sig := e.Evaluate(ev, time.Now()); sig != nil {
		t.Error("Untracked token produced a signal")
	}
}

// holdPolicy never trades.
type holdPolicy struct{}

func (holdPolicy) Decide(*domain.WhaleEvent, domain.TokenThresholds) (string, float64) {
	return "", 0
}

func TestEvaluate_PolicyHold(t *testing.T) {
	e := NewEngine(solThresholds(), 0, WithPolicy(holdPolicy{}))

	if sig := e.Evaluate(whaleEvent(60000, 6000, domain.SeverityNormal), time.Now()); sig != nil {
		t.Error("Hold policy must suppress the signal")
	}
	if !e.Exposure("SOL").Equal(decimal.Zero) {
		t.Error("Suppressed signal must not mutate exposure")
	}
}
