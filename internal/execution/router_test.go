package execution

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"solana-whale-watch/internal/domain"
)

// fakeVenue is a scriptable in-memory venue.
type fakeVenue struct {
	name      string
	available bool
	availErr  error
	fill      *Fill
	submitErr error
	hang      bool // block until the per-venue deadline fires

	availCalls  int
	submitCalls int
}

func (f *fakeVenue) Name() string { return f.name }

func (f *fakeVenue) CheckAvailability(ctx context.Context, mint string) (bool, error) {
	f.availCalls++
	return f.available, f.availErr
}

func (f *fakeVenue) SubmitOrder(ctx context.Context, req OrderRequest) (*Fill, error) {
	f.submitCalls++
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.fill, f.submitErr
}

func testSignal() *domain.TradeSignal {
	return &domain.TradeSignal{
		ID:          "sig-1",
		TokenSymbol: "SOL",
		TokenMint:   "So11111111111111111111111111111111111111112",
		Direction:   domain.SideBuy,
		SizeUSD:     decimal.NewFromInt(1000),
		Confidence:  0.7,
		GeneratedAt: time.Now().UnixMilli(),
	}
}

func TestExecute_FillsOnFirstVenue(t *testing.T) {
	price := decimal.NewFromFloat(150.5)
	first := &fakeVenue{name: "jupiter", available: true, fill: &Fill{Price: price}}
	second := &fakeVenue{name: "raydium", available: true, fill: &Fill{Price: decimal.NewFromInt(1)}}

	r := NewRouter([]Venue{first, second})
	outcome := r.Execute(context.Background(), testSignal())

	if outcome.Status != domain.StatusFilled {
		t.Fatalf("Expected filled, got %s (%s)", outcome.Status, outcome.Reason)
	}
	if outcome.VenueUsed != "jupiter" {
		t.Errorf("Expected jupiter, got %s", outcome.VenueUsed)
	}
	if !outcome.ExecutedPrice.Equal(price) {
		t.Errorf("Expected price %s, got %s", price, outcome.ExecutedPrice)
	}
	if second.submitCalls != 0 {
		t.Error("Fallback venue must not be called after a fill")
	}
	if len(outcome.Attempts) != 1 || outcome.Attempts[0].Reason != "" {
		t.Errorf("Expected one clean attempt, got %+v", outcome.Attempts)
	}
}

func TestExecute_TimeoutFallback(t *testing.T) {
	// First two venues hang past the deadline; the third fills. The outcome
	// must carry exactly two timeout attempts.
	first := &fakeVenue{name: "jupiter", available: true, hang: true}
	second := &fakeVenue{name: "raydium", available: true, hang: true}
	third := &fakeVenue{name: "pumpfun", available: true, fill: &Fill{Price: decimal.NewFromInt(2)}}

	r := NewRouter([]Venue{first, second, third}, WithVenueTimeout(20*time.Millisecond))
	outcome := r.Execute(context.Background(), testSignal())

	if outcome.Status != domain.StatusFilled {
		t.Fatalf("Expected filled, got %s (%s)", outcome.Status, outcome.Reason)
	}
	if outcome.VenueUsed != "pumpfun" {
		t.Errorf("Expected third venue, got %s", outcome.VenueUsed)
	}
	if len(outcome.Attempts) != 3 {
		t.Fatalf("Expected 3 attempts, got %d", len(outcome.Attempts))
	}
	for i := 0; i < 2; i++ {
		if outcome.Attempts[i].Reason != ErrVenueTimeout.Error() {
			t.Errorf("Attempt %d: expected timeout reason, got %q", i, outcome.Attempts[i].Reason)
		}
	}
	if outcome.Attempts[2].Reason != "" {
		t.Errorf("Fill attempt must carry no reason, got %q", outcome.Attempts[2].Reason)
	}
}

func TestExecute_AllVenuesExhausted(t *testing.T) {
	rejection := errors.New("slippage exceeded")
	first := &fakeVenue{name: "jupiter", available: true, submitErr: rejection}
	second := &fakeVenue{name: "raydium", available: true, hang: true}

	r := NewRouter([]Venue{first, second}, WithVenueTimeout(20*time.Millisecond))
	outcome := r.Execute(context.Background(), testSignal())

	if outcome.Status != domain.StatusFailed {
		t.Fatalf("Expected failed, got %s", outcome.Status)
	}
	if outcome.VenueUsed != "raydium" {
		t.Errorf("VenueUsed must be the last attempted, got %s", outcome.VenueUsed)
	}
	if outcome.Reason != ErrVenueTimeout.Error() {
		t.Errorf("Reason must be the last failure, got %q", outcome.Reason)
	}
	if len(outcome.Attempts) != 2 {
		t.Errorf("Expected 2 attempts, got %d", len(outcome.Attempts))
	}
}

func TestExecute_TokenUnavailable(t *testing.T) {
	first := &fakeVenue{name: "jupiter", available: false}
	second := &fakeVenue{name: "raydium", available: false}

	r := NewRouter([]Venue{first, second})
	outcome := r.Execute(context.Background(), testSignal())

	if outcome.Status != domain.StatusRejected {
		t.Fatalf("Expected rejected, got %s", outcome.Status)
	}
	if outcome.Reason != ErrTokenUnavailable.Error() {
		t.Errorf("Expected token unavailable reason, got %q", outcome.Reason)
	}
	if first.submitCalls != 0 || second.submitCalls != 0 {
		t.Error("No order may be submitted without an eligible venue")
	}
}

func TestExecute_AvailabilityErrorSkipsVenue(t *testing.T) {
	first := &fakeVenue{name: "jupiter", availErr: errors.New("api down")}
	second := &fakeVenue{name: "raydium", available: true, fill: &Fill{Price: decimal.NewFromInt(3)}}

	r := NewRouter([]Venue{first, second})
	outcome := r.Execute(context.Background(), testSignal())

	if outcome.Status != domain.StatusFilled {
		t.Fatalf("Expected fill on healthy venue, got %s", outcome.Status)
	}
	if outcome.VenueUsed != "raydium" {
		t.Errorf("Expected raydium, got %s", outcome.VenueUsed)
	}
}

func TestExecute_AvailabilityCached(t *testing.T) {
	venue := &fakeVenue{name: "jupiter", available: true, fill: &Fill{Price: decimal.NewFromInt(1)}}

	r := NewRouter([]Venue{venue}, WithAvailabilityTTL(time.Minute))
	r.Execute(context.Background(), testSignal())
	r.Execute(context.Background(), testSignal())

	if venue.availCalls != 1 {
		t.Errorf("Expected one availability check with warm cache, got %d", venue.availCalls)
	}
	if venue.submitCalls != 2 {
		t.Errorf("Expected two submissions, got %d", venue.submitCalls)
	}
}

func TestExecute_MaxAttemptsBoundsFallback(t *testing.T) {
	rejection := errors.New("rejected")
	first := &fakeVenue{name: "jupiter", available: true, submitErr: rejection}
	second := &fakeVenue{name: "raydium", available: true, submitErr: rejection}
	third := &fakeVenue{name: "pumpfun", available: true, fill: &Fill{Price: decimal.NewFromInt(1)}}

	r := NewRouter([]Venue{first, second, third}, WithMaxAttempts(2))
	outcome := r.Execute(context.Background(), testSignal())

	if outcome.Status != domain.StatusFailed {
		t.Fatalf("Expected failed within attempt bound, got %s", outcome.Status)
	}
	if third.submitCalls != 0 {
		t.Error("Third venue must not be tried past the attempt bound")
	}
}

func TestExecute_RejectionReasonNormalized(t *testing.T) {
	venue := &fakeVenue{name: "jupiter", available: true, submitErr: errors.New("weird venue error")}

	r := NewRouter([]Venue{venue})
	outcome := r.Execute(context.Background(), testSignal())

	if outcome.Status != domain.StatusFailed {
		t.Fatalf("Expected failed, got %s", outcome.Status)
	}
	if !strings.HasPrefix(outcome.Reason, ErrVenueRejected.Error()) {
		t.Errorf("Reason must be normalized to the rejection taxonomy, got %q", outcome.Reason)
	}
}
