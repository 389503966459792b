package execution

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"solana-whale-watch/internal/domain"
)

const testVenueMint = "BonkMint111111111111111111111111111111111111"

func TestJupiterSubmitOrder_Buy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("swapMode"); got != "ExactIn" {
			t.Errorf("Expected ExactIn for a buy, got %q", got)
		}
		if got := r.URL.Query().Get("outputMint"); got != testVenueMint {
			t.Errorf("Unexpected outputMint %q", got)
		}
		w.Write([]byte(`{"inAmount":"1000000000","outAmount":"500","routePlan":[{"swapInfo":{"ammKey":"Pool1"}}]}`))
	}))
	defer srv.Close()

	v := NewJupiterVenue(WithJupiterBaseURL(srv.URL))
	fill, err := v.SubmitOrder(context.Background(), OrderRequest{
		TokenMint: testVenueMint,
		Direction: domain.SideBuy,
		SizeUSD:   decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("SubmitOrder failed: %v", err)
	}

	// $1000 for 500 tokens.
	if !fill.Price.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected price 2, got %s", fill.Price)
	}
	if fill.VenueRef != "Pool1" {
		t.Errorf("Expected route ref Pool1, got %q", fill.VenueRef)
	}
}

func TestJupiterSubmitOrder_SellUsesExactOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("swapMode"); got != "ExactOut" {
			t.Errorf("Expected ExactOut for a sell, got %q", got)
		}
		if got := r.URL.Query().Get("inputMint"); got != testVenueMint {
			t.Errorf("Unexpected inputMint %q", got)
		}
		w.Write([]byte(`{"inAmount":"250","outAmount":"500000000","routePlan":[{"swapInfo":{"ammKey":"Pool2"}}]}`))
	}))
	defer srv.Close()

	v := NewJupiterVenue(WithJupiterBaseURL(srv.URL))
	fill, err := v.SubmitOrder(context.Background(), OrderRequest{
		TokenMint: testVenueMint,
		Direction: domain.SideSell,
		SizeUSD:   decimal.NewFromInt(500),
	})
	if err != nil {
		t.Fatalf("SubmitOrder failed: %v", err)
	}
	if !fill.Price.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected price 2, got %s", fill.Price)
	}
}

func TestJupiterCheckAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("outputMint") == testVenueMint {
			w.Write([]byte(`{"inAmount":"1000000","outAmount":"10","routePlan":[{"swapInfo":{"ammKey":"Pool1"}}]}`))
			return
		}
		http.Error(w, `{"error":"TOKEN_NOT_TRADABLE"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	v := NewJupiterVenue(WithJupiterBaseURL(srv.URL))

	ok, err := v.CheckAvailability(context.Background(), testVenueMint)
	if err != nil || !ok {
		t.Errorf("Expected tradable, got ok=%v err=%v", ok, err)
	}

	ok, err = v.CheckAvailability(context.Background(), "UnknownMint")
	if err != nil {
		t.Errorf("Venue rejection must not surface as an error: %v", err)
	}
	if ok {
		t.Error("Expected not tradable")
	}
}

func TestJupiterQuote_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewJupiterVenue(WithJupiterBaseURL(srv.URL))
	_, err := v.SubmitOrder(context.Background(), OrderRequest{
		TokenMint: testVenueMint,
		Direction: domain.SideBuy,
		SizeUSD:   decimal.NewFromInt(100),
	})
	if err == nil {
		t.Fatal("Expected error on 500")
	}
	if errors.Is(err, ErrVenueRejected) {
		t.Error("Server errors must stay transport errors, not rejections")
	}
}

func TestRaydiumSubmitOrder_PicksDeepestPool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("mint1"); got != testVenueMint {
			t.Errorf("Unexpected mint1 %q", got)
		}
		w.Write([]byte(`{"data":{"data":[
			{"id":"Shallow","price":1.95,"tvl":5000},
			{"id":"Deep","price":2.05,"tvl":900000},
			{"id":"Dust","price":9.99,"tvl":10}
		]}}`))
	}))
	defer srv.Close()

	v := NewRaydiumVenue(WithRaydiumBaseURL(srv.URL))
	fill, err := v.SubmitOrder(context.Background(), OrderRequest{
		TokenMint: testVenueMint,
		Direction: domain.SideBuy,
		SizeUSD:   decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("SubmitOrder failed: %v", err)
	}
	if fill.VenueRef != "Deep" {
		t.Errorf("Expected deepest pool, got %q", fill.VenueRef)
	}
	if !fill.Price.Equal(decimal.NewFromFloat(2.05)) {
		t.Errorf("Expected pool price, got %s", fill.Price)
	}
}

func TestRaydiumCheckAvailability_LiquidityFloor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"data":[{"id":"Dust","price":1.0,"tvl":50}]}}`))
	}))
	defer srv.Close()

	v := NewRaydiumVenue(WithRaydiumBaseURL(srv.URL))
	ok, err := v.CheckAvailability(context.Background(), testVenueMint)
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if ok {
		t.Error("Dust pool must not qualify as available")
	}
}

func TestRaydiumSubmitOrder_NoPool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"data":[]}}`))
	}))
	defer srv.Close()

	v := NewRaydiumVenue(WithRaydiumBaseURL(srv.URL))
	_, err := v.SubmitOrder(context.Background(), OrderRequest{
		TokenMint: testVenueMint,
		Direction: domain.SideBuy,
		SizeUSD:   decimal.NewFromInt(100),
	})
	if !errors.Is(err, ErrVenueRejected) {
		t.Errorf("Expected rejection without a pool, got %v", err)
	}
}
