package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"solana-whale-watch/internal/dex"
	"solana-whale-watch/internal/domain"
)

// DefaultJupiterBaseURL is the public Jupiter quote API.
const DefaultJupiterBaseURL = "https://quote-api.jup.ag/v6"

// usdcUnit converts USD to native USDC units (6 decimals).
var usdcUnit = decimal.New(1, 6)

// JupiterVenue executes against the Jupiter aggregator quote API. Orders are
// filled at the quoted route price; the realized price therefore carries the
// quote's slippage, not the signal's implied price.
type JupiterVenue struct {
	baseURL string
	client  *http.Client
}

// JupiterOption configures a JupiterVenue.
type JupiterOption func(*JupiterVenue)

// WithJupiterBaseURL overrides the API endpoint.
func WithJupiterBaseURL(u string) JupiterOption {
	return func(v *JupiterVenue) {
		v.baseURL = u
	}
}

// WithJupiterHTTPClient sets a custom http.Client.
func WithJupiterHTTPClient(c *http.Client) JupiterOption {
	return func(v *JupiterVenue) {
		v.client = c
	}
}

// NewJupiterVenue creates the Jupiter execution adapter.
func NewJupiterVenue(opts ...JupiterOption) *JupiterVenue {
	v := &JupiterVenue{
		baseURL: DefaultJupiterBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *JupiterVenue) Name() string {
	return domain.VenueJupiter
}

// jupiterQuote is the subset of the quote response the adapter consumes.
type jupiterQuote struct {
	InAmount  string `json:"inAmount"`
	OutAmount string `json:"outAmount"`
	RoutePlan []struct {
		SwapInfo struct {
			AmmKey string `json:"ammKey"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

// CheckAvailability probes the token with a minimal USDC quote. A quote with
// at least one route means the token is tradable.
func (v *JupiterVenue) CheckAvailability(ctx context.Context, mint string) (bool, error) {
	quote, err := v.quote(ctx, dex.USDC, mint, "1000000", "ExactIn")
	if err != nil {
		if errors.Is(err, ErrVenueRejected) {
			// The venue knows the token and refuses it: not tradable.
			return false, nil
		}
		return false, err
	}
	return len(quote.RoutePlan) > 0, nil
}

// SubmitOrder fills the order at the quoted price. Buys swap USDC into the
// token with an exact input; sells swap the token into an exact USDC output.
func (v *JupiterVenue) SubmitOrder(ctx context.Context, req OrderRequest) (*Fill, error) {
	native := req.SizeUSD.Mul(usdcUnit).Truncate(0).String()

	var quote *jupiterQuote
	var err error
	var tokenAmount string
	if req.Direction == domain.SideBuy {
		quote, err = v.quote(ctx, dex.USDC, req.TokenMint, native, "ExactIn")
		if err == nil {
			tokenAmount = quote.OutAmount
		}
	} else {
		quote, err = v.quote(ctx, req.TokenMint, dex.USDC, native, "ExactOut")
		if err == nil {
			tokenAmount = quote.InAmount
		}
	}
	if err != nil {
		return nil, err
	}

	tokens, err := decimal.NewFromString(tokenAmount)
	if err != nil || !tokens.IsPositive() {
		return nil, fmt.Errorf("%w: empty route", ErrVenueRejected)
	}

	fill := &Fill{Price: req.SizeUSD.Div(tokens)}
	if len(quote.RoutePlan) > 0 {
		fill.VenueRef = quote.RoutePlan[0].SwapInfo.AmmKey
	}
	return fill, nil
}

func (v *JupiterVenue) quote(ctx context.Context, inputMint, outputMint, amount, swapMode string) (*jupiterQuote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", amount)
	q.Set("swapMode", swapMode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: status %d: %s", ErrVenueRejected, resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var quote jupiterQuote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("unmarshal quote: %w", err)
	}
	return &quote, nil
}
