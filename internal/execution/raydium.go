package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"solana-whale-watch/internal/domain"
)

// DefaultRaydiumBaseURL is the public Raydium pool API.
const DefaultRaydiumBaseURL = "https://api-v3.raydium.io"

// RaydiumVenue executes against Raydium's pool API. Fills price at the
// pool's current mid price; no route aggregation.
type RaydiumVenue struct {
	baseURL string
	client  *http.Client
}

// RaydiumOption configures a RaydiumVenue.
type RaydiumOption func(*RaydiumVenue)

// WithRaydiumBaseURL overrides the API endpoint.
func WithRaydiumBaseURL(u string) RaydiumOption {
	return func(v *RaydiumVenue) {
		v.baseURL = u
	}
}

// WithRaydiumHTTPClient sets a custom http.Client.
func WithRaydiumHTTPClient(c *http.Client) RaydiumOption {
	return func(v *RaydiumVenue) {
		v.client = c
	}
}

// NewRaydiumVenue creates the Raydium execution adapter.
func NewRaydiumVenue(opts ...RaydiumOption) *RaydiumVenue {
	v := &RaydiumVenue{
		baseURL: DefaultRaydiumBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *RaydiumVenue) Name() string {
	return domain.VenueRaydium
}

// raydiumPools is the subset of the pool listing the adapter consumes.
type raydiumPools struct {
	Data struct {
		Data []struct {
			ID    string          `json:"id"`
			Price decimal.Decimal `json:"price"`
			TVL   decimal.Decimal `json:"tvl"`
		} `json:"data"`
	} `json:"data"`
}

// minPoolTVL is the liquidity floor below which a pool does not qualify.
var minPoolTVL = decimal.NewFromInt(1000)

// CheckAvailability reports whether any pool for the mint carries enough
// liquidity to absorb an order.
func (v *RaydiumVenue) CheckAvailability(ctx context.Context, mint string) (bool, error) {
	pools, err := v.pools(ctx, mint)
	if err != nil {
		return false, err
	}
	for _, p := range pools.Data.Data {
		if p.TVL.GreaterThan(minPoolTVL) {
			return true, nil
		}
	}
	return false, nil
}

// SubmitOrder fills the order at the deepest qualifying pool's price.
func (v *RaydiumVenue) SubmitOrder(ctx context.Context, req OrderRequest) (*Fill, error) {
	pools, err := v.pools(ctx, req.TokenMint)
	if err != nil {
		return nil, err
	}

	best := -1
	for i, p := range pools.Data.Data {
		if !p.Price.IsPositive() || !p.TVL.GreaterThan(minPoolTVL) {
			continue
		}
		if best == -1 || p.TVL.GreaterThan(pools.Data.Data[best].TVL) {
			best = i
		}
	}
	if best == -1 {
		return nil, fmt.Errorf("%w: no liquid pool for %s", ErrVenueRejected, req.TokenMint)
	}

	pool := pools.Data.Data[best]
	return &Fill{Price: pool.Price, VenueRef: pool.ID}, nil
}

func (v *RaydiumVenue) pools(ctx context.Context, mint string) (*raydiumPools, error) {
	q := url.Values{}
	q.Set("mint1", mint)
	q.Set("poolType", "all")
	q.Set("poolSortField", "liquidity")
	q.Set("sortType", "desc")
	q.Set("pageSize", "10")
	q.Set("page", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/pools/info/mint?"+q.Encode(), nil)
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

	var pools raydiumPools
	if err := json.Unmarshal(body, &pools); err != nil {
		return nil, fmt.Errorf("unmarshal pools: %w", err)
	}
	return &pools, nil
}
