package execution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"solana-whale-watch/internal/domain"
)

// Default configuration values.
const (
	DefaultVenueTimeout    = 10 * time.Second
	DefaultAvailabilityTTL = 1 * time.Minute
)

// Router dispatches trade signals across venues in a configured preference
// order with bounded fallback. One signal instance is routed at most once;
// after a terminal outcome the router never resubmits it.
type Router struct {
	venues          []Venue
	venueTimeout    time.Duration
	maxAttempts     int
	availabilityTTL time.Duration

	cacheMu sync.Mutex
	cache   map[string]availEntry // "venue/mint" -> cached availability
}

type availEntry struct {
	ok      bool
	expires time.Time
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithVenueTimeout bounds each venue call. A hung venue must not stall the
// polling loop.
func WithVenueTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		r.venueTimeout = d
	}
}

// WithMaxAttempts bounds the fallback chain. Defaults to the venue count.
func WithMaxAttempts(n int) RouterOption {
	return func(r *Router) {
		r.maxAttempts = n
	}
}

// WithAvailabilityTTL sets how long availability checks are cached per
// venue and mint.
func WithAvailabilityTTL(d time.Duration) RouterOption {
	return func(r *Router) {
		r.availabilityTTL = d
	}
}

// NewRouter creates a router over the given venues, tried in slice order.
func NewRouter(venues []Venue, opts ...RouterOption) *Router {
	r := &Router{
		venues:          venues,
		venueTimeout:    DefaultVenueTimeout,
		maxAttempts:     len(venues),
		availabilityTTL: DefaultAvailabilityTTL,
		cache:           make(map[string]availEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute routes one signal to the first venue that fills it. Venue-level
// failures (timeout, rejection, transport error) fall back to the next
// ranked venue up to the attempt bound; the outcome carries every attempt
// for telemetry.
func (r *Router) Execute(ctx context.Context, signal *domain.TradeSignal) *domain.ExecutionOutcome {
	outcome := &domain.ExecutionOutcome{Signal: *signal}

	eligible := r.eligibleVenues(ctx, signal.TokenMint)
	if len(eligible) == 0 {
		outcome.Status = domain.StatusRejected
		outcome.Reason = ErrTokenUnavailable.Error()
		outcome.CompletedAt = time.Now().UnixMilli()
		log.Printf("[execution] signal %s rejected: %s", signal.ID, outcome.Reason)
		return outcome
	}

	req := OrderRequest{
		TokenSymbol: signal.TokenSymbol,
		TokenMint:   signal.TokenMint,
		Direction:   signal.Direction,
		SizeUSD:     signal.SizeUSD,
	}

	attempts := len(eligible)
	if attempts > r.maxAttempts {
		attempts = r.maxAttempts
	}

	for _, venue := range eligible[:attempts] {
		fill, err := r.submit(ctx, venue, req)
		if err == nil {
			outcome.Status = domain.StatusFilled
			outcome.VenueUsed = venue.Name()
			outcome.ExecutedPrice = fill.Price
			outcome.Attempts = append(outcome.Attempts, domain.VenueAttempt{Venue: venue.Name()})
			outcome.CompletedAt = time.Now().UnixMilli()
			log.Printf("[execution] signal %s filled on %s at %s", signal.ID, venue.Name(), fill.Price)
			return outcome
		}

		reason := classify(err)
		outcome.VenueUsed = venue.Name()
		outcome.Reason = reason.Error()
		outcome.Attempts = append(outcome.Attempts, domain.VenueAttempt{Venue: venue.Name(), Reason: reason.Error()})
		log.Printf("[execution] signal %s failed on %s: %v, falling back", signal.ID, venue.Name(), reason)

		if ctx.Err() != nil {
			break
		}
	}

	outcome.Status = domain.StatusFailed
	outcome.CompletedAt = time.Now().UnixMilli()
	log.Printf("[execution] signal %s: %v, last reason: %s", signal.ID, ErrAllVenuesExhausted, outcome.Reason)
	return outcome
}

// submit runs one venue call under the per-venue deadline.
func (r *Router) submit(ctx context.Context, venue Venue, req OrderRequest) (*Fill, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.venueTimeout)
	defer cancel()
	return venue.SubmitOrder(callCtx, req)
}

// eligibleVenues filters the ranked venue list by availability, consulting
// the cache first. A check error counts as unavailable for this signal but
// is not cached.
func (r *Router) eligibleVenues(ctx context.Context, mint string) []Venue {
	eligible := make([]Venue, 0, len(r.venues))
	for _, venue := range r.venues {
		ok, cached := r.cachedAvailability(venue.Name(), mint)
		if !cached {
			callCtx, cancel := context.WithTimeout(ctx, r.venueTimeout)
			var err error
			ok, err = venue.CheckAvailability(callCtx, mint)
			cancel()
			if err != nil {
				log.Printf("[execution] availability check failed on %s for %s: %v", venue.Name(), mint, err)
				continue
			}
			r.storeAvailability(venue.Name(), mint, ok)
		}
		if ok {
			eligible = append(eligible, venue)
		}
	}
	return eligible
}

func (r *Router) cachedAvailability(venue, mint string) (ok, cached bool) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	entry, found := r.cache[venue+"/"+mint]
	if !found || time.Now().After(entry.expires) {
		return false, false
	}
	return entry.ok, true
}

func (r *Router) storeAvailability(venue, mint string, ok bool) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache[venue+"/"+mint] = availEntry{ok: ok, expires: time.Now().Add(r.availabilityTTL)}
}

// classify normalizes a venue error into the failure taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrVenueTimeout
	case errors.Is(err, ErrVenueRejected):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrVenueRejected, err)
	}
}
