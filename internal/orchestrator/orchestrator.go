// Package orchestrator drives the watch pipeline: fetch, normalize,
// classify, detect, evaluate, execute, report. One cycle per poll tick.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"solana-whale-watch/internal/detect"
	"solana-whale-watch/internal/dex"
	"solana-whale-watch/internal/domain"
	"solana-whale-watch/internal/execution"
	"solana-whale-watch/internal/ingestion"
	"solana-whale-watch/internal/notify"
	"solana-whale-watch/internal/observability"
	"solana-whale-watch/internal/storage"
	"solana-whale-watch/internal/strategy"
)

// DefaultPollInterval is the delay between watch cycles.
const DefaultPollInterval = 10 * time.Second

// Deps bundles everything a running pipeline needs. Snapshots may be nil to
// disable archival; Notifier may be nil to disable alerts.
type Deps struct {
	Source     ingestion.TransactionSource
	Normalizer *dex.Normalizer
	Classifier *dex.Classifier
	Detector   *detect.Detector
	Engine     *strategy.Engine
	Router     *execution.Router
	Notifier   *notify.Notifier

	Events    storage.WhaleEventStore
	Outcomes  storage.OutcomeStore
	Cursors   storage.CursorStore
	Snapshots storage.VolumeSnapshotStore
}

// Orchestrator runs the polling loop over the pipeline stages.
type Orchestrator struct {
	deps     Deps
	interval time.Duration
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPollInterval overrides the delay between cycles.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.interval = d
	}
}

// withClock overrides the time source. Used in tests.
func withClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an Orchestrator from its dependencies.
func New(deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:     deps,
		interval: DefaultPollInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run polls until the context is cancelled. Cancellation is honored at cycle
// boundaries only, so a cycle that has started, including its venue
// submissions, always finishes.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		if err := o.RunCycle(ctx); err != nil {
			log.Printf("[orchestrator] cycle failed: %v", err)
		}

		select {
		case <-ctx.Done():
			log.Printf("[orchestrator] shutting down")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle executes one fetch-to-report pass. The cursor advances only when
// the whole batch has been processed; any earlier failure leaves it where it
// was, and the next cycle refetches (window dedupe absorbs the overlap).
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	started := o.now()

	cursor, err := o.deps.Cursors.Get(ctx)
	if err != nil {
		observability.RecordCycle("failed", o.now().Sub(started).Seconds())
		return fmt.Errorf("load cursor: %w", err)
	}

	batch, next, err := o.deps.Source.Fetch(ctx, cursor)
	if err != nil {
		observability.RecordCycle("failed", o.now().Sub(started).Seconds())
		return fmt.Errorf("fetch batch: %w", err)
	}
	observability.RecordFetched(len(batch))

	groups := o.normalizeBatch(batch)
	events, signals := o.detectAndEvaluate(groups)

	// Venue submissions run on a detached context: a shutdown signal must
	// not abort an order already on the wire.
	o.executeSignals(context.WithoutCancel(ctx), signals)

	o.persistEvents(ctx, events)
	o.notifyEvents(ctx, events)

	if next != cursor {
		if err := o.deps.Cursors.Set(ctx, next); err != nil {
			observability.RecordCycle("failed", o.now().Sub(started).Seconds())
			return fmt.Errorf("save cursor: %w", err)
		}
		observability.DefaultMetrics.IngestCursorAdvances.Inc()
	}

	observability.RecordCycle("ok", o.now().Sub(started).Seconds())
	observability.DefaultMetrics.LastSuccessfulCycle.Set(float64(o.now().Unix()))
	return nil
}

// normalizeBatch converts raw transactions to classified trades grouped by
// token symbol, preserving batch order within each group. Recoverable
// normalize and classify errors skip the transaction and keep the batch.
func (o *Orchestrator) normalizeBatch(batch []*domain.RawTransaction) map[string][]*domain.NormalizedTrade {
	groups := make(map[string][]*domain.NormalizedTrade)

	for _, raw := range batch {
		trade, err := o.deps.Normalizer.Normalize(raw)
		if err != nil {
			reason := "unsupported_format"
			if errors.Is(err, dex.ErrMissingField) {
				reason = "missing_field"
			}
			observability.RecordSkipped(reason)
			log.Printf("[orchestrator] normalize %s: %v, skipping", raw.Signature, err)
			continue
		}

		if err := o.deps.Classifier.Classify(trade, raw); err != nil {
			observability.RecordSkipped("unknown_venue")
			log.Printf("[orchestrator] classify %s: %v, skipping", raw.Signature, err)
			continue
		}

		observability.RecordNormalized()
		groups[trade.TokenSymbol] = append(groups[trade.TokenSymbol], trade)
	}

	return groups
}

// detectAndEvaluate feeds each token's trades through the detector and
// strategy engine. Tokens run in parallel; trades within a token stay
// sequential so window and risk state see them in order. All goroutines are
// joined before anything executes.
func (o *Orchestrator) detectAndEvaluate(groups map[string][]*domain.NormalizedTrade) ([]*domain.WhaleEvent, []*domain.TradeSignal) {
	var (
		mu      sync.Mutex
		events  []*domain.WhaleEvent
		signals []*domain.TradeSignal
	)

	var g errgroup.Group
	for _, trades := range groups {
		trades := trades
		g.Go(func() error {
			for _, trade := range trades {
				event := o.deps.Detector.Observe(trade)
				if event == nil {
					continue
				}
				observability.RecordWhaleEvent(event.TokenSymbol, event.Severity)
				observability.RecordWindowVolume(event.TokenSymbol, event.WindowVolume.InexactFloat64())

				signal := o.deps.Engine.Evaluate(event, o.now())
				if signal == nil {
					observability.RecordSignalSuppressed("risk_gate")
				} else {
					observability.RecordSignalEmitted()
				}

				mu.Lock()
				events = append(events, event)
				if signal != nil {
					signals = append(signals, signal)
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // stage goroutines never fail; errgroup is for the join

	sortEvents(events)
	sortSignals(signals)
	return events, signals
}

// executeSignals routes each signal and compensates reserved exposure when
// the outcome is not a fill. Terminal outcomes are persisted and reported.
func (o *Orchestrator) executeSignals(ctx context.Context, signals []*domain.TradeSignal) {
	for _, signal := range signals {
		started := o.now()
		outcome := o.deps.Router.Execute(ctx, signal)
		observability.RecordExecution(outcome.Status, o.now().Sub(started).Seconds())

		if outcome.Status != domain.StatusFilled {
			o.deps.Engine.Release(signal.TokenSymbol, signal.SizeUSD)
		}
		observability.RecordExposure(signal.TokenSymbol, o.deps.Engine.Exposure(signal.TokenSymbol).InexactFloat64())

		for _, attempt := range outcome.Attempts {
			if attempt.Reason != "" {
				observability.RecordVenueFallback(attempt.Venue, attempt.Reason)
			}
		}

		if err := o.deps.Outcomes.Insert(ctx, outcome); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			log.Printf("[orchestrator] persist outcome %s: %v", signal.ID, err)
		}

		if o.deps.Notifier != nil {
			o.deps.Notifier.Notify(ctx, "Execution "+outcome.Status, formatOutcome(outcome))
		}
	}
}

// persistEvents stores whale events and their window snapshots. A duplicate
// means the event was already stored by an earlier overlapping cycle.
func (o *Orchestrator) persistEvents(ctx context.Context, events []*domain.WhaleEvent) {
	var snapshots []*domain.VolumeSnapshot

	for _, event := range events {
		err := o.deps.Events.Insert(ctx, event)
		if errors.Is(err, storage.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			log.Printf("[orchestrator] persist whale event %s: %v", event.Trigger.ID, err)
			continue
		}
		snapshots = append(snapshots, &domain.VolumeSnapshot{
			TokenSymbol: event.TokenSymbol,
			Timestamp:   event.ObservedAt,
			VolumeUSD:   event.WindowVolume,
			TradeCount:  event.WindowCount,
			Severity:    event.Severity,
		})
	}

	if o.deps.Snapshots == nil || len(snapshots) == 0 {
		return
	}
	if err := o.deps.Snapshots.InsertBulk(ctx, snapshots); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		log.Printf("[orchestrator] archive snapshots: %v", err)
	}
}

func (o *Orchestrator) notifyEvents(ctx context.Context, events []*domain.WhaleEvent) {
	if o.deps.Notifier == nil {
		return
	}
	for _, event := range events {
		o.deps.Notifier.Notify(ctx, "Whale event: "+event.TokenSymbol, formatEvent(event))
	}
}

func formatEvent(e *domain.WhaleEvent) string {
	return fmt.Sprintf("%s %s $%s on %s, window $%s over %d trades (%s)",
		e.Trigger.Side, e.TokenSymbol, e.Trigger.QuoteAmountUSD.StringFixed(2),
		e.Trigger.Venue, e.WindowVolume.StringFixed(2), e.WindowCount, e.Severity)
}

func formatOutcome(out *domain.ExecutionOutcome) string {
	s := out.Signal
	msg := fmt.Sprintf("%s %s $%s", s.Direction, s.TokenSymbol, s.SizeUSD.StringFixed(2))
	switch out.Status {
	case domain.StatusFilled:
		return fmt.Sprintf("%s filled on %s at %s", msg, out.VenueUsed, out.ExecutedPrice)
	default:
		return fmt.Sprintf("%s %s: %s", msg, out.Status, out.Reason)
	}
}

// Deterministic downstream order regardless of fanout scheduling.

func sortEvents(events []*domain.WhaleEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].ObservedAt != events[j].ObservedAt {
			return events[i].ObservedAt < events[j].ObservedAt
		}
		return events[i].TokenSymbol < events[j].TokenSymbol
	})
}

func sortSignals(signals []*domain.TradeSignal) {
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].GeneratedAt != signals[j].GeneratedAt {
			return signals[i].GeneratedAt < signals[j].GeneratedAt
		}
		return signals[i].TokenSymbol < signals[j].TokenSymbol
	})
}
