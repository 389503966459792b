package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-whale-watch/internal/config"
	"solana-whale-watch/internal/detect"
	"solana-whale-watch/internal/dex"
	"solana-whale-watch/internal/domain"
	"solana-whale-watch/internal/execution"
	"solana-whale-watch/internal/ingestion"
	"solana-whale-watch/internal/notify"
	"solana-whale-watch/internal/observability"
	"solana-whale-watch/internal/orchestrator"
	"solana-whale-watch/internal/solana"
	"solana-whale-watch/internal/storage"
	chstore "solana-whale-watch/internal/storage/clickhouse"
	"solana-whale-watch/internal/storage/memory"
	"solana-whale-watch/internal/storage/migrations"
	pgstore "solana-whale-watch/internal/storage/postgres"
	"solana-whale-watch/internal/strategy"
)

func main() {
	watchlistPath := flag.String("watchlist", "", "Path to the YAML watchlist (overrides WATCHLIST_PATH)")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint (overrides SOLANA_RPC_ENDPOINT)")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint; enables streaming ingestion")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string; empty selects in-memory stores")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for snapshot archiving")
	pollInterval := flag.Duration("poll-interval", 0, "Delay between watch cycles")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty uses METRICS_ADDR)")
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	applyFlags(cfg, *watchlistPath, *rpcEndpoint, *wsEndpoint, *postgresDSN, *clickhouseDSN, *pollInterval, *metricsAddr)

	watchlist, err := config.LoadWatchlist(cfg.Watchlist)
	if err != nil {
		logger.Fatalf("Load watchlist: %v", err)
	}
	logger.Printf("Tracking %d tokens, poll interval %s, telegram token %s",
		len(watchlist), cfg.PollInterval, cfg.MaskedTelegramToken())

	if cfg.MetricsAddr != "" {
		go serveMetrics(logger, cfg.MetricsAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go handleSignals(logger, cancel, done)

	err = run(ctx, logger, cfg, watchlist)
	done <- err

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}
	logger.Println("Shutdown complete")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config, watchlist []domain.TokenThresholds) error {
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)

	source, closeSource, err := buildSource(ctx, cfg, rpc)
	if err != nil {
		return err
	}
	defer closeSource()

	stores, closeStores, err := buildStores(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	deps := orchestrator.Deps{
		Source:     source,
		Normalizer: dex.NewNormalizer(watchlist),
		Classifier: dex.NewClassifier(),
		Detector:   detect.NewDetector(watchlist),
		Engine:     strategy.NewEngine(watchlist, cfg.SignalCooldown),
		Router:     buildRouter(cfg),
		Notifier:   buildNotifier(cfg),
		Events:     stores.events,
		Outcomes:   stores.outcomes,
		Cursors:    stores.cursors,
		Snapshots:  stores.snapshots,
	}

	orch := orchestrator.New(deps, orchestrator.WithPollInterval(cfg.PollInterval))
	logger.Println("Watch loop starting")
	return orch.Run(ctx)
}

// buildSource wires the RPC polling source, or the WS streaming source when
// a WebSocket endpoint is configured.
func buildSource(ctx context.Context, cfg *config.Config, rpc *solana.HTTPClient) (ingestion.TransactionSource, func(), error) {
	programs := cfg.Programs
	if len(programs) == 0 {
		programs = []string{dex.RaydiumAMMV4, dex.JupiterV6, dex.PumpFun, dex.OpenbookV2}
	}

	if cfg.WSEndpoint == "" {
		return ingestion.NewRPCSource(rpc, programs), func() {}, nil
	}

	stream, err := solana.OpenLogsStream(ctx, cfg.WSEndpoint, solana.LogsFilter{Mentions: programs}, nil)
	if err != nil {
		return nil, nil, err
	}
	ws := ingestion.NewWSSource(stream.Notifications(), rpc)
	return ws, func() {
		ws.Close()
		stream.Close()
	}, nil
}

// watchStores groups the storage backends the orchestrator consumes.
type watchStores struct {
	events    storage.WhaleEventStore
	outcomes  storage.OutcomeStore
	cursors   storage.CursorStore
	snapshots storage.VolumeSnapshotStore
}

// buildStores selects Postgres-backed stores when a DSN is configured and
// in-memory stores otherwise. ClickHouse archiving is optional either way.
func buildStores(ctx context.Context, logger *log.Logger, cfg *config.Config) (*watchStores, func(), error) {
	stores := &watchStores{
		events:   memory.NewWhaleEventStore(),
		outcomes: memory.NewOutcomeStore(),
		cursors:  memory.NewCursorStore(),
	}
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			closeAll()
			return nil, nil, err
		}
		stores.events = pgstore.NewWhaleEventStore(pool)
		stores.outcomes = pgstore.NewOutcomeStore(pool)
		stores.cursors = pgstore.NewCursorStore(pool)
		logger.Println("Using PostgreSQL stores")
	} else {
		logger.Println("Using in-memory stores; whale events will not survive a restart")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { conn.Close() })
		stores.snapshots = chstore.NewVolumeSnapshotStore(conn)
		logger.Println("Archiving volume snapshots to ClickHouse")
	}

	return stores, closeAll, nil
}

func buildRouter(cfg *config.Config) *execution.Router {
	byName := map[string]execution.Venue{
		"jupiter": execution.NewJupiterVenue(),
		"raydium": execution.NewRaydiumVenue(),
	}

	var venues []execution.Venue
	for _, name := range cfg.VenueOrder {
		if v, ok := byName[name]; ok {
			venues = append(venues, v)
		} else {
			log.Printf("[watch] unknown venue %q in VENUE_ORDER, skipping", name)
		}
	}
	if len(venues) == 0 {
		venues = []execution.Venue{byName["jupiter"], byName["raydium"]}
	}

	return execution.NewRouter(venues,
		execution.WithVenueTimeout(cfg.VenueTimeout),
		execution.WithMaxAttempts(cfg.MaxVenueAttempts),
	)
}

func buildNotifier(cfg *config.Config) *notify.Notifier {
	if cfg.TelegramToken != "" {
		return notify.NewNotifier(
			notify.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID),
			notify.NewLogSender(),
		)
	}
	return notify.NewNotifier(notify.NewLogSender())
}

func serveMetrics(logger *log.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	logger.Printf("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("Metrics server error: %v", err)
	}
}

// handleSignals cancels on the first signal and forces exit on the second
// or after the graceful window runs out.
func handleSignals(logger *log.Logger, cancel context.CancelFunc, done <-chan error) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	cancel()

	select {
	case sig := <-sigCh:
		logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	case <-time.After(30 * time.Second):
		logger.Println("Graceful shutdown timed out after 30s, forcing exit")
		os.Exit(1)
	case <-done:
	}
}

func applyFlags(cfg *config.Config, watchlist, rpc, ws, pgDSN, chDSN string, poll time.Duration, metrics string) {
	if watchlist != "" {
		cfg.Watchlist = watchlist
	}
	if rpc != "" {
		cfg.RPCEndpoint = rpc
	}
	if ws != "" {
		cfg.WSEndpoint = ws
	}
	if pgDSN != "" {
		cfg.PostgresDSN = pgDSN
	}
	if chDSN != "" {
		cfg.ClickhouseDSN = chDSN
	}
	if poll > 0 {
		cfg.PollInterval = poll
	}
	if metrics != "" {
		cfg.MetricsAddr = metrics
	}
}
