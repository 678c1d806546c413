// Package control assembles and runs the dispatcher: storage, transport,
// selection engine, batch scheduler and recovery, wired from one config.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/vietddude/dispatcher/internal/batch"
	"github.com/vietddude/dispatcher/internal/core/config"
	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/health"
	"github.com/vietddude/dispatcher/internal/infra/inventory"
	"github.com/vietddude/dispatcher/internal/infra/perfmon"
	redisclient "github.com/vietddude/dispatcher/internal/infra/redis"
	"github.com/vietddude/dispatcher/internal/infra/storage"
	"github.com/vietddude/dispatcher/internal/infra/storage/memory"
	"github.com/vietddude/dispatcher/internal/infra/storage/postgres"
	"github.com/vietddude/dispatcher/internal/infra/transport"
	"github.com/vietddude/dispatcher/internal/notify"
	"github.com/vietddude/dispatcher/internal/recovery"
	"github.com/vietddude/dispatcher/internal/selection/collection"
	"github.com/vietddude/dispatcher/internal/selection/resolver"
	"github.com/vietddude/dispatcher/internal/selection/scope"
)

// Dispatcher is the main application struct that manages the dispatch lifecycle.
type Dispatcher struct {
	cfg          *config.AppConfig
	inventory    inventory.Provider
	processor    *collection.Processor
	scheduler    *batch.Scheduler
	sweeper      *recovery.Sweeper
	gateway      transport.Executor
	healthMon    *health.Monitor
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	journalRepo  storage.JournalRepository
	log          *slog.Logger
}

// NewDispatcher creates a Dispatcher instance with all dependencies initialized.
func NewDispatcher(ctx context.Context, cfg *config.AppConfig) (*Dispatcher, error) {

	// 1. Initialize Storage
	var nodeRepo storage.NodeRepository
	var journalRepo storage.JournalRepository
	var auditRepo storage.AuditRepository
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Run migrations
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		migrationsDir := cfg.Database.MigrationsDir
		if migrationsDir == "" {
			migrationsDir = "migrations"
		}
		if err := goose.Up(db.DB.DB, migrationsDir); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		nodeRepo = postgres.NewNodeRepo(db)
		journalRepo = postgres.NewJournalRepo(db)
		auditRepo = postgres.NewAuditRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		nodeRepo = memory.NewNodeRepo(store)
		journalRepo = memory.NewJournalRepo(store)
		auditRepo = memory.NewAuditRepo(store)
		slog.Info("Using Memory storage")
	}

	// 2. Initialize Redis (optional)
	var redisClient *redisclient.Client
	var escalations *redisclient.EscalationQueue
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, escalation queue disabled", "error", err)
		} else {
			escalations = redisclient.NewEscalationQueue(redisClient, 24*time.Hour)
		}
	}

	// 3. Initialize Inventory
	inv, err := buildInventory(ctx, cfg, nodeRepo)
	if err != nil {
		return nil, err
	}

	// 4. Initialize Selection Engine
	res := resolver.New(resolver.NewHeuristicScorer())
	engine := scope.New(perfmon.NewStatic())
	for _, p := range cfg.Predicates {
		if err := engine.RegisterCELPredicate(p.Name, p.Expression); err != nil {
			return nil, fmt.Errorf("failed to compile predicate %q: %w", p.Name, err)
		}
	}
	processor := collection.New(res, engine)

	// 5. Initialize Transport
	gateway, err := buildGateway(ctx, cfg.Transport)
	if err != nil {
		return nil, err
	}

	// 6. Initialize Recovery
	execute := func(ctx context.Context, node *domain.Node, cmd *domain.Command) error {
		_, err := gateway.Execute(ctx, node, cmd)
		return err
	}

	var sink notify.Sink
	switch {
	case escalations != nil:
		sink = escalations
	case cfg.Notify.WebhookURL != "":
		sink = notify.NewWebhookSink(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
	default:
		sink = notify.NewLogSink()
	}

	templates := templateIndex(cfg.Batches)
	fallback := recovery.NewFallbackRunner(execute, templates, nil, sink)
	handler := recovery.NewHandler(recovery.Config{
		Policy: recovery.RetryPolicy{
			MaxAttempts:       cfg.Recovery.MaxAttempts,
			BaseDelay:         cfg.Recovery.BaseDelay,
			MaxDelay:          cfg.Recovery.MaxDelay,
			BackoffMultiplier: cfg.Recovery.BackoffMultiplier,
			Jitter:            cfg.Recovery.Jitter,
		},
		RetryablePatterns:    cfg.Recovery.RetryablePatterns,
		NonRetryablePatterns: cfg.Recovery.NonRetryablePatterns,
	}, recovery.DefaultProcedures(execute), fallback, nil, journalRepo)

	sweeper := recovery.NewSweeper(journalRepo, inv, handler,
		cfg.Recovery.FallbackStrategies, cfg.Recovery.SweepInterval, cfg.Recovery.SweepMaxRetries)

	// 7. Initialize Batch Scheduler
	collections := make(map[string]domain.Collection, len(cfg.Collections))
	for _, c := range cfg.Collections {
		collections[c.ID] = c
	}
	lookup := func(ctx context.Context, collectionID string) ([]*domain.Node, error) {
		col, ok := collections[collectionID]
		if !ok {
			return nil, fmt.Errorf("unknown collection %q", collectionID)
		}
		snapshot, err := inv.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("inventory snapshot: %w", err)
		}
		cr := processor.Process(ctx, col, filtersFor(col, cfg.Filters), snapshot)
		for _, e := range cr.Errors {
			if e.Critical {
				return nil, fmt.Errorf("collection %s: %s", collectionID, e.Message)
			}
		}
		return cr.Nodes, nil
	}

	executor := batch.NewExecutor(gateway, handler, auditRepo, cfg.Recovery.FallbackStrategies)
	scheduler := batch.NewScheduler(executor, lookup)
	if redisClient != nil {
		scheduler.WithLocker(redisClient)
	}

	// 8. Initialize Health Monitor
	var dbPinger, redisPinger health.Pinger
	if db != nil {
		dbPinger = db
	}
	if redisClient != nil {
		redisPinger = redisClient
	}
	var escCounter health.EscalationCounter
	if escalations != nil {
		escCounter = escalations
	}
	healthMon := health.NewMonitor(nodeRepo, journalRepo, escCounter, dbPinger, redisPinger)
	healthServer := health.NewServer(healthMon, cfg.Server.Port)

	return &Dispatcher{
		cfg:          cfg,
		inventory:    inv,
		processor:    processor,
		scheduler:    scheduler,
		sweeper:      sweeper,
		gateway:      gateway,
		healthMon:    healthMon,
		healthServer: healthServer,
		db:           db,
		redisClient:  redisClient,
		journalRepo:  journalRepo,
		log:          slog.Default(),
	}, nil
}

// buildInventory selects the inventory source from config.
func buildInventory(ctx context.Context, cfg *config.AppConfig, nodeRepo storage.NodeRepository) (inventory.Provider, error) {
	switch cfg.Inventory.Source {
	case "", "database":
		return inventory.NewRepoProvider(nodeRepo), nil
	case "file":
		inv, err := inventory.LoadFile(cfg.Inventory.Path)
		if err != nil {
			return nil, err
		}
		// Seed the repository so CLI tooling sees the same fleet.
		nodes, _ := inv.Snapshot(ctx)
		if err := nodeRepo.SaveBatch(ctx, nodes); err != nil {
			slog.Warn("Failed to seed node repository from file", "error", err)
		}
		return inv, nil
	}
	return nil, fmt.Errorf("unknown inventory source %q", cfg.Inventory.Source)
}

// buildGateway selects the transport from config.
func buildGateway(ctx context.Context, cfg config.TransportConfig) (transport.Executor, error) {
	name := cfg.Name
	if name == "" {
		name = cfg.Kind + "-gateway"
	}
	switch cfg.Kind {
	case "http":
		return transport.NewHTTPGateway(name, cfg.Endpoint, cfg.Timeout), nil
	case "grpc":
		return transport.NewGRPCGateway(ctx, name, cfg.Endpoint)
	case "", "loopback":
		return transport.NewLoopback(), nil
	}
	return nil, fmt.Errorf("unknown transport kind %q", cfg.Kind)
}

// templateIndex builds the alternate-template lookup from every batch's
// templates.
func templateIndex(batches []domain.BatchConfig) recovery.TemplateLookup {
	byID := make(map[string]*domain.CommandTemplate)
	for i := range batches {
		for j := range batches[i].Templates {
			tpl := &batches[i].Templates[j]
			byID[tpl.ID] = tpl
		}
	}
	return func(name string) (*domain.CommandTemplate, bool) {
		tpl, ok := byID[name]
		return tpl, ok
	}
}

// filtersFor merges a collection's inline filters with the globally
// configured ones.
func filtersFor(col domain.Collection, global []domain.ScopeFilter) []domain.ScopeFilter {
	out := append([]domain.ScopeFilter(nil), col.Filters...)
	out = append(out, global...)
	return out
}

// Start starts the dispatcher and all its components.
func (d *Dispatcher) Start(ctx context.Context) error {
	// Start Health Server
	go func() {
		if err := d.healthServer.Start(); err != nil {
			d.log.Error("Health server failed", "error", err)
		}
	}()

	// Start DB Metrics Collector
	if d.db != nil {
		d.db.StartMetricsCollector(ctx)
	}

	// Start Journal Sweeper
	go d.sweeper.Start(ctx)

	// Run the dispatch DAG
	runID := uuid.New().String()
	batches := make([]*domain.BatchConfig, 0, len(d.cfg.Batches))
	for i := range d.cfg.Batches {
		batches = append(batches, &d.cfg.Batches[i])
	}

	if len(batches) == 0 {
		d.log.Info("No batches configured, running idle")
		return nil
	}

	d.log.Info("Starting dispatch run", "run", runID, "batches", len(batches))
	results, err := d.scheduler.Run(ctx, runID, batches)
	if err != nil {
		return fmt.Errorf("dispatch run %s: %w", runID, err)
	}

	for id, res := range results {
		d.log.Info("Batch result",
			"run", runID,
			"batch", id,
			"dispatched", res.Dispatched,
			"succeeded", res.Succeeded,
			"recovered", res.RecoveredRetry+res.RecoveredFallback,
			"unrecovered", res.Unrecovered,
		)
	}
	return nil
}

// Plan resolves a collection without dispatching anything.
func (d *Dispatcher) Plan(ctx context.Context, collectionID string) (*domain.CollectionResult, error) {
	for _, c := range d.cfg.Collections {
		if c.ID != collectionID {
			continue
		}
		snapshot, err := d.inventory.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return d.processor.Process(ctx, c, filtersFor(c, d.cfg.Filters), snapshot), nil
	}
	return nil, fmt.Errorf("unknown collection %q", collectionID)
}

// PendingJournal lists unresolved command failures.
func (d *Dispatcher) PendingJournal(ctx context.Context) ([]*domain.JournalEntry, error) {
	return d.journalRepo.GetPending(ctx)
}

// Stop stops the dispatcher.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.log.Info("Stopping Dispatcher...")

	if err := d.gateway.Close(); err != nil {
		d.log.Warn("Failed to close gateway", "error", err)
	}

	// Close Redis
	if d.redisClient != nil {
		if err := d.redisClient.Close(); err != nil {
			d.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if d.db != nil {
		if err := d.db.Close(); err != nil {
			d.log.Warn("Failed to close database", "error", err)
		}
	}

	// Stop Health Server
	return d.healthServer.Stop(ctx)
}
