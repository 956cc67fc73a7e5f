package commands

import (
	"context"
	"fmt"

	"github.com/wonny/overnight/internal/calendar"
	"github.com/wonny/overnight/internal/clock"
	"github.com/wonny/overnight/internal/contracts"
	"github.com/wonny/overnight/internal/external/marketdata"
	"github.com/wonny/overnight/internal/external/scorer"
	"github.com/wonny/overnight/internal/generator"
	"github.com/wonny/overnight/internal/ledger"
	"github.com/wonny/overnight/internal/metrics"
	"github.com/wonny/overnight/internal/orchestrator"
	"github.com/wonny/overnight/internal/reportcache"
	"github.com/wonny/overnight/internal/stats"
	"github.com/wonny/overnight/internal/tracker"
	"github.com/wonny/overnight/pkg/config"
	"github.com/wonny/overnight/pkg/database"
	"github.com/wonny/overnight/pkg/logger"
	"github.com/wonny/overnight/pkg/redis"
)

// app bundles the wired engine components shared by the CLI commands.
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	cal        *calendar.Calendar
	clk        contracts.Clock
	ledger     contracts.Ledger
	db         *database.DB
	rds        *redis.Client
	cache      *reportcache.Cache
	metrics    *metrics.Metrics
	aggregator *stats.Aggregator
	orch       *orchestrator.Orchestrator
}

// buildApp wires the full engine from configuration. Without DATABASE_URL it
// falls back to the in-memory ledger, which is enough for local smoke runs
// but loses state on exit.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	table, err := calendar.LoadTable(cfg.Engine.CalendarPath)
	if err != nil {
		return nil, fmt.Errorf("load holiday table: %w", err)
	}
	cal, err := calendar.New(table)
	if err != nil {
		return nil, fmt.Errorf("build calendar: %w", err)
	}

	a := &app{
		cfg: cfg,
		log: log,
		cal: cal,
		clk: clock.NewExchange(cal.Location()),
	}

	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	if cfg.Database.URL != "" {
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		pgLedger := ledger.NewPostgres(db.Pool)
		if err := pgLedger.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		a.ledger = pgLedger
	} else {
		log.Warn("DATABASE_URL not set, using in-memory ledger (state lost on exit)")
		a.ledger = ledger.NewMemory()
	}

	rds, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without cache")
		rds = nil
	}
	a.rds = rds

	var limiter *redis.RateLimiter
	if rds != nil {
		a.cache = reportcache.New(rds)
		limiter = redis.NewRateLimiter(rds, "overnight")
	}

	market := marketdata.New(cfg, log, limiter, a.metrics)
	model := scorer.New(cfg, log)

	zlog := log.Zerolog()
	trk := tracker.New(a.ledger, market, zlog,
		tracker.WithFetchTimeout(cfg.MarketData.Timeout),
		tracker.WithMaxRetryAge(cfg.Engine.MaxRetryAge),
	)
	gen := generator.NewWithThreshold(a.ledger, model, cal, cfg.Engine.Threshold, zlog)
	a.aggregator = stats.NewWithWindow(a.ledger, cfg.Engine.WindowDays, zlog)

	var sink orchestrator.ReportSink
	if a.cache != nil {
		sink = a.cache
	}
	a.orch = orchestrator.New(cal, a.ledger, trk, gen, a.aggregator, a.clk, sink, a.metrics, zlog)

	return a, nil
}

// close releases the app's connections.
func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.rds != nil {
		_ = a.rds.Close()
	}
}
