package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/overnight/internal/calendar"
	"github.com/wonny/overnight/internal/contracts"
	"github.com/wonny/overnight/internal/generator"
	"github.com/wonny/overnight/internal/metrics"
	"github.com/wonny/overnight/internal/stats"
	"github.com/wonny/overnight/internal/tracker"
)

// ReportSink receives the refreshed batch and statistics after AGGREGATING.
// The Redis cache implements it; a nil sink disables publishing.
type ReportSink interface {
	Publish(ctx context.Context, batch []contracts.Signal, report *stats.Report) error
}

// RunConfig configures one cycle invocation.
type RunConfig struct {
	// Date overrides the clock's today; zero means use the clock. Used for
	// replays and tests.
	Date time.Time

	// From restarts a partially failed cycle at a later stage. Empty runs the
	// full cycle. Tracking resolutions from the earlier attempt are not rolled
	// back; they are independently idempotent.
	From contracts.Stage
}

// Orchestrator is the single-entry daily state machine. One invocation is one
// cycle: IDLE -> GATING -> TRACKING -> GENERATING -> AGGREGATING -> IDLE, or
// GATING -> SKIPPED -> IDLE on a non-trading day. Every write path underneath
// is an upsert or compare-and-set, so re-invoking for the same day cannot
// corrupt the ledger.
type Orchestrator struct {
	calendar   *calendar.Calendar
	ledger     contracts.Ledger
	tracker    *tracker.Tracker
	generator  *generator.Generator
	aggregator *stats.Aggregator
	clock      contracts.Clock
	sink       ReportSink
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

// New creates an orchestrator. sink and m may be nil.
func New(
	cal *calendar.Calendar,
	ledger contracts.Ledger,
	trk *tracker.Tracker,
	gen *generator.Generator,
	agg *stats.Aggregator,
	clock contracts.Clock,
	sink ReportSink,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		calendar:   cal,
		ledger:     ledger,
		tracker:    trk,
		generator:  gen,
		aggregator: agg,
		clock:      clock,
		sink:       sink,
		metrics:    m,
		log:        log.With().Str("component", "orchestrator").Logger(),
	}
}

// Run executes one cycle. The returned result always describes how far the
// cycle got, including on error.
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (*contracts.CycleResult, error) {
	start := time.Now()
	today := cfg.Date
	if today.IsZero() {
		today = o.clock.Today()
	}
	today = o.calendar.Normalize(today)

	result := &contracts.CycleResult{
		Date:      today,
		State:     contracts.CycleIdle,
		StartedAt: start,
	}
	defer func() {
		result.Duration = time.Since(start)
		o.metrics.ObserveCycle(string(result.State), result.Success, result.Duration)
	}()

	log := o.log.With().Str("date", today.Format("2006-01-02")).Logger()
	log.Info().Str("from", string(cfg.From)).Msg("cycle started")

	// GATING. A misconfigured calendar aborts before any write; a non-trading
	// day skips with zero ledger writes, so the last trading day's batch stays
	// the current one through the closure.
	result.State = contracts.CycleGating
	if !o.calendar.CoversYear(today.Year()) {
		result.Error = fmt.Sprintf("holiday table does not cover %d", today.Year())
		return result, fmt.Errorf("gating: holiday table does not cover %d: %w",
			today.Year(), contracts.ErrCalendarExhausted)
	}
	result.TradingDay = o.calendar.IsTradingDay(today)
	if !result.TradingDay {
		result.State = contracts.CycleSkipped
		result.Success = true
		log.Info().Str("holiday", o.calendar.HolidayName(today)).Msg("not a trading day, cycle skipped")
		return result, nil
	}

	// TRACKING.
	if stageAtOrBefore(cfg.From, contracts.StageTracking) {
		result.State = contracts.CycleTracking
		trackRes, err := o.tracker.ResolveDue(ctx, today)
		result.Resolved = trackRes.Resolved
		result.ForceFailed = trackRes.ForceFailed
		result.Pending = trackRes.Pending
		if err != nil {
			return o.fail(result, contracts.StageTracking, err)
		}
		o.metrics.AddResolved(trackRes.Resolved, trackRes.ForceFailed)
	}

	// GENERATING. An upstream scorer failure leaves the prior batch visible;
	// the cycle is reported failed so the operator can re-trigger from here.
	if stageAtOrBefore(cfg.From, contracts.StageGenerating) {
		result.State = contracts.CycleGenerating
		signals, err := o.generator.GenerateBatch(ctx, today)
		if err != nil {
			if errors.Is(err, contracts.ErrNoCandidates) {
				log.Warn().Msg("no candidates, prior batch left in place")
			}
			return o.fail(result, contracts.StageGenerating, err)
		}
		result.Generated = len(signals)
		o.metrics.AddGenerated(len(signals))
	}

	// AGGREGATING.
	result.State = contracts.CycleAggregating
	report, err := o.aggregator.Aggregate(ctx, today)
	if err != nil {
		return o.fail(result, contracts.StageAggregating, err)
	}
	if o.sink != nil {
		batch, err := o.ledger.GetCurrentBatch(ctx)
		if err != nil {
			return o.fail(result, contracts.StageAggregating, err)
		}
		if err := o.sink.Publish(ctx, batch, report); err != nil {
			// The ledger already holds the truth; a cache publish failure is
			// logged, not fatal.
			log.Warn().Err(err).Msg("report publish failed")
		}
	}

	result.State = contracts.CycleIdle
	result.Success = true

	log.Info().
		Int("generated", result.Generated).
		Int("resolved", result.Resolved).
		Int("force_failed", result.ForceFailed).
		Int("pending", result.Pending).
		Dur("duration", time.Since(start)).
		Msg("cycle completed")

	return result, nil
}

func (o *Orchestrator) fail(result *contracts.CycleResult, stage contracts.Stage, err error) (*contracts.CycleResult, error) {
	result.FailedStage = stage
	result.Error = err.Error()
	o.log.Error().Err(err).
		Str("date", result.Date.Format("2006-01-02")).
		Str("stage", string(stage)).
		Msg("cycle failed")
	return result, fmt.Errorf("%s: %w", stage, err)
}

// stageAtOrBefore reports whether stage runs when the cycle starts from the
// given override. An empty override runs everything.
func stageAtOrBefore(from, stage contracts.Stage) bool {
	if from == "" {
		return true
	}
	order := map[contracts.Stage]int{
		contracts.StageTracking:    0,
		contracts.StageGenerating:  1,
		contracts.StageAggregating: 2,
	}
	return order[stage] >= order[from]
}
