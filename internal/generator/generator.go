package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/overnight/internal/calendar"
	"github.com/wonny/overnight/internal/contracts"
)

// DefaultThreshold is the minimum model probability a candidate needs to
// become a signal.
const DefaultThreshold = 0.95

// Generator turns model output into dated PENDING signals and swaps the
// ledger's current batch. Repeated runs for the same day are idempotent: the
// batch write is an upsert by (ticker, signal_date).
type Generator struct {
	ledger    contracts.Ledger
	scorer    contracts.ModelScorer
	calendar  *calendar.Calendar
	threshold float64
	log       zerolog.Logger
}

// New creates a generator with the default probability threshold.
func New(ledger contracts.Ledger, scorer contracts.ModelScorer, cal *calendar.Calendar, log zerolog.Logger) *Generator {
	return NewWithThreshold(ledger, scorer, cal, DefaultThreshold, log)
}

// NewWithThreshold creates a generator with a custom threshold.
func NewWithThreshold(ledger contracts.Ledger, scorer contracts.ModelScorer, cal *calendar.Calendar, threshold float64, log zerolog.Logger) *Generator {
	return &Generator{
		ledger:    ledger,
		scorer:    scorer,
		calendar:  cal,
		threshold: threshold,
		log:       log.With().Str("component", "generator").Logger(),
	}
}

// GenerateBatch scores candidates and writes today's batch. On scorer failure
// or an empty candidate list nothing is written, so the prior batch stays
// visible to consumers instead of flashing empty on a transient upstream
// failure.
func (g *Generator) GenerateBatch(ctx context.Context, today time.Time) ([]contracts.Signal, error) {
	today = g.calendar.Normalize(today)

	candidates, err := g.scorer.ScoreCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, contracts.ErrNoCandidates
	}

	tradeDate, err := g.calendar.NextTradingDay(today)
	if err != nil {
		return nil, fmt.Errorf("compute trade date: %w", err)
	}

	signals := make([]contracts.Signal, 0, len(candidates))
	for _, c := range candidates {
		if c.Probability < g.threshold {
			continue
		}
		if c.Ticker == "" {
			g.log.Warn().Float64("probability", c.Probability).Msg("candidate without ticker dropped")
			continue
		}
		signals = append(signals, contracts.Signal{
			Ticker:         c.Ticker,
			Probability:    c.Probability,
			SignalDate:     today,
			TradeDate:      tradeDate,
			Status:         contracts.StatusPending,
			ReferenceClose: c.ReferenceClose,
		})
	}

	if len(signals) == 0 {
		g.log.Info().
			Int("candidates", len(candidates)).
			Float64("threshold", g.threshold).
			Msg("no candidate cleared threshold, batch unchanged")
		return nil, contracts.ErrNoCandidates
	}

	if err := g.ledger.UpsertBatch(ctx, signals, today); err != nil {
		return nil, fmt.Errorf("write batch: %w", err)
	}

	g.log.Info().
		Str("signal_date", today.Format("2006-01-02")).
		Str("trade_date", tradeDate.Format("2006-01-02")).
		Int("candidates", len(candidates)).
		Int("signals", len(signals)).
		Msg("batch generated")

	return signals, nil
}
