package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/overnight/internal/contracts"
)

// Thresholds classify a resolved signal by its percent return.
type Thresholds struct {
	// Success is the minimum return for SUCCESS.
	Success float64
	// Partial is the minimum return for PARTIAL; anything below is FAILED.
	Partial float64
}

// DefaultThresholds matches the product's classification policy.
func DefaultThresholds() Thresholds {
	return Thresholds{Success: 50, Partial: 0}
}

// Classify maps a percent return to a terminal status.
func (t Thresholds) Classify(actualReturn float64) contracts.Status {
	switch {
	case actualReturn >= t.Success:
		return contracts.StatusSuccess
	case actualReturn >= t.Partial:
		return contracts.StatusPartial
	default:
		return contracts.StatusFailed
	}
}

// Result summarizes one tracker pass over the due signals.
type Result struct {
	Due         int `json:"due"`
	Resolved    int `json:"resolved"`
	ForceFailed int `json:"force_failed"`
	Pending     int `json:"pending"` // left unresolved, retried next cycle
}

// Tracker resolves due PENDING signals into terminal outcomes using market
// data. A missing quote never aborts the batch: the affected signal stays
// PENDING and is retried on every subsequent run until the retry age is
// exhausted, at which point it is force-resolved FAILED with a reason tag.
type Tracker struct {
	ledger       contracts.Ledger
	market       contracts.MarketData
	thresholds   Thresholds
	fetchTimeout time.Duration
	maxRetryAge  time.Duration
	log          zerolog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithThresholds overrides the classification thresholds.
func WithThresholds(t Thresholds) Option {
	return func(tr *Tracker) { tr.thresholds = t }
}

// WithFetchTimeout bounds each market data call.
func WithFetchTimeout(d time.Duration) Option {
	return func(tr *Tracker) { tr.fetchTimeout = d }
}

// WithMaxRetryAge sets how long past its trade date a signal may stay
// PENDING before it is force-failed.
func WithMaxRetryAge(d time.Duration) Option {
	return func(tr *Tracker) { tr.maxRetryAge = d }
}

// New creates a tracker.
func New(ledger contracts.Ledger, market contracts.MarketData, log zerolog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		ledger:       ledger,
		market:       market,
		thresholds:   DefaultThresholds(),
		fetchTimeout: 10 * time.Second,
		maxRetryAge:  5 * 24 * time.Hour,
		log:          log.With().Str("component", "tracker").Logger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ResolveDue processes every signal whose trade_date has arrived as of today.
// It returns the pass summary; per-signal failures are counted, not
// propagated.
func (t *Tracker) ResolveDue(ctx context.Context, today time.Time) (Result, error) {
	due, err := t.ledger.GetPendingDue(ctx, today)
	if err != nil {
		return Result{}, fmt.Errorf("load due signals: %w", err)
	}

	result := Result{Due: len(due)}
	for i := range due {
		select {
		case <-ctx.Done():
			result.Pending = result.Due - result.Resolved - result.ForceFailed
			return result, ctx.Err()
		default:
		}

		switch t.resolveOne(ctx, &due[i], today) {
		case resolvedOutcome:
			result.Resolved++
		case resolvedForced:
			result.ForceFailed++
		case leftPending:
			result.Pending++
		}
	}

	t.log.Info().
		Str("as_of", today.Format("2006-01-02")).
		Int("due", result.Due).
		Int("resolved", result.Resolved).
		Int("force_failed", result.ForceFailed).
		Int("pending", result.Pending).
		Msg("tracking pass completed")

	return result, nil
}

type resolution int

const (
	leftPending resolution = iota
	resolvedOutcome
	resolvedForced
)

func (t *Tracker) resolveOne(ctx context.Context, s *contracts.Signal, today time.Time) resolution {
	fetchCtx, cancel := context.WithTimeout(ctx, t.fetchTimeout)
	quote, err := t.market.GetOpenClose(fetchCtx, s.Ticker, s.TradeDate)
	cancel()

	if err != nil {
		// Timeouts are treated identically to a missing quote.
		if t.retryExhausted(s, today) {
			return t.forceFail(ctx, s)
		}
		t.log.Warn().Err(err).
			Str("ticker", s.Ticker).
			Str("trade_date", s.TradeDate.Format("2006-01-02")).
			Msg("quote unavailable, signal stays pending")
		return leftPending
	}

	if quote.Open <= 0 {
		t.log.Warn().
			Str("ticker", s.Ticker).
			Float64("open", quote.Open).
			Msg("non-positive open price, signal stays pending")
		if t.retryExhausted(s, today) {
			return t.forceFail(ctx, s)
		}
		return leftPending
	}

	actualReturn := (quote.Close - quote.Open) / quote.Open * 100
	outcome := contracts.Outcome{
		Status:       t.thresholds.Classify(actualReturn),
		BuyPrice:     quote.Open,
		SellPrice:    quote.Close,
		ActualReturn: actualReturn,
	}

	if err := t.ledger.Resolve(ctx, s.Key(), outcome); err != nil {
		if errors.Is(err, contracts.ErrAlreadyResolved) {
			// Lost a race with a concurrent run; the outcome is already in.
			return resolvedOutcome
		}
		t.log.Error().Err(err).Str("key", s.Key().String()).Msg("resolve failed")
		return leftPending
	}

	t.log.Debug().
		Str("ticker", s.Ticker).
		Str("trade_date", s.TradeDate.Format("2006-01-02")).
		Float64("buy", quote.Open).
		Float64("sell", quote.Close).
		Float64("return", actualReturn).
		Str("status", string(outcome.Status)).
		Msg("signal resolved")

	return resolvedOutcome
}

// retryExhausted reports whether the signal has been stuck PENDING past the
// retry window.
func (t *Tracker) retryExhausted(s *contracts.Signal, today time.Time) bool {
	return today.Sub(s.TradeDate) > t.maxRetryAge
}

// forceFail marks a stale unresolvable signal FAILED with a reason tag so it
// does not sit PENDING forever and so aggregation can filter it out.
func (t *Tracker) forceFail(ctx context.Context, s *contracts.Signal) resolution {
	outcome := contracts.Outcome{
		Status: contracts.StatusFailed,
		Reason: contracts.ReasonDataUnavailable,
	}
	if err := t.ledger.Resolve(ctx, s.Key(), outcome); err != nil {
		if errors.Is(err, contracts.ErrAlreadyResolved) {
			return resolvedOutcome
		}
		t.log.Error().Err(err).Str("key", s.Key().String()).Msg("force-fail failed")
		return leftPending
	}

	t.log.Warn().
		Str("ticker", s.Ticker).
		Str("trade_date", s.TradeDate.Format("2006-01-02")).
		Msg("retry window exhausted, signal force-failed")

	return resolvedForced
}
