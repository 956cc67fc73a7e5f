package contracts

import (
	"context"
	"time"
)

// Ledger is the durable store of all signals ever generated, plus the batch
// date marker pointing at the latest generated batch. Implementations must
// guarantee single-writer semantics per key: Upsert is idempotent by
// (ticker, signal_date), Resolve is a compare-and-set on PENDING status.
type Ledger interface {
	// Upsert inserts or overwrites the record matching the signal's key.
	Upsert(ctx context.Context, signal *Signal) error

	// UpsertBatch writes all signals and moves the batch date marker in one
	// atomic step, so readers observe either the old or the new batch.
	UpsertBatch(ctx context.Context, signals []Signal, batchDate time.Time) error

	// GetCurrentBatch returns all signals whose signal_date equals the batch
	// date marker. Empty when no batch has ever been generated.
	GetCurrentBatch(ctx context.Context) ([]Signal, error)

	// GetPendingDue returns PENDING signals whose trade_date is on or before
	// asOf.
	GetPendingDue(ctx context.Context, asOf time.Time) ([]Signal, error)

	// AllTerminal returns every signal in a terminal state.
	AllTerminal(ctx context.Context) ([]Signal, error)

	// History returns all signals ordered by signal_date descending.
	History(ctx context.Context) ([]Signal, error)

	// Resolve applies the one-way PENDING to terminal transition. Returns
	// ErrAlreadyResolved when the record is not PENDING, ErrNotFound when no
	// record matches the key.
	Resolve(ctx context.Context, key SignalKey, outcome Outcome) error

	// BatchDate returns the current batch date marker, or zero time when no
	// batch exists.
	BatchDate(ctx context.Context) (time.Time, error)
}

// ModelScorer is the external predictive model. It may fail or return an
// empty list; both leave the ledger untouched.
type ModelScorer interface {
	ScoreCandidates(ctx context.Context) ([]Candidate, error)
}

// MarketData returns OHLC-derived quotes for a ticker/date, or fails with
// ErrDataUnavailable for that ticker/date.
type MarketData interface {
	GetOpenClose(ctx context.Context, ticker string, date time.Time) (Quote, error)
}

// Clock supplies dates anchored to the exchange's local timezone. All date
// comparisons in the core go through this, never machine-local time.
type Clock interface {
	// Today returns the current date at midnight in the exchange timezone.
	Today() time.Time
	Now() time.Time
}
