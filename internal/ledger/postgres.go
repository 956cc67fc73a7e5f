package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/overnight/internal/contracts"
)

// PostgresLedger implements contracts.Ledger on top of pgx. The natural key
// (ticker, signal_date) is the primary key, so regeneration upserts instead
// of duplicating, and Resolve is a compare-and-set on PENDING status.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a ledger backed by a pgx connection pool.
func NewPostgres(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

// Migrate creates the ledger tables when they do not exist yet.
func (l *PostgresLedger) Migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS signals (
			ticker          TEXT NOT NULL,
			signal_date     DATE NOT NULL,
			probability     DOUBLE PRECISION NOT NULL,
			trade_date      DATE NOT NULL,
			status          TEXT NOT NULL DEFAULT 'PENDING',
			reference_close DOUBLE PRECISION NOT NULL,
			buy_price       DOUBLE PRECISION,
			sell_price      DOUBLE PRECISION,
			actual_return   DOUBLE PRECISION,
			reason          TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (ticker, signal_date)
		);
		CREATE INDEX IF NOT EXISTS idx_signals_status_trade_date
			ON signals (status, trade_date);
		CREATE TABLE IF NOT EXISTS batch_marker (
			id         INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			batch_date DATE NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`
	if _, err := l.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}
	return nil
}

const upsertSQL = `
	INSERT INTO signals (
		ticker, signal_date, probability, trade_date, status,
		reference_close, buy_price, sell_price, actual_return, reason,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
	ON CONFLICT (ticker, signal_date) DO UPDATE SET
		probability     = EXCLUDED.probability,
		trade_date      = EXCLUDED.trade_date,
		status          = EXCLUDED.status,
		reference_close = EXCLUDED.reference_close,
		buy_price       = EXCLUDED.buy_price,
		sell_price      = EXCLUDED.sell_price,
		actual_return   = EXCLUDED.actual_return,
		reason          = EXCLUDED.reason,
		updated_at      = now()
`

// Upsert inserts or overwrites the record matching the signal's key.
func (l *PostgresLedger) Upsert(ctx context.Context, s *contracts.Signal) error {
	_, err := l.pool.Exec(ctx, upsertSQL,
		s.Ticker, s.SignalDate, s.Probability, s.TradeDate, string(s.Status),
		s.ReferenceClose, s.BuyPrice, s.SellPrice, s.ActualReturn, string(s.Reason),
	)
	if err != nil {
		return fmt.Errorf("upsert signal %s: %w", s.Key(), err)
	}
	return nil
}

// UpsertBatch writes the batch rows and moves the batch date marker in a
// single transaction. Readers see either the old or the new batch, never a
// half-written mix.
func (l *PostgresLedger) UpsertBatch(ctx context.Context, signals []contracts.Signal, batchDate time.Time) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range signals {
		s := &signals[i]
		if _, err := tx.Exec(ctx, upsertSQL,
			s.Ticker, s.SignalDate, s.Probability, s.TradeDate, string(s.Status),
			s.ReferenceClose, s.BuyPrice, s.SellPrice, s.ActualReturn, string(s.Reason),
		); err != nil {
			return fmt.Errorf("upsert signal %s: %w", s.Key(), err)
		}
	}

	marker := `
		INSERT INTO batch_marker (id, batch_date, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET batch_date = EXCLUDED.batch_date, updated_at = now()
	`
	if _, err := tx.Exec(ctx, marker, batchDate); err != nil {
		return fmt.Errorf("move batch marker: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

const selectCols = `
	ticker, signal_date, probability, trade_date, status,
	reference_close, buy_price, sell_price, actual_return, reason,
	created_at, updated_at
`

// GetCurrentBatch returns the signals of the most recent generated batch.
func (l *PostgresLedger) GetCurrentBatch(ctx context.Context) ([]contracts.Signal, error) {
	query := `
		SELECT ` + selectCols + `
		FROM signals
		WHERE signal_date = (SELECT batch_date FROM batch_marker WHERE id = 1)
		ORDER BY probability DESC, ticker
	`
	return l.querySignals(ctx, query)
}

// GetPendingDue returns PENDING signals whose trade_date is on or before asOf.
func (l *PostgresLedger) GetPendingDue(ctx context.Context, asOf time.Time) ([]contracts.Signal, error) {
	query := `
		SELECT ` + selectCols + `
		FROM signals
		WHERE status = 'PENDING' AND trade_date <= $1
		ORDER BY trade_date, ticker
	`
	return l.querySignals(ctx, query, asOf)
}

// AllTerminal returns every resolved signal.
func (l *PostgresLedger) AllTerminal(ctx context.Context) ([]contracts.Signal, error) {
	query := `
		SELECT ` + selectCols + `
		FROM signals
		WHERE status <> 'PENDING'
		ORDER BY signal_date, ticker
	`
	return l.querySignals(ctx, query)
}

// History returns all signals, newest batch first.
func (l *PostgresLedger) History(ctx context.Context) ([]contracts.Signal, error) {
	query := `
		SELECT ` + selectCols + `
		FROM signals
		ORDER BY signal_date DESC, ticker
	`
	return l.querySignals(ctx, query)
}

// Resolve applies the PENDING to terminal transition with compare-and-set
// semantics: the UPDATE only matches rows still PENDING, so a concurrent or
// repeated resolve cannot overwrite a terminal outcome.
func (l *PostgresLedger) Resolve(ctx context.Context, key contracts.SignalKey, outcome contracts.Outcome) error {
	if !outcome.Status.Terminal() {
		return fmt.Errorf("resolve %s: status %s is not terminal", key, outcome.Status)
	}

	// Force-failed outcomes carry no market data; prices stay NULL.
	var buy, sell, ret *float64
	if outcome.Reason == "" {
		buy, sell, ret = &outcome.BuyPrice, &outcome.SellPrice, &outcome.ActualReturn
	}

	query := `
		UPDATE signals
		SET status = $3, buy_price = $4, sell_price = $5, actual_return = $6,
		    reason = $7, updated_at = now()
		WHERE ticker = $1 AND signal_date = $2 AND status = 'PENDING'
	`
	tag, err := l.pool.Exec(ctx, query,
		key.Ticker, key.SignalDate, string(outcome.Status),
		buy, sell, ret, string(outcome.Reason),
	)
	if err != nil {
		return fmt.Errorf("resolve signal %s: %w", key, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// No row transitioned; distinguish missing from already resolved.
	var status string
	err = l.pool.QueryRow(ctx,
		`SELECT status FROM signals WHERE ticker = $1 AND signal_date = $2`,
		key.Ticker, key.SignalDate,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("resolve signal %s: %w", key, contracts.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("resolve signal %s: %w", key, err)
	}
	return fmt.Errorf("resolve signal %s (status %s): %w", key, status, contracts.ErrAlreadyResolved)
}

// BatchDate returns the batch date marker, or zero time when unset.
func (l *PostgresLedger) BatchDate(ctx context.Context) (time.Time, error) {
	var d time.Time
	err := l.pool.QueryRow(ctx, `SELECT batch_date FROM batch_marker WHERE id = 1`).Scan(&d)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read batch marker: %w", err)
	}
	return d, nil
}

func (l *PostgresLedger) querySignals(ctx context.Context, query string, args ...any) ([]contracts.Signal, error) {
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var signals []contracts.Signal
	for rows.Next() {
		var s contracts.Signal
		var status, reason string
		err := rows.Scan(
			&s.Ticker, &s.SignalDate, &s.Probability, &s.TradeDate, &status,
			&s.ReferenceClose, &s.BuyPrice, &s.SellPrice, &s.ActualReturn, &reason,
			&s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		s.Status = contracts.Status(status)
		s.Reason = contracts.Reason(reason)
		signals = append(signals, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}
	return signals, nil
}
