package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/overnight/internal/contracts"
)

// MemoryLedger is an in-memory contracts.Ledger with the same semantics as
// the Postgres implementation: idempotent upsert by key and compare-and-set
// resolve. It backs unit tests and database-less operation.
type MemoryLedger struct {
	mu        sync.RWMutex
	signals   map[contracts.SignalKey]contracts.Signal
	batchDate time.Time
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *MemoryLedger {
	return &MemoryLedger{
		signals: make(map[contracts.SignalKey]contracts.Signal),
	}
}

// Upsert inserts or overwrites the record matching the signal's key.
func (l *MemoryLedger) Upsert(ctx context.Context, s *contracts.Signal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.upsertLocked(s)
	return nil
}

func (l *MemoryLedger) upsertLocked(s *contracts.Signal) {
	cp := *s
	now := time.Now()
	if prev, ok := l.signals[cp.Key()]; ok {
		cp.CreatedAt = prev.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	l.signals[cp.Key()] = cp
}

// UpsertBatch writes all signals and moves the batch marker under one lock,
// so readers never observe a partially replaced batch.
func (l *MemoryLedger) UpsertBatch(ctx context.Context, signals []contracts.Signal, batchDate time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range signals {
		l.upsertLocked(&signals[i])
	}
	l.batchDate = batchDate
	return nil
}

// GetCurrentBatch returns all signals of the latest generated batch.
func (l *MemoryLedger) GetCurrentBatch(ctx context.Context) ([]contracts.Signal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.batchDate.IsZero() {
		return nil, nil
	}
	var batch []contracts.Signal
	for _, s := range l.signals {
		if sameDate(s.SignalDate, l.batchDate) {
			batch = append(batch, s)
		}
	}
	sort.Slice(batch, func(i, j int) bool {
		if batch[i].Probability != batch[j].Probability {
			return batch[i].Probability > batch[j].Probability
		}
		return batch[i].Ticker < batch[j].Ticker
	})
	return batch, nil
}

// GetPendingDue returns PENDING signals with trade_date on or before asOf.
func (l *MemoryLedger) GetPendingDue(ctx context.Context, asOf time.Time) ([]contracts.Signal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var due []contracts.Signal
	for _, s := range l.signals {
		if s.Status == contracts.StatusPending && !s.TradeDate.After(asOf) {
			due = append(due, s)
		}
	}
	sortByDate(due, false)
	return due, nil
}

// AllTerminal returns every resolved signal.
func (l *MemoryLedger) AllTerminal(ctx context.Context) ([]contracts.Signal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var terminal []contracts.Signal
	for _, s := range l.signals {
		if s.Status.Terminal() {
			terminal = append(terminal, s)
		}
	}
	sortByDate(terminal, false)
	return terminal, nil
}

// History returns all signals, newest batch first.
func (l *MemoryLedger) History(ctx context.Context) ([]contracts.Signal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := make([]contracts.Signal, 0, len(l.signals))
	for _, s := range l.signals {
		all = append(all, s)
	}
	sortByDate(all, true)
	return all, nil
}

// Resolve applies the PENDING to terminal transition. The status check and
// the write happen under one lock, matching the SQL compare-and-set.
func (l *MemoryLedger) Resolve(ctx context.Context, key contracts.SignalKey, outcome contracts.Outcome) error {
	if !outcome.Status.Terminal() {
		return fmt.Errorf("resolve %s: status %s is not terminal", key, outcome.Status)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.signals[key]
	if !ok {
		return fmt.Errorf("resolve signal %s: %w", key, contracts.ErrNotFound)
	}
	if s.Status != contracts.StatusPending {
		return fmt.Errorf("resolve signal %s (status %s): %w", key, s.Status, contracts.ErrAlreadyResolved)
	}

	s.Status = outcome.Status
	s.Reason = outcome.Reason
	if outcome.Reason == "" {
		// Force-failed outcomes carry no market data; prices stay nil.
		buy, sell, ret := outcome.BuyPrice, outcome.SellPrice, outcome.ActualReturn
		s.BuyPrice = &buy
		s.SellPrice = &sell
		s.ActualReturn = &ret
	}
	s.UpdatedAt = time.Now()
	l.signals[key] = s
	return nil
}

// BatchDate returns the batch marker, or zero time when no batch exists.
func (l *MemoryLedger) BatchDate(ctx context.Context) (time.Time, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.batchDate, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sortByDate(signals []contracts.Signal, desc bool) {
	sort.Slice(signals, func(i, j int) bool {
		if !signals[i].SignalDate.Equal(signals[j].SignalDate) {
			if desc {
				return signals[i].SignalDate.After(signals[j].SignalDate)
			}
			return signals[i].SignalDate.Before(signals[j].SignalDate)
		}
		return signals[i].Ticker < signals[j].Ticker
	})
}
