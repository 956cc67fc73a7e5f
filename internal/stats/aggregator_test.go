package stats

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/overnight/internal/contracts"
	"github.com/wonny/overnight/internal/ledger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedResolved(t *testing.T, l *ledger.MemoryLedger, ticker string, signalDate time.Time, ret float64, status contracts.Status) {
	t.Helper()
	ctx := context.Background()
	s := contracts.Signal{
		Ticker:      ticker,
		Probability: 0.97,
		SignalDate:  signalDate,
		TradeDate:   signalDate.AddDate(0, 0, 1),
		Status:      contracts.StatusPending,
	}
	require.NoError(t, l.Upsert(ctx, &s))
	require.NoError(t, l.Resolve(ctx, s.Key(), contracts.Outcome{
		Status:       status,
		BuyPrice:     100,
		SellPrice:    100 * (1 + ret/100),
		ActualReturn: ret,
	}))
}

func seedForceFailed(t *testing.T, l *ledger.MemoryLedger, ticker string, signalDate time.Time) {
	t.Helper()
	ctx := context.Background()
	s := contracts.Signal{
		Ticker:      ticker,
		Probability: 0.97,
		SignalDate:  signalDate,
		TradeDate:   signalDate.AddDate(0, 0, 1),
		Status:      contracts.StatusPending,
	}
	require.NoError(t, l.Upsert(ctx, &s))
	require.NoError(t, l.Resolve(ctx, s.Key(), contracts.Outcome{
		Status: contracts.StatusFailed,
		Reason: contracts.ReasonDataUnavailable,
	}))
}

func TestAggregator_Aggregate(t *testing.T) {
	l := ledger.NewMemory()
	asOf := day(2026, 2, 20)

	seedResolved(t, l, "005930", day(2026, 2, 13), 60, contracts.StatusSuccess)
	seedResolved(t, l, "000660", day(2026, 2, 13), 5, contracts.StatusPartial)
	seedResolved(t, l, "035420", day(2026, 2, 13), -10, contracts.StatusFailed)
	seedForceFailed(t, l, "051910", day(2026, 2, 13))

	// An unresolved signal must not appear anywhere.
	open := contracts.Signal{
		Ticker: "005380", Probability: 0.96,
		SignalDate: day(2026, 2, 19), TradeDate: day(2026, 2, 20),
		Status: contracts.StatusPending,
	}
	require.NoError(t, l.Upsert(context.Background(), &open))

	agg := New(l, zerolog.Nop())
	report, err := agg.Aggregate(context.Background(), asOf)
	require.NoError(t, err)

	assert.Equal(t, 4, report.All.Terminal)
	assert.Equal(t, 1, report.All.Success)
	assert.Equal(t, 1, report.All.Partial)
	assert.Equal(t, 2, report.All.Failed)
	assert.Equal(t, 1, report.All.ForceFailed)
	assert.InDelta(t, 0.25, report.All.SuccessRate, 0.001)
	assert.InDelta(t, 0.5, report.All.WinRate, 0.001)

	// Returns only come from signals with market data: (60+5-10)/3.
	assert.InDelta(t, 55.0/3, report.All.MeanReturn, 0.001)
	assert.InDelta(t, 5, report.All.MedianReturn, 0.001)

	// Realized view drops the force-failed row entirely.
	assert.Equal(t, 3, report.AllRealized.Terminal)
	assert.Equal(t, 0, report.AllRealized.ForceFailed)
	assert.InDelta(t, 1.0/3, report.AllRealized.SuccessRate, 0.001)

	assert.Equal(t, DefaultWindowDays, report.WindowDays)
	assert.Equal(t, report.All.Terminal, report.Window.Terminal, "everything is inside the default window")
}

func TestAggregator_Window(t *testing.T) {
	l := ledger.NewMemory()
	asOf := day(2026, 2, 20)

	seedResolved(t, l, "005930", day(2025, 11, 3), 60, contracts.StatusSuccess) // outside window
	seedResolved(t, l, "000660", day(2026, 2, 13), -10, contracts.StatusFailed) // inside

	agg := NewWithWindow(l, 30, zerolog.Nop())
	report, err := agg.Aggregate(context.Background(), asOf)
	require.NoError(t, err)

	assert.Equal(t, 2, report.All.Terminal)
	assert.Equal(t, 1, report.Window.Terminal)
	assert.Equal(t, 1, report.Window.Failed)
	assert.InDelta(t, 0.5, report.All.SuccessRate, 0.001)
	assert.InDelta(t, 0, report.Window.SuccessRate, 0.001)
}

func TestAggregator_Empty(t *testing.T) {
	agg := New(ledger.NewMemory(), zerolog.Nop())
	report, err := agg.Aggregate(context.Background(), day(2026, 2, 20))
	require.NoError(t, err)

	assert.Zero(t, report.All.Terminal)
	assert.Zero(t, report.All.SuccessRate)
	assert.Zero(t, report.All.MeanReturn)
	assert.Zero(t, report.Window.Terminal)
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{7}, 7},
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, median(tt.xs), 0.001)
		})
	}
}
