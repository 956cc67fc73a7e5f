package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/overnight/internal/calendar"
	"github.com/wonny/overnight/internal/contracts"
	"github.com/wonny/overnight/internal/ledger"
)

type fakeScorer struct {
	candidates []contracts.Candidate
	err        error
	calls      int
}

func (f *fakeScorer) ScoreCandidates(ctx context.Context) ([]contracts.Candidate, error) {
	f.calls++
	return f.candidates, f.err
}

func testCalendar(t *testing.T) *calendar.Calendar {
	t.Helper()
	cal, err := calendar.New(&calendar.HolidayTable{
		Timezone: "Asia/Seoul",
		Holidays: map[int][]calendar.HolidayEntry{
			2026: {
				{Date: time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC), Name: "Seollal"},
			},
		},
	})
	require.NoError(t, err)
	return cal
}

func TestGenerator_GenerateBatch(t *testing.T) {
	cal := testCalendar(t)
	l := ledger.NewMemory()
	scorer := &fakeScorer{candidates: []contracts.Candidate{
		{Ticker: "005930", Probability: 0.98, ReferenceClose: 71000},
		{Ticker: "000660", Probability: 0.95, ReferenceClose: 189000},
		{Ticker: "035420", Probability: 0.80, ReferenceClose: 230000}, // below threshold
	}}
	g := New(l, scorer, cal, zerolog.Nop())

	friday := time.Date(2026, 2, 13, 0, 0, 0, 0, cal.Location())
	signals, err := g.GenerateBatch(context.Background(), friday)
	require.NoError(t, err)
	require.Len(t, signals, 2, "sub-threshold candidate must be dropped")

	monday := time.Date(2026, 2, 16, 0, 0, 0, 0, cal.Location())
	for _, s := range signals {
		assert.Equal(t, contracts.StatusPending, s.Status)
		assert.Equal(t, friday, s.SignalDate)
		assert.Equal(t, monday, s.TradeDate, "friday signal trades on monday")
	}
	assert.Equal(t, 71000.0, signals[0].ReferenceClose)

	batch, err := l.GetCurrentBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestGenerator_GenerateBatch_Idempotent(t *testing.T) {
	cal := testCalendar(t)
	l := ledger.NewMemory()
	scorer := &fakeScorer{candidates: []contracts.Candidate{
		{Ticker: "005930", Probability: 0.98},
	}}
	g := New(l, scorer, cal, zerolog.Nop())

	friday := time.Date(2026, 2, 13, 0, 0, 0, 0, cal.Location())
	_, err := g.GenerateBatch(context.Background(), friday)
	require.NoError(t, err)
	_, err = g.GenerateBatch(context.Background(), friday)
	require.NoError(t, err)

	all, err := l.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1, "re-running the same day must not duplicate")
}

func TestGenerator_GenerateBatch_ScorerFailure(t *testing.T) {
	cal := testCalendar(t)
	l := ledger.NewMemory()

	// Seed a prior batch, then fail the scorer.
	prior := time.Date(2026, 2, 12, 0, 0, 0, 0, cal.Location())
	require.NoError(t, l.UpsertBatch(context.Background(), []contracts.Signal{
		{Ticker: "005930", Probability: 0.97, SignalDate: prior, TradeDate: prior.AddDate(0, 0, 1), Status: contracts.StatusPending},
	}, prior))

	g := New(l, &fakeScorer{err: errors.New("upstream down")}, cal, zerolog.Nop())
	_, err := g.GenerateBatch(context.Background(), time.Date(2026, 2, 13, 0, 0, 0, 0, cal.Location()))
	require.Error(t, err)

	batch, err := l.GetCurrentBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, prior, batch[0].SignalDate, "prior batch must stay visible")
}

func TestGenerator_GenerateBatch_NoCandidates(t *testing.T) {
	cal := testCalendar(t)
	l := ledger.NewMemory()

	tests := []struct {
		name       string
		candidates []contracts.Candidate
	}{
		{"empty list", nil},
		{"nothing clears threshold", []contracts.Candidate{{Ticker: "005930", Probability: 0.5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(l, &fakeScorer{candidates: tt.candidates}, cal, zerolog.Nop())
			_, err := g.GenerateBatch(context.Background(), time.Date(2026, 2, 13, 0, 0, 0, 0, cal.Location()))
			assert.True(t, errors.Is(err, contracts.ErrNoCandidates))

			all, lerr := l.History(context.Background())
			require.NoError(t, lerr)
			assert.Empty(t, all, "no writes on empty candidates")
		})
	}
}

func TestGenerator_CustomThreshold(t *testing.T) {
	cal := testCalendar(t)
	l := ledger.NewMemory()
	scorer := &fakeScorer{candidates: []contracts.Candidate{
		{Ticker: "005930", Probability: 0.90},
		{Ticker: "000660", Probability: 0.79},
	}}
	g := NewWithThreshold(l, scorer, cal, 0.80, zerolog.Nop())

	signals, err := g.GenerateBatch(context.Background(), time.Date(2026, 2, 13, 0, 0, 0, 0, cal.Location()))
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "005930", signals[0].Ticker)
}
