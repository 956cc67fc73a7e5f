package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/overnight/internal/calendar"
	"github.com/wonny/overnight/internal/clock"
	"github.com/wonny/overnight/internal/contracts"
	"github.com/wonny/overnight/internal/generator"
	"github.com/wonny/overnight/internal/ledger"
	"github.com/wonny/overnight/internal/orchestrator"
	"github.com/wonny/overnight/internal/stats"
	"github.com/wonny/overnight/internal/tracker"
)

type fixedScorer struct {
	candidates []contracts.Candidate
}

func (f *fixedScorer) ScoreCandidates(ctx context.Context) ([]contracts.Candidate, error) {
	return f.candidates, nil
}

type emptyMarket struct{}

func (emptyMarket) GetOpenClose(ctx context.Context, ticker string, date time.Time) (contracts.Quote, error) {
	return contracts.Quote{}, contracts.ErrDataUnavailable
}

func newCycleHandler(t *testing.T, candidates []contracts.Candidate) *CycleHandler {
	t.Helper()

	cal, err := calendar.New(&calendar.HolidayTable{
		Timezone: "Asia/Seoul",
		Holidays: map[int][]calendar.HolidayEntry{2026: {}},
	})
	require.NoError(t, err)

	l := ledger.NewMemory()
	log := zerolog.Nop()
	trk := tracker.New(l, emptyMarket{}, log)
	gen := generator.New(l, &fixedScorer{candidates: candidates}, cal, log)
	agg := stats.New(l, log)
	clk := clock.Fixed{T: time.Date(2026, 2, 13, 17, 0, 0, 0, cal.Location())}

	orch := orchestrator.New(cal, l, trk, gen, agg, clk, nil, nil, log)
	return NewCycleHandler(orch, nil, testLogger())
}

func TestCycleHandler_Run(t *testing.T) {
	h := newCycleHandler(t, []contracts.Candidate{
		{Ticker: "005930", Probability: 0.98, ReferenceClose: 71500},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/cycle/run", nil)
	rec := httptest.NewRecorder()
	h.Run(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var result contracts.CycleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Generated)
}

func TestCycleHandler_Run_FailureReturnsResult(t *testing.T) {
	// No candidates: GENERATING fails and the response carries the partial
	// result so the operator can see which stage to re-trigger.
	h := newCycleHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/cycle/run", nil)
	rec := httptest.NewRecorder()
	h.Run(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var result contracts.CycleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, contracts.StageGenerating, result.FailedStage)
}

func TestCycleHandler_Run_BadRequests(t *testing.T) {
	h := newCycleHandler(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed date", `{"date":"13-02-2026"}`},
		{"unknown stage", `{"from":"gating"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/cycle/run", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Run(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCycleHandler_GetJobStats_NilScheduler(t *testing.T) {
	h := newCycleHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/scheduler/jobs", nil)
	rec := httptest.NewRecorder()
	h.GetJobStats(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}
