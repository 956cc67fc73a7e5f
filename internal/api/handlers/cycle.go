package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wonny/overnight/internal/contracts"
	"github.com/wonny/overnight/internal/orchestrator"
	"github.com/wonny/overnight/internal/scheduler"
	"github.com/wonny/overnight/pkg/logger"
)

// CycleHandler exposes the single "run daily cycle" trigger and scheduler
// visibility. Triggering twice for the same day is safe; the engine's write
// paths are idempotent.
type CycleHandler struct {
	orch   *orchestrator.Orchestrator
	sched  *scheduler.Scheduler
	logger *logger.Logger
}

// NewCycleHandler creates the cycle trigger handler. sched may be nil when
// running without the scheduler daemon.
func NewCycleHandler(orch *orchestrator.Orchestrator, sched *scheduler.Scheduler, log *logger.Logger) *CycleHandler {
	return &CycleHandler{
		orch:   orch,
		sched:  sched,
		logger: log,
	}
}

type runRequest struct {
	// Date replays a specific day (YYYY-MM-DD); empty means today.
	Date string `json:"date,omitempty"`
	// From restarts a partially failed cycle at a later stage.
	From string `json:"from,omitempty"`
}

// Run triggers one cycle and returns its result summary. No arguments are
// required; an empty body runs today's full cycle.
func (h *CycleHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil {
		// An empty body is a valid "run today" request.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	cfg := orchestrator.RunConfig{}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		cfg.Date = date
	}
	if req.From != "" {
		stage := contracts.Stage(req.From)
		if !contracts.ValidStage(stage) {
			writeError(w, http.StatusBadRequest, "from must be one of: tracking, generating, aggregating")
			return
		}
		cfg.From = stage
	}

	result, err := h.orch.Run(r.Context(), cfg)
	if err != nil {
		// The result still describes how far the cycle got; return it with
		// the error status so the operator can re-trigger the failed stage.
		h.logger.WithError(err).Error("Cycle failed")
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetJobStats returns the scheduler's job statistics.
func (h *CycleHandler) GetJobStats(w http.ResponseWriter, r *http.Request) {
	if h.sched == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, h.sched.GetJobStats())
}
