package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonny/overnight/internal/contracts"
	"github.com/wonny/overnight/internal/reportcache"
	"github.com/wonny/overnight/internal/stats"
	"github.com/wonny/overnight/pkg/logger"
)

// SignalHandler serves the read-only query surface: current batch, history,
// pending signals and aggregate statistics. Reads try the Redis cache first
// and fall through to the ledger; the ledger is always the source of truth.
type SignalHandler struct {
	ledger     contracts.Ledger
	aggregator *stats.Aggregator
	cache      *reportcache.Cache
	clock      contracts.Clock
	logger     *logger.Logger
}

// NewSignalHandler creates the signal query handler. cache may be nil.
func NewSignalHandler(
	ledger contracts.Ledger,
	aggregator *stats.Aggregator,
	cache *reportcache.Cache,
	clock contracts.Clock,
	log *logger.Logger,
) *SignalHandler {
	return &SignalHandler{
		ledger:     ledger,
		aggregator: aggregator,
		cache:      cache,
		clock:      clock,
		logger:     log,
	}
}

// GetCurrentBatch returns the latest generated batch.
func (h *SignalHandler) GetCurrentBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cache != nil {
		if batch, found, err := h.cache.CurrentBatch(ctx); err == nil && found {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"signals": batch,
				"count":   len(batch),
				"source":  "cache",
			})
			return
		}
	}

	batch, err := h.ledger.GetCurrentBatch(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load current batch")
		writeError(w, http.StatusInternalServerError, "failed to load current batch")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"signals": batch,
		"count":   len(batch),
		"source":  "ledger",
	})
}

// GetHistory returns all signals, newest batch first.
func (h *SignalHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.ledger.History(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load history")
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"signals": history,
		"count":   len(history),
	})
}

// GetPending returns unresolved signals due as of today.
func (h *SignalHandler) GetPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.ledger.GetPendingDue(r.Context(), h.clock.Today())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load pending signals")
		writeError(w, http.StatusInternalServerError, "failed to load pending signals")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"signals": pending,
		"count":   len(pending),
	})
}

// GetStats returns the latest aggregate statistics.
func (h *SignalHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cache != nil {
		if report, found, err := h.cache.Stats(ctx); err == nil && found {
			writeJSON(w, http.StatusOK, report)
			return
		}
	}

	report, err := h.aggregator.Aggregate(ctx, h.clock.Today())
	if err != nil {
		h.logger.WithError(err).Error("Failed to aggregate statistics")
		writeError(w, http.StatusInternalServerError, "failed to aggregate statistics")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
