package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/overnight/internal/api/handlers"
	"github.com/wonny/overnight/internal/metrics"
	"github.com/wonny/overnight/pkg/logger"
)

// NewRouter creates and configures the HTTP router. The API is the read-only
// query surface for dashboard consumers plus the single cycle trigger.
func NewRouter(
	signalHandler *handlers.SignalHandler,
	cycleHandler *handlers.CycleHandler,
	m *metrics.Metrics,
	metricsEnabled bool,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if metricsEnabled {
		r.Handle("/metrics", m.Handler()).Methods("GET")
	}

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Read-only query surface
	api.HandleFunc("/signals/current", signalHandler.GetCurrentBatch).Methods("GET")
	api.HandleFunc("/signals/history", signalHandler.GetHistory).Methods("GET")
	api.HandleFunc("/signals/pending", signalHandler.GetPending).Methods("GET")
	api.HandleFunc("/stats", signalHandler.GetStats).Methods("GET")

	// Cycle trigger and scheduler visibility
	api.HandleFunc("/cycle/run", cycleHandler.Run).Methods("POST")
	api.HandleFunc("/scheduler/jobs", cycleHandler.GetJobStats).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "overnight-api",
	})
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
