package stats

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/overnight/internal/contracts"
)

// DefaultWindowDays is the rolling window length in calendar days.
const DefaultWindowDays = 30

// Measures are the rollups over one set of terminal signals.
type Measures struct {
	Terminal     int     `json:"terminal"`
	Success      int     `json:"success"`
	Partial      int     `json:"partial"`
	Failed       int     `json:"failed"`
	ForceFailed  int     `json:"force_failed"`
	SuccessRate  float64 `json:"success_rate"`
	WinRate      float64 `json:"win_rate"`
	MeanReturn   float64 `json:"mean_return"`
	MedianReturn float64 `json:"median_return"`
}

// Report is the full aggregate view. Force-failed signals (no market data)
// are included in All/Window but also reported separately with them filtered
// out, so the audit trail stays complete without distorting the realized
// numbers.
type Report struct {
	All           Measures  `json:"all"`
	AllRealized   Measures  `json:"all_realized"` // excluding force-failed
	Window        Measures  `json:"window"`
	WindowDays    int       `json:"window_days"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// Aggregator derives read-only statistics from the ledger's terminal
// records. It never mutates and is safe to run concurrently with writers.
type Aggregator struct {
	ledger     contracts.Ledger
	windowDays int
	log        zerolog.Logger
}

// New creates an aggregator with the default rolling window.
func New(ledger contracts.Ledger, log zerolog.Logger) *Aggregator {
	return NewWithWindow(ledger, DefaultWindowDays, log)
}

// NewWithWindow creates an aggregator with a custom rolling window length.
func NewWithWindow(ledger contracts.Ledger, windowDays int, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		ledger:     ledger,
		windowDays: windowDays,
		log:        log.With().Str("component", "stats").Logger(),
	}
}

// Aggregate recomputes the report as of the given date.
func (a *Aggregator) Aggregate(ctx context.Context, asOf time.Time) (*Report, error) {
	terminal, err := a.ledger.AllTerminal(ctx)
	if err != nil {
		return nil, err
	}

	windowStart := asOf.AddDate(0, 0, -a.windowDays)
	var window []contracts.Signal
	for _, s := range terminal {
		if !s.SignalDate.Before(windowStart) {
			window = append(window, s)
		}
	}

	var realized []contracts.Signal
	for _, s := range terminal {
		if !s.ForceFailed() {
			realized = append(realized, s)
		}
	}

	report := &Report{
		All:         compute(terminal),
		AllRealized: compute(realized),
		Window:      compute(window),
		WindowDays:  a.windowDays,
		GeneratedAt: time.Now(),
	}

	a.log.Debug().
		Int("terminal", report.All.Terminal).
		Int("window", report.Window.Terminal).
		Float64("success_rate", report.All.SuccessRate).
		Msg("statistics aggregated")

	return report, nil
}

func compute(signals []contracts.Signal) Measures {
	m := Measures{Terminal: len(signals)}
	if m.Terminal == 0 {
		return m
	}

	var returns []float64
	for _, s := range signals {
		switch s.Status {
		case contracts.StatusSuccess:
			m.Success++
		case contracts.StatusPartial:
			m.Partial++
		case contracts.StatusFailed:
			m.Failed++
			if s.ForceFailed() {
				m.ForceFailed++
			}
		}
		if s.ActualReturn != nil {
			returns = append(returns, *s.ActualReturn)
		}
	}

	n := float64(m.Terminal)
	m.SuccessRate = float64(m.Success) / n
	m.WinRate = float64(m.Success+m.Partial) / n
	m.MeanReturn = mean(returns)
	m.MedianReturn = median(returns)
	return m
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
