package contracts

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a signal.
// Transitions are one-way: PENDING moves to exactly one terminal state and
// never reverses.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusPartial Status = "PARTIAL"
	StatusFailed  Status = "FAILED"
)

// Terminal reports whether the status is a final outcome.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusPartial || s == StatusFailed
}

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// Reason tags a terminal status with how it was reached. Empty for outcomes
// computed from real market data.
type Reason string

const (
	// ReasonDataUnavailable marks a signal force-resolved FAILED because its
	// quote could not be fetched before the retry window closed. Aggregation
	// filters on this tag so stale data never masquerades as a real loss.
	ReasonDataUnavailable Reason = "data-unavailable"
)

// SignalKey is the natural key of a signal. The ledger never holds two
// records with the same key.
type SignalKey struct {
	Ticker     string    `json:"ticker"`
	SignalDate time.Time `json:"signal_date"`
}

func (k SignalKey) String() string {
	return fmt.Sprintf("%s@%s", k.Ticker, k.SignalDate.Format("2006-01-02"))
}

// Signal is one prediction-to-outcome record.
type Signal struct {
	Ticker      string    `json:"ticker"`
	Probability float64   `json:"predicted_probability"`
	SignalDate  time.Time `json:"signal_date"`
	TradeDate   time.Time `json:"trade_date"`
	Status      Status    `json:"status"`

	// Captured at generation time for back-testing reference, independent of
	// later resolution.
	ReferenceClose float64 `json:"reference_close"`

	// Set once by the tracker when the signal resolves; nil while PENDING.
	BuyPrice     *float64 `json:"buy_price,omitempty"`
	SellPrice    *float64 `json:"sell_price,omitempty"`
	ActualReturn *float64 `json:"actual_return,omitempty"`
	Reason       Reason   `json:"reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the natural key of the signal.
func (s *Signal) Key() SignalKey {
	return SignalKey{Ticker: s.Ticker, SignalDate: s.SignalDate}
}

// Resolved reports whether the signal has reached a terminal state.
func (s *Signal) Resolved() bool {
	return s.Status.Terminal()
}

// ForceFailed reports whether the signal was force-resolved without market
// data.
func (s *Signal) ForceFailed() bool {
	return s.Status == StatusFailed && s.Reason == ReasonDataUnavailable
}

// Outcome is the result of resolving a signal. BuyPrice/SellPrice/ActualReturn
// are zero for force-failed outcomes (Reason set).
type Outcome struct {
	Status       Status  `json:"status"`
	BuyPrice     float64 `json:"buy_price"`
	SellPrice    float64 `json:"sell_price"`
	ActualReturn float64 `json:"actual_return"`
	Reason       Reason  `json:"reason,omitempty"`
}

// Candidate is one entry of the ranked list returned by the model scorer.
type Candidate struct {
	Ticker         string  `json:"ticker"`
	Probability    float64 `json:"probability"`
	ReferenceClose float64 `json:"reference_close"`
}

// Quote is the open/close pair for a ticker on a single trading day.
type Quote struct {
	Open  float64 `json:"open"`
	Close float64 `json:"close"`
}
