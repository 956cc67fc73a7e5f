package contracts

import "errors"

var (
	// ErrNotFound is returned when no signal exists for a key.
	ErrNotFound = errors.New("signal not found")

	// ErrAlreadyResolved is returned by Resolve when the target signal is not
	// PENDING. Repeated orchestrator runs hit this path; callers treat it as a
	// no-op, not a cycle failure.
	ErrAlreadyResolved = errors.New("signal already resolved")

	// ErrNoCandidates is returned by the generator when the model scorer
	// produced an empty list. The prior batch stays untouched.
	ErrNoCandidates = errors.New("scorer returned no candidates")

	// ErrDataUnavailable is returned by market data sources when no quote
	// exists for a ticker/date. Timeouts map to the same error.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrCalendarExhausted is returned when the next-trading-day scan exceeds
	// its bound. This indicates a misconfigured holiday table and aborts the
	// cycle before any write.
	ErrCalendarExhausted = errors.New("calendar scan exceeded bound")
)
