// Package errs defines the typed failure modes shared by every scoring
// component. Callers distinguish recoverable per-symbol failures
// (InsufficientData, CalculationError) from batch-fatal ones
// (ConfigurationError) with errors.As.
package errs

import "fmt"

// InsufficientDataError reports that a symbol or sector does not have enough
// history to score. Recoverable: the caller excludes the unit and records the
// reason, the rest of the batch proceeds.
type InsufficientDataError struct {
	Symbol   string
	Required int
	Actual   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d points, have %d", e.Symbol, e.Required, e.Actual)
}

// CalculationError reports a numeric failure (division by zero, degenerate
// window) while scoring a single symbol. Fatal for that symbol only.
type CalculationError struct {
	Symbol string
	Reason string
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("calculation failed for %s: %s", e.Symbol, e.Reason)
}

// ConfigurationError reports a missing benchmark or undefined sector
// membership. Fatal for the whole computation unit.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Detail
}

// DataFetchError reports an upstream fetch failure. It is raised only by the
// provider layer; the scoring core converts an empty or short series it
// receives into InsufficientDataError instead.
type DataFetchError struct {
	Provider string
	Symbol   string
	Err      error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("fetch failed on %s for %s: %v", e.Provider, e.Symbol, e.Err)
}

func (e *DataFetchError) Unwrap() error { return e.Err }
