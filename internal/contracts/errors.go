package contracts

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData: a ticker has too little history. Per-ticker, not fatal.
	ErrInsufficientData = errors.New("insufficient price history")

	// ErrInvalidHistory: bars out of order or with non-finite closes. Per-ticker, not fatal.
	ErrInvalidHistory = errors.New("invalid price history")

	// ErrInvalidWeights: weight vector sum outside tolerance. Fatal for the run.
	ErrInvalidWeights = errors.New("invalid factor weights")

	// ErrEmptyUniverse: nothing left to rank. Fatal for the run.
	ErrEmptyUniverse = errors.New("empty universe")

	// ErrUnknownUniverse: no universe with that name
	ErrUnknownUniverse = errors.New("unknown universe")

	// ErrNotFound: repository/provider miss
	ErrNotFound = errors.New("not found")

	// ErrQuotaExhausted: a daily API budget is spent
	ErrQuotaExhausted = errors.New("api quota exhausted")
)

// InsufficientDataError carries the bar count of a rejected ticker
type InsufficientDataError struct {
	Ticker   string
	Bars     int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: %d bars, need %d: %v", e.Ticker, e.Bars, e.Required, ErrInsufficientData)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// InvalidWeightsError carries the offending sum
type InvalidWeightsError struct {
	Sum float64
}

func (e *InvalidWeightsError) Error() string {
	return fmt.Sprintf("weights sum to %.4f, want 1.0 ± %.2f", e.Sum, WeightTolerance)
}

func (e *InvalidWeightsError) Is(target error) bool {
	return target == ErrInvalidWeights
}

// DegenerateColumnWarning records a column that normalized to all zeros
type DegenerateColumnWarning struct {
	Column string
	Reason string // "zero_variance" or "undefined_variance"
}

func (w DegenerateColumnWarning) String() string {
	return fmt.Sprintf("%s (%s)", w.Column, w.Reason)
}
