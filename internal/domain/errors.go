package domain

import "errors"

// Engine errors shared by all classifiers.
var (
	// ErrNoData is returned when a candle series is empty or missing.
	// Callers treat it as a NoData outcome, not a failure.
	ErrNoData = errors.New("no candle data")

	// ErrInvalidEntryPrice is returned when the entry price is not positive.
	ErrInvalidEntryPrice = errors.New("entry price must be positive")

	// ErrInvalidScenario is returned when a scenario has a non-positive profit
	// target or a non-negative loss target.
	ErrInvalidScenario = errors.New("invalid scenario targets")
)
