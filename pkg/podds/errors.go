package podds

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is matched by every *InsufficientDataError.
	ErrInsufficientData = errors.New("insufficient team data")

	// ErrFittingFailed is matched by every *FittingFailedError.
	ErrFittingFailed = errors.New("posterior fitting failed")

	ErrEmptyPosterior         = errors.New("posterior has no draws")
	ErrInvalidSimulationCount = errors.New("simulation count must be positive")
	ErrEmptyPopulation        = errors.New("simulation population is empty")
)

// InsufficientDataError is returned when neither team carries any statistics.
type InsufficientDataError struct {
	HomeMissing bool
	AwayMissing bool
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient team data: home missing=%t, away missing=%t", e.HomeMissing, e.AwayMissing)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// Fit stages reported by FittingFailedError
const (
	StageSetup       = "setup"
	StageSampling    = "sampling"
	StageConvergence = "convergence"
	StageCancelled   = "cancelled"
)

// FittingFailedError wraps any failure of the rate fitting step.
type FittingFailedError struct {
	Stage string
	Err   error
}

func (e *FittingFailedError) Error() string {
	return fmt.Sprintf("posterior fitting failed during %s: %v", e.Stage, e.Err)
}

func (e *FittingFailedError) Unwrap() error {
	return e.Err
}

func (e *FittingFailedError) Is(target error) bool {
	return target == ErrFittingFailed
}

func fitError(stage string, err error) error {
	return &FittingFailedError{Stage: stage, Err: err}
}
