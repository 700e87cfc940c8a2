package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input errors
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNonPositiveCount   = fmt.Errorf("%w: participant count must be positive", ErrInvalidArgument)
	ErrUnbalancedCount    = fmt.Errorf("%w: participant count must be a multiple of 4", ErrInvalidArgument)
	ErrUnknownVariable    = fmt.Errorf("%w: unknown variable", ErrInvalidArgument)
	ErrInvalidModelSpec   = fmt.Errorf("%w: malformed model specification", ErrInvalidArgument)
	ErrInvalidPlotRequest = fmt.Errorf("%w: plot request", ErrInvalidArgument)

	// Shape errors
	ErrDataShape        = errors.New("incompatible data shape")
	ErrNoNumericColumns = fmt.Errorf("%w: no numeric columns to scale", ErrDataShape)
	ErrColumnLengthSkew = fmt.Errorf("%w: column lengths differ", ErrDataShape)
	ErrEmptyTable       = fmt.Errorf("%w: table has no rows", ErrDataShape)

	// Model errors
	ErrFitFailed     = errors.New("model fit failed")
	ErrRankDeficient = fmt.Errorf("%w: design matrix is rank deficient", ErrFitFailed)
	ErrTooFewRows    = fmt.Errorf("%w: fewer rows than model terms", ErrFitFailed)

	// External boundary errors
	ErrAdapterUnavailable = errors.New("external adapter unavailable")
	ErrAdapterFailed      = errors.New("external adapter failed")

	// Lookup errors
	ErrNotFound         = errors.New("resource not found")
	ErrRunNotFound      = fmt.Errorf("%w: run", ErrNotFound)
	ErrArtifactNotFound = fmt.Errorf("%w: artifact", ErrNotFound)
)

// Error constructors with context
func NewInvalidArgument(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidArgument, field, reason)
}

func NewUnknownVariableError(key string) error {
	return fmt.Errorf("%w: %q", ErrUnknownVariable, key)
}

func NewDataShapeError(detail string) error {
	return fmt.Errorf("%w: %s", ErrDataShape, detail)
}

func NewFitError(reason string) error {
	return fmt.Errorf("%w: %s", ErrFitFailed, reason)
}

func NewAdapterError(backend string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrAdapterFailed, backend, err)
}

func NewAdapterUnavailableError(backend string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrAdapterUnavailable, backend, reason)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsDataShapeError(err error) bool {
	return errors.Is(err, ErrDataShape)
}

func IsFitError(err error) bool {
	return errors.Is(err, ErrFitFailed)
}

func IsAdapterError(err error) bool {
	return errors.Is(err, ErrAdapterUnavailable) ||
		errors.Is(err, ErrAdapterFailed)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
