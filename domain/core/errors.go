package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrRunNotFound     = fmt.Errorf("%w: run", ErrNotFound)
	ErrFeatureNotFound = fmt.Errorf("%w: feature", ErrNotFound)

	// Input validation errors - fatal for the whole screening call
	ErrShapeMismatch = errors.New("label count does not match matrix rows")
	ErrEmptyMatrix   = errors.New("feature matrix has no columns")
	ErrLabelMismatch = errors.New("configured classes not present in labels")

	// Per-feature errors - recoverable depending on error policy
	ErrInsufficientData = errors.New("insufficient data for two-sample test")
	ErrZeroVariance     = errors.New("zero variance in both groups")
)

// Error constructors with context
func NewShapeMismatchError(labels, rows int) error {
	return fmt.Errorf("%w: %d labels vs %d rows", ErrShapeMismatch, labels, rows)
}

func NewLabelMismatchError(classA, classB string) error {
	return fmt.Errorf("%w: need both %q and %q", ErrLabelMismatch, classA, classB)
}

func NewInsufficientDataError(feature FeatureKey, nA, nB int) error {
	return fmt.Errorf("%w: feature %s has group sizes %d/%d", ErrInsufficientData, feature, nA, nB)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsFatalScreenError(err error) bool {
	return errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrEmptyMatrix) ||
		errors.Is(err, ErrLabelMismatch)
}

func IsFeatureError(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrZeroVariance)
}
