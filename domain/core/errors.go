package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound     = errors.New("resource not found")
	ErrCellNotFound = fmt.Errorf("%w: cell", ErrNotFound)

	// Precondition errors: a required input table is absent. Fatal before
	// any computation starts.
	ErrMissingInput = errors.New("required input table missing")

	// Data errors
	ErrInvalidInput     = errors.New("invalid input row")
	ErrInsufficientData = errors.New("insufficient data for analysis")
)

// NewNotFoundError reports a missing resource with its identifier.
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, resource, id)
}

// NewMissingInputError reports an absent required input table with its path.
func NewMissingInputError(path string) error {
	return fmt.Errorf("%w: %s", ErrMissingInput, path)
}

// NewRowError reports a malformed row in an input table.
func NewRowError(table string, row int, err error) error {
	return fmt.Errorf("%w: %s row %d: %v", ErrInvalidInput, table, row, err)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsMissingInputError(err error) bool {
	return errors.Is(err, ErrMissingInput)
}
