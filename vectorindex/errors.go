package vectorindex

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyIndex is returned by Search when the index holds no vectors.
	// Callers must distinguish "no knowledge base" from "no relevant match";
	// a non-empty index always returns up to k results, however poor.
	ErrEmptyIndex = errors.New("index is empty")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")
)

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
// Insertion batches fail atomically with it: no partial mutation occurs.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrStorageCorruption indicates a persisted snapshot that could not be
// read back consistently. It is surfaced, never auto-repaired.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrStorageCorruption struct {
	Reason string
	cause  error
}

func (e *ErrStorageCorruption) Error() string {
	return fmt.Sprintf("index storage corrupted: %s", e.Reason)
}

func (e *ErrStorageCorruption) Unwrap() error { return e.cause }
