package db

import (
	"errors"
	"fmt"
)

// Caller-input errors, returned before any query is sent to the database.
var (
	ErrInvalidUnit        = errors.New("invalid date unit")
	ErrInvalidRange       = errors.New("invalid date range")
	ErrUnknownDimension   = errors.New("unknown dimension")
	ErrInvalidOperator    = errors.New("invalid filter operator")
	ErrInvalidEventType   = errors.New("invalid event type")
	ErrInvalidTimezone    = errors.New("invalid timezone")
	ErrInvalidWebsiteID   = errors.New("invalid website ID")
	ErrInvalidCompareMode = errors.New("invalid comparison mode")
	ErrInvalidPagination  = errors.New("invalid pagination")
	ErrTooManyBuckets     = errors.New("too many time buckets")
)

// The configured backend does not implement the requested operation.
var ErrUnsupportedOperation = errors.New("operation not supported by database backend")

// Wraps a failure from the underlying database (syntax, timeout, connectivity).
type ExecutionError struct {
	Operation Operation
	Backend   string
	Err       error
}

func (err *ExecutionError) Error() string {
	return fmt.Sprintf("%s query failed on %s: %v", err.Operation, err.Backend, err.Err)
}

func (err *ExecutionError) Unwrap() error {
	return err.Err
}

// Reports whether err was caused by invalid caller input rather than by the database.
func IsInputError(err error) bool {
	for _, inputErr := range []error{
		ErrInvalidUnit,
		ErrInvalidRange,
		ErrUnknownDimension,
		ErrInvalidOperator,
		ErrInvalidEventType,
		ErrInvalidTimezone,
		ErrInvalidWebsiteID,
		ErrInvalidCompareMode,
		ErrInvalidPagination,
		ErrTooManyBuckets,
	} {
		if errors.Is(err, inputErr) {
			return true
		}
	}

	return false
}
