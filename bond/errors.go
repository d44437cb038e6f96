package bond

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBondType is returned for a bond type outside the known set.
	ErrInvalidBondType = errors.New("invalid bond type")
	// ErrMissingCurveInput is returned when a required curve is nil, such as
	// the index curve for a variable-rate bullet.
	ErrMissingCurveInput = errors.New("missing curve input")
	// ErrInvalidTerms is returned by New for terms that cannot be priced.
	ErrInvalidTerms = errors.New("invalid bond terms")
	// ErrNonFinite is returned when discounting would produce NaN or Inf.
	ErrNonFinite = errors.New("non-finite result")
	// ErrNoConvergence is returned when the yield solver gives up.
	ErrNoConvergence = errors.New("yield solver did not converge")
)

// Operation names used in OpError.
const (
	OpPrice       = "price"
	OpDuration    = "duration"
	OpSensitivity = "sensitivity"
	OpSchedule    = "schedule"
	OpYield       = "yield"
)

// OpError labels a failure with the operation and bond type it came from.
type OpError struct {
	Op   string
	Type Type
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Type, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
