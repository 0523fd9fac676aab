package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrConfiguration indicates a model or driver input that can never be integrated.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrDivergence indicates the integration could not continue.
	ErrDivergence = errors.New("dynamo: numerical divergence")

	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrStepRejected is returned by adaptive integrators for a step whose
	// error estimate exceeds the tolerance.
	ErrStepRejected = errors.New("dynamo: step rejected")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrMaxSteps indicates the step budget ran out before the last sample time.
	ErrMaxSteps = errors.New("dynamo: step budget exhausted")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// ConfigurationError reports the offending field of a rejected configuration.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func NewConfigurationError(field string, value any, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s=%v: %s", ErrConfiguration, e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// DivergenceError wraps the cause of a failed integration together with
// the last state that was valid and the time it belongs to.
type DivergenceError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("%s at step %d (t=%.6g): %v", ErrDivergence, e.Step, e.Time, e.Wrapped)
}

func (e *DivergenceError) Unwrap() []error {
	return []error{ErrDivergence, e.Wrapped}
}
