package sim

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSimulationRunning is returned by operations that require the continuous
// driver to be stopped (model changes, manual single steps).
var ErrSimulationRunning = errors.New("simulation is running")

// ValidationError reports a rejected input. No state is mutated when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an operation on an unknown thread or resource id.
type NotFoundError struct {
	Kind string // "thread" or "resource"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func validateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return nil
}

func validatePriority(p int) error {
	if p < MinPriority || p > MaxPriority {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("must be in [%d, %d], got %d", MinPriority, MaxPriority, p)}
	}
	return nil
}

func validateExecutionTime(ms int64) error {
	if ms <= 0 {
		return &ValidationError{Field: "execution time", Reason: fmt.Sprintf("must be positive, got %d", ms)}
	}
	return nil
}

// validateSpeed rejects speeds whose tick period would overflow time.Duration.
// Zero is accepted only when allowZero is set (meaning "use the default").
func validateSpeed(ms int64, allowZero bool) error {
	if ms > MaxSpeed {
		return &ValidationError{Field: "speed", Reason: fmt.Sprintf("must be at most %d, got %d", MaxSpeed, ms)}
	}
	if ms < 0 || (ms == 0 && !allowZero) {
		return &ValidationError{Field: "speed", Reason: fmt.Sprintf("must be positive, got %d", ms)}
	}
	return nil
}
