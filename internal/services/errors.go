package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks failures caused by missing or invalid setup,
	// such as an unreachable queue database at startup.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks recoverable IO failures eligible for retry under a
	// job's attempt budget.
	ErrTransient = errors.New("transient failure")
	// ErrProvider marks unusable speech-to-text output; never retried.
	ErrProvider = errors.New("provider error")
	// ErrPersistence marks a failed write of an already-decided outcome; the
	// job state stands and the failure is only logged.
	ErrPersistence = errors.New("persistence error")
	// ErrValidation marks malformed input that retrying cannot fix.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups for records that do not exist.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether a job failure should be rescheduled under the
// remaining attempt budget. Provider, validation, and configuration failures
// are deterministic and fail terminally on first occurrence.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrProvider),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrNotFound):
		return false
	default:
		return true
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
