package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrCanceled      = errors.New("canceled")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Outcome labels a stage or run result for the history ledger.
type Outcome string

const (
	OutcomeSucceeded     Outcome = "succeeded"
	OutcomeToolFailed    Outcome = "tool_failed"
	OutcomeInvalidInput  Outcome = "invalid_input"
	OutcomeMisconfigured Outcome = "misconfigured"
	OutcomeTimedOut      Outcome = "timed_out"
	OutcomeCanceled      Outcome = "canceled"
	OutcomeFailed        Outcome = "failed"
)

// Classify maps an error to the outcome recorded for it. A nil error succeeded.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSucceeded
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimedOut
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled):
		return OutcomeCanceled
	case errors.Is(err, ErrExternalTool):
		return OutcomeToolFailed
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return OutcomeInvalidInput
	case errors.Is(err, ErrConfiguration):
		return OutcomeMisconfigured
	default:
		return OutcomeFailed
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
