package store

import (
	"errors"
	"fmt"
	"math"
	"regexp"
)

// ErrInvalid wraps every validation failure so callers can report it as bad input.
var ErrInvalid = errors.New("invalid input")

// MaxEffortHours bounds the effort of a single task.
const MaxEffortHours = 10000.0

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// ValidateTask rejects planning inputs the optimizer would otherwise have to clamp.
func ValidateTask(t *Task) error {
	if t.Title == "" {
		return invalid("title required")
	}
	if t.EffortHours < 0 || t.EffortHours > MaxEffortHours || math.IsNaN(t.EffortHours) {
		return invalid("effort_hours must be within [0, %v], got %v", MaxEffortHours, t.EffortHours)
	}
	if t.Priority < 0 {
		return invalid("priority must be non-negative, got %d", t.Priority)
	}
	if t.EstimatedCommission.IsNegative() {
		return invalid("estimated_commission must be non-negative, got %s", t.EstimatedCommission)
	}
	if t.Probability < 0 || t.Probability > 1 || math.IsNaN(t.Probability) {
		return invalid("probability must be within [0, 1], got %v", t.Probability)
	}
	return nil
}

// ValidateMonth checks a YYYY-MM month key.
func ValidateMonth(month string) error {
	if !monthPattern.MatchString(month) {
		return invalid("month must be YYYY-MM, got %q", month)
	}
	return nil
}

// ValidateTarget checks the month key and that neither amount is negative.
func ValidateTarget(ct *CommissionTarget) error {
	if err := ValidateMonth(ct.Month); err != nil {
		return err
	}
	if ct.Target.IsNegative() || ct.Earned.IsNegative() {
		return invalid("target and earned must be non-negative")
	}
	return nil
}
