package optimizer

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/prisken/client-crm-sub000/internal/store"
)

// Summary reports commission-based performance ratios for a task list.
// These use raw commission * probability, not the scaled Value of the queue.
type Summary struct {
	TotalExpectedCommission decimal.Decimal `json:"total_expected_commission"`
	AverageValuePerHour     decimal.Decimal `json:"average_value_per_hour"`
	// Efficiency is the share of tasks with priority >= 2.
	Efficiency float64 `json:"efficiency"`
	TaskCount  int     `json:"task_count"`
	TotalHours float64 `json:"total_hours"`
}

// Metrics summarizes tasks, typically a Result's queue. The reference date is
// accepted for symmetry with BuildQueue and does not affect the figures.
func Metrics(tasks []*store.Task, _ time.Time) Summary {
	s := Summary{
		TotalExpectedCommission: decimal.Zero,
		AverageValuePerHour:     decimal.Zero,
	}
	highPriority := 0
	for _, t := range tasks {
		if t == nil {
			continue
		}
		s.TaskCount++
		p := clamp(t.Probability, 0, 1)
		s.TotalExpectedCommission = s.TotalExpectedCommission.Add(t.EstimatedCommission.Mul(decimal.NewFromFloat(p)))
		if t.EffortHours > 0 {
			s.TotalHours += t.EffortHours
		}
		if t.Priority >= 2 {
			highPriority++
		}
	}

	if s.TotalHours > 0 {
		s.AverageValuePerHour = s.TotalExpectedCommission.Div(decimal.NewFromFloat(s.TotalHours))
	}
	if s.TaskCount > 0 {
		s.Efficiency = float64(highPriority) / float64(s.TaskCount)
	}
	return s
}
