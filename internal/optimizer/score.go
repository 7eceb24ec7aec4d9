package optimizer

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/prisken/client-crm-sub000/internal/store"
)

// ScoredTask is a task prepared for allocation. Task is borrowed from the caller.
type ScoredTask struct {
	Task *store.Task `json:"task"`
	// Value is the knapsack objective: commission * beta + alpha * priority.
	// It is a heuristic score, not a currency amount.
	Value       float64 `json:"value"`
	EffortUnits int     `json:"effort_units"`
	Mandatory   bool    `json:"mandatory"`
}

// EstimateBeta derives the commission multiplier from how far the agent is behind
// the monthly target:
//
//	beta = clamp(1 + max(target-earned, 0)/target, BetaMin, BetaMax)
//
// A zero (or negative) target yields 1.0 before clamping.
func (e *Engine) EstimateBeta(monthlyTarget, earnedSoFar decimal.Decimal) float64 {
	raw := 1.0
	if monthlyTarget.IsPositive() {
		gap := decimal.Max(monthlyTarget.Sub(earnedSoFar), decimal.Zero)
		raw += gap.Div(monthlyTarget).InexactFloat64()
	}
	return clamp(raw, e.params.BetaMin, e.params.BetaMax)
}

// Score computes value and effort units for one task. Negative effort,
// commission and priority are treated as zero.
func (e *Engine) Score(t *store.Task, beta float64) ScoredTask {
	commission := t.EstimatedCommission
	if commission.IsNegative() {
		commission = decimal.Zero
	}
	priority := t.Priority
	if priority < 0 {
		priority = 0
	}
	return ScoredTask{
		Task:        t,
		Value:       commission.InexactFloat64()*beta + e.params.Alpha*float64(priority),
		EffortUnits: e.EffortUnits(t.EffortHours),
	}
}

// MaxEffortUnits caps the units of a single task and of any sum of units, so
// huge or infinite effort saturates instead of wrapping negative.
const MaxEffortUnits = math.MaxInt32

// EffortUnits discretizes hours with round-half-away-from-zero, so 0.25h at
// granularity 10 is 3 units. The result is within [0, MaxEffortUnits].
func (e *Engine) EffortUnits(hours float64) int {
	if hours <= 0 || math.IsNaN(hours) {
		return 0
	}
	units := math.Round(hours * float64(e.params.Granularity))
	if units >= MaxEffortUnits {
		return MaxEffortUnits
	}
	return int(units)
}

// sumUnits adds non-negative units, saturating at MaxEffortUnits.
func sumUnits(items []ScoredTask) int {
	total := 0
	for _, it := range items {
		if it.EffortUnits <= 0 {
			continue
		}
		if it.EffortUnits >= MaxEffortUnits-total {
			return MaxEffortUnits
		}
		total += it.EffortUnits
	}
	return total
}
