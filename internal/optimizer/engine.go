// Package optimizer builds an agent's daily work queue.
//
// Tasks are scored by scaled expected commission plus a priority bonus,
// split into mandatory (due today, overdue or undated) and optional work,
// and the optional set is packed into the hours left after the mandatory
// work with a 0/1 knapsack. Every call is a pure function of its inputs;
// an Engine may be shared between goroutines.
package optimizer

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/prisken/client-crm-sub000/internal/store"
)

// Engine runs the allocation pipeline for a fixed set of parameters.
type Engine struct {
	params Params
}

// New creates an Engine. Callers are expected to have validated params.
func New(params Params) *Engine {
	return &Engine{params: params}
}

// Params returns the engine's parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Capacity converts a daily hour budget to effort units:
// floor(hours * granularity), with hours clamped to [0, MaxDailyHours].
func (e *Engine) Capacity(dailyHours float64) int {
	if math.IsNaN(dailyHours) {
		return 0
	}
	hours := clamp(dailyHours, 0, e.params.MaxDailyHours)
	// The epsilon absorbs binary representation error, e.g. 2.3h -> 23 units.
	return int(math.Floor(hours*float64(e.params.Granularity) + 1e-9))
}

// BuildQueue produces the ordered queue for today from the agent's open tasks.
//
// The monthly target and the amount already earned set the commission multiplier
// (see EstimateBeta). Mandatory tasks are always queued; if their effort exceeds
// the daily capacity the result is flagged as overloaded and no optional work is
// scheduled. Nil tasks are ignored.
func (e *Engine) BuildQueue(today time.Time, tasks []*store.Task, dailyHours float64, monthlyTarget, earnedSoFar decimal.Decimal) Result {
	beta := e.EstimateBeta(monthlyTarget, earnedSoFar)

	scored := make([]ScoredTask, 0, len(tasks))
	for _, t := range tasks {
		if t == nil {
			continue
		}
		scored = append(scored, e.Score(t, beta))
	}

	mandatory, optional := e.Partition(today, scored)
	capacity := e.Capacity(dailyHours)
	mandatoryUnits := sumUnits(mandatory)

	var selected []ScoredTask
	if mandatoryUnits <= capacity {
		selected = Knapsack(optional, capacity-mandatoryUnits)
	}

	res := e.Assemble(today, mandatory, selected, capacity)
	res.Beta = beta
	return res
}
