package optimizer

import (
	"sort"
	"time"

	"github.com/prisken/client-crm-sub000/internal/store"
)

// Result is the outcome of one allocation run.
type Result struct {
	// Tasks is the final queue, in execution order.
	Tasks []*store.Task `json:"-"`
	// Entries mirrors Tasks with the scores that ordered them.
	Entries          []ScoredTask `json:"entries"`
	OverloadDetected bool         `json:"overload_detected"`
	// TotalExpectedValue sums Value over the queue. It includes the priority
	// bonus and the beta multiplier, so it is not an amount of commission.
	TotalExpectedValue float64 `json:"total_expected_value"`
	TotalEffortHours   float64 `json:"total_effort_hours"`

	Beta           float64 `json:"beta"`
	CapacityUnits  int     `json:"capacity_units"`
	MandatoryUnits int     `json:"mandatory_units"`
}

// Assemble merges mandatory and selected optional work into the final queue.
//
// When mandatory effort exceeds capacity the result is overloaded and holds only
// the mandatory tasks in input order. Otherwise the queue is ordered by: due or
// overdue first, Value descending, Priority descending, then input order.
func (e *Engine) Assemble(today time.Time, mandatory, selected []ScoredTask, capacity int) Result {
	mandatoryUnits := sumUnits(mandatory)

	if mandatoryUnits > capacity {
		entries := make([]ScoredTask, len(mandatory))
		copy(entries, mandatory)
		return e.newResult(entries, true, capacity, mandatoryUnits)
	}

	combined := make([]ScoredTask, 0, len(mandatory)+len(selected))
	combined = append(combined, mandatory...)
	combined = append(combined, selected...)

	sort.SliceStable(combined, func(i, j int) bool {
		a, b := combined[i], combined[j]
		aDue, bDue := IsDue(a.Task.DueDate, today), IsDue(b.Task.DueDate, today)
		if aDue != bDue {
			return aDue
		}
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.Task.Priority > b.Task.Priority
	})

	return e.newResult(combined, false, capacity, mandatoryUnits)
}

func (e *Engine) newResult(entries []ScoredTask, overload bool, capacity, mandatoryUnits int) Result {
	res := Result{
		Tasks:            make([]*store.Task, len(entries)),
		Entries:          entries,
		OverloadDetected: overload,
		CapacityUnits:    capacity,
		MandatoryUnits:   mandatoryUnits,
	}
	for i, st := range entries {
		res.Tasks[i] = st.Task
		res.TotalExpectedValue += st.Value
	}
	res.TotalEffortHours = float64(sumUnits(entries)) / float64(e.params.Granularity)
	return res
}
