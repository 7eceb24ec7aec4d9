package optimizer

import (
	"time"
)

// IsDue reports whether a due date counts as due relative to today: absent,
// on the same calendar day (in today's location), or earlier.
//
// Undated tasks are treated as due now. This keeps the CRM's historical
// behaviour even though it makes every undated task mandatory.
func IsDue(due *time.Time, today time.Time) bool {
	if due == nil {
		return true
	}
	d := due.In(today.Location())
	dy, dm, dd := d.Date()
	ty, tm, td := today.Date()
	if dy == ty && dm == tm && dd == td {
		return true
	}
	return d.Before(today)
}

// Partition splits scored tasks into mandatory and optional sets, preserving
// input order within each. The Mandatory flag is set on the returned copies.
func (e *Engine) Partition(today time.Time, scored []ScoredTask) (mandatory, optional []ScoredTask) {
	for _, st := range scored {
		if IsDue(st.Task.DueDate, today) {
			st.Mandatory = true
			mandatory = append(mandatory, st)
		} else {
			st.Mandatory = false
			optional = append(optional, st)
		}
	}
	return mandatory, optional
}
