package optimizer

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/prisken/client-crm-sub000/internal/store"
)

// Substitute returns a new slice where modified replaces the first task with
// the same ID, or is appended when there is none. base is not modified.
func Substitute(base []*store.Task, modified *store.Task) []*store.Task {
	out := make([]*store.Task, 0, len(base)+1)
	replaced := modified == nil
	for _, t := range base {
		if !replaced && t != nil && t.ID == modified.ID {
			out = append(out, modified)
			replaced = true
			continue
		}
		out = append(out, t)
	}
	if !replaced {
		out = append(out, modified)
	}
	return out
}

// WhatIf rebuilds the queue as if modified were part of the agent's open tasks.
// Neither base nor any task in it is mutated.
func (e *Engine) WhatIf(base []*store.Task, modified *store.Task, today time.Time, dailyHours float64, monthlyTarget, earnedSoFar decimal.Decimal) Result {
	return e.BuildQueue(today, Substitute(base, modified), dailyHours, monthlyTarget, earnedSoFar)
}
