package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prisken/client-crm-sub000/internal/store"
)

const dateLayout = "2006-01-02"

// TaskInput is the writable part of a task. DueDate accepts either a date
// (YYYY-MM-DD, midnight UTC) or an RFC 3339 timestamp.
type TaskInput struct {
	TaskID              *uuid.UUID      `json:"task_id,omitempty"`
	ClientID            *uuid.UUID      `json:"client_id,omitempty"`
	Title               string          `json:"title"`
	Notes               string          `json:"notes,omitempty"`
	DueDate             string          `json:"due_date,omitempty"`
	Priority            int             `json:"priority"`
	EffortHours         float64         `json:"effort_hours"`
	EstimatedCommission decimal.Decimal `json:"estimated_commission"`
	Probability         *float64        `json:"probability,omitempty"`
}

func parseDue(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: due_date must be YYYY-MM-DD or RFC 3339, got %q", store.ErrInvalid, s)
	}
	return &t, nil
}

// inputFrom returns the writable fields of task, so a request body decoded
// on top of it only changes the fields it names.
func inputFrom(task *store.Task) TaskInput {
	in := TaskInput{
		ClientID:            task.ClientID,
		Title:               task.Title,
		Notes:               task.Notes,
		Priority:            task.Priority,
		EffortHours:         task.EffortHours,
		EstimatedCommission: task.EstimatedCommission,
	}
	if task.DueDate != nil {
		in.DueDate = task.DueDate.Format(time.RFC3339Nano)
	}
	p := task.Probability
	in.Probability = &p
	return in
}

// apply copies the input onto task. An omitted probability leaves the task's
// current value.
func (in *TaskInput) apply(task *store.Task) error {
	due, err := parseDue(in.DueDate)
	if err != nil {
		return err
	}
	task.ClientID = in.ClientID
	task.Title = in.Title
	task.Notes = in.Notes
	task.DueDate = due
	task.Priority = in.Priority
	task.EffortHours = in.EffortHours
	task.EstimatedCommission = in.EstimatedCommission
	if in.Probability != nil {
		task.Probability = *in.Probability
	}
	return nil
}

// planParams reads the optional date and daily_hours query parameters.
// A missing date means today; a missing budget means the default.
func planParams(r *http.Request) (time.Time, float64, error) {
	q := r.URL.Query()
	return parsePlan(q.Get("date"), q.Get("daily_hours"))
}

func parsePlan(dateStr, hoursStr string) (time.Time, float64, error) {
	var date time.Time
	if dateStr != "" {
		d, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", store.ErrInvalid, dateStr)
		}
		date = d
	}
	var hours float64
	if hoursStr != "" {
		h, err := strconv.ParseFloat(hoursStr, 64)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("%w: daily_hours must be a number, got %q", store.ErrInvalid, hoursStr)
		}
		hours = h
	}
	return date, hours, nil
}
