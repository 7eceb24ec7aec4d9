package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a task or target does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotOpen is returned when completing a task that is no longer open.
var ErrNotOpen = errors.New("task is not open")

type TaskStatus string

const (
	StatusOpen      TaskStatus = "open"
	StatusCompleted TaskStatus = "completed"
	StatusCancelled TaskStatus = "cancelled"
)

// Task is a CRM work item owned by an agent.
type Task struct {
	ID       uuid.UUID  `json:"task_id"`
	AgentID  string     `json:"agent_id"`
	ClientID *uuid.UUID `json:"client_id,omitempty"`
	Title    string     `json:"title"`
	Notes    string     `json:"notes,omitempty"`
	Status   TaskStatus `json:"status"`

	// Planning inputs
	DueDate             *time.Time      `json:"due_date,omitempty"`
	Priority            int             `json:"priority"`
	EffortHours         float64         `json:"effort_hours"`
	EstimatedCommission decimal.Decimal `json:"estimated_commission"`
	Probability         float64         `json:"probability"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CommissionTarget is an agent's commission goal for one calendar month.
type CommissionTarget struct {
	AgentID   string          `json:"agent_id"`
	Month     string          `json:"month"` // YYYY-MM
	Target    decimal.Decimal `json:"target"`
	Earned    decimal.Decimal `json:"earned"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MonthKey formats the month a date falls in, as stored in CommissionTarget.Month.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

type Store interface {
	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*Task, error)
	UpdateTask(ctx context.Context, task *Task) error

	// ListOpenTasks returns the agent's open tasks ordered by creation time.
	ListOpenTasks(ctx context.Context, agentID string) ([]*Task, error)
	ListAgentsWithOpenTasks(ctx context.Context) ([]string, error)

	// GetCommissionTarget returns a zero target when none is recorded for the month.
	GetCommissionTarget(ctx context.Context, agentID, month string) (*CommissionTarget, error)
	UpsertCommissionTarget(ctx context.Context, target *CommissionTarget) error
	// AddEarned atomically adds amount to the month's earned commission,
	// creating a zero-target row when none exists.
	AddEarned(ctx context.Context, agentID, month string, amount decimal.Decimal) (*CommissionTarget, error)

	// CompleteTask closes the agent's open task and, when earned is positive,
	// adds it to the agent's earned commission for month, in one transaction.
	// Another agent's task is ErrNotFound; a task that is not open is ErrNotOpen.
	CompleteTask(ctx context.Context, agentID string, id uuid.UUID, completedAt time.Time, month string, earned decimal.Decimal) (*Task, error)

	Close() error
}
