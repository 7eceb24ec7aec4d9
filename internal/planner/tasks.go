package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prisken/client-crm-sub000/internal/hermes"
	"github.com/prisken/client-crm-sub000/internal/metrics"
	"github.com/prisken/client-crm-sub000/internal/store"
)

const (
	ChangeCreated   = "created"
	ChangeUpdated   = "updated"
	ChangeCompleted = "completed"
)

// ErrTaskClosed is returned when completing a task that is no longer open.
var ErrTaskClosed = errors.New("task is not open")

// CreateTask validates and stores a new open task for the agent.
func (s *Service) CreateTask(ctx context.Context, agentID string, task *store.Task) error {
	if agentID == "" {
		return ErrAgentRequired
	}
	if err := store.ValidateTask(task); err != nil {
		return err
	}
	task.AgentID = agentID
	task.Status = store.StatusOpen
	task.CompletedAt = nil
	if err := s.store.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	s.logger.Info("task created", "task_id", task.ID, "agent", agentID)
	s.taskChanged(task, ChangeCreated)
	return nil
}

// UpdateTask stores new planning fields for an existing task.
func (s *Service) UpdateTask(ctx context.Context, task *store.Task) error {
	if err := store.ValidateTask(task); err != nil {
		return err
	}
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	s.taskChanged(task, ChangeUpdated)
	return nil
}

// CompleteTask closes an open task. A positive earned amount is credited to
// the agent's commission target for the current month in the same store
// transaction, so concurrent completions of one task credit at most once.
func (s *Service) CompleteTask(ctx context.Context, agentID string, id uuid.UUID, earned decimal.Decimal) (*store.Task, error) {
	if agentID == "" {
		return nil, ErrAgentRequired
	}
	if earned.IsNegative() {
		return nil, fmt.Errorf("%w: earned must be non-negative, got %s", store.ErrInvalid, earned)
	}

	now := s.now()
	task, err := s.store.CompleteTask(ctx, agentID, id, now, store.MonthKey(now), earned)
	switch {
	case errors.Is(err, store.ErrNotOpen):
		return nil, ErrTaskClosed
	case errors.Is(err, store.ErrNotFound):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("complete task: %w", err)
	}

	s.logger.Info("task completed", "task_id", task.ID, "agent", task.AgentID, "earned", earned.String())
	s.taskChanged(task, ChangeCompleted)
	return task, nil
}

// CreditEarned atomically adds amount to the agent's earned commission for month.
func (s *Service) CreditEarned(ctx context.Context, agentID, month string, amount decimal.Decimal) (*store.CommissionTarget, error) {
	ct, err := s.store.AddEarned(ctx, agentID, month, amount)
	if err != nil {
		return nil, fmt.Errorf("credit earned: %w", err)
	}
	return ct, nil
}

// SetTarget records the agent's target and earned amount for a month.
func (s *Service) SetTarget(ctx context.Context, ct *store.CommissionTarget) error {
	if ct.AgentID == "" {
		return ErrAgentRequired
	}
	if err := store.ValidateTarget(ct); err != nil {
		return err
	}
	if err := s.store.UpsertCommissionTarget(ctx, ct); err != nil {
		return fmt.Errorf("set target: %w", err)
	}
	s.logger.Info("commission target set", "agent", ct.AgentID, "month", ct.Month,
		"target", ct.Target.String(), "earned", ct.Earned.String())
	return nil
}

func (s *Service) taskChanged(task *store.Task, change string) {
	metrics.TaskChanges.WithLabelValues(change).Inc()
	if s.hermes == nil {
		return
	}
	if err := s.hermes.Publish(hermes.SubjectTaskChanged(task.ID.String()), hermes.TaskChangedEvent{
		TaskID:  task.ID.String(),
		AgentID: task.AgentID,
		Change:  change,
	}); err != nil {
		s.logger.Warn("failed to publish task change", "task_id", task.ID, "error", err)
	}
}

// GetTask returns the agent's task. Tasks of other agents are reported as not found.
func (s *Service) GetTask(ctx context.Context, agentID string, id uuid.UUID) (*store.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.AgentID != agentID {
		return nil, store.ErrNotFound
	}
	return task, nil
}

// ListOpenTasks returns the agent's open tasks.
func (s *Service) ListOpenTasks(ctx context.Context, agentID string) ([]*store.Task, error) {
	if agentID == "" {
		return nil, ErrAgentRequired
	}
	tasks, err := s.store.ListOpenTasks(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("list open tasks: %w", err)
	}
	return tasks, nil
}

// GetTarget returns the agent's commission target for month.
func (s *Service) GetTarget(ctx context.Context, agentID, month string) (*store.CommissionTarget, error) {
	if err := store.ValidateMonth(month); err != nil {
		return nil, err
	}
	ct, err := s.store.GetCommissionTarget(ctx, agentID, month)
	if err != nil {
		return nil, fmt.Errorf("get commission target: %w", err)
	}
	return ct, nil
}
