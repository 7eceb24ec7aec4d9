// Package planner runs the optimizer against stored CRM data and publishes
// the resulting queues.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/prisken/client-crm-sub000/internal/hermes"
	"github.com/prisken/client-crm-sub000/internal/metrics"
	"github.com/prisken/client-crm-sub000/internal/optimizer"
	"github.com/prisken/client-crm-sub000/internal/store"
)

var (
	// ErrInvalidDailyHours is returned for a daily budget above the engine's maximum.
	ErrInvalidDailyHours = errors.New("invalid daily hours")
	ErrAgentRequired     = errors.New("agent id required")
)

type Service struct {
	store  store.Store
	hermes hermes.Client
	engine *optimizer.Engine
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires a planner. h may be nil, in which case no events are published.
func NewService(s store.Store, h hermes.Client, engine *optimizer.Engine, logger *slog.Logger) *Service {
	return &Service{
		store:  s,
		hermes: h,
		engine: engine,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) Engine() *optimizer.Engine { return s.engine }

// Today returns the current time, used when callers leave the date unset.
func (s *Service) Today() time.Time { return s.now() }

// ResolveDailyHours maps a caller's budget to the one the engine runs with.
// Zero or negative means the configured default.
func (s *Service) ResolveDailyHours(hours float64) (float64, error) {
	p := s.engine.Params()
	switch {
	case math.IsNaN(hours) || math.IsInf(hours, 0):
		return 0, fmt.Errorf("%w: %v", ErrInvalidDailyHours, hours)
	case hours <= 0:
		return p.DefaultDailyHours, nil
	case hours > p.MaxDailyHours:
		return 0, fmt.Errorf("%w: %.2f exceeds %.2f", ErrInvalidDailyHours, hours, p.MaxDailyHours)
	}
	return hours, nil
}

func (s *Service) resolveDate(date time.Time) time.Time {
	if date.IsZero() {
		return s.now()
	}
	return date
}

// load fetches the agent's open tasks and the commission target for the month of today.
func (s *Service) load(ctx context.Context, agentID string, today time.Time) ([]*store.Task, *store.CommissionTarget, error) {
	if agentID == "" {
		return nil, nil, ErrAgentRequired
	}
	tasks, err := s.store.ListOpenTasks(ctx, agentID)
	if err != nil {
		return nil, nil, fmt.Errorf("list open tasks: %w", err)
	}
	target, err := s.store.GetCommissionTarget(ctx, agentID, store.MonthKey(today))
	if err != nil {
		return nil, nil, fmt.Errorf("get commission target: %w", err)
	}
	return tasks, target, nil
}

// BuildQueue computes the agent's queue for date (today when zero) and
// publishes it. Overloaded queues additionally emit an overload event.
func (s *Service) BuildQueue(ctx context.Context, agentID string, date time.Time, dailyHours float64) (optimizer.Result, error) {
	hours, err := s.ResolveDailyHours(dailyHours)
	if err != nil {
		return optimizer.Result{}, err
	}
	today := s.resolveDate(date)

	start := time.Now()
	tasks, target, err := s.load(ctx, agentID, today)
	if err != nil {
		return optimizer.Result{}, err
	}
	res := s.engine.BuildQueue(today, tasks, hours, target.Target, target.Earned)

	metrics.BuildDuration.Observe(time.Since(start).Seconds())
	metrics.QueuesBuilt.WithLabelValues(metrics.Outcome(res.OverloadDetected)).Inc()
	metrics.QueueLength.Observe(float64(len(res.Tasks)))

	s.logger.Debug("queue built", "agent", agentID, "date", today.Format("2006-01-02"),
		"tasks", len(res.Tasks), "overload", res.OverloadDetected, "beta", res.Beta)
	if res.OverloadDetected {
		s.logger.Warn("agent overloaded", "agent", agentID,
			"mandatory_units", res.MandatoryUnits, "capacity_units", res.CapacityUnits)
	}

	s.publishQueue(agentID, today, res)
	return res, nil
}

// WhatIf recomputes the queue as if modified were saved. Nothing is persisted
// or published.
func (s *Service) WhatIf(ctx context.Context, agentID string, modified *store.Task, date time.Time, dailyHours float64) (optimizer.Result, error) {
	if modified == nil {
		return optimizer.Result{}, fmt.Errorf("%w: modified task required", store.ErrInvalid)
	}
	if err := store.ValidateTask(modified); err != nil {
		return optimizer.Result{}, err
	}
	hours, err := s.ResolveDailyHours(dailyHours)
	if err != nil {
		return optimizer.Result{}, err
	}
	today := s.resolveDate(date)

	tasks, target, err := s.load(ctx, agentID, today)
	if err != nil {
		return optimizer.Result{}, err
	}
	metrics.WhatIfRequests.Inc()
	return s.engine.WhatIf(tasks, modified, today, hours, target.Target, target.Earned), nil
}

// Metrics builds the queue without publishing it and summarizes it.
func (s *Service) Metrics(ctx context.Context, agentID string, date time.Time, dailyHours float64) (optimizer.Summary, optimizer.Result, error) {
	hours, err := s.ResolveDailyHours(dailyHours)
	if err != nil {
		return optimizer.Summary{}, optimizer.Result{}, err
	}
	today := s.resolveDate(date)

	tasks, target, err := s.load(ctx, agentID, today)
	if err != nil {
		return optimizer.Summary{}, optimizer.Result{}, err
	}
	res := s.engine.BuildQueue(today, tasks, hours, target.Target, target.Earned)
	return optimizer.Metrics(res.Tasks, today), res, nil
}

func (s *Service) publishQueue(agentID string, today time.Time, res optimizer.Result) {
	if s.hermes == nil {
		return
	}
	now := s.now()
	date := today.Format("2006-01-02")
	g := float64(s.engine.Params().Granularity)

	entries := make([]hermes.QueueEntry, len(res.Entries))
	for i, e := range res.Entries {
		entries[i] = hermes.QueueEntry{
			TaskID:      e.Task.ID.String(),
			Title:       e.Task.Title,
			Value:       e.Value,
			EffortHours: float64(e.EffortUnits) / g,
			Mandatory:   e.Mandatory,
		}
	}
	if err := s.hermes.Publish(hermes.SubjectQueueBuilt(agentID), hermes.QueueBuiltEvent{
		AgentID:            agentID,
		Date:               date,
		Entries:            entries,
		OverloadDetected:   res.OverloadDetected,
		TotalExpectedValue: res.TotalExpectedValue,
		TotalEffortHours:   res.TotalEffortHours,
		Beta:               res.Beta,
		Timestamp:          now,
	}); err != nil {
		s.logger.Warn("failed to publish queue", "agent", agentID, "error", err)
	}

	if !res.OverloadDetected {
		return
	}
	if err := s.hermes.Publish(hermes.SubjectOverload(agentID), hermes.OverloadEvent{
		AgentID:        agentID,
		Date:           date,
		MandatoryHours: float64(res.MandatoryUnits) / g,
		CapacityHours:  float64(res.CapacityUnits) / g,
		MandatoryTasks: len(res.Tasks),
		Timestamp:      now,
	}); err != nil {
		s.logger.Warn("failed to publish overload", "agent", agentID, "error", err)
	}
}
