package planner

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prisken/client-crm-sub000/internal/hermes"
	"github.com/prisken/client-crm-sub000/internal/metrics"
)

const (
	TriggerTick  = "tick"
	TriggerEvent = "event"
	TriggerAdmin = "admin"
)

const eventRefreshTimeout = 30 * time.Second

// Refresher keeps published queues current: periodically for every agent with
// open work, and immediately for an agent whose task changed.
type Refresher struct {
	svc      *Service
	hermes   hermes.Client
	interval time.Duration
	logger   *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewRefresher(svc *Service, h hermes.Client, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		svc:      svc,
		hermes:   h,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (r *Refresher) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.refreshLoop(ctx)
}

func (r *Refresher) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *Refresher) refreshLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshAll(ctx, TriggerTick)
		}
	}
}

// RefreshAll rebuilds today's queue for every agent with open tasks and returns
// how many were rebuilt. Failures are logged and skipped.
func (r *Refresher) RefreshAll(ctx context.Context, trigger string) int {
	agents, err := r.svc.store.ListAgentsWithOpenTasks(ctx)
	if err != nil {
		r.logger.Error("failed to list agents", "error", err)
		return 0
	}

	r.logger.Info("refreshing queues", "agents", len(agents), "trigger", trigger)
	refreshed := 0
	for _, agentID := range agents {
		if ctx.Err() != nil {
			break
		}
		if err := r.RefreshAgent(ctx, agentID, trigger); err != nil {
			r.logger.Warn("failed to refresh queue", "agent", agentID, "error", err)
			continue
		}
		refreshed++
	}
	return refreshed
}

// RefreshAgent rebuilds and publishes one agent's queue with the default budget.
func (r *Refresher) RefreshAgent(ctx context.Context, agentID, trigger string) error {
	metrics.RefreshRuns.WithLabelValues(trigger).Inc()
	_, err := r.svc.BuildQueue(ctx, agentID, time.Time{}, 0)
	return err
}

// SetupSubscriptions registers NATS subscriptions for task changes and
// refresh requests.
func (r *Refresher) SetupSubscriptions() {
	if r.hermes == nil {
		return
	}

	if err := r.hermes.Subscribe(hermes.SubjectTaskChangedAll, func(subject string, data []byte) {
		r.handleTaskChanged(subject, data)
	}); err != nil {
		r.logger.Error("failed to subscribe", "subject", hermes.SubjectTaskChangedAll, "error", err)
	}

	if err := r.hermes.Subscribe(hermes.SubjectRefreshAll, func(_ string, data []byte) {
		var req hermes.RefreshRequestEvent
		if len(data) > 0 {
			if err := json.Unmarshal(data, &req); err != nil {
				r.logger.Warn("invalid refresh request", "error", err)
				return
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), eventRefreshTimeout)
		defer cancel()
		if req.AgentID == "" {
			r.RefreshAll(ctx, TriggerEvent)
			return
		}
		if err := r.RefreshAgent(ctx, req.AgentID, TriggerEvent); err != nil {
			r.logger.Warn("failed to refresh queue", "agent", req.AgentID, "error", err)
		}
	}); err != nil {
		r.logger.Error("failed to subscribe", "subject", hermes.SubjectRefreshAll, "error", err)
	}
}

func (r *Refresher) handleTaskChanged(subject string, data []byte) {
	var evt hermes.TaskChangedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		r.logger.Warn("invalid task changed event", "subject", subject, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventRefreshTimeout)
	defer cancel()

	agentID := evt.AgentID
	if agentID == "" {
		// Events from other CRM writers may omit the agent; resolve it from the task.
		taskID, ok := hermes.TaskIDFromSubject(subject)
		if !ok {
			return
		}
		id, err := uuid.Parse(taskID)
		if err != nil {
			return
		}
		task, err := r.svc.store.GetTask(ctx, id)
		if err != nil {
			r.logger.Warn("failed to resolve task agent", "task_id", taskID, "error", err)
			return
		}
		agentID = task.AgentID
	}

	if err := r.RefreshAgent(ctx, agentID, TriggerEvent); err != nil {
		r.logger.Warn("failed to refresh queue", "agent", agentID, "error", err)
	}
}
