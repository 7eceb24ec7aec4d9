package planner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prisken/client-crm-sub000/internal/hermes"
	"github.com/prisken/client-crm-sub000/internal/optimizer"
	"github.com/prisken/client-crm-sub000/internal/store"
)

// MockStore implements store.Store for testing.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateTask(ctx context.Context, task *store.Task) error {
	args := m.Called(ctx, task)
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockStore) GetTask(ctx context.Context, id uuid.UUID) (*store.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Task), args.Error(1)
}

func (m *MockStore) UpdateTask(ctx context.Context, task *store.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *MockStore) ListOpenTasks(ctx context.Context, agentID string) ([]*store.Task, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Task), args.Error(1)
}

func (m *MockStore) ListAgentsWithOpenTasks(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) GetCommissionTarget(ctx context.Context, agentID, month string) (*store.CommissionTarget, error) {
	args := m.Called(ctx, agentID, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.CommissionTarget), args.Error(1)
}

func (m *MockStore) UpsertCommissionTarget(ctx context.Context, ct *store.CommissionTarget) error {
	return m.Called(ctx, ct).Error(0)
}

func (m *MockStore) AddEarned(ctx context.Context, agentID, month string, amount decimal.Decimal) (*store.CommissionTarget, error) {
	args := m.Called(ctx, agentID, month, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.CommissionTarget), args.Error(1)
}

func (m *MockStore) CompleteTask(ctx context.Context, agentID string, id uuid.UUID, completedAt time.Time, month string, earned decimal.Decimal) (*store.Task, error) {
	args := m.Called(ctx, agentID, id, completedAt, month, earned)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Task), args.Error(1)
}

func (m *MockStore) Close() error { return nil }

type published struct {
	subject string
	data    any
}

type mockHermes struct {
	mu        sync.Mutex
	published []published
	handlers  map[string]func(string, []byte)
}

func (m *mockHermes) Publish(subject string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, published{subject, data})
	return nil
}

func (m *mockHermes) Subscribe(subject string, handler func(string, []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = make(map[string]func(string, []byte))
	}
	m.handlers[subject] = handler
	return nil
}

func (m *mockHermes) Close() {}

func (m *mockHermes) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.published))
	for i, p := range m.published {
		out[i] = p.subject
	}
	return out
}

var refDay = time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(ms *MockStore, mh *mockHermes) *Service {
	var h hermes.Client
	if mh != nil {
		h = mh
	}
	svc := NewService(ms, h, optimizer.New(optimizer.DefaultParams()), discardLogger())
	svc.now = func() time.Time { return refDay }
	return svc
}

func task(agent, title string, dueDays int, hours float64, commission int64, priority int) *store.Task {
	due := refDay.AddDate(0, 0, dueDays)
	return &store.Task{
		ID:                  uuid.New(),
		AgentID:             agent,
		Title:               title,
		Status:              store.StatusOpen,
		DueDate:             &due,
		Priority:            priority,
		EffortHours:         hours,
		EstimatedCommission: decimal.NewFromInt(commission),
		Probability:         0.5,
	}
}

func target(agent string, amount, earned int64) *store.CommissionTarget {
	return &store.CommissionTarget{
		AgentID: agent,
		Month:   "2026-10",
		Target:  decimal.NewFromInt(amount),
		Earned:  decimal.NewFromInt(earned),
	}
}

func TestResolveDailyHours(t *testing.T) {
	svc := newTestService(&MockStore{}, nil)

	tests := []struct {
		in      float64
		want    float64
		wantErr bool
	}{
		{0, 8, false},
		{-2, 8, false},
		{6.5, 6.5, false},
		{24, 24, false},
		{24.5, 0, true},
	}
	for _, tt := range tests {
		got, err := svc.ResolveDailyHours(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidDailyHours, "hours %v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestBuildQueuePublishesQueue(t *testing.T) {
	ms := &MockStore{}
	mh := &mockHermes{}
	svc := newTestService(ms, mh)

	m := task("alice", "mandatory", 0, 3, 100, 1)
	x := task("alice", "x", 1, 2, 50, 0)
	y := task("alice", "y", 1, 4, 90, 0)
	ms.On("ListOpenTasks", mock.Anything, "alice").Return([]*store.Task{m, x, y}, nil)
	ms.On("GetCommissionTarget", mock.Anything, "alice", "2026-10").Return(target("alice", 1000, 1000), nil)

	res, err := svc.BuildQueue(context.Background(), "alice", time.Time{}, 8)
	require.NoError(t, err)

	assert.False(t, res.OverloadDetected)
	require.Len(t, res.Tasks, 2)
	assert.Equal(t, m.ID, res.Tasks[0].ID)
	assert.Equal(t, y.ID, res.Tasks[1].ID)
	assert.InDelta(t, 190.1, res.TotalExpectedValue, 1e-9)

	assert.Equal(t, []string{hermes.SubjectQueueBuilt("alice")}, mh.subjects())
	evt, ok := mh.published[0].data.(hermes.QueueBuiltEvent)
	require.True(t, ok)
	assert.Equal(t, "2026-10-19", evt.Date)
	require.Len(t, evt.Entries, 2)
	assert.True(t, evt.Entries[0].Mandatory)
	assert.InDelta(t, 4.0, evt.Entries[1].EffortHours, 1e-9)
	ms.AssertExpectations(t)
}

func TestBuildQueueOverloadEvent(t *testing.T) {
	ms := &MockStore{}
	mh := &mockHermes{}
	svc := newTestService(ms, mh)

	ms.On("ListOpenTasks", mock.Anything, "bob").Return([]*store.Task{
		task("bob", "a", 0, 3, 10, 1),
		task("bob", "b", -1, 3, 20, 1),
		task("bob", "c", 3, 0.5, 1000, 2),
	}, nil)
	ms.On("GetCommissionTarget", mock.Anything, "bob", "2026-10").Return(target("bob", 0, 0), nil)

	res, err := svc.BuildQueue(context.Background(), "bob", time.Time{}, 4)
	require.NoError(t, err)
	assert.True(t, res.OverloadDetected)
	assert.Len(t, res.Tasks, 2)

	assert.Equal(t, []string{hermes.SubjectQueueBuilt("bob"), hermes.SubjectOverload("bob")}, mh.subjects())
	evt := mh.published[1].data.(hermes.OverloadEvent)
	assert.InDelta(t, 6.0, evt.MandatoryHours, 1e-9)
	assert.InDelta(t, 4.0, evt.CapacityHours, 1e-9)
	assert.Equal(t, 2, evt.MandatoryTasks)
}

func TestBuildQueueUsesMonthOfDate(t *testing.T) {
	ms := &MockStore{}
	svc := newTestService(ms, nil)

	date := time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC)
	ms.On("ListOpenTasks", mock.Anything, "alice").Return([]*store.Task{}, nil)
	ms.On("GetCommissionTarget", mock.Anything, "alice", "2026-12").Return(target("alice", 500, 0), nil)

	res, err := svc.BuildQueue(context.Background(), "alice", date, 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.Beta)
	assert.Equal(t, 80, res.CapacityUnits)
	ms.AssertExpectations(t)
}

func TestBuildQueueErrors(t *testing.T) {
	t.Run("invalid hours skips the store", func(t *testing.T) {
		ms := &MockStore{}
		svc := newTestService(ms, nil)
		_, err := svc.BuildQueue(context.Background(), "alice", time.Time{}, 30)
		assert.ErrorIs(t, err, ErrInvalidDailyHours)
		ms.AssertNotCalled(t, "ListOpenTasks", mock.Anything, mock.Anything)
	})

	t.Run("agent required", func(t *testing.T) {
		svc := newTestService(&MockStore{}, nil)
		_, err := svc.BuildQueue(context.Background(), "", time.Time{}, 8)
		assert.ErrorIs(t, err, ErrAgentRequired)
	})

	t.Run("store failure", func(t *testing.T) {
		ms := &MockStore{}
		mh := &mockHermes{}
		svc := newTestService(ms, mh)
		boom := errors.New("boom")
		ms.On("ListOpenTasks", mock.Anything, "alice").Return(nil, boom)

		_, err := svc.BuildQueue(context.Background(), "alice", time.Time{}, 8)
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, mh.subjects())
	})
}

func TestWhatIfDoesNotPublish(t *testing.T) {
	ms := &MockStore{}
	mh := &mockHermes{}
	svc := newTestService(ms, mh)

	a := task("alice", "a", 2, 6, 100, 0)
	b := task("alice", "b", 2, 6, 200, 0)
	ms.On("ListOpenTasks", mock.Anything, "alice").Return([]*store.Task{a, b}, nil)
	ms.On("GetCommissionTarget", mock.Anything, "alice", "2026-10").Return(target("alice", 0, 0), nil)

	modified := *a
	modified.EstimatedCommission = decimal.NewFromInt(500)

	res, err := svc.WhatIf(context.Background(), "alice", &modified, time.Time{}, 8)
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "a", res.Tasks[0].Title)
	assert.True(t, a.EstimatedCommission.Equal(decimal.NewFromInt(100)), "stored task must be untouched")
	assert.Empty(t, mh.subjects())
}

func TestWhatIfValidation(t *testing.T) {
	svc := newTestService(&MockStore{}, nil)

	_, err := svc.WhatIf(context.Background(), "alice", nil, time.Time{}, 8)
	assert.Error(t, err)

	bad := task("alice", "bad", 0, -1, 10, 0)
	_, err = svc.WhatIf(context.Background(), "alice", bad, time.Time{}, 8)
	assert.Error(t, err)
}

func TestServiceMetrics(t *testing.T) {
	ms := &MockStore{}
	svc := newTestService(ms, nil)

	a := task("alice", "a", 0, 2, 100, 2)
	b := task("alice", "b", 0, 2, 300, 1)
	b.Probability = 0.2
	ms.On("ListOpenTasks", mock.Anything, "alice").Return([]*store.Task{a, b}, nil)
	ms.On("GetCommissionTarget", mock.Anything, "alice", "2026-10").Return(target("alice", 0, 0), nil)

	summary, res, err := svc.Metrics(context.Background(), "alice", time.Time{}, 8)
	require.NoError(t, err)
	assert.Len(t, res.Tasks, 2)
	assert.True(t, summary.TotalExpectedCommission.Equal(decimal.NewFromInt(110)))
	assert.True(t, summary.AverageValuePerHour.Equal(decimal.NewFromFloat(27.5)))
	assert.InDelta(t, 0.5, summary.Efficiency, 1e-12)
}

func TestCreateTask(t *testing.T) {
	ms := &MockStore{}
	mh := &mockHermes{}
	svc := newTestService(ms, mh)
	ms.On("CreateTask", mock.Anything, mock.AnythingOfType("*store.Task")).Return(nil)

	tk := &store.Task{Title: "call client", EffortHours: 1, EstimatedCommission: decimal.NewFromInt(40), Status: store.StatusCompleted}
	require.NoError(t, svc.CreateTask(context.Background(), "alice", tk))

	assert.Equal(t, "alice", tk.AgentID)
	assert.Equal(t, store.StatusOpen, tk.Status)
	require.Equal(t, []string{hermes.SubjectTaskChanged(tk.ID.String())}, mh.subjects())
	evt := mh.published[0].data.(hermes.TaskChangedEvent)
	assert.Equal(t, ChangeCreated, evt.Change)
	assert.Equal(t, "alice", evt.AgentID)
}

func TestCreateTaskRejectsInvalid(t *testing.T) {
	ms := &MockStore{}
	svc := newTestService(ms, nil)
	err := svc.CreateTask(context.Background(), "alice", &store.Task{Title: "x", Probability: 2})
	assert.Error(t, err)
	ms.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)
}

func decimalEq(v int64) any {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(v)) })
}

func completed(tk *store.Task) *store.Task {
	done := *tk
	done.Status = store.StatusCompleted
	at := refDay
	done.CompletedAt = &at
	return &done
}

func TestCompleteTaskCreditsEarned(t *testing.T) {
	ms := &MockStore{}
	mh := &mockHermes{}
	svc := newTestService(ms, mh)

	tk := task("alice", "deal", 0, 2, 300, 1)
	ms.On("CompleteTask", mock.Anything, "alice", tk.ID, refDay, "2026-10", decimalEq(300)).Return(completed(tk), nil)

	done, err := svc.CompleteTask(context.Background(), "alice", tk.ID, decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, []string{hermes.SubjectTaskChanged(tk.ID.String())}, mh.subjects())
	evt := mh.published[0].data.(hermes.TaskChangedEvent)
	assert.Equal(t, ChangeCompleted, evt.Change)
	ms.AssertExpectations(t)
	ms.AssertNotCalled(t, "UpsertCommissionTarget", mock.Anything, mock.Anything)
}

func TestCompleteTaskWithoutEarnings(t *testing.T) {
	ms := &MockStore{}
	svc := newTestService(ms, nil)

	tk := task("alice", "follow up", 0, 1, 0, 0)
	ms.On("CompleteTask", mock.Anything, "alice", tk.ID, refDay, "2026-10", decimalEq(0)).Return(completed(tk), nil)

	_, err := svc.CompleteTask(context.Background(), "alice", tk.ID, decimal.Zero)
	require.NoError(t, err)
	ms.AssertExpectations(t)
}

func TestCompleteTaskErrors(t *testing.T) {
	t.Run("already closed", func(t *testing.T) {
		ms := &MockStore{}
		svc := newTestService(ms, nil)
		id := uuid.New()
		ms.On("CompleteTask", mock.Anything, "alice", id, refDay, "2026-10", mock.Anything).Return(nil, store.ErrNotOpen)

		_, err := svc.CompleteTask(context.Background(), "alice", id, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, ErrTaskClosed)
	})

	t.Run("not found", func(t *testing.T) {
		ms := &MockStore{}
		svc := newTestService(ms, nil)
		id := uuid.New()
		ms.On("CompleteTask", mock.Anything, "alice", id, refDay, "2026-10", mock.Anything).Return(nil, store.ErrNotFound)

		_, err := svc.CompleteTask(context.Background(), "alice", id, decimal.Zero)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		ms := &MockStore{}
		mh := &mockHermes{}
		svc := newTestService(ms, mh)
		id := uuid.New()
		ms.On("CompleteTask", mock.Anything, "alice", id, refDay, "2026-10", mock.Anything).Return(nil, errors.New("connection reset"))

		_, err := svc.CompleteTask(context.Background(), "alice", id, decimal.Zero)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrTaskClosed)
		assert.Empty(t, mh.subjects())
	})

	t.Run("negative earnings", func(t *testing.T) {
		ms := &MockStore{}
		svc := newTestService(ms, nil)
		_, err := svc.CompleteTask(context.Background(), "alice", uuid.New(), decimal.NewFromInt(-1))
		assert.ErrorIs(t, err, store.ErrInvalid)
		ms.AssertNotCalled(t, "CompleteTask", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing agent", func(t *testing.T) {
		svc := newTestService(&MockStore{}, nil)
		_, err := svc.CompleteTask(context.Background(), "", uuid.New(), decimal.Zero)
		assert.ErrorIs(t, err, ErrAgentRequired)
	})
}

func TestCompleteTaskOtherAgent(t *testing.T) {
	ms := &MockStore{}
	mh := &mockHermes{}
	svc := newTestService(ms, mh)
	tk := task("bob", "not yours", 0, 1, 10, 0)
	ms.On("CompleteTask", mock.Anything, "alice", tk.ID, refDay, "2026-10", mock.Anything).Return(nil, store.ErrNotFound)

	_, err := svc.CompleteTask(context.Background(), "alice", tk.ID, decimal.Zero)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, mh.subjects())
	ms.AssertNotCalled(t, "UpdateTask", mock.Anything, mock.Anything)
}

func TestCreditEarnedIsSingleStoreCall(t *testing.T) {
	ms := &MockStore{}
	svc := newTestService(ms, nil)
	ms.On("AddEarned", mock.Anything, "alice", "2026-10", decimalEq(50)).Return(target("alice", 1000, 300), nil)

	ct, err := svc.CreditEarned(context.Background(), "alice", "2026-10", decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, ct.Earned.Equal(decimal.NewFromInt(300)))
	ms.AssertNotCalled(t, "GetCommissionTarget", mock.Anything, mock.Anything, mock.Anything)
	ms.AssertNotCalled(t, "UpsertCommissionTarget", mock.Anything, mock.Anything)
}

func TestGetTarget(t *testing.T) {
	ms := &MockStore{}
	svc := newTestService(ms, nil)
	ms.On("GetCommissionTarget", mock.Anything, "alice", "2026-10").Return(target("alice", 100, 5), nil)

	ct, err := svc.GetTarget(context.Background(), "alice", "2026-10")
	require.NoError(t, err)
	assert.True(t, ct.Target.Equal(decimal.NewFromInt(100)))

	_, err = svc.GetTarget(context.Background(), "alice", "October")
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestSetTarget(t *testing.T) {
	ms := &MockStore{}
	svc := newTestService(ms, nil)
	ct := target("alice", 5000, 0)
	ms.On("UpsertCommissionTarget", mock.Anything, ct).Return(nil)

	require.NoError(t, svc.SetTarget(context.Background(), ct))

	bad := target("alice", 5000, 0)
	bad.Month = "2026-13"
	assert.Error(t, svc.SetTarget(context.Background(), bad))
	ms.AssertNumberOfCalls(t, "UpsertCommissionTarget", 1)
}
