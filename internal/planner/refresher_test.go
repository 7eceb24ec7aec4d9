package planner

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prisken/client-crm-sub000/internal/hermes"
	"github.com/prisken/client-crm-sub000/internal/store"
)

func TestRefreshAllSkipsFailures(t *testing.T) {
	ms := &MockStore{}
	mh := &mockHermes{}
	svc := newTestService(ms, mh)
	r := NewRefresher(svc, mh, time.Hour, discardLogger())

	ms.On("ListAgentsWithOpenTasks", mock.Anything).Return([]string{"alice", "bob"}, nil)
	ms.On("ListOpenTasks", mock.Anything, "alice").Return(nil, errors.New("db down"))
	ms.On("ListOpenTasks", mock.Anything, "bob").Return([]*store.Task{task("bob", "a", 0, 1, 10, 0)}, nil)
	ms.On("GetCommissionTarget", mock.Anything, "bob", "2026-10").Return(target("bob", 0, 0), nil)

	n := r.RefreshAll(context.Background(), TriggerAdmin)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{hermes.SubjectQueueBuilt("bob")}, mh.subjects())
}

func TestRefreshAllListError(t *testing.T) {
	ms := &MockStore{}
	svc := newTestService(ms, nil)
	r := NewRefresher(svc, nil, time.Hour, discardLogger())
	ms.On("ListAgentsWithOpenTasks", mock.Anything).Return(nil, errors.New("db down"))

	assert.Equal(t, 0, r.RefreshAll(context.Background(), TriggerTick))
}

func TestTaskChangedTriggersRefresh(t *testing.T) {
	ms := &MockStore{}
	mh := &mockHermes{}
	svc := newTestService(ms, mh)
	r := NewRefresher(svc, mh, time.Hour, discardLogger())
	r.SetupSubscriptions()

	handler, ok := mh.handlers[hermes.SubjectTaskChangedAll]
	require.True(t, ok, "expected task changed subscription")

	tk := task("carol", "a", 0, 1, 10, 0)
	ms.On("ListOpenTasks", mock.Anything, "carol").Return([]*store.Task{tk}, nil)
	ms.On("GetCommissionTarget", mock.Anything, "carol", "2026-10").Return(target("carol", 0, 0), nil)

	data, _ := json.Marshal(hermes.TaskChangedEvent{TaskID: tk.ID.String(), AgentID: "carol", Change: ChangeUpdated})
	handler(hermes.SubjectTaskChanged(tk.ID.String()), data)

	assert.Equal(t, []string{hermes.SubjectQueueBuilt("carol")}, mh.subjects())
}

func TestTaskChangedResolvesAgentFromStore(t *testing.T) {
	ms := &MockStore{}
	mh := &mockHermes{}
	svc := newTestService(ms, mh)
	r := NewRefresher(svc, mh, time.Hour, discardLogger())

	tk := task("dave", "a", 0, 1, 10, 0)
	ms.On("GetTask", mock.Anything, tk.ID).Return(tk, nil)
	ms.On("ListOpenTasks", mock.Anything, "dave").Return([]*store.Task{tk}, nil)
	ms.On("GetCommissionTarget", mock.Anything, "dave", "2026-10").Return(target("dave", 0, 0), nil)

	r.handleTaskChanged(hermes.SubjectTaskChanged(tk.ID.String()), []byte(`{"task_id":"`+tk.ID.String()+`"}`))

	assert.Equal(t, []string{hermes.SubjectQueueBuilt("dave")}, mh.subjects())
	ms.AssertExpectations(t)
}

func TestTaskChangedIgnoresGarbage(t *testing.T) {
	ms := &MockStore{}
	mh := &mockHermes{}
	r := NewRefresher(newTestService(ms, mh), mh, time.Hour, discardLogger())

	r.handleTaskChanged("crm.task.not-a-uuid.changed", []byte(`{}`))
	r.handleTaskChanged("crm.task.x.changed", []byte(`not json`))

	assert.Empty(t, mh.subjects())
	ms.AssertNotCalled(t, "ListOpenTasks", mock.Anything, mock.Anything)
}

func TestRefresherStartStop(t *testing.T) {
	ms := &MockStore{}
	ms.On("ListAgentsWithOpenTasks", mock.Anything).Return([]string{}, nil)
	r := NewRefresher(newTestService(ms, nil), nil, 10*time.Millisecond, discardLogger())

	r.Start(context.Background())
	time.Sleep(35 * time.Millisecond)
	r.Stop()
	r.Stop()

	ms.AssertCalled(t, "ListAgentsWithOpenTasks", mock.Anything)
}
