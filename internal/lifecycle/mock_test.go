package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/netwatch-oss/triggerkit/internal/trigger"
)

type mockStore struct {
	mu       sync.Mutex
	triggers []trigger.Trigger
	nextID   int

	listErr   error
	createErr error
	updateErr error
	deleteErr error

	// gate, when set, blocks writes until it is closed.
	gate    chan struct{}
	entered chan struct{}

	listCalls   atomic.Int32
	createCalls atomic.Int32
	updateCalls atomic.Int32
	deleteCalls atomic.Int32

	lastActor trigger.Actor
	lastWrite trigger.Trigger
}

func newMockStore(triggers ...trigger.Trigger) *mockStore {
	return &mockStore{triggers: triggers}
}

func (m *mockStore) wait() {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.gate != nil {
		<-m.gate
	}
}

func (m *mockStore) writes() int32 {
	return m.createCalls.Load() + m.updateCalls.Load() + m.deleteCalls.Load()
}

func (m *mockStore) ListTriggers(_ context.Context) ([]trigger.Trigger, error) {
	m.listCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]trigger.Trigger, len(m.triggers))
	for i := range m.triggers {
		out[i] = m.triggers[i].Clone()
	}
	return out, nil
}

func (m *mockStore) CreateTrigger(_ context.Context, actor trigger.Actor, t trigger.Trigger) (trigger.Trigger, error) {
	m.createCalls.Add(1)
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActor, m.lastWrite = actor, t.Clone()
	if m.createErr != nil {
		return trigger.Trigger{}, m.createErr
	}
	m.nextID++
	t.ID = fmt.Sprintf("t-%d", m.nextID)
	m.triggers = append(m.triggers, t.Clone())
	return t, nil
}

func (m *mockStore) UpdateTrigger(_ context.Context, actor trigger.Actor, t trigger.Trigger) (trigger.Trigger, error) {
	m.updateCalls.Add(1)
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActor, m.lastWrite = actor, t.Clone()
	if m.updateErr != nil {
		return trigger.Trigger{}, m.updateErr
	}
	for i := range m.triggers {
		if m.triggers[i].ID == t.ID {
			m.triggers[i] = t.Clone()
		}
	}
	return t, nil
}

func (m *mockStore) DeleteTrigger(_ context.Context, actor trigger.Actor, t trigger.Trigger) error {
	m.deleteCalls.Add(1)
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActor, m.lastWrite = actor, t.Clone()
	return m.deleteErr
}

type mockItems struct {
	calls atomic.Int32
	err   error
	items map[string][]trigger.Item
	gate  chan struct{}
}

func (m *mockItems) ListItems(_ context.Context, hostID string) ([]trigger.Item, error) {
	m.calls.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.items[hostID], nil
}
