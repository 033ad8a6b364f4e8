package publish

import (
	"errors"
	"sync"
	"testing"

	"github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netwatch-oss/triggerkit/internal/conf"
	"github.com/netwatch-oss/triggerkit/internal/datastore/entities"
)

type fakeSender struct {
	mu     sync.Mutex
	msgs   []string
	params []*types.Params
	errs   []error
}

func (s *fakeSender) Send(message string, params *types.Params) []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, message)
	s.params = append(s.params, params)
	return s.errs
}

func TestMessage(t *testing.T) {
	t.Parallel()

	tr := entities.Trigger{ID: "t1", Name: "High CPU", Severity: "high", Expression: "avg(cpu_load,15m) > 90", Enabled: false}

	tests := []struct {
		name   string
		change Change
		want   string
	}{
		{"created", Change{Action: ActionCreated, Trigger: tr, Actor: "alice"},
			`Trigger "High CPU" created by alice: avg(cpu_load,15m) > 90 [high]`},
		{"toggled off", Change{Action: ActionToggled, Trigger: tr},
			`Trigger "High CPU" toggled off: avg(cpu_load,15m) > 90 [high]`},
		{"deleted", Change{Action: ActionDeleted, Trigger: tr, Actor: "bob"},
			`Trigger "High CPU" deleted by bob`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Message(tt.change))
		})
	}
}

func TestNotifier_Handle(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	n := newNotifier(s, conf.NotifySettings{Title: "triggerkit", Actions: []string{"Created", "deleted"}}, nil)

	n.Handle(Change{Action: ActionCreated, Trigger: entities.Trigger{Name: "a"}})
	n.Handle(Change{Action: ActionUpdated, Trigger: entities.Trigger{Name: "b"}})
	n.Handle(Change{Action: ActionDeleted, Trigger: entities.Trigger{Name: "c"}})

	require.Len(t, s.msgs, 2)
	assert.Contains(t, s.msgs[0], `"a" created`)
	assert.Contains(t, s.msgs[1], `"c" deleted`)
	require.NotNil(t, s.params[0])
	assert.Equal(t, "triggerkit", (*s.params[0])["title"])
}

func TestNotifier_DeliveryErrorsAreSwallowed(t *testing.T) {
	t.Parallel()

	s := &fakeSender{errs: []error{nil, errors.New("503 from ntfy")}}
	n := newNotifier(s, conf.NotifySettings{}, nil)

	assert.NotPanics(t, func() {
		n.Handle(Change{Action: ActionUpdated, Trigger: entities.Trigger{Name: "x"}})
	})
	require.Len(t, s.msgs, 1)
	assert.Nil(t, s.params[0])
}

func TestNewNotifier_Config(t *testing.T) {
	t.Parallel()

	_, err := NewNotifier(conf.NotifySettings{}, nil)
	require.Error(t, err)

	_, err = NewNotifier(conf.NotifySettings{URLs: []string{"nosuchservice://x"}}, nil)
	require.Error(t, err)

	n, err := NewNotifier(conf.NotifySettings{URLs: []string{"ntfy://ntfy.example.com/triggers"}}, nil)
	require.NoError(t, err)
	assert.NotNil(t, n)
}
