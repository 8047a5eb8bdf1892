package oscmanager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dragCall struct {
	window   string
	duration time.Duration
}

type fakeAction struct {
	calls chan dragCall
	err   error
	block chan struct{}
}

func newFakeAction() *fakeAction {
	return &fakeAction{calls: make(chan dragCall, 16)}
}

func (a *fakeAction) PerformDrag(ctx context.Context, windowName string, duration time.Duration) error {
	a.calls <- dragCall{window: windowName, duration: duration}
	if a.block != nil {
		select {
		case <-a.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return a.err
}

type statusLog struct {
	mu      sync.Mutex
	entries []string
	levels  []Severity
}

func (s *statusLog) OnStatus(message string, severity Severity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, message)
	s.levels = append(s.levels, severity)
}

func (s *statusLog) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.entries...)
}

func encode(t *testing.T, addr string, args ...interface{}) []byte {
	t.Helper()
	b, err := osc.NewMessage(addr, args...).MarshalBinary()
	require.NoError(t, err)
	return b
}

func staticConfig(window string, d time.Duration) ConfigSource {
	return ConfigFunc(func() TriggerConfig {
		return TriggerConfig{WindowName: window, DragDuration: d}
	})
}

func TestIsTrigger(t *testing.T) {
	tests := []struct {
		name    string
		address string
		tag     string
		want    bool
	}{
		{"trigger", TriggerAddress, ",T", true},
		{"false value", TriggerAddress, ",F", false},
		{"extra argument", TriggerAddress, ",TF", false},
		{"float value", TriggerAddress, ",f", false},
		{"trailing slash", TriggerAddress + "/", ",T", false},
		{"different case", "/avatar/parameters/TON_SUICIDE", ",T", false},
		{"other parameter", "/avatar/parameters/TailTouch", ",T", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTrigger(&Message{Address: tt.address, TypeTag: tt.tag}))
		})
	}
	assert.False(t, IsTrigger(nil))
}

func TestDispatcherRunsActionOnTrigger(t *testing.T) {
	action := newFakeAction()
	d, err := NewDispatcher(DispatcherConfig{
		Action: action,
		Config: staticConfig("VRChat", 5*time.Second),
	})
	require.NoError(t, err)

	d.HandlePacket(encode(t, TriggerAddress, true))
	require.Len(t, action.calls, 1)
	assert.Equal(t, dragCall{window: "VRChat", duration: 5 * time.Second}, <-action.calls)
}

func TestDispatcherIgnoresOtherPackets(t *testing.T) {
	action := newFakeAction()
	d, err := NewDispatcher(DispatcherConfig{
		Action: action,
		Config: staticConfig("VRChat", time.Second),
	})
	require.NoError(t, err)

	d.HandlePacket(encode(t, TriggerAddress, false))
	d.HandlePacket(encode(t, TriggerAddress, true, false))
	d.HandlePacket(encode(t, "/avatar/parameters/other", true))
	d.HandlePacket([]byte("/avatar/parameters/ton_suicide"))
	d.HandlePacket(nil)
	d.HandlePacket(append([]byte("#bundle\x00"), make([]byte, 8)...))

	assert.Empty(t, action.calls)
}

func TestDispatcherReadsConfigPerTrigger(t *testing.T) {
	action := newFakeAction()
	var window atomic.Value
	window.Store("first")
	d, err := NewDispatcher(DispatcherConfig{
		Action: action,
		Config: ConfigFunc(func() TriggerConfig {
			return TriggerConfig{WindowName: window.Load().(string), DragDuration: time.Millisecond}
		}),
	})
	require.NoError(t, err)

	payload := encode(t, TriggerAddress, true)
	d.HandlePacket(payload)
	window.Store("second")
	d.HandlePacket(payload)

	assert.Equal(t, "first", (<-action.calls).window)
	assert.Equal(t, "second", (<-action.calls).window)
}

func TestDispatcherReportsActionErrors(t *testing.T) {
	action := newFakeAction()
	action.err = errors.New("window not found")
	status := &statusLog{}
	d, err := NewDispatcher(DispatcherConfig{
		Action: action,
		Config: staticConfig("Missing", time.Second),
		Status: status,
		Describe: func(err error) string {
			return "Error: Window Not Found"
		},
	})
	require.NoError(t, err)

	assert.NotPanics(t, func() { d.HandlePacket(encode(t, TriggerAddress, true)) })
	assert.Equal(t, []string{"Error: Window Not Found"}, status.messages())
	assert.Equal(t, []Severity{Error}, status.levels)
}

func TestDispatcherCloseCancelsDrag(t *testing.T) {
	action := newFakeAction()
	action.block = make(chan struct{})
	status := &statusLog{}
	d, err := NewDispatcher(DispatcherConfig{
		Action: action,
		Config: staticConfig("VRChat", time.Hour),
		Status: status,
	})
	require.NoError(t, err)

	payload := encode(t, TriggerAddress, true)
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.HandlePacket(payload)
	}()
	<-action.calls
	d.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("drag was not cancelled")
	}
	assert.Empty(t, status.messages(), "cancellation is not reported as a failure")
}

func TestNewDispatcherRequiresCollaborators(t *testing.T) {
	_, err := NewDispatcher(DispatcherConfig{Config: staticConfig("x", 0)})
	assert.Error(t, err)
	_, err = NewDispatcher(DispatcherConfig{Action: newFakeAction()})
	assert.Error(t, err)
}
