package oscmanager

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, handler PacketHandler, status StatusReporter) *OSCManager {
	t.Helper()
	o := New(Config{Host: "127.0.0.1", Handler: handler, Status: status})
	t.Cleanup(func() {
		o.Stop()
		o.Wait()
	})
	return o
}

func boundPort(t *testing.T, o *OSCManager) int {
	t.Helper()
	addr, ok := o.Addr().(*net.UDPAddr)
	require.True(t, ok, "listener must be bound to a UDP address")
	return addr.Port
}

func TestStartTwiceReturnsAlreadyRunning(t *testing.T) {
	o := newTestManager(t, nil, nil)

	require.NoError(t, o.Start(0))
	assert.True(t, o.IsRunning())

	err := o.Start(0)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.True(t, o.IsRunning())
	assert.Equal(t, Running, o.State())
}

func TestStartReportsBindError(t *testing.T) {
	first := newTestManager(t, nil, nil)
	require.NoError(t, first.Start(0))
	port := boundPort(t, first)

	status := &statusLog{}
	second := newTestManager(t, nil, status)
	err := second.Start(uint16(port))

	var bindErr *BindError
	require.True(t, errors.As(err, &bindErr), "got %v", err)
	assert.False(t, second.IsRunning())
	assert.Nil(t, second.Addr())
	require.Len(t, status.messages(), 1)
	assert.Contains(t, status.messages()[0], "Error: ")
}

func TestStopExitsPromptlyAndIsIdempotent(t *testing.T) {
	status := &statusLog{}
	o := newTestManager(t, nil, status)
	require.NoError(t, o.Start(0))

	stopped := make(chan struct{})
	go func() {
		o.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not unblock the receive loop")
	}
	assert.False(t, o.IsRunning())
	assert.Nil(t, o.Addr())

	o.Stop()
	assert.Equal(t, []string{"Status: Running", "Status: Stopped"}, status.messages())
}

func TestRestartAfterStop(t *testing.T) {
	o := newTestManager(t, nil, nil)
	require.NoError(t, o.Start(0))
	port := boundPort(t, o)
	o.Stop()

	require.NoError(t, o.Start(uint16(port)), "the port must be released by Stop")
	assert.True(t, o.IsRunning())
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	status := &statusLog{}
	o := newTestManager(t, nil, status)
	o.Stop()
	assert.False(t, o.IsRunning())
	assert.Empty(t, status.messages())
}

func TestTriggerOverUDP(t *testing.T) {
	action := newFakeAction()
	d, err := NewDispatcher(DispatcherConfig{
		Action: action,
		Config: staticConfig("VRChat", 5*time.Second),
	})
	require.NoError(t, err)

	o := newTestManager(t, d, nil)
	require.NoError(t, o.Start(0))

	client := osc.NewClient("127.0.0.1", boundPort(t, o))
	require.NoError(t, client.Send(osc.NewMessage("/avatar/parameters/other", true)))
	require.NoError(t, client.Send(osc.NewMessage(TriggerAddress, false)))
	require.NoError(t, client.Send(osc.NewMessage(TriggerAddress, true)))

	select {
	case call := <-action.calls:
		assert.Equal(t, dragCall{window: "VRChat", duration: 5 * time.Second}, call)
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not reach the action")
	}

	o.Stop()
	o.Wait()
	assert.Empty(t, action.calls)
}

func TestSlowHandlerDoesNotBlockReceive(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	seen := 0
	handler := PacketHandlerFunc(func(payload []byte) {
		mu.Lock()
		seen++
		mu.Unlock()
		<-release
	})

	o := newTestManager(t, handler, nil)
	require.NoError(t, o.Start(0))
	defer close(release)

	client := osc.NewClient("127.0.0.1", boundPort(t, o))
	for i := 0; i < 3; i++ {
		require.NoError(t, client.Send(osc.NewMessage(TriggerAddress, true)))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen == 3
	}, 2*time.Second, 10*time.Millisecond)
}

type failingConn struct {
	net.PacketConn
	err error
}

func (c *failingConn) ReadFrom([]byte) (int, net.Addr, error) { return 0, nil, c.err }

func TestFatalReceiveErrorStopsListener(t *testing.T) {
	status := &statusLog{}
	o := newTestManager(t, nil, status)
	o.listen = func(network, address string) (net.PacketConn, error) {
		conn, err := net.ListenPacket(network, address)
		if err != nil {
			return nil, err
		}
		return &failingConn{PacketConn: conn, err: errors.New("network is down")}, nil
	}

	require.NoError(t, o.Start(0))
	require.Eventually(t, func() bool { return !o.IsRunning() }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(status.messages()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Error: osc receive: network is down", status.messages()[1])

	o.Stop()
	assert.Len(t, status.messages(), 2, "Stop after a fatal exit is a no-op")
}

// slowCloseConn fails its first read and takes a while to release the port.
type slowCloseConn struct {
	failingConn
	closed atomic.Bool
}

func (c *slowCloseConn) Close() error {
	time.Sleep(100 * time.Millisecond)
	err := c.PacketConn.Close()
	c.closed.Store(true)
	return err
}

func TestStoppedAfterFatalErrorMeansPortIsFree(t *testing.T) {
	status := &statusLog{}
	o := newTestManager(t, nil, status)
	var first *slowCloseConn
	o.listen = func(network, address string) (net.PacketConn, error) {
		conn, err := net.ListenPacket(network, address)
		if err != nil || first != nil {
			return conn, err
		}
		first = &slowCloseConn{failingConn: failingConn{PacketConn: conn, err: errors.New("network is down")}}
		return first, nil
	}

	require.NoError(t, o.Start(0))
	port := first.LocalAddr().(*net.UDPAddr).Port
	require.Eventually(t, func() bool { return !o.IsRunning() }, 2*time.Second, time.Millisecond)

	assert.True(t, first.closed.Load(), "socket must be closed before the listener reports stopped")
	require.NoError(t, o.Start(uint16(port)))
	assert.Equal(t, []string{
		"Status: Running",
		"Error: osc receive: network is down",
		"Status: Running",
	}, status.messages())
}

func TestExpectedCloseErrors(t *testing.T) {
	assert.True(t, isExpectedCloseError(net.ErrClosed))
	assert.True(t, isExpectedCloseError(&net.OpError{Op: "read", Err: net.ErrClosed}))
	assert.False(t, isExpectedCloseError(nil))
	assert.False(t, isExpectedCloseError(errors.New("boom")))
}
