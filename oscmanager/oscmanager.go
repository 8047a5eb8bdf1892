package oscmanager

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"strconv"
	"sync"
)

// maxDatagram is the largest UDP payload.
const maxDatagram = 65535

// State of an OSCManager.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// PacketHandler processes one datagram. Each call runs on its own goroutine.
type PacketHandler interface {
	HandlePacket(payload []byte)
}

// PacketHandlerFunc adapts a function to PacketHandler.
type PacketHandlerFunc func(payload []byte)

func (f PacketHandlerFunc) HandlePacket(payload []byte) { f(payload) }

// Config configures an OSCManager.
type Config struct {
	// Host is the bind address. Empty means all interfaces.
	Host    string
	Handler PacketHandler
	Status  StatusReporter
	Logger  *slog.Logger
}

// OSCManager owns the UDP socket and the receive loop.
//
// Start and Stop are the only state transitions. Callers must not run them
// concurrently with each other; IsRunning, State and Addr may be called
// from anywhere.
type OSCManager struct {
	host    string
	handler PacketHandler
	status  StatusReporter
	logger  *slog.Logger
	listen  func(network, address string) (net.PacketConn, error)

	mu    sync.Mutex
	run   *run
	tasks sync.WaitGroup
}

// run is one Running period: the socket and the loop reading it.
type run struct {
	conn      net.PacketConn
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

func (r *run) close() {
	r.closeOnce.Do(func() {
		if err := r.conn.Close(); err != nil && !isExpectedCloseError(err) {
			r.logger.Debug("closing osc socket", "error", err)
		}
	})
}

// New creates a stopped OSCManager.
func New(cfg Config) *OSCManager {
	o := &OSCManager{
		host:    cfg.Host,
		handler: cfg.Handler,
		status:  cfg.Status,
		logger:  cfg.Logger,
		listen:  net.ListenPacket,
	}
	if o.handler == nil {
		o.handler = PacketHandlerFunc(func([]byte) {})
	}
	if o.status == nil {
		o.status = discardStatus{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Start binds the UDP port and launches the receive loop. Port 0 binds an
// ephemeral port; see Addr.
func (o *OSCManager) Start(port uint16) error {
	o.mu.Lock()
	if o.run != nil {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}

	addr := net.JoinHostPort(o.host, strconv.Itoa(int(port)))
	conn, err := o.listen("udp", addr)
	if err != nil {
		o.mu.Unlock()
		bindErr := &BindError{Addr: addr, Err: err}
		o.logger.Error("failed to bind osc port", "addr", addr, "error", err)
		o.status.OnStatus("Error: "+bindErr.Error(), Error)
		return bindErr
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		conn:   conn,
		cancel: cancel,
		done:   make(chan struct{}),
		logger: o.logger,
	}
	// Closing the socket is what unblocks a pending ReadFrom.
	context.AfterFunc(ctx, r.close)
	o.run = r
	o.mu.Unlock()

	o.logger.Info("listening for osc", "addr", conn.LocalAddr().String())
	o.status.OnStatus("Status: Running", Info)

	go o.receive(ctx, r)
	return nil
}

// Stop cancels the receive loop, releases the socket and waits for the loop
// to exit. It is a no-op when already stopped. Packet tasks already spawned
// keep running; use Wait for them.
func (o *OSCManager) Stop() {
	o.mu.Lock()
	r := o.run
	o.run = nil
	o.mu.Unlock()
	if r == nil {
		return
	}

	r.cancel()
	r.close()
	<-r.done

	o.logger.Info("osc listener stopped")
	o.status.OnStatus("Status: Stopped", Info)
}

// IsRunning reports whether the socket is bound and the receive loop is
// live.
func (o *OSCManager) IsRunning() bool {
	return o.State() == Running
}

// State returns Running between a successful Start and the matching Stop
// or fatal receive error, and Stopped otherwise.
func (o *OSCManager) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.run != nil {
		return Running
	}
	return Stopped
}

// Addr returns the bound local address, or nil when stopped.
func (o *OSCManager) Addr() net.Addr {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.run == nil {
		return nil
	}
	return o.run.conn.LocalAddr()
}

// Wait blocks until every packet task started so far has returned. Call it
// after Stop.
func (o *OSCManager) Wait() {
	o.tasks.Wait()
}

func (o *OSCManager) receive(ctx context.Context, r *run) {
	defer close(r.done)

	err := o.readLoop(ctx, r)
	r.cancel()
	r.close()

	if err != nil {
		o.logger.Error("osc receive loop failed", "error", err)
		o.status.OnStatus("Error: "+err.Error(), Error)
	}
	o.finish(r)
}

func (o *OSCManager) readLoop(ctx context.Context, r *run) error {
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := r.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || isExpectedCloseError(err) {
				return nil
			}
			return &TransportError{Err: err}
		}

		o.logger.Debug("datagram received", "from", from.String(), "bytes", n)
		payload := bytes.Clone(buf[:n])
		o.tasks.Add(1)
		go func() {
			defer o.tasks.Done()
			o.handler.HandlePacket(payload)
		}()
	}
}

// finish forces the Stopped state when the loop exits on its own, unless a
// newer run has already replaced this one. The socket is closed by then, so
// a caller that sees Stopped can bind the same port again.
func (o *OSCManager) finish(r *run) {
	o.mu.Lock()
	if o.run == r {
		o.run = nil
	}
	o.mu.Unlock()
}
