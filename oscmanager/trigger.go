package oscmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// The avatar parameter that starts a drag. Matching is exact.
const (
	TriggerAddress = "/avatar/parameters/ton_suicide"
	TriggerTypeTag = ",T"
)

// IsTrigger reports whether msg should start a drag.
func IsTrigger(msg *Message) bool {
	return msg != nil && msg.Address == TriggerAddress && msg.TypeTag == TriggerTypeTag
}

// TriggerConfig is what a drag needs at the moment it fires.
type TriggerConfig struct {
	WindowName   string
	DragDuration time.Duration
}

// ConfigSource is read once per trigger, never cached.
type ConfigSource interface {
	TriggerConfig() TriggerConfig
}

// ConfigFunc adapts a function to ConfigSource.
type ConfigFunc func() TriggerConfig

func (f ConfigFunc) TriggerConfig() TriggerConfig { return f() }

// Action performs the drag against the target window. It may block for the
// whole drag duration.
type Action interface {
	PerformDrag(ctx context.Context, windowName string, duration time.Duration) error
}

// DispatcherConfig wires a Dispatcher to its collaborators.
type DispatcherConfig struct {
	Action Action
	Config ConfigSource
	Status StatusReporter
	Logger *slog.Logger

	// Describe turns an action error into the status line shown to the
	// user. Defaults to "Error: " followed by the error text.
	Describe func(error) string
}

// Dispatcher decodes datagrams and runs the action for trigger messages.
// HandlePacket is safe for concurrent use; every call is independent.
type Dispatcher struct {
	action   Action
	config   ConfigSource
	status   StatusReporter
	logger   *slog.Logger
	describe func(error) string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewDispatcher creates a Dispatcher. Action and Config are required.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Action == nil {
		return nil, errors.New("dispatcher: action is required")
	}
	if cfg.Config == nil {
		return nil, errors.New("dispatcher: config source is required")
	}
	d := &Dispatcher{
		action:   cfg.Action,
		config:   cfg.Config,
		status:   cfg.Status,
		logger:   cfg.Logger,
		describe: cfg.Describe,
	}
	if d.status == nil {
		d.status = discardStatus{}
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.describe == nil {
		d.describe = func(err error) string { return "Error: " + err.Error() }
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

// HandlePacket decodes one datagram and, for a trigger, runs the action
// before returning. Decode failures are logged and dropped.
func (d *Dispatcher) HandlePacket(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("packet handler panicked", "panic", fmt.Sprint(r))
		}
	}()

	if IsBundle(payload) {
		d.logger.Debug("ignoring osc bundle", "bytes", len(payload))
		return
	}

	msg, err := Decode(payload)
	if err != nil {
		d.logger.Warn("failed to parse osc message", "error", err, "bytes", len(payload))
		return
	}
	d.logger.Debug("osc message", "address", msg.Address, "type_tag", msg.TypeTag)

	if !IsTrigger(msg) {
		return
	}
	d.fire()
}

func (d *Dispatcher) fire() {
	cfg := d.config.TriggerConfig()
	id := uuid.NewString()
	logger := d.logger.With("trigger", id, "window", cfg.WindowName, "duration", cfg.DragDuration)
	logger.Info("triggering drag")

	if err := d.action.PerformDrag(d.ctx, cfg.WindowName, cfg.DragDuration); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("drag cancelled")
			return
		}
		logger.Error("drag failed", "error", err)
		d.status.OnStatus(d.describe(err), Error)
		return
	}
	logger.Info("drag finished")
}

// Close cancels drags in progress. Pair it with OSCManager.Wait to know
// when they have returned.
func (d *Dispatcher) Close() {
	d.cancel()
}
