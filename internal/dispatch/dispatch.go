// Package dispatch maps named remediation actions to handlers and executes
// them with per-action fault isolation. Action names are data and handlers
// are behavior: an action can be proposed before any handler exists for it,
// and new action names need no dispatch-logic changes.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Handler executes one remediation action. Handlers are expected to be
// short-running; the dispatcher imposes no timeout of its own.
type Handler func(ctx context.Context) error

// Dispatcher is a registry of action handlers. Safe for concurrent use.
type Dispatcher struct {
	mu       sync.Mutex
	handlers map[string]Handler
	logger   *zap.Logger
}

// New creates an empty dispatcher.
func New(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register binds a handler to an action name. Registering an existing name
// replaces its handler: last registration wins.
func (d *Dispatcher) Register(name string, h Handler) error {
	if name == "" {
		return ErrEmptyAction
	}
	if h == nil {
		return ErrNilHandler
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
	return nil
}

// Registered reports whether an action has a handler.
func (d *Dispatcher) Registered(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.handlers[name]
	return ok
}

// Actions returns the registered action names in unspecified order.
func (d *Dispatcher) Actions() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		out = append(out, name)
	}
	return out
}

// Dispatch invokes the handler for each action in order and returns the
// names that completed without failing. Each handler runs inside its own
// fault boundary: an error or panic is logged and the remaining actions
// still run. Actions without a handler are logged as proposed-but-unhandled,
// which is not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, actions []string) []string {
	executed := []string{}
	for _, name := range actions {
		d.mu.Lock()
		h, ok := d.handlers[name]
		d.mu.Unlock()

		if !ok {
			d.logger.Info("no handler registered for action", zap.String("action", name))
			continue
		}

		if err := d.invoke(ctx, name, h); err != nil {
			d.logger.Error("action handler failed",
				zap.String("action", name),
				zap.Error(err))
			continue
		}
		executed = append(executed, name)
	}
	return executed
}

// invoke runs one handler, converting a panic into an error so a misbehaving
// handler cannot take down the dispatch loop.
func (d *Dispatcher) invoke(ctx context.Context, name string, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler for %q panicked: %v", name, r)
		}
	}()
	return h(ctx)
}
