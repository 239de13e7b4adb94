// Package watchdog monitors a local gateway service with TCP probes and
// restarts it when it stops answering. Recovery attempts are bounded and
// the outcome history is kept for the status surface.
package watchdog

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/avast/retry-go/v5"
	"go.uber.org/zap"
)

const (
	// DefaultPort is the gateway port probed when none is configured.
	DefaultPort = 31415

	// DefaultMaxRetries bounds restart attempts per check.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the pause between restart attempts.
	DefaultRetryDelay = 10 * time.Second

	// DefaultProbeTimeout bounds a single TCP probe.
	DefaultProbeTimeout = 5 * time.Second

	// settleDelay is how long a restarted gateway gets before the
	// verification probe.
	settleDelay = 5 * time.Second

	// historyCap bounds the retained check history.
	historyCap = 50
)

// Check statuses.
const (
	StatusHealthy   = "healthy"
	StatusRecovered = "recovered"
	StatusDown      = "down"
)

// Health is one probe outcome.
type Health struct {
	Healthy   bool      `json:"healthy"`
	Port      int       `json:"port"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// RestartResult is one restart attempt outcome.
type RestartResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
}

// CheckResult summarizes a full watchdog cycle.
type CheckResult struct {
	Status          string          `json:"status"`
	Timestamp       time.Time       `json:"timestamp"`
	InitialHealth   Health          `json:"initial_health"`
	RestartAttempts []RestartResult `json:"restart_attempts,omitempty"`
	Action          string          `json:"action"`
}

// Restarter restarts the monitored service.
type Restarter interface {
	Restart(ctx context.Context) (RestartResult, error)
}

// Watchdog probes a gateway and drives recovery. Safe for concurrent use.
type Watchdog struct {
	mu         sync.Mutex
	port       int
	maxRetries int
	retryDelay time.Duration
	probeWait  time.Duration
	settle     time.Duration
	restarter  Restarter
	dial       func(addr string, timeout time.Duration) (net.Conn, error)
	sleep      func(ctx context.Context, d time.Duration)
	now        func() time.Time
	logger     *zap.Logger
	history    []CheckResult
}

// Option configures a Watchdog.
type Option func(*Watchdog)

// WithPort sets the probed port.
func WithPort(port int) Option {
	return func(w *Watchdog) {
		w.port = port
	}
}

// WithMaxRetries bounds restart attempts per check.
func WithMaxRetries(n int) Option {
	return func(w *Watchdog) {
		w.maxRetries = n
	}
}

// WithRetryDelay sets the pause between restart attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(w *Watchdog) {
		w.retryDelay = d
	}
}

// WithProbeTimeout bounds a single TCP probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(w *Watchdog) {
		w.probeWait = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watchdog) {
		w.logger = logger
	}
}

// WithDialer overrides the TCP dialer, for tests.
func WithDialer(dial func(addr string, timeout time.Duration) (net.Conn, error)) Option {
	return func(w *Watchdog) {
		w.dial = dial
	}
}

// withTimings compresses the settle and retry delays, for tests.
func withTimings(settle, retryDelay time.Duration) Option {
	return func(w *Watchdog) {
		w.settle = settle
		w.retryDelay = retryDelay
	}
}

// New creates a watchdog for the given restarter.
func New(restarter Restarter, opts ...Option) *Watchdog {
	w := &Watchdog{
		port:       DefaultPort,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		probeWait:  DefaultProbeTimeout,
		settle:     settleDelay,
		restarter:  restarter,
		dial: func(addr string, timeout time.Duration) (net.Conn, error) {
			return net.DialTimeout("tcp", addr, timeout)
		},
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	w.sleep = func(ctx context.Context, d time.Duration) {
		select {
		case <-ctx.Done():
		case <-time.After(d):
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// dialTCP wraps the configured dialer with the "tcp" network.
func (w *Watchdog) dialTCP(addr string, timeout time.Duration) (net.Conn, error) {
	if w.dial == nil {
		return net.DialTimeout("tcp", addr, timeout)
	}
	return w.dial(addr, timeout)
}

// CheckHealth probes the gateway port. A successful connection means a
// process is listening and the gateway is considered healthy.
func (w *Watchdog) CheckHealth() Health {
	addr := fmt.Sprintf("127.0.0.1:%d", w.port)
	conn, err := w.dialTCP(addr, w.probeWait)
	if err != nil {
		return Health{
			Healthy:   false,
			Port:      w.port,
			Detail:    err.Error(),
			Timestamp: w.now(),
		}
	}
	_ = conn.Close() //nolint:errcheck // probe connection, nothing written
	return Health{
		Healthy:   true,
		Port:      w.port,
		Detail:    fmt.Sprintf("port %d accepting connections", w.port),
		Timestamp: w.now(),
	}
}

// RunCheck performs a full cycle: probe, restart with bounded retries if
// down, verify recovery. The result is appended to the capped history.
func (w *Watchdog) RunCheck(ctx context.Context) CheckResult {
	now := w.now()
	health := w.CheckHealth()

	if health.Healthy {
		w.logger.Info("gateway healthy", zap.Int("port", w.port))
		return w.record(CheckResult{
			Status:        StatusHealthy,
			Timestamp:     now,
			InitialHealth: health,
			Action:        "none",
		})
	}

	w.logger.Warn("gateway unhealthy, attempting restart",
		zap.Int("port", w.port), zap.String("detail", health.Detail))

	var attempts []RestartResult
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(uint(w.maxRetries)),
		retry.Delay(w.retryDelay),
		retry.DelayType(retry.FixedDelay),
	).Do(func() error {
		res, rerr := w.restarter.Restart(ctx)
		if rerr != nil {
			res = RestartResult{Success: false, Output: rerr.Error()}
		}
		attempts = append(attempts, res)
		if !res.Success {
			return fmt.Errorf("restart failed: %s", res.Output)
		}

		w.sleep(ctx, w.settle)
		if verify := w.CheckHealth(); !verify.Healthy {
			return fmt.Errorf("gateway still down after restart: %s", verify.Detail)
		}
		return nil
	})

	result := CheckResult{
		Timestamp:       now,
		InitialHealth:   health,
		RestartAttempts: attempts,
	}
	if err == nil {
		result.Status = StatusRecovered
		result.Action = "restarted"
		w.logger.Info("gateway recovered", zap.Int("attempts", len(attempts)))
	} else {
		result.Status = StatusDown
		result.Action = "escalate"
		w.logger.Error("gateway failed to recover",
			zap.Int("attempts", len(attempts)), zap.Error(err))
	}
	return w.record(result)
}

// record appends a result to the history, evicting the oldest beyond cap.
func (w *Watchdog) record(result CheckResult) CheckResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.history = append(w.history, result)
	if len(w.history) > historyCap {
		w.history = w.history[len(w.history)-historyCap:]
	}
	return result
}

// History returns a copy of the retained check results, oldest first.
func (w *Watchdog) History() []CheckResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]CheckResult, len(w.history))
	copy(out, w.history)
	return out
}

// LastCheck returns the most recent result, if any.
func (w *Watchdog) LastCheck() (CheckResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.history) == 0 {
		return CheckResult{}, false
	}
	return w.history[len(w.history)-1], true
}

// Restore replaces the history from persisted state, keeping the cap.
func (w *Watchdog) Restore(history []CheckResult) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}
	w.history = make([]CheckResult, len(history))
	copy(w.history, history)
}
