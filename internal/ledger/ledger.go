// Package ledger maintains the bounded activity ledger and computes idle
// state from it. The ledger is the ground truth the intervention engine
// reasons over: every piece of observed evidence (a commit, a file touch, a
// reflection) lands here as an immutable entry, and idle detection reads
// only from here.
package ledger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MaxEntries caps the ledger size. The oldest entry is evicted first once
// the cap is exceeded.
const MaxEntries = 100

// recentWindow is how many trailing entries the context-aware action
// proposal inspects.
const recentWindow = 20

// Entry is a single immutable activity record. The ledger stores its own
// copy of Metadata, so callers may reuse or mutate the map they passed in
// without affecting history.
type Entry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Kind       string         `json:"kind"`
	Productive bool           `json:"is_productive"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Report is the result of one idle detection pass. ActionsExecuted is always
// a subset of ActionsProposed: execution can fail or be unhandled, but an
// action that was never proposed is never executed.
type Report struct {
	IdleRate        float64  `json:"idle_rate"`
	Triggered       bool     `json:"triggered"`
	ProductiveCount int      `json:"productive_count"`
	ActionsProposed []string `json:"actions_proposed"`
	ActionsExecuted []string `json:"actions_executed"`
}

// Dispatcher executes proposed remediation actions. Detect delegates to it
// and records which actions completed.
type Dispatcher interface {
	Dispatch(ctx context.Context, actions []string) []string
}

// Ledger is a bounded, append-only record of activity entries owned by a
// single process. All methods are safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log validates and appends an entry. The stored entry carries a deep copy
// of the metadata map. A zero timestamp is filled in with the current time.
// When the ledger exceeds MaxEntries the oldest entry is evicted.
func (l *Ledger) Log(e Entry) error {
	if e.Kind == "" {
		return ErrInvalidEntry
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	e.Metadata = copyMetadata(e.Metadata)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, e)
	if len(l.entries) > MaxEntries {
		l.entries = l.entries[len(l.entries)-MaxEntries:]
	}
	return nil
}

// Len returns the number of stored entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a copy of the stored entries, oldest first.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyEntries(l.entries)
}

// IdleRate computes the fraction of entries within [now-window, now] that
// are not productive. An empty window is fully idle: absence of evidence is
// absence of productivity. The result is clamped to [0,1] so future formula
// changes cannot leak out-of-range values.
func (l *Ledger) IdleRate(window time.Duration) (float64, error) {
	if window <= 0 {
		return 0, ErrInvalidWindow
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	total, idle := 0, 0
	cutoff := l.now().Add(-window)
	for _, e := range l.entries {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		total++
		if !e.Productive {
			idle++
		}
	}

	if total == 0 {
		return 1.0, nil
	}
	return clamp01(float64(idle) / float64(total)), nil
}

// Detect runs one idle assessment: computes the idle rate over the window,
// counts productive entries, and, when the rate strictly exceeds the
// threshold, proposes emergency actions and dispatches them. Equality with
// the threshold never triggers.
func (l *Ledger) Detect(ctx context.Context, d Dispatcher, threshold float64, window time.Duration, minProductive int) (Report, error) {
	if threshold < 0.0 || threshold > 1.0 {
		return Report{}, ErrInvalidThreshold
	}

	rate, err := l.IdleRate(window)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		IdleRate:        rate,
		ProductiveCount: l.productiveCount(window),
		ActionsProposed: []string{},
		ActionsExecuted: []string{},
	}

	if rate <= threshold && report.ProductiveCount >= minProductive {
		return report, nil
	}
	if rate <= threshold {
		// Below the idle threshold but short on productive evidence: note it
		// without intervening.
		l.logger.Info("productive action count below minimum",
			zap.Int("productive", report.ProductiveCount),
			zap.Int("minimum", minProductive))
		return report, nil
	}

	report.Triggered = true
	report.ActionsProposed = l.ProposeActions()
	l.logger.Warn("idle state detected",
		zap.Float64("idle_rate", rate),
		zap.Float64("threshold", threshold),
		zap.Strings("actions_proposed", report.ActionsProposed))

	if d != nil {
		report.ActionsExecuted = d.Dispatch(ctx, report.ActionsProposed)
	}
	return report, nil
}

// Snapshot returns a copy of the ledger contents for persistence.
func (l *Ledger) Snapshot() []Entry {
	return l.Entries()
}

// Restore replaces the ledger contents, keeping at most the MaxEntries most
// recent entries. Used when loading persisted state at startup.
func (l *Ledger) Restore(entries []Entry) {
	if len(entries) > MaxEntries {
		entries = entries[len(entries)-MaxEntries:]
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = copyEntries(entries)
}

func (l *Ledger) productiveCount(window time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-window)
	count := 0
	for _, e := range l.entries {
		if !e.Timestamp.Before(cutoff) && e.Productive {
			count++
		}
	}
	return count
}

func clamp01(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

func copyEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.Metadata = copyMetadata(e.Metadata)
		out[i] = e
	}
	return out
}

// copyMetadata deep-copies JSON-like metadata so stored history is immune to
// caller-side mutation.
func copyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMetadata(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
