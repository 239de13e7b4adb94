// Package escalate maps agent productivity scores to intervention tiers.
// Tier assignment is monotonic in the score: a lower score never yields a
// gentler tier. The highest tier additionally requires the score to stay
// below the critical threshold for several consecutive cycles, so a single
// bad cycle cannot trigger the heaviest intervention.
package escalate

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Tier is an intervention escalation level.
type Tier int

const (
	// TierNone means the agent is performing acceptably.
	TierNone Tier = iota

	// Tier1 is a gentle nudge: the score dipped below the warning line.
	Tier1

	// Tier2 is an active intervention: the score is below critical.
	Tier2

	// Tier3 is a sustained-failure response: the score has stayed below
	// critical for the configured number of consecutive cycles.
	Tier3
)

// String returns the wire name for the tier.
func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case Tier1:
		return "tier1"
	case Tier2:
		return "tier2"
	case Tier3:
		return "tier3"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler for JSON and YAML output.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Thresholds configures tier boundaries. Scores at or above Warning
// resolve to TierNone; the strict-below comparison matches the idle
// detector's strict-above trigger.
type Thresholds struct {
	Warning         float64 `json:"warning" yaml:"warning"`
	Critical        float64 `json:"critical" yaml:"critical"`
	SustainedCycles int     `json:"sustained_cycles" yaml:"sustained_cycles"`
}

// DefaultThresholds are used when configuration is absent or malformed.
var DefaultThresholds = Thresholds{
	Warning:         0.70,
	Critical:        0.50,
	SustainedCycles: 3,
}

// valid reports whether the thresholds are internally consistent.
func (th Thresholds) valid() bool {
	return th.Critical > 0 &&
		th.Critical < th.Warning &&
		th.Warning <= 1 &&
		th.SustainedCycles >= 1
}

// Resolve is the pure tier function: given a score, the number of
// consecutive cycles the score has been below critical (including this
// one), and the thresholds, it returns the tier.
func Resolve(score float64, belowCritical int, th Thresholds) Tier {
	if !th.valid() {
		th = DefaultThresholds
	}
	switch {
	case score >= th.Warning:
		return TierNone
	case score >= th.Critical:
		return Tier1
	case belowCritical >= th.SustainedCycles:
		return Tier3
	default:
		return Tier2
	}
}

// Resolver tracks per-agent below-critical streaks across cycles and
// resolves tiers. Safe for concurrent use.
type Resolver struct {
	mu      sync.Mutex
	th      Thresholds
	streaks map[string]int
	logger  *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver. Malformed thresholds are replaced with
// the defaults and logged rather than rejected, so a bad config file
// degrades the tier boundaries instead of disabling escalation.
func NewResolver(th Thresholds, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		th:      th,
		streaks: make(map[string]int),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if !th.valid() {
		r.logger.Warn("invalid escalation thresholds, using defaults",
			zap.Float64("warning", th.Warning),
			zap.Float64("critical", th.Critical),
			zap.Int("sustained_cycles", th.SustainedCycles))
		r.th = DefaultThresholds
	}
	return r
}

// Assess records one cycle's score for an agent and returns its tier.
// A score at or above critical resets the agent's streak.
func (r *Resolver) Assess(agent string, score float64) Tier {
	r.mu.Lock()
	defer r.mu.Unlock()

	if score < r.th.Critical {
		r.streaks[agent]++
	} else {
		delete(r.streaks, agent)
	}
	return Resolve(score, r.streaks[agent], r.th)
}

// Streak returns the agent's current consecutive below-critical count.
func (r *Resolver) Streak(agent string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streaks[agent]
}

// Reset clears the agent's streak, e.g. after a completed intervention.
func (r *Resolver) Reset(agent string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streaks, agent)
}

// Thresholds returns the active threshold configuration.
func (r *Resolver) Thresholds() Thresholds {
	return r.th
}
