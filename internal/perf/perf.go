// Package perf scores agent productivity and tracks per-agent performance
// history across evaluation cycles.
package perf

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Metric weights for the productivity score. Accuracy dominates because
// producing correct work matters more than producing a lot of it.
const (
	WeightAccuracy     = 0.40
	WeightEfficiency   = 0.35
	WeightAdaptability = 0.25
)

// DefaultQualityThreshold is the minimum acceptable score before an agent
// is flagged for optimization.
const DefaultQualityThreshold = 0.85

// Score computes the weighted productivity score. Inputs are expected in
// [0,1]; out-of-range values propagate unchanged — clamping is the caller's
// responsibility.
func Score(accuracy, efficiency, adaptability float64) float64 {
	return accuracy*WeightAccuracy + efficiency*WeightEfficiency + adaptability*WeightAdaptability
}

// Record is one scored evaluation cycle for an agent. AgentID is the stable
// agent name, so history survives process restarts.
type Record struct {
	AgentID      string    `json:"agent_id"`
	Timestamp    time.Time `json:"timestamp"`
	Accuracy     float64   `json:"accuracy"`
	Efficiency   float64   `json:"efficiency"`
	Adaptability float64   `json:"adaptability"`
	Score        float64   `json:"score"`
}

// Agent is a registered worker agent.
type Agent struct {
	Name           string    `json:"name"`
	RegistrationID string    `json:"registration_id"`
	RegisteredAt   time.Time `json:"registered_at"`
	Score          float64   `json:"score"`
	LastUpdate     time.Time `json:"last_update,omitempty"`
}

// Tracker maintains the agent registry and the ordered performance history.
// History is unbounded by design; see the documented limitation in the
// repository design notes. Safe for concurrent use.
type Tracker struct {
	mu               sync.Mutex
	agents           map[string]*Agent
	history          []Record
	qualityThreshold float64
	now              func() time.Time
	logger           *zap.Logger
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithQualityThreshold overrides the minimum acceptable score.
func WithQualityThreshold(threshold float64) TrackerOption {
	return func(t *Tracker) {
		t.qualityThreshold = threshold
	}
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		agents:           make(map[string]*Agent),
		qualityThreshold: DefaultQualityThreshold,
		now:              time.Now,
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register adds an agent by name and returns its registration ID.
// Registering an existing name is idempotent and returns the original ID.
func (t *Tracker) Register(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyAgentName
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if a, ok := t.agents[name]; ok {
		return a.RegistrationID, nil
	}
	a := &Agent{
		Name:           name,
		RegistrationID: uuid.NewString(),
		RegisteredAt:   t.now(),
	}
	t.agents[name] = a
	return a.RegistrationID, nil
}

// Update records a scored evaluation cycle for an agent and returns the
// resulting record. Flags the agent when its score drops below the quality
// threshold.
func (t *Tracker) Update(name string, accuracy, efficiency, adaptability float64) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.agents[name]
	if !ok {
		return Record{}, ErrUnknownAgent
	}

	rec := Record{
		AgentID:      name,
		Timestamp:    t.now(),
		Accuracy:     accuracy,
		Efficiency:   efficiency,
		Adaptability: adaptability,
		Score:        Score(accuracy, efficiency, adaptability),
	}
	t.history = append(t.history, rec)
	a.Score = rec.Score
	a.LastUpdate = rec.Timestamp

	if rec.Score < t.qualityThreshold {
		t.logger.Warn("agent score below quality threshold",
			zap.String("agent", name),
			zap.Float64("score", rec.Score),
			zap.Float64("threshold", t.qualityThreshold))
	}
	return rec, nil
}

// ScoreOf returns the latest score for an agent.
func (t *Tracker) ScoreOf(name string) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.agents[name]
	if !ok {
		return 0, ErrUnknownAgent
	}
	return a.Score, nil
}

// Registered reports whether the agent name is known.
func (t *Tracker) Registered(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.agents[name]
	return ok
}

// Agents returns all registered agents sorted by name.
func (t *Tracker) Agents() []Agent {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Agent, 0, len(t.agents))
	for _, a := range t.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HistoryFor returns the ordered records for one agent, oldest first.
func (t *Tracker) HistoryFor(name string) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Record
	for _, rec := range t.history {
		if rec.AgentID == name {
			out = append(out, rec)
		}
	}
	return out
}

// ScoresFor returns just the ordered scores for one agent.
func (t *Tracker) ScoresFor(name string) []float64 {
	records := t.HistoryFor(name)
	scores := make([]float64, len(records))
	for i, rec := range records {
		scores[i] = rec.Score
	}
	return scores
}

// TopPerformers returns up to n agents sorted by score descending.
func (t *Tracker) TopPerformers(n int) []Agent {
	agents := t.Agents()
	sort.SliceStable(agents, func(i, j int) bool { return agents[i].Score > agents[j].Score })
	if len(agents) > n {
		agents = agents[:n]
	}
	return agents
}

// AverageScore returns the mean score across all registered agents, or 0
// with no agents.
func (t *Tracker) AverageScore() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.agents) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range t.agents {
		sum += a.Score
	}
	return sum / float64(len(t.agents))
}

// QualityThreshold returns the configured minimum acceptable score.
func (t *Tracker) QualityThreshold() float64 {
	return t.qualityThreshold
}

// Snapshot returns a copy of the full performance history for persistence.
func (t *Tracker) Snapshot() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record, len(t.history))
	copy(out, t.history)
	return out
}

// Restore replaces the history and refreshes each registered agent's latest
// score from it. Records for unregistered agents are kept in history so
// re-registration picks them back up.
func (t *Tracker) Restore(history []Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.history = make([]Record, len(history))
	copy(t.history, history)

	for _, rec := range t.history {
		if a, ok := t.agents[rec.AgentID]; ok {
			a.Score = rec.Score
			a.LastUpdate = rec.Timestamp
		}
	}
}
