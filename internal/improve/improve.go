// Package improve tracks what an agent is capable of and executes
// improvement proposals against those capabilities. Interventions fired by
// the idle detector land here: each emergency action maps to a proposal
// whose execution nudges a capability's proficiency upward.
package improve

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// ProficiencyStep is added to an existing capability per improvement.
	ProficiencyStep = 0.1

	// InitialProficiency is assigned to a newly created capability.
	InitialProficiency = 0.1

	// LowProficiencyCutoff flags capabilities needing attention.
	LowProficiencyCutoff = 0.5

	// DefaultStaleness is how long a capability may go without an update
	// before it counts as stale.
	DefaultStaleness = 30 * 24 * time.Hour
)

// DefaultExpectedCapabilities are the capabilities every worker agent is
// expected to demonstrate evidence for.
var DefaultExpectedCapabilities = []string{
	"task_execution",
	"learning",
	"communication",
	"problem_solving",
	"self_monitoring",
}

// Capability is one entry in the capability map.
type Capability struct {
	Proficiency  float64   `json:"proficiency"`
	AddedAt      time.Time `json:"added_at"`
	LastImproved time.Time `json:"last_improved,omitempty"`
	Source       string    `json:"source,omitempty"`
	Evidence     string    `json:"evidence,omitempty"`
}

// Proposal is a candidate self-improvement, targeting one capability.
type Proposal struct {
	Type   string `json:"type"`
	Target string `json:"target"`
}

// HistoryEntry records one improvement event.
type HistoryEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Details   map[string]any `json:"details,omitempty"`
}

// Gaps is the result of capability gap analysis.
type Gaps struct {
	LowProficiency []string `json:"low_proficiency"`
	Stale          []string `json:"stale"`
	Missing        []string `json:"missing"`
}

// Empty reports whether no gaps were found.
func (g Gaps) Empty() bool {
	return len(g.LowProficiency) == 0 && len(g.Stale) == 0 && len(g.Missing) == 0
}

// Strategy generates proposals from the current capability map and gaps.
type Strategy func(caps map[string]Capability, gaps Gaps) []Proposal

// Protocol owns the capability map and improvement history.
// Safe for concurrent use.
type Protocol struct {
	mu         sync.Mutex
	caps       map[string]Capability
	history    []HistoryEntry
	strategies []Strategy
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Protocol) {
		p.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Protocol) {
		p.logger = logger
	}
}

// New creates an empty protocol.
func New(opts ...Option) *Protocol {
	p := &Protocol{
		caps:   make(map[string]Capability),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RegisterStrategy adds a proposal-generating strategy.
func (p *Protocol) RegisterStrategy(s Strategy) error {
	if s == nil {
		return ErrNilStrategy
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.strategies = append(p.strategies, s)
	return nil
}

// Execute applies a proposal: an existing target capability gains
// ProficiencyStep capped at 1.0, a new one starts at InitialProficiency.
// The change is recorded in the improvement history.
func (p *Protocol) Execute(proposal Proposal) error {
	if proposal.Target == "" {
		return ErrEmptyTarget
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	change := map[string]any{"capability": proposal.Target, "type": proposal.Type}

	if c, ok := p.caps[proposal.Target]; ok {
		old := c.Proficiency
		c.Proficiency = min(1.0, old+ProficiencyStep)
		c.LastImproved = now
		p.caps[proposal.Target] = c
		change["action"] = "improved"
		change["old_proficiency"] = old
		change["new_proficiency"] = c.Proficiency
	} else {
		p.caps[proposal.Target] = Capability{
			Proficiency: InitialProficiency,
			AddedAt:     now,
			Source:      proposal.Type,
		}
		change["action"] = "created"
		change["proficiency"] = InitialProficiency
	}

	p.history = append(p.history, HistoryEntry{
		Timestamp: now,
		Type:      "proposal_execution",
		Details:   change,
	})
	return nil
}

// Seed records externally observed evidence for a capability. The entry is
// created or raised, never lowered: observed evidence cannot make an agent
// less capable than previously established.
func (p *Protocol) Seed(name string, proficiency float64, source, evidence string) {
	if name == "" {
		return
	}
	proficiency = min(1.0, max(0.0, proficiency))

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.caps[name]; ok && existing.Proficiency >= proficiency {
		return
	}
	p.caps[name] = Capability{
		Proficiency: proficiency,
		AddedAt:     p.now(),
		Source:      source,
		Evidence:    evidence,
	}
}

// Proposals runs every registered strategy inside a fault boundary and
// collects their proposals. A panicking strategy is logged and skipped.
// With no strategies registered, proposals are derived from the current
// gaps so an idle intervention always has something to execute.
func (p *Protocol) Proposals() []Proposal {
	gaps := p.Gaps(DefaultExpectedCapabilities, DefaultStaleness)

	p.mu.Lock()
	strategies := make([]Strategy, len(p.strategies))
	copy(strategies, p.strategies)
	caps := p.capsCopy()
	p.mu.Unlock()

	if len(strategies) == 0 {
		return gapProposals(gaps)
	}

	var out []Proposal
	for i, s := range strategies {
		out = append(out, p.runStrategy(i, s, caps, gaps)...)
	}
	return out
}

func (p *Protocol) runStrategy(i int, s Strategy, caps map[string]Capability, gaps Gaps) (proposals []Proposal) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("improvement strategy panicked",
				zap.Int("strategy", i), zap.Any("panic", r))
			proposals = nil
		}
	}()
	return s(caps, gaps)
}

// gapProposals turns gap analysis into default proposals: create missing
// capabilities first, then shore up low-proficiency ones.
func gapProposals(gaps Gaps) []Proposal {
	var out []Proposal
	for _, name := range gaps.Missing {
		out = append(out, Proposal{Type: "gap_fill", Target: name})
	}
	for _, name := range gaps.LowProficiency {
		out = append(out, Proposal{Type: "skill_development", Target: name})
	}
	return out
}

// Gaps flags capabilities with proficiency below LowProficiencyCutoff,
// capabilities untouched for longer than staleness, and expected
// capabilities absent from the map entirely.
func (p *Protocol) Gaps(expected []string, staleness time.Duration) Gaps {
	if staleness <= 0 {
		staleness = DefaultStaleness
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var gaps Gaps
	cutoff := p.now().Add(-staleness)
	for name, c := range p.caps {
		if c.Proficiency < LowProficiencyCutoff {
			gaps.LowProficiency = append(gaps.LowProficiency, name)
		}
		last := c.LastImproved
		if last.IsZero() {
			last = c.AddedAt
		}
		if !last.IsZero() && last.Before(cutoff) {
			gaps.Stale = append(gaps.Stale, name)
		}
	}
	for _, name := range expected {
		if _, ok := p.caps[name]; !ok {
			gaps.Missing = append(gaps.Missing, name)
		}
	}

	sort.Strings(gaps.LowProficiency)
	sort.Strings(gaps.Stale)
	return gaps
}

// Capabilities returns a copy of the capability map.
func (p *Protocol) Capabilities() map[string]Capability {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capsCopy()
}

// CapabilityCount returns the number of tracked capabilities.
func (p *Protocol) CapabilityCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.caps)
}

// History returns a copy of the improvement history, oldest first.
func (p *Protocol) History() []HistoryEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]HistoryEntry, len(p.history))
	copy(out, p.history)
	return out
}

// Snapshot returns the capability map and history for persistence.
func (p *Protocol) Snapshot() (map[string]Capability, []HistoryEntry) {
	return p.Capabilities(), p.History()
}

// Restore replaces the capability map and history from persisted state.
func (p *Protocol) Restore(caps map[string]Capability, history []HistoryEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.caps = make(map[string]Capability, len(caps))
	for name, c := range caps {
		p.caps[name] = c
	}
	p.history = make([]HistoryEntry, len(history))
	copy(p.history, history)
}

func (p *Protocol) capsCopy() map[string]Capability {
	out := make(map[string]Capability, len(p.caps))
	for name, c := range p.caps {
		out[name] = c
	}
	return out
}
