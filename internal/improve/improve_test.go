package improve

import (
	"errors"
	"math"
	"testing"
	"time"
)

// TestExecuteImprovesExistingCapability verifies the fixed step and the
// 1.0 cap.
func TestExecuteImprovesExistingCapability(t *testing.T) {
	p := New()
	p.Seed("task_execution", 0.95, "seed", "")

	if err := p.Execute(Proposal{Type: "skill_development", Target: "task_execution"}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	caps := p.Capabilities()
	if got := caps["task_execution"].Proficiency; got != 1.0 {
		t.Errorf("expected proficiency capped at 1.0, got %v", got)
	}
	if caps["task_execution"].LastImproved.IsZero() {
		t.Errorf("expected LastImproved to be set")
	}
}

// TestExecuteCreatesNewCapability verifies a new target starts at the
// initial proficiency.
func TestExecuteCreatesNewCapability(t *testing.T) {
	p := New()

	if err := p.Execute(Proposal{Type: "gap_fill", Target: "negotiation"}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	c, ok := p.Capabilities()["negotiation"]
	if !ok {
		t.Fatalf("expected capability to be created")
	}
	if math.Abs(c.Proficiency-InitialProficiency) > 1e-12 {
		t.Errorf("expected initial proficiency %v, got %v", InitialProficiency, c.Proficiency)
	}

	history := p.History()
	if len(history) != 1 || history[0].Type != "proposal_execution" {
		t.Errorf("expected one proposal_execution history entry, got %+v", history)
	}
}

// TestExecuteRejectsEmptyTarget verifies validation.
func TestExecuteRejectsEmptyTarget(t *testing.T) {
	p := New()
	if err := p.Execute(Proposal{Type: "gap_fill"}); !errors.Is(err, ErrEmptyTarget) {
		t.Errorf("expected ErrEmptyTarget, got %v", err)
	}
}

// TestSeedNeverLowersProficiency verifies that observed evidence only
// raises a capability.
func TestSeedNeverLowersProficiency(t *testing.T) {
	p := New()
	p.Seed("learning", 0.8, "activity", "completed research sprint")
	p.Seed("learning", 0.3, "activity", "skimmed one article")

	if got := p.Capabilities()["learning"].Proficiency; got != 0.8 {
		t.Errorf("expected proficiency to stay at 0.8, got %v", got)
	}

	p.Seed("learning", 0.9, "activity", "")
	if got := p.Capabilities()["learning"].Proficiency; got != 0.9 {
		t.Errorf("expected proficiency raised to 0.9, got %v", got)
	}
}

// TestGapsFlagsLowStaleAndMissing covers all three gap categories at once.
func TestGapsFlagsLowStaleAndMissing(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	p := New(WithClock(func() time.Time { return now }))

	p.Restore(map[string]Capability{
		"task_execution":  {Proficiency: 0.9, AddedAt: now.Add(-time.Hour)},
		"learning":        {Proficiency: 0.2, AddedAt: now.Add(-time.Hour)},
		"communication":   {Proficiency: 0.7, AddedAt: now.Add(-60 * 24 * time.Hour)},
		"problem_solving": {Proficiency: 0.8, AddedAt: now.Add(-60 * 24 * time.Hour), LastImproved: now.Add(-time.Hour)},
	}, nil)

	gaps := p.Gaps(DefaultExpectedCapabilities, DefaultStaleness)
	if len(gaps.LowProficiency) != 1 || gaps.LowProficiency[0] != "learning" {
		t.Errorf("unexpected low-proficiency gaps: %v", gaps.LowProficiency)
	}
	if len(gaps.Stale) != 1 || gaps.Stale[0] != "communication" {
		t.Errorf("unexpected stale gaps: %v", gaps.Stale)
	}
	if len(gaps.Missing) != 1 || gaps.Missing[0] != "self_monitoring" {
		t.Errorf("unexpected missing gaps: %v", gaps.Missing)
	}
	if gaps.Empty() {
		t.Errorf("gaps should not be empty")
	}
}

// TestProposalsDefaultsToGapFilling verifies that without strategies,
// missing and weak capabilities drive the proposals.
func TestProposalsDefaultsToGapFilling(t *testing.T) {
	p := New()
	p.Seed("task_execution", 0.3, "seed", "")

	proposals := p.Proposals()
	if len(proposals) == 0 {
		t.Fatalf("expected default proposals from gaps")
	}

	targets := make(map[string]bool)
	for _, prop := range proposals {
		targets[prop.Target] = true
	}
	for _, want := range []string{"learning", "self_monitoring", "task_execution"} {
		if !targets[want] {
			t.Errorf("expected a proposal targeting %q, got %+v", want, proposals)
		}
	}
}

// TestProposalsIsolatesPanickingStrategy verifies one bad strategy cannot
// take out the others.
func TestProposalsIsolatesPanickingStrategy(t *testing.T) {
	p := New()
	if err := p.RegisterStrategy(func(map[string]Capability, Gaps) []Proposal {
		panic("bad strategy")
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := p.RegisterStrategy(func(map[string]Capability, Gaps) []Proposal {
		return []Proposal{{Type: "custom", Target: "resilience"}}
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	proposals := p.Proposals()
	if len(proposals) != 1 || proposals[0].Target != "resilience" {
		t.Errorf("expected only the surviving strategy's proposal, got %+v", proposals)
	}
}

// TestRegisterStrategyRejectsNil verifies validation.
func TestRegisterStrategyRejectsNil(t *testing.T) {
	p := New()
	if err := p.RegisterStrategy(nil); !errors.Is(err, ErrNilStrategy) {
		t.Errorf("expected ErrNilStrategy, got %v", err)
	}
}

// TestSnapshotRestoreRoundTrip verifies persistence of both the map and
// the history.
func TestSnapshotRestoreRoundTrip(t *testing.T) {
	p := New()
	p.Seed("learning", 0.6, "activity", "")
	if err := p.Execute(Proposal{Type: "skill_development", Target: "learning"}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	caps, history := p.Snapshot()

	restored := New()
	restored.Restore(caps, history)

	if restored.CapabilityCount() != 1 {
		t.Fatalf("expected 1 restored capability, got %d", restored.CapabilityCount())
	}
	if got := restored.Capabilities()["learning"].Proficiency; math.Abs(got-0.7) > 1e-12 {
		t.Errorf("expected restored proficiency 0.7, got %v", got)
	}
	if len(restored.History()) != 1 {
		t.Errorf("expected 1 restored history entry")
	}
}
