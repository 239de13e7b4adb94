package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeDispatcher executes only the actions it was told it can handle.
type fakeDispatcher struct {
	handled    map[string]bool
	dispatched []string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, actions []string) []string {
	f.dispatched = append(f.dispatched, actions...)
	var executed []string
	for _, a := range actions {
		if f.handled[a] {
			executed = append(executed, a)
		}
	}
	return executed
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// TestLogRejectsEmptyKind verifies that entries without a kind are rejected
// with ErrInvalidEntry.
func TestLogRejectsEmptyKind(t *testing.T) {
	l := New()
	err := l.Log(Entry{Productive: true})
	if !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("rejected entry was stored, len=%d", l.Len())
	}
}

// TestLedgerCapsAtMaxEntries verifies FIFO eviction: after 150 appends only
// the 100 most recent entries remain, oldest evicted first.
func TestLedgerCapsAtMaxEntries(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(WithClock(fixedClock(now)))

	for i := 0; i < 150; i++ {
		err := l.Log(Entry{
			Kind:      "coding",
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Metadata:  map[string]any{"seq": i},
		})
		if err != nil {
			t.Fatalf("log %d: %v", i, err)
		}
	}

	if l.Len() != MaxEntries {
		t.Fatalf("expected %d entries, got %d", MaxEntries, l.Len())
	}

	entries := l.Entries()
	if got := entries[0].Metadata["seq"]; got != 50 {
		t.Errorf("oldest surviving entry should be seq 50, got %v", got)
	}
	if got := entries[len(entries)-1].Metadata["seq"]; got != 149 {
		t.Errorf("newest entry should be seq 149, got %v", got)
	}
}

// TestLogCopiesMetadata verifies that mutating the caller's map after Log
// does not change the stored entry.
func TestLogCopiesMetadata(t *testing.T) {
	l := New()
	meta := map[string]any{
		"kind":   "x",
		"nested": map[string]any{"path": "/tmp/a"},
	}
	if err := l.Log(Entry{Kind: "coding", Metadata: meta}); err != nil {
		t.Fatalf("log: %v", err)
	}

	meta["kind"] = "mutated"
	meta["nested"].(map[string]any)["path"] = "/tmp/b"

	stored := l.Entries()[0].Metadata
	if stored["kind"] != "x" {
		t.Errorf("stored metadata mutated: kind=%v", stored["kind"])
	}
	if stored["nested"].(map[string]any)["path"] != "/tmp/a" {
		t.Errorf("stored nested metadata mutated")
	}
}

// TestIdleRateRejectsNonPositiveWindow verifies ErrInvalidWindow for zero
// and negative windows.
func TestIdleRateRejectsNonPositiveWindow(t *testing.T) {
	l := New()
	for _, window := range []time.Duration{0, -5 * time.Second} {
		if _, err := l.IdleRate(window); !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("window %v: expected ErrInvalidWindow, got %v", window, err)
		}
	}
}

// TestIdleRateEmptyWindowIsFullyIdle verifies that no in-window evidence
// means rate 1.0.
func TestIdleRateEmptyWindowIsFullyIdle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(WithClock(fixedClock(now)))

	// Entirely empty ledger.
	rate, err := l.IdleRate(time.Hour)
	if err != nil {
		t.Fatalf("idle rate: %v", err)
	}
	if rate != 1.0 {
		t.Errorf("empty ledger: expected rate 1.0, got %v", rate)
	}

	// Entries exist but all fall outside the window.
	if err := l.Log(Entry{Kind: "coding", Productive: true, Timestamp: now.Add(-2 * time.Hour)}); err != nil {
		t.Fatalf("log: %v", err)
	}
	rate, err = l.IdleRate(time.Hour)
	if err != nil {
		t.Fatalf("idle rate: %v", err)
	}
	if rate != 1.0 {
		t.Errorf("stale-only ledger: expected rate 1.0, got %v", rate)
	}
}

// TestIdleRateAlwaysInRange verifies the [0,1] clamp across a spread of
// activity mixes and windows.
func TestIdleRateAlwaysInRange(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		name       string
		productive int
		idle       int
		window     time.Duration
		want       float64
	}{
		{"all productive", 10, 0, time.Hour, 0.0},
		{"all idle", 0, 10, time.Hour, 1.0},
		{"half and half", 5, 5, time.Hour, 0.5},
		{"one idle of four", 3, 1, 24 * time.Hour, 0.25},
	} {
		t.Run(tc.name, func(t *testing.T) {
			l := New(WithClock(fixedClock(now)))
			for i := 0; i < tc.productive; i++ {
				mustLog(t, l, Entry{Kind: "coding", Productive: true, Timestamp: now.Add(-time.Minute)})
			}
			for i := 0; i < tc.idle; i++ {
				mustLog(t, l, Entry{Kind: "browsing", Timestamp: now.Add(-time.Minute)})
			}

			rate, err := l.IdleRate(tc.window)
			if err != nil {
				t.Fatalf("idle rate: %v", err)
			}
			if rate != tc.want {
				t.Errorf("expected rate %v, got %v", tc.want, rate)
			}
			if rate < 0.0 || rate > 1.0 {
				t.Errorf("rate %v outside [0,1]", rate)
			}
		})
	}
}

// TestDetectThresholdIsStrict verifies that a rate exactly equal to the
// threshold never triggers, while any rate strictly above it does.
func TestDetectThresholdIsStrict(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(WithClock(fixedClock(now)))

	// 1 idle of 2 entries: rate exactly 0.5.
	mustLog(t, l, Entry{Kind: "coding", Productive: true, Timestamp: now.Add(-time.Minute)})
	mustLog(t, l, Entry{Kind: "browsing", Timestamp: now.Add(-time.Minute)})

	report, err := l.Detect(context.Background(), nil, 0.5, time.Hour, 0)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if report.Triggered {
		t.Error("rate equal to threshold must not trigger")
	}

	// A threshold just below the rate triggers.
	report, err = l.Detect(context.Background(), nil, 0.5-1e-9, time.Hour, 0)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if !report.Triggered {
		t.Error("rate above threshold must trigger")
	}
}

// TestDetectEmptyLedgerProposesFullPool covers the backward-compatible
// default: an empty ledger triggers with the full five-action pool, and
// executed actions are exactly those with registered handlers.
func TestDetectEmptyLedgerProposesFullPool(t *testing.T) {
	l := New()
	d := &fakeDispatcher{handled: map[string]bool{
		"start_research_sprint":      true,
		"conduct_strategic_analysis": true,
	}}

	report, err := l.Detect(context.Background(), d, 0.5, time.Hour, 0)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if !report.Triggered {
		t.Fatal("empty ledger must trigger")
	}
	if len(report.ActionsProposed) != 5 {
		t.Errorf("expected full pool of 5 actions, got %d: %v",
			len(report.ActionsProposed), report.ActionsProposed)
	}
	if len(report.ActionsExecuted) != 2 {
		t.Errorf("expected 2 executed actions, got %v", report.ActionsExecuted)
	}
	assertSubset(t, report.ActionsExecuted, report.ActionsProposed)
}

// TestDetectRejectsBadThreshold verifies threshold validation.
func TestDetectRejectsBadThreshold(t *testing.T) {
	l := New()
	for _, threshold := range []float64{-0.1, 1.5} {
		if _, err := l.Detect(context.Background(), nil, threshold, time.Hour, 0); !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("threshold %v: expected ErrInvalidThreshold, got %v", threshold, err)
		}
	}
}

// TestRestoreCapsEntries verifies Restore keeps only the most recent
// MaxEntries entries.
func TestRestoreCapsEntries(t *testing.T) {
	entries := make([]Entry, 120)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range entries {
		entries[i] = Entry{Kind: fmt.Sprintf("k%d", i), Timestamp: base.Add(time.Duration(i) * time.Second)}
	}

	l := New()
	l.Restore(entries)
	if l.Len() != MaxEntries {
		t.Fatalf("expected %d entries after restore, got %d", MaxEntries, l.Len())
	}
	if got := l.Entries()[0].Kind; got != "k20" {
		t.Errorf("expected oldest surviving entry k20, got %s", got)
	}
}

func mustLog(t *testing.T, l *Ledger, e Entry) {
	t.Helper()
	if err := l.Log(e); err != nil {
		t.Fatalf("log: %v", err)
	}
}

func assertSubset(t *testing.T, subset, set []string) {
	t.Helper()
	members := make(map[string]bool, len(set))
	for _, s := range set {
		members[s] = true
	}
	for _, s := range subset {
		if !members[s] {
			t.Errorf("%q executed but never proposed", s)
		}
	}
}
