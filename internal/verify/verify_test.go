package verify

import (
	"errors"
	"testing"
)

// actionableResults is a result set passing all five built-in criteria.
func actionableResults() map[string]any {
	return map[string]any{
		"score":          0.72,
		"recommendation": "diversify activity kinds",
		"gaps":           []string{"self_monitoring"},
	}
}

// TestVerifyBuiltinCriteria covers representative passes and failures per
// criterion.
func TestVerifyBuiltinCriteria(t *testing.T) {
	f := New()

	outcomes := f.Verify(actionableResults())
	for name, ok := range outcomes {
		if !ok {
			t.Errorf("criterion %s should pass for full results", name)
		}
	}

	outcomes = f.Verify(map[string]any{"only": nil})
	if outcomes[CriterionSpecific] {
		t.Errorf("nil value should fail specificity")
	}

	outcomes = f.Verify(map[string]any{"score": 0.5})
	if outcomes[CriterionActionable] {
		t.Errorf("no next_step/recommendation should fail actionability")
	}
	if outcomes[CriterionReusable] {
		t.Errorf("single-entry results should fail reusability")
	}
	if outcomes[CriterionCompoundable] {
		t.Errorf("flat results should fail compoundability")
	}
}

// TestVerifyEmptyResults verifies the degenerate case.
func TestVerifyEmptyResults(t *testing.T) {
	f := New()
	outcomes := f.Verify(map[string]any{})
	for name, ok := range outcomes {
		if ok {
			t.Errorf("criterion %s should fail for empty results", name)
		}
	}
}

// TestAddCriterionValidatesAndOverrides verifies registration rules.
func TestAddCriterionValidatesAndOverrides(t *testing.T) {
	f := New()

	if err := f.AddCriterion("", func(map[string]any) bool { return true }); !errors.Is(err, ErrEmptyCriterionName) {
		t.Errorf("expected ErrEmptyCriterionName, got %v", err)
	}
	if err := f.AddCriterion("custom", nil); !errors.Is(err, ErrNilCriterion) {
		t.Errorf("expected ErrNilCriterion, got %v", err)
	}

	// Overriding a built-in is allowed.
	if err := f.AddCriterion(CriterionReusable, func(map[string]any) bool { return true }); err != nil {
		t.Fatalf("add: %v", err)
	}
	outcomes := f.Verify(map[string]any{"one": 1})
	if !outcomes[CriterionReusable] {
		t.Errorf("overridden criterion should apply")
	}
}

// TestVerifyPanickingCriterionFails verifies the fault boundary.
func TestVerifyPanickingCriterionFails(t *testing.T) {
	f := New()
	if err := f.AddCriterion("explosive", func(map[string]any) bool {
		panic("boom")
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	outcomes := f.Verify(actionableResults())
	if outcomes["explosive"] {
		t.Errorf("panicking criterion should count as failed")
	}
	if !outcomes[CriterionSpecific] {
		t.Errorf("other criteria should still run")
	}
}

// TestHistoryFIFOAndSuccessRate verifies the bound and the rate math.
func TestHistoryFIFOAndSuccessRate(t *testing.T) {
	f := New(WithMaxHistory(5))

	if f.SuccessRate() != 0 {
		t.Errorf("empty history rate should be 0")
	}

	for i := 0; i < 8; i++ {
		if i%2 == 0 {
			f.Verify(actionableResults())
		} else {
			f.Verify(map[string]any{"bare": 1})
		}
	}
	history := f.History()
	if len(history) != 5 {
		t.Fatalf("history length: got %d, want 5", len(history))
	}

	// Retained window is attempts 3..7: valid at even indices 4 and 6.
	want := float64(2) / 5 * 100
	if got := f.SuccessRate(); got != want {
		t.Errorf("success rate: got %v, want %v", got, want)
	}
}
