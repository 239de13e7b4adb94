package perf

import (
	"errors"
	"testing"
)

// TestAnalyzeTrend verifies the half-split comparison, including the
// reference declining scenario: [0.9 0.85 0.5 0.4] has first-half mean
// 0.875, second-half mean 0.45, a change of about -48.6%.
func TestAnalyzeTrend(t *testing.T) {
	for _, tc := range []struct {
		name   string
		scores []float64
		want   Trend
	}{
		{"steep decline", []float64{0.9, 0.85, 0.5, 0.4}, TrendDeclining},
		{"steady improvement", []float64{0.2, 0.3, 0.6, 0.8}, TrendImproving},
		{"flat", []float64{0.5, 0.5, 0.5, 0.5}, TrendStable},
		{"within five percent", []float64{0.50, 0.51}, TrendStable},
		{"just over five percent", []float64{0.50, 0.53}, TrendImproving},
		{"odd length favors second half", []float64{0.4, 0.8, 0.8}, TrendImproving},
		{"zero baseline", []float64{0.0, 0.5}, TrendStable},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AnalyzeTrend(tc.scores)
			if err != nil {
				t.Fatalf("analyze: %v", err)
			}
			if got != tc.want {
				t.Errorf("AnalyzeTrend(%v) = %v, want %v", tc.scores, got, tc.want)
			}
		})
	}
}

// TestAnalyzeTrendInsufficientData verifies short histories fail.
func TestAnalyzeTrendInsufficientData(t *testing.T) {
	for _, scores := range [][]float64{nil, {}, {0.5}} {
		if _, err := AnalyzeTrend(scores); !errors.Is(err, ErrInsufficientData) {
			t.Errorf("scores %v: expected ErrInsufficientData, got %v", scores, err)
		}
	}
}

// TestTrendForUnknownAgent verifies the registry check.
func TestTrendForUnknownAgent(t *testing.T) {
	tr := NewTracker()
	if _, err := tr.TrendFor("ghost"); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}
}
