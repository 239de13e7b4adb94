package perf

// Trend is the direction of an agent's score history.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// trendCutoff is the relative change beyond which a history counts as
// improving or declining.
const trendCutoff = 0.05

// AnalyzeTrend splits an ordered score history into halves and compares
// their means. Odd-length histories give the extra record to the second
// half. A relative change above +5% is improving, below -5% declining,
// anything else stable. Histories shorter than two records fail with
// ErrInsufficientData.
func AnalyzeTrend(scores []float64) (Trend, error) {
	if len(scores) < 2 {
		return "", ErrInsufficientData
	}

	mid := len(scores) / 2
	first := mean(scores[:mid])
	second := mean(scores[mid:])

	// A zero baseline admits no relative comparison.
	if first == 0 {
		return TrendStable, nil
	}

	change := (second - first) / first
	switch {
	case change > trendCutoff:
		return TrendImproving, nil
	case change < -trendCutoff:
		return TrendDeclining, nil
	default:
		return TrendStable, nil
	}
}

// TrendFor analyzes the trend of one agent's full score history.
func (t *Tracker) TrendFor(name string) (Trend, error) {
	if !t.Registered(name) {
		return "", ErrUnknownAgent
	}
	return AnalyzeTrend(t.ScoresFor(name))
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
