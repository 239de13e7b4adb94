// Package verify checks analysis results against the SMARC criteria:
// specific, measurable, actionable, reusable, compoundable. Custom
// criteria can be registered alongside the built-in set.
package verify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxHistory bounds the retained verification log.
const DefaultMaxHistory = 1000

// Built-in criterion names.
const (
	CriterionSpecific     = "specific"
	CriterionMeasurable   = "measurable"
	CriterionActionable   = "actionable"
	CriterionReusable     = "reusable"
	CriterionCompoundable = "compoundable"
)

// Criterion checks one property of a result set.
type Criterion func(results map[string]any) bool

// Record is one logged verification attempt.
type Record struct {
	Timestamp time.Time       `json:"timestamp"`
	Results   map[string]any  `json:"results"`
	Outcomes  map[string]bool `json:"verification_results"`
	Valid     bool            `json:"overall_valid"`
}

// Framework verifies result sets and keeps a bounded history.
// Safe for concurrent use.
type Framework struct {
	mu         sync.Mutex
	criteria   map[string]Criterion
	history    []Record
	maxHistory int
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures a Framework.
type Option func(*Framework)

// WithMaxHistory overrides the history bound.
func WithMaxHistory(n int) Option {
	return func(f *Framework) {
		if n > 0 {
			f.maxHistory = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(f *Framework) {
		f.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Framework) {
		f.logger = logger
	}
}

// New creates a framework with the built-in SMARC criteria.
func New(opts ...Option) *Framework {
	f := &Framework{
		criteria: map[string]Criterion{
			CriterionSpecific:     checkSpecific,
			CriterionMeasurable:   checkMeasurable,
			CriterionActionable:   checkActionable,
			CriterionReusable:     checkReusable,
			CriterionCompoundable: checkCompoundable,
		},
		maxHistory: DefaultMaxHistory,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// AddCriterion registers a custom criterion. Re-registering a name
// replaces the previous criterion, built-ins included.
func (f *Framework) AddCriterion(name string, c Criterion) error {
	if name == "" {
		return ErrEmptyCriterionName
	}
	if c == nil {
		return ErrNilCriterion
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.criteria[name] = c
	return nil
}

// Verify runs every criterion against the results. A panicking criterion
// counts as failed rather than aborting the run. The attempt is appended
// to the bounded history.
func (f *Framework) Verify(results map[string]any) map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	outcomes := make(map[string]bool, len(f.criteria))
	for name, c := range f.criteria {
		outcomes[name] = f.runCriterion(name, c, results)
	}

	valid := true
	for _, ok := range outcomes {
		if !ok {
			valid = false
			break
		}
	}

	f.history = append(f.history, Record{
		Timestamp: f.now(),
		Results:   results,
		Outcomes:  outcomes,
		Valid:     valid,
	})
	if len(f.history) > f.maxHistory {
		f.history = f.history[len(f.history)-f.maxHistory:]
	}
	return outcomes
}

func (f *Framework) runCriterion(name string, c Criterion, results map[string]any) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("verification criterion panicked",
				zap.String("criterion", name), zap.Any("panic", r))
			ok = false
		}
	}()
	return c(results)
}

// SuccessRate returns the percentage of fully valid verifications.
func (f *Framework) SuccessRate() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.history) == 0 {
		return 0
	}
	valid := 0
	for _, rec := range f.history {
		if rec.Valid {
			valid++
		}
	}
	return float64(valid) / float64(len(f.history)) * 100
}

// History returns a copy of the verification log, oldest first.
func (f *Framework) History() []Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Record, len(f.history))
	copy(out, f.history)
	return out
}

// checkSpecific: non-empty results with no nil values.
func checkSpecific(results map[string]any) bool {
	if len(results) == 0 {
		return false
	}
	for _, v := range results {
		if v == nil {
			return false
		}
	}
	return true
}

// checkMeasurable: at least one quantifiable value.
func checkMeasurable(results map[string]any) bool {
	for _, v := range results {
		switch v.(type) {
		case int, int64, float64, string:
			return true
		}
	}
	return false
}

// checkActionable: names a next step or recommendation.
func checkActionable(results map[string]any) bool {
	_, hasNext := results["next_step"]
	_, hasRec := results["recommendation"]
	return hasNext || hasRec
}

// checkReusable: more than one applicable insight.
func checkReusable(results map[string]any) bool {
	return len(results) > 1
}

// checkCompoundable: at least one structured value to build on.
func checkCompoundable(results map[string]any) bool {
	for _, v := range results {
		switch v.(type) {
		case []any, []string, map[string]any:
			return true
		}
	}
	return false
}
