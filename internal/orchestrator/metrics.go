package orchestrator

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the daemon's instrumentation set. A nil *Metrics is valid
// and records nothing, so ad-hoc CLI invocations skip registration.
type Metrics struct {
	cycles          *prometheus.CounterVec
	cycleErrors     prometheus.Counter
	idleTriggers    prometheus.Counter
	actionsExecuted prometheus.Counter
	idleRate        prometheus.Gauge
	agentScore      *prometheus.GaugeVec
}

// NewMetrics builds and registers the metric set on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentwatch",
			Name:      "cycles_total",
			Help:      "Completed monitoring cycles by type.",
		}, []string{"cycle"}),
		cycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentwatch",
			Name:      "cycle_errors_total",
			Help:      "Monitoring cycles that failed or panicked.",
		}),
		idleTriggers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentwatch",
			Name:      "idle_triggers_total",
			Help:      "Idle checks that crossed the idle threshold.",
		}),
		actionsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentwatch",
			Name:      "actions_executed_total",
			Help:      "Remediation actions executed by the dispatcher.",
		}),
		idleRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentwatch",
			Name:      "idle_rate",
			Help:      "Idle rate observed by the most recent idle check.",
		}),
		agentScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "agentwatch",
			Name:      "agent_score",
			Help:      "Latest productivity score per agent.",
		}, []string{"agent"}),
	}
	reg.MustRegister(m.cycles, m.cycleErrors, m.idleTriggers,
		m.actionsExecuted, m.idleRate, m.agentScore)
	return m
}

// IncCycle counts one completed cycle of the named type.
func (m *Metrics) IncCycle(name string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(name).Inc()
}

// IncCycleError counts one failed cycle.
func (m *Metrics) IncCycleError() {
	if m == nil {
		return
	}
	m.cycleErrors.Inc()
}

// observeIdleCheck records the outcome of one idle check.
func (o *Orchestrator) observeIdleCheck(result IdleCheckResult) {
	if o.metrics == nil {
		return
	}
	o.metrics.idleRate.Set(result.IdleRate)
	if result.Triggered {
		o.metrics.idleTriggers.Inc()
	}
	o.metrics.actionsExecuted.Add(float64(len(result.ActionsExecuted)))
}

// observeReview records the outcome of one daily review.
func (o *Orchestrator) observeReview(review Review) {
	if o.metrics == nil {
		return
	}
	o.metrics.agentScore.WithLabelValues(o.agentID).Set(review.Score)
}
