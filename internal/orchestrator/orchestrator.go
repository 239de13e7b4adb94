// Package orchestrator wires the monitoring subsystems together: the
// activity ledger, action dispatcher, performance tracker, escalation
// resolver, improvement protocol, and their collaborators (scanner,
// watchdog, LLM analyst, reflection writer, state store). It owns the
// periodic loop and the daemon lifecycle.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/boshu2/agentwatch/cli/internal/dispatch"
	"github.com/boshu2/agentwatch/cli/internal/escalate"
	"github.com/boshu2/agentwatch/cli/internal/improve"
	"github.com/boshu2/agentwatch/cli/internal/ledger"
	"github.com/boshu2/agentwatch/cli/internal/monconfig"
	"github.com/boshu2/agentwatch/cli/internal/perf"
	"github.com/boshu2/agentwatch/cli/internal/reflect"
	"github.com/boshu2/agentwatch/cli/internal/scan"
	"github.com/boshu2/agentwatch/cli/internal/state"
	"github.com/boshu2/agentwatch/cli/internal/verify"
	"github.com/boshu2/agentwatch/cli/internal/watchdog"
)

// LastRun records the most recent completed operation.
type LastRun struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// actionProposals maps each emergency action to the improvement proposal
// its handler executes when the action is dispatched.
var actionProposals = map[string]improve.Proposal{
	"conduct_strategic_analysis":    {Type: "strategic_analysis", Target: "problem_solving"},
	"explore_new_skill_development": {Type: "skill_development", Target: "learning"},
	"start_research_sprint":         {Type: "research_sprint", Target: "task_execution"},
	"design_experimental_prototype": {Type: "experimental_prototype", Target: "learning"},
	"initiate_user_feedback_loop":   {Type: "feedback_loop", Target: "communication"},
}

// Orchestrator composes the monitoring subsystems for one workspace.
// Safe for concurrent use; the daemon loop and ad-hoc CLI calls may
// overlap.
type Orchestrator struct {
	cfg          *monconfig.Config
	agentID      string
	workspaceDir string

	ledger     *ledger.Ledger
	dispatcher *dispatch.Dispatcher
	tracker    *perf.Tracker
	protocol   *improve.Protocol
	resolver   *escalate.Resolver
	verifier   *verify.Framework
	scanner    scan.Scanner
	store      *state.Store
	dog        *watchdog.Watchdog
	analyst    reflect.Analyst
	writer     *reflect.Writer
	metrics    *Metrics

	stateDir string
	dryRun   bool
	logger   *zap.Logger
	now      func() time.Time

	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithScanner replaces the filesystem scanner.
func WithScanner(s scan.Scanner) Option {
	return func(o *Orchestrator) {
		o.scanner = s
	}
}

// WithWatchdog enables gateway health checks during idle checks.
func WithWatchdog(w *watchdog.Watchdog) Option {
	return func(o *Orchestrator) {
		o.dog = w
	}
}

// WithAnalyst enables the LLM narrative in daily reflections.
func WithAnalyst(a reflect.Analyst) Option {
	return func(o *Orchestrator) {
		o.analyst = a
	}
}

// WithStateDir overrides the state directory from the config.
func WithStateDir(dir string) Option {
	return func(o *Orchestrator) {
		o.stateDir = dir
	}
}

// WithDryRun makes idle checks and reviews report what they would do
// without dispatching actions or writing anything to disk.
func WithDryRun(dry bool) Option {
	return func(o *Orchestrator) {
		o.dryRun = dry
	}
}

// WithMetrics attaches a daemon metrics set.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New builds an orchestrator for the given workspace and agent, registers
// all configured agents, wires the emergency action handlers, and restores
// persisted state.
func New(cfg *monconfig.Config, workspaceDir, agentID string, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if agentID == "" {
		agentID = "loopy-0"
	}

	o := &Orchestrator{
		cfg:          cfg,
		agentID:      agentID,
		workspaceDir: workspaceDir,
		logger:       zap.NewNop(),
		now:          time.Now,
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.ledger = ledger.New(ledger.WithLogger(o.logger), ledger.WithClock(o.now))
	o.dispatcher = dispatch.New(o.logger)
	o.tracker = perf.NewTracker(
		perf.WithLogger(o.logger),
		perf.WithClock(o.now),
		perf.WithQualityThreshold(cfg.Thresholds.GoalCompletionRate.Warning))
	o.protocol = improve.New(improve.WithLogger(o.logger), improve.WithClock(o.now))
	o.resolver = escalate.NewResolver(escalate.Thresholds{
		Warning:         cfg.Thresholds.GoalCompletionRate.Warning,
		Critical:        cfg.Thresholds.GoalCompletionRate.Critical,
		SustainedCycles: cfg.SustainedCycles,
	}, escalate.WithLogger(o.logger))
	o.verifier = verify.New(verify.WithLogger(o.logger), verify.WithClock(o.now))
	if o.scanner == nil {
		o.scanner = scan.NewFS(workspaceDir, scan.WithLogger(o.logger), scan.WithClock(o.now))
	}
	dir := o.stateDir
	if dir == "" {
		dir = cfg.StateDir
	}
	if dir == "" {
		dir = state.DefaultBaseDir
	}
	o.store = state.NewStore(state.WithBaseDir(dir), state.WithLogger(o.logger))
	o.writer = reflectWriter(workspaceDir, o.analyst, o.logger)

	if err := o.store.Init(); err != nil {
		return nil, fmt.Errorf("init state dir: %w", err)
	}

	for _, name := range agentRoster(cfg.Agents, agentID) {
		if _, err := o.tracker.Register(name); err != nil {
			return nil, fmt.Errorf("register agent %s: %w", name, err)
		}
	}

	for name, proposal := range actionProposals {
		p := proposal
		if err := o.dispatcher.Register(name, func(context.Context) error {
			return o.protocol.Execute(p)
		}); err != nil {
			return nil, fmt.Errorf("register action %s: %w", name, err)
		}
	}

	o.restoreState()
	return o, nil
}

func reflectWriter(workspaceDir string, analyst reflect.Analyst, logger *zap.Logger) *reflect.Writer {
	opts := []reflect.WriterOption{reflect.WithLogger(logger)}
	if analyst != nil {
		opts = append(opts, reflect.WithAnalyst(analyst))
	}
	return reflect.NewWriter(workspaceDir, opts...)
}

// agentRoster merges the configured agents with the current agent,
// current agent first, without duplicates.
func agentRoster(configured []string, agentID string) []string {
	out := []string{agentID}
	seen := map[string]struct{}{agentID: {}}
	for _, name := range configured {
		if _, ok := seen[name]; ok || name == "" {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// AgentID returns the agent this orchestrator primarily monitors.
func (o *Orchestrator) AgentID() string {
	return o.agentID
}

// LogActivity records an externally reported activity in the ledger.
func (o *Orchestrator) LogActivity(e ledger.Entry) error {
	return o.ledger.Log(e)
}

// persistState saves all subsystem state through the atomic store.
func (o *Orchestrator) persistState() error {
	if err := o.store.Save(state.ActivityLogFile, o.ledger.Snapshot()); err != nil {
		return err
	}
	if err := o.store.Save(state.PerformanceHistoryFile, o.tracker.Snapshot()); err != nil {
		return err
	}
	caps, history := o.protocol.Snapshot()
	if err := o.store.Save(state.ImprovementHistoryFile, history); err != nil {
		return err
	}
	return o.store.Save(state.CapabilityMapFile, caps)
}

// restoreState loads persisted subsystem state. Missing or corrupt files
// leave the corresponding subsystem at its zero state.
func (o *Orchestrator) restoreState() {
	var entries []ledger.Entry
	if err := o.store.Load(state.ActivityLogFile, &entries); err != nil {
		o.logger.Warn("restore activity log", zap.Error(err))
	} else if entries != nil {
		o.ledger.Restore(entries)
	}

	var records []perf.Record
	if err := o.store.Load(state.PerformanceHistoryFile, &records); err != nil {
		o.logger.Warn("restore performance history", zap.Error(err))
	} else if records != nil {
		o.tracker.Restore(records)
	}

	var caps map[string]improve.Capability
	var history []improve.HistoryEntry
	if err := o.store.Load(state.CapabilityMapFile, &caps); err != nil {
		o.logger.Warn("restore capability map", zap.Error(err))
	}
	if err := o.store.Load(state.ImprovementHistoryFile, &history); err != nil {
		o.logger.Warn("restore improvement history", zap.Error(err))
	}
	if caps != nil || history != nil {
		o.protocol.Restore(caps, history)
	}

	var checks []watchdog.CheckResult
	if o.dog != nil {
		if err := o.store.Load(watchdogHistoryFile, &checks); err != nil {
			o.logger.Warn("restore watchdog history", zap.Error(err))
		} else if checks != nil {
			o.dog.Restore(checks)
		}
	}
}

// watchdogHistoryFile persists gateway check history alongside the core
// state files.
const watchdogHistoryFile = "watchdog_history.json"
