package orchestrator

import (
	"time"

	"go.uber.org/zap"

	"github.com/boshu2/agentwatch/cli/internal/monconfig"
	"github.com/boshu2/agentwatch/cli/internal/state"
	"github.com/boshu2/agentwatch/cli/internal/watchdog"
)

// Status is an aggregate snapshot of the monitor.
type Status struct {
	AgentID                 string                     `json:"agent_id"`
	WorkspaceDir            string                     `json:"workspace_dir"`
	DaemonRunning           bool                       `json:"daemon_running"`
	ActivityLogSize         int                        `json:"activity_log_size"`
	RegisteredAgents        int                        `json:"registered_agents"`
	Agents                  []string                   `json:"agents"`
	CapabilityCount         int                        `json:"capability_count"`
	ImprovementHistorySize  int                        `json:"improvement_history_size"`
	VerificationHistorySize int                        `json:"verification_history_size"`
	LLMAvailable            bool                       `json:"llm_available"`
	LastRun                 *LastRun                   `json:"last_run,omitempty"`
	ServiceHealth           *watchdog.Health           `json:"service_health,omitempty"`
	MonitoringInterval      time.Duration              `json:"monitoring_interval"`
	Thresholds              monconfig.ThresholdsConfig `json:"thresholds"`
}

// Status reports the current state of every subsystem. The gateway is
// probed live when a watchdog is attached; nothing else touches the
// network.
func (o *Orchestrator) Status() Status {
	agents := o.tracker.Agents()
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name
	}

	s := Status{
		AgentID:                 o.agentID,
		WorkspaceDir:            o.workspaceDir,
		DaemonRunning:           o.running.Load(),
		ActivityLogSize:         o.ledger.Len(),
		RegisteredAgents:        len(agents),
		Agents:                  names,
		CapabilityCount:         o.protocol.CapabilityCount(),
		ImprovementHistorySize:  len(o.protocol.History()),
		VerificationHistorySize: len(o.verifier.History()),
		LLMAvailable:            o.analyst != nil && o.analyst.Available(),
		MonitoringInterval:      o.cfg.MonitoringInterval,
		Thresholds:              o.cfg.Thresholds,
	}

	var last LastRun
	if err := o.store.Load(state.LastRunFile, &last); err != nil {
		o.logger.Warn("load last run", zap.Error(err))
	} else if !last.Timestamp.IsZero() {
		s.LastRun = &last
	}

	if o.dog != nil {
		health := o.dog.CheckHealth()
		s.ServiceHealth = &health
	}
	return s
}
