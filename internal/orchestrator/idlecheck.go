package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/boshu2/agentwatch/cli/internal/improve"
	"github.com/boshu2/agentwatch/cli/internal/ledger"
	"github.com/boshu2/agentwatch/cli/internal/scan"
	"github.com/boshu2/agentwatch/cli/internal/state"
	"github.com/boshu2/agentwatch/cli/internal/watchdog"
)

// IdleCheckResult is the composite outcome of one idle check.
type IdleCheckResult struct {
	Timestamp       time.Time             `json:"timestamp"`
	ActivitiesFound int                   `json:"activities_found"`
	IdleRate        float64               `json:"idle_rate"`
	Triggered       bool                  `json:"triggered"`
	ProductiveCount int                   `json:"productive_count"`
	ActionsProposed []string              `json:"actions_proposed"`
	ActionsExecuted []string              `json:"actions_executed"`
	Improvement     *improve.Proposal     `json:"improvement,omitempty"`
	ServiceHealth   *watchdog.CheckResult `json:"service_health,omitempty"`
}

// IdleCheck runs one full idle assessment: probe the gateway if a
// watchdog is attached, scan the workspace for fresh activity, feed the
// ledger, detect idle state and dispatch remediation actions, then
// persist state. A persistence failure aborts the check with an error;
// the daemon cycle boundary absorbs it.
func (o *Orchestrator) IdleCheck(ctx context.Context) (IdleCheckResult, error) {
	result := IdleCheckResult{
		Timestamp:       o.now(),
		ActionsProposed: []string{},
		ActionsExecuted: []string{},
	}

	if o.dog != nil {
		check := o.dog.RunCheck(ctx)
		result.ServiceHealth = &check
		if check.Status == watchdog.StatusDown {
			o.logger.Warn("gateway down after restart attempts",
				zap.String("action", check.Action))
		}
	}

	window := o.cfg.Idle.Window
	activities, err := o.scanner.ScanActivity(ctx, window)
	if err != nil {
		return result, fmt.Errorf("scan activity: %w", err)
	}
	result.ActivitiesFound = len(activities)

	for _, a := range activities {
		if err := o.ledger.Log(activityEntry(a)); err != nil {
			o.logger.Warn("drop invalid activity", zap.Error(err))
		}
	}

	var dispatcher ledger.Dispatcher = o.dispatcher
	if o.dryRun {
		dispatcher = nil
	}
	report, err := o.ledger.Detect(ctx, dispatcher,
		o.cfg.Idle.Threshold, window, o.cfg.Idle.MinProductive)
	if err != nil {
		return result, fmt.Errorf("idle detection: %w", err)
	}
	result.IdleRate = report.IdleRate
	result.Triggered = report.Triggered
	result.ProductiveCount = report.ProductiveCount
	result.ActionsProposed = report.ActionsProposed
	result.ActionsExecuted = report.ActionsExecuted

	if report.Triggered && !o.dryRun {
		if proposals := o.protocol.Proposals(); len(proposals) > 0 {
			if err := o.protocol.Execute(proposals[0]); err != nil {
				o.logger.Warn("improvement execution failed", zap.Error(err))
			} else {
				result.Improvement = &proposals[0]
			}
		}
	}

	o.observeIdleCheck(result)

	if o.dryRun {
		return result, nil
	}
	if err := o.persistState(); err != nil {
		return result, fmt.Errorf("persist state: %w", err)
	}
	last := LastRun{Type: "idle_check", Timestamp: result.Timestamp}
	if err := o.store.Save(state.LastRunFile, last); err != nil {
		return result, fmt.Errorf("persist last run: %w", err)
	}
	if o.dog != nil {
		if err := o.store.Save(watchdogHistoryFile, o.dog.History()); err != nil {
			return result, fmt.Errorf("persist watchdog history: %w", err)
		}
	}

	o.logger.Info("idle check complete",
		zap.Float64("idle_rate", result.IdleRate),
		zap.Bool("triggered", result.Triggered),
		zap.Int("activities", result.ActivitiesFound))
	return result, nil
}

// activityEntry converts a scanned activity into a ledger entry.
func activityEntry(a scan.Activity) ledger.Entry {
	md := map[string]any{
		"path":        a.Path,
		"description": a.Description,
	}
	if a.CommitHash != "" {
		md["commit_hash"] = a.CommitHash
	}
	if a.Duration > 0 {
		md["duration_minutes"] = a.Duration.Minutes()
	}
	return ledger.Entry{
		Timestamp:  a.Timestamp,
		Kind:       a.Kind,
		Productive: a.Productive,
		Metadata:   md,
	}
}
