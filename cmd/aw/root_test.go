package main

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/boshu2/agentwatch/cli/internal/monconfig"
	"github.com/boshu2/agentwatch/cli/internal/state"
)

func TestResolveAgent(t *testing.T) {
	cfg := &monconfig.Config{Agents: []string{"loopy-0", "loopy-1"}}

	agentID = ""
	if got := resolveAgent(cfg); got != "loopy-0" {
		t.Errorf("default agent: got %s, want loopy-0", got)
	}

	agentID = "loopy-1"
	defer func() { agentID = "" }()
	if got := resolveAgent(cfg); got != "loopy-1" {
		t.Errorf("flag agent: got %s, want loopy-1", got)
	}
}

func TestBuildLoggerVerboseForcesDebug(t *testing.T) {
	verbose = true
	defer func() { verbose = false }()

	logger := buildLogger(monconfig.LoggerConfig{Level: "warn", Format: "console"})
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Errorf("verbose should enable debug level")
	}
}

func TestBuildLoggerRespectsConfigLevel(t *testing.T) {
	logger := buildLogger(monconfig.LoggerConfig{Level: "error", Format: "json"})
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Errorf("error level should not enable info")
	}
}

// TestIdleCheckCommand exercises the wired command end to end against an
// empty workspace: fully idle, so the intervention pipeline runs and
// state lands on disk.
func TestIdleCheckCommand(t *testing.T) {
	ws := t.TempDir()
	sd := t.TempDir()

	rootCmd.SetArgs([]string{"idle-check",
		"--workspace-dir", ws, "--state-dir", sd, "-o", "json"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("idle-check: %v", err)
	}

	for _, name := range []string{state.ActivityLogFile, state.LastRunFile} {
		if _, err := os.Stat(filepath.Join(sd, name)); err != nil {
			t.Errorf("state file %s: %v", name, err)
		}
	}
}

// TestDailyReviewCommand exercises the review command end to end.
func TestDailyReviewCommand(t *testing.T) {
	ws := t.TempDir()
	sd := t.TempDir()

	rootCmd.SetArgs([]string{"daily-review",
		"--workspace-dir", ws, "--state-dir", sd, "-o", "json"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("daily-review: %v", err)
	}

	reflections, err := filepath.Glob(filepath.Join(ws, "memory", "daily-reflections", "*-reflection.md"))
	if err != nil || len(reflections) != 1 {
		t.Errorf("expected one reflection file, got %v (%v)", reflections, err)
	}
}

func TestVersionCommand(t *testing.T) {
	rootCmd.SetArgs([]string{"version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
}
