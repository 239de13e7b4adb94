package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/boshu2/agentwatch/cli/internal/llm"
	"github.com/boshu2/agentwatch/cli/internal/monconfig"
	"github.com/boshu2/agentwatch/cli/internal/orchestrator"
)

var (
	// Global flags
	dryRun       bool
	verbose      bool
	output       string
	cfgFile      string
	workspaceDir string
	stateDir     string
	agentID      string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "aw",
	Short: "Activity-driven intervention engine for autonomous agents",
	Long: `aw monitors autonomous worker agents through the evidence they leave on
the filesystem: git commits, file modifications, and daily reflections.
It detects idleness, scores productivity, escalates sustained decline,
and writes a daily reflection.

Core Commands:
  idle-check    Scan recent activity and intervene on idleness
  daily-review  Score the agent, assess escalation, write a reflection
  intervention  Show the current escalation tier for an agent
  run-daemon    Run the monitor as a long-lived daemon
  status        Show monitor state
  watchdog      Probe the local gateway and restart it if down
  version       Show version information`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Show what would happen without executing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (json, table, yaml)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&workspaceDir, "workspace-dir", "", "Agent workspace (default: ~/.openclaw/workspace)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "State directory (default: from config)")
	rootCmd.PersistentFlags().StringVar(&agentID, "agent-id", "", "Agent to monitor (default: first configured agent)")
}

// buildLogger constructs the zap logger from the config, with --verbose
// forcing debug level.
func buildLogger(cfg monconfig.LoggerConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level = parsed
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	zc := zap.NewProductionConfig()
	if cfg.Format != "json" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// resolveWorkspace returns the workspace directory, defaulting to the
// agent home under the user's home directory.
func resolveWorkspace() string {
	if workspaceDir != "" {
		return workspaceDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".openclaw", "workspace")
}

// resolveAgent returns the agent to operate on: the --agent-id flag or
// the first configured agent.
func resolveAgent(cfg *monconfig.Config) string {
	if agentID != "" {
		return agentID
	}
	if len(cfg.Agents) > 0 {
		return cfg.Agents[0]
	}
	return "loopy-0"
}

// newOrchestrator builds the orchestrator from the global flags plus any
// extra options. The LLM analyst is attached only when an API key is
// configured.
func newOrchestrator(extra ...orchestrator.Option) (*orchestrator.Orchestrator, *monconfig.Config, *zap.Logger, error) {
	cfg, err := monconfig.Load(cfgFile, zap.NewNop())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := buildLogger(cfg.Logger)

	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithDryRun(dryRun),
	}
	if stateDir != "" {
		opts = append(opts, orchestrator.WithStateDir(stateDir))
	}
	if provider := llm.NewProvider(llm.WithLogger(logger)); provider.Available() {
		opts = append(opts, orchestrator.WithAnalyst(provider))
	}
	opts = append(opts, extra...)

	o, err := orchestrator.New(cfg, resolveWorkspace(), resolveAgent(cfg), opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	return o, cfg, logger, nil
}
