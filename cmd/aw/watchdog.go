package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boshu2/agentwatch/cli/internal/monconfig"
	"github.com/boshu2/agentwatch/cli/internal/watchdog"
	"go.uber.org/zap"
)

var (
	watchdogPort       int
	watchdogRestartCmd string
	watchdogProbeOnly  bool
)

var watchdogCmd = &cobra.Command{
	Use:   "watchdog",
	Short: "Probe the local gateway and restart it if down",
	Long: `Run one watchdog cycle against the gateway port: probe it, and when it
is down, run the restart command with retries and verify recovery.

Examples:
  aw watchdog
  aw watchdog --port 31415 --probe-only
  aw watchdog --restart-cmd "systemctl --user restart gateway"`,
	RunE: runWatchdog,
}

func init() {
	watchdogCmd.Flags().IntVar(&watchdogPort, "port", watchdog.DefaultPort, "Gateway TCP port to probe")
	watchdogCmd.Flags().StringVar(&watchdogRestartCmd, "restart-cmd", "", "Command to restart a down gateway")
	watchdogCmd.Flags().BoolVar(&watchdogProbeOnly, "probe-only", false, "Probe without attempting a restart")
	rootCmd.AddCommand(watchdogCmd)
}

func runWatchdog(cmd *cobra.Command, args []string) error {
	cfg, err := monconfig.Load(cfgFile, zap.NewNop())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := buildLogger(cfg.Logger)
	defer func() { _ = logger.Sync() }()

	dog := watchdog.New(
		&watchdog.CommandRestarter{Command: strings.Fields(watchdogRestartCmd)},
		watchdog.WithPort(watchdogPort),
		watchdog.WithLogger(logger))

	if watchdogProbeOnly || dryRun {
		health := dog.CheckHealth()
		return emit(health, func() {
			state := "down"
			if health.Healthy {
				state = "healthy"
			}
			fmt.Printf("Gateway %s on port %d: %s\n", state, health.Port, health.Detail)
		})
	}

	result := dog.RunCheck(cmd.Context())
	return emit(result, func() { printWatchdogResult(result) })
}

func printWatchdogResult(result watchdog.CheckResult) {
	fmt.Printf("Status: %s\n", result.Status)
	fmt.Printf("Action: %s\n", result.Action)
	if len(result.RestartAttempts) > 0 {
		fmt.Printf("Restart attempts: %d\n", len(result.RestartAttempts))
		for i, attempt := range result.RestartAttempts {
			outcome := "failed"
			if attempt.Success {
				outcome = "ok"
			}
			fmt.Printf("  %d: %s %s\n", i+1, outcome, attempt.Output)
		}
	}
}
