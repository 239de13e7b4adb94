package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boshu2/agentwatch/cli/internal/orchestrator"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show monitor state",
	Long: `Display the aggregate state of the monitor: ledger size, registered
agents, capability map, history sizes, LLM availability, and the last
completed run.

Examples:
  aw status
  aw status -o json`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	o, _, logger, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return emit(o.Status(), func() { printStatus(o.Status()) })
}

func printStatus(s orchestrator.Status) {
	fmt.Println("AgentWatch Status")
	fmt.Println("=================")
	fmt.Printf("Agent:        %s\n", s.AgentID)
	fmt.Printf("Workspace:    %s\n", s.WorkspaceDir)
	fmt.Printf("Daemon:       %v\n", s.DaemonRunning)
	fmt.Printf("Agents:       %s\n", strings.Join(s.Agents, ", "))
	fmt.Println()
	fmt.Printf("Activity log:         %d entries\n", s.ActivityLogSize)
	fmt.Printf("Capabilities:         %d\n", s.CapabilityCount)
	fmt.Printf("Improvement history:  %d\n", s.ImprovementHistorySize)
	fmt.Printf("Verification history: %d\n", s.VerificationHistorySize)
	fmt.Printf("LLM available:        %v\n", s.LLMAvailable)
	if s.LastRun != nil {
		fmt.Printf("\nLast run: %s at %s\n",
			s.LastRun.Type, s.LastRun.Timestamp.Format("2006-01-02 15:04:05"))
	}
	if s.ServiceHealth != nil {
		state := "down"
		if s.ServiceHealth.Healthy {
			state = "healthy"
		}
		fmt.Printf("Gateway:  %s (port %d)\n", state, s.ServiceHealth.Port)
	}
}
