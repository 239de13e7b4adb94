package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boshu2/agentwatch/cli/internal/orchestrator"
)

var idleCheckCmd = &cobra.Command{
	Use:   "idle-check",
	Short: "Scan recent activity and intervene on idleness",
	Long: `Scan the workspace for recent activity, compute the idle rate over the
configured window, and dispatch remediation actions when the rate crosses
the idle threshold.

Examples:
  aw idle-check
  aw idle-check --workspace-dir ~/work -o json
  aw idle-check --dry-run`,
	RunE: runIdleCheck,
}

func init() {
	rootCmd.AddCommand(idleCheckCmd)
}

func runIdleCheck(cmd *cobra.Command, args []string) error {
	o, _, logger, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	result, err := o.IdleCheck(cmd.Context())
	if err != nil {
		return err
	}
	return emit(result, func() { printIdleCheck(result) })
}

func printIdleCheck(result orchestrator.IdleCheckResult) {
	fmt.Println("Idle Check")
	fmt.Println("==========")
	fmt.Printf("Activities found: %d\n", result.ActivitiesFound)
	fmt.Printf("Idle rate:        %.2f\n", result.IdleRate)
	fmt.Printf("Triggered:        %v\n", result.Triggered)
	if len(result.ActionsProposed) > 0 {
		fmt.Printf("Proposed:         %s\n", strings.Join(result.ActionsProposed, ", "))
	}
	if len(result.ActionsExecuted) > 0 {
		fmt.Printf("Executed:         %s\n", strings.Join(result.ActionsExecuted, ", "))
	}
	if result.Improvement != nil {
		fmt.Printf("Improvement:      %s -> %s\n", result.Improvement.Type, result.Improvement.Target)
	}
	if result.ServiceHealth != nil {
		fmt.Printf("Gateway:          %s\n", result.ServiceHealth.Status)
	}
}
