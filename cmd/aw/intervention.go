package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boshu2/agentwatch/cli/internal/orchestrator"
)

var interventionAgent string

var interventionCmd = &cobra.Command{
	Use:   "intervention",
	Short: "Show the current escalation tier for an agent",
	Long: `Resolve the escalation tier for an agent from its latest persisted
score. This is a read-only query; only the daily review advances the
sustained-decline streak.

Examples:
  aw intervention
  aw intervention --agent loopy-1 -o json`,
	RunE: runIntervention,
}

func init() {
	interventionCmd.Flags().StringVar(&interventionAgent, "agent", "", "Agent name (default: the monitored agent)")
	rootCmd.AddCommand(interventionCmd)
}

func runIntervention(cmd *cobra.Command, args []string) error {
	o, _, logger, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	agent := interventionAgent
	if agent == "" {
		agent = o.AgentID()
	}
	iv, err := o.InterventionFor(agent)
	if err != nil {
		return err
	}
	return emit(iv, func() { printIntervention(iv) })
}

func printIntervention(iv orchestrator.Intervention) {
	fmt.Printf("Agent:  %s\n", iv.Agent)
	fmt.Printf("Tier:   %s\n", iv.Tier)
	fmt.Printf("Score:  %.2f\n", iv.Score)
	fmt.Printf("Reason: %s\n", iv.Reason)
	if iv.Duration != "" {
		fmt.Printf("Duration: %s\n", iv.Duration)
	}
	if len(iv.Actions) > 0 {
		fmt.Printf("Actions:  %s\n", strings.Join(iv.Actions, ", "))
	}
}
