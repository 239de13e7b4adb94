package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boshu2/agentwatch/cli/internal/orchestrator"
)

var dailyReviewCmd = &cobra.Command{
	Use:   "daily-review",
	Short: "Score the agent, assess escalation, write a reflection",
	Long: `Run the full daily review pipeline: scan 24 hours of activity, score
the agent on accuracy, efficiency, and adaptability, seed the capability
map from observed evidence, assess the escalation tier, and write the
daily reflection markdown.

Examples:
  aw daily-review
  aw daily-review -o json`,
	RunE: runDailyReview,
}

func init() {
	rootCmd.AddCommand(dailyReviewCmd)
}

func runDailyReview(cmd *cobra.Command, args []string) error {
	o, _, logger, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	review, err := o.DailyReview(cmd.Context())
	if err != nil {
		return err
	}
	return emit(review, func() { printReview(review) })
}

func printReview(review orchestrator.Review) {
	fmt.Printf("Daily Review - %s\n", review.Date)
	fmt.Println("=========================")
	fmt.Printf("Activities:   %d\n", review.ActivitiesFound)
	fmt.Printf("Score:        %.2f (accuracy %.2f, efficiency %.2f, adaptability %.2f)\n",
		review.Score, review.Accuracy, review.Efficiency, review.Adaptability)
	fmt.Printf("Fleet avg:    %.2f\n", review.AverageScore)
	if review.Trend != "" {
		fmt.Printf("Trend:        %s\n", review.Trend)
	}

	fmt.Printf("\nIntervention: %s\n", review.Intervention.Tier)
	fmt.Printf("  Reason:  %s\n", review.Intervention.Reason)
	if len(review.Intervention.Actions) > 0 {
		fmt.Printf("  Actions: %s\n", strings.Join(review.Intervention.Actions, ", "))
	}

	if !review.Gaps.Empty() {
		fmt.Println("\nCapability gaps:")
		for _, name := range review.Gaps.Missing {
			fmt.Printf("  missing: %s\n", name)
		}
		for _, name := range review.Gaps.LowProficiency {
			fmt.Printf("  low:     %s\n", name)
		}
		for _, name := range review.Gaps.Stale {
			fmt.Printf("  stale:   %s\n", name)
		}
	}

	if review.Improvement != nil {
		fmt.Printf("\nImprovement executed: %s -> %s\n",
			review.Improvement.Type, review.Improvement.Target)
	}
	if review.ReflectionPath != "" {
		fmt.Printf("\nReflection: %s\n", review.ReflectionPath)
	}
}
