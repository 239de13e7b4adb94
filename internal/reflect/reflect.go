// Package reflect writes daily reflection markdown from real review data:
// scanned activities, performance metrics, intervention status, and
// capability gaps. When an LLM provider is available it adds a short
// narrative section; everything else is derived from data.
package reflect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/boshu2/agentwatch/cli/internal/improve"
	"github.com/boshu2/agentwatch/cli/internal/scan"
)

// maxCommitsListed bounds the per-repo and achievements commit lists.
const maxCommitsListed = 5

// Analyst produces a free-form narrative from a prompt and context.
// Satisfied by *llm.Provider.
type Analyst interface {
	Available() bool
	Analyze(ctx context.Context, prompt, contextText string, maxTokens int) string
}

// Input is everything a daily reflection is built from.
type Input struct {
	Date             string
	Activities       []scan.Activity
	AgentScore       float64
	AverageScore     float64
	QualityThreshold float64
	Accuracy         float64
	Efficiency       float64
	Adaptability     float64
	PreviousScore    float64
	HasPrevious      bool
	Tier             string
	TierReason       string
	TierActions      []string
	Gaps             improve.Gaps
	Improvement      *improve.Proposal
}

// Writer renders reflections into the workspace.
type Writer struct {
	// WorkspaceDir is the agent workspace root; reflections go under
	// memory/daily-reflections.
	WorkspaceDir string

	analyst Analyst
	logger  *zap.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithAnalyst enables the narrative section.
func WithAnalyst(a Analyst) WriterOption {
	return func(w *Writer) {
		w.analyst = a
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// NewWriter creates a reflection writer rooted at workspaceDir.
func NewWriter(workspaceDir string, opts ...WriterOption) *Writer {
	w := &Writer{
		WorkspaceDir: workspaceDir,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders the reflection and writes it to
// memory/daily-reflections/<date>-reflection.md, returning the path.
func (w *Writer) Write(ctx context.Context, in Input) (string, error) {
	dir := filepath.Join(w.WorkspaceDir, "memory", "daily-reflections")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create reflection dir: %w", err)
	}
	path := filepath.Join(dir, in.Date+"-reflection.md")

	if err := os.WriteFile(path, []byte(w.Render(ctx, in)), 0600); err != nil {
		return "", fmt.Errorf("write reflection: %w", err)
	}
	return path, nil
}

// Render builds the reflection markdown.
func (w *Writer) Render(ctx context.Context, in Input) string {
	kindCounts := make(map[string]int)
	commitsByRepo := make(map[string][]string)
	var allCommits []string
	for _, a := range in.Activities {
		kindCounts[a.Kind]++
		if a.Kind == scan.KindGitCommit {
			repo := filepath.Base(a.Path)
			commitsByRepo[repo] = append(commitsByRepo[repo], a.Description)
			allCommits = append(allCommits, a.Description)
		}
	}

	var b strings.Builder
	write := func(lines ...string) {
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	write("# Daily Reflection - "+in.Date, "")

	write("## Activity Summary",
		fmt.Sprintf("- **Total activities**: %d", len(in.Activities)))
	for _, kind := range sortedKeys(kindCounts) {
		write(fmt.Sprintf("- %s: %d", kind, kindCounts[kind]))
	}
	if len(commitsByRepo) > 0 {
		write("", "### Git Activity")
		for _, repo := range sortedKeys(commitsByRepo) {
			msgs := commitsByRepo[repo]
			write(fmt.Sprintf("- **%s** (%d commits)", repo, len(msgs)))
			for i, msg := range msgs {
				if i == maxCommitsListed {
					write(fmt.Sprintf("  - ... and %d more", len(msgs)-maxCommitsListed))
					break
				}
				write("  - " + msg)
			}
		}
	}

	if len(allCommits) > 0 {
		write("", "## Achievements")
		for i, msg := range allCommits {
			if i == 2*maxCommitsListed {
				write(fmt.Sprintf("- ... and %d more commits", len(allCommits)-2*maxCommitsListed))
				break
			}
			write("- " + msg)
		}
	}

	write("", "## Performance",
		fmt.Sprintf("- **Agent score**: %.2f (threshold: %.2f)", in.AgentScore, in.QualityThreshold),
		fmt.Sprintf("- **Average across all agents**: %.2f", in.AverageScore),
		fmt.Sprintf("- **Accuracy** (productive/total): %.2f", in.Accuracy),
		fmt.Sprintf("- **Efficiency** (activity volume): %.2f", in.Efficiency),
		fmt.Sprintf("- **Adaptability** (kind diversity): %.2f", in.Adaptability))
	if in.HasPrevious {
		delta := in.AgentScore - in.PreviousScore
		direction := "unchanged"
		if delta > 0 {
			direction = "up"
		} else if delta < 0 {
			direction = "down"
		}
		write(fmt.Sprintf("- **Trend**: %s %.2f from previous (%.2f)",
			direction, abs(delta), in.PreviousScore))
	}

	if in.Tier != "" && in.Tier != "none" {
		write("", "## Intervention Status",
			"- **Tier**: "+in.Tier,
			"- **Reason**: "+in.TierReason)
		if len(in.TierActions) > 0 {
			write("- **Required actions**:")
			for _, action := range in.TierActions {
				write("  - " + action)
			}
		}
	} else {
		write("", fmt.Sprintf("## Intervention Status: NONE (score %.2f within acceptable range)",
			in.AgentScore))
	}

	challenges := w.challenges(in, len(in.Activities), len(kindCounts))
	if len(challenges) > 0 {
		write("", "## Challenges")
		for _, c := range challenges {
			write("- " + c)
		}
	}

	if len(in.Gaps.Missing) > 0 || len(in.Gaps.Stale) > 0 {
		write("", "## Capability Gaps")
		for _, name := range in.Gaps.Missing {
			write(fmt.Sprintf("- **Missing**: %s — no evidence found in today's activities", name))
		}
		for _, name := range in.Gaps.Stale {
			write("- **Stale**: " + name)
		}
	}

	if in.Improvement != nil {
		write("", "## Improvement Executed",
			"- **Type**: "+in.Improvement.Type,
			"- **Target**: "+in.Improvement.Target)
	}

	if w.analyst != nil && w.analyst.Available() {
		if narrative := w.narrative(ctx, in, allCommits, challenges); narrative != "" {
			write("", "## AI Reflection", narrative)
		}
	}

	write("", "## Tomorrow's Priorities")
	for i, p := range w.priorities(in, challenges) {
		write(fmt.Sprintf("%d. %s", i+1, p))
	}

	return b.String()
}

// challenges derives weak areas from the review metrics.
func (w *Writer) challenges(in Input, total, kinds int) []string {
	var out []string
	if in.Accuracy < 0.5 {
		unproductive := total - int(in.Accuracy*float64(total))
		out = append(out, fmt.Sprintf(
			"Low accuracy (%.2f): %d of %d activities were non-productive",
			in.Accuracy, unproductive, total))
	}
	if in.Efficiency < 0.5 {
		out = append(out, fmt.Sprintf(
			"Low efficiency (%.2f): only %d activities detected (target: 100+ for full score)",
			in.Efficiency, total))
	}
	if in.Adaptability < 0.5 {
		out = append(out, fmt.Sprintf(
			"Low adaptability (%.2f): only %d activity kinds (target: 5+ for full score)",
			in.Adaptability, kinds))
	}
	if in.AgentScore < in.QualityThreshold {
		out = append(out, fmt.Sprintf(
			"Agent score (%.2f) below quality threshold (%.2f)",
			in.AgentScore, in.QualityThreshold))
	}
	for _, name := range in.Gaps.LowProficiency {
		out = append(out, "Low proficiency in: "+name)
	}
	return out
}

// narrative asks the analyst for a short free-form reflection.
func (w *Writer) narrative(ctx context.Context, in Input, commits, challenges []string) string {
	var commitSummary strings.Builder
	for i, msg := range commits {
		if i == 15 {
			break
		}
		commitSummary.WriteString("- " + msg + "\n")
	}
	contextText := fmt.Sprintf(
		"Date: %s\nTotal activities: %d\n"+
			"Top commit messages:\n%s"+
			"Performance: overall=%.2f, accuracy=%.2f, efficiency=%.2f, adaptability=%.2f\n"+
			"Quality threshold: %.2f\nIntervention tier: %s\nChallenges: %s\n"+
			"Capability gaps (missing): %s\n",
		in.Date, len(in.Activities), commitSummary.String(),
		in.AgentScore, in.Accuracy, in.Efficiency, in.Adaptability,
		in.QualityThreshold, in.Tier,
		strings.Join(challenges, "; "), strings.Join(in.Gaps.Missing, ", "))

	return w.analyst.Analyze(ctx,
		"Write a brief, honest daily reflection for an AI agent. "+
			"Reference specific commits and metrics. Identify what went well, "+
			"what needs improvement, and concrete priorities for tomorrow. "+
			"Be concise (under 200 words).",
		contextText, 512)
}

// priorities derives tomorrow's priorities from the biggest weakness.
func (w *Writer) priorities(in Input, challenges []string) []string {
	var out []string
	if len(challenges) > 0 {
		switch {
		case in.Accuracy < in.Efficiency && in.Accuracy < in.Adaptability:
			out = append(out, "Increase productive output ratio (focus on meaningful commits)")
		case in.Efficiency < in.Adaptability:
			out = append(out, "Increase activity volume (more commits, more files touched)")
		default:
			out = append(out, "Diversify activity kinds (research, testing, docs, not just coding)")
		}
	}
	if len(in.Gaps.Missing) > 0 {
		out = append(out, "Build evidence for missing capabilities: "+strings.Join(in.Gaps.Missing, ", "))
	}
	if in.Tier != "" && in.Tier != "none" && len(in.TierActions) > 0 {
		out = append(out, "Address intervention: "+in.TierActions[0])
	}
	if len(out) == 0 {
		out = append(out, "Maintain current trajectory — all metrics within acceptable range")
	}
	if len(out) < 3 {
		out = append(out, "Review and iterate on self-optimization feedback loop")
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
