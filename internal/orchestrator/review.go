package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/boshu2/agentwatch/cli/internal/escalate"
	"github.com/boshu2/agentwatch/cli/internal/improve"
	"github.com/boshu2/agentwatch/cli/internal/perf"
	"github.com/boshu2/agentwatch/cli/internal/reflect"
	"github.com/boshu2/agentwatch/cli/internal/scan"
	"github.com/boshu2/agentwatch/cli/internal/state"
)

// reviewWindow is how far back the daily review looks for activity.
const reviewWindow = 24 * time.Hour

// efficiencyFullScore is the activity count worth a full efficiency score.
const efficiencyFullScore = 100

// adaptabilityFullScore is the distinct-kind count worth a full
// adaptability score.
const adaptabilityFullScore = 5

// Review is the composite outcome of one daily review.
type Review struct {
	Timestamp       time.Time         `json:"timestamp"`
	Date            string            `json:"date"`
	ActivitiesFound int               `json:"activities_found"`
	Accuracy        float64           `json:"accuracy"`
	Efficiency      float64           `json:"efficiency"`
	Adaptability    float64           `json:"adaptability"`
	Score           float64           `json:"score"`
	AverageScore    float64           `json:"average_score"`
	Trend           string            `json:"trend,omitempty"`
	Intervention    Intervention      `json:"intervention"`
	Verification    map[string]bool   `json:"verification"`
	Gaps            improve.Gaps      `json:"capability_gaps"`
	Improvement     *improve.Proposal `json:"improvement_executed,omitempty"`
	ReflectionPath  string            `json:"reflection_path"`
}

// Intervention is the escalation outcome for one agent.
type Intervention struct {
	Agent    string   `json:"agent"`
	Tier     string   `json:"tier"`
	Score    float64  `json:"score"`
	Duration string   `json:"duration,omitempty"`
	Actions  []string `json:"actions,omitempty"`
	Reason   string   `json:"reason"`
}

// DailyReview runs the full review pipeline: scan 24 hours of activity,
// score the agent, seed capabilities from the observed evidence, assess
// the escalation tier, verify the results, execute the top improvement
// proposal, write the daily reflection, and persist everything.
func (o *Orchestrator) DailyReview(ctx context.Context) (Review, error) {
	now := o.now()
	review := Review{
		Timestamp: now,
		Date:      now.Format("2006-01-02"),
	}

	activities, err := o.scanner.ScanActivity(ctx, reviewWindow)
	if err != nil {
		return review, fmt.Errorf("scan activity: %w", err)
	}
	review.ActivitiesFound = len(activities)

	productive := 0
	kinds := make(map[string]struct{})
	for _, a := range activities {
		if err := o.ledger.Log(activityEntry(a)); err != nil {
			o.logger.Warn("drop invalid activity", zap.Error(err))
			continue
		}
		if a.Productive {
			productive++
		}
		kinds[a.Kind] = struct{}{}
	}

	review.Accuracy = clamp01(float64(productive) / float64(max(1, len(activities))))
	review.Efficiency = clamp01(float64(len(activities)) / efficiencyFullScore)
	if len(activities) > 0 {
		review.Adaptability = clamp01(float64(len(kinds)) / adaptabilityFullScore)
	}

	rec, err := o.tracker.Update(o.agentID, review.Accuracy, review.Efficiency, review.Adaptability)
	if err != nil {
		return review, fmt.Errorf("update performance: %w", err)
	}
	review.Score = rec.Score
	review.AverageScore = o.tracker.AverageScore()

	o.seedCapabilities(activities)

	review.Verification = o.verifier.Verify(reviewResults(len(activities), productive))
	review.Gaps = o.protocol.Gaps(improve.DefaultExpectedCapabilities, improve.DefaultStaleness)
	review.Intervention = o.assessIntervention(o.agentID, rec.Score)

	if trend, err := o.tracker.TrendFor(o.agentID); err == nil {
		review.Trend = string(trend)
	} else if !errors.Is(err, perf.ErrInsufficientData) {
		o.logger.Warn("trend analysis failed", zap.Error(err))
	}

	if proposals := o.protocol.Proposals(); len(proposals) > 0 {
		if err := o.protocol.Execute(proposals[0]); err != nil {
			o.logger.Warn("improvement execution failed", zap.Error(err))
		} else {
			review.Improvement = &proposals[0]
		}
	}

	if !o.dryRun {
		path, err := o.writer.Write(ctx, o.reflectionInput(review, activities))
		if err != nil {
			o.logger.Warn("reflection write failed", zap.Error(err))
		} else {
			review.ReflectionPath = path
		}
	}

	o.observeReview(review)

	if o.dryRun {
		return review, nil
	}
	if err := o.persistState(); err != nil {
		return review, fmt.Errorf("persist state: %w", err)
	}
	last := LastRun{Type: "daily_review", Timestamp: now}
	if err := o.store.Save(state.LastRunFile, last); err != nil {
		return review, fmt.Errorf("persist last run: %w", err)
	}

	o.logger.Info("daily review complete",
		zap.Int("activities", review.ActivitiesFound),
		zap.Float64("score", review.Score),
		zap.String("tier", review.Intervention.Tier),
		zap.String("reflection", review.ReflectionPath))
	return review, nil
}

// InterventionFor reports the current escalation tier for an agent
// without advancing its sustained-decline streak. Only the daily review
// advances streaks.
func (o *Orchestrator) InterventionFor(agent string) (Intervention, error) {
	score, err := o.tracker.ScoreOf(agent)
	if err != nil {
		return Intervention{}, fmt.Errorf("agent %s: %w", agent, err)
	}
	tier := escalate.Resolve(score, o.resolver.Streak(agent), o.resolver.Thresholds())
	return o.intervention(agent, score, tier), nil
}

// assessIntervention advances the agent's streak and resolves its tier.
func (o *Orchestrator) assessIntervention(agent string, score float64) Intervention {
	return o.intervention(agent, score, o.resolver.Assess(agent, score))
}

func (o *Orchestrator) intervention(agent string, score float64, tier escalate.Tier) Intervention {
	th := o.resolver.Thresholds()
	out := Intervention{
		Agent: agent,
		Tier:  tier.String(),
		Score: score,
	}
	switch tier {
	case escalate.TierNone:
		out.Reason = "performance within acceptable range"
		return out
	case escalate.Tier1:
		out.Reason = fmt.Sprintf("score %.2f below warning threshold %.2f", score, th.Warning)
	case escalate.Tier2:
		out.Reason = fmt.Sprintf("score %.2f below critical threshold %.2f", score, th.Critical)
	case escalate.Tier3:
		out.Reason = fmt.Sprintf("score %.2f below critical threshold %.2f for %d consecutive cycles",
			score, th.Critical, o.resolver.Streak(agent))
	}
	out.Actions = o.cfg.TierActions(tier.String())
	if t, ok := o.cfg.InterventionTiers[tier.String()]; ok {
		out.Duration = t.Duration
	}
	return out
}

// reviewResults builds the result set the SMARC verifier checks after a
// review.
func reviewResults(total, productive int) map[string]any {
	recommendation := "increase productive output"
	if productive*2 > total {
		recommendation = "continue current trajectory"
	}
	return map[string]any{
		"total_activities":      total,
		"productive_activities": productive,
		"next_step":             "review and adjust priorities",
		"recommendation":        recommendation,
		"details":               []any{map[string]any{"metric": "activities", "value": total}},
	}
}

// seedCapabilities raises capability proficiencies from observed activity
// so gap analysis reflects real evidence. Proficiency is never lowered.
func (o *Orchestrator) seedCapabilities(activities []scan.Activity) {
	counts := make(map[string]int)
	var subjects []string
	for _, a := range activities {
		counts[a.Kind]++
		if a.Kind == scan.KindGitCommit {
			subjects = append(subjects, strings.ToLower(a.Description))
		}
	}
	total := max(1, len(activities))

	if taskCount := counts[scan.KindGitCommit] + counts[scan.KindFileModification]; taskCount > 0 {
		o.protocol.Seed("task_execution",
			float64(taskCount)/float64(total), "activity_scan",
			fmt.Sprintf("%d task activities out of %d", taskCount, total))
	}

	if reflections := counts[scan.KindDailyReflection]; reflections > 0 {
		o.protocol.Seed("self_monitoring",
			0.3+float64(reflections)*0.2, "activity_scan",
			fmt.Sprintf("%d reflections found", reflections))
	}

	fixCount := 0
	for _, s := range subjects {
		for _, w := range []string{"fix", "refactor", "debug", "resolve", "patch"} {
			if strings.Contains(s, w) {
				fixCount++
				break
			}
		}
	}
	if fixCount > 0 {
		o.protocol.Seed("problem_solving",
			0.2+float64(fixCount)*0.15, "activity_scan",
			fmt.Sprintf("%d fix/refactor commits", fixCount))
	}

	if len(counts) >= 2 {
		o.protocol.Seed("learning",
			float64(len(counts))/adaptabilityFullScore, "activity_scan",
			fmt.Sprintf("%d distinct activity kinds", len(counts)))
	}

	meaningful := 0
	for _, s := range subjects {
		if len(s) > 10 {
			meaningful++
		}
	}
	if meaningful > 0 {
		o.protocol.Seed("communication",
			float64(meaningful)/float64(max(1, len(subjects))), "activity_scan",
			fmt.Sprintf("%d/%d commits with descriptive messages", meaningful, len(subjects)))
	}
}

// reflectionInput assembles the reflection writer input from a completed
// review, including the previous score for trend comparison.
func (o *Orchestrator) reflectionInput(review Review, activities []scan.Activity) reflect.Input {
	in := reflect.Input{
		Date:             review.Date,
		Activities:       activities,
		AgentScore:       review.Score,
		AverageScore:     review.AverageScore,
		QualityThreshold: o.tracker.QualityThreshold(),
		Accuracy:         review.Accuracy,
		Efficiency:       review.Efficiency,
		Adaptability:     review.Adaptability,
		Tier:             review.Intervention.Tier,
		TierReason:       review.Intervention.Reason,
		TierActions:      review.Intervention.Actions,
		Gaps:             review.Gaps,
		Improvement:      review.Improvement,
	}
	// The record for this review was just appended; the one before it is
	// the previous day's.
	history := o.tracker.HistoryFor(o.agentID)
	if len(history) >= 2 {
		in.PreviousScore = history[len(history)-2].Score
		in.HasPrevious = true
	}
	return in
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
