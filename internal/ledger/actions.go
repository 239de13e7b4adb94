package ledger

// The fixed emergency action pool. Proposed in full when the ledger holds no
// evidence to reason about.
var fullActionPool = []string{
	"start_research_sprint",
	"design_experimental_prototype",
	"initiate_user_feedback_loop",
	"conduct_strategic_analysis",
	"explore_new_skill_development",
}

// contrastActions maps an activity kind to actions that counter it. An agent
// stuck browsing gets pushed toward research; one stuck in meetings gets
// pushed toward skill development, and so on.
var contrastActions = map[string][]string{
	"research": {"design_experimental_prototype", "initiate_user_feedback_loop"},
	"coding":   {"initiate_user_feedback_loop", "conduct_strategic_analysis"},
	"meeting":  {"start_research_sprint", "explore_new_skill_development"},
	"browsing": {"start_research_sprint", "design_experimental_prototype"},
	"break":    {"start_research_sprint", "conduct_strategic_analysis"},
}

// dominantShareCutoff: when one kind accounts for more than this share of
// recent activity, the agent is considered stuck and strategic pivots are
// added to the proposal.
const dominantShareCutoff = 0.6

// FullActionPool returns a copy of the complete emergency action pool.
func FullActionPool() []string {
	out := make([]string, len(fullActionPool))
	copy(out, fullActionPool)
	return out
}

// ProposeActions generates the emergency actions for an idle intervention.
//
// With an empty ledger the full pool is proposed. Otherwise the last 20
// entries are analyzed: the dominant non-productive kind picks contrasting
// actions, and a dominant kind covering more than 60% of recent activity
// adds a strategic pivot. At least one action is always proposed.
func (l *Ledger) ProposeActions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == 0 {
		return FullActionPool()
	}

	recent := l.entries
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}

	// Prefer the distribution of non-productive kinds; that is the behavior
	// an intervention should counter. Fall back to all recent kinds when
	// every recent entry was productive.
	counts := countKinds(recent, false)
	if len(counts) == 0 {
		counts = countKinds(recent, true)
	}

	dominant, dominantCount := "", 0
	total := 0
	for kind, n := range counts {
		total += n
		if n > dominantCount || (n == dominantCount && kind < dominant) {
			dominant, dominantCount = kind, n
		}
	}
	if dominant == "" {
		return FullActionPool()
	}

	var suggestions []string
	suggestions = append(suggestions, contrastActions[dominant]...)
	if float64(dominantCount)/float64(total) > dominantShareCutoff {
		suggestions = append(suggestions, "conduct_strategic_analysis", "explore_new_skill_development")
	}

	unique := dedupe(suggestions)
	if len(unique) == 0 {
		return []string{fullActionPool[0]}
	}
	return unique
}

// countKinds tallies entry kinds. With includeProductive false only
// non-productive entries are counted.
func countKinds(entries []Entry, includeProductive bool) map[string]int {
	counts := make(map[string]int)
	for _, e := range entries {
		if e.Productive && !includeProductive {
			continue
		}
		counts[e.Kind]++
	}
	return counts
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
