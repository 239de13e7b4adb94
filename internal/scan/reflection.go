package scan

import (
	"os"
	"regexp"
	"strings"
)

// Reflection is a parsed daily reflection markdown file.
type Reflection struct {
	Path         string            `json:"filepath"`
	Achievements []string          `json:"achievements"`
	Challenges   []string          `json:"challenges"`
	Priorities   []string          `json:"priorities"`
	Learnings    []string          `json:"learnings"`
	Sections     map[string]string `json:"raw_sections"`
	Filled       bool              `json:"is_filled"`
}

var (
	headerPattern = regexp.MustCompile(`^#{1,3}\s+(.+)`)
	bulletPattern = regexp.MustCompile(`^\s*[-*]\s+(.+)`)
)

// sectionTargets maps lowercased markdown headers to reflection fields.
// Reflections vary in template; several headers feed the same field.
var sectionTargets = map[string]string{
	"achievements":           "achievements",
	"1. achievements":        "achievements",
	"accomplishments":        "achievements",
	"challenges":             "challenges",
	"2. challenges":          "challenges",
	"learnings":              "learnings",
	"4. growth and insights": "learnings",
	"tomorrow's preparation": "priorities",
	"tomorrow's priorities":  "priorities",
}

// ParseReflection reads a reflection markdown file into structured data.
// An unreadable file yields an empty, unfilled reflection.
func ParseReflection(path string) Reflection {
	refl := Reflection{Path: path, Sections: make(map[string]string)}

	content, err := os.ReadFile(path)
	if err != nil {
		return refl
	}

	var current string
	var lines []string
	flush := func() {
		if current != "" && len(lines) > 0 {
			refl.Sections[current] = strings.Join(lines, "\n")
		}
		lines = nil
	}
	for _, line := range strings.Split(string(content), "\n") {
		if m := headerPattern.FindStringSubmatch(line); m != nil {
			flush()
			current = strings.ToLower(strings.TrimSpace(m[1]))
			continue
		}
		lines = append(lines, line)
	}
	flush()

	for header, target := range sectionTargets {
		items := extractBullets(refl.Sections[header])
		if len(items) == 0 {
			continue
		}
		switch target {
		case "achievements":
			refl.Achievements = mergeItems(refl.Achievements, items)
		case "challenges":
			refl.Challenges = mergeItems(refl.Challenges, items)
		case "learnings":
			refl.Learnings = mergeItems(refl.Learnings, items)
		case "priorities":
			refl.Priorities = mergeItems(refl.Priorities, items)
		}
	}

	// Filled means at least one substantive item, not just template blanks.
	for _, item := range append(append(append([]string{}, refl.Achievements...),
		refl.Challenges...), refl.Learnings...) {
		if len(strings.TrimSpace(item)) > 2 {
			refl.Filled = true
			break
		}
	}
	return refl
}

// extractBullets returns non-empty bullet items from markdown text.
func extractBullets(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if m := bulletPattern.FindStringSubmatch(line); m != nil {
			item := strings.TrimSpace(m[1])
			if item != "" && item != "-" {
				items = append(items, item)
			}
		}
	}
	return items
}

// mergeItems appends items not already present, preserving order.
func mergeItems(existing, items []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, item := range existing {
		seen[item] = true
	}
	for _, item := range items {
		if !seen[item] {
			existing = append(existing, item)
			seen[item] = true
		}
	}
	return existing
}
