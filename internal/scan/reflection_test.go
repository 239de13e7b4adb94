package scan

import (
	"os"
	"path/filepath"
	"testing"
)

// TestParseReflectionExtractsSections verifies header splitting, bullet
// extraction, and alternate header names mapping to the same field.
func TestParseReflectionExtractsSections(t *testing.T) {
	content := `# Daily Reflection

## 1. Achievements
- Finished the escalation resolver
- Wrote scanner tests

## 2. Challenges
- Flaky git timestamps

## 4. Growth and Insights
- Worker pools keep scans fast

## Tomorrow's Priorities
- Wire up the daemon
`
	path := filepath.Join(t.TempDir(), "reflection.md")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	refl := ParseReflection(path)
	if !refl.Filled {
		t.Errorf("reflection with content should be filled")
	}
	if len(refl.Achievements) != 2 {
		t.Errorf("achievements: got %v", refl.Achievements)
	}
	if len(refl.Challenges) != 1 || refl.Challenges[0] != "Flaky git timestamps" {
		t.Errorf("challenges: got %v", refl.Challenges)
	}
	if len(refl.Learnings) != 1 {
		t.Errorf("learnings: got %v", refl.Learnings)
	}
	if len(refl.Priorities) != 1 || refl.Priorities[0] != "Wire up the daemon" {
		t.Errorf("priorities: got %v", refl.Priorities)
	}
}

// TestParseReflectionTemplateBlanksNotFilled verifies a reflection with
// only empty bullets is not considered filled.
func TestParseReflectionTemplateBlanksNotFilled(t *testing.T) {
	content := "# Daily Reflection\n\n## Achievements\n- \n- -\n"
	path := filepath.Join(t.TempDir(), "blank.md")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	refl := ParseReflection(path)
	if refl.Filled {
		t.Errorf("template-only reflection should not be filled")
	}
}

// TestParseReflectionMissingFile verifies an unreadable file yields an
// empty reflection instead of an error.
func TestParseReflectionMissingFile(t *testing.T) {
	refl := ParseReflection(filepath.Join(t.TempDir(), "missing.md"))
	if refl.Filled || len(refl.Achievements) != 0 {
		t.Errorf("missing file should yield empty reflection, got %+v", refl)
	}
}
