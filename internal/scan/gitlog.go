package scan

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// gitTimeout bounds a single git subprocess.
const gitTimeout = 10 * time.Second

// gitLogFunc runs git log for a repo and returns its raw output.
type gitLogFunc func(ctx context.Context, repo string, window time.Duration) ([]byte, error)

// runGitLog shells out to git:
//
//	git -C <repo> log --all --since="<h> hours ago" --format=%H|%ai|%s
func runGitLog(ctx context.Context, repo string, window time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	hours := int(window.Hours())
	if hours < 1 {
		hours = 1
	}
	cmd := exec.CommandContext(ctx, "git", "-C", repo,
		"log", "--all",
		fmt.Sprintf("--since=%d hours ago", hours),
		"--format=%H|%ai|%s")
	return cmd.Output()
}
