// Package scan collects ground-truth activity signals from an agent's
// workspace: git commits, file modifications, and daily reflection files.
// Scanned activities feed the activity ledger so idle detection works off
// real evidence rather than self-reported status.
package scan

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/boshu2/agentwatch/cli/internal/worker"
)

// Activity kinds produced by the filesystem scanner.
const (
	KindGitCommit        = "git_commit"
	KindFileModification = "file_modification"
	KindDailyReflection  = "daily_reflection"
)

// Estimated effort per activity signal. Commits represent a work session,
// file touches a short edit.
const (
	commitDuration     = 30 * time.Minute
	fileTouchDuration  = 5 * time.Minute
	reflectionDuration = 15 * time.Minute
)

// Activity is one observed workspace signal.
type Activity struct {
	Kind        string        `json:"kind"`
	Path        string        `json:"path"`
	Timestamp   time.Time     `json:"timestamp"`
	Description string        `json:"description"`
	Productive  bool          `json:"is_productive"`
	Duration    time.Duration `json:"duration"`
	CommitHash  string        `json:"commit_hash,omitempty"`
}

// Scanner produces activities observed within a time window.
type Scanner interface {
	ScanActivity(ctx context.Context, window time.Duration) ([]Activity, error)
}

// skipDirs are pruned from the file modification walk.
var skipDirs = map[string]bool{
	".git":          true,
	"__pycache__":   true,
	".mypy_cache":   true,
	".pytest_cache": true,
	"node_modules":  true,
	".venv":         true,
}

// reflectionDirs are checked, relative to the workspace, for daily
// reflection markdown.
var reflectionDirs = []string{
	filepath.Join("memory", "daily-reflections"),
	filepath.Join("memory", "reflections", "daily"),
}

// FS scans a workspace directory on the local filesystem.
type FS struct {
	// WorkspaceDir is the root directory to scan.
	WorkspaceDir string

	logger  *zap.Logger
	now     func() time.Time
	gitLog  gitLogFunc
	workers int
}

// FSOption configures an FS scanner.
type FSOption func(*FS)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) FSOption {
	return func(f *FS) {
		f.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) FSOption {
	return func(f *FS) {
		f.now = now
	}
}

// WithGitLog overrides the git subprocess, for tests.
func WithGitLog(fn gitLogFunc) FSOption {
	return func(f *FS) {
		f.gitLog = fn
	}
}

// WithWorkers sets the repo-scan concurrency.
func WithWorkers(n int) FSOption {
	return func(f *FS) {
		f.workers = n
	}
}

// NewFS creates a filesystem scanner rooted at workspaceDir.
func NewFS(workspaceDir string, opts ...FSOption) *FS {
	f := &FS{
		WorkspaceDir: workspaceDir,
		logger:       zap.NewNop(),
		now:          time.Now,
		gitLog:       runGitLog,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ScanActivity scans all sources for activity within the window. Git
// repositories are scanned in parallel; a failing source is logged and
// skipped rather than failing the whole scan. Results are sorted newest
// first.
func (f *FS) ScanActivity(ctx context.Context, window time.Duration) ([]Activity, error) {
	if window <= 0 {
		return nil, ErrInvalidWindow
	}

	var activities []Activity

	repos := f.findGitRepos()
	pool := worker.NewPool[[]Activity](f.workers)
	for _, res := range pool.Process(repos, func(repo string) ([]Activity, error) {
		return f.RecentCommits(ctx, repo, window)
	}) {
		if res.Err != nil {
			f.logger.Debug("git scan failed", zap.String("repo", repos[res.Index]), zap.Error(res.Err))
			continue
		}
		activities = append(activities, res.Value...)
	}

	modified, err := f.ModifiedFiles(f.WorkspaceDir, window)
	if err != nil {
		f.logger.Debug("file scan failed", zap.Error(err))
	} else {
		activities = append(activities, modified...)
	}

	for _, rel := range reflectionDirs {
		dir := filepath.Join(f.WorkspaceDir, rel)
		reflections, err := f.scanReflections(dir, window)
		if err != nil {
			f.logger.Debug("reflection scan failed", zap.String("dir", dir), zap.Error(err))
			continue
		}
		activities = append(activities, reflections...)
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})
	return activities, nil
}

// RecentCommits returns git commits in repo within the window. A directory
// without a .git subdirectory yields no commits and no error.
func (f *FS) RecentCommits(ctx context.Context, repo string, window time.Duration) ([]Activity, error) {
	if info, err := os.Stat(filepath.Join(repo, ".git")); err != nil || !info.IsDir() {
		return nil, nil
	}

	out, err := f.gitLog(ctx, repo, window)
	if err != nil {
		return nil, err
	}

	var commits []Activity
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 3 {
			continue
		}
		ts, err := time.Parse("2006-01-02 15:04:05 -0700", strings.TrimSpace(parts[1]))
		if err != nil {
			ts = f.now()
		}
		commits = append(commits, Activity{
			Kind:        KindGitCommit,
			Path:        repo,
			Timestamp:   ts,
			Description: strings.TrimSpace(parts[2]),
			Productive:  true,
			Duration:    commitDuration,
			CommitHash:  strings.TrimSpace(parts[0]),
		})
	}
	return commits, nil
}

// ModifiedFiles walks directory for files modified within the window,
// pruning hidden and cache directories.
func (f *FS) ModifiedFiles(directory string, window time.Duration) ([]Activity, error) {
	if info, err := os.Stat(directory); err != nil || !info.IsDir() {
		return nil, nil
	}

	cutoff := f.now().Add(-window)
	var activities []Activity

	err := filepath.WalkDir(directory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		name := d.Name()
		if d.IsDir() {
			if path != directory && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			return nil
		}
		rel, rerr := filepath.Rel(directory, path)
		if rerr != nil {
			rel = path
		}
		activities = append(activities, Activity{
			Kind:        KindFileModification,
			Path:        path,
			Timestamp:   info.ModTime(),
			Description: "Modified: " + rel,
			Productive:  true,
			Duration:    fileTouchDuration,
		})
		return nil
	})
	return activities, err
}

// scanReflections returns recently modified reflection markdown files.
func (f *FS) scanReflections(dir string, window time.Duration) ([]Activity, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	cutoff := f.now().Add(-window)
	var activities []Activity
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		refl := ParseReflection(path)
		activities = append(activities, Activity{
			Kind:        KindDailyReflection,
			Path:        path,
			Timestamp:   info.ModTime(),
			Description: "Daily reflection: " + entry.Name(),
			Productive:  refl.Filled,
			Duration:    reflectionDuration,
		})
	}
	return activities, nil
}

// findGitRepos returns the workspace itself plus immediate subdirectories
// that contain a .git directory.
func (f *FS) findGitRepos() []string {
	var repos []string
	if info, err := os.Stat(filepath.Join(f.WorkspaceDir, ".git")); err == nil && info.IsDir() {
		repos = append(repos, f.WorkspaceDir)
	}

	entries, err := os.ReadDir(f.WorkspaceDir)
	if err != nil {
		return repos
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(f.WorkspaceDir, entry.Name())
		if info, err := os.Stat(filepath.Join(sub, ".git")); err == nil && info.IsDir() {
			repos = append(repos, sub)
		}
	}
	return repos
}
