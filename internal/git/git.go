// Package git wraps the git operations behind worktree-mode sessions.
package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// fetchTimeout bounds the pre-worktree fetch. Everything else git does
// here is local and fast.
const (
	fetchTimeout = 60 * time.Second
	localTimeout = 10 * time.Second
)

// runGit executes git -C dir with the given arguments and returns
// combined output. Swappable in tests.
var runGit = func(ctx context.Context, dir string, args ...string) ([]byte, error) {
	full := append([]string{"-C", dir}, args...)
	return exec.CommandContext(ctx, "git", full...).CombinedOutput()
}

// IsRepo reports whether dir is inside a git repository.
func IsRepo(ctx context.Context, dir string) bool {
	ctx, cancel := context.WithTimeout(ctx, localTimeout)
	defer cancel()
	_, err := runGit(ctx, dir, "rev-parse", "--git-dir")
	return err == nil
}

// DefaultBranch returns the repository's default branch. Prefers the
// remote HEAD, then main, then master; "main" when nothing resolves.
func DefaultBranch(ctx context.Context, dir string) string {
	ctx, cancel := context.WithTimeout(ctx, localTimeout)
	defer cancel()

	if out, err := runGit(ctx, dir, "symbolic-ref", "refs/remotes/origin/HEAD"); err == nil {
		ref := strings.TrimSpace(string(out))
		if branch := strings.TrimPrefix(ref, "refs/remotes/origin/"); branch != ref && branch != "" {
			return branch
		}
	}
	for _, candidate := range []string{"main", "master"} {
		if _, err := runGit(ctx, dir, "show-ref", "--verify", "--quiet", "refs/heads/"+candidate); err == nil {
			return candidate
		}
	}
	return "main"
}

// Fetch updates the remote tracking ref for one branch.
func Fetch(ctx context.Context, dir, remote, branch string) error {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	if out, err := runGit(ctx, dir, "fetch", remote, branch); err != nil {
		return fmt.Errorf("git fetch %s %s: %s: %w", remote, branch, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// AddWorktree checks out a new branch at path, based on startPoint.
func AddWorktree(ctx context.Context, repoDir, path, branch, startPoint string) error {
	if err := ValidateBranchName(branch); err != nil {
		return fmt.Errorf("invalid branch name: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, localTimeout)
	defer cancel()
	out, err := runGit(ctx, repoDir, "worktree", "add", path, "-b", branch, startPoint)
	if err != nil {
		return fmt.Errorf("git worktree add: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// UserBranchPrefix derives a branch namespace from the git user name,
// e.g. "Jane Doe" becomes "jane-doe/". Empty when no name is set.
func UserBranchPrefix(ctx context.Context, dir string) string {
	ctx, cancel := context.WithTimeout(ctx, localTimeout)
	defer cancel()
	out, err := runGit(ctx, dir, "config", "--get", "user.name")
	if err != nil {
		return ""
	}
	name := strings.TrimSpace(string(out))
	if name == "" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(name), " ", "-") + "/"
}

// ValidateBranchName enforces git's ref naming rules.
func ValidateBranchName(name string) error {
	if name == "" {
		return errors.New("branch name cannot be empty")
	}
	if strings.TrimSpace(name) != name {
		return errors.New("branch name cannot have leading or trailing spaces")
	}
	if strings.Contains(name, "..") {
		return errors.New("branch name cannot contain '..'")
	}
	if strings.HasPrefix(name, ".") {
		return errors.New("branch name cannot start with '.'")
	}
	if strings.HasSuffix(name, ".lock") {
		return errors.New("branch name cannot end with '.lock'")
	}
	for _, char := range []string{" ", "\t", "~", "^", ":", "?", "*", "[", "\\"} {
		if strings.Contains(name, char) {
			return fmt.Errorf("branch name cannot contain %q", char)
		}
	}
	if strings.Contains(name, "@{") {
		return errors.New("branch name cannot contain '@{'")
	}
	if name == "@" {
		return errors.New("branch name cannot be just '@'")
	}
	return nil
}

var dashRuns = regexp.MustCompile(`-+`)

// SanitizeBranchName converts an arbitrary session name into a valid
// branch name component.
func SanitizeBranchName(name string) string {
	replacer := strings.NewReplacer(
		" ", "-",
		"..", "-",
		"~", "-",
		"^", "-",
		":", "-",
		"?", "-",
		"*", "-",
		"[", "-",
		"\\", "-",
		"@{", "-",
	)
	sanitized := replacer.Replace(name)

	for strings.HasPrefix(sanitized, ".") {
		sanitized = strings.TrimPrefix(sanitized, ".")
	}
	for strings.HasSuffix(sanitized, ".lock") {
		sanitized = strings.TrimSuffix(sanitized, ".lock")
	}
	sanitized = dashRuns.ReplaceAllString(sanitized, "-")
	return strings.Trim(sanitized, "-")
}
