package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/swarmhq/swarm/internal/git"
	"github.com/swarmhq/swarm/internal/logging"
	"github.com/swarmhq/swarm/internal/tmux"
)

var sessionLog = logging.ForComponent(logging.CompSession)

const (
	// classifyWindow is how many trailing log lines feed status
	// detection. Wide enough to catch a prompt above streamed output.
	classifyWindow = 80

	// previewWindow is the snippet shown in the dashboard list.
	previewWindow = 12

	// TaskMarkerFile is the fallback task marker dropped in a working
	// directory, used when session metadata carries no task.
	TaskMarkerFile = ".swarm-task"
)

// Registry is the slice of tmux the manager needs. *tmux.Tmux satisfies
// it; tests substitute a fake.
type Registry interface {
	ListSessions(ctx context.Context) ([]string, error)
	NewSession(ctx context.Context, name, workDir, command string) error
	KillSession(ctx context.Context, name string) error
	PaneCurrentPath(ctx context.Context, name string) (string, bool)
	PaneLastActive(ctx context.Context, name string) (time.Time, bool)
	EnsurePipe(ctx context.Context, name, logPath string) error
}

// AgentSession is the merged per-tick view of one live session.
type AgentSession struct {
	Name     string
	Agent    string
	Task     string
	Yolo     bool
	Status   Status
	Age      time.Duration
	HasAge   bool
	WorkDir  string
	Preview  []string
	Degraded bool
}

// WorktreeConfig controls where worktree-mode sessions check out.
type WorktreeConfig struct {
	// Dir is the base directory new worktrees are created under.
	Dir string

	// BranchPrefix namespaces worktree branches, e.g. "alice/". Empty
	// means derive it from the git user name.
	BranchPrefix string
}

// Manager merges the live registry, persisted metadata, tailed output
// and the classifier into the fleet view, and owns session lifecycle.
type Manager struct {
	reg       Registry
	store     *Store
	detection *DetectionConfig
	logsDir   string

	defaultAgent string
	allowedTools []string
	worktrees    WorktreeConfig

	// prepareWorktree resolves the working directory for worktree-mode
	// sessions. Swappable in tests.
	prepareWorktree func(ctx context.Context, repoDir, name string) (string, error)

	now func() time.Time
}

// NewManager wires a Manager. defaultAgent, allowedTools and wt come
// from config.
func NewManager(reg Registry, store *Store, det *DetectionConfig, logsDir, defaultAgent string, allowedTools []string, wt WorktreeConfig) *Manager {
	if defaultAgent == "" {
		defaultAgent = "claude"
	}
	if det == nil {
		det = DefaultDetectionConfig()
	}
	m := &Manager{
		reg:          reg,
		store:        store,
		detection:    det,
		logsDir:      logsDir,
		defaultAgent: defaultAgent,
		allowedTools: allowedTools,
		worktrees:    wt,
		now:          time.Now,
	}
	m.prepareWorktree = m.setupWorktree
	return m
}

// Collect produces the fleet view for one tick and then reaps orphaned
// logs and metadata. Per-session failures degrade that session only;
// only a registry failure aborts the pass.
func (m *Manager) Collect(ctx context.Context) ([]AgentSession, error) {
	names, err := m.reg.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting sessions: %w", err)
	}

	sessions := make([]AgentSession, 0, len(names))
	live := make(map[string]bool, len(names))
	for _, name := range names {
		live[name] = true
		sessions = append(sessions, m.inspect(ctx, name))
	}

	if err := m.CleanupOrphans(live); err != nil {
		sessionLog.Warn("orphan_cleanup_failed", slog.Any("error", err))
	}
	return sessions, nil
}

func (m *Manager) inspect(ctx context.Context, name string) AgentSession {
	logPath := tmux.LogPath(m.logsDir, name)

	as := AgentSession{Name: name}
	if err := m.reg.EnsurePipe(ctx, name, logPath); err != nil {
		// Session stays visible; only its output stream is degraded.
		as.Degraded = true
		sessionLog.Warn("pipe_attach_failed", slog.String("session", name), slog.Any("error", err))
	}

	lines, err := tmux.TailLines(logPath, classifyWindow)
	if err != nil {
		sessionLog.Warn("log_tail_failed", slog.String("session", name), slog.Any("error", err))
	}
	if len(lines) > previewWindow {
		as.Preview = lines[len(lines)-previewWindow:]
	} else {
		as.Preview = lines
	}

	// Age is the freshest of log mtime and pane activity; either alone
	// is enough of a signal.
	var freshest time.Time
	if mtime, ok := tmux.LogModTime(logPath); ok {
		freshest = mtime
	}
	if active, ok := m.reg.PaneLastActive(ctx, name); ok && active.After(freshest) {
		freshest = active
	}
	if !freshest.IsZero() {
		as.Age = m.now().Sub(freshest)
		if as.Age < 0 {
			as.Age = 0
		}
		as.HasAge = true
	}

	meta := m.store.Load(name)
	as.Yolo = meta.Yolo
	as.Agent = meta.Agent
	if as.Agent == "" {
		as.Agent = m.defaultAgent
	}

	if dir, ok := m.reg.PaneCurrentPath(ctx, name); ok {
		as.WorkDir = dir
	}
	as.Task = meta.Task
	if as.Task == "" && as.WorkDir != "" {
		if marker, err := os.ReadFile(filepath.Join(as.WorkDir, TaskMarkerFile)); err == nil {
			as.Task = strings.TrimSpace(string(marker))
		}
	}

	as.Status = Classify(lines, m.detection.DetectionFor(as.Agent), as.Age, as.HasAge)
	return as
}

// CleanupOrphans removes logs and metadata for sessions no longer
// live. Idempotent: a second pass over the same live set removes
// nothing.
func (m *Manager) CleanupOrphans(live map[string]bool) error {
	entries, err := os.ReadDir(m.logsDir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to scan logs directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, tmux.SessionPrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		session := strings.TrimSuffix(name, ".log")
		if live[session] {
			continue
		}
		if err := os.Remove(filepath.Join(m.logsDir, name)); err != nil {
			sessionLog.Warn("orphan_log_remove_failed", slog.String("file", name), slog.Any("error", err))
			continue
		}
		sessionLog.Info("orphan_log_removed", slog.String("session", session))
	}

	stored, err := m.store.List()
	if err != nil {
		return err
	}
	for _, session := range stored {
		if live[session] {
			continue
		}
		if err := m.store.Delete(session); err != nil {
			sessionLog.Warn("orphan_metadata_remove_failed", slog.String("session", session), slog.Any("error", err))
			continue
		}
		sessionLog.Info("orphan_metadata_removed", slog.String("session", session))
	}
	return nil
}

// UniqueName probes the live set and suffixes -2, -3, ... until the
// name is free. base must already carry the session prefix.
func (m *Manager) UniqueName(ctx context.Context, base string) (string, error) {
	names, err := m.reg.ListSessions(ctx)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	if !taken[base] {
		return base, nil
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if !taken[candidate] {
			return candidate, nil
		}
	}
}

// CreateOptions describes a new agent session.
type CreateOptions struct {
	// Name is the session name without the swarm prefix.
	Name string

	// Dir is the working directory. Defaults to the user home.
	Dir string

	// Agent is the agent kind. Defaults to the configured agent.
	Agent string

	// Task is the task label or task file path recorded in metadata.
	Task string

	// Prompt is an initial instruction passed to the agent.
	Prompt string

	// Yolo bypasses the agent's permission checks.
	Yolo bool

	// Worktree checks out a fresh branch in a git worktree under the
	// configured worktree directory and runs the session there. Dir
	// must point into the source repository.
	Worktree bool
}

// Create makes the session, persists its metadata, and best-effort
// attaches the output pipe. Returns the final (collision-resolved)
// session name.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (string, error) {
	if opts.Name == "" {
		return "", fmt.Errorf("session name is required")
	}
	if opts.Agent == "" {
		opts.Agent = m.defaultAgent
	}
	if opts.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("no working directory and no home: %w", err)
		}
		opts.Dir = home
	}
	if opts.Worktree {
		dir, err := m.prepareWorktree(ctx, opts.Dir, opts.Name)
		if err != nil {
			return "", fmt.Errorf("preparing worktree: %w", err)
		}
		opts.Dir = dir
	}

	name, err := m.UniqueName(ctx, tmux.SessionPrefix+opts.Name)
	if err != nil {
		return "", err
	}

	command := m.agentCommand(opts)
	if err := m.reg.NewSession(ctx, name, opts.Dir, command); err != nil {
		return "", err
	}

	if err := m.store.Save(name, Metadata{Task: opts.Task, Agent: opts.Agent, Yolo: opts.Yolo}); err != nil {
		sessionLog.Warn("metadata_save_failed", slog.String("session", name), slog.Any("error", err))
	}

	if err := m.reg.EnsurePipe(ctx, name, tmux.LogPath(m.logsDir, name)); err != nil {
		sessionLog.Warn("pipe_attach_failed", slog.String("session", name), slog.Any("error", err))
	}

	sessionLog.Info("session_created",
		slog.String("session", name),
		slog.String("agent", opts.Agent),
		slog.Bool("yolo", opts.Yolo))
	return name, nil
}

// setupWorktree checks out a fresh branch under the worktree base
// directory, fetching the default branch first so the new branch
// starts from the latest remote state. A failed fetch only degrades
// the starting point; a failed checkout aborts.
func (m *Manager) setupWorktree(ctx context.Context, repoDir, name string) (string, error) {
	if m.worktrees.Dir == "" {
		return "", fmt.Errorf("worktree_dir is not configured")
	}
	if !git.IsRepo(ctx, repoDir) {
		return "", fmt.Errorf("%s is not a git repository", repoDir)
	}
	if err := os.MkdirAll(m.worktrees.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating worktree base: %w", err)
	}

	clean := git.SanitizeBranchName(name)
	prefix := m.worktrees.BranchPrefix
	if prefix == "" {
		prefix = git.UserBranchPrefix(ctx, repoDir)
	}
	branch := prefix + clean
	base := git.DefaultBranch(ctx, repoDir)

	if err := git.Fetch(ctx, repoDir, "origin", base); err != nil {
		sessionLog.Warn("worktree_fetch_failed",
			slog.String("repo", repoDir), slog.String("branch", base), slog.Any("error", err))
	}

	path := filepath.Join(m.worktrees.Dir, clean)
	if err := git.AddWorktree(ctx, repoDir, path, branch, "origin/"+base); err != nil {
		return "", err
	}
	sessionLog.Info("worktree_created",
		slog.String("path", path), slog.String("branch", branch))
	return path, nil
}

// agentCommand builds the launch command for an agent.
func (m *Manager) agentCommand(opts CreateOptions) string {
	var parts []string
	switch opts.Agent {
	case "claude":
		parts = append(parts, "claude")
		if opts.Yolo {
			parts = append(parts, "--dangerously-skip-permissions")
		} else {
			parts = append(parts, "--permission-mode", "acceptEdits")
			if len(m.allowedTools) > 0 {
				parts = append(parts, "--allowedTools", shellQuote(strings.Join(m.allowedTools, ",")))
			}
		}
	default:
		parts = append(parts, opts.Agent)
	}
	if opts.Prompt != "" {
		parts = append(parts, shellQuote(opts.Prompt))
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Kill terminates a session and removes its sidecar state. Killing a
// session that is already gone still cleans up and succeeds.
func (m *Manager) Kill(ctx context.Context, name string) error {
	if err := m.reg.KillSession(ctx, name); err != nil {
		return err
	}
	if err := m.store.Delete(name); err != nil {
		sessionLog.Warn("metadata_remove_failed", slog.String("session", name), slog.Any("error", err))
	}
	logPath := tmux.LogPath(m.logsDir, name)
	if err := os.Remove(logPath); err != nil && !os.IsNotExist(err) {
		sessionLog.Warn("log_remove_failed", slog.String("session", name), slog.Any("error", err))
	}
	sessionLog.Info("session_removed", slog.String("session", name))
	return nil
}
