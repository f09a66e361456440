package tmux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/swarmhq/swarm/internal/logging"
)

// SessionPrefix marks sessions managed by swarm. Everything else in the
// tmux server is left alone.
const SessionPrefix = "swarm-"

// opTimeout bounds every tmux subprocess call. tmux answers in
// milliseconds when healthy; anything longer means a wedged server.
const opTimeout = 3 * time.Second

var tmuxLog = logging.ForComponent(logging.CompTmux)

// ErrHostUnavailable indicates the tmux binary could not be found.
var ErrHostUnavailable = errors.New("tmux not found: install it with 'brew install tmux' or 'apt install tmux'")

// ErrCaptureTimeout indicates a pane capture exceeded its deadline.
var ErrCaptureTimeout = errors.New("pane capture timed out")

// runnerFunc executes a tmux invocation and returns combined output.
// Swappable in tests.
type runnerFunc func(ctx context.Context, bin string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	return cmd.CombinedOutput()
}

// Tmux wraps a probed tmux binary. The path is resolved once at startup
// and carried here; nothing in the package mutates global state.
type Tmux struct {
	bin       string
	socketDir string
	run       runnerFunc
	captureSf singleflight.Group
}

// Probe locates the tmux binary: PATH first, then the usual install
// locations that GUI-launched processes miss.
func Probe() (string, error) {
	if p, err := exec.LookPath("tmux"); err == nil {
		return p, nil
	}
	for _, candidate := range []string{
		"/opt/homebrew/bin/tmux",
		"/usr/local/bin/tmux",
		"/usr/bin/tmux",
	} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", ErrHostUnavailable
}

// New returns a Tmux bound to the given binary path.
func New(bin string) *Tmux {
	return &Tmux{
		bin:       bin,
		socketDir: "/tmp",
		run:       defaultRunner,
	}
}

func (t *Tmux) exec(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return t.run(ctx, t.bin, args...)
}

// ListSessions returns the names of live swarm-prefixed sessions,
// sorted. A missing tmux server is an empty fleet, not an error; a
// stale default socket is removed so the next call can start fresh.
func (t *Tmux) ListSessions(ctx context.Context) ([]string, error) {
	out, err := t.exec(ctx, "list-sessions", "-F", "#{session_name}")
	if err != nil {
		msg := strings.ToLower(string(out))
		if strings.Contains(msg, "no server running") || strings.Contains(msg, "error connecting") {
			t.removeStaleSocket()
			return nil, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("listing sessions: %w", ErrHostUnavailable)
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		name := strings.TrimSpace(line)
		if strings.HasPrefix(name, SessionPrefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// removeStaleSocket deletes the per-uid default socket left behind by a
// dead server. Removal is idempotent; failures only get logged.
func (t *Tmux) removeStaleSocket() {
	sock := filepath.Join(t.socketDir, fmt.Sprintf("tmux-%d", os.Getuid()), "default")
	if err := os.Remove(sock); err != nil {
		if !os.IsNotExist(err) {
			tmuxLog.Warn("stale_socket_remove_failed", slog.String("path", sock), slog.Any("error", err))
		}
		return
	}
	tmuxLog.Info("stale_socket_removed", slog.String("path", sock))
}

// NewSession creates a detached session running command in workDir. The
// command is wrapped in a shell with PATH extended to cover agent CLIs
// installed outside the login environment.
func (t *Tmux) NewSession(ctx context.Context, name, workDir, command string) error {
	home, _ := os.UserHomeDir()
	wrapped := fmt.Sprintf("export PATH=\"%s/.claude/local:%s/.local/bin:$PATH\"; %s",
		home, home, command)

	out, err := t.exec(ctx, "new-session", "-d", "-s", name, "-c", workDir,
		"sh", "-c", wrapped)
	if err != nil {
		return fmt.Errorf("failed to create session %q: %s: %w", name, strings.TrimSpace(string(out)), err)
	}
	tmuxLog.Info("session_created", slog.String("session", name), slog.String("dir", workDir))
	return nil
}

// KillSession terminates a session. Killing a session that is already
// gone succeeds.
func (t *Tmux) KillSession(ctx context.Context, name string) error {
	out, err := t.exec(ctx, "kill-session", "-t", name)
	if err != nil {
		msg := strings.ToLower(string(out))
		if strings.Contains(msg, "session not found") ||
			strings.Contains(msg, "can't find session") ||
			strings.Contains(msg, "no server running") {
			return nil
		}
		return fmt.Errorf("failed to kill session %q: %w", name, err)
	}
	tmuxLog.Info("session_killed", slog.String("session", name))
	return nil
}

// HasSession reports whether a session exists.
func (t *Tmux) HasSession(ctx context.Context, name string) bool {
	_, err := t.exec(ctx, "has-session", "-t", name)
	return err == nil
}

// PaneCurrentPath returns the working directory of the session's active
// pane. Best effort: any failure reports absence, not an error.
func (t *Tmux) PaneCurrentPath(ctx context.Context, name string) (string, bool) {
	out, err := t.exec(ctx, "display-message", "-t", name, "-p", "#{pane_current_path}")
	if err != nil {
		return "", false
	}
	path := strings.TrimSpace(string(out))
	if path == "" {
		return "", false
	}
	return path, true
}

// PaneLastActive returns the last activity time of the session's
// window as reported by the tmux server. Best effort.
func (t *Tmux) PaneLastActive(ctx context.Context, name string) (time.Time, bool) {
	out, err := t.exec(ctx, "display-message", "-t", name, "-p", "#{window_activity}")
	if err != nil {
		return time.Time{}, false
	}
	epoch, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil || epoch <= 0 {
		return time.Time{}, false
	}
	return time.Unix(epoch, 0), true
}

// SendText types literal text into the session's pane and presses
// Enter. The -l flag keeps tmux from interpreting key names in text.
func (t *Tmux) SendText(ctx context.Context, name, text string) error {
	if out, err := t.exec(ctx, "send-keys", "-t", name, "-l", text); err != nil {
		return fmt.Errorf("failed to send text to %q: %s: %w", name, strings.TrimSpace(string(out)), err)
	}
	if out, err := t.exec(ctx, "send-keys", "-t", name, "Enter"); err != nil {
		return fmt.Errorf("failed to send Enter to %q: %s: %w", name, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// SendKey sends a named key (e.g. "Escape", "BTab") to the session.
func (t *Tmux) SendKey(ctx context.Context, name, key string) error {
	if out, err := t.exec(ctx, "send-keys", "-t", name, key); err != nil {
		return fmt.Errorf("failed to send key %q to %q: %s: %w", key, name, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// CapturePane returns the last lines of live pane content. -J joins
// wrapped lines. Concurrent captures of the same session are
// deduplicated via singleflight.
func (t *Tmux) CapturePane(ctx context.Context, name string, lines int) (string, error) {
	v, err, _ := t.captureSf.Do(name, func() (interface{}, error) {
		args := []string{"capture-pane", "-t", name, "-p", "-J"}
		if lines > 0 {
			args = append(args, "-S", fmt.Sprintf("-%d", lines))
		}
		out, err := t.exec(ctx, args...)
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return "", ErrCaptureTimeout
			}
			return "", fmt.Errorf("failed to capture pane %q: %w", name, err)
		}
		return string(out), nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// AttachCommand returns the argv to exec for a full terminal takeover
// of a session. The caller replaces its own process with it.
func (t *Tmux) AttachCommand(name string) []string {
	return []string{t.bin, "attach-session", "-t", name}
}
