package tmux

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// pipeAttempts is how many times EnsurePipe retries before giving up.
// pipe-pane can race with session startup; a couple of retries covers it.
const pipeAttempts = 3

const pipeRetryDelay = 50 * time.Millisecond

// LogPath returns the deterministic output log location for a session.
func LogPath(logsDir, name string) string {
	return filepath.Join(logsDir, name+".log")
}

// EnsurePipe attaches the session's pane output to an append-only log
// via pipe-pane. Idempotent: -o leaves an already-open pipe alone.
// Failure after all retries is returned to the caller, which treats the
// session as degraded rather than dropping it.
func (t *Tmux) EnsurePipe(ctx context.Context, name, logPath string) error {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	sink := fmt.Sprintf("cat >> %q", logPath)
	var lastErr error
	for attempt := 1; attempt <= pipeAttempts; attempt++ {
		out, err := t.exec(ctx, "pipe-pane", "-o", "-t", name, sink)
		if err == nil {
			if attempt > 1 {
				tmuxLog.Debug("pipe_attached_after_retry",
					slog.String("session", name), slog.Int("attempt", attempt))
			}
			return nil
		}
		lastErr = fmt.Errorf("pipe-pane %q: %s: %w", name, strings.TrimSpace(string(out)), err)
		if attempt < pipeAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pipeRetryDelay):
			}
		}
	}
	return fmt.Errorf("failed to attach output pipe after %d attempts: %w", pipeAttempts, lastErr)
}

// TailLines returns the last n lines of the file at path. A missing log
// is an empty history, never an error; the session may simply not have
// produced output yet.
func TailLines(path string, n int) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read log %q: %w", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// LogModTime returns the log's mtime, reporting absence without error.
func LogModTime(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
