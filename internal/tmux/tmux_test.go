package tmux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRunner records invocations and replies from a script keyed by the
// tmux subcommand.
type fakeRunner struct {
	calls   [][]string
	replies map[string]func(args []string) ([]byte, error)
}

func (f *fakeRunner) run(_ context.Context, _ string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	if fn, ok := f.replies[args[0]]; ok {
		return fn(args)
	}
	return nil, nil
}

func newFakeTmux(replies map[string]func(args []string) ([]byte, error)) (*Tmux, *fakeRunner) {
	fr := &fakeRunner{replies: replies}
	t := New("/usr/bin/tmux")
	t.run = fr.run
	return t, fr
}

func TestListSessionsFiltersPrefix(t *testing.T) {
	tm, _ := newFakeTmux(map[string]func([]string) ([]byte, error){
		"list-sessions": func([]string) ([]byte, error) {
			return []byte("swarm-beta\nother\nswarm-alpha\nmain\n"), nil
		},
	})

	names, err := tm.ListSessions(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"swarm-alpha", "swarm-beta"}, names)
}

func TestListSessionsNoServer(t *testing.T) {
	tm, _ := newFakeTmux(map[string]func([]string) ([]byte, error){
		"list-sessions": func([]string) ([]byte, error) {
			return []byte("no server running on /tmp/tmux-501/default\n"), errors.New("exit status 1")
		},
	})
	tm.socketDir = t.TempDir()

	names, err := tm.ListSessions(context.Background())
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestListSessionsStaleSocketRemoved(t *testing.T) {
	tm, _ := newFakeTmux(map[string]func([]string) ([]byte, error){
		"list-sessions": func([]string) ([]byte, error) {
			return []byte("error connecting to /tmp/tmux-501/default (No such device)\n"),
				errors.New("exit status 1")
		},
	})

	sockDir := t.TempDir()
	tm.socketDir = sockDir
	uidDir := filepath.Join(sockDir, fmt.Sprintf("tmux-%d", os.Getuid()))
	require.NoError(t, os.MkdirAll(uidDir, 0o700))
	sock := filepath.Join(uidDir, "default")
	require.NoError(t, os.WriteFile(sock, nil, 0o600))

	_, err := tm.ListSessions(context.Background())
	require.NoError(t, err)

	_, statErr := os.Stat(sock)
	require.True(t, os.IsNotExist(statErr), "stale socket should be removed")

	// Second pass with the socket already gone still succeeds
	_, err = tm.ListSessions(context.Background())
	require.NoError(t, err)
}

func TestListSessionsRealError(t *testing.T) {
	tm, _ := newFakeTmux(map[string]func([]string) ([]byte, error){
		"list-sessions": func([]string) ([]byte, error) {
			return []byte("server exited unexpectedly\n"), errors.New("exit status 1")
		},
	})

	_, err := tm.ListSessions(context.Background())
	require.Error(t, err)
}

func TestKillSessionIdempotent(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		cmdErr  error
		wantErr bool
	}{
		{"live session", "", nil, false},
		{"already gone", "can't find session: swarm-x", errors.New("exit status 1"), false},
		{"not found variant", "session not found: swarm-x", errors.New("exit status 1"), false},
		{"dead server", "no server running on /tmp/tmux-501/default", errors.New("exit status 1"), false},
		{"real failure", "some other error", errors.New("exit status 1"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm, _ := newFakeTmux(map[string]func([]string) ([]byte, error){
				"kill-session": func([]string) ([]byte, error) {
					return []byte(tt.output), tt.cmdErr
				},
			})
			err := tm.KillSession(context.Background(), "swarm-x")
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPaneHelpersBestEffort(t *testing.T) {
	tm, _ := newFakeTmux(map[string]func([]string) ([]byte, error){
		"display-message": func([]string) ([]byte, error) {
			return nil, errors.New("exit status 1")
		},
	})

	path, ok := tm.PaneCurrentPath(context.Background(), "swarm-x")
	require.False(t, ok)
	require.Empty(t, path)

	ts, ok := tm.PaneLastActive(context.Background(), "swarm-x")
	require.False(t, ok)
	require.True(t, ts.IsZero())
}

func TestPaneLastActiveParsesEpoch(t *testing.T) {
	tm, _ := newFakeTmux(map[string]func([]string) ([]byte, error){
		"display-message": func([]string) ([]byte, error) {
			return []byte("1700000000\n"), nil
		},
	})

	ts, ok := tm.PaneLastActive(context.Background(), "swarm-x")
	require.True(t, ok)
	require.Equal(t, int64(1700000000), ts.Unix())
}

func TestSendTextLiteralThenEnter(t *testing.T) {
	tm, fr := newFakeTmux(nil)

	require.NoError(t, tm.SendText(context.Background(), "swarm-x", "hello world"))
	require.Len(t, fr.calls, 2)
	require.Equal(t, []string{"send-keys", "-t", "swarm-x", "-l", "hello world"}, fr.calls[0])
	require.Equal(t, []string{"send-keys", "-t", "swarm-x", "Enter"}, fr.calls[1])
}

func TestSendKeyNamed(t *testing.T) {
	tm, fr := newFakeTmux(nil)

	require.NoError(t, tm.SendKey(context.Background(), "swarm-x", "BTab"))
	require.Equal(t, []string{"send-keys", "-t", "swarm-x", "BTab"}, fr.calls[0])
}

func TestHasSession(t *testing.T) {
	tm, fr := newFakeTmux(map[string]func([]string) ([]byte, error){
		"has-session": func(args []string) ([]byte, error) {
			if args[2] == "swarm-live" {
				return nil, nil
			}
			return []byte("can't find session"), errors.New("exit status 1")
		},
	})

	require.True(t, tm.HasSession(context.Background(), "swarm-live"))
	require.False(t, tm.HasSession(context.Background(), "swarm-dead"))
	require.Equal(t, []string{"has-session", "-t", "swarm-live"}, fr.calls[0])
}

func TestEnsurePipeRetries(t *testing.T) {
	attempts := 0
	tm, _ := newFakeTmux(map[string]func([]string) ([]byte, error){
		"pipe-pane": func([]string) ([]byte, error) {
			attempts++
			if attempts < 3 {
				return []byte("can't establish pipe"), errors.New("exit status 1")
			}
			return nil, nil
		},
	})

	logPath := filepath.Join(t.TempDir(), "logs", "swarm-x.log")
	err := tm.EnsurePipe(context.Background(), "swarm-x", logPath)
	require.NoError(t, err)
	require.Equal(t, 3, attempts)

	// Parent directory was created
	_, statErr := os.Stat(filepath.Dir(logPath))
	require.NoError(t, statErr)
}

func TestEnsurePipeGivesUp(t *testing.T) {
	attempts := 0
	tm, _ := newFakeTmux(map[string]func([]string) ([]byte, error){
		"pipe-pane": func([]string) ([]byte, error) {
			attempts++
			return []byte("no such session"), errors.New("exit status 1")
		},
	})

	err := tm.EnsurePipe(context.Background(), "swarm-x", filepath.Join(t.TempDir(), "x.log"))
	require.Error(t, err)
	require.Equal(t, pipeAttempts, attempts)
}

func TestTailLines(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is empty", func(t *testing.T) {
		lines, err := TailLines(filepath.Join(dir, "absent.log"), 10)
		require.NoError(t, err)
		require.Empty(t, lines)
	})

	t.Run("short file returned whole", func(t *testing.T) {
		p := filepath.Join(dir, "short.log")
		require.NoError(t, os.WriteFile(p, []byte("a\nb\nc\n"), 0o644))
		lines, err := TailLines(p, 10)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b", "c"}, lines)
	})

	t.Run("long file truncated to tail", func(t *testing.T) {
		p := filepath.Join(dir, "long.log")
		var b strings.Builder
		for i := 0; i < 100; i++ {
			fmt.Fprintf(&b, "line-%d\n", i)
		}
		require.NoError(t, os.WriteFile(p, []byte(b.String()), 0o644))

		lines, err := TailLines(p, 5)
		require.NoError(t, err)
		require.Equal(t, []string{"line-95", "line-96", "line-97", "line-98", "line-99"}, lines)
	})

	t.Run("empty file", func(t *testing.T) {
		p := filepath.Join(dir, "empty.log")
		require.NoError(t, os.WriteFile(p, nil, 0o644))
		lines, err := TailLines(p, 10)
		require.NoError(t, err)
		require.Empty(t, lines)
	})
}

func TestLogPath(t *testing.T) {
	require.Equal(t, "/var/logs/swarm-a.log", LogPath("/var/logs", "swarm-a"))
}

func TestCapturePaneArgs(t *testing.T) {
	tm, fr := newFakeTmux(map[string]func([]string) ([]byte, error){
		"capture-pane": func([]string) ([]byte, error) {
			return []byte("pane content\n"), nil
		},
	})

	out, err := tm.CapturePane(context.Background(), "swarm-x", 40)
	require.NoError(t, err)
	require.Equal(t, "pane content\n", out)
	require.Equal(t, []string{"capture-pane", "-t", "swarm-x", "-p", "-J", "-S", "-40"}, fr.calls[0])
}
