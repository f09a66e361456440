package ui

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTasksWatcherSignalsOnMarkdownChange(t *testing.T) {
	dir := t.TempDir()
	w, err := NewTasksWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new-task.md"), []byte("# New task\n"), 0o644))

	select {
	case _, ok := <-w.Reloads():
		require.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload signal after task file write")
	}
}

func TestTasksWatcherCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	w, err := NewTasksWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "burst.md")
		require.NoError(t, os.WriteFile(name, []byte("# Burst\n"), 0o644))
	}

	select {
	case <-w.Reloads():
	case <-time.After(3 * time.Second):
		t.Fatal("no reload signal after burst")
	}

	// burst collapsed into at most one pending signal
	select {
	case _, ok := <-w.Reloads():
		if ok {
			t.Fatal("expected burst to coalesce into a single signal")
		}
	case <-time.After(2 * reloadDebounce):
	}
}

func TestTasksWatcherIgnoresNonTaskFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewTasksWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".draft.md"), []byte("x"), 0o644))

	select {
	case <-w.Reloads():
		t.Fatal("unexpected reload for non-task files")
	case <-time.After(2 * reloadDebounce):
	}
}

func TestTasksWatcherCloseIdempotent(t *testing.T) {
	w, err := NewTasksWatcher(t.TempDir())
	require.NoError(t, err)

	w.Close()
	w.Close()

	_, ok := <-w.Reloads()
	require.False(t, ok)
}

func TestTasksWatcherMissingDir(t *testing.T) {
	_, err := NewTasksWatcher(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
