package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	meta := Metadata{Task: "tasks/fix-auth.md", Agent: "claude", Yolo: true}
	require.NoError(t, s.Save("swarm-a", meta))

	got := s.Load("swarm-a")
	require.Equal(t, meta, got)
}

func TestStoreAbsentIsDefaults(t *testing.T) {
	s := NewStore(t.TempDir())

	got := s.Load("swarm-never-created")
	require.Equal(t, Metadata{}, got)
}

func TestStorePartialMetadata(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	// Only the task file, written by hand
	dir := filepath.Join(root, "swarm-a")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "task"), []byte("do the thing\n"), 0o644))

	got := s.Load("swarm-a")
	require.Equal(t, "do the thing", got.Task)
	require.Empty(t, got.Agent)
	require.False(t, got.Yolo)
}

func TestStoreCorruptYoloDegrades(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	dir := filepath.Join(root, "swarm-a")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yolo"), []byte("banana"), 0o644))

	// Anything that is not exactly "true" reads as false
	require.False(t, s.Load("swarm-a").Yolo)
}

func TestStoreSaveClearsEmptyFields(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	require.NoError(t, s.Save("swarm-a", Metadata{Task: "x", Agent: "claude", Yolo: true}))
	require.NoError(t, s.Save("swarm-a", Metadata{Agent: "claude"}))

	got := s.Load("swarm-a")
	require.Empty(t, got.Task)
	require.False(t, got.Yolo)
	require.Equal(t, "claude", got.Agent)

	_, err := os.Stat(filepath.Join(root, "swarm-a", "task"))
	require.True(t, os.IsNotExist(err))
}

func TestStoreDeleteIdempotent(t *testing.T) {
	s := NewStore(t.TempDir())

	require.NoError(t, s.Save("swarm-a", Metadata{Task: "x"}))
	require.NoError(t, s.Delete("swarm-a"))
	require.NoError(t, s.Delete("swarm-a"))
	require.Equal(t, Metadata{}, s.Load("swarm-a"))
}

func TestStoreList(t *testing.T) {
	s := NewStore(t.TempDir())

	names, err := s.List()
	require.NoError(t, err)
	require.Empty(t, names)

	require.NoError(t, s.Save("swarm-a", Metadata{Task: "x"}))
	require.NoError(t, s.Save("swarm-b", Metadata{Agent: "codex"}))

	names, err = s.List()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"swarm-a", "swarm-b"}, names)
}

func TestStoreListMissingRoot(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope"))
	names, err := s.List()
	require.NoError(t, err)
	require.Empty(t, names)
}
