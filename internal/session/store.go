package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/swarmhq/swarm/internal/logging"
)

var storeLog = logging.ForComponent(logging.CompSession)

// Metadata is the locally persisted sidecar state for one session.
// Everything is optional; a session created outside swarm simply has
// defaults.
type Metadata struct {
	// Task is the task file path or free-form task label.
	Task string

	// Agent is the agent kind running in the session. Empty means the
	// default agent.
	Agent string

	// Yolo records that the agent was launched with permission checks
	// bypassed.
	Yolo bool
}

// Store persists per-session metadata as a directory of single-value
// files under <root>/<session>/. The layout stays shell-greppable on
// purpose.
type Store struct {
	root string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

func (s *Store) sessionDir(name string) string {
	return filepath.Join(s.root, name)
}

// Load reads a session's metadata. Missing files mean unset; an
// unreadable file degrades to the default value with a log line rather
// than failing the caller.
func (s *Store) Load(name string) Metadata {
	dir := s.sessionDir(name)
	var m Metadata
	m.Task = s.readValue(filepath.Join(dir, "task"))
	m.Agent = s.readValue(filepath.Join(dir, "agent"))
	m.Yolo = s.readValue(filepath.Join(dir, "yolo")) == "true"
	return m
}

func (s *Store) readValue(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			storeLog.Warn("metadata_unreadable", slog.String("file", path), slog.Any("error", err))
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Save writes a session's metadata, creating the directory. Empty
// fields remove their files so absence keeps meaning unset.
func (s *Store) Save(name string, m Metadata) error {
	dir := s.sessionDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create metadata dir for %q: %w", name, err)
	}

	yolo := ""
	if m.Yolo {
		yolo = "true"
	}
	for file, value := range map[string]string{
		"task":  m.Task,
		"agent": m.Agent,
		"yolo":  yolo,
	} {
		path := filepath.Join(dir, file)
		if value == "" {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to clear metadata %q: %w", path, err)
			}
			continue
		}
		if err := os.WriteFile(path, []byte(value+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write metadata %q: %w", path, err)
		}
	}
	return nil
}

// Delete removes a session's metadata directory. Deleting absent
// metadata succeeds.
func (s *Store) Delete(name string) error {
	if err := os.RemoveAll(s.sessionDir(name)); err != nil {
		return fmt.Errorf("failed to delete metadata for %q: %w", name, err)
	}
	return nil
}

// List returns the session names that have metadata directories.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read metadata root: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
