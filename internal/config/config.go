package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/swarmhq/swarm/internal/logging"
)

var configLog = logging.ForComponent(logging.CompConfig)

// FileName is the TOML config file under the swarm directory.
const FileName = "config.toml"

// MaxPollIntervalMs caps the dashboard refresh interval. Anything slower
// makes status feel stale.
const MaxPollIntervalMs = 5000

// Config represents user-facing configuration in TOML format.
type Config struct {
	// DefaultAgent is the agent launched for new sessions when none is
	// given. Default: "claude"
	DefaultAgent string `toml:"default_agent"`

	// PollIntervalMs is the dashboard refresh interval in milliseconds.
	// Default: 2000, capped at MaxPollIntervalMs.
	PollIntervalMs int `toml:"poll_interval_ms"`

	// LogsDir is where per-session output logs are written.
	// Default: <swarm dir>/logs
	LogsDir string `toml:"logs_dir"`

	// TasksDir is the directory of task markdown files.
	// Default: <swarm dir>/tasks
	TasksDir string `toml:"tasks_dir"`

	// StatusStyle selects status indicators: "unicode" (default),
	// "emoji", or "text".
	StatusStyle string `toml:"status_style"`

	// Theme selects the palette: "dark", "light", or "system"
	// (default), which follows the OS setting.
	Theme string `toml:"theme"`

	// WorktreeDir is where worktree-mode sessions check out their
	// branch. Default: ~/worktrees
	WorktreeDir string `toml:"worktree_dir"`

	// BranchPrefix is prepended to worktree branch names, e.g.
	// "alice/". Empty means derive it from the git user name.
	BranchPrefix string `toml:"branch_prefix"`

	// HooksInstalled records that the command pack was offered once.
	HooksInstalled bool `toml:"hooks_installed"`

	// AllowedTools is passed to claude in non-yolo mode.
	AllowedTools []string `toml:"allowed_tools"`

	// Notifications defines desktop notification settings.
	Notifications NotificationSettings `toml:"notifications"`

	// Detection defines status detection overrides.
	Detection DetectionSettings `toml:"detection"`

	// Logs defines debug log settings.
	Logs LogSettings `toml:"logs"`
}

// NotificationSettings configures desktop alerts on status transitions.
type NotificationSettings struct {
	// Enabled turns desktop notifications on. Default: true
	// (pointer to distinguish "not set" from "explicitly false")
	Enabled *bool `toml:"enabled"`

	// NeedsInputSound is the macOS sound for needs-input alerts.
	// Default: "Glass"
	NeedsInputSound string `toml:"needs_input_sound"`

	// DoneSound is the macOS sound for done alerts. Default: "Hero"
	DoneSound string `toml:"done_sound"`
}

// GetEnabled returns whether notifications are on, defaulting to true.
func (n *NotificationSettings) GetEnabled() bool {
	if n.Enabled == nil {
		return true
	}
	return *n.Enabled
}

// DetectionSettings overrides status detection behavior.
type DetectionSettings struct {
	// RunningThresholdSecs is the max output age still considered
	// actively running. Default: 5
	RunningThresholdSecs int `toml:"running_threshold_secs"`

	// IdleThresholdSecs is the age past which a session is settled
	// idle. Default: 30
	IdleThresholdSecs int `toml:"idle_threshold_secs"`

	// ExtraPromptPatterns appends needs-input patterns to the built-in
	// defaults. Patterns prefixed with "re:" are compiled as regex;
	// everything else uses substring matching.
	ExtraPromptPatterns []string `toml:"extra_prompt_patterns"`
}

// LogSettings defines debug log configuration.
type LogSettings struct {
	// DebugLevel sets the minimum log level: "debug", "info", "warn", "error"
	// Default: "info"
	DebugLevel string `toml:"debug_level"`

	// DebugFormat sets the log format: "json" (default) or "text"
	DebugFormat string `toml:"debug_format"`

	// DebugMaxMB is the max size in MB for debug.log before rotation
	// Default: 10
	DebugMaxMB int `toml:"debug_max_mb"`

	// DebugBackups is the number of rotated debug.log files to keep
	// Default: 5
	DebugBackups int `toml:"debug_backups"`
}

var (
	cache   *Config
	cacheMu sync.RWMutex
)

// SwarmDir returns the swarm state directory, honoring SWARM_DIR for
// tests and unusual setups. Default: ~/.swarm
func SwarmDir() (string, error) {
	if dir := os.Getenv("SWARM_DIR"); dir != "" {
		return ExpandTilde(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".swarm"), nil
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := SwarmDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the configuration, creating a commented default file on
// first run. Returns cached config after first load.
func Load() (*Config, error) {
	cacheMu.RLock()
	if cache != nil {
		defer cacheMu.RUnlock()
		return cache, nil
	}
	cacheMu.RUnlock()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	// Double-check after acquiring write lock
	if cache != nil {
		return cache, nil
	}

	configPath, err := Path()
	if err != nil {
		c := defaults()
		cache = c
		return c, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if writeErr := writeExample(configPath); writeErr != nil {
			// First run without a writable home still works off defaults.
			configLog.Warn("example_config_write_failed",
				slog.String("path", configPath), slog.Any("error", writeErr))
			c := defaults()
			cache = c
			return c, nil
		}
	}

	var c Config
	if _, err := toml.DecodeFile(configPath, &c); err != nil {
		// Cache defaults to prevent repeated parse attempts; return the
		// error so the caller can surface it.
		cache = defaults()
		return cache, fmt.Errorf("config.toml parse error: %w", err)
	}

	applyDefaults(&c)
	cache = &c
	return cache, nil
}

// Reload forces a fresh read on the next Load.
func Reload() (*Config, error) {
	ClearCache()
	return Load()
}

// ClearCache clears the cached config, allowing tests to reset state.
func ClearCache() {
	cacheMu.Lock()
	cache = nil
	cacheMu.Unlock()
}

func defaults() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}

func applyDefaults(c *Config) {
	swarmDir, _ := SwarmDir()

	if c.DefaultAgent == "" {
		c.DefaultAgent = "claude"
	}
	if c.PollIntervalMs <= 0 {
		c.PollIntervalMs = 2000
	}
	if c.PollIntervalMs > MaxPollIntervalMs {
		configLog.Warn("poll_interval_capped",
			slog.Int("requested_ms", c.PollIntervalMs), slog.Int("cap_ms", MaxPollIntervalMs))
		c.PollIntervalMs = MaxPollIntervalMs
	}
	if c.LogsDir == "" {
		c.LogsDir = filepath.Join(swarmDir, "logs")
	} else {
		c.LogsDir = ExpandTilde(c.LogsDir)
	}
	if c.TasksDir == "" {
		c.TasksDir = filepath.Join(swarmDir, "tasks")
	} else {
		c.TasksDir = ExpandTilde(c.TasksDir)
	}
	switch c.StatusStyle {
	case "unicode", "emoji", "text":
	default:
		c.StatusStyle = "unicode"
	}
	switch c.Theme {
	case "dark", "light", "system":
	default:
		c.Theme = "system"
	}
	if c.WorktreeDir == "" {
		c.WorktreeDir = ExpandTilde("~/worktrees")
	} else {
		c.WorktreeDir = ExpandTilde(c.WorktreeDir)
	}
	if c.Notifications.NeedsInputSound == "" {
		c.Notifications.NeedsInputSound = "Glass"
	}
	if c.Notifications.DoneSound == "" {
		c.Notifications.DoneSound = "Hero"
	}
	if c.Detection.RunningThresholdSecs <= 0 {
		c.Detection.RunningThresholdSecs = 5
	}
	if c.Detection.IdleThresholdSecs <= 0 {
		c.Detection.IdleThresholdSecs = 30
	}
	if len(c.AllowedTools) == 0 {
		c.AllowedTools = []string{"Edit", "Write", "Bash", "Read", "Glob", "Grep"}
	}
}

// SessionsDir returns the per-session metadata root, creating it.
func (c *Config) SessionsDir() (string, error) {
	dir, err := SwarmDir()
	if err != nil {
		return "", err
	}
	sessions := filepath.Join(dir, "sessions")
	if err := os.MkdirAll(sessions, 0o755); err != nil {
		return "", fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return sessions, nil
}

// EnsureDirs creates the swarm, logs, and tasks directories.
func (c *Config) EnsureDirs() error {
	dir, err := SwarmDir()
	if err != nil {
		return err
	}
	for _, d := range []string{dir, c.LogsDir, c.TasksDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	return nil
}

// Save writes the config to config.toml using the atomic write pattern
// and clears the cache so the next Load reads fresh values.
func Save(c *Config) error {
	configPath, err := Path()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# Swarm Configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// Write to a temp file then rename so a crash never leaves a
	// half-written config behind.
	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize config save: %w", err)
	}

	ClearCache()
	return nil
}

// ExpandTilde expands a leading ~/ to the user home directory.
func ExpandTilde(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

func writeExample(configPath string) error {
	example := `# Swarm User Configuration
# This file is loaded on startup. Edit to customize the dashboard.

# Agent launched for new sessions when none is given (default: "claude")
# default_agent = "claude"

# Dashboard refresh interval in milliseconds (default: 2000, max 5000)
# poll_interval_ms = 2000

# Status indicator style: "unicode" (default), "emoji", or "text"
# status_style = "unicode"

# Color theme: "dark", "light", or "system" (default, follows the OS)
# theme = "system"

# Base directory for worktree-mode sessions (swarm new -worktree)
# worktree_dir = "~/worktrees"

# Prefix for worktree branch names; defaults to the git user name
# branch_prefix = "alice/"

# Where per-session output logs are written (default: ~/.swarm/logs)
# logs_dir = "~/.swarm/logs"

# Directory of task markdown files (default: ~/.swarm/tasks)
# tasks_dir = "~/.swarm/tasks"

# Tools claude may use without prompting when yolo mode is off
# allowed_tools = ["Edit", "Write", "Bash", "Read", "Glob", "Grep"]

# Desktop notifications on status transitions
# [notifications]
# enabled = true
# needs_input_sound = "Glass"   # macOS sound for needs-input alerts
# done_sound = "Hero"           # macOS sound for done alerts

# Status detection overrides
# [detection]
# running_threshold_secs = 5    # output younger than this = running
# idle_threshold_secs = 30      # output older than this = settled idle
# Append needs-input patterns to the built-in defaults.
# Prefix with "re:" for regex, otherwise substring match.
# extra_prompt_patterns = ["re:Apply patch\\?", "Continue?"]

# Debug log settings (written to ~/.swarm/debug.log)
# [logs]
# debug_level = "info"          # "debug", "info", "warn", "error"
# debug_format = "json"         # "json" or "text"
# debug_max_mb = 10
# debug_backups = 5
`
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(configPath, []byte(example), 0o600)
}
