package session

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/swarmhq/swarm/internal/logging"
)

var statusLog = logging.ForComponent(logging.CompStatus)

// Status is the inferred operational state of an agent session.
type Status string

const (
	StatusNeedsInput Status = "needs_input"
	StatusRunning    Status = "running"
	StatusIdle       Status = "idle"
	StatusDone       Status = "done"
	StatusUnknown    Status = "unknown"
)

// Agents emit these sentinels into their output to report state
// explicitly; they override every heuristic.
const (
	SentinelNeedsInput = "/swarm:needs_input"
	SentinelDone       = "/swarm:done"
)

// DetectionConfig holds the compiled needs-input patterns and the age
// thresholds used when no pattern matches.
type DetectionConfig struct {
	promptStrings []string
	promptRegexps []*regexp.Regexp

	// RunningThreshold is the max output age still considered actively
	// running. Default 5s.
	RunningThreshold time.Duration

	// IdleThreshold is the age past which a session is settled idle.
	// Default 30s.
	IdleThreshold time.Duration
}

// defaultPromptPatterns are the built-in needs-input heuristics, in
// priority order. Patterns prefixed with "re:" are compiled as regex;
// everything else uses substring matching.
var defaultPromptPatterns = []string{
	"[Y/n]",
	"[y/N]",
	"(y/N)",
	"(Y/n)",
	"Do you want to proceed",
	"Should I proceed",
	"Would you like me to",
	"Press enter to continue",
	`re:(?i)waiting for.*input`, // case-folded on purpose, agents vary the casing
	`re:(?m)^\? `,
	`re:Enter to select.*Tab/Arrow`,
	"Type your answer",
}

// NewDetectionConfig compiles the built-in prompt patterns plus any
// extras. Invalid regex extras are logged and skipped, never fatal.
func NewDetectionConfig(extraPatterns []string, running, idle time.Duration) *DetectionConfig {
	if running <= 0 {
		running = 5 * time.Second
	}
	if idle <= 0 {
		idle = 30 * time.Second
	}
	cfg := &DetectionConfig{
		RunningThreshold: running,
		IdleThreshold:    idle,
	}
	for _, p := range append(append([]string{}, defaultPromptPatterns...), extraPatterns...) {
		if strings.HasPrefix(p, "re:") {
			re, err := regexp.Compile(p[3:])
			if err != nil {
				statusLog.Warn("invalid_prompt_regex",
					slog.String("pattern", p),
					slog.String("error", err.Error()))
				continue
			}
			cfg.promptRegexps = append(cfg.promptRegexps, re)
		} else {
			cfg.promptStrings = append(cfg.promptStrings, p)
		}
	}
	return cfg
}

// DefaultDetectionConfig returns the stock configuration.
func DefaultDetectionConfig() *DetectionConfig {
	return NewDetectionConfig(nil, 0, 0)
}

// DetectionFor returns the detection config for an agent kind. All
// agents currently share one config; the lookup exists so per-agent
// tuning lands in one place.
func (cfg *DetectionConfig) DetectionFor(agent string) *DetectionConfig {
	return cfg
}

// Classify infers a status from the tail of a session's output log.
// Priority: explicit sentinels, then prompt heuristics, then output
// age. Both age branches past the running threshold yield Idle; the
// idle threshold stays as a tuning point for treating long-quiet
// sessions differently. Without any age signal the state is Unknown.
func Classify(lines []string, cfg *DetectionConfig, age time.Duration, hasAge bool) Status {
	window := strings.Join(lines, "\n")

	if strings.Contains(window, SentinelNeedsInput) {
		return StatusNeedsInput
	}
	if strings.Contains(window, SentinelDone) {
		return StatusDone
	}

	for _, s := range cfg.promptStrings {
		if strings.Contains(window, s) {
			return StatusNeedsInput
		}
	}
	for _, re := range cfg.promptRegexps {
		if re.MatchString(window) {
			return StatusNeedsInput
		}
	}

	if hasAge {
		if age <= cfg.RunningThreshold {
			return StatusRunning
		}
		if age <= cfg.IdleThreshold {
			return StatusIdle
		}
		return StatusIdle
	}

	return StatusUnknown
}
