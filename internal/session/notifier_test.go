package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type alertRecord struct {
	session string
	status  Status
}

func observe(n *Notifier, statuses map[string]Status) {
	var sessions []AgentSession
	for name, st := range statuses {
		sessions = append(sessions, AgentSession{Name: name, Status: st})
	}
	n.Observe(sessions)
}

func TestNotifierEdgeTriggered(t *testing.T) {
	var alerts []alertRecord
	n := NewNotifier(func(session string, status Status) {
		alerts = append(alerts, alertRecord{session, status})
	})

	// The canonical sequence: one needs-input alert, one done alert,
	// nothing for the repeat.
	for _, st := range []Status{StatusRunning, StatusNeedsInput, StatusNeedsInput, StatusDone} {
		observe(n, map[string]Status{"swarm-a": st})
	}

	require.Equal(t, []alertRecord{
		{"swarm-a", StatusNeedsInput},
		{"swarm-a", StatusDone},
	}, alerts)
}

func TestNotifierNoStartupAlert(t *testing.T) {
	var alerts []alertRecord
	n := NewNotifier(func(session string, status Status) {
		alerts = append(alerts, alertRecord{session, status})
	})

	// A session already waiting when the dashboard starts must not fire
	observe(n, map[string]Status{"swarm-a": StatusNeedsInput})
	require.Empty(t, alerts)

	// Staying in needs_input still fires nothing
	observe(n, map[string]Status{"swarm-a": StatusNeedsInput})
	require.Empty(t, alerts)

	// Leaving and re-entering does fire
	observe(n, map[string]Status{"swarm-a": StatusRunning})
	observe(n, map[string]Status{"swarm-a": StatusNeedsInput})
	require.Equal(t, []alertRecord{{"swarm-a", StatusNeedsInput}}, alerts)
}

func TestNotifierNewSessionMidRunBaselined(t *testing.T) {
	var alerts []alertRecord
	n := NewNotifier(func(session string, status Status) {
		alerts = append(alerts, alertRecord{session, status})
	})

	observe(n, map[string]Status{"swarm-a": StatusRunning})
	// swarm-b appears already in needs_input: baseline, no alert
	observe(n, map[string]Status{"swarm-a": StatusRunning, "swarm-b": StatusNeedsInput})
	require.Empty(t, alerts)

	// But a subsequent transition on swarm-b fires
	observe(n, map[string]Status{"swarm-a": StatusRunning, "swarm-b": StatusDone})
	require.Equal(t, []alertRecord{{"swarm-b", StatusDone}}, alerts)
}

func TestNotifierForgetsVanishedSessions(t *testing.T) {
	var alerts []alertRecord
	n := NewNotifier(func(session string, status Status) {
		alerts = append(alerts, alertRecord{session, status})
	})

	observe(n, map[string]Status{"swarm-a": StatusRunning})
	observe(n, map[string]Status{"swarm-a": StatusNeedsInput})
	require.Len(t, alerts, 1)

	// Session dies, then a new session reuses the name while waiting.
	// The fresh observation is a baseline, not a transition.
	observe(n, map[string]Status{})
	observe(n, map[string]Status{"swarm-a": StatusNeedsInput})
	require.Len(t, alerts, 1)
}

func TestNotifierIgnoresOtherTransitions(t *testing.T) {
	var alerts []alertRecord
	n := NewNotifier(func(session string, status Status) {
		alerts = append(alerts, alertRecord{session, status})
	})

	for _, st := range []Status{StatusUnknown, StatusRunning, StatusIdle, StatusRunning, StatusIdle} {
		observe(n, map[string]Status{"swarm-a": st})
	}
	require.Empty(t, alerts)
}
