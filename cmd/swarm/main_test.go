package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swarmhq/swarm/internal/session"
	"github.com/swarmhq/swarm/internal/tmux"
)

func TestNormalizeSessionName(t *testing.T) {
	require.Equal(t, "swarm-web", normalizeSessionName("web"))
	require.Equal(t, "swarm-web", normalizeSessionName("swarm-web"))
	require.Equal(t, tmux.SessionPrefix+"swarm", normalizeSessionName("swarm"))
}

func TestStatusEntryJSON(t *testing.T) {
	secs := 42
	entries := []statusEntry{
		{Name: "web", Agent: "claude", Status: string(session.StatusRunning), AgeSecs: &secs},
		{Name: "docs", Agent: "claude", Status: string(session.StatusUnknown)},
	}

	out, err := json.Marshal(entries)
	require.NoError(t, err)
	require.Contains(t, string(out), `"age_secs":42`)
	// sessions without an observed age omit the field entirely
	require.NotContains(t, string(out), `"age_secs":0`)
	require.NotContains(t, string(out), `"task"`)
}

func TestAttachArgv(t *testing.T) {
	tm := tmux.New("/usr/bin/tmux")

	argv := attachArgv(tm, "swarm-web", false)
	require.Equal(t, []string{"/usr/bin/tmux", "attach-session", "-t", "swarm-web"}, argv)

	argv = attachArgv(tm, "swarm-web", true)
	require.Equal(t, []string{"/usr/bin/tmux", "switch-client", "-t", "swarm-web"}, argv)
}
