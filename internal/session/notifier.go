package session

import (
	"log/slog"

	"github.com/swarmhq/swarm/internal/logging"
)

var notifLog = logging.ForComponent(logging.CompNotif)

// AlertFunc delivers one notification for a session that just entered
// the given status.
type AlertFunc func(session string, status Status)

// Notifier fires alerts on status transitions into NeedsInput and
// Done. It is edge-triggered: the first pass seeds a baseline without
// alerting, a sustained status never refires, and each qualifying
// transition produces exactly one alert.
type Notifier struct {
	prev   map[string]Status
	seeded bool
	alert  AlertFunc
}

// NewNotifier returns a Notifier delivering through alert.
func NewNotifier(alert AlertFunc) *Notifier {
	return &Notifier{
		prev:  make(map[string]Status),
		alert: alert,
	}
}

// Observe takes one tick's fleet view and fires alerts for qualifying
// transitions. Sessions first seen mid-run are baselined silently;
// vanished sessions are forgotten so a reused name starts clean.
func (n *Notifier) Observe(sessions []AgentSession) {
	seen := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		seen[s.Name] = true

		prev, known := n.prev[s.Name]
		n.prev[s.Name] = s.Status
		if !n.seeded || !known {
			continue
		}
		if prev == s.Status {
			continue
		}

		switch s.Status {
		case StatusNeedsInput, StatusDone:
			notifLog.Info("status_transition",
				slog.String("session", s.Name),
				slog.String("from", string(prev)),
				slog.String("to", string(s.Status)))
			if n.alert != nil {
				n.alert(s.Name, s.Status)
			}
		}
	}

	for name := range n.prev {
		if !seen[name] {
			delete(n.prev, name)
		}
	}
	n.seeded = true
}
