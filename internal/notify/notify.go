package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/swarmhq/swarm/internal/logging"
	"github.com/swarmhq/swarm/internal/platform"
	"github.com/swarmhq/swarm/internal/session"
)

var notifLog = logging.ForComponent(logging.CompNotif)

const deliverTimeout = 5 * time.Second

// Notifier delivers desktop alerts for session status transitions.
// Delivery is best effort: a broken notification stack never disturbs
// the dashboard.
type Notifier struct {
	enabled         bool
	needsInputSound string
	doneSound       string

	// run is swappable in tests.
	run func(ctx context.Context, name string, args ...string) error
}

// New returns a Notifier. Sounds apply on macOS only.
func New(enabled bool, needsInputSound, doneSound string) *Notifier {
	return &Notifier{
		enabled:         enabled,
		needsInputSound: needsInputSound,
		doneSound:       doneSound,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Alert delivers one notification for a session entering status.
// Matches session.AlertFunc. Delivery runs off the caller's goroutine
// so a wedged notification stack never stalls a dashboard tick.
func (n *Notifier) Alert(name string, status session.Status) {
	if !n.enabled {
		return
	}

	short := strings.TrimPrefix(name, "swarm-")
	var message, sound string
	switch status {
	case session.StatusNeedsInput:
		message = fmt.Sprintf("%s needs your input", short)
		sound = n.needsInputSound
	case session.StatusDone:
		message = fmt.Sprintf("%s is done", short)
		sound = n.doneSound
	default:
		return
	}

	var cmdName string
	var args []string
	switch platform.Detect() {
	case platform.PlatformMacOS:
		script := fmt.Sprintf("display notification %q with title %q", message, "Swarm")
		if sound != "" {
			script += fmt.Sprintf(" sound name %q", sound)
		}
		cmdName, args = "osascript", []string{"-e", script}
	case platform.PlatformLinux, platform.PlatformWSL:
		cmdName, args = "notify-send", []string{"Swarm", message}
	default:
		return
	}

	go n.deliver(name, cmdName, args)
}

func (n *Notifier) deliver(name, cmdName string, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	if err := n.run(ctx, cmdName, args...); err != nil {
		notifLog.Warn("notification_delivery_failed",
			slog.String("session", name),
			slog.Any("error", err))
	}
}
