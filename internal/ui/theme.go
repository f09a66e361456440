package ui

import (
	"context"
	"log/slog"
	"sync"

	dark "github.com/thiagokokada/dark-mode-go"
)

// ThemeWatcher follows the OS dark mode setting so a dashboard left
// open picks up a daytime theme switch. Only used when the configured
// theme is "system".
type ThemeWatcher struct {
	changes chan bool // true means dark
	done    chan struct{}
	closeMu sync.Once
}

// NewThemeWatcher starts watching the OS theme. Returns nil when the
// platform offers no signal; callers keep the startup palette then.
func NewThemeWatcher(ctx context.Context) *ThemeWatcher {
	ctx, cancel := context.WithCancel(ctx)
	events, errs, err := dark.WatchDarkMode(ctx)
	if err != nil {
		cancel()
		uiLog.Warn("theme_watch_unavailable", slog.Any("error", err))
		return nil
	}

	w := &ThemeWatcher{
		changes: make(chan bool, 1),
		done:    make(chan struct{}),
	}
	go w.loop(cancel, events, errs)
	return w
}

func (w *ThemeWatcher) loop(cancel context.CancelFunc, events <-chan bool, errs <-chan error) {
	defer cancel()
	defer close(w.changes)
	for {
		select {
		case <-w.done:
			return
		case isDark, ok := <-events:
			if !ok {
				return
			}
			// Only the latest state matters; drop stale ones.
			select {
			case w.changes <- isDark:
			default:
				select {
				case <-w.changes:
				default:
				}
				w.changes <- isDark
			}
		case err, ok := <-errs:
			if ok && err != nil {
				uiLog.Warn("theme_watch_error", slog.Any("error", err))
			}
		}
	}
}

// Changes delivers OS theme transitions, true for dark. Closed when
// the watcher stops.
func (w *ThemeWatcher) Changes() <-chan bool { return w.changes }

// Close stops the watcher. Idempotent.
func (w *ThemeWatcher) Close() {
	w.closeMu.Do(func() { close(w.done) })
}
