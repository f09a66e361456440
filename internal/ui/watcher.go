package ui

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/swarmhq/swarm/internal/logging"
)

const reloadDebounce = 250 * time.Millisecond

// TasksWatcher watches the tasks directory and coalesces filesystem
// events into reload signals. Reads of the channel that fall behind are
// fine: pending signals collapse into one.
type TasksWatcher struct {
	fw      *fsnotify.Watcher
	reloads chan struct{}
	done    chan struct{}
	closeMu sync.Once
	log     *slog.Logger
}

// NewTasksWatcher starts watching dir. Callers drain Reloads and reload
// the task list on each signal.
func NewTasksWatcher(dir string) (*TasksWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &TasksWatcher{
		fw:      fw,
		reloads: make(chan struct{}, 1),
		done:    make(chan struct{}),
		log:     logging.ForComponent(logging.CompUI),
	}
	go w.loop()
	return w, nil
}

// Reloads returns the signal channel. It is closed when the watcher is
// closed.
func (w *TasksWatcher) Reloads() <-chan struct{} {
	return w.reloads
}

func (w *TasksWatcher) loop() {
	defer close(w.reloads)
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !relevantTaskEvent(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(reloadDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case w.reloads <- struct{}{}:
			default:
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("tasks_watch_error", "error", err)
		case <-w.done:
			return
		}
	}
}

func relevantTaskEvent(ev fsnotify.Event) bool {
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.HasSuffix(name, ".md")
}

// Close stops the watcher. Safe to call more than once.
func (w *TasksWatcher) Close() {
	w.closeMu.Do(func() {
		close(w.done)
		w.fw.Close()
	})
}
