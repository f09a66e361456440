package task

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/swarmhq/swarm/internal/logging"
)

var taskLog = logging.ForComponent(logging.CompTask)

// Task is one markdown file in the tasks directory. Frontmatter fields
// are optional; a bare markdown file with a heading is a valid task.
type Task struct {
	Path    string
	Title   string
	Status  string
	Summary string
	Due     time.Time
	HasDue  bool
}

// skipNames are filenames never treated as tasks.
var skipNames = map[string]bool{
	"readme.md": true,
}

// Load returns the tasks in dir sorted by due date (undated last), then
// title. A missing directory is an empty list. Files under archive/ and
// tasks with status done are skipped.
func Load(dir string) ([]Task, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tasks directory: %w", err)
	}

	var tasks []Task
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".md") || skipNames[strings.ToLower(name)] {
			continue
		}
		t, err := Parse(filepath.Join(dir, name))
		if err != nil {
			taskLog.Warn("task_parse_failed", slog.String("file", name), slog.Any("error", err))
			continue
		}
		if t.Status == "done" || t.Status == "archived" {
			continue
		}
		tasks = append(tasks, t)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.HasDue != b.HasDue {
			return a.HasDue
		}
		if a.HasDue && !a.Due.Equal(b.Due) {
			return a.Due.Before(b.Due)
		}
		return a.Title < b.Title
	})
	return tasks, nil
}

// Parse reads one task file: optional --- frontmatter with status, due
// (YYYY-MM-DD) and summary, then the first # heading as title. A file
// with no heading falls back to its basename.
func Parse(path string) (Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Task{}, fmt.Errorf("failed to read task %q: %w", path, err)
	}

	t := Task{Path: path}
	body := string(data)

	if strings.HasPrefix(body, "---\n") {
		rest := body[4:]
		if end := strings.Index(rest, "\n---"); end >= 0 {
			front := rest[:end]
			body = rest[end+4:]
			for _, line := range strings.Split(front, "\n") {
				key, value, ok := strings.Cut(line, ":")
				if !ok {
					continue
				}
				value = strings.TrimSpace(strings.Trim(strings.TrimSpace(value), `"'`))
				switch strings.TrimSpace(strings.ToLower(key)) {
				case "status":
					t.Status = strings.ToLower(value)
				case "summary":
					t.Summary = value
				case "due":
					if due, err := time.ParseInLocation("2006-01-02", value, time.Local); err == nil {
						t.Due = due
						t.HasDue = true
					}
				}
			}
		}
	}

	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# ") {
			t.Title = strings.TrimSpace(line[2:])
			break
		}
	}
	if t.Title == "" {
		base := filepath.Base(path)
		t.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return t, nil
}

// Create writes a new task file with frontmatter. The filename is the
// slugified title; an existing file is an error rather than an
// overwrite.
func Create(dir, title, summary string, due time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create tasks directory: %w", err)
	}

	path := filepath.Join(dir, Slug(title)+".md")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("task file %q already exists", path)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("status: todo\n")
	if !due.IsZero() {
		fmt.Fprintf(&b, "due: %s\n", due.Format("2006-01-02"))
	}
	if summary != "" {
		fmt.Fprintf(&b, "summary: %s\n", summary)
	}
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n", title)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write task file: %w", err)
	}
	taskLog.Info("task_created", slog.String("file", path))
	return path, nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a title into a filesystem and session-name safe slug.
func Slug(title string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "task"
	}
	return s
}

// FormatDue renders a due date relative to today: overdue, today,
// tomorrow, Nd, or the date for anything further out.
func FormatDue(due time.Time, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, due.Location())
	days := int(d.Sub(today).Hours() / 24)

	switch {
	case days < 0:
		return fmt.Sprintf("overdue %dd", -days)
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days <= 14:
		return fmt.Sprintf("%dd", days)
	default:
		return d.Format("Jan 2")
	}
}

// titles implements fuzzy.Source over task titles.
type titles []Task

func (t titles) String(i int) string { return t[i].Title }
func (t titles) Len() int            { return len(t) }

// Filter narrows tasks by fuzzy-matching query against titles. An empty
// query returns the input unchanged.
func Filter(tasks []Task, query string) []Task {
	if strings.TrimSpace(query) == "" {
		return tasks
	}
	matches := fuzzy.FindFrom(query, titles(tasks))
	out := make([]Task, 0, len(matches))
	for _, m := range matches {
		out = append(out, tasks[m.Index])
	}
	return out
}
