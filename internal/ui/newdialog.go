package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/swarmhq/swarm/internal/session"
)

const (
	fieldName = iota
	fieldTask
	fieldDue
	fieldPrompt
	fieldAgent
	fieldCount
)

// NewDialog collects the parameters for launching an agent session.
type NewDialog struct {
	inputs []textinput.Model
	focus  int
	yolo   bool
	errMsg string
	now    func() time.Time
}

// NewDialogResult is produced when the dialog is submitted.
type NewDialogResult struct {
	Opts session.CreateOptions

	// Due is the task due date when a task was named. Defaults to
	// tomorrow, matching how work queued tonight is expected back.
	Due time.Time
}

func NewNewDialog(defaultAgent string) *NewDialog {
	d := &NewDialog{
		inputs: make([]textinput.Model, fieldCount),
		now:    time.Now,
	}
	placeholders := []string{"session name", "what is this agent working on", "tomorrow", "initial prompt", defaultAgent}
	for i := range d.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 200
		ti.Width = 44
		d.inputs[i] = ti
	}
	d.inputs[fieldName].Focus()
	return d
}

// Update handles a key press. It returns the submitted result when the
// dialog completes, and done=true when it should be dismissed.
func (d *NewDialog) Update(msg tea.KeyMsg) (result *NewDialogResult, done bool, cmd tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return nil, true, nil
	case tea.KeyTab, tea.KeyDown:
		d.setFocus((d.focus + 1) % (fieldCount + 1))
		return nil, false, nil
	case tea.KeyShiftTab, tea.KeyUp:
		d.setFocus((d.focus + fieldCount) % (fieldCount + 1))
		return nil, false, nil
	case tea.KeyEnter:
		return d.submit()
	case tea.KeySpace:
		if d.focus == fieldCount {
			d.yolo = !d.yolo
			return nil, false, nil
		}
	}

	if d.focus < fieldCount {
		var c tea.Cmd
		d.inputs[d.focus], c = d.inputs[d.focus].Update(msg)
		return nil, false, c
	}
	return nil, false, nil
}

func (d *NewDialog) submit() (*NewDialogResult, bool, tea.Cmd) {
	name := strings.TrimSpace(d.inputs[fieldName].Value())
	if name == "" {
		d.errMsg = "name is required"
		d.setFocus(fieldName)
		return nil, false, nil
	}

	due, err := parseDue(d.inputs[fieldDue].Value(), d.now())
	if err != nil {
		d.errMsg = err.Error()
		d.setFocus(fieldDue)
		return nil, false, nil
	}

	return &NewDialogResult{
		Opts: session.CreateOptions{
			Name:   name,
			Task:   strings.TrimSpace(d.inputs[fieldTask].Value()),
			Prompt: strings.TrimSpace(d.inputs[fieldPrompt].Value()),
			Agent:  strings.TrimSpace(d.inputs[fieldAgent].Value()),
			Yolo:   d.yolo,
		},
		Due: due,
	}, true, nil
}

// parseDue accepts "tomorrow" (also the empty default), "today", or an
// explicit YYYY-MM-DD date.
func parseDue(raw string, now time.Time) (time.Time, error) {
	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "tomorrow":
		return day(now.AddDate(0, 0, 1)), nil
	case "today":
		return day(now), nil
	}
	due, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), now.Location())
	if err != nil {
		return time.Time{}, errBadDue
	}
	return due, nil
}

type dueError string

func (e dueError) Error() string { return string(e) }

const errBadDue = dueError(`due must be "today", "tomorrow" or YYYY-MM-DD`)

func (d *NewDialog) setFocus(i int) {
	d.focus = i
	for j := range d.inputs {
		if j == i {
			d.inputs[j].Focus()
		} else {
			d.inputs[j].Blur()
		}
	}
}

func (d *NewDialog) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("New agent session"))
	b.WriteString("\n\n")
	labels := []string{"Name  ", "Task  ", "Due   ", "Prompt", "Agent "}
	for i, ti := range d.inputs {
		b.WriteString(dimStyle.Render(labels[i]))
		b.WriteString(" ")
		b.WriteString(ti.View())
		b.WriteString("\n")
	}
	check := "[ ]"
	if d.yolo {
		check = yoloStyle.Render("[x]")
	}
	line := dimStyle.Render("Yolo  ") + " " + check + " skip permission prompts"
	if d.focus == fieldCount {
		line = selectedRowStyle.Render(line)
	}
	b.WriteString(line)
	b.WriteString("\n")
	if d.errMsg != "" {
		b.WriteString(errStyle.Render(d.errMsg))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("enter launch  tab next  space toggle  esc cancel"))
	return dialogStyle.Render(b.String())
}

func centerOverlay(width, height int, content string) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
