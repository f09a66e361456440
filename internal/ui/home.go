package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"golang.org/x/time/rate"

	"github.com/swarmhq/swarm/internal/config"
	"github.com/swarmhq/swarm/internal/logging"
	"github.com/swarmhq/swarm/internal/session"
	"github.com/swarmhq/swarm/internal/task"
	"github.com/swarmhq/swarm/internal/tmux"
	"github.com/swarmhq/swarm/internal/update"
)

var uiLog = logging.ForComponent(logging.CompUI)

type viewMode int

const (
	viewSessions viewMode = iota
	viewTasks
)

type dialogMode int

const (
	dialogNone dialogMode = iota
	dialogConfirmKill
	dialogNew
	dialogSend
	dialogHelp
	dialogSetup
)

const previewPaneLines = 14

type tickMsg time.Time

type sessionsLoadedMsg struct {
	sessions []session.AgentSession
	err      error
}

type tasksLoadedMsg struct {
	tasks []task.Task
	err   error
}

type tasksChangedMsg struct{}

type themeChangedMsg struct {
	dark bool
}

type previewMsg struct {
	name    string
	content string
}

type updateDoneMsg update.Result

type sessionCreatedMsg struct {
	name string
	err  error
}

type sessionKilledMsg struct {
	name string
	err  error
}

type inputSentMsg struct {
	name string
	err  error
}

type keySentMsg struct {
	name string
	err  error
}

// Home is the dashboard model: the session fleet on one view, the task
// backlog on the other, with modal dialogs layered on top.
type Home struct {
	cfg      *config.Config
	tm       *tmux.Tmux
	mgr      *session.Manager
	notifier *session.Notifier
	updateCh <-chan update.Result
	watcher  *TasksWatcher
	themes   *ThemeWatcher
	version  string

	sessions []session.AgentSession
	tasks    []task.Task

	view   viewMode
	dialog dialogMode

	cursor     int
	taskCursor int

	filter    textinput.Model
	filtering bool

	sendInput  textinput.Model
	sendTarget string

	confirmTarget string
	newDialog     *NewDialog

	preview        string
	previewName    string
	previewLimiter *rate.Limiter

	width  int
	height int

	errMsg string
	banner string

	attachTarget string
}

// NewHome builds the dashboard. watcher, themes and updateCh may be nil.
func NewHome(cfg *config.Config, tm *tmux.Tmux, mgr *session.Manager, notifier *session.Notifier, watcher *TasksWatcher, themes *ThemeWatcher, updateCh <-chan update.Result, version string) *Home {
	filter := textinput.New()
	filter.Placeholder = "filter tasks"
	filter.CharLimit = 100
	filter.Width = 30

	send := textinput.New()
	send.Placeholder = "text to send"
	send.CharLimit = 500
	send.Width = 50

	h := &Home{
		cfg:            cfg,
		tm:             tm,
		mgr:            mgr,
		notifier:       notifier,
		updateCh:       updateCh,
		watcher:        watcher,
		themes:         themes,
		version:        version,
		filter:         filter,
		sendInput:      send,
		previewLimiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
	if dir, err := config.SwarmDir(); err == nil && update.ConsumeJustUpdated(dir) {
		h.banner = "Updated to " + version
	}
	if !cfg.HooksInstalled {
		h.dialog = dialogSetup
	}
	return h
}

// AttachTarget returns the session the user chose to attach to, when
// the program exited via attach.
func (h *Home) AttachTarget() string { return h.attachTarget }

func (h *Home) Init() tea.Cmd {
	cmds := []tea.Cmd{h.tick(), h.loadSessions(), h.loadTasks()}
	if h.watcher != nil {
		cmds = append(cmds, listenTasks(h.watcher))
	}
	if h.themes != nil {
		cmds = append(cmds, listenTheme(h.themes))
	}
	if h.updateCh != nil {
		cmds = append(cmds, waitUpdate(h.updateCh))
	}
	return tea.Batch(cmds...)
}

func (h *Home) pollInterval() time.Duration {
	return time.Duration(h.cfg.PollIntervalMs) * time.Millisecond
}

func (h *Home) tick() tea.Cmd {
	return tea.Tick(h.pollInterval(), func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (h *Home) loadSessions() tea.Cmd {
	mgr := h.mgr
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sessions, err := mgr.Collect(ctx)
		return sessionsLoadedMsg{sessions: sessions, err: err}
	}
}

func (h *Home) loadTasks() tea.Cmd {
	dir := h.cfg.TasksDir
	return func() tea.Msg {
		tasks, err := task.Load(dir)
		return tasksLoadedMsg{tasks: tasks, err: err}
	}
}

func listenTasks(w *TasksWatcher) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-w.Reloads(); !ok {
			return nil
		}
		return tasksChangedMsg{}
	}
}

func listenTheme(w *ThemeWatcher) tea.Cmd {
	return func() tea.Msg {
		isDark, ok := <-w.Changes()
		if !ok {
			return nil
		}
		return themeChangedMsg{dark: isDark}
	}
}

func waitUpdate(ch <-chan update.Result) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return nil
		}
		return updateDoneMsg(res)
	}
}

func (h *Home) fetchPreview(name string) tea.Cmd {
	tm := h.tm
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		content, err := tm.CapturePane(ctx, name, 2*previewPaneLines)
		if err != nil {
			return previewMsg{name: name, content: ""}
		}
		return previewMsg{name: name, content: content}
	}
}

func (h *Home) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h.width = msg.Width
		h.height = msg.Height
		return h, nil

	case tickMsg:
		return h, tea.Batch(h.tick(), h.loadSessions())

	case sessionsLoadedMsg:
		if msg.err != nil {
			h.errMsg = msg.err.Error()
			return h, nil
		}
		h.errMsg = ""
		h.sessions = msg.sessions
		h.notifier.Observe(msg.sessions)
		if h.cursor >= len(h.sessions) {
			h.cursor = max(0, len(h.sessions)-1)
		}
		if name, ok := h.selectedSession(); ok && h.previewLimiter.Allow() {
			return h, h.fetchPreview(name)
		}
		return h, nil

	case tasksLoadedMsg:
		if msg.err != nil {
			h.errMsg = msg.err.Error()
			return h, nil
		}
		h.tasks = msg.tasks
		if h.taskCursor >= len(h.visibleTasks()) {
			h.taskCursor = max(0, len(h.visibleTasks())-1)
		}
		return h, nil

	case tasksChangedMsg:
		cmds := []tea.Cmd{h.loadTasks()}
		if h.watcher != nil {
			cmds = append(cmds, listenTasks(h.watcher))
		}
		return h, tea.Batch(cmds...)

	case themeChangedMsg:
		h.applyThemeChange(msg.dark)
		if h.themes != nil {
			return h, listenTheme(h.themes)
		}
		return h, nil

	case previewMsg:
		h.preview = msg.content
		h.previewName = msg.name
		return h, nil

	case updateDoneMsg:
		switch {
		case msg.Err != nil:
			uiLog.Warn("update_check_failed", slog.Any("error", msg.Err))
		case msg.Updated:
			h.banner = "Updated to " + msg.Info.LatestVersion + ", restart to apply"
		case msg.Info != nil && msg.Info.Available:
			h.banner = "Update available: " + msg.Info.LatestVersion + " (run swarm -update)"
		}
		return h, nil

	case sessionCreatedMsg:
		if msg.err != nil {
			h.errMsg = msg.err.Error()
		} else {
			h.errMsg = ""
		}
		return h, h.loadSessions()

	case sessionKilledMsg:
		if msg.err != nil {
			h.errMsg = msg.err.Error()
		}
		return h, h.loadSessions()

	case inputSentMsg:
		if msg.err != nil {
			h.errMsg = msg.err.Error()
		}
		return h, h.loadSessions()

	case keySentMsg:
		if msg.err != nil {
			h.errMsg = msg.err.Error()
		} else {
			h.banner = "Cycled mode on " + strings.TrimPrefix(msg.name, tmux.SessionPrefix)
		}
		return h, nil

	case tea.KeyMsg:
		return h.handleKey(msg)
	}
	return h, nil
}

func (h *Home) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch h.dialog {
	case dialogConfirmKill:
		switch msg.String() {
		case "y", "Y", "enter":
			target := h.confirmTarget
			h.dialog = dialogNone
			h.confirmTarget = ""
			return h, h.killSession(target)
		case "n", "N", "esc", "q":
			h.dialog = dialogNone
			h.confirmTarget = ""
		}
		return h, nil

	case dialogNew:
		result, done, cmd := h.newDialog.Update(msg)
		if done {
			h.dialog = dialogNone
			h.newDialog = nil
		}
		if result != nil {
			return h, h.launch(result)
		}
		return h, cmd

	case dialogSend:
		switch msg.Type {
		case tea.KeyEsc:
			h.dialog = dialogNone
			h.sendInput.Reset()
			return h, nil
		case tea.KeyEnter:
			text := h.sendInput.Value()
			target := h.sendTarget
			h.dialog = dialogNone
			h.sendInput.Reset()
			if text == "" {
				return h, nil
			}
			return h, h.sendText(target, text)
		}
		var cmd tea.Cmd
		h.sendInput, cmd = h.sendInput.Update(msg)
		return h, cmd

	case dialogHelp:
		h.dialog = dialogNone
		return h, nil

	case dialogSetup:
		switch msg.String() {
		case "y", "Y":
			if err := installCommandPack(); err != nil {
				h.errMsg = "command install failed: " + err.Error()
			} else {
				h.banner = "Claude commands installed"
			}
		case "n", "N", "esc":
		default:
			return h, nil
		}
		// Either answer counts as prompted; never ask again.
		h.cfg.HooksInstalled = true
		if err := config.Save(h.cfg); err != nil {
			uiLog.Warn("config_save_failed", slog.Any("error", err))
		}
		h.dialog = dialogNone
		return h, nil
	}

	if h.filtering {
		switch msg.Type {
		case tea.KeyEsc:
			h.filtering = false
			h.filter.Reset()
			h.taskCursor = 0
			return h, nil
		case tea.KeyEnter:
			h.filtering = false
			return h, nil
		}
		var cmd tea.Cmd
		h.filter, cmd = h.filter.Update(msg)
		h.taskCursor = 0
		return h, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return h, tea.Quit
	case "?":
		h.dialog = dialogHelp
	case "tab":
		if h.view == viewSessions {
			h.view = viewTasks
		} else {
			h.view = viewSessions
		}
	case "r":
		return h, tea.Batch(h.loadSessions(), h.loadTasks())
	case "s":
		h.cycleStatusStyle()
	case "up", "k":
		h.moveCursor(-1)
	case "down", "j":
		h.moveCursor(1)
	case "n":
		h.openNewDialog("")
	case "/":
		if h.view == viewTasks {
			h.filtering = true
			h.filter.Focus()
		}
	case "x", "d":
		if name, ok := h.selectedSession(); ok && h.view == viewSessions {
			h.confirmTarget = name
			h.dialog = dialogConfirmKill
		}
	case "i":
		if name, ok := h.selectedSession(); ok && h.view == viewSessions {
			h.sendTarget = name
			h.sendInput.Reset()
			h.sendInput.Focus()
			h.dialog = dialogSend
		}
	case "shift+tab":
		if name, ok := h.selectedSession(); ok && h.view == viewSessions {
			return h, h.cycleAgentMode(name)
		}
	case "enter":
		if h.view == viewSessions {
			if name, ok := h.selectedSession(); ok {
				h.attachTarget = name
				return h, tea.Quit
			}
		} else if t, ok := h.selectedTask(); ok {
			h.openNewDialog(t.Title)
		}
	}
	return h, nil
}

func (h *Home) openNewDialog(taskLabel string) {
	d := NewNewDialog(h.cfg.DefaultAgent)
	if taskLabel != "" {
		d.inputs[fieldTask].SetValue(taskLabel)
		d.inputs[fieldName].SetValue(task.Slug(taskLabel))
	}
	h.newDialog = d
	h.dialog = dialogNew
}

var statusStyles = []string{"unicode", "emoji", "text"}

func (h *Home) cycleStatusStyle() {
	next := 0
	for i, s := range statusStyles {
		if s == h.cfg.StatusStyle {
			next = (i + 1) % len(statusStyles)
			break
		}
	}
	h.cfg.StatusStyle = statusStyles[next]
	if err := config.Save(h.cfg); err != nil {
		uiLog.Warn("config_save_failed", slog.Any("error", err))
	}
}

func installCommandPack() error {
	dir, err := session.DefaultCommandsDir()
	if err != nil {
		return err
	}
	return session.InstallCommandPack(dir)
}

func (h *Home) moveCursor(delta int) {
	if h.view == viewSessions {
		if n := len(h.sessions); n > 0 {
			h.cursor = (h.cursor + delta + n) % n
		}
		return
	}
	if n := len(h.visibleTasks()); n > 0 {
		h.taskCursor = (h.taskCursor + delta + n) % n
	}
}

func (h *Home) selectedSession() (string, bool) {
	if h.cursor < 0 || h.cursor >= len(h.sessions) {
		return "", false
	}
	return h.sessions[h.cursor].Name, true
}

func (h *Home) selectedTask() (task.Task, bool) {
	visible := h.visibleTasks()
	if h.taskCursor < 0 || h.taskCursor >= len(visible) {
		return task.Task{}, false
	}
	return visible[h.taskCursor], true
}

func (h *Home) visibleTasks() []task.Task {
	query := strings.TrimSpace(h.filter.Value())
	if query == "" {
		return h.tasks
	}
	return task.Filter(h.tasks, query)
}

// launch creates the session, first materializing a task file for the
// named work when one does not exist yet.
func (h *Home) launch(result *NewDialogResult) tea.Cmd {
	mgr := h.mgr
	tasksDir := h.cfg.TasksDir
	return func() tea.Msg {
		if result.Opts.Task != "" {
			if _, err := task.Create(tasksDir, result.Opts.Task, "", result.Due); err != nil {
				// An existing file for the same work is the normal case
				// when launching from the tasks view.
				uiLog.Debug("task_file_create_skipped", slog.Any("error", err))
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		name, err := mgr.Create(ctx, result.Opts)
		return sessionCreatedMsg{name: name, err: err}
	}
}

func (h *Home) killSession(name string) tea.Cmd {
	mgr := h.mgr
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return sessionKilledMsg{name: name, err: mgr.Kill(ctx, name)}
	}
}

// cycleAgentMode forwards Shift+Tab to the agent's pane. Claude binds
// it to its permission mode cycle (plan, standard, auto-accept).
func (h *Home) cycleAgentMode(name string) tea.Cmd {
	tm := h.tm
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return keySentMsg{name: name, err: tm.SendKey(ctx, name, "BTab")}
	}
}

// applyThemeChange follows an OS theme switch. Explicit dark or light
// settings win over the OS.
func (h *Home) applyThemeChange(isDark bool) {
	if h.cfg.Theme == "dark" || h.cfg.Theme == "light" {
		return
	}
	if isDark {
		InitTheme("dark")
	} else {
		InitTheme("light")
	}
}

func (h *Home) sendText(name, text string) tea.Cmd {
	tm := h.tm
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return inputSentMsg{name: name, err: tm.SendText(ctx, name, text)}
	}
}

func (h *Home) View() string {
	var b strings.Builder
	b.WriteString(h.headerView())
	b.WriteString("\n")

	if h.errMsg != "" {
		b.WriteString(errStyle.Render(truncate(h.errMsg, h.contentWidth())))
		b.WriteString("\n")
	}

	switch h.view {
	case viewSessions:
		b.WriteString(h.sessionsView())
	case viewTasks:
		b.WriteString(h.tasksView())
	}

	b.WriteString("\n")
	b.WriteString(h.footerView())
	base := b.String()

	switch h.dialog {
	case dialogConfirmKill:
		return h.overlay(h.confirmView())
	case dialogNew:
		return h.overlay(h.newDialog.View())
	case dialogSend:
		return h.overlay(h.sendView())
	case dialogHelp:
		return h.overlay(h.helpView())
	case dialogSetup:
		return h.overlay(h.setupView())
	}
	return base
}

func (h *Home) overlay(content string) string {
	if h.width == 0 || h.height == 0 {
		return content
	}
	return centerOverlay(h.width, h.height, content)
}

func (h *Home) contentWidth() int {
	if h.width == 0 {
		return 80
	}
	return h.width
}

func (h *Home) headerView() string {
	title := titleStyle.Render("Swarm")
	ver := versionStyle.Render(h.version)
	parts := []string{title, ver}
	if h.banner != "" {
		parts = append(parts, bannerStyle.Render(h.banner))
	}
	counts := dimStyle.Render(fmt.Sprintf("%d sessions / %d tasks", len(h.sessions), len(h.tasks)))
	parts = append(parts, counts)
	return strings.Join(parts, "  ")
}

func (h *Home) sessionsView() string {
	if len(h.sessions) == 0 {
		return dimStyle.Render("No agent sessions. Press n to launch one.") + "\n"
	}
	var b strings.Builder
	width := h.contentWidth()
	for i, s := range h.sessions {
		row := h.sessionRow(s)
		row = truncate(row, width-2)
		if i == h.cursor {
			row = selectedRowStyle.Render("> " + row)
		} else {
			row = "  " + row
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
	b.WriteString(h.previewView())
	return b.String()
}

func (h *Home) sessionRow(s session.AgentSession) string {
	name := strings.TrimPrefix(s.Name, tmux.SessionPrefix)
	cols := []string{
		statusIndicator(s.Status, h.cfg.StatusStyle),
		runewidth.FillRight(truncate(name, 24), 24),
		agentStyle.Render(runewidth.FillRight(truncate(s.Agent, 10), 10)),
		dimStyle.Render(runewidth.FillRight(formatAge(s), 8)),
	}
	if s.Yolo {
		cols = append(cols, yoloStyle.Render("yolo"))
	}
	if s.Degraded {
		cols = append(cols, errStyle.Render("no-log"))
	}
	if s.Task != "" {
		cols = append(cols, taskStyle.Render(truncate(s.Task, 40)))
	}
	return strings.Join(cols, " ")
}

func (h *Home) previewView() string {
	name, ok := h.selectedSession()
	if !ok {
		return ""
	}
	content := h.preview
	if h.previewName != name || content == "" {
		// live capture not in yet, show the tailed log instead
		content = strings.Join(h.sessions[h.cursor].Preview, "\n")
	}
	if content == "" {
		return ""
	}
	lines := cleanPreview(strings.Split(strings.TrimRight(content, "\n"), "\n"))
	if len(lines) > previewPaneLines {
		lines = lines[len(lines)-previewPaneLines:]
	}
	width := h.contentWidth() - 4
	for i := range lines {
		lines[i] = truncate(lines[i], width)
	}
	return "\n" + previewBorderStyle.Width(width+2).Render(strings.Join(lines, "\n")) + "\n"
}

func (h *Home) tasksView() string {
	var b strings.Builder
	if h.filtering || h.filter.Value() != "" {
		b.WriteString(dimStyle.Render("filter: "))
		b.WriteString(h.filter.View())
		b.WriteString("\n")
	}
	visible := h.visibleTasks()
	if len(visible) == 0 {
		b.WriteString(dimStyle.Render("No open tasks in " + h.cfg.TasksDir))
		b.WriteString("\n")
		return b.String()
	}
	now := time.Now()
	for i, t := range visible {
		row := h.taskRow(t, now)
		row = truncate(row, h.contentWidth()-2)
		if i == h.taskCursor && !h.filtering {
			row = selectedRowStyle.Render("> " + row)
		} else {
			row = "  " + row
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
	return b.String()
}

func (h *Home) taskRow(t task.Task, now time.Time) string {
	cols := []string{runewidth.FillRight(truncate(t.Title, 48), 48)}
	if t.HasDue {
		label := task.FormatDue(t.Due, now)
		style := dueStyle
		if strings.HasPrefix(label, "overdue") {
			style = dueOverdueStyle
		}
		cols = append(cols, style.Render(label))
	}
	if t.Summary != "" {
		cols = append(cols, dimStyle.Render(truncate(t.Summary, 50)))
	}
	return strings.Join(cols, "  ")
}

func (h *Home) footerView() string {
	hint := func(key, action string) string {
		return footerKeyStyle.Render(key) + footerStyle.Render(" "+action)
	}
	var hints []string
	if h.view == viewSessions {
		hints = []string{
			hint("enter", "attach"), hint("n", "new"), hint("i", "input"),
			hint("x", "kill"), hint("tab", "tasks"),
		}
	} else {
		hints = []string{
			hint("enter", "start"), hint("/", "filter"), hint("tab", "sessions"),
		}
	}
	hints = append(hints, hint("?", "help"), hint("q", "quit"))
	return strings.Join(hints, footerStyle.Render("  "))
}

func (h *Home) confirmView() string {
	name := strings.TrimPrefix(h.confirmTarget, tmux.SessionPrefix)
	body := titleStyle.Render("Kill session") + "\n\n" +
		"Kill " + errStyle.Render(name) + " and remove its logs?\n\n" +
		footerStyle.Render("y confirm  n cancel")
	return dialogStyle.Render(body)
}

func (h *Home) sendView() string {
	name := strings.TrimPrefix(h.sendTarget, tmux.SessionPrefix)
	body := titleStyle.Render("Send input to "+name) + "\n\n" +
		h.sendInput.View() + "\n\n" +
		footerStyle.Render("enter send  esc cancel")
	return dialogStyle.Render(body)
}

func (h *Home) setupView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Welcome to Swarm"))
	b.WriteString("\n\n")
	b.WriteString("Swarm ships Claude commands that let agents report\n")
	b.WriteString("their own state back to this dashboard:\n\n")
	rows := [][2]string{
		{"/done", "finish up and mark the session done"},
		{"/needs-input", "flag the session as blocked on you"},
		{"/log", "append progress to the task file"},
	}
	for _, r := range rows {
		b.WriteString("  ")
		b.WriteString(footerKeyStyle.Render(runewidth.FillRight(r[0], 14)))
		b.WriteString(footerStyle.Render(r[1]))
		b.WriteString("\n")
	}
	b.WriteString("\nInstall them to ~/.claude/commands?\n\n")
	b.WriteString(footerStyle.Render("y install  n skip"))
	return dialogStyle.Render(b.String())
}

func (h *Home) helpView() string {
	rows := [][2]string{
		{"enter", "attach to session / start task"},
		{"n", "new agent session"},
		{"i", "send input to session"},
		{"shift+tab", "cycle agent permission mode"},
		{"x", "kill session"},
		{"tab", "switch sessions/tasks"},
		{"/", "filter tasks"},
		{"s", "cycle status style"},
		{"r", "refresh now"},
		{"j/k", "move"},
		{"q", "quit"},
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Keys"))
	b.WriteString("\n\n")
	for _, r := range rows {
		b.WriteString(footerKeyStyle.Render(runewidth.FillRight(r[0], 11)))
		b.WriteString(footerStyle.Render(r[1]))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("any key to close"))
	return dialogStyle.Render(b.String())
}

// cleanPreview collapses runs of blank or separator-only lines so the
// preview pane spends its rows on content.
func cleanPreview(lines []string) []string {
	out := make([]string, 0, len(lines))
	prevFiller := false
	for _, line := range lines {
		filler := isFillerLine(line)
		if filler && prevFiller {
			continue
		}
		out = append(out, line)
		prevFiller = filler
	}
	return out
}

func isFillerLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	for _, r := range trimmed {
		switch r {
		case '─', '━', '═', '-', '=', '_', '·', '╌':
		default:
			return false
		}
	}
	return true
}

func formatAge(s session.AgentSession) string {
	if !s.HasAge {
		return "-"
	}
	d := s.Age
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
