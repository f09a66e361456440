package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/swarmhq/swarm/internal/config"
	"github.com/swarmhq/swarm/internal/logging"
	"github.com/swarmhq/swarm/internal/notify"
	"github.com/swarmhq/swarm/internal/platform"
	"github.com/swarmhq/swarm/internal/session"
	"github.com/swarmhq/swarm/internal/task"
	"github.com/swarmhq/swarm/internal/tmux"
	"github.com/swarmhq/swarm/internal/ui"
	"github.com/swarmhq/swarm/internal/update"
)

const Version = "0.5.0"

func init() {
	initColorProfile()
}

// initColorProfile picks the lipgloss color profile. SWARM_COLOR
// overrides detection: truecolor, 256, 16, none.
func initColorProfile() {
	switch strings.ToLower(os.Getenv("SWARM_COLOR")) {
	case "truecolor", "true", "24bit":
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	case "256", "ansi256":
		lipgloss.SetColorProfile(termenv.ANSI256)
		return
	case "16", "ansi", "basic":
		lipgloss.SetColorProfile(termenv.ANSI)
		return
	case "none", "off", "ascii":
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	colorTerm := os.Getenv("COLORTERM")
	if colorTerm == "truecolor" || colorTerm == "24bit" {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}
	termName := os.Getenv("TERM")
	for _, t := range []string{"xterm-256color", "screen-256color", "tmux-256color", "alacritty", "kitty", "wezterm"} {
		if strings.Contains(termName, t) {
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		}
	}
	lipgloss.SetColorProfile(termenv.ANSI256)
}

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "version", "--version", "-v":
			fmt.Printf("swarm v%s\n", Version)
			return
		case "help", "--help", "-h":
			printHelp()
			return
		case "status":
			handleStatus(args[1:])
			return
		case "new":
			handleNew(args[1:])
			return
		case "kill":
			handleKill(args[1:])
			return
		case "task":
			handleTask(args[1:])
			return
		case "update":
			handleUpdate()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
			printHelp()
			os.Exit(1)
		}
	}
	runTUI()
}

// env is the wired-up runtime every verb shares.
type env struct {
	cfg      *config.Config
	swarmDir string
	tm       *tmux.Tmux
	mgr      *session.Manager
}

func bootstrap() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("creating state directories: %w", err)
	}
	swarmDir, err := config.SwarmDir()
	if err != nil {
		return nil, err
	}

	initLogging(cfg, swarmDir)

	bin, err := tmux.Probe()
	if err != nil {
		return nil, fmt.Errorf("tmux not found. Install it with your package manager (brew install tmux / apt install tmux): %w", err)
	}
	tm := tmux.New(bin)

	sessionsDir, err := cfg.SessionsDir()
	if err != nil {
		return nil, err
	}
	det := session.NewDetectionConfig(
		cfg.Detection.ExtraPromptPatterns,
		time.Duration(cfg.Detection.RunningThresholdSecs)*time.Second,
		time.Duration(cfg.Detection.IdleThresholdSecs)*time.Second,
	)
	mgr := session.NewManager(tm, session.NewStore(sessionsDir), det, cfg.LogsDir, cfg.DefaultAgent, cfg.AllowedTools,
		session.WorktreeConfig{Dir: cfg.WorktreeDir, BranchPrefix: cfg.BranchPrefix})

	return &env{cfg: cfg, swarmDir: swarmDir, tm: tm, mgr: mgr}, nil
}

// initLogging routes debug logs to <swarm dir>/debug.log. Without
// SWARM_DEBUG the TUI would fight stderr output, so logs only go to the
// file.
func initLogging(cfg *config.Config, swarmDir string) {
	logging.Init(logging.Config{
		LogDir:     swarmDir,
		Level:      cfg.Logs.DebugLevel,
		Format:     cfg.Logs.DebugFormat,
		MaxSizeMB:  cfg.Logs.DebugMaxMB,
		MaxBackups: cfg.Logs.DebugBackups,
		Compress:   true,
		Debug:      os.Getenv("SWARM_DEBUG") != "",
	})
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runTUI() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "swarm needs a terminal. Use 'swarm status' for machine-readable output.")
		os.Exit(1)
	}

	e, err := bootstrap()
	if err != nil {
		fatal(err)
	}
	defer logging.Shutdown()

	if warning := platform.CheckFsnotifySupport(e.cfg.TasksDir); warning != "" {
		fmt.Fprintln(os.Stderr, warning)
	}

	ui.InitTheme(ui.ResolveTheme(e.cfg.Theme))
	var themes *ui.ThemeWatcher
	if e.cfg.Theme == "system" {
		if themes = ui.NewThemeWatcher(context.Background()); themes != nil {
			defer themes.Close()
		}
	}

	var watcher *ui.TasksWatcher
	if w, err := ui.NewTasksWatcher(e.cfg.TasksDir); err == nil {
		watcher = w
		defer w.Close()
	}

	updateCh := update.MaybeCheckAsync(e.swarmDir, Version, false)

	desktop := notify.New(
		e.cfg.Notifications.GetEnabled(),
		e.cfg.Notifications.NeedsInputSound,
		e.cfg.Notifications.DoneSound,
	)
	notifier := session.NewNotifier(desktop.Alert)

	home := ui.NewHome(e.cfg, e.tm, e.mgr, notifier, watcher, themes, updateCh, Version)
	p := tea.NewProgram(home, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fatal(err)
	}

	if target := home.AttachTarget(); target != "" {
		attach(e.tm, target)
	}
}

// attach replaces this process with a tmux client on the session. When
// already inside tmux, switch the current client instead of nesting.
func attach(tm *tmux.Tmux, name string) {
	// The session can die between quitting the dashboard and the exec.
	if !tm.HasSession(context.Background(), name) {
		fatal(fmt.Errorf("session %s is gone", name))
	}
	argv := attachArgv(tm, name, os.Getenv("TMUX") != "")
	if err := syscall.Exec(argv[0], argv, os.Environ()); err != nil {
		fatal(fmt.Errorf("attaching to %s: %w", name, err))
	}
}

func attachArgv(tm *tmux.Tmux, name string, insideTmux bool) []string {
	argv := tm.AttachCommand(name)
	if insideTmux {
		return []string{argv[0], "switch-client", "-t", name}
	}
	return argv
}

// statusEntry is the JSON shape of one session in `swarm status`.
type statusEntry struct {
	Name     string `json:"name"`
	Agent    string `json:"agent"`
	Task     string `json:"task,omitempty"`
	Status   string `json:"status"`
	AgeSecs  *int   `json:"age_secs,omitempty"`
	WorkDir  string `json:"work_dir,omitempty"`
	Yolo     bool   `json:"yolo,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
}

func handleStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Parse(args)

	e, err := bootstrap()
	if err != nil {
		fatal(err)
	}
	defer logging.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sessions, err := e.mgr.Collect(ctx)
	if err != nil {
		fatal(err)
	}

	entries := make([]statusEntry, 0, len(sessions))
	for _, s := range sessions {
		entry := statusEntry{
			Name:     strings.TrimPrefix(s.Name, tmux.SessionPrefix),
			Agent:    s.Agent,
			Task:     s.Task,
			Status:   string(s.Status),
			WorkDir:  s.WorkDir,
			Yolo:     s.Yolo,
			Degraded: s.Degraded,
		}
		if s.HasAge {
			secs := int(s.Age.Seconds())
			entry.AgeSecs = &secs
		}
		entries = append(entries, entry)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		fatal(err)
	}
}

func handleNew(args []string) {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	agent := fs.String("agent", "", "agent to launch (default from config)")
	repo := fs.String("repo", "", "working directory for the session")
	taskLabel := fs.String("task", "", "task label recorded with the session")
	prompt := fs.String("prompt", "", "initial prompt to send to the agent")
	yolo := fs.Bool("yolo", false, "skip agent permission prompts")
	worktree := fs.Bool("worktree", false, "check out a fresh branch in a git worktree and run there")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: swarm new [flags] <name>")
		fs.PrintDefaults()
		os.Exit(1)
	}

	e, err := bootstrap()
	if err != nil {
		fatal(err)
	}
	defer logging.Shutdown()

	// Worktree mode fetches before checking out; give it room.
	timeout := 30 * time.Second
	if *worktree {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	name, err := e.mgr.Create(ctx, session.CreateOptions{
		Name:     fs.Arg(0),
		Dir:      *repo,
		Agent:    *agent,
		Task:     *taskLabel,
		Prompt:   *prompt,
		Yolo:     *yolo,
		Worktree: *worktree,
	})
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Created %s. Attach with: tmux attach -t %s\n", name, name)
}

func handleKill(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: swarm kill <name>")
		os.Exit(1)
	}

	e, err := bootstrap()
	if err != nil {
		fatal(err)
	}
	defer logging.Shutdown()

	name := normalizeSessionName(args[0])

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.mgr.Kill(ctx, name); err != nil {
		fatal(err)
	}
	fmt.Printf("Killed %s\n", name)
}

func handleTask(args []string) {
	fs := flag.NewFlagSet("task", flag.ExitOnError)
	due := fs.String("due", "", "due date (YYYY-MM-DD)")
	summary := fs.String("summary", "", "one-line summary")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: swarm task [flags] <title>")
		fs.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		fatal(err)
	}

	var dueDate time.Time
	if *due != "" {
		dueDate, err = time.Parse("2006-01-02", *due)
		if err != nil {
			fatal(fmt.Errorf("invalid due date %q, want YYYY-MM-DD", *due))
		}
	}

	path, err := task.Create(cfg.TasksDir, fs.Arg(0), *summary, dueDate)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Created %s\n", path)
}

// normalizeSessionName accepts names with or without the managed
// prefix.
func normalizeSessionName(name string) string {
	if strings.HasPrefix(name, tmux.SessionPrefix) {
		return name
	}
	return tmux.SessionPrefix + name
}

func handleUpdate() {
	fmt.Printf("Current version: v%s\nChecking for updates...\n", Version)

	info, err := update.CheckForUpdate(Version)
	if err != nil {
		fatal(fmt.Errorf("checking for updates: %w", err))
	}
	if !info.Available {
		fmt.Println("Already up to date.")
		return
	}

	fmt.Printf("Updating to v%s...\n", info.LatestVersion)
	if err := update.PerformUpdate(info.DownloadURL); err != nil {
		fatal(fmt.Errorf("installing update: %w", err))
	}
	fmt.Printf("Updated to v%s. Restart swarm to use it.\n", info.LatestVersion)
}

func printHelp() {
	fmt.Printf("swarm v%s\n", Version)
	fmt.Println("Session monitor for a fleet of AI coding agents in tmux")
	fmt.Println()
	fmt.Println("Usage: swarm [command]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  (none)           Open the dashboard")
	fmt.Println("  status           Print all sessions as JSON")
	fmt.Println("  new <name>       Launch an agent session")
	fmt.Println("                   (-agent, -repo, -task, -prompt, -yolo, -worktree)")
	fmt.Println("  kill <name>      Kill a session and clean up its logs")
	fmt.Println("  task <title>     Add a task file (-due, -summary)")
	fmt.Println("  update           Check for and install updates")
	fmt.Println("  version          Show version")
	fmt.Println("  help             Show this help")
}
