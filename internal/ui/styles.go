package ui

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
	dark "github.com/thiagokokada/dark-mode-go"

	"github.com/swarmhq/swarm/internal/session"
)

type palette struct {
	Bg, Surface, Border, Text, TextDim  lipgloss.Color
	Accent, Purple, Cyan, Green, Yellow lipgloss.Color
	Orange, Red                         lipgloss.Color
}

// Tokyo Night
var darkPalette = palette{
	Bg:      lipgloss.Color("#1a1b26"),
	Surface: lipgloss.Color("#24283b"),
	Border:  lipgloss.Color("#414868"),
	Text:    lipgloss.Color("#c0caf5"),
	TextDim: lipgloss.Color("#787fa0"),
	Accent:  lipgloss.Color("#7aa2f7"),
	Purple:  lipgloss.Color("#bb9af7"),
	Cyan:    lipgloss.Color("#7dcfff"),
	Green:   lipgloss.Color("#9ece6a"),
	Yellow:  lipgloss.Color("#e0af68"),
	Orange:  lipgloss.Color("#ff9e64"),
	Red:     lipgloss.Color("#f7768e"),
}

// Tokyo Night Light
var lightPalette = palette{
	Bg:      lipgloss.Color("#d5d6db"),
	Surface: lipgloss.Color("#e9e9ec"),
	Border:  lipgloss.Color("#9699a3"),
	Text:    lipgloss.Color("#343b58"),
	TextDim: lipgloss.Color("#6a6d7c"),
	Accent:  lipgloss.Color("#34548a"),
	Purple:  lipgloss.Color("#7847bd"),
	Cyan:    lipgloss.Color("#166775"),
	Green:   lipgloss.Color("#485e30"),
	Yellow:  lipgloss.Color("#8f5e15"),
	Orange:  lipgloss.Color("#965027"),
	Red:     lipgloss.Color("#8c4351"),
}

// Active colors, set by InitTheme.
var (
	ColorBg      lipgloss.Color
	ColorSurface lipgloss.Color
	ColorBorder  lipgloss.Color
	ColorText    lipgloss.Color
	ColorTextDim lipgloss.Color
	ColorAccent  lipgloss.Color
	ColorPurple  lipgloss.Color
	ColorCyan    lipgloss.Color
	ColorGreen   lipgloss.Color
	ColorYellow  lipgloss.Color
	ColorOrange  lipgloss.Color
	ColorRed     lipgloss.Color
)

var (
	titleStyle         lipgloss.Style
	versionStyle       lipgloss.Style
	bannerStyle        lipgloss.Style
	selectedRowStyle   lipgloss.Style
	dimStyle           lipgloss.Style
	taskStyle          lipgloss.Style
	agentStyle         lipgloss.Style
	yoloStyle          lipgloss.Style
	errStyle           lipgloss.Style
	previewBorderStyle lipgloss.Style
	dialogStyle        lipgloss.Style
	footerStyle        lipgloss.Style
	footerKeyStyle     lipgloss.Style
	dueStyle           lipgloss.Style
	dueOverdueStyle    lipgloss.Style
)

var statusColors map[session.Status]lipgloss.Color

// themeMu guards the color and style variables during a live theme
// switch.
var themeMu sync.Mutex

// ResolveTheme maps a configured theme preference to "dark" or
// "light". "system" asks the OS; detection failure means dark.
func ResolveTheme(pref string) string {
	switch pref {
	case "dark", "light":
		return pref
	}
	isDark, err := dark.IsDarkMode()
	if err != nil {
		return "dark"
	}
	if isDark {
		return "dark"
	}
	return "light"
}

// InitTheme activates a palette and rebuilds every style from it. Must
// run before the first render; safe to run again on a live switch.
func InitTheme(theme string) {
	themeMu.Lock()
	defer themeMu.Unlock()

	p := darkPalette
	if theme == "light" {
		p = lightPalette
	}
	ColorBg = p.Bg
	ColorSurface = p.Surface
	ColorBorder = p.Border
	ColorText = p.Text
	ColorTextDim = p.TextDim
	ColorAccent = p.Accent
	ColorPurple = p.Purple
	ColorCyan = p.Cyan
	ColorGreen = p.Green
	ColorYellow = p.Yellow
	ColorOrange = p.Orange
	ColorRed = p.Red

	initStyles()
}

func initStyles() {
	titleStyle = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)

	versionStyle = lipgloss.NewStyle().
		Foreground(ColorTextDim)

	bannerStyle = lipgloss.NewStyle().
		Foreground(ColorGreen).
		Bold(true)

	selectedRowStyle = lipgloss.NewStyle().
		Background(ColorSurface).
		Bold(true)

	dimStyle = lipgloss.NewStyle().
		Foreground(ColorTextDim)

	taskStyle = lipgloss.NewStyle().
		Foreground(ColorCyan)

	agentStyle = lipgloss.NewStyle().
		Foreground(ColorPurple)

	yoloStyle = lipgloss.NewStyle().
		Foreground(ColorOrange).
		Bold(true)

	errStyle = lipgloss.NewStyle().
		Foreground(ColorRed)

	previewBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)

	dialogStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
		Foreground(ColorTextDim)

	footerKeyStyle = lipgloss.NewStyle().
		Foreground(ColorCyan)

	dueStyle = lipgloss.NewStyle().Foreground(ColorYellow)
	dueOverdueStyle = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)

	statusColors = map[session.Status]lipgloss.Color{
		session.StatusNeedsInput: ColorRed,
		session.StatusRunning:    ColorGreen,
		session.StatusIdle:       ColorYellow,
		session.StatusDone:       ColorCyan,
		session.StatusUnknown:    ColorTextDim,
	}
}

func init() {
	InitTheme("dark")
}

var statusTextLabels = map[session.Status]string{
	session.StatusNeedsInput: "INPUT",
	session.StatusRunning:    " RUN ",
	session.StatusIdle:       "IDLE ",
	session.StatusDone:       "DONE ",
	session.StatusUnknown:    "  ?  ",
}

// statusIndicator renders a session status in the configured style:
// "unicode" (colored dot), "emoji", or "text".
func statusIndicator(st session.Status, style string) string {
	switch style {
	case "emoji":
		switch st {
		case session.StatusNeedsInput:
			return "🔴"
		case session.StatusRunning:
			return "🟢"
		case session.StatusIdle:
			return "🟡"
		case session.StatusDone:
			return "✅"
		default:
			return "⚪"
		}
	case "text":
		return lipgloss.NewStyle().Foreground(statusColors[st]).Render("[" + statusTextLabels[st] + "]")
	default:
		return lipgloss.NewStyle().Foreground(statusColors[st]).Render("●")
	}
}
