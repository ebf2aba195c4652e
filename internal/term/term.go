// Package term provides terminal styles and TTY detection.
//
// Styles are package-level variables because multiple packages (logging,
// display) need them for output formatting. [Configure] sets them once
// during startup; when colors are disabled every style renders plain text.
package term

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/backmassage/m8prep/internal/config"
)

// Palette.
var (
	ColorInfo    = lipgloss.Color("#64b5f6")
	ColorSuccess = lipgloss.Color("#66bb6a")
	ColorWarn    = lipgloss.Color("#fff59d")
	ColorError   = lipgloss.Color("#ef5350")
	ColorDebug   = lipgloss.Color("#4dd0e1")
	ColorMuted   = lipgloss.Color("#888888")
)

// Styles. Plain until [Configure] enables colors.
var (
	Info    = lipgloss.NewStyle()
	Success = lipgloss.NewStyle()
	Warn    = lipgloss.NewStyle()
	Error   = lipgloss.NewStyle()
	Debug   = lipgloss.NewStyle()
	Muted   = lipgloss.NewStyle()
	Header  = lipgloss.NewStyle()
)

var enabled bool

// Configure resolves the color mode and rebuilds the package-level styles.
// Call once during startup (from [logging.NewLogger]).
func Configure(mode config.ColorMode) {
	enabled = resolve(mode)

	r := lipgloss.NewRenderer(os.Stdout)
	if !enabled {
		plain := r.NewStyle()
		Info, Success, Warn, Error, Debug, Muted, Header = plain, plain, plain, plain, plain, plain, plain
		return
	}
	if r.ColorProfile() == termenv.Ascii {
		// Forced on (--color=always) while stdout is not a terminal.
		r.SetColorProfile(termenv.ANSI256)
	}
	Info = r.NewStyle().Foreground(ColorInfo).Bold(true)
	Success = r.NewStyle().Foreground(ColorSuccess).Bold(true)
	Warn = r.NewStyle().Foreground(ColorWarn).Bold(true)
	Error = r.NewStyle().Foreground(ColorError).Bold(true)
	Debug = r.NewStyle().Foreground(ColorDebug)
	Muted = r.NewStyle().Foreground(ColorMuted)
	Header = r.NewStyle().Foreground(ColorInfo).Bold(true)
}

// Enabled reports whether colors are currently active.
func Enabled() bool { return enabled }

// resolve determines whether colors should be enabled based on the configured
// mode, TTY detection, and the NO_COLOR env var (https://no-color.org).
func resolve(mode config.ColorMode) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default: // ColorAuto
		return IsTerminal(os.Stdout) &&
			os.Getenv("NO_COLOR") == "" &&
			strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
}

// IsTerminal reports whether f is attached to a TTY.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
