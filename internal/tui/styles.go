// Package tui implements spec.md's supplemented live dashboard: a
// bubbletea program rendering state-machine progress and race-burst
// timing as a workflow executes. Grounded on internal/tui/styles.go and
// dashboard.go's neon color palette and box layout; the huh-based setup
// wizard (setup.go) is dropped since configuration now always loads from
// a YAML file argument rather than an interactive form (SPEC_FULL.md
// §6).
package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#00FFFF")
	secondaryColor = lipgloss.Color("#FF6B9D")
	accentColor    = lipgloss.Color("#00FF88")
	orangeColor    = lipgloss.Color("#FFA500")
	purpleColor    = lipgloss.Color("#C084FC")
	yellowColor    = lipgloss.Color("#FFD700")
	subColor       = lipgloss.Color("241")

	successText = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF88"))
	warnText    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	errText     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444"))
	infoText    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF"))

	headerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	dashBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	targetStyle  = lipgloss.NewStyle().Foreground(secondaryColor).Bold(true)
	metaStyle    = lipgloss.NewStyle().Foreground(subColor)
	dividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))

	sparklineStyle = lipgloss.NewStyle().Foreground(accentColor)
)

const asciiLogo = `⚡ RACEFORGE`

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func spinnerFrame(tick int) string {
	return spinnerFrames[tick%len(spinnerFrames)]
}
