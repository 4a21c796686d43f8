package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"raceforge/internal/models"
)

// Model is the live-dashboard bubbletea program. It renders the
// currently executing state, the most recent race burst (if any), and a
// rolling history of finished states, fed entirely by Bridge events so
// the orchestrator never imports this package.
type Model struct {
	bridge       *Bridge
	workflowName string
	target       string
	totalStates  int

	start     time.Time
	tick      int
	current   string
	iteration int

	history  []models.StateExecution
	liveRace *raceBurstMsg
	progress progress.Model

	trace    *models.Trace
	finished bool
	quitting bool
}

// NewModel builds the dashboard. totalStates is the distinct state count
// in the loaded workflow, used only to scale the progress bar — loops
// can make a run visit fewer or more states than that count, so the bar
// is an approximation, not a completion guarantee.
func NewModel(bridge *Bridge, workflowName, target string, totalStates int) Model {
	return Model{
		bridge:       bridge,
		workflowName: workflowName,
		target:       target,
		totalStates:  totalStates,
		start:        time.Now(),
		progress:     progress.New(progress.WithScaledGradient("#00FFFF", "#FF6B9D"), progress.WithoutPercentage()),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.bridge.Listen(), tickCmd())
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
	case tickMsg:
		m.tick++
		return m, tickCmd()
	case stateStartedMsg:
		m.current = msg.name
		m.iteration = msg.iteration
		m.liveRace = nil
		return m, m.bridge.Listen()
	case stateFinishedMsg:
		m.history = append(m.history, msg.exec)
		return m, m.bridge.Listen()
	case raceBurstMsg:
		m.liveRace = &msg
		return m, m.bridge.Listen()
	case runDoneMsg:
		m.finished = true
		m.trace = msg.trace
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return "exiting...\n"
	}
	if m.finished {
		return FinalView(m.workflowName, m.trace)
	}

	var s strings.Builder

	logo := lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render(asciiLogo)
	s.WriteString(headerBoxStyle.Render(logo))
	s.WriteString("\n\n")

	elapsed := time.Since(m.start).Round(time.Second)
	s.WriteString(fmt.Sprintf("%s  %s  %s\n",
		targetStyle.Render(m.workflowName),
		metaStyle.Render("@ "+m.target),
		metaStyle.Render("elapsed "+elapsed.String())))
	s.WriteString(dividerStyle.Render(strings.Repeat("━", 70)) + "\n\n")

	if m.current != "" {
		s.WriteString(fmt.Sprintf("%s %s %s\n\n",
			lipgloss.NewStyle().Foreground(accentColor).Render(spinnerFrame(m.tick)),
			infoText.Bold(true).Render("state: "+m.current),
			metaStyle.Render(fmt.Sprintf("(iteration %d)", m.iteration))))
	}

	if m.totalStates > 0 {
		pct := float64(len(m.history)) / float64(m.totalStates)
		if pct > 1.0 {
			pct = 1.0
		}
		s.WriteString(m.progress.ViewAs(pct))
		s.WriteString("\n\n")
	}

	if m.liveRace != nil {
		s.WriteString(renderRaceBox(m.liveRace.summary))
		s.WriteString("\n")
	}

	s.WriteString(renderHistory(m.history))

	return s.String()
}

func renderRaceBox(summary *models.RaceBurstSummary) string {
	content := fmt.Sprintf("%s\n%s %d  %s %dns\n%s",
		lipgloss.NewStyle().Foreground(purpleColor).Bold(true).Render("race burst"),
		metaStyle.Render("workers:"), summary.Workers,
		metaStyle.Render("skew:"), summary.SkewNs,
		renderStatusBar(summary.StatusCounts))
	return dashBoxStyle.Copy().BorderForeground(purpleColor).Render(content)
}

func renderStatusBar(counts map[int]int) string {
	if len(counts) == 0 {
		return metaStyle.Render("(no responses yet)")
	}
	var parts []string
	for _, code := range sortedStatusCodes(counts) {
		style := successText
		if code == 0 || code >= 500 {
			style = errText
		} else if code >= 400 {
			style = warnText
		}
		parts = append(parts, style.Render(fmt.Sprintf("%d×%d", code, counts[code])))
	}
	return strings.Join(parts, "  ")
}

func renderHistory(history []models.StateExecution) string {
	if len(history) == 0 {
		return metaStyle.Render("waiting for first state...") + "\n"
	}
	var s strings.Builder
	s.WriteString(lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render("history") + "\n")

	start := 0
	if len(history) > 12 {
		start = len(history) - 12
	}
	for _, exec := range history[start:] {
		marker := "✓"
		style := successText
		detail := ""
		if exec.Err != nil {
			marker, style = "✗", errText
			detail = exec.Err.Error()
		} else if exec.RaceBurst != nil {
			detail = fmt.Sprintf("race skew=%dns", exec.RaceBurst.SkewNs)
		} else if exec.Response != nil {
			detail = fmt.Sprintf("status=%d %.1fms", exec.Response.Status, exec.Response.ElapsedMs)
		}
		s.WriteString(fmt.Sprintf("  %s %s %s\n", style.Render(marker), exec.State, metaStyle.Render(detail)))
	}
	return s.String()
}
