package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"raceforge/internal/models"
)

// FinalView renders the terminal summary screen shown once a run
// completes: a header, a state/race-burst count section, and a
// status-code breakdown.
func FinalView(workflowName string, trace *models.Trace) string {
	var s strings.Builder

	logo := lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render(asciiLogo)
	s.WriteString(headerBoxStyle.Render(logo))
	s.WriteString("\n")
	s.WriteString(metaStyle.Render("race-condition exploitation orchestrator"))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.NewStyle().Foreground(secondaryColor).Bold(true).Render("run summary: "+workflowName))
	s.WriteString("\n\n")

	if trace == nil {
		s.WriteString(errText.Render("no trace recorded") + "\n")
		return s.String()
	}

	statusLine := successText.Render("completed")
	if trace.Err != nil {
		statusLine = errText.Render("failed: " + trace.Err.Error())
	}
	s.WriteString(fmt.Sprintf("  %s %s\n", metaStyle.Render("status:"), statusLine))
	s.WriteString(fmt.Sprintf("  %s %d\n", metaStyle.Render("states executed:"), len(trace.Executions)))

	raceCount := 0
	statusCounts := map[int]int{}
	for _, exec := range trace.Executions {
		if exec.RaceBurst != nil {
			raceCount++
			for code, count := range exec.RaceBurst.StatusCounts {
				statusCounts[code] += count
			}
		} else if exec.Response != nil {
			statusCounts[exec.Response.Status]++
		}
	}
	s.WriteString(fmt.Sprintf("  %s %d\n\n", metaStyle.Render("race bursts fired:"), raceCount))

	if len(statusCounts) > 0 {
		s.WriteString(lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render("status codes") + "\n")
		for _, code := range sortedStatusCodes(statusCounts) {
			style := successText
			if code == 0 || code >= 500 {
				style = errText
			} else if code >= 400 {
				style = warnText
			}
			s.WriteString(fmt.Sprintf("  %s %s\n", metaStyle.Render(fmt.Sprintf("%-5d", code)), style.Render(fmt.Sprintf("×%d", statusCounts[code]))))
		}
		s.WriteString("\n")
	}

	if raceCount > 0 {
		s.WriteString(lipgloss.NewStyle().Foreground(purpleColor).Bold(true).Render("race skew (ns)") + "\n")
		for _, exec := range trace.Executions {
			if exec.RaceBurst == nil {
				continue
			}
			s.WriteString(fmt.Sprintf("  %-20s %s\n", exec.RaceBurst.State, metaStyle.Render(fmt.Sprintf("%d", exec.RaceBurst.SkewNs))))
		}
		s.WriteString("\n")
	}

	s.WriteString(metaStyle.Render("press q to exit"))
	return s.String()
}
