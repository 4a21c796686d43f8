// Package report renders a finished workflow Trace as console output,
// JSON, or a standalone HTML page with Chart.js visuals. Grounded on
// internal/report/report.go's GenerateHTML — its dark-gradient theme,
// summary-card grid, and Chart.js charts are kept, but the per-second
// load-test series is replaced with a per-race-burst timing skew bar
// chart and a status-code doughnut.
package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"sort"
	"strings"
	"time"

	"raceforge/internal/metrics"
	"raceforge/internal/models"
)

// Summary is the rendered-agnostic view of a finished run, built once and
// fed to PrintConsole / WriteJSON / WriteHTML.
type Summary struct {
	WorkflowName string
	GeneratedAt  time.Time
	Terminal     bool
	Err          string
	States       []StateSummary
	RaceBursts   []models.RaceBurstSummary
	Metrics      metrics.Snapshot
}

// StateSummary is one executed state's outcome, flattened from
// models.StateExecution for rendering.
type StateSummary struct {
	Name       string
	Iteration  int
	Status     int
	ElapsedMs  float64
	Err        string
	IsRace     bool
	NextState  string
}

// Build converts an orchestrator trace into a Summary.
func Build(workflowName string, trace *models.Trace, reg *metrics.Registry) Summary {
	s := Summary{
		WorkflowName: workflowName,
		GeneratedAt:  time.Now(),
		Terminal:     trace.Terminal(),
		Metrics:      reg.Snapshot(),
	}
	if trace.Err != nil {
		s.Err = trace.Err.Error()
	}
	for _, exec := range trace.Executions {
		ss := StateSummary{Name: exec.State, Iteration: exec.Iteration, NextState: exec.NextState}
		if exec.Err != nil {
			ss.Err = exec.Err.Error()
		}
		if exec.Response != nil {
			ss.Status = exec.Response.Status
			ss.ElapsedMs = exec.Response.ElapsedMs
		}
		if exec.RaceBurst != nil {
			ss.IsRace = true
			s.RaceBursts = append(s.RaceBursts, *exec.RaceBurst)
		}
		s.States = append(s.States, ss)
	}
	return s
}

// PrintConsole writes a human-readable summary to stdout, in the
// teacher's bold/dim ANSI style.
func PrintConsole(s Summary) {
	const (
		bold  = "\033[1m"
		reset = "\033[0m"
		dim   = "\033[2m"
		green = "\033[32m"
		red   = "\033[31m"
	)

	fmt.Printf("\n%s=== %s ===%s\n", bold, s.WorkflowName, reset)
	fmt.Printf("%sgenerated:%s %s\n", dim, reset, s.GeneratedAt.Format(time.RFC3339))

	status := fmt.Sprintf("%scompleted%s", green, reset)
	if !s.Terminal {
		status = fmt.Sprintf("%sfailed: %s%s", red, s.Err, reset)
	}
	fmt.Printf("%sstatus:%s %s\n\n", dim, reset, status)

	fmt.Printf("%sstate executions:%s %d\n", dim, reset, len(s.States))
	for _, st := range s.States {
		marker := "request"
		if st.IsRace {
			marker = "race"
		}
		if st.Err != "" {
			fmt.Printf("  [%d] %s (%s) -> ERROR: %s\n", st.Iteration, st.Name, marker, st.Err)
			continue
		}
		fmt.Printf("  [%d] %s (%s) status=%d %.2fms -> %s\n", st.Iteration, st.Name, marker, st.Status, st.ElapsedMs, orDash(st.NextState))
	}

	if len(s.RaceBursts) > 0 {
		fmt.Printf("\n%srace bursts:%s\n", dim, reset)
		for _, rb := range s.RaceBursts {
			fmt.Printf("  %s: %d workers, skew=%dns, designated=%d\n", rb.State, rb.Workers, rb.SkewNs, rb.DesignatedIndex)
		}
	}

	if s.Metrics.Requests > 0 {
		fmt.Printf("\n%smetrics:%s requests=%d failures=%d\n", dim, reset, s.Metrics.Requests, s.Metrics.Failures)
	}
}

func orDash(s string) string {
	if s == "" {
		return "(terminal)"
	}
	return s
}

// WriteJSON marshals the summary as indented JSON to path.
func WriteJSON(s Summary, path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// WriteHTML renders the standalone Chart.js dashboard page.
func WriteHTML(s Summary, path string) error {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}

	var skewLabels, skewData []string
	for _, rb := range s.RaceBursts {
		skewLabels = append(skewLabels, fmt.Sprintf("'%s'", rb.State))
		skewData = append(skewData, fmt.Sprintf("%d", rb.SkewNs/1000))
	}

	statusCounts := map[int]int64{}
	for _, rb := range s.RaceBursts {
		for code, count := range rb.StatusCounts {
			statusCounts[code] += int64(count)
		}
	}
	codes := make([]int, 0, len(statusCounts))
	for c := range statusCounts {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	var statusLabels, statusData []string
	for _, c := range codes {
		statusLabels = append(statusLabels, fmt.Sprintf("'%d'", c))
		statusData = append(statusData, fmt.Sprintf("%d", statusCounts[c]))
	}

	data := templateData{
		WorkflowName: s.WorkflowName,
		GeneratedAt:  s.GeneratedAt.Format("2006-01-02 15:04:05"),
		Terminal:     s.Terminal,
		Err:          s.Err,
		StateCount:   len(s.States),
		RaceCount:    len(s.RaceBursts),
		SkewLabels:   template.JS(strings.Join(skewLabels, ",")),
		SkewData:     template.JS(strings.Join(skewData, ",")),
		StatusLabels: template.JS(strings.Join(statusLabels, ",")),
		StatusData:   template.JS(strings.Join(statusData, ",")),
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	return tmpl.Execute(f, data)
}

type templateData struct {
	WorkflowName string
	GeneratedAt  string
	Terminal     bool
	Err          string
	StateCount   int
	RaceCount    int
	SkewLabels   template.JS
	SkewData     template.JS
	StatusLabels template.JS
	StatusData   template.JS
}
