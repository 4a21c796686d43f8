// Package dryrun implements a debug/verbose trace mode: a workflow run
// with request/response/extract detail printed to the terminal as the
// orchestrator executes, instead of the live dashboard.
// Grounded on internal/debug/debug.go's RunDebugMode, keeping its ANSI
// color palette and section-header style but driving it off
// internal/orchestrator.Observer instead of a direct engine call site.
package dryrun

import (
	"fmt"
	"sort"
	"strings"

	"raceforge/internal/models"
)

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
)

// Observer implements orchestrator.Observer, printing each state's
// request/response/race-burst detail as it happens. It does not limit the
// run: every state the orchestrator executes, loop iterations included,
// is printed.
type Observer struct {
	stateCount int
}

func New() *Observer { return &Observer{} }

func (o *Observer) StateStarted(name string, iteration int) {
	o.stateCount++
	printSeparator()
	fmt.Printf("%s%s\U0001F4CD STATE %d: %s (iteration %d)%s\n", colorBold, colorMagenta, o.stateCount, name, iteration, colorReset)
	printSeparator()
}

func (o *Observer) StateFinished(exec models.StateExecution) {
	if exec.Err != nil {
		fmt.Printf("\n%s[ERROR]%s %v\n", colorRed, colorReset, exec.Err)
		return
	}
	if exec.RaceBurst != nil {
		printRaceBurst(exec.RaceBurst)
	} else if exec.Response != nil {
		printResponse(exec.Response)
	}
	if len(exec.Extracted) > 0 {
		printExtracted(exec.Extracted)
	}
	if exec.NextState != "" {
		fmt.Printf("\n%s-> next: %s%s\n", colorDim, exec.NextState, colorReset)
	} else {
		fmt.Printf("\n%s-> terminal state%s\n", colorDim, colorReset)
	}
}

func (o *Observer) RaceBurstUpdate(name string, summary *models.RaceBurstSummary) {
	// StateFinished already prints the final summary; live per-worker
	// progress is internal/tui's job, not the dry-run trace's.
}

func printSeparator() {
	fmt.Printf("%s----------------------------------------------------%s\n", colorDim, colorReset)
}

func printResponse(resp *models.Response) {
	fmt.Printf("\n%s[RESPONSE]%s\n", colorBold, colorReset)
	statusColor := colorGreen
	if resp.Status >= 400 {
		statusColor = colorRed
	} else if resp.Status >= 300 {
		statusColor = colorYellow
	}
	fmt.Printf("%sStatus:%s %s%d %s%s\n", colorDim, colorReset, statusColor, resp.Status, resp.Reason, colorReset)
	fmt.Printf("%sElapsed:%s %.2fms\n", colorDim, colorReset, resp.ElapsedMs)

	if len(resp.Headers) > 0 {
		fmt.Printf("%sHeaders:%s\n", colorDim, colorReset)
		keys := make([]string, 0, len(resp.Headers))
		for k := range resp.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, v := range resp.Headers[k] {
				fmt.Printf("  %s%s:%s %s\n", colorYellow, k, colorReset, v)
			}
		}
	}

	if len(resp.Body) > 0 {
		fmt.Printf("%sBody (%d bytes):%s\n", colorDim, len(resp.Body), colorReset)
		body := string(resp.Body)
		if len(body) > 2000 {
			body = body[:2000] + "... (truncated)"
		}
		fmt.Printf("  %s\n", body)
	}
}

func printRaceBurst(summary *models.RaceBurstSummary) {
	fmt.Printf("\n%s[RACE BURST]%s %d workers, skew %dns\n", colorBold, colorReset, summary.Workers, summary.SkewNs)
	codes := make([]string, 0, len(summary.StatusCounts))
	for code, count := range summary.StatusCounts {
		codes = append(codes, fmt.Sprintf("%d x%d", code, count))
	}
	sort.Strings(codes)
	fmt.Printf("%sOutcomes:%s %s\n", colorDim, colorReset, strings.Join(codes, ", "))
	if summary.DesignatedIndex >= 0 {
		d := summary.Results[summary.DesignatedIndex]
		fmt.Printf("%sDesignated response:%s worker %d (group %q), relative_start_ns=%d\n", colorDim, colorReset, d.WorkerID, d.Group, d.RelativeStartNs)
	} else {
		fmt.Printf("%sDesignated response:%s none (no 2xx in burst)\n", colorDim, colorReset)
	}
}

func printExtracted(extracted map[string]models.Value) {
	fmt.Printf("\n%s[EXTRACTED]%s\n", colorBold, colorReset)
	keys := make([]string, 0, len(extracted))
	for k := range extracted {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := extracted[k]
		if v.IsAbsent() {
			fmt.Printf("  %s%s:%s %s(absent)%s\n", colorBlue, k, colorReset, colorDim, colorReset)
			continue
		}
		fmt.Printf("  %s%s:%s %s\n", colorBlue, k, colorReset, v.String())
	}
}
