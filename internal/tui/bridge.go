package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"raceforge/internal/models"
)

// Bridge adapts orchestrator.Observer calls, made from the orchestrator's
// own goroutine, into tea.Msg values a running bubbletea Program can
// consume on its own update loop: a results channel drained by a
// tea.Cmd, carrying state-machine events instead of per-request results.
type Bridge struct {
	events chan tea.Msg
}

// NewBridge creates a Bridge with a 256-event buffered channel, so short
// rendering stalls don't hold up the orchestrator. Once the buffer is
// full, each Observer call blocks until the Program reads an event.
func NewBridge() *Bridge {
	return &Bridge{events: make(chan tea.Msg, 256)}
}

func (b *Bridge) StateStarted(name string, iteration int) {
	b.events <- stateStartedMsg{name: name, iteration: iteration}
}

func (b *Bridge) StateFinished(exec models.StateExecution) {
	b.events <- stateFinishedMsg{exec: exec}
}

func (b *Bridge) RaceBurstUpdate(name string, summary *models.RaceBurstSummary) {
	b.events <- raceBurstMsg{name: name, summary: summary}
}

// Done signals the run has finished (normally or with an error), carrying
// the full trace for the summary screen.
func (b *Bridge) Done(trace *models.Trace) {
	b.events <- runDoneMsg{trace: trace}
	close(b.events)
}

// Listen returns a tea.Cmd that yields the next bridge event, re-arming
// itself from Update until the channel closes.
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-b.events
		if !ok {
			return nil
		}
		return msg
	}
}

type stateStartedMsg struct {
	name      string
	iteration int
}

type stateFinishedMsg struct {
	exec models.StateExecution
}

type raceBurstMsg struct {
	name    string
	summary *models.RaceBurstSummary
}

type runDoneMsg struct {
	trace *models.Trace
}
