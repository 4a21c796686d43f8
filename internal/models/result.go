package models

import "time"

// Response is the parsed result of sending one HTTP request, returned by
// internal/httpclient (spec.md §4.3).
type Response struct {
	Status      int
	Reason      string
	Headers     map[string][]string
	Body        []byte
	ElapsedMs   float64
	StartedAtNs int64
}

// HeaderGet returns the first value for a header, case-sensitively matched
// against the header name exactly as the server sent it (names are not
// canonicalized when the response is read).
func (r *Response) HeaderGet(name string) string {
	if r == nil {
		return ""
	}
	if vs, ok := r.Headers[name]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// WorkerState is the race worker state machine of spec.md §4.5.
type WorkerState int

const (
	WorkerIdle WorkerState = iota
	WorkerArmed
	WorkerFiring
	WorkerReading
	WorkerDone
	WorkerFailed
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "Idle"
	case WorkerArmed:
		return "Armed"
	case WorkerFiring:
		return "Firing"
	case WorkerReading:
		return "Reading"
	case WorkerDone:
		return "Done"
	case WorkerFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// RaceResult is one worker's outcome from a race burst (spec.md §4.5).
type RaceResult struct {
	WorkerID        int
	Group           string
	State           WorkerState
	ElapsedNs       int64
	RelativeStartNs int64 // relative to the burst's T0
	Response        *Response
	Err             error
}

// IsSuccess2xx reports whether the result is a response in the 2xx range.
func (r RaceResult) IsSuccess2xx() bool {
	return r.Err == nil && r.Response != nil && r.Response.Status >= 200 && r.Response.Status < 300
}

// RaceBurstSummary captures the skew/outcome of one executed race state,
// feeding internal/report's HTML/console race-timing charts.
type RaceBurstSummary struct {
	State           string
	Workers         int
	MinRelativeNs   int64
	MaxRelativeNs   int64
	SkewNs          int64
	StatusCounts    map[int]int
	DesignatedIndex int // index into Results chosen per spec.md §4.6
	Results         []RaceResult
}

// StateExecution is one entry of the orchestrator's execution trace.
type StateExecution struct {
	State     string
	Iteration int
	Request   string // rendered, for single-request states
	Response  *Response
	RaceBurst *RaceBurstSummary
	Extracted map[string]Value
	NextState string
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// Trace is the full record of a workflow run, returned by the orchestrator
// whether the run terminated normally or aborted (spec.md §4.6, §7).
type Trace struct {
	Executions []StateExecution
	Err        error
}

// Terminal reports whether the trace ended without an orchestrator-level
// error (loop limit, unreachable state, cancellation).
func (t *Trace) Terminal() bool {
	return t.Err == nil
}
