// Package orchestrator implements spec.md §4.6: the state-machine
// interpreter that walks a workflow's state graph, dispatching either a
// single request or a race burst per state, running extractors, and
// evaluating transition predicates in declaration order. Grounded on the
// teacher's internal/attacker.Engine step-execution loop (request ->
// extract -> assert) generalized from a fixed linear Steps slice into a
// graph with named transitions and loop handling, and on
// internal/circuitbreaker for the "stop the run" signal shape.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"raceforge/internal/extract"
	"raceforge/internal/httpclient"
	"raceforge/internal/metrics"
	"raceforge/internal/models"
	"raceforge/internal/predicate"
	"raceforge/internal/racer"
	"raceforge/internal/template"
	"raceforge/internal/transport"
	"raceforge/internal/varctx"
)

// maxTotalIterations bounds the sum of every state's loop iterations
// across an entire run, the global safety valve spec.md §4.6 requires so
// a misconfigured `while` can't spin forever.
const maxTotalIterations = 10_000

// Observer receives progress events as the orchestrator runs, letting
// internal/tui and internal/dryrun render live state without coupling
// the engine to a UI. All methods are optional no-ops when Observer is
// nil (see noopObserver below).
type Observer interface {
	StateStarted(name string, iteration int)
	StateFinished(exec models.StateExecution)
	RaceBurstUpdate(name string, summary *models.RaceBurstSummary)
}

type noopObserver struct{}

func (noopObserver) StateStarted(string, int)             {}
func (noopObserver) StateFinished(models.StateExecution)   {}
func (noopObserver) RaceBurstUpdate(string, *models.RaceBurstSummary) {}

// Orchestrator executes one Config's state graph.
type Orchestrator struct {
	cfg      *models.Config
	vars     *varctx.Context
	fns      template.FuncMap
	reg      *metrics.Registry
	observer Observer
}

// New builds an Orchestrator for cfg. reg may be nil (metrics disabled);
// observer may be nil (no progress reporting).
func New(cfg *models.Config, reg *metrics.Registry, observer Observer) *Orchestrator {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Orchestrator{
		cfg:      cfg,
		vars:     varctx.New(cfg.Globals),
		fns:      template.DefaultFuncs(),
		reg:      reg,
		observer: observer,
	}
}

// Run walks the state graph starting at cfg.Entrypoint until a state has
// no matching transition (normal termination) or an orchestrator-level
// error occurs (loop limit, unknown state, cancellation).
func (o *Orchestrator) Run(ctx context.Context) *models.Trace {
	trace := &models.Trace{}

	current := o.cfg.Entrypoint
	iterations := map[string]int{}
	totalIterations := 0

	for current != "" {
		select {
		case <-ctx.Done():
			trace.Err = models.NewError(models.KindCancelledError, "run cancelled: %v", ctx.Err())
			return trace
		default:
		}

		state, ok := o.cfg.States[current]
		if !ok {
			trace.Err = models.NewError(models.KindConfigError, "transition to unknown state %q", current)
			return trace
		}

		iteration := iterations[current]

		if state.HasLoop() {
			totalIterations++
			if totalIterations > maxTotalIterations {
				trace.Err = models.NewError(models.KindLoopLimitExceeded, "global iteration cap (%d) exceeded at state %q", maxTotalIterations, current).WithState(current)
				return trace
			}
		}

		o.observer.StateStarted(current, iteration)
		exec := o.executeState(ctx, state, iteration)
		o.observer.StateFinished(exec)
		trace.Executions = append(trace.Executions, exec)

		if exec.Err != nil {
			trace.Err = exec.Err
			return trace
		}

		if state.Repeat > 0 && iteration+1 < state.Repeat {
			iterations[current] = iteration + 1
			current = state.Name
			continue
		}
		if state.While != "" {
			cont, err := predicate.Eval(state.While, o.resolve)
			if err != nil {
				trace.Err = err
				return trace
			}
			if cont {
				iterations[current] = iteration + 1
				current = state.Name
				continue
			}
		}

		current = exec.NextState
	}

	return trace
}

func (o *Orchestrator) resolve(name string) (models.Value, bool) {
	return o.vars.Get(name)
}

func (o *Orchestrator) executeState(ctx context.Context, state *models.State, iteration int) models.StateExecution {
	started := time.Now()
	exec := models.StateExecution{State: state.Name, Iteration: iteration, StartedAt: started}

	// __iter__ is genuinely state-local (it only makes sense while this
	// state's loop is executing); everything else written below goes
	// through SetBase/SetManyBase so it survives the Pop and reaches the
	// global context the rest of the graph reads from.
	o.vars.Push()
	defer o.vars.Pop()
	o.vars.Set("__iter__", models.IntValue(int64(iteration)))

	var resp *models.Response
	var raceSummary *models.RaceBurstSummary
	var err error

	if state.Race != nil {
		raceSummary, err = o.fireRace(ctx, state)
		if err == nil {
			o.observer.RaceBurstUpdate(state.Name, raceSummary)
			o.reg.RecordRaceBurst(raceSummary)
			if raceSummary.DesignatedIndex >= 0 {
				resp = raceSummary.Results[raceSummary.DesignatedIndex].Response
			}
			o.vars.SetBase("__race_results__", models.StringValue(summarizeStatuses(raceSummary)))
		}
	} else {
		resp, err = o.fireSingle(ctx, state)
	}

	exec.Duration = time.Since(started)
	exec.RaceBurst = raceSummary

	if err != nil {
		exec.Err = err
		o.reg.RecordFailure()
		return exec
	}

	exec.Response = resp
	o.reg.RecordState(state.Name, exec.Duration.Microseconds())

	if resp != nil {
		o.vars.SetBase("__status__", models.IntValue(int64(resp.Status)))
		o.vars.SetBase("__elapsed_ms__", models.FloatValue(resp.ElapsedMs))

		extracted, exErr := extract.ExtractAll(resp, state.Extracts)
		if exErr != nil {
			exec.Err = exErr
			o.reg.RecordFailure()
			return exec
		}
		exec.Extracted = extracted
		o.vars.SetManyBase(extracted)
	}

	next, nErr := o.resolveTransition(state)
	if nErr != nil {
		exec.Err = nErr
		return exec
	}
	exec.NextState = next

	return exec
}

func (o *Orchestrator) fireSingle(ctx context.Context, state *models.State) (*models.Response, error) {
	snap := o.vars.Snapshot()
	tmpl := template.Compile(state.Request)
	rendered, err := tmpl.Execute(snap.Get, o.fns)
	if err != nil {
		return nil, err
	}
	req, err := httpclient.ParseRequest(rendered)
	if err != nil {
		return nil, err
	}
	wire, err := req.Render(o.cfg.Target.Host)
	if err != nil {
		return nil, err
	}

	strat := transport.NewLazy()
	if err := strat.Prepare(ctx, 1, o.cfg.Target); err != nil {
		return nil, err
	}
	defer strat.Cleanup()

	conn, err := strat.AcquireConn(0)
	if err != nil {
		return nil, err
	}
	defer strat.ReleaseConn(0, conn)

	return httpclient.Send(conn, wire, o.cfg.Target.ReadTimeout)
}

func (o *Orchestrator) fireRace(ctx context.Context, state *models.State) (*models.RaceBurstSummary, error) {
	snap := o.vars.Snapshot()
	summary, err := racer.Fire(ctx, state.Race, state.Request, o.cfg.Target, snap, o.fns)
	if err != nil {
		return nil, err
	}
	summary.State = state.Name
	return summary, nil
}

func (o *Orchestrator) resolveTransition(state *models.State) (string, error) {
	for _, t := range state.Next {
		ok, err := predicate.Eval(t.Predicate, o.resolve)
		if err != nil {
			return "", err
		}
		if ok {
			return t.Goto, nil
		}
	}
	return "", nil
}

func summarizeStatuses(summary *models.RaceBurstSummary) string {
	if summary == nil {
		return ""
	}
	parts := make([]string, 0, len(summary.StatusCounts))
	for status, count := range summary.StatusCounts {
		parts = append(parts, fmt.Sprintf("%d:%d", status, count))
	}
	return strings.Join(parts, ",")
}
