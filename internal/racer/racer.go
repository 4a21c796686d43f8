// Package racer implements spec.md §4.5: the race dispatcher that fires
// a burst of near-simultaneous HTTP requests against one or more thread
// groups and collects per-worker timing/response data for designated-
// response selection. Grounded on other_examples' race_request.go
// executeRace (phased dial / prefix-write / gated-last-byte / parallel
// read) and on internal/attacker's goroutine-per-request fan-out,
// generalized to named ThreadGroups and both sync mechanisms.
package racer

import (
	"context"
	"sync"
	"time"

	"raceforge/internal/httpclient"
	"raceforge/internal/models"
	"raceforge/internal/template"
	"raceforge/internal/transport"
	"raceforge/internal/varctx"
)

// worker is one planned race participant: its thread group, the raw
// request template it will render, and the strategy-assigned thread
// index used to acquire a connection.
type worker struct {
	groupName  string
	threadID   int
	delay      time.Duration
	rawRequest string
	overlay    map[string]string
}

// Fire runs race against target using the connection strategy named in
// race.ConnectionStrategy, rendering each worker's request against
// baseVars overlaid with its thread group's Variables (spec.md §3), and
// returns a RaceBurstSummary with every worker's timing/response data
// plus the designated response.
//
// stateRequest is the owning State's Request field, used as the shared
// request template for the legacy race.Threads form where no
// ThreadGroups (and therefore no per-group Request) are configured.
func Fire(ctx context.Context, race *models.RaceConfig, stateRequest string, target models.Target, baseVars *varctx.Snapshot, fns template.FuncMap) (*models.RaceBurstSummary, error) {
	workers := planWorkers(race, stateRequest)
	n := len(workers)

	strat := transport.ForKind(race.ConnectionStrategy)
	if err := strat.Prepare(ctx, n, target); err != nil {
		return nil, err
	}
	defer strat.Cleanup()

	rendered := make([][]byte, n)
	for i, w := range workers {
		vars := baseVars
		if len(w.overlay) > 0 {
			vars = baseVars.Overlay(coerceOverlay(w.overlay))
		}
		body, err := renderRequest(w.rawRequest, vars, fns, target.Host)
		if err != nil {
			return nil, err
		}
		rendered[i] = body
	}

	results := make([]models.RaceResult, n)
	readTimeout := time.Duration(race.TimeoutMs) * time.Millisecond

	if race.SyncMechanism == models.SyncSendAllFirst {
		fireSendAllFirst(workers, rendered, strat, readTimeout, results)
	} else {
		fireBarrier(workers, rendered, strat, readTimeout, results)
	}

	return summarize(results), nil
}

func planWorkers(race *models.RaceConfig, stateRequest string) []worker {
	var out []worker
	threadID := 0

	if len(race.ThreadGroups) > 0 {
		for _, g := range race.ThreadGroups {
			req := g.Request
			if req == "" {
				req = stateRequest
			}
			for t := 0; t < g.Threads; t++ {
				out = append(out, worker{
					groupName:  g.Name,
					threadID:   threadID,
					delay:      time.Duration(g.DelayMs) * time.Millisecond,
					rawRequest: req,
					overlay:    g.Variables,
				})
				threadID++
			}
		}
		return out
	}

	for t := 0; t < race.Threads; t++ {
		out = append(out, worker{groupName: "default", threadID: threadID, rawRequest: stateRequest})
		threadID++
	}
	return out
}

// coerceOverlay narrows each ThreadGroup variable's raw YAML string into
// a typed models.Value the same way an extractor match would, so a
// group-scoped override like account_id: "42" behaves as an int in
// predicates exactly like an extracted one (spec.md §3).
func coerceOverlay(raw map[string]string) map[string]models.Value {
	out := make(map[string]models.Value, len(raw))
	for k, v := range raw {
		out[k] = models.ValueFromCoercedString(v)
	}
	return out
}

func renderRequest(rawRequest string, vars *varctx.Snapshot, fns template.FuncMap, defaultHost string) ([]byte, error) {
	tmpl := template.Compile(rawRequest)
	resolved, err := tmpl.Execute(vars.Get, fns)
	if err != nil {
		return nil, err
	}
	req, err := httpclient.ParseRequest(resolved)
	if err != nil {
		return nil, err
	}
	return req.Render(defaultHost)
}

func fireBarrier(workers []worker, rendered [][]byte, strat transport.Strategy, readTimeout time.Duration, results []models.RaceResult) {
	n := len(workers)
	var ready sync.WaitGroup
	gate := make(chan struct{})
	var done sync.WaitGroup

	ready.Add(n)
	done.Add(n)

	for i := 0; i < n; i++ {
		go func(idx int) {
			defer done.Done()
			w := workers[idx]
			conn, err := strat.AcquireConn(w.threadID)
			ready.Done()
			if err != nil {
				results[idx] = models.RaceResult{WorkerID: w.threadID, Group: w.groupName, State: models.WorkerFailed, Err: err}
				return
			}
			<-gate
			if w.delay > 0 {
				time.Sleep(w.delay)
			}
			startNs := time.Now().UnixNano()
			resp, sendErr := httpclient.Send(conn, rendered[idx], readTimeout)
			strat.ReleaseConn(w.threadID, conn)
			results[idx] = buildResult(w, startNs, resp, sendErr)
		}(i)
	}

	ready.Wait()
	baseline := time.Now().UnixNano()
	close(gate)
	done.Wait()
	normalizeRelative(results, baseline)
}

func fireSendAllFirst(workers []worker, rendered [][]byte, strat transport.Strategy, readTimeout time.Duration, results []models.RaceResult) {
	n := len(workers)
	var prefixesWritten sync.WaitGroup
	release := make(chan struct{})
	var done sync.WaitGroup

	prefixesWritten.Add(n)
	done.Add(n)

	for i := 0; i < n; i++ {
		go func(idx int) {
			defer done.Done()
			w := workers[idx]
			conn, err := strat.AcquireConn(w.threadID)
			if err != nil {
				prefixesWritten.Done()
				results[idx] = models.RaceResult{WorkerID: w.threadID, Group: w.groupName, State: models.WorkerFailed, Err: err}
				return
			}
			var workerRelease <-chan struct{} = release
			if w.delay > 0 {
				delayed := make(chan struct{})
				go func() {
					<-release
					time.Sleep(w.delay)
					close(delayed)
				}()
				workerRelease = delayed
			}
			prefix, last := httpclient.SplitForSendAllFirst(rendered[idx])
			startNs := time.Now().UnixNano()
			resp, sendErr := httpclient.SendSplit(conn, prefix, last, prefixesWritten.Done, workerRelease, readTimeout)
			strat.ReleaseConn(w.threadID, conn)
			results[idx] = buildResult(w, startNs, resp, sendErr)
		}(i)
	}

	prefixesWritten.Wait()
	baseline := time.Now().UnixNano()
	close(release)
	done.Wait()
	normalizeRelative(results, baseline)
}

func normalizeRelative(results []models.RaceResult, baseline int64) {
	for i := range results {
		results[i].RelativeStartNs -= baseline
	}
}

func buildResult(w worker, startNs int64, resp *models.Response, err error) models.RaceResult {
	r := models.RaceResult{
		WorkerID:        w.threadID,
		Group:           w.groupName,
		RelativeStartNs: startNs,
		Response:        resp,
		Err:             err,
	}
	if err != nil {
		r.State = models.WorkerFailed
		return r
	}
	r.State = models.WorkerDone
	r.ElapsedNs = int64(resp.ElapsedMs * 1e6)
	return r
}

func summarize(results []models.RaceResult) *models.RaceBurstSummary {
	summary := &models.RaceBurstSummary{
		Workers:         len(results),
		Results:         results,
		StatusCounts:    make(map[int]int),
		DesignatedIndex: -1,
	}

	var minNs, maxNs int64
	first := true
	var bestNs int64

	for i, r := range results {
		if r.Response != nil {
			summary.StatusCounts[r.Response.Status]++
		}
		if first {
			minNs, maxNs = r.RelativeStartNs, r.RelativeStartNs
			first = false
		} else {
			if r.RelativeStartNs < minNs {
				minNs = r.RelativeStartNs
			}
			if r.RelativeStartNs > maxNs {
				maxNs = r.RelativeStartNs
			}
		}

		// Designated response: first 2xx by relative_start_ns
		// (SPEC_FULL.md §4.6 pins this Open Question).
		if r.IsSuccess2xx() && (summary.DesignatedIndex == -1 || r.RelativeStartNs < bestNs) {
			summary.DesignatedIndex = i
			bestNs = r.RelativeStartNs
		}
	}

	summary.MinRelativeNs = minNs
	summary.MaxRelativeNs = maxNs
	summary.SkewNs = maxNs - minNs
	return summary
}
