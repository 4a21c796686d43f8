package racer

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"raceforge/internal/models"
	"raceforge/internal/template"
	"raceforge/internal/varctx"
)

// serveFixedResponses accepts exactly n connections on ln and writes resp
// to each one as soon as it reads a full request.
func serveFixedResponses(t *testing.T, ln net.Listener, n int, resp string) {
	t.Helper()
	for i := 0; i < n; i++ {
		go func() {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			buf := make([]byte, 4096)
			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			_, _ = conn.Read(buf)
			conn.Write([]byte(resp))
		}()
	}
}

func listenerTarget(t *testing.T, ln net.Listener) models.Target {
	t.Helper()
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return models.Target{Host: host, Port: port}
}

func TestFireBarrierCollectsAllResponses(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	const n = 4
	serveFixedResponses(t, ln, n, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	race := &models.RaceConfig{
		Threads:            n,
		SyncMechanism:      models.SyncBarrier,
		ConnectionStrategy: models.StrategyPreconnect,
		TimeoutMs:          5000,
	}
	vars := varctx.New(nil).Snapshot()

	summary, err := Fire(context.Background(), race, "GET / HTTP/1.1", listenerTarget(t, ln), vars, template.DefaultFuncs())
	if err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if summary.Workers != n {
		t.Fatalf("expected %d workers, got %d", n, summary.Workers)
	}
	if summary.StatusCounts[200] != n {
		t.Fatalf("expected all %d workers to see status 200, got %v", n, summary.StatusCounts)
	}
	if summary.DesignatedIndex == -1 {
		t.Fatal("expected a designated 2xx response to be chosen")
	}
}

func TestFireSendAllFirstWithholdsLastByte(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	const n = 3
	serveFixedResponses(t, ln, n, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	race := &models.RaceConfig{
		Threads:            n,
		SyncMechanism:      models.SyncSendAllFirst,
		ConnectionStrategy: models.StrategyPreconnect,
		TimeoutMs:          5000,
	}
	vars := varctx.New(nil).Snapshot()

	summary, err := Fire(context.Background(), race, "GET / HTTP/1.1", listenerTarget(t, ln), vars, template.DefaultFuncs())
	if err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if summary.Workers != n {
		t.Fatalf("expected %d workers, got %d", n, summary.Workers)
	}
	for _, r := range summary.Results {
		if r.State != models.WorkerDone {
			t.Fatalf("worker %d did not complete: %+v", r.WorkerID, r)
		}
	}
}

func TestFireThreadGroupsOverlayVariables(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	serveFixedResponses(t, ln, 2, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	race := &models.RaceConfig{
		SyncMechanism:      models.SyncBarrier,
		ConnectionStrategy: models.StrategyPreconnect,
		TimeoutMs:          5000,
		ThreadGroups: []models.ThreadGroup{
			{Name: "buyer", Threads: 1, Variables: map[string]string{"account_id": "1"}},
			{Name: "seller", Threads: 1, Variables: map[string]string{"account_id": "2"}},
		},
	}
	vars := varctx.New(nil).Snapshot()

	summary, err := Fire(context.Background(), race, "GET /?acct={{account_id}} HTTP/1.1", listenerTarget(t, ln), vars, template.DefaultFuncs())
	if err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if summary.Workers != 2 {
		t.Fatalf("expected 2 workers, got %d", summary.Workers)
	}
	groups := map[string]bool{}
	for _, r := range summary.Results {
		groups[r.Group] = true
	}
	if !groups["buyer"] || !groups["seller"] {
		t.Fatalf("expected both buyer and seller groups represented, got %v", groups)
	}
}
