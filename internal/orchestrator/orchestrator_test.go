package orchestrator

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"raceforge/internal/metrics"
	"raceforge/internal/models"
)

// serveSequential accepts connections on ln one at a time, each time
// reading a full request and replying with the next response in resps.
func serveSequential(t *testing.T, ln net.Listener, resps []string) {
	t.Helper()
	go func() {
		for _, resp := range resps {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			buf := make([]byte, 4096)
			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			_, _ = conn.Read(buf)
			conn.Write([]byte(resp))
			conn.Close()
		}
	}()
}

// serveRepeating accepts connections on ln until it is closed, replying
// with the same canned response every time — used for loop tests where
// the number of iterations isn't known up front.
func serveRepeating(ln net.Listener, resp string) {
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			buf := make([]byte, 4096)
			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			_, _ = conn.Read(buf)
			conn.Write([]byte(resp))
			conn.Close()
		}
	}()
}

func listenerTarget(t *testing.T, ln net.Listener) models.Target {
	t.Helper()
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return models.Target{Host: host, Port: port, ReadTimeout: 5 * time.Second, ConnectTimeout: 5 * time.Second}
}

func TestRunWalksLinearGraph(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	serveSequential(t, ln, []string{
		"HTTP/1.1 200 OK\r\nContent-Length: 15\r\n\r\n{\"token\":\"abc\"}",
		"HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok",
	})

	cfg := &models.Config{
		Target:     listenerTarget(t, ln),
		Entrypoint: "login",
		States: map[string]*models.State{
			"login": {
				Name:    "login",
				Request: "GET /login HTTP/1.1",
				Extracts: map[string]models.ExtractPattern{
					"token": {PatternType: "jpath", PatternData: "token"},
				},
				Next: []models.Transition{{Predicate: "", Goto: "use"}},
			},
			"use": {
				Name:    "use",
				Request: "GET /use?token={{token}} HTTP/1.1",
			},
		},
	}

	orch := New(cfg, metrics.New(models.MetricsConfig{}), nil)
	trace := orch.Run(context.Background())

	if trace.Err != nil {
		t.Fatalf("unexpected trace error: %v", trace.Err)
	}
	if len(trace.Executions) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(trace.Executions))
	}
	if trace.Executions[0].Extracted["token"].String() != "abc" {
		t.Fatalf("expected token=abc extracted, got %v", trace.Executions[0].Extracted["token"])
	}
}

func TestRunStopsOnUnknownTransitionTarget(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	serveSequential(t, ln, []string{"HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"})

	cfg := &models.Config{
		Target:     listenerTarget(t, ln),
		Entrypoint: "a",
		States: map[string]*models.State{
			"a": {
				Name:    "a",
				Request: "GET / HTTP/1.1",
				Next:    []models.Transition{{Predicate: "", Goto: "nonexistent"}},
			},
		},
	}

	orch := New(cfg, nil, nil)
	trace := orch.Run(context.Background())
	if trace.Err == nil {
		t.Fatal("expected an error transitioning to an unknown state")
	}
}

func TestRunRespectsRepeatLoop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	serveSequential(t, ln, []string{
		"HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok",
		"HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok",
		"HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok",
	})

	cfg := &models.Config{
		Target:     listenerTarget(t, ln),
		Entrypoint: "loop",
		States: map[string]*models.State{
			"loop": {
				Name:    "loop",
				Request: "GET / HTTP/1.1",
				Repeat:  3,
			},
		},
	}

	orch := New(cfg, nil, nil)
	trace := orch.Run(context.Background())
	if trace.Err != nil {
		t.Fatalf("unexpected error: %v", trace.Err)
	}
	if len(trace.Executions) != 3 {
		t.Fatalf("expected 3 executions from repeat=3, got %d", len(trace.Executions))
	}
}

func TestRunEnforcesGlobalIterationCap(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	serveRepeating(ln, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	cfg := &models.Config{
		Target:     listenerTarget(t, ln),
		Entrypoint: "loop",
		States: map[string]*models.State{
			"loop": {
				Name:    "loop",
				Request: "GET / HTTP/1.1",
				While:   "1 == 1",
			},
		},
	}

	orch := New(cfg, nil, nil)
	trace := orch.Run(context.Background())

	if trace.Err == nil {
		t.Fatal("expected the run to stop with a loop limit error")
	}
	if trace.Err.(*models.WorkflowError).Kind != models.KindLoopLimitExceeded {
		t.Fatalf("expected KindLoopLimitExceeded, got %v", trace.Err)
	}
	if len(trace.Executions) != maxTotalIterations {
		t.Fatalf("expected trace length to equal the cap (%d), got %d", maxTotalIterations, len(trace.Executions))
	}
}

func TestRunCancellationStopsTheWalk(t *testing.T) {
	cfg := &models.Config{
		Entrypoint: "a",
		States: map[string]*models.State{
			"a": {Name: "a", Request: "GET / HTTP/1.1"},
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := New(cfg, nil, nil)
	trace := orch.Run(ctx)
	if trace.Err == nil {
		t.Fatal("expected cancellation error")
	}
	if len(trace.Executions) != 0 {
		t.Fatalf("expected no executions after immediate cancellation, got %d", len(trace.Executions))
	}
}
