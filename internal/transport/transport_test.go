package transport

import (
	"context"
	"net"
	"strconv"
	"testing"

	"raceforge/internal/models"
)

func acceptAndClose(t *testing.T, ln net.Listener, n int) {
	t.Helper()
	go func() {
		for i := 0; i < n; i++ {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
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
	return models.Target{Host: host, Port: port}
}

func TestPreconnectDialsAllUpfront(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	acceptAndClose(t, ln, 3)

	p := NewPreconnect()
	if err := p.Prepare(context.Background(), 3, listenerTarget(t, ln)); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer p.Cleanup()

	for i := 0; i < 3; i++ {
		conn, err := p.AcquireConn(i)
		if err != nil {
			t.Fatalf("AcquireConn(%d): %v", i, err)
		}
		if conn == nil {
			t.Fatalf("AcquireConn(%d) returned nil conn", i)
		}
	}
}

func TestPreconnectAcquireOutOfRangeErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	acceptAndClose(t, ln, 1)

	p := NewPreconnect()
	if err := p.Prepare(context.Background(), 1, listenerTarget(t, ln)); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer p.Cleanup()

	if _, err := p.AcquireConn(5); err == nil {
		t.Fatal("expected out-of-range AcquireConn to error")
	}
}

func TestPooledCapsAtPoolSizeAndSerializes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	acceptAndClose(t, ln, poolSize)

	p := NewPooled()
	if err := p.Prepare(context.Background(), 20, listenerTarget(t, ln)); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer p.Cleanup()

	if p.size != poolSize {
		t.Fatalf("expected pool capped at %d, got %d", poolSize, p.size)
	}

	conn, err := p.AcquireConn(0)
	if err != nil {
		t.Fatalf("AcquireConn: %v", err)
	}
	p.ReleaseConn(0, conn)
}

func TestLazyDialsFreshConnectionPerAcquire(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	acceptAndClose(t, ln, 2)

	l := NewLazy()
	target := listenerTarget(t, ln)
	if err := l.Prepare(context.Background(), 2, target); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer l.Cleanup()

	c1, err := l.AcquireConn(0)
	if err != nil {
		t.Fatalf("AcquireConn(0): %v", err)
	}
	c2, err := l.AcquireConn(1)
	if err != nil {
		t.Fatalf("AcquireConn(1): %v", err)
	}
	if c1 == c2 {
		t.Fatal("expected distinct connections from Lazy per call")
	}
	l.ReleaseConn(0, c1)
	l.ReleaseConn(1, c2)
}

func TestForKindDefaultsToPreconnect(t *testing.T) {
	if _, ok := ForKind("bogus").(*Preconnect); !ok {
		t.Fatal("expected unknown kind to default to Preconnect")
	}
	if _, ok := ForKind(models.StrategyMultiplexed).(*Preconnect); !ok {
		t.Fatal("expected multiplexed to resolve to a Preconnect-equivalent")
	}
	if _, ok := ForKind(models.StrategyLazy).(*Lazy); !ok {
		t.Fatal("expected lazy kind to resolve to *Lazy")
	}
	if _, ok := ForKind(models.StrategyPooled).(*Pooled); !ok {
		t.Fatal("expected pooled kind to resolve to *Pooled")
	}
}
