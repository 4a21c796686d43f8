package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"raceforge/internal/models"
)

// Preconnect dials every worker's socket (and completes any TLS
// handshake) before the race burst fires, so the only thing left in the
// hot path is writing the templated request — the sub-microsecond race
// window spec.md §4.4 calls for. Grounded on
// treco/connection/preconnect.py's PreconnectStrategy, but replaces its
// incomplete "health-probe then inject socket" sketch with a genuine
// reused TCP/TLS socket per thread (SPEC_FULL.md §4.4 resolves this
// explicitly rather than carrying the original's gap forward).
type Preconnect struct {
	mu    sync.Mutex
	conns []net.Conn
}

func NewPreconnect() *Preconnect {
	return &Preconnect{}
}

func (p *Preconnect) Prepare(ctx context.Context, numThreads int, target models.Target) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.conns = make([]net.Conn, numThreads)
	var wg sync.WaitGroup
	errs := make([]error, numThreads)

	for i := 0; i < numThreads; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			conn, err := dialOne(ctx, target)
			if err != nil {
				errs[idx] = err
				return
			}
			p.conns[idx] = conn
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			p.closeAllLocked()
			return models.NewError(models.KindHTTPError, "preconnect thread %d: %v", i, err)
		}
	}
	return nil
}

func (p *Preconnect) AcquireConn(threadID int) (net.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if threadID < 0 || threadID >= len(p.conns) {
		return nil, fmt.Errorf("thread id %d out of range (max %d)", threadID, len(p.conns)-1)
	}
	return p.conns[threadID], nil
}

func (p *Preconnect) ReleaseConn(threadID int, conn net.Conn) {
	// Ownership stays with Preconnect; Cleanup closes every socket once
	// the burst is done.
}

func (p *Preconnect) Cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeAllLocked()
}

func (p *Preconnect) closeAllLocked() {
	for _, c := range p.conns {
		if c != nil {
			c.Close()
		}
	}
	p.conns = nil
}
