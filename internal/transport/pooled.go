package transport

import (
	"context"
	"net"
	"sync"

	"raceforge/internal/models"
)

// poolSize caps the shared pool at min(numThreads, 5), matching the
// original's hardcoded pool_size bound in treco/connection/pooled.py.
const poolSize = 5

// Pooled shares a pool of M = min(N, 5) connections across N worker
// threads: a thread blocks on the pool channel until a connection frees
// up, which serializes bursts in groups of M and defeats genuine race
// timing. Grounded on treco/connection/pooled.py's PooledStrategy (its
// own docstring calls this "NOT RECOMMENDED for race attacks") — kept as
// a real serialized baseline to contrast against preconnect.
type Pooled struct {
	pool chan net.Conn
	size int
}

func NewPooled() *Pooled {
	return &Pooled{}
}

func (p *Pooled) Prepare(ctx context.Context, numThreads int, target models.Target) error {
	p.size = numThreads
	if p.size > poolSize {
		p.size = poolSize
	}
	p.pool = make(chan net.Conn, p.size)

	var wg sync.WaitGroup
	errs := make([]error, p.size)
	conns := make([]net.Conn, p.size)

	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			conn, err := dialOne(ctx, target)
			if err != nil {
				errs[idx] = err
				return
			}
			conns[idx] = conn
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			for _, c := range conns {
				if c != nil {
					c.Close()
				}
			}
			return models.NewError(models.KindHTTPError, "pooled connection %d: %v", i, err)
		}
	}
	for _, c := range conns {
		p.pool <- c
	}
	return nil
}

// AcquireConn blocks until a pooled connection is available — a
// deliberate contrast to preconnect's warm-socket-per-worker model
// (spec.md §4.4).
func (p *Pooled) AcquireConn(threadID int) (net.Conn, error) {
	return <-p.pool, nil
}

func (p *Pooled) ReleaseConn(threadID int, conn net.Conn) {
	p.pool <- conn
}

func (p *Pooled) Cleanup() {
	if p.pool == nil {
		return
	}
	close(p.pool)
	for c := range p.pool {
		c.Close()
	}
}
