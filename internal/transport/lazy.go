package transport

import (
	"context"
	"net"
	"sync"

	"raceforge/internal/models"
)

// Lazy dials a fresh connection on every AcquireConn call, incurring a
// full TCP/TLS handshake inside the race window. Grounded on
// treco/connection/lazy.py's LazyStrategy; kept as a "poor timing,
// available for comparison" option (spec.md §4.4), never the
// recommended choice for an actual race.
type Lazy struct {
	ctx    context.Context
	target models.Target

	mu    sync.Mutex
	conns map[int]net.Conn
}

func NewLazy() *Lazy {
	return &Lazy{conns: make(map[int]net.Conn)}
}

func (l *Lazy) Prepare(ctx context.Context, numThreads int, target models.Target) error {
	l.ctx = ctx
	l.target = target
	return nil
}

func (l *Lazy) AcquireConn(threadID int) (net.Conn, error) {
	conn, err := dialOne(l.ctx, l.target)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.conns[threadID] = conn
	l.mu.Unlock()
	return conn, nil
}

func (l *Lazy) ReleaseConn(threadID int, conn net.Conn) {
	l.mu.Lock()
	delete(l.conns, threadID)
	l.mu.Unlock()
	conn.Close()
}

func (l *Lazy) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.conns {
		c.Close()
	}
	l.conns = make(map[int]net.Conn)
}
