// Package transport implements spec.md §4.4's connection strategies: the
// pluggable policies that decide when TCP/TLS connections for a race
// burst get established. Grounded on original_source's
// treco/connection/{base,preconnect,lazy,pooled}.py, translated from the
// Python ABC + per-thread requests.Session model into a Go interface over
// net.Conn (no session/cookie machinery — a race worker sends one raw
// request and never retains state between bursts).
package transport

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"raceforge/internal/models"
)

// Strategy prepares and hands out net.Conn values for a race burst's
// worker threads (spec.md §4.4). Prepare is called once per burst before
// any worker fires; AcquireConn is called by each worker to obtain its
// connection; Cleanup releases whatever Prepare allocated.
type Strategy interface {
	Prepare(ctx context.Context, numThreads int, target models.Target) error
	AcquireConn(threadID int) (net.Conn, error)
	ReleaseConn(threadID int, conn net.Conn)
	Cleanup()
}

// ForKind resolves a models.ConnectionStrategyKind to its Strategy,
// defaulting unknown values to preconnect since it is the only strategy
// that actually achieves the sub-microsecond race window spec.md §4.4
// requires.
func ForKind(kind models.ConnectionStrategyKind) Strategy {
	switch kind {
	case models.StrategyLazy:
		return NewLazy()
	case models.StrategyPooled:
		return NewPooled()
	case models.StrategyMultiplexed:
		// Treated as preconnect-equivalent: genuine HTTP/2 stream
		// multiplexing is deferred pending a connection-strategy
		// redesign, and preconnect already gives every worker its own
		// warm socket.
		return NewMultiplexedEquivalent()
	default:
		return NewPreconnect()
	}
}

func dialOne(ctx context.Context, target models.Target) (net.Conn, error) {
	addr := net.JoinHostPort(target.Host, portString(target))
	timeout := target.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := &net.Dialer{Timeout: timeout}

	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, models.NewError(models.KindHTTPError, "dial %s: %v", addr, err)
	}
	if tc, ok := raw.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	if !target.TLS.Enabled {
		return raw, nil
	}

	cfg := &tls.Config{ServerName: target.Host, InsecureSkipVerify: !target.TLS.VerifyCert}
	if target.TLS.ClientCertFile != "" {
		cert, err := tls.LoadX509KeyPair(target.TLS.ClientCertFile, target.TLS.ClientKeyFile)
		if err != nil {
			raw.Close()
			return nil, models.NewError(models.KindHTTPError, "load client cert: %v", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	tlsConn := tls.Client(raw, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, models.NewError(models.KindHTTPError, "tls handshake: %v", err)
	}
	return tlsConn, nil
}

func portString(target models.Target) string {
	if target.Port != 0 {
		return strconv.Itoa(target.Port)
	}
	if target.TLS.Enabled {
		return "443"
	}
	return "80"
}
