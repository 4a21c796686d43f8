package transport

// NewMultiplexedEquivalent exists so call sites and logs can name the
// configured strategy accurately even though, pending the connection
// strategy redesign spec.md §9's Open Questions calls for, multiplexed
// currently dials one dedicated socket per worker exactly like
// Preconnect rather than sharing HTTP/2 streams over a single
// connection. ForKind routes models.StrategyMultiplexed here.
func NewMultiplexedEquivalent() *Preconnect {
	return NewPreconnect()
}
