// Package models defines the typed, in-memory representation of a race
// workflow: the configuration tree produced by internal/config, the
// execution trace produced by internal/orchestrator, and the race-burst
// results produced by internal/racer.
package models

import "time"

// Config is the root of a loaded workflow. It is immutable after load.
type Config struct {
	Metadata   Metadata
	Target     Target
	Entrypoint string
	States     map[string]*State
	Globals    map[string]Value

	Metrics MetricsConfig
}

// Metadata carries free-text identification for a workflow.
type Metadata struct {
	Name          string
	Version       string
	Author        string
	Vulnerability string // e.g. "CWE-362"
}

// Target describes the server under test.
type Target struct {
	Host string
	Port int
	TLS  TLSConfig

	ConnectTimeout time.Duration // default 10s
	ReadTimeout    time.Duration // default 30s
}

// TLSConfig controls TLS dialing for the target.
type TLSConfig struct {
	Enabled        bool
	VerifyCert     bool
	ClientCertFile string
	ClientKeyFile  string
}

// MetricsConfig controls the optional metrics registry (spec.md §4.8).
type MetricsConfig struct {
	Enabled bool
}

// State is one node of the workflow graph.
type State struct {
	Name        string
	Description string

	// Request is sent as a single request when Race is nil. When Race is
	// set, Request is the shared template for the threads form and the
	// fallback for thread groups that have no request of their own.
	Request string
	Race    *RaceConfig

	Extracts map[string]ExtractPattern
	Next     []Transition

	// Loop metadata. At most one of Repeat / While is meaningful.
	Repeat int
	While  string

	// Index is the state's position in name-sorted order, assigned once at
	// load time. The orchestrator does not use it: it looks states up by
	// name in Config.States on every transition.
	Index int
}

// HasLoop reports whether the state carries loop metadata.
func (s *State) HasLoop() bool {
	return s.Repeat > 0 || s.While != ""
}

// ExtractPattern names the extractor to run and the pattern it consumes.
type ExtractPattern struct {
	PatternType string // "regex" | "jpath"
	PatternData string
}

// Transition is a (predicate, next-state) pair evaluated in declaration
// order; an empty Predicate is always truthy.
type Transition struct {
	Predicate string
	Goto      string
}

// SyncMechanism selects how a race burst releases its workers.
type SyncMechanism string

const (
	SyncBarrier       SyncMechanism = "barrier"
	SyncSendAllFirst  SyncMechanism = "send_all_first"
)

// ConnectionStrategyKind selects a transport.Strategy implementation.
type ConnectionStrategyKind string

const (
	StrategyPreconnect  ConnectionStrategyKind = "preconnect"
	StrategyLazy        ConnectionStrategyKind = "lazy"
	StrategyPooled      ConnectionStrategyKind = "pooled"
	StrategyMultiplexed ConnectionStrategyKind = "multiplexed"
)

// RaceConfig describes a burst of simultaneous requests.
//
// Either Threads>0 (legacy form, sharing the owning State's Request) or
// ThreadGroups is non-empty (grouped form) — never both; internal/config
// rejects configs that set both at load time (spec.md §9, Open Questions).
type RaceConfig struct {
	Threads int

	ThreadGroups []ThreadGroup

	SyncMechanism      SyncMechanism
	ConnectionStrategy ConnectionStrategyKind

	TimeoutMs int // burst-wide deadline, default 30000
}

// TotalThreads returns the number of workers this race burst will spawn.
func (r *RaceConfig) TotalThreads() int {
	if len(r.ThreadGroups) > 0 {
		total := 0
		for _, g := range r.ThreadGroups {
			total += g.Threads
		}
		return total
	}
	return r.Threads
}

// ThreadGroup is a named sub-collection of workers sharing a request
// template and an optional release offset relative to the global barrier.
type ThreadGroup struct {
	Name      string
	Threads   int
	DelayMs   int
	Request   string
	Variables map[string]string
}

// Reserved variable-context names that extracts must not shadow (spec.md §3
// invariants).
var ReservedNames = map[string]bool{
	"__iter__":       true,
	"__status__":     true,
	"__elapsed_ms__": true,
	"__race_results__": true,
}
