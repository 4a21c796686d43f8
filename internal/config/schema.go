// Package config loads and validates the YAML workflow file spec.md §6
// describes, converting it into the internal/models tree the rest of the
// program operates on. Grounded on pkg/config/config.go's YAMLConfig/
// LoadConfig shape, generalized from a single load-test target into the
// state-graph + race-block schema; the Levenshtein "did you mean" field
// suggestion machinery is carried over from pkg/config/validator.go
// unchanged in spirit.
package config

import (
	"time"
)

// yamlRoot mirrors the on-disk workflow file.
type yamlRoot struct {
	Metadata yamlMetadata          `yaml:"metadata"`
	Target   yamlTarget            `yaml:"target"`
	Metrics  yamlMetrics           `yaml:"metrics,omitempty"`
	Entry    string                `yaml:"entrypoint"`
	Globals  map[string]string     `yaml:"globals,omitempty"`
	States   map[string]yamlState  `yaml:"states"`
}

type yamlMetadata struct {
	Name          string `yaml:"name,omitempty"`
	Version       string `yaml:"version,omitempty"`
	Author        string `yaml:"author,omitempty"`
	Vulnerability string `yaml:"vulnerability,omitempty"`
}

type yamlTarget struct {
	Host           string      `yaml:"host"`
	Port           int         `yaml:"port,omitempty"`
	TLS            yamlTLS     `yaml:"tls,omitempty"`
	ConnectTimeout string      `yaml:"connect_timeout,omitempty"`
	ReadTimeout    string      `yaml:"read_timeout,omitempty"`
}

type yamlTLS struct {
	Enabled        bool   `yaml:"enabled,omitempty"`
	VerifyCert     *bool  `yaml:"verify_cert,omitempty"`
	ClientCertFile string `yaml:"client_cert_file,omitempty"`
	ClientKeyFile  string `yaml:"client_key_file,omitempty"`
}

type yamlMetrics struct {
	Enabled bool `yaml:"enabled,omitempty"`
}

type yamlState struct {
	Description string                      `yaml:"description,omitempty"`
	Request     string                      `yaml:"request,omitempty"`
	Race        *yamlRace                   `yaml:"race,omitempty"`
	Extracts    map[string]yamlExtract      `yaml:"extract,omitempty"`
	Next        []yamlTransition            `yaml:"next,omitempty"`
	Repeat      int                         `yaml:"repeat,omitempty"`
	While       string                      `yaml:"while,omitempty"`
}

type yamlRace struct {
	Threads            int               `yaml:"threads,omitempty"`
	ThreadGroups        []yamlThreadGroup `yaml:"thread_groups,omitempty"`
	SyncMechanism       string            `yaml:"sync_mechanism,omitempty"`
	ConnectionStrategy  string            `yaml:"connection_strategy,omitempty"`
	TimeoutMs           int               `yaml:"timeout_ms,omitempty"`
}

type yamlThreadGroup struct {
	Name      string            `yaml:"name"`
	Threads   int               `yaml:"threads"`
	DelayMs   int               `yaml:"delay_ms,omitempty"`
	Request   string            `yaml:"request,omitempty"`
	Variables map[string]string `yaml:"variables,omitempty"`
}

type yamlExtract struct {
	Type    string `yaml:"type"`
	Pattern string `yaml:"pattern"`
}

type yamlTransition struct {
	When string `yaml:"when,omitempty"`
	Goto string `yaml:"goto"`
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
