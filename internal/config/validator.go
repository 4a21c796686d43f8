package config

import (
	"fmt"
	"strings"

	"raceforge/internal/models"
	"raceforge/internal/template"
)

// ValidationError is a single validation failure with actionable context,
// carried over from pkg/config/validator.go's ValidationError shape.
type ValidationError struct {
	Field      string
	Message    string
	Hint       string
	DidYouMean string
}

// ValidationResult accumulates every error found in one pass, so a user
// sees all problems in a config at once rather than one-at-a-time.
type ValidationResult struct {
	Errors []ValidationError
}

func (v *ValidationResult) Add(e ValidationError) { v.Errors = append(v.Errors, e) }
func (v *ValidationResult) HasErrors() bool        { return len(v.Errors) > 0 }

// FormatErrors renders all accumulated errors as a single multi-line
// message (spec.md §7's ConfigError carries the full list).
func (v *ValidationResult) FormatErrors() string {
	var sb strings.Builder
	sb.WriteString("configuration errors:\n")
	for i, e := range v.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s", i+1, e.Field, e.Message))
		if e.DidYouMean != "" {
			sb.WriteString(fmt.Sprintf(" (did you mean %q?)", e.DidYouMean))
		}
		if e.Hint != "" {
			sb.WriteString(fmt.Sprintf(" — %s", e.Hint))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

var topLevelFields = []string{"metadata", "target", "metrics", "entrypoint", "globals", "states"}
var targetFields = []string{"host", "port", "tls", "connect_timeout", "read_timeout"}
var stateFields = []string{"description", "request", "race", "extract", "next", "repeat", "while"}
var raceFields = []string{"threads", "thread_groups", "sync_mechanism", "connection_strategy", "timeout_ms"}

// checkUnknownFields walks the generically-decoded YAML document and
// flags keys that aren't in the schema, suggesting the closest known
// field name (pkg/config/validator.go's FindClosestMatch, generalized
// from a flat target/load/steps document into this schema's nesting).
func checkUnknownFields(doc map[string]any, result *ValidationResult) {
	checkKeys("", doc, topLevelFields, result)

	if target, ok := doc["target"].(map[string]any); ok {
		checkKeys("target", target, targetFields, result)
	}

	if states, ok := doc["states"].(map[string]any); ok {
		for name, raw := range states {
			st, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			prefix := fmt.Sprintf("states.%s", name)
			checkKeys(prefix, st, stateFields, result)
			if race, ok := st["race"].(map[string]any); ok {
				checkKeys(prefix+".race", race, raceFields, result)
			}
		}
	}
}

func checkKeys(prefix string, doc map[string]any, known []string, result *ValidationResult) {
	for key := range doc {
		if contains(known, key) {
			continue
		}
		field := key
		if prefix != "" {
			field = prefix + "." + key
		}
		result.Add(ValidationError{
			Field:      field,
			Message:    "unknown field",
			DidYouMean: findClosestMatch(key, known),
		})
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// findClosestMatch returns the nearest known field name by edit distance,
// or "" if nothing is close enough to be a useful suggestion.
func findClosestMatch(input string, options []string) string {
	best := ""
	bestDist := 1 << 30
	for _, opt := range options {
		d := levenshteinDistance(strings.ToLower(input), opt)
		if d < bestDist && d <= len(opt)/2+1 {
			bestDist = d
			best = opt
		}
	}
	if strings.EqualFold(input, best) {
		return ""
	}
	return best
}

func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			matrix[i][j] = minOf3(matrix[i-1][j]+1, matrix[i][j-1]+1, matrix[i-1][j-1]+cost)
		}
	}
	return matrix[len(a)][len(b)]
}

func minOf3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// validateRoot applies structural invariants beyond field spelling:
// required fields, the mutually exclusive race forms, and loop metadata
// (spec.md §3, §9's resolved Open Question on threads+thread_groups).
func validateRoot(root *yamlRoot, result *ValidationResult) {
	if root.Target.Host == "" {
		result.Add(ValidationError{Field: "target.host", Message: "is required", Hint: "set the target server's hostname or IP"})
	}
	if root.Entry == "" {
		result.Add(ValidationError{Field: "entrypoint", Message: "is required"})
	} else if _, ok := root.States[root.Entry]; !ok {
		result.Add(ValidationError{Field: "entrypoint", Message: fmt.Sprintf("references unknown state %q", root.Entry)})
	}
	if len(root.States) == 0 {
		result.Add(ValidationError{Field: "states", Message: "must define at least one state"})
	}

	for name, st := range root.States {
		field := fmt.Sprintf("states.%s", name)

		hasRequest := st.Request != ""
		hasRace := st.Race != nil
		if !hasRequest && !hasRace {
			result.Add(ValidationError{Field: field, Message: "must set either request or race"})
		}

		if st.Race != nil {
			raceField := field + ".race"
			if st.Race.Threads > 0 && len(st.Race.ThreadGroups) > 0 {
				result.Add(ValidationError{
					Field:   raceField,
					Message: "threads and thread_groups are mutually exclusive",
					Hint:    "use thread_groups for named per-group control, or threads for a single uniform burst, never both",
				})
			}
			if st.Race.Threads == 0 && len(st.Race.ThreadGroups) == 0 {
				result.Add(ValidationError{Field: raceField, Message: "must set threads or thread_groups"})
			}
			if st.Race.Threads > 0 && st.Request == "" {
				result.Add(ValidationError{Field: raceField, Message: "threads form requires the state's request field"})
			}
			for _, g := range st.Race.ThreadGroups {
				if g.Threads <= 0 {
					result.Add(ValidationError{Field: raceField + ".thread_groups." + g.Name, Message: "threads must be positive"})
				}
				if g.Request == "" && st.Request == "" {
					result.Add(ValidationError{Field: raceField + ".thread_groups." + g.Name, Message: "needs its own request or a shared state-level request"})
				}
			}
			if st.Race.SyncMechanism != "" && st.Race.SyncMechanism != "barrier" && st.Race.SyncMechanism != "send_all_first" {
				result.Add(ValidationError{Field: raceField + ".sync_mechanism", Message: "must be \"barrier\" or \"send_all_first\""})
			}
		}

		if st.Repeat > 0 && st.While != "" {
			result.Add(ValidationError{Field: field, Message: "repeat and while are mutually exclusive loop forms"})
		}

		for _, t := range st.Next {
			if _, ok := root.States[t.Goto]; !ok {
				result.Add(ValidationError{Field: field + ".next", Message: fmt.Sprintf("goto references unknown state %q", t.Goto)})
			}
		}

		for extractName := range st.Extracts {
			if models.ReservedNames[extractName] {
				result.Add(ValidationError{Field: field + ".extract." + extractName, Message: "shadows a reserved variable name"})
			}
		}
	}
}

// alwaysKnownNames covers the bindings cmd/raceforge seeds outside of
// globals/extracts from the --user/--password/--seed flags (and the
// PASSWORD env var) when they are given. They are accepted here even
// though they aren't written into the YAML; the reserved per-state
// bindings are added separately from models.ReservedNames.
var alwaysKnownNames = map[string]bool{
	"user": true, "password": true, "totp_seed": true,
}

// validateTemplateVariables implements spec.md §6's "unspecified variables
// referenced by templates fail config validation eagerly": every {{name}}
// placeholder in a request/predicate/while must resolve to a global, an
// extract produced by some state, a thread-group variable override, or one
// of the always-known CLI-seeded names — otherwise the workflow can never
// render that placeholder at runtime.
func validateTemplateVariables(root *yamlRoot, result *ValidationResult) {
	known := map[string]bool{}
	for k := range alwaysKnownNames {
		known[k] = true
	}
	for k := range models.ReservedNames {
		known[k] = true
	}
	for k := range root.Globals {
		known[k] = true
	}
	for _, st := range root.States {
		for name := range st.Extracts {
			known[name] = true
		}
		if st.Race != nil {
			for _, g := range st.Race.ThreadGroups {
				for k := range g.Variables {
					known[k] = true
				}
			}
		}
	}

	check := func(field, raw string) {
		if raw == "" {
			return
		}
		for _, name := range template.Compile(raw).Names() {
			if !known[name] {
				result.Add(ValidationError{
					Field:   field,
					Message: fmt.Sprintf("template references undefined variable %q", name),
					Hint:    "define it in globals, extract it in an earlier state, or pass it via --user/--password/--seed",
				})
			}
		}
	}

	for name, st := range root.States {
		field := fmt.Sprintf("states.%s", name)
		check(field+".request", st.Request)
		check(field+".while", st.While)
		if st.Race != nil {
			for _, g := range st.Race.ThreadGroups {
				check(field+".race.thread_groups."+g.Name+".request", g.Request)
			}
		}
		for _, t := range st.Next {
			check(field+".next.when", t.When)
		}
	}
}
