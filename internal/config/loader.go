package config

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"raceforge/internal/models"
)

// Load reads path, validates it, and returns the populated models.Config.
// All errors returned are models.WorkflowError with Kind ConfigError
// (spec.md §7).
func Load(path string) (*models.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewError(models.KindConfigError, "read %s: %v", path, err)
	}

	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, models.NewError(models.KindConfigError, "parse %s: %v", path, err)
	}

	var root yamlRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, models.NewError(models.KindConfigError, "parse %s: %v", path, err)
	}

	result := &ValidationResult{}
	checkUnknownFields(generic, result)
	validateRoot(&root, result)
	validateTemplateVariables(&root, result)

	if result.HasErrors() {
		return nil, models.NewError(models.KindConfigError, "%s", result.FormatErrors())
	}

	return toModel(&root), nil
}

func toModel(root *yamlRoot) *models.Config {
	cfg := &models.Config{
		Metadata: models.Metadata{
			Name:          root.Metadata.Name,
			Version:       root.Metadata.Version,
			Author:        root.Metadata.Author,
			Vulnerability: root.Metadata.Vulnerability,
		},
		Target: models.Target{
			Host: root.Target.Host,
			Port: root.Target.Port,
			TLS: models.TLSConfig{
				Enabled:        root.Target.TLS.Enabled,
				VerifyCert:     verifyCertDefault(root.Target.TLS.VerifyCert),
				ClientCertFile: root.Target.TLS.ClientCertFile,
				ClientKeyFile:  root.Target.TLS.ClientKeyFile,
			},
			ConnectTimeout: parseDuration(root.Target.ConnectTimeout, 10_000_000_000),
			ReadTimeout:    parseDuration(root.Target.ReadTimeout, 30_000_000_000),
		},
		Entrypoint: root.Entry,
		States:     make(map[string]*models.State, len(root.States)),
		Globals:    make(map[string]models.Value, len(root.Globals)),
		Metrics:    models.MetricsConfig{Enabled: root.Metrics.Enabled},
	}

	for k, v := range root.Globals {
		cfg.Globals[k] = models.ValueFromCoercedString(v)
	}

	names := make([]string, 0, len(root.States))
	for name := range root.States {
		names = append(names, name)
	}
	sort.Strings(names)

	for idx, name := range names {
		ys := root.States[name]
		st := &models.State{
			Name:        name,
			Description: ys.Description,
			Request:     ys.Request,
			Extracts:    make(map[string]models.ExtractPattern, len(ys.Extracts)),
			Repeat:      ys.Repeat,
			While:       ys.While,
			Index:       idx,
		}
		if ys.Race != nil {
			st.Race = &models.RaceConfig{
				Threads:            ys.Race.Threads,
				SyncMechanism:      models.SyncMechanism(orDefault(ys.Race.SyncMechanism, string(models.SyncBarrier))),
				ConnectionStrategy: models.ConnectionStrategyKind(orDefault(ys.Race.ConnectionStrategy, string(models.StrategyPreconnect))),
				TimeoutMs:          orDefaultInt(ys.Race.TimeoutMs, 30000),
			}
			for _, g := range ys.Race.ThreadGroups {
				st.Race.ThreadGroups = append(st.Race.ThreadGroups, models.ThreadGroup{
					Name:      g.Name,
					Threads:   g.Threads,
					DelayMs:   g.DelayMs,
					Request:   g.Request,
					Variables: g.Variables,
				})
			}
		}
		for name, ex := range ys.Extracts {
			st.Extracts[name] = models.ExtractPattern{PatternType: ex.Type, PatternData: ex.Pattern}
		}
		for _, t := range ys.Next {
			st.Next = append(st.Next, models.Transition{Predicate: t.When, Goto: t.Goto})
		}
		cfg.States[name] = st
	}

	return cfg
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// verifyCertDefault makes verify_cert default to true (certificate
// checking on) when the key is absent, distinguishing "omitted" from
// "explicitly false" via the schema's *bool field.
func verifyCertDefault(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}
