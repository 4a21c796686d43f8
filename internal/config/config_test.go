package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadValidWorkflow(t *testing.T) {
	path := writeConfig(t, `
target:
  host: example.com
  port: 8080
entrypoint: login
globals:
  user: alice
states:
  login:
    request: |
      POST /login HTTP/1.1

      {{user}}
    extract:
      token:
        type: jpath
        pattern: token
    next:
      - goto: race
  race:
    race:
      threads: 4
      sync_mechanism: barrier
      connection_strategy: preconnect
    request: |
      GET /redeem HTTP/1.1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Entrypoint != "login" {
		t.Fatalf("expected entrypoint=login, got %q", cfg.Entrypoint)
	}
	if cfg.Globals["user"].String() != "alice" {
		t.Fatalf("expected globals.user=alice, got %v", cfg.Globals["user"])
	}
	if st := cfg.States["race"]; st.Race == nil || st.Race.Threads != 4 {
		t.Fatalf("expected race state with threads=4, got %+v", st.Race)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, `
target:
  host: example.com
entrypoint: a
states:
  a:
    request: "GET / HTTP/1.1"
    bogus_field: 1
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestLoadRejectsMutuallyExclusiveRaceForms(t *testing.T) {
	path := writeConfig(t, `
target:
  host: example.com
entrypoint: a
states:
  a:
    request: "GET / HTTP/1.1"
    race:
      threads: 2
      thread_groups:
        - name: g1
          threads: 1
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected mutually exclusive error, got %v", err)
	}
}

func TestLoadRejectsUnknownEntrypoint(t *testing.T) {
	path := writeConfig(t, `
target:
  host: example.com
entrypoint: missing
states:
  a:
    request: "GET / HTTP/1.1"
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "entrypoint") {
		t.Fatalf("expected entrypoint error, got %v", err)
	}
}

func TestLoadRejectsUndefinedTemplateVariable(t *testing.T) {
	path := writeConfig(t, `
target:
  host: example.com
entrypoint: a
states:
  a:
    request: |
      GET /?token={{mystery_var}} HTTP/1.1
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "undefined variable") {
		t.Fatalf("expected undefined variable error, got %v", err)
	}
}

func TestLoadAllowsCLISeededNamesWithoutGlobals(t *testing.T) {
	path := writeConfig(t, `
target:
  host: example.com
entrypoint: a
states:
  a:
    request: |
      POST /login HTTP/1.1

      user={{user}}&pass={{password}}&totp={{totp_seed}}
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("expected CLI-seeded names to validate, got %v", err)
	}
}

func TestLoadAllowsExtractedVariableReferencedLater(t *testing.T) {
	path := writeConfig(t, `
target:
  host: example.com
entrypoint: a
states:
  a:
    request: "GET /token HTTP/1.1"
    extract:
      token:
        type: jpath
        pattern: token
    next:
      - goto: b
  b:
    request: |
      GET /use?token={{token}} HTTP/1.1
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("expected extracted variable to validate, got %v", err)
	}
}
