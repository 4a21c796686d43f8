package extract

import (
	"testing"

	"raceforge/internal/models"
)

func TestForPatternTypeUnknown(t *testing.T) {
	if _, err := ForPatternType("xpath"); err == nil {
		t.Fatal("expected error for unknown pattern type")
	}
}

func TestRegexExtractorCapturesGroup(t *testing.T) {
	resp := &models.Response{Body: []byte(`balance: 42 dollars`)}
	ex := RegexExtractor{}

	v, err := ex.Extract(resp, `balance: (\d+)`)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if v.Kind != models.KindInt || v.String() != "42" {
		t.Fatalf("expected int 42, got %v", v)
	}
}

func TestRegexExtractorNoMatchIsAbsent(t *testing.T) {
	resp := &models.Response{Body: []byte(`nothing here`)}
	v, err := RegexExtractor{}.Extract(resp, `balance: (\d+)`)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !v.IsAbsent() {
		t.Fatalf("expected Absent, got %v", v)
	}
}

func TestRegexExtractorInvalidPatternErrors(t *testing.T) {
	resp := &models.Response{Body: []byte(`x`)}
	_, err := RegexExtractor{}.Extract(resp, `(unterminated`)
	if err == nil {
		t.Fatal("expected error for invalid regex")
	}
}

func TestJSONPathExtractorTypes(t *testing.T) {
	resp := &models.Response{Body: []byte(`{"a":{"b":[1,2,3]},"s":"hi","f":1.5,"t":true,"n":null}`)}
	ex := JSONPathExtractor{}

	if v, _ := ex.Extract(resp, "a.b.1"); v.String() != "2" {
		t.Fatalf("expected array index 1 = 2, got %v", v)
	}
	if v, _ := ex.Extract(resp, "s"); v.Kind != models.KindString || v.String() != "hi" {
		t.Fatalf("expected string hi, got %v", v)
	}
	if v, _ := ex.Extract(resp, "f"); v.Kind != models.KindFloat {
		t.Fatalf("expected float kind, got %v", v.Kind)
	}
	if v, _ := ex.Extract(resp, "t"); v.Kind != models.KindBool {
		t.Fatalf("expected bool kind, got %v", v.Kind)
	}
	if v, _ := ex.Extract(resp, "n"); !v.IsAbsent() {
		t.Fatalf("expected null to map to Absent, got %v", v)
	}
	if v, _ := ex.Extract(resp, "missing.path"); !v.IsAbsent() {
		t.Fatalf("expected missing path to map to Absent, got %v", v)
	}
}

func TestExtractAllCollectsNamedValues(t *testing.T) {
	resp := &models.Response{Body: []byte(`{"token":"abc123"}`)}
	patterns := map[string]models.ExtractPattern{
		"token": {PatternType: "jpath", PatternData: "token"},
	}
	out, err := ExtractAll(resp, patterns)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if out["token"].String() != "abc123" {
		t.Fatalf("expected token=abc123, got %v", out["token"])
	}
}

func TestExtractAllPropagatesStructuralErrors(t *testing.T) {
	resp := &models.Response{Body: []byte(`x`)}
	patterns := map[string]models.ExtractPattern{
		"bad": {PatternType: "regex", PatternData: "(unterminated"},
	}
	if _, err := ExtractAll(resp, patterns); err == nil {
		t.Fatal("expected ExtractAll to propagate a malformed-regex error")
	}
}
