package template

import (
	"testing"

	"raceforge/internal/models"
)

func resolverFromMap(m map[string]models.Value) func(string) (models.Value, bool) {
	return func(name string) (models.Value, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func TestExecuteSubstitutesVariables(t *testing.T) {
	ct := Compile("Hello {{name}}, balance={{balance}}")
	resolve := resolverFromMap(map[string]models.Value{
		"name":    models.StringValue("alice"),
		"balance": models.IntValue(42),
	})
	out, err := ct.Execute(resolve, DefaultFuncs())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "Hello alice, balance=42" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExecuteMissingVariableErrors(t *testing.T) {
	ct := Compile("{{missing}}")
	_, err := ct.Execute(resolverFromMap(nil), DefaultFuncs())
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
}

func TestExecuteFunctionCall(t *testing.T) {
	ct := Compile(`{{base64_encode("abc")}}`)
	out, err := ct.Execute(resolverFromMap(nil), DefaultFuncs())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "YWJj" {
		t.Fatalf("expected base64 of abc, got %q", out)
	}
}

func TestExecuteLenBodyPlaceholderPassesThrough(t *testing.T) {
	ct := Compile("Content-Length: {{len(body)}}")
	out, err := ct.Execute(resolverFromMap(nil), DefaultFuncs())
	if err != nil {
		t.Fatalf("Execute should not error on {{len(body)}}: %v", err)
	}
	if out != "Content-Length: {{len(body)}}" {
		t.Fatalf("expected len(body) placeholder left unresolved, got %q", out)
	}
}

func TestRenderContentLength(t *testing.T) {
	out, ok := RenderContentLength("{{len(body)}}", []byte("hello"))
	if !ok || out != "5" {
		t.Fatalf("expected (5,true), got (%q,%v)", out, ok)
	}
	out, ok = RenderContentLength("not-a-placeholder", []byte("hello"))
	if ok {
		t.Fatalf("expected ok=false for a plain header value, got %q", out)
	}
}

func TestNamesExtractsPlaceholdersNotFunctions(t *testing.T) {
	ct := Compile(`{{user}} {{uuid()}} {{password}}`)
	names := ct.Names()
	if len(names) != 2 || names[0] != "user" || names[1] != "password" {
		t.Fatalf("expected [user password], got %v", names)
	}
}

func TestCompileNoPlaceholdersIsLiteral(t *testing.T) {
	ct := Compile("plain text")
	out, err := ct.Execute(resolverFromMap(nil), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "plain text" {
		t.Fatalf("unexpected output %q", out)
	}
}
