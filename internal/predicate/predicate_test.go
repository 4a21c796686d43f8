package predicate

import (
	"testing"

	"raceforge/internal/models"
)

func resolverFromMap(m map[string]models.Value) Resolver {
	return func(name string) (models.Value, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func TestEvalEmptyIsTruthy(t *testing.T) {
	ok, err := Eval("", resolverFromMap(nil))
	if err != nil || !ok {
		t.Fatalf("expected (true,nil), got (%v,%v)", ok, err)
	}
}

func TestEvalNumericComparison(t *testing.T) {
	resolve := resolverFromMap(map[string]models.Value{
		"balance": models.IntValue(100),
	})
	ok, err := Eval("balance > 50", resolve)
	if err != nil || !ok {
		t.Fatalf("expected true, got (%v,%v)", ok, err)
	}
	ok, err = Eval("balance <= 50", resolve)
	if err != nil || ok {
		t.Fatalf("expected false, got (%v,%v)", ok, err)
	}
}

func TestEvalStringEquality(t *testing.T) {
	resolve := resolverFromMap(map[string]models.Value{
		"status": models.StringValue("ok"),
	})
	ok, err := Eval(`status == "ok"`, resolve)
	if err != nil || !ok {
		t.Fatalf("expected true, got (%v,%v)", ok, err)
	}
}

func TestEvalContainsAndMatches(t *testing.T) {
	resolve := resolverFromMap(map[string]models.Value{
		"body": models.StringValue("hello world"),
	})
	ok, err := Eval(`body contains "world"`, resolve)
	if err != nil || !ok {
		t.Fatalf("contains: expected true, got (%v,%v)", ok, err)
	}
	ok, err = Eval(`body matches "^hello"`, resolve)
	if err != nil || !ok {
		t.Fatalf("matches: expected true, got (%v,%v)", ok, err)
	}
}

func TestEvalAndOrNotParens(t *testing.T) {
	resolve := resolverFromMap(map[string]models.Value{
		"a": models.IntValue(1),
		"b": models.IntValue(0),
	})
	ok, err := Eval("(a == 1 and b == 0) or false", resolve)
	if err != nil || !ok {
		t.Fatalf("expected true, got (%v,%v)", ok, err)
	}
	ok, err = Eval("not (a == 0)", resolve)
	if err != nil || !ok {
		t.Fatalf("expected true, got (%v,%v)", ok, err)
	}
}

func TestEvalAbsentVariableEqualityIsFalseUnlessBothAbsent(t *testing.T) {
	ok, err := Eval("missing == 1", resolverFromMap(nil))
	if err != nil || ok {
		t.Fatalf("expected false comparing absent to a literal, got (%v,%v)", ok, err)
	}
	ok, err = Eval("missing != 1", resolverFromMap(nil))
	if err != nil || !ok {
		t.Fatalf("expected true for != against absent, got (%v,%v)", ok, err)
	}
}

func TestEvalTrailingGarbageErrors(t *testing.T) {
	_, err := Eval("a == 1 )", resolverFromMap(map[string]models.Value{"a": models.IntValue(1)}))
	if err == nil {
		t.Fatal("expected error on unbalanced trailing input")
	}
}
