package extract

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"raceforge/internal/models"
)

// bracketIndex matches "[N]" array indices, which are rewritten into
// gjson's ".N" form before lookup.
var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// JSONPathExtractor navigates the parsed body by dotted path
// (e.g. "a.b[0].c", equivalently "a.b.0.c") using gjson and returns the
// JSON-native typed value. A missing path yields models.Absent rather
// than an error.
type JSONPathExtractor struct{}

func (JSONPathExtractor) Extract(resp *models.Response, path string) (models.Value, error) {
	path = strings.TrimPrefix(bracketIndex.ReplaceAllString(path, ".$1"), ".")
	result := gjson.GetBytes(resp.Body, path)
	if !result.Exists() {
		return models.Absent, nil
	}

	switch result.Type {
	case gjson.True:
		return models.BoolValue(true), nil
	case gjson.False:
		return models.BoolValue(false), nil
	case gjson.Number:
		// gjson.Result.Num is always a float64; keep integers as ints when
		// the raw text has no fractional part so downstream template
		// rendering doesn't grow a trailing ".0".
		if isWholeNumberLiteral(result.Raw) {
			return models.IntValue(result.Int()), nil
		}
		return models.FloatValue(result.Num), nil
	case gjson.String:
		return models.StringValue(result.Str), nil
	case gjson.Null:
		return models.Absent, nil
	default:
		// Objects/arrays extract as their compact JSON text.
		return models.StringValue(result.Raw), nil
	}
}

func isWholeNumberLiteral(raw string) bool {
	for _, r := range raw {
		if r == '.' || r == 'e' || r == 'E' {
			return false
		}
	}
	return len(raw) > 0
}
