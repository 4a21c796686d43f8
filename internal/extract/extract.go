// Package extract implements the pluggable response-data extractors of
// spec.md §4.2: a closed tagged variant {Regex, JSONPath} in place of a
// runtime class registry. Grounded on the regex/gjson assertion handling
// this was adapted from, and on the matched extractor type-coercion
// contract (boolean -> integer -> float -> string).
package extract

import (
	"raceforge/internal/models"
)

// Extractor consumes a response and a pattern_data string, returning a
// single value or models.Absent (spec.md §4.2).
type Extractor interface {
	Extract(resp *models.Response, patternData string) (models.Value, error)
}

// ForPatternType resolves a pattern_type to its Extractor, returning
// UnknownExtractorError for anything else (spec.md §4.2).
func ForPatternType(patternType string) (Extractor, error) {
	switch patternType {
	case "regex":
		return RegexExtractor{}, nil
	case "jpath", "json_path", "jsonpath":
		return JSONPathExtractor{}, nil
	default:
		return nil, models.NewError(models.KindUnknownExtractor, "unknown pattern_type %q", patternType)
	}
}

// ExtractAll runs every named pattern against a response and returns a
// name->value mapping. Absent values are kept (not omitted) so that
// predicates can test presence, per spec.md §4.2.
func ExtractAll(resp *models.Response, patterns map[string]models.ExtractPattern) (map[string]models.Value, error) {
	out := make(map[string]models.Value, len(patterns))
	for name, pattern := range patterns {
		ex, err := ForPatternType(pattern.PatternType)
		if err != nil {
			return nil, err
		}
		v, err := ex.Extract(resp, pattern.PatternData)
		if err != nil {
			// A non-match is not an error (spec.md §7: downgraded to a
			// warning elsewhere); only structural errors (e.g. a malformed
			// regex) propagate.
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}
