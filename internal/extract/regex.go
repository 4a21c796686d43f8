package extract

import (
	"regexp"

	"raceforge/internal/models"
)

// RegexExtractor searches the response body for a pattern, returning
// group 1 if the pattern has a capture group, else the whole match, then
// coercing the matched string boolean -> integer -> float -> string
// (spec.md §4.2), the same coercion order internal/validator/assertions.go
// and the original RegExExtractor's _convert_type both apply.
type RegexExtractor struct{}

func (RegexExtractor) Extract(resp *models.Response, pattern string) (models.Value, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return models.Absent, models.NewError(models.KindExtractError, "invalid regex %q: %v", pattern, err)
	}

	match := re.FindSubmatch(resp.Body)
	if match == nil {
		return models.Absent, nil
	}

	var raw string
	if len(match) > 1 {
		raw = string(match[1])
	} else {
		raw = string(match[0])
	}

	return models.ValueFromCoercedString(raw), nil
}
