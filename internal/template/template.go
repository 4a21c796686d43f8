// Package template implements the {{var}} substitution engine of
// spec.md §4.1. It generalizes internal/attacker/template.go's two-phase
// compile/execute split: Compile parses a template string into a
// CompiledTemplate and Execute substitutes into it. internal/config
// compiles every template at load time to validate its names; the
// orchestrator and race dispatcher compile again each time they render
// a request.
package template

import (
	"strconv"
	"strings"

	"raceforge/internal/models"
)

// part is either a static literal or a {{ref}} placeholder.
type part struct {
	isLiteral bool
	literal   string
	ref       string
}

// CompiledTemplate is a pre-parsed template ready for fast substitution.
type CompiledTemplate struct {
	parts   []part
	hasVars bool
	raw     string
}

// Compile parses a template string once. Unterminated "{{" is treated as
// a literal rather than a parse error.
func Compile(input string) *CompiledTemplate {
	if strings.IndexByte(input, '{') == -1 || !strings.Contains(input, "{{") {
		return &CompiledTemplate{parts: []part{{isLiteral: true, literal: input}}, raw: input}
	}

	ct := &CompiledTemplate{hasVars: true, raw: input}
	remaining := input
	for {
		start := strings.Index(remaining, "{{")
		if start == -1 {
			if remaining != "" {
				ct.parts = append(ct.parts, part{isLiteral: true, literal: remaining})
			}
			break
		}
		if start > 0 {
			ct.parts = append(ct.parts, part{isLiteral: true, literal: remaining[:start]})
		}
		afterOpen := remaining[start+2:]
		end := strings.Index(afterOpen, "}}")
		if end == -1 {
			ct.parts = append(ct.parts, part{isLiteral: true, literal: remaining[start:]})
			break
		}
		ref := strings.TrimSpace(afterOpen[:end])
		ct.parts = append(ct.parts, part{ref: ref})
		remaining = afterOpen[end+2:]
	}
	return ct
}

// Names returns every placeholder referenced by the template, in order of
// first appearance — used by internal/config to validate that every name
// is either a built-in function call or resolvable from globals/variables
// at load time (spec.md §6: "Unspecified variables referenced by
// templates fail config validation eagerly").
func (ct *CompiledTemplate) Names() []string {
	var names []string
	seen := map[string]bool{}
	for _, p := range ct.parts {
		if p.isLiteral {
			continue
		}
		name := p.ref
		if idx := strings.IndexByte(name, '('); idx != -1 {
			continue // function call, not a variable reference
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// missingNameError builds the error Execute returns when a referenced
// variable name has no binding — spec.md §4.1: "Unknown names fail with
// TemplateError."
func missingNameError(name string) error {
	return models.NewError(models.KindTemplateError, "unknown variable %q", name)
}

// Execute renders the template against a snapshot-like resolver. fns
// supplies the built-in/derived function table (internal/template/funcs.go).
func (ct *CompiledTemplate) Execute(resolve func(name string) (models.Value, bool), fns FuncMap) (string, error) {
	if !ct.hasVars {
		return ct.parts[0].literal, nil
	}

	literalLen := 0
	for _, p := range ct.parts {
		if p.isLiteral {
			literalLen += len(p.literal)
		}
	}

	var sb strings.Builder
	sb.Grow(literalLen + 64)

	for _, p := range ct.parts {
		if p.isLiteral {
			sb.WriteString(p.literal)
			continue
		}
		if p.ref == "len(body)" {
			// Left unresolved here: the body this placeholder measures
			// hasn't been rendered yet if it appears earlier in the blob
			// (e.g. a Content-Length header above the body). RenderContentLength
			// fills it in once the full request has been parsed.
			sb.WriteString("{{len(body)}}")
			continue
		}
		if idx := strings.IndexByte(p.ref, '('); idx != -1 && strings.HasSuffix(p.ref, ")") {
			funcName := strings.TrimSpace(p.ref[:idx])
			argStr := p.ref[idx+1 : len(p.ref)-1]
			f, ok := fns[funcName]
			if !ok {
				return "", models.NewError(models.KindTemplateError, "unknown function %q", funcName)
			}
			sb.WriteString(f(parseArgs(argStr)))
			continue
		}
		v, ok := resolve(p.ref)
		if !ok {
			return "", missingNameError(p.ref)
		}
		sb.WriteString(v.String())
	}
	return sb.String(), nil
}

// RenderContentLength implements spec.md §4.1's dedicated Content-Length
// primitive: after all other substitutions, a header value of literally
// "{{len(body)}}" is replaced with the UTF-8 byte length of the body.
// Applied by internal/httpclient as a final pass over rendered headers.
func RenderContentLength(headerValue string, body []byte) (string, bool) {
	if strings.TrimSpace(headerValue) != "{{len(body)}}" {
		return headerValue, false
	}
	return strconv.Itoa(len(body)), true
}

// parseArgs splits a function-call argument string by comma, honoring
// simple double-quoted segments — carried over from
// internal/attacker/variables.go's parseArgs.
func parseArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false

	for _, r := range s {
		switch r {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				args = append(args, strings.TrimSpace(current.String()))
				current.Reset()
				continue
			}
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}

	for i, arg := range args {
		if strings.HasPrefix(arg, `"`) && strings.HasSuffix(arg, `"`) && len(arg) >= 2 {
			args[i] = arg[1 : len(arg)-1]
		}
	}
	return args
}
