// Package predicate implements spec.md §4.6's transition expression
// language: ==, !=, <, <=, >, >=, contains, matches, and, or, not, and
// parens over variable-context values. Grounded on
// internal/circuitbreaker/breaker.go's regex-based condition parsing,
// generalized from its single "metric op threshold" shape into a small
// recursive-descent grammar over the full comparator/boolean set.
package predicate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"raceforge/internal/models"
)

// Resolver looks up a variable by name, mirroring varctx.Snapshot.Get so
// the evaluator never imports internal/varctx directly (avoids a cycle:
// varctx has no need to know about predicates).
type Resolver func(name string) (models.Value, bool)

// Eval parses and evaluates expr against resolve, returning its boolean
// result. An empty expr is always true (spec.md §3: "an empty Predicate
// is always truthy").
func Eval(expr string, resolve Resolver) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	p := &parser{toks: tokenize(expr), resolve: resolve}
	v, err := p.parseOr()
	if err != nil {
		return false, models.NewError(models.KindConfigError, "predicate %q: %v", expr, err)
	}
	if !p.atEnd() {
		return false, models.NewError(models.KindConfigError, "predicate %q: unexpected trailing input", expr)
	}
	return v, nil
}

type tokKind int

const (
	tokIdent tokKind = iota
	tokString
	tokNumber
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
}

var opPattern = regexp.MustCompile(`^(==|!=|<=|>=|<|>)`)

func tokenize(expr string) []token {
	var toks []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(expr) && expr[j] != quote {
				j++
			}
			toks = append(toks, token{tokString, expr[i+1 : min(j, len(expr))]})
			i = j + 1
		default:
			if m := opPattern.FindString(expr[i:]); m != "" {
				toks = append(toks, token{tokOp, m})
				i += len(m)
				continue
			}
			j := i
			for j < len(expr) && !strings.ContainsRune(" \t()'\"", rune(expr[j])) && opPattern.FindStringIndex(expr[j:]) == nil {
				j++
			}
			if j == i {
				j = i + 1
			}
			word := expr[i:j]
			if isNumber(word) {
				toks = append(toks, token{tokNumber, word})
			} else {
				toks = append(toks, token{tokIdent, word})
			}
			i = j
		}
	}
	return toks
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

type parser struct {
	toks    []token
	pos     int
	resolve Resolver
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() token {
	if p.atEnd() {
		return token{}
	}
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) parseOr() (bool, error) {
	left, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for !p.atEnd() && strings.EqualFold(p.peek().text, "or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		left = left || right
	}
	return left, nil
}

func (p *parser) parseAnd() (bool, error) {
	left, err := p.parseUnary()
	if err != nil {
		return false, err
	}
	for !p.atEnd() && strings.EqualFold(p.peek().text, "and") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return false, err
		}
		left = left && right
	}
	return left, nil
}

func (p *parser) parseUnary() (bool, error) {
	if !p.atEnd() && strings.EqualFold(p.peek().text, "not") {
		p.next()
		v, err := p.parseUnary()
		return !v, err
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (bool, error) {
	if !p.atEnd() && p.peek().kind == tokLParen {
		p.next()
		v, err := p.parseOr()
		if err != nil {
			return false, err
		}
		if p.atEnd() || p.peek().kind != tokRParen {
			return false, fmt.Errorf("expected closing paren")
		}
		p.next()
		return v, nil
	}

	lhs, err := p.parseOperand()
	if err != nil {
		return false, err
	}

	if p.atEnd() {
		return lhs.truthy(), nil
	}

	op := p.peek()
	switch {
	case op.kind == tokOp:
		p.next()
		rhs, err := p.parseOperand()
		if err != nil {
			return false, err
		}
		return compare(lhs, op.text, rhs)
	case strings.EqualFold(op.text, "contains"):
		p.next()
		rhs, err := p.parseOperand()
		if err != nil {
			return false, err
		}
		return strings.Contains(lhs.asString(), rhs.asString()), nil
	case strings.EqualFold(op.text, "matches"):
		p.next()
		rhs, err := p.parseOperand()
		if err != nil {
			return false, err
		}
		re, err := regexp.Compile(rhs.asString())
		if err != nil {
			return false, fmt.Errorf("invalid matches pattern: %w", err)
		}
		return re.MatchString(lhs.asString()), nil
	default:
		return lhs.truthy(), nil
	}
}

// operand is a resolved literal or variable, carrying both its string and
// numeric forms so comparison can choose the right semantics.
type operand struct {
	str      string
	num      float64
	isNum    bool
	isAbsent bool
}

func (o operand) asString() string { return o.str }

func (o operand) truthy() bool {
	if o.isAbsent {
		return false
	}
	if o.isNum {
		return o.num != 0
	}
	return o.str != "" && !strings.EqualFold(o.str, "false")
}

func (p *parser) parseOperand() (operand, error) {
	if p.atEnd() {
		return operand{}, fmt.Errorf("unexpected end of expression")
	}
	t := p.next()
	switch t.kind {
	case tokNumber:
		f, _ := strconv.ParseFloat(t.text, 64)
		return operand{str: t.text, num: f, isNum: true}, nil
	case tokString:
		return operand{str: t.text}, nil
	case tokIdent:
		if strings.EqualFold(t.text, "true") {
			return operand{str: "true", num: 1, isNum: true}, nil
		}
		if strings.EqualFold(t.text, "false") {
			return operand{str: "false", num: 0, isNum: true}, nil
		}
		v, ok := p.resolve(t.text)
		if !ok || v.IsAbsent() {
			return operand{isAbsent: true}, nil
		}
		num, isNum := v.AsFloat64()
		return operand{str: v.String(), num: num, isNum: isNum && v.Kind != models.KindString}, nil
	default:
		return operand{}, fmt.Errorf("unexpected token %q", t.text)
	}
}

func compare(lhs operand, op string, rhs operand) (bool, error) {
	if lhs.isAbsent || rhs.isAbsent {
		switch op {
		case "==":
			return lhs.isAbsent == rhs.isAbsent, nil
		case "!=":
			return lhs.isAbsent != rhs.isAbsent, nil
		default:
			return false, nil
		}
	}

	if lhs.isNum && rhs.isNum {
		switch op {
		case "==":
			return lhs.num == rhs.num, nil
		case "!=":
			return lhs.num != rhs.num, nil
		case "<":
			return lhs.num < rhs.num, nil
		case "<=":
			return lhs.num <= rhs.num, nil
		case ">":
			return lhs.num > rhs.num, nil
		case ">=":
			return lhs.num >= rhs.num, nil
		}
	}

	switch op {
	case "==":
		return lhs.str == rhs.str, nil
	case "!=":
		return lhs.str != rhs.str, nil
	case "<":
		return lhs.str < rhs.str, nil
	case "<=":
		return lhs.str <= rhs.str, nil
	case ">":
		return lhs.str > rhs.str, nil
	case ">=":
		return lhs.str >= rhs.str, nil
	}
	return false, fmt.Errorf("unsupported operator %q", op)
}
