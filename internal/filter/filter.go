// Package filter compiles boolean expressions over generated events, e.g.
//
//	category == "access" AND result == "denied" AND (hour < 7 OR weekend == true)
//
// Field names and literal types are checked at compile time so Match never
// fails.
package filter

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/pacsim/internal/event"
)

// Filter is a compiled expression. It is safe for concurrent use.
type Filter struct {
	src  string
	root node
	loc  *time.Location
}

// Compile parses src. loc is the zone for hour/weekday/weekend; nil means UTC.
func Compile(src string, loc *time.Location) (*Filter, error) {
	if loc == nil {
		loc = time.UTC
	}
	tokens, err := tokenize(src)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("filter: position %d: unexpected %q", t.pos, t.val)
	}
	return &Filter{src: src, root: root, loc: loc}, nil
}

// String returns the source expression.
func (f *Filter) String() string { return f.src }

// Match reports whether ev satisfies the expression.
func (f *Filter) Match(ev *event.Event) bool {
	return f.root.eval(ev, f.loc)
}

// Apply returns the events that match, preserving order.
func (f *Filter) Apply(events []event.Event) []event.Event {
	out := make([]event.Event, 0, len(events))
	for i := range events {
		if f.Match(&events[i]) {
			out = append(out, events[i])
		}
	}
	return out
}

type node interface {
	eval(ev *event.Event, loc *time.Location) bool
}

type andNode struct{ left, right node }
type orNode struct{ left, right node }
type notNode struct{ inner node }

func (n andNode) eval(ev *event.Event, loc *time.Location) bool {
	return n.left.eval(ev, loc) && n.right.eval(ev, loc)
}

func (n orNode) eval(ev *event.Event, loc *time.Location) bool {
	return n.left.eval(ev, loc) || n.right.eval(ev, loc)
}

func (n notNode) eval(ev *event.Event, loc *time.Location) bool {
	return !n.inner.eval(ev, loc)
}

// cmpNode compares a field against a literal of the same kind.
type cmpNode struct {
	field field
	op    string
	lit   value
	re    *regexp.Regexp // set for "matches"
}

func (n cmpNode) eval(ev *event.Event, loc *time.Location) bool {
	v := n.field.resolve(ev, loc)
	switch n.field.kind {
	case kindBool:
		return (v.b == n.lit.b) == (n.op == "==")
	case kindNumber:
		switch n.op {
		case "==":
			return math.Abs(v.n-n.lit.n) < 1e-9
		case "!=":
			return math.Abs(v.n-n.lit.n) >= 1e-9
		case ">":
			return v.n > n.lit.n
		case ">=":
			return v.n >= n.lit.n
		case "<":
			return v.n < n.lit.n
		case "<=":
			return v.n <= n.lit.n
		}
	default:
		switch n.op {
		case "==":
			return v.s == n.lit.s
		case "!=":
			return v.s != n.lit.s
		case "contains":
			return strings.Contains(v.s, n.lit.s)
		case "matches":
			return n.re.MatchString(v.s)
		}
	}
	return false
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

// next consumes a token; EOF is sticky.
func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) keyword(kw string) bool {
	t := p.peek()
	return t.kind == tokWord && strings.EqualFold(t.val, kw)
}

// or = and ( "OR" and )*
func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

// and = unary ( "AND" unary )*
func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.keyword("AND") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

// unary = "NOT" unary | "(" or ")" | comparison
func (p *parser) parseUnary() (node, error) {
	if p.keyword("NOT") {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t := p.next(); t.kind != tokRParen {
			return nil, fmt.Errorf("position %d: expected \")\", got %q", t.pos, t.val)
		}
		return inner, nil
	}
	return p.parseComparison()
}

// comparison = field operator literal
func (p *parser) parseComparison() (node, error) {
	name := p.next()
	if name.kind != tokWord {
		return nil, fmt.Errorf("position %d: expected field name, got %q", name.pos, name.val)
	}
	f, ok := fields[strings.ToLower(name.val)]
	if !ok {
		return nil, fmt.Errorf("position %d: unknown field %q", name.pos, name.val)
	}

	opTok := p.next()
	var op string
	switch {
	case opTok.kind == tokOp:
		op = opTok.val
	case opTok.kind == tokWord && (strings.EqualFold(opTok.val, "contains") || strings.EqualFold(opTok.val, "matches")):
		op = strings.ToLower(opTok.val)
	default:
		return nil, fmt.Errorf("position %d: expected operator after %s, got %q", opTok.pos, name.val, opTok.val)
	}

	litTok := p.next()
	n := cmpNode{field: f, op: op}
	switch f.kind {
	case kindString:
		if litTok.kind != tokString {
			return nil, fmt.Errorf("position %d: %s needs a quoted string", litTok.pos, name.val)
		}
		n.lit.s = litTok.val
		switch op {
		case "==", "!=", "contains":
		case "matches":
			re, err := regexp.Compile(litTok.val)
			if err != nil {
				return nil, fmt.Errorf("position %d: invalid pattern: %w", litTok.pos, err)
			}
			n.re = re
		default:
			return nil, fmt.Errorf("position %d: operator %s does not apply to %s", opTok.pos, op, f.kind)
		}
	case kindNumber:
		if litTok.kind != tokNumber {
			return nil, fmt.Errorf("position %d: %s needs a number", litTok.pos, name.val)
		}
		v, err := strconv.ParseFloat(litTok.val, 64)
		if err != nil {
			return nil, fmt.Errorf("position %d: invalid number %q", litTok.pos, litTok.val)
		}
		n.lit.n = v
		if op == "contains" || op == "matches" {
			return nil, fmt.Errorf("position %d: operator %s does not apply to %s", opTok.pos, op, f.kind)
		}
	case kindBool:
		if litTok.kind != tokBool {
			return nil, fmt.Errorf("position %d: %s needs true or false", litTok.pos, name.val)
		}
		n.lit.b = litTok.val == "true"
		if op != "==" && op != "!=" {
			return nil, fmt.Errorf("position %d: operator %s does not apply to %s", opTok.pos, op, f.kind)
		}
	}
	return n, nil
}
