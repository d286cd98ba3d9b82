package visibility

import (
	"errors"
	"fmt"
	"strconv"
)

type node interface {
	eval(record map[string]any) bool
}

type orNode struct{ left, right node }

func (n orNode) eval(record map[string]any) bool {
	return n.left.eval(record) || n.right.eval(record)
}

type andNode struct{ left, right node }

func (n andNode) eval(record map[string]any) bool {
	return n.left.eval(record) && n.right.eval(record)
}

type notNode struct{ inner node }

func (n notNode) eval(record map[string]any) bool {
	return !n.inner.eval(record)
}

type truthyNode struct{ path string }

func (n truthyNode) eval(record map[string]any) bool {
	value, ok := lookup(record, n.path)
	return ok && truthy(value)
}

// compareNode holds a literal already converted to its comparison type.
type compareNode struct {
	path   string
	negate bool
	match  func(value any) bool
}

func (n compareNode) eval(record map[string]any) bool {
	value, _ := lookup(record, n.path)
	return n.matches(value) != n.negate
}

func (n compareNode) matches(value any) bool {
	switch typed := value.(type) {
	case []any:
		for _, item := range typed {
			if n.match(item) {
				return true
			}
		}
		return len(typed) == 0 && n.match(nil)
	case []string:
		for _, item := range typed {
			if n.match(item) {
				return true
			}
		}
		return len(typed) == 0 && n.match(nil)
	default:
		return n.match(value)
	}
}

type parser struct {
	tokens []token
	pos    int
}

func parse(tokens []token) (node, error) {
	p := &parser{tokens: tokens}
	n, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("visibility: unexpected token %q", p.tokens[p.pos].raw)
	}
	return n, nil
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.match(tokenOr) {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.match(tokenAnd) {
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.match(tokenNot) {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if p.match(tokenLParen) {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if !p.match(tokenRParen) {
			return nil, errors.New("visibility: missing closing ')'")
		}
		return inner, nil
	}

	if p.pos >= len(p.tokens) {
		return nil, errors.New("visibility: empty expression")
	}
	ident := p.tokens[p.pos]
	if ident.kind != tokenIdentifier {
		return nil, fmt.Errorf("visibility: expected identifier, got %q", ident.raw)
	}
	p.pos++

	switch {
	case p.match(tokenEq):
		return p.compare(ident.raw, false)
	case p.match(tokenNeq):
		return p.compare(ident.raw, true)
	}
	return truthyNode{path: ident.raw}, nil
}

func (p *parser) compare(path string, negate bool) (node, error) {
	if p.pos >= len(p.tokens) {
		return nil, errors.New("visibility: missing literal")
	}
	lit := p.tokens[p.pos]
	p.pos++

	n := compareNode{path: path, negate: negate}
	switch lit.kind {
	case tokenNull:
		n.match = func(value any) bool { return value == nil }
	case tokenBool:
		want := lit.raw == "true"
		n.match = func(value any) bool { return toBool(value) == want }
	case tokenNumber:
		want, err := strconv.ParseFloat(lit.raw, 64)
		if err != nil {
			return nil, fmt.Errorf("visibility: invalid number literal %q", lit.raw)
		}
		n.match = func(value any) bool {
			got, ok := toNumber(value)
			return ok && got == want
		}
	case tokenString, tokenIdentifier:
		// Bare words compare as strings.
		want := lit.raw
		n.match = func(value any) bool { return value != nil && toString(value) == want }
	default:
		return nil, fmt.Errorf("visibility: expected literal, got %q", lit.raw)
	}
	return n, nil
}

func (p *parser) match(kind tokenKind) bool {
	if p.pos >= len(p.tokens) || p.tokens[p.pos].kind != kind {
		return false
	}
	p.pos++
	return true
}
