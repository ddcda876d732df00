package smt

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var ErrMalformedModel = errors.New("malformed model")

// sexpr is a parsed s-expression: either an atom or a list.
type sexpr struct {
	atom string
	list []*sexpr
	leaf bool
}

func parseSexprs(input string) ([]*sexpr, error) {
	p := &sexprParser{in: input}
	var out []*sexpr
	for {
		p.skipSpace()
		if p.pos >= len(p.in) {
			return out, nil
		}
		e, err := p.parse()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}

type sexprParser struct {
	in  string
	pos int
}

func (p *sexprParser) skipSpace() {
	for p.pos < len(p.in) {
		c := p.in[p.pos]
		if c == ';' {
			for p.pos < len(p.in) && p.in[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return
		}
		p.pos++
	}
}

func (p *sexprParser) parse() (*sexpr, error) {
	p.skipSpace()
	if p.pos >= len(p.in) {
		return nil, fmt.Errorf("%w: unexpected end of input", ErrMalformedModel)
	}
	switch p.in[p.pos] {
	case '(':
		p.pos++
		node := &sexpr{}
		for {
			p.skipSpace()
			if p.pos >= len(p.in) {
				return nil, fmt.Errorf("%w: unbalanced parenthesis", ErrMalformedModel)
			}
			if p.in[p.pos] == ')' {
				p.pos++
				return node, nil
			}
			child, err := p.parse()
			if err != nil {
				return nil, err
			}
			node.list = append(node.list, child)
		}
	case ')':
		return nil, fmt.Errorf("%w: unexpected ')' at offset %d", ErrMalformedModel, p.pos)
	case '|':
		end := strings.IndexByte(p.in[p.pos+1:], '|')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated quoted symbol", ErrMalformedModel)
		}
		atom := p.in[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
		return &sexpr{atom: atom, leaf: true}, nil
	case '"':
		end := strings.IndexByte(p.in[p.pos+1:], '"')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated string", ErrMalformedModel)
		}
		atom := p.in[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
		return &sexpr{atom: atom, leaf: true}, nil
	}
	start := p.pos
	for p.pos < len(p.in) {
		c := p.in[p.pos]
		if c == '(' || c == ')' || c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			break
		}
		p.pos++
	}
	return &sexpr{atom: p.in[start:p.pos], leaf: true}, nil
}

// ParseModel reads the answer to (get-model) into a Model. Boolean and
// non-numeric definitions are skipped.
func ParseModel(output string) (Model, error) {
	exprs, err := parseSexprs(output)
	if err != nil {
		return nil, err
	}
	model := make(Model)
	for _, e := range exprs {
		if e.leaf {
			continue
		}
		defs := e.list
		if len(defs) > 0 && defs[0].leaf && defs[0].atom == "model" {
			defs = defs[1:]
		}
		for _, d := range defs {
			if d.leaf || len(d.list) != 5 || !d.list[0].leaf || d.list[0].atom != "define-fun" {
				continue
			}
			sortName := d.list[3]
			if !sortName.leaf || (sortName.atom != "Real" && sortName.atom != "Int") {
				continue
			}
			val, err := numeral(d.list[4])
			if err != nil {
				return nil, fmt.Errorf("value of %s: %w", d.list[1].atom, err)
			}
			model[d.list[1].atom] = val
		}
	}
	return model, nil
}

func numeral(e *sexpr) (*big.Rat, error) {
	if e.leaf {
		r, ok := new(big.Rat).SetString(e.atom)
		if !ok {
			return nil, fmt.Errorf("%w: bad numeral %q", ErrMalformedModel, e.atom)
		}
		return r, nil
	}
	if len(e.list) == 0 || !e.list[0].leaf {
		return nil, fmt.Errorf("%w: empty term", ErrMalformedModel)
	}
	args := make([]*big.Rat, 0, len(e.list)-1)
	for _, a := range e.list[1:] {
		v, err := numeral(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	switch {
	case e.list[0].atom == "-" && len(args) == 1:
		return args[0].Neg(args[0]), nil
	case e.list[0].atom == "/" && len(args) == 2:
		if args[1].Sign() == 0 {
			return nil, fmt.Errorf("%w: %w", ErrMalformedModel, ErrDivideByZero)
		}
		return args[0].Quo(args[0], args[1]), nil
	}
	return nil, fmt.Errorf("%w: unsupported term %s", ErrMalformedModel, e.list[0].atom)
}
