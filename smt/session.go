package smt

import (
	"bufio"
	"fmt"
	"io"
	"sort"
)

// Session collects variable declarations and assertions for one solver run.
// A Session is not safe for concurrent use; the scheduler owns it and
// mutates it from a single goroutine.
type Session struct {
	vars        map[string]*Var
	order       []string
	assertions  []Expr
	definitions map[string]Expr
}

func NewSession() *Session {
	return &Session{
		vars:        make(map[string]*Var),
		definitions: make(map[string]Expr),
	}
}

func (s *Session) declare(name string, sort Sort) *Var {
	if v, ok := s.vars[name]; ok {
		if v.sort != sort {
			panic(fmt.Sprintf("smt: variable %s redeclared as %s, was %s", name, sort, v.sort))
		}
		return v
	}
	v := &Var{name: name, sort: sort}
	s.vars[name] = v
	s.order = append(s.order, name)
	return v
}

// RealVar returns the real variable with the given name, declaring it on
// first use.
func (s *Session) RealVar(name string) *Var { return s.declare(name, SortReal) }

// IntVar returns the integer variable with the given name, declaring it on
// first use.
func (s *Session) IntVar(name string) *Var { return s.declare(name, SortInt) }

// Lookup returns a previously declared variable.
func (s *Session) Lookup(name string) (*Var, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Assert adds a boolean constraint.
func (s *Session) Assert(e Expr) {
	if e.Sort() != SortBool {
		panic(fmt.Sprintf("smt: asserting non-boolean expression %s", e))
	}
	s.assertions = append(s.assertions, e)
}

// Define names e with a variable and asserts that they are equal. Defining
// the same name twice returns the existing variable and leaves the first
// definition in place.
func (s *Session) Define(name string, e Expr) *Var {
	sort := e.Sort()
	if sort == SortInt {
		sort = SortReal
	}
	if _, ok := s.definitions[name]; ok {
		return s.declare(name, sort)
	}
	v := s.declare(name, sort)
	s.definitions[name] = e
	s.Assert(Eq(v, e))
	return v
}

// Definition returns the expression a defined variable stands for.
func (s *Session) Definition(name string) (Expr, bool) {
	e, ok := s.definitions[name]
	return e, ok
}

// Assertions returns the asserted constraints in insertion order.
func (s *Session) Assertions() []Expr {
	out := make([]Expr, len(s.assertions))
	copy(out, s.assertions)
	return out
}

// Vars returns the declared variables in declaration order.
func (s *Session) Vars() []*Var {
	out := make([]*Var, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.vars[name])
	}
	return out
}

// VarNames returns the declared variable names sorted lexically.
func (s *Session) VarNames() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	sort.Strings(names)
	return names
}

// WriteTo renders the session as an SMT-LIB 2 script without check-sat.
func (s *Session) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}
	fmt.Fprintln(cw, "(set-logic QF_LIRA)")
	for _, name := range s.order {
		v := s.vars[name]
		fmt.Fprintf(cw, "(declare-fun %s () %s)\n", v, v.sort)
	}
	for _, a := range s.assertions {
		fmt.Fprintf(cw, "(assert %s)\n", a)
	}
	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, cw.w.Flush()
}

// Evaluator returns an evaluator resolving variables against model and,
// for defined variables missing from model, against their definitions.
func (s *Session) Evaluator(model Model) *Evaluator {
	return &Evaluator{model: model, definitions: s.definitions}
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
