package smt

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Sort is the type of a symbolic expression.
type Sort int

const (
	SortBool Sort = iota
	SortInt
	SortReal
)

func (s Sort) String() string {
	switch s {
	case SortBool:
		return "Bool"
	case SortInt:
		return "Int"
	case SortReal:
		return "Real"
	default:
		return "Unknown"
	}
}

// Op is an SMT-LIB function symbol.
type Op string

const (
	OpAdd Op = "+"
	OpSub Op = "-"
	OpMul Op = "*"
	OpDiv Op = "/"
	OpIte Op = "ite"
	OpEq  Op = "="
	OpGe  Op = ">="
	OpLe  Op = "<="
	OpGt  Op = ">"
	OpLt  Op = "<"
	OpAnd Op = "and"
	OpOr  Op = "or"
	OpNot Op = "not"
)

// Expr is an immutable symbolic expression. String renders it as SMT-LIB 2.
type Expr interface {
	Sort() Sort
	String() string
}

// Const is a numeric literal held as an exact rational.
type Const struct {
	val  *big.Rat
	sort Sort
}

// Real wraps a float literal. The decimal rendering of v is parsed back so
// that 0.1 stays 1/10 instead of its binary approximation.
func Real(v float64) *Const {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'f', -1, 64))
	if !ok {
		panic(fmt.Sprintf("smt: cannot represent %v as a rational", v))
	}
	return &Const{val: r, sort: SortReal}
}

// RealRat wraps an exact rational literal.
func RealRat(r *big.Rat) *Const {
	return &Const{val: new(big.Rat).Set(r), sort: SortReal}
}

// Quotient returns the exact rational a/b as a real literal.
func Quotient(a, b float64) *Const {
	num := Real(a).val
	den := Real(b).val
	if den.Sign() == 0 {
		panic("smt: quotient with zero denominator")
	}
	return &Const{val: new(big.Rat).Quo(num, den), sort: SortReal}
}

// Int wraps an integer literal.
func Int(v int64) *Const {
	return &Const{val: new(big.Rat).SetInt64(v), sort: SortInt}
}

func (c *Const) Sort() Sort { return c.sort }

// Value returns a copy of the literal value.
func (c *Const) Value() *big.Rat { return new(big.Rat).Set(c.val) }

func (c *Const) String() string {
	return formatRat(c.val, c.sort)
}

func formatRat(r *big.Rat, sort Sort) string {
	neg := r.Sign() < 0
	abs := new(big.Rat).Abs(r)
	var body string
	switch {
	case sort == SortInt:
		body = abs.Num().String()
	case abs.IsInt():
		body = abs.Num().String() + ".0"
	default:
		body = fmt.Sprintf("(/ %s.0 %s.0)", abs.Num().String(), abs.Denom().String())
	}
	if neg {
		return "(- " + body + ")"
	}
	return body
}

// Var is a named free variable. Variables are created through a Session.
type Var struct {
	name string
	sort Sort
}

func (v *Var) Sort() Sort { return v.sort }

// Name returns the unquoted variable name.
func (v *Var) Name() string { return v.name }

func (v *Var) String() string { return quoteSymbol(v.name) }

func quoteSymbol(name string) string {
	for _, r := range name {
		if !(r == '_' || r == '.' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "|" + strings.ReplaceAll(name, "|", "") + "|"
		}
	}
	if name == "" || name[0] >= '0' && name[0] <= '9' {
		return "|" + name + "|"
	}
	return name
}

// App is an application of an operator to arguments.
type App struct {
	op   Op
	args []Expr
	sort Sort
}

func (a *App) Sort() Sort { return a.sort }

// Op returns the operator of the application.
func (a *App) Op() Op { return a.op }

// Args returns the operands of the application.
func (a *App) Args() []Expr {
	out := make([]Expr, len(a.args))
	copy(out, a.args)
	return out
}

func (a *App) String() string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(string(a.op))
	for _, arg := range a.args {
		b.WriteString(" ")
		b.WriteString(arg.String())
	}
	b.WriteString(")")
	return b.String()
}

func arith(op Op, args ...Expr) *App {
	if len(args) == 0 {
		panic(fmt.Sprintf("smt: %s needs at least one operand", op))
	}
	sort := SortInt
	for _, arg := range args {
		switch arg.Sort() {
		case SortReal:
			sort = SortReal
		case SortBool:
			panic(fmt.Sprintf("smt: %s applied to boolean operand %s", op, arg))
		}
	}
	return &App{op: op, args: args, sort: sort}
}

func compare(op Op, a, b Expr) *App {
	if a.Sort() == SortBool || b.Sort() == SortBool {
		if op != OpEq || a.Sort() != b.Sort() {
			panic(fmt.Sprintf("smt: %s applied to %s and %s", op, a.Sort(), b.Sort()))
		}
	}
	return &App{op: op, args: []Expr{a, b}, sort: SortBool}
}

func Add(args ...Expr) Expr { return arith(OpAdd, args...) }
func Sub(a, b Expr) Expr    { return arith(OpSub, a, b) }
func Mul(args ...Expr) Expr { return arith(OpMul, args...) }

// Div is real division; the result is always of sort Real.
func Div(a, b Expr) Expr {
	app := arith(OpDiv, a, b)
	app.sort = SortReal
	return app
}

func Eq(a, b Expr) Expr { return compare(OpEq, a, b) }
func Ge(a, b Expr) Expr { return compare(OpGe, a, b) }
func Le(a, b Expr) Expr { return compare(OpLe, a, b) }
func Gt(a, b Expr) Expr { return compare(OpGt, a, b) }
func Lt(a, b Expr) Expr { return compare(OpLt, a, b) }

// Ite selects then when cond holds and otherwise else.
func Ite(cond, then, otherwise Expr) Expr {
	if cond.Sort() != SortBool {
		panic(fmt.Sprintf("smt: ite condition %s is not boolean", cond))
	}
	sort := then.Sort()
	if sort != otherwise.Sort() {
		if sort == SortBool || otherwise.Sort() == SortBool {
			panic("smt: ite branches of incompatible sorts")
		}
		sort = SortReal
	}
	return &App{op: OpIte, args: []Expr{cond, then, otherwise}, sort: sort}
}

func logical(op Op, args ...Expr) Expr {
	for _, arg := range args {
		if arg.Sort() != SortBool {
			panic(fmt.Sprintf("smt: %s applied to non-boolean %s", op, arg))
		}
	}
	return &App{op: op, args: args, sort: SortBool}
}

func And(args ...Expr) Expr { return logical(OpAnd, args...) }
func Or(args ...Expr) Expr  { return logical(OpOr, args...) }
func Not(a Expr) Expr       { return logical(OpNot, a) }
