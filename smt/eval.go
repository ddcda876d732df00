package smt

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrUnbound      = errors.New("unbound variable")
	ErrDivideByZero = errors.New("division by zero")
	ErrCycle        = errors.New("cyclic definition")
)

// Model maps variable names to their assigned values.
type Model map[string]*big.Rat

// Evaluator computes the value of expressions under a model. Evaluators do
// not mutate the session they come from and may be used from separate
// goroutines as long as the session is no longer modified.
type Evaluator struct {
	model       Model
	definitions map[string]Expr
}

// NewEvaluator returns an evaluator with no definitions.
func NewEvaluator(model Model) *Evaluator {
	return &Evaluator{model: model}
}

// Value evaluates an arithmetic expression.
func (ev *Evaluator) Value(e Expr) (*big.Rat, error) {
	if e.Sort() == SortBool {
		return nil, fmt.Errorf("value of boolean expression %s", e)
	}
	v, _, err := ev.eval(e, map[string]bool{})
	return v, err
}

// Float evaluates an arithmetic expression and rounds it to a float64.
func (ev *Evaluator) Float(e Expr) (float64, error) {
	v, err := ev.Value(e)
	if err != nil {
		return 0, err
	}
	f, _ := v.Float64()
	return f, nil
}

// Holds evaluates a boolean expression.
func (ev *Evaluator) Holds(e Expr) (bool, error) {
	if e.Sort() != SortBool {
		return false, fmt.Errorf("truth of non-boolean expression %s", e)
	}
	_, b, err := ev.eval(e, map[string]bool{})
	return b, err
}

// Check returns the first assertion that does not hold under the model.
func (ev *Evaluator) Check(assertions []Expr) (Expr, error) {
	for _, a := range assertions {
		ok, err := ev.Holds(a)
		if err != nil {
			return a, err
		}
		if !ok {
			return a, nil
		}
	}
	return nil, nil
}

func (ev *Evaluator) eval(e Expr, visiting map[string]bool) (*big.Rat, bool, error) {
	switch x := e.(type) {
	case *Const:
		return new(big.Rat).Set(x.val), false, nil
	case *Var:
		return ev.resolve(x, visiting)
	case *App:
		return ev.apply(x, visiting)
	default:
		return nil, false, fmt.Errorf("unknown expression %T", e)
	}
}

func (ev *Evaluator) resolve(v *Var, visiting map[string]bool) (*big.Rat, bool, error) {
	if val, ok := ev.model[v.name]; ok {
		return new(big.Rat).Set(val), val.Sign() != 0, nil
	}
	def, ok := ev.definitions[v.name]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrUnbound, v.name)
	}
	if visiting[v.name] {
		return nil, false, fmt.Errorf("%w: %s", ErrCycle, v.name)
	}
	visiting[v.name] = true
	defer delete(visiting, v.name)
	return ev.eval(def, visiting)
}

func (ev *Evaluator) apply(a *App, visiting map[string]bool) (*big.Rat, bool, error) {
	switch a.op {
	case OpAnd, OpOr:
		want := a.op == OpOr
		for _, arg := range a.args {
			_, b, err := ev.eval(arg, visiting)
			if err != nil {
				return nil, false, err
			}
			if b == want {
				return nil, want, nil
			}
		}
		return nil, !want, nil
	case OpNot:
		_, b, err := ev.eval(a.args[0], visiting)
		return nil, !b, err
	case OpIte:
		_, cond, err := ev.eval(a.args[0], visiting)
		if err != nil {
			return nil, false, err
		}
		if cond {
			return ev.eval(a.args[1], visiting)
		}
		return ev.eval(a.args[2], visiting)
	case OpEq, OpGe, OpLe, OpGt, OpLt:
		return ev.compare(a, visiting)
	}

	vals := make([]*big.Rat, len(a.args))
	for i, arg := range a.args {
		v, _, err := ev.eval(arg, visiting)
		if err != nil {
			return nil, false, err
		}
		vals[i] = v
	}
	acc := new(big.Rat).Set(vals[0])
	switch a.op {
	case OpAdd:
		for _, v := range vals[1:] {
			acc.Add(acc, v)
		}
	case OpSub:
		if len(vals) == 1 {
			acc.Neg(acc)
		}
		for _, v := range vals[1:] {
			acc.Sub(acc, v)
		}
	case OpMul:
		for _, v := range vals[1:] {
			acc.Mul(acc, v)
		}
	case OpDiv:
		for _, v := range vals[1:] {
			if v.Sign() == 0 {
				return nil, false, fmt.Errorf("%w in %s", ErrDivideByZero, a)
			}
			acc.Quo(acc, v)
		}
	default:
		return nil, false, fmt.Errorf("unsupported operator %s", a.op)
	}
	return acc, false, nil
}

func (ev *Evaluator) compare(a *App, visiting map[string]bool) (*big.Rat, bool, error) {
	left, lb, err := ev.eval(a.args[0], visiting)
	if err != nil {
		return nil, false, err
	}
	right, rb, err := ev.eval(a.args[1], visiting)
	if err != nil {
		return nil, false, err
	}
	if a.args[0].Sort() == SortBool {
		return nil, lb == rb, nil
	}
	c := left.Cmp(right)
	switch a.op {
	case OpEq:
		return nil, c == 0, nil
	case OpGe:
		return nil, c >= 0, nil
	case OpLe:
		return nil, c <= 0, nil
	case OpGt:
		return nil, c > 0, nil
	default:
		return nil, c < 0, nil
	}
}
