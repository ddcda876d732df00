package topology

import "github.com/clean-berry/TSNsched/smt"

// Cycle is the transmission window of a port. A negative start lets the
// solver place the first cycle.
type Cycle struct {
	Start    float64
	Duration float64
}

func (c Cycle) startExpr(s *smt.Session, port string) smt.Expr {
	if c.Start >= 0 {
		return smt.Real(c.Start)
	}
	return s.RealVar(port + "CycleStart")
}
