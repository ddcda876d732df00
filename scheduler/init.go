package scheduler

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/clean-berry/TSNsched/smt"
)

// init registers the SMT-LIB solvers run as external processes
func init() {
	if err := RegisterGlobal("z3", func(path string, timeout time.Duration) smt.Solver {
		return smt.NewZ3Solver(path, timeout)
	}); err != nil {
		log.Warnf("Failed to register z3 solver: %v", err)
	}

	if err := RegisterGlobal("cvc5", func(path string, timeout time.Duration) smt.Solver {
		return smt.NewCVC5Solver(path, timeout)
	}); err != nil {
		log.Debugf("cvc5 already registered or naming conflict: %v", err)
	}

	log.Debugf("Available solvers: %v", ListGlobal())
}
