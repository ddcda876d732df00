package scheduler

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/clean-berry/TSNsched/flow"
	"github.com/clean-berry/TSNsched/smt"
	"github.com/clean-berry/TSNsched/topology"
)

// Stats summarises one compiled run.
type Stats struct {
	Flows      int
	Fragments  int
	Variables  int
	Assertions int
	PortRules  int
	MaxPackets int
}

// Scheduler turns the flows of a network into one constraint session.
// Prepare runs for every flow before Compile so that automated ports know
// all periods when packet counts are derived.
type Scheduler struct {
	network  *topology.Network
	flows    []*flow.Flow
	session  *smt.Session
	prepared bool
	compiled bool
	stats    Stats
}

func New(network *topology.Network, flows []*flow.Flow) *Scheduler {
	return &Scheduler{
		network: network,
		flows:   flows,
		session: smt.NewSession(),
	}
}

func (s *Scheduler) Session() *smt.Session      { return s.session }
func (s *Scheduler) Flows() []*flow.Flow        { return s.flows }
func (s *Scheduler) Network() *topology.Network { return s.network }
func (s *Scheduler) Stats() Stats               { return s.stats }

// Prepare applies endpoint defaults, turns unicast paths into trees and
// registers every flow's period on the ports it crosses. All flow errors are
// collected.
func (s *Scheduler) Prepare() error {
	if s.prepared {
		return nil
	}
	var result *multierror.Error
	for _, fl := range s.flows {
		if err := prepareFlow(fl); err != nil {
			result = multierror.Append(result, fmt.Errorf("flow %s: %w", fl.Name(), err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	s.prepared = true
	log.Infof("Prepare, flow num: %d", len(s.flows))
	return nil
}

func prepareFlow(fl *flow.Flow) error {
	if err := fl.ApplyEndpointDefaults(); err != nil {
		return err
	}
	if err := fl.ConvertUnicast(); err != nil {
		return err
	}
	return fl.RegisterPeriods()
}

// Compile emits the constraints of every flow and then of every port. It
// stops at the first flow that fails.
func (s *Scheduler) Compile() error {
	if s.compiled {
		return flow.ErrAlreadyCompiled
	}
	if err := s.Prepare(); err != nil {
		return err
	}
	stats := Stats{Flows: len(s.flows)}
	for _, fl := range s.flows {
		maxPackets, err := s.compileFlow(fl)
		if err != nil {
			return fmt.Errorf("flow %s: %w", fl.Name(), err)
		}
		stats.Fragments += len(fl.Fragments())
		stats.MaxPackets = max(stats.MaxPackets, maxPackets)
	}
	stats.PortRules = s.network.AssertPortConstraints(s.session)
	stats.Variables = len(s.session.VarNames())
	stats.Assertions = len(s.session.Assertions())
	s.stats = stats
	s.compiled = true
	log.Infof("Compile done, flows: %d, fragments: %d, variables: %d, assertions: %d",
		stats.Flows, stats.Fragments, stats.Variables, stats.Assertions)
	return nil
}

func (s *Scheduler) compileFlow(fl *flow.Flow) (int, error) {
	if err := fl.Compile(s.session); err != nil {
		return 0, err
	}
	if err := fl.AssertFirstSendingTime(s.session); err != nil {
		return 0, err
	}
	if err := fl.BindAll(s.session); err != nil {
		return 0, err
	}
	maxPackets, err := fl.DeriveMaxPacketCount()
	if err != nil {
		return 0, err
	}
	if err := fl.AssertLatencyBounds(s.session); err != nil {
		return 0, err
	}
	log.Debugf("compiled %s, max packets: %d", fl, maxPackets)
	return maxPackets, nil
}

// WriteConstraints renders the compiled session as an SMT-LIB 2 script.
func (s *Scheduler) WriteConstraints(w io.Writer) error {
	if !s.compiled {
		return flow.ErrNotCompiled
	}
	if _, err := s.session.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write constraints: %w", err)
	}
	return nil
}

// Solve hands the compiled session to solver.
func (s *Scheduler) Solve(ctx context.Context, solver smt.Solver) (smt.Model, error) {
	if !s.compiled {
		return nil, flow.ErrNotCompiled
	}
	log.Infof("solving with %s", solver.Name())
	model, err := solver.Check(ctx, s.session)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", solver.Name(), err)
	}
	log.Infof("%s found a model with %d values", solver.Name(), len(model))
	return model, nil
}

// Verify returns the first assertion the model violates, or nil.
func (s *Scheduler) Verify(model smt.Model) (smt.Expr, error) {
	return s.session.Evaluator(model).Check(s.session.Assertions())
}
