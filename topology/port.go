package topology

import (
	"fmt"
	"math"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/clean-berry/TSNsched/flow"
	"github.com/clean-berry/TSNsched/smt"
)

const maxPriority = 7

// Port is the outgoing port of a switch towards one neighbour. Every packet
// of every fragment it carries gets a free scheduled time variable, kept
// apart by the constraints from AssertConstraints.
type Port struct {
	mutex      sync.RWMutex
	name       string
	owner      string
	next       string
	speed      float64
	cycle      Cycle
	automated  bool
	hypercycle float64
	periods    []float64
	fragments  []*flow.Fragment
}

func newPort(owner, next string, spec LinkSpec) *Port {
	return &Port{
		name:       owner + "To" + next,
		owner:      owner,
		next:       next,
		speed:      spec.Speed,
		cycle:      Cycle{Start: spec.CycleStart, Duration: spec.CycleDuration},
		automated:  spec.Automated,
		hypercycle: spec.Hypercycle,
	}
}

func (p *Port) Name() string    { return p.name }
func (p *Port) NextHop() string { return p.next }
func (p *Port) Speed() float64  { return p.speed }

func (p *Port) ScheduledTime(s *smt.Session, i int, frag *flow.Fragment) smt.Expr {
	return s.RealVar(fmt.Sprintf("%sScheduledTime%d", frag.Name(), i))
}

func (p *Port) UsesAutomatedApplicationPeriod() bool { return p.automated }

// HypercycleLength is the configured hypercycle or, for automated ports
// without one, the least common multiple of the registered periods.
func (p *Port) HypercycleLength() float64 {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if p.hypercycle > 0 || !p.automated {
		return p.hypercycle
	}
	return lcm(p.periods)
}

func (p *Port) CycleStart(s *smt.Session) smt.Expr {
	return p.cycle.startExpr(s, p.name)
}

func (p *Port) CycleDuration() float64 { return p.cycle.Duration }

func (p *Port) RegisterPeriodicity(period float64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, known := range p.periods {
		if known == period {
			return
		}
	}
	p.periods = append(p.periods, period)
}

func (p *Port) Periods() []float64 {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	out := make([]float64, len(p.periods))
	copy(out, p.periods)
	return out
}

func (p *Port) AddFragment(frag *flow.Fragment) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.fragments = append(p.fragments, frag)
}

func (p *Port) Fragments() []*flow.Fragment {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	out := make([]*flow.Fragment, len(p.fragments))
	copy(out, p.fragments)
	return out
}

// AssertConstraints adds the port's timing rules to s and returns how many
// assertions it added. Transmissions of different fragments never overlap.
func (p *Port) AssertConstraints(s *smt.Session) int {
	frags := p.Fragments()
	before := len(s.Assertions())

	if p.cycle.Start < 0 {
		s.Assert(smt.Ge(p.CycleStart(s), smt.Real(0)))
	}

	priorities := make(map[string]bool)
	for _, frag := range frags {
		tx := frag.TransmissionTime()
		sched := frag.ScheduledSeries()
		dep := frag.DepartureSeries()
		for i := range sched {
			s.Assert(smt.Ge(sched[i], dep[i]))
			if i > 0 {
				s.Assert(smt.Ge(sched[i], smt.Add(sched[i-1], tx)))
			}
		}
		if v, ok := frag.Priority().(*smt.Var); ok && !priorities[v.Name()] {
			priorities[v.Name()] = true
			s.Assert(smt.And(smt.Ge(v, smt.Int(0)), smt.Le(v, smt.Int(maxPriority))))
		}
	}

	for a := 0; a < len(frags); a++ {
		for b := a + 1; b < len(frags); b++ {
			fa, fb := frags[a], frags[b]
			txA, txB := fa.TransmissionTime(), fb.TransmissionTime()
			for _, sa := range fa.ScheduledSeries() {
				for _, sb := range fb.ScheduledSeries() {
					s.Assert(smt.Or(
						smt.Ge(sa, smt.Add(sb, txB)),
						smt.Ge(sb, smt.Add(sa, txA)),
					))
				}
			}
		}
	}

	added := len(s.Assertions()) - before
	if len(frags) > 0 {
		log.Debugf("port %s: %d fragments, %d constraints", p.name, len(frags), added)
	}
	return added
}

// lcm of the periods rounded to integers. Zero when no period is known.
func lcm(periods []float64) float64 {
	var acc int64
	for _, period := range periods {
		v := int64(math.Round(period))
		if v <= 0 {
			continue
		}
		if acc == 0 {
			acc = v
			continue
		}
		acc = acc / gcd(acc, v) * v
	}
	return float64(acc)
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
