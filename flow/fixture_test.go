package flow

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clean-berry/TSNsched/smt"
)

type fakeEndpoint struct {
	name        string
	periodicity float64
	fst         float64
	packetSize  float64
	maxLatency  float64
}

func (e *fakeEndpoint) Name() string                     { return e.name }
func (e *fakeEndpoint) DefaultPeriodicity() float64      { return e.periodicity }
func (e *fakeEndpoint) DefaultFirstSendingTime() float64 { return e.fst }
func (e *fakeEndpoint) DefaultPacketSize() float64       { return e.packetSize }
func (e *fakeEndpoint) DefaultMaxLatency() float64       { return e.maxLatency }

type fakePort struct {
	name          string
	speed         float64
	automated     bool
	hypercycle    float64
	cycleStart    float64
	cycleDuration float64
	periods       []float64
	fragments     []*Fragment
}

func (p *fakePort) ScheduledTime(s *smt.Session, i int, frag *Fragment) smt.Expr {
	return s.RealVar(fmt.Sprintf("%sScheduledTime%d", frag.Name(), i))
}
func (p *fakePort) UsesAutomatedApplicationPeriod() bool { return p.automated }
func (p *fakePort) HypercycleLength() float64            { return p.hypercycle }
func (p *fakePort) Speed() float64                       { return p.speed }
func (p *fakePort) CycleStart(*smt.Session) smt.Expr     { return smt.Real(p.cycleStart) }
func (p *fakePort) CycleDuration() float64               { return p.cycleDuration }
func (p *fakePort) AddFragment(frag *Fragment)           { p.fragments = append(p.fragments, frag) }

func (p *fakePort) RegisterPeriodicity(v float64) {
	for _, known := range p.periods {
		if known == v {
			return
		}
	}
	p.periods = append(p.periods, v)
}

type fakeRelay struct {
	name  string
	ports map[string]*fakePort
}

func (r *fakeRelay) Name() string { return r.name }

func (r *fakeRelay) PortTo(nextHop string) (Port, bool) {
	p, ok := r.ports[nextHop]
	if !ok {
		return nil, false
	}
	return p, true
}

// fixture is a small network of fake endpoints and relays.
type fixture struct {
	devices map[string]*fakeEndpoint
	relays  map[string]*fakeRelay
}

func newFixture() *fixture {
	return &fixture{devices: map[string]*fakeEndpoint{}, relays: map[string]*fakeRelay{}}
}

func (fx *fixture) device(name string) *fakeEndpoint {
	d := &fakeEndpoint{name: name, periodicity: 100, fst: 10, packetSize: 64, maxLatency: Unset}
	fx.devices[name] = d
	return d
}

func (fx *fixture) relay(name string) *fakeRelay {
	r := &fakeRelay{name: name, ports: map[string]*fakePort{}}
	fx.relays[name] = r
	return r
}

// link creates a port on every relay end of the a-b link.
func (fx *fixture) link(a, b string, speed float64) {
	if r, ok := fx.relays[a]; ok {
		r.ports[b] = &fakePort{name: a + "To" + b, speed: speed, cycleDuration: 50}
	}
	if r, ok := fx.relays[b]; ok {
		r.ports[a] = &fakePort{name: b + "To" + a, speed: speed, cycleDuration: 50}
	}
}

func (fx *fixture) port(relay, next string) *fakePort {
	return fx.relays[relay].ports[next]
}

// pubSubFixture is src -> sw1 -> sw2 -> {d1, sw3 -> d2}.
func pubSubFixture(t *testing.T) (*fixture, *PathTree) {
	fx := newFixture()
	src := fx.device("src")
	d1 := fx.device("d1")
	d2 := fx.device("d2")
	sw1, sw2, sw3 := fx.relay("sw1"), fx.relay("sw2"), fx.relay("sw3")
	fx.link("src", "sw1", 125)
	fx.link("sw1", "sw2", 125)
	fx.link("sw2", "d1", 125)
	fx.link("sw2", "sw3", 125)
	fx.link("sw3", "d2", 125)

	tree := NewPathTree()
	must := func(id NodeID, err error) NodeID {
		require.NoError(t, err)
		return id
	}
	root := must(tree.AddRoot(src))
	n1 := must(tree.AddChild(root, sw1))
	n2 := must(tree.AddChild(n1, sw2))
	must(tree.AddChild(n2, d1))
	n3 := must(tree.AddChild(n2, sw3))
	must(tree.AddChild(n3, d2))
	return fx, tree
}

// scheduleModel assigns every declared variable of s: the first sending
// time gets fst, scheduled times come from sched and integers get zero.
func scheduleModel(s *smt.Session, fl *Flow, fst *big.Rat, sched func(frag *Fragment, i int) *big.Rat) smt.Model {
	model := smt.Model{fl.FirstSendingTime().Name(): fst}
	for _, frag := range fl.Fragments() {
		for i := 0; ; i++ {
			v, ok := s.Lookup(fmt.Sprintf("%sScheduledTime%d", frag.Name(), i))
			if !ok {
				break
			}
			model[v.Name()] = sched(frag, i)
		}
	}
	for _, v := range s.Vars() {
		if _, ok := model[v.Name()]; !ok && v.Sort() == smt.SortInt {
			model[v.Name()] = new(big.Rat)
		}
	}
	return model
}

func pubSub(t *testing.T, b *Builder, name string, p Params, tree *PathTree) *Flow {
	t.Helper()
	fl, err := b.NewPublishSubscribe(name, p, tree)
	require.NoError(t, err)
	return fl
}
