package flow

import (
	"fmt"

	"github.com/clean-berry/TSNsched/smt"
)

// FragmentID addresses a fragment inside the Flow that owns it.
type FragmentID int

const NoFragment FragmentID = -1

// Fragment is one hop of a flow: the edge from a relay to its next hop,
// with one departure and one scheduled time per modelled packet.
type Fragment struct {
	id       FragmentID
	name     string
	flowName string
	relay    Relay
	nextHop  string
	port     Port
	node     NodeID
	count    int

	departure []smt.Expr
	scheduled []smt.Expr

	priority    smt.Expr
	periodicity smt.Expr
	packetSize  smt.Expr

	previous FragmentID
	next     []FragmentID
}

func (f *Fragment) ID() FragmentID   { return f.id }
func (f *Fragment) Name() string     { return f.name }
func (f *Fragment) FlowName() string { return f.flowName }
func (f *Fragment) Relay() Relay     { return f.relay }
func (f *Fragment) NextHop() string  { return f.nextHop }
func (f *Fragment) Port() Port       { return f.port }

// NodeName is the name of the relay the fragment departs from.
func (f *Fragment) NodeName() string { return f.relay.Name() }

// TreeNode is the path tree node of the relay the fragment departs from.
func (f *Fragment) TreeNode() NodeID { return f.node }

// Count is the number of packets modelled on this hop.
func (f *Fragment) Count() int { return f.count }

func (f *Fragment) Priority() smt.Expr    { return f.priority }
func (f *Fragment) Periodicity() smt.Expr { return f.periodicity }
func (f *Fragment) PacketSize() smt.Expr  { return f.packetSize }

// Previous is the fragment feeding this one, NoFragment on the first hop.
func (f *Fragment) Previous() FragmentID { return f.previous }

func (f *Fragment) Next() []FragmentID {
	out := make([]FragmentID, len(f.next))
	copy(out, f.next)
	return out
}

// Departure is the instant packet i becomes ready at the relay.
func (f *Fragment) Departure(i int) (smt.Expr, error) {
	if i < 0 || i >= len(f.departure) {
		return nil, fmt.Errorf("departure %d of %s: %w", i, f.name, ErrPacketIndex)
	}
	return f.departure[i], nil
}

// Scheduled is the instant packet i is transmitted on the port.
func (f *Fragment) Scheduled(i int) (smt.Expr, error) {
	if i < 0 || i >= len(f.scheduled) {
		return nil, fmt.Errorf("scheduled time %d of %s: %w", i, f.name, ErrPacketIndex)
	}
	return f.scheduled[i], nil
}

// Arrival is the instant packet i has fully reached the next hop.
func (f *Fragment) Arrival(i int) (smt.Expr, error) {
	sched, err := f.Scheduled(i)
	if err != nil {
		return nil, err
	}
	return smt.Add(sched, f.TransmissionTime()), nil
}

// TransmissionTime is packet size over port speed.
func (f *Fragment) TransmissionTime() smt.Expr {
	if f.port == nil || f.port.Speed() <= 0 {
		return smt.Real(0)
	}
	return smt.Div(f.packetSize, smt.Real(f.port.Speed()))
}

func (f *Fragment) DepartureSeries() []smt.Expr {
	out := make([]smt.Expr, len(f.departure))
	copy(out, f.departure)
	return out
}

func (f *Fragment) ScheduledSeries() []smt.Expr {
	out := make([]smt.Expr, len(f.scheduled))
	copy(out, f.scheduled)
	return out
}

// ArrivalSeries returns Arrival for every modelled packet.
func (f *Fragment) ArrivalSeries() []smt.Expr {
	tx := f.TransmissionTime()
	out := make([]smt.Expr, len(f.scheduled))
	for i, sched := range f.scheduled {
		out[i] = smt.Add(sched, tx)
	}
	return out
}

func (f *Fragment) String() string {
	return fmt.Sprintf("%s(%s->%s, %d packets)", f.name, f.NodeName(), f.nextHop, f.count)
}
