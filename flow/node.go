package flow

import "github.com/clean-berry/TSNsched/smt"

// Node is anything a path tree can hold.
type Node interface {
	Name() string
}

// Endpoint is a traffic source or sink. Its defaults fill flow parameters
// left unset.
type Endpoint interface {
	Node
	DefaultPeriodicity() float64
	DefaultFirstSendingTime() float64
	DefaultPacketSize() float64
	DefaultMaxLatency() float64
}

// Relay forwards traffic through per-neighbour outgoing ports.
type Relay interface {
	Node
	PortTo(nextHop string) (Port, bool)
}

// Port is the timing model of one outgoing relay port.
type Port interface {
	// ScheduledTime returns the transmission instant of packet i of frag.
	ScheduledTime(s *smt.Session, i int, frag *Fragment) smt.Expr
	UsesAutomatedApplicationPeriod() bool
	HypercycleLength() float64
	Speed() float64
	CycleStart(s *smt.Session) smt.Expr
	CycleDuration() float64
	RegisterPeriodicity(p float64)
	AddFragment(frag *Fragment)
}
