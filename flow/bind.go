package flow

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/clean-berry/TSNsched/smt"
)

// Bind asserts that every packet leaves frag at the instant it becomes ready
// at each next fragment, then binds the next fragments in turn.
func (f *Flow) Bind(s *smt.Session, frag FragmentID) error {
	if !f.compiled {
		return fmt.Errorf("flow %s: %w", f.name, ErrNotCompiled)
	}
	var stack []FragmentID
	stack = append(stack, frag)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cur, err := f.Fragment(id)
		if err != nil {
			return err
		}
		for k := len(cur.next) - 1; k >= 0; k-- {
			child := f.fragments[cur.next[k]]
			n := min(cur.count, child.count)
			for i := 0; i < n; i++ {
				s.Assert(smt.Eq(cur.scheduled[i], child.departure[i]))
			}
			stack = append(stack, child.id)
		}
	}
	return nil
}

// BindAll binds the fragments leaving every direct child of the root.
func (f *Flow) BindAll(s *smt.Session) error {
	tree, err := f.Tree()
	if err != nil {
		return err
	}
	for _, child := range tree.Children(tree.Root()) {
		for _, frag := range tree.Fragments(child) {
			if frag == NoFragment {
				continue
			}
			if err := f.Bind(s, frag); err != nil {
				return err
			}
		}
	}
	return nil
}

// firstHop returns the first relay and its port back towards the source.
func (f *Flow) firstHop() (NodeID, Port, error) {
	tree, err := f.Tree()
	if err != nil {
		return NoNode, nil, err
	}
	children := tree.Children(tree.Root())
	if len(children) == 0 {
		return NoNode, nil, fmt.Errorf("flow %s has no first hop: %w", f.name, ErrNotFound)
	}
	first := children[0]
	relay, ok := tree.Node(first).(Relay)
	if !ok {
		return NoNode, nil, fmt.Errorf("flow %s: first hop %s: %w", f.name, tree.Name(first), ErrNotRelay)
	}
	source := tree.Name(tree.Root())
	port, ok := relay.PortTo(source)
	if !ok || port == nil {
		log.Errorf("flow %s: relay %s has no port towards source %s", f.name, relay.Name(), source)
		return NoNode, nil, fmt.Errorf("flow %s: %s -> %s: %w", f.name, relay.Name(), source, ErrPortNotFound)
	}
	return first, port, nil
}

// FirstPortSpeed is the speed of the first relay's port on the source link.
func (f *Flow) FirstPortSpeed() (float64, error) {
	_, port, err := f.firstHop()
	if err != nil {
		return 0, err
	}
	return port.Speed(), nil
}

// FirstHopCycleDuration is the cycle duration of the first relay's port on
// the source link or, when that port has none, the shortest non-zero cycle
// among the first relay's outgoing fragments.
func (f *Flow) FirstHopCycleDuration() (float64, error) {
	first, port, err := f.firstHop()
	if err != nil {
		return 0, err
	}
	duration := port.CycleDuration()
	if duration != 0 {
		return duration, nil
	}
	tree, _ := f.Tree()
	for _, id := range tree.Fragments(first) {
		if id == NoFragment {
			continue
		}
		d := f.fragments[id].port.CycleDuration()
		if d != 0 && (duration == 0 || d < duration) {
			duration = d
		}
	}
	return duration, nil
}

// AssertFirstSendingTime pins the first sending time when it is fixed and
// feasible, otherwise bounds it to
// [packet size / first port speed, cycle start + cycle duration].
func (f *Flow) AssertFirstSendingTime(s *smt.Session) error {
	if !f.compiled {
		return fmt.Errorf("flow %s: %w", f.name, ErrNotCompiled)
	}
	_, port, err := f.firstHop()
	if err != nil {
		return err
	}
	speed := port.Speed()
	if speed <= 0 {
		return fmt.Errorf("flow %s first port speed %v: %w", f.name, speed, ErrInvalidParameter)
	}
	duration, err := f.FirstHopCycleDuration()
	if err != nil {
		return err
	}

	fixed := f.params.FirstSendingTime
	if fixed >= 0 && f.params.PacketSize/speed >= fixed {
		log.Warnf("flow %s: first packet needs %v to leave the source, freeing first sending time %v",
			f.name, f.params.PacketSize/speed, fixed)
		f.params.FirstSendingTime = Unset
		fixed = Unset
	}

	if fixed >= 0 {
		log.Infof("flow %s: first sending time fixed to %v", f.name, fixed)
		s.Assert(smt.Eq(f.fst, smt.Real(fixed)))
		return nil
	}

	s.Assert(smt.Ge(f.fst, smt.Quotient(f.params.PacketSize, speed)))
	s.Assert(smt.Le(f.fst, smt.Add(port.CycleStart(s), smt.Real(duration))))
	return nil
}
