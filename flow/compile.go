package flow

import (
	"fmt"
	"math"
	"math/big"

	log "github.com/sirupsen/logrus"

	"github.com/clean-berry/TSNsched/smt"
)

// Compile walks the path tree and creates one fragment per relay to next
// hop edge, with its departure and scheduled time series. A unicast flow is
// converted first. Compile fails on the first relay without a port towards
// its next hop.
func (f *Flow) Compile(s *smt.Session) error {
	if f.compiled {
		return fmt.Errorf("flow %s: %w", f.name, ErrAlreadyCompiled)
	}
	if err := f.ConvertUnicast(); err != nil {
		return err
	}
	tree, err := f.Tree()
	if err != nil {
		return err
	}
	if tree.Root() == NoNode {
		return fmt.Errorf("flow %s: %w", f.name, ErrNoRoot)
	}
	if f.params.Periodicity <= 0 {
		return fmt.Errorf("flow %s periodicity %v: %w", f.name, f.params.Periodicity, ErrUnresolved)
	}
	if f.params.PacketSize < 0 {
		return fmt.Errorf("flow %s packet size %v: %w", f.name, f.params.PacketSize, ErrUnresolved)
	}

	if f.params.FixedPriority() {
		f.priority = smt.Int(int64(f.params.Priority))
	} else {
		f.priority = s.IntVar(f.name + "Priority")
	}
	f.fst = s.RealVar(fmt.Sprintf("flow%dFirstSendingTime", f.instance))
	f.periodicity = smt.Real(f.params.Periodicity)
	f.packetSize = smt.Real(f.params.PacketSize)

	if _, err := f.compileNode(s, tree, tree.Root()); err != nil {
		return err
	}
	f.compiled = true
	log.Debugf("flow %s compiled into %d fragments", f.name, len(f.fragments))
	return nil
}

// compileNode creates the fragments leaving every child of node and recurses
// into the child. It returns the last fragment created below node.
func (f *Flow) compileNode(s *smt.Session, tree *PathTree, node NodeID) (FragmentID, error) {
	last := NoFragment
	for _, child := range tree.Children(node) {
		grandchildren := tree.Children(child)
		if len(grandchildren) == 0 {
			continue
		}
		relay, ok := tree.Node(child).(Relay)
		if !ok {
			return NoFragment, fmt.Errorf("flow %s: %s forwards traffic: %w", f.name, tree.Name(child), ErrNotRelay)
		}

		feeding := NoFragment
		if node != tree.Root() {
			feeding = tree.FragmentTowards(child)
		}

		var created FragmentID
		for gcIdx, gc := range grandchildren {
			frag, err := f.newFragment(s, tree, relay, child, gcIdx, gc, feeding)
			if err != nil {
				return NoFragment, err
			}
			created = frag.id
		}
		last = created

		if _, err := f.compileNode(s, tree, child); err != nil {
			return NoFragment, err
		}
	}
	return last, nil
}

func (f *Flow) newFragment(s *smt.Session, tree *PathTree, relay Relay, relayNode NodeID, idx int, next NodeID, feeding FragmentID) (*Fragment, error) {
	nextHop := tree.Name(next)
	port, ok := relay.PortTo(nextHop)
	if !ok || port == nil {
		log.Errorf("flow %s: relay %s has no port towards %s", f.name, relay.Name(), nextHop)
		return nil, fmt.Errorf("flow %s: %s -> %s: %w", f.name, relay.Name(), nextHop, ErrPortNotFound)
	}

	frag := &Fragment{
		id:          FragmentID(len(f.fragments)),
		name:        fmt.Sprintf("%sFragment%d", f.name, len(f.fragments)+1),
		flowName:    f.name,
		relay:       relay,
		nextHop:     nextHop,
		port:        port,
		node:        relayNode,
		count:       f.packetCount(port),
		periodicity: f.periodicity,
		packetSize:  f.packetSize,
		previous:    feeding,
	}

	if feeding == NoFragment {
		period := smt.Real(f.params.Periodicity).Value()
		for i := 0; i < frag.count; i++ {
			offset := new(big.Rat).Mul(period, big.NewRat(int64(i), 1))
			frag.departure = append(frag.departure, smt.Add(f.fst, smt.RealRat(offset)))
		}
	} else {
		prev := f.fragments[feeding]
		for i := 0; i < frag.count; i++ {
			if i < len(prev.scheduled) {
				frag.departure = append(frag.departure, prev.scheduled[i])
			} else {
				frag.departure = append(frag.departure, prev.port.ScheduledTime(s, i, prev))
			}
		}
		prev.next = append(prev.next, frag.id)
	}

	if f.params.FixedPriority() {
		frag.priority = f.priority
	} else {
		frag.priority = s.IntVar(frag.name + "Priority")
	}

	f.fragments = append(f.fragments, frag)
	tree.attachFragment(relayNode, idx, frag.id)

	for i := 0; i < frag.count; i++ {
		frag.scheduled = append(frag.scheduled, port.ScheduledTime(s, i, frag))
	}
	port.AddFragment(frag)

	log.Debugf("flow %s: fragment %s %s -> %s, %d packets", f.name, frag.name, relay.Name(), nextHop, frag.count)
	return frag, nil
}

// packetCount is floor(hypercycle / periodicity) on automated ports and the
// configured upper bound elsewhere, never below one.
func (f *Flow) packetCount(port Port) int {
	count := f.packetUpperBound
	if count <= 0 {
		count = DefaultPacketUpperBound
	}
	if port.UsesAutomatedApplicationPeriod() {
		count = int(math.Floor(port.HypercycleLength() / f.params.Periodicity))
	}
	if count < 1 {
		log.Warnf("flow %s: periodicity %v exceeds hypercycle %v, modelling a single packet",
			f.name, f.params.Periodicity, port.HypercycleLength())
		count = 1
	}
	return count
}
