package flow

import (
	"fmt"

	"github.com/clean-berry/TSNsched/smt"
)

// NodesTo returns the tree nodes from the source down to the destination
// leaf named dest.
func (f *Flow) NodesTo(dest string) ([]NodeID, error) {
	tree, err := f.Tree()
	if err != nil {
		return nil, err
	}
	for _, leaf := range tree.Leaves() {
		if leaf != tree.Root() && tree.Name(leaf) == dest {
			return tree.PathTo(leaf), nil
		}
	}
	return nil, fmt.Errorf("flow %s destination %s: %w", f.name, dest, ErrNotFound)
}

// FragmentsTo returns the fragments carrying the flow from its first relay
// to the destination named dest, in hop order.
func (f *Flow) FragmentsTo(dest string) ([]*Fragment, error) {
	nodes, err := f.NodesTo(dest)
	if err != nil {
		return nil, err
	}
	if !f.compiled {
		return nil, fmt.Errorf("flow %s: %w", f.name, ErrNotCompiled)
	}
	tree, _ := f.Tree()
	var frags []*Fragment
	for _, n := range nodes[min(2, len(nodes)):] {
		id := tree.FragmentTowards(n)
		if id == NoFragment {
			return nil, fmt.Errorf("flow %s: no fragment towards %s: %w", f.name, tree.Name(n), ErrNotFound)
		}
		frags = append(frags, f.fragments[id])
	}
	if len(frags) == 0 {
		return nil, fmt.Errorf("flow %s destination %s is not behind a relay: %w", f.name, dest, ErrNotFound)
	}
	return frags, nil
}

// PacketCountTo is the number of packets modelled on every hop towards
// dest, which is the smallest fragment count along the way.
func (f *Flow) PacketCountTo(dest string) (int, error) {
	frags, err := f.FragmentsTo(dest)
	if err != nil {
		return 0, err
	}
	count := frags[0].count
	for _, frag := range frags[1:] {
		count = min(count, frag.count)
	}
	return count, nil
}

// LatencyExpr is the latency of packet i towards dest: scheduled time on the
// last hop minus departure on the first hop, plus the transmission time on
// the source link. It adds nothing to any session.
func (f *Flow) LatencyExpr(dest string, i int) (smt.Expr, error) {
	frags, err := f.FragmentsTo(dest)
	if err != nil {
		return nil, err
	}
	speed, err := f.FirstPortSpeed()
	if err != nil {
		return nil, err
	}
	if speed <= 0 {
		return nil, fmt.Errorf("flow %s first port speed %v: %w", f.name, speed, ErrInvalidParameter)
	}
	last, err := frags[len(frags)-1].Scheduled(i)
	if err != nil {
		return nil, err
	}
	first, err := frags[0].Departure(i)
	if err != nil {
		return nil, err
	}
	return smt.Add(smt.Sub(last, first), smt.Quotient(f.params.PacketSize, speed)), nil
}

// Latency names the latency of packet i towards dest in s.
func (f *Flow) Latency(s *smt.Session, dest string, i int) (*smt.Var, error) {
	e, err := f.LatencyExpr(dest, i)
	if err != nil {
		return nil, err
	}
	return s.Define(fmt.Sprintf("%sLatencyOfPacket%dFor%s", f.name, i, dest), e), nil
}

// SumOfLatency adds the latencies of packets 0 to n-1 towards dest.
func (f *Flow) SumOfLatency(s *smt.Session, dest string, n int) (smt.Expr, error) {
	if n <= 0 {
		return nil, fmt.Errorf("flow %s latency sum over %d packets: %w", f.name, n, ErrPacketIndex)
	}
	var sum smt.Expr
	for i := 0; i < n; i++ {
		lat, err := f.Latency(s, dest, i)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = lat
		} else {
			sum = smt.Add(sum, lat)
		}
	}
	return sum, nil
}

// SumOfAllDevLatency adds, for every destination, the latencies of its first
// n packets, or of all its packets when fewer are modelled.
func (f *Flow) SumOfAllDevLatency(s *smt.Session, n int) (smt.Expr, error) {
	var terms []smt.Expr
	for _, dest := range f.Destinations() {
		count, err := f.PacketCountTo(dest)
		if err != nil {
			return nil, err
		}
		sum, err := f.SumOfLatency(s, dest, min(n, count))
		if err != nil {
			return nil, err
		}
		terms = append(terms, sum)
	}
	if len(terms) == 0 {
		return smt.Real(0), nil
	}
	return smt.Add(terms...), nil
}

// AverageLatencyTo is the mean latency over every packet modelled towards
// dest.
func (f *Flow) AverageLatencyTo(s *smt.Session, dest string) (smt.Expr, error) {
	count, err := f.PacketCountTo(dest)
	if err != nil {
		return nil, err
	}
	sum, err := f.SumOfLatency(s, dest, count)
	if err != nil {
		return nil, err
	}
	return smt.Div(sum, smt.Real(float64(count))), nil
}

// AverageLatency is the mean of the per destination average latencies.
func (f *Flow) AverageLatency(s *smt.Session) (smt.Expr, error) {
	return f.averageOverDestinations(s, f.AverageLatencyTo)
}

// Jitter names the absolute deviation of packet i's latency from the
// average latency towards dest.
func (f *Flow) Jitter(s *smt.Session, dest string, i int) (*smt.Var, error) {
	lat, err := f.Latency(s, dest, i)
	if err != nil {
		return nil, err
	}
	avg, err := f.AverageLatencyTo(s, dest)
	if err != nil {
		return nil, err
	}
	deviation := smt.Ite(smt.Ge(lat, avg), smt.Sub(lat, avg), smt.Sub(avg, lat))
	return s.Define(fmt.Sprintf("%sJitterOfPacket%dFor%s", f.name, i, dest), deviation), nil
}

// SumOfJitter adds the jitter of packets 0 to n-1 towards dest.
func (f *Flow) SumOfJitter(s *smt.Session, dest string, n int) (smt.Expr, error) {
	if n <= 0 {
		return nil, fmt.Errorf("flow %s jitter sum over %d packets: %w", f.name, n, ErrPacketIndex)
	}
	var sum smt.Expr
	for i := 0; i < n; i++ {
		j, err := f.Jitter(s, dest, i)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = j
		} else {
			sum = smt.Add(sum, j)
		}
	}
	return sum, nil
}

// AverageJitterTo is the mean jitter over every packet modelled towards dest.
func (f *Flow) AverageJitterTo(s *smt.Session, dest string) (smt.Expr, error) {
	count, err := f.PacketCountTo(dest)
	if err != nil {
		return nil, err
	}
	sum, err := f.SumOfJitter(s, dest, count)
	if err != nil {
		return nil, err
	}
	return smt.Div(sum, smt.Real(float64(count))), nil
}

// AverageJitter is the mean of the per destination average jitters.
func (f *Flow) AverageJitter(s *smt.Session) (smt.Expr, error) {
	return f.averageOverDestinations(s, f.AverageJitterTo)
}

func (f *Flow) averageOverDestinations(s *smt.Session, per func(*smt.Session, string) (smt.Expr, error)) (smt.Expr, error) {
	dests := f.Destinations()
	if len(dests) == 0 {
		return nil, fmt.Errorf("flow %s has no destinations: %w", f.name, ErrNotFound)
	}
	terms := make([]smt.Expr, 0, len(dests))
	for _, dest := range dests {
		avg, err := per(s, dest)
		if err != nil {
			return nil, err
		}
		terms = append(terms, avg)
	}
	return smt.Div(smt.Add(terms...), smt.Real(float64(len(terms)))), nil
}

// AssertLatencyBounds bounds every packet's latency and jitter towards every
// destination by the configured maxima. Unset maxima add nothing.
func (f *Flow) AssertLatencyBounds(s *smt.Session) error {
	if f.params.MaxLatency <= 0 && f.params.MaxJitter <= 0 {
		return nil
	}
	for _, dest := range f.Destinations() {
		count, err := f.PacketCountTo(dest)
		if err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			if f.params.MaxLatency > 0 {
				lat, err := f.Latency(s, dest, i)
				if err != nil {
					return err
				}
				s.Assert(smt.Le(lat, smt.Real(f.params.MaxLatency)))
			}
			if f.params.MaxJitter > 0 {
				j, err := f.Jitter(s, dest, i)
				if err != nil {
					return err
				}
				s.Assert(smt.Le(j, smt.Real(f.params.MaxJitter)))
			}
		}
	}
	return nil
}

// HopPriority is the priority used on the hop reaching the node named dest.
func (f *Flow) HopPriority(dest string) (smt.Expr, error) {
	if f.params.FixedPriority() {
		return smt.Int(int64(f.params.Priority)), nil
	}
	tree, err := f.Tree()
	if err != nil {
		return nil, err
	}
	node, ok := tree.SearchNode(dest, tree.Root())
	if !ok {
		return nil, fmt.Errorf("flow %s hop priority of %s: %w", f.name, dest, ErrNotFound)
	}
	if node == tree.Root() {
		return smt.Int(1), nil
	}
	if id := tree.FragmentTowards(node); id != NoFragment {
		return f.fragments[id].priority, nil
	}
	if f.priority == nil {
		return nil, fmt.Errorf("flow %s: %w", f.name, ErrNotCompiled)
	}
	return f.priority, nil
}
