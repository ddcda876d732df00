package flow

import (
	"fmt"
	"math/big"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clean-berry/TSNsched/smt"
)

func pubSubParams() Params {
	p := DefaultParams()
	p.Periodicity = 100
	p.FirstSendingTime = 10
	p.PacketSize = 64
	return p
}

func TestPathTree(t *testing.T) {
	_, tree := pubSubFixture(t)

	t.Run("single root", func(t *testing.T) {
		_, err := tree.AddRoot(&fakeEndpoint{name: "other"})
		assert.ErrorIs(t, err, ErrRootExists)
	})

	t.Run("leaves in preorder", func(t *testing.T) {
		var names []string
		for _, leaf := range tree.Leaves() {
			names = append(names, tree.Name(leaf))
		}
		assert.Equal(t, []string{"d1", "d2"}, names)
	})

	t.Run("search", func(t *testing.T) {
		id, ok := tree.SearchNode("sw3", tree.Root())
		require.True(t, ok)
		assert.Equal(t, "sw3", tree.Name(id))
		assert.Equal(t, 1, tree.ChildIndex(id))
		assert.Equal(t, 3, tree.Depth(id))

		sw2, _ := tree.SearchNode("sw2", tree.Root())
		_, ok = tree.SearchNode("sw1", sw2)
		assert.False(t, ok, "search must stay inside the start subtree")
	})

	t.Run("absent name", func(t *testing.T) {
		other := NewPathTree()
		root, err := other.AddRoot(&fakeEndpoint{name: "elsewhere"})
		require.NoError(t, err)

		id, ok := tree.SearchNode("elsewhere", tree.Root())
		assert.False(t, ok)
		assert.Equal(t, NoNode, id)

		_, ok = other.SearchNode("sw1", root)
		assert.False(t, ok)

		_, ok = tree.SearchNode("sw1", NodeID(99))
		assert.False(t, ok)
	})

	t.Run("invalid parent", func(t *testing.T) {
		_, err := tree.AddChild(NodeID(42), &fakeEndpoint{name: "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConvertUnicast(t *testing.T) {
	fx := newFixture()
	src, dst := fx.device("src"), fx.device("dst")
	relays := []Relay{fx.relay("a"), fx.relay("b"), fx.relay("c")}

	b := NewBuilder(0)
	fl, err := b.NewUnicast("", pubSubParams(), &UnicastPath{Source: src, Relays: relays, Destination: dst})
	require.NoError(t, err)
	assert.Equal(t, Unicast, fl.Kind())
	assert.Equal(t, "flow1", fl.Name())

	_, err = fl.Tree()
	assert.ErrorIs(t, err, ErrKindMismatch)

	require.NoError(t, fl.ConvertUnicast())
	assert.Equal(t, PublishSubscribe, fl.Kind())
	_, err = fl.UnicastPath()
	assert.ErrorIs(t, err, ErrKindMismatch)

	tree, err := fl.Tree()
	require.NoError(t, err)
	leaves := tree.Leaves()
	require.Len(t, leaves, 1)

	var names []string
	for _, id := range tree.PathTo(leaves[0]) {
		names = append(names, tree.Name(id))
	}
	assert.Equal(t, []string{"src", "a", "b", "c", "dst"}, names)
	assert.Equal(t, []string{"dst"}, fl.Destinations())

	require.NoError(t, fl.ConvertUnicast(), "converting twice is a no-op")
}

func TestConvertUnicastRejectsEmptyPath(t *testing.T) {
	fx := newFixture()
	b := NewBuilder(0)
	fl, err := b.NewUnicast("direct", pubSubParams(), &UnicastPath{Source: fx.device("s"), Destination: fx.device("d")})
	require.NoError(t, err)
	assert.ErrorIs(t, fl.ConvertUnicast(), ErrEmptyPath)

	_, err = b.NewUnicast("broken", pubSubParams(), &UnicastPath{Source: fx.device("s")})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBuilderInstances(t *testing.T) {
	b := NewBuilder(3)
	first := pubSub(t, b, "", DefaultParams(), nil)
	second := pubSub(t, b, "named", DefaultParams(), nil)
	assert.Equal(t, 1, first.Instance())
	assert.Equal(t, "flow1", first.Name())
	assert.Equal(t, 2, second.Instance())
	assert.Equal(t, "named", second.Name())
	assert.Equal(t, 1, pubSub(t, NewBuilder(0), "", DefaultParams(), nil).Instance())
}

func TestBuilderRejectsDuplicateNames(t *testing.T) {
	fx := newFixture()
	path := &UnicastPath{Source: fx.device("s"), Relays: []Relay{fx.relay("sw")}, Destination: fx.device("d")}

	b := NewBuilder(0)
	pubSub(t, b, "f", DefaultParams(), nil)
	_, err := b.NewUnicast("f", DefaultParams(), path)
	assert.ErrorIs(t, err, ErrDuplicateFlow)

	// the rejected flow does not consume an instance number
	second, err := b.NewUnicast("", DefaultParams(), path)
	require.NoError(t, err)
	assert.Equal(t, "flow2", second.Name())

	// an explicit name taken before the default one is generated
	b = NewBuilder(0)
	pubSub(t, b, "flow2", DefaultParams(), nil)
	_, err = b.NewPublishSubscribe("", DefaultParams(), nil)
	assert.ErrorIs(t, err, ErrDuplicateFlow)

	// and a default name taken before the explicit one
	b = NewBuilder(0)
	pubSub(t, b, "", DefaultParams(), nil)
	_, err = b.NewPublishSubscribe("flow1", DefaultParams(), nil)
	assert.ErrorIs(t, err, ErrDuplicateFlow)
}

func TestAddToPath(t *testing.T) {
	fx := newFixture()
	src, d1, d2 := fx.device("src"), fx.device("d1"), fx.device("d2")
	sw1, sw2 := fx.relay("sw1"), fx.relay("sw2")

	fl := pubSub(t, NewBuilder(0), "multicast", pubSubParams(), nil)
	require.NoError(t, fl.AddToPath(src, sw1))
	require.NoError(t, fl.AddToPath(sw1, d1))
	require.NoError(t, fl.AddToPath(sw1, sw2))
	require.NoError(t, fl.AddToPath(sw2, d2))
	assert.ErrorIs(t, fl.AddToPath(fx.relay("ghost"), d2), ErrNotFound)

	assert.Equal(t, []string{"d1", "d2"}, fl.Destinations())
	source, err := fl.Source()
	require.NoError(t, err)
	assert.Equal(t, "src", source.Name())

	unicast, err := NewBuilder(0).NewUnicast("u", pubSubParams(), &UnicastPath{Source: src, Relays: []Relay{sw1}, Destination: d1})
	require.NoError(t, err)
	assert.ErrorIs(t, unicast.AddToPath(sw1, d2), ErrKindMismatch)
}

func TestApplyEndpointDefaults(t *testing.T) {
	fx, tree := pubSubFixture(t)
	src := fx.devices["src"]
	src.periodicity, src.fst, src.packetSize, src.maxLatency = 250, 3, 1500, 900

	p := DefaultParams()
	p.PacketSize = 64
	fl := pubSub(t, NewBuilder(0), "f", p, tree)
	require.NoError(t, fl.ApplyEndpointDefaults())

	got := fl.Params()
	assert.Equal(t, 250.0, got.Periodicity)
	assert.Equal(t, 3.0, got.FirstSendingTime)
	assert.Equal(t, 64.0, got.PacketSize)
	assert.Equal(t, 900.0, got.MaxLatency)
	assert.Equal(t, Unset, got.MaxJitter)
}

func TestCompileSeriesLengths(t *testing.T) {
	fx, tree := pubSubFixture(t)
	port := fx.port("sw2", "sw3")
	port.automated = true
	port.hypercycle = 350

	s := smt.NewSession()
	fl := pubSub(t, NewBuilder(4), "f", pubSubParams(), tree)
	require.NoError(t, fl.Compile(s))
	assert.ErrorIs(t, fl.Compile(s), ErrAlreadyCompiled)

	frags := fl.Fragments()
	require.Len(t, frags, 4)
	for _, frag := range frags {
		assert.Len(t, frag.DepartureSeries(), frag.Count(), frag.Name())
		assert.Len(t, frag.ScheduledSeries(), frag.Count(), frag.Name())
	}

	counts := map[string]int{}
	for _, frag := range frags {
		counts[frag.NodeName()+"->"+frag.NextHop()] = frag.Count()
	}
	assert.Equal(t, map[string]int{"sw1->sw2": 4, "sw2->d1": 4, "sw2->sw3": 3, "sw3->d2": 4}, counts)

	n, err := fl.DeriveMaxPacketCount()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, fl.MaxPacketCount())

	count, err := fl.PacketCountTo("d2")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.Len(t, fx.port("sw2", "sw3").fragments, 1)
	assert.Len(t, fx.port("sw1", "sw2").fragments, 1)
}

func TestDepartureOffsetsAreExact(t *testing.T) {
	_, tree := pubSubFixture(t)
	p := pubSubParams()
	p.Periodicity = 0.1

	s := smt.NewSession()
	fl := pubSub(t, NewBuilder(4), "f", p, tree)
	require.NoError(t, fl.Compile(s))

	first := fl.Fragments()[0]
	dep, err := first.Departure(3)
	require.NoError(t, err)
	assert.NotContains(t, dep.String(), "7500000000000001")

	v, err := s.Evaluator(smt.Model{fl.FirstSendingTime().Name(): new(big.Rat)}).Value(dep)
	require.NoError(t, err)
	assert.Equal(t, "3/10", v.RatString())
}

func TestArrivalAddsTransmissionTime(t *testing.T) {
	_, tree := pubSubFixture(t)
	s := smt.NewSession()
	fl := pubSub(t, NewBuilder(2), "f", pubSubParams(), tree)
	require.NoError(t, fl.Compile(s))

	frag := fl.Fragments()[1]
	model := smt.Model{}
	for i := 0; i < frag.Count(); i++ {
		model[fmt.Sprintf("%sScheduledTime%d", frag.Name(), i)] = big.NewRat(int64(20+100*i), 1)
	}
	ev := s.Evaluator(model)

	arrivals := frag.ArrivalSeries()
	require.Len(t, arrivals, frag.Count())
	for i := range arrivals {
		arr, err := frag.Arrival(i)
		require.NoError(t, err)
		v, err := ev.Value(arr)
		require.NoError(t, err)
		// 64 byte packets on a 125 link
		want := new(big.Rat).Add(big.NewRat(int64(20+100*i), 1), big.NewRat(64, 125))
		assert.Equal(t, want.RatString(), v.RatString())

		fromSeries, err := ev.Value(arrivals[i])
		require.NoError(t, err)
		assert.Equal(t, want.RatString(), fromSeries.RatString())
	}
	_, err := frag.Arrival(frag.Count())
	assert.ErrorIs(t, err, ErrPacketIndex)
}

func TestCompileAutomatedPortModelsAtLeastOnePacket(t *testing.T) {
	fx, tree := pubSubFixture(t)
	port := fx.port("sw1", "sw2")
	port.automated = true
	port.hypercycle = 50

	fl := pubSub(t, NewBuilder(0), "f", pubSubParams(), tree)
	require.NoError(t, fl.Compile(smt.NewSession()))
	assert.Equal(t, 1, fl.Fragments()[0].Count())
}

func TestCompileLinksFragments(t *testing.T) {
	_, tree := pubSubFixture(t)
	fl := pubSub(t, NewBuilder(0), "f", pubSubParams(), tree)
	require.NoError(t, fl.Compile(smt.NewSession()))

	frags, err := fl.FragmentsTo("d2")
	require.NoError(t, err)
	require.Len(t, frags, 3)
	assert.Equal(t, NoFragment, frags[0].Previous())
	assert.Equal(t, frags[0].ID(), frags[1].Previous())
	assert.Equal(t, frags[1].ID(), frags[2].Previous())

	toD1, err := fl.FragmentsTo("d1")
	require.NoError(t, err)
	require.Len(t, toD1, 2)
	assert.ElementsMatch(t, []FragmentID{toD1[1].ID(), frags[1].ID()}, frags[0].Next())

	for i := 0; i < frags[1].Count(); i++ {
		dep, err := frags[1].Departure(i)
		require.NoError(t, err)
		sched, err := frags[0].Scheduled(i)
		require.NoError(t, err)
		assert.Same(t, sched, dep)
	}

	_, err = frags[0].Departure(frags[0].Count())
	assert.ErrorIs(t, err, ErrPacketIndex)
	_, err = fl.FragmentsTo("sw2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompileMissingPortFails(t *testing.T) {
	fx, tree := pubSubFixture(t)
	delete(fx.relays["sw2"].ports, "sw3")

	fl := pubSub(t, NewBuilder(0), "f", pubSubParams(), tree)
	err := fl.Compile(smt.NewSession())
	assert.ErrorIs(t, err, ErrPortNotFound)
	assert.False(t, fl.Compiled())
}

func TestCompileRequiresResolvedParameters(t *testing.T) {
	_, tree := pubSubFixture(t)
	fl := pubSub(t, NewBuilder(0), "f", DefaultParams(), tree)
	assert.ErrorIs(t, fl.Compile(smt.NewSession()), ErrUnresolved)
}

func TestBindAll(t *testing.T) {
	fx, tree := pubSubFixture(t)
	port := fx.port("sw1", "sw2")
	port.automated = true
	port.hypercycle = 300

	s := smt.NewSession()
	fl := pubSub(t, NewBuilder(0), "f", pubSubParams(), tree)
	require.NoError(t, fl.Compile(s))
	before := len(s.Assertions())
	require.NoError(t, fl.BindAll(s))

	// sw1->sw2 models 3 packets and feeds two fragments with 5, then sw2->sw3
	// feeds sw3->d2 with 5 each.
	assert.Equal(t, 3+3+5, len(s.Assertions())-before)

	model := scheduleModel(s, fl, big.NewRat(10, 1), func(frag *Fragment, i int) *big.Rat {
		return big.NewRat(int64(20+100*i+int(frag.ID())), 1)
	})
	failed, err := s.Evaluator(model).Check(s.Assertions())
	require.NoError(t, err)
	assert.Nil(t, failed)

	for _, frag := range fl.Fragments() {
		if frag.Previous() == NoFragment {
			continue
		}
		prev, err := fl.Fragment(frag.Previous())
		require.NoError(t, err)
		ev := s.Evaluator(model)
		for i := 0; i < min(frag.Count(), prev.Count()); i++ {
			dep, _ := frag.Departure(i)
			sched, _ := prev.Scheduled(i)
			ok, err := ev.Holds(smt.Eq(dep, sched))
			require.NoError(t, err)
			assert.True(t, ok, "%s packet %d", frag.Name(), i)
		}
	}
}

func TestAssertFirstSendingTime(t *testing.T) {
	cases := []struct {
		name      string
		fixed     float64
		wantFixed bool
	}{
		{"feasible fixed value", 10, true},
		{"too early for the packet to leave", 0.5, false},
		{"unset", Unset, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx, tree := pubSubFixture(t)
			fx.port("sw1", "src").cycleStart = 2
			fx.port("sw1", "src").cycleDuration = 40

			p := pubSubParams()
			p.FirstSendingTime = tc.fixed
			s := smt.NewSession()
			fl := pubSub(t, NewBuilder(0), "f", p, tree)
			require.NoError(t, fl.Compile(s))
			require.NoError(t, fl.AssertFirstSendingTime(s))

			fst := fl.FirstSendingTime().Name()
			holds := func(v *big.Rat) bool {
				failed, err := smt.NewEvaluator(smt.Model{fst: v}).Check(s.Assertions())
				require.NoError(t, err)
				return failed == nil
			}
			if tc.wantFixed {
				assert.Equal(t, tc.fixed, fl.Params().FirstSendingTime)
				assert.True(t, holds(big.NewRat(10, 1)))
				assert.False(t, holds(big.NewRat(11, 1)))
				return
			}
			assert.Equal(t, Unset, fl.Params().FirstSendingTime)
			assert.True(t, holds(big.NewRat(64, 125)))
			assert.True(t, holds(big.NewRat(42, 1)))
			assert.False(t, holds(big.NewRat(1, 2)))
			assert.False(t, holds(big.NewRat(43, 1)))
		})
	}
}

func TestFirstHopCycleDurationFallsBackToFragments(t *testing.T) {
	fx, tree := pubSubFixture(t)
	fx.port("sw1", "src").cycleDuration = 0
	fx.port("sw1", "sw2").cycleDuration = 30

	fl := pubSub(t, NewBuilder(0), "f", pubSubParams(), tree)
	require.NoError(t, fl.Compile(smt.NewSession()))
	d, err := fl.FirstHopCycleDuration()
	require.NoError(t, err)
	assert.Equal(t, 30.0, d)

	speed, err := fl.FirstPortSpeed()
	require.NoError(t, err)
	assert.Equal(t, 125.0, speed)
}

func TestRegisterPeriods(t *testing.T) {
	fx, tree := pubSubFixture(t)
	b := NewBuilder(0)
	first := pubSub(t, b, "a", pubSubParams(), tree)
	require.NoError(t, first.RegisterPeriods())
	require.NoError(t, first.RegisterPeriods())

	p := pubSubParams()
	p.Periodicity = 250
	second := pubSub(t, b, "b", p, tree)
	require.NoError(t, second.RegisterPeriods())

	assert.Equal(t, []float64{100, 250}, fx.port("sw1", "sw2").periods)
	assert.Equal(t, []float64{100, 250}, fx.port("sw3", "d2").periods)
	assert.Empty(t, fx.port("sw1", "src").periods)
}

// latencyFixture compiles the publish-subscribe example and returns a model
// in which packet i leaves fragment k at 20 + 100i + 7k + i*i.
func latencyFixture(t *testing.T) (*smt.Session, *Flow, smt.Model) {
	_, tree := pubSubFixture(t)
	s := smt.NewSession()
	fl := pubSub(t, NewBuilder(0), "f", pubSubParams(), tree)
	require.NoError(t, fl.Compile(s))
	require.NoError(t, fl.AssertFirstSendingTime(s))
	require.NoError(t, fl.BindAll(s))
	model := scheduleModel(s, fl, big.NewRat(10, 1), func(frag *Fragment, i int) *big.Rat {
		return big.NewRat(int64(20+100*i+7*int(frag.ID())+i*i), 1)
	})
	return s, fl, model
}

func expectedLatency(t *testing.T, fl *Flow, model smt.Model, dest string, i int) *big.Rat {
	frags, err := fl.FragmentsTo(dest)
	require.NoError(t, err)
	last := frags[len(frags)-1]
	sched := new(big.Rat).Set(model[last.Name()+"ScheduledTime"+strconv.Itoa(i)])
	departure := big.NewRat(int64(10+100*i), 1)
	lat := new(big.Rat).Sub(sched, departure)
	return lat.Add(lat, big.NewRat(64, 125))
}

func TestAverageLatencyIsExactMean(t *testing.T) {
	s, fl, model := latencyFixture(t)
	ev := s.Evaluator(model)

	for _, dest := range []string{"d1", "d2"} {
		count, err := fl.PacketCountTo(dest)
		require.NoError(t, err)

		sum := new(big.Rat)
		for i := 0; i < count; i++ {
			lat, err := fl.Latency(s, dest, i)
			require.NoError(t, err)
			got, err := ev.Value(lat)
			require.NoError(t, err)
			want := expectedLatency(t, fl, model, dest, i)
			assert.Equal(t, want.RatString(), got.RatString())
			sum.Add(sum, want)
		}

		avg, err := fl.AverageLatencyTo(s, dest)
		require.NoError(t, err)
		got, err := ev.Value(avg)
		require.NoError(t, err)
		want := new(big.Rat).Quo(sum, big.NewRat(int64(count), 1))
		assert.Equal(t, want.RatString(), got.RatString(), dest)
	}

	d1, _ := fl.AverageLatencyTo(s, "d1")
	d2, _ := fl.AverageLatencyTo(s, "d2")
	overall, err := fl.AverageLatency(s)
	require.NoError(t, err)
	v1, _ := ev.Value(d1)
	v2, _ := ev.Value(d2)
	got, err := ev.Value(overall)
	require.NoError(t, err)
	want := new(big.Rat).Add(v1, v2)
	want.Quo(want, big.NewRat(2, 1))
	assert.Equal(t, want.RatString(), got.RatString())

	failed, err := ev.Check(s.Assertions())
	require.NoError(t, err)
	assert.Nil(t, failed)
}

func TestJitterIsAbsoluteDeviation(t *testing.T) {
	s, fl, model := latencyFixture(t)
	ev := s.Evaluator(model)

	avgExpr, err := fl.AverageLatencyTo(s, "d2")
	require.NoError(t, err)
	avg, err := ev.Value(avgExpr)
	require.NoError(t, err)

	count, _ := fl.PacketCountTo("d2")
	jitterSum := new(big.Rat)
	for i := 0; i < count; i++ {
		j, err := fl.Jitter(s, "d2", i)
		require.NoError(t, err)
		got, err := ev.Value(j)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.Sign(), 0)

		want := new(big.Rat).Sub(expectedLatency(t, fl, model, "d2", i), avg)
		want.Abs(want)
		assert.Equal(t, want.RatString(), got.RatString(), "packet %d", i)
		jitterSum.Add(jitterSum, want)
	}

	avgJitter, err := fl.AverageJitterTo(s, "d2")
	require.NoError(t, err)
	got, err := ev.Value(avgJitter)
	require.NoError(t, err)
	want := new(big.Rat).Quo(jitterSum, big.NewRat(int64(count), 1))
	assert.Equal(t, want.RatString(), got.RatString())

	_, err = fl.AverageJitter(s)
	require.NoError(t, err)
}

func TestPublishSubscribeExample(t *testing.T) {
	s, fl, model := latencyFixture(t)

	toD1, err := fl.FragmentsTo("d1")
	require.NoError(t, err)
	toD2, err := fl.FragmentsTo("d2")
	require.NoError(t, err)
	assert.Len(t, toD1, 2)
	assert.Len(t, toD2, 3)

	ev := s.Evaluator(model)
	for _, chain := range [][]*Fragment{toD1, toD2} {
		dep, err := chain[0].Departure(0)
		require.NoError(t, err)
		v, err := ev.Value(dep)
		require.NoError(t, err)
		assert.Equal(t, "10", v.RatString())
	}
	assert.Contains(t, assertionStrings(s), "(= flow1FirstSendingTime 10.0)")

	_, err = fl.AverageLatencyTo(s, "d1")
	require.NoError(t, err)
	_, err = fl.AverageLatencyTo(s, "d2")
	require.NoError(t, err)
	_, err = fl.AverageLatencyTo(s, "sw1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSumOfAllDevLatency(t *testing.T) {
	s, fl, model := latencyFixture(t)
	ev := s.Evaluator(model)

	sum, err := fl.SumOfAllDevLatency(s, 2)
	require.NoError(t, err)
	got, err := ev.Value(sum)
	require.NoError(t, err)

	want := new(big.Rat)
	for _, dest := range []string{"d1", "d2"} {
		for i := 0; i < 2; i++ {
			want.Add(want, expectedLatency(t, fl, model, dest, i))
		}
	}
	assert.Equal(t, want.RatString(), got.RatString())

	_, err = fl.SumOfLatency(s, "d1", 0)
	assert.ErrorIs(t, err, ErrPacketIndex)
}

func TestAssertLatencyBounds(t *testing.T) {
	_, tree := pubSubFixture(t)
	p := pubSubParams()
	p.MaxLatency = 1000
	p.MaxJitter = 50

	s := smt.NewSession()
	fl := pubSub(t, NewBuilder(0), "f", p, tree)
	require.NoError(t, fl.Compile(s))
	before := len(s.Assertions())
	require.NoError(t, fl.AssertLatencyBounds(s))

	var bounds int
	for _, a := range s.Assertions()[before:] {
		if app, ok := a.(*smt.App); ok && app.Op() == smt.OpLe {
			bounds++
		}
	}
	// two destinations, five packets each, one latency and one jitter bound
	assert.Equal(t, 2*5*2, bounds)
}

func TestHopPriority(t *testing.T) {
	_, tree := pubSubFixture(t)
	fl := pubSub(t, NewBuilder(0), "f", pubSubParams(), tree)
	require.NoError(t, fl.Compile(smt.NewSession()))

	prio, err := fl.HopPriority("d2")
	require.NoError(t, err)
	frags, _ := fl.FragmentsTo("d2")
	assert.Same(t, frags[2].Priority(), prio)

	prio, err = fl.HopPriority("src")
	require.NoError(t, err)
	assert.Equal(t, "1", prio.String())

	_, err = fl.HopPriority("nowhere")
	assert.ErrorIs(t, err, ErrNotFound)

	_, tree = pubSubFixture(t)
	p := pubSubParams()
	p.Priority = 6
	fixed := pubSub(t, NewBuilder(0), "g", p, tree)
	require.NoError(t, fixed.Compile(smt.NewSession()))
	prio, err = fixed.HopPriority("d1")
	require.NoError(t, err)
	assert.Equal(t, "6", prio.String())
	for _, frag := range fixed.Fragments() {
		assert.Equal(t, "6", frag.Priority().String())
	}
}

func assertionStrings(s *smt.Session) []string {
	var out []string
	for _, a := range s.Assertions() {
		out = append(out, a.String())
	}
	return out
}
