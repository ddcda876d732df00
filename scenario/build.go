package scenario

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/clean-berry/TSNsched/flow"
	"github.com/clean-berry/TSNsched/topology"
)

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// Network builds the devices, switches and links of the scenario. Every bad
// entry is reported, not just the first.
func (sc *Scenario) Network() (*topology.Network, error) {
	var result *multierror.Error
	n := topology.NewNetwork()

	for _, d := range sc.Devices {
		dev := topology.NewDevice(d.Name,
			valueOr(d.Periodicity, flow.Unset),
			valueOr(d.FirstSendingTime, flow.Unset),
			valueOr(d.PacketSize, flow.Unset),
			valueOr(d.MaxLatency, flow.Unset))
		if err := n.AddDevice(dev); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, sw := range sc.Switches {
		if err := n.AddSwitch(topology.NewSwitch(sw.Name)); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, l := range sc.Links {
		if l.Speed <= 0 {
			result = multierror.Append(result, fmt.Errorf("link %s-%s: speed must be positive", l.A, l.B))
			continue
		}
		spec := topology.LinkSpec{
			Speed:         l.Speed,
			CycleStart:    valueOr(l.CycleStart, -1),
			CycleDuration: l.CycleDuration,
			Automated:     l.Automated,
			Hypercycle:    l.Hypercycle,
		}
		if err := n.Connect(l.A, l.B, spec); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	log.Infof("scenario %s: %d nodes, %d links", sc.Name, n.NodeCount(), n.LinkCount())
	return n, nil
}

func (e FlowEntry) params() flow.Params {
	p := flow.DefaultParams()
	p.FirstSendingTime = valueOr(e.FirstSendingTime, flow.Unset)
	p.Periodicity = valueOr(e.Periodicity, flow.Unset)
	p.PacketSize = valueOr(e.PacketSize, flow.Unset)
	p.MaxLatency = valueOr(e.MaxLatency, flow.Unset)
	p.MaxJitter = valueOr(e.MaxJitter, flow.Unset)
	if e.Priority != nil {
		p.Priority = *e.Priority
	}
	return p
}

// BuildFlows creates the flows of the scenario on n with b handing out the
// instance numbers.
func (sc *Scenario) BuildFlows(n *topology.Network, b *flow.Builder) ([]*flow.Flow, error) {
	var result *multierror.Error
	flows := make([]*flow.Flow, 0, len(sc.Flows))
	for _, e := range sc.Flows {
		var (
			fl  *flow.Flow
			err error
		)
		switch e.Type {
		case TypeUnicast, "":
			fl, err = unicast(n, b, e)
		case TypePublishSubscribe:
			fl, err = publishSubscribe(n, b, e)
		default:
			err = fmt.Errorf("unknown flow type %q", e.Type)
		}
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("flow %s: %w", e.Name, err))
			continue
		}
		flows = append(flows, fl)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return flows, nil
}

func unicast(n *topology.Network, b *flow.Builder, e FlowEntry) (*flow.Flow, error) {
	if len(e.Path) == 0 && e.From != "" && e.To != "" {
		path, err := n.ShortestPath(e.From, e.To)
		if err != nil {
			return nil, err
		}
		e.Path = path
	}
	if len(e.Path) < 2 {
		return nil, fmt.Errorf("path needs a source and a destination: %w", flow.ErrInvalidParameter)
	}
	src, ok := n.Device(e.Path[0])
	if !ok {
		return nil, fmt.Errorf("source %s: %w", e.Path[0], flow.ErrNotEndpoint)
	}
	last := e.Path[len(e.Path)-1]
	dst, ok := n.Device(last)
	if !ok {
		return nil, fmt.Errorf("destination %s: %w", last, flow.ErrNotEndpoint)
	}
	relays := make([]flow.Relay, 0, len(e.Path)-2)
	for _, name := range e.Path[1 : len(e.Path)-1] {
		sw, ok := n.Switch(name)
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, flow.ErrNotRelay)
		}
		relays = append(relays, sw)
	}
	return b.NewUnicast(e.Name, e.params(), &flow.UnicastPath{Source: src, Relays: relays, Destination: dst})
}

func publishSubscribe(n *topology.Network, b *flow.Builder, e FlowEntry) (*flow.Flow, error) {
	if len(e.Hops) == 0 {
		return nil, fmt.Errorf("no hops: %w", flow.ErrInvalidParameter)
	}
	fl, err := b.NewPublishSubscribe(e.Name, e.params(), nil)
	if err != nil {
		return nil, err
	}
	for _, hop := range e.Hops {
		from, err := n.Node(hop.From)
		if err != nil {
			return nil, err
		}
		to, err := n.Node(hop.To)
		if err != nil {
			return nil, err
		}
		if err := fl.AddToPath(from, to); err != nil {
			return nil, fmt.Errorf("hop %s->%s: %w", hop.From, hop.To, err)
		}
	}
	return fl, nil
}
