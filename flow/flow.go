package flow

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/clean-berry/TSNsched/smt"
)

// Unset marks a timing parameter that is inherited from the source endpoint
// or left to the solver.
const Unset = -1.0

// DefaultPacketUpperBound is the number of packets modelled per fragment on
// ports without an automated application period.
const DefaultPacketUpperBound = 5

// FreePriority lets the solver choose the priority of every fragment.
const FreePriority = -1

type Kind int

const (
	Unicast Kind = iota
	PublishSubscribe
)

func (k Kind) String() string {
	if k == Unicast {
		return "unicast"
	}
	return "publish-subscribe"
}

// Route is the topology of a flow: *UnicastPath or *PathTree.
type Route interface {
	isRoute()
}

// UnicastPath is a linear route through Relays from Source to Destination.
type UnicastPath struct {
	Source      Endpoint
	Relays      []Relay
	Destination Endpoint
}

func (*UnicastPath) isRoute() {}

// Params are the user supplied timing parameters of a flow. Any of the
// float fields may be Unset.
type Params struct {
	FirstSendingTime float64
	Periodicity      float64
	PacketSize       float64
	MaxLatency       float64
	MaxJitter        float64
	Priority         int
}

func DefaultParams() Params {
	return Params{
		FirstSendingTime: Unset,
		Periodicity:      Unset,
		PacketSize:       Unset,
		MaxLatency:       Unset,
		MaxJitter:        Unset,
		Priority:         FreePriority,
	}
}

// FixedPriority reports whether the priority is a valid 802.1Q class.
func (p Params) FixedPriority() bool {
	return p.Priority >= 0 && p.Priority <= 7
}

// Builder creates flows and hands out their instance numbers. Every solver
// variable of a flow is derived from its name, so names are unique per
// builder.
type Builder struct {
	mu               sync.Mutex
	next             int
	names            map[string]bool
	PacketUpperBound int
}

func NewBuilder(packetUpperBound int) *Builder {
	if packetUpperBound <= 0 {
		packetUpperBound = DefaultPacketUpperBound
	}
	return &Builder{PacketUpperBound: packetUpperBound, names: make(map[string]bool)}
}

func (b *Builder) newFlow(name string, params Params, route Route) (*Flow, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	instance := b.next + 1
	if name == "" {
		name = fmt.Sprintf("flow%d", instance)
	}
	if b.names[name] {
		return nil, fmt.Errorf("flow name %q: %w", name, ErrDuplicateFlow)
	}
	b.names[name] = true
	b.next = instance
	return &Flow{
		name:             name,
		instance:         instance,
		params:           params,
		route:            route,
		packetUpperBound: b.PacketUpperBound,
	}, nil
}

// NewUnicast creates a flow following path.
func (b *Builder) NewUnicast(name string, params Params, path *UnicastPath) (*Flow, error) {
	if path == nil || path.Source == nil || path.Destination == nil {
		return nil, fmt.Errorf("unicast flow %q needs a source and a destination: %w", name, ErrInvalidParameter)
	}
	return b.newFlow(name, params, path)
}

// NewPublishSubscribe creates a flow distributed along tree. A nil tree
// starts empty and is grown with AddToPath.
func (b *Builder) NewPublishSubscribe(name string, params Params, tree *PathTree) (*Flow, error) {
	if tree == nil {
		tree = NewPathTree()
	}
	return b.newFlow(name, params, tree)
}

// Flow is a periodic traffic stream from one source to one or more
// destinations. A flow is compiled once against one session.
type Flow struct {
	name             string
	instance         int
	params           Params
	route            Route
	packetUpperBound int

	fragments   []*Fragment
	fst         *smt.Var
	periodicity smt.Expr
	priority    smt.Expr
	packetSize  smt.Expr
	maxCount    int
	compiled    bool
}

func (f *Flow) Name() string   { return f.name }
func (f *Flow) Instance() int  { return f.instance }
func (f *Flow) Params() Params { return f.params }

func (f *Flow) Kind() Kind {
	if _, ok := f.route.(*UnicastPath); ok {
		return Unicast
	}
	return PublishSubscribe
}

// UnicastPath returns the linear route of a flow that was not converted yet.
func (f *Flow) UnicastPath() (*UnicastPath, error) {
	p, ok := f.route.(*UnicastPath)
	if !ok {
		return nil, fmt.Errorf("flow %s has no unicast path: %w", f.name, ErrKindMismatch)
	}
	return p, nil
}

// Tree returns the distribution tree of a publish-subscribe flow.
func (f *Flow) Tree() (*PathTree, error) {
	t, ok := f.route.(*PathTree)
	if !ok {
		return nil, fmt.Errorf("flow %s has no path tree: %w", f.name, ErrKindMismatch)
	}
	return t, nil
}

// Source returns the endpoint the flow originates from.
func (f *Flow) Source() (Endpoint, error) {
	switch r := f.route.(type) {
	case *UnicastPath:
		return r.Source, nil
	case *PathTree:
		if r.Root() == NoNode {
			return nil, fmt.Errorf("flow %s: %w", f.name, ErrNoRoot)
		}
		ep, ok := r.Node(r.Root()).(Endpoint)
		if !ok {
			return nil, fmt.Errorf("flow %s root %s: %w", f.name, r.Name(r.Root()), ErrNotEndpoint)
		}
		return ep, nil
	}
	return nil, fmt.Errorf("flow %s: %w", f.name, ErrKindMismatch)
}

// Destinations returns the names of the flow's sinks in tree order.
func (f *Flow) Destinations() []string {
	switch r := f.route.(type) {
	case *UnicastPath:
		return []string{r.Destination.Name()}
	case *PathTree:
		var names []string
		for _, leaf := range r.Leaves() {
			if leaf != r.Root() {
				names = append(names, r.Name(leaf))
			}
		}
		return names
	}
	return nil
}

// AddToPath grows the tree of a publish-subscribe flow by an edge from the
// node named source to dest. The first call creates the root.
func (f *Flow) AddToPath(source Node, dest Node) error {
	tree, err := f.Tree()
	if err != nil {
		return err
	}
	if tree.Root() == NoNode {
		root, err := tree.AddRoot(source)
		if err != nil {
			return err
		}
		_, err = tree.AddChild(root, dest)
		return err
	}
	parent, ok := tree.SearchNode(source.Name(), tree.Root())
	if !ok {
		log.Errorf("flow %s: source node %s not found in tree", f.name, source.Name())
		return fmt.Errorf("flow %s: source %s: %w", f.name, source.Name(), ErrNotFound)
	}
	_, err = tree.AddChild(parent, dest)
	return err
}

// ConvertUnicast replaces a unicast path by the equivalent single-branch
// tree. Converting a publish-subscribe flow is a no-op.
func (f *Flow) ConvertUnicast() error {
	path, ok := f.route.(*UnicastPath)
	if !ok {
		return nil
	}
	if len(path.Relays) == 0 {
		return fmt.Errorf("flow %s: %w", f.name, ErrEmptyPath)
	}
	tree := NewPathTree()
	cur, err := tree.AddRoot(path.Source)
	if err != nil {
		return err
	}
	for _, relay := range path.Relays {
		if cur, err = tree.AddChild(cur, relay); err != nil {
			return err
		}
	}
	if _, err = tree.AddChild(cur, path.Destination); err != nil {
		return err
	}
	f.route = tree
	log.Debugf("flow %s converted to a %d hop tree", f.name, len(path.Relays)+1)
	return nil
}

// ApplyEndpointDefaults fills unset periodicity, first sending time, packet
// size and maximum latency from the source endpoint.
func (f *Flow) ApplyEndpointDefaults() error {
	src, err := f.Source()
	if err != nil {
		return err
	}
	if f.params.Periodicity == Unset {
		f.params.Periodicity = src.DefaultPeriodicity()
	}
	if f.params.FirstSendingTime == Unset {
		f.params.FirstSendingTime = src.DefaultFirstSendingTime()
	}
	if f.params.PacketSize == Unset {
		f.params.PacketSize = src.DefaultPacketSize()
	}
	if f.params.MaxLatency == Unset {
		f.params.MaxLatency = src.DefaultMaxLatency()
	}
	return nil
}

// Fragment returns the fragment with the given id.
func (f *Flow) Fragment(id FragmentID) (*Fragment, error) {
	if id < 0 || int(id) >= len(f.fragments) {
		return nil, fmt.Errorf("flow %s fragment %d: %w", f.name, id, ErrNotFound)
	}
	return f.fragments[id], nil
}

// Fragments returns every fragment in creation order.
func (f *Flow) Fragments() []*Fragment {
	out := make([]*Fragment, len(f.fragments))
	copy(out, f.fragments)
	return out
}

// FirstSendingTime is the solver variable for the first packet's release.
func (f *Flow) FirstSendingTime() *smt.Var { return f.fst }

// PriorityExpr is the flow level priority, constant when fixed.
func (f *Flow) PriorityExpr() smt.Expr { return f.priority }

// MaxPacketCount is the largest packet count of any fragment.
func (f *Flow) MaxPacketCount() int { return f.maxCount }

func (f *Flow) Compiled() bool { return f.compiled }

func (f *Flow) String() string {
	return fmt.Sprintf("%s(%s, %d fragments)", f.name, f.Kind(), len(f.fragments))
}
