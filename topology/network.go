package topology

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/clean-berry/TSNsched/flow"
	"github.com/clean-berry/TSNsched/smt"
)

var (
	ErrDuplicateNode = errors.New("node already exists")
	ErrUnknownNode   = errors.New("unknown node")
)

// LinkSpec describes a full duplex link. Every switch end gets a port with
// these properties.
type LinkSpec struct {
	Speed         float64
	CycleStart    float64
	CycleDuration float64
	Automated     bool
	Hypercycle    float64
}

// Network holds the devices and switches of one scenario and the links
// between them.
type Network struct {
	Devices  map[string]*Device
	Switches map[string]*Switch
	Links    map[string]map[string]LinkSpec
	mutex    sync.RWMutex
}

func NewNetwork() *Network {
	return &Network{
		Devices:  make(map[string]*Device),
		Switches: make(map[string]*Switch),
		Links:    make(map[string]map[string]LinkSpec),
	}
}

func (n *Network) exists(name string) bool {
	_, dev := n.Devices[name]
	_, sw := n.Switches[name]
	return dev || sw
}

func (n *Network) AddDevice(d *Device) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.exists(d.Name()) {
		return fmt.Errorf("device %s: %w", d.Name(), ErrDuplicateNode)
	}
	n.Devices[d.Name()] = d
	return nil
}

func (n *Network) AddSwitch(sw *Switch) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.exists(sw.Name()) {
		return fmt.Errorf("switch %s: %w", sw.Name(), ErrDuplicateNode)
	}
	n.Switches[sw.Name()] = sw
	return nil
}

// Connect links a and b and creates the outgoing ports on the switch ends.
func (n *Network) Connect(a, b string, spec LinkSpec) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	for _, name := range []string{a, b} {
		if !n.exists(name) {
			return fmt.Errorf("link %s-%s: %s: %w", a, b, name, ErrUnknownNode)
		}
	}
	if sw, ok := n.Switches[a]; ok {
		sw.addPort(b, spec)
	}
	if sw, ok := n.Switches[b]; ok {
		sw.addPort(a, spec)
	}
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		if _, ok := n.Links[pair[0]]; !ok {
			n.Links[pair[0]] = make(map[string]LinkSpec)
		}
		n.Links[pair[0]][pair[1]] = spec
	}
	return nil
}

func (n *Network) Device(name string) (*Device, bool) {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	d, ok := n.Devices[name]
	return d, ok
}

func (n *Network) Switch(name string) (*Switch, bool) {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	sw, ok := n.Switches[name]
	return sw, ok
}

// Node resolves a name to the device or switch carrying it.
func (n *Network) Node(name string) (flow.Node, error) {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	if d, ok := n.Devices[name]; ok {
		return d, nil
	}
	if sw, ok := n.Switches[name]; ok {
		return sw, nil
	}
	return nil, fmt.Errorf("%s: %w", name, ErrUnknownNode)
}

func (n *Network) GetLinkSpec(a, b string) (LinkSpec, bool) {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	if targets, ok := n.Links[a]; ok {
		if spec, ok := targets[b]; ok {
			return spec, true
		}
	}
	return LinkSpec{}, false
}

func (n *Network) GetNeighbours(name string) []string {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	result := make([]string, 0, len(n.Links[name]))
	for target := range n.Links[name] {
		result = append(result, target)
	}
	sort.Strings(result)
	return result
}

func (n *Network) NodeCount() int {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	return len(n.Devices) + len(n.Switches)
}

// LinkCount counts each full duplex link once.
func (n *Network) LinkCount() int {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	count := 0
	for _, targets := range n.Links {
		count += len(targets)
	}
	return count / 2
}

func (n *Network) GetAllNodes() []string {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	nodes := make([]string, 0, len(n.Devices)+len(n.Switches))
	for name := range n.Devices {
		nodes = append(nodes, name)
	}
	for name := range n.Switches {
		nodes = append(nodes, name)
	}
	sort.Strings(nodes)
	return nodes
}

// SortedSwitches returns the switches ordered by name.
func (n *Network) SortedSwitches() []*Switch {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	names := make([]string, 0, len(n.Switches))
	for name := range n.Switches {
		names = append(names, name)
	}
	sort.Strings(names)
	switches := make([]*Switch, 0, len(names))
	for _, name := range names {
		switches = append(switches, n.Switches[name])
	}
	return switches
}

// AssertPortConstraints adds the timing rules of every port in the network,
// switch by switch in name order.
func (n *Network) AssertPortConstraints(s *smt.Session) int {
	total := 0
	switches := n.SortedSwitches()
	for _, sw := range switches {
		for _, port := range sw.Ports() {
			total += port.AssertConstraints(s)
		}
	}
	log.Infof("AssertPortConstraints, switch num: %d , constraint num: %d ", len(switches), total)
	return total
}
