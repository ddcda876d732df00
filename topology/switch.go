package topology

import (
	"sort"
	"sync"

	"github.com/clean-berry/TSNsched/flow"
)

// Switch is a TSN relay with one outgoing port per neighbour.
type Switch struct {
	mutex sync.RWMutex
	name  string
	ports map[string]*Port
}

func NewSwitch(name string) *Switch {
	return &Switch{name: name, ports: make(map[string]*Port)}
}

func (sw *Switch) Name() string { return sw.name }

func (sw *Switch) addPort(next string, spec LinkSpec) *Port {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	port := newPort(sw.name, next, spec)
	sw.ports[next] = port
	return port
}

// PortTo implements flow.Relay.
func (sw *Switch) PortTo(nextHop string) (flow.Port, bool) {
	port, ok := sw.Port(nextHop)
	if !ok {
		return nil, false
	}
	return port, true
}

func (sw *Switch) Port(nextHop string) (*Port, bool) {
	sw.mutex.RLock()
	defer sw.mutex.RUnlock()

	port, ok := sw.ports[nextHop]
	return port, ok
}

// Ports returns the switch ports ordered by next hop name.
func (sw *Switch) Ports() []*Port {
	sw.mutex.RLock()
	defer sw.mutex.RUnlock()

	ports := make([]*Port, 0, len(sw.ports))
	for _, port := range sw.ports {
		ports = append(ports, port)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].next < ports[j].next })
	return ports
}

// Fragments returns every fragment leaving the switch, port by port.
func (sw *Switch) Fragments() []*flow.Fragment {
	var frags []*flow.Fragment
	for _, port := range sw.Ports() {
		frags = append(frags, port.Fragments()...)
	}
	return frags
}
