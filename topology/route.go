package topology

import (
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
)

var ErrNoRoute = errors.New("no route between devices")

// ShortestPath returns the node names from device src to device dst along
// the path with the smallest per byte transmission delay, the sum of 1/speed
// over its links. Only switches relay; equal delays prefer fewer hops and
// then the lexically smaller predecessor.
func (n *Network) ShortestPath(src, dst string) ([]string, error) {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	for _, name := range []string{src, dst} {
		if _, ok := n.Devices[name]; !ok {
			return nil, fmt.Errorf("route %s->%s: %s: %w", src, dst, name, ErrUnknownNode)
		}
	}

	names := make([]string, 0, len(n.Devices)+len(n.Switches))
	for name := range n.Devices {
		names = append(names, name)
	}
	for name := range n.Switches {
		names = append(names, name)
	}
	sort.Strings(names)

	const unreachable = -1.0
	delay := make(map[string]float64, len(names))
	hops := make(map[string]int, len(names))
	predecessor := make(map[string]string, len(names))
	visited := make(map[string]bool, len(names))
	for _, name := range names {
		delay[name] = unreachable
	}
	delay[src] = 0

	for range names {
		current := ""
		for _, name := range names { // find the node with minimum delay
			if visited[name] || delay[name] < 0 {
				continue
			}
			if current == "" || delay[name] < delay[current] ||
				(delay[name] == delay[current] && hops[name] < hops[current]) {
				current = name
			}
		}
		if current == "" || current == dst {
			break
		}
		visited[current] = true
		if _, relay := n.Switches[current]; !relay && current != src {
			continue
		}

		for next, spec := range n.Links[current] {
			if visited[next] || spec.Speed <= 0 {
				continue
			}
			d := delay[current] + 1/spec.Speed
			better := delay[next] < 0 || d < delay[next] ||
				(d == delay[next] && (hops[current]+1 < hops[next] ||
					(hops[current]+1 == hops[next] && current < predecessor[next])))
			if better {
				delay[next] = d
				hops[next] = hops[current] + 1
				predecessor[next] = current
			}
		}
	}

	if delay[dst] < 0 || src == dst {
		return nil, fmt.Errorf("route %s->%s: %w", src, dst, ErrNoRoute)
	}
	path := []string{dst}
	for node := dst; node != src; {
		node = predecessor[node]
		path = append(path, node)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	log.Debugf("route %s->%s: %v", src, dst, path)
	return path, nil
}
