package flow

import (
	"fmt"

	"github.com/gammazero/deque"
)

// NodeID addresses a node inside the PathTree that owns it.
type NodeID int

// NoNode is the parent of the root and the result of failed lookups.
const NoNode NodeID = -1

// PathNode wraps one topology node. fragments[k] is the fragment leaving this
// node towards children[k].
type PathNode struct {
	node      Node
	parent    NodeID
	children  []NodeID
	fragments []FragmentID
}

// PathTree is a distribution tree. All nodes are stored in the tree and refer
// to each other by NodeID.
type PathTree struct {
	nodes []PathNode
	root  NodeID
}

func NewPathTree() *PathTree {
	return &PathTree{root: NoNode}
}

func (*PathTree) isRoute() {}

func (t *PathTree) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// AddRoot creates the root node. A tree holds exactly one root.
func (t *PathTree) AddRoot(n Node) (NodeID, error) {
	if t.root != NoNode {
		return NoNode, fmt.Errorf("add root %s: %w", n.Name(), ErrRootExists)
	}
	t.nodes = append(t.nodes, PathNode{node: n, parent: NoNode})
	t.root = NodeID(len(t.nodes) - 1)
	return t.root, nil
}

// AddChild appends n to the children of parent and returns the new node.
func (t *PathTree) AddChild(parent NodeID, n Node) (NodeID, error) {
	if !t.valid(parent) {
		return NoNode, fmt.Errorf("add child %s to node %d: %w", n.Name(), parent, ErrNotFound)
	}
	t.nodes = append(t.nodes, PathNode{node: n, parent: parent})
	id := NodeID(len(t.nodes) - 1)
	t.nodes[parent].children = append(t.nodes[parent].children, id)
	return id, nil
}

func (t *PathTree) Root() NodeID { return t.root }

func (t *PathTree) Len() int { return len(t.nodes) }

// Node returns the topology node wrapped by id, or nil for an unknown id.
func (t *PathTree) Node(id NodeID) Node {
	if !t.valid(id) {
		return nil
	}
	return t.nodes[id].node
}

// Name returns the name of the topology node wrapped by id.
func (t *PathTree) Name(id NodeID) string {
	if n := t.Node(id); n != nil {
		return n.Name()
	}
	return ""
}

func (t *PathTree) Parent(id NodeID) NodeID {
	if !t.valid(id) {
		return NoNode
	}
	return t.nodes[id].parent
}

func (t *PathTree) Children(id NodeID) []NodeID {
	if !t.valid(id) {
		return nil
	}
	out := make([]NodeID, len(t.nodes[id].children))
	copy(out, t.nodes[id].children)
	return out
}

func (t *PathTree) IsLeaf(id NodeID) bool {
	return t.valid(id) && len(t.nodes[id].children) == 0
}

// ChildIndex returns the position of id among its parent's children, or -1
// for the root and unknown ids.
func (t *PathTree) ChildIndex(id NodeID) int {
	parent := t.Parent(id)
	if parent == NoNode {
		return -1
	}
	for i, c := range t.nodes[parent].children {
		if c == id {
			return i
		}
	}
	return -1
}

// Fragments returns the fragments leaving id, aligned with Children(id).
// Entries for edges that were not compiled hold NoFragment.
func (t *PathTree) Fragments(id NodeID) []FragmentID {
	if !t.valid(id) {
		return nil
	}
	out := make([]FragmentID, len(t.nodes[id].fragments))
	copy(out, t.nodes[id].fragments)
	return out
}

// FragmentTowards returns the fragment leaving the parent of id towards id.
func (t *PathTree) FragmentTowards(id NodeID) FragmentID {
	parent := t.Parent(id)
	idx := t.ChildIndex(id)
	if parent == NoNode || idx < 0 || idx >= len(t.nodes[parent].fragments) {
		return NoFragment
	}
	return t.nodes[parent].fragments[idx]
}

func (t *PathTree) attachFragment(id NodeID, childIndex int, frag FragmentID) {
	pn := &t.nodes[id]
	for len(pn.fragments) <= childIndex {
		pn.fragments = append(pn.fragments, NoFragment)
	}
	pn.fragments[childIndex] = frag
}

// SearchNode looks for a node named name in the subtree rooted at start,
// depth first. The boolean is false when no such node exists.
func (t *PathTree) SearchNode(name string, start NodeID) (NodeID, bool) {
	if !t.valid(start) {
		return NoNode, false
	}
	var stack deque.Deque[NodeID]
	stack.PushBack(start)
	for stack.Len() > 0 {
		id := stack.PopBack()
		if t.nodes[id].node.Name() == name {
			return id, true
		}
		children := t.nodes[id].children
		for i := len(children) - 1; i >= 0; i-- {
			stack.PushBack(children[i])
		}
	}
	return NoNode, false
}

// Leaves returns every node without children in depth-first preorder.
func (t *PathTree) Leaves() []NodeID {
	if t.root == NoNode {
		return nil
	}
	var leaves []NodeID
	var stack deque.Deque[NodeID]
	stack.PushBack(t.root)
	for stack.Len() > 0 {
		id := stack.PopBack()
		children := t.nodes[id].children
		if len(children) == 0 {
			leaves = append(leaves, id)
			continue
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack.PushBack(children[i])
		}
	}
	return leaves
}

// PathTo returns the nodes from the root down to id, both included.
func (t *PathTree) PathTo(id NodeID) []NodeID {
	if !t.valid(id) {
		return nil
	}
	var path []NodeID
	for cur := id; cur != NoNode; cur = t.nodes[cur].parent {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Depth is the number of edges between the root and id.
func (t *PathTree) Depth(id NodeID) int {
	return len(t.PathTo(id)) - 1
}
