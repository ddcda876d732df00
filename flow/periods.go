package flow

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// RegisterPeriods records the flow periodicity on the outgoing port of every
// relay edge of the tree. Ports ignore periods they already know.
func (f *Flow) RegisterPeriods() error {
	tree, err := f.Tree()
	if err != nil {
		return err
	}
	if tree.Root() == NoNode {
		return fmt.Errorf("flow %s: %w", f.name, ErrNoRoot)
	}
	return f.registerPeriods(tree, tree.Root())
}

func (f *Flow) registerPeriods(tree *PathTree, node NodeID) error {
	children := tree.Children(node)
	if len(children) == 0 {
		return nil
	}
	relay, isRelay := tree.Node(node).(Relay)
	for _, child := range children {
		if err := f.registerPeriods(tree, child); err != nil {
			return err
		}
		if !isRelay {
			continue
		}
		port, ok := relay.PortTo(tree.Name(child))
		if !ok || port == nil {
			log.Errorf("flow %s: relay %s has no port towards %s", f.name, relay.Name(), tree.Name(child))
			return fmt.Errorf("flow %s: %s -> %s: %w", f.name, relay.Name(), tree.Name(child), ErrPortNotFound)
		}
		port.RegisterPeriodicity(f.params.Periodicity)
	}
	return nil
}

// DeriveMaxPacketCount records the largest packet count of any compiled
// fragment in the tree and returns it.
func (f *Flow) DeriveMaxPacketCount() (int, error) {
	tree, err := f.Tree()
	if err != nil {
		return 0, err
	}
	if !f.compiled {
		return 0, fmt.Errorf("flow %s: %w", f.name, ErrNotCompiled)
	}
	f.maxCount = 0
	f.deriveMaxPacketCount(tree, tree.Root())
	return f.maxCount, nil
}

func (f *Flow) deriveMaxPacketCount(tree *PathTree, node NodeID) {
	for _, id := range tree.Fragments(node) {
		if id != NoFragment && f.fragments[id].count > f.maxCount {
			f.maxCount = f.fragments[id].count
		}
	}
	for _, child := range tree.Children(node) {
		f.deriveMaxPacketCount(tree, child)
	}
}
