// Package order resolves the execution order of step modifiers from their declared ordering and
// co-occurrence constraints. Ordering is computed over a directed graph; modifiers with no
// ordering relation to each other keep their relative configuration order.
package order

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.arcalot.io/dgraph"
)

// Item is one modifier occurrence to order. Items are passed in configuration order, which
// serves as the tie-break between unrelated modifiers.
type Item struct {
	// Kind identifies the modifier.
	Kind string
	// Before lists kinds this item must precede.
	Before map[string]struct{}
	// After lists kinds that must precede this item.
	After map[string]struct{}
	// Required lists kinds that must also be present.
	Required map[string]struct{}
	// Prohibited lists kinds that must not be present.
	Prohibited map[string]struct{}
}

// ErrMissingRequired indicates that a modifier requires other modifiers that are not present on
// the step.
type ErrMissingRequired struct {
	Kind    string
	Missing []string
}

func (e ErrMissingRequired) Error() string {
	return fmt.Sprintf(
		"modifier %q requires the following modifiers, which are not present: %s",
		e.Kind,
		strings.Join(e.Missing, ", "),
	)
}

// ErrProhibitedPresent indicates that a modifier is combined with modifiers it prohibits.
type ErrProhibitedPresent struct {
	Kind       string
	Prohibited []string
}

func (e ErrProhibitedPresent) Error() string {
	return fmt.Sprintf(
		"modifier %q cannot be combined with the following modifiers: %s",
		e.Kind,
		strings.Join(e.Prohibited, ", "),
	)
}

// ErrOrderingCycle indicates that the before/after relations of the listed modifiers
// contradict each other.
type ErrOrderingCycle struct {
	Kinds []string
}

func (e ErrOrderingCycle) Error() string {
	return fmt.Sprintf("modifier ordering conflict between: %s", strings.Join(e.Kinds, ", "))
}

// Resolve checks the co-occurrence constraints of the provided items and computes an execution
// order satisfying every before/after relation among them. It returns the input indices in
// execution order. Before/After references to kinds that are not present are ignored.
func Resolve(items []Item) ([]int, error) {
	present := make(map[string]int, len(items))
	for i, item := range items {
		present[item.Kind] = i
	}

	// Co-occurrence violations take precedence over ordering conflicts.
	for _, item := range items {
		var missing []string
		for kind := range item.Required {
			if _, ok := present[kind]; !ok {
				missing = append(missing, kind)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return nil, &ErrMissingRequired{item.Kind, missing}
		}
		var prohibited []string
		for kind := range item.Prohibited {
			if _, ok := present[kind]; ok && kind != item.Kind {
				prohibited = append(prohibited, kind)
			}
		}
		if len(prohibited) > 0 {
			sort.Strings(prohibited)
			return nil, &ErrProhibitedPresent{item.Kind, prohibited}
		}
	}

	dag := dgraph.New[int]()
	nodes := make([]dgraph.Node[int], len(items))
	for i, item := range items {
		node, err := dag.AddNode(item.Kind, i)
		if err != nil {
			return nil, fmt.Errorf("bug: failed to add modifier %q to the ordering graph (%w)", item.Kind, err)
		}
		nodes[i] = node
	}
	for i, item := range items {
		for kind := range item.Before {
			if err := connect(items, nodes, present, i, kind, false); err != nil {
				return nil, err
			}
		}
		for kind := range item.After {
			if err := connect(items, nodes, present, i, kind, true); err != nil {
				return nil, err
			}
		}
	}

	result := make([]int, 0, len(items))
	done := make([]bool, len(items))
	for len(result) < len(items) {
		ready := dag.ListNodesWithoutInboundConnections()
		if len(ready) == 0 {
			var remaining []string
			for i, item := range items {
				if !done[i] {
					remaining = append(remaining, item.Kind)
				}
			}
			sort.Strings(remaining)
			return nil, &ErrOrderingCycle{remaining}
		}
		// Among the ready modifiers, the one configured first runs first.
		selected := -1
		for _, node := range ready {
			if selected < 0 || node.Item() < selected {
				selected = node.Item()
			}
		}
		if err := nodes[selected].Remove(); err != nil {
			return nil, fmt.Errorf("bug: failed to remove modifier %q from the ordering graph (%w)", items[selected].Kind, err)
		}
		done[selected] = true
		result = append(result, selected)
	}
	return result, nil
}

// connect adds the edge for one before/after declaration of items[i] against the named kind.
// With reversed set, the named kind precedes items[i], otherwise items[i] precedes it.
func connect(items []Item, nodes []dgraph.Node[int], present map[string]int, i int, kind string, reversed bool) error {
	j, ok := present[kind]
	if !ok {
		return nil
	}
	if j == i {
		// A self-reference is a cycle of one.
		return &ErrOrderingCycle{[]string{items[i].Kind}}
	}
	from, to := i, j
	if reversed {
		from, to = j, i
	}
	err := nodes[from].Connect(items[to].Kind)
	if err == nil {
		return nil
	}
	alreadyExists := &dgraph.ErrConnectionAlreadyExists{}
	if errors.As(err, &alreadyExists) {
		// The same relation was declared from both sides.
		return nil
	}
	return fmt.Errorf(
		"bug: failed to connect modifiers %q and %q in the ordering graph (%w)",
		items[from].Kind,
		items[to].Kind,
		err,
	)
}
