package robot

import (
	"fmt"
	"sort"

	"github.com/san-kum/bulletx/internal/attr"
	"github.com/san-kum/bulletx/internal/space"
)

// SpaceFunc produces a component's own space fields.
type SpaceFunc func() (space.Dict, error)

// StatesFunc produces a component's own state fields.
type StatesFunc func() (attr.Map, error)

// ActionFunc applies the part of a request that is not addressed to a child.
type ActionFunc func(local attr.Map) error

// RouteStateSpace merges the children's state spaces with local.
func (n *Node) RouteStateSpace(local SpaceFunc) (space.Dict, error) {
	return n.routeSpace("state_space", Component.StateSpace, local)
}

// RouteActionSpace merges the children's action spaces with local.
func (n *Node) RouteActionSpace(local SpaceFunc) (space.Dict, error) {
	return n.routeSpace("action_space", Component.ActionSpace, local)
}

func (n *Node) routeSpace(op string, get func(Component) (space.Dict, error), local SpaceFunc) (space.Dict, error) {
	children := make(space.Dict, len(n.children))
	for _, c := range n.children {
		s, err := get(c.Component)
		if err != nil {
			return nil, err
		}
		children[c.Name] = s
	}

	var own space.Dict
	if local != nil {
		var err error
		if own, err = local(); err != nil {
			return nil, err
		}
	}

	return merge(op, children, own, emptySpace)
}

// RouteStates merges the children's snapshots with local.
func (n *Node) RouteStates(local StatesFunc) (attr.Map, error) {
	children := make(attr.Map, len(n.children))
	for _, c := range n.children {
		s, err := c.Component.States()
		if err != nil {
			return nil, err
		}
		children[c.Name] = s
	}

	var own attr.Map
	if local != nil {
		var err error
		if own, err = local(); err != nil {
			return nil, err
		}
	}

	return merge("get_states", children, own, emptyBranch)
}

// RouteActions splits actions into the keys naming a child and the rest. The
// rest goes to local first; each child then receives its own sub-request.
// Keys that reach a nil local are dropped.
func (n *Node) RouteActions(actions attr.Map, local ActionFunc) error {
	own := make(attr.Map, len(actions))
	for k, v := range actions {
		if n.index(k) < 0 {
			own[k] = v
		}
	}
	if local != nil {
		if err := local(own); err != nil {
			return err
		}
	}

	for _, c := range n.children {
		v, ok := actions[c.Name]
		if !ok || v == nil {
			continue
		}
		sub, ok := attr.Branch(v)
		if !ok {
			return fmt.Errorf("%w: %q holds %T", ErrNotMapping, c.Name, v)
		}
		if err := c.Component.SetActions(sub); err != nil {
			return err
		}
	}
	return nil
}

// ResetChildren resets every child in registration order and stops at the
// first failure.
func (n *Node) ResetChildren() error {
	for _, c := range n.children {
		if err := c.Component.Reset(); err != nil {
			return err
		}
	}
	return nil
}

func merge[M ~map[string]V, V any](op string, children, own M, empty func(V) bool) (M, error) {
	var clash []string
	for k := range own {
		if _, ok := children[k]; ok {
			clash = append(clash, k)
		}
	}
	if len(clash) > 0 {
		sort.Strings(clash)
		return nil, &CollisionError{Op: op, Keys: clash}
	}

	merged := make(M, len(children)+len(own))
	for k, v := range children {
		merged[k] = v
	}
	for k, v := range own {
		merged[k] = v
	}
	for k, v := range merged {
		if empty(v) {
			delete(merged, k)
		}
	}
	return merged, nil
}

func emptySpace(s space.Space) bool {
	d, ok := s.(space.Dict)
	return ok && len(d) == 0
}

func emptyBranch(v any) bool {
	b, ok := attr.Branch(v)
	return ok && len(b) == 0
}
