package robot

import (
	"fmt"

	"github.com/san-kum/bulletx/internal/attr"
	"github.com/san-kum/bulletx/internal/space"
)

type Component interface {
	Base() *Node
	StateSpace() (space.Dict, error)
	ActionSpace() (space.Dict, error)
	States() (attr.Map, error)
	SetActions(actions attr.Map) error
	Reset() error
}

type Child struct {
	Name      string
	Component Component
}

// Node is the default Component: no local fields, every operation forwarded
// to the children in registration order.
type Node struct {
	parent   *Node
	children []Child
}

func NewNode() *Node {
	return &Node{}
}

func (n *Node) Base() *Node { return n }

// Parent returns the owning node, or nil for a root or detached node.
func (n *Node) Parent() *Node { return n.parent }

func (n *Node) Len() int { return len(n.children) }

// Children returns the registered children in insertion order.
func (n *Node) Children() []Child {
	out := make([]Child, len(n.children))
	copy(out, n.children)
	return out
}

func (n *Node) ChildNames() []string {
	names := make([]string, len(n.children))
	for i, c := range n.children {
		names[i] = c.Name
	}
	return names
}

func (n *Node) Child(name string) (Component, bool) {
	i := n.index(name)
	if i < 0 {
		return nil, false
	}
	return n.children[i].Component, true
}

func (n *Node) index(name string) int {
	for i, c := range n.children {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// AddChild registers c under name. The child must not be owned by another
// node and must not be n or one of its ancestors.
func (n *Node) AddChild(name string, c Component) error {
	if name == "" {
		return ErrEmptyName
	}
	if c == nil {
		return ErrNilComponent
	}
	if n.index(name) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateChild, name)
	}
	cb := c.Base()
	if cb.parent != nil {
		return fmt.Errorf("%w: %q", ErrAlreadyOwned, name)
	}
	for a := n; a != nil; a = a.parent {
		if a == cb {
			return fmt.Errorf("%w: %q", ErrCycle, name)
		}
	}
	cb.parent = n
	n.children = append(n.children, Child{Name: name, Component: c})
	return nil
}

// RemoveChild detaches the named child and returns it, leaving it free to be
// added elsewhere.
func (n *Node) RemoveChild(name string) (Component, error) {
	i := n.index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrChildNotFound, name)
	}
	c := n.children[i].Component
	n.children = append(n.children[:i], n.children[i+1:]...)
	c.Base().parent = nil
	return c, nil
}

func (n *Node) StateSpace() (space.Dict, error) { return n.RouteStateSpace(nil) }

func (n *Node) ActionSpace() (space.Dict, error) { return n.RouteActionSpace(nil) }

func (n *Node) States() (attr.Map, error) { return n.RouteStates(nil) }

func (n *Node) SetActions(actions attr.Map) error { return n.RouteActions(actions, nil) }

func (n *Node) Reset() error { return n.ResetChildren() }
