package robot_test

import (
	"errors"

	"github.com/san-kum/bulletx/internal/attr"
	"github.com/san-kum/bulletx/internal/robot"
	"github.com/san-kum/bulletx/internal/space"
)

// arm is a leaf with a joint_position state and a joint_torque action.
type arm struct {
	robot.Node
	dofs     int
	position []float64
	received []attr.Map
	resets   int
}

func newArm(dofs int) *arm {
	return &arm{dofs: dofs, position: make([]float64, dofs)}
}

func (a *arm) StateSpace() (space.Dict, error) {
	return a.RouteStateSpace(func() (space.Dict, error) {
		return space.Dict{"joint_position": space.MustBox([]float64{-3}, []float64{3}, a.dofs)}, nil
	})
}

func (a *arm) ActionSpace() (space.Dict, error) {
	return a.RouteActionSpace(func() (space.Dict, error) {
		return space.Dict{
			"joint_torque":   space.Unbounded(a.dofs),
			"joint_position": space.MustBox([]float64{-3}, []float64{3}, a.dofs),
		}, nil
	})
}

func (a *arm) States() (attr.Map, error) {
	return a.RouteStates(func() (attr.Map, error) {
		return attr.Map{"joint_position": append([]float64(nil), a.position...)}, nil
	})
}

func (a *arm) SetActions(actions attr.Map) error {
	return a.RouteActions(actions, func(local attr.Map) error {
		a.received = append(a.received, local)
		if q, ok := local["joint_position"].([]float64); ok {
			copy(a.position, q)
		}
		return nil
	})
}

func (a *arm) Reset() error {
	for i := range a.position {
		a.position[i] = 0
	}
	a.resets++
	return a.ResetChildren()
}

// hand only declares an action space.
type hand struct {
	robot.Node
	received []attr.Map
}

func (h *hand) ActionSpace() (space.Dict, error) {
	return h.RouteActionSpace(func() (space.Dict, error) {
		return space.Dict{"joint_torque": space.MustBox([]float64{0}, []float64{1}, 16)}, nil
	})
}

func (h *hand) SetActions(actions attr.Map) error {
	return h.RouteActions(actions, func(local attr.Map) error {
		h.received = append(h.received, local)
		return nil
	})
}

// clash declares a local state field that a test may also register as a child name.
type clash struct {
	robot.Node
	field string
}

func (c *clash) StateSpace() (space.Dict, error) {
	return c.RouteStateSpace(func() (space.Dict, error) {
		return space.Dict{c.field: space.Unbounded(1)}, nil
	})
}

func (c *clash) ActionSpace() (space.Dict, error) {
	return c.RouteActionSpace(func() (space.Dict, error) {
		return space.Dict{c.field: space.Unbounded(1)}, nil
	})
}

func (c *clash) States() (attr.Map, error) {
	return c.RouteStates(func() (attr.Map, error) {
		return attr.Map{c.field: 0.0}, nil
	})
}

var errEngine = errors.New("engine: connection lost")

// broken fails every read and write, like a lost transport.
type broken struct {
	robot.Node
}

func (b *broken) States() (attr.Map, error) {
	return b.RouteStates(func() (attr.Map, error) { return nil, errEngine })
}

func (b *broken) SetActions(actions attr.Map) error {
	return b.RouteActions(actions, func(attr.Map) error { return errEngine })
}

func (b *broken) Reset() error { return errEngine }
