package devices

import (
	"fmt"
	"math"

	"github.com/san-kum/bulletx/internal/attr"
	"github.com/san-kum/bulletx/internal/robot"
	"github.com/san-kum/bulletx/internal/space"
)

type GripperOptions struct {
	// Rate is the fraction of the gap to the commanded opening closed per
	// action. Zero means 0.5.
	Rate float64 `mapstructure:"rate"`
}

// Gripper is a one-dimensional opening in [0, 1] driven by a force command.
type Gripper struct {
	robot.Node
	rate     float64
	position float64
	force    float64
}

func NewGripper(opts GripperOptions) *Gripper {
	if opts.Rate <= 0 || opts.Rate > 1 {
		opts.Rate = 0.5
	}
	return &Gripper{rate: opts.Rate}
}

func unit() *space.Box { return space.MustBox([]float64{0}, []float64{1}) }

func (g *Gripper) StateSpace() (space.Dict, error) {
	return g.RouteStateSpace(func() (space.Dict, error) {
		return space.Dict{"position": unit()}, nil
	})
}

func (g *Gripper) ActionSpace() (space.Dict, error) {
	return g.RouteActionSpace(func() (space.Dict, error) {
		return space.Dict{"force": unit()}, nil
	})
}

func (g *Gripper) States() (attr.Map, error) {
	return g.RouteStates(func() (attr.Map, error) {
		return attr.Map{"position": g.position}, nil
	})
}

func (g *Gripper) SetActions(actions attr.Map) error {
	return g.RouteActions(actions, func(local attr.Map) error {
		raw, ok := local["force"]
		if !ok || raw == nil {
			return nil
		}
		v, ok := attr.Floats(raw)
		if !ok || len(v) != 1 {
			return fmt.Errorf("devices: force holds %T: %w", raw, robot.ErrBadAction)
		}
		g.force = math.Max(0, math.Min(1, v[0]))
		g.position += g.rate * (g.force - g.position)
		return nil
	})
}

// Force is the last commanded force.
func (g *Gripper) Force() float64 { return g.force }

func (g *Gripper) Reset() error {
	g.position, g.force = 0, 0
	return g.ResetChildren()
}
