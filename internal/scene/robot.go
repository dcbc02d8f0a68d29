package scene

import (
	"fmt"

	"github.com/san-kum/bulletx/internal/body"
	"github.com/san-kum/bulletx/internal/config"
	"github.com/san-kum/bulletx/internal/engine"
	"github.com/san-kum/bulletx/internal/robot"
)

// RobotOptions is the options block of a robot node.
type RobotOptions struct {
	Base          []float64 `mapstructure:"base"`
	Orientation   []float64 `mapstructure:"orientation"`
	FixedBase     bool      `mapstructure:"fixed_base"`
	Scaling       float64   `mapstructure:"scaling"`
	Flags         int       `mapstructure:"flags"`
	FreeJoints    []string  `mapstructure:"free_joints"`
	ZeroPose      []float64 `mapstructure:"zero_pose"`
	TorqueControl bool      `mapstructure:"torque_control"`
	StateFields   []string  `mapstructure:"state_fields"`
	// AttachTo names a link of the parent robot that this robot's base is
	// fixed to, at AttachOffset in the link frame.
	AttachTo     string    `mapstructure:"attach_to"`
	AttachOffset []float64 `mapstructure:"attach_offset"`
}

func vec3(v []float64) (engine.Vec3, error) {
	var out engine.Vec3
	if v == nil {
		return out, nil
	}
	if len(v) != 3 {
		return out, fmt.Errorf("%w: want 3 coordinates, got %d", ErrBadOptions, len(v))
	}
	copy(out[:], v)
	return out, nil
}

func quat(v []float64) (engine.Quat, error) {
	if v == nil {
		return engine.Identity, nil
	}
	var out engine.Quat
	if len(v) != 4 {
		return out, fmt.Errorf("%w: want a 4 element quaternion, got %d", ErrBadOptions, len(v))
	}
	copy(out[:], v)
	return out, nil
}

func buildRobot(env Env, cfg config.NodeConfig) (robot.Component, error) {
	var opts RobotOptions
	if err := decode(cfg.Options, &opts); err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: robot needs a model", ErrBadOptions)
	}
	fields, err := body.ParseStateFields(opts.StateFields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadOptions, err)
	}
	pos, err := vec3(opts.Base)
	if err != nil {
		return nil, err
	}
	orn, err := quat(opts.Orientation)
	if err != nil {
		return nil, err
	}
	offset, err := vec3(opts.AttachOffset)
	if err != nil {
		return nil, err
	}

	desc, err := env.Models.Resolve(cfg.Model)
	if err != nil {
		return nil, err
	}
	t, err := env.transport()
	if err != nil {
		return nil, err
	}
	r, err := body.NewRobot(t, desc, body.Options{
		Base:      engine.Pose{Position: pos, Orientation: orn},
		FixedBase: opts.FixedBase,
		Scaling:   opts.Scaling,
		Flags:     opts.Flags,
		Logger:    env.logger().With("robot", env.where()),
	})
	if err != nil {
		return nil, err
	}

	if opts.FreeJoints != nil {
		joints, err := r.JointIndices(opts.FreeJoints)
		if err != nil {
			return nil, err
		}
		if err := r.SetFreeJoints(joints); err != nil {
			return nil, err
		}
	}
	if opts.ZeroPose != nil {
		if err := r.SetZeroPose(opts.ZeroPose); err != nil {
			return nil, err
		}
	}
	r.ConfigureStateSpace(fields)
	if err := r.SetTorqueControl(opts.TorqueControl); err != nil {
		return nil, err
	}

	if opts.AttachTo != "" {
		parent, ok := env.Parent.(*body.Robot)
		if !ok {
			return nil, fmt.Errorf("%w: attach_to needs a robot parent", ErrBadOptions)
		}
		if err := parent.Attach(r, opts.AttachTo, offset, engine.Identity); err != nil {
			return nil, err
		}
	}
	return r, nil
}
