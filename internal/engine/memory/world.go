// Package memory is an in-process engine.Transport. It integrates the free
// joints of every loaded body in joint space with a dynamo integrator and
// drops free bases onto a ground plane at z = 0. It has no collision
// solver and no renderer.
package memory

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/san-kum/bulletx/internal/dynamo"
	"github.com/san-kum/bulletx/internal/engine"
	"github.com/san-kum/bulletx/internal/integrators"
)

type World struct {
	id      int
	dt      float64
	gravity engine.Vec3
	kp, kd  float64
	integ   dynamo.Integrator
	log     *slog.Logger

	bodies      []*body
	constraints []engine.Constraint
	time        float64
	steps       int
}

var _ engine.Transport = (*World)(nil)
var _ dynamo.Configurable = (*World)(nil)

func New(opts ...Option) *World {
	w := &World{
		dt:      DefaultTimeStep,
		gravity: DefaultGravity,
		kp:      DefaultKp,
		kd:      DefaultKd,
	}
	for _, o := range opts {
		o(w)
	}
	if w.integ == nil {
		w.integ = integrators.NewRK4()
	}
	if w.log == nil {
		w.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return w
}

func (w *World) ID() int { return w.id }

func (w *World) TimeStep() float64 { return w.dt }

// Time is the simulated time since construction.
func (w *World) Time() float64 { return w.time }

func (w *World) NumBodies() int { return len(w.bodies) }

func (w *World) body(id int) (*body, error) {
	if id < 0 || id >= len(w.bodies) {
		return nil, fmt.Errorf("%w: %d", engine.ErrUnknownBody, id)
	}
	return w.bodies[id], nil
}

func (b *body) joint(i int) error {
	if i < 0 || i >= len(b.infos) {
		return fmt.Errorf("%w: body %d has no joint %d", engine.ErrJointIndex, b.id, i)
	}
	return nil
}

func (w *World) LoadBody(desc engine.BodyDesc, opts engine.LoadOptions) (int, error) {
	for i, j := range desc.Joints {
		if j.Parent < -1 || j.Parent >= i {
			return -1, fmt.Errorf("memory: joint %q of %q: parent %d must precede it", j.Name, desc.Name, j.Parent)
		}
	}
	id := len(w.bodies)
	b := newBody(w, id, desc, opts)
	w.bodies = append(w.bodies, b)
	w.log.Debug("body loaded", "body", id, "name", desc.Name, "joints", len(desc.Joints), "dofs", b.dofs())
	return id, nil
}

func (w *World) NumJoints(body int) (int, error) {
	b, err := w.body(body)
	if err != nil {
		return 0, err
	}
	return len(b.infos), nil
}

func (w *World) JointInfo(body, joint int) (engine.JointInfo, error) {
	b, err := w.body(body)
	if err != nil {
		return engine.JointInfo{}, err
	}
	if err := b.joint(joint); err != nil {
		return engine.JointInfo{}, err
	}
	return b.infos[joint], nil
}

func (w *World) JointInfos(body int, joints []int) (engine.JointInfos, error) {
	infos := make([]engine.JointInfo, 0, len(joints))
	for _, j := range joints {
		info, err := w.JointInfo(body, j)
		if err != nil {
			return engine.JointInfos{}, err
		}
		infos = append(infos, info)
	}
	return engine.CollectJointInfos(infos), nil
}

func (w *World) JointStates(body int, joints []int) (engine.JointStates, error) {
	b, err := w.body(body)
	if err != nil {
		return engine.JointStates{}, err
	}
	states := make([]engine.JointState, 0, len(joints))
	for _, j := range joints {
		if err := b.joint(j); err != nil {
			return engine.JointStates{}, err
		}
		states = append(states, b.jointState(j))
	}
	return engine.CollectJointStates(states), nil
}

func (w *World) LinkStates(body int, links []int) (engine.LinkStates, error) {
	b, err := w.body(body)
	if err != nil {
		return engine.LinkStates{}, err
	}
	states := make([]engine.LinkState, 0, len(links))
	for _, l := range links {
		if err := b.joint(l); err != nil {
			return engine.LinkStates{}, err
		}
		states = append(states, b.linkState(l))
	}
	return engine.CollectLinkStates(states), nil
}

// DynamicsInfos reports link -1 as the base.
func (w *World) DynamicsInfos(body int, links []int) (engine.DynamicsInfos, error) {
	b, err := w.body(body)
	if err != nil {
		return engine.DynamicsInfos{}, err
	}
	infos := make([]engine.DynamicsInfo, 0, len(links))
	for _, l := range links {
		mass := b.desc.BaseMass
		if l != -1 {
			if err := b.joint(l); err != nil {
				return engine.DynamicsInfos{}, err
			}
			mass = b.desc.Joints[l].Mass
		}
		infos = append(infos, engine.DynamicsInfo{
			Mass:             mass,
			LateralFriction:  0.5,
			LocalInertialOrn: engine.Identity,
			BodyType:         engine.MultiBody,
		})
	}
	return engine.CollectDynamicsInfos(infos), nil
}

// ResetJointState teleports a joint and zeroes its velocity. Fixed joints
// ignore it.
func (w *World) ResetJointState(body, joint int, position float64) error {
	b, err := w.body(body)
	if err != nil {
		return err
	}
	if err := b.joint(joint); err != nil {
		return err
	}
	s := b.slot[joint]
	if s < 0 {
		return nil
	}
	q, qd := b.x.Split()
	q[s], qd[s] = position, 0
	b.record()
	return nil
}

func (w *World) EnableJointForceTorqueSensor(body, joint int, on bool) error {
	b, err := w.body(body)
	if err != nil {
		return err
	}
	if err := b.joint(joint); err != nil {
		return err
	}
	if s := b.slot[joint]; s >= 0 {
		b.sensors[s] = on
	}
	return nil
}

func (w *World) SetJointMotorControlArray(body int, cmd engine.Command) error {
	b, err := w.body(body)
	if err != nil {
		return err
	}
	if err := cmd.Validate(); err != nil {
		return err
	}
	for k, j := range cmd.Indices {
		if err := b.joint(j); err != nil {
			return err
		}
		s := b.slot[j]
		if s < 0 {
			return fmt.Errorf("%w: joint %d of body %d is fixed", engine.ErrJointIndex, j, body)
		}
		m := motor{mode: cmd.Mode, force: math.Inf(1)}
		if cmd.Targets != nil {
			m.target = cmd.Targets[k]
		}
		if cmd.TargetVelocities != nil {
			m.targetVel = cmd.TargetVelocities[k]
		}
		if cmd.Forces != nil {
			m.force = cmd.Forces[k]
			m.limited = cmd.Mode != engine.TorqueControl
		}
		b.motors[s] = m
	}
	return nil
}

func (w *World) BasePose(body int) (engine.Pose, error) {
	b, err := w.body(body)
	if err != nil {
		return engine.Pose{}, err
	}
	return b.pose, nil
}

func (w *World) ResetBasePose(body int, pose engine.Pose) error {
	b, err := w.body(body)
	if err != nil {
		return err
	}
	b.pose = pose
	return nil
}

func (w *World) BaseVelocity(body int) (engine.Twist, error) {
	b, err := w.body(body)
	if err != nil {
		return engine.Twist{}, err
	}
	return b.vel, nil
}

func (w *World) ResetBaseVelocity(body int, v engine.Twist) error {
	b, err := w.body(body)
	if err != nil {
		return err
	}
	b.vel = v
	return nil
}

// CreateConstraint pins the child base to the parent link frame. Only fixed
// constraints on a child base (link -1) are supported.
func (w *World) CreateConstraint(c engine.Constraint) (int, error) {
	parent, err := w.body(c.ParentBody)
	if err != nil {
		return -1, err
	}
	child, err := w.body(c.ChildBody)
	if err != nil {
		return -1, err
	}
	if c.ParentLink != -1 {
		if err := parent.joint(c.ParentLink); err != nil {
			return -1, err
		}
	}
	if c.Type != engine.Fixed || c.ChildLink != -1 {
		return -1, fmt.Errorf("memory: only fixed constraints on a child base are supported, got %s on link %d", c.Type, c.ChildLink)
	}
	child.attached = true
	w.constraints = append(w.constraints, c)
	w.follow(c)
	return len(w.constraints) - 1, nil
}

func (w *World) follow(c engine.Constraint) {
	parent, child := w.bodies[c.ParentBody], w.bodies[c.ChildBody]
	anchor := parent.pose.Position
	vel := parent.vel
	if c.ParentLink != -1 {
		ls := parent.linkState(c.ParentLink)
		anchor, vel.Linear = ls.WorldPosition, ls.WorldLinearVelocity
	}
	for k := 0; k < 3; k++ {
		anchor[k] += c.ParentFrame.Position[k] - c.ChildFrame.Position[k]
	}
	child.pose.Position = anchor
	child.vel = vel
}

// ContactPoints reports a ground contact for a free base resting at z <= 0.
func (w *World) ContactPoints(body int) ([]engine.ContactPoint, error) {
	b, err := w.body(body)
	if err != nil {
		return nil, err
	}
	if b.pose.Position[2] > 0 {
		return nil, nil
	}
	pos := b.pose.Position
	return []engine.ContactPoint{{
		BodyA:       body,
		BodyB:       -1,
		LinkA:       -1,
		LinkB:       -1,
		PositionOnA: pos,
		PositionOnB: engine.Vec3{pos[0], pos[1], 0},
		NormalOnB:   engine.Vec3{0, 0, 1},
		Distance:    pos[2],
		NormalForce: b.desc.BaseMass * math.Abs(w.gravity[2]),
	}}, nil
}

// StepSimulation advances every body by one time step. Next states are
// computed for all bodies first; if any is invalid the world is left as it
// was.
func (w *World) StepSimulation() error {
	next := make([]dynamo.State, len(w.bodies))
	for i, b := range w.bodies {
		if len(b.x) == 0 {
			continue
		}
		x := w.integ.Step(b, b.x, nil, w.time, w.dt)
		if !x.IsValid() {
			return &dynamo.StepError{Body: b.id, Step: w.steps, Time: w.time, Wrapped: dynamo.ErrInvalidState}
		}
		next[i] = x
	}
	for i, b := range w.bodies {
		if next[i] != nil {
			b.x = next[i]
			b.clampLimits()
			b.record()
		}
		if !b.opts.FixedBase && !b.attached {
			w.fall(b)
		}
	}
	for _, c := range w.constraints {
		w.follow(c)
	}
	w.time += w.dt
	w.steps++
	return nil
}

func (w *World) fall(b *body) {
	for k := 0; k < 3; k++ {
		b.vel.Linear[k] += w.gravity[k] * w.dt
		b.pose.Position[k] += b.vel.Linear[k] * w.dt
	}
	if b.pose.Position[2] <= 0 {
		b.pose.Position[2] = 0
		b.vel = engine.Twist{}
	}
}

func (w *World) Params() map[string]float64 {
	return map[string]float64{
		"time_step": w.dt,
		"gravity_x": w.gravity[0],
		"gravity_y": w.gravity[1],
		"gravity_z": w.gravity[2],
		"kp":        w.kp,
		"kd":        w.kd,
	}
}

func (w *World) SetParam(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s=%v", dynamo.ErrParameterBounds, name, value)
	}
	switch name {
	case "time_step":
		if value <= 0 {
			return fmt.Errorf("%w: time_step must be positive, got %v", dynamo.ErrParameterBounds, value)
		}
		w.dt = value
	case "gravity_x":
		w.gravity[0] = value
	case "gravity_y":
		w.gravity[1] = value
	case "gravity_z":
		w.gravity[2] = value
	case "kp":
		w.kp = value
	case "kd":
		w.kd = value
	default:
		return fmt.Errorf("%w: %q", dynamo.ErrUnknownParam, name)
	}
	return nil
}
