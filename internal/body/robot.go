package body

import (
	"fmt"
	"math"

	"github.com/san-kum/bulletx/internal/attr"
	"github.com/san-kum/bulletx/internal/engine"
	"github.com/san-kum/bulletx/internal/robot"
	"github.com/san-kum/bulletx/internal/space"
)

// MaxForce is the effort used to hold the motors when torque control is
// switched off.
const MaxForce = 1e4

// StateFields selects the joint fields a Robot reports.
type StateFields struct {
	JointPosition           bool
	JointVelocity           bool
	JointReactionForces     bool
	AppliedJointMotorTorque bool
}

func AllStateFields() StateFields {
	return StateFields{true, true, true, true}
}

// ParseStateFields selects fields by their snapshot keys. An empty list
// selects all of them.
func ParseStateFields(names []string) (StateFields, error) {
	if len(names) == 0 {
		return AllStateFields(), nil
	}
	var f StateFields
	for _, n := range names {
		switch n {
		case "joint_position":
			f.JointPosition = true
		case "joint_velocity":
			f.JointVelocity = true
		case "joint_reaction_forces":
			f.JointReactionForces = true
		case "applied_joint_motor_torque":
			f.AppliedJointMotorTorque = true
		default:
			return f, fmt.Errorf("body: unknown state field %q", n)
		}
	}
	return f, nil
}

func (f StateFields) has(key string) bool {
	switch key {
	case "joint_position":
		return f.JointPosition
	case "joint_velocity":
		return f.JointVelocity
	case "joint_reaction_forces":
		return f.JointReactionForces
	case "applied_joint_motor_torque":
		return f.AppliedJointMotorTorque
	}
	return false
}

// Robot is a body whose free joints are exposed as a tree component. By
// default every non-fixed joint is free and controlled by position.
type Robot struct {
	*Body
	robot.Node

	free   []int
	infos  engine.JointInfos
	zero   []float64
	torque bool
	fields StateFields
}

var _ robot.Component = (*Robot)(nil)

func NewRobot(t engine.Transport, desc engine.BodyDesc, opts Options) (*Robot, error) {
	b, err := New(t, desc, opts)
	if err != nil {
		return nil, err
	}
	r := &Robot{Body: b, fields: AllStateFields()}

	n, err := b.NumJoints()
	if err != nil {
		return nil, err
	}
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	infos, err := b.JointInfos(all)
	if err != nil {
		return nil, err
	}
	var free []int
	for i, typ := range infos.Type {
		if typ != engine.Fixed {
			free = append(free, infos.Index[i])
		}
	}
	if err := r.SetFreeJoints(free); err != nil {
		return nil, err
	}
	return r, nil
}

// SetFreeJoints replaces the controlled joints, recomputes the zero pose and
// enables the force/torque sensor on each of them.
func (r *Robot) SetFreeJoints(joints []int) error {
	infos, err := r.Body.JointInfos(joints)
	if err != nil {
		return err
	}
	r.free = append([]int(nil), joints...)
	r.infos = infos
	r.zero = make([]float64, len(joints))
	for i := range r.zero {
		lo, hi := r.positionBounds(i)
		r.zero[i] = math.Max(lo, math.Min(hi, 0))
	}
	return r.SetJointForceTorqueSensor(true)
}

func (r *Robot) FreeJoints() []int { return append([]int(nil), r.free...) }

func (r *Robot) NumDOFs() int { return len(r.free) }

func (r *Robot) ZeroPose() []float64 { return append([]float64(nil), r.zero...) }

// SetZeroPose overrides the pose Reset returns to.
func (r *Robot) SetZeroPose(q []float64) error {
	if len(q) != len(r.free) {
		return fmt.Errorf("%w: zero pose has %d entries for %d joints", engine.ErrLengthMismatch, len(q), len(r.free))
	}
	r.zero = append([]float64(nil), q...)
	return nil
}

func (r *Robot) TorqueControl() bool { return r.torque }

// JointInfos reports the free joints when joints is nil.
func (r *Robot) JointInfos(joints []int) (engine.JointInfos, error) {
	if joints == nil {
		return r.infos, nil
	}
	return r.Body.JointInfos(joints)
}

// JointStates reports the free joints when joints is nil.
func (r *Robot) JointStates(joints []int) (engine.JointStates, error) {
	if joints == nil {
		joints = r.free
	}
	return r.Body.JointStates(joints)
}

// positionBounds treats lower >= upper as an unlimited joint.
func (r *Robot) positionBounds(i int) (float64, float64) {
	lo, hi := r.infos.LowerLimit[i], r.infos.UpperLimit[i]
	if lo >= hi {
		return math.Inf(-1), math.Inf(1)
	}
	return lo, hi
}

func symmetric(limit float64) (float64, float64) {
	if limit <= 0 {
		return math.Inf(-1), math.Inf(1)
	}
	return -limit, limit
}

func (r *Robot) box(bound func(i int) (float64, float64)) *space.Box {
	n := len(r.free)
	lo, hi := make([]float64, n), make([]float64, n)
	for i := range lo {
		lo[i], hi[i] = bound(i)
	}
	return space.MustBox(lo, hi, n)
}

func (r *Robot) SetJointForceTorqueSensor(on bool) error {
	for _, j := range r.free {
		if err := r.t.EnableJointForceTorqueSensor(r.id, j, on); err != nil {
			return err
		}
	}
	return nil
}

// ConfigureStateSpace chooses which joint fields appear in StateSpace and
// States.
func (r *Robot) ConfigureStateSpace(f StateFields) { r.fields = f }

func (r *Robot) StateFields() StateFields { return r.fields }

func (r *Robot) fullStateSpace() space.Dict {
	n := len(r.free)
	return space.Dict{
		"joint_position": r.box(r.positionBounds),
		"joint_velocity": r.box(func(i int) (float64, float64) {
			return symmetric(r.infos.MaxVelocity[i])
		}),
		"joint_reaction_forces":      space.Unbounded(n, 6),
		"applied_joint_motor_torque": space.Unbounded(n),
	}
}

func (r *Robot) StateSpace() (space.Dict, error) {
	return r.RouteStateSpace(func() (space.Dict, error) {
		out := space.Dict{}
		for k, s := range r.fullStateSpace() {
			if r.fields.has(k) {
				out[k] = s
			}
		}
		return out, nil
	})
}

func (r *Robot) ActionSpace() (space.Dict, error) {
	return r.RouteActionSpace(func() (space.Dict, error) {
		if r.torque {
			return space.Dict{"joint_torque": r.box(func(i int) (float64, float64) {
				return symmetric(r.infos.MaxForce[i])
			})}, nil
		}
		return space.Dict{"joint_position": r.box(r.positionBounds)}, nil
	})
}

func (r *Robot) States() (attr.Map, error) {
	return r.RouteStates(func() (attr.Map, error) {
		st, err := r.JointStates(nil)
		if err != nil {
			return nil, err
		}
		out := attr.Map{}
		for k, v := range st.Map() {
			if r.fields.has(k) {
				out[k] = v
			}
		}
		return out, nil
	})
}

// SetActions applies joint_torque in torque mode and joint_position
// otherwise. A request without that field leaves the motors alone.
func (r *Robot) SetActions(actions attr.Map) error {
	return r.RouteActions(actions, func(local attr.Map) error {
		key := "joint_position"
		if r.torque {
			key = "joint_torque"
		}
		v, ok := local[key]
		if !ok || v == nil {
			return nil
		}
		vals, ok := attr.Floats(v)
		if !ok {
			return fmt.Errorf("body: %s of %q holds %T: %w", key, r.Name(), v, robot.ErrBadAction)
		}
		if r.torque {
			return r.SetJointTorque(vals)
		}
		return r.SetJointPosition(vals, nil, true)
	})
}

// SetTorqueControl switches between torque and position control. Enabling
// releases every motor (velocity control with zero force); disabling holds
// them with MaxForce.
func (r *Robot) SetTorqueControl(enable bool) error {
	if r.torque == enable {
		return nil
	}
	force := MaxForce
	if enable {
		force = 0
	}
	forces := make([]float64, len(r.free))
	for i := range forces {
		forces[i] = force
	}
	err := r.t.SetJointMotorControlArray(r.id, engine.Command{
		Mode:    engine.VelocityControl,
		Indices: r.free,
		Forces:  forces,
	})
	if err != nil {
		return err
	}
	r.torque = enable
	return nil
}

// SetJointPosition drives the free joints to q. The effort applied depends on
// maxForces (M) and useEffortLimits (U):
//
//  1. M nil, U true: the joint effort limits of the description. When they
//     are all zero this falls back to case 2.
//  2. M nil, U false: unlimited effort.
//  3. M set, U true: M clipped by the effort limits.
//  4. M set, U false: M as given.
func (r *Robot) SetJointPosition(q, maxForces []float64, useEffortLimits bool) error {
	if err := r.SetTorqueControl(false); err != nil {
		return err
	}
	if len(q) != len(r.free) {
		return fmt.Errorf("%w: %d target positions for %d joints", engine.ErrLengthMismatch, len(q), len(r.free))
	}
	if maxForces != nil {
		if len(maxForces) != len(r.free) {
			return fmt.Errorf("%w: %d max forces for %d joints", engine.ErrLengthMismatch, len(maxForces), len(r.free))
		}
		if allZero(maxForces) {
			return ErrZeroMaxForce
		}
	}

	limits := r.infos.MaxForce
	if maxForces == nil && useEffortLimits && allZero(limits) {
		r.log.Warn("joint effort limits are all zero, ignoring them")
		useEffortLimits = false
	}

	var forces []float64
	switch {
	case maxForces == nil && useEffortLimits:
		forces = append([]float64(nil), limits...)
	case maxForces == nil:
	case useEffortLimits:
		forces = make([]float64, len(maxForces))
		for i := range forces {
			forces[i] = math.Min(maxForces[i], limits[i])
		}
	default:
		forces = append([]float64(nil), maxForces...)
	}

	return r.t.SetJointMotorControlArray(r.id, engine.Command{
		Mode:             engine.PositionControl,
		Indices:          r.free,
		Targets:          q,
		TargetVelocities: make([]float64, len(q)),
		Forces:           forces,
	})
}

func (r *Robot) SetJointTorque(tau []float64) error {
	if err := r.SetTorqueControl(true); err != nil {
		return err
	}
	return r.t.SetJointMotorControlArray(r.id, engine.Command{
		Mode:    engine.TorqueControl,
		Indices: r.free,
		Forces:  tau,
	})
}

func allZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func (r *Robot) JointsWithinLimits() (bool, error) {
	if len(r.free) == 0 {
		return true, nil
	}
	st, err := r.JointStates(nil)
	if err != nil {
		return false, err
	}
	for i, q := range st.Position {
		lo, hi := r.positionBounds(i)
		if q < lo || q > hi {
			return false, nil
		}
	}
	return true, nil
}

// Attach fixes child's base to the named link of r, offset by pos and orn in
// the link frame. The attached pose becomes the pose child resets to.
func (r *Robot) Attach(child *Robot, linkName string, pos engine.Vec3, orn engine.Quat) error {
	if child == nil {
		return ErrNotRobot
	}
	link, err := r.LinkIndex(linkName)
	if err != nil {
		return err
	}
	ls, err := r.LinkState(link)
	if err != nil {
		return err
	}
	at := ls.WorldPosition
	for k := range at {
		at[k] += pos[k]
	}
	if err := child.SetBasePose(engine.NewPose(at)); err != nil {
		return err
	}
	child.init = engine.NewPose(at)
	if orn == (engine.Quat{}) {
		orn = engine.Identity
	}
	_, err = r.t.CreateConstraint(engine.Constraint{
		ParentBody:  r.id,
		ParentLink:  link,
		ChildBody:   child.id,
		ChildLink:   -1,
		Type:        engine.Fixed,
		ParentFrame: engine.Pose{Position: pos, Orientation: orn},
		ChildFrame:  engine.NewPose(engine.Vec3{}),
	})
	return err
}

// Summarize logs the info record of every free joint.
func (r *Robot) Summarize() error {
	for _, j := range r.free {
		info, err := r.JointInfo(j)
		if err != nil {
			return err
		}
		r.log.Info(fmt.Sprintf("joint #%d", j), "info", "\n"+info.String())
	}
	r.log.Info("summary", "dofs", r.NumDOFs())
	return nil
}

// Reset restores the base pose, puts every free joint at the zero pose and
// resets the subtree.
func (r *Robot) Reset() error {
	if err := r.Body.Reset(); err != nil {
		return err
	}
	for i, j := range r.free {
		if err := r.t.ResetJointState(r.id, j, r.zero[i]); err != nil {
			return err
		}
	}
	if ok, err := r.JointsWithinLimits(); err != nil {
		return err
	} else if !ok {
		r.log.Warn("joints reset to positions outside the limits")
	}
	return r.ResetChildren()
}
