package memory

import (
	"github.com/san-kum/bulletx/internal/dynamo"
	"github.com/san-kum/bulletx/internal/engine"
)

type motor struct {
	mode      engine.ControlMode
	target    float64
	targetVel float64
	force     float64
	limited   bool
}

// body is one loaded description. Its free joints form a [q..., qd...]
// state integrated as a dynamo.System.
type body struct {
	w     *World
	id    int
	desc  engine.BodyDesc
	opts  engine.LoadOptions
	infos []engine.JointInfo
	slot  []int // joint index to state slot, -1 for fixed joints

	x        dynamo.State
	motors   []motor
	applied  []float64
	sensors  []bool
	pose     engine.Pose
	vel      engine.Twist
	attached bool
}

func newBody(w *World, id int, desc engine.BodyDesc, opts engine.LoadOptions) *body {
	b := &body{
		w:    w,
		id:   id,
		desc: desc,
		opts: opts,
		pose: opts.Base,
		slot: make([]int, len(desc.Joints)),
	}
	if b.pose.Orientation == (engine.Quat{}) {
		b.pose.Orientation = engine.Identity
	}

	free := 0
	for i, j := range desc.Joints {
		info := engine.JointInfo{
			Index:          i,
			Name:           j.Name,
			Type:           j.Type,
			QIndex:         -1,
			UIndex:         -1,
			Damping:        j.Damping,
			Friction:       j.Friction,
			LowerLimit:     j.Lower,
			UpperLimit:     j.Upper,
			MaxForce:       j.MaxForce,
			MaxVelocity:    j.MaxVelocity,
			LinkName:       j.LinkName,
			Axis:           j.Axis,
			ParentFramePos: scale(j.Origin, opts.Scaling),
			ParentFrameOrn: engine.Identity,
			ParentIndex:    j.Parent,
		}
		b.slot[i] = -1
		if j.Type != engine.Fixed {
			b.slot[i] = free
			info.QIndex = 7 + free
			info.UIndex = 6 + free
			free++
		}
		b.infos = append(b.infos, info)
	}

	b.x = make(dynamo.State, 2*free)
	b.motors = make([]motor, free)
	b.applied = make([]float64, free)
	b.sensors = make([]bool, free)
	for i, j := range desc.Joints {
		if s := b.slot[i]; s >= 0 {
			b.motors[s] = motor{mode: engine.VelocityControl, force: j.MaxForce, limited: true}
		}
	}
	return b
}

func scale(v engine.Vec3, s float64) engine.Vec3 {
	if s <= 0 {
		return v
	}
	return engine.Vec3{v[0] * s, v[1] * s, v[2] * s}
}

func (b *body) dofs() int { return len(b.motors) }

func (b *body) StateDim() int   { return len(b.x) }
func (b *body) ControlDim() int { return 0 }

// torque evaluates the motor law of slot s at (q, qd).
func (b *body) torque(s int, q, qd float64) float64 {
	m := b.motors[s]
	var tau float64
	switch m.mode {
	case engine.PositionControl:
		tau = b.w.kp*(m.target-q) + b.w.kd*(m.targetVel-qd)
	case engine.VelocityControl:
		tau = b.w.kd * (m.targetVel - qd)
	case engine.TorqueControl:
		return m.force
	}
	if m.limited {
		tau = dynamo.Clamp(tau, m.force)
	}
	return tau
}

func (b *body) mass(s int) float64 {
	for i, j := range b.desc.Joints {
		if b.slot[i] == s && j.Mass > 0 {
			return j.Mass
		}
	}
	return 1
}

func (b *body) Derive(x dynamo.State, _ dynamo.Control, _ float64) dynamo.State {
	q, qd := x.Split()
	n := len(q)
	dx := make(dynamo.State, 2*n)
	for s := 0; s < n; s++ {
		damping := b.infos[b.jointOf(s)].Damping
		dx[s] = qd[s]
		dx[n+s] = (b.torque(s, q[s], qd[s]) - damping*qd[s]) / b.mass(s)
	}
	return dx
}

func (b *body) jointOf(s int) int {
	for i, sl := range b.slot {
		if sl == s {
			return i
		}
	}
	return -1
}

// clampLimits holds limited joints inside [lower, upper] and stops them at
// the boundary. Joints with lower >= upper are unlimited.
func (b *body) clampLimits() {
	q, qd := b.x.Split()
	for i, info := range b.infos {
		s := b.slot[i]
		if s < 0 || info.LowerLimit >= info.UpperLimit {
			continue
		}
		if q[s] < info.LowerLimit {
			q[s], qd[s] = info.LowerLimit, 0
		} else if q[s] > info.UpperLimit {
			q[s], qd[s] = info.UpperLimit, 0
		}
	}
}

func (b *body) record() {
	q, qd := b.x.Split()
	for s := range b.applied {
		b.applied[s] = b.torque(s, q[s], qd[s])
	}
}

func (b *body) jointState(i int) engine.JointState {
	s := b.slot[i]
	if s < 0 {
		return engine.JointState{}
	}
	q, qd := b.x.Split()
	st := engine.JointState{Position: q[s], Velocity: qd[s], AppliedTorque: b.applied[s]}
	if b.sensors[s] {
		m := b.mass(s)
		axis := b.infos[i].Axis
		g := b.w.gravity
		st.ReactionForces = [6]float64{
			-m * g[0], -m * g[1], -m * g[2],
			b.applied[s] * axis[0], b.applied[s] * axis[1], b.applied[s] * axis[2],
		}
	}
	return st
}

// linkState walks the parent chain of link i. Prismatic joints translate
// along their axis; rotations are not modelled.
func (b *body) linkState(i int) engine.LinkState {
	pos := b.pose.Position
	var lin engine.Vec3
	q, qd := b.x.Split()
	for j := i; j >= 0; j = b.infos[j].ParentIndex {
		info := b.infos[j]
		for k := 0; k < 3; k++ {
			pos[k] += info.ParentFramePos[k]
		}
		if s := b.slot[j]; s >= 0 && info.Type == engine.Prismatic {
			for k := 0; k < 3; k++ {
				pos[k] += q[s] * info.Axis[k]
				lin[k] += qd[s] * info.Axis[k]
			}
		}
	}
	for k := 0; k < 3; k++ {
		lin[k] += b.vel.Linear[k]
	}
	return engine.LinkState{
		WorldPosition:                 pos,
		WorldOrientation:              b.pose.Orientation,
		LocalInertialFrameOrientation: engine.Identity,
		WorldFramePosition:            pos,
		WorldFrameOrientation:         b.pose.Orientation,
		WorldLinearVelocity:           lin,
		WorldAngularVelocity:          b.vel.Angular,
	}
}
