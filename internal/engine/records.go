package engine

import (
	"fmt"
	"strings"

	"github.com/san-kum/bulletx/internal/attr"
)

type JointInfo struct {
	Index          int
	Name           string
	Type           JointType
	QIndex         int
	UIndex         int
	Flags          int
	Damping        float64
	Friction       float64
	LowerLimit     float64
	UpperLimit     float64
	MaxForce       float64
	MaxVelocity    float64
	LinkName       string
	Axis           Vec3
	ParentFramePos Vec3
	ParentFrameOrn Quat
	ParentIndex    int
}

func (j JointInfo) String() string {
	return table([][2]string{
		{"joint_index", fmt.Sprint(j.Index)},
		{"joint_name", j.Name},
		{"joint_type", fmt.Sprintf("%s (= %d)", j.Type, int(j.Type))},
		{"q_index", fmt.Sprint(j.QIndex)},
		{"u_index", fmt.Sprint(j.UIndex)},
		{"flags", fmt.Sprint(j.Flags)},
		{"joint_damping", fmt.Sprint(j.Damping)},
		{"joint_friction", fmt.Sprint(j.Friction)},
		{"joint_lower_limit", fmt.Sprint(j.LowerLimit)},
		{"joint_upper_limit", fmt.Sprint(j.UpperLimit)},
		{"joint_max_force", fmt.Sprint(j.MaxForce)},
		{"joint_max_velocity", fmt.Sprint(j.MaxVelocity)},
		{"link_name", j.LinkName},
		{"joint_axis", fmt.Sprint(j.Axis)},
		{"parent_frame_pos", fmt.Sprint(j.ParentFramePos)},
		{"parent_frame_orn", fmt.Sprint(j.ParentFrameOrn)},
		{"parent_index", fmt.Sprint(j.ParentIndex)},
	})
}

// JointInfos is the structure-of-arrays form of a JointInfo list.
type JointInfos struct {
	Index       []int
	Name        []string
	Type        []JointType
	LowerLimit  []float64
	UpperLimit  []float64
	MaxForce    []float64
	MaxVelocity []float64
	Damping     []float64
	Friction    []float64
	LinkName    []string
	ParentIndex []int
}

func CollectJointInfos(infos []JointInfo) JointInfos {
	n := len(infos)
	out := JointInfos{
		Index:       make([]int, n),
		Name:        make([]string, n),
		Type:        make([]JointType, n),
		LowerLimit:  make([]float64, n),
		UpperLimit:  make([]float64, n),
		MaxForce:    make([]float64, n),
		MaxVelocity: make([]float64, n),
		Damping:     make([]float64, n),
		Friction:    make([]float64, n),
		LinkName:    make([]string, n),
		ParentIndex: make([]int, n),
	}
	for i, j := range infos {
		out.Index[i] = j.Index
		out.Name[i] = j.Name
		out.Type[i] = j.Type
		out.LowerLimit[i] = j.LowerLimit
		out.UpperLimit[i] = j.UpperLimit
		out.MaxForce[i] = j.MaxForce
		out.MaxVelocity[i] = j.MaxVelocity
		out.Damping[i] = j.Damping
		out.Friction[i] = j.Friction
		out.LinkName[i] = j.LinkName
		out.ParentIndex[i] = j.ParentIndex
	}
	return out
}

func (j JointInfos) Len() int { return len(j.Index) }

type JointState struct {
	Position       float64
	Velocity       float64
	ReactionForces [6]float64
	AppliedTorque  float64
}

func (s JointState) String() string {
	return table([][2]string{
		{"joint_position", fmt.Sprint(s.Position)},
		{"joint_velocity", fmt.Sprint(s.Velocity)},
		{"joint_reaction_forces", fmt.Sprint(s.ReactionForces)},
		{"applied_joint_motor_torque", fmt.Sprint(s.AppliedTorque)},
	})
}

type JointStates struct {
	Position       []float64
	Velocity       []float64
	ReactionForces [][6]float64
	AppliedTorque  []float64
}

func CollectJointStates(states []JointState) JointStates {
	n := len(states)
	out := JointStates{
		Position:       make([]float64, n),
		Velocity:       make([]float64, n),
		ReactionForces: make([][6]float64, n),
		AppliedTorque:  make([]float64, n),
	}
	for i, s := range states {
		out.Position[i] = s.Position
		out.Velocity[i] = s.Velocity
		out.ReactionForces[i] = s.ReactionForces
		out.AppliedTorque[i] = s.AppliedTorque
	}
	return out
}

func (s JointStates) Len() int { return len(s.Position) }

func (s JointStates) At(i int) JointState {
	return JointState{
		Position:       s.Position[i],
		Velocity:       s.Velocity[i],
		ReactionForces: s.ReactionForces[i],
		AppliedTorque:  s.AppliedTorque[i],
	}
}

// Map exposes the record under its snake_case field names. Reaction forces
// become one []float64 of length 6 per joint.
func (s JointStates) Map() attr.Map {
	forces := make([][]float64, len(s.ReactionForces))
	for i, f := range s.ReactionForces {
		forces[i] = append([]float64(nil), f[:]...)
	}
	return attr.Map{
		"joint_position":             append([]float64(nil), s.Position...),
		"joint_velocity":             append([]float64(nil), s.Velocity...),
		"joint_reaction_forces":      forces,
		"applied_joint_motor_torque": append([]float64(nil), s.AppliedTorque...),
	}
}

type LinkState struct {
	WorldPosition                 Vec3
	WorldOrientation              Quat
	LocalInertialFramePosition    Vec3
	LocalInertialFrameOrientation Quat
	WorldFramePosition            Vec3
	WorldFrameOrientation         Quat
	WorldLinearVelocity           Vec3
	WorldAngularVelocity          Vec3
}

type LinkStates struct {
	WorldPosition        []Vec3
	WorldOrientation     []Quat
	WorldLinearVelocity  []Vec3
	WorldAngularVelocity []Vec3
}

func CollectLinkStates(states []LinkState) LinkStates {
	n := len(states)
	out := LinkStates{
		WorldPosition:        make([]Vec3, n),
		WorldOrientation:     make([]Quat, n),
		WorldLinearVelocity:  make([]Vec3, n),
		WorldAngularVelocity: make([]Vec3, n),
	}
	for i, s := range states {
		out.WorldPosition[i] = s.WorldPosition
		out.WorldOrientation[i] = s.WorldOrientation
		out.WorldLinearVelocity[i] = s.WorldLinearVelocity
		out.WorldAngularVelocity[i] = s.WorldAngularVelocity
	}
	return out
}

func (s LinkStates) Len() int { return len(s.WorldPosition) }

type DynamicsInfo struct {
	Mass                 float64
	LateralFriction      float64
	LocalInertiaDiagonal Vec3
	LocalInertialPos     Vec3
	LocalInertialOrn     Quat
	Restitution          float64
	RollingFriction      float64
	SpinningFriction     float64
	ContactDamping       float64
	ContactStiffness     float64
	BodyType             BodyType
	CollisionMargin      float64
}

type DynamicsInfos struct {
	Mass            []float64
	LateralFriction []float64
	BodyType        []BodyType
}

func CollectDynamicsInfos(infos []DynamicsInfo) DynamicsInfos {
	n := len(infos)
	out := DynamicsInfos{
		Mass:            make([]float64, n),
		LateralFriction: make([]float64, n),
		BodyType:        make([]BodyType, n),
	}
	for i, d := range infos {
		out.Mass[i] = d.Mass
		out.LateralFriction[i] = d.LateralFriction
		out.BodyType[i] = d.BodyType
	}
	return out
}

type ContactPoint struct {
	Flag                int
	BodyA, BodyB        int
	LinkA, LinkB        int
	PositionOnA         Vec3
	PositionOnB         Vec3
	NormalOnB           Vec3
	Distance            float64
	NormalForce         float64
	LateralFriction1    float64
	LateralFrictionDir1 Vec3
	LateralFriction2    float64
	LateralFrictionDir2 Vec3
}

func table(rows [][2]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%-*s : %s\n", width, r[0], r[1])
	}
	return b.String()
}
