package engine

import "fmt"

// Transport is one simulated world. Every body-scoped method takes the body
// id returned by LoadBody.
type Transport interface {
	ID() int

	LoadBody(desc BodyDesc, opts LoadOptions) (int, error)
	NumJoints(body int) (int, error)
	JointInfo(body, joint int) (JointInfo, error)
	JointInfos(body int, joints []int) (JointInfos, error)
	JointStates(body int, joints []int) (JointStates, error)
	LinkStates(body int, links []int) (LinkStates, error)
	DynamicsInfos(body int, links []int) (DynamicsInfos, error)

	ResetJointState(body, joint int, position float64) error
	EnableJointForceTorqueSensor(body, joint int, on bool) error
	SetJointMotorControlArray(body int, cmd Command) error

	BasePose(body int) (Pose, error)
	ResetBasePose(body int, pose Pose) error
	BaseVelocity(body int) (Twist, error)
	ResetBaseVelocity(body int, v Twist) error

	CreateConstraint(c Constraint) (int, error)
	ContactPoints(body int) ([]ContactPoint, error)

	StepSimulation() error
	TimeStep() float64
}

// BodyDesc is a loaded body description: a base link followed by one joint
// per child link, in index order. A joint's Parent is the index of the joint
// owning its parent link, or -1 for the base. Origin is the joint frame
// offset from the parent link.
type BodyDesc struct {
	Name     string
	BaseMass float64
	Joints   []JointDesc
}

type JointDesc struct {
	Name        string
	Type        JointType
	LinkName    string
	Parent      int
	Origin      Vec3
	Axis        Vec3
	Lower       float64
	Upper       float64
	MaxForce    float64
	MaxVelocity float64
	Damping     float64
	Friction    float64
	Mass        float64
}

type LoadOptions struct {
	Base      Pose
	FixedBase bool
	Scaling   float64
	Flags     int
}

// Constraint fixes a child body's base to a parent link.
type Constraint struct {
	ParentBody  int
	ParentLink  int
	ChildBody   int
	ChildLink   int
	Type        JointType
	ParentFrame Pose
	ChildFrame  Pose
}

// Command is one motor command for a set of joints. Optional slices may be
// nil; non-nil slices must have one entry per index.
//
//   - PositionControl: Targets required, TargetVelocities default to zero,
//     nil Forces means unlimited effort.
//   - VelocityControl: TargetVelocities default to zero; a zero force
//     releases the joint.
//   - TorqueControl: Forces required.
type Command struct {
	Mode             ControlMode
	Indices          []int
	Targets          []float64
	TargetVelocities []float64
	Forces           []float64
}

func (c Command) Validate() error {
	n := len(c.Indices)
	check := func(name string, v []float64, required bool) error {
		if v == nil && !required {
			return nil
		}
		if len(v) != n {
			return fmt.Errorf("%w: %s has %d entries for %d joints", ErrLengthMismatch, name, len(v), n)
		}
		return nil
	}

	switch c.Mode {
	case PositionControl:
		if err := check("targets", c.Targets, true); err != nil {
			return err
		}
		if err := check("target velocities", c.TargetVelocities, false); err != nil {
			return err
		}
		return check("forces", c.Forces, false)
	case VelocityControl:
		if err := check("target velocities", c.TargetVelocities, false); err != nil {
			return err
		}
		return check("forces", c.Forces, false)
	case TorqueControl:
		return check("forces", c.Forces, true)
	default:
		return fmt.Errorf("engine: unknown control mode %v", c.Mode)
	}
}
