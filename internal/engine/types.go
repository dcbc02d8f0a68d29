package engine

import "fmt"

type JointType int

const (
	Revolute JointType = iota
	Prismatic
	Spherical
	Planar
	Fixed
	Point2Point
	Gear
)

var jointTypeNames = [...]string{
	Revolute:    "revolute",
	Prismatic:   "prismatic",
	Spherical:   "spherical",
	Planar:      "planar",
	Fixed:       "fixed",
	Point2Point: "point2point",
	Gear:        "gear",
}

func (t JointType) String() string {
	if t < 0 || int(t) >= len(jointTypeNames) {
		return fmt.Sprintf("JointType(%d)", int(t))
	}
	return jointTypeNames[t]
}

// ParseJointType accepts the lower-case names printed by String.
func ParseJointType(s string) (JointType, error) {
	for i, n := range jointTypeNames {
		if n == s {
			return JointType(i), nil
		}
	}
	return 0, fmt.Errorf("engine: unknown joint type %q", s)
}

type BodyType int

const (
	RigidBody BodyType = iota + 1
	MultiBody
	SoftBody
)

func (t BodyType) String() string {
	switch t {
	case RigidBody:
		return "rigid body"
	case MultiBody:
		return "multi body"
	case SoftBody:
		return "soft body"
	default:
		return fmt.Sprintf("BodyType(%d)", int(t))
	}
}

type ControlMode int

const (
	PositionControl ControlMode = iota
	VelocityControl
	TorqueControl
)

func (m ControlMode) String() string {
	switch m {
	case PositionControl:
		return "position"
	case VelocityControl:
		return "velocity"
	case TorqueControl:
		return "torque"
	default:
		return fmt.Sprintf("ControlMode(%d)", int(m))
	}
}

type Vec3 [3]float64

// Quat is an x, y, z, w quaternion.
type Quat [4]float64

var Identity = Quat{0, 0, 0, 1}

type Pose struct {
	Position    Vec3
	Orientation Quat
}

// NewPose returns a pose at p with the identity orientation.
func NewPose(p Vec3) Pose {
	return Pose{Position: p, Orientation: Identity}
}

type Twist struct {
	Linear  Vec3
	Angular Vec3
}
