package engine

import (
	"fmt"
	"sync"

	"github.com/san-kum/bulletx/internal/dynamo"
)

// SerializedTransport runs every call of the wrapped transport under one
// mutex. It serialises single calls only; a caller that needs a whole tree
// read to see one instant must hold its own lock around it.
type SerializedTransport struct {
	mu sync.Mutex
	t  Transport
}

func Serialized(t Transport) *SerializedTransport {
	if s, ok := t.(*SerializedTransport); ok {
		return s
	}
	return &SerializedTransport{t: t}
}

// Unwrap returns the wrapped transport.
func (s *SerializedTransport) Unwrap() Transport { return s.t }

func (s *SerializedTransport) ID() int { return s.t.ID() }

func (s *SerializedTransport) LoadBody(desc BodyDesc, opts LoadOptions) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.LoadBody(desc, opts)
}

func (s *SerializedTransport) NumJoints(body int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.NumJoints(body)
}

func (s *SerializedTransport) JointInfo(body, joint int) (JointInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.JointInfo(body, joint)
}

func (s *SerializedTransport) JointInfos(body int, joints []int) (JointInfos, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.JointInfos(body, joints)
}

func (s *SerializedTransport) JointStates(body int, joints []int) (JointStates, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.JointStates(body, joints)
}

func (s *SerializedTransport) LinkStates(body int, links []int) (LinkStates, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.LinkStates(body, links)
}

func (s *SerializedTransport) DynamicsInfos(body int, links []int) (DynamicsInfos, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.DynamicsInfos(body, links)
}

func (s *SerializedTransport) ResetJointState(body, joint int, position float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.ResetJointState(body, joint, position)
}

func (s *SerializedTransport) EnableJointForceTorqueSensor(body, joint int, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.EnableJointForceTorqueSensor(body, joint, on)
}

func (s *SerializedTransport) SetJointMotorControlArray(body int, cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.SetJointMotorControlArray(body, cmd)
}

func (s *SerializedTransport) BasePose(body int) (Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.BasePose(body)
}

func (s *SerializedTransport) ResetBasePose(body int, pose Pose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.ResetBasePose(body, pose)
}

func (s *SerializedTransport) BaseVelocity(body int) (Twist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.BaseVelocity(body)
}

func (s *SerializedTransport) ResetBaseVelocity(body int, v Twist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.ResetBaseVelocity(body, v)
}

func (s *SerializedTransport) CreateConstraint(c Constraint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.CreateConstraint(c)
}

func (s *SerializedTransport) ContactPoints(body int) ([]ContactPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.ContactPoints(body)
}

func (s *SerializedTransport) StepSimulation() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.StepSimulation()
}

func (s *SerializedTransport) TimeStep() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.TimeStep()
}

// Params forwards to the wrapped transport when it is configurable.
func (s *SerializedTransport) Params() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.t.(dynamo.Configurable); ok {
		return c.Params()
	}
	return map[string]float64{}
}

func (s *SerializedTransport) SetParam(name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.t.(dynamo.Configurable)
	if !ok {
		return fmt.Errorf("%w: %q (transport has no parameters)", dynamo.ErrUnknownParam, name)
	}
	return c.SetParam(name, value)
}
