// Package body wraps a loaded engine body. [Body] answers name-indexed joint
// and link queries; [Robot] adds joint control and plugs the body into a
// composition tree as a leaf that may also own children.
package body

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/san-kum/bulletx/internal/engine"
)

type Options struct {
	Base      engine.Pose
	FixedBase bool
	Scaling   float64
	Flags     int
	Logger    *slog.Logger
}

type Body struct {
	t     engine.Transport
	id    int
	desc  engine.BodyDesc
	init  engine.Pose
	log   *slog.Logger
	joint map[string]int
	link  map[string]int
}

// New loads desc and moves its base to opts.Base. A zero orientation is read
// as the identity.
func New(t engine.Transport, desc engine.BodyDesc, opts Options) (*Body, error) {
	if opts.Base.Orientation == (engine.Quat{}) {
		opts.Base.Orientation = engine.Identity
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	id, err := t.LoadBody(desc, engine.LoadOptions{
		Base:      opts.Base,
		FixedBase: opts.FixedBase,
		Scaling:   opts.Scaling,
		Flags:     opts.Flags,
	})
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", desc.Name, err)
	}

	b := &Body{
		t:     t,
		id:    id,
		desc:  desc,
		init:  opts.Base,
		log:   log.With("body", desc.Name, "id", id),
		joint: make(map[string]int, len(desc.Joints)),
		link:  make(map[string]int, len(desc.Joints)),
	}
	for i, j := range desc.Joints {
		b.joint[j.Name] = i
		b.link[j.LinkName] = i
	}

	// Some engines report a base pose different from the one passed at load
	// time until it is reset explicitly.
	if err := b.SetBasePose(b.init); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Body) ID() int                     { return b.id }
func (b *Body) Name() string                { return b.desc.Name }
func (b *Body) Transport() engine.Transport { return b.t }
func (b *Body) Logger() *slog.Logger        { return b.log }

func (b *Body) NumJoints() (int, error) { return b.t.NumJoints(b.id) }

func (b *Body) JointIndex(name string) (int, error) {
	i, ok := b.joint[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q on %q", engine.ErrUnknownJoint, name, b.desc.Name)
	}
	return i, nil
}

func (b *Body) JointIndices(names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, n := range names {
		idx, err := b.JointIndex(n)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// LinkIndex resolves a link name to the index of the joint that moves it,
// falling back to joint names.
func (b *Body) LinkIndex(name string) (int, error) {
	if i, ok := b.link[name]; ok {
		return i, nil
	}
	return b.JointIndex(name)
}

func (b *Body) JointInfo(joint int) (engine.JointInfo, error) {
	return b.t.JointInfo(b.id, joint)
}

func (b *Body) JointInfoByName(name string) (engine.JointInfo, error) {
	i, err := b.JointIndex(name)
	if err != nil {
		return engine.JointInfo{}, err
	}
	return b.JointInfo(i)
}

func (b *Body) JointInfos(joints []int) (engine.JointInfos, error) {
	return b.t.JointInfos(b.id, joints)
}

func (b *Body) JointState(joint int) (engine.JointState, error) {
	st, err := b.t.JointStates(b.id, []int{joint})
	if err != nil {
		return engine.JointState{}, err
	}
	return st.At(0), nil
}

func (b *Body) JointStateByName(name string) (engine.JointState, error) {
	i, err := b.JointIndex(name)
	if err != nil {
		return engine.JointState{}, err
	}
	return b.JointState(i)
}

func (b *Body) JointStates(joints []int) (engine.JointStates, error) {
	return b.t.JointStates(b.id, joints)
}

func (b *Body) LinkState(link int) (engine.LinkState, error) {
	st, err := b.t.LinkStates(b.id, []int{link})
	if err != nil {
		return engine.LinkState{}, err
	}
	return engine.LinkState{
		WorldPosition:        st.WorldPosition[0],
		WorldOrientation:     st.WorldOrientation[0],
		WorldLinearVelocity:  st.WorldLinearVelocity[0],
		WorldAngularVelocity: st.WorldAngularVelocity[0],
	}, nil
}

func (b *Body) LinkStateByName(name string) (engine.LinkState, error) {
	i, err := b.LinkIndex(name)
	if err != nil {
		return engine.LinkState{}, err
	}
	return b.LinkState(i)
}

func (b *Body) LinkStates(links []int) (engine.LinkStates, error) {
	return b.t.LinkStates(b.id, links)
}

func (b *Body) DynamicsInfos(links []int) (engine.DynamicsInfos, error) {
	return b.t.DynamicsInfos(b.id, links)
}

func (b *Body) ContactPoints() ([]engine.ContactPoint, error) {
	return b.t.ContactPoints(b.id)
}

func (b *Body) BasePose() (engine.Pose, error) { return b.t.BasePose(b.id) }

func (b *Body) SetBasePose(p engine.Pose) error { return b.t.ResetBasePose(b.id, p) }

func (b *Body) BaseVelocity() (engine.Twist, error) { return b.t.BaseVelocity(b.id) }

func (b *Body) SetBaseVelocity(v engine.Twist) error { return b.t.ResetBaseVelocity(b.id, v) }

// Reset restores the base pose given at construction, or the one Attach
// placed the body at.
func (b *Body) Reset() error {
	return b.SetBasePose(b.init)
}
