package model

import (
	"fmt"
	"sort"

	"github.com/san-kum/bulletx/internal/engine"
)

type limit struct{ lower, upper, effort, velocity float64 }

var builtins = map[string]func() engine.BodyDesc{
	"sawyer": func() engine.BodyDesc {
		return chain("sawyer", "right_j", 0, true, []limit{
			{-3.0503, 3.0503, 80, 1.74},
			{-3.8095, 2.2736, 80, 1.328},
			{-3.0426, 3.0426, 40, 1.957},
			{-3.0439, 3.0439, 40, 1.957},
			{-2.9761, 2.9761, 9, 3.485},
			{-2.9761, 2.9761, 9, 3.485},
			{-4.7124, 4.7124, 9, 4.545},
		})
	},
	"kuka_iiwa": func() engine.BodyDesc {
		return chain("kuka_iiwa", "lbr_iiwa_joint_", 1, false, []limit{
			{-2.96, 2.96, 320, 1.71},
			{-2.09, 2.09, 320, 1.71},
			{-2.96, 2.96, 176, 1.74},
			{-2.09, 2.09, 176, 2.27},
			{-2.96, 2.96, 110, 2.44},
			{-2.09, 2.09, 40, 3.14},
			{-3.05, 3.05, 40, 3.14},
		})
	},
	"allegro_hand": allegro,
	"two_link": func() engine.BodyDesc {
		return chain("two_link", "joint", 0, false, []limit{
			{-1.57, 1.57, 10, 2},
			{-1.57, 1.57, 10, 2},
		})
	},
}

// chain builds a serial arm with one revolute joint per limit, numbered from
// first. mount adds a leading fixed joint that holds no DOF.
func chain(name, prefix string, first int, mount bool, limits []limit) engine.BodyDesc {
	desc := engine.BodyDesc{Name: name, BaseMass: 5}
	parent := -1
	if mount {
		desc.Joints = append(desc.Joints, engine.JointDesc{
			Name: name + "_mount", Type: engine.Fixed, LinkName: "base", Parent: -1,
		})
		parent = 0
	}
	for i, l := range limits {
		axis := engine.Vec3{0, 0, 1}
		if i%2 == 1 {
			axis = engine.Vec3{0, 1, 0}
		}
		desc.Joints = append(desc.Joints, engine.JointDesc{
			Name:        fmt.Sprintf("%s%d", prefix, first+i),
			Type:        engine.Revolute,
			LinkName:    fmt.Sprintf("%s_link_%d", name, i+1),
			Parent:      parent,
			Origin:      engine.Vec3{0, 0, 0.15},
			Axis:        axis,
			Lower:       l.lower,
			Upper:       l.upper,
			MaxForce:    l.effort,
			MaxVelocity: l.velocity,
			Damping:     0.5,
			Mass:        2,
		})
		parent = len(desc.Joints) - 1
	}
	return desc
}

// allegro is a four-finger hand with four joints per finger, all hanging
// from the palm.
func allegro() engine.BodyDesc {
	desc := engine.BodyDesc{Name: "allegro_hand", BaseMass: 0.4}
	finger := []limit{
		{-0.47, 0.47, 0.7, 6.28},
		{-0.196, 1.61, 0.7, 6.28},
		{-0.174, 1.709, 0.7, 6.28},
		{-0.227, 1.618, 0.7, 6.28},
	}
	thumb := []limit{
		{0.263, 1.396, 0.7, 6.28},
		{-0.105, 1.163, 0.7, 6.28},
		{-0.189, 1.644, 0.7, 6.28},
		{-0.162, 1.719, 0.7, 6.28},
	}
	for f := 0; f < 4; f++ {
		limits := finger
		if f == 3 {
			limits = thumb
		}
		parent := -1
		for k, l := range limits {
			idx := 4*f + k
			desc.Joints = append(desc.Joints, engine.JointDesc{
				Name:        fmt.Sprintf("joint_%d.0", idx),
				Type:        engine.Revolute,
				LinkName:    fmt.Sprintf("link_%d.0", idx),
				Parent:      parent,
				Origin:      engine.Vec3{0, 0.045 * float64(f-1), 0.05},
				Axis:        engine.Vec3{0, 1, 0},
				Lower:       l.lower,
				Upper:       l.upper,
				MaxForce:    l.effort,
				MaxVelocity: l.velocity,
				Damping:     0.01,
				Mass:        0.05,
			})
			parent = idx
		}
	}
	return desc
}

func Builtin(name string) (engine.BodyDesc, bool) {
	f, ok := builtins[name]
	if !ok {
		return engine.BodyDesc{}, false
	}
	return f(), true
}

func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
