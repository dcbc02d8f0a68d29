// Package model reads body descriptions. A description is a YAML document
// listing a body's joints in index order; each joint names the link it
// moves and, optionally, the link it hangs from:
//
//	name: two_link
//	base_mass: 2
//	joints:
//	  - name: shoulder
//	    type: revolute
//	    link: upper
//	    origin: [0, 0, 0.1]
//	    axis: [0, 0, 1]
//	    limit: {lower: -1, upper: 1, effort: 50, velocity: 2}
//	  - name: elbow
//	    type: revolute
//	    link: fore
//	    parent: upper
package model

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/bulletx/internal/engine"
)

var ErrInvalid = errors.New("model: invalid description")

type File struct {
	Name     string  `yaml:"name"`
	BaseMass float64 `yaml:"base_mass"`
	Joints   []Joint `yaml:"joints"`
}

type Joint struct {
	Name     string      `yaml:"name"`
	Type     string      `yaml:"type"`
	Link     string      `yaml:"link"`
	Parent   string      `yaml:"parent,omitempty"`
	Origin   [3]float64  `yaml:"origin,flow,omitempty"`
	Axis     [3]float64  `yaml:"axis,flow,omitempty"`
	Mass     float64     `yaml:"mass,omitempty"`
	Limit    Limit       `yaml:"limit,omitempty"`
	Dynamics JointDamper `yaml:"dynamics,omitempty"`
}

type Limit struct {
	Lower    float64 `yaml:"lower"`
	Upper    float64 `yaml:"upper"`
	Effort   float64 `yaml:"effort"`
	Velocity float64 `yaml:"velocity"`
}

type JointDamper struct {
	Damping  float64 `yaml:"damping"`
	Friction float64 `yaml:"friction"`
}

// Desc resolves link names and joint types into an engine description.
func (f *File) Desc() (engine.BodyDesc, error) {
	desc := engine.BodyDesc{Name: f.Name, BaseMass: f.BaseMass}
	links := make(map[string]int, len(f.Joints))
	names := make(map[string]bool, len(f.Joints))

	for i, j := range f.Joints {
		if j.Name == "" {
			return engine.BodyDesc{}, fmt.Errorf("%w: joint %d has no name", ErrInvalid, i)
		}
		if names[j.Name] {
			return engine.BodyDesc{}, fmt.Errorf("%w: duplicate joint %q", ErrInvalid, j.Name)
		}
		names[j.Name] = true

		typ := engine.Revolute
		if j.Type != "" {
			var err error
			if typ, err = engine.ParseJointType(j.Type); err != nil {
				return engine.BodyDesc{}, fmt.Errorf("%w: joint %q: %v", ErrInvalid, j.Name, err)
			}
		}

		parent := -1
		if j.Parent != "" {
			p, ok := links[j.Parent]
			if !ok {
				return engine.BodyDesc{}, fmt.Errorf("%w: joint %q: parent link %q is not declared before it", ErrInvalid, j.Name, j.Parent)
			}
			parent = p
		}

		link := j.Link
		if link == "" {
			link = j.Name + "_link"
		}
		links[link] = i

		desc.Joints = append(desc.Joints, engine.JointDesc{
			Name:        j.Name,
			Type:        typ,
			LinkName:    link,
			Parent:      parent,
			Origin:      j.Origin,
			Axis:        j.Axis,
			Lower:       j.Limit.Lower,
			Upper:       j.Limit.Upper,
			MaxForce:    j.Limit.Effort,
			MaxVelocity: j.Limit.Velocity,
			Damping:     j.Dynamics.Damping,
			Friction:    j.Dynamics.Friction,
			Mass:        j.Mass,
		})
	}
	return desc, nil
}

func Parse(data []byte) (engine.BodyDesc, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return engine.BodyDesc{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return f.Desc()
}

func Load(path string) (engine.BodyDesc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.BodyDesc{}, err
	}
	desc, err := Parse(data)
	if err != nil {
		return engine.BodyDesc{}, fmt.Errorf("%s: %w", path, err)
	}
	return desc, nil
}

// FromDesc is the inverse of File.Desc.
func FromDesc(desc engine.BodyDesc) *File {
	f := &File{Name: desc.Name, BaseMass: desc.BaseMass}
	for _, j := range desc.Joints {
		parent := ""
		if j.Parent >= 0 {
			parent = desc.Joints[j.Parent].LinkName
		}
		f.Joints = append(f.Joints, Joint{
			Name:     j.Name,
			Type:     j.Type.String(),
			Link:     j.LinkName,
			Parent:   parent,
			Origin:   j.Origin,
			Axis:     j.Axis,
			Mass:     j.Mass,
			Limit:    Limit{Lower: j.Lower, Upper: j.Upper, Effort: j.MaxForce, Velocity: j.MaxVelocity},
			Dynamics: JointDamper{Damping: j.Damping, Friction: j.Friction},
		})
	}
	return f
}

func Save(path string, desc engine.BodyDesc) error {
	data, err := yaml.Marshal(FromDesc(desc))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
