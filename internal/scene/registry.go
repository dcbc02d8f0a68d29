// Package scene assembles a component tree from a scene configuration and
// drives it on an in-memory world.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/san-kum/bulletx/internal/config"
	"github.com/san-kum/bulletx/internal/devices"
	"github.com/san-kum/bulletx/internal/engine"
	"github.com/san-kum/bulletx/internal/model"
	"github.com/san-kum/bulletx/internal/robot"
	"github.com/san-kum/bulletx/internal/telemetry"
)

var (
	ErrUnknownKind = errors.New("scene: unknown component kind")
	ErrBadOptions  = errors.New("scene: bad component options")
)

// Env is what a Factory may use to build one component.
type Env struct {
	// Transport carries the bodies. Nil means the default installed with
	// engine.Use.
	Transport engine.Transport
	Models    model.SearchPath
	Logger    *slog.Logger
	// Parent is the component the result will be registered under, nil for
	// the root.
	Parent robot.Component
	// Path is the dot path of the component being built, empty for the root.
	Path string
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return telemetry.NopLogger()
	}
	return e.Logger
}

func (e Env) transport() (engine.Transport, error) {
	if e.Transport != nil {
		return e.Transport, nil
	}
	return engine.Default()
}

func (e Env) where() string {
	if e.Path == "" {
		return "root"
	}
	return e.Path
}

type Factory func(env Env, cfg config.NodeConfig) (robot.Component, error)

type Registry struct {
	kinds map[string]Factory
}

// NewRegistry knows the built-in kinds: node, robot, digit and gripper.
func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[string]Factory)}
	r.Register("node", buildNode)
	r.Register("robot", buildRobot)
	r.Register("digit", buildDigit)
	r.Register("gripper", buildGripper)
	return r
}

func (r *Registry) Register(kind string, f Factory) {
	r.kinds[kind] = f
}

func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build creates the component cfg describes and, in listed order, its
// children.
func (r *Registry) Build(env Env, cfg config.NodeConfig) (robot.Component, error) {
	f, ok := r.kinds[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q at %s", ErrUnknownKind, cfg.Kind, env.where())
	}
	c, err := f(env, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", env.where(), err)
	}
	for _, ch := range cfg.Children {
		sub := env
		sub.Parent = c
		sub.Path = ch.Name
		if env.Path != "" {
			sub.Path = env.Path + "." + ch.Name
		}
		cc, err := r.Build(sub, ch.Node)
		if err != nil {
			return nil, err
		}
		if err := c.Base().AddChild(ch.Name, cc); err != nil {
			return nil, fmt.Errorf("%s: %w", env.where(), err)
		}
	}
	return c, nil
}

func decode(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("%w: %v", ErrBadOptions, err)
	}
	return nil
}

func buildNode(_ Env, cfg config.NodeConfig) (robot.Component, error) {
	if len(cfg.Options) > 0 {
		return nil, fmt.Errorf("%w: node takes no options", ErrBadOptions)
	}
	return robot.NewNode(), nil
}

func buildDigit(_ Env, cfg config.NodeConfig) (robot.Component, error) {
	var opts devices.DigitOptions
	if err := decode(cfg.Options, &opts); err != nil {
		return nil, err
	}
	return devices.NewDigit(opts), nil
}

func buildGripper(_ Env, cfg config.NodeConfig) (robot.Component, error) {
	var opts devices.GripperOptions
	if err := decode(cfg.Options, &opts); err != nil {
		return nil, err
	}
	return devices.NewGripper(opts), nil
}
