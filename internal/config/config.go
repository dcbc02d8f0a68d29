// Package config reads scene files: which transport to create, which
// component tree to build on it, and how to drive and record it.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/bulletx/internal/dynamo"
)

const (
	DefaultTimeStep    = 1.0 / 240.0
	DefaultSteps       = 240
	DefaultRecordEvery = 1
	DefaultKp          = 400.0
	DefaultKd          = 40.0
	DefaultStorageDir  = "runs"
	DefaultAddr        = ":8080"
)

var ErrInvalid = errors.New("config: invalid scene")

type Config struct {
	Name          string          `yaml:"name"`
	Transport     TransportConfig `yaml:"transport"`
	SearchPaths   []string        `yaml:"search_paths,omitempty"`
	StrictActions bool            `yaml:"strict_actions"`
	Steps         int             `yaml:"steps"`
	RecordEvery   int             `yaml:"record_every"`
	Root          NodeConfig      `yaml:"root"`
	Actions       map[string]any  `yaml:"actions,omitempty"`
	Storage       StorageConfig   `yaml:"storage"`
	Log           LogConfig       `yaml:"log"`
	Serve         ServeConfig     `yaml:"serve"`
}

type TransportConfig struct {
	TimeStep   float64    `yaml:"time_step"`
	Gravity    [3]float64 `yaml:"gravity,flow"`
	Integrator string     `yaml:"integrator"`
	Kp         float64    `yaml:"kp"`
	Kd         float64    `yaml:"kd"`
}

type StorageConfig struct {
	Backend   string `yaml:"backend"`
	Dir       string `yaml:"dir,omitempty"`
	RedisAddr string `yaml:"redis_addr,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServeConfig struct {
	Addr string `yaml:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		Name: "scene",
		Transport: TransportConfig{
			TimeStep:   DefaultTimeStep,
			Gravity:    [3]float64{0, 0, -9.81},
			Integrator: "rk4",
			Kp:         DefaultKp,
			Kd:         DefaultKd,
		},
		Steps:       DefaultSteps,
		RecordEvery: DefaultRecordEvery,
		Root:        NodeConfig{Kind: "node"},
		Storage:     StorageConfig{Backend: "file", Dir: DefaultStorageDir},
		Log:         LogConfig{Level: "info", Format: "text"},
		Serve:       ServeConfig{Addr: DefaultAddr},
	}
}

// Load reads a scene file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Transport.TimeStep <= 0 {
		return fmt.Errorf("%w: transport.time_step must be positive, got %v", ErrInvalid, c.Transport.TimeStep)
	}
	if c.Steps < 0 {
		return fmt.Errorf("%w: steps must not be negative", ErrInvalid)
	}
	if c.RecordEvery < 1 {
		return fmt.Errorf("%w: record_every must be at least 1", ErrInvalid)
	}
	switch c.Storage.Backend {
	case "file", "none", "":
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("%w: storage.redis_addr is required for the redis backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalid, c.Storage.Backend)
	}
	return c.Root.validate("root")
}

// Params maps the transport section onto world parameter names.
func (t TransportConfig) Params() map[string]float64 {
	return map[string]float64{
		"time_step": t.TimeStep,
		"gravity_x": t.Gravity[0],
		"gravity_y": t.Gravity[1],
		"gravity_z": t.Gravity[2],
		"kp":        t.Kp,
		"kd":        t.Kd,
	}
}

// Apply sets every transport parameter on w.
func (t TransportConfig) Apply(w dynamo.Configurable) error {
	for name, v := range t.Params() {
		if err := w.SetParam(name, v); err != nil {
			return err
		}
	}
	return nil
}
