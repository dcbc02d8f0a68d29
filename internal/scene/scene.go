package scene

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/san-kum/bulletx/internal/attr"
	"github.com/san-kum/bulletx/internal/config"
	"github.com/san-kum/bulletx/internal/engine"
	"github.com/san-kum/bulletx/internal/engine/memory"
	"github.com/san-kum/bulletx/internal/integrators"
	"github.com/san-kum/bulletx/internal/model"
	"github.com/san-kum/bulletx/internal/robot"
	"github.com/san-kum/bulletx/internal/space"
	"github.com/san-kum/bulletx/internal/storage"
	"github.com/san-kum/bulletx/internal/telemetry"
)

// Scene owns a world, the tree built on it and the action request applied
// on every step. Its methods hold a lock for the whole tree operation, so a
// Scene may be shared by a stepping loop and an HTTP adapter.
type Scene struct {
	mu sync.Mutex

	cfg       *config.Config
	world     *memory.World
	transport *engine.SerializedTransport
	root      robot.Component
	mode      robot.Mode
	actions   attr.Map
	unmatched []string
	steps     int

	registry *Registry
	metrics  *telemetry.Metrics
	log      *slog.Logger
}

type Option func(*Scene)

func WithLogger(l *slog.Logger) Option {
	return func(s *Scene) { s.log = l }
}

// WithMetrics counts tree operations on the root and times every step.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Scene) { s.metrics = m }
}

// WithRegistry replaces the built-in component kinds.
func WithRegistry(r *Registry) Option {
	return func(s *Scene) { s.registry = r }
}

// New creates the world described by cfg.Transport, builds cfg.Root on it
// and resets the tree. A tree whose spaces do not aggregate is rejected.
func New(cfg *config.Config, opts ...Option) (*Scene, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scene{cfg: cfg, log: telemetry.NopLogger(), registry: NewRegistry()}
	for _, opt := range opts {
		opt(s)
	}

	integ, err := integrators.ByName(cfg.Transport.Integrator)
	if err != nil {
		return nil, err
	}
	s.world = memory.New(
		memory.WithIntegrator(integ),
		memory.WithLogger(s.log.With("component", "world")),
	)
	s.transport = engine.Serialized(s.world)
	if err := cfg.Transport.Apply(s.transport); err != nil {
		return nil, fmt.Errorf("scene: transport: %w", err)
	}

	if cfg.StrictActions {
		s.mode = robot.Strict
	}
	if len(cfg.Actions) > 0 {
		s.actions = attr.From(cfg.Actions)
	}

	root, err := s.registry.Build(Env{
		Transport: s.transport,
		Models:    model.SearchPath(cfg.SearchPaths),
		Logger:    s.log,
	}, cfg.Root)
	if err != nil {
		return nil, err
	}
	if _, err := root.StateSpace(); err != nil {
		return nil, err
	}
	if _, err := root.ActionSpace(); err != nil {
		return nil, err
	}
	s.root = root
	if s.metrics != nil {
		s.root = telemetry.Instrument(root, s.metrics)
	}
	if err := s.root.Reset(); err != nil {
		return nil, fmt.Errorf("scene: initial reset: %w", err)
	}
	s.log.Info("scene ready", "name", cfg.Name, "components", countComponents(root), "mode", s.mode)
	return s, nil
}

func countComponents(c robot.Component) int {
	n := 0
	_ = robot.Walk(c, func(string, robot.Component) error {
		n++
		return nil
	})
	return n
}

func (s *Scene) Name() string { return s.cfg.Name }

func (s *Scene) Config() *config.Config { return s.cfg }

// Root returns the tree. Callers that bypass the Scene methods must not race
// with them.
func (s *Scene) Root() robot.Component { return s.root }

func (s *Scene) Transport() engine.Transport { return s.transport }

func (s *Scene) World() *memory.World { return s.world }

func (s *Scene) Mode() robot.Mode { return s.mode }

func (s *Scene) Time() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.Time()
}

func (s *Scene) Steps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps
}

func (s *Scene) StateSpace() (space.Dict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root.StateSpace()
}

func (s *Scene) ActionSpace() (space.Dict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root.ActionSpace()
}

func (s *Scene) States() (attr.Map, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root.States()
}

func (s *Scene) Summary() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return robot.Summary(s.root)
}

// Dispatch applies one action request to the tree now.
func (s *Scene) Dispatch(actions attr.Map, mode robot.Mode) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatch(actions, mode)
}

func (s *Scene) dispatch(actions attr.Map, mode robot.Mode) ([]string, error) {
	unmatched, err := robot.Dispatch(s.root, actions, mode)
	if len(unmatched) > 0 {
		s.log.Warn("unmatched action paths", "paths", unmatched, "mode", mode)
		if s.metrics != nil {
			s.metrics.ObserveUnmatched(unmatched)
		}
	}
	return unmatched, err
}

// SetActions replaces the request applied before every step. A nil request
// stops applying one.
func (s *Scene) SetActions(actions attr.Map) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = actions
	s.unmatched = nil
}

// Unmatched returns the paths of the standing request that the last step
// could not route.
func (s *Scene) Unmatched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.unmatched...)
}

func (s *Scene) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root.Reset()
}

// Step applies the standing action request, if any, and advances the world
// by one time step.
func (s *Scene) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if len(s.actions) > 0 {
		unmatched, err := s.dispatch(s.actions, s.mode)
		if err != nil {
			return fmt.Errorf("scene: step %d: %w", s.steps, err)
		}
		s.unmatched = unmatched
	}
	if err := s.transport.StepSimulation(); err != nil {
		return fmt.Errorf("scene: step %d: %w", s.steps, err)
	}
	s.steps++
	if s.metrics != nil {
		s.metrics.ObserveStep(start)
	}
	return nil
}

// ObserveFunc receives the snapshot taken after a recorded step.
type ObserveFunc func(step int, t float64, states attr.Map) error

// Run takes n steps and calls fn with the states after every recordEvery-th
// one. It stops at the first error or when ctx is done.
func (s *Scene) Run(ctx context.Context, n, recordEvery int, fn ObserveFunc) error {
	if recordEvery < 1 {
		recordEvery = 1
	}
	for i := 1; i <= n; i++ {
		if err := s.Step(ctx); err != nil {
			return err
		}
		if fn == nil || i%recordEvery != 0 {
			continue
		}
		s.mu.Lock()
		t := s.world.Time()
		states, err := s.root.States()
		s.mu.Unlock()
		if err != nil {
			return err
		}
		if err := fn(i, t, states); err != nil {
			return err
		}
	}
	return nil
}

// Record runs the configured number of steps and returns every recorded
// snapshot, the initial one included.
func (s *Scene) Record(ctx context.Context) (*storage.Run, error) {
	rec := storage.NewRecorder()
	states, err := s.States()
	if err != nil {
		return nil, err
	}
	if err := rec.Record(s.Time(), states); err != nil {
		return nil, err
	}
	err = s.Run(ctx, s.cfg.Steps, s.cfg.RecordEvery, func(_ int, t float64, states attr.Map) error {
		return rec.Record(t, states)
	})
	if err != nil {
		return nil, err
	}
	integ := s.cfg.Transport.Integrator
	if integ == "" {
		integ = "rk4"
	}
	return rec.Run(storage.RunMetadata{
		Scene:       s.cfg.Name,
		Timestamp:   time.Now(),
		TimeStep:    s.cfg.Transport.TimeStep,
		Steps:       s.cfg.Steps,
		RecordEvery: s.cfg.RecordEvery,
		Integrator:  integ,
		Unmatched:   s.Unmatched(),
	}), nil
}
