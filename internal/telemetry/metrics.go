package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/bulletx/internal/attr"
	"github.com/san-kum/bulletx/internal/robot"
	"github.com/san-kum/bulletx/internal/space"
)

// Metrics counts tree operations and times simulation steps.
type Metrics struct {
	Operations *prometheus.CounterVec
	Failures   *prometheus.CounterVec
	Collisions prometheus.Counter
	Unmatched  prometheus.Counter
	Steps      prometheus.Counter
	StepTime   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bulletx_tree_operations_total",
			Help: "Tree operations by name.",
		}, []string{"op"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bulletx_tree_operation_failures_total",
			Help: "Tree operations that returned an error, by name.",
		}, []string{"op"}),
		Collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bulletx_name_collisions_total",
			Help: "Aggregations rejected because a local field shadowed a child.",
		}),
		Unmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bulletx_unmatched_action_paths_total",
			Help: "Action request paths that matched no field or child.",
		}),
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bulletx_simulation_steps_total",
			Help: "Simulation steps taken.",
		}),
		StepTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bulletx_step_duration_seconds",
			Help:    "Wall time of one scene step, actions included.",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Operations, m.Failures, m.Collisions, m.Unmatched, m.Steps, m.StepTime)
	}
	return m
}

func (m *Metrics) observe(op string, err error) {
	m.Operations.WithLabelValues(op).Inc()
	if err == nil {
		return
	}
	m.Failures.WithLabelValues(op).Inc()
	if errors.Is(err, robot.ErrNameCollision) {
		m.Collisions.Inc()
	}
}

// ObserveUnmatched adds the unmatched paths of one dispatch.
func (m *Metrics) ObserveUnmatched(paths []string) {
	m.Unmatched.Add(float64(len(paths)))
}

func (m *Metrics) ObserveStep(start time.Time) {
	m.Steps.Inc()
	m.StepTime.Observe(time.Since(start).Seconds())
}

// Instrumented counts every call made through it before forwarding to the
// wrapped root. Children keep their own, unwrapped methods.
type Instrumented struct {
	robot.Component
	m *Metrics
}

func Instrument(c robot.Component, m *Metrics) *Instrumented {
	return &Instrumented{Component: c, m: m}
}

func (i *Instrumented) Unwrap() robot.Component { return i.Component }

func (i *Instrumented) StateSpace() (space.Dict, error) {
	d, err := i.Component.StateSpace()
	i.m.observe("state_space", err)
	return d, err
}

func (i *Instrumented) ActionSpace() (space.Dict, error) {
	d, err := i.Component.ActionSpace()
	i.m.observe("action_space", err)
	return d, err
}

func (i *Instrumented) States() (attr.Map, error) {
	s, err := i.Component.States()
	i.m.observe("states", err)
	return s, err
}

func (i *Instrumented) SetActions(actions attr.Map) error {
	err := i.Component.SetActions(actions)
	i.m.observe("set_actions", err)
	return err
}

func (i *Instrumented) Reset() error {
	err := i.Component.Reset()
	i.m.observe("reset", err)
	return err
}
