package memory

import (
	"log/slog"

	"github.com/san-kum/bulletx/internal/dynamo"
	"github.com/san-kum/bulletx/internal/engine"
)

const (
	DefaultTimeStep = 1.0 / 240.0
	DefaultKp       = 400.0
	DefaultKd       = 40.0
)

var DefaultGravity = engine.Vec3{0, 0, -9.81}

type Option func(*World)

func WithTimeStep(dt float64) Option {
	return func(w *World) { w.dt = dt }
}

func WithGravity(g engine.Vec3) Option {
	return func(w *World) { w.gravity = g }
}

func WithIntegrator(integ dynamo.Integrator) Option {
	return func(w *World) { w.integ = integ }
}

// WithPositionGains sets the proportional and derivative gains of the
// position motor. The derivative gain also drives the velocity motor.
func WithPositionGains(kp, kd float64) Option {
	return func(w *World) { w.kp, w.kd = kp, kd }
}

func WithID(id int) Option {
	return func(w *World) { w.id = id }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *World) { w.log = l }
}
