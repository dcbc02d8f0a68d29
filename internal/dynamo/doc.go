// Package dynamo holds the joint-space numerics used by the in-memory
// transport.
//
//   - [State]: a flat vector, conventionally [q..., qd...]
//   - [System]: something that can report dX/dt = f(X, u, t)
//   - [Integrator]: advances a System by one fixed step
//   - [Configurable]: named scalar parameters set from config
//
// # Example
//
//	integ := integrators.NewRK4()
//	x = integ.Step(body, x, tau, t, dt)
//
// Integrators keep scratch buffers and must not be shared between goroutines.
package dynamo
