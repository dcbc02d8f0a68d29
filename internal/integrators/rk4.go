package integrators

import "github.com/san-kum/bulletx/internal/dynamo"

// RK4 is the classic fourth-order Runge-Kutta step. Stage buffers are reused
// across calls of the same size.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	probe          dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) grow(n int) {
	if len(r.k1) == n {
		return
	}
	r.k1 = make(dynamo.State, n)
	r.k2 = make(dynamo.State, n)
	r.k3 = make(dynamo.State, n)
	r.k4 = make(dynamo.State, n)
	r.probe = make(dynamo.State, n)
}

func (r *RK4) stage(dst dynamo.State, sys dynamo.System, x, k dynamo.State, u dynamo.Control, t, h float64) {
	for i := range x {
		r.probe[i] = x[i] + h*k[i]
	}
	copy(dst, sys.Derive(r.probe, u, t+h))
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.grow(n)

	copy(r.k1, sys.Derive(x, u, t))
	r.stage(r.k2, sys, x, r.k1, u, t, dt/2)
	r.stage(r.k3, sys, x, r.k2, u, t, dt/2)
	r.stage(r.k4, sys, x, r.k3, u, t, dt)

	next := make(dynamo.State, n)
	w := dt / 6
	for i := 0; i < n; i++ {
		next[i] = x[i] + w*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return next
}
