package integrators

import "github.com/san-kum/bulletx/internal/dynamo"

// Verlet is velocity Verlet over a [q..., qd...] state. It evaluates the
// system twice per step and conserves energy far better than Euler for
// undamped joints.
type Verlet struct {
	mid dynamo.State
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	half := n / 2
	if len(v.mid) != n {
		v.mid = make(dynamo.State, n)
	}

	next := make(dynamo.State, n)
	a0 := sys.Derive(x, u, t)
	for i := 0; i < half; i++ {
		next[i] = x[i] + x[half+i]*dt + 0.5*a0[half+i]*dt*dt
		v.mid[i] = next[i]
		v.mid[half+i] = x[half+i]
	}

	a1 := sys.Derive(v.mid, u, t+dt)
	for i := 0; i < half; i++ {
		next[half+i] = x[half+i] + 0.5*(a0[half+i]+a1[half+i])*dt
	}
	return next
}
