package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Split returns the position and velocity halves of a [q..., qd...] state.
// Both alias s.
func (s State) Split() (q, qd []float64) {
	half := len(s) / 2
	return s[:half], s[half:]
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Axpy returns s + a*other. Missing elements of other count as zero.
func (s State) Axpy(a float64, other State) State {
	out := make(State, len(s))
	for i := range s {
		out[i] = s[i]
		if i < len(other) {
			out[i] += a * other[i]
		}
	}
	return out
}

// Control is one generalized force per degree of freedom.
type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(sys System, x State, u Control, t, dt float64) State
}

// Configurable exposes named scalar parameters, such as the gravity vector
// of a world or the gains of a motor model.
type Configurable interface {
	Params() map[string]float64
	SetParam(name string, value float64) error
}

// Clamp limits v to [-limit, limit]. A non-positive limit clamps to zero.
func Clamp(v, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Max(-limit, math.Min(limit, v))
}
