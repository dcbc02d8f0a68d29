// Package space declares the bounded domains that describe state and action
// fields.
//
//   - [Box]: continuous values with element-wise bounds and a shape
//   - [Discrete]: integers in [0, N)
//   - [MultiBinary]: N flags
//   - [Dict]: named sub-spaces, nestable, with dot-path lookup
//
// # Example
//
//	s := space.Dict{
//	    "joint_position": space.MustBox([]float64{-1}, []float64{1}, 7),
//	}
//	box, _ := s.Lookup("joint_position")
package space

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/bulletx/internal/attr"
)

// ErrBadShape indicates bounds whose length does not fit the declared shape.
var ErrBadShape = errors.New("space: bounds do not match shape")

type Space interface {
	Shape() []int
	Contains(v any) bool
	String() string
}

// Box is a bounded domain of float64 values. Low and High hold one bound per
// element, in row-major order.
type Box struct {
	Low   []float64
	High  []float64
	shape []int
}

// NewBox builds a Box. Bounds of length one are broadcast to every element.
// A Box without dimensions is a scalar.
func NewBox(low, high []float64, shape ...int) (*Box, error) {
	n := size(shape)
	lo, err := broadcast(low, n)
	if err != nil {
		return nil, fmt.Errorf("low: %w", err)
	}
	hi, err := broadcast(high, n)
	if err != nil {
		return nil, fmt.Errorf("high: %w", err)
	}
	for i := range lo {
		if lo[i] > hi[i] {
			return nil, fmt.Errorf("space: low[%d]=%g exceeds high[%d]=%g", i, lo[i], i, hi[i])
		}
	}
	return &Box{Low: lo, High: hi, shape: append([]int(nil), shape...)}, nil
}

// MustBox is NewBox for bounds known to be valid.
func MustBox(low, high []float64, shape ...int) *Box {
	b, err := NewBox(low, high, shape...)
	if err != nil {
		panic(err)
	}
	return b
}

// Unbounded returns a Box over (-inf, inf).
func Unbounded(shape ...int) *Box {
	return MustBox([]float64{math.Inf(-1)}, []float64{math.Inf(1)}, shape...)
}

func broadcast(v []float64, n int) ([]float64, error) {
	switch len(v) {
	case n:
		return append([]float64(nil), v...), nil
	case 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = v[0]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: got %d values for %d elements", ErrBadShape, len(v), n)
	}
}

func size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func (b *Box) Shape() []int { return b.shape }

// Size is the number of elements.
func (b *Box) Size() int { return size(b.shape) }

func (b *Box) Contains(v any) bool {
	vals, ok := attr.Floats(v)
	if !ok || len(vals) != b.Size() {
		return false
	}
	for i, x := range vals {
		if math.IsNaN(x) || x < b.Low[i] || x > b.High[i] {
			return false
		}
	}
	return true
}

// Clip returns a copy of v with every element clamped into the box bounds.
func (b *Box) Clip(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		if i < len(b.Low) {
			x = math.Max(b.Low[i], math.Min(b.High[i], x))
		}
		out[i] = x
	}
	return out
}

// Zero returns a value with every element at zero, clipped into bounds.
func (b *Box) Zero() []float64 {
	return b.Clip(make([]float64, b.Size()))
}

func (b *Box) String() string {
	lo, hi := summarize(b.Low), summarize(b.High)
	return fmt.Sprintf("Box(%s, %s, %s, float64)", lo, hi, shapeString(b.shape))
}

func summarize(v []float64) string {
	if len(v) == 0 {
		return "[]"
	}
	same := true
	for _, x := range v[1:] {
		if x != v[0] {
			same = false
			break
		}
	}
	if same {
		return formatFloat(v[0])
	}
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = formatFloat(x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatFloat(x float64) string {
	switch {
	case math.IsInf(x, 1):
		return "inf"
	case math.IsInf(x, -1):
		return "-inf"
	default:
		return fmt.Sprintf("%g", x)
	}
}

func shapeString(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprint(d)
	}
	if len(shape) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Discrete is the set {0, 1, ..., N-1}.
type Discrete struct {
	N int
}

func (d Discrete) Shape() []int { return nil }

func (d Discrete) Contains(v any) bool {
	i, ok := v.(int)
	return ok && i >= 0 && i < d.N
}

func (d Discrete) String() string { return fmt.Sprintf("Discrete(%d)", d.N) }

// MultiBinary is a vector of N flags.
type MultiBinary struct {
	N int
}

func (m MultiBinary) Shape() []int { return []int{m.N} }

func (m MultiBinary) Contains(v any) bool {
	switch t := v.(type) {
	case []bool:
		return len(t) == m.N
	case []int:
		if len(t) != m.N {
			return false
		}
		for _, x := range t {
			if x != 0 && x != 1 {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (m MultiBinary) String() string { return fmt.Sprintf("MultiBinary(%d)", m.N) }
