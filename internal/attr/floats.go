package attr

// Floats flattens a numeric leaf into row-major float64 values. It accepts
// scalars, flat and nested slices, and the []any lists produced by JSON and
// YAML decoders.
func Floats(v any) ([]float64, bool) {
	switch t := v.(type) {
	case float64:
		return []float64{t}, true
	case float32:
		return []float64{float64(t)}, true
	case int:
		return []float64{float64(t)}, true
	case int64:
		return []float64{float64(t)}, true
	case []float64:
		return t, true
	case []int:
		out := make([]float64, len(t))
		for i, x := range t {
			out[i] = float64(x)
		}
		return out, true
	case []uint8:
		out := make([]float64, len(t))
		for i, x := range t {
			out[i] = float64(x)
		}
		return out, true
	case [][]float64:
		var out []float64
		for _, row := range t {
			out = append(out, row...)
		}
		return out, true
	case [][6]float64:
		out := make([]float64, 0, len(t)*6)
		for _, row := range t {
			out = append(out, row[:]...)
		}
		return out, true
	case []any:
		out := make([]float64, 0, len(t))
		for _, x := range t {
			f, ok := Floats(x)
			if !ok {
				return nil, false
			}
			out = append(out, f...)
		}
		return out, true
	default:
		return nil, false
	}
}
