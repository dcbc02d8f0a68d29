// Package storage records flattened tree snapshots and persists runs on
// disk or in Redis.
package storage

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/san-kum/bulletx/internal/attr"
)

var (
	ErrLayout      = errors.New("storage: snapshot layout changed during a run")
	ErrRunNotFound = errors.New("storage: run not found")
	ErrNoColumn    = errors.New("storage: no such column")
)

type RunMetadata struct {
	ID          string    `json:"id"`
	Scene       string    `json:"scene"`
	Timestamp   time.Time `json:"timestamp"`
	TimeStep    float64   `json:"time_step"`
	Steps       int       `json:"steps"`
	RecordEvery int       `json:"record_every"`
	Integrator  string    `json:"integrator"`
	Columns     []string  `json:"columns"`
	Unmatched   []string  `json:"unmatched,omitempty"`
}

// Run is one recorded simulation. Rows[i] holds the value of every column
// at Times[i].
type Run struct {
	Meta    RunMetadata `json:"meta"`
	Columns []string    `json:"columns"`
	Times   []float64   `json:"times"`
	Rows    [][]float64 `json:"rows"`
}

// Column returns the series of one column.
func (r *Run) Column(name string) ([]float64, error) {
	for j, c := range r.Columns {
		if c != name {
			continue
		}
		out := make([]float64, len(r.Rows))
		for i, row := range r.Rows {
			if j < len(row) {
				out[i] = row[j]
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
}

type field struct {
	key    string
	width  int
	scalar bool
}

// Recorder turns snapshots into rows. The first snapshot fixes the columns:
// one per scalar leaf, or key[i] per element of a vector leaf. Image leaves
// ([]uint8) and non-numeric leaves are skipped.
type Recorder struct {
	fields  []field
	columns []string
	times   []float64
	rows    [][]float64
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Record(t float64, states attr.Map) error {
	flat := states.Flatten(attr.Sep)
	if r.fields == nil {
		r.layout(flat)
	}
	row := make([]float64, 0, len(r.columns))
	for _, f := range r.fields {
		v, ok := attr.Floats(flat[f.key])
		if !ok || len(v) != f.width {
			return fmt.Errorf("%w: %s", ErrLayout, f.key)
		}
		row = append(row, v...)
	}
	r.times = append(r.times, t)
	r.rows = append(r.rows, row)
	return nil
}

func (r *Recorder) layout(flat map[string]any) {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r.fields = []field{}
	for _, k := range keys {
		if _, ok := flat[k].([]uint8); ok {
			continue
		}
		v, ok := attr.Floats(flat[k])
		if !ok {
			continue
		}
		f := field{key: k, width: len(v), scalar: isScalar(flat[k])}
		r.fields = append(r.fields, f)
		if f.scalar {
			r.columns = append(r.columns, k)
			continue
		}
		for i := range v {
			r.columns = append(r.columns, fmt.Sprintf("%s[%d]", k, i))
		}
	}
}

func isScalar(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64:
		return true
	}
	return false
}

func (r *Recorder) Columns() []string { return r.columns }

func (r *Recorder) Len() int { return len(r.rows) }

// Run packages what was recorded so far. meta.Columns is filled in.
func (r *Recorder) Run(meta RunMetadata) *Run {
	meta.Columns = r.columns
	return &Run{
		Meta:    meta,
		Columns: r.columns,
		Times:   r.times,
		Rows:    r.rows,
	}
}
