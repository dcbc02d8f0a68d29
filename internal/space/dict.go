package space

import (
	"sort"
	"strings"

	"github.com/san-kum/bulletx/internal/attr"
)

// Dict is a schema mapping from field name to sub-space. Values may be nested
// Dicts, which makes a Dict a Space itself.
type Dict map[string]Space

// Keys returns the field names in ascending order.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sub returns the nested Dict stored under key, or nil.
func (d Dict) Sub(key string) Dict {
	s, _ := d[key].(Dict)
	return s
}

// Lookup resolves a dot path such as "right.hand.joint_torque".
func (d Dict) Lookup(path string) (Space, bool) {
	if path == "" {
		return nil, false
	}
	cur := d
	parts := strings.Split(path, attr.Sep)
	for i, p := range parts {
		s, ok := cur[p]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return s, true
		}
		next, ok := s.(Dict)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// Box looks up a dot path and returns it when it names a Box.
func (d Dict) Box(path string) (*Box, bool) {
	s, ok := d.Lookup(path)
	if !ok {
		return nil, false
	}
	b, ok := s.(*Box)
	return b, ok
}

func (d Dict) Shape() []int { return nil }

// Contains reports whether every key of v is declared and every value lies in
// its sub-space. Missing keys are allowed.
func (d Dict) Contains(v any) bool {
	m, ok := attr.Branch(v)
	if !ok {
		return false
	}
	for k, val := range m {
		s, ok := d[k]
		if !ok || !s.Contains(val) {
			return false
		}
	}
	return true
}

// New returns a value template with the same nested structure and nil leaves.
func (d Dict) New() attr.Map {
	out := make(attr.Map, len(d))
	for k, s := range d {
		if sub, ok := s.(Dict); ok {
			out[k] = sub.New()
			continue
		}
		out[k] = nil
	}
	return out
}

// Flatten returns every non-Dict sub-space keyed by its dot path.
func (d Dict) Flatten() map[string]Space {
	out := make(map[string]Space)
	d.flattenInto(out, "")
	return out
}

func (d Dict) flattenInto(out map[string]Space, prefix string) {
	for k, s := range d {
		key := k
		if prefix != "" {
			key = prefix + attr.Sep + k
		}
		if sub, ok := s.(Dict); ok {
			sub.flattenInto(out, key)
			continue
		}
		out[key] = s
	}
}

// Entries exposes the Dict to attr.Dump.
func (d Dict) Entries() map[string]any {
	out := make(map[string]any, len(d))
	for k, s := range d {
		out[k] = s
	}
	return out
}

func (d Dict) String() string {
	parts := make([]string, 0, len(d))
	for _, k := range d.Keys() {
		parts = append(parts, k+":"+d[k].String())
	}
	return "Dict(" + strings.Join(parts, ", ") + ")"
}
