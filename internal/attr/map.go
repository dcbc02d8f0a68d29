// Package attr provides the nested, attribute-accessible mapping used for state
// snapshots and action requests.
//
// A [Map] is a plain map whose branch values are themselves Maps. Fields are
// addressed either one level at a time or through dot paths:
//
//	states.Lookup("right_arm.hand.joint_position")
package attr

import (
	"fmt"
	"sort"
	"strings"
)

// Sep is the path separator used by Lookup, Set, Flatten and Unflatten.
const Sep = "."

type Map map[string]any

// From converts a generic nested map into a Map, normalising every
// map[string]any branch. The input is not modified.
func From(m map[string]any) Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	switch t := v.(type) {
	case Map:
		return From(t)
	case map[string]any:
		return From(t)
	default:
		return v
	}
}

// Branch reports whether v is a nested mapping and returns it as a Map.
func Branch(v any) (Map, bool) {
	switch t := v.(type) {
	case Map:
		return t, true
	case map[string]any:
		return Map(t), true
	default:
		return nil, false
	}
}

// Keys returns the top-level keys in ascending order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key exists at the top level.
func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Get returns the sub-map stored under key, or nil when key is missing or a leaf.
func (m Map) Get(key string) Map {
	b, _ := Branch(m[key])
	return b
}

// Lookup resolves a dot path through nested branches.
func (m Map) Lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	cur := m
	parts := strings.Split(path, Sep)
	for i, p := range parts {
		v, ok := cur[p]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := Branch(v)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// Set stores v at a dot path, creating intermediate branches. It fails when an
// intermediate element already holds a leaf value.
func (m Map) Set(path string, v any) error {
	if path == "" {
		return fmt.Errorf("attr: empty path")
	}
	parts := strings.Split(path, Sep)
	cur := m
	for _, p := range parts[:len(parts)-1] {
		existing, ok := cur[p]
		if !ok {
			next := Map{}
			cur[p] = next
			cur = next
			continue
		}
		next, ok := Branch(existing)
		if !ok {
			return fmt.Errorf("attr: %q is a leaf in path %q", p, path)
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
	return nil
}

// Clone deep copies every branch. Leaf values are shared.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		if b, ok := Branch(v); ok {
			out[k] = b.Clone()
			continue
		}
		out[k] = v
	}
	return out
}

// Flatten collapses nested branches into a single level keyed by joined paths.
// Empty branches disappear.
func (m Map) Flatten(sep string) map[string]any {
	out := make(map[string]any)
	m.flattenInto(out, "", sep)
	return out
}

func (m Map) flattenInto(out map[string]any, prefix, sep string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + sep + k
		}
		if b, ok := Branch(v); ok {
			b.flattenInto(out, key, sep)
			continue
		}
		out[key] = v
	}
}

// Unflatten is the inverse of Flatten.
func Unflatten(flat map[string]any, sep string) Map {
	root := Map{}
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		node := root
		parts := strings.Split(k, sep)
		for _, p := range parts[:len(parts)-1] {
			next, ok := Branch(node[p])
			if !ok {
				next = Map{}
				node[p] = next
			}
			node = next
		}
		node[parts[len(parts)-1]] = flat[k]
	}
	return root
}
