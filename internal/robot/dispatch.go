package robot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/bulletx/internal/attr"
)

// Mode selects how Dispatch treats request keys that nothing accepts.
type Mode int

const (
	// Lenient applies the request and reports unmatched paths to the caller.
	Lenient Mode = iota
	// Strict rejects the whole request when any path is unmatched.
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	default:
		return Lenient, fmt.Errorf("robot: unknown action mode %q", s)
	}
}

// Dispatch is the top-level entry point for action requests. It returns the
// dot paths of keys that match neither a local action field nor a child.
// In Strict mode a non-empty result comes with an *UnmatchedError and nothing
// is applied. A child addressed with a non-mapping value fails with
// ErrNotMapping in either mode, also before anything is applied.
func Dispatch(c Component, actions attr.Map, mode Mode) ([]string, error) {
	unmatched, err := Unmatched(c, actions)
	if err != nil {
		return nil, err
	}
	if mode == Strict && len(unmatched) > 0 {
		return unmatched, &UnmatchedError{Paths: unmatched}
	}
	if err := c.SetActions(actions); err != nil {
		return unmatched, err
	}
	return unmatched, nil
}

// Unmatched walks a request against the tree and returns, sorted, the dot
// paths that would be silently dropped by SetActions. A non-mapping value
// addressed to a child is ErrNotMapping.
func Unmatched(c Component, actions attr.Map) ([]string, error) {
	var out []string
	if err := unmatched(c, actions, "", &out); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func unmatched(c Component, actions attr.Map, prefix string, out *[]string) error {
	if len(actions) == 0 {
		return nil
	}
	declared, err := c.ActionSpace()
	if err != nil {
		return err
	}
	node := c.Base()
	for k, v := range actions {
		path := join(prefix, k)
		if child, ok := node.Child(k); ok {
			sub, ok := attr.Branch(v)
			if !ok {
				return fmt.Errorf("%w: %q holds %T", ErrNotMapping, path, v)
			}
			if err := unmatched(child, sub, path, out); err != nil {
				return err
			}
			continue
		}
		if _, ok := declared[k]; !ok {
			*out = append(*out, path)
		}
	}
	return nil
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + attr.Sep + key
}
