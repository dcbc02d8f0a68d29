package robot

import (
	"fmt"
	"strings"

	"github.com/san-kum/bulletx/internal/attr"
)

// Summary renders the state space, action space and current states of c.
func Summary(c Component) (string, error) {
	ss, err := c.StateSpace()
	if err != nil {
		return "", err
	}
	as, err := c.ActionSpace()
	if err != nil {
		return "", err
	}
	st, err := c.States()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "State Space: %s\n", attr.Dump(ss, 2))
	fmt.Fprintf(&b, "Action Space: %s\n", attr.Dump(as, 2))
	fmt.Fprintf(&b, "Current States: %s\n", attr.Dump(st, 2))
	return b.String(), nil
}

// WalkFunc is called for every component with its dot path; the root has an
// empty path.
type WalkFunc func(path string, c Component) error

// Walk visits c and its descendants depth first, parents before children.
func Walk(c Component, fn WalkFunc) error {
	return walk("", c, fn)
}

func walk(path string, c Component, fn WalkFunc) error {
	if err := fn(path, c); err != nil {
		return err
	}
	for _, ch := range c.Base().children {
		if err := walk(join(path, ch.Name), ch.Component, fn); err != nil {
			return err
		}
	}
	return nil
}

// Find resolves a dot path of child names starting at c.
func Find(c Component, path string) (Component, error) {
	if path == "" {
		return c, nil
	}
	cur := c
	for _, name := range strings.Split(path, attr.Sep) {
		next, ok := cur.Base().Child(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q in %q", ErrChildNotFound, name, path)
		}
		cur = next
	}
	return cur, nil
}
