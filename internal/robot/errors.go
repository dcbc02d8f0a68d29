package robot

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyName      = errors.New("robot: child name is empty")
	ErrNilComponent   = errors.New("robot: component is nil")
	ErrDuplicateChild = errors.New("robot: child name already registered")
	ErrAlreadyOwned   = errors.New("robot: component already owned by another parent")
	ErrCycle          = errors.New("robot: component would become its own descendant")
	ErrChildNotFound  = errors.New("robot: child not found")

	// ErrNameCollision indicates a local field that shares its name with a child.
	ErrNameCollision = errors.New("robot: local field collides with child name")

	// ErrUnmatchedKey indicates an action request key that names neither a
	// local action field nor a child.
	ErrUnmatchedKey = errors.New("robot: action key matches no field or child")

	// ErrNotMapping indicates a request value addressed to a child that is not
	// itself a mapping.
	ErrNotMapping = errors.New("robot: child request is not a mapping")

	// ErrBadAction indicates a declared action field holding a value of the
	// wrong type or size.
	ErrBadAction = errors.New("robot: malformed action value")
)

// CollisionError names the keys found both among the children and in the
// local contribution of one component.
type CollisionError struct {
	Op   string
	Keys []string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("robot: %s: keys %v found in both children and local fields", e.Op, e.Keys)
}

func (e *CollisionError) Is(target error) bool {
	return target == ErrNameCollision
}

// UnmatchedError lists the dot paths of a request that nothing in the tree accepts.
type UnmatchedError struct {
	Paths []string
}

func (e *UnmatchedError) Error() string {
	return fmt.Sprintf("robot: unmatched action keys: %s", strings.Join(e.Paths, ", "))
}

func (e *UnmatchedError) Is(target error) bool {
	return target == ErrUnmatchedKey
}
