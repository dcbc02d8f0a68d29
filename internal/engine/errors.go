package engine

import "errors"

var (
	ErrUnknownBody    = errors.New("engine: unknown body")
	ErrJointIndex     = errors.New("engine: joint index out of range")
	ErrLengthMismatch = errors.New("engine: argument lengths do not match")
	ErrNotConnected   = errors.New("engine: no transport in use")
	ErrUnknownJoint   = errors.New("engine: unknown joint name")
)
