package body

import "errors"

var (
	ErrZeroMaxForce = errors.New("body: max forces can't be all zero")
	ErrNotRobot     = errors.New("body: attach target is not a robot")
)
