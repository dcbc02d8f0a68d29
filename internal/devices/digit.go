// Package devices holds tree components that need no engine body.
package devices

import (
	"fmt"

	"github.com/san-kum/bulletx/internal/attr"
	"github.com/san-kum/bulletx/internal/robot"
	"github.com/san-kum/bulletx/internal/space"
)

// FrameSource renders one RGB frame, row-major, three bytes per pixel.
type FrameSource func(width, height int) ([]uint8, error)

type DigitOptions struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// Digit is a tactile sensor. It reports an RGB image and accepts no actions.
type Digit struct {
	robot.Node
	width, height int
	source        FrameSource
}

func NewDigit(opts DigitOptions) *Digit {
	if opts.Width <= 0 {
		opts.Width = 120
	}
	if opts.Height <= 0 {
		opts.Height = 160
	}
	return &Digit{width: opts.Width, height: opts.Height}
}

// SetSource replaces the frame source. A nil source yields black frames.
func (d *Digit) SetSource(src FrameSource) { d.source = src }

func (d *Digit) StateSpace() (space.Dict, error) {
	return d.RouteStateSpace(func() (space.Dict, error) {
		return space.Dict{
			"image": space.MustBox([]float64{0}, []float64{255}, d.height, d.width, 3),
		}, nil
	})
}

func (d *Digit) States() (attr.Map, error) {
	return d.RouteStates(func() (attr.Map, error) {
		n := d.width * d.height * 3
		if d.source == nil {
			return attr.Map{"image": make([]uint8, n)}, nil
		}
		frame, err := d.source(d.width, d.height)
		if err != nil {
			return nil, err
		}
		if len(frame) != n {
			return nil, fmt.Errorf("devices: digit frame has %d bytes, want %d", len(frame), n)
		}
		return attr.Map{"image": frame}, nil
	})
}
