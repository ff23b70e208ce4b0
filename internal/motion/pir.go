// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package motion

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// PIR reads a passive infrared sensor wired to a GPIO line.
type PIR struct {
	line *gpiocdev.Line
}

// NewPIR requests the sensor line as an input from the given GPIO character
// device (e.g. "gpiochip0").
func NewPIR(chip string, pin int) (*PIR, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsInput)
	if err != nil {
		return nil, fmt.Errorf("request GPIO line %s:%d: %w", chip, pin, err)
	}
	return &PIR{line: line}, nil
}

// MotionDetected reports whether the sensor output is currently high.
func (p *PIR) MotionDetected() (bool, error) {
	v, err := p.line.Value()
	if err != nil {
		return false, fmt.Errorf("read GPIO line: %w", err)
	}
	return v != 0, nil
}

// Close releases the GPIO line.
func (p *PIR) Close() error {
	return p.line.Close()
}
