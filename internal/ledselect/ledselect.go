// Package ledselect lights exactly one of three LEDs.
package ledselect

import (
	"errors"
	"fmt"
	"strings"

	"deskie/internal/actuator"
)

type Color string

const (
	Red   Color = "Red"
	Green Color = "Green"
	Blue  Color = "Blue"
)

// BCM pins of the selector LEDs.
var DefaultPins = map[Color]int{Red: 17, Green: 27, Blue: 22}

var ErrUnknownColor = errors.New("unknown color")

func Colors() []Color {
	return []Color{Red, Green, Blue}
}

func ParseColor(s string) (Color, error) {
	for _, c := range Colors() {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColor, s)
}

type Selector struct {
	leds    map[Color]actuator.Switch
	current Color
}

func New(leds map[Color]actuator.Switch) *Selector {
	return &Selector{leds: leds}
}

// Select turns the other LEDs off before lighting c.
func (s *Selector) Select(c Color) error {
	target, ok := s.leds[c]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColor, c)
	}
	for _, other := range Colors() {
		if other == c {
			continue
		}
		if sw, ok := s.leds[other]; ok {
			if err := sw.Set(false); err != nil {
				return fmt.Errorf("turn %s off: %w", other, err)
			}
		}
	}
	if err := target.Set(true); err != nil {
		return fmt.Errorf("turn %s on: %w", c, err)
	}
	s.current = c
	return nil
}

func (s *Selector) Current() Color {
	return s.current
}

func (s *Selector) Off() error {
	var firstErr error
	for _, c := range Colors() {
		if sw, ok := s.leds[c]; ok {
			if err := sw.Set(false); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	s.current = ""
	return firstErr
}
