package sensor

import "periph.io/x/conn/v3/gpio"

// LevelReader is satisfied by gpio.PinIn.
type LevelReader interface {
	Read() gpio.Level
}

// PIR is a passive infrared motion detector wired to a digital input.
type PIR struct {
	pin LevelReader
}

func NewPIR(pin LevelReader) *PIR {
	return &PIR{pin: pin}
}

func (p *PIR) Motion() (bool, error) {
	return p.pin.Read() == gpio.High, nil
}
