// Package board opens the Raspberry Pi header through periph.io and hands
// out the sensors and actuators wired to it.
package board

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"deskie/internal/actuator"
	"deskie/internal/config"
	"deskie/internal/sensor"
)

const (
	servoFrequency = 50 * physic.Hertz
	servoPeriod    = 20 * time.Millisecond
)

// Board owns every pin it opened and releases them on Close.
type Board struct {
	pins    []gpio.PinIO
	outputs []gpio.PinIO
}

// Init loads the periph.io host drivers. It must run before any pin lookup.
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("host init failed: %w", err)
	}
	return nil
}

func New() *Board {
	return &Board{}
}

// Pin looks a BCM pin up by number.
func (b *Board) Pin(bcm int) (gpio.PinIO, error) {
	name := fmt.Sprintf("GPIO%d", bcm)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pin %s not found", name)
	}
	b.pins = append(b.pins, p)
	return p, nil
}

// Output opens bcm as an output driven low.
func (b *Board) Output(bcm int) (*Switch, error) {
	p, err := b.Pin(bcm)
	if err != nil {
		return nil, err
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("set %s low: %w", p, err)
	}
	b.outputs = append(b.outputs, p)
	return &Switch{pin: p}, nil
}

// Sensors wires the PIR, rangefinder and DHT11 from the pin table.
func (b *Board) Sensors(hw config.HardwareConfig, echoTimeout time.Duration) (*sensor.PIR, *sensor.HCSR04, *sensor.DHT11, error) {
	motion, err := b.Pin(hw.Pins.Motion)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := motion.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, nil, nil, fmt.Errorf("configure motion pin: %w", err)
	}

	trig, err := b.Pin(hw.Pins.Trigger)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := trig.Out(gpio.Low); err != nil {
		return nil, nil, nil, fmt.Errorf("configure trigger pin: %w", err)
	}

	echo, err := b.Pin(hw.Pins.Echo)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := echo.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return nil, nil, nil, fmt.Errorf("configure echo pin: %w", err)
	}

	return sensor.NewPIR(motion), sensor.NewHCSR04(trig, echo, echoTimeout), sensor.NewDHT11(hw.DHTDevice), nil
}

// Outputs opens every actuator pin.
func (b *Board) Outputs(pins config.PinsConfig) (actuator.Outputs, error) {
	var out actuator.Outputs
	for _, o := range []struct {
		bcm int
		dst *actuator.Switch
	}{
		{pins.Blue, &out.Blue},
		{pins.TempGreen, &out.TempGreen},
		{pins.TempRed, &out.TempRed},
		{pins.HumGreen, &out.HumGreen},
		{pins.HumRed, &out.HumRed},
		{pins.Buzzer, &out.Buzzer},
	} {
		sw, err := b.Output(o.bcm)
		if err != nil {
			return out, err
		}
		*o.dst = sw
	}

	servo, err := b.Pin(pins.Servo)
	if err != nil {
		return out, err
	}
	b.outputs = append(b.outputs, servo)
	out.Servo = &Servo{pin: servo}
	return out, nil
}

// Close drives every opened pin low and halts it.
func (b *Board) Close() error {
	var firstErr error
	for _, p := range b.outputs {
		if err := p.Out(gpio.Low); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("drive %s low: %w", p, err)
		}
	}
	for _, p := range b.pins {
		if err := p.Halt(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.pins, b.outputs = nil, nil
	log.Println("GPIO pins released.")
	return firstErr
}

// Switch drives a single digital output.
type Switch struct {
	pin gpio.PinOut
}

func NewSwitch(pin gpio.PinOut) *Switch {
	return &Switch{pin: pin}
}

func (s *Switch) Set(on bool) error {
	return s.pin.Out(gpio.Level(on))
}

// Servo drives a hobby servo with a 50Hz PWM signal.
type Servo struct {
	pin gpio.PinOut
}

func (s *Servo) Pulse(width time.Duration) error {
	return s.pin.PWM(pulseDuty(width), servoFrequency)
}

// Off stops the pulse train so the servo stops holding position.
func (s *Servo) Off() error {
	return s.pin.Out(gpio.Low)
}

func pulseDuty(width time.Duration) gpio.Duty {
	if width <= 0 {
		return 0
	}
	if width >= servoPeriod {
		return gpio.DutyMax
	}
	return gpio.Duty(int64(gpio.DutyMax) * int64(width) / int64(servoPeriod))
}
