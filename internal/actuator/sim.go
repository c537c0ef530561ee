package actuator

import (
	"log"
	"time"
)

// LogSwitch is a Switch that only logs, for stations without GPIO.
type LogSwitch struct {
	Name string
	on   bool
}

func (l *LogSwitch) Set(on bool) error {
	if l.on != on {
		log.Printf("[sim] %s -> %t", l.Name, on)
	}
	l.on = on
	return nil
}

type LogServo struct{}

func (LogServo) Pulse(width time.Duration) error {
	log.Printf("[sim] servo pulse %s", width)
	return nil
}

func (LogServo) Off() error { return nil }

// SimOutputs returns logging outputs for every actuator.
func SimOutputs() Outputs {
	return Outputs{
		Blue:      &LogSwitch{Name: "led-blue"},
		TempGreen: &LogSwitch{Name: "led-temp-green"},
		TempRed:   &LogSwitch{Name: "led-temp-red"},
		HumGreen:  &LogSwitch{Name: "led-hum-green"},
		HumRed:    &LogSwitch{Name: "led-hum-red"},
		Buzzer:    &LogSwitch{Name: "buzzer"},
		Servo:     LogServo{},
	}
}
