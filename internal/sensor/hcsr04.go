package sensor

import (
	"context"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Half the speed of sound at room temperature, in cm/s.
const halfSpeedOfSound = 17150.0

const (
	settleTime   = 50 * time.Millisecond
	triggerPulse = 10 * time.Microsecond
)

// TriggerPin is the output half of gpio.PinIO used by the rangefinder.
type TriggerPin interface {
	Out(l gpio.Level) error
}

// EchoPin is the input half of gpio.PinIO. It must be configured for both
// edges.
type EchoPin interface {
	Read() gpio.Level
	WaitForEdge(timeout time.Duration) bool
}

// HCSR04 measures distance by timing the echo pulse of an HC-SR04.
type HCSR04 struct {
	trig    TriggerPin
	echo    EchoPin
	timeout time.Duration
	sleep   func(time.Duration)
	now     func() time.Time
}

// NewHCSR04 waits at most timeout for each echo edge.
func NewHCSR04(trig TriggerPin, echo EchoPin, timeout time.Duration) *HCSR04 {
	return &HCSR04{
		trig:    trig,
		echo:    echo,
		timeout: timeout,
		sleep:   time.Sleep,
		now:     time.Now,
	}
}

func (h *HCSR04) Distance(ctx context.Context) (float64, error) {
	if err := h.trig.Out(gpio.Low); err != nil {
		return 0, fmt.Errorf("trigger low: %w", err)
	}
	h.sleep(settleTime)
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := h.trig.Out(gpio.High); err != nil {
		return 0, fmt.Errorf("trigger high: %w", err)
	}
	h.sleep(triggerPulse)
	if err := h.trig.Out(gpio.Low); err != nil {
		return 0, fmt.Errorf("trigger low: %w", err)
	}

	if h.echo.Read() == gpio.High {
		// Rising edge already passed; the pulse is timed from here and the
		// distance reads short by however late we are.
		log.Println("Warning: echo already high after trigger, distance may read short")
	} else if !h.echo.WaitForEdge(h.timeout) {
		return 0, fmt.Errorf("waiting for echo start: %w", ErrEchoTimeout)
	}
	start := h.now()
	if h.echo.Read() == gpio.High && !h.echo.WaitForEdge(h.timeout) {
		return 0, fmt.Errorf("waiting for echo end: %w", ErrEchoTimeout)
	}
	end := h.now()

	return end.Sub(start).Seconds() * halfSpeedOfSound, nil
}
