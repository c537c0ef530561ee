package sensor

import (
	"context"
	"errors"
	"log"
	"time"
)

var (
	ErrEchoTimeout = errors.New("echo timeout")
	ErrNoReading   = errors.New("no reading")
)

// Sample is one poll of every sensor. Nil fields mean "no data this cycle".
type Sample struct {
	At          time.Time
	Motion      bool
	DistanceCm  *float64
	Temperature *float64
	Humidity    *float64
}

type MotionSensor interface {
	Motion() (bool, error)
}

type DistanceSensor interface {
	Distance(ctx context.Context) (float64, error)
}

type ClimateSensor interface {
	// Climate returns humidity (%) and temperature (°C).
	Climate() (humidity, temperature float64, err error)
}

// ErrorHook is told about every failed sensor read.
type ErrorHook func(sensor string, err error)

// Reader polls the three sensors and folds failures into nil values.
type Reader struct {
	motion   MotionSensor
	distance DistanceSensor
	climate  ClimateSensor
	onError  ErrorHook
	now      func() time.Time
}

func NewReader(motion MotionSensor, distance DistanceSensor, climate ClimateSensor, onError ErrorHook) *Reader {
	if onError == nil {
		onError = func(sensor string, err error) {
			log.Printf("Sensor %s read failed: %v", sensor, err)
		}
	}
	return &Reader{
		motion:   motion,
		distance: distance,
		climate:  climate,
		onError:  onError,
		now:      time.Now,
	}
}

func (r *Reader) Read(ctx context.Context) Sample {
	s := Sample{At: r.now()}

	motion, err := r.motion.Motion()
	if err != nil {
		r.onError("motion", err)
	}
	s.Motion = motion

	if ctx.Err() != nil {
		return s
	}
	if d, err := r.distance.Distance(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			r.onError("distance", err)
		}
	} else {
		s.DistanceCm = &d
	}

	if h, t, err := r.climate.Climate(); err != nil {
		r.onError("climate", err)
	} else {
		s.Humidity = &h
		s.Temperature = &t
	}
	return s
}
