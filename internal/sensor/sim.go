package sensor

import (
	"context"
	"sync"
)

// Simulated stands in for all three sensors when no GPIO header is present.
// Values can be changed at runtime, which is handy for trying out modes on a
// laptop.
type Simulated struct {
	mu          sync.Mutex
	motion      bool
	distanceCm  float64
	hasDistance bool
	humidity    float64
	temperature float64
	hasClimate  bool
}

func NewSimulated(motion bool, distanceCm, temperature, humidity float64) *Simulated {
	return &Simulated{
		motion:      motion,
		distanceCm:  distanceCm,
		hasDistance: distanceCm > 0,
		temperature: temperature,
		humidity:    humidity,
		hasClimate:  true,
	}
}

func (s *Simulated) SetMotion(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.motion = on
}

// SetDistance sets the reported distance; a value <= 0 simulates a timeout.
func (s *Simulated) SetDistance(cm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.distanceCm = cm
	s.hasDistance = cm > 0
}

func (s *Simulated) SetClimate(temperature, humidity float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temperature = temperature
	s.humidity = humidity
	s.hasClimate = ok
}

func (s *Simulated) Motion() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.motion, nil
}

func (s *Simulated) Distance(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasDistance {
		return 0, ErrEchoTimeout
	}
	return s.distanceCm, nil
}

func (s *Simulated) Climate() (humidity, temperature float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasClimate {
		return 0, 0, ErrNoReading
	}
	return s.humidity, s.temperature, nil
}
