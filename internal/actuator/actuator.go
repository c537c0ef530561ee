// Package actuator drives the station's LEDs, buzzer and servo.
//
// Feedback patterns run one at a time on a single worker goroutine. Away
// feedback and reminders are played before a pending comfort warning, and at
// most one comfort warning waits at a time. Every sleep inside a pattern is
// cancellable, so Safe can force the outputs low half way through a pattern.
package actuator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Switch is a single on/off output.
type Switch interface {
	Set(on bool) error
}

// Servo takes a pulse width; Off stops the pulse train.
type Servo interface {
	Pulse(width time.Duration) error
	Off() error
}

// Outputs is the full set of actuators on the station.
type Outputs struct {
	Blue      Switch
	TempGreen Switch
	TempRed   Switch
	HumGreen  Switch
	HumRed    Switch
	Buzzer    Switch
	Servo     Servo
}

func (o Outputs) leds() []Switch {
	return []Switch{o.Blue, o.TempGreen, o.TempRed, o.HumGreen, o.HumRed}
}

type Pattern string

const (
	AwayFeedback   Pattern = "away_feedback"
	ComfortWarning Pattern = "comfort_warning"
	Reminder       Pattern = "reminder"
)

// Timings of the feedback patterns.
type Timings struct {
	Buzz          time.Duration
	WaveStep      time.Duration
	ReminderFlash time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		Buzz:          4 * time.Second,
		WaveStep:      300 * time.Millisecond,
		ReminderFlash: 200 * time.Millisecond,
	}
}

// Servo pulse widths of the wave gesture.
const (
	servoCentre = 1500 * time.Microsecond
	servoRaised = 2400 * time.Microsecond
)

const queueSize = 4

var ErrStopped = errors.New("actuator stopped")

// Station owns the outputs. Create it with NewStation and call Start before
// queueing patterns.
type Station struct {
	out     Outputs
	timings Timings

	pinMu    sync.Mutex
	priority chan Pattern
	comfort  chan Pattern

	playedMu sync.Mutex
	played   map[Pattern]int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewStation(out Outputs, timings Timings) *Station {
	ctx, cancel := context.WithCancel(context.Background())
	return &Station{
		out:      out,
		timings:  timings,
		priority: make(chan Pattern, queueSize),
		comfort:  make(chan Pattern, 1),
		played:   make(map[Pattern]int),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

func (s *Station) Start() {
	go s.runLoop()
}

// Trigger queues a pattern. It never blocks. A comfort warning is dropped
// while another one is still pending; other patterns are dropped only when
// the queue is full.
func (s *Station) Trigger(p Pattern) bool {
	if s.ctx.Err() != nil {
		return false
	}
	if p == ComfortWarning {
		select {
		case s.comfort <- p:
			return true
		default:
			return false
		}
	}
	select {
	case s.priority <- p:
		return true
	default:
		log.Printf("Actuator queue full, dropping %s", p)
		return false
	}
}

func (s *Station) runLoop() {
	defer close(s.done)
	for {
		var p Pattern
		select {
		case p = <-s.priority:
		default:
			select {
			case <-s.ctx.Done():
				return
			case p = <-s.priority:
			case p = <-s.comfort:
			}
		}
		if s.ctx.Err() != nil {
			return
		}
		if err := s.play(s.ctx, p); err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Printf("Actuator pattern %s failed: %v", p, err)
			}
			continue
		}
		s.playedMu.Lock()
		s.played[p]++
		s.playedMu.Unlock()
	}
}

// Played reports how many times p has run to completion.
func (s *Station) Played(p Pattern) int {
	s.playedMu.Lock()
	defer s.playedMu.Unlock()
	return s.played[p]
}

func (s *Station) play(ctx context.Context, p Pattern) error {
	switch p {
	case AwayFeedback:
		for i := 0; i < 2; i++ {
			if err := s.buzz(ctx, s.timings.Buzz); err != nil {
				return err
			}
			if err := s.wave(ctx); err != nil {
				return err
			}
		}
		return nil
	case ComfortWarning:
		if err := s.buzz(ctx, s.timings.Buzz); err != nil {
			return err
		}
		return s.wave(ctx)
	case Reminder:
		for i := 0; i < 3; i++ {
			s.set(s.out.Blue, true)
			s.set(s.out.Buzzer, true)
			if err := s.wave(ctx); err != nil {
				return err
			}
			if err := sleep(ctx, s.timings.ReminderFlash); err != nil {
				return err
			}
			s.set(s.out.Buzzer, false)
			s.set(s.out.Blue, false)
			if err := sleep(ctx, s.timings.ReminderFlash); err != nil {
				return err
			}
		}
		return nil
	default:
		log.Printf("Warning: unknown actuator pattern %q", p)
		return nil
	}
}

func (s *Station) buzz(ctx context.Context, d time.Duration) error {
	s.set(s.out.Buzzer, true)
	err := sleep(ctx, d)
	s.set(s.out.Buzzer, false)
	return err
}

// wave sweeps the servo centre, raised, centre and then releases it.
func (s *Station) wave(ctx context.Context) error {
	defer s.servoOff()
	for _, w := range []time.Duration{servoCentre, servoRaised, servoCentre} {
		s.pinMu.Lock()
		err := s.out.Servo.Pulse(w)
		s.pinMu.Unlock()
		if err != nil {
			return err
		}
		if err := sleep(ctx, s.timings.WaveStep); err != nil {
			return err
		}
	}
	return nil
}

func (s *Station) servoOff() {
	s.pinMu.Lock()
	defer s.pinMu.Unlock()
	if err := s.out.Servo.Off(); err != nil {
		log.Printf("Servo off failed: %v", err)
	}
}

func (s *Station) set(sw Switch, on bool) {
	s.pinMu.Lock()
	defer s.pinMu.Unlock()
	if err := sw.Set(on); err != nil {
		log.Printf("Output write failed: %v", err)
	}
}

// SetComfort lights the green or red LED of each pair.
func (s *Station) SetComfort(tempOK, humOK bool) {
	s.set(s.out.TempGreen, tempOK)
	s.set(s.out.TempRed, !tempOK)
	s.set(s.out.HumGreen, humOK)
	s.set(s.out.HumRed, !humOK)
}

// AllOff turns every LED off. The buzzer and servo are left to any running
// pattern.
func (s *Station) AllOff() {
	for _, led := range s.out.leds() {
		s.set(led, false)
	}
}

// Safe stops the worker and forces every output to its idle state. It is
// safe to call more than once and does not wait for the running pattern.
func (s *Station) Safe() {
	s.once.Do(func() {
		s.cancel()
		log.Println("Actuators released to safe state.")
	})
	s.AllOff()
	s.set(s.out.Buzzer, false)
	s.servoOff()
}

// Wait blocks until the worker has exited or ctx expires.
func (s *Station) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ErrStopped
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
