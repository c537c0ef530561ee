package presence

import (
	"sync"
	"time"

	"deskie/internal/mode"
)

// Default distance thresholds in centimetres.
const (
	DefaultNearCm = 50.0
	DefaultFarCm  = 600.0
)

type Clock func() time.Time

// Thresholds are the fixed rangefinder cut-offs. A reading below NearCm
// counts as someone sitting at the desk; a reading above FarCm means the
// rangefinder sees nothing in front of it.
type Thresholds struct {
	NearCm float64
	FarCm  float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{NearCm: DefaultNearCm, FarCm: DefaultFarCm}
}

// State is the mutable presence state for the active mode.
type State struct {
	Mode       mode.Mode
	LastMotion time.Time
	AwayStart  *time.Time
	AtDesk     bool
}

// AwayAlert is raised when the user has been away longer than the mode allows.
type AwayAlert struct {
	Mode     mode.Mode
	Duration time.Duration
	At       time.Time
}

// Verdict is the outcome of one poll cycle.
type Verdict struct {
	AtDesk bool
	// Checked is false when away detection was skipped for this cycle.
	Checked bool
	// SinceMotion is only meaningful when Checked is true.
	SinceMotion time.Duration
	Alert       *AwayAlert
}

// Snapshot is a copy of the evaluator state safe to hand to other goroutines.
type Snapshot struct {
	State
	Settings mode.Settings
	Averages map[mode.Mode]time.Duration
	Counts   map[mode.Mode]int
}

// Evaluator fuses motion and distance readings into a presence verdict and
// tracks away time per mode. All methods are safe for concurrent use.
type Evaluator struct {
	mu     sync.Mutex
	now    Clock
	policy mode.Policy
	th     Thresholds
	state  State
	log    AwayLog
}

type Option func(*Evaluator)

func WithClock(c Clock) Option {
	return func(e *Evaluator) { e.now = c }
}

func WithThresholds(th Thresholds) Option {
	return func(e *Evaluator) { e.th = th }
}

// NewEvaluator starts in mode Off with the motion timestamp set to now.
func NewEvaluator(policy mode.Policy, opts ...Option) *Evaluator {
	e := &Evaluator{
		now:    time.Now,
		policy: policy.Clone(),
		th:     DefaultThresholds(),
		log:    make(AwayLog),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state = State{Mode: mode.Off, LastMotion: e.now()}
	return e
}

// Evaluate runs one poll cycle. distanceCm is nil when the rangefinder had
// no reading.
func (e *Evaluator) Evaluate(motion bool, distanceCm *float64) Verdict {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if motion {
		e.state.LastMotion = now
		e.state.AwayStart = nil
	}

	e.state.AtDesk = motion || (distanceCm != nil && *distanceCm < e.th.NearCm)
	v := Verdict{AtDesk: e.state.AtDesk}

	settings, ok := e.policy.Lookup(e.state.Mode)
	if !ok || !settings.AwayDetection() || distanceCm == nil {
		return v
	}
	limit := settings.AwayLimit

	v.Checked = true
	v.SinceMotion = now.Sub(e.state.LastMotion)

	if *distanceCm <= e.th.FarCm || v.SinceMotion <= limit {
		return v
	}
	// Once an alert has fired, the next one needs another full limit.
	if e.state.AwayStart != nil && now.Sub(*e.state.AwayStart) <= limit {
		return v
	}

	if e.state.AwayStart == nil {
		start := e.state.LastMotion
		e.state.AwayStart = &start
	}
	duration := now.Sub(*e.state.AwayStart)
	if duration < 0 {
		duration = 0
	}
	e.log.Append(e.state.Mode, duration)

	v.Alert = &AwayAlert{Mode: e.state.Mode, Duration: duration, At: now}
	rearm := now
	e.state.AwayStart = &rearm
	return v
}

// SetMode switches the active mode and resets the presence state.
func (e *Evaluator) SetMode(m mode.Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Mode = m
	e.state.LastMotion = e.now()
	e.state.AwayStart = nil
}

func (e *Evaluator) Mode() mode.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Mode
}

// SetPolicy replaces the mode table. The current presence state is kept.
func (e *Evaluator) SetPolicy(p mode.Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policy = p.Clone()
}

// Settings returns the settings of m under the current policy.
func (e *Evaluator) Settings(m mode.Mode) (mode.Settings, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy.Lookup(m)
}

func (e *Evaluator) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		State:    e.state,
		Averages: e.log.Averages(),
		Counts:   e.log.Counts(),
	}
	if e.state.AwayStart != nil {
		start := *e.state.AwayStart
		s.AwayStart = &start
	}
	s.Settings, _ = e.policy.Lookup(e.state.Mode)
	return s
}
