package mode

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode is the operating profile selected by the user.
type Mode string

const (
	Work  Mode = "Work"
	Study Mode = "Study"
	Other Mode = "Other"
	Off   Mode = "Off"
)

var ErrUnknownMode = errors.New("unknown mode")

// All returns every mode in display order.
func All() []Mode {
	return []Mode{Work, Study, Other, Off}
}

// Parse accepts a mode name in any case.
func Parse(s string) (Mode, error) {
	for _, m := range All() {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Settings holds the thresholds for one mode. A zero duration means "none".
type Settings struct {
	AwayLimit        time.Duration
	ReminderInterval time.Duration
}

// AwayDetection reports whether away alerts are enabled for the mode.
func (s Settings) AwayDetection() bool {
	return s.AwayLimit > 0
}

// Reminders reports whether the mode runs periodic reminders.
func (s Settings) Reminders() bool {
	return s.ReminderInterval > 0
}

type Policy map[Mode]Settings

func DefaultPolicy() Policy {
	return Policy{
		Work:  {AwayLimit: 0, ReminderInterval: 20 * time.Minute},
		Study: {AwayLimit: 5 * time.Minute, ReminderInterval: 20 * time.Minute},
		Other: {AwayLimit: 15 * time.Second, ReminderInterval: 5 * time.Minute},
	}
}

// Lookup returns the settings of m. Off and unknown modes have no settings.
func (p Policy) Lookup(m Mode) (Settings, bool) {
	if m == Off {
		return Settings{}, false
	}
	s, ok := p[m]
	return s, ok
}

// Clone returns an independent copy of the table.
func (p Policy) Clone() Policy {
	out := make(Policy, len(p))
	for m, s := range p {
		out[m] = s
	}
	return out
}
