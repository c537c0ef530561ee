package presence

import (
	"time"

	"deskie/internal/mode"
)

// AwayLog keeps every away duration per mode for the lifetime of the process.
type AwayLog map[mode.Mode][]time.Duration

func (l AwayLog) Append(m mode.Mode, d time.Duration) {
	l[m] = append(l[m], d)
}

// Averages returns the mean away duration of every mode with samples.
func (l AwayLog) Averages() map[mode.Mode]time.Duration {
	out := make(map[mode.Mode]time.Duration, len(l))
	for m, samples := range l {
		if len(samples) == 0 {
			continue
		}
		var total time.Duration
		for _, d := range samples {
			total += d
		}
		out[m] = total / time.Duration(len(samples))
	}
	return out
}

func (l AwayLog) Counts() map[mode.Mode]int {
	out := make(map[mode.Mode]int, len(l))
	for m, samples := range l {
		if len(samples) > 0 {
			out[m] = len(samples)
		}
	}
	return out
}
