package display

import (
	"fmt"
	"math"
	"strings"
	"time"

	"deskie/internal/ipc"
	"deskie/internal/mode"
)

const (
	missing     = "--.-"
	minChartMax = 5.0
)

// Reading formats an optional value with one decimal.
func Reading(v *float64, unit string) string {
	if v == nil {
		return missing + unit
	}
	return fmt.Sprintf("%.1f%s", *v, unit)
}

func PresenceText(s ipc.StatusData) string {
	var b strings.Builder
	if s.AtDesk {
		b.WriteString("[green]At desk[-]")
	} else {
		b.WriteString("[yellow]Away[-]")
	}
	fmt.Fprintf(&b, "\nDistance: %s", Reading(s.DistanceCm, " cm"))
	if s.Motion {
		b.WriteString("\nMotion: yes")
	} else {
		b.WriteString("\nMotion: no")
	}
	if s.AwaySince != nil {
		fmt.Fprintf(&b, "\nAway since %s", s.AwaySince.Format("15:04:05"))
	}
	return b.String()
}

func StatusText(s ipc.StatusData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mode: [::b]%s[::-]", s.Mode)
	if s.AwayLimitSecs > 0 {
		fmt.Fprintf(&b, "\nAway limit: %s", secs(s.AwayLimitSecs))
	} else {
		b.WriteString("\nAway limit: none")
	}
	if s.ReminderIntervalSecs > 0 {
		fmt.Fprintf(&b, "\nReminder every %s", secs(s.ReminderIntervalSecs))
	}
	if s.NextReminder != nil {
		fmt.Fprintf(&b, "\nNext reminder %s", s.NextReminder.Format("15:04:05"))
	}
	return b.String()
}

func secs(f float64) time.Duration {
	return time.Duration(f * float64(time.Second)).Round(time.Second)
}

// RenderChart draws one horizontal bar per mode. The scale is the largest
// average, but never less than five minutes.
func RenderChart(avgs map[string]float64, width int) string {
	if width < 1 {
		width = 1
	}
	scale := minChartMax
	for _, v := range avgs {
		scale = math.Max(scale, v)
	}

	var b strings.Builder
	for i, m := range mode.All() {
		if m == mode.Off {
			continue
		}
		v := avgs[string(m)]
		n := int(math.Round(v / scale * float64(width)))
		if n > width {
			n = width
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%-5s |%s%s| %4.1f min",
			m, strings.Repeat("█", n), strings.Repeat(" ", width-n), v)
	}
	return b.String()
}
