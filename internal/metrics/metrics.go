// Package metrics exposes the station's counters in Prometheus text format.
package metrics

import (
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"deskie/internal/mode"
)

const prefix = "deskie_"

var atDesk = metrics.NewGauge(prefix+"at_desk", nil)

// Gauges for the last sample. A missing reading leaves the previous value.
var (
	temperature = metrics.NewGauge(prefix+"temperature_celsius", nil)
	humidity    = metrics.NewGauge(prefix+"humidity_percent", nil)
	distance    = metrics.NewGauge(prefix+"distance_cm", nil)
)

func SetAtDesk(v bool) {
	if v {
		atDesk.Set(1)
	} else {
		atDesk.Set(0)
	}
}

func ObserveSample(temp, hum, dist *float64) {
	if temp != nil {
		temperature.Set(*temp)
	}
	if hum != nil {
		humidity.Set(*hum)
	}
	if dist != nil {
		distance.Set(*dist)
	}
}

func AwayAlert(m mode.Mode, d time.Duration) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`%saway_alerts_total{mode=%q}`, prefix, m)).Inc()
	metrics.GetOrCreateSummary(fmt.Sprintf(`%saway_duration_seconds{mode=%q}`, prefix, m)).Update(d.Seconds())
}

func Reminder(m mode.Mode) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`%sreminders_total{mode=%q}`, prefix, m)).Inc()
}

func SensorError(sensor string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`%ssensor_errors_total{sensor=%q}`, prefix, sensor)).Inc()
}

func ModeChange(m mode.Mode) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`%smode_changes_total{mode=%q}`, prefix, m)).Inc()
}
