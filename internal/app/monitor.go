package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"deskie/internal/actuator"
	"deskie/internal/event"
	"deskie/internal/metrics"
	"deskie/internal/presence"
	"deskie/internal/sensor"
	"deskie/internal/telemetry"
)

func (a *App) monitorLoop() {
	defer log.Println("Monitor loop stopped.")

	ticker := time.NewTicker(a.cfg.PollInterval())
	defer ticker.Stop()

	a.poll()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.poll()
		}
	}
}

// poll runs one read-evaluate-act cycle.
func (a *App) poll() {
	s := a.reader.Read(a.ctx)
	if a.ctx.Err() != nil {
		return
	}
	v := a.evaluator.Evaluate(s.Motion, s.DistanceCm)
	m := a.evaluator.Mode()

	a.statusMu.Lock()
	a.latest = s
	session := a.session
	a.statusMu.Unlock()

	metrics.SetAtDesk(v.AtDesk)
	metrics.ObserveSample(s.Temperature, s.Humidity, s.DistanceCm)

	if a.cfg.Debug {
		log.Printf("Poll: motion=%t distance=%s at_desk=%t checked=%t since_motion=%s",
			s.Motion, fmtOpt(s.DistanceCm), v.AtDesk, v.Checked, v.SinceMotion.Round(time.Second))
	}

	if v.Alert != nil {
		a.handleAlert(*v.Alert)
	}
	a.checkComfort(s)

	if a.telemetry != nil {
		err := a.telemetry.PublishSample(telemetry.SampleMessage{
			At:          s.At,
			Mode:        string(m),
			Session:     session,
			Motion:      s.Motion,
			AtDesk:      v.AtDesk,
			DistanceCm:  s.DistanceCm,
			Temperature: s.Temperature,
			Humidity:    s.Humidity,
		})
		if err != nil && a.cfg.Debug {
			log.Printf("Telemetry: %v", err)
		}
	}
}

func (a *App) handleAlert(al presence.AwayAlert) {
	log.Printf("Away alert: %s mode, away for %s", al.Mode, al.Duration.Round(time.Second))
	metrics.AwayAlert(al.Mode, al.Duration)
	a.journal(event.EventTypeAwayAlert, al.Mode, al.Duration.Seconds(), "")
	a.station.Trigger(actuator.AwayFeedback)

	if len(a.sinks) == 0 {
		return
	}
	a.wg.Go(func() {
		ctx, cancel := context.WithTimeout(a.ctx, a.cfg.WebhookTimeout())
		defer cancel()
		a.sinks.Notify(ctx, al)
	})
}

// checkComfort drives the comfort LEDs and sounds a warning while a value is
// out of range. The station keeps at most one warning pending. Only changes of
// the verdict are journaled.
func (a *App) checkComfort(s sensor.Sample) {
	r, ok := a.bounds.Check(s.Temperature, s.Humidity)
	if !ok {
		return
	}
	a.station.SetComfort(r.TempOK, r.HumidityOK)
	if r.Warnings() > 0 {
		a.station.Trigger(actuator.ComfortWarning)
	}

	a.statusMu.Lock()
	changed := a.lastComfort == nil || *a.lastComfort != r
	a.lastComfort = &r
	a.statusMu.Unlock()

	if changed && r.Warnings() > 0 {
		notes := fmt.Sprintf("temperature %s, humidity %s", fmtOpt(s.Temperature), fmtOpt(s.Humidity))
		a.journal(event.EventTypeComfortWarning, a.evaluator.Mode(), float64(r.Warnings()), notes)
	}
}

func fmtOpt(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *v)
}
