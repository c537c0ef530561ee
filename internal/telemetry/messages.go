package telemetry

import "time"

type SampleMessage struct {
	At          time.Time `json:"at"`
	Mode        string    `json:"mode"`
	Session     string    `json:"session"`
	Motion      bool      `json:"motion"`
	AtDesk      bool      `json:"at_desk"`
	DistanceCm  *float64  `json:"distance_cm"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
}

type ModeMessage struct {
	At      time.Time `json:"at"`
	Mode    string    `json:"mode"`
	Session string    `json:"session"`
}

type AlertMessage struct {
	At              time.Time `json:"at"`
	Mode            string    `json:"mode"`
	DurationSeconds float64   `json:"duration_seconds"`
}
