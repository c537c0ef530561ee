package event

import "time"

type EventType string

const (
	EventTypeAppStart       EventType = "app_start"
	EventTypeAppStop        EventType = "app_stop"
	EventTypeModeChange     EventType = "mode_change"
	EventTypeAwayAlert      EventType = "away_alert"
	EventTypeReminder       EventType = "reminder"
	EventTypeComfortWarning EventType = "comfort_warning"
)

// Event structure to store in DB
type Event struct {
	ID        int64     `db:"id" json:"id"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	Type      EventType `db:"type" json:"type"`
	Mode      string    `db:"mode" json:"mode,omitempty"`
	Session   string    `db:"session" json:"session,omitempty"`
	Value     float64   `db:"value" json:"value,omitempty"` // away seconds for away_alert
	Notes     string    `db:"notes" json:"notes,omitempty"`
}

// AwayStat summarises the away alerts of one mode.
type AwayStat struct {
	Mode           string  `json:"mode"`
	Count          int     `json:"count"`
	AverageSeconds float64 `json:"average_seconds"`
	MaxSeconds     float64 `json:"max_seconds"`
}
