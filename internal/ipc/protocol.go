package ipc

import (
	"encoding/json"
	"fmt"
	"time"

	"deskie/internal/event"
)

const DefaultSocketPath = "/tmp/deskie.sock"

// Command represents a command sent over the socket
type Command struct {
	Name string      `json:"name"`
	Args interface{} `json:"args,omitempty"`
}

// Response represents a response sent back over the socket
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// --- Command Argument Structs ---

type SetModeArgs struct {
	Mode string `json:"mode"`
}

type GetEventsArgs struct {
	Since string `json:"since"` // duration, e.g. "1h"
}

// --- Command Names (Constants) ---

const (
	CmdPing      = "ping"
	CmdGetStatus = "get_status"
	CmdSetMode   = "set_mode"
	CmdGetStats  = "get_stats"
	CmdGetEvents = "get_events"
)

// --- Response Data ---

type StatusData struct {
	Mode                 string             `json:"mode"`
	Session              string             `json:"session"`
	AtDesk               bool               `json:"at_desk"`
	Motion               bool               `json:"motion"`
	LastMotion           time.Time          `json:"last_motion"`
	AwaySince            *time.Time         `json:"away_since,omitempty"`
	SampledAt            time.Time          `json:"sampled_at"`
	DistanceCm           *float64           `json:"distance_cm,omitempty"`
	Temperature          *float64           `json:"temperature,omitempty"`
	Humidity             *float64           `json:"humidity,omitempty"`
	AwayLimitSecs        float64            `json:"away_limit_secs"`
	ReminderIntervalSecs float64            `json:"reminder_interval_secs"`
	NextReminder         *time.Time         `json:"next_reminder,omitempty"`
	AwayAverageMins      map[string]float64 `json:"away_average_mins"`
	AwayCounts           map[string]int     `json:"away_counts"`
}

type StatsData struct {
	Since time.Time        `json:"since"`
	Stats []event.AwayStat `json:"stats"`
}

type EventsData struct {
	Events []event.Event `json:"events"`
}

// Decode converts a generically decoded value (map[string]interface{} from
// json) into a typed struct.
func Decode(input interface{}, output interface{}) error {
	if input == nil {
		return nil
	}
	jsonBytes, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal args map: %w", err)
	}
	if err := json.Unmarshal(jsonBytes, output); err != nil {
		return fmt.Errorf("failed to unmarshal args into struct: %w", err)
	}
	return nil
}
