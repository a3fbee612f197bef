package device

import (
	"fmt"
	"time"
)

// Action is the event a scale unit reports in a telemetry Reading.
type Action string

// Telemetry actions.
const (
	ActionServed    Action = "Served"
	ActionRanOut    Action = "RanOut"
	ActionRefilled  Action = "Refilled"
	ActionStarting  Action = "Starting"
	ActionHeartbeat Action = "Heartbeat"
	ActionOffline   Action = "Offline"
)

// AllActions lists every known action.
var AllActions = []Action{
	ActionServed,
	ActionRanOut,
	ActionRefilled,
	ActionStarting,
	ActionHeartbeat,
	ActionOffline,
}

// ParseAction converts an action tag to an Action.
func ParseAction(s string) (Action, error) {
	for _, a := range AllActions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Reading is one telemetry event published by a scale unit.
type Reading struct {
	Device     Identity  `json:"device"`
	Location   string    `json:"location"`
	Ingredient string    `json:"ingredient"`
	Action     Action    `json:"dataAction"`
	Amount     float64   `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}
