package connection

import "time"

// State is the lifecycle state of the push channel.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Polling
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Polling:
		return "polling"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// event drives a state transition.
type event string

const (
	eventStart     event = "start"
	eventConnected event = "connected"
	eventFailed    event = "failed"
	eventDropped   event = "dropped"
	eventFallback  event = "fallback"
	eventStop      event = "stop"
)

// transitions lists every legal move: [from][event] -> to.
var transitions = map[State]map[event]State{
	Disconnected: {
		eventStart: Connecting,
	},
	Connecting: {
		eventConnected: Connected,
		eventFailed:    Reconnecting,
		eventFallback:  Polling,
		eventStop:      Disconnected,
	},
	Connected: {
		eventDropped: Reconnecting,
		eventStop:    Disconnected,
	},
	Reconnecting: {
		eventConnected: Connected,
		eventFailed:    Reconnecting,
		eventFallback:  Polling,
		eventStop:      Disconnected,
	},
	Polling: {
		eventStop: Disconnected,
	},
}

func next(from State, ev event) (State, error) {
	to, ok := transitions[from][ev]
	if !ok {
		return from, &TransitionError{From: from, Event: string(ev)}
	}
	return to, nil
}

// Status is what observers see on every transition.
type Status struct {
	State State `json:"state"`
	// Polling distinguishes the fallback from a live channel for diagnostics.
	Polling      bool      `json:"polling"`
	Attempt      int       `json:"attempt"`
	ConnectionID string    `json:"connectionId,omitempty"`
	LastError    string    `json:"lastError,omitempty"`
	Since        time.Time `json:"since"`
}

// Connected reports the UI view: a live channel and the polling fallback
// both count as connected.
func (s Status) Connected() bool {
	return s.State == Connected || s.State == Polling
}
