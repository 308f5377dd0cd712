package worker

import (
	"errors"
	"fmt"
)

// ErrUnknownEvent is returned by ParseEvent for names outside the vocabulary.
var ErrUnknownEvent = errors.New("keel/worker: unknown lifecycle event")

// Event names a point in a worker process's life at which registered
// lifecycle hooks fire. The set is closed: only the constants below are
// valid.
type Event uint8

const (
	eventInvalid Event = iota

	// Startup fires once, before the process starts fetching work.
	Startup
	// Quiet fires when the process stops fetching new work.
	Quiet
	// Shutdown fires when the process begins its shutdown sequence.
	Shutdown
	// Exit fires as the very last step of shutdown.
	Exit
	// Heartbeat fires once, after the first heartbeat is written.
	Heartbeat
	// Beat fires after every heartbeat.
	Beat

	eventSentinel
)

var eventNames = [...]string{
	eventInvalid: "invalid",
	Startup:      "startup",
	Quiet:        "quiet",
	Shutdown:     "shutdown",
	Exit:         "exit",
	Heartbeat:    "heartbeat",
	Beat:         "beat",
}

// Events returns every valid event in declaration order.
func Events() []Event {
	out := make([]Event, 0, int(eventSentinel)-1)
	for e := Startup; e < eventSentinel; e++ {
		out = append(out, e)
	}
	return out
}

// Valid reports whether e is a member of the event vocabulary.
func (e Event) Valid() bool { return e > eventInvalid && e < eventSentinel }

func (e Event) String() string {
	if !e.Valid() {
		return fmt.Sprintf("Event(%d)", uint8(e))
	}
	return eventNames[e]
}

// ParseEvent resolves an event from its name, e.g. from configuration.
func ParseEvent(name string) (Event, error) {
	for e := Startup; e < eventSentinel; e++ {
		if eventNames[e] == name {
			return e, nil
		}
	}
	return eventInvalid, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}
