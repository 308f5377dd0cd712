package redisconn

import (
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Signal classifies a store error for the reconnect policy.
type Signal uint8

const (
	// Unclassified errors are returned to the caller unchanged.
	Unclassified Signal = iota
	// ReadOnlyRedirect: the node rejected a write because it is now a replica.
	ReadOnlyRedirect
	// InstanceStateChanged: a blocking call was force-unblocked because the
	// node changed role.
	InstanceStateChanged
)

func (s Signal) String() string {
	switch s {
	case ReadOnlyRedirect:
		return "read_only_redirect"
	case InstanceStateChanged:
		return "instance_state_changed"
	default:
		return "unclassified"
	}
}

// Failover reports whether s warrants a reconnect.
func (s Signal) Failover() bool { return s != Unclassified }

// Redis error codes (first word of the server reply) that signal failover.
var codeSignals = map[string]Signal{
	"READONLY":  ReadOnlyRedirect,
	"UNBLOCKED": InstanceStateChanged,
}

// Message fragments matched when the error carries no usable code, e.g.
// when a client library or the caller rewrapped the server reply as text.
var messageSignals = []struct {
	fragment string
	signal   Signal
}{
	{"READONLY ", ReadOnlyRedirect},
	{"can't write against a read only replica", ReadOnlyRedirect},
	{"UNBLOCKED ", InstanceStateChanged},
	{"instance state changed", InstanceStateChanged},
}

// Classify maps err onto a Signal. A redis.Error anywhere in the chain is
// classified by its reply code; otherwise the message is matched against
// known failover fragments.
func Classify(err error) Signal {
	if err == nil {
		return Unclassified
	}

	var rerr redis.Error
	if errors.As(err, &rerr) {
		code, _, _ := strings.Cut(rerr.Error(), " ")
		if s, ok := codeSignals[code]; ok {
			return s
		}
	}

	msg := err.Error()
	for _, m := range messageSignals {
		if strings.Contains(msg, m.fragment) {
			return m.signal
		}
	}
	return Unclassified
}

// CommandError is an error reply from the store. It satisfies redis.Error,
// so callers can return one from a callback to report a server-side
// condition they detected themselves.
type CommandError string

func (e CommandError) Error() string { return string(e) }

// RedisError implements redis.Error.
func (CommandError) RedisError() {}
