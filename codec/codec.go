// Package codec serializes job payloads and runtime records.
//
// JSON is the interchange format keel writes to Redis; MessagePack is
// available for callers that want a compact binary encoding for their own
// keys. Both satisfy [Codec].
package codec

// Codec defines the serialization contract for payloads.
type Codec interface {
	// Marshal serializes v to bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes data into v, which must be a pointer.
	Unmarshal(data []byte, v any) error

	// Name returns the codec identifier ("json", "msgpack").
	Name() string
}

// Codec name constants for configuration.
const (
	NameJSON    = "json"
	NameMsgpack = "msgpack"
)

// Get returns a codec by name. Unknown and empty names resolve to JSON.
func Get(name string) Codec {
	switch name {
	case NameMsgpack:
		return Msgpack{}
	case NameJSON, "":
		return JSON{}
	default:
		return JSON{}
	}
}
