package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/keel/codec"
)

func TestDumpLoad(t *testing.T) {
	got, err := codec.Load(`{"foo":"bar"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"foo": "bar"}, got)

	text, err := codec.Dump(map[string]any{"foo": "bar"})
	require.NoError(t, err)
	assert.Equal(t, `{"foo":"bar"}`, text)
}

func TestDumpLoad_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
	}{
		{"empty", map[string]any{}},
		{"scalars", map[string]any{"s": "x", "n": 1.5, "b": true, "z": nil}},
		{"nested", map[string]any{
			"args":  []any{"a", 2.0, false},
			"inner": map[string]any{"queue": "cat", "retry": 3.0},
		}},
		{"unicode", map[string]any{"msg": "❨╯°□°❩╯︵┻━┻"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := codec.Dump(tt.in)
			require.NoError(t, err)

			out, err := codec.Load(text)
			require.NoError(t, err)
			assert.Equal(t, tt.in, out)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	_, err := codec.Load(`{"foo":`)
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	assert.Equal(t, codec.NameJSON, codec.Get("").Name())
	assert.Equal(t, codec.NameJSON, codec.Get("json").Name())
	assert.Equal(t, codec.NameMsgpack, codec.Get("msgpack").Name())
	assert.Equal(t, codec.NameJSON, codec.Get("protobuf").Name())
}

type record struct {
	Hostname string   `json:"hostname" msgpack:"hostname"`
	PID      int      `json:"pid"      msgpack:"pid"`
	Queues   []string `json:"queues"   msgpack:"queues"`
}

func TestCodecs_Struct(t *testing.T) {
	in := record{Hostname: "box", PID: 42, Queues: []string{"critical", "default"}}

	for _, c := range []codec.Codec{codec.JSON{}, codec.Msgpack{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out record
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}
