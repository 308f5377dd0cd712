package codec

import "github.com/bytedance/sonic"

// std follows encoding/json semantics exactly: sorted map keys, HTML
// escaping, float64 numbers when decoding into interface values.
var std = sonic.ConfigStd

// JSON encodes and decodes standard JSON.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) { return std.Marshal(v) }

func (JSON) Unmarshal(data []byte, v any) error { return std.Unmarshal(data, v) }

func (JSON) Name() string { return NameJSON }

// Dump encodes v as JSON text.
func Dump(v any) (string, error) {
	return std.MarshalToString(v)
}

// Load decodes JSON text into its generic form: objects become
// map[string]any, arrays []any, numbers float64.
func Load(text string) (any, error) {
	var v any
	if err := std.UnmarshalFromString(text, &v); err != nil {
		return nil, err
	}
	return v, nil
}
