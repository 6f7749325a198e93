package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

var nullLiteral = []byte("null")

// RequestID represents a JSON-RPC ID that can be either a string or a number.
// The original JSON token is retained so that responses echo the identifier
// exactly as the peer sent it (1, 1.0 and "1" stay distinct).
type RequestID struct {
	raw json.RawMessage
}

// NewRequestID creates a new RequestID from a string or number. Any other
// value produces a null identifier.
func NewRequestID(value interface{}) *RequestID {
	switch v := value.(type) {
	case string, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		b, err := json.Marshal(v)
		if err != nil {
			return &RequestID{raw: nullLiteral}
		}
		return &RequestID{raw: b}
	default:
		return &RequestID{raw: nullLiteral}
	}
}

// String returns the string representation of the ID. String identifiers are
// returned unquoted; numbers are returned as written on the wire.
func (id *RequestID) String() string {
	if id.IsNil() {
		return ""
	}
	if id.raw[0] == '"' {
		var s string
		if err := json.Unmarshal(id.raw, &s); err == nil {
			return s
		}
	}
	return string(id.raw)
}

// Value returns the underlying value: a string, an int64 for integral numbers,
// a float64 for other numbers, or nil.
func (id *RequestID) Value() interface{} {
	if id.IsNil() {
		return nil
	}
	if id.raw[0] == '"' {
		return id.String()
	}
	if n, err := strconv.ParseInt(string(id.raw), 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(string(id.raw), 64); err == nil {
		return f
	}
	return nil
}

// IsNil returns true if the ID is nil/empty or the JSON null literal.
func (id *RequestID) IsNil() bool {
	if id == nil {
		return true
	}
	return len(id.raw) == 0 || bytes.Equal(id.raw, nullLiteral)
}

// Raw returns a copy of the identifier's JSON token.
func (id *RequestID) Raw() json.RawMessage {
	if id.IsNil() {
		return json.RawMessage(nullLiteral)
	}
	return append(json.RawMessage(nil), id.raw...)
}

// MarshalJSON implements json.Marshaler. A nil identifier encodes as null so
// error responses for unidentifiable requests remain well-formed.
func (id *RequestID) MarshalJSON() ([]byte, error) {
	if id.IsNil() {
		return nullLiteral, nil
	}
	return id.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler. Only strings, numbers and null
// are accepted.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("JSON-RPC ID must be a string or number, got empty input")
	}

	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("JSON-RPC ID must be a string or number, got: %s", string(data))
		}
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("JSON-RPC ID must be a string or number, got: %s", string(data))
		}
	case bytes.Equal(data, nullLiteral):
	default:
		return fmt.Errorf("JSON-RPC ID must be a string or number, got: %s", string(data))
	}

	id.raw = append(id.raw[:0], data...)
	return nil
}
