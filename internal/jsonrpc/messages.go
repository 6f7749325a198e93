package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ProtocolVersion is the supported JSON-RPC protocol version.
const ProtocolVersion = "2.0"

// Message kinds reported by AnyMessage.Type.
const (
	TypeRequest      = "request"
	TypeNotification = "notification"
	TypeResponse     = "response"
)

// Message is the raw JSON representation of a JSON-RPC message.
type Message []byte

// AnyMessage is a generic JSON-RPC message (request, notification, or response).
type AnyMessage struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method,omitempty"`
	Params         json.RawMessage `json:"params,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`

	// hasID records whether the id member was present at all, which is what
	// separates a request carrying a null id from a notification.
	hasID bool
}

// Request represents a JSON-RPC request (with an ID) or notification (without ID).
type Request struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	ID             *RequestID      `json:"id,omitempty"`
	Method         string          `json:"method"`
	Params         json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no identifier.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response represents a JSON-RPC response. The id member is always emitted;
// a nil ID encodes as null.
type Response struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	ID             *RequestID      `json:"id"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
}

// NewResultResponse builds a successful JSON-RPC response object.
func NewResultResponse(id *RequestID, result any) (*Response, error) {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Result:         resultBytes,
		ID:             id,
	}, nil
}

// NewErrorResponse builds an error JSON-RPC response with the given code.
func NewErrorResponse(id *RequestID, code ErrorCode, message string, data any) *Response {
	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

// NewErrorObjectResponse wraps an existing Error object in a response.
func NewErrorObjectResponse(id *RequestID, e *Error) *Response {
	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Error:          e,
		ID:             id,
	}
}

// Encode serializes a response into its wire form without a frame delimiter.
func Encode(res *Response) (Message, error) {
	if res == nil {
		return nil, errors.New("jsonrpc: nil response")
	}
	if res.JSONRPCVersion == "" {
		res.JSONRPCVersion = ProtocolVersion
	}
	b, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return b, nil
}

// Decode parses a single frame into a message and validates the envelope.
//
// On failure the returned error is an *Error with code ErrorCodeParseError or
// ErrorCodeInvalidRequest. The returned message is non-nil whenever the frame
// was an object, so callers can still recover the identifier (and tell
// notifications apart) when addressing the error response.
func Decode(frame []byte) (*AnyMessage, error) {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) > 0 && trimmed[0] != '{' && json.Valid(trimmed) {
		return nil, NewError(ErrorCodeInvalidRequest, "message must be a JSON object")
	}

	var m AnyMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		var invalid *Error
		if errors.As(err, &invalid) {
			return &m, invalid
		}
		return nil, NewError(ErrorCodeParseError, err.Error())
	}
	return &m, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for AnyMessage
// It enforces JSON-RPC 2.0 semantics and validates message structure
func (m *AnyMessage) UnmarshalJSON(data []byte) error {
	// Member names match exactly; "Id" or "JSONRPC" are unknown members.
	// Every member is captured raw so that a badly typed member never hides
	// the identifier from the error response.
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return NewError(ErrorCodeInvalidRequest, "message must be a JSON object")
		}
		return err
	}
	raw := struct {
		JSONRPCVersion, Method, Params, Result, Error, ID json.RawMessage
	}{
		JSONRPCVersion: members["jsonrpc"],
		Method:         members["method"],
		Params:         members["params"],
		Result:         members["result"],
		Error:          members["error"],
		ID:             members["id"],
	}

	if raw.ID != nil {
		m.hasID = true
		id := &RequestID{}
		if err := id.UnmarshalJSON(raw.ID); err != nil {
			return NewError(ErrorCodeInvalidRequest, err.Error())
		}
		m.ID = id
	}

	if len(raw.Method) > 0 && !bytes.Equal(raw.Method, nullLiteral) {
		if err := json.Unmarshal(raw.Method, &m.Method); err != nil {
			return NewError(ErrorCodeInvalidRequest, "method must be a string")
		}
	}

	// Validate JSON-RPC version
	var version string
	if len(raw.JSONRPCVersion) > 0 {
		_ = json.Unmarshal(raw.JSONRPCVersion, &version)
	}
	if version != ProtocolVersion {
		return NewError(ErrorCodeInvalidRequest, fmt.Sprintf("JSON-RPC version must be %q", ProtocolVersion))
	}
	m.JSONRPCVersion = version

	// Determine message type and validate structure
	hasMethod := m.Method != ""
	hasResult := len(raw.Result) > 0
	hasError := len(raw.Error) > 0

	if hasMethod {
		// This should be a request
		if hasResult || hasError {
			return NewError(ErrorCodeInvalidRequest, "request message cannot have result or error fields")
		}
	} else {
		// This should be a response
		if hasResult && hasError {
			return NewError(ErrorCodeInvalidRequest, "response message cannot have both result and error fields")
		}
		if !hasResult && !hasError {
			return NewError(ErrorCodeInvalidRequest, "missing method")
		}
	}

	if hasError {
		var e Error
		if err := json.Unmarshal(raw.Error, &e); err != nil {
			return NewError(ErrorCodeInvalidRequest, "malformed error object")
		}
		m.Error = &e
	}

	m.Params = raw.Params
	m.Result = raw.Result

	return nil
}

// HasID reports whether the id member was present in the decoded frame.
func (m *AnyMessage) HasID() bool {
	return m.hasID
}

// Type returns "request" if the message is a request, "response" if it's a response, or "notification" if it's a notification
func (m *AnyMessage) Type() string {
	if m.Method != "" {
		if !m.hasID && m.ID == nil {
			return TypeNotification
		}
		return TypeRequest
	}
	return TypeResponse
}

// AsRequest returns the message as a Request if it is a request message, otherwise nil
func (m *AnyMessage) AsRequest() *Request {
	if m.Method == "" {
		return nil
	}

	id := m.ID
	if id == nil && m.hasID {
		id = &RequestID{raw: nullLiteral}
	}

	return &Request{
		JSONRPCVersion: m.JSONRPCVersion,
		Method:         m.Method,
		Params:         m.Params,
		ID:             id,
	}
}

// AsResponse returns the message as a Response if it is a response message, otherwise nil
func (m *AnyMessage) AsResponse() *Response {
	if m.Method != "" {
		return nil
	}

	return &Response{
		JSONRPCVersion: m.JSONRPCVersion,
		Result:         m.Result,
		Error:          m.Error,
		ID:             m.ID,
	}
}
