// Package message defines the JSON-RPC 2.0 envelope lfsdesk speaks with its UI clients.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Version is the JSON-RPC protocol version.
const Version = "2.0"

// Request represents a JSON-RPC 2.0 request.
// If ID is nil, this is a notification (no response expected).
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification returns true if this request is a notification (no ID).
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IsError returns true if this response contains an error.
func (r *Response) IsError() bool {
	return r.Error != nil
}

// Notification is a server-to-client message with no ID. Events and deferred
// completions are both delivered this way.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ID is a JSON-RPC request id: a string or an integer.
type ID struct {
	str   string
	num   int64
	isStr bool
}

// StringID creates an ID from a string.
func StringID(s string) *ID {
	return &ID{str: s, isStr: true}
}

// NumberID creates an ID from an integer.
func NumberID(n int64) *ID {
	return &ID{num: n}
}

// IsString returns true if the ID is a string.
func (id *ID) IsString() bool {
	return id != nil && id.isStr
}

// IsNumber returns true if the ID is a number.
func (id *ID) IsNumber() bool {
	return id != nil && !id.isStr
}

// String returns the ID for logging.
func (id *ID) String() string {
	switch {
	case id == nil:
		return "<nil>"
	case id.isStr:
		return id.str
	default:
		return strconv.FormatInt(id.num, 10)
	}
}

// MarshalJSON implements json.Marshaler.
func (id *ID) MarshalJSON() ([]byte, error) {
	switch {
	case id == nil:
		return []byte("null"), nil
	case id.isStr:
		return json.Marshal(id.str)
	default:
		return json.Marshal(id.num)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Fractional numbers are truncated.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ID{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID{str: s, isStr: true}
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*id = ID{num: int64(f)}
		return nil
	}

	return fmt.Errorf("invalid ID type: %s", string(data))
}

// NewRequest creates a new JSON-RPC request.
func NewRequest(id *ID, method string, params interface{}) (*Request, error) {
	raw, err := marshalOptional(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	return &Request{JSONRPC: Version, ID: id, Method: method, Params: raw}, nil
}

// NewNotification creates a new JSON-RPC notification.
func NewNotification(method string, params interface{}) (*Notification, error) {
	raw, err := marshalOptional(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	return &Notification{JSONRPC: Version, Method: method, Params: raw}, nil
}

// NewSuccessResponse creates a successful JSON-RPC response.
func NewSuccessResponse(id *ID, result interface{}) (*Response, error) {
	raw, err := marshalOptional(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &Response{JSONRPC: Version, ID: id, Result: raw}, nil
}

// NewErrorResponse creates an error JSON-RPC response.
func NewErrorResponse(id *ID, err *Error) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: err}
}

// ParseRequest parses and validates a JSON-RPC request.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if req.JSONRPC != Version {
		return nil, fmt.Errorf("invalid jsonrpc version: %s", req.JSONRPC)
	}
	if req.Method == "" {
		return nil, errors.New("missing method")
	}
	return &req, nil
}

// ParseResponse parses a JSON-RPC response.
func ParseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	if resp.JSONRPC != Version {
		return nil, fmt.Errorf("invalid jsonrpc version: %s", resp.JSONRPC)
	}
	return &resp, nil
}

func marshalOptional(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
