package message

import "encoding/json"

// Standard JSON-RPC 2.0 error codes.
const (
	// ParseError indicates invalid JSON was received.
	ParseError = -32700

	// InvalidRequest indicates the JSON is not a valid Request object.
	InvalidRequest = -32600

	// MethodNotFound indicates the method does not exist.
	MethodNotFound = -32601

	// InvalidParams indicates invalid method parameters.
	InvalidParams = -32602

	// InternalError indicates an internal JSON-RPC error.
	InternalError = -32603

	// ServerError codes are reserved for implementation-defined server-errors.
	// Range: -32000 to -32099
)

// lfsdesk error codes (-32050 to -32059).
const (
	LFSOperationFailed = -32050
	StaleRegistry      = -32051
	NoRepository       = -32052
	HistoryDisabled    = -32053
)

// Error represents a JSON-RPC 2.0 error.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// NewError creates a new JSON-RPC error.
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithData creates a new JSON-RPC error with additional data.
func NewErrorWithData(code int, message string, data interface{}) *Error {
	err := &Error{
		Code:    code,
		Message: message,
	}

	if data != nil {
		if d, e := json.Marshal(data); e == nil {
			err.Data = d
		}
	}

	return err
}

// Standard error constructors.

// ErrParseError creates a parse error.
func ErrParseError(message string) *Error {
	if message == "" {
		message = "Parse error"
	}
	return NewError(ParseError, message)
}

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *Error {
	if message == "" {
		message = "Invalid Request"
	}
	return NewError(InvalidRequest, message)
}

// ErrMethodNotFound creates a method not found error.
func ErrMethodNotFound(method string) *Error {
	return NewError(MethodNotFound, "Method not found: "+method)
}

// ErrInvalidParams creates an invalid params error.
func ErrInvalidParams(message string) *Error {
	if message == "" {
		message = "Invalid params"
	}
	return NewError(InvalidParams, message)
}

// ErrInternalError creates an internal error.
func ErrInternalError(message string) *Error {
	if message == "" {
		message = "Internal error"
	}
	return NewError(InternalError, message)
}

// lfsdesk error constructors.

// ErrLFSOperationFailed reports a failed git lfs invocation.
func ErrLFSOperationFailed(operation, message string) *Error {
	return NewErrorWithData(LFSOperationFailed, "LFS operation failed: "+message, map[string]string{
		"operation": operation,
	})
}

// ErrStaleRegistry reports a lock request for a path the registry already holds.
func ErrStaleRegistry(path, owner string, id uint64) *Error {
	return NewErrorWithData(StaleRegistry, "Path is already locked", map[string]interface{}{
		"path":  path,
		"owner": owner,
		"id":    id,
	})
}

// ErrNoRepository reports a lock operation with no repository selected.
func ErrNoRepository() *Error {
	return NewError(NoRepository, "No repository selected")
}

// ErrHistoryDisabled reports a history query while the journal is off.
func ErrHistoryDisabled() *Error {
	return NewError(HistoryDisabled, "Lock history is disabled")
}

// ErrorCodeName returns a human-readable name for an error code.
func ErrorCodeName(code int) string {
	switch code {
	case ParseError:
		return "ParseError"
	case InvalidRequest:
		return "InvalidRequest"
	case MethodNotFound:
		return "MethodNotFound"
	case InvalidParams:
		return "InvalidParams"
	case InternalError:
		return "InternalError"
	case LFSOperationFailed:
		return "LFSOperationFailed"
	case StaleRegistry:
		return "StaleRegistry"
	case NoRepository:
		return "NoRepository"
	case HistoryDisabled:
		return "HistoryDisabled"
	default:
		return "UnknownError"
	}
}
