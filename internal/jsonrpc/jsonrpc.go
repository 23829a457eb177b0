// ABOUTME: JSON-RPC 2.0 wire types and HTTP response writers
// ABOUTME: Shared by the MCP dispatcher and the auth and rate limit middleware

package jsonrpc

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// Version is the only accepted jsonrpc member value.
const Version = "2.0"

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// Standard JSON-RPC error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Implementation-defined server error codes
const (
	CodeRateLimited  = -32000
	CodeUnauthorized = -32001
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a JSON-RPC 2.0 response. A nil ID encodes as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds an Error with optional data.
func NewError(code int, message string, data any) *Error {
	return &Error{Code: code, Message: message, Data: data}
}

// HasID reports whether the request carried a non-null id.
func (r *Request) HasID() bool {
	return len(r.ID) > 0 && string(r.ID) != "null"
}

// WriteResult sends a successful JSON-RPC response with HTTP 200.
func WriteResult(w http.ResponseWriter, id json.RawMessage, result any) error {
	return write(w, http.StatusOK, Response{
		JSONRPC: Version,
		ID:      id,
		Result:  result,
	})
}

// WriteError sends a JSON-RPC error response with the given HTTP status.
func WriteError(w http.ResponseWriter, status int, id json.RawMessage, rpcErr *Error) error {
	return write(w, status, Response{
		JSONRPC: Version,
		ID:      id,
		Error:   rpcErr,
	})
}

func write(w http.ResponseWriter, status int, resp Response) error {
	if len(resp.ID) == 0 {
		resp.ID = nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(resp)
}

// PeekID extracts the request id from a JSON body without consuming it.
// The body is restored so later handlers can read it again. Returns nil when
// the body is absent, unreadable or carries no id.
func PeekID(r *http.Request) json.RawMessage {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return nil
	}
	if string(probe.ID) == "null" {
		return nil
	}
	return probe.ID
}
