package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// A client session runs initialize, then the notifications/initialized
// notification, then tools/list and any number of tools/call requests, e.g.
//
//	{"method":"tools/call","params":{"name":"podds_predict","arguments":{"home":"Arsenal","away":"Chelsea"}},"jsonrpc":"2.0","id":2}
//
// Tool results come back as a content list holding the JSON output as text.

// MethodType defines the possible JSON-RPC method types
type MethodType string

// Method types for JSON-RPC requests
const (
	MethodInitialize  MethodType = "initialize"
	MethodInitialized MethodType = "initialized"
	MethodPing        MethodType = "ping"
	MethodToolsList   MethodType = "tools/list"
	MethodToolsCall   MethodType = "tools/call"
	MethodShutdown    MethodType = "shutdown"

	// Notifications share this prefix and never get a response
	NotificationPrefix = "notifications/"
)

// DefaultProtocolVersion is answered when the client does not ask for one.
const DefaultProtocolVersion = "2024-11-05"

// Version is the JSON-RPC protocol version
const JsonRpcVersion = "2.0"

// Request represents a JSON-RPC 2.0 request object
type JsonRpcRequest struct {
	// A String specifying the version of the JSON-RPC protocol. MUST be exactly "2.0".
	JsonRPC string `json:"jsonrpc"`

	// A String containing the name of the method to be invoked.
	Method string `json:"method"`

	// A Structured value that holds the parameter values to be used during the invocation of the method.
	// This member MAY be omitted.
	Params json.RawMessage `json:"params,omitempty"`

	// An identifier established by the Client that MUST contain a String, Number, or NULL value if included.
	// If it is not included it is assumed to be a notification.
	ID any `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response object
type JsonRpcResponse struct {
	// A String specifying the version of the JSON-RPC protocol. MUST be exactly "2.0".
	JsonRPC string `json:"jsonrpc"`

	// This member is REQUIRED on success.
	// This member MUST NOT exist if there was an error invoking the method.
	Result json.RawMessage `json:"result,omitempty"`

	// This member is REQUIRED on error.
	// This member MUST NOT exist if there was no error triggered during invocation.
	Error *JsonRpcError `json:"error,omitempty"`

	// This member is REQUIRED.
	// It MUST be the same as the value of the id member in the Request Object.
	// If there was an error in detecting the id in the Request object (e.g. Parse error/Invalid Request), it MUST be Null.
	ID any `json:"id"`
}

// Error represents a JSON-RPC 2.0 error object
type JsonRpcError struct {
	// A Number that indicates the error type that occurred.
	Code int `json:"code"`

	// A String providing a short description of the error.
	Message string `json:"message"`

	// A Primitive or Structured value that contains additional information about the error.
	// This may be omitted.
	Data any `json:"data,omitempty"`
}

type ToolProperty struct {
	Type        string        `json:"type"`
	Description string        `json:"description,omitempty"`
	Enum        []string      `json:"enum,omitempty"`
	Items       *ToolProperty `json:"items,omitempty"`
}

type InputSchema struct {
	Type                 string                  `json:"type"`
	Properties           map[string]ToolProperty `json:"properties,omitempty"`
	Required             []string                `json:"required"`
	AdditionalProperties bool                    `json:"additionalProperties"`
}

// Tool describes one callable tool in a tools/list response
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// ToolsResponse represents the response to a tools discovery request
type ToolsResponse struct {
	Tools []Tool `json:"tools"`
}

// Content is one block of a tool result
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolCallResult is the result of tools/call. Tool failures are reported
// in band with IsError set rather than as JSON-RPC errors.
type ToolCallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// NewTextToolResult wraps text in a single content block
func NewTextToolResult(text string, isError bool) *ToolCallResult {
	return &ToolCallResult{Content: []Content{{Type: "text", Text: text}}, IsError: isError}
}

// ServerInfo identifies the server in the initialize response
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the response to initialize
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
}

// Standard error codes defined by the JSON-RPC 2.0 specification
const (
	ErrParse          = -32700 // not valid JSON
	ErrInvalidRequest = -32600 // valid JSON but not a request envelope
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603
)

func (e *JsonRpcError) Error() string {
	return fmt.Sprintf("jsonrpc error: code=%d message=%s", e.Code, e.Message)
}

// NewJsonRpcRequest creates a JSON-RPC 2.0 request. A nil id makes it a notification.
func NewJsonRpcRequest(method string, params any, id any) (*JsonRpcRequest, error) {
	var paramsJSON json.RawMessage
	if params != nil {
		var err error
		if paramsJSON, err = json.Marshal(params); err != nil {
			return nil, err
		}
	}
	return &JsonRpcRequest{JsonRPC: JsonRpcVersion, Method: method, Params: paramsJSON, ID: id}, nil
}

// NewJsonRpcResponse creates a success response carrying result as JSON.
func NewJsonRpcResponse(result any, id any) (*JsonRpcResponse, error) {
	var resultJSON json.RawMessage
	if result != nil {
		var err error
		if resultJSON, err = json.Marshal(result); err != nil {
			return nil, err
		}
	}
	return &JsonRpcResponse{JsonRPC: JsonRpcVersion, Result: resultJSON, ID: id}, nil
}

func NewJsonRpcErrorResponse(code int, message string, data any, id any) *JsonRpcResponse {
	return &JsonRpcResponse{
		JsonRPC: JsonRpcVersion,
		Error:   &JsonRpcError{Code: code, Message: message, Data: data},
		ID:      id,
	}
}

// ParseJsonRpcRequest decodes one request. Failures are *JsonRpcError:
// ErrParse for malformed JSON, ErrInvalidRequest for a JSON value that is not
// a 2.0 request (wrong version, missing method, not an object).
func ParseJsonRpcRequest(data []byte) (*JsonRpcRequest, error) {
	var req JsonRpcRequest
	if err := json.Unmarshal(data, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &JsonRpcError{Code: ErrInvalidRequest, Message: "invalid request: " + err.Error()}
		}
		return nil, &JsonRpcError{Code: ErrParse, Message: "parse error: " + err.Error()}
	}
	if req.JsonRPC != JsonRpcVersion {
		return nil, &JsonRpcError{Code: ErrInvalidRequest, Message: fmt.Sprintf("invalid request: jsonrpc must be %q, got %q", JsonRpcVersion, req.JsonRPC)}
	}
	if req.Method == "" {
		return nil, &JsonRpcError{Code: ErrInvalidRequest, Message: "invalid request: method is missing"}
	}
	return &req, nil
}
