package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/protocol"
	"github.com/richard-senior/podds/pkg/tools"
	"github.com/richard-senior/podds/pkg/transport"
)

// Server represents an MCP server
type Server struct {
	transport transport.Transport
	info      protocol.ServerInfo

	mu       sync.RWMutex
	handlers map[string]tools.HandlerFunc
	tools    []protocol.Tool
}

// NewServer creates a server with no tools registered.
func NewServer(t transport.Transport, name, version string) *Server {
	return &Server{
		transport: t,
		info:      protocol.ServerInfo{Name: name, Version: version},
		handlers:  make(map[string]tools.HandlerFunc),
	}
}

// RegisterTool registers a tool with the server
func (s *Server) RegisterTool(tool protocol.Tool, handler tools.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.handlers[tool.Name]; !dup {
		s.tools = append(s.tools, tool)
	}
	s.handlers[tool.Name] = handler
	logger.Info("Registered tool:", tool.Name)
}

// RegisterTools registers every tool in regs
func (s *Server) RegisterTools(regs []tools.Registration) {
	for _, r := range regs {
		s.RegisterTool(r.Tool, r.Handler)
	}
}

// GetTools returns the list of registered tools
func (s *Server) GetTools() []protocol.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]protocol.Tool(nil), s.tools...)
}

// Start processes requests until the transport closes or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	logger.Info("Starting MCP server", s.info.Name, s.info.Version)
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.ProcessRequests(ctx)
	}()
	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("Server stopping:", ctx.Err())
		return nil
	}
}

// ProcessRequests continuously processes incoming requests. A clean EOF on
// the transport ends the loop without error.
func (s *Server) ProcessRequests(ctx context.Context) error {
	for {
		req, err := s.transport.ReadRequest()
		if err != nil {
			var rpcErr *protocol.JsonRpcError
			if errors.As(err, &rpcErr) {
				if werr := s.transport.WriteResponse(protocol.NewJsonRpcErrorResponse(rpcErr.Code, rpcErr.Message, nil, nil)); werr != nil {
					return werr
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		// nil means no response is required
		resp := s.HandleRequest(ctx, req)
		if resp == nil {
			continue
		}
		if err := s.transport.WriteResponse(resp); err != nil {
			return err
		}
	}
}

// HandleRequest processes a request and returns a response, or nil for notifications.
func (s *Server) HandleRequest(ctx context.Context, req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse {
	logger.Info(">> ", req.Method)

	if strings.HasPrefix(req.Method, protocol.NotificationPrefix) || req.Method == string(protocol.MethodInitialized) {
		logger.Debug("Received notification:", req.Method)
		return nil
	}

	var (
		result any
		err    error
	)
	switch protocol.MethodType(req.Method) {
	case protocol.MethodInitialize:
		result = s.handleInitialize(req.Params)
	case protocol.MethodPing, protocol.MethodShutdown:
		result = struct{}{}
	case protocol.MethodToolsList:
		result = protocol.ToolsResponse{Tools: s.GetTools()}
	case protocol.MethodToolsCall:
		result, err = s.handleToolsCall(ctx, req.Params)
	default:
		if req.ID == nil {
			return nil
		}
		return protocol.NewJsonRpcErrorResponse(protocol.ErrMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil, req.ID)
	}
	if err != nil {
		var rpcErr *protocol.JsonRpcError
		if errors.As(err, &rpcErr) {
			return protocol.NewJsonRpcErrorResponse(rpcErr.Code, rpcErr.Message, rpcErr.Data, req.ID)
		}
		return protocol.NewJsonRpcErrorResponse(protocol.ErrInternal, err.Error(), nil, req.ID)
	}

	resp, err := protocol.NewJsonRpcResponse(result, req.ID)
	if err != nil {
		return protocol.NewJsonRpcErrorResponse(protocol.ErrInternal, "Failed to marshal result: "+err.Error(), nil, req.ID)
	}
	return resp
}

// handleInitialize echoes the client's protocol version and advertises tools
func (s *Server) handleInitialize(params json.RawMessage) protocol.InitializeResult {
	version := protocol.DefaultProtocolVersion
	var p struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			logger.Warn("Failed to parse initialize params:", err)
		} else if p.ProtocolVersion != "" {
			version = p.ProtocolVersion
		}
	}
	logger.Info("Initialize with protocol version", version, len(s.GetTools()), "tools")

	capabilities := map[string]any{}
	if len(s.GetTools()) > 0 {
		capabilities["tools"] = map[string]any{"listChanged": false}
	}
	return protocol.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    capabilities,
		ServerInfo:      s.info,
	}
}

// handleToolsCall runs a tool. Unknown tools and malformed params are
// protocol errors; failures inside the tool are reported in the result with
// isError set so the model can read them.
func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (any, error) {
	var call struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: "invalid tools/call parameters: " + err.Error()}
	}
	logger.Info("Tool call requested for:", call.Name)

	s.mu.RLock()
	handler := s.handlers[call.Name]
	s.mu.RUnlock()
	if handler == nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrMethodNotFound, Message: "tool not found: " + call.Name}
	}
	if call.Arguments == nil {
		call.Arguments = map[string]any{}
	}

	out, err := handler(ctx, call.Arguments)
	if err != nil {
		logger.Warn("Tool execution failed", call.Name, err)
		return protocol.NewTextToolResult(err.Error(), true), nil
	}
	text, err := json.MarshalIndent(out, "", " ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool output: %w", err)
	}
	logger.Debug("Tool output", call.Name, len(text))
	return protocol.NewTextToolResult(string(text), false), nil
}
