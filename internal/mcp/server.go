// ABOUTME: MCP JSON-RPC dispatcher exposing the Pipedrive tool catalog over POST /mcp
// ABOUTME: Handles initialize, tools/*, prompts/* and notifications for authenticated principals

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/2389/pipedrive-gateway/internal/auth"
	"github.com/2389/pipedrive-gateway/internal/jsonrpc"
	"github.com/2389/pipedrive-gateway/internal/metrics"
	"github.com/2389/pipedrive-gateway/internal/optimize"
	"github.com/2389/pipedrive-gateway/internal/session"
	"github.com/2389/pipedrive-gateway/internal/store"
	"github.com/2389/pipedrive-gateway/internal/tools"
)

// Server identity reported by initialize.
const (
	ServerName    = "pipedrive-mcp-server"
	ServerVersion = "1.0.0"
)

// DefaultProtocolVersion is returned when the client asks for a version we do not know.
const DefaultProtocolVersion = "2025-06-18"

var supportedProtocolVersions = []string{"2024-11-05", "2025-03-26", "2025-06-18"}

// UpstreamFactory builds the Pipedrive client used for one principal.
type UpstreamFactory func(p *store.Principal) tools.Upstream

// Config holds the dispatcher's collaborators.
type Config struct {
	Catalog  *tools.Catalog
	Sessions *session.Registry
	Upstream UpstreamFactory
	Budget   optimize.Budget

	// RequireInitialize rejects tools/* and prompts/* on sessions that never
	// completed initialize.
	RequireInitialize bool

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Server dispatches MCP requests.
type Server struct {
	catalog           *tools.Catalog
	sessions          *session.Registry
	upstream          UpstreamFactory
	budget            optimize.Budget
	requireInitialize bool
	metrics           *metrics.Metrics
	logger            *slog.Logger
}

// NewServer creates a dispatcher.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("mcp: catalog is required")
	}
	if cfg.Upstream == nil {
		return nil, errors.New("mcp: upstream factory is required")
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		catalog:           cfg.Catalog,
		sessions:          cfg.Sessions,
		upstream:          cfg.Upstream,
		budget:            cfg.Budget,
		requireInitialize: cfg.RequireInitialize,
		metrics:           cfg.Metrics,
		logger:            cfg.Logger,
	}, nil
}

// ToolCount returns the number of advertised tools.
func (s *Server) ToolCount() int { return s.catalog.Len() }

// PromptCount returns the number of advertised prompts.
func (s *Server) PromptCount() int { return len(prompts) }

// Content is one MCP content block.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// InitializeParams is the params object of initialize.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities,omitempty"`
	ClientInfo      *ClientInfo    `json:"clientInfo,omitempty"`
}

// ClientInfo identifies the connecting client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the result of initialize.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
}

// Capabilities advertises the tools and prompts features.
type Capabilities struct {
	Tools   struct{} `json:"tools"`
	Prompts struct{} `json:"prompts"`
}

// ServerInfo identifies this server.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolsListResult is the result for tools/list.
type ToolsListResult struct {
	Tools []tools.Descriptor `json:"tools"`
}

// ToolCallParams is the params object of tools/call.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolCallResult is the result for tools/call.
type ToolCallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError"`
}

// PromptsListResult is the result for prompts/list.
type PromptsListResult struct {
	Prompts []Prompt `json:"prompts"`
}

// PromptGetParams is the params object of prompts/get.
type PromptGetParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ServeHTTP handles POST /mcp. The principal must already be on the context.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.sendError(w, http.StatusMethodNotAllowed, nil, "", jsonrpc.NewError(jsonrpc.CodeInvalidRequest, "Invalid Request", "Only POST is supported"))
		return
	}

	principal := auth.FromContext(r.Context())
	if principal == nil {
		s.sendError(w, http.StatusUnauthorized, nil, "", jsonrpc.NewError(jsonrpc.CodeUnauthorized, "Unauthorized", "Missing principal"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, jsonrpc.MaxRequestBodySize+1))
	if err != nil {
		s.sendError(w, http.StatusBadRequest, nil, "", jsonrpc.NewError(jsonrpc.CodeParseError, "Parse error", "Failed to read request body"))
		return
	}
	if len(body) > jsonrpc.MaxRequestBodySize {
		s.sendError(w, http.StatusBadRequest, nil, "", jsonrpc.NewError(jsonrpc.CodeParseError, "Parse error", "Request body too large"))
		return
	}

	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, nil, "", jsonrpc.NewError(jsonrpc.CodeParseError, "Parse error", "Invalid JSON"))
		return
	}
	if req.JSONRPC != jsonrpc.Version {
		s.sendError(w, http.StatusBadRequest, req.ID, req.Method, jsonrpc.NewError(jsonrpc.CodeInvalidRequest, "Invalid Request",
			`Missing or invalid jsonrpc version. Must be "2.0"`))
		return
	}
	if req.Method == "" {
		s.sendError(w, http.StatusBadRequest, req.ID, "", jsonrpc.NewError(jsonrpc.CodeInvalidRequest, "Invalid Request",
			`Missing required "method" field`))
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("panic while handling MCP request",
				"method", req.Method,
				"principal_id", principal.ID,
				"panic", rec,
			)
			s.sendError(w, http.StatusInternalServerError, req.ID, req.Method,
				jsonrpc.NewError(jsonrpc.CodeInternalError, "Internal error", fmt.Sprint(rec)))
		}
	}()

	sessionID := session.ID(r.Header.Get(session.HeaderName), req.ID)

	if s.requireInitialize && needsSession(req.Method) && !s.sessions.IsInitialized(principal.ID, sessionID) {
		s.sendError(w, http.StatusBadRequest, req.ID, req.Method, jsonrpc.NewError(jsonrpc.CodeInvalidRequest, "Invalid Request",
			"Session not initialized. Call initialize first"))
		return
	}

	switch req.Method {
	case "initialize":
		s.handleInitialize(w, &req, principal, sessionID)
	case "notifications/initialized":
		s.sendResult(w, &req, struct{}{})
	case "tools/list":
		s.sendResult(w, &req, ToolsListResult{Tools: s.catalog.Descriptors()})
	case "tools/call":
		s.handleToolsCall(w, r, &req, principal)
	case "prompts/list":
		s.sendResult(w, &req, PromptsListResult{Prompts: prompts})
	case "prompts/get":
		s.handlePromptsGet(w, &req)
	default:
		s.sendError(w, http.StatusNotFound, req.ID, req.Method, jsonrpc.NewError(jsonrpc.CodeMethodNotFound, "Method not found",
			fmt.Sprintf("Method %q not supported", req.Method)))
	}
}

// methodLabel bounds the method label to the methods the server dispatches.
func methodLabel(method string) string {
	switch method {
	case "initialize", "notifications/initialized", "tools/list", "tools/call", "prompts/list", "prompts/get", "invalid":
		return method
	}
	return "unknown"
}

// toolLabel is the tool name for catalog tools and "unknown" otherwise.
func (s *Server) toolLabel(name string) string {
	if s.catalog.Has(name) {
		return name
	}
	return "unknown"
}

func needsSession(method string) bool {
	switch method {
	case "tools/list", "tools/call", "prompts/list", "prompts/get":
		return true
	}
	return false
}

func (s *Server) handleInitialize(w http.ResponseWriter, req *jsonrpc.Request, principal *store.Principal, sessionID string) {
	var params InitializeParams
	if len(req.Params) > 0 {
		_ = json.Unmarshal(req.Params, &params)
	}

	version := DefaultProtocolVersion
	if slices.Contains(supportedProtocolVersions, params.ProtocolVersion) {
		version = params.ProtocolVersion
	}

	s.sessions.MarkInitialized(principal.ID, sessionID)
	w.Header().Set(session.HeaderName, sessionID)

	attrs := []any{"principal_id", principal.ID, "session_id", sessionID, "protocol_version", version}
	if params.ClientInfo != nil {
		attrs = append(attrs, "client", params.ClientInfo.Name, "client_version", params.ClientInfo.Version)
	}
	s.logger.Info("MCP session initialized", attrs...)

	s.sendResult(w, req, InitializeResult{
		ProtocolVersion: version,
		ServerInfo:      ServerInfo{Name: ServerName, Version: ServerVersion},
	})
}

func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request, req *jsonrpc.Request, principal *store.Principal) {
	var params ToolCallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendError(w, http.StatusBadRequest, req.ID, req.Method, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "Invalid params",
				"Invalid params: "+err.Error()))
			return
		}
	}
	if params.Name == "" {
		s.sendError(w, http.StatusBadRequest, req.ID, req.Method, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "Invalid params",
			`Missing required "name" parameter`))
		return
	}

	// Upstream work finishes even if the client goes away mid-call.
	ctx := context.WithoutCancel(r.Context())

	res, err := s.catalog.Call(ctx, params.Name, s.upstream(principal), params.Arguments)
	if err != nil {
		var pe *tools.ParamError
		switch {
		case errors.Is(err, tools.ErrUnknownTool):
			s.metrics.ToolCall("unknown", "unknown")
			s.sendError(w, http.StatusNotFound, req.ID, req.Method, jsonrpc.NewError(jsonrpc.CodeMethodNotFound, "Method not found",
				fmt.Sprintf("Tool %q not found", params.Name)))
		case errors.As(err, &pe):
			s.metrics.ToolCall(s.toolLabel(params.Name), "invalid_params")
			s.sendError(w, http.StatusBadRequest, req.ID, req.Method, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "Invalid params",
				pe.Error()))
		default:
			s.metrics.ToolCall(s.toolLabel(params.Name), "error")
			s.logger.Error("tool execution failed",
				"tool", params.Name,
				"principal_id", principal.ID,
				"error", err,
			)
			s.sendResult(w, req, ToolCallResult{
				Content: []Content{{Type: "text", Text: fmt.Sprintf("Error executing tool %q: %s", params.Name, err.Error())}},
				IsError: true,
			})
		}
		return
	}

	text, err := json.MarshalIndent(res.Value, "", "  ")
	if err != nil {
		s.metrics.ToolCall(s.toolLabel(params.Name), "error")
		s.sendResult(w, req, ToolCallResult{
			Content: []Content{{Type: "text", Text: fmt.Sprintf("Error executing tool %q: %s", params.Name, err.Error())}},
			IsError: true,
		})
		return
	}

	if check := s.budget.Check(string(text)); check.ExceedsLimit {
		s.metrics.OversizedResponse(s.toolLabel(params.Name))
		s.logger.Warn("tool response exceeds token budget",
			"tool", params.Name,
			"principal_id", principal.ID,
			"estimated_tokens", check.EstimatedTokens,
		)
	}

	outcome := "ok"
	if res.IsError {
		outcome = "upstream_error"
	}
	s.metrics.ToolCall(s.toolLabel(params.Name), outcome)
	s.logger.Debug("tool call completed",
		"tool", params.Name,
		"principal_id", principal.ID,
		"is_error", res.IsError,
	)

	s.sendResult(w, req, ToolCallResult{
		Content: []Content{{Type: "text", Text: string(text)}},
		IsError: res.IsError,
	})
}

func (s *Server) handlePromptsGet(w http.ResponseWriter, req *jsonrpc.Request) {
	var params PromptGetParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendError(w, http.StatusBadRequest, req.ID, req.Method, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "Invalid params",
				"Invalid params: "+err.Error()))
			return
		}
	}
	if params.Name == "" {
		s.sendError(w, http.StatusBadRequest, req.ID, req.Method, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "Invalid params",
			`Missing required "name" parameter`))
		return
	}

	p, ok := findPrompt(params.Name)
	if !ok {
		s.sendError(w, http.StatusNotFound, req.ID, req.Method, jsonrpc.NewError(jsonrpc.CodeMethodNotFound, "Prompt not found",
			fmt.Sprintf("Prompt %q not found", params.Name)))
		return
	}

	s.sendResult(w, req, GetPromptResult{
		Messages: []PromptMessage{{
			Role:    "user",
			Content: Content{Type: "text", Text: p.render(params.Arguments)},
		}},
	})
}

func (s *Server) sendResult(w http.ResponseWriter, req *jsonrpc.Request, result any) {
	s.metrics.RPCRequest(methodLabel(req.Method), 0)
	if err := jsonrpc.WriteResult(w, req.ID, result); err != nil {
		s.logger.Warn("failed to encode MCP response", "method", req.Method, "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, id json.RawMessage, method string, rpcErr *jsonrpc.Error) {
	if method == "" {
		method = "invalid"
	}
	s.metrics.RPCRequest(methodLabel(method), rpcErr.Code)
	if err := jsonrpc.WriteError(w, status, id, rpcErr); err != nil {
		s.logger.Warn("failed to encode MCP error response", "method", method, "error", err)
	}
}
