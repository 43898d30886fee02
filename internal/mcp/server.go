package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/periospot/content-cloud/internal/audit"
	"github.com/periospot/content-cloud/internal/logger"
)

// AuditLogger records tool invocations after they complete. Implementations
// must never let a write failure escape to the caller.
type AuditLogger interface {
	Log(ctx context.Context, entry audit.Entry)
}

// Server handles MCP protocol requests
type Server struct {
	registry *Registry
	auditLog AuditLogger
	log      logger.Logger
}

// NewServer creates a new MCP server over a populated registry. auditLog may
// be nil when auditing is disabled.
func NewServer(registry *Registry, auditLog AuditLogger, log logger.Logger) *Server {
	return &Server{
		registry: registry,
		auditLog: auditLog,
		log:      log,
	}
}

// HandleRequest processes one MCP request and returns zero or one response.
// Returns nil for notifications (requests without ID) - they don't require
// responses, even when the method is unknown.
func (s *Server) HandleRequest(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != "2.0" {
		return s.errorResponse(req.ID, InvalidRequest, "Request is not JSON-RPC 2.0")
	}

	// Notifications never get a response, whatever the method.
	if req.IsNotification() {
		return nil
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req.ID)
	case "tools/list":
		return s.handleToolsList(req.ID)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return s.successResponse(req.ID, map[string]any{})
	}

	return s.errorResponse(req.ID, MethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
}

func (s *Server) handleInitialize(id any) *Response {
	return s.successResponse(id, map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    ServerName,
			"version": ServerVersion,
		},
	})
}

// handleToolsList builds the manifest list fresh from the registry on every
// call. The registry is static but the list is cheap to recompute.
func (s *Server) handleToolsList(id any) *Response {
	return s.successResponse(id, map[string]any{
		"tools": s.registry.Tools(),
	})
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, InvalidParams, "Invalid parameters: "+err.Error())
	}

	if params.Name == "" {
		return s.errorResponse(req.ID, InvalidParams, "Tool name is required")
	}

	handler, ok := s.registry.Lookup(params.Name)
	if !ok {
		return s.errorResponse(req.ID, InvalidParams,
			fmt.Sprintf("Unknown tool %q. Available tools: %s", params.Name, s.registry.Names()))
	}

	arguments := params.Arguments
	if len(arguments) == 0 {
		arguments = json.RawMessage(`{}`)
	}

	start := time.Now()
	result, callErr := handler(ctx, arguments)
	duration := time.Since(start)

	envelope := s.buildEnvelope(result, callErr)
	s.recordAudit(ctx, params.Name, arguments, envelope, callErr, duration)

	resultJSON, err := json.Marshal(envelope)
	if err != nil {
		return s.errorResponse(req.ID, InternalError, fmt.Sprintf("Failed to marshal result: %v", err))
	}
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: resultJSON}
}

// buildEnvelope wraps a handler outcome into the tool result envelope.
// Handler failures become isError results rather than protocol errors so an
// LLM client can read them as ordinary tool output.
func (s *Server) buildEnvelope(result any, callErr error) CallToolResult {
	if callErr != nil {
		return CallToolResult{
			Content: []ContentBlock{{Type: "text", Text: "Error: " + callErr.Error()}},
			IsError: true,
		}
	}

	text, ok := result.(string)
	if !ok {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return CallToolResult{
				Content: []ContentBlock{{Type: "text", Text: "Error: failed to encode tool result: " + err.Error()}},
				IsError: true,
			}
		}
		text = string(encoded)
	}

	return CallToolResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

// recordAudit logs the completed call. Runs after the handler resolves so the
// measured duration covers the full execution.
func (s *Server) recordAudit(ctx context.Context, tool string, args json.RawMessage, envelope CallToolResult, callErr error, duration time.Duration) {
	if s.auditLog == nil {
		return
	}

	entry := audit.Entry{
		ToolName:    tool,
		InputParams: args,
		Success:     callErr == nil,
		DurationMS:  duration.Milliseconds(),
	}
	if callErr != nil {
		msg := callErr.Error()
		entry.ErrorMessage = &msg
	} else if encoded, err := json.Marshal(envelope); err == nil {
		entry.Result = encoded
	}

	s.auditLog.Log(ctx, entry)
}

func (s *Server) successResponse(id any, result any) *Response {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return s.errorResponse(id, InternalError, fmt.Sprintf("Failed to marshal result: %v", err))
	}
	return &Response{JSONRPC: "2.0", ID: id, Result: resultJSON}
}

func (s *Server) errorResponse(id any, code int, message string) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &ErrorObject{Code: code, Message: message},
	}
}
