//nolint:testpackage // dispatcher behavior is asserted against unexported handlers
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/periospot/content-cloud/internal/audit"
	"github.com/periospot/content-cloud/internal/logger"
)

type recordingAudit struct {
	entries []audit.Entry
}

func (r *recordingAudit) Log(_ context.Context, entry audit.Entry) {
	r.entries = append(r.entries, entry)
}

func newTestServer(t *testing.T) (*Server, *Registry, *recordingAudit) {
	t.Helper()

	registry := NewRegistry()
	registry.MustRegister(Tool{
		Name:        "echo",
		Description: "Echo back the supplied message.",
		InputSchema: map[string]any{"type": "object"},
	}, func(_ context.Context, args json.RawMessage) (any, error) {
		var in struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, err
		}
		return map[string]any{"message": in.Message}, nil
	})
	registry.MustRegister(Tool{
		Name:        "always_fails",
		Description: "Fails unconditionally.",
		InputSchema: map[string]any{"type": "object"},
	}, func(_ context.Context, _ json.RawMessage) (any, error) {
		return nil, errors.New("storage unavailable")
	})

	auditLog := &recordingAudit{}
	return NewServer(registry, auditLog, logger.NewNop()), registry, auditLog
}

func callResult(t *testing.T, resp *Response) CallToolResult {
	t.Helper()

	if resp == nil {
		t.Fatal("expected non-nil response")
	}
	if resp.Error != nil {
		t.Fatalf("unexpected protocol error: %+v", resp.Error)
	}

	var result CallToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	return result
}

func TestHandleRequest_Initialize(t *testing.T) {
	t.Helper()

	s, _, _ := newTestServer(t)
	req := &Request{JSONRPC: "2.0", ID: float64(1), Method: "initialize"}

	resp := s.HandleRequest(context.Background(), req)
	if resp == nil || resp.Result == nil {
		t.Fatal("expected non-nil result")
	}

	var result struct {
		ProtocolVersion string         `json:"protocolVersion"`
		Capabilities    map[string]any `json:"capabilities"`
		ServerInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocolVersion = %q", result.ProtocolVersion)
	}
	if _, ok := result.Capabilities["tools"]; !ok {
		t.Error("expected capabilities.tools")
	}
	if result.ServerInfo.Name != "periospot-mcp" || result.ServerInfo.Version != "1.0.0" {
		t.Errorf("serverInfo = %+v", result.ServerInfo)
	}
}

func TestHandleRequest_RejectsWrongVersion(t *testing.T) {
	t.Helper()

	s, _, _ := newTestServer(t)
	req := &Request{JSONRPC: "1.0", ID: float64(1), Method: "initialize"}

	resp := s.HandleRequest(context.Background(), req)
	if resp == nil || resp.Error == nil {
		t.Fatal("expected error response")
	}
	if resp.Error.Code != InvalidRequest {
		t.Errorf("code = %d, want %d", resp.Error.Code, InvalidRequest)
	}
}

func TestHandleRequest_NotificationsAreSilent(t *testing.T) {
	t.Helper()

	s, _, _ := newTestServer(t)

	methods := []string{
		"initialized",
		"notifications/cancelled",
		"shutdown",
		"initialize",
		"ping",
		"tools/list",
		"tools/call",
		"no/such/method",
	}
	for _, method := range methods {
		req := &Request{JSONRPC: "2.0", Method: method}
		if method == "tools/call" {
			req.Params = json.RawMessage(`{"name":"echo","arguments":{"message":"hi"}}`)
		}
		if resp := s.HandleRequest(context.Background(), req); resp != nil {
			t.Errorf("%s: expected no response, got %+v", method, resp)
		}
	}
}

func TestHandleRequest_UnknownMethod(t *testing.T) {
	t.Helper()

	s, _, _ := newTestServer(t)

	// A request gets METHOD_NOT_FOUND citing the method name.
	req := &Request{JSONRPC: "2.0", ID: float64(1), Method: "resources/list"}
	resp := s.HandleRequest(context.Background(), req)
	if resp == nil || resp.Error == nil {
		t.Fatal("expected error response")
	}
	if resp.Error.Code != MethodNotFound {
		t.Errorf("code = %d, want %d", resp.Error.Code, MethodNotFound)
	}
	if !strings.Contains(resp.Error.Message, "resources/list") {
		t.Errorf("message %q does not cite the method", resp.Error.Message)
	}

	// The same method as a notification gets nothing.
	notif := &Request{JSONRPC: "2.0", Method: "resources/list"}
	if resp := s.HandleRequest(context.Background(), notif); resp != nil {
		t.Errorf("expected no response for unknown notification, got %+v", resp)
	}
}

func TestHandleRequest_Ping(t *testing.T) {
	t.Helper()

	s, _, _ := newTestServer(t)
	req := &Request{JSONRPC: "2.0", ID: "keepalive-1", Method: "ping"}

	resp := s.HandleRequest(context.Background(), req)
	if resp == nil || resp.Result == nil {
		t.Fatal("expected non-nil result")
	}
	if string(resp.Result) != "{}" {
		t.Errorf("ping result = %s, want {}", resp.Result)
	}
	if resp.ID != "keepalive-1" {
		t.Errorf("id = %v, want keepalive-1", resp.ID)
	}
}

func TestHandleRequest_ToolsList(t *testing.T) {
	t.Helper()

	s, _, _ := newTestServer(t)
	req := &Request{JSONRPC: "2.0", ID: float64(1), Method: "tools/list"}

	resp := s.HandleRequest(context.Background(), req)
	if resp == nil || resp.Result == nil {
		t.Fatal("expected non-nil result")
	}

	var result struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(result.Tools) != 2 {
		t.Fatalf("got %d tools, want 2", len(result.Tools))
	}
	if result.Tools[0].Name != "echo" || result.Tools[1].Name != "always_fails" {
		t.Errorf("tools out of registration order: %v", result.Tools)
	}
}

func TestHandleRequest_ToolsCall(t *testing.T) {
	t.Helper()

	s, _, auditLog := newTestServer(t)
	req := &Request{
		JSONRPC: "2.0",
		ID:      float64(3),
		Method:  "tools/call",
		Params:  json.RawMessage(`{"name":"echo","arguments":{"message":"hello"}}`),
	}

	result := callResult(t, s.HandleRequest(context.Background(), req))
	if result.IsError {
		t.Fatal("unexpected isError result")
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("unexpected content: %+v", result.Content)
	}
	if !strings.Contains(result.Content[0].Text, "hello") {
		t.Errorf("content text = %q", result.Content[0].Text)
	}

	if len(auditLog.entries) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(auditLog.entries))
	}
	entry := auditLog.entries[0]
	if entry.ToolName != "echo" || !entry.Success {
		t.Errorf("audit entry = %+v", entry)
	}
}

func TestHandleRequest_ToolErrorBecomesIsErrorResult(t *testing.T) {
	t.Helper()

	s, _, auditLog := newTestServer(t)
	req := &Request{
		JSONRPC: "2.0",
		ID:      float64(4),
		Method:  "tools/call",
		Params:  json.RawMessage(`{"name":"always_fails","arguments":{}}`),
	}

	result := callResult(t, s.HandleRequest(context.Background(), req))
	if !result.IsError {
		t.Fatal("expected isError result")
	}
	if !strings.Contains(result.Content[0].Text, "storage unavailable") {
		t.Errorf("content text = %q", result.Content[0].Text)
	}

	if len(auditLog.entries) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(auditLog.entries))
	}
	entry := auditLog.entries[0]
	if entry.Success {
		t.Error("audit entry marked success for a failed call")
	}
	if entry.ErrorMessage == nil || !strings.Contains(*entry.ErrorMessage, "storage unavailable") {
		t.Errorf("audit error message = %v", entry.ErrorMessage)
	}
}

func TestHandleRequest_ToolsCallMissingName(t *testing.T) {
	t.Helper()

	s, _, _ := newTestServer(t)
	req := &Request{
		JSONRPC: "2.0",
		ID:      float64(5),
		Method:  "tools/call",
		Params:  json.RawMessage(`{"arguments":{}}`),
	}

	resp := s.HandleRequest(context.Background(), req)
	if resp == nil || resp.Error == nil {
		t.Fatal("expected error response")
	}
	if resp.Error.Code != InvalidParams {
		t.Errorf("code = %d, want %d", resp.Error.Code, InvalidParams)
	}
}

func TestHandleRequest_ToolsCallUnknownNameListsTools(t *testing.T) {
	t.Helper()

	s, _, _ := newTestServer(t)
	req := &Request{
		JSONRPC: "2.0",
		ID:      float64(6),
		Method:  "tools/call",
		Params:  json.RawMessage(`{"name":"nope"}`),
	}

	resp := s.HandleRequest(context.Background(), req)
	if resp == nil || resp.Error == nil {
		t.Fatal("expected error response")
	}
	if resp.Error.Code != InvalidParams {
		t.Errorf("code = %d, want %d", resp.Error.Code, InvalidParams)
	}
	if !strings.Contains(resp.Error.Message, "echo") || !strings.Contains(resp.Error.Message, "always_fails") {
		t.Errorf("message %q does not enumerate registered tools", resp.Error.Message)
	}
}

func TestHandleRequest_ToolsCallDefaultsArguments(t *testing.T) {
	t.Helper()

	s, _, _ := newTestServer(t)
	req := &Request{
		JSONRPC: "2.0",
		ID:      float64(8),
		Method:  "tools/call",
		Params:  json.RawMessage(`{"name":"echo"}`),
	}

	result := callResult(t, s.HandleRequest(context.Background(), req))
	if result.IsError {
		t.Fatalf("expected success with defaulted arguments, got %+v", result)
	}
}

func TestBuildEnvelope_StringResultPassesThrough(t *testing.T) {
	t.Helper()

	s, _, _ := newTestServer(t)

	envelope := s.buildEnvelope("plain text result", nil)
	if envelope.IsError {
		t.Fatal("unexpected isError")
	}
	if envelope.Content[0].Text != "plain text result" {
		t.Errorf("text = %q", envelope.Content[0].Text)
	}
}
