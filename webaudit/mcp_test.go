package webaudit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testMCPImpl = &mcp.Implementation{Name: "privacyaudit-test", Version: "0.1.0"}

func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	a := New(Config{})
	srv := mcp.NewServer(testMCPImpl, nil)
	a.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func TestMCP_AuditWebsite(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/privacy">Privacy</a></body></html>`))
	}))
	defer site.Close()

	session := mcpSession(t)
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "audit_website",
		Arguments: map[string]any{"url": site.URL + "/", "mode": "generic"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("tool error: %v", err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}

	var res Result
	if err := json.Unmarshal([]byte(tc.Text), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.ModeUsed != PipelineStatic {
		t.Errorf("modeUsed = %q, want static with no browser factory", res.ModeUsed)
	}
	if res.URL != site.URL+"/" {
		t.Errorf("url = %q", res.URL)
	}
	if res.Flags == nil {
		t.Error("flags missing from serialised result")
	}
}

func TestMCP_AuditWebsite_InvalidURL(t *testing.T) {
	session := mcpSession(t)
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "audit_website",
		Arguments: map[string]any{"url": "not a url"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for invalid url")
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	if !strings.Contains(tc.Text, "invalid url") {
		t.Errorf("tool error = %v", tc.Text)
	}
}
