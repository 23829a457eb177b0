// ABOUTME: Tests for the MCP dispatcher: envelope validation, sessions, tools and prompts
// ABOUTME: Tool calls run through a real pipedrive.Client against an httptest fake API

package mcp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/pipedrive-gateway/internal/auth"
	"github.com/2389/pipedrive-gateway/internal/pipedrive"
	"github.com/2389/pipedrive-gateway/internal/session"
	"github.com/2389/pipedrive-gateway/internal/store"
	"github.com/2389/pipedrive-gateway/internal/tools"
)

const testUpstreamToken = "0123456789abcdef0123456789abcdef01234567"

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    string `json:"data"`
	} `json:"error"`
}

type testEnv struct {
	server   *Server
	sessions *session.Registry

	mu     sync.Mutex
	tokens []string // upstream tokens seen by the fake API
}

func (e *testEnv) seenTokens() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.tokens...)
}

func newTestEnv(t *testing.T, requireInit bool) *testEnv {
	t.Helper()
	env := &testEnv{sessions: session.NewRegistry()}

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		env.tokens = append(env.tokens, r.URL.Query().Get("api_token"))
		env.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/deals/7":
			_, _ = w.Write([]byte(`{"success":true,"data":{"id":7,"title":"Big deal","value":1000,"currency":"USD","status":"open"}}`))
		case "/deals/99":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"error":"Deal not found"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"error":"Not found"}`))
		}
	}))
	t.Cleanup(api.Close)

	catalog := tools.NewCatalog(tools.WithClock(func() time.Time {
		return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	}))
	srv, err := NewServer(Config{
		Catalog:  catalog,
		Sessions: env.sessions,
		Upstream: func(p *store.Principal) tools.Upstream {
			return pipedrive.New(pipedrive.Config{BaseURL: api.URL, HTTPClient: api.Client()}, p.UpstreamToken)
		},
		RequireInitialize: requireInit,
	})
	require.NoError(t, err)
	env.server = srv
	return env
}

func (e *testEnv) do(t *testing.T, principal *store.Principal, body string, headers ...string) (*httptest.ResponseRecorder, rpcResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if principal != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), principal))
	}

	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func alice() *store.Principal {
	return &store.Principal{ID: "alice", UpstreamToken: testUpstreamToken}
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err)

	_, err = NewServer(Config{Catalog: tools.NewCatalog()})
	assert.Error(t, err)
}

func TestServer_EnvelopeErrors(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name   string
		body   string
		status int
		code   int
		data   string
	}{
		{"invalid json", `{not json`, http.StatusBadRequest, -32700, "Invalid JSON"},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"tools/list"}`, http.StatusBadRequest, -32600, `Missing or invalid jsonrpc version. Must be "2.0"`},
		{"missing version", `{"id":1,"method":"tools/list"}`, http.StatusBadRequest, -32600, `Missing or invalid jsonrpc version. Must be "2.0"`},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, http.StatusBadRequest, -32600, `Missing required "method" field`},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, http.StatusNotFound, -32601, `Method "resources/list" not supported`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := env.do(t, alice(), tt.body)
			assert.Equal(t, tt.status, rec.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.data, resp.Error.Data)
		})
	}
}

func TestServer_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, false)
	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{"pad":"` + strings.Repeat("x", 1<<20) + `"}}`

	rec, resp := env.do(t, alice(), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32700, resp.Error.Code)
}

func TestServer_RequiresPrincipal(t *testing.T) {
	env := newTestEnv(t, false)
	rec, resp := env.do(t, nil, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32001, resp.Error.Code)
}

func TestServer_Initialize(t *testing.T) {
	env := newTestEnv(t, false)

	rec, resp := env.do(t, alice(),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"0.1"}}}`,
		session.HeaderName, "sess-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sess-1", rec.Header().Get(session.HeaderName))
	assert.JSONEq(t, `{
		"protocolVersion": "2024-11-05",
		"capabilities": {"tools": {}, "prompts": {}},
		"serverInfo": {"name": "pipedrive-mcp-server", "version": "1.0.0"}
	}`, string(resp.Result))
	assert.True(t, env.sessions.IsInitialized("alice", "sess-1"))
	assert.False(t, env.sessions.IsInitialized("bob", "sess-1"))
}

func TestServer_InitializeUnknownVersion(t *testing.T) {
	env := newTestEnv(t, false)

	rec, resp := env.do(t, alice(), `{"jsonrpc":"2.0","id":"init","method":"initialize","params":{"protocolVersion":"1999-01-01"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, DefaultProtocolVersion, result.ProtocolVersion)

	// Without a header the request id names the session
	assert.Equal(t, "init", rec.Header().Get(session.HeaderName))
	assert.True(t, env.sessions.IsInitialized("alice", "init"))
}

func TestServer_NotificationsInitialized(t *testing.T) {
	env := newTestEnv(t, false)
	rec, resp := env.do(t, alice(), `{"jsonrpc":"2.0","id":2,"method":"notifications/initialized"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, string(resp.Result))
}

func TestServer_RequireInitialize(t *testing.T) {
	env := newTestEnv(t, true)

	rec, resp := env.do(t, alice(), `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, session.HeaderName, "s1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32600, resp.Error.Code)

	rec, _ = env.do(t, alice(), `{"jsonrpc":"2.0","id":2,"method":"initialize"}`, session.HeaderName, "s1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = env.do(t, alice(), `{"jsonrpc":"2.0","id":3,"method":"tools/list"}`, session.HeaderName, "s1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, resp.Error)

	// Another principal cannot reuse alice's session
	bob := &store.Principal{ID: "bob", UpstreamToken: testUpstreamToken}
	rec, _ = env.do(t, bob, `{"jsonrpc":"2.0","id":4,"method":"tools/list"}`, session.HeaderName, "s1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ToolsList(t *testing.T) {
	env := newTestEnv(t, false)
	rec, resp := env.do(t, alice(), `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result ToolsListResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Len(t, result.Tools, env.server.ToolCount())

	names := make([]string, 0, len(result.Tools))
	for _, d := range result.Tools {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "get_deal")
	assert.Contains(t, names, "get_quarter_summary")
}

func toolText(t *testing.T, raw json.RawMessage) ToolCallResult {
	t.Helper()
	var result ToolCallResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	return result
}

func TestServer_ToolsCall_Success(t *testing.T) {
	env := newTestEnv(t, false)
	rec, resp := env.do(t, alice(), `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"get_deal","arguments":{"id":7}}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", string(resp.ID))

	result := toolText(t, resp.Result)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "\n  \"success\": true")

	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &envelope))
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "Big deal", data["title"])

	assert.Equal(t, []string{testUpstreamToken}, env.seenTokens(), "upstream sees the principal's own token")
}

func TestServer_ToolsCall_UpstreamFailureInBand(t *testing.T) {
	env := newTestEnv(t, false)
	rec, resp := env.do(t, alice(), `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"get_deal","arguments":{"id":99}}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, resp.Error)

	result := toolText(t, resp.Result)
	assert.True(t, result.IsError)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &envelope))
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "Request failed with status code 404", envelope["error"])
	assert.Equal(t, "Deal not found", envelope["error_info"])
}

func TestServer_ToolsCall_Errors(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name   string
		body   string
		status int
		code   int
		data   string
	}{
		{"missing name", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{}}`, http.StatusBadRequest, -32602, `Missing required "name" parameter`},
		{"no params", `{"jsonrpc":"2.0","id":1,"method":"tools/call"}`, http.StatusBadRequest, -32602, `Missing required "name" parameter`},
		{"unknown tool", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"delete_everything"}}`, http.StatusNotFound, -32601, `Tool "delete_everything" not found`},
		{"missing argument", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_deal","arguments":{}}}`, http.StatusBadRequest, -32602, `Missing required "id" parameter for get_deal`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := env.do(t, alice(), tt.body)
			assert.Equal(t, tt.status, rec.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.data, resp.Error.Data)
		})
	}
	assert.Empty(t, env.seenTokens(), "rejected calls never reach upstream")
}

func TestServer_ToolsCall_BadArgumentType(t *testing.T) {
	env := newTestEnv(t, false)
	rec, resp := env.do(t, alice(), `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_deal","arguments":{"id":"seven"}}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
	assert.True(t, strings.HasPrefix(resp.Error.Data, "Invalid arguments for get_deal: "), resp.Error.Data)
}

func TestServer_PromptsList(t *testing.T) {
	env := newTestEnv(t, false)
	rec, resp := env.do(t, alice(), `{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Prompts []struct {
			Name      string           `json:"name"`
			Arguments []PromptArgument `json:"arguments"`
		} `json:"prompts"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Prompts, env.server.PromptCount())
	assert.Equal(t, "list_all_deals", result.Prompts[0].Name)
	assert.Equal(t, "search_person", result.Prompts[1].Name)
	assert.Equal(t, []PromptArgument{{Name: "name", Description: "Name of the person to search for", Required: true}}, result.Prompts[1].Arguments)
}

func TestServer_PromptsGet(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"static", `{"name":"list_all_deals"}`, "List all deals with their current status, value, and associated contacts"},
		{"string argument", `{"name":"search_person","arguments":{"name":"Ada"}}`, `Search for a person named "Ada" and show their contact information and associated deals`},
		{"numeric argument", `{"name":"get_organization_deals","arguments":{"org_id":12}}`, "Get all deals associated with organization ID 12 including their status and value"},
		{"pipeline overview", `{"name":"pipeline_overview"}`, "Provide an overview of all pipelines and their stages, including deal counts per stage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := env.do(t, alice(), `{"jsonrpc":"2.0","id":1,"method":"prompts/get","params":`+tt.body+`}`)
			require.Equal(t, http.StatusOK, rec.Code)

			var result GetPromptResult
			require.NoError(t, json.Unmarshal(resp.Result, &result))
			require.Len(t, result.Messages, 1)
			assert.Equal(t, "user", result.Messages[0].Role)
			assert.Equal(t, "text", result.Messages[0].Content.Type)
			assert.Equal(t, tt.want, result.Messages[0].Content.Text)
		})
	}
}

func TestServer_PromptsGet_Errors(t *testing.T) {
	env := newTestEnv(t, false)

	rec, resp := env.do(t, alice(), `{"jsonrpc":"2.0","id":1,"method":"prompts/get","params":{"name":"nope"}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32601, resp.Error.Code)
	assert.Equal(t, "Prompt not found", resp.Error.Message)
	assert.Equal(t, `Prompt "nope" not found`, resp.Error.Data)

	rec, resp = env.do(t, alice(), `{"jsonrpc":"2.0","id":2,"method":"prompts/get","params":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, false)
	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), alice()))
	rec := httptest.NewRecorder()

	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestServer_ToolsCall_StringID(t *testing.T) {
	env := newTestEnv(t, false)
	rec, resp := env.do(t, alice(), `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_deal","arguments":{"id":"7"}}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, resp.Error)
	result := toolText(t, resp.Result)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "Big deal")
}

func TestMetricLabels(t *testing.T) {
	env := newTestEnv(t, false)

	assert.Equal(t, "tools/call", methodLabel("tools/call"))
	assert.Equal(t, "invalid", methodLabel("invalid"))
	assert.Equal(t, "unknown", methodLabel("junk/1"))
	assert.Equal(t, "unknown", methodLabel("resources/list"))

	assert.Equal(t, "get_deal", env.server.toolLabel("get_deal"))
	assert.Equal(t, "unknown", env.server.toolLabel("nope_1"))
}
