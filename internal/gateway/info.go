// ABOUTME: Health and root info endpoints
// ABOUTME: Report service identity, tool and prompt counts and principal stats

package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/2389/pipedrive-gateway/internal/auth"
	"github.com/2389/pipedrive-gateway/internal/mcp"
	"github.com/2389/pipedrive-gateway/internal/store"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string      `json:"status"`
	Service       string      `json:"service"`
	Authenticated bool        `json:"authenticated"`
	UserStats     store.Stats `json:"userStats"`
}

// InfoResponse is the body of GET /.
type InfoResponse struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	Description    string      `json:"description"`
	Specification  string      `json:"specification"`
	Endpoints      []string    `json:"endpoints"`
	Authentication string      `json:"authentication"`
	Tools          int         `json:"tools"`
	Prompts        int         `json:"prompts"`
	UserStats      store.Stats `json:"userStats"`
	User           *InfoUser   `json:"user,omitempty"`
}

// InfoUser identifies the authenticated caller on GET /.
type InfoUser struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := g.store.Stats(r.Context())
	if err != nil {
		g.logger.Error("failed to compute principal stats", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Service:       mcp.ServerName,
		Authenticated: true,
		UserStats:     stats,
	})
}

func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	stats, err := g.store.Stats(r.Context())
	if err != nil {
		g.logger.Error("failed to compute principal stats", "error", err)
	}

	resp := InfoResponse{
		Name:           "Pipedrive MCP Server (Authenticated)",
		Version:        mcp.ServerVersion,
		Description:    "MCP-compliant server with multi-user authentication for Pipedrive API integration",
		Specification:  "https://modelcontextprotocol.io/specification/" + mcp.DefaultProtocolVersion,
		Endpoints:      []string{"/mcp", "/admin"},
		Authentication: "Bearer token required",
		Tools:          g.mcpServer.ToolCount(),
		Prompts:        g.mcpServer.PromptCount(),
		UserStats:      stats,
	}
	if p := auth.FromContext(r.Context()); p != nil {
		resp.User = &InfoUser{ID: p.ID, Name: p.Name}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
