// ABOUTME: Per-principal registry of MCP sessions that completed the initialize handshake
// ABOUTME: Sessions live for the process lifetime; ids come from headers, request ids or xid

package session

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/xid"
)

// HeaderName carries the session id on MCP requests and initialize responses.
const HeaderName = "Mcp-Session-Id"

// Registry records which sessions each principal has initialized.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[string]struct{} // principal ID -> session IDs
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]map[string]struct{})}
}

// MarkInitialized records sessionID as initialized for principalID.
func (r *Registry) MarkInitialized(principalID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[principalID]
	if !ok {
		set = make(map[string]struct{})
		r.sessions[principalID] = set
	}
	set[sessionID] = struct{}{}
}

// IsInitialized reports whether principalID initialized sessionID.
func (r *Registry) IsInitialized(principalID, sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.sessions[principalID][sessionID]
	return ok
}

// HasSession reports whether principalID initialized any session.
func (r *Registry) HasSession(principalID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[principalID]) > 0
}

// Count returns the number of sessions principalID initialized.
func (r *Registry) Count(principalID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[principalID])
}

// Total returns the number of sessions across all principals.
func (r *Registry) Total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, set := range r.sessions {
		n += len(set)
	}
	return n
}

// ID picks the session identifier for a request: the explicit header value
// when present, else the request's correlation id, else a generated id.
func ID(header string, requestID json.RawMessage) string {
	if header = strings.TrimSpace(header); header != "" {
		return header
	}
	if len(requestID) > 0 && string(requestID) != "null" {
		var s string
		if json.Unmarshal(requestID, &s) == nil {
			if s != "" {
				return s
			}
		} else {
			return string(requestID)
		}
	}
	return "session-" + xid.New().String()
}
