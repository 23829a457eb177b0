// ABOUTME: HTTP handlers for creating, listing and revoking principals
// ABOUTME: Mounted under /admin/users behind the admin secret middleware

package admin

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/2389/pipedrive-gateway/internal/store"
)

// maxBodySize bounds admin request bodies.
const maxBodySize = 64 << 10

// CreateUserRequest is the body of POST /admin/users.
type CreateUserRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	UpstreamToken string `json:"pipedriveApiToken"`
}

// CreatedUser is the principal returned once at creation, bearer token included.
type CreatedUser struct {
	ID          string    `json:"id"`
	BearerToken string    `json:"bearerToken"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateUserResponse is the body returned by POST /admin/users.
type CreateUserResponse struct {
	Message string      `json:"message"`
	User    CreatedUser `json:"user"`
}

// ListUsersResponse is the body returned by GET /admin/users.
type ListUsersResponse struct {
	Users []store.PrincipalListing `json:"users"`
	Stats store.Stats              `json:"stats"`
}

// MessageResponse carries a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// Handler serves the principal management endpoints.
type Handler struct {
	store  store.PrincipalStore
	logger *slog.Logger
}

// NewHandler creates a Handler backed by s.
func NewHandler(s store.PrincipalStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: s, logger: logger.With("component", "admin")}
}

// RegisterRoutes mounts the endpoints on mux, each wrapped by guard.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}
	mux.Handle("POST /admin/users", guard(http.HandlerFunc(h.handleCreate)))
	mux.Handle("GET /admin/users", guard(http.HandlerFunc(h.handleList)))
	mux.Handle("DELETE /admin/users/{token}", guard(http.HandlerFunc(h.handleRevoke)))
}

// handleCreate handles POST /admin/users.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		h.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.UpstreamToken == "" {
		h.sendJSONError(w, http.StatusBadRequest, "Missing required fields: name, email, pipedriveApiToken")
		return
	}

	p, err := h.store.CreatePrincipal(r.Context(), store.NewPrincipal{
		Name:          req.Name,
		Email:         req.Email,
		UpstreamToken: req.UpstreamToken,
	})
	if errors.Is(err, store.ErrInvalidUpstreamToken) {
		h.sendJSONError(w, http.StatusBadRequest, "Invalid Pipedrive API token format")
		return
	}
	if err != nil {
		h.logger.Error("failed to create principal", "error", err)
		h.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("principal created",
		"principal_id", p.ID,
		"name", p.Name,
		"pipedrive_token", store.MaskUpstreamToken(p.UpstreamToken),
	)

	h.sendJSON(w, http.StatusOK, CreateUserResponse{
		Message: "User created successfully",
		User: CreatedUser{
			ID:          p.ID,
			BearerToken: p.BearerToken,
			Name:        p.Name,
			Email:       p.Email,
			CreatedAt:   p.CreatedAt,
		},
	})
}

// handleList handles GET /admin/users.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListPrincipals(r.Context())
	if err != nil {
		h.logger.Error("failed to list principals", "error", err)
		h.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to compute principal stats", "error", err)
		h.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.sendJSON(w, http.StatusOK, ListUsersResponse{Users: users, Stats: stats})
}

// handleRevoke handles DELETE /admin/users/{token}.
func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	p, err := h.store.RevokePrincipal(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		h.sendJSONError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to revoke principal", "error", err)
		h.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("principal revoked", "principal_id", p.ID, "name", p.Name)
	h.sendJSON(w, http.StatusOK, MessageResponse{Message: "User revoked successfully"})
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to encode admin response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (h *Handler) sendJSONError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, map[string]string{"error": message})
}
