// ABOUTME: HTTP client for the admin API and the health endpoint
// ABOUTME: Used by the pipedrive-admin CLI; non-2xx replies surface as *APIError

package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2389/pipedrive-gateway/internal/store"
)

// APIError is a non-2xx reply from the gateway.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Message)
}

// Health is the body of GET /health.
type Health struct {
	Status        string      `json:"status"`
	Service       string      `json:"service"`
	Authenticated bool        `json:"authenticated"`
	UserStats     store.Stats `json:"userStats"`
}

// Client talks to a running gateway.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Client for the gateway at baseURL using the admin secret.
func NewClient(baseURL, adminToken string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      adminToken,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateUser registers a principal and returns it with its bearer token.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*CreatedUser, error) {
	var resp CreateUserResponse
	if err := c.do(ctx, http.MethodPost, "/admin/users", req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// ListUsers returns all principals and aggregate stats.
func (c *Client) ListUsers(ctx context.Context) (*ListUsersResponse, error) {
	var resp ListUsersResponse
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RevokeUser revokes the principal owning bearerToken.
func (c *Client) RevokeUser(ctx context.Context, bearerToken string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(bearerToken), nil, nil)
}

// Health fetches the unauthenticated health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// errorMessage pulls a readable message from the admin ({error}) or
// JSON-RPC ({error:{message,data}}) error shapes.
func errorMessage(body []byte, fallback string) string {
	var plain struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &plain) == nil && plain.Error != "" {
		return plain.Error
	}

	var rpc struct {
		Error struct {
			Message string `json:"message"`
			Data    string `json:"data"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &rpc) == nil && rpc.Error.Message != "" {
		if rpc.Error.Data != "" {
			return rpc.Error.Message + ": " + rpc.Error.Data
		}
		return rpc.Error.Message
	}
	return fallback
}
