// ABOUTME: HTTP client for the Pipedrive v1 REST API, bound to one principal's API token
// ABOUTME: Transport, status and decode failures are converted into success=false envelopes

package pipedrive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/2389/pipedrive-gateway/internal/metrics"
)

// Default settings.
const (
	DefaultBaseURL = "https://api.pipedrive.com/v1"
	DefaultTimeout = 30 * time.Second

	// MaxUsersLimit is the largest page the users endpoint accepts.
	MaxUsersLimit = 500

	maxResponseSize = 32 << 20
)

// Config holds settings shared by every principal's Client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// NewHTTPClient creates the http.Client shared by all principals.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Client issues requests with a single Pipedrive API token. It is cheap to
// create; the underlying http.Client is shared.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a Client that authenticates upstream with apiToken.
func New(cfg Config, apiToken string) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout)
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiToken:   apiToken,
		metrics:    cfg.Metrics,
		logger:     logger,
	}
}

// RequestError describes a failed upstream round trip.
type RequestError struct {
	Status  int    // HTTP status, 0 when no response arrived
	Message string // becomes the envelope's error
	Info    string // becomes the envelope's error_info
}

func (e *RequestError) Error() string {
	if e.Info != "" {
		return e.Message + ": " + e.Info
	}
	return e.Message
}

// get performs a GET and decodes the envelope. It never returns nil.
func get[T any](ctx context.Context, c *Client, resource, path string, query url.Values) *Envelope[T] {
	started := time.Now()
	env := &Envelope[T]{}
	status, err := c.fetch(ctx, path, query, env)
	c.metrics.UpstreamRequest(resource, status, time.Since(started))

	if err != nil {
		var reqErr *RequestError
		if !errors.As(err, &reqErr) {
			reqErr = &RequestError{Status: status, Message: err.Error()}
		}
		c.logger.Warn("pipedrive request failed",
			"resource", resource,
			"status", status,
			"error", reqErr.Message,
		)
		return Failure[T](reqErr.Message, reqErr.Info)
	}
	return env
}

func (c *Client) fetch(ctx context.Context, path string, query url.Values, out any) (int, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_token", c.apiToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return 0, &RequestError{Message: fmt.Sprintf("creating request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the full URL, which carries the API token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return 0, &RequestError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, &RequestError{Status: resp.StatusCode, Message: fmt.Sprintf("reading response: %v", err)}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, statusError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, &RequestError{Status: resp.StatusCode, Message: fmt.Sprintf("decoding response: %v", err)}
	}
	return resp.StatusCode, nil
}

// statusError mirrors what Pipedrive callers conventionally report: a
// generic status message plus the API's own error text when present.
func statusError(status int, body []byte) *RequestError {
	info := http.StatusText(status)
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		info = apiErr.Error
	}
	return &RequestError{
		Status:  status,
		Message: fmt.Sprintf("Request failed with status code %d", status),
		Info:    info,
	}
}

func idPath(resource string, id int64) string {
	return "/" + resource + "/" + strconv.FormatInt(id, 10)
}

// GetDeals lists deals.
func (c *Client) GetDeals(ctx context.Context, p ListParams) *Envelope[[]Deal] {
	return get[[]Deal](ctx, c, "deals", "/deals", p.values())
}

// GetDeal fetches one deal.
func (c *Client) GetDeal(ctx context.Context, id int64) *Envelope[*Deal] {
	return get[*Deal](ctx, c, "deals", idPath("deals", id), nil)
}

// SearchDeals searches deals by term.
func (c *Client) SearchDeals(ctx context.Context, term string, p SearchParams) *Envelope[*SearchResults] {
	return get[*SearchResults](ctx, c, "deals", "/deals/search", p.values(term))
}

// GetPersons lists persons.
func (c *Client) GetPersons(ctx context.Context, p ListParams) *Envelope[[]Person] {
	return get[[]Person](ctx, c, "persons", "/persons", p.values())
}

// GetPerson fetches one person.
func (c *Client) GetPerson(ctx context.Context, id int64) *Envelope[*Person] {
	return get[*Person](ctx, c, "persons", idPath("persons", id), nil)
}

// SearchPersons searches persons by term.
func (c *Client) SearchPersons(ctx context.Context, term string, p SearchParams) *Envelope[*SearchResults] {
	return get[*SearchResults](ctx, c, "persons", "/persons/search", p.values(term))
}

// GetOrganizations lists organizations.
func (c *Client) GetOrganizations(ctx context.Context, p ListParams) *Envelope[[]Organization] {
	return get[[]Organization](ctx, c, "organizations", "/organizations", p.values())
}

// GetOrganization fetches one organization.
func (c *Client) GetOrganization(ctx context.Context, id int64) *Envelope[*Organization] {
	return get[*Organization](ctx, c, "organizations", idPath("organizations", id), nil)
}

// SearchOrganizations searches organizations by term.
func (c *Client) SearchOrganizations(ctx context.Context, term string, p SearchParams) *Envelope[*SearchResults] {
	return get[*SearchResults](ctx, c, "organizations", "/organizations/search", p.values(term))
}

// GetPipelines lists all pipelines.
func (c *Client) GetPipelines(ctx context.Context) *Envelope[[]Pipeline] {
	return get[[]Pipeline](ctx, c, "pipelines", "/pipelines", nil)
}

// GetPipeline fetches one pipeline.
func (c *Client) GetPipeline(ctx context.Context, id int64) *Envelope[*Pipeline] {
	return get[*Pipeline](ctx, c, "pipelines", idPath("pipelines", id), nil)
}

// GetStages lists stages, optionally restricted to one pipeline.
func (c *Client) GetStages(ctx context.Context, pipelineID *int64) *Envelope[[]Stage] {
	q := url.Values{}
	setInt64(q, "pipeline_id", pipelineID)
	return get[[]Stage](ctx, c, "stages", "/stages", q)
}

// GetStage fetches one stage.
func (c *Client) GetStage(ctx context.Context, id int64) *Envelope[*Stage] {
	return get[*Stage](ctx, c, "stages", idPath("stages", id), nil)
}

// GetActivities lists activities.
func (c *Client) GetActivities(ctx context.Context, p ListParams) *Envelope[[]Activity] {
	return get[[]Activity](ctx, c, "activities", "/activities", p.values())
}

// GetActivity fetches one activity.
func (c *Client) GetActivity(ctx context.Context, id int64) *Envelope[*Activity] {
	return get[*Activity](ctx, c, "activities", idPath("activities", id), nil)
}

// GetNotes lists notes.
func (c *Client) GetNotes(ctx context.Context, p ListParams) *Envelope[[]Note] {
	return get[[]Note](ctx, c, "notes", "/notes", p.values())
}

// GetNote fetches one note.
func (c *Client) GetNote(ctx context.Context, id int64) *Envelope[*Note] {
	return get[*Note](ctx, c, "notes", idPath("notes", id), nil)
}

// SearchItems searches across item types.
func (c *Client) SearchItems(ctx context.Context, term string, p SearchParams) *Envelope[*SearchResults] {
	return get[*SearchResults](ctx, c, "search", "/itemSearch", p.values(term))
}

// GetUsers lists company users. Limit is capped at MaxUsersLimit.
func (c *Client) GetUsers(ctx context.Context, p ListParams) *Envelope[[]User] {
	if p.Limit != nil && *p.Limit > MaxUsersLimit {
		limit := MaxUsersLimit
		p.Limit = &limit
	}
	return get[[]User](ctx, c, "users", "/users", p.values())
}

// GetUser fetches one user.
func (c *Client) GetUser(ctx context.Context, id int64) *Envelope[*User] {
	return get[*User](ctx, c, "users", idPath("users", id), nil)
}

// GetCurrentUser fetches the user owning the API token.
func (c *Client) GetCurrentUser(ctx context.Context) *Envelope[*User] {
	return get[*User](ctx, c, "users", "/users/me", nil)
}
