// ABOUTME: Tests for the Pipedrive client against an httptest fake upstream
// ABOUTME: Covers query construction, token injection and failure envelopes

package pipedrive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/pipedrive-gateway/internal/metrics"
)

const testToken = "0123456789abcdef0123456789abcdef01234567"

// fakeUpstream records the requests it receives and replies with canned bodies.
type fakeUpstream struct {
	mu       sync.Mutex
	requests []*http.Request
	status   int
	body     string
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	status, body := f.status, f.body
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *fakeUpstream) last(t *testing.T) *http.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func setupClient(t *testing.T, status int, body string) (*Client, *fakeUpstream) {
	t.Helper()
	fake := &fakeUpstream{status: status, body: body}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL + "/", HTTPClient: srv.Client(), Metrics: metrics.New()}, testToken)
	return c, fake
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestGetDeals_Query(t *testing.T) {
	c, fake := setupClient(t, 0, `{"success":true,"data":[{"id":1,"title":"A"},{"id":2,"title":"B"}],
		"additional_data":{"pagination":{"start":0,"limit":2,"more_items_in_collection":true,"next_start":2}}}`)

	env := c.GetDeals(context.Background(), ListParams{
		Start:  intPtr(0),
		Limit:  intPtr(2),
		Status: "open",
		UserID: int64Ptr(9),
	})

	require.True(t, env.Success)
	require.Len(t, env.Data, 2)
	assert.Equal(t, "B", env.Data[1].Title)
	require.NotNil(t, env.AdditionalData)
	assert.True(t, env.AdditionalData.Pagination.MoreItemsInCollection)

	req := fake.last(t)
	assert.Equal(t, "/deals", req.URL.Path)
	q := req.URL.Query()
	assert.Equal(t, testToken, q.Get("api_token"))
	assert.Equal(t, "0", q.Get("start"))
	assert.Equal(t, "2", q.Get("limit"))
	assert.Equal(t, "open", q.Get("status"))
	assert.Equal(t, "9", q.Get("user_id"))
	assert.False(t, q.Has("filter_id"), "unset params are not sent")
}

func TestGetDeal_Path(t *testing.T) {
	c, fake := setupClient(t, 0, `{"success":true,"data":{"id":42,"title":"X"}}`)

	env := c.GetDeal(context.Background(), 42)
	require.True(t, env.Success)
	require.NotNil(t, env.Data)
	assert.Equal(t, int64(42), env.Data.ID)
	assert.Equal(t, "/deals/42", fake.last(t).URL.Path)
}

func TestSearchItems_Query(t *testing.T) {
	c, fake := setupClient(t, 0, `{"success":true,"data":{"items":[{"result_score":1,"item":{"id":3,"type":"person","name":"Zed"}}]}}`)

	env := c.SearchItems(context.Background(), "zed", SearchParams{
		ItemTypes:  "person,deal",
		ExactMatch: boolPtr(true),
		Limit:      intPtr(5),
	})

	require.True(t, env.Success)
	require.NotNil(t, env.Data)
	require.Len(t, env.Data.Items, 1)
	assert.Equal(t, "Zed", env.Data.Items[0].Item.Name)

	req := fake.last(t)
	assert.Equal(t, "/itemSearch", req.URL.Path)
	assert.Equal(t, "zed", req.URL.Query().Get("term"))
	assert.Equal(t, "person,deal", req.URL.Query().Get("item_types"))
	assert.Equal(t, "true", req.URL.Query().Get("exact_match"))
}

func TestGetStages_PipelineFilter(t *testing.T) {
	c, fake := setupClient(t, 0, `{"success":true,"data":[]}`)

	c.GetStages(context.Background(), nil)
	assert.False(t, fake.last(t).URL.Query().Has("pipeline_id"))

	c.GetStages(context.Background(), int64Ptr(4))
	assert.Equal(t, "4", fake.last(t).URL.Query().Get("pipeline_id"))
}

func TestGetUsers_CapsLimit(t *testing.T) {
	c, fake := setupClient(t, 0, `{"success":true,"data":[]}`)

	c.GetUsers(context.Background(), ListParams{Limit: intPtr(900)})
	assert.Equal(t, "500", fake.last(t).URL.Query().Get("limit"))
}

func TestGetCurrentUser(t *testing.T) {
	c, fake := setupClient(t, 0, `{"success":true,"data":{"id":1,"name":"Me","is_admin":1}}`)

	env := c.GetCurrentUser(context.Background())
	require.True(t, env.Success)
	assert.Equal(t, "/users/me", fake.last(t).URL.Path)
	assert.JSONEq(t, "1", string(env.Data.IsAdmin))
}

func TestFailure_HTTPStatus(t *testing.T) {
	c, _ := setupClient(t, http.StatusUnauthorized, `{"success":false,"error":"You need to be authorized to make this request."}`)

	env := c.GetDeals(context.Background(), ListParams{})
	assert.False(t, env.Success)
	assert.Equal(t, "Request failed with status code 401", env.Error)
	assert.Equal(t, "You need to be authorized to make this request.", env.ErrorInfo)
	assert.Nil(t, env.Data)
}

func TestFailure_StatusTextFallback(t *testing.T) {
	c, _ := setupClient(t, http.StatusBadGateway, `<html>bad gateway</html>`)

	env := c.GetPipelines(context.Background())
	assert.False(t, env.Success)
	assert.Equal(t, "Request failed with status code 502", env.Error)
	assert.Equal(t, "Bad Gateway", env.ErrorInfo)
}

func TestFailure_Decode(t *testing.T) {
	c, _ := setupClient(t, 0, `not json`)

	env := c.GetNotes(context.Background(), ListParams{})
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "decoding response")
}

func TestFailure_Network(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(Config{BaseURL: base, HTTPClient: NewHTTPClient(time.Second)}, testToken)
	env := c.GetOrganizations(context.Background(), ListParams{})

	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
	assert.NotContains(t, env.Error, testToken, "errors never leak the API token")
}

func TestUpstreamSuccessFalsePassesThrough(t *testing.T) {
	c, _ := setupClient(t, 0, `{"success":false,"error":"Deal not found","error_info":"Please check developers.pipedrive.com"}`)

	env := c.GetDeal(context.Background(), 1)
	assert.False(t, env.Success)
	assert.Equal(t, "Deal not found", env.Error)
	assert.Equal(t, "Please check developers.pipedrive.com", env.ErrorInfo)
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{}, testToken)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.NotNil(t, c.httpClient)

	u, err := url.Parse(c.baseURL)
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
}
