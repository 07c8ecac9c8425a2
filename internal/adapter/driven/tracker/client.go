// Package tracker implements the TrackerClient port against the request-
// tracking backend's REST API.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mwalcott/reqtrack/internal/domain/model"
	"github.com/mwalcott/reqtrack/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TrackerClient = (*Client)(nil)

// APIError is a non-2xx backend response, surfaced to callers unmodified.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tracker api status=%d: %s", e.Status, e.Message)
}

// Client is the typed tracker API client. Authorization is an explicit
// transport middleware stage installed at construction -- visible in the
// pipeline rather than hidden in global configuration. No retry, no caching:
// every call is one fresh round-trip and backend errors pass through as
// *APIError.
type Client struct {
	base  string // Backend base including the /api prefix, no trailing slash.
	http  *http.Client
	blobs *blobStore
}

// NewClient creates a tracker client whose transport stack is:
//  1. authTransport (bearer token attachment via the session manager)
//  2. next (caller-provided transport, or http.DefaultTransport)
func NewClient(baseURL string, session driven.SessionManager, next http.RoundTripper) *Client {
	if next == nil {
		next = http.DefaultTransport
	}

	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: &authTransport{session: session, next: next},
		},
		blobs: newBlobStore(),
	}
}

// authTransport attaches the current session's bearer token to every outgoing
// request before it is sent. The authorization step always completes (or
// signals reauthentication) before the wire request is issued.
type authTransport struct {
	session driven.SessionManager
	next    http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.session.AcquireToken(req.Context())
	switch {
	case err == nil:
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	case errors.Is(err, driven.ErrNoSession):
		// No cached account at all: the request goes out anonymously and the
		// backend answers 401.
	default:
		// Silent acquisition failed for an existing account: the call is
		// dropped before transmission and the reauthentication outcome
		// propagates to the caller.
		return nil, err
	}

	return t.next.RoundTrip(req)
}

// ListRequests returns development requests matching the filter.
func (c *Client) ListRequests(ctx context.Context, filter model.RequestFilter) ([]model.DevRequest, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.Type != "" {
		q.Set("type", string(filter.Type))
	}
	if filter.Priority != "" {
		q.Set("priority", string(filter.Priority))
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}

	var out []model.DevRequest
	if err := c.doJSON(ctx, http.MethodGet, c.url("/requests", q), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.DevRequest{}
	}
	return out, nil
}

// GetRequest returns a single development request with its comments and attachments.
func (c *Client) GetRequest(ctx context.Context, id int64) (*model.DevRequest, error) {
	var out model.DevRequest
	if err := c.doJSON(ctx, http.MethodGet, c.requestURL(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRequest submits a new development request. The backend assigns id,
// submitter identity, timestamps, and the initial "New" status.
func (c *Client) CreateRequest(ctx context.Context, req model.CreateRequest) (*model.DevRequest, error) {
	var out model.DevRequest
	if err := c.doJSON(ctx, http.MethodPost, c.url("/requests", nil), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRequest applies a partial update. Status transitions are server-
// authoritative; the client submits the requested status and displays whatever
// comes back.
func (c *Client) UpdateRequest(ctx context.Context, id int64, req model.UpdateRequest) (*model.DevRequest, error) {
	var out model.DevRequest
	if err := c.doJSON(ctx, http.MethodPut, c.requestURL(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRequest removes a development request.
func (c *Client) DeleteRequest(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, c.requestURL(id), nil, nil)
}

// AddComment appends a comment to a request.
func (c *Client) AddComment(ctx context.Context, id int64, content string) (*model.Comment, error) {
	body := struct {
		Content string `json:"content"`
	}{Content: content}

	var out model.Comment
	if err := c.doJSON(ctx, http.MethodPost, c.requestURL(id)+"/comments", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dashboard fetches the aggregate projection.
func (c *Client) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	var out model.Dashboard
	if err := c.doJSON(ctx, http.MethodGet, c.url("/dashboard", nil), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProjects returns the non-admin project view.
func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	return c.projectList(ctx, http.MethodGet, c.url("/projects", nil))
}

// ListProjectsAdmin returns the admin project view.
func (c *Client) ListProjectsAdmin(ctx context.Context) ([]model.Project, error) {
	return c.projectList(ctx, http.MethodGet, c.url("/admin/projects", nil))
}

// SyncProjects triggers a backend re-sync from GitHub and returns the
// refreshed projects.
func (c *Client) SyncProjects(ctx context.Context) ([]model.Project, error) {
	return c.projectList(ctx, http.MethodPost, c.url("/admin/projects/sync", nil))
}

// UpdateProject applies a partial admin update to project display metadata.
func (c *Client) UpdateProject(ctx context.Context, id int64, req model.UpdateProject) (*model.Project, error) {
	var out model.Project
	u := c.url("/admin/projects/"+strconv.FormatInt(id, 10), nil)
	if err := c.doJSON(ctx, http.MethodPut, u, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) projectList(ctx context.Context, method, u string) ([]model.Project, error) {
	var out []model.Project
	if err := c.doJSON(ctx, method, u, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Project{}
	}
	return out, nil
}

// url joins a path onto the API base with optional query parameters.
func (c *Client) url(path string, q url.Values) string {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) requestURL(id int64) string {
	return c.url("/requests/"+strconv.FormatInt(id, 10), nil)
}

// doJSON issues one request with a JSON body (when body != nil) and decodes a
// JSON response into out (when out != nil). Non-2xx responses become *APIError.
func (c *Client) doJSON(ctx context.Context, method, u string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return unwrapURLError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return readAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readAPIError drains a non-2xx response into an *APIError, preferring the
// backend's structured error body over the raw text.
func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var structured struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	message := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &structured); err == nil {
		if structured.Error != "" {
			message = structured.Error
		} else if structured.Message != "" {
			message = structured.Message
		}
	}

	return &APIError{Status: resp.StatusCode, Message: message}
}

// unwrapURLError strips the *url.Error wrapper http.Client adds so the
// session sentinels (ErrReauthRequired) survive errors.Is at the call site
// and transport errors propagate unchanged.
func unwrapURLError(err error) error {
	if uerr, ok := err.(*url.Error); ok {
		return uerr.Err
	}
	return err
}
