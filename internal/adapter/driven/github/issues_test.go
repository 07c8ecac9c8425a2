package github_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghAdapter "github.com/mwalcott/reqtrack/internal/adapter/driven/github"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) *ghAdapter.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := ghAdapter.NewClientWithHTTPClient(server.Client(), server.URL+"/")
	require.NoError(t, err)

	return client
}

// issueJSON is a helper struct for building GitHub API issue responses.
type issueJSON struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
}

func TestIssueStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/api/issues/17", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(issueJSON{
			Number:  17,
			Title:   "Export fails for large files",
			State:   "open",
			HTMLURL: "https://github.com/acme/api/issues/17",
		}))
	})
	client := newTestClient(t, handler)

	status, err := client.IssueStatus(context.Background(), "acme/api", 17)

	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, 17, status.Number)
	assert.Equal(t, "Export fails for large files", status.Title)
	assert.Equal(t, "open", status.State)
	assert.Equal(t, "https://github.com/acme/api/issues/17", status.HTMLURL)
}

func TestIssueStatus_ClosedIssue(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(issueJSON{Number: 5, State: "closed"}))
	})
	client := newTestClient(t, handler)

	status, err := client.IssueStatus(context.Background(), "acme/api", 5)

	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "closed", status.State)
}

func TestIssueStatus_NotFoundIsNotAnError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	})
	client := newTestClient(t, handler)

	status, err := client.IssueStatus(context.Background(), "acme/api", 999)

	require.NoError(t, err)
	assert.Nil(t, status, "invisible issues degrade to no status, not an error")
}

func TestIssueStatus_ForbiddenIsNotAnError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Forbidden"}`, http.StatusForbidden)
	})
	client := newTestClient(t, handler)

	status, err := client.IssueStatus(context.Background(), "acme/private", 1)

	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestIssueStatus_ServerErrorPropagates(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "boom"}`, http.StatusInternalServerError)
	})
	client := newTestClient(t, handler)

	_, err := client.IssueStatus(context.Background(), "acme/api", 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme/api#1")
}

func TestIssueStatus_InvalidRepoName(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no API call expected for a malformed repo name")
	})
	client := newTestClient(t, handler)

	_, err := client.IssueStatus(context.Background(), "not-a-full-name", 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected owner/repo")
}
