package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielolaszy/prlink/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devFieldValue = `{pullrequest={dataType=pullrequest, state=OPEN, stateCount=2}, json={"cachedValue":{"errors":[],"summary":{"pullrequest":{"overall":{"count":2,"lastUpdated":"2024-03-01T10:00:00.000+0000","stateCount":2,"state":"OPEN","dataType":"pullrequest","open":true},"byInstanceType":{"GitHub":{"count":2,"name":"GitHub"}}}}},"isStale":false}}`

const devStatusBody = `{
  "errors": [],
  "detail": [
    {
      "pullRequests": [
        {
          "id": "#42",
          "name": "ABC-123: fix login bug",
          "url": "https://github.com/acme/web/pull/42",
          "status": "MERGED",
          "author": {"name": "dev1"},
          "source": {"branch": "feature/ABC-123-login"},
          "destination": {"branch": "main"},
          "repositoryName": "acme/web",
          "repositoryUrl": "https://github.com/acme/web",
          "lastUpdate": "2024-03-01T10:00:00.000+0000",
          "commentCount": 3,
          "reviewers": [{"name": "rev1"}, {"name": "rev2"}]
        },
        {"id": "not-a-number", "name": "broken"}
      ]
    }
  ]
}`

// newTestClient starts a JIRA stub serving the given routes.
func newTestClient(t *testing.T, routes map[string]http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := newClient(server.Client(), config.JiraConfig{URL: server.URL})
	require.NoError(t, err)
	return client
}

func writeJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, `{"errorMessages":["Issue does not exist"]}`, http.StatusNotFound)
}

func TestJiraClientCredentialValidation(t *testing.T) {
	testCases := []struct {
		name          string
		url           string
		username      string
		token         string
		errorContains string
	}{
		{name: "Missing URL", url: "", username: "test@example.com", token: "test-token", errorContains: "JIRA_URL"},
		{name: "Missing username", url: "https://example.atlassian.net", username: "", token: "test-token", errorContains: "JIRA_USERNAME"},
		{name: "Missing token", url: "https://example.atlassian.net", username: "test@example.com", token: "", errorContains: "JIRA_TOKEN"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{Jira: config.JiraConfig{URL: tc.url, Username: tc.username, Token: tc.token}}
			_, err := NewClient(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errorContains)
		})
	}
}

func TestNewClientDefaults(t *testing.T) {
	cfg := &config.Config{Jira: config.JiraConfig{
		URL:      "https://example.atlassian.net",
		Username: "test@example.com",
		Token:    "test-token",
	}}

	client, err := NewClient(cfg)
	require.NoError(t, err)
	assert.Equal(t, "GitHub", client.devStatusApplication)
	assert.Equal(t, "customfield_10000", client.developmentField)
}

func TestRemoteLinks(t *testing.T) {
	client := newTestClient(t, map[string]http.HandlerFunc{
		"/rest/api/2/issue/ABC-123/remotelink": writeJSON(`[
			{"id": 1, "object": {"url": "https://github.com/acme/web/pull/7", "title": "Login fix"}},
			{"id": 2, "object": {"url": "", "title": "empty"}},
			{"id": 3}
		]`),
	})

	links, err := client.RemoteLinks(context.Background(), "ABC-123")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://github.com/acme/web/pull/7", links[0].URL)
	assert.Equal(t, "Login fix", links[0].Title)
}

func TestRemoteLinksError(t *testing.T) {
	client := newTestClient(t, map[string]http.HandlerFunc{
		"/rest/api/2/issue/ABC-123/remotelink": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})

	_, err := client.RemoteLinks(context.Background(), "ABC-123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestDevelopmentInfo(t *testing.T) {
	body := fmt.Sprintf(`{"id": "10001", "key": "ABC-123", "fields": {"customfield_10000": %q}}`, devFieldValue)
	client := newTestClient(t, map[string]http.HandlerFunc{
		"/rest/api/2/issue/ABC-123": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "customfield_10000", r.URL.Query().Get("fields"))
			writeJSON(body)(w, r)
		},
	})

	info, err := client.DevelopmentInfo(context.Background(), "ABC-123")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.HasPRs)
	assert.Equal(t, 2, info.PRCount)
	assert.Equal(t, "OPEN", info.PRState)
	assert.Equal(t, []string{"GitHub"}, info.Sources)
}

func TestDevelopmentInfoMissingField(t *testing.T) {
	client := newTestClient(t, map[string]http.HandlerFunc{
		"/rest/api/2/issue/ABC-123": writeJSON(`{"id": "10001", "fields": {"customfield_10000": null}}`),
	})

	info, err := client.DevelopmentInfo(context.Background(), "ABC-123")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestDevStatusPullRequests(t *testing.T) {
	client := newTestClient(t, map[string]http.HandlerFunc{
		"/rest/api/2/issue/ABC-123": writeJSON(`{"id": "10001", "key": "ABC-123", "fields": {}}`),
		"/rest/dev-status/latest/issue/detail": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "10001", r.URL.Query().Get("issueId"))
			assert.Equal(t, "GitHub", r.URL.Query().Get("applicationType"))
			assert.Equal(t, "pullrequest", r.URL.Query().Get("dataType"))
			writeJSON(devStatusBody)(w, r)
		},
	})

	prs, err := client.DevStatusPullRequests(context.Background(), "ABC-123")
	require.NoError(t, err)
	require.Len(t, prs, 1)

	pr := prs[0]
	assert.Equal(t, 42, pr.ID)
	assert.Equal(t, "ABC-123: fix login bug", pr.Name)
	assert.Equal(t, "MERGED", pr.Status)
	assert.Equal(t, "dev1", pr.Author)
	assert.Equal(t, "feature/ABC-123-login", pr.SourceBranch)
	assert.Equal(t, "main", pr.DestinationBranch)
	assert.Equal(t, "acme/web", pr.RepositoryName)
	assert.Equal(t, 3, pr.CommentCount)
	assert.Equal(t, []string{"rev1", "rev2"}, pr.Reviewers)
	require.NotNil(t, pr.LastUpdate)
	assert.Equal(t, 2024, pr.LastUpdate.Year())
}

func TestDevStatusUnavailable(t *testing.T) {
	client := newTestClient(t, map[string]http.HandlerFunc{
		"/rest/api/2/issue/ABC-123":              writeJSON(`{"id": "10001", "fields": {}}`),
		"/rest/dev-status/latest/issue/detail": notFound,
	})

	prs, err := client.DevStatusPullRequests(context.Background(), "ABC-123")
	require.NoError(t, err)
	assert.Empty(t, prs)
}

func TestDevStatusServerError(t *testing.T) {
	client := newTestClient(t, map[string]http.HandlerFunc{
		"/rest/api/2/issue/ABC-123": writeJSON(`{"id": "10001", "fields": {}}`),
		"/rest/dev-status/latest/issue/detail": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		},
	})

	_, err := client.DevStatusPullRequests(context.Background(), "ABC-123")
	assert.Error(t, err)
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}

	_, err := client.RemoteLinks(context.Background(), "ABC-123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}
