package gitlab_graphql

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/davarch/ci-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	method string
	path   string
	auth   string
	ctype  string
	query  string
	calls  int
}

func fakeGitLab(t *testing.T, status int, body string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls++
		c.method = r.Method
		c.path = r.URL.Path
		c.auth = r.Header.Get("Authorization")
		c.ctype = r.Header.Get("Content-Type")

		raw, _ := io.ReadAll(r.Body)
		var req struct {
			Query string `json:"query"`
		}
		_ = json.Unmarshal(raw, &req)
		c.query = req.Query

		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

const groupBody = `{"data":{"group":{"id":"gid://gitlab/Group/1","name":"team","projects":{
  "pageInfo":{"hasNextPage":true},
  "nodes":[
    {"name":"api","fullPath":"team/api","webUrl":"https://gl/team/api","pipelines":{"nodes":[
      {"id":"gid://gitlab/Ci::Pipeline/10","detailedStatus":{"detailsPath":"/team/api/-/pipelines/10"},
       "status":"FAILED","finishedAt":"2024-03-01T10:00:00Z","createdAt":"2024-03-01T09:50:00Z","coverage":81.5}]}},
    {"name":"docs","fullPath":"team/docs","webUrl":"https://gl/team/docs","pipelines":{"nodes":[]}},
    {"name":"web","fullPath":"team/sub/web","webUrl":"https://gl/team/sub/web","pipelines":{"nodes":[
      {"id":"gid://gitlab/Ci::Pipeline/11","detailedStatus":{"detailsPath":"/team/sub/web/-/pipelines/11"},
       "status":"RUNNING","finishedAt":null,"createdAt":"2024-03-02T08:00:00Z","coverage":null}]}}
  ]}}}}`

func TestFetchGroup_MapsProjectsAndDropsEmptyOnes(t *testing.T) {
	srv, got := fakeGitLab(t, http.StatusOK, groupBody)
	c := New(srv.URL+"/", "secret", 5*time.Second)

	res, err := c.FetchGroup(context.Background(), "team")
	require.NoError(t, err)

	assert.Equal(t, 1, got.calls)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/graphql", got.path)
	assert.Equal(t, "Bearer secret", got.auth)
	assert.Equal(t, "application/json", got.ctype)
	assert.Contains(t, got.query, `group(fullPath: "team")`)
	assert.Contains(t, got.query, "includeSubgroups: true")
	assert.Contains(t, got.query, "pipelines(first: 1)")

	assert.True(t, res.ExceedPageLimit)
	require.Len(t, res.Projects, 2)

	api := res.Projects[0]
	assert.Equal(t, "api", api.Name)
	assert.Equal(t, "team/api", api.Path)
	assert.Equal(t, "https://gl/team/api", api.ProjectURL)
	assert.Equal(t, domain.StatusFailed, api.Status)
	assert.Equal(t, "/team/api/-/pipelines/10", api.PipelinePath)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), api.FinishedAt.UTC())
	assert.Equal(t, 81.5, api.Coverage)

	web := res.Projects[1]
	assert.Equal(t, domain.StatusRunning, web.Status)
	assert.True(t, web.FinishedAt.IsZero())
	assert.Equal(t, 0.0, web.Coverage)
}

func TestFetchGroup_MissingGroupIsEmpty(t *testing.T) {
	srv, _ := fakeGitLab(t, http.StatusOK, `{"data":{"group":null}}`)
	c := New(srv.URL, "bad-token", time.Second)

	res, err := c.FetchGroup(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, domain.EmptyResult(), res)
	assert.NotNil(t, res.Projects)
}

func TestFetchProject(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLen int
	}{
		{
			name: "project with pipeline",
			body: `{"data":{"project":{"name":"api","fullPath":"team/api","webUrl":"u","pipelines":{"nodes":[
				{"id":"1","detailedStatus":{"detailsPath":"/p/1"},"status":"SUCCESS","finishedAt":"2024-01-01T00:00:00Z","createdAt":"2024-01-01T00:00:00Z"}]}}}}`,
			wantLen: 1,
		},
		{
			name:    "project without pipelines",
			body:    `{"data":{"project":{"name":"api","fullPath":"team/api","webUrl":"u","pipelines":{"nodes":[]}}}}`,
			wantLen: 0,
		},
		{
			name:    "missing project",
			body:    `{"data":{"project":null}}`,
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := fakeGitLab(t, http.StatusOK, tt.body)
			c := New(srv.URL, "k", time.Second)

			res, err := c.FetchProject(context.Background(), "team/api")
			require.NoError(t, err)
			assert.Len(t, res.Projects, tt.wantLen)
			assert.False(t, res.ExceedPageLimit)
			assert.Contains(t, got.query, `project(fullPath: "team/api")`)
			assert.Equal(t, 1, got.calls)
		})
	}
}

func TestFetchProject_CoverageAbsentIsZero(t *testing.T) {
	body := `{"data":{"project":{"name":"api","fullPath":"team/api","webUrl":"u","pipelines":{"nodes":[
		{"id":"1","detailedStatus":{"detailsPath":"/p/1"},"status":"SKIPPED","createdAt":"2024-01-01T00:00:00Z"}]}}}}`
	srv, _ := fakeGitLab(t, http.StatusOK, body)

	res, err := New(srv.URL, "k", time.Second).FetchProject(context.Background(), "team/api")
	require.NoError(t, err)
	require.Len(t, res.Projects, 1)
	assert.Equal(t, 0.0, res.Projects[0].Coverage)
	assert.Equal(t, domain.StatusSkipped, res.Projects[0].Status)
}

func TestTransportFailuresPropagate(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `oops`},
		{"unauthorized", http.StatusUnauthorized, `{"message":"401"}`},
		{"malformed body", http.StatusOK, `{"data":`},
		{"graphql errors only", http.StatusOK, `{"errors":[{"message":"syntax error"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := fakeGitLab(t, tt.status, tt.body)
			c := New(srv.URL, "k", time.Second)

			_, err := c.FetchGroup(context.Background(), "team")
			require.Error(t, err)
			assert.Equal(t, 1, got.calls, "no retries")
		})
	}
}

func TestTransportFailure_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, "k", time.Second).FetchProject(context.Background(), "team/api")
	assert.Error(t, err)
}

func TestQuote_EscapesPath(t *testing.T) {
	q := groupQuery(`evil") { x } #`)
	assert.Contains(t, q, `group(fullPath: "evil\") { x } #")`)
}
