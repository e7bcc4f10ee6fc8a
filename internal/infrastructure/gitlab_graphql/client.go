package gitlab_graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/davarch/ci-dashboard/internal/domain"
)

// Client queries the GitLab GraphQL API. It issues exactly one request per
// call and never retries.
type Client struct {
	baseUrl string
	token   string
	hc      *http.Client
}

func New(baseUrl string, token string, timeout time.Duration) *Client {
	tr := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseUrl: strings.TrimRight(baseUrl, "/"),
		token:   token,
		hc:      &http.Client{Transport: tr, Timeout: timeout},
	}
}

type pipelineDTO struct {
	ID             string `json:"id"`
	DetailedStatus struct {
		DetailsPath string `json:"detailsPath"`
	} `json:"detailedStatus"`
	Status     string     `json:"status"`
	FinishedAt *time.Time `json:"finishedAt"`
	CreatedAt  *time.Time `json:"createdAt"`
	Coverage   *float64   `json:"coverage"`
}

type projectDTO struct {
	Name      string `json:"name"`
	FullPath  string `json:"fullPath"`
	WebURL    string `json:"webUrl"`
	Pipelines struct {
		Nodes []pipelineDTO `json:"nodes"`
	} `json:"pipelines"`
}

type groupDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Projects struct {
		PageInfo struct {
			HasNextPage bool `json:"hasNextPage"`
		} `json:"pageInfo"`
		Nodes []projectDTO `json:"nodes"`
	} `json:"projects"`
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type groupData struct {
	Group *groupDTO `json:"group"`
}

type projectData struct {
	Project *projectDTO `json:"project"`
}

func (c *Client) FetchGroup(ctx context.Context, groupPath string) (domain.Result, error) {
	var data groupData
	if err := c.query(ctx, groupQuery(groupPath), &data); err != nil {
		return domain.Result{}, fmt.Errorf("group %q: %w", groupPath, err)
	}

	// GitLab answers an invalid token the same way as a missing group:
	// a well-formed response without the object.
	g := data.Group
	if g == nil {
		return domain.EmptyResult(), nil
	}

	out := domain.EmptyResult()
	for _, p := range g.Projects.Nodes {
		if !hasPipelines(p) {
			continue
		}
		out.Projects = append(out.Projects, toProject(p))
	}
	out.ExceedPageLimit = g.Projects.PageInfo.HasNextPage

	return out, nil
}

func (c *Client) FetchProject(ctx context.Context, projectPath string) (domain.Result, error) {
	var data projectData
	if err := c.query(ctx, projectQuery(projectPath), &data); err != nil {
		return domain.Result{}, fmt.Errorf("project %q: %w", projectPath, err)
	}

	p := data.Project
	if p == nil || !hasPipelines(*p) {
		return domain.EmptyResult(), nil
	}

	return domain.Result{Projects: []domain.Project{toProject(*p)}}, nil
}

func (c *Client) query(ctx context.Context, q string, out any) error {
	body, err := json.Marshal(map[string]string{"query": q})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+"/api/graphql", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("gitlab %s", resp.Status)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	// Partial data next to errors is still usable; errors alone are not.
	if len(env.Data) == 0 || string(env.Data) == "null" {
		if len(env.Errors) > 0 {
			return fmt.Errorf("graphql: %s", env.Errors[0].Message)
		}
		return errors.New("graphql: response has no data")
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func hasPipelines(p projectDTO) bool { return len(p.Pipelines.Nodes) > 0 }

func toProject(p projectDTO) domain.Project {
	pl := p.Pipelines.Nodes[0]

	out := domain.Project{
		Name:         p.Name,
		Path:         p.FullPath,
		ProjectURL:   p.WebURL,
		Status:       domain.ProjectStatus(strings.ToUpper(pl.Status)),
		PipelinePath: pl.DetailedStatus.DetailsPath,
	}
	if pl.FinishedAt != nil {
		out.FinishedAt = *pl.FinishedAt
	}
	if pl.CreatedAt != nil {
		out.CreatedAt = *pl.CreatedAt
	}
	if pl.Coverage != nil {
		out.Coverage = *pl.Coverage
	}

	return out
}
