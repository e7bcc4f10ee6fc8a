package render_term

import (
	"bytes"
	"testing"
	"time"

	"github.com/davarch/ci-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiles(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	res := domain.Result{
		Projects: []domain.Project{
			{Name: "api", Path: "team/api", Status: domain.StatusFailed, PipelinePath: "/team/api/-/pipelines/7",
				FinishedAt: now.Add(-90 * time.Minute), Coverage: 72.5},
			{Name: "web", Path: "team/web", Status: domain.StatusRunning, CreatedAt: now.Add(-5 * time.Minute)},
		},
		ExceedPageLimit: true,
	}

	var buf bytes.Buffer
	require.NoError(t, Tiles(&buf, res, "https://gitlab.example.com/", now))
	out := buf.String()

	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "team/api")
	assert.Contains(t, out, "finished 1h ago")
	assert.Contains(t, out, "cov 72.5%")
	assert.Contains(t, out, "https://gitlab.example.com/team/api/-/pipelines/7")
	assert.Contains(t, out, "started 5m ago")
	assert.Contains(t, out, "results truncated")
}

func TestTiles_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Tiles(&buf, domain.EmptyResult(), "", time.Now()))
	assert.Contains(t, buf.String(), "no projects")
}
