package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/davarch/ci-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t1 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 = t1.Add(time.Hour)
	t3 = t2.Add(time.Hour)
)

func proj(path string, s domain.ProjectStatus, finished time.Time) domain.Project {
	return domain.Project{Name: path, Path: path, Status: s, FinishedAt: finished}
}

func statusesAndPaths(ps []domain.Project) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, string(p.Status)+":"+p.Path)
	}
	return out
}

func TestAggregate_MergesAndSorts(t *testing.T) {
	src := &domain.MockSource{
		Groups: map[string]domain.Result{
			"team": {Projects: []domain.Project{
				proj("team/a", domain.StatusRunning, t1),
				proj("team/b", domain.StatusSuccess, t3),
			}},
		},
		Projects: map[string]domain.Result{
			"other/c": {Projects: []domain.Project{proj("other/c", domain.StatusFailed, t2)}},
		},
	}
	agg := NewAggregator(nil, src, nil)

	res, err := agg.Aggregate(context.Background(), []string{"team", "other/c"})
	require.NoError(t, err)

	assert.Equal(t, []string{"FAILED:other/c", "RUNNING:team/a", "SUCCESS:team/b"}, statusesAndPaths(res.Projects))
	assert.False(t, res.ExceedPageLimit)
}

func TestAggregate_ProjectProbeWins(t *testing.T) {
	src := &domain.MockSource{
		Projects: map[string]domain.Result{
			"team/api": {Projects: []domain.Project{proj("team/api", domain.StatusSuccess, t1)}},
		},
		Groups: map[string]domain.Result{
			"team/api": {Projects: []domain.Project{proj("team/api/x", domain.StatusFailed, t1)}},
		},
	}
	agg := NewAggregator(nil, src, nil)

	r, err := agg.Resolve(context.Background(), "team/api")
	require.NoError(t, err)
	assert.Equal(t, domain.ResolvedProject, r.Kind)
	require.Len(t, r.Result.Projects, 1)

	projects, groups := src.Calls()
	assert.Equal(t, []string{"team/api"}, projects)
	assert.Empty(t, groups, "group query must not run once the project probe succeeds")
}

func TestResolve_FallsBackToGroup(t *testing.T) {
	src := &domain.MockSource{
		Groups: map[string]domain.Result{
			"team": {Projects: []domain.Project{proj("team/a", domain.StatusSuccess, t1)}, ExceedPageLimit: true},
		},
	}
	agg := NewAggregator(nil, src, nil)

	r, err := agg.Resolve(context.Background(), "team")
	require.NoError(t, err)
	assert.Equal(t, domain.ResolvedGroup, r.Kind)
	assert.True(t, r.Result.ExceedPageLimit)

	projects, groups := src.Calls()
	assert.Equal(t, []string{"team"}, projects)
	assert.Equal(t, []string{"team"}, groups)
}

func TestResolve_NotFound(t *testing.T) {
	agg := NewAggregator(nil, &domain.MockSource{}, nil)

	r, err := agg.Resolve(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, domain.NotFound, r.Kind)
	assert.Equal(t, domain.EmptyResult(), r.Result)
}

func TestAggregate_EmptyGroupYieldsCanonicalEmpty(t *testing.T) {
	src := &domain.MockSource{Groups: map[string]domain.Result{"empty": domain.EmptyResult()}}
	agg := NewAggregator(nil, src, nil)

	res, err := agg.Aggregate(context.Background(), []string{"empty"})
	require.NoError(t, err)
	assert.Equal(t, domain.EmptyResult(), res)
}

func TestAggregate_NoPaths(t *testing.T) {
	res, err := NewAggregator(nil, &domain.MockSource{}, nil).Aggregate(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, res.Projects)
	assert.Empty(t, res.Projects)
}

func TestAggregate_ExceedPageLimitIsOr(t *testing.T) {
	src := &domain.MockSource{
		Groups: map[string]domain.Result{
			"g1": {Projects: []domain.Project{proj("g1/a", domain.StatusSuccess, t1)}},
			"g2": {Projects: []domain.Project{proj("g2/a", domain.StatusSuccess, t2)}, ExceedPageLimit: true},
			"g3": {Projects: []domain.Project{proj("g3/a", domain.StatusSuccess, t3)}},
		},
	}

	res, err := NewAggregator(nil, src, nil).Aggregate(context.Background(), []string{"g1", "g2", "g3"})
	require.NoError(t, err)
	assert.True(t, res.ExceedPageLimit)
	assert.Len(t, res.Projects, 3)
}

func TestAggregate_DuplicatesAreKept(t *testing.T) {
	shared := proj("shared/p", domain.StatusSuccess, t1)
	src := &domain.MockSource{
		Groups: map[string]domain.Result{
			"g1": {Projects: []domain.Project{shared}},
			"g2": {Projects: []domain.Project{shared, proj("g2/x", domain.StatusFailed, t2)}},
		},
	}

	res, err := NewAggregator(nil, src, nil).Aggregate(context.Background(), []string{"g1", "g2"})
	require.NoError(t, err)
	assert.Len(t, res.Projects, 3)
}

func TestAggregate_AnyErrorFailsAll(t *testing.T) {
	boom := errors.New("connection reset")
	src := &domain.MockSource{
		Groups: map[string]domain.Result{"ok": {Projects: []domain.Project{proj("ok/a", domain.StatusSuccess, t1)}}},
		Err:    map[string]error{"bad": boom},
	}
	m := &domain.MockMetrics{}

	res, err := NewAggregator(nil, src, m).Aggregate(context.Background(), []string{"ok", "bad"})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, res.Projects)
	assert.Equal(t, 1, m.Errors)
}

func TestAggregate_RecordsMetrics(t *testing.T) {
	src := &domain.MockSource{
		Projects: map[string]domain.Result{"p": {Projects: []domain.Project{proj("p", domain.StatusSuccess, t1)}}},
	}
	m := &domain.MockMetrics{}

	_, err := NewAggregator(nil, src, m).Aggregate(context.Background(), []string{"p"})
	require.NoError(t, err)
	require.Len(t, m.Results, 1)
	assert.Len(t, m.Results[0].Projects, 1)
}

func TestSortProjects(t *testing.T) {
	ps := []domain.Project{
		proj("s-old", domain.StatusSuccess, t1),
		proj("r-unfinished", domain.StatusRunning, time.Time{}),
		proj("s-new", domain.StatusSuccess, t3),
		proj("f-old", domain.StatusFailed, t1),
		proj("k", domain.StatusSkipped, t2),
		proj("r-done", domain.StatusRunning, t2),
		proj("f-new", domain.StatusFailed, t2),
	}

	SortProjects(ps)

	assert.Equal(t, []string{
		"FAILED:f-new",
		"FAILED:f-old",
		"RUNNING:r-done",
		"RUNNING:r-unfinished",
		"SKIPPED:k",
		"SUCCESS:s-new",
		"SUCCESS:s-old",
	}, statusesAndPaths(ps))
}

func TestSortProjects_TiesKeepMergeOrder(t *testing.T) {
	ps := []domain.Project{
		proj("first", domain.StatusSuccess, t1),
		proj("second", domain.StatusSuccess, t1),
	}

	SortProjects(ps)

	assert.Equal(t, "first", ps[0].Path)
	assert.Equal(t, "second", ps[1].Path)
}
