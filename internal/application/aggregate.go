package application

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/davarch/ci-dashboard/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Aggregator resolves configured paths to projects and merges them into a
// single dashboard view.
type Aggregator struct {
	log     *zap.Logger
	src     domain.ProjectSource
	metrics domain.MetricsRecorder
}

func NewAggregator(l *zap.Logger, src domain.ProjectSource, m domain.MetricsRecorder) *Aggregator {
	if l == nil {
		l = zap.NewNop()
	}
	return &Aggregator{log: l, src: src, metrics: m}
}

// Resolve decides whether path names a project or a group. The project
// lookup runs first, so a project always wins over a group of the same name.
func (a *Aggregator) Resolve(ctx context.Context, path string) (domain.Resolution, error) {
	res, err := a.src.FetchProject(ctx, path)
	if err != nil {
		return domain.Resolution{}, err
	}
	if len(res.Projects) > 0 {
		return domain.Resolution{Kind: domain.ResolvedProject, Path: path, Result: res}, nil
	}

	res, err = a.src.FetchGroup(ctx, path)
	if err != nil {
		return domain.Resolution{}, err
	}
	if len(res.Projects) > 0 || res.ExceedPageLimit {
		return domain.Resolution{Kind: domain.ResolvedGroup, Path: path, Result: res}, nil
	}

	// An invalid token looks exactly like this too.
	a.log.Warn("path resolved to nothing (missing, no pipelines, or token rejected)",
		zap.String("path", path))

	return domain.Resolution{Kind: domain.NotFound, Path: path, Result: domain.EmptyResult()}, nil
}

// Aggregate resolves every path concurrently and waits for all of them. Any
// error fails the whole aggregation.
func (a *Aggregator) Aggregate(ctx context.Context, paths []string) (domain.Result, error) {
	start := time.Now()

	out, err := a.aggregate(ctx, paths)
	if a.metrics != nil {
		a.metrics.RecordAggregation(ctx, out, time.Since(start), err)
	}
	if err != nil {
		return domain.Result{}, err
	}

	a.log.Debug("aggregated",
		zap.Int("paths", len(paths)),
		zap.Int("projects", len(out.Projects)),
		zap.Bool("exceed_page_limit", out.ExceedPageLimit),
		zap.Duration("took", time.Since(start)),
	)
	return out, nil
}

func (a *Aggregator) aggregate(ctx context.Context, paths []string) (domain.Result, error) {
	resolved := make([]domain.Resolution, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			r, err := a.Resolve(gctx, p)
			if err != nil {
				return err
			}
			resolved[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Result{}, err
	}

	out := domain.EmptyResult()
	for _, r := range resolved {
		out.Projects = append(out.Projects, r.Result.Projects...)
		out.ExceedPageLimit = out.ExceedPageLimit || r.Result.ExceedPageLimit
	}
	SortProjects(out.Projects)

	return out, nil
}

// SortProjects orders by status name, and by most recently finished within
// each status. Unfinished pipelines count as the oldest.
func SortProjects(ps []domain.Project) {
	slices.SortStableFunc(ps, func(a, b domain.Project) int {
		return b.FinishedAt.Compare(a.FinishedAt)
	})
	slices.SortStableFunc(ps, func(a, b domain.Project) int {
		return cmp.Compare(a.Status, b.Status)
	})
}
