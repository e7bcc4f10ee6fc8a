package application

import (
	"context"
	"time"

	"github.com/davarch/ci-dashboard/internal/domain"
	"go.uber.org/zap"
)

// PollUseCase runs one aggregation, refreshes the status cache and notifies
// about status transitions.
type PollUseCase struct {
	log     *zap.Logger
	agg     *Aggregator
	note    domain.Notifier
	cache   domain.StatusCache
	baseURL string

	last map[string]domain.ProjectStatus
}

func NewPollUseCase(l *zap.Logger, agg *Aggregator, note domain.Notifier, cache domain.StatusCache, baseURL string) *PollUseCase {
	if l == nil {
		l = zap.NewNop()
	}
	return &PollUseCase{
		log: l, agg: agg, note: note, cache: cache, baseURL: baseURL,
		last: make(map[string]domain.ProjectStatus),
	}
}

func (uc *PollUseCase) PollOnce(ctx context.Context, paths []string) (domain.Result, error) {
	res, err := uc.agg.Aggregate(ctx, paths)
	if err != nil {
		return domain.Result{}, err
	}

	if err := uc.cache.Write(ctx, domain.Snapshot{Result: res, Retrieved: time.Now().Unix()}); err != nil {
		uc.log.Warn("cache write failed", zap.Error(err))
	}

	for _, p := range res.Projects {
		prev, seen := uc.last[p.Path]
		uc.last[p.Path] = p.Status

		if seen && prev == p.Status {
			continue
		}
		// First sightings only matter when they are already broken.
		if !seen && p.Status != domain.StatusFailed {
			continue
		}

		if err := uc.note.Notify(ctx, titleFor(p.Status), p.Path, p.PipelineURL(uc.baseURL)); err != nil {
			uc.log.Warn("notify failed", zap.String("path", p.Path), zap.Error(err))
		}
	}

	return res, nil
}

func titleFor(s domain.ProjectStatus) string {
	switch s {
	case domain.StatusSuccess:
		return "✅ CI: success"
	case domain.StatusFailed:
		return "❌ CI: failed"
	case domain.StatusRunning:
		return "▶️ CI: running"
	case domain.StatusSkipped:
		return "⏭️ CI: skipped"
	default:
		return "ℹ️ CI: " + string(s)
	}
}
