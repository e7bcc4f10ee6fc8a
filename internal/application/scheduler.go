package application

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scheduler polls on a fixed interval. After a failed round it waits an
// exponentially growing delay instead, never longer than the interval.
type Scheduler struct {
	log       *zap.Logger
	use       *PollUseCase
	every     time.Duration
	pauseFile string
	bo        *backoff.ExponentialBackOff

	mu    sync.RWMutex
	paths []string
}

func NewScheduler(l *zap.Logger, u *PollUseCase, paths []string, every time.Duration, pauseFile string) *Scheduler {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = every
	bo.MaxElapsedTime = 0
	bo.Reset()

	return &Scheduler{
		log: l, use: u, paths: paths, every: every, pauseFile: pauseFile, bo: bo,
	}
}

func (s *Scheduler) UpdatePaths(paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = paths
	s.log.Info("config reloaded", zap.Int("paths", len(paths)))
}

func (s *Scheduler) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTimer(0)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			t.Reset(s.tick(ctx))
		}
	}
}

// tick runs one round and returns the delay until the next one.
func (s *Scheduler) tick(ctx context.Context) time.Duration {
	if s.isPaused() {
		s.log.Debug("paused: skipping poll")
		return s.every
	}

	paths := s.Paths()
	if len(paths) == 0 {
		s.log.Warn("no enabled paths: skipping poll")
		return s.every
	}

	round := uuid.NewString()
	res, err := s.use.PollOnce(ctx, paths)
	if err != nil {
		wait := min(s.bo.NextBackOff(), s.every)
		s.log.Warn("poll failed",
			zap.String("round", round),
			zap.Strings("paths", paths),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
		return wait
	}

	s.bo.Reset()
	s.log.Info("poll ok",
		zap.String("round", round),
		zap.Int("projects", len(res.Projects)),
		zap.Bool("exceed_page_limit", res.ExceedPageLimit),
	)
	return s.every
}

func (s *Scheduler) isPaused() bool {
	if s.pauseFile == "" {
		return false
	}
	_, err := os.Stat(s.pauseFile)
	return err == nil
}
