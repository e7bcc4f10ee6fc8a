package cli

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/davarch/ci-dashboard/internal/application"
	"github.com/davarch/ci-dashboard/internal/infrastructure/cache_fs"
	"github.com/davarch/ci-dashboard/internal/infrastructure/config"
	"github.com/davarch/ci-dashboard/internal/infrastructure/logging"
	"github.com/davarch/ci-dashboard/internal/infrastructure/notify_libnotify"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run polling scheduler (notifications + waybar cache)",
	Run: func(cmd *cobra.Command, args []string) {
		log := logging.New()
		defer func() { _ = log.Sync() }()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			log.Fatal("config", zap.Error(err))
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		m := newMetrics(ctx, log, cfg)
		defer func() { _ = m.Close(context.Background()) }()

		note := notify_libnotify.NewSoft().WithOptions(notify_libnotify.Options{Expire: 10 * time.Second})
		cache := cache_fs.New(cfg.Cache.Path)

		uc := application.NewPollUseCase(log, newAggregator(log, cfg, m), note, cache, cfg.GitLab.BaseURL)

		paths := cfg.EnabledPaths()
		if len(paths) == 0 {
			log.Fatal("no enabled paths")
		}

		sched := application.NewScheduler(log, uc, paths, cfg.Poll.Interval, cfg.Poll.PauseFile)
		watchAndReload(ctx, cfgPath, log, sched)

		log.Info("start",
			zap.String("version", version),
			zap.Int("paths", len(paths)),
			zap.Duration("every", cfg.Poll.Interval),
			zap.String("cache", cfg.Cache.Path),
			zap.String("gitlab", cfg.GitLab.BaseURL),
			zap.String("pause_file", cfg.Poll.PauseFile),
		)
		sched.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// watchAndReload pushes the enabled path list into sched whenever the config
// file changes. Editors often write in bursts, so events are debounced.
func watchAndReload(ctx context.Context, cfgPath string, log *zap.Logger, sched *application.Scheduler) {
	if cfgPath == "" {
		return
	}

	dir := filepath.Dir(cfgPath)
	base := filepath.Base(cfgPath)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("fsnotify init failed", zap.Error(err))
		return
	}

	if err := w.Add(dir); err != nil {
		log.Warn("fsnotify add dir failed", zap.String("dir", dir), zap.Error(err))
		_ = w.Close()
		return
	}

	reload := func() {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			log.Warn("config reload failed", zap.Error(err))
			return
		}
		paths := cfg.EnabledPaths()
		if len(paths) == 0 {
			log.Warn("config reload: no enabled paths")
		}
		sched.UpdatePaths(paths)
	}

	go func() {
		defer func() { _ = w.Close() }()

		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.AfterFunc(300*time.Millisecond, reload)
				} else {
					timer.Reset(300 * time.Millisecond)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("fsnotify error", zap.Error(err))
			}
		}
	}()
}
