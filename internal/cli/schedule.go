package cli

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/BartekS5/commentflow/internal/config"
	"github.com/BartekS5/commentflow/pkg/logger"
)

// scheduler fires run on each tick unless the previous run is still going.
// Missed ticks are not caught up.
type scheduler struct {
	key string // video id, for logs
	run func(ctx context.Context, day time.Time) error
	now func() time.Time

	mu   sync.Mutex
	done chan struct{} // non-nil while a run is active
}

// begin claims the single run slot.
func (s *scheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return false
	}
	s.done = make(chan struct{})
	return true
}

func (s *scheduler) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.done)
	s.done = nil
}

// drain blocks until the active run, if any, finishes or ctx is done.
func (s *scheduler) drain(ctx context.Context) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// tick reports whether a run was started.
func (s *scheduler) tick(ctx context.Context) bool {
	log := logger.Named("scheduler")
	if !s.begin() {
		log.Warn().Str("video", s.key).Msg("previous run still active, skipping tick")
		return false
	}
	defer s.end()

	day := s.now().UTC()
	log.Info().Str("video", s.key).Str("date", day.Format("2006-01-02")).Msg("scheduled run starting")
	if err := s.run(ctx, day); err != nil {
		log.Error().Err(err).Str("video", s.key).Msg("scheduled run failed")
	}
	return true
}

func runSchedule(cmd *cobra.Command, opts *Options, expr string, runNow bool) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if expr == "" {
		expr = cfg.Schedule
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	s := &scheduler{
		key: cfg.VideoID,
		now: time.Now,
		run: func(ctx context.Context, day time.Time) error {
			// Re-read config on every tick so .env / job file edits apply.
			fresh, err := loadConfig(opts)
			if err != nil {
				return err
			}
			secrets, err := secretStore(opts)
			if err != nil {
				return err
			}
			return pipelineRun(ctx, fresh, secrets, day, false, out)
		},
	}
	return serve(ctx, cfg, s, expr, runNow)
}

func serve(ctx context.Context, cfg *config.Config, s *scheduler, expr string, runNow bool) error {
	log := logger.Named("scheduler")
	c := cron.New()
	if _, err := c.AddFunc(expr, func() { s.tick(ctx) }); err != nil {
		return err
	}
	c.Start()
	log.Info().Str("cron", expr).Str("video", cfg.VideoID).Msg("scheduler started")

	if runNow {
		go s.tick(ctx)
	}

	<-ctx.Done()
	stopCtx := c.Stop()
	waitCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	select {
	case <-stopCtx.Done():
	case <-waitCtx.Done():
	}
	s.drain(waitCtx)
	log.Info().Msg("scheduler stopped")
	return nil
}
