// Package cronrunner schedules the engine's calendar jobs, such as the
// midnight daily-quest reset.
package cronrunner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Runner wraps a seconds-precision cron scheduler. Jobs receive the base
// context given to New.
type Runner struct {
	cron    *cron.Cron
	baseCtx context.Context
}

func New(baseCtx context.Context, opts ...cron.Option) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	opts = append([]cron.Option{cron.WithSeconds()}, opts...)
	return &Runner{
		cron:    cron.New(opts...),
		baseCtx: baseCtx,
	}
}

// Add registers job under name on spec (six fields, seconds first).
func (r *Runner) Add(name, spec string, job func(context.Context) error) (cron.EntryID, error) {
	id, err := r.cron.AddFunc(spec, func() {
		if r.baseCtx.Err() != nil {
			return
		}
		if err := job(r.baseCtx); err != nil {
			slog.Error("cron job failed", "job", name, "err", err)
			return
		}
		slog.Info("cron job done", "job", name)
	})
	if err != nil {
		return 0, fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	return id, nil
}

// Entries returns the number of scheduled jobs.
func (r *Runner) Entries() int { return len(r.cron.Entries()) }

func (r *Runner) Start() {
	slog.Info("cron started", "jobs", r.Entries())
	r.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	slog.Info("cron stopped")
}
