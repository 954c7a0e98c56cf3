// Package workers runs the background machinery: the periodic job
// runner and the change-stream watchers.
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/parleyhq/parley/internal/app/system/tasks"
	"go.uber.org/zap"
)

// Runner executes a set of jobs, each on its own ticker.
type Runner struct {
	jobs   []tasks.Job
	log    *zap.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRunner creates a Runner for the given jobs.
func NewRunner(logger *zap.Logger, jobs ...tasks.Job) *Runner {
	return &Runner{
		jobs:   jobs,
		log:    logger,
		stopCh: make(chan struct{}),
	}
}

// Start launches one goroutine per job. Each job runs once immediately,
// then on its interval until Stop is called.
func (r *Runner) Start() {
	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(job)
	}
	r.log.Info("job runner started", zap.Int("jobs", len(r.jobs)))
}

// Stop signals all job loops to exit and waits for them to finish.
func (r *Runner) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	r.log.Info("job runner stopped")
}

func (r *Runner) loop(job tasks.Job) {
	defer r.wg.Done()

	r.runOnce(job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.runOnce(job)
		case <-r.stopCh:
			return
		}
	}
}

func (r *Runner) runOnce(job tasks.Job) {
	start := time.Now()
	if err := job.Run(context.Background()); err != nil {
		r.log.Error("job failed",
			zap.String("job", job.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}
	r.log.Debug("job finished",
		zap.String("job", job.Name),
		zap.Duration("elapsed", time.Since(start)))
}
