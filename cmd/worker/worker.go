package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"recordhub/internal/infrastructure/metrics"
	"recordhub/pkg/logger"
)

// Job is one scheduled unit of work.
type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Worker runs jobs on cron schedules. A job is skipped while its previous run is active.
type Worker struct {
	log  *logger.Logger
	cron *cron.Cron
}

// NewWorker creates a worker.
func NewWorker(log *logger.Logger) *Worker {
	cl := cronLogger{log}
	return &Worker{
		log:  log,
		cron: cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
	}
}

// Register schedules job. Jobs with an empty schedule are disabled.
func (w *Worker) Register(ctx context.Context, job Job) error {
	if job.Schedule == "" {
		w.log.Infow("job disabled", "job", job.Name)
		return nil
	}
	_, err := w.cron.AddFunc(job.Schedule, func() { w.runOnce(ctx, job) })
	if err != nil {
		return err
	}
	w.log.Infow("job scheduled", "job", job.Name, "schedule", job.Schedule)
	return nil
}

// Start begins scheduling.
func (w *Worker) Start() {
	w.cron.Start()
}

// Stop stops scheduling and waits for running jobs.
func (w *Worker) Stop() {
	<-w.cron.Stop().Done()
}

func (w *Worker) runOnce(ctx context.Context, job Job) {
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(ctx)
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(job.Name, "error").Inc()
		w.log.Errorw("job failed", "job", job.Name, "error", err, "duration", time.Since(start))
		return
	}
	metrics.JobRunsTotal.WithLabelValues(job.Name, "ok").Inc()
	w.log.Debugw("job finished", "job", job.Name, "duration", time.Since(start))
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
