package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"artix/internal/platform/metrics"
)

// Job is one worker RunOnce bound to a metrics label.
type Job struct {
	Name string
	Run  func(context.Context) error
}

// RunJobs runs every job once per interval until ctx is done. A failing job is
// logged and counted; it does not stop the loop or the jobs after it.
func RunJobs(ctx context.Context, interval time.Duration, jobs []Job, logger *slog.Logger) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, job := range jobs {
			runJob(ctx, job, logger)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runJob(ctx context.Context, job Job, logger *slog.Logger) {
	started := time.Now()
	err := job.Run(ctx)
	metrics.WorkerRunDuration.WithLabelValues(job.Name).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.WorkerRuns.WithLabelValues(job.Name, "error").Inc()
		logger.Error("worker job failed",
			"event", "bootstrap_job_failed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"job", job.Name,
			"error", err.Error(),
		)
		return
	}
	metrics.WorkerRuns.WithLabelValues(job.Name, "ok").Inc()
}
