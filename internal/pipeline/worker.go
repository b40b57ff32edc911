package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"
)

// Worker processes queued jobs one at a time.
type Worker struct {
	proc    *Processor
	log     *slog.Logger
	timeout time.Duration
}

func NewWorker(proc *Processor, log *slog.Logger, timeout time.Duration) *Worker {
	return &Worker{proc: proc, log: log, timeout: timeout}
}

// Process runs the pipeline for one job under the per-file deadline and
// removes the spooled upload afterwards.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	defer removeSpool(log, job)

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	job.SetStatus(StatusProcessing)
	res, err := w.proc.Process(ctx, job.Path())
	if err != nil {
		log.Error("job failed", "error", err)
		job.Fail(err)
		return
	}
	log.Info("job completed", "duration_ms", res.ProcessingTimeMs)
	job.Complete(res)
}

func removeSpool(log *slog.Logger, job *Job) {
	if job.Path() == "" {
		return
	}
	if err := os.Remove(job.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("remove spooled upload", "error", err)
	}
}
