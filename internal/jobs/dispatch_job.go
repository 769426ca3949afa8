package job

import (
	"context"
	"log/slog"

	"github.com/socialflowhq/socialflow-api/internal/service"
)

// DispatchJob is the periodic poll that picks up due jobs the delayed
// queue missed: requeued retries, jobs recovered from a crash, posts
// created while the worker was down.
type DispatchJob struct {
	d service.DispatcherService
}

func NewDispatchJob(d service.DispatcherService) *DispatchJob {
	return &DispatchJob{d: d}
}

func (c *DispatchJob) Run() {
	ctx := context.Background()

	processed, err := c.d.PollAndProcess(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if processed > 0 {
		slog.Info("dispatch poll finished", "processed", processed)
	}
}
