package job

import (
	"context"
	"log/slog"

	"github.com/socialflowhq/socialflow-api/internal/service"
)

// ReconcileJob returns jobs stuck in processing to the queue. A job gets
// stuck when the process dies between claiming and finishing it.
type ReconcileJob struct {
	d service.DispatcherService
}

func NewReconcileJob(d service.DispatcherService) *ReconcileJob {
	return &ReconcileJob{d: d}
}

func (c *ReconcileJob) RequeueStale() {
	ctx := context.Background()

	requeued, err := c.d.RequeueStale(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if requeued > 0 {
		slog.Info("stale jobs requeued", "count", requeued)
	}
}
