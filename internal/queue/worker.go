package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/socialflowhq/socialflow-api/internal/models"
)

// HandleDispatchPostTask works every due job of the post named in the
// payload. Jobs already claimed or finished elsewhere are skipped by the
// dispatcher's claim guard, so a task firing twice is harmless.
func (q *Queue) HandleDispatchPostTask(ctx context.Context, task *asynq.Task) error {
	var payload DispatchPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	jobs, err := q.jr.ListByPostID(ctx, payload.PostID)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if job.Status != models.JobStatusPending || job.ScheduledFor.After(time.Now()) {
			continue
		}
		if err := q.d.ProcessJob(ctx, job.ID); err != nil {
			slog.Info(err.Error())
		}
	}

	return nil
}
