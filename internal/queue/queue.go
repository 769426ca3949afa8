package queue

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// EnqueueDispatch schedules a dispatch task to fire when the post
// becomes due.
func EnqueueDispatch(asynqClient *asynq.Client, payload DispatchPostPayload, delay time.Duration) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeDispatchPost, taskPayload)

	_, err = asynqClient.Enqueue(task, asynq.ProcessIn(delay))
	if err != nil {
		return err
	}

	slog.Info("dispatch task scheduled", "post_id", payload.PostID, "delay", delay.String())
	return nil
}
