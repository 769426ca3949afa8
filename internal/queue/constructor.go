package queue

import (
	"github.com/socialflowhq/socialflow-api/internal/repository"
	"github.com/socialflowhq/socialflow-api/internal/service"
)

// Queue handles delayed dispatch tasks. A task fires when a post comes
// due; the periodic poll loop backstops anything the queue misses.
type Queue struct {
	jr repository.JobRepository
	d  service.DispatcherService
}

func NewQueue(jr repository.JobRepository, d service.DispatcherService) *Queue {
	return &Queue{
		jr: jr,
		d:  d,
	}
}

const TaskTypeDispatchPost = "dispatch:post"

type DispatchPostPayload struct {
	PostID int64 `json:"post_id"`
}
