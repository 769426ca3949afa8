package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/socialflowhq/socialflow-api/internal/service"
)

type JobHandler struct {
	d service.DispatcherService
}

func NewJobHandler(d service.DispatcherService) *JobHandler {
	return &JobHandler{d: d}
}

// RetryJob puts a failed delivery back in the queue.
func (h *JobHandler) RetryJob(c *fiber.Ctx) error {
	jobID := c.QueryInt("id", 0)

	err := h.d.RetryJob(c.Context(), GetOrgID(c), int64(jobID), GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Job queued for retry",
	})
}
