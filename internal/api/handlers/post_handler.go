package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/socialflowhq/socialflow-api/internal/queue"
	"github.com/socialflowhq/socialflow-api/internal/service"
	"github.com/socialflowhq/socialflow-api/internal/transfer"
)

type PostHandler struct {
	s           service.PostService
	AsynqClient *asynq.Client
}

func NewPostHandler(service service.PostService, asynqClient *asynq.Client) *PostHandler {
	return &PostHandler{s: service, AsynqClient: asynqClient}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	orgID := GetOrgID(c)
	userID := GetUserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	pc := transfer.PostCreation{
		Content:          c.FormValue("content"),
		TargetPlatforms:  c.FormValue("target_platforms"),
		SelectedAccounts: c.FormValue("selected_accounts"),
		ScheduledFor:     c.FormValue("scheduled_for"),
		PlatformVariants: c.FormValue("platform_variants"),
	}

	files := form.File["files"]

	postID, delay, err := h.s.CreatePost(c.Context(), orgID, userID, &pc, files)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	err = queue.EnqueueDispatch(h.AsynqClient, queue.DispatchPostPayload{PostID: postID}, delay)
	if err != nil {
		// The poll loop still picks the jobs up on schedule.
		slog.Info(err.Error())
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":      postID,
		"message": "Post scheduled successfully",
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	orgID := GetOrgID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postID), orgID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to list posts",
			})
		}

		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), orgID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

// ListPostJobs exposes the per-account delivery status of one post.
func (h *PostHandler) ListPostJobs(c *fiber.Ctx) error {
	orgID := GetOrgID(c)
	postID := c.QueryInt("id", 0)

	jobs, err := h.s.Jobs(c.Context(), int64(postID), orgID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list jobs",
		})
	}

	return c.Status(fiber.StatusOK).JSON(jobs)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	orgID := GetOrgID(c)
	postID := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), orgID, int64(postID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
