package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/socialflowhq/socialflow-api/internal/service"
	"github.com/socialflowhq/socialflow-api/internal/transfer"
)

type AIHandler struct {
	s service.AIService
}

func NewAIHandler(service service.AIService) *AIHandler {
	return &AIHandler{s: service}
}

func (h *AIHandler) GenerateContent(c *fiber.Ctx) error {
	var req transfer.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	content, err := h.s.GenerateContent(c.Context(), &req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(content)
}
