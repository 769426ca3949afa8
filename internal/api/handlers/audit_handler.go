package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/socialflowhq/socialflow-api/internal/service"
)

type AuditHandler struct {
	s service.AuditService
}

func NewAuditHandler(service service.AuditService) *AuditHandler {
	return &AuditHandler{s: service}
}

func (h *AuditHandler) ListEvents(c *fiber.Ctx) error {
	events, err := h.s.List(c.Context(), GetOrgID(c), c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list events",
		})
	}

	return c.Status(fiber.StatusOK).JSON(events)
}
