package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/socialflowhq/socialflow-api/internal/service"
)

type KeysHandler struct {
	s service.ApiKeyService
}

func NewKeysHandler(service service.ApiKeyService) *KeysHandler {
	return &KeysHandler{s: service}
}

func (h *KeysHandler) CreateKey(c *fiber.Ctx) error {
	err := h.s.Create(c.Context(), GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *KeysHandler) ListKeys(c *fiber.Ctx) error {
	keys, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list api keys",
		})
	}

	return c.Status(fiber.StatusOK).JSON(keys)
}

func (h *KeysHandler) RemoveKey(c *fiber.Ctx) error {
	keyID := c.QueryInt("id", 0)

	err := h.s.RemoveAPIKey(c.Context(), GetUserID(c), int64(keyID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
