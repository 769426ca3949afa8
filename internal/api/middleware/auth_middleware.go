package middleware

import (
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	config "github.com/socialflowhq/socialflow-api/configs"
	"github.com/socialflowhq/socialflow-api/internal/service"
	"github.com/socialflowhq/socialflow-api/pkg/utils"
)

type AuthMiddleware struct {
	keys service.ApiKeyService
	us   service.UserService
	cfg  config.Config
}

func NewAuthMiddleware(cfg config.Config, keys service.ApiKeyService, us service.UserService) *AuthMiddleware {
	return &AuthMiddleware{keys: keys, us: us, cfg: cfg}
}

// AuthMiddleware accepts either the session cookie or an api_key query
// parameter, then resolves the caller's organization for the handlers.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cfg.CookieName)
		apiKey := c.Query("api_key")

		if tokenString == "" && apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing keys or cookies",
			})
		}

		var userID int64
		if apiKey != "" {
			id, err := m.keys.GetUserID(c.Context(), apiKey)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
			userID = id
		} else {
			claims, err := utils.ValidateToken(m.cfg.SecretKey, tokenString)
			if err != nil {
				c.Cookie(&fiber.Cookie{
					Name:   m.cfg.CookieName,
					Value:  "",
					Path:   "/",
					MaxAge: -1,
				})

				log.Printf("Token validation failed: %v", err)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired token",
				})
			}

			userID, err = strconv.ParseInt(claims.UserID, 10, 64)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired token",
				})
			}
		}

		orgID, err := m.us.GetOrganizationID(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unable to resolve organization",
			})
		}

		c.Locals("user_id", fmt.Sprintf("%d", userID))
		c.Locals("org_id", fmt.Sprintf("%d", orgID))
		return c.Next()
	}
}
