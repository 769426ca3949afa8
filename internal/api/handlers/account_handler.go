package handlers

import (
	"errors"
	"fmt"
	"log"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	config "github.com/socialflowhq/socialflow-api/configs"
	"github.com/socialflowhq/socialflow-api/internal/platform"
	"github.com/socialflowhq/socialflow-api/internal/service"
)

type AccountHandler struct {
	cs  service.ConnectService
	rs  service.RefreshService
	cfg config.Config
}

func NewAccountHandler(cfg config.Config, cs service.ConnectService, rs service.RefreshService) *AccountHandler {
	return &AccountHandler{cs: cs, rs: rs, cfg: cfg}
}

func (h *AccountHandler) ConnectSocialAccount(c *fiber.Ctx) error {
	p, err := platform.Parse(c.Params("platform"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	authURL, err := h.cs.GetAuthURL(c.Context(), p, GetOrgID(c), GetUserID(c), c.Query("external_account_id"))
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to start connection",
		})
	}

	return c.Redirect(authURL)
}

// CallbackHandler is hit by the provider redirect; the state token
// carries who initiated the flow, so no session is required here.
func (h *AccountHandler) CallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")

	_, _, err := h.cs.CompleteConnection(c.Context(), code, state)
	if err != nil {
		var stateErr *service.InvalidStateError
		if errors.As(err, &stateErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to validate request",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *AccountHandler) ListSocialAccounts(c *fiber.Ctx) error {
	accountList, err := h.cs.List(c.Context(), GetOrgID(c))
	if err != nil {
		log.Println(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch social accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *AccountHandler) RefreshSocialAccount(c *fiber.Ctx) error {
	accountID := c.QueryInt("id", 0)

	if err := h.rs.RefreshAccount(c.Context(), GetOrgID(c), int64(accountID)); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to refresh social account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *AccountHandler) DisconnectSocialAccount(c *fiber.Ctx) error {
	accountID := c.QueryInt("id", 0)

	err := h.cs.Disconnect(c.Context(), GetOrgID(c), int64(accountID), GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to disconnect social account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
