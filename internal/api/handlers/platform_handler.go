package handlers

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/service"
)

type PlatformHandler struct {
	ps  service.PlatformService
	cfg config.Config
}

func NewPlatformHandler(ps service.PlatformService, cfg config.Config) *PlatformHandler {
	return &PlatformHandler{ps: ps, cfg: cfg}
}

func (h *PlatformHandler) AddSocialAccount(c *fiber.Ctx) error {
	authURL, err := h.ps.AuthURL(c.Context(), GetUserID(c), c.Params("platform"))
	if err != nil {
		return respondError(c, err, "Unable to start authorization")
	}
	return c.Redirect(authURL)
}

// CallbackHandler completes the provider redirect. The user is identified
// by the signed state, not the session, so the frontend always gets a
// redirect back with the outcome.
func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	platform := c.Params("platform")
	redirectURL := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)

	if denied := c.Query("error"); denied != "" {
		slog.Info("authorization denied", "platform", platform, "error", denied)
		return c.Redirect(redirectURL+"?error="+url.QueryEscape(denied), fiber.StatusTemporaryRedirect)
	}

	acc, err := h.ps.Connect(c.Context(), platform, c.Query("code"), c.Query("state"))
	if err != nil {
		slog.Info("unable to connect account", "platform", platform, "error", err)
		return c.Redirect(redirectURL+"?error="+url.QueryEscape(err.Error()), fiber.StatusTemporaryRedirect)
	}

	return c.Redirect(fmt.Sprintf("%s?connected=%d", redirectURL, acc.ID), fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	accountList, err := h.ps.List(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err, "Failed to fetch social accounts")
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *PlatformHandler) ListNetworks(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"networks": h.ps.Networks(),
	})
}

func (h *PlatformHandler) SyncSocialAccount(c *fiber.Ctx) error {
	accountID, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.ps.Sync(c.Context(), GetUserID(c), accountID); err != nil {
		return respondError(c, err, "Unable to queue account sync")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Account sync queued",
	})
}

func (h *PlatformHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	accountID, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.ps.Delete(c.Context(), GetUserID(c), accountID); err != nil {
		return respondError(c, err, "Unable to delete social account")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
