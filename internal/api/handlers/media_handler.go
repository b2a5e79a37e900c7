package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialflow/internal/service"
)

type MediaHandler struct {
	s service.MediaService
}

func NewMediaHandler(service service.MediaService) *MediaHandler {
	return &MediaHandler{s: service}
}

// Upload accepts one multipart "file". Video uploads carry their duration
// and dimensions as form fields.
func (h *MediaHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file selected",
		})
	}

	meta := service.MediaUpload{}
	var form struct {
		Duration float64 `form:"duration_seconds"`
		Width    int     `form:"width"`
		Height   int     `form:"height"`
	}
	if err := c.BodyParser(&form); err == nil {
		meta = service.MediaUpload{DurationSeconds: form.Duration, Width: form.Width, Height: form.Height}
	}

	asset, err := h.s.Upload(c.Context(), GetUserID(c), file, meta)
	if err != nil {
		return respondError(c, err, "Unable to upload media")
	}

	return c.Status(fiber.StatusCreated).JSON(asset)
}

func (h *MediaHandler) GetMedia(c *fiber.Ctx) error {
	assetID, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	asset, err := h.s.Get(c.Context(), GetUserID(c), assetID)
	if err != nil {
		return respondError(c, err, "Unable to get media")
	}

	return c.Status(fiber.StatusOK).JSON(asset)
}
