package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialflow/internal/service"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	scheduled, err := h.s.Schedule(c.Context(), userID, &req)
	if err != nil {
		return respondError(c, err, "Unable to schedule post")
	}

	return c.Status(fiber.StatusCreated).JSON(scheduled)
}

func (h *PostHandler) PublishNow(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	result, err := h.s.PublishNow(c.Context(), userID, &req)
	if err != nil {
		return respondError(c, err, "Unable to publish post")
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *PostHandler) CancelPost(c *fiber.Ctx) error {
	postID, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.s.Cancel(c.Context(), GetUserID(c), postID); err != nil {
		return respondError(c, err, "Unable to cancel post")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PostHandler) ReschedulePost(c *fiber.Ctx) error {
	postID, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var req transfer.RescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.s.Reschedule(c.Context(), GetUserID(c), postID, req.ScheduledFor); err != nil {
		return respondError(c, err, "Unable to reschedule post")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err, "Unable to list posts")
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	postID, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	post, err := h.s.PostInfo(c.Context(), postID, GetUserID(c))
	if err != nil {
		return respondError(c, err, "Unable to get post")
	}

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) PostHistory(c *fiber.Ctx) error {
	postID, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	history, err := h.s.History(c.Context(), postID, GetUserID(c))
	if err != nil {
		return respondError(c, err, "Unable to get post history")
	}

	return c.Status(fiber.StatusOK).JSON(history)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	postID, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.s.Remove(c.Context(), GetUserID(c), postID); err != nil {
		return respondError(c, err, "Unable to remove post")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PostHandler) RetryFailed(c *fiber.Ctx) error {
	if err := h.s.RetryFailed(c.Context()); err != nil {
		return respondError(c, err, "Unable to queue retry sweep")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Retry sweep queued",
	})
}
