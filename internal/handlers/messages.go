package handlers

import (
	"time"

	"github.com/kiroku/backend/internal/middleware"
	"github.com/kiroku/backend/internal/services"
	"github.com/kiroku/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type MessagesHandler struct {
	Chat *services.ChatService
}

func NewMessagesHandler(chat *services.ChatService) *MessagesHandler {
	return &MessagesHandler{Chat: chat}
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

func (h *MessagesHandler) Send(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.Chat.Send(c.Context(), currentUser.ID, groupID, req.Content)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, message)
}

func (h *MessagesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	limit := c.QueryInt("limit", 50)

	var before *time.Time
	if beforeParam := c.Query("before"); beforeParam != "" {
		parsed, err := time.Parse(time.RFC3339, beforeParam)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "before must be an RFC3339 timestamp")
		}
		before = &parsed
	}

	messages, err := h.Chat.List(c.Context(), currentUser.ID, groupID, limit, before)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, messages)
}

func (h *MessagesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	messageID, err := parseUUID(c.Params("messageId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid message id")
	}

	if err := h.Chat.Delete(c.Context(), currentUser.ID, messageID); err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "message deleted"})
}
