package handlers

import (
	"github.com/kiroku/backend/internal/middleware"
	"github.com/kiroku/backend/internal/services"
	"github.com/kiroku/backend/pkg/logger"
	"github.com/kiroku/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SharesHandler struct {
	Sharing *services.SharingService
}

func NewSharesHandler(sharing *services.SharingService) *SharesHandler {
	return &SharesHandler{Sharing: sharing}
}

type shareActivityRequest struct {
	GroupID uuid.UUID `json:"groupId" validate:"required"`
}

func (h *SharesHandler) Share(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	activityID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid activity id")
	}

	var req shareActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.GroupID == uuid.Nil {
		return utils.Error(c, fiber.StatusBadRequest, "groupId is required")
	}

	share, err := h.Sharing.Share(c.Context(), currentUser.ID, activityID, req.GroupID)
	if err != nil {
		return respondServiceError(c, err)
	}

	logger.InfoWithUser(currentUser.ID.String(), "activity_shared", map[string]interface{}{
		"activity_id": activityID.String(),
		"group_id":    req.GroupID.String(),
	})
	return utils.Success(c, fiber.StatusCreated, share)
}

func (h *SharesHandler) Unshare(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	activityID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid activity id")
	}

	var req shareActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.GroupID == uuid.Nil {
		return utils.Error(c, fiber.StatusBadRequest, "groupId is required")
	}

	if err := h.Sharing.Unshare(c.Context(), currentUser.ID, activityID, req.GroupID); err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "activity unshared"})
}

func (h *SharesHandler) GroupsForActivity(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	activityID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid activity id")
	}

	groups, err := h.Sharing.GroupsForActivity(c.Context(), currentUser.ID, activityID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, groups)
}

func (h *SharesHandler) ListGroupActivities(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	filters := services.SharedActivityFilters{
		From:     c.Query("from"),
		To:       c.Query("to"),
		Category: c.Query("category"),
	}
	if memberParam := c.Query("memberId"); memberParam != "" {
		memberID, err := parseUUID(memberParam)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid member id")
		}
		filters.MemberID = &memberID
	}

	views, err := h.Sharing.ListShared(c.Context(), currentUser.ID, groupID, filters)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, views)
}
