package handlers

import (
	"github.com/kiroku/backend/internal/middleware"
	"github.com/kiroku/backend/internal/services"
	"github.com/kiroku/backend/pkg/logger"
	"github.com/kiroku/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type GroupsHandler struct {
	Groups   *services.GroupService
	Rankings *services.RankingService
}

func NewGroupsHandler(groups *services.GroupService, rankings *services.RankingService) *GroupsHandler {
	return &GroupsHandler{Groups: groups, Rankings: rankings}
}

type createGroupRequest struct {
	Name             string   `json:"name" validate:"required,min=1,max=100"`
	Description      *string  `json:"description" validate:"omitempty,max=500"`
	SharedCategories []string `json:"sharedCategories" validate:"required,min=1"`
}

func (h *GroupsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	group, err := h.Groups.Create(c.Context(), currentUser.ID, services.CreateGroupInput{
		Name:             req.Name,
		Description:      req.Description,
		SharedCategories: req.SharedCategories,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	logger.InfoWithUser(currentUser.ID.String(), "group_created", map[string]interface{}{
		"group_id":   group.ID.String(),
		"group_name": group.Name,
	})
	return utils.Success(c, fiber.StatusCreated, group)
}

func (h *GroupsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groups, err := h.Groups.ListForUser(c.Context(), currentUser.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, groups)
}

func (h *GroupsHandler) Preview(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return utils.Error(c, fiber.StatusBadRequest, "code is required")
	}

	preview, err := h.Groups.PreviewByCode(c.Context(), code)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, preview)
}

type joinGroupRequest struct {
	Code string `json:"code" validate:"required"`
}

func (h *GroupsHandler) Join(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req joinGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	group, syncOutcome, err := h.Groups.JoinByCode(c.Context(), req.Code, currentUser.ID)
	if err != nil {
		return respondServiceError(c, err)
	}

	logger.InfoWithUser(currentUser.ID.String(), "group_joined", map[string]interface{}{
		"group_id":    group.ID.String(),
		"sync_status": string(syncOutcome.Status),
	})
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"group":        group,
		"categorySync": syncOutcome,
	})
}

func (h *GroupsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	detail, err := h.Groups.Get(c.Context(), groupID, currentUser.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, detail)
}

type updateGroupRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

func (h *GroupsHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var req updateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	group, err := h.Groups.Update(c.Context(), groupID, currentUser.ID, services.UpdateGroupInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, group)
}

type updateSharedCategoriesRequest struct {
	SharedCategories []string `json:"sharedCategories" validate:"required,min=1"`
}

func (h *GroupsHandler) UpdateSharedCategories(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var req updateSharedCategoriesRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	categories, err := h.Groups.UpdateSharedCategories(c.Context(), groupID, currentUser.ID, req.SharedCategories)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"sharedCategories": categories})
}

func (h *GroupsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	if err := h.Groups.Delete(c.Context(), groupID, currentUser.ID); err != nil {
		return respondServiceError(c, err)
	}

	logger.InfoWithUser(currentUser.ID.String(), "group_deleted", map[string]interface{}{
		"group_id": groupID.String(),
	})
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "group deleted"})
}

type inviteMemberRequest struct {
	UniqueID string `json:"uniqueId" validate:"required"`
}

func (h *GroupsHandler) Invite(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var req inviteMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	target, syncOutcome, err := h.Groups.InviteByIdentity(c.Context(), groupID, currentUser.ID, req.UniqueID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"member":       target.Display(),
		"categorySync": syncOutcome,
	})
}

func (h *GroupsHandler) Leave(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	if err := h.Groups.Leave(c.Context(), groupID, currentUser.ID); err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "left group"})
}

func (h *GroupsHandler) RemoveMember(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}
	targetUserID, err := parseUUID(c.Params("userId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	if err := h.Groups.RemoveMember(c.Context(), groupID, currentUser.ID, targetUserID); err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "member removed"})
}

func (h *GroupsHandler) RegenerateInviteCode(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	code, err := h.Groups.RegenerateInviteCode(c.Context(), groupID, currentUser.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"inviteCode": code})
}

func (h *GroupsHandler) MemberRankings(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	from := c.Query("from")
	to := c.Query("to")
	if !isCalendarDay(from) || !isCalendarDay(to) {
		return utils.Error(c, fiber.StatusBadRequest, "from and to must be YYYY-MM-DD")
	}

	rankings, err := h.Rankings.MemberRankings(c.Context(), currentUser.ID, groupID, from, to)
	if err != nil {
		return respondServiceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, rankings)
}
