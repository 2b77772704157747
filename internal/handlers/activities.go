package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/kiroku/backend/internal/middleware"
	"github.com/kiroku/backend/internal/models"
	"github.com/kiroku/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ActivitiesHandler struct {
	DB *gorm.DB
}

func NewActivitiesHandler(db *gorm.DB) *ActivitiesHandler {
	return &ActivitiesHandler{DB: db}
}

type createActivityRequest struct {
	Title           string  `json:"title" validate:"required,min=1,max=100"`
	Category        string  `json:"category" validate:"required,min=1,max=50"`
	DurationMinutes int     `json:"durationMinutes" validate:"required,gte=1,lte=1440"`
	Mood            int     `json:"mood" validate:"required,gte=1,lte=5"`
	Date            string  `json:"date" validate:"required"`
	Note            *string `json:"note" validate:"omitempty,max=2000"`
}

func isCalendarDay(value string) bool {
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}

func (h *ActivitiesHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
	if err := utils.ValidateStruct(req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}
	if !isCalendarDay(req.Date) {
		return utils.Error(c, fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	activity := models.Activity{
		UserID:          currentUser.ID,
		Title:           req.Title,
		Category:        req.Category,
		DurationMinutes: req.DurationMinutes,
		Mood:            req.Mood,
		Date:            req.Date,
		Note:            req.Note,
	}
	if err := h.DB.Create(&activity).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating activity")
	}
	return utils.Success(c, fiber.StatusCreated, activity)
}

func (h *ActivitiesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	pagination := utils.ParsePagination(c)

	query := h.DB.Model(&models.Activity{}).Where("user_id = ?", currentUser.ID)
	if from := c.Query("from"); from != "" {
		query = query.Where("date >= ?", from)
	}
	if to := c.Query("to"); to != "" {
		query = query.Where("date <= ?", to)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting activities")
	}

	var activities []models.Activity
	if err := utils.ApplyPagination(query, pagination).
		Order("date DESC, created_at DESC").
		Find(&activities).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing activities")
	}

	return utils.Paginated(c, activities, pagination.Page, pagination.Limit, total)
}

func (h *ActivitiesHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	activityID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid activity id")
	}

	var activity models.Activity
	if err := h.DB.First(&activity, "id = ? AND user_id = ?", activityID, currentUser.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "activity not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading activity")
	}
	return utils.Success(c, fiber.StatusOK, activity)
}

type updateActivityRequest struct {
	Title           *string `json:"title" validate:"omitempty,min=1,max=100"`
	Category        *string `json:"category" validate:"omitempty,min=1,max=50"`
	DurationMinutes *int    `json:"durationMinutes" validate:"omitempty,gte=1,lte=1440"`
	Mood            *int    `json:"mood" validate:"omitempty,gte=1,lte=5"`
	Date            *string `json:"date"`
	Note            *string `json:"note" validate:"omitempty,max=2000"`
}

func (h *ActivitiesHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	activityID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid activity id")
	}

	var activity models.Activity
	if err := h.DB.First(&activity, "id = ? AND user_id = ?", activityID, currentUser.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "activity not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading activity")
	}

	var req updateActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Category != nil {
		updates["category"] = strings.TrimSpace(*req.Category)
	}
	if req.DurationMinutes != nil {
		updates["duration_minutes"] = *req.DurationMinutes
	}
	if req.Mood != nil {
		updates["mood"] = *req.Mood
	}
	if req.Date != nil {
		if !isCalendarDay(*req.Date) {
			return utils.Error(c, fiber.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		updates["date"] = *req.Date
	}
	if req.Note != nil {
		updates["note"] = *req.Note
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&activity).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating activity")
	}

	var updated models.Activity
	if err := h.DB.First(&updated, "id = ?", activityID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading activity")
	}
	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *ActivitiesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	activityID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid activity id")
	}

	var activity models.Activity
	if err := h.DB.First(&activity, "id = ? AND user_id = ?", activityID, currentUser.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "activity not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading activity")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("activity_id = ?", activityID).Delete(&models.GroupSharedActivity{}).Error; err != nil {
			return err
		}
		return tx.Delete(&activity).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting activity")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "activity deleted"})
}
