package handlers

import (
	"errors"
	"strings"

	"github.com/kiroku/backend/internal/middleware"
	"github.com/kiroku/backend/internal/models"
	"github.com/kiroku/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CategoriesHandler struct {
	DB *gorm.DB
}

func NewCategoriesHandler(db *gorm.DB) *CategoriesHandler {
	return &CategoriesHandler{DB: db}
}

func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var categories []models.Category
	if err := h.DB.
		Where("user_id = ?", currentUser.ID).
		Order("sort_order ASC").
		Find(&categories).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing categories")
	}
	return utils.Success(c, fiber.StatusOK, categories)
}

type createCategoryRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=50"`
	Emoji string `json:"emoji" validate:"required,max=10"`
	Color string `json:"color" validate:"required,max=20"`
}

func (h *CategoriesHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	var maxSort int
	row := h.DB.Model(&models.Category{}).
		Where("user_id = ?", currentUser.ID).
		Select("COALESCE(MAX(sort_order), 0)").
		Row()
	if err := row.Scan(&maxSort); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reading categories")
	}

	category := models.Category{
		UserID:    currentUser.ID,
		Name:      req.Name,
		Emoji:     req.Emoji,
		Color:     req.Color,
		SortOrder: maxSort + 1,
	}
	if err := h.DB.Create(&category).Error; err != nil {
		return utils.Error(c, fiber.StatusConflict, "category already exists")
	}
	return utils.Success(c, fiber.StatusCreated, category)
}

type updateCategoryRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=50"`
	Emoji     *string `json:"emoji" validate:"omitempty,max=10"`
	Color     *string `json:"color" validate:"omitempty,max=20"`
	SortOrder *int    `json:"sortOrder" validate:"omitempty,gte=0"`
}

func (h *CategoriesHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	categoryID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid category id")
	}

	var category models.Category
	if err := h.DB.First(&category, "id = ? AND user_id = ?", categoryID, currentUser.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "category not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading category")
	}

	var req updateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return utils.Error(c, fiber.StatusBadRequest, "name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Emoji != nil {
		updates["emoji"] = *req.Emoji
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&category).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusConflict, "category already exists")
	}

	var updated models.Category
	if err := h.DB.First(&updated, "id = ?", categoryID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading category")
	}
	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *CategoriesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	categoryID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid category id")
	}

	var category models.Category
	if err := h.DB.First(&category, "id = ? AND user_id = ?", categoryID, currentUser.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "category not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading category")
	}
	if category.IsDefault {
		return utils.Error(c, fiber.StatusBadRequest, "default categories cannot be deleted")
	}

	if err := h.DB.Delete(&category).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting category")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "category deleted"})
}
