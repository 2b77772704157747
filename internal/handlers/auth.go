package handlers

import (
	"errors"
	"strings"

	"github.com/kiroku/backend/internal/database"
	"github.com/kiroku/backend/internal/middleware"
	"github.com/kiroku/backend/internal/models"
	"github.com/kiroku/backend/pkg/invite"
	"github.com/kiroku/backend/pkg/logger"
	"github.com/kiroku/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{DB: db}
}

// Categories every new account starts with.
var defaultCategories = []models.Category{
	{Name: "勉強", Emoji: "📚", Color: "#4F78E0", IsDefault: true, SortOrder: 1},
	{Name: "運動", Emoji: "💪", Color: "#E0604F", IsDefault: true, SortOrder: 2},
	{Name: "読書", Emoji: "📖", Color: "#4FB06A", IsDefault: true, SortOrder: 3},
	{Name: "仕事", Emoji: "💼", Color: "#8A6FD0", IsDefault: true, SortOrder: 4},
	{Name: "趣味", Emoji: "🎨", Color: "#E0A64F", IsDefault: true, SortOrder: 5},
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Username string `json:"username" validate:"required,min=1,max=30"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if err := utils.ValidateStruct(req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	var existing models.User
	if err := h.DB.First(&existing, "email = ?", req.Email).Error; err == nil {
		return utils.Error(c, fiber.StatusConflict, "email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking email")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed hashing password")
	}

	uniqueID, err := invite.NewCode()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating user handle")
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Username:     req.Username,
		UniqueID:     uniqueID,
		AvatarEmoji:  "😀",
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		for _, category := range defaultCategories {
			row := category
			row.UserID = user.ID
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// A register racing past the pre-check lands on the email unique
		// index instead.
		if database.IsUniqueViolation(err) {
			return utils.Error(c, fiber.StatusConflict, "email is already registered")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating user")
	}

	token, err := utils.GenerateToken(user.ID, user.Email)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	logger.InfoWithUser(user.ID.String(), "user_registered", map[string]interface{}{
		"email": user.Email,
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"user":  user,
		"token": token,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := utils.ValidateStruct(req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	var user models.User
	if err := h.DB.First(&user, "email = ?", req.Email).Error; err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		logger.WarnWithUser(user.ID.String(), "login_failed", map[string]interface{}{
			"ip": c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(user.ID, user.Email)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"user":  user,
		"token": token,
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return utils.Success(c, fiber.StatusOK, currentUser)
}

type updateMeRequest struct {
	Username    *string `json:"username" validate:"omitempty,min=1,max=30"`
	AvatarEmoji *string `json:"avatarEmoji" validate:"omitempty,max=10"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	updates := map[string]interface{}{}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return utils.Error(c, fiber.StatusBadRequest, "username cannot be empty")
		}
		updates["username"] = username
	}
	if req.AvatarEmoji != nil {
		updates["avatar_emoji"] = strings.TrimSpace(*req.AvatarEmoji)
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating profile")
	}

	var updated models.User
	if err := h.DB.First(&updated, "id = ?", currentUser.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading profile")
	}
	return utils.Success(c, fiber.StatusOK, updated)
}
