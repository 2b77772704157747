package handlers

import (
	"strings"

	"github.com/kiroku/backend/pkg/apperr"
	"github.com/kiroku/backend/pkg/logger"
	"github.com/kiroku/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// respondServiceError maps domain error kinds onto HTTP statuses. Anything
// without a kind is an internal failure and is logged, not leaked.
func respondServiceError(c *fiber.Ctx, err error) error {
	if appErr, ok := apperr.As(err); ok {
		switch appErr.Kind {
		case apperr.KindValidation:
			return utils.Error(c, fiber.StatusBadRequest, appErr.Message)
		case apperr.KindNotFound:
			return utils.Error(c, fiber.StatusNotFound, appErr.Message)
		case apperr.KindForbidden:
			return utils.Error(c, fiber.StatusForbidden, appErr.Message)
		case apperr.KindConflict:
			return utils.Error(c, fiber.StatusConflict, appErr.Message)
		}
	}

	logger.Error("internal_error", err, map[string]interface{}{
		"method": c.Method(),
		"path":   c.Path(),
	})
	return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
}
