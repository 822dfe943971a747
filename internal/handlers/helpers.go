package handlers

import (
	"errors"
	"strings"

	"github.com/gedvault/backend/internal/services"
	"github.com/gedvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// serviceError translates service sentinel errors to the HTTP boundary.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return utils.Error(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrForbidden):
		return utils.Error(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrConflict):
		return utils.Error(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrValidation):
		return utils.Error(c, fiber.StatusUnprocessableEntity, err.Error())
	default:
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
}
