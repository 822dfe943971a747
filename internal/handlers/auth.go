package handlers

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/gedvault/backend/internal/middleware"
	"github.com/gedvault/backend/internal/models"
	"github.com/gedvault/backend/pkg/logger"
	"github.com/gedvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuthHandlers struct {
	DB *gorm.DB
}

func NewAuthHandlers(db *gorm.DB) *AuthHandlers {
	return &AuthHandlers{DB: db}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 128)),
	)
}

// Login authenticates by email and password and issues a JWT.
func (h *AuthHandlers) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		if fields, ok := err.(validation.Errors); ok {
			mapped := make(map[string]string, len(fields))
			for field, ferr := range fields {
				mapped[field] = ferr.Error()
			}
			return utils.ValidationError(c, mapped)
		}
		return utils.Error(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		logger.Warn("login_unknown_email", map[string]interface{}{
			"email": req.Email,
			"ip":    c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}
	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Warn("login_bad_password", map[string]interface{}{
			"user_id": user.ID.String(),
			"ip":      c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		logger.Error("token_generation_failed", err, map[string]interface{}{
			"user_id": user.ID.String(),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "could not issue token")
	}

	logger.InfoWithUser(user.ID.String(), "login_success", map[string]interface{}{
		"ip": c.IP(),
	})
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Me returns the authenticated user with their role graph loaded.
func (h *AuthHandlers) Me(c *fiber.Ctx) error {
	current := middleware.GetCurrentUser(c)
	if current == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var user models.User
	err := h.DB.
		Preload("PrimaryRole").
		Preload("Roles").
		First(&user, "id = ?", current.ID).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "could not load user")
	}
	return utils.Success(c, fiber.StatusOK, user)
}
