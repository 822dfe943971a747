package handlers

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/gedvault/backend/internal/middleware"
	"github.com/gedvault/backend/internal/models"
	"github.com/gedvault/backend/internal/services"
	"github.com/gedvault/backend/pkg/logger"
	"github.com/gedvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// UserHandlers is admin-only user management; routes are mounted behind
// AdminOnly.
type UserHandlers struct {
	DB           *gorm.DB
	Provisioning *services.ProvisioningService
}

func NewUserHandlers(db *gorm.DB, provisioning *services.ProvisioningService) *UserHandlers {
	return &UserHandlers{DB: db, Provisioning: provisioning}
}

// List returns all users with their role graphs.
func (h *UserHandlers) List(c *fiber.Ctx) error {
	var users []models.User
	err := h.DB.
		Preload("PrimaryRole").
		Preload("Roles").
		Order("email").
		Find(&users).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "could not load users")
	}
	return utils.Success(c, fiber.StatusOK, users)
}

type createUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	IsAdmin   bool   `json:"isAdmin"`
}

func (r createUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 100)),
	)
}

// Create registers a user account.
func (h *UserHandlers) Create(c *fiber.Ctx) error {
	var req createUserRequest
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

	var existing int64
	if err := h.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&existing).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "could not check email")
	}
	if existing > 0 {
		return utils.Error(c, fiber.StatusConflict, "a user with this email already exists")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "could not hash password")
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsAdmin:      req.IsAdmin,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "could not create user")
	}

	actor := middleware.GetCurrentUser(c)
	logger.InfoWithUser(actor.ID.String(), "user_created", map[string]interface{}{
		"new_user": user.ID.String(),
		"email":    user.Email,
	})
	return utils.Success(c, fiber.StatusCreated, user)
}

type updateUserAccessRequest struct {
	PrimaryRoleID             *string  `json:"primaryRoleID"`
	RoleIDs                   []string `json:"roleIDs"`
	DepartmentAccess          []string `json:"departmentAccess"`
	RestrictedConfidentiality []string `json:"restrictedConfidentiality"`
	IsDocumentAdmin           *bool    `json:"isDocumentAdmin"`
}

// UpdateAccess replaces a user's role assignments and override lists.
func (h *UserHandlers) UpdateAccess(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}

	var req updateUserAccessRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{
		"department_access":          req.DepartmentAccess,
		"restricted_confidentiality": req.RestrictedConfidentiality,
	}
	if req.PrimaryRoleID != nil {
		if *req.PrimaryRoleID == "" {
			updates["primary_role_id"] = nil
		} else {
			roleID, err := parseUUID(*req.PrimaryRoleID)
			if err != nil {
				return utils.Error(c, fiber.StatusBadRequest, "invalid primary role id")
			}
			updates["primary_role_id"] = roleID
		}
	}
	if req.IsDocumentAdmin != nil {
		updates["is_document_admin"] = *req.IsDocumentAdmin
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		if req.RoleIDs == nil {
			return nil
		}
		roles := make([]models.Role, 0, len(req.RoleIDs))
		for _, raw := range req.RoleIDs {
			roleID, err := parseUUID(raw)
			if err != nil {
				return err
			}
			roles = append(roles, models.Role{BaseModel: models.BaseModel{ID: roleID}})
		}
		return tx.Model(&user).Association("Roles").Replace(roles)
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "could not update user access")
	}

	if err := h.DB.Preload("PrimaryRole").Preload("Roles").First(&user, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "could not reload user")
	}
	return utils.Success(c, fiber.StatusOK, user)
}

// ProvisionDefaultAccess opens every category to the user.
func (h *UserHandlers) ProvisionDefaultAccess(c *fiber.Ctx) error {
	actor := middleware.GetCurrentUser(c)

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	user, err := h.Provisioning.ProvisionDefaultAccess(c.Context(), actor, id)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, user)
}
