package handlers

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/gedvault/backend/internal/models"
	"github.com/gedvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RoleHandlers is admin-only role management; routes are mounted behind
// AdminOnly.
type RoleHandlers struct {
	DB *gorm.DB
}

func NewRoleHandlers(db *gorm.DB) *RoleHandlers {
	return &RoleHandlers{DB: db}
}

// List returns every role with its permissions.
func (h *RoleHandlers) List(c *fiber.Ctx) error {
	var roles []models.Role
	if err := h.DB.Preload("Permissions").Order("name").Find(&roles).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "could not load roles")
	}
	return utils.Success(c, fiber.StatusOK, roles)
}

type roleRequest struct {
	Name                  string   `json:"name"`
	DisplayName           string   `json:"displayName"`
	Description           string   `json:"description"`
	ConfidentialityLevels []string `json:"confidentialityLevels"`
	DocumentTypes         []string `json:"documentTypes"`
	Categories            []string `json:"categories"`
	CanUpload             bool     `json:"canUpload"`
	CanDownload           bool     `json:"canDownload"`
	CanDelete             bool     `json:"canDelete"`
	CanApprove            bool     `json:"canApprove"`
	CanManageObsolete     bool     `json:"canManageObsolete"`
}

func (r roleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.DisplayName, validation.Required, validation.Length(2, 255)),
	)
}

// Create adds a role.
func (h *RoleHandlers) Create(c *fiber.Ctx) error {
	var req roleRequest
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
	if err := h.DB.Model(&models.Role{}).Where("name = ?", req.Name).Count(&existing).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "could not check role name")
	}
	if existing > 0 {
		return utils.Error(c, fiber.StatusConflict, "a role with this name already exists")
	}

	role := models.Role{
		Name:                  req.Name,
		DisplayName:           req.DisplayName,
		Description:           req.Description,
		ConfidentialityLevels: req.ConfidentialityLevels,
		DocumentTypes:         req.DocumentTypes,
		Categories:            req.Categories,
		CanUpload:             req.CanUpload,
		CanDownload:           req.CanDownload,
		CanDelete:             req.CanDelete,
		CanApprove:            req.CanApprove,
		CanManageObsolete:     req.CanManageObsolete,
		IsActive:              true,
	}
	if err := h.DB.Create(&role).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "could not create role")
	}
	return utils.Success(c, fiber.StatusCreated, role)
}

// Update replaces a role's restriction lists and capability flags.
func (h *RoleHandlers) Update(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid role id")
	}

	var role models.Role
	if err := h.DB.First(&role, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "role not found")
	}

	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{
		"display_name":           req.DisplayName,
		"description":            req.Description,
		"confidentiality_levels": req.ConfidentialityLevels,
		"document_types":         req.DocumentTypes,
		"categories":             req.Categories,
		"can_upload":             req.CanUpload,
		"can_download":           req.CanDownload,
		"can_delete":             req.CanDelete,
		"can_approve":            req.CanApprove,
		"can_manage_obsolete":    req.CanManageObsolete,
	}
	if err := h.DB.Model(&role).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "could not update role")
	}

	if err := h.DB.Preload("Permissions").First(&role, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "could not reload role")
	}
	return utils.Success(c, fiber.StatusOK, role)
}

// Deactivate flips a role inactive. Rows are never hard-deleted so the
// assignment history stays intact.
func (h *RoleHandlers) Deactivate(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid role id")
	}

	result := h.DB.Model(&models.Role{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "could not deactivate role")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "role not found")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deactivated": true})
}
