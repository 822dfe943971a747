package handlers

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/gedvault/backend/internal/middleware"
	"github.com/gedvault/backend/internal/services"
	"github.com/gedvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type FolderHandlers struct {
	Folders   *services.FolderService
	Documents *services.DocumentService
	Access    *services.AccessService
}

func NewFolderHandlers(folders *services.FolderService, documents *services.DocumentService, access *services.AccessService) *FolderHandlers {
	return &FolderHandlers{Folders: folders, Documents: documents, Access: access}
}

// Hierarchy returns one eager level of the folder tree. With no parent_id
// the taxonomy roots are returned. Nodes the user may not enter are
// filtered out.
func (h *FolderHandlers) Hierarchy(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var parentID *uuid.UUID
	if raw := c.Query("parent_id"); raw != "" {
		id, err := parseUUID(raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid parent_id")
		}
		parentID = &id
	}

	nodes, err := h.Folders.Hierarchy(c.Context(), parentID)
	if err != nil {
		return serviceError(c, err)
	}

	visible := make([]services.HierarchyNode, 0, len(nodes))
	for _, node := range nodes {
		folder, err := h.Folders.Get(c.Context(), node.ID)
		if err != nil {
			continue
		}
		if !h.Access.CanAccessFolder(c.Context(), user, folder) {
			continue
		}
		node.Documents = h.Access.FilterDocuments(c.Context(), user, node.Documents)
		visible = append(visible, node)
	}
	return utils.Success(c, fiber.StatusOK, visible)
}

type createFolderRequest struct {
	Name       string `json:"name"`
	ParentPath string `json:"parentPath"`
}

func (r createFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.ParentPath, validation.Required),
	)
}

// Create adds a folder and its mandatory substructure.
func (h *FolderHandlers) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req createFolderRequest
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

	folder, err := h.Folders.Create(c.Context(), user, req.Name, req.ParentPath)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, folder)
}

type deleteFolderRequest struct {
	Path string `json:"path"`
}

// Delete removes a non-protected folder and its whole subtree.
func (h *FolderHandlers) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req deleteFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Path == "" {
		return utils.ValidationError(c, map[string]string{"path": "cannot be blank"})
	}

	err := h.Documents.DeleteFolder(c.Context(), user, req.Path, c.IP(), middleware.GetRequestID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
