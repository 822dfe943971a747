package handlers

import (
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/gedvault/backend/internal/middleware"
	"github.com/gedvault/backend/internal/models"
	"github.com/gedvault/backend/internal/services"
	"github.com/gedvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type DocumentHandlers struct {
	Documents *services.DocumentService
}

func NewDocumentHandlers(documents *services.DocumentService) *DocumentHandlers {
	return &DocumentHandlers{Documents: documents}
}

// documentListItem is the compact shape the folder browser renders.
type documentListItem struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	FullPath     string    `json:"fullPath"`
	Size         string    `json:"size"`
	Version      string    `json:"version"`
	Status       string    `json:"status"`
	MimeType     string    `json:"mimeType"`
	LastModified string    `json:"lastModified"`
}

func toListItem(doc *models.Document) documentListItem {
	return documentListItem{
		ID:           doc.ID,
		Name:         doc.Name,
		FullPath:     doc.FullPath,
		Size:         utils.FormatBytes(doc.Size),
		Version:      doc.Version,
		Status:       string(doc.Status),
		MimeType:     doc.MimeType,
		LastModified: doc.UpdatedAt.Format("2006-01-02"),
	}
}

// Upload accepts one or more files under the multipart key "files[]" plus a
// folder_path form field. With is_archive=true an existing document of the
// same original name is superseded. The batch commits as a whole: one
// rejected file fails every file.
func (h *DocumentHandlers) Upload(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	form, err := c.MultipartForm()
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid multipart form")
	}
	files := form.File["files[]"]
	if len(files) == 0 {
		files = form.File["files"]
	}
	if len(files) == 0 {
		return utils.ValidationError(c, map[string]string{"files[]": "at least one file is required"})
	}

	folderPath := c.FormValue("folder_path")
	if folderPath == "" {
		return utils.ValidationError(c, map[string]string{"folder_path": "cannot be blank"})
	}
	isArchive := strings.EqualFold(c.FormValue("is_archive"), "true")
	version := c.FormValue("version")
	changeNotes := c.FormValue("change_notes")

	inputs := make([]services.UploadInput, 0, len(files))
	opened := make([]multipart.File, 0, len(files))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, fmt.Sprintf("could not read %q", header.Filename))
		}
		opened = append(opened, file)
		inputs = append(inputs, services.UploadInput{
			FolderPath:  folderPath,
			FileName:    header.Filename,
			MimeType:    header.Header.Get("Content-Type"),
			Size:        header.Size,
			Content:     file,
			IsArchive:   isArchive,
			Version:     version,
			ChangeNotes: changeNotes,
			IPAddress:   c.IP(),
			RequestID:   middleware.GetRequestID(c),
		})
	}

	docs, err := h.Documents.UploadBatch(c.Context(), user, inputs)
	if err != nil {
		return serviceError(c, err)
	}
	created := make([]documentListItem, 0, len(docs))
	for _, doc := range docs {
		created = append(created, toListItem(doc))
	}
	return utils.Success(c, fiber.StatusCreated, created)
}

// List returns the accessible documents directly inside folder_path.
func (h *DocumentHandlers) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	folderPath := c.Query("folder_path")
	if folderPath == "" {
		return utils.ValidationError(c, map[string]string{"folder_path": "cannot be blank"})
	}

	docs, err := h.Documents.ListFolderDocuments(c.Context(), user, folderPath)
	if err != nil {
		return serviceError(c, err)
	}

	items := make([]documentListItem, 0, len(docs))
	for i := range docs {
		items = append(items, toListItem(&docs[i]))
	}
	return utils.Success(c, fiber.StatusOK, items)
}

// Download streams a document's blob.
func (h *DocumentHandlers) Download(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	reader, doc, err := h.Documents.Download(c.Context(), user, id, c.IP(), middleware.GetRequestID(c))
	if err != nil {
		return serviceError(c, err)
	}

	c.Set(fiber.HeaderContentType, doc.MimeType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, doc.Name))
	return c.SendStream(reader)
}

type renameRequest struct {
	Name string `json:"name"`
}

// Rename changes a document's file name.
func (h *DocumentHandlers) Rename(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	var req renameRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	doc, err := h.Documents.Rename(c.Context(), user, id, req.Name, c.IP(), middleware.GetRequestID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, doc)
}

type restrictionsRequest struct {
	AccessRestrictions     *models.AccessRestrictions `json:"accessRestrictions"`
	RequiresApprovalToView *bool                      `json:"requiresApprovalToView"`
}

// UpdateRestrictions replaces a document's allow-lists and approval gate.
func (h *DocumentHandlers) UpdateRestrictions(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	var req restrictionsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	doc, err := h.Documents.UpdateRestrictions(c.Context(), user, id, req.AccessRestrictions, req.RequiresApprovalToView)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, doc)
}

// Delete removes a single document.
func (h *DocumentHandlers) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	if err := h.Documents.Delete(c.Context(), user, id, c.IP(), middleware.GetRequestID(c)); err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

type bulkRequest struct {
	DocumentIDs []string `json:"document_ids"`
}

func (r bulkRequest) parse() ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(r.DocumentIDs))
	for _, raw := range r.DocumentIDs {
		id, err := parseUUID(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid document id %q", raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// BulkDelete removes every deletable document among document_ids.
func (h *DocumentHandlers) BulkDelete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req bulkRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	ids, err := req.parse()
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	deleted, err := h.Documents.BulkDelete(c.Context(), user, ids, c.IP(), middleware.GetRequestID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"deleted":   deleted,
		"requested": len(ids),
	})
}

// BulkDownload bundles the requested documents into a ZIP and streams it.
func (h *DocumentHandlers) BulkDownload(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req bulkRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	ids, err := req.parse()
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	archivePath, cleanup, err := h.Documents.ZipDocuments(c.Context(), user, ids, c.IP(), middleware.GetRequestID(c))
	if err != nil {
		return serviceError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="documents.zip"`)
	if err := c.SendFile(archivePath); err != nil {
		cleanup()
		return err
	}
	cleanup()
	return nil
}

// Search matches documents by name substring, optionally scoped to a
// subtree and a status.
func (h *DocumentHandlers) Search(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	docs, err := h.Documents.Search(c.Context(), user, services.SearchInput{
		Query:      c.Query("q"),
		FolderPath: c.Query("folder_path"),
		Status:     c.Query("status"),
		Limit:      c.QueryInt("limit"),
	})
	if err != nil {
		return serviceError(c, err)
	}

	items := make([]documentListItem, 0, len(docs))
	for i := range docs {
		items = append(items, toListItem(&docs[i]))
	}
	return utils.Success(c, fiber.StatusOK, items)
}
