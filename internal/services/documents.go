package services

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gedvault/backend/internal/models"
	"github.com/gedvault/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ObjectStore is the blob-store boundary the document service writes
// through. Satisfied by storage.MinIOClient.
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectName string) error
	Exists(ctx context.Context, objectName string) (bool, error)
}

// allowedMimeTypes is the single upload allow-list shared by every entry
// point.
var allowedMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-powerpoint":                                     true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain": true,
	"text/csv":   true,
	"image/png":  true,
	"image/jpeg": true,
}

// SearchLimit caps result sets for every search entry point.
const SearchLimit = 100

// DocumentService orchestrates uploads, renames, deletes, search and ZIP
// bundling over the access, versioning and storage layers.
type DocumentService struct {
	DB          *gorm.DB
	Storage     ObjectStore
	Folders     *FolderService
	Access      *AccessService
	Permissions *PermissionService
	Versioning  *VersioningService
	Audit       *AuditService
	MaxFileSize int64
}

func NewDocumentService(db *gorm.DB, store ObjectStore, folders *FolderService, access *AccessService, permissions *PermissionService, versioning *VersioningService, audit *AuditService, maxFileSize int64) *DocumentService {
	return &DocumentService{
		DB:          db,
		Storage:     store,
		Folders:     folders,
		Access:      access,
		Permissions: permissions,
		Versioning:  versioning,
		Audit:       audit,
		MaxFileSize: maxFileSize,
	}
}

// UploadInput carries one incoming file plus request metadata for auditing.
type UploadInput struct {
	FolderPath  string
	FileName    string
	MimeType    string
	Size        int64
	Content     io.Reader
	IsArchive   bool
	Version     string
	ChangeNotes string
	IPAddress   string
	RequestID   string
}

// Upload stores a single file as a new active document. See UploadBatch.
func (s *DocumentService) Upload(ctx context.Context, actor *models.User, in UploadInput) (*models.Document, error) {
	docs, err := s.UploadBatch(ctx, actor, []UploadInput{in})
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}

// UploadBatch stores a set of files as new active documents. In archive
// mode an existing document with the same original name is first relocated
// to the Obsolete mirror and the new row carries the next version with a
// _v suffix in its name. All rows go in one transaction; the blobs are
// written first and every blob of the batch is deleted again when any file
// fails.
func (s *DocumentService) UploadBatch(ctx context.Context, actor *models.User, inputs []UploadInput) ([]*models.Document, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no files provided: %w", ErrValidation)
	}
	if !s.Permissions.CanPerform(ctx, actor, CapabilityUpload) {
		return nil, fmt.Errorf("upload: %w", ErrForbidden)
	}

	folders := make([]*models.Folder, len(inputs))
	folderByPath := map[string]*models.Folder{}
	for i := range inputs {
		in := &inputs[i]
		in.FileName = strings.TrimSpace(filepath.Base(in.FileName))
		if in.FileName == "" || in.FileName == "." {
			return nil, fmt.Errorf("file name is required: %w", ErrValidation)
		}
		if !allowedMimeTypes[in.MimeType] {
			return nil, fmt.Errorf("mime type %q is not allowed: %w", in.MimeType, ErrValidation)
		}
		if s.MaxFileSize > 0 && in.Size > s.MaxFileSize {
			return nil, fmt.Errorf("file %q exceeds the size limit: %w", in.FileName, ErrValidation)
		}

		folder, ok := folderByPath[in.FolderPath]
		if !ok {
			resolved, err := s.Folders.ResolveByPath(ctx, in.FolderPath)
			if err != nil {
				return nil, err
			}
			if !resolved.CanUploadFiles() {
				return nil, fmt.Errorf("folder %q does not accept files: %w", resolved.FullPath, ErrValidation)
			}
			if !s.Access.CanAccessFolder(ctx, actor, resolved) {
				return nil, fmt.Errorf("upload to %q: %w", resolved.FullPath, ErrForbidden)
			}
			folderByPath[in.FolderPath] = resolved
			folder = resolved
		}
		folders[i] = folder
	}

	objectKeys := make([]string, len(inputs))
	for i := range inputs {
		key := fmt.Sprintf("documents/%s%s", uuid.New().String(), filepath.Ext(inputs[i].FileName))
		if err := s.Storage.Upload(ctx, key, inputs[i].Content, inputs[i].Size, inputs[i].MimeType); err != nil {
			s.deleteObjectKeys(objectKeys[:i])
			return nil, fmt.Errorf("store blob: %w: %v", ErrStorage, err)
		}
		objectKeys[i] = key
	}

	docs := make([]*models.Document, 0, len(inputs))
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		docs = docs[:0]
		for i := range inputs {
			doc, err := s.insertDocument(tx, actor, folders[i], objectKeys[i], inputs[i])
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		s.deleteObjectKeys(objectKeys)
		return nil, err
	}

	for i, doc := range docs {
		s.Audit.LogAsync(AccessLogEntry{
			UserID:     &actor.ID,
			DocumentID: &doc.ID,
			FolderID:   &doc.FolderID,
			Action:     "upload",
			Metadata: map[string]interface{}{
				"name":       doc.Name,
				"version":    doc.Version,
				"is_archive": inputs[i].IsArchive,
			},
			IPAddress: inputs[i].IPAddress,
			RequestID: inputs[i].RequestID,
		})
	}
	return docs, nil
}

func (s *DocumentService) insertDocument(tx *gorm.DB, actor *models.User, folder *models.Folder, objectKey string, in UploadInput) (*models.Document, error) {
	version := strings.TrimSpace(in.Version)
	name := in.FileName

	if in.IsArchive {
		var prior models.Document
		err := tx.Where("folder_id = ? AND original_name = ? AND status = ?",
			folder.ID, in.FileName, models.DocumentStatusActive).
			First(&prior).Error
		switch {
		case err == nil:
			if err := s.Versioning.RecordSnapshot(tx, &prior, in.ChangeNotes); err != nil {
				return nil, err
			}
			moved, err := s.Versioning.MoveToObsolete(tx, &prior)
			if err != nil {
				return nil, err
			}
			if !moved {
				return nil, fmt.Errorf("no Obsolete mirror for %q: %w", prior.FullPath, ErrConflict)
			}
			if version == "" {
				version, err = s.Versioning.NextVersionNumber(tx, prior.ID)
				if err != nil {
					return nil, err
				}
			}
			name = s.Versioning.ArchiveName(in.FileName, version)
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Nothing to supersede: archive mode degenerates to a
			// plain upload.
		default:
			return nil, err
		}
	}

	if version == "" {
		version = "1.0"
	}

	var dup int64
	if err := tx.Model(&models.Document{}).
		Where("folder_id = ? AND name = ? AND status = ?", folder.ID, name, models.DocumentStatusActive).
		Count(&dup).Error; err != nil {
		return nil, err
	}
	if dup > 0 {
		return nil, fmt.Errorf("active document %q already exists in %q: %w", name, folder.FullPath, ErrConflict)
	}

	doc := &models.Document{
		Name:                 name,
		OriginalName:         in.FileName,
		FilePath:             objectKey,
		FullPath:             folder.ChildPath(name),
		FolderID:             folder.ID,
		MimeType:             in.MimeType,
		Size:                 in.Size,
		Version:              version,
		Status:               models.DocumentStatusActive,
		ConfidentialityLevel: folder.PathSegment(models.LevelDocumentType),
		DocumentType:         folder.PathSegment(models.LevelProcess),
		Category:             folder.PathSegment(models.LevelCategory),
		CreatedByID:          actor.ID,
	}
	if err := tx.Create(doc).Error; err != nil {
		return nil, err
	}
	if err := s.Versioning.RecordSnapshot(tx, doc, in.ChangeNotes); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) deleteObjectKeys(keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.Storage.Delete(context.Background(), key); err != nil {
			logger.Error("orphan_blob_cleanup_failed", err, map[string]interface{}{
				"object_key": key,
			})
		}
	}
}

// Get loads a document and enforces access.
func (s *DocumentService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := s.DB.WithContext(ctx).Preload("Folder").First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !s.Access.CanAccessDocument(ctx, actor, &doc) {
		return nil, fmt.Errorf("document %s: %w", id, ErrForbidden)
	}
	return &doc, nil
}

// Download opens the blob stream for a document the actor may read.
func (s *DocumentService) Download(ctx context.Context, actor *models.User, id uuid.UUID, ipAddress, requestID string) (io.ReadCloser, *models.Document, error) {
	if !s.Permissions.CanPerform(ctx, actor, CapabilityDownload) {
		return nil, nil, fmt.Errorf("download: %w", ErrForbidden)
	}
	doc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.Storage.Download(ctx, doc.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open blob for %s: %w: %v", doc.ID, ErrStorage, err)
	}

	s.Audit.LogAsync(AccessLogEntry{
		UserID:     &actor.ID,
		DocumentID: &doc.ID,
		FolderID:   &doc.FolderID,
		Action:     "download",
		Metadata:   map[string]interface{}{"name": doc.Name},
		IPAddress:  ipAddress,
		RequestID:  requestID,
	})
	return reader, doc, nil
}

// Rename changes a document's name, keeping full_path consistent and
// enforcing the active duplicate-name guard.
func (s *DocumentService) Rename(ctx context.Context, actor *models.User, id uuid.UUID, newName, ipAddress, requestID string) (*models.Document, error) {
	if !s.Permissions.HasPermission(ctx, actor, "documents.rename") {
		return nil, fmt.Errorf("rename: %w", ErrForbidden)
	}

	newName = strings.TrimSpace(filepath.Base(newName))
	if newName == "" || newName == "." {
		return nil, fmt.Errorf("new name is required: %w", ErrValidation)
	}

	doc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	oldName := doc.Name

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if doc.Status == models.DocumentStatusActive {
			var dup int64
			if err := tx.Model(&models.Document{}).
				Where("folder_id = ? AND name = ? AND status = ? AND id <> ?",
					doc.FolderID, newName, models.DocumentStatusActive, doc.ID).
				Count(&dup).Error; err != nil {
				return err
			}
			if dup > 0 {
				return fmt.Errorf("active document %q already exists: %w", newName, ErrConflict)
			}
		}

		// Updates through Model(doc) also mutates the struct, so the
		// returned document already carries the new name and path.
		folderPath := strings.TrimSuffix(doc.FullPath, "/"+doc.Name)
		return tx.Model(doc).Updates(map[string]interface{}{
			"name":      newName,
			"full_path": folderPath + "/" + newName,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.Audit.LogAsync(AccessLogEntry{
		UserID:     &actor.ID,
		DocumentID: &doc.ID,
		FolderID:   &doc.FolderID,
		Action:     "rename",
		Metadata:   map[string]interface{}{"from": oldName, "to": newName},
		IPAddress:  ipAddress,
		RequestID:  requestID,
	})
	return doc, nil
}

// UpdateRestrictions replaces a document's access restrictions and approval
// gate. Reserved to admins and document admins.
func (s *DocumentService) UpdateRestrictions(ctx context.Context, actor *models.User, id uuid.UUID, restrictions *models.AccessRestrictions, requiresApproval *bool) (*models.Document, error) {
	if !actor.IsPrivileged() {
		return nil, fmt.Errorf("update restrictions: %w", ErrForbidden)
	}

	doc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	// Struct update with an explicit field selection: the json serializer
	// on access_restrictions only applies to struct writes, and Select
	// keeps cleared (zero) fields in the statement.
	doc.AccessRestrictions = restrictions
	fields := []string{"access_restrictions"}
	if requiresApproval != nil {
		doc.RequiresApprovalToView = *requiresApproval
		fields = append(fields, "requires_approval_to_view")
		if !*requiresApproval {
			doc.ApprovedByID = nil
			doc.ApprovedAt = nil
			fields = append(fields, "approved_by_id", "approved_at")
		}
	}
	if err := s.DB.WithContext(ctx).Model(doc).Select(fields).Updates(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes a document: the row and its version snapshots go in one
// transaction, blob removal is best effort after commit. Obsolete documents
// additionally require the manage-obsolete capability.
func (s *DocumentService) Delete(ctx context.Context, actor *models.User, id uuid.UUID, ipAddress, requestID string) error {
	if !s.Permissions.CanPerform(ctx, actor, CapabilityDelete) {
		return fmt.Errorf("delete: %w", ErrForbidden)
	}

	doc, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if doc.Status == models.DocumentStatusObsolete &&
		!s.Permissions.CanPerform(ctx, actor, CapabilityManageObsolete) {
		return fmt.Errorf("delete obsolete document: %w", ErrForbidden)
	}

	blobs := s.collectBlobKeys(ctx, doc)

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.DocumentVersion{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(doc).Error
	})
	if err != nil {
		return err
	}

	s.deleteBlobs(ctx, doc.ID, blobs)

	s.Audit.LogAsync(AccessLogEntry{
		UserID:     &actor.ID,
		DocumentID: &doc.ID,
		FolderID:   &doc.FolderID,
		Action:     "delete",
		Metadata:   map[string]interface{}{"name": doc.Name, "status": string(doc.Status)},
		IPAddress:  ipAddress,
		RequestID:  requestID,
	})
	return nil
}

// collectBlobKeys gathers the document blob and every distinct snapshot
// blob. Must run while the version rows still exist.
func (s *DocumentService) collectBlobKeys(ctx context.Context, doc *models.Document) map[string]bool {
	keys := map[string]bool{doc.FilePath: true}

	var versionPaths []string
	if err := s.DB.WithContext(ctx).Model(&models.DocumentVersion{}).
		Where("document_id = ?", doc.ID).
		Pluck("file_path", &versionPaths).Error; err == nil {
		for _, p := range versionPaths {
			keys[p] = true
		}
	}
	return keys
}

// deleteBlobs best-effort removes the given object keys. Missing objects
// are not an error.
func (s *DocumentService) deleteBlobs(ctx context.Context, documentID uuid.UUID, keys map[string]bool) {
	for key := range keys {
		if key == "" {
			continue
		}
		if err := s.Storage.Delete(ctx, key); err != nil {
			logger.Warn("blob_delete_failed", map[string]interface{}{
				"object_key":  key,
				"document_id": documentID.String(),
				"error":       err.Error(),
			})
		}
	}
}

// BulkDelete removes every listed document: rows and snapshots go in one
// transaction, so a single undeletable document fails the whole batch and
// leaves the rest in place. Blob removal is best effort after commit.
func (s *DocumentService) BulkDelete(ctx context.Context, actor *models.User, ids []uuid.UUID, ipAddress, requestID string) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("no documents selected: %w", ErrValidation)
	}
	if !s.Permissions.CanPerform(ctx, actor, CapabilityDelete) {
		return 0, fmt.Errorf("delete: %w", ErrForbidden)
	}

	docs := make([]*models.Document, 0, len(ids))
	blobs := make([]map[string]bool, 0, len(ids))
	for _, id := range ids {
		doc, err := s.Get(ctx, actor, id)
		if err != nil {
			return 0, err
		}
		if doc.Status == models.DocumentStatusObsolete &&
			!s.Permissions.CanPerform(ctx, actor, CapabilityManageObsolete) {
			return 0, fmt.Errorf("delete obsolete document: %w", ErrForbidden)
		}
		docs = append(docs, doc)
		blobs = append(blobs, s.collectBlobKeys(ctx, doc))
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, doc := range docs {
			if err := tx.Where("document_id = ?", doc.ID).Delete(&models.DocumentVersion{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Delete(doc).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for i, doc := range docs {
		s.deleteBlobs(ctx, doc.ID, blobs[i])
		s.Audit.LogAsync(AccessLogEntry{
			UserID:     &actor.ID,
			DocumentID: &doc.ID,
			FolderID:   &doc.FolderID,
			Action:     "delete",
			Metadata:   map[string]interface{}{"name": doc.Name, "status": string(doc.Status)},
			IPAddress:  ipAddress,
			RequestID:  requestID,
		})
	}
	return len(docs), nil
}

// SearchInput scopes a document search.
type SearchInput struct {
	Query      string
	FolderPath string
	Status     string
	Limit      int
}

// Search runs a case-insensitive substring match on name and original
// name, optionally constrained to a folder subtree and a status, ordered by
// name and capped at SearchLimit. Results are filtered through document
// access before returning.
func (s *DocumentService) Search(ctx context.Context, actor *models.User, in SearchInput) ([]models.Document, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, fmt.Errorf("search query is required: %w", ErrValidation)
	}

	limit := in.Limit
	if limit <= 0 || limit > SearchLimit {
		limit = SearchLimit
	}

	pattern := "%" + strings.ToLower(query) + "%"
	q := s.DB.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(original_name) LIKE ?", pattern, pattern).
		Order("name").
		Limit(limit)

	if in.FolderPath != "" {
		folder, err := s.Folders.ResolveByPath(ctx, in.FolderPath)
		if err != nil {
			return nil, err
		}
		q = q.Where("full_path LIKE ?", folder.FullPath+"/%")
	}
	if in.Status != "" {
		q = q.Where("status = ?", in.Status)
	}

	var docs []models.Document
	if err := q.Find(&docs).Error; err != nil {
		return nil, err
	}
	return s.Access.FilterDocuments(ctx, actor, docs), nil
}

// ListFolderDocuments returns the accessible documents directly inside a
// folder, active first then by name.
func (s *DocumentService) ListFolderDocuments(ctx context.Context, actor *models.User, folderPath string) ([]models.Document, error) {
	folder, err := s.Folders.ResolveByPath(ctx, folderPath)
	if err != nil {
		return nil, err
	}
	if !s.Access.CanAccessFolder(ctx, actor, folder) {
		return nil, fmt.Errorf("folder %q: %w", folder.FullPath, ErrForbidden)
	}

	var docs []models.Document
	if err := s.DB.WithContext(ctx).
		Where("folder_id = ?", folder.ID).
		Order("status, name").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return s.Access.FilterDocuments(ctx, actor, docs), nil
}

// ZipDocuments bundles the accessible blobs among ids into a transient ZIP
// file on disk and returns its path with a cleanup function. Documents with
// a missing blob are skipped, not failed.
func (s *DocumentService) ZipDocuments(ctx context.Context, actor *models.User, ids []uuid.UUID, ipAddress, requestID string) (string, func(), error) {
	if !s.Permissions.CanPerform(ctx, actor, CapabilityDownload) {
		return "", nil, fmt.Errorf("bulk download: %w", ErrForbidden)
	}
	if len(ids) == 0 {
		return "", nil, fmt.Errorf("no documents selected: %w", ErrValidation)
	}

	tmp, err := os.CreateTemp("", "gedvault-bundle-*.zip")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	archive := zip.NewWriter(tmp)
	bundled := 0
	usedNames := map[string]int{}

	for _, id := range ids {
		doc, err := s.Get(ctx, actor, id)
		if err != nil {
			continue
		}
		exists, err := s.Storage.Exists(ctx, doc.FilePath)
		if err != nil || !exists {
			logger.Warn("bundle_skip_missing_blob", map[string]interface{}{
				"document_id": doc.ID.String(),
			})
			continue
		}
		reader, err := s.Storage.Download(ctx, doc.FilePath)
		if err != nil {
			continue
		}

		name := doc.Name
		if n := usedNames[name]; n > 0 {
			ext := filepath.Ext(name)
			name = fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
		}
		usedNames[doc.Name]++

		entry, err := archive.Create(name)
		if err != nil {
			reader.Close()
			archive.Close()
			tmp.Close()
			cleanup()
			return "", nil, err
		}
		if _, err := io.Copy(entry, reader); err != nil {
			reader.Close()
			archive.Close()
			tmp.Close()
			cleanup()
			return "", nil, err
		}
		reader.Close()
		bundled++

		s.Audit.LogAsync(AccessLogEntry{
			UserID:     &actor.ID,
			DocumentID: &doc.ID,
			FolderID:   &doc.FolderID,
			Action:     "download",
			Metadata:   map[string]interface{}{"name": doc.Name, "bundle": true},
			IPAddress:  ipAddress,
			RequestID:  requestID,
		})
	}

	if err := archive.Close(); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	if bundled == 0 {
		cleanup()
		return "", nil, fmt.Errorf("no accessible documents to bundle: %w", ErrNotFound)
	}
	return tmp.Name(), cleanup, nil
}

// DeleteFolder removes a non-protected folder with its entire subtree of
// folders and documents. Rows go in one transaction; blob deletion is best
// effort afterwards.
func (s *DocumentService) DeleteFolder(ctx context.Context, actor *models.User, path, ipAddress, requestID string) error {
	if !s.Permissions.HasPermission(ctx, actor, "folders.delete") {
		return fmt.Errorf("delete folder: %w", ErrForbidden)
	}

	folder, err := s.Folders.ResolveByPath(ctx, path)
	if err != nil {
		return err
	}
	if folder.IsProtectedFolder() {
		return fmt.Errorf("folder %q is protected: %w", folder.FullPath, ErrForbidden)
	}

	subtree, err := s.Folders.Subtree(ctx, folder)
	if err != nil {
		return err
	}
	folderIDs := make([]uuid.UUID, len(subtree))
	for i, f := range subtree {
		folderIDs[i] = f.ID
	}

	var docs []models.Document
	if err := s.DB.WithContext(ctx).
		Where("folder_id IN ?", folderIDs).
		Find(&docs).Error; err != nil {
		return err
	}
	docIDs := make([]uuid.UUID, len(docs))
	blobs := make([]map[string]bool, len(docs))
	for i := range docs {
		docIDs[i] = docs[i].ID
		blobs[i] = s.collectBlobKeys(ctx, &docs[i])
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(docIDs) > 0 {
			if err := tx.Where("document_id IN ?", docIDs).Delete(&models.DocumentVersion{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("id IN ?", docIDs).Delete(&models.Document{}).Error; err != nil {
				return err
			}
		}
		return tx.Unscoped().Where("id IN ?", folderIDs).Delete(&models.Folder{}).Error
	})
	if err != nil {
		return err
	}

	for i := range docs {
		s.deleteBlobs(ctx, docs[i].ID, blobs[i])
	}

	s.Audit.LogAsync(AccessLogEntry{
		UserID:   &actor.ID,
		FolderID: &folder.ID,
		Action:   "folder_delete",
		Metadata: map[string]interface{}{
			"full_path": folder.FullPath,
			"folders":   len(subtree),
			"documents": len(docs),
		},
		IPAddress: ipAddress,
		RequestID: requestID,
	})
	return nil
}
