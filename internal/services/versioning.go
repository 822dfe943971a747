package services

import (
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gedvault/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// versionSuffix matches a previously inserted _v<N[.N]> marker in a file
// name stem, so re-archiving never stacks suffixes.
var versionSuffix = regexp.MustCompile(`_v[0-9][0-9.]*$`)

// VersioningService implements lifecycle transitions for versioned
// documents. Methods take the caller's transaction handle so archive flows
// stay atomic.
type VersioningService struct{}

func NewVersioningService() *VersioningService {
	return &VersioningService{}
}

// NextVersionNumber derives the version for the next snapshot of a
// document. No prior snapshots yields "1.0"; otherwise the numerically
// highest major is incremented and the minor resets, so "10.3" is followed
// by "11.0".
func (v *VersioningService) NextVersionNumber(tx *gorm.DB, documentID uuid.UUID) (string, error) {
	var versions []string
	err := tx.Model(&models.DocumentVersion{}).
		Where("document_id = ?", documentID).
		Pluck("version", &versions).Error
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "1.0", nil
	}

	highest := 0
	for _, raw := range versions {
		major, _, _ := strings.Cut(raw, ".")
		if n, err := strconv.Atoi(major); err == nil && n > highest {
			highest = n
		}
	}
	return strconv.Itoa(highest+1) + ".0", nil
}

// RecordSnapshot writes the immutable version row for the document's
// current content. A version that is already snapshotted is left alone:
// the existence check runs before the insert because a unique-index
// violation would abort the caller's transaction on Postgres.
func (v *VersioningService) RecordSnapshot(tx *gorm.DB, doc *models.Document, changeNotes string) error {
	var existing int64
	err := tx.Model(&models.DocumentVersion{}).
		Where("document_id = ? AND version = ?", doc.ID, doc.Version).
		Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	snapshot := models.DocumentVersion{
		DocumentID:  doc.ID,
		Version:     doc.Version,
		FilePath:    doc.FilePath,
		Size:        doc.Size,
		ChangeNotes: changeNotes,
		CreatedByID: doc.CreatedByID,
	}
	return tx.Create(&snapshot).Error
}

// MoveToObsolete relocates a document into the mirrored Obsolete subtree:
// the first "Original/" component of its folder path is substituted with
// "Obsolete/" and the row is repointed at that folder. Returns false, with
// no mutation, when the path has no Original component or the mirror folder
// does not exist.
func (v *VersioningService) MoveToObsolete(tx *gorm.DB, doc *models.Document) (bool, error) {
	folderPath := strings.TrimSuffix(doc.FullPath, "/"+doc.Name)

	mirrored := strings.Replace(folderPath+"/", models.StateFolderOriginal+"/", models.StateFolderObsolete+"/", 1)
	mirrored = strings.TrimSuffix(mirrored, "/")
	if mirrored == folderPath {
		return false, nil
	}

	var target models.Folder
	err := tx.Where("full_path = ?", mirrored).First(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	updates := map[string]interface{}{
		"folder_id": target.ID,
		"status":    models.DocumentStatusObsolete,
		"full_path": target.FullPath + "/" + doc.Name,
	}
	if err := tx.Model(doc).Updates(updates).Error; err != nil {
		return false, err
	}
	doc.FolderID = target.ID
	doc.Status = models.DocumentStatusObsolete
	doc.FullPath = target.FullPath + "/" + doc.Name
	return true, nil
}

// ArchiveName derives the file name for a new version: any existing
// _v<...> marker is stripped from the stem, then _v<version> is inserted
// before the extension. "Guide.pdf" at 2.0 becomes "Guide_v2.0.pdf".
func (v *VersioningService) ArchiveName(name, version string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	stem = versionSuffix.ReplaceAllString(stem, "")
	return stem + "_v" + version + ext
}
