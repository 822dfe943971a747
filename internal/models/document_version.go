package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentVersion is an immutable snapshot written by the versioning engine.
// It does not use BaseModel because version rows are never updated or
// soft-deleted; they go away only with their parent document.
type DocumentVersion struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	DocumentID  uuid.UUID `json:"documentID" gorm:"type:uuid;not null;uniqueIndex:idx_document_version"`
	Version     string    `json:"version" gorm:"type:varchar(20);not null;uniqueIndex:idx_document_version"`
	FilePath    string    `json:"-" gorm:"type:text;not null"`
	Size        int64     `json:"size" gorm:"not null;default:0"`
	ChangeNotes string    `json:"changeNotes" gorm:"type:text"`
	CreatedByID uuid.UUID `json:"createdByID" gorm:"type:uuid;not null"`
	CreatedAt   time.Time `json:"createdAt" gorm:"not null"`
}

func (v *DocumentVersion) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (DocumentVersion) TableName() string {
	return "document_versions"
}
