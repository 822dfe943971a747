package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentAccessLog is an append-only audit record. The core only ever
// writes these rows; nothing reads them back to make decisions. It does not
// use BaseModel because audit rows are never updated or soft-deleted.
type DocumentAccessLog struct {
	ID         uuid.UUID              `json:"id" gorm:"type:uuid;primaryKey"`
	UserID     *uuid.UUID             `json:"userID,omitempty" gorm:"type:uuid;index"`
	DocumentID *uuid.UUID             `json:"documentID,omitempty" gorm:"type:uuid;index"`
	FolderID   *uuid.UUID             `json:"folderID,omitempty" gorm:"type:uuid;index"`
	Action     string                 `json:"action" gorm:"type:varchar(50);not null;index"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	IPAddress  string                 `json:"ipAddress" gorm:"type:varchar(45);not null"`
	RequestID  string                 `json:"requestID,omitempty" gorm:"type:varchar(36)"`
	CreatedAt  time.Time              `json:"createdAt" gorm:"not null;index"`
}

func (a *DocumentAccessLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (DocumentAccessLog) TableName() string {
	return "document_access_logs"
}
