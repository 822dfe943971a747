package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusActive   DocumentStatus = "active"
	DocumentStatusObsolete DocumentStatus = "obsolete"
	DocumentStatusArchived DocumentStatus = "archived"
)

// AccessRestrictions is an optional explicit allow-list carried on a
// document. A declared list restricts access to its members; an absent list
// means no restriction.
type AccessRestrictions struct {
	Users []string `json:"users,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

type Document struct {
	BaseModel
	Name         string         `json:"name" gorm:"type:varchar(255);not null;index"`
	OriginalName string         `json:"originalName" gorm:"type:varchar(255);not null;index"`
	FilePath     string         `json:"-" gorm:"type:text;not null"`
	FullPath     string         `json:"fullPath" gorm:"type:text;uniqueIndex;not null"`
	FolderID     uuid.UUID      `json:"folderID" gorm:"type:uuid;not null;index"`
	MimeType     string         `json:"mimeType" gorm:"type:varchar(255);not null"`
	Size         int64          `json:"size" gorm:"not null;default:0"`
	Version      string         `json:"version" gorm:"type:varchar(20);not null;default:'1.0'"`
	Status       DocumentStatus `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`

	// Denormalized ancestor names kept in sync with the folder path, used by
	// the permission checks without walking the tree.
	ConfidentialityLevel string `json:"confidentialityLevel" gorm:"type:varchar(100);index"`
	DocumentType         string `json:"documentType" gorm:"type:varchar(100);index"`
	Category             string `json:"category" gorm:"type:varchar(100);index"`

	AccessRestrictions     *AccessRestrictions `json:"accessRestrictions,omitempty" gorm:"type:jsonb;serializer:json"`
	RequiresApprovalToView bool                `json:"requiresApprovalToView" gorm:"not null;default:false"`

	CreatedByID  uuid.UUID  `json:"createdByID" gorm:"type:uuid;not null;index"`
	ApprovedByID *uuid.UUID `json:"approvedByID,omitempty" gorm:"type:uuid"`
	ApprovedAt   *time.Time `json:"approvedAt,omitempty"`

	Folder     Folder            `json:"folder,omitempty" gorm:"foreignKey:FolderID;references:ID"`
	CreatedBy  User              `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID;references:ID"`
	ApprovedBy *User             `json:"approvedBy,omitempty" gorm:"foreignKey:ApprovedByID;references:ID"`
	Versions   []DocumentVersion `json:"versions,omitempty" gorm:"foreignKey:DocumentID"`
}

func (Document) TableName() string {
	return "documents"
}

func (d *Document) IsApproved() bool {
	return d.ApprovedAt != nil
}
