package models

import (
	"strings"

	"github.com/google/uuid"
)

type FolderType string

const (
	FolderTypeRoot            FolderType = "root"
	FolderTypeCategory        FolderType = "category"
	FolderTypeProcess         FolderType = "process"
	FolderTypeDocumentType    FolderType = "document_type"
	FolderTypeConfidentiality FolderType = "confidentiality"
	FolderTypeCustom          FolderType = "custom"
)

// Taxonomy levels. Documents may only live in state folders at the
// confidentiality-leaf level.
const (
	LevelRoot            = 1
	LevelCategory        = 2
	LevelProcess         = 3
	LevelDocumentType    = 4
	LevelConfidentiality = 5
)

const (
	StateFolderOriginal = "Original"
	StateFolderObsolete = "Obsolete"
)

// ProcessFolderNames is the fixed document-type name set materialized under
// every category.
var ProcessFolderNames = []string{
	"Procédures",
	"Modes opératoires",
	"Formulaires",
	"Enregistrements",
	"Documents externes",
}

// ConfidentialityLevels is the fixed label set forming the deepest named
// taxonomy tier, ordered from least to most restricted.
var ConfidentialityLevels = []string{
	"Public",
	"Interne",
	"Restreint",
	"Confidentiel",
	"Strictement Confidentiel",
}

// protectedFolderNames are structurally protected regardless of the
// is_protected flag.
var protectedFolderNames = map[string]bool{
	StateFolderOriginal: true,
	StateFolderObsolete: true,
	"Pilotage (4)":      true,
	"Réalisation (6)":   true,
	"Support (7)":       true,
}

type Folder struct {
	BaseModel
	Name             string     `json:"name" gorm:"type:varchar(255);not null"`
	FullPath         string     `json:"fullPath" gorm:"type:text;uniqueIndex;not null"`
	ParentID         *uuid.UUID `json:"parentID,omitempty" gorm:"type:uuid;index"`
	Level            int        `json:"level" gorm:"not null;index"`
	Type             FolderType `json:"type" gorm:"type:varchar(20);not null;default:'custom';index"`
	IsUserCreated    bool       `json:"isUserCreated" gorm:"not null;default:false"`
	IsProtected      bool       `json:"isProtected" gorm:"not null;default:false"`
	RoleRestrictions []string   `json:"roleRestrictions,omitempty" gorm:"type:jsonb;serializer:json"`

	Parent       *Folder    `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Children     []Folder   `json:"children,omitempty" gorm:"foreignKey:ParentID"`
	Documents    []Document `json:"documents,omitempty" gorm:"foreignKey:FolderID"`
	AllowedUsers []User     `json:"-" gorm:"many2many:folder_user_pivot"`
}

func (Folder) TableName() string {
	return "folders"
}

// FolderTypeForLevel maps a taxonomy level to the type assigned at creation.
func FolderTypeForLevel(level int) FolderType {
	switch level {
	case LevelRoot:
		return FolderTypeRoot
	case LevelCategory:
		return FolderTypeCategory
	case LevelProcess:
		return FolderTypeProcess
	case LevelDocumentType:
		return FolderTypeDocumentType
	case LevelConfidentiality:
		return FolderTypeConfidentiality
	default:
		return FolderTypeCustom
	}
}

// IsProtectedFolder reports whether deletion of this folder must be refused,
// either by flag or by structural name.
func (f *Folder) IsProtectedFolder() bool {
	return f.IsProtected || protectedFolderNames[f.Name]
}

// CanUploadFiles is the single gate for every upload entry point: only
// confidentiality-leaf folders accept documents.
func (f *Folder) CanUploadFiles() bool {
	return f.Level == LevelConfidentiality
}

func (f *Folder) ChildPath(name string) string {
	return f.FullPath + "/" + name
}

// PathSegment returns the ancestor name at the given taxonomy level, or ""
// when the folder is not that deep. Level 1 is the first path component.
func (f *Folder) PathSegment(level int) string {
	segments := strings.Split(f.FullPath, "/")
	if level < 1 || level > len(segments) {
		return ""
	}
	return segments[level-1]
}
