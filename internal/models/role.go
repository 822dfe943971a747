package models

type Role struct {
	BaseModel
	Name        string `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	DisplayName string `json:"displayName" gorm:"type:varchar(255);not null"`
	Description string `json:"description" gorm:"type:text"`

	// Restriction arrays. An empty array means unrestricted for that
	// dimension, not zero access.
	ConfidentialityLevels []string `json:"confidentialityLevels" gorm:"type:jsonb;serializer:json"`
	DocumentTypes         []string `json:"documentTypes" gorm:"type:jsonb;serializer:json"`
	Categories            []string `json:"categories" gorm:"type:jsonb;serializer:json"`

	CanUpload         bool `json:"canUpload" gorm:"not null;default:false"`
	CanDownload       bool `json:"canDownload" gorm:"not null;default:false"`
	CanDelete         bool `json:"canDelete" gorm:"not null;default:false"`
	CanApprove        bool `json:"canApprove" gorm:"not null;default:false"`
	CanManageObsolete bool `json:"canManageObsolete" gorm:"not null;default:false"`

	// No column default: GORM drops zero-valued fields with a default
	// from INSERTs, which would store a role created inactive as active.
	IsActive bool `json:"isActive" gorm:"not null"`

	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:role_permissions"`
}

func (Role) TableName() string {
	return "roles"
}

// Permission is a named resource.action grant, e.g. "documents.delete".
type Permission struct {
	BaseModel
	Name        string `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Description string `json:"description" gorm:"type:text"`
}

func (Permission) TableName() string {
	return "permissions"
}
