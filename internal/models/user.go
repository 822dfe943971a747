package models

import "github.com/google/uuid"

type User struct {
	BaseModel
	Email        string `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"type:text;not null"`
	FirstName    string `json:"firstName" gorm:"type:varchar(100);not null"`
	LastName     string `json:"lastName" gorm:"type:varchar(100);not null"`

	// Admin flags short-circuit every permission check to allow.
	IsAdmin         bool `json:"isAdmin" gorm:"not null;default:false"`
	IsDocumentAdmin bool `json:"isDocumentAdmin" gorm:"not null;default:false"`

	PrimaryRoleID *uuid.UUID `json:"primaryRoleID,omitempty" gorm:"type:uuid"`
	PrimaryRole   *Role      `json:"primaryRole,omitempty" gorm:"foreignKey:PrimaryRoleID;references:ID"`
	Roles         []Role     `json:"roles,omitempty" gorm:"many2many:user_roles"`

	// Per-user overrides. A non-empty restricted_confidentiality list
	// replaces role-derived confidentiality checks; department_access scopes
	// folder visibility by category.
	DepartmentAccess          []string `json:"departmentAccess" gorm:"type:jsonb;serializer:json"`
	RestrictedConfidentiality []string `json:"restrictedConfidentiality" gorm:"type:jsonb;serializer:json"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsPrivileged() bool {
	return u.IsAdmin || u.IsDocumentAdmin
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
