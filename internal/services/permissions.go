package services

import (
	"context"

	"github.com/gedvault/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Capability names a boolean flag carried on a role.
type Capability string

const (
	CapabilityUpload         Capability = "upload"
	CapabilityDownload       Capability = "download"
	CapabilityDelete         Capability = "delete"
	CapabilityApprove        Capability = "approve"
	CapabilityManageObsolete Capability = "manage_obsolete"
)

// capabilityAccessors maps each capability to its role accessor. Built once
// instead of resolving flag fields by string-assembled attribute names.
var capabilityAccessors = map[Capability]func(*models.Role) bool{
	CapabilityUpload:         func(r *models.Role) bool { return r.CanUpload },
	CapabilityDownload:       func(r *models.Role) bool { return r.CanDownload },
	CapabilityDelete:         func(r *models.Role) bool { return r.CanDelete },
	CapabilityApprove:        func(r *models.Role) bool { return r.CanApprove },
	CapabilityManageObsolete: func(r *models.Role) bool { return r.CanManageObsolete },
}

// PermissionService reduces a user's role graph to yes/no answers. Every
// check takes the acting user explicitly; there is no ambient request
// context.
type PermissionService struct {
	DB *gorm.DB
}

func NewPermissionService(db *gorm.DB) *PermissionService {
	return &PermissionService{DB: db}
}

// EffectiveRoles returns the user's primary role unioned with every
// assigned role, deduplicated, inactive roles excluded.
func (p *PermissionService) EffectiveRoles(ctx context.Context, user *models.User) ([]models.Role, error) {
	ids := make([]uuid.UUID, 0, 4)
	if user.PrimaryRoleID != nil {
		ids = append(ids, *user.PrimaryRoleID)
	}

	var assigned []uuid.UUID
	if err := p.DB.WithContext(ctx).
		Table("user_roles").
		Where("user_id = ?", user.ID).
		Pluck("role_id", &assigned).Error; err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(ids)+len(assigned))
	for _, id := range append(ids, assigned...) {
		seen[id] = true
	}
	if len(seen) == 0 {
		return nil, nil
	}

	unique := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		unique = append(unique, id)
	}

	var roles []models.Role
	if err := p.DB.WithContext(ctx).
		Where("id IN ? AND is_active = ?", unique, true).
		Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// RoleNames returns the names of the user's effective roles, primary role
// included.
func (p *PermissionService) RoleNames(ctx context.Context, user *models.User) ([]string, error) {
	roles, err := p.EffectiveRoles(ctx, user)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

// HasPermission reports whether any effective role declares the named
// resource.action permission. Admin flags short-circuit to allow.
func (p *PermissionService) HasPermission(ctx context.Context, user *models.User, permission string) bool {
	if user.IsPrivileged() {
		return true
	}

	roles, err := p.EffectiveRoles(ctx, user)
	if err != nil || len(roles) == 0 {
		return false
	}

	roleIDs := make([]uuid.UUID, len(roles))
	for i, r := range roles {
		roleIDs[i] = r.ID
	}

	var count int64
	err = p.DB.WithContext(ctx).
		Table("role_permissions").
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("role_permissions.role_id IN ?", roleIDs).
		Where("permissions.name = ?", permission).
		Count(&count).Error
	return err == nil && count > 0
}

// CanPerform reports whether any effective role carries the capability flag.
func (p *PermissionService) CanPerform(ctx context.Context, user *models.User, capability Capability) bool {
	if user.IsPrivileged() {
		return true
	}

	accessor, ok := capabilityAccessors[capability]
	if !ok {
		return false
	}

	roles, err := p.EffectiveRoles(ctx, user)
	if err != nil {
		return false
	}
	for i := range roles {
		if accessor(&roles[i]) {
			return true
		}
	}
	return false
}

// CanAccessConfidentialityLevel checks the confidentiality dimension. A
// non-empty per-user restricted_confidentiality list replaces role checks
// entirely; otherwise the user gets the union of what their roles grant, an
// empty role list meaning unrestricted.
func (p *PermissionService) CanAccessConfidentialityLevel(ctx context.Context, user *models.User, level string) bool {
	if user.IsPrivileged() {
		return true
	}

	if len(user.RestrictedConfidentiality) > 0 {
		return containsString(user.RestrictedConfidentiality, level)
	}

	roles, err := p.EffectiveRoles(ctx, user)
	if err != nil {
		return false
	}
	return anyRoleGrants(roles, func(r *models.Role) []string { return r.ConfidentialityLevels }, level)
}

// CanAccessDocumentType checks the document-type dimension. There is no
// per-user override for this dimension.
func (p *PermissionService) CanAccessDocumentType(ctx context.Context, user *models.User, documentType string) bool {
	if user.IsPrivileged() {
		return true
	}
	roles, err := p.EffectiveRoles(ctx, user)
	if err != nil {
		return false
	}
	return anyRoleGrants(roles, func(r *models.Role) []string { return r.DocumentTypes }, documentType)
}

// CanAccessCategory checks the category dimension. No per-user override.
func (p *PermissionService) CanAccessCategory(ctx context.Context, user *models.User, category string) bool {
	if user.IsPrivileged() {
		return true
	}
	roles, err := p.EffectiveRoles(ctx, user)
	if err != nil {
		return false
	}
	return anyRoleGrants(roles, func(r *models.Role) []string { return r.Categories }, category)
}

// anyRoleGrants implements the capability union: a role with an empty
// restriction list is unrestricted for that dimension.
func anyRoleGrants(roles []models.Role, list func(*models.Role) []string, value string) bool {
	for i := range roles {
		restrictions := list(&roles[i])
		if len(restrictions) == 0 {
			return true
		}
		if containsString(restrictions, value) {
			return true
		}
	}
	return false
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, v := range a {
		if containsString(b, v) {
			return true
		}
	}
	return false
}
