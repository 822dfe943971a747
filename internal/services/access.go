package services

import (
	"context"

	"github.com/gedvault/backend/internal/models"
	"gorm.io/gorm"
)

// AccessService answers "may this user see this document/folder". Checks
// return plain booleans and treat lookup failures as denial; they never
// surface errors to callers.
type AccessService struct {
	DB          *gorm.DB
	Permissions *PermissionService
}

func NewAccessService(db *gorm.DB, permissions *PermissionService) *AccessService {
	return &AccessService{DB: db, Permissions: permissions}
}

// CanAccessDocument runs the ordered document checks: admin short-circuit,
// confidentiality, document type, category, the approval gate, then the
// explicit access_restrictions allow-lists. First failing dimension denies.
func (a *AccessService) CanAccessDocument(ctx context.Context, user *models.User, doc *models.Document) bool {
	if user.IsPrivileged() {
		return true
	}

	if doc.ConfidentialityLevel != "" && !a.Permissions.CanAccessConfidentialityLevel(ctx, user, doc.ConfidentialityLevel) {
		return false
	}
	if doc.DocumentType != "" && !a.Permissions.CanAccessDocumentType(ctx, user, doc.DocumentType) {
		return false
	}
	if doc.Category != "" && !a.Permissions.CanAccessCategory(ctx, user, doc.Category) {
		return false
	}

	// Unapproved gated documents are visible only to their creator and to
	// reviewers. This decision is final: restriction lists below do not
	// re-open access.
	if doc.RequiresApprovalToView && !doc.IsApproved() {
		return doc.CreatedByID == user.ID || a.Permissions.CanPerform(ctx, user, CapabilityApprove)
	}

	if doc.AccessRestrictions != nil {
		if len(doc.AccessRestrictions.Users) > 0 &&
			!containsString(doc.AccessRestrictions.Users, user.ID.String()) {
			return false
		}
		if len(doc.AccessRestrictions.Roles) > 0 {
			names, err := a.Permissions.RoleNames(ctx, user)
			if err != nil || !intersects(doc.AccessRestrictions.Roles, names) {
				return false
			}
		}
	}
	return true
}

// CanAccessFolder checks the folder-side restrictions: the user's department
// scope against the level-2 category, the confidentiality tier name for deep
// folders, the folder's role restriction list, and its explicit user
// allow-list.
func (a *AccessService) CanAccessFolder(ctx context.Context, user *models.User, folder *models.Folder) bool {
	if user.IsPrivileged() {
		return true
	}

	if len(user.DepartmentAccess) > 0 && folder.Level >= models.LevelCategory {
		if !containsString(user.DepartmentAccess, folder.PathSegment(models.LevelCategory)) {
			return false
		}
	}

	if folder.Level >= models.LevelDocumentType {
		level := folder.PathSegment(models.LevelDocumentType)
		if level != "" && !a.Permissions.CanAccessConfidentialityLevel(ctx, user, level) {
			return false
		}
	}

	if len(folder.RoleRestrictions) > 0 {
		names, err := a.Permissions.RoleNames(ctx, user)
		if err != nil || !intersects(folder.RoleRestrictions, names) {
			return false
		}
	}

	var allowed int64
	if err := a.DB.WithContext(ctx).
		Table("folder_user_pivot").
		Where("folder_id = ?", folder.ID).
		Count(&allowed).Error; err != nil {
		return false
	}
	if allowed > 0 {
		var mine int64
		err := a.DB.WithContext(ctx).
			Table("folder_user_pivot").
			Where("folder_id = ? AND user_id = ?", folder.ID, user.ID).
			Count(&mine).Error
		if err != nil || mine == 0 {
			return false
		}
	}
	return true
}

// FilterDocuments returns the subset of docs the user may access, order
// preserved.
func (a *AccessService) FilterDocuments(ctx context.Context, user *models.User, docs []models.Document) []models.Document {
	visible := make([]models.Document, 0, len(docs))
	for i := range docs {
		if a.CanAccessDocument(ctx, user, &docs[i]) {
			visible = append(visible, docs[i])
		}
	}
	return visible
}
