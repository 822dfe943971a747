package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/gedvault/backend/internal/models"
	"github.com/gedvault/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProvisioningService grants users their initial access surface.
type ProvisioningService struct {
	DB    *gorm.DB
	Audit *AuditService
}

func NewProvisioningService(db *gorm.DB, audit *AuditService) *ProvisioningService {
	return &ProvisioningService{DB: db, Audit: audit}
}

// ProvisionDefaultAccess opens every category to the user by setting their
// department scope to the full category list. Called explicitly by an admin,
// never implicitly on login.
func (s *ProvisioningService) ProvisionDefaultAccess(ctx context.Context, actor *models.User, userID uuid.UUID) (*models.User, error) {
	if !actor.IsPrivileged() {
		return nil, fmt.Errorf("provision access: %w", ErrForbidden)
	}

	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var categories []string
	if err := s.DB.WithContext(ctx).Model(&models.Folder{}).
		Where("level = ?", models.LevelCategory).
		Order("name").
		Pluck("name", &categories).Error; err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Model(&user).
		Update("department_access", categories).Error; err != nil {
		return nil, err
	}
	user.DepartmentAccess = categories

	logger.InfoWithUser(actor.ID.String(), "default_access_provisioned", map[string]interface{}{
		"target_user": user.ID.String(),
		"categories":  len(categories),
	})
	s.Audit.LogAsync(AccessLogEntry{
		UserID: &actor.ID,
		Action: "provision_default_access",
		Metadata: map[string]interface{}{
			"target_user": user.ID.String(),
			"categories":  categories,
		},
	})
	return &user, nil
}
