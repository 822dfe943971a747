package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gedvault/backend/internal/models"
	"github.com/gedvault/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FolderService owns the folder taxonomy: path resolution, creation with
// mandatory substructure expansion, and subtree collection for cascades.
type FolderService struct {
	DB          *gorm.DB
	Permissions *PermissionService
}

func NewFolderService(db *gorm.DB, permissions *PermissionService) *FolderService {
	return &FolderService{DB: db, Permissions: permissions}
}

// HierarchyNode is one direct child folder with one eager level of its own
// children and documents. The tree endpoint never recurses deeper; the UI
// re-queries as nodes open.
type HierarchyNode struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	FullPath  string            `json:"fullPath"`
	Level     int               `json:"level"`
	Type      models.FolderType `json:"type"`
	Protected bool              `json:"protected"`
	Folders   []models.Folder   `json:"folders"`
	Documents []models.Document `json:"documents"`
}

// ResolveByPath loads a folder by its full path.
func (s *FolderService) ResolveByPath(ctx context.Context, path string) (*models.Folder, error) {
	var folder models.Folder
	err := s.DB.WithContext(ctx).Where("full_path = ?", path).First(&folder).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("folder %q: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

// Get loads a folder by id.
func (s *FolderService) Get(ctx context.Context, id uuid.UUID) (*models.Folder, error) {
	var folder models.Folder
	err := s.DB.WithContext(ctx).First(&folder, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

// Create inserts a folder under parentPath and materializes the mandatory
// descendant structure for its level, all within one transaction:
//
//	level 2: 5 process children, each with 5 confidentiality-named children
//	level 3: 5 confidentiality-named children
//	level 4: the Original and Obsolete state pair
//
// Partial failure rolls back every inserted row.
func (s *FolderService) Create(ctx context.Context, actor *models.User, name, parentPath string) (*models.Folder, error) {
	if !s.Permissions.HasPermission(ctx, actor, "folders.create") {
		return nil, fmt.Errorf("create folder: %w", ErrForbidden)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("folder name is required: %w", ErrValidation)
	}
	if strings.Contains(name, "/") {
		return nil, fmt.Errorf("folder name must not contain '/': %w", ErrValidation)
	}

	parent, err := s.ResolveByPath(ctx, parentPath)
	if err != nil {
		return nil, err
	}
	if parent.Level >= models.LevelConfidentiality {
		return nil, fmt.Errorf("cannot create folders under a state folder: %w", ErrValidation)
	}

	fullPath := parent.ChildPath(name)
	var existing int64
	if err := s.DB.WithContext(ctx).Model(&models.Folder{}).
		Where("full_path = ?", fullPath).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("folder %q already exists: %w", fullPath, ErrConflict)
	}

	folder := &models.Folder{
		Name:          name,
		FullPath:      fullPath,
		ParentID:      &parent.ID,
		Level:         parent.Level + 1,
		Type:          models.FolderTypeForLevel(parent.Level + 1),
		IsUserCreated: true,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(folder).Error; err != nil {
			return err
		}
		return expandSubstructure(tx, folder)
	})
	if err != nil {
		return nil, err
	}

	logger.InfoWithUser(actor.ID.String(), "folder_created", map[string]interface{}{
		"folder_id": folder.ID.String(),
		"full_path": folder.FullPath,
		"level":     folder.Level,
	})
	return folder, nil
}

// expandSubstructure creates the mandatory children for a freshly inserted
// folder, recursing through the fixed tiers.
func expandSubstructure(tx *gorm.DB, folder *models.Folder) error {
	switch folder.Level {
	case models.LevelCategory:
		for _, processName := range models.ProcessFolderNames {
			process, err := insertChild(tx, folder, processName, false)
			if err != nil {
				return err
			}
			for _, levelName := range models.ConfidentialityLevels {
				if _, err := insertChild(tx, process, levelName, false); err != nil {
					return err
				}
			}
		}
	case models.LevelProcess:
		for _, levelName := range models.ConfidentialityLevels {
			if _, err := insertChild(tx, folder, levelName, false); err != nil {
				return err
			}
		}
	case models.LevelDocumentType:
		for _, stateName := range []string{models.StateFolderOriginal, models.StateFolderObsolete} {
			if _, err := insertChild(tx, folder, stateName, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertChild(tx *gorm.DB, parent *models.Folder, name string, protected bool) (*models.Folder, error) {
	child := &models.Folder{
		Name:        name,
		FullPath:    parent.ChildPath(name),
		ParentID:    &parent.ID,
		Level:       parent.Level + 1,
		Type:        models.FolderTypeForLevel(parent.Level + 1),
		IsProtected: protected,
	}
	if err := tx.Create(child).Error; err != nil {
		return nil, err
	}
	return child, nil
}

// Hierarchy returns one node per direct child of parentID (the roots when
// parentID is nil), each eagerly loaded one level deep.
func (s *FolderService) Hierarchy(ctx context.Context, parentID *uuid.UUID) ([]HierarchyNode, error) {
	query := s.DB.WithContext(ctx).
		Preload("Children", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Where("status = ?", models.DocumentStatusActive).Order("name")
		}).
		Order("name")
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}

	var folders []models.Folder
	if err := query.Find(&folders).Error; err != nil {
		return nil, err
	}

	nodes := make([]HierarchyNode, 0, len(folders))
	for i := range folders {
		f := &folders[i]
		nodes = append(nodes, HierarchyNode{
			ID:        f.ID,
			Name:      f.Name,
			FullPath:  f.FullPath,
			Level:     f.Level,
			Type:      f.Type,
			Protected: f.IsProtectedFolder(),
			Folders:   f.Children,
			Documents: f.Documents,
		})
	}
	return nodes, nil
}

// Subtree returns the folder and every descendant, breadth-first. Used by
// delete cascades and subtree-scoped search.
func (s *FolderService) Subtree(ctx context.Context, root *models.Folder) ([]models.Folder, error) {
	collected := []models.Folder{*root}
	frontier := []uuid.UUID{root.ID}

	for len(frontier) > 0 {
		var children []models.Folder
		if err := s.DB.WithContext(ctx).
			Where("parent_id IN ?", frontier).
			Find(&children).Error; err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, c := range children {
			collected = append(collected, c)
			frontier = append(frontier, c.ID)
		}
	}
	return collected, nil
}
