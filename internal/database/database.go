package database

import (
	"fmt"

	"github.com/gedvault/backend/internal/config"
	"github.com/gedvault/backend/internal/models"
	"github.com/gedvault/backend/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := Seed(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates the schema. The partial unique index on active document
// names is the authoritative guard against duplicate (folder, name) pairs;
// the application-level check alone would be racy.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Folder{},
		&models.Document{},
		&models.DocumentVersion{},
		&models.DocumentAccessLog{},
		&models.DocumentApprovalRequest{},
	); err != nil {
		return err
	}

	return db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_active_name
ON documents (folder_id, name)
WHERE status = 'active' AND deleted_at IS NULL`).Error
}

// Seed provisions the admin account, the default role set and the
// structural folder taxonomy on an empty database.
func Seed(db *gorm.DB) error {
	if err := seedAdminUser(db); err != nil {
		return err
	}
	if err := seedRoles(db); err != nil {
		return err
	}
	return seedTaxonomy(db)
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword("admin123")
	if err != nil {
		return err
	}

	admin := models.User{
		Email:        "admin@gedvault.local",
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Admin",
		IsAdmin:      true,
	}

	return db.Create(&admin).Error
}

func seedRoles(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Role{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	permissions := []models.Permission{
		{Name: "documents.update", Description: "Modifier les métadonnées d'un document"},
		{Name: "documents.rename", Description: "Renommer un document"},
		{Name: "documents.delete", Description: "Supprimer un document"},
		{Name: "folders.create", Description: "Créer un dossier"},
		{Name: "folders.delete", Description: "Supprimer un dossier"},
	}
	if err := db.Create(&permissions).Error; err != nil {
		return err
	}

	byName := make(map[string]models.Permission, len(permissions))
	for _, p := range permissions {
		byName[p.Name] = p
	}

	roles := []models.Role{
		{
			Name:        "lecteur",
			DisplayName: "Lecteur",
			Description: "Consultation et téléchargement",
			CanDownload: true,
			IsActive:    true,
		},
		{
			Name:        "contributeur",
			DisplayName: "Contributeur",
			Description: "Dépôt et mise à jour de documents",
			CanUpload:   true,
			CanDownload: true,
			IsActive:    true,
			Permissions: []models.Permission{
				byName["documents.update"],
				byName["documents.rename"],
				byName["folders.create"],
			},
		},
		{
			Name:        "approbateur",
			DisplayName: "Approbateur",
			Description: "Revue des demandes d'accès",
			CanDownload: true,
			CanApprove:  true,
			IsActive:    true,
		},
		{
			Name:              "gestionnaire",
			DisplayName:       "Gestionnaire documentaire",
			Description:       "Gestion complète du référentiel",
			CanUpload:         true,
			CanDownload:       true,
			CanDelete:         true,
			CanApprove:        true,
			CanManageObsolete: true,
			IsActive:          true,
			Permissions:       permissions,
		},
	}

	return db.Create(&roles).Error
}

// seedTaxonomy materializes the protected default tree: the Documents root,
// the three fixed categories with their full five-level substructure, and an
// Original/Obsolete state-folder pair under every confidentiality leaf.
func seedTaxonomy(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Folder{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaultCategories := []string{"Pilotage (4)", "Réalisation (6)", "Support (7)"}

	return db.Transaction(func(tx *gorm.DB) error {
		root := models.Folder{
			Name:        "Documents",
			FullPath:    "Documents",
			Level:       models.LevelRoot,
			Type:        models.FolderTypeRoot,
			IsProtected: true,
		}
		if err := tx.Create(&root).Error; err != nil {
			return err
		}

		for _, categoryName := range defaultCategories {
			category := models.Folder{
				Name:        categoryName,
				FullPath:    root.ChildPath(categoryName),
				ParentID:    &root.ID,
				Level:       models.LevelCategory,
				Type:        models.FolderTypeCategory,
				IsProtected: true,
			}
			if err := tx.Create(&category).Error; err != nil {
				return err
			}

			for _, processName := range models.ProcessFolderNames {
				process := models.Folder{
					Name:     processName,
					FullPath: category.ChildPath(processName),
					ParentID: &category.ID,
					Level:    models.LevelProcess,
					Type:     models.FolderTypeProcess,
				}
				if err := tx.Create(&process).Error; err != nil {
					return err
				}

				for _, level := range models.ConfidentialityLevels {
					confidentiality := models.Folder{
						Name:     level,
						FullPath: process.ChildPath(level),
						ParentID: &process.ID,
						Level:    models.LevelDocumentType,
						Type:     models.FolderTypeDocumentType,
					}
					if err := tx.Create(&confidentiality).Error; err != nil {
						return err
					}

					for _, state := range []string{models.StateFolderOriginal, models.StateFolderObsolete} {
						stateFolder := models.Folder{
							Name:     state,
							FullPath: confidentiality.ChildPath(state),
							ParentID: &confidentiality.ID,
							Level:    models.LevelConfidentiality,
							Type:     models.FolderTypeConfidentiality,
						}
						if err := tx.Create(&stateFolder).Error; err != nil {
							return err
						}
					}
				}
			}
		}

		return nil
	})
}
