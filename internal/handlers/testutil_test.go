package handlers

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gedvault/backend/internal/middleware"
	"github.com/gedvault/backend/internal/models"
	"github.com/gedvault/backend/internal/services"
	"github.com/gedvault/backend/pkg/logger"
	"github.com/gedvault/backend/pkg/utils"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	store *memStore
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Folder{},
		&models.Document{},
		&models.DocumentVersion{},
		&models.DocumentAccessLog{},
		&models.DocumentApprovalRequest{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	store := newMemStore()
	permissions := services.NewPermissionService(db)
	access := services.NewAccessService(db, permissions)
	folders := services.NewFolderService(db, permissions)
	versioning := services.NewVersioningService()
	audit := services.NewAuditService(db)
	t.Cleanup(audit.Close)
	documents := services.NewDocumentService(db, store, folders, access, permissions, versioning, audit, 50*1024*1024)
	approvals := services.NewApprovalService(db, permissions, audit)
	provisioning := services.NewProvisioningService(db, audit)

	authHandlers := NewAuthHandlers(db)
	folderHandlers := NewFolderHandlers(folders, documents, access)
	documentHandlers := NewDocumentHandlers(documents)
	roleHandlers := NewRoleHandlers(db)
	userHandlers := NewUserHandlers(db, provisioning)
	approvalHandlers := NewApprovalHandlers(approvals)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New()
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	api := app.Group("/api")
	api.Post("/auth/login", authHandlers.Login)

	authed := api.Group("", authMiddleware.RequireAuth)
	authed.Get("/auth/me", authHandlers.Me)
	authed.Get("/folders/hierarchy", folderHandlers.Hierarchy)
	authed.Post("/folders", folderHandlers.Create)
	authed.Delete("/folders", folderHandlers.Delete)
	authed.Get("/documents", documentHandlers.List)
	authed.Get("/documents/search", documentHandlers.Search)
	authed.Post("/documents/upload", documentHandlers.Upload)
	authed.Post("/documents/bulk-delete", documentHandlers.BulkDelete)
	authed.Post("/documents/bulk-download", documentHandlers.BulkDownload)
	authed.Get("/documents/:id/download", documentHandlers.Download)
	authed.Patch("/documents/:id/rename", documentHandlers.Rename)
	authed.Patch("/documents/:id/restrictions", middleware.DocumentAdminOnly, documentHandlers.UpdateRestrictions)
	authed.Delete("/documents/:id", documentHandlers.Delete)
	authed.Post("/approvals", approvalHandlers.Request)
	authed.Get("/approvals/pending", approvalHandlers.Pending)
	authed.Post("/approvals/:id/review", approvalHandlers.Review)

	admin := authed.Group("/admin", middleware.AdminOnly)
	admin.Get("/users", userHandlers.List)
	admin.Post("/users", userHandlers.Create)
	admin.Patch("/users/:id/access", userHandlers.UpdateAccess)
	admin.Post("/users/:id/provision-default-access", userHandlers.ProvisionDefaultAccess)
	admin.Get("/roles", roleHandlers.List)
	admin.Post("/roles", roleHandlers.Create)
	admin.Patch("/roles/:id", roleHandlers.Update)
	admin.Delete("/roles/:id", roleHandlers.Deactivate)

	return &testEnv{app: app, db: db, store: store}
}

// memStore is an in-memory blob store for handler tests.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Upload(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectName] = data
	return nil
}

func (m *memStore) Download(_ context.Context, objectName string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[objectName]
	if !ok {
		return nil, fmt.Errorf("object %s not found", objectName)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Delete(_ context.Context, objectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectName)
	return nil
}

func (m *memStore) Exists(_ context.Context, objectName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[objectName]
	return ok, nil
}

func createUser(t *testing.T, db *gorm.DB, email, password string, mutators ...func(*models.User)) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
	}
	for _, m := range mutators {
		m(user)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user %s: %v", email, err)
	}
	return user
}

func tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating token: %v", err)
	}
	return token
}

func buildBranch(t *testing.T, db *gorm.DB) (*models.Folder, *models.Folder) {
	t.Helper()
	mk := func(parent *models.Folder, name string, protected bool) *models.Folder {
		f := &models.Folder{Name: name, IsProtected: protected, Level: 1, FullPath: name}
		if parent != nil {
			f.ParentID = &parent.ID
			f.Level = parent.Level + 1
			f.FullPath = parent.ChildPath(name)
		}
		f.Type = models.FolderTypeForLevel(f.Level)
		if err := db.Create(f).Error; err != nil {
			t.Fatalf("failed creating folder %s: %v", name, err)
		}
		return f
	}
	root := mk(nil, "Documents", true)
	category := mk(root, "Pilotage (4)", true)
	process := mk(category, "Procédures", false)
	level := mk(process, "Public", false)
	original := mk(level, models.StateFolderOriginal, true)
	obsolete := mk(level, models.StateFolderObsolete, true)
	return original, obsolete
}

func uploaderRole(t *testing.T, db *gorm.DB) *models.Role {
	t.Helper()
	role := &models.Role{
		Name:        "contributeur",
		DisplayName: "Contributeur",
		IsActive:    true,
		CanUpload:   true,
		CanDownload: true,
		CanDelete:   true,
	}
	if err := db.Create(role).Error; err != nil {
		t.Fatalf("failed creating role: %v", err)
	}
	return role
}

func doJSON(t *testing.T, env *testEnv, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed marshaling body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("failed decoding response body: %v", err)
	}
	return payload
}

func seedDocument(t *testing.T, db *gorm.DB, folder *models.Folder, name string, createdBy uuid.UUID) *models.Document {
	t.Helper()
	doc := &models.Document{
		Name:                 name,
		OriginalName:         name,
		FilePath:             "documents/" + uuid.New().String(),
		FullPath:             folder.ChildPath(name),
		FolderID:             folder.ID,
		MimeType:             "application/pdf",
		Size:                 1024,
		Version:              "1.0",
		Status:               models.DocumentStatusActive,
		ConfidentialityLevel: folder.PathSegment(models.LevelDocumentType),
		DocumentType:         folder.PathSegment(models.LevelProcess),
		Category:             folder.PathSegment(models.LevelCategory),
		CreatedByID:          createdBy,
	}
	if err := db.Create(doc).Error; err != nil {
		t.Fatalf("failed creating document %s: %v", name, err)
	}
	return doc
}
