package services

import (
	"bytes"
	"context"
	"database/sql/driver"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gedvault/backend/internal/models"
	"github.com/gedvault/backend/pkg/logger"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var testSetupOnce sync.Once

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
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
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string, mutators ...func(*models.User)) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "hash",
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

func createTestRole(t *testing.T, db *gorm.DB, name string, mutators ...func(*models.Role)) *models.Role {
	t.Helper()
	role := &models.Role{
		Name:        name,
		DisplayName: name,
		IsActive:    true,
	}
	for _, m := range mutators {
		m(role)
	}
	if err := db.Create(role).Error; err != nil {
		t.Fatalf("failed creating role %s: %v", name, err)
	}
	return role
}

func assignRole(t *testing.T, db *gorm.DB, user *models.User, role *models.Role) {
	t.Helper()
	if err := db.Model(user).Association("Roles").Append(role); err != nil {
		t.Fatalf("failed assigning role %s: %v", role.Name, err)
	}
}

func grantPermission(t *testing.T, db *gorm.DB, role *models.Role, name string) {
	t.Helper()
	perm := &models.Permission{Name: name}
	if err := db.Where("name = ?", name).FirstOrCreate(perm).Error; err != nil {
		t.Fatalf("failed creating permission %s: %v", name, err)
	}
	if err := db.Model(role).Association("Permissions").Append(perm); err != nil {
		t.Fatalf("failed granting permission %s: %v", name, err)
	}
}

func createTestFolder(t *testing.T, db *gorm.DB, parent *models.Folder, name string, protected bool) *models.Folder {
	t.Helper()
	folder := &models.Folder{
		Name:        name,
		IsProtected: protected,
	}
	if parent == nil {
		folder.FullPath = name
		folder.Level = 1
	} else {
		folder.FullPath = parent.ChildPath(name)
		folder.ParentID = &parent.ID
		folder.Level = parent.Level + 1
	}
	folder.Type = models.FolderTypeForLevel(folder.Level)
	if err := db.Create(folder).Error; err != nil {
		t.Fatalf("failed creating folder %s: %v", name, err)
	}
	return folder
}

// testBranch is a complete taxonomy path down to the Original/Obsolete pair.
type testBranch struct {
	Root     *models.Folder
	Category *models.Folder
	Process  *models.Folder
	Level    *models.Folder
	Original *models.Folder
	Obsolete *models.Folder
}

// buildTestBranch materializes Documents/Pilotage (4)/Procédures/Public with
// both state folders.
func buildTestBranch(t *testing.T, db *gorm.DB) *testBranch {
	t.Helper()
	root := createTestFolder(t, db, nil, "Documents", true)
	category := createTestFolder(t, db, root, "Pilotage (4)", true)
	process := createTestFolder(t, db, category, "Procédures", false)
	level := createTestFolder(t, db, process, "Public", false)
	original := createTestFolder(t, db, level, models.StateFolderOriginal, true)
	obsolete := createTestFolder(t, db, level, models.StateFolderObsolete, true)
	return &testBranch{
		Root:     root,
		Category: category,
		Process:  process,
		Level:    level,
		Original: original,
		Obsolete: obsolete,
	}
}

func createTestDocument(t *testing.T, db *gorm.DB, folder *models.Folder, name string, createdBy uuid.UUID, mutators ...func(*models.Document)) *models.Document {
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
	for _, m := range mutators {
		m(doc)
	}
	if err := db.Create(doc).Error; err != nil {
		t.Fatalf("failed creating document %s: %v", name, err)
	}
	return doc
}

// fakeStore is an in-memory ObjectStore.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) Upload(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return fmt.Errorf("simulated storage failure")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[objectName] = data
	return nil
}

func (f *fakeStore) Download(_ context.Context, objectName string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[objectName]
	if !ok {
		return nil, fmt.Errorf("object %s not found", objectName)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStore) Delete(_ context.Context, objectName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectName)
	return nil
}

func (f *fakeStore) Exists(_ context.Context, objectName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[objectName]
	return ok, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// newTestDocumentService wires the full service stack over a fake store.
func newTestDocumentService(t *testing.T, db *gorm.DB) (*DocumentService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	permissions := NewPermissionService(db)
	access := NewAccessService(db, permissions)
	folders := NewFolderService(db, permissions)
	versioning := NewVersioningService()
	audit := NewAuditService(db)
	t.Cleanup(audit.Close)
	docs := NewDocumentService(db, store, folders, access, permissions, versioning, audit, 50*1024*1024)
	return docs, store
}
