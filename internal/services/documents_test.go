package services

import (
	"archive/zip"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gedvault/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func uploaderUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	role := createTestRole(t, db, "contributeur-"+email, func(r *models.Role) {
		r.CanUpload = true
		r.CanDownload = true
		r.CanDelete = true
	})
	user := createTestUser(t, db, email)
	assignRole(t, db, user, role)
	return user
}

func TestDocumentService_Upload(t *testing.T) {
	db := setupTestDB(t)
	service, store := newTestDocumentService(t, db)
	ctx := context.Background()

	branch := buildTestBranch(t, db)
	user := uploaderUser(t, db, "up@test.local")

	input := func(name string) UploadInput {
		return UploadInput{
			FolderPath: branch.Original.FullPath,
			FileName:   name,
			MimeType:   "application/pdf",
			Size:       4,
			Content:    strings.NewReader("data"),
		}
	}

	t.Run("plain upload", func(t *testing.T) {
		doc, err := service.Upload(ctx, user, input("Guide.pdf"))
		if err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		if doc.Version != "1.0" {
			t.Fatalf("expected version 1.0, got %s", doc.Version)
		}
		if doc.Status != models.DocumentStatusActive {
			t.Fatalf("expected active status, got %s", doc.Status)
		}
		if doc.FullPath != branch.Original.FullPath+"/Guide.pdf" {
			t.Fatalf("unexpected full path %s", doc.FullPath)
		}
		if doc.ConfidentialityLevel != "Public" || doc.DocumentType != "Procédures" || doc.Category != "Pilotage (4)" {
			t.Fatalf("denormalized fields wrong: %q %q %q", doc.ConfidentialityLevel, doc.DocumentType, doc.Category)
		}
		if store.count() != 1 {
			t.Fatalf("expected 1 stored blob, got %d", store.count())
		}

		var snapshots int64
		db.Model(&models.DocumentVersion{}).Where("document_id = ?", doc.ID).Count(&snapshots)
		if snapshots != 1 {
			t.Fatalf("expected 1 version snapshot, got %d", snapshots)
		}
	})

	t.Run("duplicate active name conflicts and leaves no blob", func(t *testing.T) {
		before := store.count()
		_, err := service.Upload(ctx, user, input("Guide.pdf"))
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
		if store.count() != before {
			t.Fatal("failed upload must not leak a blob")
		}
	})

	t.Run("rejects non-leaf folders", func(t *testing.T) {
		in := input("Elsewhere.pdf")
		in.FolderPath = branch.Process.FullPath
		_, err := service.Upload(ctx, user, in)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects disallowed mime type", func(t *testing.T) {
		in := input("app.exe")
		in.MimeType = "application/x-msdownload"
		_, err := service.Upload(ctx, user, in)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		in := input("big.pdf")
		in.Size = 51 * 1024 * 1024
		_, err := service.Upload(ctx, user, in)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("requires upload capability", func(t *testing.T) {
		reader := createTestUser(t, db, "reader@test.local")
		_, err := service.Upload(ctx, reader, input("Nope.pdf"))
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("storage failure surfaces", func(t *testing.T) {
		store.failPut = true
		defer func() { store.failPut = false }()
		_, err := service.Upload(ctx, user, input("Broken.pdf"))
		if !errors.Is(err, ErrStorage) {
			t.Fatalf("expected storage error, got %v", err)
		}
	})
}

func TestDocumentService_ArchiveFlow(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestDocumentService(t, db)
	ctx := context.Background()

	branch := buildTestBranch(t, db)
	user := uploaderUser(t, db, "arch@test.local")

	first, err := service.Upload(ctx, user, UploadInput{
		FolderPath: branch.Original.FullPath,
		FileName:   "Guide.pdf",
		MimeType:   "application/pdf",
		Size:       4,
		Content:    strings.NewReader("v1"),
	})
	if err != nil {
		t.Fatalf("initial upload failed: %v", err)
	}

	second, err := service.Upload(ctx, user, UploadInput{
		FolderPath: branch.Original.FullPath,
		FileName:   "Guide.pdf",
		MimeType:   "application/pdf",
		Size:       4,
		Content:    strings.NewReader("v2"),
		IsArchive:  true,
	})
	if err != nil {
		t.Fatalf("archive upload failed: %v", err)
	}

	if second.Name != "Guide_v2.0.pdf" {
		t.Fatalf("expected Guide_v2.0.pdf, got %s", second.Name)
	}
	if second.Version != "2.0" {
		t.Fatalf("expected version 2.0, got %s", second.Version)
	}
	if second.Status != models.DocumentStatusActive {
		t.Fatalf("expected active, got %s", second.Status)
	}
	if second.FolderID != branch.Original.ID {
		t.Fatal("new version must live in the original folder")
	}

	var old models.Document
	if err := db.First(&old, "id = ?", first.ID).Error; err != nil {
		t.Fatalf("failed reloading superseded document: %v", err)
	}
	if old.Status != models.DocumentStatusObsolete {
		t.Fatalf("superseded document should be obsolete, got %s", old.Status)
	}
	if old.FolderID != branch.Obsolete.ID {
		t.Fatal("superseded document should sit in the Obsolete mirror")
	}
	if old.Name != "Guide.pdf" {
		t.Fatalf("superseded document keeps its name, got %s", old.Name)
	}
	if old.FullPath != branch.Obsolete.FullPath+"/Guide.pdf" {
		t.Fatalf("unexpected obsolete path %s", old.FullPath)
	}

	// The 1.0 snapshot was written by the initial upload; superseding must
	// notice it instead of inserting the same (document, version) row again,
	// which would abort the transaction on Postgres.
	var snapshots int64
	db.Model(&models.DocumentVersion{}).Where("document_id = ?", first.ID).Count(&snapshots)
	if snapshots != 1 {
		t.Fatalf("expected a single snapshot for the superseded document, got %d", snapshots)
	}

	t.Run("explicit version wins", func(t *testing.T) {
		third, err := service.Upload(ctx, user, UploadInput{
			FolderPath: branch.Original.FullPath,
			FileName:   "Guide.pdf",
			MimeType:   "application/pdf",
			Size:       4,
			Content:    strings.NewReader("v7"),
			IsArchive:  true,
			Version:    "7.0",
		})
		if err != nil {
			t.Fatalf("archive upload failed: %v", err)
		}
		if third.Name != "Guide_v7.0.pdf" || third.Version != "7.0" {
			t.Fatalf("explicit version not honored: %s %s", third.Name, third.Version)
		}
	})

	t.Run("missing mirror rolls the archive back", func(t *testing.T) {
		level := createTestFolder(t, db, branch.Process, "Interne", false)
		orphan := createTestFolder(t, db, level, models.StateFolderOriginal, true)

		existing, err := service.Upload(ctx, user, UploadInput{
			FolderPath: orphan.FullPath,
			FileName:   "Solo.pdf",
			MimeType:   "application/pdf",
			Size:       4,
			Content:    strings.NewReader("v1"),
		})
		if err != nil {
			t.Fatalf("setup upload failed: %v", err)
		}

		_, err = service.Upload(ctx, user, UploadInput{
			FolderPath: orphan.FullPath,
			FileName:   "Solo.pdf",
			MimeType:   "application/pdf",
			Size:       4,
			Content:    strings.NewReader("v2"),
			IsArchive:  true,
		})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected conflict without a mirror, got %v", err)
		}

		var reloaded models.Document
		if err := db.First(&reloaded, "id = ?", existing.ID).Error; err != nil {
			t.Fatalf("failed reloading: %v", err)
		}
		if reloaded.Status != models.DocumentStatusActive {
			t.Fatal("failed archive must leave the prior document active")
		}
	})

	t.Run("archive without a predecessor degenerates to plain upload", func(t *testing.T) {
		doc, err := service.Upload(ctx, user, UploadInput{
			FolderPath: branch.Original.FullPath,
			FileName:   "Fresh.pdf",
			MimeType:   "application/pdf",
			Size:       4,
			Content:    strings.NewReader("v1"),
			IsArchive:  true,
		})
		if err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		if doc.Name != "Fresh.pdf" || doc.Version != "1.0" {
			t.Fatalf("expected plain upload semantics, got %s %s", doc.Name, doc.Version)
		}
	})
}

func TestDocumentService_UploadBatch(t *testing.T) {
	db := setupTestDB(t)
	service, store := newTestDocumentService(t, db)
	ctx := context.Background()

	branch := buildTestBranch(t, db)
	user := uploaderUser(t, db, "batch@test.local")

	input := func(name, mime string) UploadInput {
		return UploadInput{
			FolderPath: branch.Original.FullPath,
			FileName:   name,
			MimeType:   mime,
			Size:       4,
			Content:    strings.NewReader("data"),
		}
	}

	t.Run("stores every file", func(t *testing.T) {
		docs, err := service.UploadBatch(ctx, user, []UploadInput{
			input("Un.pdf", "application/pdf"),
			input("Deux.pdf", "application/pdf"),
		})
		if err != nil {
			t.Fatalf("batch upload failed: %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("expected 2 documents, got %d", len(docs))
		}
		if store.count() != 2 {
			t.Fatalf("expected 2 stored blobs, got %d", store.count())
		}
	})

	t.Run("one rejected file fails the whole batch", func(t *testing.T) {
		before := store.count()
		_, err := service.UploadBatch(ctx, user, []UploadInput{
			input("Trois.pdf", "application/pdf"),
			input("Outil.exe", "application/x-msdownload"),
		})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if store.count() != before {
			t.Fatal("failed batch must not leak blobs")
		}
		var count int64
		db.Model(&models.Document{}).Where("name = ?", "Trois.pdf").Count(&count)
		if count != 0 {
			t.Fatal("failed batch must not commit any document")
		}
	})

	t.Run("conflict on a later file rolls back the earlier ones", func(t *testing.T) {
		before := store.count()
		_, err := service.UploadBatch(ctx, user, []UploadInput{
			input("Quatre.pdf", "application/pdf"),
			input("Un.pdf", "application/pdf"),
		})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
		if store.count() != before {
			t.Fatal("failed batch must not leak blobs")
		}
		var count int64
		db.Model(&models.Document{}).Where("name = ?", "Quatre.pdf").Count(&count)
		if count != 0 {
			t.Fatal("failed batch must not commit any document")
		}
	})
}

func TestDocumentService_UpdateRestrictions(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestDocumentService(t, db)
	ctx := context.Background()

	branch := buildTestBranch(t, db)
	admin := createTestUser(t, db, "docadmin@test.local", func(u *models.User) {
		u.IsDocumentAdmin = true
	})
	doc := createTestDocument(t, db, branch.Original, "Sensible.pdf", admin.ID)

	gate := true
	updated, err := service.UpdateRestrictions(ctx, admin, doc.ID,
		&models.AccessRestrictions{Users: []string{admin.ID.String()}}, &gate)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.RequiresApprovalToView {
		t.Fatal("approval gate not set on returned document")
	}

	var reloaded models.Document
	if err := db.First(&reloaded, "id = ?", doc.ID).Error; err != nil {
		t.Fatalf("failed reloading: %v", err)
	}
	if reloaded.AccessRestrictions == nil || len(reloaded.AccessRestrictions.Users) != 1 {
		t.Fatalf("restrictions not persisted: %+v", reloaded.AccessRestrictions)
	}
	if !reloaded.RequiresApprovalToView {
		t.Fatal("approval gate not persisted")
	}

	t.Run("clearing the gate resets the approval stamp", func(t *testing.T) {
		stamp := time.Now().UTC()
		if err := db.Model(&models.Document{}).Where("id = ?", doc.ID).Updates(map[string]interface{}{
			"approved_by_id": admin.ID,
			"approved_at":    stamp,
		}).Error; err != nil {
			t.Fatalf("failed stamping approval: %v", err)
		}

		off := false
		if _, err := service.UpdateRestrictions(ctx, admin, doc.ID, nil, &off); err != nil {
			t.Fatalf("update failed: %v", err)
		}

		if err := db.First(&reloaded, "id = ?", doc.ID).Error; err != nil {
			t.Fatalf("failed reloading: %v", err)
		}
		if reloaded.RequiresApprovalToView || reloaded.ApprovedAt != nil || reloaded.ApprovedByID != nil {
			t.Fatalf("approval state not reset: %+v", reloaded)
		}
		if reloaded.AccessRestrictions != nil {
			t.Fatalf("restrictions should be cleared, got %+v", reloaded.AccessRestrictions)
		}
	})

	t.Run("requires privilege", func(t *testing.T) {
		plain := createTestUser(t, db, "plain@test.local")
		if _, err := service.UpdateRestrictions(ctx, plain, doc.ID, nil, nil); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
}

func TestDocumentService_Rename(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestDocumentService(t, db)
	ctx := context.Background()

	branch := buildTestBranch(t, db)
	role := createTestRole(t, db, "gestionnaire", func(r *models.Role) { r.CanUpload = true })
	grantPermission(t, db, role, "documents.rename")
	user := createTestUser(t, db, "ren@test.local")
	assignRole(t, db, user, role)

	doc := createTestDocument(t, db, branch.Original, "Old.pdf", user.ID)
	createTestDocument(t, db, branch.Original, "Taken.pdf", user.ID)

	renamed, err := service.Rename(ctx, user, doc.ID, "New.pdf", "127.0.0.1", "req-1")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if renamed.Name != "New.pdf" {
		t.Fatalf("expected New.pdf, got %s", renamed.Name)
	}
	if renamed.FullPath != branch.Original.FullPath+"/New.pdf" {
		t.Fatalf("full path not rewritten: %s", renamed.FullPath)
	}

	t.Run("duplicate target conflicts", func(t *testing.T) {
		_, err := service.Rename(ctx, user, doc.ID, "Taken.pdf", "127.0.0.1", "req-2")
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("requires permission", func(t *testing.T) {
		outsider := createTestUser(t, db, "nobody@test.local")
		_, err := service.Rename(ctx, outsider, doc.ID, "X.pdf", "127.0.0.1", "req-3")
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
}

func TestDocumentService_Delete(t *testing.T) {
	db := setupTestDB(t)
	service, store := newTestDocumentService(t, db)
	ctx := context.Background()

	branch := buildTestBranch(t, db)
	user := uploaderUser(t, db, "del@test.local")

	doc, err := service.Upload(ctx, user, UploadInput{
		FolderPath: branch.Original.FullPath,
		FileName:   "Trash.pdf",
		MimeType:   "application/pdf",
		Size:       4,
		Content:    strings.NewReader("data"),
	})
	if err != nil {
		t.Fatalf("setup upload failed: %v", err)
	}

	if err := service.Delete(ctx, user, doc.ID, "127.0.0.1", "req-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if store.count() != 0 {
		t.Fatalf("expected blob removal, %d blobs remain", store.count())
	}
	var count int64
	db.Unscoped().Model(&models.Document{}).Where("id = ?", doc.ID).Count(&count)
	if count != 0 {
		t.Fatal("document row should be gone")
	}
	db.Model(&models.DocumentVersion{}).Where("document_id = ?", doc.ID).Count(&count)
	if count != 0 {
		t.Fatal("version rows should cascade")
	}

	t.Run("obsolete documents need manage capability", func(t *testing.T) {
		obsolete := createTestDocument(t, db, branch.Obsolete, "Old.pdf", user.ID, func(d *models.Document) {
			d.Status = models.DocumentStatusObsolete
		})
		if err := service.Delete(ctx, user, obsolete.ID, "127.0.0.1", "req-2"); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}

		manager := createTestUser(t, db, "manager@test.local")
		assignRole(t, db, manager, createTestRole(t, db, "archiviste", func(r *models.Role) {
			r.CanDelete = true
			r.CanManageObsolete = true
		}))
		if err := service.Delete(ctx, manager, obsolete.ID, "127.0.0.1", "req-3"); err != nil {
			t.Fatalf("manager should delete obsolete documents: %v", err)
		}
	})

	t.Run("bulk delete is all-or-none", func(t *testing.T) {
		a := createTestDocument(t, db, branch.Original, "A.pdf", user.ID)
		b := createTestDocument(t, db, branch.Original, "B.pdf", user.ID)
		missing := uuid.New()

		_, err := service.BulkDelete(ctx, user, []uuid.UUID{a.ID, missing, b.ID}, "127.0.0.1", "req-4")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		var remaining int64
		db.Model(&models.Document{}).Where("id IN ?", []uuid.UUID{a.ID, b.ID}).Count(&remaining)
		if remaining != 2 {
			t.Fatalf("failed batch must leave every document in place, %d remain", remaining)
		}

		deleted, err := service.BulkDelete(ctx, user, []uuid.UUID{a.ID, b.ID}, "127.0.0.1", "req-5")
		if err != nil {
			t.Fatalf("bulk delete failed: %v", err)
		}
		if deleted != 2 {
			t.Fatalf("expected 2 deletions, got %d", deleted)
		}
	})
}

func TestDocumentService_Search(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestDocumentService(t, db)
	ctx := context.Background()

	branch := buildTestBranch(t, db)
	user := uploaderUser(t, db, "search@test.local")

	createTestDocument(t, db, branch.Original, "Guide qualité.pdf", user.ID)
	createTestDocument(t, db, branch.Original, "guide-install.pdf", user.ID)
	createTestDocument(t, db, branch.Obsolete, "Guide ancien.pdf", user.ID, func(d *models.Document) {
		d.Status = models.DocumentStatusObsolete
	})
	createTestDocument(t, db, branch.Original, "Rapport.pdf", user.ID)

	t.Run("case-insensitive substring", func(t *testing.T) {
		docs, err := service.Search(ctx, user, SearchInput{Query: "GUIDE"})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(docs) != 3 {
			t.Fatalf("expected 3 matches, got %d", len(docs))
		}
	})

	t.Run("status filter", func(t *testing.T) {
		docs, err := service.Search(ctx, user, SearchInput{Query: "guide", Status: "obsolete"})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(docs) != 1 || docs[0].Name != "Guide ancien.pdf" {
			t.Fatalf("unexpected result: %+v", docs)
		}
	})

	t.Run("subtree scope", func(t *testing.T) {
		docs, err := service.Search(ctx, user, SearchInput{Query: "guide", FolderPath: branch.Obsolete.FullPath})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(docs) != 1 {
			t.Fatalf("expected 1 match in Obsolete subtree, got %d", len(docs))
		}
	})

	t.Run("access filtering applies", func(t *testing.T) {
		limited := createTestUser(t, db, "limited@test.local", func(u *models.User) {
			u.RestrictedConfidentiality = []string{"Interne"}
		})
		assignRole(t, db, limited, createTestRole(t, db, "lecteur"))

		docs, err := service.Search(ctx, limited, SearchInput{Query: "guide"})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(docs) != 0 {
			t.Fatalf("Public documents must be filtered out, got %d", len(docs))
		}
	})

	t.Run("empty query rejected", func(t *testing.T) {
		_, err := service.Search(ctx, user, SearchInput{Query: "  "})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestDocumentService_ZipDocuments(t *testing.T) {
	db := setupTestDB(t)
	service, _ := newTestDocumentService(t, db)
	ctx := context.Background()

	branch := buildTestBranch(t, db)
	user := uploaderUser(t, db, "zip@test.local")

	a, err := service.Upload(ctx, user, UploadInput{
		FolderPath: branch.Original.FullPath,
		FileName:   "A.pdf",
		MimeType:   "application/pdf",
		Size:       1,
		Content:    strings.NewReader("a"),
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	b, err := service.Upload(ctx, user, UploadInput{
		FolderPath: branch.Original.FullPath,
		FileName:   "B.pdf",
		MimeType:   "application/pdf",
		Size:       1,
		Content:    strings.NewReader("b"),
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	// A document whose blob vanished must be skipped, not fail the bundle.
	ghost := createTestDocument(t, db, branch.Original, "Ghost.pdf", user.ID)

	path, cleanup, err := service.ZipDocuments(ctx, user, []uuid.UUID{a.ID, b.ID, ghost.ID}, "127.0.0.1", "req-1")
	if err != nil {
		t.Fatalf("zip failed: %v", err)
	}
	defer cleanup()

	archive, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed opening archive: %v", err)
	}
	defer archive.Close()

	names := map[string]bool{}
	for _, f := range archive.File {
		names[f.Name] = true
	}
	if len(names) != 2 || !names["A.pdf"] || !names["B.pdf"] {
		t.Fatalf("unexpected archive contents: %v", names)
	}
}

func TestDocumentService_DeleteFolder(t *testing.T) {
	db := setupTestDB(t)
	service, store := newTestDocumentService(t, db)
	ctx := context.Background()

	branch := buildTestBranch(t, db)
	role := createTestRole(t, db, "gestionnaire", func(r *models.Role) {
		r.CanUpload = true
		r.CanDelete = true
	})
	grantPermission(t, db, role, "folders.delete")
	user := createTestUser(t, db, "fold@test.local")
	assignRole(t, db, user, role)

	t.Run("protected folders refuse deletion", func(t *testing.T) {
		for _, path := range []string{
			branch.Category.FullPath,
			branch.Original.FullPath,
			branch.Obsolete.FullPath,
		} {
			if err := service.DeleteFolder(ctx, user, path, "127.0.0.1", "req-1"); !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected forbidden for %s, got %v", path, err)
			}
		}
	})

	t.Run("cascade removes folders, documents and blobs", func(t *testing.T) {
		custom := createTestFolder(t, db, branch.Level, "Brouillons", false)
		sub := createTestFolder(t, db, custom, "2024", false)
		docA := createTestDocument(t, db, custom, "A.pdf", user.ID)
		docB := createTestDocument(t, db, sub, "B.pdf", user.ID)
		store.objects[docA.FilePath] = []byte("a")
		store.objects[docB.FilePath] = []byte("b")

		if err := service.DeleteFolder(ctx, user, custom.FullPath, "127.0.0.1", "req-2"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}

		var folders int64
		db.Unscoped().Model(&models.Folder{}).Where("full_path LIKE ?", custom.FullPath+"%").Count(&folders)
		if folders != 0 {
			t.Fatalf("expected subtree gone, %d folders remain", folders)
		}
		var docs int64
		db.Unscoped().Model(&models.Document{}).Where("id IN ?", []uuid.UUID{docA.ID, docB.ID}).Count(&docs)
		if docs != 0 {
			t.Fatalf("expected documents gone, %d remain", docs)
		}
		if store.count() != 0 {
			t.Fatalf("expected blobs gone, %d remain", store.count())
		}
	})

	t.Run("siblings survive", func(t *testing.T) {
		var level models.Folder
		if err := db.First(&level, "id = ?", branch.Level.ID).Error; err != nil {
			t.Fatalf("sibling Level folder was deleted: %v", err)
		}
	})

	t.Run("requires permission", func(t *testing.T) {
		outsider := createTestUser(t, db, "nobody2@test.local")
		target := createTestFolder(t, db, branch.Level, "Temp", false)
		if err := service.DeleteFolder(ctx, outsider, target.FullPath, "127.0.0.1", "req-3"); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
}
