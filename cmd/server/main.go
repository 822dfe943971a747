package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/gedvault/backend/internal/config"
	"github.com/gedvault/backend/internal/database"
	"github.com/gedvault/backend/internal/handlers"
	"github.com/gedvault/backend/internal/middleware"
	"github.com/gedvault/backend/internal/services"
	"github.com/gedvault/backend/internal/storage"
	"github.com/gedvault/backend/pkg/logger"
	"github.com/gedvault/backend/pkg/utils"
)

func main() {
	_ = godotenv.Load()
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		logger.Error("db_connect_failed", err, nil)
		os.Exit(1)
	}

	store, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		logger.Error("minio_connect_failed", err, nil)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.EnsureBucket(ctx); err != nil {
		cancel()
		logger.Error("minio_bucket_failed", err, nil)
		os.Exit(1)
	}
	cancel()

	permissions := services.NewPermissionService(db)
	access := services.NewAccessService(db, permissions)
	folders := services.NewFolderService(db, permissions)
	versioning := services.NewVersioningService()
	audit := services.NewAuditService(db)
	documents := services.NewDocumentService(db, store, folders, access, permissions, versioning, audit, cfg.Upload.MaxFileSize)
	approvals := services.NewApprovalService(db, permissions, audit)
	provisioning := services.NewProvisioningService(db, audit)

	authHandlers := handlers.NewAuthHandlers(db)
	folderHandlers := handlers.NewFolderHandlers(folders, documents, access)
	documentHandlers := handlers.NewDocumentHandlers(documents)
	roleHandlers := handlers.NewRoleHandlers(db)
	userHandlers := handlers.NewUserHandlers(db, provisioning)
	approvalHandlers := handlers.NewApprovalHandlers(approvals)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{
		BodyLimit:             int(cfg.Upload.MaxFileSize) + 1024*1024,
		DisableStartupMessage: true,
	})
	app.Use(middleware.CORS())
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

	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			logger.Error("server_failed", err, nil)
			os.Exit(1)
		}
	}()
	logger.Info("server_started", map[string]interface{}{
		"port": cfg.Server.Port,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server_stopping", nil)
	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		logger.Error("server_shutdown_failed", err, nil)
	}
	audit.Close()
	logger.Info("server_stopped", nil)
}
