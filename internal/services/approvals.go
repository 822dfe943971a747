package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gedvault/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalService manages review cycles for documents gated behind
// requires_approval_to_view.
type ApprovalService struct {
	DB          *gorm.DB
	Permissions *PermissionService
	Audit       *AuditService
}

func NewApprovalService(db *gorm.DB, permissions *PermissionService, audit *AuditService) *ApprovalService {
	return &ApprovalService{DB: db, Permissions: permissions, Audit: audit}
}

// Request opens a pending review for a gated, not yet approved document.
// Duplicate pending requests for the same document are rejected.
func (s *ApprovalService) Request(ctx context.Context, actor *models.User, documentID uuid.UUID, reason string) (*models.DocumentApprovalRequest, error) {
	var doc models.Document
	err := s.DB.WithContext(ctx).First(&doc, "id = ?", documentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !doc.RequiresApprovalToView {
		return nil, fmt.Errorf("document is not gated by approval: %w", ErrValidation)
	}
	if doc.IsApproved() {
		return nil, fmt.Errorf("document is already approved: %w", ErrConflict)
	}

	request := &models.DocumentApprovalRequest{
		DocumentID:    doc.ID,
		RequestedByID: actor.ID,
		Status:        models.ApprovalStatusPending,
		Reason:        reason,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&models.DocumentApprovalRequest{}).
			Where("document_id = ? AND status = ?", doc.ID, models.ApprovalStatusPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return fmt.Errorf("a review is already pending: %w", ErrConflict)
		}
		return tx.Create(request).Error
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// Pending lists open requests, newest first. Reviewer capability required.
func (s *ApprovalService) Pending(ctx context.Context, actor *models.User) ([]models.DocumentApprovalRequest, error) {
	if !s.Permissions.CanPerform(ctx, actor, CapabilityApprove) {
		return nil, fmt.Errorf("list pending reviews: %w", ErrForbidden)
	}
	var requests []models.DocumentApprovalRequest
	err := s.DB.WithContext(ctx).
		Preload("Document").
		Preload("RequestedBy").
		Where("status = ?", models.ApprovalStatusPending).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// Review settles a pending request. Approval stamps the document's
// approved_by/approved_at in the same transaction; rejection leaves the
// document gated.
func (s *ApprovalService) Review(ctx context.Context, actor *models.User, requestID uuid.UUID, approve bool, note, ipAddress, reqID string) (*models.DocumentApprovalRequest, error) {
	if !s.Permissions.CanPerform(ctx, actor, CapabilityApprove) {
		return nil, fmt.Errorf("review: %w", ErrForbidden)
	}

	var request models.DocumentApprovalRequest
	err := s.DB.WithContext(ctx).First(&request, "id = ?", requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("approval request %s: %w", requestID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if request.Status != models.ApprovalStatusPending {
		return nil, fmt.Errorf("request already reviewed: %w", ErrConflict)
	}

	now := time.Now().UTC()
	status := models.ApprovalStatusRejected
	if approve {
		status = models.ApprovalStatusApproved
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&request).Updates(map[string]interface{}{
			"status":         status,
			"reviewed_by_id": actor.ID,
			"review_note":    note,
			"reviewed_at":    now,
		}).Error; err != nil {
			return err
		}
		if !approve {
			return nil
		}
		return tx.Model(&models.Document{}).
			Where("id = ?", request.DocumentID).
			Updates(map[string]interface{}{
				"approved_by_id": actor.ID,
				"approved_at":    now,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	request.Status = status
	request.ReviewedByID = &actor.ID
	request.ReviewNote = note
	request.ReviewedAt = &now

	action := "approval_rejected"
	if approve {
		action = "approval_granted"
	}
	s.Audit.LogAsync(AccessLogEntry{
		UserID:     &actor.ID,
		DocumentID: &request.DocumentID,
		Action:     action,
		Metadata:   map[string]interface{}{"request_id": request.ID.String()},
		IPAddress:  ipAddress,
		RequestID:  reqID,
	})
	return &request, nil
}
