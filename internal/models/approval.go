package models

import (
	"time"

	"github.com/google/uuid"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// DocumentApprovalRequest tracks one review cycle for a document gated by
// requires_approval_to_view.
type DocumentApprovalRequest struct {
	BaseModel
	DocumentID    uuid.UUID      `json:"documentID" gorm:"type:uuid;not null;index"`
	RequestedByID uuid.UUID      `json:"requestedByID" gorm:"type:uuid;not null;index"`
	ReviewedByID  *uuid.UUID     `json:"reviewedByID,omitempty" gorm:"type:uuid"`
	Status        ApprovalStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Reason        string         `json:"reason" gorm:"type:text"`
	ReviewNote    string         `json:"reviewNote" gorm:"type:text"`
	ReviewedAt    *time.Time     `json:"reviewedAt,omitempty"`

	Document    Document `json:"document,omitempty" gorm:"foreignKey:DocumentID;references:ID"`
	RequestedBy User     `json:"requestedBy,omitempty" gorm:"foreignKey:RequestedByID;references:ID"`
	ReviewedBy  *User    `json:"reviewedBy,omitempty" gorm:"foreignKey:ReviewedByID;references:ID"`
}

func (DocumentApprovalRequest) TableName() string {
	return "document_approval_requests"
}
