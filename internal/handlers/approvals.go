package handlers

import (
	"github.com/gedvault/backend/internal/middleware"
	"github.com/gedvault/backend/internal/services"
	"github.com/gedvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type ApprovalHandlers struct {
	Approvals *services.ApprovalService
}

func NewApprovalHandlers(approvals *services.ApprovalService) *ApprovalHandlers {
	return &ApprovalHandlers{Approvals: approvals}
}

type approvalRequest struct {
	DocumentID string `json:"document_id"`
	Reason     string `json:"reason"`
}

// Request opens a review for a gated document.
func (h *ApprovalHandlers) Request(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req approvalRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	documentID, err := parseUUID(req.DocumentID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	request, err := h.Approvals.Request(c.Context(), user, documentID, req.Reason)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, request)
}

// Pending lists open reviews for reviewers.
func (h *ApprovalHandlers) Pending(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	requests, err := h.Approvals.Pending(c.Context(), user)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, requests)
}

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// Review settles a pending request.
func (h *ApprovalHandlers) Review(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request id")
	}

	var req reviewRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	request, err := h.Approvals.Review(c.Context(), user, id, req.Approve, req.Note, c.IP(), middleware.GetRequestID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, request)
}
