package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	invModel "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/model"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/transfer/model"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/transfer/service"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/response"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/tenant"
)

type Handler struct {
	service service.ServiceInterface
}

func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

func mapTransferError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrRoleDenied):
		response.Forbidden(c, err.Error())
	case model.IsValidationError(err):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", err.Error())
	case errors.Is(err, invModel.ErrInsufficientStock):
		response.ErrorWithDetails(c, http.StatusBadRequest, "INSUFFICIENT_STOCK", "Insufficient stock at target", err.Error())
	case errors.Is(err, model.ErrTransferNotFound), invModel.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	case model.IsStateError(err):
		response.Conflict(c, err.Error())
	default:
		response.InternalServerError(c, "Operation failed")
	}
}

// CreateTransfer handles POST /api/v1/inventory/transfers
func (h *Handler) CreateTransfer(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	var req model.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", err.Error())
		return
	}

	transfer, err := h.service.CreateTransferRequest(c.Request.Context(), tc, req)
	if err != nil {
		mapTransferError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Transfer created", transfer)
}

func (h *Handler) transferID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid transfer ID")
		return uuid.Nil, false
	}
	return id, true
}

// ApproveTransfer handles POST /api/v1/inventory/transfers/:id/approve
func (h *Handler) ApproveTransfer(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}
	id, ok := h.transferID(c)
	if !ok {
		return
	}

	transfer, err := h.service.ApproveTransfer(c.Request.Context(), tc, id)
	if err != nil {
		mapTransferError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Transfer approved", transfer)
}

// RejectTransfer handles POST /api/v1/inventory/transfers/:id/reject
func (h *Handler) RejectTransfer(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}
	id, ok := h.transferID(c)
	if !ok {
		return
	}

	var req model.RejectTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	transfer, err := h.service.RejectTransfer(c.Request.Context(), tc, id, req.Reason)
	if err != nil {
		mapTransferError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Transfer rejected", transfer)
}

// CancelTransfer handles POST /api/v1/inventory/transfers/:id/cancel
func (h *Handler) CancelTransfer(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}
	id, ok := h.transferID(c)
	if !ok {
		return
	}

	transfer, err := h.service.CancelTransfer(c.Request.Context(), tc, id)
	if err != nil {
		mapTransferError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Transfer cancelled", transfer)
}

// CompleteTransfer handles POST /api/v1/inventory/transfers/:id/complete
func (h *Handler) CompleteTransfer(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}
	id, ok := h.transferID(c)
	if !ok {
		return
	}

	transfer, err := h.service.ExecuteTransfer(c.Request.Context(), tc, id)
	if err != nil {
		mapTransferError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Transfer completed", transfer)
}

// RescheduleTransfer handles POST /api/v1/inventory/transfers/:id/reschedule
func (h *Handler) RescheduleTransfer(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}
	id, ok := h.transferID(c)
	if !ok {
		return
	}

	var req model.RescheduleTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	transfer, err := h.service.RescheduleTransfer(c.Request.Context(), tc, id, req.ScheduledAt)
	if err != nil {
		mapTransferError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Transfer rescheduled", transfer)
}

// ListTransfers handles GET /api/v1/inventory/transfers
func (h *Handler) ListTransfers(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	var req model.ListTransfersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	transfers, total, err := h.service.ListTransfers(c.Request.Context(), tc, req)
	if err != nil {
		response.InternalServerError(c, "Failed to list transfers")
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, transfers, &response.Meta{
		Page:  req.Page,
		Limit: req.PageSize,
		Total: total,
	})
}
