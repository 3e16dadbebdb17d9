package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/model"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/service"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/response"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/tenant"
)

type Handler struct {
	service service.ServiceInterface
}

func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

func mapMovementError(c *gin.Context, err error) {
	switch {
	case model.IsValidationError(err):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", err.Error())
	case errors.Is(err, model.ErrInsufficientStock):
		response.ErrorWithDetails(c, http.StatusBadRequest, "INSUFFICIENT_STOCK", "Insufficient available stock", err.Error())
	case errors.Is(err, model.ErrReservedExceedsQuantity):
		response.ErrorWithDetails(c, http.StatusBadRequest, "RESERVED_EXCEEDED", "Quantity cannot drop below reserved", err.Error())
	case model.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	case model.IsStateError(err):
		response.Conflict(c, err.Error())
	default:
		response.InternalServerError(c, "Operation failed")
	}
}

// CreateMovement handles POST /api/v1/inventory/movements
func (h *Handler) CreateMovement(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	var req model.CreateMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", err.Error())
		return
	}

	movements, err := h.service.CreateMovement(c.Request.Context(), tc, req)
	if err != nil {
		mapMovementError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Movement created", movements)
}

// ExecuteMovement handles POST /api/v1/inventory/movements/:id/execute
func (h *Handler) ExecuteMovement(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid movement ID")
		return
	}

	movement, err := h.service.ExecuteMovement(c.Request.Context(), tc, id)
	if err != nil {
		mapMovementError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Movement executed", movement)
}

// CancelMovement handles POST /api/v1/inventory/movements/:id/cancel
func (h *Handler) CancelMovement(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid movement ID")
		return
	}

	var req model.CancelMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	movement, err := h.service.CancelMovement(c.Request.Context(), tc, id, req.Reason)
	if err != nil {
		mapMovementError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Movement cancelled", movement)
}

// ListMovements handles GET /api/v1/inventory/movements
func (h *Handler) ListMovements(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	var req model.ListMovementsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.service.ListMovements(c.Request.Context(), tc, req)
	if err != nil {
		response.InternalServerError(c, "Failed to list movements")
		return
	}

	response.Success(c, http.StatusOK, "Movements retrieved", result)
}

// UpdateStock handles POST /api/v1/inventory/update
func (h *Handler) UpdateStock(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	var req model.StockUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", err.Error())
		return
	}

	result, err := h.service.UpdateStock(c.Request.Context(), tc, req)
	if err != nil {
		mapMovementError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Stock updated", result)
}

// BulkUpdateStock handles POST /api/v1/inventory/bulk-update
func (h *Handler) BulkUpdateStock(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	var req model.BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	result, err := h.service.BulkUpdateStock(c.Request.Context(), tc, req)
	if err != nil {
		mapMovementError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Bulk update processed", result)
}

// GetAuditTrail handles GET /api/v1/inventory/audit
func (h *Handler) GetAuditTrail(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	var req model.ListAuditRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.service.GetAuditTrail(c.Request.Context(), tc, req)
	if err != nil {
		response.InternalServerError(c, "Failed to list audit entries")
		return
	}

	response.Success(c, http.StatusOK, "Audit entries retrieved", result)
}
