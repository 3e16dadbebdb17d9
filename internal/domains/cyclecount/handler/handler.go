package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/cyclecount/model"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/cyclecount/service"
	invModel "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/model"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/response"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/tenant"
)

type Handler struct {
	service service.ServiceInterface
}

func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

func mapSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrSessionNotFound), invModel.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	case errors.Is(err, model.ErrSessionCompleted):
		response.Conflict(c, err.Error())
	case errors.Is(err, model.ErrSKUListRequired),
		errors.Is(err, model.ErrNoItemsInSession),
		errors.Is(err, model.ErrSKUNotInSession),
		invModel.IsValidationError(err):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", err.Error())
	default:
		response.InternalServerError(c, "Operation failed")
	}
}

// CreateSession handles POST /api/v1/inventory/cycle-counts
func (h *Handler) CreateSession(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	var req model.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", err.Error())
		return
	}

	result, err := h.service.CreateSession(c.Request.Context(), tc, req)
	if err != nil {
		mapSessionError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Session created", result)
}

func (h *Handler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

// GetSession handles GET /api/v1/inventory/cycle-counts/:id
func (h *Handler) GetSession(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	result, err := h.service.GetSession(c.Request.Context(), tc, id)
	if err != nil {
		mapSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Session retrieved", result)
}

// SubmitCounts handles POST /api/v1/inventory/cycle-counts/:id/counts
func (h *Handler) SubmitCounts(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req model.SubmitCountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	session, err := h.service.SubmitCounts(c.Request.Context(), tc, id, req)
	if err != nil {
		mapSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Counts submitted", session)
}

// GetVarianceReport handles GET /api/v1/inventory/cycle-counts/:id/variance
func (h *Handler) GetVarianceReport(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	report, err := h.service.GenerateVarianceReport(c.Request.Context(), tc, id)
	if err != nil {
		mapSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Variance report generated", report)
}

// CompleteSession handles POST /api/v1/inventory/cycle-counts/:id/complete
func (h *Handler) CompleteSession(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	result, err := h.service.CompleteSession(c.Request.Context(), tc, id)
	if err != nil {
		mapSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Session completed", result)
}
