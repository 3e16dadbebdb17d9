package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/oauth/model"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/oauth/service"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/response"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/tenant"
)

type Handler struct {
	security *service.SecurityService
}

func NewHandler(security *service.SecurityService) *Handler {
	return &Handler{security: security}
}

type startRequest struct {
	Provider    string                 `json:"provider" binding:"required"`
	RedirectURL string                 `json:"redirect_url,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Start handles POST /api/v1/oauth/start: issues the anti-CSRF state for an
// outbound OAuth flow.
func (h *Handler) Start(c *gin.Context) {
	tc, err := tenant.FromGin(c)
	if err != nil {
		response.Unauthorized(c, "missing tenant context")
		return
	}

	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	if req.RedirectURL != "" {
		if err := h.security.ValidateRedirect(req.RedirectURL); err != nil {
			response.BadRequest(c, "redirect origin not allowed")
			return
		}
	}

	state, err := h.security.IssueState(c.Request.Context(), model.StatePayload{
		OrganizationID: tc.OrganizationID,
		Provider:       req.Provider,
		RedirectURL:    req.RedirectURL,
		Metadata:       req.Metadata,
		IP:             c.ClientIP(),
	})
	if err != nil {
		response.InternalServerError(c, "Failed to start OAuth flow")
		return
	}

	response.Success(c, http.StatusOK, "State issued", gin.H{"state": state})
}

// Callback handles GET /api/v1/oauth/callback: rate-limits by source IP,
// consumes the single-use state, and returns the validated redirect URL (or
// the configured fallback) in the JSON body; it does not issue an HTTP redirect.
func (h *Handler) Callback(c *gin.Context) {
	if err := h.security.CheckRateLimit(c.Request.Context(), c.ClientIP()); err != nil {
		var rle *model.RateLimitError
		if errors.As(err, &rle) {
			response.ErrorWithDetails(c, http.StatusForbidden, "RATE_LIMITED", "Too many callbacks", gin.H{
				"retry_after_seconds": int(rle.RetryAfter.Seconds()),
			})
			return
		}
		response.InternalServerError(c, "Rate limit check failed")
		return
	}

	payload, err := h.security.ConsumeState(c.Request.Context(), c.Query("state"))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidState):
			response.BadRequest(c, "invalid or expired state")
		default:
			response.InternalServerError(c, "State validation failed")
		}
		return
	}

	redirect := h.security.SafeRedirect(payload.RedirectURL)
	response.Success(c, http.StatusOK, "Callback accepted", gin.H{
		"organization_id": payload.OrganizationID,
		"provider":        payload.Provider,
		"redirect_url":    redirect,
	})
}
