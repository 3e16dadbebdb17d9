package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	channelModel "github.com/mahmoudtohamy2025/rappit-core/internal/domains/channel/model"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/webhook/service"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/middleware"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/response"
)

type Handler struct {
	verifier service.VerifierInterface
}

func NewHandler(verifier service.VerifierInterface) *Handler {
	return &Handler{verifier: verifier}
}

// ShopifyWebhook handles POST /webhooks/shopify/:channelId
func (h *Handler) ShopifyWebhook(c *gin.Context) {
	h.handle(c, channelModel.ChannelShopify)
}

// WooCommerceWebhook handles POST /webhooks/woocommerce/:channelId
func (h *Handler) WooCommerceWebhook(c *gin.Context) {
	h.handle(c, channelModel.ChannelWooCommerce)
}

// handle verifies the raw body captured by the body middleware against the
// storefront's signature header. Header lookup is case-insensitive.
func (h *Handler) handle(c *gin.Context, channelType channelModel.ChannelType) {
	channelID, err := uuid.Parse(c.Param("channelId"))
	if err != nil {
		response.BadRequest(c, "Invalid channel ID")
		return
	}

	signature := c.GetHeader(service.SignatureHeaderFor(channelType))
	payload := middleware.RawBody(c)

	result := h.verifier.Verify(c.Request.Context(), channelID, channelType, signature, payload)
	if !result.Valid {
		response.ErrorResponse(c, result.StatusCode, "WEBHOOK_REJECTED", result.Error)
		return
	}

	// Verification is pure; replayed webhooks verify identically and
	// downstream consumers handle dedup.
	response.Success(c, http.StatusOK, "Webhook accepted", gin.H{
		"channel_id":      result.ChannelID,
		"organization_id": result.OrganizationID,
	})
}
