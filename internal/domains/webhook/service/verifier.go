package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"github.com/google/uuid"

	channelModel "github.com/mahmoudtohamy2025/rappit-core/internal/domains/channel/model"
	channelRepo "github.com/mahmoudtohamy2025/rappit-core/internal/domains/channel/repository"
)

// Signature headers per storefront; both carry base64(HMAC-SHA256(body)).
const (
	HeaderShopify     = "X-Shopify-Hmac-Sha256"
	HeaderWooCommerce = "X-WC-Webhook-Signature"
)

// SignatureHeaderFor maps a channel type to its signature header name.
func SignatureHeaderFor(t channelModel.ChannelType) string {
	if t == channelModel.ChannelWooCommerce {
		return HeaderWooCommerce
	}
	return HeaderShopify
}

// VerifyResult reports the verification outcome and the HTTP status the
// routing layer should return.
type VerifyResult struct {
	Valid          bool      `json:"valid"`
	ChannelID      uuid.UUID `json:"channel_id,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	StatusCode     int       `json:"status_code,omitempty"`
	Error          string    `json:"error,omitempty"`
}

type VerifierInterface interface {
	// Verify proves the payload originated from the channel's storefront.
	Verify(ctx context.Context, channelID uuid.UUID, channelType channelModel.ChannelType, signature string, payload []byte) VerifyResult

	// VerifyWithOrg additionally requires the channel to belong to the
	// expected organization.
	VerifyWithOrg(ctx context.Context, expectedOrg string, channelID uuid.UUID, channelType channelModel.ChannelType, signature string, payload []byte) VerifyResult
}

type Verifier struct {
	channels channelRepo.RepositoryInterface
}

func NewVerifier(channels channelRepo.RepositoryInterface) VerifierInterface {
	return &Verifier{channels: channels}
}

func (v *Verifier) Verify(ctx context.Context, channelID uuid.UUID, channelType channelModel.ChannelType, signature string, payload []byte) VerifyResult {
	return v.verify(ctx, nil, channelID, channelType, signature, payload)
}

func (v *Verifier) VerifyWithOrg(ctx context.Context, expectedOrg string, channelID uuid.UUID, channelType channelModel.ChannelType, signature string, payload []byte) VerifyResult {
	return v.verify(ctx, &expectedOrg, channelID, channelType, signature, payload)
}

func fail(status int, msg string) VerifyResult {
	return VerifyResult{Valid: false, StatusCode: status, Error: msg}
}

func (v *Verifier) verify(ctx context.Context, expectedOrg *string, channelID uuid.UUID, channelType channelModel.ChannelType, signature string, payload []byte) VerifyResult {
	if signature == "" {
		return fail(http.StatusUnauthorized, "missing signature")
	}

	channel, err := v.channels.GetByID(ctx, channelID)
	if err != nil {
		// An unknown channel id reads as 404. A channel of another
		// organization is reported as 403 by VerifyWithOrg below.
		return fail(http.StatusNotFound, "channel not found")
	}

	if expectedOrg != nil && channel.OrganizationID != *expectedOrg {
		return fail(http.StatusForbidden, "organization mismatch")
	}

	if channel.Status != channelModel.ChannelActive {
		return fail(http.StatusForbidden, "inactive channel")
	}

	if channel.Type != channelType {
		return fail(http.StatusBadRequest, "channel type mismatch")
	}

	if channel.WebhookSecret == "" {
		return fail(http.StatusInternalServerError, "webhook secret not configured")
	}

	expected := ComputeSignature(payload, channel.WebhookSecret)
	if !timingSafeEqual(expected, signature) {
		return fail(http.StatusUnauthorized, "invalid signature")
	}

	return VerifyResult{
		Valid:          true,
		ChannelID:      channel.ID,
		OrganizationID: channel.OrganizationID,
	}
}

// ComputeSignature returns base64(HMAC-SHA256(payload, secret)).
func ComputeSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// timingSafeEqual compares in constant time. On a length mismatch it still
// performs one comparison against an equal-length dummy so the early exit
// does not leak timing.
func timingSafeEqual(expected, received string) bool {
	if len(expected) != len(received) {
		dummy := make([]byte, len(received))
		subtle.ConstantTimeCompare([]byte(received), dummy)
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}
