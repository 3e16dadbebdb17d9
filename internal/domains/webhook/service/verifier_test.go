package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	channelModel "github.com/mahmoudtohamy2025/rappit-core/internal/domains/channel/model"
)

type fakeChannelRepo struct {
	channels map[uuid.UUID]*channelModel.Channel
}

func (f *fakeChannelRepo) GetByID(_ context.Context, id uuid.UUID) (*channelModel.Channel, error) {
	ch, ok := f.channels[id]
	if !ok {
		return nil, channelModel.ErrChannelNotFound
	}
	return ch, nil
}

func newTestVerifier(channels ...*channelModel.Channel) VerifierInterface {
	repo := &fakeChannelRepo{channels: make(map[uuid.UUID]*channelModel.Channel)}
	for _, ch := range channels {
		repo.channels[ch.ID] = ch
	}
	return NewVerifier(repo)
}

func activeShopifyChannel(secret string) *channelModel.Channel {
	return &channelModel.Channel{
		ID:             uuid.New(),
		OrganizationID: "org-1",
		Type:           channelModel.ChannelShopify,
		Status:         channelModel.ChannelActive,
		WebhookSecret:  secret,
	}
}

func TestVerify_ValidSignature(t *testing.T) {
	ch := activeShopifyChannel("s")
	v := newTestVerifier(ch)

	payload := []byte(`{"id":12345}`)
	signature := ComputeSignature(payload, "s")

	result := v.Verify(context.Background(), ch.ID, channelModel.ChannelShopify, signature, payload)

	require.True(t, result.Valid)
	assert.Equal(t, ch.ID, result.ChannelID)
	assert.Equal(t, "org-1", result.OrganizationID)
}

func TestVerify_AlteredPayload(t *testing.T) {
	ch := activeShopifyChannel("s")
	v := newTestVerifier(ch)

	signature := ComputeSignature([]byte(`{"id":12345}`), "s")

	result := v.Verify(context.Background(), ch.ID, channelModel.ChannelShopify, signature, []byte(`{"id":99999}`))

	assert.False(t, result.Valid)
	assert.Equal(t, http.StatusUnauthorized, result.StatusCode)
}

func TestVerify_MissingSignature(t *testing.T) {
	ch := activeShopifyChannel("s")
	v := newTestVerifier(ch)

	result := v.Verify(context.Background(), ch.ID, channelModel.ChannelShopify, "", []byte(`{}`))

	assert.False(t, result.Valid)
	assert.Equal(t, http.StatusUnauthorized, result.StatusCode)
}

func TestVerify_UnknownChannel(t *testing.T) {
	v := newTestVerifier()

	result := v.Verify(context.Background(), uuid.New(), channelModel.ChannelShopify, "sig", []byte(`{}`))

	assert.False(t, result.Valid)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
}

func TestVerify_InactiveChannel(t *testing.T) {
	ch := activeShopifyChannel("s")
	ch.Status = channelModel.ChannelInactive
	v := newTestVerifier(ch)

	payload := []byte(`{"id":12345}`)
	signature := ComputeSignature(payload, "s")

	result := v.Verify(context.Background(), ch.ID, channelModel.ChannelShopify, signature, payload)

	assert.False(t, result.Valid)
	assert.Equal(t, http.StatusForbidden, result.StatusCode)
	assert.Contains(t, result.Error, "inactive")
}

func TestVerify_TypeMismatch(t *testing.T) {
	ch := activeShopifyChannel("s")
	v := newTestVerifier(ch)

	payload := []byte(`{}`)
	signature := ComputeSignature(payload, "s")

	result := v.Verify(context.Background(), ch.ID, channelModel.ChannelWooCommerce, signature, payload)

	assert.False(t, result.Valid)
	assert.Equal(t, http.StatusBadRequest, result.StatusCode)
}

func TestVerify_SecretNotConfigured(t *testing.T) {
	ch := activeShopifyChannel("")
	v := newTestVerifier(ch)

	result := v.Verify(context.Background(), ch.ID, channelModel.ChannelShopify, "sig", []byte(`{}`))

	assert.False(t, result.Valid)
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
}

func TestVerifyWithOrg_CrossTenant(t *testing.T) {
	ch := activeShopifyChannel("s")
	v := newTestVerifier(ch)

	payload := []byte(`{}`)
	signature := ComputeSignature(payload, "s")

	result := v.(*Verifier).VerifyWithOrg(context.Background(), "org-2", ch.ID, channelModel.ChannelShopify, signature, payload)

	assert.False(t, result.Valid)
	assert.Equal(t, http.StatusForbidden, result.StatusCode)
	assert.Contains(t, result.Error, "organization")
}

func TestVerify_ReplayIsIdempotent(t *testing.T) {
	ch := activeShopifyChannel("s")
	v := newTestVerifier(ch)

	payload := []byte(`{"id":12345}`)
	signature := ComputeSignature(payload, "s")

	first := v.Verify(context.Background(), ch.ID, channelModel.ChannelShopify, signature, payload)
	second := v.Verify(context.Background(), ch.ID, channelModel.ChannelShopify, signature, payload)

	assert.Equal(t, first, second)
	assert.True(t, second.Valid)
}

func TestTimingSafeEqual_LengthMismatch(t *testing.T) {
	assert.False(t, timingSafeEqual("abc", "abcd"))
	assert.False(t, timingSafeEqual("abcd", ""))
	assert.True(t, timingSafeEqual("abcd", "abcd"))
}
