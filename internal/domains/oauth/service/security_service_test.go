package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/oauth/model"
	infraCache "github.com/mahmoudtohamy2025/rappit-core/internal/infrastructure/cache"
	pkgCache "github.com/mahmoudtohamy2025/rappit-core/pkg/cache"
)

func testService(t *testing.T) (*SecurityService, *miniredis.Miniredis, pkgCache.Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := infraCache.NewRedisCacheFromClient(client)

	svc := NewSecurityService(cache, Options{
		StateTTL:        10 * time.Minute,
		RateLimitMax:    10,
		RateLimitWindow: time.Minute,
		AllowedOrigins:  []string{"https://app.example.com", "http://localhost:3000"},
		FallbackURL:     "https://app.example.com/dashboard",
	})
	return svc, mr, cache
}

// ========================================
// STATE
// ========================================

func TestState_IssueAndConsume(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()

	state, err := svc.IssueState(ctx, model.StatePayload{
		OrganizationID: "org-1",
		Provider:       "shopify",
		RedirectURL:    "https://app.example.com/connected",
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[a-f0-9]{64}$`), state)

	payload, err := svc.ConsumeState(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "org-1", payload.OrganizationID)
	assert.Equal(t, "shopify", payload.Provider)
	assert.Equal(t, "https://app.example.com/connected", payload.RedirectURL)

	// Second consumption: single use.
	_, err = svc.ConsumeState(ctx, state)
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestState_FormatValidation(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()

	for _, bad := range []string{
		"",
		"short",
		"ZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZ",
		"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcde",   // 63 chars
		"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdeff", // 65 chars
	} {
		_, err := svc.ConsumeState(ctx, bad)
		assert.ErrorIs(t, err, model.ErrInvalidState, "state %q", bad)
	}
}

func TestState_ExpiredByTTL(t *testing.T) {
	svc, mr, _ := testService(t)
	ctx := context.Background()

	state, err := svc.IssueState(ctx, model.StatePayload{OrganizationID: "org-1", Provider: "shopify"})
	require.NoError(t, err)

	mr.FastForward(11 * time.Minute)

	_, err = svc.ConsumeState(ctx, state)
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestState_StoreOutageFailsClosed(t *testing.T) {
	svc, mr, _ := testService(t)
	ctx := context.Background()

	state, err := svc.IssueState(ctx, model.StatePayload{OrganizationID: "org-1", Provider: "shopify"})
	require.NoError(t, err)

	mr.Close()

	_, err = svc.ConsumeState(ctx, state)
	assert.ErrorIs(t, err, model.ErrStateStoreUnavailable)
}

// ========================================
// RATE LIMIT
// ========================================

func TestRateLimit_EleventhCallRejected(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, svc.CheckRateLimit(ctx, "203.0.113.7"))
	}

	err := svc.CheckRateLimit(ctx, "203.0.113.7")
	var rle *model.RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Greater(t, rle.RetryAfter, time.Duration(0))

	// A different IP is unaffected.
	assert.NoError(t, svc.CheckRateLimit(ctx, "203.0.113.8"))
}

func TestRateLimit_WindowExpires(t *testing.T) {
	svc, mr, _ := testService(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, svc.CheckRateLimit(ctx, "203.0.113.7"))
	}
	require.Error(t, svc.CheckRateLimit(ctx, "203.0.113.7"))

	mr.FastForward(61 * time.Second)

	assert.NoError(t, svc.CheckRateLimit(ctx, "203.0.113.7"))
}

func TestRateLimit_StoreOutageFailsOpen(t *testing.T) {
	svc, mr, _ := testService(t)
	mr.Close()

	assert.NoError(t, svc.CheckRateLimit(context.Background(), "203.0.113.7"))
}

// ========================================
// REDIRECTS
// ========================================

func TestRedirect_AllowList(t *testing.T) {
	svc, _, _ := testService(t)

	assert.NoError(t, svc.ValidateRedirect("https://app.example.com/path?x=1"))
	assert.NoError(t, svc.ValidateRedirect("http://localhost:3000/cb"))

	assert.ErrorIs(t, svc.ValidateRedirect("https://evil.example.com/"), model.ErrRedirectNotAllowed)
	assert.ErrorIs(t, svc.ValidateRedirect("https://app.example.com.evil.com/"), model.ErrRedirectNotAllowed)
	assert.ErrorIs(t, svc.ValidateRedirect("not a url"), model.ErrRedirectNotAllowed)
	assert.ErrorIs(t, svc.ValidateRedirect(""), model.ErrRedirectNotAllowed)
}

func TestRedirect_SafeFallback(t *testing.T) {
	svc, _, _ := testService(t)

	assert.Equal(t, "https://app.example.com/ok", svc.SafeRedirect("https://app.example.com/ok"))
	assert.Equal(t, "https://app.example.com/dashboard", svc.SafeRedirect("https://evil.example.com/"))
	assert.Equal(t, "https://app.example.com/dashboard", svc.SafeRedirect(""))
}
