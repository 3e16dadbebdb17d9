package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/oauth/model"
	pkgCache "github.com/mahmoudtohamy2025/rappit-core/pkg/cache"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/logger"
)

const (
	stateKeyPrefix     = "oauth:state:"
	rateLimitKeyPrefix = "oauth:ratelimit:"
)

var statePattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// SecurityService implements the OAuth callback protections: single-use
// anti-CSRF state, per-IP rate limiting and redirect-origin allow-listing.
type SecurityService struct {
	cache           pkgCache.Cache
	stateTTL        time.Duration
	rateLimitMax    int64
	rateLimitWindow time.Duration
	allowedOrigins  map[string]struct{}
	fallbackURL     string
}

type Options struct {
	StateTTL        time.Duration
	RateLimitMax    int64
	RateLimitWindow time.Duration
	AllowedOrigins  []string
	FallbackURL     string
}

func NewSecurityService(cache pkgCache.Cache, opts Options) *SecurityService {
	if opts.StateTTL == 0 {
		opts.StateTTL = 10 * time.Minute
	}
	if opts.RateLimitMax == 0 {
		opts.RateLimitMax = 10
	}
	if opts.RateLimitWindow == 0 {
		opts.RateLimitWindow = time.Minute
	}

	allowed := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		if origin := normalizeOrigin(o); origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return &SecurityService{
		cache:           cache,
		stateTTL:        opts.StateTTL,
		rateLimitMax:    opts.RateLimitMax,
		rateLimitWindow: opts.RateLimitWindow,
		allowedOrigins:  allowed,
		fallbackURL:     opts.FallbackURL,
	}
}

// ========================================
// STATE (anti-CSRF)
// ========================================

// IssueState generates a 32-byte random hex state and persists the payload
// for single-use validation on callback.
func (s *SecurityService) IssueState(ctx context.Context, payload model.StatePayload) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := hex.EncodeToString(buf)

	payload.CreatedAt = time.Now()
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state payload: %w", err)
	}

	if err := s.cache.SetString(ctx, stateKeyPrefix+state, string(data), s.stateTTL); err != nil {
		return "", fmt.Errorf("failed to persist state: %w", err)
	}

	return state, nil
}

// ConsumeState validates the state format, atomically reads-and-deletes it,
// and enforces the age limit as defense in depth. A store outage fails
// closed: the state cannot be proven single-use without the store.
func (s *SecurityService) ConsumeState(ctx context.Context, state string) (*model.StatePayload, error) {
	if state == "" || !statePattern.MatchString(state) {
		return nil, model.ErrInvalidState
	}

	raw, found, err := s.cache.StrictGetDel(ctx, stateKeyPrefix+state)
	if err != nil {
		logger.Error("oauth state store unavailable", err)
		return nil, model.ErrStateStoreUnavailable
	}
	if !found {
		return nil, model.ErrInvalidState
	}

	var payload model.StatePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, model.ErrInvalidState
	}

	if time.Since(payload.CreatedAt) > s.stateTTL {
		return nil, model.ErrInvalidState
	}

	return &payload, nil
}

// ========================================
// RATE LIMIT
// ========================================

// CheckRateLimit enforces a fixed per-IP window that opens at the first
// callback and lasts rateLimitWindow (the counter's TTL). Store failures fail
// open: rate limiting is protective, not security-critical.
func (s *SecurityService) CheckRateLimit(ctx context.Context, ip string) error {
	key := rateLimitKeyPrefix + sanitizeIP(ip)

	count, err := s.cache.IncrWithTTL(ctx, key, s.rateLimitWindow)
	if err != nil {
		logger.Warn("rate limit store unavailable, failing open", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	if count > s.rateLimitMax {
		retryAfter := s.rateLimitWindow
		if ttl, err := s.cache.TTL(ctx, key); err == nil && ttl > 0 {
			retryAfter = ttl
		}
		return &model.RateLimitError{RetryAfter: retryAfter}
	}

	return nil
}

func sanitizeIP(ip string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F', r == '.':
			return r
		case r == ':':
			return '_'
		default:
			return -1
		}
	}, ip)
}

// ========================================
// REDIRECT VALIDATION
// ========================================

// ValidateRedirect checks the candidate URL's origin against the allow list.
func (s *SecurityService) ValidateRedirect(candidate string) error {
	origin := originOf(candidate)
	if origin == "" {
		return model.ErrRedirectNotAllowed
	}
	if _, ok := s.allowedOrigins[origin]; !ok {
		return model.ErrRedirectNotAllowed
	}
	return nil
}

// SafeRedirect returns the candidate when its origin is allowed, otherwise
// the configured fallback.
func (s *SecurityService) SafeRedirect(candidate string) string {
	if err := s.ValidateRedirect(candidate); err != nil {
		return s.fallbackURL
	}
	return candidate
}

func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func normalizeOrigin(rawURL string) string {
	return originOf(rawURL)
}
