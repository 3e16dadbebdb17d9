package token

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/shipping/gateway"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/shipping/model"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/shipping/repository"
	pkgCache "github.com/mahmoudtohamy2025/rappit-core/pkg/cache"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/logger"
)

const (
	// LockExpiry bounds how long followers trust an in-flight acquisition.
	LockExpiry = 30 * time.Second

	// ttlBuffer refreshes tokens at least five minutes before real expiry.
	ttlBuffer = 300 * time.Second

	// ttlFloor is the minimum cache TTL.
	ttlFloor = 60 * time.Second
)

// CacheKey is "<carrier>:token:<account_id>".
func CacheKey(carrier model.Carrier, accountID uuid.UUID) string {
	return fmt.Sprintf("%s:token:%s", strings.ToLower(string(carrier)), accountID)
}

// ManagerInterface produces valid bearer tokens for shipping accounts with
// cache-first reads and stampede protection.
type ManagerInterface interface {
	GetAccessToken(ctx context.Context, account *model.ShippingAccount) (string, error)
	HandleUnauthorized(ctx context.Context, account *model.ShippingAccount) (string, error)
}

type flight struct {
	started time.Time
	done    chan struct{}
	token   string
	err     error
}

type Manager struct {
	cache     pkgCache.Cache
	client    gateway.TokenClientInterface
	endpoints *gateway.Endpoints
	accounts  repository.RepositoryInterface

	mu      sync.Mutex
	flights map[uuid.UUID]*flight
}

func NewManager(cache pkgCache.Cache, client gateway.TokenClientInterface, endpoints *gateway.Endpoints, accounts repository.RepositoryInterface) ManagerInterface {
	return &Manager{
		cache:     cache,
		client:    client,
		endpoints: endpoints,
		accounts:  accounts,
		flights:   make(map[uuid.UUID]*flight),
	}
}

// GetAccessToken returns a cached token when present; otherwise one caller
// per account fetches upstream while concurrent callers await its result.
// A fetch older than LockExpiry is presumed dead and replaced.
func (m *Manager) GetAccessToken(ctx context.Context, account *model.ShippingAccount) (string, error) {
	key := CacheKey(account.Carrier, account.ID)

	if token, ok, _ := m.cache.GetString(ctx, key); ok {
		return token, nil
	}

	m.mu.Lock()
	if f, ok := m.flights[account.ID]; ok && time.Since(f.started) < LockExpiry {
		m.mu.Unlock()
		select {
		case <-f.done:
			return f.token, f.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f := &flight{started: time.Now(), done: make(chan struct{})}
	m.flights[account.ID] = f
	m.mu.Unlock()

	f.token, f.err = m.fetchAndCache(ctx, key, account)
	close(f.done)

	m.mu.Lock()
	if m.flights[account.ID] == f {
		delete(m.flights, account.ID)
	}
	m.mu.Unlock()

	return f.token, f.err
}

func (m *Manager) fetchAndCache(ctx context.Context, key string, account *model.ShippingAccount) (string, error) {
	// A follower that became leader right after a fetch completed can still
	// be served from cache.
	if token, ok, _ := m.cache.GetString(ctx, key); ok {
		return token, nil
	}

	creds := account.Credentials
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return "", model.NewTokenError(model.KindMissingCredentials, 0, "account has no client credentials")
	}

	endpoint, ok := m.endpoints.TokenURL(account.Carrier, account.TestMode)
	if !ok {
		return "", model.NewTokenError(model.KindTokenRequestFailed, 0, "no token endpoint for carrier")
	}

	resp, err := m.client.FetchToken(ctx, endpoint, creds.ClientID, creds.ClientSecret)
	if err != nil {
		if model.TokenErrorKindOf(err) == model.KindNeedsReauth {
			if markErr := m.accounts.MarkNeedsReauth(ctx, account.OrganizationID, account.ID); markErr != nil {
				logger.Error("failed to mark account for re-auth", markErr)
			}
		}
		return "", err
	}

	ttl := time.Duration(resp.ExpiresIn)*time.Second - ttlBuffer
	if ttl < ttlFloor {
		ttl = ttlFloor
	}
	if err := m.cache.SetString(ctx, key, resp.AccessToken, ttl); err != nil {
		logger.Error("failed to cache access token", err)
	}

	return resp.AccessToken, nil
}

// HandleUnauthorized recovers from a downstream 401: the cached token is
// dropped and a fresh one fetched. Callers retry the downstream call at most
// once with the returned token.
func (m *Manager) HandleUnauthorized(ctx context.Context, account *model.ShippingAccount) (string, error) {
	key := CacheKey(account.Carrier, account.ID)
	if err := m.cache.Delete(ctx, key); err != nil {
		logger.Error("failed to evict cached token", err)
	}
	return m.GetAccessToken(ctx, account)
}
