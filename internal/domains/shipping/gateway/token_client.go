package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/shipping/model"
)

// RequestTimeout bounds each token call.
const RequestTimeout = 15 * time.Second

// TokenResponse is the parsed carrier token payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// TokenClientInterface fetches a client-credentials token from a carrier
// token endpoint.
type TokenClientInterface interface {
	FetchToken(ctx context.Context, endpoint, clientID, clientSecret string) (*TokenResponse, error)
}

type TokenClient struct {
	httpClient *http.Client
}

func NewTokenClient() TokenClientInterface {
	return &TokenClient{
		httpClient: &http.Client{
			Timeout: RequestTimeout,
		},
	}
}

// FetchToken POSTs a form-encoded client_credentials grant and classifies
// every failure mode into a tagged token error. Error messages never carry
// credentials or the token value.
func (c *TokenClient) FetchToken(ctx context.Context, endpoint, clientID, clientSecret string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, model.NewTokenError(model.KindNetworkError, 0, "failed to build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, model.NewTokenError(model.KindTimeout, 0, "token request timed out")
		}
		return nil, model.NewTokenError(model.KindNetworkError, 0, "token request transport failure")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewTokenError(model.KindNetworkError, resp.StatusCode, "failed to read token response")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, model.NewTokenError(model.KindNeedsReauth, resp.StatusCode, "carrier rejected credentials")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, model.NewTokenError(model.KindRateLimited, resp.StatusCode, "carrier rate limit hit")
	case resp.StatusCode >= 500:
		return nil, model.NewTokenError(model.KindServerError, resp.StatusCode, "carrier server error")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, model.NewTokenError(model.KindTokenRequestFailed, resp.StatusCode, "token request failed")
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, model.NewTokenError(model.KindInvalidResponse, resp.StatusCode, "token response is not valid JSON")
	}

	if token.AccessToken == "" {
		return nil, model.NewTokenError(model.KindEmptyToken, resp.StatusCode, "token response missing access_token")
	}

	if token.ExpiresIn <= 0 {
		token.ExpiresIn = 3600
	}

	return &token, nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
