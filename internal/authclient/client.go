package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"backend/internal/model"
	"backend/internal/session"
)

// Client talks to the external authentication service. The service is
// an opaque network boundary: this client only calls login/refresh/
// logout and validates the access tokens it hands back.
type Client struct {
	baseURL string
	secret  []byte
	http    *retryablehttp.Client
	logger  *zap.Logger
}

// New builds a Client for the service at baseURL. secret is the shared
// HMAC key access tokens are signed with.
func New(baseURL string, secret []byte, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil
	return &Client{baseURL: baseURL, secret: secret, http: rc, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenEnvelope struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// Login verifies credentials against the authentication service.
func (c *Client) Login(ctx context.Context, email, password string) (*session.LoginResult, error) {
	env, err := c.postTokens(ctx, "/login", loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return c.buildResult(env)
}

// Refresh exchanges a refresh token for a fresh token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*session.LoginResult, error) {
	env, err := c.postTokens(ctx, "/refresh", refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}
	return c.buildResult(env)
}

// Logout revokes the access token server-side. Best effort: a dead
// auth service must not block local logout.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("authclient: logout returned %d", resp.StatusCode)
	}
	return nil
}

// Validate checks an access token locally and rebuilds its session.
func (c *Client) Validate(token string) (*model.Session, error) {
	return ParseSession(token, c.secret)
}

func (c *Client) postTokens(ctx context.Context, path string, payload interface{}) (*tokenEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return nil, session.ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("authclient: %s returned %d", path, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var env tokenEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Token == "" {
		return nil, errors.New("authclient: response missing token")
	}
	return &env, nil
}

func (c *Client) buildResult(env *tokenEnvelope) (*session.LoginResult, error) {
	sess, err := ParseSession(env.Token, c.secret)
	if err != nil {
		c.logger.Warn("auth service issued unparseable token", zap.Error(err))
		return nil, err
	}
	return &session.LoginResult{
		AccessToken:  env.Token,
		RefreshToken: env.RefreshToken,
		Session:      *sess,
	}, nil
}
