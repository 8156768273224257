package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/permission"
	"backend/internal/service"
	"backend/internal/session"
)

type stubAuth struct {
	loginResult *session.LoginResult
	loginErr    error
	block       chan struct{}
	entered     chan struct{}
	sessions    map[string]*model.Session
}

func (s *stubAuth) Login(ctx context.Context, email, password string) (*session.LoginResult, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	out := *s.loginResult
	return &out, nil
}

func (s *stubAuth) Refresh(ctx context.Context, refreshToken string) (*session.LoginResult, error) {
	if refreshToken != "refresh-1" {
		return nil, session.ErrInvalidCredentials
	}
	out := *s.loginResult
	return &out, nil
}

func (s *stubAuth) Logout(ctx context.Context, accessToken string) error { return nil }

func (s *stubAuth) Validate(token string) (*model.Session, error) {
	if sess, ok := s.sessions[token]; ok {
		out := *sess
		return &out, nil
	}
	return nil, errors.New("bad token")
}

func riderResult() *session.LoginResult {
	return &session.LoginResult{
		AccessToken:  "access-token",
		RefreshToken: "refresh-1",
		Session: model.Session{
			UserID:    uuid.New(),
			Email:     "rider@laundry.test",
			FirstName: "Sami",
			Role:      model.RoleRider,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
}

type jsonEnvelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

func newAuthRouter(t *testing.T, auth session.Authenticator) (*gin.Engine, session.TokenStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := session.NewMemoryStore()
	eval := permission.NewEvaluator(permission.DefaultTable())
	audit := service.NewLoggingAuditService(nil)
	h := NewAuthHandler(auth, store, eval, audit, nil, time.Hour, nil)

	router := gin.New()
	router.Use(middleware.Authenticate(func() *session.Manager {
		return session.NewManager(auth, store, time.Hour, nil)
	}))
	h.RegisterRoutes(router.Group(""))
	return router, store
}

func postJSON(router *gin.Engine, path string, payload interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func cookieValue(res *httptest.ResponseRecorder, name string) string {
	for _, c := range res.Result().Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func TestLoginSetsSessionAndRedirect(t *testing.T) {
	auth := &stubAuth{loginResult: riderResult()}
	router, store := newAuthRouter(t, auth)

	res := postJSON(router, "/login", LoginRequest{Email: "rider@laundry.test", Password: "pw"})
	require.Equal(t, http.StatusOK, res.Code)

	var env jsonEnvelope
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &env))
	var data LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))

	assert.Equal(t, "rider", data.User.Role)
	assert.Equal(t, "Delivery Rider", data.User.RoleName)
	assert.Equal(t, "/delivery", data.Redirect)
	assert.Contains(t, data.User.Permissions, "order_management_delivery")

	assert.Equal(t, "access-token", cookieValue(res, "access_token"))
	durable := cookieValue(res, "session_token")
	require.NotEmpty(t, durable)

	rec, err := store.Load(context.Background(), durable)
	require.NoError(t, err)
	assert.Equal(t, "rider", rec.Role)
}

func TestLoginHonorsSafeRedirect(t *testing.T) {
	auth := &stubAuth{loginResult: riderResult()}
	router, _ := newAuthRouter(t, auth)

	res := postJSON(router, "/login", LoginRequest{Email: "rider@laundry.test", Password: "pw", Redirect: "/orders"})
	require.Equal(t, http.StatusOK, res.Code)

	var env jsonEnvelope
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &env))
	var data LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "/orders", data.Redirect)
}

func TestLoginIgnoresForbiddenRedirect(t *testing.T) {
	auth := &stubAuth{loginResult: riderResult()}
	router, _ := newAuthRouter(t, auth)

	res := postJSON(router, "/login", LoginRequest{Email: "rider@laundry.test", Password: "pw", Redirect: "/roles"})
	require.Equal(t, http.StatusOK, res.Code)

	var env jsonEnvelope
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &env))
	var data LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "/delivery", data.Redirect, "forbidden redirect target falls back to the landing route")
}

func TestLoginInvalidCredentials(t *testing.T) {
	auth := &stubAuth{loginErr: session.ErrInvalidCredentials}
	router, _ := newAuthRouter(t, auth)

	res := postJSON(router, "/login", LoginRequest{Email: "rider@laundry.test", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Empty(t, cookieValue(res, "access_token"))
}

func TestLoginRejectsBadPayload(t *testing.T) {
	router, _ := newAuthRouter(t, &stubAuth{loginResult: riderResult()})

	res := postJSON(router, "/login", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLoginRejectsOverlapForSameEmail(t *testing.T) {
	auth := &stubAuth{
		loginResult: riderResult(),
		block:       make(chan struct{}),
		entered:     make(chan struct{}, 1),
	}
	router, _ := newAuthRouter(t, auth)

	firstDone := make(chan int, 1)
	go func() {
		res := postJSON(router, "/login", LoginRequest{Email: "rider@laundry.test", Password: "pw"})
		firstDone <- res.Code
	}()

	<-auth.entered

	res := postJSON(router, "/login", LoginRequest{Email: "rider@laundry.test", Password: "pw"})
	assert.Equal(t, http.StatusConflict, res.Code)

	close(auth.block)
	assert.Equal(t, http.StatusOK, <-firstDone)
}

func TestLoginThenRefreshWithIssuedCookie(t *testing.T) {
	auth := &stubAuth{loginResult: riderResult()}
	router, store := newAuthRouter(t, auth)

	login := postJSON(router, "/login", LoginRequest{Email: "rider@laundry.test", Password: "pw"})
	require.Equal(t, http.StatusOK, login.Code)

	refresh := cookieValue(login, "refresh_token")
	require.Equal(t, "refresh-1", refresh, "login must hand the issued refresh token to the shell")

	res := postJSON(router, "/refresh", nil, &http.Cookie{Name: "refresh_token", Value: refresh})
	require.Equal(t, http.StatusOK, res.Code)

	durable := cookieValue(res, "session_token")
	require.NotEmpty(t, durable)
	_, err := store.Load(context.Background(), durable)
	assert.NoError(t, err)
	assert.Equal(t, "refresh-1", cookieValue(res, "refresh_token"))
}

func TestRefreshRotatesDurableToken(t *testing.T) {
	auth := &stubAuth{loginResult: riderResult()}
	router, store := newAuthRouter(t, auth)

	res := postJSON(router, "/refresh", RefreshRequest{RefreshToken: "refresh-1"})
	require.Equal(t, http.StatusOK, res.Code)

	durable := cookieValue(res, "session_token")
	require.NotEmpty(t, durable)
	_, err := store.Load(context.Background(), durable)
	assert.NoError(t, err)
}

func TestRefreshRejected(t *testing.T) {
	auth := &stubAuth{loginResult: riderResult()}
	router, _ := newAuthRouter(t, auth)

	res := postJSON(router, "/refresh", RefreshRequest{RefreshToken: "stale"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLogoutClearsDurableToken(t *testing.T) {
	auth := &stubAuth{loginResult: riderResult()}
	router, store := newAuthRouter(t, auth)

	login := postJSON(router, "/login", LoginRequest{Email: "rider@laundry.test", Password: "pw"})
	durable := cookieValue(login, "session_token")
	require.NotEmpty(t, durable)

	res := postJSON(router, "/logout", nil, &http.Cookie{Name: "session_token", Value: durable})
	assert.Equal(t, http.StatusOK, res.Code)

	_, err := store.Load(context.Background(), durable)
	assert.ErrorIs(t, err, session.ErrTokenNotFound)

	// Logging out again is a no-op, not an error.
	res = postJSON(router, "/logout", nil, &http.Cookie{Name: "session_token", Value: durable})
	assert.Equal(t, http.StatusOK, res.Code)
}

type stubNotifier struct {
	revoked []uuid.UUID
}

func (n *stubNotifier) NotifySessionRevoked(userID uuid.UUID) {
	n.revoked = append(n.revoked, userID)
}

func TestLogoutNotifiesOpenShells(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := &stubAuth{loginResult: riderResult()}
	store := session.NewMemoryStore()
	eval := permission.NewEvaluator(permission.DefaultTable())
	notifier := &stubNotifier{}
	h := NewAuthHandler(auth, store, eval, service.NewLoggingAuditService(nil), notifier, time.Hour, nil)

	router := gin.New()
	router.Use(middleware.Authenticate(func() *session.Manager {
		return session.NewManager(auth, store, time.Hour, nil)
	}))
	h.RegisterRoutes(router.Group(""))

	login := postJSON(router, "/login", LoginRequest{Email: "rider@laundry.test", Password: "pw"})
	require.Equal(t, http.StatusOK, login.Code)
	durable := cookieValue(login, "session_token")

	res := postJSON(router, "/logout", nil, &http.Cookie{Name: "session_token", Value: durable})
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, notifier.revoked, 1)
	assert.Equal(t, auth.loginResult.Session.UserID, notifier.revoked[0])
}

func TestMe(t *testing.T) {
	sess := riderResult().Session
	auth := &stubAuth{sessions: map[string]*model.Session{"good-token": &sess}}
	router, _ := newAuthRouter(t, auth)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "good-token"})
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var env jsonEnvelope
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &env))
	var data struct {
		User     UserInfo               `json:"user"`
		Redirect string                 `json:"redirect"`
		Menu     []permission.MenuEntry `json:"menu"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, sess.Email, data.User.Email)
	assert.Equal(t, "/delivery", data.Redirect)
	assert.NotEmpty(t, data.Menu)
}

func TestMeWithoutSession(t *testing.T) {
	router, _ := newAuthRouter(t, &stubAuth{})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}
