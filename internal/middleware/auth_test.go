package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/model"
	"backend/internal/permission"
	"backend/internal/session"
)

type stubAuth struct {
	sessions map[string]*model.Session
}

func (s *stubAuth) Login(context.Context, string, string) (*session.LoginResult, error) {
	return nil, errors.New("not used")
}

func (s *stubAuth) Refresh(context.Context, string) (*session.LoginResult, error) {
	return nil, errors.New("not used")
}

func (s *stubAuth) Logout(context.Context, string) error { return nil }

func (s *stubAuth) Validate(token string) (*model.Session, error) {
	if sess, ok := s.sessions[token]; ok {
		out := *sess
		return &out, nil
	}
	return nil, errors.New("bad token")
}

func activeSession(role model.Role) *model.Session {
	return &model.Session{
		UserID:    uuid.New(),
		Email:     "user@laundry.test",
		Role:      role,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func newAuthedRouter(auth session.Authenticator, store session.TokenStore, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if store == nil {
		store = session.NewMemoryStore()
	}
	router := gin.New()
	router.Use(Authenticate(func() *session.Manager {
		return session.NewManager(auth, store, time.Hour, nil)
	}))
	handlers := append(extra, func(c *gin.Context) {
		sess, state := SessionFromContext(c)
		out := gin.H{"state": state.String()}
		if sess != nil {
			out["role"] = string(sess.Role)
		}
		c.JSON(http.StatusOK, out)
	})
	router.GET("/whoami", handlers...)
	return router
}

func TestExtractAccessToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.AddCookie(&http.Cookie{Name: "access_token", Value: "from-cookie"})
	c.Request.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-cookie", ExtractAccessToken(c))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", ExtractAccessToken(c))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Authorization", "Basic abc123")
	assert.Empty(t, ExtractAccessToken(c))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, ExtractAccessToken(c))
}

func TestAuthenticateWithAccessToken(t *testing.T) {
	auth := &stubAuth{sessions: map[string]*model.Session{"good": activeSession(model.RoleAdmin)}}
	router := newAuthedRouter(auth, nil)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "good"})
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Contains(t, res.Body.String(), `"state":"authenticated"`)
	assert.Contains(t, res.Body.String(), `"role":"admin"`)
}

func TestAuthenticateFallsBackToDurableToken(t *testing.T) {
	store := session.NewMemoryStore()
	raw, rec, secret, err := session.MintToken(*activeSession(model.RoleCustomer), time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), rec, secret))

	router := newAuthedRouter(&stubAuth{}, store)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "expired-or-bad"})
	req.AddCookie(&http.Cookie{Name: "session_token", Value: raw})
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Contains(t, res.Body.String(), `"state":"authenticated"`)
	assert.Contains(t, res.Body.String(), `"role":"customer"`)
}

func TestAuthenticateWithoutCredentialsIsAnonymous(t *testing.T) {
	router := newAuthedRouter(&stubAuth{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Contains(t, res.Body.String(), `"state":"anonymous"`)
}

func TestRequireRole(t *testing.T) {
	auth := &stubAuth{sessions: map[string]*model.Session{
		"admin": activeSession(model.RoleAdmin),
		"rider": activeSession(model.RoleRider),
	}}
	router := newAuthedRouter(auth, nil, RequireRole(model.RoleAdmin, model.RoleBranchManager))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "admin"})
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "rider"})
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusForbidden, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRequirePermission(t *testing.T) {
	auth := &stubAuth{sessions: map[string]*model.Session{
		"acct":  activeSession(model.RoleAccountant),
		"rider": activeSession(model.RoleRider),
	}}
	router := newAuthedRouter(auth, nil, RequirePermission(permission.PermAccountingFull))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "acct"})
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "rider"})
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), permission.ReasonInsufficientPermissions)
}

func TestManagerFromContext(t *testing.T) {
	router := newAuthedRouter(&stubAuth{}, nil, func(c *gin.Context) {
		assert.NotNil(t, ManagerFromContext(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)
}
