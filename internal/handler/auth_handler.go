package handler

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/permission"
	"backend/internal/service"
	"backend/internal/session"
	"backend/pkg/response"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	// Redirect is the path the shell wanted before it was sent to
	// login. Only honored if the resolved role may access it.
	Redirect string `json:"redirect"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LoginResponse struct {
	User        UserInfo `json:"user"`
	Redirect    string   `json:"redirect"`
	AccessToken string   `json:"access_token"`
}

type UserInfo struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	RoleName    string   `json:"role_name"`
	Permissions []string `json:"permissions"`
}

// SessionNotifier pushes session lifecycle events to a user's open
// navigation shells. The websocket hub implements it.
type SessionNotifier interface {
	NotifySessionRevoked(userID uuid.UUID)
}

// AuthHandler owns the session endpoints: login, refresh, logout, me.
type AuthHandler struct {
	auth     session.Authenticator
	store    session.TokenStore
	eval     *permission.Evaluator
	audit    service.AuditService
	notifier SessionNotifier
	ttl      time.Duration
	logger   *zap.Logger

	// One login may be in flight per email at a time. A second attempt
	// while the first is pending is rejected, not queued.
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewAuthHandler sets up the routing dependencies for auth endpoints
func NewAuthHandler(auth session.Authenticator, store session.TokenStore, eval *permission.Evaluator, audit service.AuditService, notifier SessionNotifier, ttl time.Duration, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		auth:     auth,
		store:    store,
		eval:     eval,
		audit:    audit,
		notifier: notifier,
		ttl:      ttl,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/login", h.Login)
	router.POST("/refresh", h.Refresh)
	router.POST("/logout", h.Logout)
	router.GET("/me", h.Me)
}

func (h *AuthHandler) acquireLogin(email string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, busy := h.inFlight[email]; busy {
		return false
	}
	h.inFlight[email] = struct{}{}
	return true
}

func (h *AuthHandler) releaseLogin(email string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.inFlight, email)
}

// Login authenticates against the auth service and opens a session
// @Summary      Login user
// @Description  Verifies credentials, persists a durable session token and returns the role's landing route
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=LoginResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	if !h.acquireLogin(req.Email) {
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, session.ErrLoginInProgress.Error()))
		return
	}
	defer h.releaseLogin(req.Email)

	mgr := middleware.ManagerFromContext(c)
	if mgr == nil {
		mgr = session.NewManager(h.auth, h.store, h.ttl, h.logger)
	}

	sess, durable, err := mgr.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.audit.RecordLoginFailed(c.Request.Context(), req.Email)
		switch {
		case errors.Is(err, session.ErrLoginInProgress):
			c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
		case errors.Is(err, session.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid email or password"))
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, response.Error(http.StatusBadGateway, "Authentication service unavailable"))
		}
		return
	}

	h.audit.RecordLogin(c.Request.Context(), sess)
	middleware.SetTokenCookies(c, mgr.AccessToken(), mgr.RefreshToken(), durable)

	c.JSON(http.StatusOK, response.Success(http.StatusOK, LoginResponse{
		User:        userInfo(sess),
		Redirect:    h.postLoginRedirect(sess.Role, req.Redirect),
		AccessToken: mgr.AccessToken(),
	}))
}

// postLoginRedirect honors the requested return path only when the role
// is actually allowed there; everything else lands on the role's home.
func (h *AuthHandler) postLoginRedirect(role model.Role, requested string) string {
	if requested != "" && !h.eval.IsPublic(requested) {
		resolved := h.eval.ResolvePath(role, requested)
		if h.eval.CanAccess(role, resolved) {
			return resolved
		}
	}
	home, err := h.eval.DefaultLandingRoute(role)
	if err != nil {
		return permission.LoginPath
	}
	return home
}

// Refresh exchanges a refresh token for a new session
// @Summary      Refresh session
// @Description  Issues a new access token and rotates the durable session token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      RefreshRequest  true  "Refresh Token"
// @Success      200      {object}  response.Response{data=LoginResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	// Try reading refresh_token from cookie first, fallback to body
	refreshToken, cookieErr := c.Cookie("refresh_token")
	if cookieErr != nil || refreshToken == "" {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
			return
		}
		refreshToken = req.RefreshToken
	}

	res, err := h.auth.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Refresh token rejected"))
		return
	}

	// Rotate the durable token so reload survival tracks the new session.
	durable, rec, secret, err := session.MintToken(res.Session, h.ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to persist session"))
		return
	}
	if err := h.store.Save(c.Request.Context(), rec, secret); err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to persist session"))
		return
	}

	middleware.SetTokenCookies(c, res.AccessToken, res.RefreshToken, durable)
	sess := res.Session
	c.JSON(http.StatusOK, response.Success(http.StatusOK, LoginResponse{
		User:        userInfo(&sess),
		Redirect:    h.postLoginRedirect(sess.Role, ""),
		AccessToken: res.AccessToken,
	}))
}

// Logout closes the session
// @Summary      Logout
// @Description  Clears the session, the persisted token and the auth cookies. Safe to call twice.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)
	if mgr := middleware.ManagerFromContext(c); mgr != nil {
		if err := mgr.Logout(c.Request.Context()); err != nil {
			h.logger.Warn("logout cleanup", zap.Error(err))
		}
	}
	middleware.ClearTokenCookies(c)
	if sess != nil {
		h.audit.RecordLogout(c.Request.Context(), sess)
		if h.notifier != nil {
			// Other open tabs of this user drop to login together.
			h.notifier.NotifySessionRevoked(sess.UserID)
		}
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"redirect": permission.LoginPath}))
}

// Me returns the resolved session
// @Summary      Get current user
// @Description  Returns the authenticated user together with role permissions and landing route
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=UserInfo}
// @Failure      401  {object}  response.Response
// @Router       /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	sess, state := middleware.SessionFromContext(c)
	if state != session.StateAuthenticated || sess == nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "No active session"))
		return
	}

	home, _ := h.eval.DefaultLandingRoute(sess.Role)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"user":     userInfo(sess),
		"redirect": home,
		"menu":     permission.MenuForRole(h.eval, sess.Role),
	}))
}

func userInfo(sess *model.Session) UserInfo {
	perms := permission.RolePermissions(sess.Role)
	if perms == nil {
		perms = []string{}
	}
	return UserInfo{
		ID:          sess.UserID.String(),
		Email:       sess.Email,
		Name:        sess.DisplayName(),
		Role:        string(sess.Role),
		RoleName:    sess.Role.DisplayName(),
		Permissions: perms,
	}
}
