package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"backend/internal/model"
	"backend/internal/permission"
	"backend/internal/session"
	"backend/pkg/response"
)

// Gin context keys set by Authenticate.
const (
	ctxSessionKey = "authSession"
	ctxStateKey   = "authState"
	ctxManagerKey = "authManager"
)

func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // Development fallback only, not for production
	}
	return []byte(secret)
}

// SetTokenCookies sets access_token, refresh_token and session_token
// as HttpOnly cookies
func SetTokenCookies(c *gin.Context, accessToken, refreshToken, sessionToken string) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" || os.Getenv("RENDER") != "" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	// access_token: 24h, path=/, domain="", secure, HttpOnly
	c.SetCookie("access_token", accessToken, 3600*24, "/", "", secure, true)
	// refresh_token: 7 days, read back by POST /refresh
	if refreshToken != "" {
		c.SetCookie("refresh_token", refreshToken, 3600*24*7, "/", "", secure, true)
	}
	// session_token: 7 days, survives reloads via the token store
	c.SetCookie("session_token", sessionToken, 3600*24*7, "/", "", secure, true)
}

// ClearTokenCookies removes all auth cookies
func ClearTokenCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" || os.Getenv("RENDER") != "" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", secure, true)
	c.SetCookie("session_token", "", -1, "/", "", secure, true)
}

// ExtractAccessToken pulls the bearer token from the access_token
// cookie, falling back to the Authorization header.
func ExtractAccessToken(c *gin.Context) string {
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// ManagerFactory builds a fresh session manager for a request.
type ManagerFactory func() *session.Manager

// Authenticate resolves the session for every request before any
// access decision runs. It tries the access token first, then the
// durable session token from the store, and always completes the
// restore step: downstream guards never observe the restoring state
// unless restoration is genuinely still in flight.
func Authenticate(newManager ManagerFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		mgr := newManager()

		state := session.StateAnonymous
		if token := ExtractAccessToken(c); token != "" {
			state = mgr.RestoreAccess(token)
		}
		if state != session.StateAuthenticated {
			if durable, err := c.Cookie("session_token"); err == nil && durable != "" {
				state = mgr.RestoreDurable(c.Request.Context(), durable)
			}
		}

		c.Set(ctxStateKey, state)
		c.Set(ctxManagerKey, mgr)
		if sess := mgr.Current(); sess != nil {
			c.Set(ctxSessionKey, sess)
		}
		c.Next()
	}
}

// ManagerFromContext returns the per-request session manager set by
// Authenticate, or nil outside of it.
func ManagerFromContext(c *gin.Context) *session.Manager {
	if v, ok := c.Get(ctxManagerKey); ok {
		if mgr, ok := v.(*session.Manager); ok {
			return mgr
		}
	}
	return nil
}

// SessionFromContext returns the resolved session and lifecycle state.
func SessionFromContext(c *gin.Context) (*model.Session, session.State) {
	state := session.StateRestoring
	if v, ok := c.Get(ctxStateKey); ok {
		if s, ok := v.(session.State); ok {
			state = s
		}
	}
	if v, ok := c.Get(ctxSessionKey); ok {
		if sess, ok := v.(*model.Session); ok {
			return sess, state
		}
	}
	return nil, state
}

// RequireRole aborts unless the resolved session carries one of the
// allowed roles.
func RequireRole(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, state := SessionFromContext(c)
		if state != session.StateAuthenticated || sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		for _, role := range allowedRoles {
			if sess.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// RequirePermission aborts unless the session role holds at least one
// of the required capability ids from the static catalog.
func RequirePermission(requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, state := SessionFromContext(c)
		if state != session.StateAuthenticated || sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		if !permission.HasAnyPermission(sess.Role, requiredPerms...) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				response.Denied(http.StatusForbidden, permission.ReasonInsufficientPermissions, "", nil))
			return
		}
		c.Next()
	}
}
