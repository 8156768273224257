package guard

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/permission"
	"backend/internal/session"
	"backend/pkg/response"
)

// Mode selects what happens on a denied navigation.
type Mode int

const (
	// ModeRedirect silently redirects to the role's default landing route.
	ModeRedirect Mode = iota
	// ModeFallback renders the denial view with the auto-redirect contract.
	ModeFallback
)

// Recorder receives access-control events worth auditing.
type Recorder interface {
	RecordDenied(ctx context.Context, sess *model.Session, path, reason string)
	RecordUnknownRole(ctx context.Context, sess *model.Session, path string)
}

// Gin context keys set on authorized renders.
const (
	ctxDecisionKey = "guardDecision"
	ctxMenuKey     = "guardMenu"
)

// RouteGuard gates rendering of every protected view. Each navigation
// walks the same state machine: restoring session → loading; no
// session → login redirect with the requested path preserved; session
// present → evaluate; denial → redirect or fallback view; success →
// render with the role-filtered menu attached.
type RouteGuard struct {
	eval   *permission.Evaluator
	audit  Recorder
	logger *zap.Logger

	// decide is eval.Decide unless a test swaps it out.
	decide func(model.Role, string) permission.Decision
}

// New builds a RouteGuard. audit may be nil.
func New(eval *permission.Evaluator, audit Recorder, logger *zap.Logger) *RouteGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &RouteGuard{eval: eval, audit: audit, logger: logger}
	g.decide = eval.Decide
	return g
}

// Protect returns the gin middleware gating a protected route group.
func (g *RouteGuard) Protect(mode Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, state := middleware.SessionFromContext(c)
		path := c.Request.URL.Path

		switch state {
		case session.StateRestoring:
			// No access decision before restoration completes.
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				response.Success(http.StatusServiceUnavailable, gin.H{"state": "loading"}))
			return

		case session.StateAnonymous:
			g.redirectToLogin(c, path)
			return
		}

		role := model.Role("")
		if sess != nil {
			role = sess.Role
		}

		decision := g.safeDecide(role, path)
		if decision.Err != nil {
			// Unknown role in a valid session is a configuration bug:
			// log it, audit it, fail closed to login.
			g.logger.Error("unknown role in session",
				zap.String("role", string(role)),
				zap.String("path", path),
				zap.Error(decision.Err))
			if g.audit != nil {
				g.audit.RecordUnknownRole(c.Request.Context(), sess, path)
			}
			g.redirectToLogin(c, path)
			return
		}

		if !decision.Allowed {
			if g.audit != nil {
				g.audit.RecordDenied(c.Request.Context(), sess, path, decision.Reason)
			}
			g.deny(c, sess, path, decision, mode)
			return
		}

		c.Set(ctxDecisionKey, decision)
		c.Set(ctxMenuKey, permission.MenuForRole(g.eval, role))
		c.Next()
	}
}

// safeDecide never lets an evaluation failure grant access: a panic
// while computing the decision yields a denial.
func (g *RouteGuard) safeDecide(role model.Role, path string) (d permission.Decision) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("access evaluation panicked",
				zap.Any("panic", r),
				zap.String("path", path))
			d = permission.Decision{
				Redirect: permission.LoginPath,
				Reason:   permission.ReasonPageAccessDenied,
			}
		}
	}()
	return g.decide(role, path)
}

func (g *RouteGuard) redirectToLogin(c *gin.Context, requested string) {
	target := permission.LoginPath
	if requested != "" && requested != permission.LoginPath {
		target += "?redirect=" + url.QueryEscape(requested)
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		response.Denied(http.StatusUnauthorized, "", target, nil))
}

func (g *RouteGuard) deny(c *gin.Context, sess *model.Session, path string, d permission.Decision, mode Mode) {
	if mode == ModeRedirect {
		c.AbortWithStatusJSON(http.StatusForbidden,
			response.Denied(http.StatusForbidden, d.Reason, d.Redirect, nil))
		return
	}

	view := PermissionDeniedView(sess, path, d)
	c.Header("Refresh", view.RefreshHeader())
	c.AbortWithStatusJSON(http.StatusForbidden,
		response.Denied(http.StatusForbidden, d.Reason, d.Redirect, view))
}

// MenuFromContext returns the role-filtered menu attached by Protect.
func MenuFromContext(c *gin.Context) []permission.MenuEntry {
	if v, ok := c.Get(ctxMenuKey); ok {
		if menu, ok := v.([]permission.MenuEntry); ok {
			return menu
		}
	}
	return nil
}
