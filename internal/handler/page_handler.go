package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"backend/internal/guard"
	"backend/internal/middleware"
	"backend/internal/permission"
	"backend/pkg/response"
)

// PageDescriptor is what the navigation shell renders for a protected
// page: which view to mount plus the role-filtered sidebar.
type PageDescriptor struct {
	Page        string                 `json:"page"`
	Title       string                 `json:"title"`
	Path        string                 `json:"path"`
	Role        string                 `json:"role"`
	Menu        []permission.MenuEntry `json:"menu"`
	Permissions []string               `json:"permissions"`
}

// pageDefs lists every protected page route served by the shell.
// Prefix routes take a wildcard so nested paths hit the same guard.
var pageDefs = []struct {
	Path  string
	Title string
}{
	{"/dashboard", "Dashboard"},
	{"/branch", "Branch Management"},
	{"/branch-manager", "Branch Managers"},
	{"/orders", "Order Management"},
	{"/place-orders", "Place Orders"},
	{"/income", "Income Tracking"},
	{"/expenses", "Expense Tracking"},
	{"/clients", "Client Management"},
	{"/payments", "Payment Management"},
	{"/roles", "Role Management"},
	{"/backup-export", "Backup & Export"},
	{"/delivery", "Delivery Dashboard"},
	{"/profile", "Profile"},
	{"/customer/dashboard", "My Dashboard"},
	{"/customer/orders", "My Orders"},
	{"/customer/profile", "My Profile"},
	{"/customer/place-order", "Place Order"},
	{"/customer/payment", "Payment"},
	{"/customer/payment-history", "Payment History"},
}

// PageHandler serves the protected page descriptors and the public
// unauthorized view.
type PageHandler struct {
	eval  *permission.Evaluator
	guard *guard.RouteGuard
}

// NewPageHandler sets up the routing dependencies for page endpoints
func NewPageHandler(eval *permission.Evaluator, g *guard.RouteGuard) *PageHandler {
	return &PageHandler{eval: eval, guard: g}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *PageHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/unauthorized", h.Unauthorized)

	protect := h.guard.Protect(guard.ModeFallback)
	for _, def := range pageDefs {
		router.GET(def.Path, protect, h.Page)
		router.GET(def.Path+"/*rest", protect, h.Page)
	}
}

// Page renders the descriptor for a guarded route
// @Summary      Protected page descriptor
// @Description  Returns page id, title and role-filtered menu for a route the session may access
// @Tags         pages
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=PageDescriptor}
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /dashboard [get]
func (h *PageHandler) Page(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)
	path := c.Request.URL.Path

	perms := permission.PagePermissions(path)
	if perms == nil {
		perms = []string{}
	}

	desc := PageDescriptor{
		Page:        permission.PageForPath(path),
		Title:       pageTitle(path),
		Path:        path,
		Menu:        guard.MenuFromContext(c),
		Permissions: perms,
	}
	if sess != nil {
		desc.Role = string(sess.Role)
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, desc))
}

// Unauthorized renders the access-denied view for any visitor
// @Summary      Unauthorized view
// @Description  Public denial page with reason, recovery actions and the 5s auto-redirect target
// @Tags         pages
// @Produce      json
// @Param        reason         query  string  false  "Denial reason code"
// @Param        action         query  string  false  "What the visitor tried to do"
// @Param        required_role  query  string  false  "Role the page requires"
// @Param        required       query  string  false  "Comma separated required permissions"
// @Success      200  {object}  response.Response{data=guard.FallbackView}
// @Router       /unauthorized [get]
func (h *PageHandler) Unauthorized(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)

	home := permission.LoginPath
	if sess != nil {
		if landing, err := h.eval.DefaultLandingRoute(sess.Role); err == nil {
			home = landing
		}
	}

	view := guard.UnauthorizedView(sess, home, guard.UnauthorizedParams{
		Action:              c.Query("action"),
		Reason:              c.Query("reason"),
		RequiredRole:        c.Query("required_role"),
		RequiredPermissions: c.Query("required"),
	})
	c.Header("Refresh", view.RefreshHeader())
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

func pageTitle(p string) string {
	best := ""
	title := "Dashboard"
	for _, def := range pageDefs {
		if (p == def.Path || strings.HasPrefix(p, def.Path+"/")) && len(def.Path) > len(best) {
			best = def.Path
			title = def.Title
		}
	}
	return title
}
