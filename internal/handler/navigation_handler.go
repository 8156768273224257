package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/permission"
	"backend/internal/session"
	"backend/pkg/response"
)

type EvaluateRequest struct {
	Path string `json:"path" binding:"required"`
}

type EvaluateResponse struct {
	Path     string `json:"path"`
	Allowed  bool   `json:"allowed"`
	Reason   string `json:"reason,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// NavigationHandler exposes the permission evaluator to the shell so it
// can pre-check links and build its sidebar without a page round trip.
type NavigationHandler struct {
	eval *permission.Evaluator
}

// NewNavigationHandler sets up the routing dependencies for navigation endpoints
func NewNavigationHandler(eval *permission.Evaluator) *NavigationHandler {
	return &NavigationHandler{eval: eval}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *NavigationHandler) RegisterRoutes(router *gin.RouterGroup) {
	nav := router.Group("/navigation")
	{
		nav.GET("/menu", h.Menu)
		nav.GET("/permissions", h.PagePermissions)
	}
	router.POST("/access/evaluate", h.Evaluate)
}

// Menu returns the sidebar for the current role
// @Summary      Navigation menu
// @Description  Returns the sidebar entries the current session's role may reach
// @Tags         navigation
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]permission.MenuEntry}
// @Failure      401  {object}  response.Response
// @Router       /navigation/menu [get]
func (h *NavigationHandler) Menu(c *gin.Context) {
	sess, state := middleware.SessionFromContext(c)
	if state != session.StateAuthenticated || sess == nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "No active session"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, permission.MenuForRole(h.eval, sess.Role)))
}

// PagePermissions returns the capabilities required on a page
// @Summary      Page permissions
// @Description  Lists the permission ids required by a path and whether the current role holds them
// @Tags         navigation
// @Produce      json
// @Security     BearerAuth
// @Param        path  query  string  true  "Page path"
// @Success      200  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Router       /navigation/permissions [get]
func (h *NavigationHandler) PagePermissions(c *gin.Context) {
	p := c.Query("path")
	if p == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Missing path query parameter"))
		return
	}

	role := model.Role("")
	if sess, state := middleware.SessionFromContext(c); state == session.StateAuthenticated && sess != nil {
		role = sess.Role
	}

	perms := permission.PagePermissions(p)
	if perms == nil {
		perms = []string{}
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"path":        p,
		"page":        permission.PageForPath(p),
		"permissions": perms,
		"granted":     permission.HasAllPermissions(role, perms...),
	}))
}

// Evaluate pre-checks a navigation target
// @Summary      Evaluate access
// @Description  Runs the access decision for a path under the current session without navigating
// @Tags         navigation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      EvaluateRequest  true  "Target Path"
// @Success      200      {object}  response.Response{data=EvaluateResponse}
// @Failure      400      {object}  response.Response
// @Router       /access/evaluate [post]
func (h *NavigationHandler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	role := model.Role("")
	if sess, state := middleware.SessionFromContext(c); state == session.StateAuthenticated && sess != nil {
		role = sess.Role
	}

	d := h.eval.Decide(role, req.Path)
	res := EvaluateResponse{
		Path:     h.eval.ResolvePath(role, req.Path),
		Allowed:  d.Allowed,
		Reason:   d.Reason,
		Redirect: d.Redirect,
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
