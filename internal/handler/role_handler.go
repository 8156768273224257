package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/permission"
	"backend/pkg/response"
)

type RoleDetail struct {
	Role        string   `json:"role"`
	Name        string   `json:"name"`
	Landing     string   `json:"landing"`
	Permissions []string `json:"permissions"`
}

// RoleHandler serves the read-only role and permission matrix backing
// the role management screen.
type RoleHandler struct {
	eval *permission.Evaluator
}

// NewRoleHandler sets up the routing dependencies for role endpoints
func NewRoleHandler(eval *permission.Evaluator) *RoleHandler {
	return &RoleHandler{eval: eval}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	roles := router.Group("/api/roles", middleware.RequireRole(model.RoleAdmin))
	{
		roles.GET("", h.ListRoles)
		roles.GET("/permissions", h.ListPermissions)
		roles.GET("/:name", h.GetRole)
	}
}

// ListRoles returns every role with its capabilities
// @Summary      List roles
// @Description  Returns the full role matrix with landing routes and granted permissions
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]RoleDetail}
// @Failure      403  {object}  response.Response
// @Router       /api/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	out := make([]RoleDetail, 0, len(model.AllRoles()))
	for _, role := range model.AllRoles() {
		out = append(out, h.detail(role))
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, out))
}

// ListPermissions returns the permission catalog
// @Summary      List permissions
// @Description  Returns every capability the dashboard knows about, grouped by category
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]permission.Permission}
// @Failure      403  {object}  response.Response
// @Router       /api/roles/permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, permission.Catalog))
}

// GetRole returns a single role's detail
// @Summary      Get role
// @Description  Returns one role with its landing route and granted permissions
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Role name"
// @Success      200   {object}  response.Response{data=RoleDetail}
// @Failure      404   {object}  response.Response
// @Router       /api/roles/{name} [get]
func (h *RoleHandler) GetRole(c *gin.Context) {
	role, ok := model.ParseRole(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Unknown role"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.detail(role)))
}

func (h *RoleHandler) detail(role model.Role) RoleDetail {
	landing, _ := h.eval.DefaultLandingRoute(role)
	return RoleDetail{
		Role:        string(role),
		Name:        role.DisplayName(),
		Landing:     landing,
		Permissions: permission.RolePermissions(role),
	}
}
