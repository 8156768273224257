package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/permission"
	"backend/internal/session"
)

func newRoleRouter(t *testing.T, auth session.Authenticator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(middleware.Authenticate(func() *session.Manager {
		return session.NewManager(auth, session.NewMemoryStore(), time.Hour, nil)
	}))
	NewRoleHandler(permission.NewEvaluator(permission.DefaultTable())).RegisterRoutes(router.Group(""))
	return router
}

func TestListRolesAsAdmin(t *testing.T) {
	auth := &stubAuth{sessions: map[string]*model.Session{"admin": sessionFor(model.RoleAdmin)}}
	router := newRoleRouter(t, auth)

	res := getWithToken(router, "/api/roles", "admin")
	require.Equal(t, http.StatusOK, res.Code)

	var env jsonEnvelope
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &env))
	var roles []RoleDetail
	require.NoError(t, json.Unmarshal(env.Data, &roles))
	require.Len(t, roles, len(model.AllRoles()))

	byName := map[string]RoleDetail{}
	for _, r := range roles {
		byName[r.Role] = r
	}
	assert.Equal(t, "/delivery", byName["rider"].Landing)
	assert.Contains(t, byName["admin"].Permissions, "user_management_full")
}

func TestGetRole(t *testing.T) {
	auth := &stubAuth{sessions: map[string]*model.Session{"admin": sessionFor(model.RoleAdmin)}}
	router := newRoleRouter(t, auth)

	res := getWithToken(router, "/api/roles/customer", "admin")
	require.Equal(t, http.StatusOK, res.Code)

	var env jsonEnvelope
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &env))
	var detail RoleDetail
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "Customer", detail.Name)
	assert.Equal(t, "/customer/dashboard", detail.Landing)

	res = getWithToken(router, "/api/roles/ghost", "admin")
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestRoleRoutesRequireAdmin(t *testing.T) {
	auth := &stubAuth{sessions: map[string]*model.Session{"rider": sessionFor(model.RoleRider)}}
	router := newRoleRouter(t, auth)

	res := getWithToken(router, "/api/roles", "rider")
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = getWithToken(router, "/api/roles", "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestListPermissionsCatalog(t *testing.T) {
	auth := &stubAuth{sessions: map[string]*model.Session{"admin": sessionFor(model.RoleAdmin)}}
	router := newRoleRouter(t, auth)

	res := getWithToken(router, "/api/roles/permissions", "admin")
	require.Equal(t, http.StatusOK, res.Code)

	var env jsonEnvelope
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &env))
	var catalog []permission.Permission
	require.NoError(t, json.Unmarshal(env.Data, &catalog))
	assert.Len(t, catalog, len(permission.Catalog))
}
