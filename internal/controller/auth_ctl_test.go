package controller

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obra_catalog/internal/api/dto"
	"obra_catalog/internal/middleware"
)

func setupAuthRouter(env *testEnv) *gin.Engine {
	r := gin.New()
	authCtl := NewAuthController(env.authSvc)
	productCtl := NewProductController(env.catalogSvc, env.imageSvc, env.aiSvc)

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authCtl.Login)
		auth.POST("/refresh", authCtl.Refresh)
	}
	r.PATCH("/api/products/:id", middleware.JWTAuth(env.tokens), productCtl.PatchProduct)
	return r
}

func TestAuthController_LoginThenWrite(t *testing.T) {
	r := setupAuthRouter(newTestEnv(t, nil))

	w := performRequest(r, http.MethodPatch, "/api/products/T2", map[string]interface{}{"stock": 8})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(r, http.MethodPost, "/api/auth/login", map[string]interface{}{"username": "admin", "password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login dto.LoginResp
	decode(t, w, &login)
	require.NotEmpty(t, login.AccessToken)
	assert.Equal(t, "admin", login.User.Username)

	w = performAuthRequest(r, http.MethodPatch, "/api/products/T2", login.AccessToken, map[string]interface{}{"stock": 8})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var patched dto.ProductResp
	decode(t, w, &patched)
	assert.True(t, patched.InStock)

	// Refresh Token 不能直接访问写接口
	w = performAuthRequest(r, http.MethodPatch, "/api/products/T2", login.RefreshToken, map[string]interface{}{"stock": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(r, http.MethodPost, "/api/auth/refresh", map[string]interface{}{"refresh_token": login.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var refreshed dto.LoginResp
	decode(t, w, &refreshed)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestAuthController_LoginErrors(t *testing.T) {
	r := setupAuthRouter(newTestEnv(t, nil))

	w := performRequest(r, http.MethodPost, "/api/auth/login", map[string]interface{}{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(r, http.MethodPost, "/api/auth/login", map[string]interface{}{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodPost, "/api/auth/refresh", map[string]interface{}{"refresh_token": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
