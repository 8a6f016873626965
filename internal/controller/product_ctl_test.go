package controller

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obra_catalog/internal/api/dto"
)

func setupProductRouter(env *testEnv) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	ctl := NewProductController(env.catalogSvc, env.imageSvc, env.aiSvc)
	products := r.Group("/api/products")
	{
		products.GET("", ctl.GetProducts)
		products.POST("", ctl.SaveProduct)
		products.GET("/categories", ctl.GetCategories)
		products.GET("/compare", ctl.Compare)
		products.POST("/description/generate", ctl.GenerateDescription)
		products.GET("/:id", ctl.GetProduct)
		products.PATCH("/:id", ctl.PatchProduct)
		products.PUT("/:id/image", ctl.SetImage)
		products.POST("/:id/image/generate", ctl.GenerateImage)
	}
	return r
}

func TestProductController_GetList(t *testing.T) {
	r := setupProductRouter(newTestEnv(t, nil))

	w := performRequest(r, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []dto.ProductResp
	resp := decode(t, w, &list)
	assert.Equal(t, 0, resp.Code)
	require.Len(t, list, 3)

	assert.Equal(t, 26759.0, list[0].DisplayPrice)
	assert.True(t, list[0].InStock)
	assert.False(t, list[1].InStock)
	assert.Contains(t, list[1].DisplayImage, "placehold.co", "无图商品使用占位图")
	assert.Equal(t, "1.6m", list[2].DefaultSelection["Size"])
	assert.Equal(t, 22029.0, list[2].DisplayPrice)

	w = performRequest(r, http.MethodGet, "/api/products?category=Office%20Table&q=desk", nil)
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "T1", list[0].ID)
}

func TestProductController_GetDetail(t *testing.T) {
	r := setupProductRouter(newTestEnv(t, nil))

	w := performRequest(r, http.MethodGet, "/api/products/D1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodGet, "/api/products/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decode(t, w, nil)
	assert.Equal(t, 404, resp.Code)
}

func TestProductController_Categories(t *testing.T) {
	r := setupProductRouter(newTestEnv(t, nil))

	w := performRequest(r, http.MethodGet, "/api/products/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cats dto.CategoriesResp
	decode(t, w, &cats)
	assert.Equal(t, []string{"All", "Office Table", "Office Chair", "Executive Table"}, cats.Categories)
	assert.Len(t, cats.Counts, 3)
}

func TestProductController_SaveAndPatch(t *testing.T) {
	env := newTestEnv(t, nil)
	r := setupProductRouter(env)

	w := performRequest(r, http.MethodPost, "/api/products", map[string]interface{}{
		"name":     "Mobile Pedestal",
		"category": "Cabinet & Storage",
		"price":    4500,
		"stock":    3,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var saved dto.ProductResp
	decode(t, w, &saved)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 4959.0, saved.DisplayPrice)

	w = performRequest(r, http.MethodPatch, "/api/products/"+saved.ID, map[string]interface{}{"price": 5000})
	require.Equal(t, http.StatusOK, w.Code)
	var patched dto.ProductResp
	decode(t, w, &patched)
	assert.Equal(t, 5000.0, patched.Price)
	assert.Equal(t, "Mobile Pedestal", patched.Name)

	// 基础商品打补丁
	w = performRequest(r, http.MethodPatch, "/api/products/T2", map[string]interface{}{"stock": 8})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &patched)
	assert.True(t, patched.InStock)
}

func TestProductController_SaveErrors(t *testing.T) {
	r := setupProductRouter(newTestEnv(t, nil))

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"缺少名称", http.MethodPost, "/api/products", map[string]interface{}{"price": 10}, http.StatusBadRequest},
		{"负价格", http.MethodPost, "/api/products", map[string]interface{}{"name": "x", "price": -1}, http.StatusBadRequest},
		{"规格价格无效", http.MethodPost, "/api/products", map[string]interface{}{
			"name": "x", "price": 1,
			"variants": []map[string]interface{}{{"name": "Size", "options": []string{"S"}, "prices": map[string]float64{"XL": 2}}},
		}, http.StatusBadRequest},
		{"空补丁", http.MethodPatch, "/api/products/T1", map[string]interface{}{}, http.StatusBadRequest},
		{"补丁商品不存在", http.MethodPatch, "/api/products/NOPE", map[string]interface{}{"name": "x"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestProductController_Compare(t *testing.T) {
	r := setupProductRouter(newTestEnv(t, nil))

	w := performRequest(r, http.MethodGet, "/api/products/compare?ids=D1,T1&ids=T2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []dto.ProductResp
	decode(t, w, &list)
	require.Len(t, list, 3)
	assert.Equal(t, "D1", list[0].ID)

	w = performRequest(r, http.MethodGet, "/api/products/compare?ids=T1,NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductController_AI(t *testing.T) {
	env := newTestEnv(t, &stubBackend{text: "A commanding desk for decisive leaders."})
	r := setupProductRouter(env)

	w := performRequest(r, http.MethodPost, "/api/products/description/generate", map[string]interface{}{
		"name": "Executive Desk", "category": "Office Table", "keywords": "walnut",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var desc dto.DescriptionResp
	decode(t, w, &desc)
	assert.Equal(t, "A commanding desk for decisive leaders.", desc.Description)

	w = performRequest(r, http.MethodPost, "/api/products/T2/image/generate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p dto.ProductResp
	decode(t, w, &p)
	assert.Contains(t, p.Image, "http://localhost:8080/uploads/")
	assert.Equal(t, p.Image, p.DisplayImage)
}

func TestProductController_AIUnavailable(t *testing.T) {
	r := setupProductRouter(newTestEnv(t, nil))

	w := performRequest(r, http.MethodPost, "/api/products/description/generate", map[string]interface{}{"name": "Desk"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = performRequest(r, http.MethodPost, "/api/products/T2/image/generate", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = performRequest(r, http.MethodPut, "/api/products/T2/image", map[string]interface{}{"image_url": "data:text/plain;base64,aGk="})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
