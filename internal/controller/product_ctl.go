package controller

import (
	"strings"

	"github.com/gin-gonic/gin"

	"obra_catalog/internal/api/dto"
	"obra_catalog/internal/catalog"
	"obra_catalog/internal/model"
	"obra_catalog/internal/service"
)

type ProductController struct {
	catalogService *service.CatalogService
	imageService   *service.ImageService
	aiService      *service.AIService
}

func NewProductController(catalogService *service.CatalogService, imageService *service.ImageService, aiService *service.AIService) *ProductController {
	return &ProductController{
		catalogService: catalogService,
		imageService:   imageService,
		aiService:      aiService,
	}
}

// toResp 附加展示图和默认规格下的售价
func (ctrl *ProductController) toResp(p model.Product) dto.ProductResp {
	sel := catalog.DefaultSelection(p)
	return dto.ProductResp{
		Product:          p,
		DisplayImage:     ctrl.imageService.DisplayURL(p),
		DefaultSelection: sel,
		DisplayPrice:     catalog.CalculateFinalPrice(catalog.EffectivePrice(p, sel)),
		InStock:          p.Stock > 0,
	}
}

func (ctrl *ProductController) toRespList(products []model.Product) []dto.ProductResp {
	out := make([]dto.ProductResp, 0, len(products))
	for _, p := range products {
		out = append(out, ctrl.toResp(p))
	}
	return out
}

// ==================== 查询接口 ====================

// GetProducts 商品列表
// GET /api/products?category=&q=
func (ctrl *ProductController) GetProducts(c *gin.Context) {
	products, err := ctrl.catalogService.FilterProducts(c.Request.Context(), c.Query("category"), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, ctrl.toRespList(products))
}

// GetProduct 商品详情
// GET /api/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	p, err := ctrl.catalogService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, ctrl.toResp(p))
}

// GetCategories 分类及数量
// GET /api/products/categories
func (ctrl *ProductController) GetCategories(c *gin.Context) {
	ctx := c.Request.Context()
	cats, err := ctrl.catalogService.Categories(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	counts, err := ctrl.catalogService.CategoryCounts(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, dto.CategoriesResp{Categories: cats, Counts: counts})
}

// Compare 商品对比，最多 4 件
// GET /api/products/compare?ids=A,B,C
func (ctrl *ProductController) Compare(c *gin.Context) {
	var ids []string
	for _, raw := range c.QueryArray("ids") {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	products, err := ctrl.catalogService.CompareProducts(c.Request.Context(), ids)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, ctrl.toRespList(products))
}

// ==================== 编辑接口 ====================

// SaveProduct 新建或整条保存
// POST /api/products
func (ctrl *ProductController) SaveProduct(c *gin.Context) {
	var req dto.SaveProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := ctrl.catalogService.SaveProduct(c.Request.Context(), req.ToModel())
	if err != nil {
		fail(c, err)
		return
	}
	success(c, ctrl.toResp(p))
}

// PatchProduct 局部修改
// PATCH /api/products/:id
func (ctrl *ProductController) PatchProduct(c *gin.Context) {
	var req dto.PatchProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := ctrl.catalogService.PatchProduct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, ctrl.toResp(p))
}

// ==================== 图片接口 ====================

// SetImage 设置商品图片，地址必须能访问且是图片
// PUT /api/products/:id/image
func (ctrl *ProductController) SetImage(c *gin.Context) {
	var req dto.SetImageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := ctrl.imageService.SetImageURL(c.Request.Context(), c.Param("id"), req.ImageURL)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, ctrl.toResp(p))
}

// GenerateImage AI 生成商品图
// POST /api/products/:id/image/generate
func (ctrl *ProductController) GenerateImage(c *gin.Context) {
	p, err := ctrl.imageService.GenerateForProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, ctrl.toResp(p))
}

// ==================== AI 文案 ====================

// GenerateDescription AI 生成商品描述
// POST /api/products/description/generate
func (ctrl *ProductController) GenerateDescription(c *gin.Context) {
	var req dto.GenerateDescriptionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	text, err := ctrl.aiService.GenerateDescription(c.Request.Context(), req.Name, req.Category, req.Keywords)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, dto.DescriptionResp{Description: text})
}
