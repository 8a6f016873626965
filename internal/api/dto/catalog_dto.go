package dto

import (
	"obra_catalog/internal/catalog"
	"obra_catalog/internal/model"
)

// ==================== 请求 DTO ====================

// SaveProductReq 新建 / 整条保存商品
// id 为空时由服务端生成；基础目录中的 id 保存为覆盖记录
type SaveProductReq struct {
	ID          string          `json:"id"`
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       float64         `json:"price" binding:"gte=0"`
	Image       string          `json:"image"`
	Stock       int             `json:"stock" binding:"gte=0"`
	SKU         string          `json:"sku"`
	Dimensions  string          `json:"dimensions"`
	Variants    []model.Variant `json:"variants"`
}

// ToModel 转为商品
func (r SaveProductReq) ToModel() model.Product {
	return model.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Price:       r.Price,
		Image:       r.Image,
		Stock:       r.Stock,
		SKU:         r.SKU,
		Dimensions:  r.Dimensions,
		Variants:    r.Variants,
	}
}

// PatchProductReq 局部修改，只传需要修改的字段
type PatchProductReq = catalog.ProductPatch

// SetImageReq 设置商品图片 (http 地址或 data URI)
type SetImageReq struct {
	ImageURL string `json:"image_url" binding:"required"`
}

// GenerateDescriptionReq AI 生成商品描述
type GenerateDescriptionReq struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
	Keywords string `json:"keywords"`
}

// ==================== 响应 DTO ====================

// ProductResp 商品 + 展示信息
type ProductResp struct {
	model.Product
	DisplayImage     string            `json:"display_image"`
	DefaultSelection map[string]string `json:"default_selection,omitempty"`
	DisplayPrice     float64           `json:"display_price"` // 默认规格下的含加价售价
	InStock          bool              `json:"in_stock"`
}

// CategoriesResp 分类列表
type CategoriesResp struct {
	Categories []string                `json:"categories"`
	Counts     []catalog.CategoryCount `json:"counts"`
}

// DescriptionResp 生成的描述
type DescriptionResp struct {
	Description string `json:"description"`
}
