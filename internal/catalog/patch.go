package catalog

import "obra_catalog/internal/model"

// ProductPatch 商品补丁
// 非 nil 字段覆盖原值，nil 字段保留原值；ID 不可修改
type ProductPatch struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Price       *float64         `json:"price,omitempty"`
	Image       *string          `json:"image,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	SKU         *string          `json:"sku,omitempty"`
	Dimensions  *string          `json:"dimensions,omitempty"`
	Variants    *[]model.Variant `json:"variants,omitempty"`
}

// ImagePatch 只修改图片的补丁
func ImagePatch(image string) ProductPatch {
	return ProductPatch{Image: &image}
}

// IsEmpty 补丁是否不含任何字段
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Category == nil &&
		p.Price == nil && p.Image == nil && p.Stock == nil &&
		p.SKU == nil && p.Dimensions == nil && p.Variants == nil
}

// Apply 复制 base 后写入补丁字段
func (p ProductPatch) Apply(base model.Product) model.Product {
	out := base.Clone()

	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Price != nil {
		out.Price = *p.Price
	}
	if p.Image != nil {
		out.Image = *p.Image
	}
	if p.Stock != nil {
		out.Stock = *p.Stock
	}
	if p.SKU != nil {
		out.SKU = *p.SKU
	}
	if p.Dimensions != nil {
		out.Dimensions = *p.Dimensions
	}
	if p.Variants != nil {
		vs := make([]model.Variant, len(*p.Variants))
		for i, v := range *p.Variants {
			vs[i] = v.Clone()
		}
		out.Variants = vs
	}

	return out
}
