package model

// Product 商品
// 基础目录、覆盖记录、用户商品共用同一结构，覆盖记录总是完整的 Product
type Product struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price" validate:"gte=0"`
	Image       string    `json:"image"`
	Stock       int       `json:"stock" validate:"gte=0"`
	SKU         string    `json:"sku,omitempty"`
	Dimensions  string    `json:"dimensions,omitempty"`
	Variants    []Variant `json:"variants,omitempty" validate:"omitempty,dive"`
}

// Variant 商品规格，例如 "Size"
// Prices 的 key 必须出现在 Options 中
type Variant struct {
	Name    string             `json:"name" validate:"required"`
	Options []string           `json:"options" validate:"min=1"`
	Prices  map[string]float64 `json:"prices,omitempty"`
}

// Clone 深拷贝，合并/打补丁时不与调用方共享切片和 map
func (p Product) Clone() Product {
	out := p
	if p.Variants != nil {
		out.Variants = make([]Variant, len(p.Variants))
		for i, v := range p.Variants {
			out.Variants[i] = v.Clone()
		}
	}
	return out
}

// Clone 深拷贝
func (v Variant) Clone() Variant {
	out := Variant{Name: v.Name}
	if v.Options != nil {
		out.Options = append([]string(nil), v.Options...)
	}
	if v.Prices != nil {
		out.Prices = make(map[string]float64, len(v.Prices))
		for k, p := range v.Prices {
			out.Prices[k] = p
		}
	}
	return out
}

// HasOption 判断选项是否存在
func (v Variant) HasOption(option string) bool {
	for _, o := range v.Options {
		if o == option {
			return true
		}
	}
	return false
}
