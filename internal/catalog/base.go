package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"obra_catalog/internal/model"
	"obra_catalog/pkg/utils"
)

//go:embed base_catalog.json
var baseCatalogJSON []byte

// LoadBaseCatalog 解析内置的基础目录
// 每次调用返回新的切片，缺图的商品补上按 id 生成的预览图
func LoadBaseCatalog() ([]model.Product, error) {
	var products []model.Product
	if err := json.Unmarshal(baseCatalogJSON, &products); err != nil {
		return nil, fmt.Errorf("解析基础目录失败: %w", err)
	}

	seen := make(map[string]struct{}, len(products))
	for i := range products {
		p := &products[i]
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("基础目录 id 重复: %s", p.ID)
		}
		seen[p.ID] = struct{}{}

		if err := ValidateVariants(*p); err != nil {
			return nil, fmt.Errorf("基础目录商品 %s: %w", p.ID, err)
		}
		if p.Image == "" {
			p.Image = utils.PreviewURL(p.ID, p.Category, p.Name)
		}
	}
	return products, nil
}
