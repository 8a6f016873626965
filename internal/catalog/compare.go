package catalog

import (
	"obra_catalog/internal/model"
	"obra_catalog/pkg/errs"
)

// MaxCompareItems 对比列表上限
const MaxCompareItems = 4

// CompareList 商品对比列表
type CompareList struct {
	items []model.Product
}

// Toggle 已在列表中则移除，否则加入；列表已满时返回 errs.ErrCompareLimit
func (c *CompareList) Toggle(p model.Product) error {
	for i, it := range c.items {
		if it.ID == p.ID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
	}
	if len(c.items) >= MaxCompareItems {
		return errs.ErrCompareLimit
	}
	c.items = append(c.items, p.Clone())
	return nil
}

// Remove 按 id 移除
func (c *CompareList) Remove(id string) {
	for i, it := range c.items {
		if it.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Items 当前对比的商品
func (c *CompareList) Items() []model.Product {
	out := make([]model.Product, len(c.items))
	copy(out, c.items)
	return out
}
