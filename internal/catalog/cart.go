package catalog

import (
	"encoding/json"
	"fmt"

	"obra_catalog/internal/model"
	"obra_catalog/pkg/errs"
)

// Cart 报价单
// 同一商品 + 同一组规格视为同一行，重复加入只累加数量
type Cart struct {
	Lines []model.CartLine `json:"lines"`
}

// LineKey 报价单行标识：商品 id + 规格的规范化 JSON
// encoding/json 对 map 的 key 排序，nil 与空 map 得到相同的 "{}"
func LineKey(productID string, selection map[string]string) string {
	if len(selection) == 0 {
		return productID + "|{}"
	}
	b, _ := json.Marshal(selection)
	return productID + "|" + string(b)
}

// Add 加入报价单
// priceOverride 为 nil 时使用商品基础价；加价规则在每次加入时恰好计算一次
// 合并到已有行时，该行价格按本次加入重新冻结
func (c *Cart) Add(p model.Product, quantity int, selection map[string]string, priceOverride *float64) (model.CartLine, error) {
	if quantity < 1 {
		return model.CartLine{}, fmt.Errorf("%w: 数量必须 >= 1", errs.ErrValidation)
	}

	basePrice := p.Price
	if priceOverride != nil {
		basePrice = *priceOverride
	}
	finalPrice := CalculateFinalPrice(basePrice)
	key := LineKey(p.ID, selection)

	for i := range c.Lines {
		if c.Lines[i].Key != key {
			continue
		}
		c.Lines[i].Quantity += quantity
		c.Lines[i].FinalPrice = finalPrice
		return c.Lines[i], nil
	}

	line := model.CartLine{
		Product:          p.Clone(),
		Key:              key,
		Quantity:         quantity,
		FinalPrice:       finalPrice,
		SelectedVariants: copySelection(selection),
	}
	c.Lines = append(c.Lines, line)
	return line, nil
}

// UpdateQty 调整数量，减到 0 时删除该行
func (c *Cart) UpdateQty(key string, delta int) error {
	for i := range c.Lines {
		if c.Lines[i].Key != key {
			continue
		}
		qty := c.Lines[i].Quantity + delta
		if qty <= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return nil
		}
		c.Lines[i].Quantity = qty
		return nil
	}
	return fmt.Errorf("%w: %s", errs.ErrCartLineNotFound, key)
}

// Remove 删除一行
func (c *Cart) Remove(key string) error {
	for i := range c.Lines {
		if c.Lines[i].Key == key {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", errs.ErrCartLineNotFound, key)
}

// Count 商品总件数
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Subtotal 小计 (冻结价 × 数量)
func (c *Cart) Subtotal() float64 {
	sum := 0.0
	for _, l := range c.Lines {
		sum += l.LineTotal()
	}
	return sum
}

// Snapshot 深拷贝，供并发读取
func (c *Cart) Snapshot() Cart {
	out := Cart{Lines: make([]model.CartLine, len(c.Lines))}
	for i, l := range c.Lines {
		l.Product = l.Product.Clone()
		l.SelectedVariants = copySelection(l.SelectedVariants)
		out.Lines[i] = l
	}
	return out
}

func copySelection(sel map[string]string) map[string]string {
	if sel == nil {
		return nil
	}
	out := make(map[string]string, len(sel))
	for k, v := range sel {
		out[k] = v
	}
	return out
}
