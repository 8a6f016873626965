package catalog

import (
	"fmt"

	"obra_catalog/internal/model"
	"obra_catalog/pkg/errs"
)

// DefaultSelection 每个规格默认选中第一个选项
func DefaultSelection(p model.Product) map[string]string {
	if len(p.Variants) == 0 {
		return nil
	}
	sel := make(map[string]string, len(p.Variants))
	for _, v := range p.Variants {
		if len(v.Options) > 0 {
			sel[v.Name] = v.Options[0]
		}
	}
	return sel
}

// EffectivePrice 根据选中的规格得到实际基础价
// 选中选项在 Prices 中有价格时覆盖当前价格，多个规格都有价格时后面的规格生效
func EffectivePrice(p model.Product, selection map[string]string) float64 {
	price := p.Price
	for _, v := range p.Variants {
		opt, ok := selection[v.Name]
		if !ok {
			continue
		}
		if vp, ok := v.Prices[opt]; ok {
			price = vp
		}
	}
	return price
}

// ValidateVariants 校验规格不变量：选项非空，价格表的 key 必须是选项之一
func ValidateVariants(p model.Product) error {
	for _, v := range p.Variants {
		if len(v.Options) == 0 {
			return fmt.Errorf("%w: 规格 %q 没有可选项", errs.ErrValidation, v.Name)
		}
		for opt := range v.Prices {
			if !v.HasOption(opt) {
				return fmt.Errorf("%w: 规格 %q 的价格项 %q 不在选项中", errs.ErrValidation, v.Name, opt)
			}
		}
	}
	return nil
}

// ValidateSelection 校验选中的规格与选项都存在
func ValidateSelection(p model.Product, selection map[string]string) error {
	for name, opt := range selection {
		found := false
		for _, v := range p.Variants {
			if v.Name != name {
				continue
			}
			found = true
			if !v.HasOption(opt) {
				return fmt.Errorf("%w: 规格 %q 没有选项 %q", errs.ErrValidation, name, opt)
			}
		}
		if !found {
			return fmt.Errorf("%w: 商品 %s 没有规格 %q", errs.ErrValidation, p.ID, name)
		}
	}
	return nil
}
