package catalog

import "math"

const (
	// MarkupThreshold 基础价达到该值后使用较低的加价率
	MarkupThreshold = 10000.0
	// HighTierRate 基础价 >= MarkupThreshold 时的加价率
	HighTierRate = 0.07
	// StandardRate 基础价 < MarkupThreshold 时的加价率
	StandardRate = 0.10
)

// CalculateFinalPrice 基础价 → 展示价
// 先按阶梯加价，再向下取整到 10 的倍数并加 9 (尾数 9 定价)，例如 5500 → 6059
// 基础价应 >= 0，负数不做保护
// 不是幂等的：对已加价的价格再调用一次会重复加价
func CalculateFinalPrice(basePrice float64) float64 {
	rate := StandardRate
	if basePrice >= MarkupThreshold {
		rate = HighTierRate
	}
	withMarkup := basePrice * (1 + rate)
	return math.Floor(withMarkup/10)*10 + 9
}
