package model

// CartLine 报价单行
// FinalPrice 在加入时按加价规则计算一次并冻结，之后基础价修改不影响已有行
type CartLine struct {
	Product
	Key              string            `json:"key"`
	Quantity         int               `json:"quantity"`
	FinalPrice       float64           `json:"final_price"`
	SelectedVariants map[string]string `json:"selected_variants,omitempty"`
}

// LineTotal 行小计
func (l CartLine) LineTotal() float64 {
	return l.FinalPrice * float64(l.Quantity)
}
