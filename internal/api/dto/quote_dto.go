package dto

// ==================== 报价单 ====================

// AddCartItemReq 加入报价单
// quantity 省略时为 1；selected_variants 省略时每个规格取第一个选项
type AddCartItemReq struct {
	ProductID        string            `json:"product_id" binding:"required"`
	Quantity         int               `json:"quantity" binding:"gte=0"`
	SelectedVariants map[string]string `json:"selected_variants"`
}

// UpdateCartItemReq 调整数量，delta 可为负
type UpdateCartItemReq struct {
	Delta int `json:"delta" binding:"ne=0"`
}

// ClientDetailsReq 客户信息
type ClientDetailsReq struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone"`
}
