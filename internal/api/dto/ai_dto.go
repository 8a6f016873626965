package dto

// StartBatchReq 批量生图
// product_ids 为空时对所有缺图商品生成
type StartBatchReq struct {
	ProductIDs []string `json:"product_ids"`
}

// StartBatchResp 任务 id
type StartBatchResp struct {
	JobID string `json:"job_id"`
	Total int    `json:"total"`
}

// BatchProductStatusResp 单个商品在批量任务中的状态
type BatchProductStatusResp struct {
	JobID     string `json:"job_id"`
	ProductID string `json:"product_id"`
	Status    string `json:"status"`
}

// MissingImagesResp 缺图商品
type MissingImagesResp struct {
	ProductIDs []string `json:"product_ids"`
	Total      int      `json:"total"`
}

// ChatReq 目录助手对话
// conversation_id 为空时开启新会话，后续消息带上响应里返回的 id
type ChatReq struct {
	ConversationID string `json:"conversation_id" binding:"omitempty,max=64"`
	Message        string `json:"message" binding:"required"`
}

// ChatResp 助手回复
type ChatResp struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
}
