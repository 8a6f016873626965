package controller

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cast"

	"obra_catalog/internal/api/dto"
	"obra_catalog/internal/repository"
	"obra_catalog/internal/service"
)

type AssistantController struct {
	aiService      *service.AIService
	catalogService *service.CatalogService
	callLogRepo    repository.AICallLogRepository
}

func NewAssistantController(aiService *service.AIService, catalogService *service.CatalogService, callLogRepo repository.AICallLogRepository) *AssistantController {
	return &AssistantController{
		aiService:      aiService,
		catalogService: catalogService,
		callLogRepo:    callLogRepo,
	}
}

// Chat 目录助手
// POST /api/chat
func (ctrl *AssistantController) Chat(c *gin.Context) {
	var req dto.ChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	products, err := ctrl.catalogService.ListProducts(ctx)
	if err != nil {
		fail(c, err)
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	reply, err := ctrl.aiService.Chat(ctx, conversationID, req.Message, products)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, dto.ChatResp{ConversationID: conversationID, Reply: reply})
}

// ==================== 调用记录 ====================

// GetLogs 最近的 AI 调用记录
// GET /api/ai/logs?call_type=&limit=
func (ctrl *AssistantController) GetLogs(c *gin.Context) {
	logs, err := ctrl.callLogRepo.ListRecent(c.Request.Context(), c.Query("call_type"), cast.ToInt(c.Query("limit")))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, logs)
}

// GetUsage 用量统计，默认最近 7 天
// GET /api/ai/usage?days=
func (ctrl *AssistantController) GetUsage(c *gin.Context) {
	days := cast.ToInt(c.DefaultQuery("days", "7"))
	if days <= 0 {
		days = 7
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	ctx := c.Request.Context()
	stats, err := ctrl.callLogRepo.GetUsage(ctx, start, end)
	if err != nil {
		fail(c, err)
		return
	}
	byStatus, err := ctrl.callLogRepo.CountByStatus(ctx, c.Query("call_type"))
	if err != nil {
		fail(c, err)
		return
	}

	success(c, gin.H{
		"days":      days,
		"usage":     stats,
		"by_status": byStatus,
	})
}
