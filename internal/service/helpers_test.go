package service

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"obra_catalog/internal/model"
	"obra_catalog/internal/repository"
)

// ==================== 测试数据库 ====================

func setupServiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.CatalogOverride{}, &model.UserProduct{}, &model.AICallLog{}, &model.SysUser{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func testBase() []model.Product {
	return []model.Product{
		{ID: "T1", Name: "Executive Desk", Category: "Office Table", Price: 25000, Stock: 5, Image: "https://img.example.com/t1.jpg"},
		{ID: "T2", Name: "Task Chair", Category: "Office Chair", Price: 3000, Stock: 0},
		{
			ID: "D1", Name: "Glass Top Table", Category: "Executive Table", Price: 20583.33, Stock: 10,
			Variants: []model.Variant{{
				Name:    "Size",
				Options: []string{"1.6m", "1.8m"},
				Prices:  map[string]float64{"1.6m": 20583.33, "1.8m": 24700},
			}},
		},
	}
}

func newTestCatalogService(t *testing.T) (*CatalogService, *gorm.DB) {
	db := setupServiceTestDB(t)
	svc := NewCatalogService(testBase(), repository.NewProductRepository(db), zap.NewNop())
	return svc, db
}

// ==================== 假 Gemini ====================

type fakeBackend struct {
	mu        sync.Mutex
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     int
	models    []string
	chats     int
	chatReply string
	sessions  []*fakeChat
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 12, CandidatesTokenCount: 3},
	}
}

func imageResponse(data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here you go"},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: data}},
			}},
		}},
	}
}

func (f *fakeBackend) GenerateContent(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	f.calls++
	f.models = append(f.models, modelName)

	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	if len(f.responses) > 0 {
		return f.responses[len(f.responses)-1], nil
	}
	return textResponse(""), nil
}

func (f *fakeBackend) NewChat(ctx context.Context, modelName string, cfg *genai.GenerateContentConfig) (ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats++
	chat := &fakeChat{reply: f.chatReply}
	f.sessions = append(f.sessions, chat)
	return chat, nil
}

// fakeChat 与 genai.Chat 一样在发送时无锁追加历史
type fakeChat struct {
	reply   string
	history []string
}

func (c *fakeChat) SendMessage(ctx context.Context, message string) (*genai.GenerateContentResponse, error) {
	c.history = append(c.history, message)
	reply := textResponse(c.reply)
	c.history = append(c.history, c.reply)
	return reply, nil
}
