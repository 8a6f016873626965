package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"google.golang.org/genai"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"obra_catalog/internal/middleware"
	"obra_catalog/internal/model"
	"obra_catalog/internal/repository"
	"obra_catalog/internal/service"
	"obra_catalog/pkg/config"
	"obra_catalog/pkg/utils"
)

// 1x1 PNG
var pngPixel = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53,
	0xDE, 0x00, 0x00, 0x00, 0x0C, 0x49, 0x44, 0x41,
	0x54, 0x08, 0xD7, 0x63, 0xF8, 0xFF, 0xFF, 0x3F,
	0x00, 0x05, 0xFE, 0x02, 0xFE, 0xDC, 0xCC, 0x59,
	0xE7, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E,
	0x44, 0xAE, 0x42, 0x60, 0x82,
}

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== 假 Gemini ====================

// stubBackend 按请求配置返回：JSON → 搜索结果，含 IMAGE → 图片，其余 → 文案
type stubBackend struct {
	searchJSON string
	text       string
	chatReply  string
}

func (b *stubBackend) GenerateContent(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	part := &genai.Part{Text: b.text}
	switch {
	case cfg != nil && cfg.ResponseMIMEType == "application/json":
		part = &genai.Part{Text: b.searchJSON}
	case cfg != nil && len(cfg.ResponseModalities) > 0:
		part = &genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: pngPixel}}
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{part}}}},
	}, nil
}

func (b *stubBackend) NewChat(ctx context.Context, modelName string, cfg *genai.GenerateContentConfig) (service.ChatSession, error) {
	return &stubChat{reply: b.chatReply}, nil
}

type stubChat struct{ reply string }

func (c *stubChat) SendMessage(ctx context.Context, message string) (*genai.GenerateContentResponse, error) {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: c.reply}}}}},
	}, nil
}

// ==================== 测试环境 ====================

type testEnv struct {
	db         *gorm.DB
	catalogSvc *service.CatalogService
	imageSvc   *service.ImageService
	batchSvc   *service.BatchImageService
	quoteSvc   *service.QuoteService
	aiSvc      *service.AIService
	searchSvc  *service.SearchService
	authSvc    *service.AuthService
	tokens     *middleware.TokenManager
	logRepo    repository.AICallLogRepository
}

func testBase() []model.Product {
	return []model.Product{
		{ID: "T1", Name: "Executive Desk", Category: "Office Table", Price: 25000, Stock: 5, SKU: "EX-1", Image: "https://img.example.com/t1.jpg"},
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

// newTestEnv backend 为 nil 时 AI 不可用
func newTestEnv(t *testing.T, backend service.GenAIBackend) *testEnv {
	t.Helper()

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

	log := zap.NewNop()
	httpClient := utils.NewHTTPClient(5 * time.Second)
	logRepo := repository.NewAICallLogRepository(db)

	catalogSvc := service.NewCatalogService(testBase(), repository.NewProductRepository(db), log)
	aiSvc := service.NewAIService(config.AIConfig{}, backend, logRepo, log)
	storage := service.NewStorageService(service.NewLocalStorage(config.StorageConfig{
		BasePath: "/uploads",
		Endpoint: "http://localhost:8080/uploads",
	}, afero.NewMemMapFs(), httpClient))
	imageSvc := service.NewImageService(catalogSvc, storage, aiSvc, httpClient, "http://localhost:8080", log)

	var provider service.SearchProvider
	if aiSvc.Available() {
		provider = aiSvc
	}

	tokens := middleware.NewTokenManager(middleware.JWTConfig{SecretKey: "test-secret", Issuer: "obra-catalog"})
	authSvc := service.NewAuthService(repository.NewUserRepository(db), tokens, log)
	if _, err := authSvc.EnsureAdmin(context.Background(), "admin", "s3cret"); err != nil {
		t.Fatalf("创建管理员失败: %v", err)
	}

	return &testEnv{
		db:         db,
		catalogSvc: catalogSvc,
		imageSvc:   imageSvc,
		batchSvc:   service.NewBatchImageService(imageSvc, 2, time.Hour, log),
		quoteSvc:   service.NewQuoteService(catalogSvc, time.Hour, log),
		aiSvc:      aiSvc,
		searchSvc:  service.NewSearchService(catalogSvc, provider, time.Second, log),
		authSvc:    authSvc,
		tokens:     tokens,
		logRepo:    logRepo,
	}
}

// ==================== 请求辅助 ====================

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	return performAuthRequest(r, method, path, "", body)
}

// performAuthRequest token 非空时带上 Bearer 头
func performAuthRequest(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v, body=%s", err, w.Body.String())
	}
	if data != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, data); err != nil {
			t.Fatalf("解析 data 失败: %v", err)
		}
	}
	return resp
}
