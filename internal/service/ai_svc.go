package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"obra_catalog/internal/catalog"
	"obra_catalog/internal/model"
	"obra_catalog/internal/repository"
	"obra_catalog/pkg/config"
	"obra_catalog/pkg/errs"
	"obra_catalog/pkg/utils"
)

// ==================== 接口定义 ====================

// SearchProvider 外部语义搜索，返回命中的商品 id 白名单
type SearchProvider interface {
	Search(ctx context.Context, query string, products []model.Product) ([]string, error)
}

// GenAIBackend Gemini 调用的最小集合，测试中用假实现替换
type GenAIBackend interface {
	GenerateContent(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	NewChat(ctx context.Context, modelName string, cfg *genai.GenerateContentConfig) (ChatSession, error)
}

// ChatSession 多轮对话
type ChatSession interface {
	SendMessage(ctx context.Context, message string) (*genai.GenerateContentResponse, error)
}

// ==================== genai 实现 ====================

type genaiBackend struct {
	client *genai.Client
}

// NewGenAIBackend 创建 Gemini 客户端
func NewGenAIBackend(ctx context.Context, apiKey string) (GenAIBackend, error) {
	if apiKey == "" {
		return nil, errs.ErrAIUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Gemini 客户端失败: %w", err)
	}
	return &genaiBackend{client: client}, nil
}

func (b *genaiBackend) GenerateContent(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return b.client.Models.GenerateContent(ctx, modelName, contents, cfg)
}

func (b *genaiBackend) NewChat(ctx context.Context, modelName string, cfg *genai.GenerateContentConfig) (ChatSession, error) {
	chat, err := b.client.Chats.Create(ctx, modelName, cfg, nil)
	if err != nil {
		return nil, err
	}
	return &genaiChat{chat: chat}, nil
}

type genaiChat struct {
	chat *genai.Chat
}

func (c *genaiChat) SendMessage(ctx context.Context, message string) (*genai.GenerateContentResponse, error) {
	return c.chat.SendMessage(ctx, genai.Part{Text: message})
}

// ==================== 服务 ====================

// AIService Gemini 能力：语义搜索、文案、图片、对话
type AIService struct {
	cfg         config.AIConfig
	backend     GenAIBackend
	callLogRepo repository.AICallLogRepository
	logger      *zap.Logger

	imageAttempts int
	retryDelay    time.Duration

	// 会话按 会话id|目录指纹 缓存，空闲超过 chatIdleTTL 后失效
	mu    sync.Mutex
	chats *utils.TTLCache[*chatEntry]
}

// chatEntry 一个会话同一时间只允许一条消息在途
type chatEntry struct {
	mu      sync.Mutex
	session ChatSession
}

const chatIdleTTL = 30 * time.Minute

// NewAIService 创建 AI 服务，backend 为 nil 时所有调用返回 errs.ErrAIUnavailable
func NewAIService(cfg config.AIConfig, backend GenAIBackend, callLogRepo repository.AICallLogRepository, logger *zap.Logger) *AIService {
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-2.5-flash"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "gemini-2.5-flash-image"
	}

	return &AIService{
		cfg:           cfg,
		backend:       backend,
		callLogRepo:   callLogRepo,
		logger:        logger,
		imageAttempts: 2,
		retryDelay:    time.Second,
		chats:         utils.NewTTLCache[*chatEntry](chatIdleTTL),
	}
}

// Available 是否配置了 Gemini
func (s *AIService) Available() bool {
	return s.backend != nil
}

// ==================== 语义搜索 ====================

// Search 让模型理解查询意图，返回匹配的商品 id
func (s *AIService) Search(ctx context.Context, query string, products []model.Product) ([]string, error) {
	if s.backend == nil {
		return nil, errs.ErrAIUnavailable
	}

	prompt := fmt.Sprintf(`You are an intelligent search engine for a furniture store.
Analyze the User Search Query and return a JSON array of Product IDs that match the intent.

User Search Query: "%s"

Product Catalog Data:
%s

Logic:
1. Text Match: Match keywords in Name, Description, or Category.
2. Price Filtering: If the user specifies a price, strictly filter based on 'Final Price'.
3. Feature Matching: Match specific attributes.
4. Return ONLY a JSON array of strings (Product IDs).`, query, formatSearchCatalog(products))

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	}

	start := time.Now()
	resp, err := s.backend.GenerateContent(ctx, s.cfg.TextModel, genai.Text(prompt), cfg)
	if err != nil {
		s.logCall(ctx, model.AICallTypeSearch, s.cfg.TextModel, "", start, nil, 0, err)
		return nil, fmt.Errorf("%w: %v", errs.ErrExternalSearch, err)
	}

	ids, err := ParseIDList(resp.Text())
	s.logCall(ctx, model.AICallTypeSearch, s.cfg.TextModel, "", start, resp, 0, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrExternalSearch, err)
	}
	return ids, nil
}

var codeFence = regexp.MustCompile("```json\\n?|\\n?```")

// ParseIDList 解析模型返回的 id 数组，兼容 markdown 代码块包裹
// 空文本视为没有命中
func ParseIDList(text string) ([]string, error) {
	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(text, ""))
	if cleaned == "" {
		return []string{}, nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(cleaned), &ids); err != nil {
		return nil, fmt.Errorf("返回格式错误: %v", err)
	}
	return ids, nil
}

func formatSearchCatalog(products []model.Product) string {
	lines := make([]string, len(products))
	for i, p := range products {
		lines[i] = fmt.Sprintf(`ID: "%s" | Name: "%s" | Category: "%s" | Desc: "%s" | Dimensions: "%s" | Final Price: %.0f`,
			p.ID, p.Name, p.Category, p.Description, p.Dimensions, catalog.CalculateFinalPrice(p.Price))
	}
	return strings.Join(lines, "\n")
}

// ==================== 文案生成 ====================

// GenerateDescription 根据名称、分类和关键词生成 2-3 句商品描述
func (s *AIService) GenerateDescription(ctx context.Context, name, category, keywords string) (string, error) {
	if s.backend == nil {
		return "", errs.ErrAIUnavailable
	}

	prompt := fmt.Sprintf(`Generate a concise, professional product description for a furniture item.

Product Name: "%s"
Category: "%s"
Key Features/Context: "%s"

Requirements:
- Integrate the provided key features naturally into the description.
- Focus on material quality, functionality, and design style.
- Max 2-3 sentences.
- Tone: Premium, inviting, sales-oriented.
- Output only the description text, no labels, no markdown.`, name, category, keywords)

	start := time.Now()
	resp, err := s.backend.GenerateContent(ctx, s.cfg.TextModel, genai.Text(prompt), nil)
	if err == nil && strings.TrimSpace(resp.Text()) == "" {
		err = fmt.Errorf("无生成结果")
	}
	s.logCall(ctx, model.AICallTypeText, s.cfg.TextModel, "", start, resp, 0, err)
	if err != nil {
		return "", fmt.Errorf("%w: 生成描述失败: %v", errs.ErrAIUnavailable, err)
	}

	return strings.TrimSpace(resp.Text()), nil
}

// ==================== 图片生成 ====================

// categoryStyles 分类对应的画面关键词
var categoryStyles = map[string]string{
	"Executive Table":        "luxury office desk, mahogany wood, glass top, executive suite, corporate power, ceo office, premium finish",
	"Office Table":           "modern workspace desk, ergonomic, clean lines, productivity, melamine finish, office workstation, professional",
	"Office Chair":           "ergonomic office chair, mesh back, leather seat, comfortable seating, adjustable armrests, rolling casters",
	"Cabinet & Storage":      "steel filing cabinet, organized office, secure storage, metal rack, archival system, sleek storage solution",
	"Reception & Conference": "modern conference table, meeting room, professional gathering, sleek design, boardroom centerpiece",
	"Partition":              "office partition, privacy screen, cubicle system, sound absorption, open plan separation, modular workspace",
	"Accessories":            "office desk organizer, modern office tool, minimal design, essential workspace accessory",
	"Home Furniture":         "cozy home office, residential furniture, stylish interior, modern living space",
}

const defaultStyle = "modern minimalist office furniture, professional studio lighting, high-end commercial design"

// StyleKeywords 分类的画面关键词，未知分类使用通用风格
func StyleKeywords(category string) string {
	if kw, ok := categoryStyles[category]; ok {
		return kw
	}
	return defaultStyle
}

// GenerateImage 生成商品图，返回 data URI
// 最多尝试 imageAttempts 次，两次之间等待 retryDelay
func (s *AIService) GenerateImage(ctx context.Context, p model.Product) (string, error) {
	if s.backend == nil {
		return "", errs.ErrAIUnavailable
	}

	subject := p.Category
	if subject == "" {
		subject = "furniture"
	}
	prompt := fmt.Sprintf(`Generate a photorealistic, high-end commercial product photography image of "%s".

Category: %s
Context Keywords: %s
Product Description: "%s"

CRITICAL VISUAL GUIDELINES:
1. Subject: Show the %s piece fully assembled, isolated in the center.
2. Background: Pure solid white background (Hex #FFFFFF) or very subtle light grey studio cyclorama to emphasize the product.
3. Lighting: Professional studio lighting. Softbox lighting to create smooth highlights on surfaces (wood, glass, metal) and soft shadows underneath to ground the product. Avoid harsh, dark shadows.
4. Angle: Tables/Desks 3/4 perspective view to show legroom, depth, and surface area. Cabinets/Shelves front 3/4 view. Chairs 3/4 view.
5. Style: Modern, Corporate, Clean, Architectural, Premium quality.
6. Quality: 4k resolution, sharp focus throughout the object, square 1:1 framing.

The image should look like it belongs in a premium office furniture catalog.`,
		p.Name, p.Category, StyleKeywords(p.Category), p.Description, subject)

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	var lastErr error
	for attempt := 1; attempt <= s.imageAttempts; attempt++ {
		start := time.Now()
		resp, err := s.backend.GenerateContent(ctx, s.cfg.ImageModel, genai.Text(prompt), cfg)
		var dataURI string
		if err == nil {
			dataURI, err = extractImage(resp)
		}
		imageCount := 0
		if err == nil {
			imageCount = 1
		}
		s.logCall(ctx, model.AICallTypeImage, s.cfg.ImageModel, p.ID, start, resp, imageCount, err)
		if err == nil {
			return dataURI, nil
		}

		lastErr = err
		s.logger.Warn("生成商品图失败",
			zap.String("product_id", p.ID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.imageAttempts),
			zap.Error(err))

		if attempt < s.imageAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}
	}

	return "", fmt.Errorf("%w: 生成图片失败: %v", errs.ErrAIUnavailable, lastErr)
}

func extractImage(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("无生成结果")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return fmt.Sprintf("data:%s;base64,%s", part.InlineData.MIMEType,
				base64.StdEncoding.EncodeToString(part.InlineData.Data)), nil
		}
	}
	return "", fmt.Errorf("响应中未找到图片数据")
}

// ==================== 对话 ====================

const chatFallbackReply = "I'm not sure how to respond to that."

// Chat 目录助手对话
// 同一会话在目录的 id/库存/价格未变化时复用，保留上下文；不同会话之间互不可见
func (s *AIService) Chat(ctx context.Context, conversationID, message string, products []model.Product) (string, error) {
	if s.backend == nil {
		return "", errs.ErrAIUnavailable
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return "", fmt.Errorf("%w: 缺少会话 id", errs.ErrValidation)
	}

	entry, err := s.chatSession(ctx, conversationID, products)
	if err != nil {
		return "", fmt.Errorf("%w: 创建会话失败: %v", errs.ErrAIUnavailable, err)
	}

	entry.mu.Lock()
	start := time.Now()
	resp, err := entry.session.SendMessage(ctx, message)
	entry.mu.Unlock()

	s.logCall(ctx, model.AICallTypeChat, s.cfg.TextModel, "", start, resp, 0, err)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrAIUnavailable, err)
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return chatFallbackReply, nil
	}
	return reply, nil
}

func (s *AIService) chatSession(ctx context.Context, conversationID string, products []model.Product) (*chatEntry, error) {
	key := conversationID + "|" + CatalogHash(products)

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.chats.Get(key); ok {
		s.chats.Set(key, entry) // 续期
		return entry, nil
	}

	s.chats.Sweep()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(chatInstruction(products), genai.RoleUser),
	}
	session, err := s.backend.NewChat(ctx, s.cfg.TextModel, cfg)
	if err != nil {
		return nil, err
	}
	entry := &chatEntry{session: session}
	s.chats.Set(key, entry)
	return entry, nil
}

// CatalogHash 目录指纹，只取 id、库存、价格
func CatalogHash(products []model.Product) string {
	parts := make([]string, len(products))
	for i, p := range products {
		parts[i] = fmt.Sprintf("%s%d%g", p.ID, p.Stock, p.Price)
	}
	b, _ := json.Marshal(parts)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func chatInstruction(products []model.Product) string {
	lines := make([]string, len(products))
	for i, p := range products {
		sku := p.SKU
		if sku == "" {
			sku = p.ID
		}
		imageState := "Missing"
		if p.Image != "" {
			imageState = "Present"
		}
		lines[i] = fmt.Sprintf(`- SKU: "%s" | Name: "%s" | Description: "%s" | Category: "%s" | Unit Price: ₱%.2f | Stock: %d | ImagePath: "%s"`,
			sku, p.Name, p.Description, p.Category, catalog.CalculateFinalPrice(p.Price), p.Stock, imageState)
	}

	return `SYSTEM ROLE: Online Catalog Engine + Auto-Quotation Expert

You are the AI engine of the Online Catalog and Auto-Quotation App.
Your primary function is to store, recall, and use all product data provided in the context.

CORE FUNCTIONS:

1. PRODUCT RETRIEVAL
- Search by SKU, Title, Keywords, or Image.
- Always return the exact stored record from the provided catalog.
- Always display the 'ImagePath' exactly as provided in the data.

2. AUTO QUOTATION GENERATION
- When requested, generate a quotation using stored product data.
- Compute: Unit Price, Quantity, Line Total, Subtotal, Discount (default 0), Delivery (default 0), Grand Total.
- Output structured format: SKU, Title, Description, Unit Price, Quantity, Total, Image Path.

3. SYSTEM RELIABILITY
- The catalog data provided to you is the "Fixed Memory".
- Do not hallucinate products not in the list.
- If a user asks to "Edit" or "Delete", politely tell them to use the Edit buttons on the product cards.

DATA CONTEXT:
Here is the current Fixed Memory (Product Catalog):
` + strings.Join(lines, "\n") + `

OUTPUT STYLE:
- Provide clean, structured catalog data.
- Ensure accurate quotation breakdowns.
- Use Markdown for tables.
- Be professional and precise.`
}

// ==================== 调用日志 ====================

func (s *AIService) logCall(ctx context.Context, callType, modelName, productID string, start time.Time, resp *genai.GenerateContentResponse, imageCount int, callErr error) {
	if s.callLogRepo == nil {
		return
	}

	log := &model.AICallLog{
		ProductID:  productID,
		CallType:   callType,
		ModelName:  modelName,
		ImageCount: imageCount,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     model.AICallStatusSuccess,
	}
	if resp != nil && resp.UsageMetadata != nil {
		log.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		log.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if callErr != nil {
		log.Status = model.AICallStatusFailed
		log.ErrorMsg = truncate(callErr.Error(), 1000)
	}

	// 请求被取消时日志仍要落库
	if err := s.callLogRepo.Create(context.WithoutCancel(ctx), log); err != nil {
		s.logger.Warn("写入 AI 调用日志失败", zap.String("call_type", callType), zap.Error(err))
	}
}

// truncate 按字节上限截断，不切开多字节字符
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
