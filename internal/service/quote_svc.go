package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"obra_catalog/internal/catalog"
	"obra_catalog/internal/model"
	"obra_catalog/pkg/errs"
)

// ClientDetails 报价单客户信息
type ClientDetails struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone"`
}

// QuoteOptions 报价附加项，金额为空或无法解析时按 0 处理
type QuoteOptions struct {
	Discount float64
	Delivery float64
}

// ParseAmount 解析金额输入，空串、非数字、负数都按 0
func ParseAmount(v any) float64 {
	f, err := cast.ToFloat64E(v)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// QuoteLine 报价单明细
type QuoteLine struct {
	Key       string  `json:"key" csv:"-"`
	ProductID string  `json:"product_id" csv:"product_id"`
	SKU       string  `json:"sku" csv:"sku"`
	Name      string  `json:"name" csv:"name"`
	Variants  string  `json:"variants" csv:"variants"`
	Quantity  int     `json:"quantity" csv:"quantity"`
	UnitPrice float64 `json:"unit_price" csv:"unit_price"`
	LineTotal float64 `json:"line_total" csv:"line_total"`
}

// Quote 报价单
type Quote struct {
	CartID     string        `json:"cart_id"`
	Client     ClientDetails `json:"client"`
	Lines      []QuoteLine   `json:"lines"`
	ItemCount  int           `json:"item_count"`
	Subtotal   float64       `json:"subtotal"`
	Discount   float64       `json:"discount"`
	Delivery   float64       `json:"delivery"`
	GrandTotal float64       `json:"grand_total"`
	IssuedAt   time.Time     `json:"issued_at"`
}

// CartView 报价单当前内容
type CartView struct {
	ID        string           `json:"id"`
	Lines     []model.CartLine `json:"lines"`
	Count     int              `json:"count"`
	Subtotal  float64          `json:"subtotal"`
	Client    ClientDetails    `json:"client"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type cartEntry struct {
	cart      catalog.Cart
	client    ClientDetails
	updatedAt time.Time
}

// QuoteService 报价单 (内存保存，进程重启后丢失)
// 超过 idleTTL 未修改的报价单视为不存在，由 EvictIdle 定期清理
type QuoteService struct {
	catalog *CatalogService
	idleTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	carts map[string]*cartEntry
}

// NewQuoteService 创建报价服务，idleTTL <= 0 时默认 24 小时
func NewQuoteService(catalogSvc *CatalogService, idleTTL time.Duration, logger *zap.Logger) *QuoteService {
	if idleTTL <= 0 {
		idleTTL = 24 * time.Hour
	}
	return &QuoteService{
		catalog: catalogSvc,
		idleTTL: idleTTL,
		logger:  logger,
		now:     time.Now,
		carts:   make(map[string]*cartEntry),
	}
}

// ==================== 报价单 ====================

// CreateCart 新建空报价单
func (s *QuoteService) CreateCart() CartView {
	id := uuid.NewString()
	entry := &cartEntry{updatedAt: s.now()}

	s.mu.Lock()
	s.carts[id] = entry
	s.mu.Unlock()

	return viewOf(id, entry)
}

// GetCart 查询报价单
func (s *QuoteService) GetCart(cartID string) (CartView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.carts[cartID]
	if !ok || s.expired(entry) {
		return CartView{}, fmt.Errorf("%w: %s", errs.ErrCartNotFound, cartID)
	}
	return viewOf(cartID, entry), nil
}

// DeleteCart 删除报价单
func (s *QuoteService) DeleteCart(cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.carts[cartID]
	if !ok || s.expired(entry) {
		return fmt.Errorf("%w: %s", errs.ErrCartNotFound, cartID)
	}
	delete(s.carts, cartID)
	return nil
}

// EvictIdle 删除空闲超时的报价单，返回删除数量
func (s *QuoteService) EvictIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, entry := range s.carts {
		if s.expired(entry) {
			delete(s.carts, id)
			n++
		}
	}
	return n
}

func (s *QuoteService) expired(e *cartEntry) bool {
	return s.now().Sub(e.updatedAt) > s.idleTTL
}

// SetClient 保存客户信息
func (s *QuoteService) SetClient(cartID string, client ClientDetails) (CartView, error) {
	return s.mutate(cartID, func(e *cartEntry) error {
		e.client = ClientDetails{
			Name:    strings.TrimSpace(client.Name),
			Address: strings.TrimSpace(client.Address),
			Email:   strings.TrimSpace(client.Email),
			Phone:   strings.TrimSpace(client.Phone),
		}
		return nil
	})
}

// ==================== 明细 ====================

// AddItem 加入商品
// selection 为空时每个规格取第一个选项；实际价格由选中规格决定，加价在 Cart.Add 里计算
func (s *QuoteService) AddItem(ctx context.Context, cartID, productID string, quantity int, selection map[string]string) (model.CartLine, error) {
	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return model.CartLine{}, err
	}
	if p.Stock <= 0 {
		return model.CartLine{}, fmt.Errorf("%w: %s 缺货", errs.ErrValidation, productID)
	}

	if len(selection) == 0 {
		selection = catalog.DefaultSelection(p)
	}
	if err := catalog.ValidateSelection(p, selection); err != nil {
		return model.CartLine{}, err
	}
	price := catalog.EffectivePrice(p, selection)

	var line model.CartLine
	_, err = s.mutate(cartID, func(e *cartEntry) error {
		var addErr error
		line, addErr = e.cart.Add(p, quantity, selection, &price)
		return addErr
	})
	if err != nil {
		return model.CartLine{}, err
	}

	s.logger.Debug("加入报价单",
		zap.String("cart_id", cartID),
		zap.String("product_id", productID),
		zap.Int("quantity", quantity),
		zap.Float64("final_price", line.FinalPrice))
	return line, nil
}

// UpdateQty 按增量调整数量，结果 <= 0 时删除该行
func (s *QuoteService) UpdateQty(cartID, key string, delta int) (CartView, error) {
	return s.mutate(cartID, func(e *cartEntry) error {
		return e.cart.UpdateQty(key, delta)
	})
}

// RemoveItem 删除一行
func (s *QuoteService) RemoveItem(cartID, key string) (CartView, error) {
	return s.mutate(cartID, func(e *cartEntry) error {
		return e.cart.Remove(key)
	})
}

// ==================== 报价 ====================

// GetQuote 生成报价：总计 = max(0, 小计 + 运费 - 折扣)
func (s *QuoteService) GetQuote(cartID string, opts QuoteOptions) (Quote, error) {
	view, err := s.GetCart(cartID)
	if err != nil {
		return Quote{}, err
	}

	subtotal := decimal.Zero
	lines := make([]QuoteLine, 0, len(view.Lines))
	for _, l := range view.Lines {
		unit := decimal.NewFromFloat(l.FinalPrice)
		total := unit.Mul(decimal.NewFromInt(int64(l.Quantity)))
		subtotal = subtotal.Add(total)

		lines = append(lines, QuoteLine{
			Key:       l.Key,
			ProductID: l.ID,
			SKU:       l.SKU,
			Name:      l.Name,
			Variants:  formatSelection(l.SelectedVariants),
			Quantity:  l.Quantity,
			UnitPrice: unit.InexactFloat64(),
			LineTotal: total.InexactFloat64(),
		})
	}

	discount := decimal.NewFromFloat(ParseAmount(opts.Discount))
	delivery := decimal.NewFromFloat(ParseAmount(opts.Delivery))
	grand := decimal.Max(decimal.Zero, subtotal.Add(delivery).Sub(discount))

	return Quote{
		CartID:     cartID,
		Client:     view.Client,
		Lines:      lines,
		ItemCount:  view.Count,
		Subtotal:   subtotal.Round(2).InexactFloat64(),
		Discount:   discount.Round(2).InexactFloat64(),
		Delivery:   delivery.Round(2).InexactFloat64(),
		GrandTotal: grand.Round(2).InexactFloat64(),
		IssuedAt:   time.Now(),
	}, nil
}

// ExportCSV 报价明细导出为 CSV，表头取 csv tag
func (s *QuoteService) ExportCSV(cartID string, opts QuoteOptions) ([]byte, error) {
	q, err := s.GetQuote(cartID, opts)
	if err != nil {
		return nil, err
	}

	rows := q.Lines
	if rows == nil {
		rows = []QuoteLine{}
	}
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("导出报价单失败: %w", err)
	}
	return out, nil
}

func (s *QuoteService) mutate(cartID string, fn func(e *cartEntry) error) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.carts[cartID]
	if !ok || s.expired(entry) {
		delete(s.carts, cartID)
		return CartView{}, fmt.Errorf("%w: %s", errs.ErrCartNotFound, cartID)
	}
	if err := fn(entry); err != nil {
		return CartView{}, err
	}
	entry.updatedAt = s.now()
	return viewOf(cartID, entry), nil
}

func viewOf(id string, e *cartEntry) CartView {
	snap := e.cart.Snapshot()
	return CartView{
		ID:        id,
		Lines:     snap.Lines,
		Count:     snap.Count(),
		Subtotal:  snap.Subtotal(),
		Client:    e.client,
		UpdatedAt: e.updatedAt,
	}
}

// formatSelection "Size: 1.6m; Color: Oak"，按规格名排序
func formatSelection(sel map[string]string) string {
	if len(sel) == 0 {
		return ""
	}
	names := make([]string, 0, len(sel))
	for name := range sel {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + sel[name]
	}
	return strings.Join(parts, "; ")
}
