package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"obra_catalog/internal/catalog"
	"obra_catalog/internal/model"
	"obra_catalog/pkg/errs"
	"obra_catalog/pkg/utils"
)

// SearchMode 搜索方式
type SearchMode string

const (
	SearchModeLocal SearchMode = "local"
	SearchModeAI    SearchMode = "ai"
)

// SearchResult 搜索结果
// Fallback 为 true 表示请求了 AI 搜索但退回了本地过滤
type SearchResult struct {
	Products   []model.Product `json:"products"`
	Mode       SearchMode      `json:"mode"`
	Fallback   bool            `json:"fallback"`
	MatchedIDs []string        `json:"matched_ids,omitempty"`
}

// SearchService 本地过滤 + AI 语义搜索
type SearchService struct {
	catalog  *CatalogService
	provider SearchProvider
	breaker  *gobreaker.CircuitBreaker[[]string]
	cache    *utils.TTLCache[[]string]
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSearchService provider 为 nil 时 AI 模式总是退回本地过滤
func NewSearchService(catalogSvc *CatalogService, provider SearchProvider, timeout time.Duration, logger *zap.Logger) *SearchService {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &SearchService{
		catalog:  catalogSvc,
		provider: provider,
		breaker:  newSearchBreaker("ai-search", logger),
		cache:    utils.NewTTLCache[[]string](5 * time.Minute),
		timeout:  timeout,
		logger:   logger,
	}
}

func newSearchBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker[[]string] {
	var st gobreaker.Settings
	st.Name = name
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 3 && failureRatio >= 0.6
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.Warn("熔断器状态变化",
			zap.String("name", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}
	return gobreaker.NewCircuitBreaker[[]string](st)
}

// Search 按模式搜索
// AI 模式下外部调用失败、熔断、返回空或格式错误都会退回本地过滤，不向调用方报错
func (s *SearchService) Search(ctx context.Context, category, query string, mode SearchMode) (*SearchResult, error) {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		category = catalog.AllCategories
	}

	local := func(fallback bool) *SearchResult {
		return &SearchResult{
			Products: catalog.FilterProducts(products, category, query),
			Mode:     SearchModeLocal,
			Fallback: fallback,
		}
	}

	if mode != SearchModeAI || strings.TrimSpace(query) == "" {
		return local(false), nil
	}

	ids, err := s.external(ctx, query, products)
	if err != nil {
		s.logger.Warn("AI 搜索失败，使用本地过滤",
			zap.String("query", query),
			zap.Error(err))
		return local(true), nil
	}
	if len(ids) == 0 {
		s.logger.Info("AI 搜索无结果，使用本地过滤", zap.String("query", query))
		return local(true), nil
	}

	return &SearchResult{
		Products:   catalog.FilterByIDs(products, ids),
		Mode:       SearchModeAI,
		MatchedIDs: ids,
	}, nil
}

func (s *SearchService) external(ctx context.Context, query string, products []model.Product) ([]string, error) {
	if s.provider == nil {
		return nil, errs.ErrAIUnavailable
	}

	key := strings.ToLower(strings.TrimSpace(query)) + "|" + CatalogHash(products)
	if ids, ok := s.cache.Get(key); ok {
		return ids, nil
	}

	ids, err := s.breaker.Execute(func() ([]string, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.provider.Search(callCtx, query, products)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrExternalSearch, err)
	}

	if len(ids) > 0 {
		s.cache.Set(key, ids)
	}
	return ids, nil
}
