package catalog

import (
	"strings"

	"obra_catalog/internal/model"
)

// SearchState 组合搜索的状态
type SearchState int

const (
	SearchIdle            SearchState = iota // 无关键词，仅按分类过滤
	SearchLocalFilter                        // 本地关键词过滤
	SearchExternalPending                    // 外部搜索进行中
	SearchExternalActive                     // 已应用外部搜索结果
)

func (s SearchState) String() string {
	switch s {
	case SearchLocalFilter:
		return "local_filter"
	case SearchExternalPending:
		return "external_pending"
	case SearchExternalActive:
		return "external_active"
	default:
		return "idle"
	}
}

// SearchSession 本地过滤与外部搜索的组合会话
// 每次发起外部搜索或修改关键词都会推进 generation，过期的外部结果到达时直接丢弃
// 非并发安全，由调用方串行驱动
type SearchSession struct {
	state      SearchState
	query      string
	category   string
	generation uint64
	pending    uint64
	matchIDs   []string
}

// NewSearchSession 创建空会话
func NewSearchSession() *SearchSession {
	return &SearchSession{category: AllCategories}
}

func (s *SearchSession) State() SearchState { return s.state }
func (s *SearchSession) Query() string      { return s.query }
func (s *SearchSession) Category() string   { return s.category }

// SetCategory 切换分类，不影响当前状态
func (s *SearchSession) SetCategory(category string) {
	if category == "" {
		category = AllCategories
	}
	s.category = category
}

// SetQuery 修改关键词
// 外部结果已生效或外部搜索进行中时都会失效，回到本地过滤
func (s *SearchSession) SetQuery(query string) {
	s.query = query
	s.matchIDs = nil
	s.generation++
	s.pending = 0

	if strings.TrimSpace(query) == "" {
		s.state = SearchIdle
		return
	}
	s.state = SearchLocalFilter
}

// BeginExternal 发起外部搜索，返回本次请求的 generation
// 关键词为空时不发起，返回 0
func (s *SearchSession) BeginExternal() uint64 {
	if strings.TrimSpace(s.query) == "" {
		return 0
	}
	s.generation++
	s.pending = s.generation
	s.matchIDs = nil
	s.state = SearchExternalPending
	return s.generation
}

// CompleteExternal 外部搜索返回结果
// generation 不是当前等待的请求时丢弃并返回 false
func (s *SearchSession) CompleteExternal(generation uint64, ids []string) bool {
	if generation == 0 || generation != s.pending || s.state != SearchExternalPending {
		return false
	}
	s.pending = 0
	s.matchIDs = append([]string(nil), ids...)
	s.state = SearchExternalActive
	return true
}

// FailExternal 外部搜索失败，退回本地过滤
func (s *SearchSession) FailExternal(generation uint64) bool {
	if generation == 0 || generation != s.pending || s.state != SearchExternalPending {
		return false
	}
	s.pending = 0
	s.state = SearchLocalFilter
	return true
}

// Clear 清空关键词、外部结果和分类
func (s *SearchSession) Clear() {
	s.query = ""
	s.category = AllCategories
	s.matchIDs = nil
	s.generation++
	s.pending = 0
	s.state = SearchIdle
}

// View 按当前状态计算可见商品
// 外部结果生效时只按 id 白名单展示，不再叠加分类过滤
func (s *SearchSession) View(products []model.Product) []model.Product {
	if s.state == SearchExternalActive {
		return FilterByIDs(products, s.matchIDs)
	}
	return FilterProducts(products, s.category, s.query)
}
