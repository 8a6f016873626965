package catalog

import (
	"strings"

	"obra_catalog/internal/model"
)

// AllCategories 不按分类过滤的哨兵值
const AllCategories = "All"

// FilterProducts 分类 + 关键词过滤
// 分类为 "All" 时不过滤，否则精确匹配 (区分大小写)
// 关键词去空白、转小写后按空白切分，商品的 name/description/category/id/sku
// 拼接文本必须包含每一个词 (子串匹配，与顺序无关)
func FilterProducts(products []model.Product, category, rawQuery string) []model.Product {
	tokens := Tokenize(rawQuery)

	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if category != AllCategories && p.Category != category {
			continue
		}
		if len(tokens) > 0 && !matchesAll(searchableText(p), tokens) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Tokenize 把原始查询切成小写词；空查询返回 nil
func Tokenize(rawQuery string) []string {
	term := strings.ToLower(strings.TrimSpace(rawQuery))
	if term == "" {
		return nil
	}
	return strings.Fields(term)
}

func searchableText(p model.Product) string {
	return strings.ToLower(strings.Join([]string{
		p.Name, p.Description, p.Category, p.ID, p.SKU,
	}, " "))
}

func matchesAll(haystack string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}

// FilterByIDs 只保留 id 在白名单中的商品，保持目录顺序
func FilterByIDs(products []model.Product, ids []string) []model.Product {
	allowed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}

	out := make([]model.Product, 0, len(ids))
	for _, p := range products {
		if _, ok := allowed[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Categories "All" + 按首次出现顺序去重的分类列表
func Categories(products []model.Product) []string {
	seen := make(map[string]struct{})
	out := []string{AllCategories}
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// CategoryCount 分类及其商品数量
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CountByCategory 统计各分类商品数量，顺序同 Categories (不含 "All")
func CountByCategory(products []model.Product) []CategoryCount {
	index := make(map[string]int)
	var out []CategoryCount
	for _, p := range products {
		i, ok := index[p.Category]
		if !ok {
			index[p.Category] = len(out)
			out = append(out, CategoryCount{Name: p.Category, Count: 1})
			continue
		}
		out[i].Count++
	}
	return out
}
