package catalog

import (
	"fmt"

	"obra_catalog/internal/model"
	"obra_catalog/pkg/errs"
)

// ==================== 目录状态 ====================

// CatalogState 合并所需的三份输入快照
// Base 只读；Overrides 与 UserProducts 是仅有的持久化数据源
type CatalogState struct {
	Base         []model.Product
	Overrides    map[string]model.Product
	UserProducts []model.Product // 按存储顺序，最新的在前
}

// Products 合并后的完整目录
func (s CatalogState) Products() []model.Product {
	return MergeProducts(s.Base, s.Overrides, s.UserProducts)
}

// ==================== 合并 ====================

// MergeProducts 合并基础目录、覆盖记录和用户商品
// 结果顺序：全部用户商品在前 (保持传入顺序)，随后是基础目录 (保持原顺序，有覆盖记录的整条替换)
// 用户商品 id 与基础目录冲突时不去重，两条都会出现
func MergeProducts(base []model.Product, overrides map[string]model.Product, userProducts []model.Product) []model.Product {
	out := make([]model.Product, 0, len(userProducts)+len(base))

	for _, p := range userProducts {
		out = append(out, p.Clone())
	}

	for _, p := range base {
		if o, ok := overrides[p.ID]; ok {
			out = append(out, o.Clone())
			continue
		}
		out = append(out, p.Clone())
	}

	return out
}

// ==================== 打补丁 ====================

// PatchBucket 补丁最终落在哪个数据源
type PatchBucket int

const (
	BucketNone PatchBucket = iota
	BucketUser
	BucketOverride
)

func (b PatchBucket) String() string {
	switch b {
	case BucketUser:
		return "user"
	case BucketOverride:
		return "override"
	default:
		return "none"
	}
}

// PatchResult 打补丁结果
type PatchResult struct {
	State   CatalogState
	Bucket  PatchBucket
	Product model.Product // 打完补丁后的完整商品，调用方据此持久化
}

// ApplyOverride 对指定 id 打补丁
// 查找顺序：
//  1. 用户商品中存在 → 原地合并
//  2. 已有覆盖记录 → 合并进覆盖记录
//  3. 基础目录中存在 → 以基础商品为底创建新的覆盖记录
//
// 都不存在时返回未修改的状态和 errs.ErrProductNotFound
// 输入状态不会被修改，返回的是写时复制后的新状态
func ApplyOverride(state CatalogState, id string, patch ProductPatch) (PatchResult, error) {
	for i, p := range state.UserProducts {
		if p.ID != id {
			continue
		}
		updated := patch.Apply(p)
		users := make([]model.Product, len(state.UserProducts))
		copy(users, state.UserProducts)
		users[i] = updated

		next := state
		next.UserProducts = users
		return PatchResult{State: next, Bucket: BucketUser, Product: updated.Clone()}, nil
	}

	if existing, ok := state.Overrides[id]; ok {
		updated := patch.Apply(existing)
		next := state
		next.Overrides = withOverride(state.Overrides, updated)
		return PatchResult{State: next, Bucket: BucketOverride, Product: updated.Clone()}, nil
	}

	for _, p := range state.Base {
		if p.ID != id {
			continue
		}
		updated := patch.Apply(p)
		next := state
		next.Overrides = withOverride(state.Overrides, updated)
		return PatchResult{State: next, Bucket: BucketOverride, Product: updated.Clone()}, nil
	}

	return PatchResult{State: state, Bucket: BucketNone}, fmt.Errorf("%w: %s", errs.ErrProductNotFound, id)
}

// withOverride 复制覆盖记录并写入一条
func withOverride(src map[string]model.Product, p model.Product) map[string]model.Product {
	dst := make(map[string]model.Product, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	dst[p.ID] = p
	return dst
}

// FindProduct 在合并后的目录中按 id 查找
func FindProduct(products []model.Product, id string) (model.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

// IsBaseID 判断 id 是否属于基础目录
func IsBaseID(base []model.Product, id string) bool {
	_, ok := FindProduct(base, id)
	return ok
}
