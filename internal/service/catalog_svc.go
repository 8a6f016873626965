package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"obra_catalog/internal/catalog"
	"obra_catalog/internal/model"
	"obra_catalog/internal/repository"
	"obra_catalog/pkg/errs"
)

// CatalogService 目录读写
// 基础目录常驻内存，覆盖记录和用户商品每次从仓储读取后合并
type CatalogService struct {
	base     []model.Product
	repo     repository.ProductRepository
	validate *validator.Validate
	logger   *zap.Logger

	// 打补丁是读-改-写，串行执行避免两次修改互相覆盖
	mu sync.Mutex
}

// NewCatalogService 创建目录服务
func NewCatalogService(base []model.Product, repo repository.ProductRepository, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		base:     base,
		repo:     repo,
		validate: validator.New(),
		logger:   logger,
	}
}

// ==================== 读取 ====================

// State 当前目录状态快照
func (s *CatalogService) State(ctx context.Context) (catalog.CatalogState, error) {
	snap, err := s.repo.GetAll(ctx)
	if err != nil {
		return catalog.CatalogState{}, err
	}
	return catalog.CatalogState{
		Base:         s.base,
		Overrides:    snap.Overrides,
		UserProducts: snap.UserProducts,
	}, nil
}

// ListProducts 合并后的完整目录
func (s *CatalogService) ListProducts(ctx context.Context) ([]model.Product, error) {
	state, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	return state.Products(), nil
}

// GetProduct 按 id 查找
func (s *CatalogService) GetProduct(ctx context.Context, id string) (model.Product, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return model.Product{}, err
	}
	p, ok := catalog.FindProduct(products, id)
	if !ok {
		return model.Product{}, fmt.Errorf("%w: %s", errs.ErrProductNotFound, id)
	}
	return p, nil
}

// FilterProducts 分类 + 关键词本地过滤
func (s *CatalogService) FilterProducts(ctx context.Context, category, query string) ([]model.Product, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		category = catalog.AllCategories
	}
	return catalog.FilterProducts(products, category, query), nil
}

// Categories 分类列表 ("All" 在首位)
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Categories(products), nil
}

// CategoryCounts 各分类商品数量
func (s *CatalogService) CategoryCounts(ctx context.Context) ([]catalog.CategoryCount, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.CountByCategory(products), nil
}

// CompareProducts 按请求顺序返回待对比商品，最多 4 件，重复 id 只算一次
func (s *CatalogService) CompareProducts(ctx context.Context, ids []string) ([]model.Product, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	var list catalog.CompareList
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		p, ok := catalog.FindProduct(products, id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", errs.ErrProductNotFound, id)
		}
		if err := list.Toggle(p); err != nil {
			return nil, err
		}
	}
	return list.Items(), nil
}

// ==================== 写入 ====================

// Validate 结构校验 + 规格价格不变量
func (s *CatalogService) Validate(p model.Product) error {
	if err := s.validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return catalog.ValidateVariants(p)
}

// SaveProduct 保存整条商品
// 基础目录中的 id 写成覆盖记录，其余作为用户商品新建或原地更新；没有 id 时自动生成
func (s *CatalogService) SaveProduct(ctx context.Context, p model.Product) (model.Product, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = NewProductID()
	}
	if err := s.Validate(p); err != nil {
		return model.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if catalog.IsBaseID(s.base, p.ID) {
		if err := s.repo.SaveOverride(ctx, p.ID, p); err != nil {
			return model.Product{}, err
		}
		s.logger.Info("保存覆盖记录", zap.String("product_id", p.ID))
		return p, nil
	}

	if err := s.repo.SaveUserProduct(ctx, p); err != nil {
		return model.Product{}, err
	}
	s.logger.Info("保存用户商品", zap.String("product_id", p.ID))
	return p, nil
}

// PatchProduct 对商品打补丁并持久化被修改的那一份数据
func (s *CatalogService) PatchProduct(ctx context.Context, id string, patch catalog.ProductPatch) (model.Product, error) {
	if patch.IsEmpty() {
		return model.Product{}, fmt.Errorf("%w: 补丁为空", errs.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.State(ctx)
	if err != nil {
		return model.Product{}, err
	}

	res, err := catalog.ApplyOverride(state, id, patch)
	if err != nil {
		return model.Product{}, err
	}
	if err := s.Validate(res.Product); err != nil {
		return model.Product{}, err
	}

	switch res.Bucket {
	case catalog.BucketUser:
		err = s.repo.SaveUserProduct(ctx, res.Product)
	case catalog.BucketOverride:
		err = s.repo.SaveOverride(ctx, id, res.Product)
	}
	if err != nil {
		return model.Product{}, err
	}

	s.logger.Info("商品已更新",
		zap.String("product_id", id),
		zap.String("bucket", res.Bucket.String()))
	return res.Product, nil
}

// UpdateProductImage 只修改图片
func (s *CatalogService) UpdateProductImage(ctx context.Context, id, image string) (model.Product, error) {
	return s.PatchProduct(ctx, id, catalog.ImagePatch(image))
}

// NewProductID 新商品 id
func NewProductID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}
