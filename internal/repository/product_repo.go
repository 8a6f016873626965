package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"obra_catalog/internal/model"
	"obra_catalog/pkg/errs"
)

// ==================== 接口定义 ====================

// ProductRepository 目录持久化仓储
// 只保存覆盖记录和用户商品两份数据，基础目录随程序发布，不落库
type ProductRepository interface {
	GetAll(ctx context.Context) (*CatalogSnapshot, error)
	GetOverride(ctx context.Context, id string) (*model.Product, error)
	GetUserProduct(ctx context.Context, id string) (*model.Product, error)

	SaveOverride(ctx context.Context, id string, product model.Product) error
	SaveUserProduct(ctx context.Context, product model.Product) error

	// 事务
	WithTx(tx *gorm.DB) ProductRepository
	Transaction(ctx context.Context, fn func(txRepo ProductRepository) error) error
}

// CatalogSnapshot 某一时刻的持久化数据
type CatalogSnapshot struct {
	Overrides    map[string]model.Product
	UserProducts []model.Product // created_at 倒序
}

// ==================== 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建目录仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) GetAll(ctx context.Context) (*CatalogSnapshot, error) {
	var overrides []model.CatalogOverride
	if err := r.db.WithContext(ctx).Find(&overrides).Error; err != nil {
		return nil, fmt.Errorf("%w: 查询覆盖记录: %v", errs.ErrPersistence, err)
	}

	var users []model.UserProduct
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("%w: 查询用户商品: %v", errs.ErrPersistence, err)
	}

	snap := &CatalogSnapshot{
		Overrides:    make(map[string]model.Product, len(overrides)),
		UserProducts: make([]model.Product, 0, len(users)),
	}
	for _, o := range overrides {
		p, err := model.DecodeProduct(o.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: 覆盖记录 %s: %v", errs.ErrPersistence, o.ID, err)
		}
		snap.Overrides[o.ID] = p
	}
	for _, u := range users {
		p, err := model.DecodeProduct(u.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: 用户商品 %s: %v", errs.ErrPersistence, u.ID, err)
		}
		snap.UserProducts = append(snap.UserProducts, p)
	}
	return snap, nil
}

func (r *productRepo) GetOverride(ctx context.Context, id string) (*model.Product, error) {
	var rec model.CatalogOverride
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, wrapFindErr(err, id)
	}
	p, err := model.DecodeProduct(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return &p, nil
}

func (r *productRepo) GetUserProduct(ctx context.Context, id string) (*model.Product, error) {
	var rec model.UserProduct
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, wrapFindErr(err, id)
	}
	p, err := model.DecodeProduct(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return &p, nil
}

// SaveOverride 写入覆盖记录，已存在则整条替换
func (r *productRepo) SaveOverride(ctx context.Context, id string, product model.Product) error {
	payload, err := model.EncodeProduct(product)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	rec := model.CatalogOverride{ID: id, Payload: payload}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("%w: 保存覆盖记录 %s: %v", errs.ErrPersistence, id, err)
	}
	return nil
}

// SaveUserProduct 新建或原地更新用户商品，更新时保留创建时间 (即列表位置)
func (r *productRepo) SaveUserProduct(ctx context.Context, product model.Product) error {
	payload, err := model.EncodeProduct(product)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	rec := model.UserProduct{ID: product.ID, Payload: payload}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("%w: 保存用户商品 %s: %v", errs.ErrPersistence, product.ID, err)
	}
	return nil
}

func (r *productRepo) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepo{db: tx}
}

func (r *productRepo) Transaction(ctx context.Context, fn func(txRepo ProductRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func wrapFindErr(err error, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", errs.ErrProductNotFound, id)
	}
	return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
}
