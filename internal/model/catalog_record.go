package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ==================== 持久化记录 ====================
// 只有覆盖记录和用户商品会被持久化，合并后的目录是派生视图

// CatalogOverride 基础目录商品的覆盖记录 (整条替换，不是增量)
type CatalogOverride struct {
	ID        string         `gorm:"primaryKey;size:64" json:"id"`
	Payload   datatypes.JSON `gorm:"type:json;not null" json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (CatalogOverride) TableName() string {
	return "catalog_overrides"
}

// UserProduct 用户自建商品
// 按 CreatedAt 倒序展示 (最新创建的在最前)，原地更新，不会被自动删除
type UserProduct struct {
	ID        string         `gorm:"primaryKey;size:64" json:"id"`
	Payload   datatypes.JSON `gorm:"type:json;not null" json:"payload"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (UserProduct) TableName() string {
	return "user_products"
}

// ==================== 编解码 ====================

// EncodeProduct 序列化商品为 JSON 负载
func EncodeProduct(p Product) (datatypes.JSON, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("序列化商品失败: %w", err)
	}
	return datatypes.JSON(b), nil
}

// DecodeProduct 反序列化 JSON 负载
func DecodeProduct(payload datatypes.JSON) (Product, error) {
	var p Product
	if err := json.Unmarshal(payload, &p); err != nil {
		return Product{}, fmt.Errorf("解析商品失败: %w", err)
	}
	return p, nil
}
