// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"knowledge-studio-server/internal/model"
)

// APIKeyRepository API Key 存储数据访问层
type APIKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository 创建 APIKeyRepository 实例
func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create 创建新的 Key 记录
func (r *APIKeyRepository) Create(ctx context.Context, storage *model.APIKeyStorage) error {
	return r.db.WithContext(ctx).Create(storage).Error
}

// GetByProvider 根据提供商获取 Key 记录
// 返回:
//   - *model.APIKeyStorage: 记录对象，未找到返回 nil
//   - error: 数据库错误
func (r *APIKeyRepository) GetByProvider(ctx context.Context, provider string) (*model.APIKeyStorage, error) {
	var storage model.APIKeyStorage
	err := r.db.WithContext(ctx).First(&storage, "provider = ?", provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &storage, nil
}

// List 获取所有 Key 记录
func (r *APIKeyRepository) List(ctx context.Context) ([]model.APIKeyStorage, error) {
	var storages []model.APIKeyStorage
	err := r.db.WithContext(ctx).Find(&storages).Error
	return storages, err
}

// Save 保存 Key 记录的全部字段
// 同一提供商重复保存时原地覆盖，不会产生第二行
func (r *APIKeyRepository) Save(ctx context.Context, storage *model.APIKeyStorage) error {
	return r.db.WithContext(ctx).Save(storage).Error
}

// Delete 删除提供商的 Key 记录
func (r *APIKeyRepository) Delete(ctx context.Context, provider string) error {
	return r.db.WithContext(ctx).Delete(&model.APIKeyStorage{}, "provider = ?", provider).Error
}
