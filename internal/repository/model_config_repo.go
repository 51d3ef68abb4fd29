// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"knowledge-studio-server/internal/model"
)

// ModelConfigRepository 模型配置数据访问层
type ModelConfigRepository struct {
	db *gorm.DB
}

// NewModelConfigRepository 创建 ModelConfigRepository 实例
func NewModelConfigRepository(db *gorm.DB) *ModelConfigRepository {
	return &ModelConfigRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓库
func (r *ModelConfigRepository) WithTx(tx *gorm.DB) *ModelConfigRepository {
	return &ModelConfigRepository{db: tx}
}

// Create 创建新模型配置
func (r *ModelConfigRepository) Create(ctx context.Context, config *model.ModelConfig) error {
	return r.db.WithContext(ctx).Create(config).Error
}

// GetByID 根据 ID 获取模型配置
// 返回:
//   - *model.ModelConfig: 配置对象，未找到返回 nil
//   - error: 数据库错误
func (r *ModelConfigRepository) GetByID(ctx context.Context, id string) (*model.ModelConfig, error) {
	var config model.ModelConfig
	err := r.db.WithContext(ctx).First(&config, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

// List 获取模型配置列表
// 默认配置排在最前，其余按创建时间倒序
// 参数:
//   - provider: 按提供商过滤，空字符串表示不过滤
//   - isActive: 按启用状态过滤，nil 表示不过滤
func (r *ModelConfigRepository) List(ctx context.Context, provider string, isActive *bool) ([]model.ModelConfig, error) {
	query := r.db.WithContext(ctx).Model(&model.ModelConfig{})

	if provider != "" {
		query = query.Where("provider = ?", provider)
	}
	if isActive != nil {
		query = query.Where("is_active = ?", *isActive)
	}

	var configs []model.ModelConfig
	err := query.Order("is_default DESC, created_at DESC").Find(&configs).Error
	return configs, err
}

// Save 保存模型配置的全部字段
func (r *ModelConfigRepository) Save(ctx context.Context, config *model.ModelConfig) error {
	return r.db.WithContext(ctx).Save(config).Error
}

// DemoteDefaults 取消除指定 ID 以外的所有默认标记
// 必须与设置新默认的写入在同一事务内执行，
// 避免出现两个默认配置同时可见的窗口
func (r *ModelConfigRepository) DemoteDefaults(ctx context.Context, excludeID string) error {
	query := r.db.WithContext(ctx).Model(&model.ModelConfig{}).Where("is_default = ?", true)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	return query.Update("is_default", false).Error
}

// Delete 删除模型配置
func (r *ModelConfigRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.ModelConfig{}, "id = ?", id).Error
}
