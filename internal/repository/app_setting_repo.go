// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"knowledge-studio-server/internal/model"
)

// AppSettingRepository 应用设置数据访问层
type AppSettingRepository struct {
	db *gorm.DB
}

// NewAppSettingRepository 创建 AppSettingRepository 实例
func NewAppSettingRepository(db *gorm.DB) *AppSettingRepository {
	return &AppSettingRepository{db: db}
}

// Create 创建新设置
// 键唯一约束冲突时返回 gorm.ErrDuplicatedKey
func (r *AppSettingRepository) Create(ctx context.Context, setting *model.AppSettings) error {
	return r.db.WithContext(ctx).Create(setting).Error
}

// GetByKey 根据键获取设置
// 返回:
//   - *model.AppSettings: 设置对象，未找到返回 nil
//   - error: 数据库错误
func (r *AppSettingRepository) GetByKey(ctx context.Context, key string) (*model.AppSettings, error) {
	var setting model.AppSettings
	err := r.db.WithContext(ctx).First(&setting, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

// List 获取设置列表
// 按分类、键名排序
// 参数:
//   - category: 按分类过滤，空字符串表示不过滤
func (r *AppSettingRepository) List(ctx context.Context, category string) ([]model.AppSettings, error) {
	query := r.db.WithContext(ctx).Model(&model.AppSettings{})

	if category != "" {
		query = query.Where("category = ?", category)
	}

	var settings []model.AppSettings
	err := query.Order("category, key").Find(&settings).Error
	return settings, err
}

// Save 保存设置的全部字段
func (r *AppSettingRepository) Save(ctx context.Context, setting *model.AppSettings) error {
	return r.db.WithContext(ctx).Save(setting).Error
}

// Delete 删除设置
func (r *AppSettingRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Delete(&model.AppSettings{}, "key = ?", key).Error
}
