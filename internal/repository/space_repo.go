// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"knowledge-studio-server/internal/model"
)

// SpaceRepository 知识空间数据访问层
type SpaceRepository struct {
	db *gorm.DB
}

// NewSpaceRepository 创建 SpaceRepository 实例
func NewSpaceRepository(db *gorm.DB) *SpaceRepository {
	return &SpaceRepository{db: db}
}

// Create 创建新知识空间
// 名称唯一约束冲突时返回 gorm.ErrDuplicatedKey
func (r *SpaceRepository) Create(ctx context.Context, space *model.KnowledgeSpace) error {
	return r.db.WithContext(ctx).Create(space).Error
}

// GetByID 根据 ID 获取知识空间
// 返回:
//   - *model.KnowledgeSpace: 空间对象，未找到返回 nil
//   - error: 数据库错误
func (r *SpaceRepository) GetByID(ctx context.Context, id string) (*model.KnowledgeSpace, error) {
	var space model.KnowledgeSpace
	err := r.db.WithContext(ctx).First(&space, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &space, nil
}

// List 获取全部知识空间
// 按创建时间倒序排列
func (r *SpaceRepository) List(ctx context.Context) ([]model.KnowledgeSpace, error) {
	var spaces []model.KnowledgeSpace
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&spaces).Error
	return spaces, err
}

// Save 保存知识空间的全部字段
// 名称唯一约束冲突时返回 gorm.ErrDuplicatedKey
func (r *SpaceRepository) Save(ctx context.Context, space *model.KnowledgeSpace) error {
	return r.db.WithContext(ctx).Save(space).Error
}

// Delete 删除知识空间
func (r *SpaceRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.KnowledgeSpace{}, "id = ?", id).Error
}
