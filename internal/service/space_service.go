// Package service 提供业务逻辑层的实现
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"knowledge-studio-server/internal/model"
	"knowledge-studio-server/internal/repository"
)

// 知识空间服务相关错误
var (
	ErrSpaceNotFound    = errors.New("空间不存在")
	ErrSpaceNameExists  = errors.New("该空间名称已存在")
	ErrSpaceNameInvalid = errors.New("空间名称不能为空且长度不能超过 255 字符")
)

// SpaceService 知识空间服务
type SpaceService struct {
	spaceRepo *repository.SpaceRepository
}

// NewSpaceService 创建 SpaceService 实例
func NewSpaceService(spaceRepo *repository.SpaceRepository) *SpaceService {
	return &SpaceService{spaceRepo: spaceRepo}
}

// CreateSpaceRequest 创建空间请求
type CreateSpaceRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

// UpdateSpaceRequest 更新空间请求
// 指针字段为 nil 表示不修改，逐字段应用
type UpdateSpaceRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

// SpaceResponse 空间响应
type SpaceResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// List 获取全部知识空间
func (s *SpaceService) List(ctx context.Context) ([]SpaceResponse, error) {
	spaces, err := s.spaceRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]SpaceResponse, len(spaces))
	for i := range spaces {
		result[i] = toSpaceResponse(&spaces[i])
	}
	return result, nil
}

// Create 创建新知识空间
// 名称去除首尾空白后校验，重复名称返回 ErrSpaceNameExists
func (s *SpaceService) Create(ctx context.Context, req *CreateSpaceRequest) (*SpaceResponse, error) {
	name, err := validateSpaceName(req.Name)
	if err != nil {
		return nil, err
	}

	color := model.DefaultSpaceColor
	if req.Color != nil && *req.Color != "" {
		color = *req.Color
	}

	space := &model.KnowledgeSpace{
		Name:        name,
		Description: req.Description,
		Color:       color,
	}

	if err := s.spaceRepo.Create(ctx, space); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSpaceNameExists
		}
		return nil, err
	}

	resp := toSpaceResponse(space)
	return &resp, nil
}

// Update 更新知识空间
// 只应用请求中携带的字段
func (s *SpaceService) Update(ctx context.Context, id string, req *UpdateSpaceRequest) (*SpaceResponse, error) {
	space, err := s.spaceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if space == nil {
		return nil, ErrSpaceNotFound
	}

	if req.Name != nil {
		name, err := validateSpaceName(*req.Name)
		if err != nil {
			return nil, err
		}
		space.Name = name
	}
	if req.Description != nil {
		space.Description = req.Description
	}
	if req.Color != nil && *req.Color != "" {
		space.Color = *req.Color
	}

	if err := s.spaceRepo.Save(ctx, space); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSpaceNameExists
		}
		return nil, err
	}

	resp := toSpaceResponse(space)
	return &resp, nil
}

// Delete 删除知识空间
func (s *SpaceService) Delete(ctx context.Context, id string) error {
	space, err := s.spaceRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if space == nil {
		return ErrSpaceNotFound
	}

	return s.spaceRepo.Delete(ctx, id)
}

// validateSpaceName 校验并规范化空间名称
func validateSpaceName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 255 {
		return "", ErrSpaceNameInvalid
	}
	return name, nil
}

// toSpaceResponse 把空间记录映射为响应结构
func toSpaceResponse(s *model.KnowledgeSpace) SpaceResponse {
	return SpaceResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Color:       s.Color,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
