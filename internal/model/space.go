// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultSpaceColor 知识空间默认颜色
const DefaultSpaceColor = "#0ea5e9"

// KnowledgeSpace 知识空间模型
// 对应数据库表 knowledge_spaces
// 名称全局唯一，重复创建在存储层触发唯一约束冲突
type KnowledgeSpace struct {
	// ID 空间唯一标识，UUID 字符串
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`

	// Name 空间名称，全局唯一
	Name string `gorm:"size:255;uniqueIndex;not null" json:"name"`

	// Description 空间描述，可选
	Description *string `gorm:"type:text" json:"description,omitempty"`

	// Color 空间颜色，十六进制颜色值
	Color string `gorm:"size:7;default:#0ea5e9" json:"color"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 更新时间
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (KnowledgeSpace) TableName() string {
	return "knowledge_spaces"
}

// BeforeCreate 创建前自动生成 UUID 主键
func (s *KnowledgeSpace) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
