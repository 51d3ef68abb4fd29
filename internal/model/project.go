// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project 项目模型
// 对应数据库表 projects
// 用于把多个对话归入同一个项目
type Project struct {
	// ID 项目唯一标识，UUID 字符串
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`

	// Name 项目名称
	Name string `gorm:"size:255;not null" json:"name"`

	// Description 项目描述，可选
	Description *string `gorm:"type:text" json:"description,omitempty"`

	// Color 项目颜色，十六进制颜色值
	Color string `gorm:"size:7;default:#6366f1" json:"color"`

	// Icon 项目图标
	Icon string `gorm:"size:50;default:📁" json:"icon"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 更新时间
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Conversations 项目下的对话（一对多关系）
	Conversations []Conversation `gorm:"foreignKey:ProjectID" json:"conversations,omitempty"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// BeforeCreate 创建前自动生成 UUID 主键
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
