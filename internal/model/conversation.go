// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ModelProvider 模型提供商常量
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Conversation 对话模型
// 对应数据库表 conversations
// 一个对话绑定一个 (provider, model) 组合，并按时间顺序拥有若干消息
type Conversation struct {
	// ID 对话唯一标识，UUID 字符串
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`

	// Title 对话标题
	Title string `gorm:"size:255;not null" json:"title"`

	// ModelProvider 模型提供商
	// openai / anthropic / google / ollama
	ModelProvider string `gorm:"size:50;not null" json:"model_provider"`

	// ModelName 模型名称，如 gpt-4
	ModelName string `gorm:"size:100;not null" json:"model_name"`

	// ProjectID 所属项目ID，可选
	ProjectID *string `gorm:"type:varchar(36);index" json:"project_id,omitempty"`

	// CreatedAt 创建时间，由 GORM 自动填充
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 更新时间，由 GORM 自动更新
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Messages 对话中的所有消息（一对多关系）
	// 删除对话时级联删除
	Messages []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`

	// KnowledgePoints 对话中标注的知识点（一对多关系）
	KnowledgePoints []KnowledgePoint `gorm:"foreignKey:ConversationID" json:"knowledge_points,omitempty"`

	// Project 所属项目（多对一关系）
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

// TableName 指定表名
func (Conversation) TableName() string {
	return "conversations"
}

// BeforeCreate 创建前自动生成 UUID 主键
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
