// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UnderstandingLevel 知识点理解程度常量
const (
	LevelNotUnderstood       = "not_understood"       // 未理解
	LevelPartiallyUnderstood = "partially_understood" // 部分理解
	LevelMastered            = "mastered"             // 已掌握
)

// KnowledgePoint 知识点模型
// 对应数据库表 knowledge_points
// 表示用户在某条消息内容的一段字符区间上做的标注
// 区间约束: 0 <= start_offset < end_offset <= len(message.content)
type KnowledgePoint struct {
	// ID 知识点唯一标识，UUID 字符串
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`

	// ConversationID 所属对话ID
	ConversationID string `gorm:"type:varchar(36);index;not null" json:"conversation_id"`

	// MessageID 被标注的消息ID
	MessageID string `gorm:"type:varchar(36);index;not null" json:"message_id"`

	// SelectedText 选中的文本
	SelectedText string `gorm:"type:text;not null" json:"selected_text"`

	// StartOffset 选区起始偏移（字符）
	StartOffset int `gorm:"not null" json:"start_offset"`

	// EndOffset 选区结束偏移（字符）
	EndOffset int `gorm:"not null" json:"end_offset"`

	// UnderstandingLevel 理解程度
	// not_understood / partially_understood / mastered
	UnderstandingLevel string `gorm:"size:50;not null" json:"understanding_level"`

	// Notes 用户笔记，可选
	Notes *string `gorm:"type:text" json:"notes,omitempty"`

	// Questions 用户提出的问题列表，JSON 存储
	Questions []string `gorm:"serializer:json" json:"questions,omitempty"`

	// TopicID 关联的主题ID，可选（非拥有关系）
	TopicID *string `gorm:"type:varchar(36);index" json:"topic_id,omitempty"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 更新时间
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Conversation 所属对话（多对一关系）
	Conversation *Conversation `gorm:"foreignKey:ConversationID" json:"conversation,omitempty"`

	// Message 被标注的消息（多对一关系，非拥有）
	Message *Message `gorm:"foreignKey:MessageID" json:"message,omitempty"`

	// Topic 关联主题（多对一关系，非拥有）
	Topic *Topic `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
}

// TableName 指定表名
func (KnowledgePoint) TableName() string {
	return "knowledge_points"
}

// BeforeCreate 创建前自动生成 UUID 主键
func (k *KnowledgePoint) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}

// ExplorationLink 探索链接模型
// 对应数据库表 exploration_links
// 记录由某个知识点触发的 父对话 -> 子对话 分支，是关系表而非拥有关系
type ExplorationLink struct {
	// ID 链接唯一标识，UUID 字符串
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`

	// ParentConversationID 父对话ID
	ParentConversationID string `gorm:"type:varchar(36);index;not null" json:"parent_conversation_id"`

	// ChildConversationID 子对话ID
	ChildConversationID string `gorm:"type:varchar(36);index;not null" json:"child_conversation_id"`

	// KnowledgePointID 触发分支的知识点ID
	KnowledgePointID string `gorm:"type:varchar(36);index;not null" json:"knowledge_point_id"`

	// Depth 探索深度，从 1 开始
	Depth int `gorm:"default:1" json:"depth"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// KnowledgePoint 触发分支的知识点（多对一关系）
	KnowledgePoint *KnowledgePoint `gorm:"foreignKey:KnowledgePointID" json:"knowledge_point,omitempty"`
}

// TableName 指定表名
func (ExplorationLink) TableName() string {
	return "exploration_links"
}

// BeforeCreate 创建前自动生成 UUID 主键
func (e *ExplorationLink) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Topic 主题模型
// 对应数据库表 topics
// 用户自定义的标签，名称不要求唯一
type Topic struct {
	// ID 主题唯一标识，UUID 字符串
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`

	// Name 主题名称
	Name string `gorm:"size:255;not null" json:"name"`

	// Description 主题描述，可选
	Description *string `gorm:"type:text" json:"description,omitempty"`

	// Color 主题颜色，十六进制颜色值
	Color string `gorm:"size:7;default:#6366f1" json:"color"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 更新时间
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// KnowledgePoints 主题下的知识点（一对多关系，非拥有）
	KnowledgePoints []KnowledgePoint `gorm:"foreignKey:TopicID" json:"knowledge_points,omitempty"`
}

// TableName 指定表名
func (Topic) TableName() string {
	return "topics"
}

// BeforeCreate 创建前自动生成 UUID 主键
func (t *Topic) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
