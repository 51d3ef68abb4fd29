// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppSettings 的值类型常量
const (
	SettingTypeString  = "string"
	SettingTypeNumber  = "number"
	SettingTypeBoolean = "boolean"
	SettingTypeJSON    = "json"
)

// ModelConfig 用户保存的模型配置
// 对应数据库表 model_configs
// 全表至多一行 is_default = true，切换默认配置必须在同一事务内完成
type ModelConfig struct {
	// ID 配置唯一标识，UUID 字符串
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`

	// Name 用户自定义名称，如 "我的 GPT-4"
	Name string `gorm:"size:255;not null" json:"name"`

	// Provider 模型提供商
	// openai / anthropic / google / ollama / custom
	Provider string `gorm:"size:50;not null" json:"provider"`

	// ModelID 模型 ID，如 gpt-4
	ModelID string `gorm:"size:255;not null" json:"model_id"`

	// APIKey API 密钥，可选
	// 明文存储，接口响应中永远不返回
	APIKey *string `gorm:"type:text" json:"-"`

	// BaseURL 自定义 Base URL，可选
	BaseURL *string `gorm:"size:500" json:"base_url,omitempty"`

	// DefaultTemperature 默认温度参数
	// 存储为字符串以支持精确值
	DefaultTemperature string `gorm:"size:10;default:0.7" json:"default_temperature"`

	// DefaultMaxTokens 默认最大生成 token 数，可选，存储为字符串
	DefaultMaxTokens *string `gorm:"size:10" json:"default_max_tokens,omitempty"`

	// ExtraParams 其他参数，如 top_p、frequency_penalty 等，JSON 存储
	ExtraParams map[string]interface{} `gorm:"serializer:json" json:"extra_params,omitempty"`

	// IsActive 配置是否启用
	IsActive bool `gorm:"default:true" json:"is_active"`

	// IsDefault 是否为默认模型
	IsDefault bool `gorm:"default:false" json:"is_default"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 更新时间
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (ModelConfig) TableName() string {
	return "model_configs"
}

// BeforeCreate 创建前自动生成 UUID 主键
func (m *ModelConfig) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// AppSettings 应用全局设置
// 对应数据库表 app_settings
// 通用的键值配置行，值的解释由调用方根据 value_type 负责
type AppSettings struct {
	// ID 设置唯一标识，UUID 字符串
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`

	// Key 设置键，如 "theme"、"language"，全局唯一
	Key string `gorm:"size:255;uniqueIndex;not null" json:"key"`

	// Value 设置值，可选
	Value *string `gorm:"type:text" json:"value,omitempty"`

	// ValueType 值类型标记
	// string / number / boolean / json
	ValueType string `gorm:"size:50;default:string" json:"value_type"`

	// Category 设置分类
	// general / appearance / privacy / advanced
	Category string `gorm:"size:100;default:general" json:"category"`

	// Description 设置描述，可选
	Description *string `gorm:"type:text" json:"description,omitempty"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 更新时间
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (AppSettings) TableName() string {
	return "app_settings"
}

// BeforeCreate 创建前自动生成 UUID 主键
func (a *AppSettings) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// APIKeyStorage 按提供商存储的 API Key
// 对应数据库表 api_key_storage
// 每个提供商至多一行，重复保存时原地覆盖
// TODO: Key 目前明文存储，后续应加密
type APIKeyStorage struct {
	// ID 记录唯一标识，UUID 字符串
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`

	// Provider 提供商名称，全局唯一
	Provider string `gorm:"size:50;uniqueIndex;not null" json:"provider"`

	// EncryptedKey 存储的 Key
	// 接口响应中永远不返回
	EncryptedKey *string `gorm:"type:text" json:"-"`

	// IsValid Key 是否有效
	IsValid bool `gorm:"default:true" json:"is_valid"`

	// LastValidated 上次验证时间，可选
	LastValidated *time.Time `json:"last_validated,omitempty"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// UpdatedAt 更新时间
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (APIKeyStorage) TableName() string {
	return "api_key_storage"
}

// BeforeCreate 创建前自动生成 UUID 主键
func (a *APIKeyStorage) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
