// Package service 提供业务逻辑层的实现
package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"knowledge-studio-server/internal/model"
	"knowledge-studio-server/internal/repository"
)

// 设置服务相关错误
var (
	ErrModelConfigNotFound = errors.New("模型配置不存在")
	ErrSettingNotFound     = errors.New("设置不存在")
	ErrSettingKeyExists    = errors.New("设置键已存在")
	ErrAPIKeyNotFound      = errors.New("API Key 不存在")
)

// SettingsService 设置服务
// 管理模型配置、应用设置和按提供商存储的 API Key
type SettingsService struct {
	db              *gorm.DB
	modelConfigRepo *repository.ModelConfigRepository
	appSettingRepo  *repository.AppSettingRepository
	apiKeyRepo      *repository.APIKeyRepository
}

// NewSettingsService 创建 SettingsService 实例
func NewSettingsService(
	db *gorm.DB,
	modelConfigRepo *repository.ModelConfigRepository,
	appSettingRepo *repository.AppSettingRepository,
	apiKeyRepo *repository.APIKeyRepository,
) *SettingsService {
	return &SettingsService{
		db:              db,
		modelConfigRepo: modelConfigRepo,
		appSettingRepo:  appSettingRepo,
		apiKeyRepo:      apiKeyRepo,
	}
}

// ============= 模型配置 =============

// CreateModelConfigRequest 创建模型配置请求
type CreateModelConfigRequest struct {
	Name               string                 `json:"name" binding:"required"`
	Provider           string                 `json:"provider" binding:"required"`
	ModelID            string                 `json:"model_id" binding:"required"`
	APIKey             *string                `json:"api_key,omitempty"`
	BaseURL            *string                `json:"base_url,omitempty"`
	DefaultTemperature string                 `json:"default_temperature"`
	DefaultMaxTokens   *string                `json:"default_max_tokens,omitempty"`
	ExtraParams        map[string]interface{} `json:"extra_params,omitempty"`
	IsDefault          bool                   `json:"is_default"`
}

// UpdateModelConfigRequest 更新模型配置请求
// 指针字段为 nil 表示不修改，逐字段应用
type UpdateModelConfigRequest struct {
	Name               *string                `json:"name,omitempty"`
	APIKey             *string                `json:"api_key,omitempty"`
	BaseURL            *string                `json:"base_url,omitempty"`
	DefaultTemperature *string                `json:"default_temperature,omitempty"`
	DefaultMaxTokens   *string                `json:"default_max_tokens,omitempty"`
	ExtraParams        map[string]interface{} `json:"extra_params,omitempty"`
	IsActive           *bool                  `json:"is_active,omitempty"`
	IsDefault          *bool                  `json:"is_default,omitempty"`
}

// ModelConfigResponse 模型配置响应
// 不返回实际 Key，只返回是否已配置
type ModelConfigResponse struct {
	ID                 string                 `json:"id"`
	Name               string                 `json:"name"`
	Provider           string                 `json:"provider"`
	ModelID            string                 `json:"model_id"`
	BaseURL            *string                `json:"base_url,omitempty"`
	DefaultTemperature string                 `json:"default_temperature"`
	DefaultMaxTokens   *string                `json:"default_max_tokens,omitempty"`
	ExtraParams        map[string]interface{} `json:"extra_params,omitempty"`
	IsActive           bool                   `json:"is_active"`
	IsDefault          bool                   `json:"is_default"`
	HasAPIKey          bool                   `json:"has_api_key"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// CreateModelConfig 创建新的模型配置
// 设为默认时，在同一事务内取消其他配置的默认标记，
// 读取方在任何时刻都看不到两个默认配置
func (s *SettingsService) CreateModelConfig(ctx context.Context, req *CreateModelConfigRequest) (*ModelConfigResponse, error) {
	temperature := req.DefaultTemperature
	if temperature == "" {
		temperature = "0.7"
	}

	config := &model.ModelConfig{
		Name:               req.Name,
		Provider:           req.Provider,
		ModelID:            req.ModelID,
		APIKey:             req.APIKey,
		BaseURL:            req.BaseURL,
		DefaultTemperature: temperature,
		DefaultMaxTokens:   req.DefaultMaxTokens,
		ExtraParams:        req.ExtraParams,
		IsActive:           true,
		IsDefault:          req.IsDefault,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.modelConfigRepo.WithTx(tx)
		if req.IsDefault {
			if err := repo.DemoteDefaults(ctx, ""); err != nil {
				return err
			}
		}
		return repo.Create(ctx, config)
	})
	if err != nil {
		return nil, err
	}

	resp := toModelConfigResponse(config)
	return &resp, nil
}

// ListModelConfigs 获取模型配置列表
func (s *SettingsService) ListModelConfigs(ctx context.Context, provider string, isActive *bool) ([]ModelConfigResponse, error) {
	configs, err := s.modelConfigRepo.List(ctx, provider, isActive)
	if err != nil {
		return nil, err
	}

	result := make([]ModelConfigResponse, len(configs))
	for i := range configs {
		result[i] = toModelConfigResponse(&configs[i])
	}
	return result, nil
}

// GetModelConfig 获取单个模型配置
func (s *SettingsService) GetModelConfig(ctx context.Context, id string) (*ModelConfigResponse, error) {
	config, err := s.modelConfigRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, ErrModelConfigNotFound
	}

	resp := toModelConfigResponse(config)
	return &resp, nil
}

// UpdateModelConfig 更新模型配置
// 设为默认时，降级其他默认配置与本次写入在同一事务内完成
func (s *SettingsService) UpdateModelConfig(ctx context.Context, id string, req *UpdateModelConfigRequest) (*ModelConfigResponse, error) {
	var resp ModelConfigResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.modelConfigRepo.WithTx(tx)

		config, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if config == nil {
			return ErrModelConfigNotFound
		}

		if req.IsDefault != nil && *req.IsDefault {
			if err := repo.DemoteDefaults(ctx, id); err != nil {
				return err
			}
		}

		if req.Name != nil {
			config.Name = *req.Name
		}
		if req.APIKey != nil {
			config.APIKey = req.APIKey
		}
		if req.BaseURL != nil {
			config.BaseURL = req.BaseURL
		}
		if req.DefaultTemperature != nil {
			config.DefaultTemperature = *req.DefaultTemperature
		}
		if req.DefaultMaxTokens != nil {
			config.DefaultMaxTokens = req.DefaultMaxTokens
		}
		if req.ExtraParams != nil {
			config.ExtraParams = req.ExtraParams
		}
		if req.IsActive != nil {
			config.IsActive = *req.IsActive
		}
		if req.IsDefault != nil {
			config.IsDefault = *req.IsDefault
		}

		if err := repo.Save(ctx, config); err != nil {
			return err
		}

		resp = toModelConfigResponse(config)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteModelConfig 删除模型配置
func (s *SettingsService) DeleteModelConfig(ctx context.Context, id string) error {
	config, err := s.modelConfigRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if config == nil {
		return ErrModelConfigNotFound
	}

	return s.modelConfigRepo.Delete(ctx, id)
}

// ============= 应用设置 =============

// CreateAppSettingRequest 创建设置请求
type CreateAppSettingRequest struct {
	Key         string  `json:"key" binding:"required"`
	Value       *string `json:"value,omitempty"`
	ValueType   string  `json:"value_type"`
	Category    string  `json:"category"`
	Description *string `json:"description,omitempty"`
}

// UpdateAppSettingRequest 更新设置请求
type UpdateAppSettingRequest struct {
	Value       *string `json:"value,omitempty"`
	Description *string `json:"description,omitempty"`
}

// AppSettingResponse 设置响应
type AppSettingResponse struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Value       *string   `json:"value,omitempty"`
	ValueType   string    `json:"value_type"`
	Category    string    `json:"category"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateAppSetting 创建应用设置
// 键已存在时返回 ErrSettingKeyExists
func (s *SettingsService) CreateAppSetting(ctx context.Context, req *CreateAppSettingRequest) (*AppSettingResponse, error) {
	valueType := req.ValueType
	if valueType == "" {
		valueType = model.SettingTypeString
	}
	category := req.Category
	if category == "" {
		category = "general"
	}

	setting := &model.AppSettings{
		Key:         req.Key,
		Value:       req.Value,
		ValueType:   valueType,
		Category:    category,
		Description: req.Description,
	}

	if err := s.appSettingRepo.Create(ctx, setting); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSettingKeyExists
		}
		return nil, err
	}

	resp := toAppSettingResponse(setting)
	return &resp, nil
}

// ListAppSettings 获取设置列表
func (s *SettingsService) ListAppSettings(ctx context.Context, category string) ([]AppSettingResponse, error) {
	settings, err := s.appSettingRepo.List(ctx, category)
	if err != nil {
		return nil, err
	}

	result := make([]AppSettingResponse, len(settings))
	for i := range settings {
		result[i] = toAppSettingResponse(&settings[i])
	}
	return result, nil
}

// GetAppSetting 根据键获取设置
func (s *SettingsService) GetAppSetting(ctx context.Context, key string) (*AppSettingResponse, error) {
	setting, err := s.appSettingRepo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, ErrSettingNotFound
	}

	resp := toAppSettingResponse(setting)
	return &resp, nil
}

// UpdateAppSetting 更新设置
func (s *SettingsService) UpdateAppSetting(ctx context.Context, key string, req *UpdateAppSettingRequest) (*AppSettingResponse, error) {
	setting, err := s.appSettingRepo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, ErrSettingNotFound
	}

	if req.Value != nil {
		setting.Value = req.Value
	}
	if req.Description != nil {
		setting.Description = req.Description
	}

	if err := s.appSettingRepo.Save(ctx, setting); err != nil {
		return nil, err
	}

	resp := toAppSettingResponse(setting)
	return &resp, nil
}

// DeleteAppSetting 删除设置
func (s *SettingsService) DeleteAppSetting(ctx context.Context, key string) error {
	setting, err := s.appSettingRepo.GetByKey(ctx, key)
	if err != nil {
		return err
	}
	if setting == nil {
		return ErrSettingNotFound
	}

	return s.appSettingRepo.Delete(ctx, key)
}

// ============= API Key 存储 =============

// SaveAPIKeyRequest 保存 API Key 请求
type SaveAPIKeyRequest struct {
	Provider string `json:"provider" binding:"required"`
	APIKey   string `json:"api_key" binding:"required"`
}

// APIKeyResponse API Key 状态响应
// 永远不返回实际的 Key
type APIKeyResponse struct {
	Provider      string     `json:"provider"`
	IsValid       bool       `json:"is_valid"`
	LastValidated *time.Time `json:"last_validated,omitempty"`
	HasKey        bool       `json:"has_key"`
}

// SaveAPIKey 保存提供商的 API Key
// 同一提供商重复保存时原地覆盖并刷新更新时间，不会产生第二行
func (s *SettingsService) SaveAPIKey(ctx context.Context, req *SaveAPIKeyRequest) (*APIKeyResponse, error) {
	storage, err := s.apiKeyRepo.GetByProvider(ctx, req.Provider)
	if err != nil {
		return nil, err
	}

	if storage != nil {
		storage.EncryptedKey = &req.APIKey // TODO: 应该加密
		if err := s.apiKeyRepo.Save(ctx, storage); err != nil {
			return nil, err
		}
	} else {
		storage = &model.APIKeyStorage{
			Provider:     req.Provider,
			EncryptedKey: &req.APIKey, // TODO: 应该加密
			IsValid:      true,
		}
		if err := s.apiKeyRepo.Create(ctx, storage); err != nil {
			return nil, err
		}
	}

	resp := toAPIKeyResponse(storage)
	return &resp, nil
}

// ListAPIKeys 获取所有 API Key 状态
func (s *SettingsService) ListAPIKeys(ctx context.Context) ([]APIKeyResponse, error) {
	storages, err := s.apiKeyRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]APIKeyResponse, len(storages))
	for i := range storages {
		result[i] = toAPIKeyResponse(&storages[i])
	}
	return result, nil
}

// GetAPIKeyStatus 获取特定提供商的 API Key 状态
// 记录不存在时返回空状态而非错误
func (s *SettingsService) GetAPIKeyStatus(ctx context.Context, provider string) (*APIKeyResponse, error) {
	storage, err := s.apiKeyRepo.GetByProvider(ctx, provider)
	if err != nil {
		return nil, err
	}

	if storage == nil {
		return &APIKeyResponse{Provider: provider, IsValid: false, HasKey: false}, nil
	}

	resp := toAPIKeyResponse(storage)
	return &resp, nil
}

// DeleteAPIKey 删除提供商的 API Key
func (s *SettingsService) DeleteAPIKey(ctx context.Context, provider string) error {
	storage, err := s.apiKeyRepo.GetByProvider(ctx, provider)
	if err != nil {
		return err
	}
	if storage == nil {
		return ErrAPIKeyNotFound
	}

	return s.apiKeyRepo.Delete(ctx, provider)
}

// toModelConfigResponse 把配置记录映射为响应结构
func toModelConfigResponse(c *model.ModelConfig) ModelConfigResponse {
	return ModelConfigResponse{
		ID:                 c.ID,
		Name:               c.Name,
		Provider:           c.Provider,
		ModelID:            c.ModelID,
		BaseURL:            c.BaseURL,
		DefaultTemperature: c.DefaultTemperature,
		DefaultMaxTokens:   c.DefaultMaxTokens,
		ExtraParams:        c.ExtraParams,
		IsActive:           c.IsActive,
		IsDefault:          c.IsDefault,
		HasAPIKey:          c.APIKey != nil && *c.APIKey != "",
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

// toAppSettingResponse 把设置记录映射为响应结构
func toAppSettingResponse(a *model.AppSettings) AppSettingResponse {
	return AppSettingResponse{
		ID:          a.ID,
		Key:         a.Key,
		Value:       a.Value,
		ValueType:   a.ValueType,
		Category:    a.Category,
		Description: a.Description,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// toAPIKeyResponse 把 Key 记录映射为状态响应
func toAPIKeyResponse(a *model.APIKeyStorage) APIKeyResponse {
	return APIKeyResponse{
		Provider:      a.Provider,
		IsValid:       a.IsValid,
		LastValidated: a.LastValidated,
		HasKey:        a.EncryptedKey != nil && *a.EncryptedKey != "",
	}
}
