package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"knowledge-studio-server/internal/model"
	"knowledge-studio-server/internal/repository"
	"knowledge-studio-server/pkg/util"
)

// newSettingsTestEnv 组装设置服务
func newSettingsTestEnv(t *testing.T) (*SettingsService, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	svc := NewSettingsService(db,
		repository.NewModelConfigRepository(db),
		repository.NewAppSettingRepository(db),
		repository.NewAPIKeyRepository(db),
	)
	return svc, db
}

func TestCreateModelConfigDemotesPreviousDefault(t *testing.T) {
	svc, db := newSettingsTestEnv(t)
	ctx := context.Background()

	first, err := svc.CreateModelConfig(ctx, &CreateModelConfigRequest{
		Name:      "主力模型",
		Provider:  model.ProviderOpenAI,
		ModelID:   "gpt-4",
		IsDefault: true,
	})
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := svc.CreateModelConfig(ctx, &CreateModelConfigRequest{
		Name:      "备用模型",
		Provider:  model.ProviderAnthropic,
		ModelID:   "claude-3-5-sonnet-20241022",
		IsDefault: true,
	})
	require.NoError(t, err)
	assert.True(t, second.IsDefault)

	// 任何时刻最多只有一个默认配置
	var count int64
	require.NoError(t, db.Model(&model.ModelConfig{}).Where("is_default = ?", true).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	refreshed, err := svc.GetModelConfig(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.IsDefault)
}

func TestUpdateModelConfigDefaultSwitch(t *testing.T) {
	svc, db := newSettingsTestEnv(t)
	ctx := context.Background()

	first, err := svc.CreateModelConfig(ctx, &CreateModelConfigRequest{
		Name: "A", Provider: model.ProviderOpenAI, ModelID: "gpt-4", IsDefault: true,
	})
	require.NoError(t, err)
	second, err := svc.CreateModelConfig(ctx, &CreateModelConfigRequest{
		Name: "B", Provider: model.ProviderOpenAI, ModelID: "gpt-4o",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateModelConfig(ctx, second.ID, &UpdateModelConfigRequest{IsDefault: util.BoolPtr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)

	var count int64
	require.NoError(t, db.Model(&model.ModelConfig{}).Where("is_default = ?", true).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	refreshed, err := svc.GetModelConfig(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.IsDefault)
}

func TestModelConfigResponseNeverExposesKey(t *testing.T) {
	svc, _ := newSettingsTestEnv(t)
	ctx := context.Background()

	created, err := svc.CreateModelConfig(ctx, &CreateModelConfigRequest{
		Name: "A", Provider: model.ProviderOpenAI, ModelID: "gpt-4", APIKey: util.StringPtr("sk-secret"),
	})
	require.NoError(t, err)

	// 响应只暴露是否已配置
	assert.True(t, created.HasAPIKey)

	configs, err := svc.ListModelConfigs(ctx, "", nil)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.True(t, configs[0].HasAPIKey)
}

func TestListModelConfigsFilters(t *testing.T) {
	svc, _ := newSettingsTestEnv(t)
	ctx := context.Background()

	_, err := svc.CreateModelConfig(ctx, &CreateModelConfigRequest{
		Name: "A", Provider: model.ProviderOpenAI, ModelID: "gpt-4",
	})
	require.NoError(t, err)
	created, err := svc.CreateModelConfig(ctx, &CreateModelConfigRequest{
		Name: "B", Provider: model.ProviderAnthropic, ModelID: "claude-3-haiku-20240307",
	})
	require.NoError(t, err)

	_, err = svc.UpdateModelConfig(ctx, created.ID, &UpdateModelConfigRequest{IsActive: util.BoolPtr(false)})
	require.NoError(t, err)

	byProvider, err := svc.ListModelConfigs(ctx, model.ProviderOpenAI, nil)
	require.NoError(t, err)
	require.Len(t, byProvider, 1)
	assert.Equal(t, "A", byProvider[0].Name)

	byActive, err := svc.ListModelConfigs(ctx, "", util.BoolPtr(true))
	require.NoError(t, err)
	require.Len(t, byActive, 1)
	assert.Equal(t, "A", byActive[0].Name)
}

func TestCreateAppSettingDuplicateKey(t *testing.T) {
	svc, _ := newSettingsTestEnv(t)
	ctx := context.Background()

	_, err := svc.CreateAppSetting(ctx, &CreateAppSettingRequest{Key: "theme", Value: util.StringPtr("dark")})
	require.NoError(t, err)

	_, err = svc.CreateAppSetting(ctx, &CreateAppSettingRequest{Key: "theme", Value: util.StringPtr("dark")})
	require.ErrorIs(t, err, ErrSettingKeyExists)
}

func TestUpdateAppSetting(t *testing.T) {
	svc, _ := newSettingsTestEnv(t)
	ctx := context.Background()

	_, err := svc.CreateAppSetting(ctx, &CreateAppSettingRequest{Key: "theme", Value: util.StringPtr("dark")})
	require.NoError(t, err)

	updated, err := svc.UpdateAppSetting(ctx, "theme", &UpdateAppSettingRequest{Value: util.StringPtr("light")})
	require.NoError(t, err)
	require.NotNil(t, updated.Value)
	assert.Equal(t, "light", *updated.Value)

	_, err = svc.UpdateAppSetting(ctx, "missing", &UpdateAppSettingRequest{Value: util.StringPtr("light")})
	require.ErrorIs(t, err, ErrSettingNotFound)
}

func TestSaveAPIKeyOverwritesInPlace(t *testing.T) {
	svc, db := newSettingsTestEnv(t)
	ctx := context.Background()

	_, err := svc.SaveAPIKey(ctx, &SaveAPIKeyRequest{Provider: model.ProviderOpenAI, APIKey: "key-1"})
	require.NoError(t, err)
	_, err = svc.SaveAPIKey(ctx, &SaveAPIKeyRequest{Provider: model.ProviderOpenAI, APIKey: "key-2"})
	require.NoError(t, err)

	// 重复保存覆盖已有记录，不产生第二行
	var storages []model.APIKeyStorage
	require.NoError(t, db.Find(&storages, "provider = ?", model.ProviderOpenAI).Error)
	require.Len(t, storages, 1)
	require.NotNil(t, storages[0].EncryptedKey)
	assert.Equal(t, "key-2", *storages[0].EncryptedKey)
}

func TestGetAPIKeyStatusAbsentProvider(t *testing.T) {
	svc, _ := newSettingsTestEnv(t)

	// 从未保存过 Key 的提供商返回空状态而非错误
	status, err := svc.GetAPIKeyStatus(context.Background(), model.ProviderOllama)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderOllama, status.Provider)
	assert.False(t, status.HasKey)
	assert.False(t, status.IsValid)
}

func TestDeleteAPIKey(t *testing.T) {
	svc, _ := newSettingsTestEnv(t)
	ctx := context.Background()

	_, err := svc.SaveAPIKey(ctx, &SaveAPIKeyRequest{Provider: model.ProviderOpenAI, APIKey: "key"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAPIKey(ctx, model.ProviderOpenAI))
	require.ErrorIs(t, svc.DeleteAPIKey(ctx, model.ProviderOpenAI), ErrAPIKeyNotFound)
}
