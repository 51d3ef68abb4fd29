package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledge-studio-server/internal/service"
	"knowledge-studio-server/pkg/response"
)

// SettingsHandler 设置请求处理器
// 覆盖模型配置、应用设置和 API Key 三组接口
type SettingsHandler struct {
	settingsService *service.SettingsService
}

// NewSettingsHandler 创建 SettingsHandler 实例
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
	}
}

// ============= 模型配置 =============

// ListModelConfigs 获取模型配置列表
// @Summary 获取模型配置列表
// @Tags 设置
// @Produce json
// @Param provider query string false "按提供商过滤"
// @Param is_active query bool false "按启用状态过滤"
// @Success 200 {array} service.ModelConfigResponse
// @Router /api/settings/models [get]
func (h *SettingsHandler) ListModelConfigs(c *gin.Context) {
	provider := c.Query("provider")

	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		value := raw == "true" || raw == "1"
		isActive = &value
	}

	configs, err := h.settingsService.ListModelConfigs(c.Request.Context(), provider, isActive)
	if err != nil {
		response.InternalError(c, "获取模型配置列表失败")
		return
	}

	c.JSON(http.StatusOK, configs)
}

// CreateModelConfig 创建模型配置
// @Summary 创建模型配置
// @Description 设为默认时其他配置的默认标记在同一事务内取消
// @Tags 设置
// @Accept json
// @Produce json
// @Param body body service.CreateModelConfigRequest true "配置内容"
// @Success 201 {object} service.ModelConfigResponse
// @Router /api/settings/models [post]
func (h *SettingsHandler) CreateModelConfig(c *gin.Context) {
	var req service.CreateModelConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "无效的请求参数")
		return
	}

	config, err := h.settingsService.CreateModelConfig(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c, "创建模型配置失败")
		return
	}

	c.JSON(http.StatusCreated, config)
}

// GetModelConfig 获取模型配置详情
// @Summary 获取模型配置详情
// @Tags 设置
// @Produce json
// @Param config_id path string true "配置ID"
// @Success 200 {object} service.ModelConfigResponse
// @Router /api/settings/models/{config_id} [get]
func (h *SettingsHandler) GetModelConfig(c *gin.Context) {
	config, err := h.settingsService.GetModelConfig(c.Request.Context(), c.Param("config_id"))
	if err != nil {
		if errors.Is(err, service.ErrModelConfigNotFound) {
			response.NotFound(c, "模型配置不存在")
			return
		}
		response.InternalError(c, "获取模型配置失败")
		return
	}

	c.JSON(http.StatusOK, config)
}

// UpdateModelConfig 更新模型配置
// @Summary 更新模型配置
// @Tags 设置
// @Accept json
// @Produce json
// @Param config_id path string true "配置ID"
// @Param body body service.UpdateModelConfigRequest true "更新内容"
// @Success 200 {object} service.ModelConfigResponse
// @Router /api/settings/models/{config_id} [put]
func (h *SettingsHandler) UpdateModelConfig(c *gin.Context) {
	var req service.UpdateModelConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "无效的请求参数")
		return
	}

	config, err := h.settingsService.UpdateModelConfig(c.Request.Context(), c.Param("config_id"), &req)
	if err != nil {
		if errors.Is(err, service.ErrModelConfigNotFound) {
			response.NotFound(c, "模型配置不存在")
			return
		}
		response.InternalError(c, "更新模型配置失败")
		return
	}

	c.JSON(http.StatusOK, config)
}

// DeleteModelConfig 删除模型配置
// @Summary 删除模型配置
// @Tags 设置
// @Produce json
// @Param config_id path string true "配置ID"
// @Success 200 {object} response.Response
// @Router /api/settings/models/{config_id} [delete]
func (h *SettingsHandler) DeleteModelConfig(c *gin.Context) {
	err := h.settingsService.DeleteModelConfig(c.Request.Context(), c.Param("config_id"))
	if err != nil {
		if errors.Is(err, service.ErrModelConfigNotFound) {
			response.NotFound(c, "模型配置不存在")
			return
		}
		response.InternalError(c, "删除模型配置失败")
		return
	}

	response.SuccessWithMessage(c, "模型配置已删除", nil)
}

// ============= 应用设置 =============

// ListAppSettings 获取应用设置列表
// @Summary 获取设置列表
// @Tags 设置
// @Produce json
// @Param category query string false "按分类过滤"
// @Success 200 {array} service.AppSettingResponse
// @Router /api/settings/app [get]
func (h *SettingsHandler) ListAppSettings(c *gin.Context) {
	settings, err := h.settingsService.ListAppSettings(c.Request.Context(), c.Query("category"))
	if err != nil {
		response.InternalError(c, "获取设置列表失败")
		return
	}

	c.JSON(http.StatusOK, settings)
}

// CreateAppSetting 创建应用设置
// @Summary 创建设置
// @Description 设置键唯一，重复键返回 409
// @Tags 设置
// @Accept json
// @Produce json
// @Param body body service.CreateAppSettingRequest true "设置内容"
// @Success 201 {object} service.AppSettingResponse
// @Router /api/settings/app [post]
func (h *SettingsHandler) CreateAppSetting(c *gin.Context) {
	var req service.CreateAppSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "无效的请求参数")
		return
	}

	setting, err := h.settingsService.CreateAppSetting(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrSettingKeyExists) {
			response.SettingKeyExists(c)
			return
		}
		response.InternalError(c, "创建设置失败")
		return
	}

	c.JSON(http.StatusCreated, setting)
}

// GetAppSetting 获取设置详情
// @Summary 获取设置详情
// @Tags 设置
// @Produce json
// @Param key path string true "设置键"
// @Success 200 {object} service.AppSettingResponse
// @Router /api/settings/app/{key} [get]
func (h *SettingsHandler) GetAppSetting(c *gin.Context) {
	setting, err := h.settingsService.GetAppSetting(c.Request.Context(), c.Param("key"))
	if err != nil {
		if errors.Is(err, service.ErrSettingNotFound) {
			response.NotFound(c, "设置不存在")
			return
		}
		response.InternalError(c, "获取设置失败")
		return
	}

	c.JSON(http.StatusOK, setting)
}

// UpdateAppSetting 更新设置
// @Summary 更新设置
// @Tags 设置
// @Accept json
// @Produce json
// @Param key path string true "设置键"
// @Param body body service.UpdateAppSettingRequest true "更新内容"
// @Success 200 {object} service.AppSettingResponse
// @Router /api/settings/app/{key} [put]
func (h *SettingsHandler) UpdateAppSetting(c *gin.Context) {
	var req service.UpdateAppSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "无效的请求参数")
		return
	}

	setting, err := h.settingsService.UpdateAppSetting(c.Request.Context(), c.Param("key"), &req)
	if err != nil {
		if errors.Is(err, service.ErrSettingNotFound) {
			response.NotFound(c, "设置不存在")
			return
		}
		response.InternalError(c, "更新设置失败")
		return
	}

	c.JSON(http.StatusOK, setting)
}

// DeleteAppSetting 删除设置
// @Summary 删除设置
// @Tags 设置
// @Produce json
// @Param key path string true "设置键"
// @Success 200 {object} response.Response
// @Router /api/settings/app/{key} [delete]
func (h *SettingsHandler) DeleteAppSetting(c *gin.Context) {
	err := h.settingsService.DeleteAppSetting(c.Request.Context(), c.Param("key"))
	if err != nil {
		if errors.Is(err, service.ErrSettingNotFound) {
			response.NotFound(c, "设置不存在")
			return
		}
		response.InternalError(c, "删除设置失败")
		return
	}

	response.SuccessWithMessage(c, "设置已删除", nil)
}

// ============= API Key =============

// ListAPIKeys 获取所有 API Key 状态
// @Summary 获取 API Key 状态列表
// @Description 只返回是否配置和校验状态，不返回实际 Key
// @Tags 设置
// @Produce json
// @Success 200 {array} service.APIKeyResponse
// @Router /api/settings/api-keys [get]
func (h *SettingsHandler) ListAPIKeys(c *gin.Context) {
	keys, err := h.settingsService.ListAPIKeys(c.Request.Context())
	if err != nil {
		response.InternalError(c, "获取 API Key 列表失败")
		return
	}

	c.JSON(http.StatusOK, keys)
}

// SaveAPIKey 保存提供商的 API Key
// @Summary 保存 API Key
// @Description 同一提供商重复保存时覆盖已有 Key，不产生新记录
// @Tags 设置
// @Accept json
// @Produce json
// @Param body body service.SaveAPIKeyRequest true "Key 内容"
// @Success 200 {object} service.APIKeyResponse
// @Router /api/settings/api-keys [post]
func (h *SettingsHandler) SaveAPIKey(c *gin.Context) {
	var req service.SaveAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "无效的请求参数")
		return
	}

	key, err := h.settingsService.SaveAPIKey(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c, "保存 API Key 失败")
		return
	}

	c.JSON(http.StatusOK, key)
}

// GetAPIKeyStatus 获取提供商的 API Key 状态
// @Summary 获取 API Key 状态
// @Description 提供商没有保存过 Key 时返回空状态而非 404
// @Tags 设置
// @Produce json
// @Param provider path string true "提供商"
// @Success 200 {object} service.APIKeyResponse
// @Router /api/settings/api-keys/{provider} [get]
func (h *SettingsHandler) GetAPIKeyStatus(c *gin.Context) {
	key, err := h.settingsService.GetAPIKeyStatus(c.Request.Context(), c.Param("provider"))
	if err != nil {
		response.InternalError(c, "获取 API Key 状态失败")
		return
	}

	c.JSON(http.StatusOK, key)
}

// DeleteAPIKey 删除提供商的 API Key
// @Summary 删除 API Key
// @Tags 设置
// @Produce json
// @Param provider path string true "提供商"
// @Success 200 {object} response.Response
// @Router /api/settings/api-keys/{provider} [delete]
func (h *SettingsHandler) DeleteAPIKey(c *gin.Context) {
	err := h.settingsService.DeleteAPIKey(c.Request.Context(), c.Param("provider"))
	if err != nil {
		if errors.Is(err, service.ErrAPIKeyNotFound) {
			response.NotFound(c, "API Key 不存在")
			return
		}
		response.InternalError(c, "删除 API Key 失败")
		return
	}

	response.SuccessWithMessage(c, "API Key 已删除", nil)
}
