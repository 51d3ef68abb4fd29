package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledge-studio-server/internal/llm"
)

// ModelHandler 模型目录请求处理器
type ModelHandler struct {
	catalog *llm.Catalog
}

// NewModelHandler 创建 ModelHandler 实例
func NewModelHandler(catalog *llm.Catalog) *ModelHandler {
	return &ModelHandler{catalog: catalog}
}

// ModelInfo 目录中的单个模型
type ModelInfo struct {
	Provider    string `json:"provider"`
	ModelID     string `json:"model_id"`
	DisplayName string `json:"display_name"`
	Available   bool   `json:"available"`
}

// ListModels 获取全部支持的模型
// @Summary 获取模型目录
// @Description 返回全部提供商的模型平铺列表，按提供商顺序排列
// @Tags 模型
// @Produce json
// @Success 200 {array} ModelInfo
// @Router /api/models [get]
func (h *ModelHandler) ListModels(c *gin.Context) {
	models := make([]ModelInfo, 0)
	for _, provider := range h.catalog.Providers() {
		models = append(models, h.providerModels(provider)...)
	}

	c.JSON(http.StatusOK, models)
}

// ListProviderModels 获取指定提供商的模型
// @Summary 获取提供商的模型列表
// @Description 未知提供商返回空列表而非错误
// @Tags 模型
// @Produce json
// @Param provider path string true "提供商"
// @Success 200 {array} ModelInfo
// @Router /api/models/{provider} [get]
func (h *ModelHandler) ListProviderModels(c *gin.Context) {
	c.JSON(http.StatusOK, h.providerModels(c.Param("provider")))
}

// providerModels 把提供商的模型标识投影为目录条目
func (h *ModelHandler) providerModels(provider string) []ModelInfo {
	ids := h.catalog.Models(provider)
	models := make([]ModelInfo, len(ids))
	for i, id := range ids {
		models[i] = ModelInfo{
			Provider:    provider,
			ModelID:     id,
			DisplayName: llm.DisplayName(id),
			Available:   true,
		}
	}
	return models
}
