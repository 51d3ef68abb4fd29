package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// KnowledgeHandler 知识点请求处理器
// 知识点的读写目前由桌面端本地完成，这里只保留占位接口
type KnowledgeHandler struct{}

// NewKnowledgeHandler 创建 KnowledgeHandler 实例
func NewKnowledgeHandler() *KnowledgeHandler {
	return &KnowledgeHandler{}
}

// ListKnowledgePoints 获取知识点列表
// @Summary 获取知识点列表
// @Tags 知识点
// @Produce json
// @Router /api/knowledge [get]
func (h *KnowledgeHandler) ListKnowledgePoints(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Knowledge points endpoint - TODO"})
}

// CreateKnowledgePoint 创建知识点
// @Summary 创建知识点
// @Tags 知识点
// @Produce json
// @Router /api/knowledge [post]
func (h *KnowledgeHandler) CreateKnowledgePoint(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Create knowledge point - TODO"})
}
