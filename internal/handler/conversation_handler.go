package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"knowledge-studio-server/internal/service"
	"knowledge-studio-server/pkg/response"
)

// ConversationHandler 对话请求处理器
type ConversationHandler struct {
	conversationService *service.ConversationService
}

// NewConversationHandler 创建 ConversationHandler 实例
func NewConversationHandler(conversationService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
	}
}

// ListConversations 获取对话列表
// @Summary 获取对话列表
// @Description 按最近更新时间倒序分页返回对话
// @Tags 对话
// @Produce json
// @Param skip query int false "跳过数量" default(0)
// @Param limit query int false "返回数量" default(100)
// @Success 200 {array} service.ConversationResponse
// @Router /api/conversations [get]
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	skip := cast.ToInt(c.DefaultQuery("skip", "0"))
	limit := cast.ToInt(c.DefaultQuery("limit", "100"))
	if skip < 0 {
		skip = 0
	}
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	conversations, err := h.conversationService.List(c.Request.Context(), skip, limit)
	if err != nil {
		response.InternalError(c, "获取对话列表失败")
		return
	}

	c.JSON(http.StatusOK, conversations)
}

// CreateConversation 创建新对话
// @Summary 创建对话
// @Tags 对话
// @Accept json
// @Produce json
// @Param body body service.CreateConversationRequest true "对话配置"
// @Success 201 {object} service.ConversationResponse
// @Router /api/conversations [post]
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	var req service.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "无效的请求参数")
		return
	}

	conversation, err := h.conversationService.Create(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c, "创建对话失败")
		return
	}

	c.JSON(http.StatusCreated, conversation)
}

// GetConversation 获取对话详情
// @Summary 获取对话详情
// @Tags 对话
// @Produce json
// @Param conversation_id path string true "对话ID"
// @Success 200 {object} service.ConversationResponse
// @Router /api/conversations/{conversation_id} [get]
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conversation, err := h.conversationService.Get(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			response.ConversationNotFound(c)
			return
		}
		response.InternalError(c, "获取对话详情失败")
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// DeleteConversation 删除对话
// @Summary 删除对话
// @Description 删除对话并级联删除其全部消息和知识点
// @Tags 对话
// @Produce json
// @Param conversation_id path string true "对话ID"
// @Success 200 {object} response.Response
// @Router /api/conversations/{conversation_id} [delete]
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	err := h.conversationService.Delete(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			response.ConversationNotFound(c)
			return
		}
		response.InternalError(c, "删除对话失败")
		return
	}

	response.SuccessWithMessage(c, "对话已删除", nil)
}

// AddMessageRequest 追加消息请求
type AddMessageRequest struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// AddMessage 向对话追加一条消息
// @Summary 追加消息
// @Description 直接向对话写入一条消息，不触发 AI 回复
// @Tags 对话
// @Accept json
// @Produce json
// @Param conversation_id path string true "对话ID"
// @Param body body AddMessageRequest true "消息内容"
// @Success 201 {object} service.MessageResponse
// @Router /api/conversations/{conversation_id}/messages [post]
func (h *ConversationHandler) AddMessage(c *gin.Context) {
	var req AddMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "无效的请求参数")
		return
	}

	message, err := h.conversationService.AddMessage(c.Request.Context(), c.Param("conversation_id"), req.Role, req.Content)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			response.ConversationNotFound(c)
			return
		}
		response.InternalError(c, "追加消息失败")
		return
	}

	c.JSON(http.StatusCreated, message)
}

// ListMessages 获取对话的所有消息
// @Summary 获取消息列表
// @Description 按创建顺序返回对话的全部消息
// @Tags 对话
// @Produce json
// @Param conversation_id path string true "对话ID"
// @Success 200 {array} service.MessageResponse
// @Router /api/conversations/{conversation_id}/messages [get]
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	messages, err := h.conversationService.ListMessages(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		response.InternalError(c, "获取消息列表失败")
		return
	}

	c.JSON(http.StatusOK, messages)
}
