// Package handler 提供 HTTP 请求处理器
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledge-studio-server/internal/service"
	"knowledge-studio-server/pkg/response"
)

// ChatHandler 聊天请求处理器
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// Chat 发送消息并获取 AI 回复（非流式）
// @Summary 发送聊天消息
// @Description 向指定对话发送消息并同步返回 AI 的完整回复
// @Tags 聊天
// @Accept json
// @Produce json
// @Param body body service.ChatRequest true "聊天请求"
// @Success 200 {object} service.ChatResponse
// @Router /api/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "无效的请求参数")
		return
	}

	resp, err := h.chatService.Chat(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			response.ConversationNotFound(c)
		case errors.Is(err, service.ErrModelNotSupported):
			response.ModelNotSupported(c, err.Error())
		default:
			response.InternalError(c, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ChatStream 发送消息并获取 AI 流式回复
// @Summary 发送聊天消息（流式）
// @Description 通过 SSE 逐段返回 AI 回复，最后发送 done 事件
// @Tags 聊天
// @Accept json
// @Produce text/event-stream
// @Param body body service.ChatRequest true "聊天请求"
// @Router /api/chat/stream [post]
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "无效的请求参数")
		return
	}

	// 进入流式阶段之前的失败仍走普通 JSON 响应，
	// 响应头在第一个事件写出时才发出
	err := h.chatService.ChatStream(c.Request.Context(), &req, &sseSink{c: c})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			response.ConversationNotFound(c)
		case errors.Is(err, service.ErrModelNotSupported):
			response.ModelNotSupported(c, err.Error())
		default:
			response.InternalError(c, err.Error())
		}
	}
}

// SendMessage 使用对话自身的模型配置发送消息
// @Summary 发送消息（简化接口）
// @Description 向指定对话发送消息，使用对话创建时保存的提供商和模型
// @Tags 聊天
// @Accept json
// @Produce json
// @Param conversation_id path string true "对话ID"
// @Param body body service.SendMessageRequest true "消息内容"
// @Success 200 {object} service.SendMessageResponse
// @Router /api/chat/{conversation_id} [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "无效的请求参数")
		return
	}

	resp, err := h.chatService.SendMessage(c.Request.Context(), conversationID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			response.ConversationNotFound(c)
		default:
			response.InternalError(c, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// sseSink 把流式事件写成 SSE 线上格式
// 每个事件一行 data: {json} 加空行，写完立即刷出
type sseSink struct {
	c       *gin.Context
	started bool
}

// writeFrame 序列化并写出一个 SSE 帧
// 第一个帧写出前先发送 SSE 响应头
func (s *sseSink) writeFrame(payload interface{}) error {
	if !s.started {
		s.c.Writer.Header().Set("Content-Type", "text/event-stream")
		s.c.Writer.Header().Set("Cache-Control", "no-cache")
		s.c.Writer.Header().Set("Connection", "keep-alive")
		s.c.Writer.Header().Set("X-Accel-Buffering", "no")
		s.c.Writer.WriteHeader(http.StatusOK)
		s.started = true
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.c.Writer, "data: %s\n\n", data); err != nil {
		return err
	}
	s.c.Writer.Flush()
	return nil
}

// SendContent 发送一段增量文本
func (s *sseSink) SendContent(delta string) error {
	return s.writeFrame(gin.H{"content": delta})
}

// SendDone 发送完成事件，携带助手消息 ID
func (s *sseSink) SendDone(messageID string) error {
	return s.writeFrame(gin.H{"type": "done", "message_id": messageID})
}

// SendError 发送终止错误事件
func (s *sseSink) SendError(message string) error {
	return s.writeFrame(gin.H{"type": "error", "error": message})
}
