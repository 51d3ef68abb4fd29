// Package service 提供业务逻辑层的实现
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"knowledge-studio-server/internal/llm"
	"knowledge-studio-server/internal/model"
	"knowledge-studio-server/internal/repository"
)

// 聊天服务相关错误
var (
	ErrModelNotSupported = errors.New("不支持的模型")
)

// defaultTemperature 请求未指定时使用的温度参数
const defaultTemperature float32 = 0.7

// CompletionGateway 补全网关接口
// 由 llm.Gateway 实现，测试中可替换为假实现
type CompletionGateway interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
	Stream(ctx context.Context, req llm.Request) (llm.TokenStream, error)
}

// StreamSink 流式回复的接收端
// 由 HTTP 层实现，负责把事件写成具体的线上格式
type StreamSink interface {
	// SendContent 发送一段增量文本
	SendContent(delta string) error
	// SendDone 发送完成事件，携带已落库的助手消息 ID
	SendDone(messageID string) error
	// SendError 发送终止错误事件
	SendError(message string) error
}

// ChatService 聊天服务
// 驱动一次完整的聊天交换：写入用户消息、加载历史、
// 调用补全网关、写入助手回复，保证落库内容与客户端收到的内容一致
type ChatService struct {
	db               *gorm.DB
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	apiKeyRepo       *repository.APIKeyRepository
	gateway          CompletionGateway
	catalog          *llm.Catalog
	ambientKeys      map[string]string

	// 同一对话同时只允许一个进行中的聊天交换，
	// 避免两次并发发送各自读到不完整的历史；
	// 与对话服务的消息追加路径共用同一把锁
	locker *ConversationLocker
}

// NewChatService 创建 ChatService 实例
func NewChatService(
	db *gorm.DB,
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	apiKeyRepo *repository.APIKeyRepository,
	gateway CompletionGateway,
	catalog *llm.Catalog,
	ambientKeys map[string]string,
	locker *ConversationLocker,
) *ChatService {
	return &ChatService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		apiKeyRepo:       apiKeyRepo,
		gateway:          gateway,
		catalog:          catalog,
		ambientKeys:      ambientKeys,
		locker:           locker,
	}
}

// ChatRequest 聊天请求
type ChatRequest struct {
	ConversationID string   `json:"conversation_id" binding:"required"`
	Content        string   `json:"content" binding:"required"`
	ModelProvider  string   `json:"model_provider" binding:"required"`
	ModelName      string   `json:"model_name" binding:"required"`
	APIKey         *string  `json:"api_key,omitempty"`
	Temperature    *float32 `json:"temperature,omitempty"`
	MaxTokens      *int     `json:"max_tokens,omitempty"`
	Stream         bool     `json:"stream"`
}

// ChatResponse 非流式聊天响应
type ChatResponse struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
	Role      string `json:"role"`
}

// Chat 发送消息并获取 AI 回复（非流式）
//
// 整个交换在一个事务内执行：查找对话、校验模型（两者都在任何写入之前）、
// 写入用户消息、加载完整历史、调用补全、写入助手消息。
// 补全失败时事务回滚，本次交换不留任何痕迹。
func (s *ChatService) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	unlock := s.locker.Lock(req.ConversationID)
	defer unlock()

	var resp *ChatResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		convRepo := s.conversationRepo.WithTx(tx)
		msgRepo := s.messageRepo.WithTx(tx)

		conversation, err := convRepo.GetByID(ctx, req.ConversationID)
		if err != nil {
			return err
		}
		if conversation == nil {
			return ErrConversationNotFound
		}

		// 模型校验必须先于任何写入，不支持的模型请求不留痕迹
		if !s.catalog.Validate(req.ModelProvider, req.ModelName) {
			return fmt.Errorf("%w: 提供商 %s 不支持模型 %s",
				ErrModelNotSupported, req.ModelProvider, req.ModelName)
		}

		userMessage := &model.Message{
			ConversationID: req.ConversationID,
			Role:           model.MessageRoleUser,
			Content:        req.Content,
		}
		if err := msgRepo.Create(ctx, userMessage); err != nil {
			return err
		}

		history, err := msgRepo.GetByConversationID(ctx, req.ConversationID)
		if err != nil {
			return err
		}

		content, err := s.gateway.Complete(ctx, s.buildLLMRequest(ctx, req, history))
		if err != nil {
			return err
		}

		assistantMessage := &model.Message{
			ConversationID: req.ConversationID,
			Role:           model.MessageRoleAssistant,
			Content:        content,
		}
		if err := msgRepo.Create(ctx, assistantMessage); err != nil {
			return err
		}

		resp = &ChatResponse{
			MessageID: assistantMessage.ID,
			Content:   content,
			Role:      model.MessageRoleAssistant,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ChatStream 发送消息并获取 AI 流式回复
//
// 用户消息在拨号外部服务之前独立提交，流中途失败时用户消息仍然保留，
// 对话此时只有用户回合、没有助手回合，这是可接受的降级状态，
// 调用方可以对同一对话重试。
//
// 进入流式阶段后的所有失败都通过 sink.SendError 作为线上事件发出，
// 不再返回 error；返回 error 只发生在流式阶段开始之前。
func (s *ChatService) ChatStream(ctx context.Context, req *ChatRequest, sink StreamSink) error {
	unlock := s.locker.Lock(req.ConversationID)
	defer unlock()

	conversation, err := s.conversationRepo.GetByID(ctx, req.ConversationID)
	if err != nil {
		return err
	}
	if conversation == nil {
		return ErrConversationNotFound
	}

	if !s.catalog.Validate(req.ModelProvider, req.ModelName) {
		return fmt.Errorf("%w: 提供商 %s 不支持模型 %s",
			ErrModelNotSupported, req.ModelProvider, req.ModelName)
	}

	userMessage := &model.Message{
		ConversationID: req.ConversationID,
		Role:           model.MessageRoleUser,
		Content:        req.Content,
	}
	if err := s.messageRepo.Create(ctx, userMessage); err != nil {
		return err
	}

	history, err := s.messageRepo.GetByConversationID(ctx, req.ConversationID)
	if err != nil {
		return err
	}

	stream, err := s.gateway.Stream(ctx, s.buildLLMRequest(ctx, req, history))
	if err != nil {
		return sink.SendError(err.Error())
	}
	defer stream.Close()

	// 累积所有已转发的增量，流正常结束后作为一条助手消息落库，
	// 落库内容与客户端实际收到的内容严格一致
	var full strings.Builder
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// 不落库部分回复
			log.Errorf("chat stream interrupted: conversation=%s err=%v", req.ConversationID, err)
			return sink.SendError(err.Error())
		}

		full.WriteString(delta)
		if err := sink.SendContent(delta); err != nil {
			// 客户端已断开，放弃本次回复
			log.Warnf("chat stream client gone: conversation=%s err=%v", req.ConversationID, err)
			return nil
		}
	}

	assistantMessage := &model.Message{
		ConversationID: req.ConversationID,
		Role:           model.MessageRoleAssistant,
		Content:        full.String(),
	}
	if err := s.messageRepo.Create(ctx, assistantMessage); err != nil {
		log.Errorf("chat stream persist failed: conversation=%s err=%v", req.ConversationID, err)
		return sink.SendError(err.Error())
	}

	return sink.SendDone(assistantMessage.ID)
}

// SendMessageRequest 简化发送请求
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
	Role    string `json:"role" binding:"required"`
}

// SendMessageResponse 简化发送响应，同时返回两条已落库的消息
type SendMessageResponse struct {
	UserMessage      MessageResponse `json:"user_message"`
	AssistantMessage MessageResponse `json:"assistant_message"`
}

// SendMessage 使用对话自身保存的提供商和模型发送消息（非流式）
func (s *ChatService) SendMessage(ctx context.Context, conversationID string, req *SendMessageRequest) (*SendMessageResponse, error) {
	unlock := s.locker.Lock(conversationID)
	defer unlock()

	var resp *SendMessageResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		convRepo := s.conversationRepo.WithTx(tx)
		msgRepo := s.messageRepo.WithTx(tx)

		conversation, err := convRepo.GetByID(ctx, conversationID)
		if err != nil {
			return err
		}
		if conversation == nil {
			return ErrConversationNotFound
		}

		userMessage := &model.Message{
			ConversationID: conversationID,
			Role:           req.Role,
			Content:        req.Content,
		}
		if err := msgRepo.Create(ctx, userMessage); err != nil {
			return err
		}

		history, err := msgRepo.GetByConversationID(ctx, conversationID)
		if err != nil {
			return err
		}

		content, err := s.gateway.Complete(ctx, llm.Request{
			Provider:    conversation.ModelProvider,
			Model:       conversation.ModelName,
			Messages:    toLLMMessages(history),
			APIKey:      s.resolveAPIKey(ctx, conversation.ModelProvider, nil),
			Temperature: defaultTemperature,
		})
		if err != nil {
			return err
		}

		assistantMessage := &model.Message{
			ConversationID: conversationID,
			Role:           model.MessageRoleAssistant,
			Content:        content,
		}
		if err := msgRepo.Create(ctx, assistantMessage); err != nil {
			return err
		}

		resp = &SendMessageResponse{
			UserMessage:      toMessageResponse(userMessage),
			AssistantMessage: toMessageResponse(assistantMessage),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// buildLLMRequest 把请求和完整历史投影为补全调用参数
// 历史包含刚写入的用户回合，助手总能看到完整的先前对话
func (s *ChatService) buildLLMRequest(ctx context.Context, req *ChatRequest, history []model.Message) llm.Request {
	temperature := defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	maxTokens := 0
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	return llm.Request{
		Provider:    req.ModelProvider,
		Model:       req.ModelName,
		Messages:    toLLMMessages(history),
		APIKey:      s.resolveAPIKey(ctx, req.ModelProvider, req.APIKey),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

// resolveAPIKey 解析本次调用使用的凭证
// 优先级：请求参数 > 数据库中保存的 Key > 配置/环境变量
// 凭证只作为显式参数传递，绝不写入进程级全局状态
func (s *ChatService) resolveAPIKey(ctx context.Context, provider string, override *string) string {
	if override != nil && *override != "" {
		return *override
	}

	if s.apiKeyRepo != nil {
		storage, err := s.apiKeyRepo.GetByProvider(ctx, provider)
		if err != nil {
			log.Warnf("api key lookup failed: provider=%s err=%v", provider, err)
		} else if storage != nil && storage.EncryptedKey != nil && *storage.EncryptedKey != "" {
			return *storage.EncryptedKey
		}
	}

	return s.ambientKeys[provider]
}

// toLLMMessages 把消息记录投影为最小的 (role, content) 序列
func toLLMMessages(messages []model.Message) []llm.Message {
	result := make([]llm.Message, len(messages))
	for i, m := range messages {
		result[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return result
}
