// Package service 提供业务逻辑层的实现
package service

import (
	"context"
	"errors"
	"time"

	"knowledge-studio-server/internal/model"
	"knowledge-studio-server/internal/repository"
)

// 对话服务相关错误
var (
	ErrConversationNotFound = errors.New("对话不存在")
)

// ConversationService 对话服务
type ConversationService struct {
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository

	// 与聊天服务共用的对话级锁，消息追加与聊天交换互斥
	locker *ConversationLocker
}

// NewConversationService 创建 ConversationService 实例
func NewConversationService(
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	locker *ConversationLocker,
) *ConversationService {
	return &ConversationService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		locker:           locker,
	}
}

// CreateConversationRequest 创建对话请求
type CreateConversationRequest struct {
	Title         string  `json:"title" binding:"required"`
	ModelProvider string  `json:"model_provider" binding:"required"`
	ModelName     string  `json:"model_name" binding:"required"`
	ProjectID     *string `json:"project_id,omitempty"`
}

// ConversationResponse 对话响应
// 响应形状是显式的映射结果，不随存储结构变化
type ConversationResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	ModelProvider string    `json:"model_provider"`
	ModelName     string    `json:"model_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	MessageCount  int       `json:"message_count"`
	HasKnowledge  bool      `json:"has_knowledge"`
}

// MessageResponse 消息响应
type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Create 创建新对话
func (s *ConversationService) Create(ctx context.Context, req *CreateConversationRequest) (*ConversationResponse, error) {
	conversation := &model.Conversation{
		Title:         req.Title,
		ModelProvider: req.ModelProvider,
		ModelName:     req.ModelName,
		ProjectID:     req.ProjectID,
	}

	if err := s.conversationRepo.Create(ctx, conversation); err != nil {
		return nil, err
	}

	return toConversationResponse(conversation), nil
}

// List 分页获取对话列表
// 按最近更新时间倒序，附带消息数和是否有知识点标注
func (s *ConversationService) List(ctx context.Context, skip, limit int) ([]ConversationResponse, error) {
	conversations, err := s.conversationRepo.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}

	result := make([]ConversationResponse, len(conversations))
	for i := range conversations {
		result[i] = *toConversationResponse(&conversations[i])
	}
	return result, nil
}

// Get 根据 ID 获取对话
func (s *ConversationService) Get(ctx context.Context, id string) (*ConversationResponse, error) {
	conversation, err := s.conversationRepo.GetByIDWithRelations(ctx, id)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}

	return toConversationResponse(conversation), nil
}

// Delete 删除对话
// 级联删除其全部消息和知识点
func (s *ConversationService) Delete(ctx context.Context, id string) error {
	conversation, err := s.conversationRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if conversation == nil {
		return ErrConversationNotFound
	}

	return s.conversationRepo.Delete(ctx, id)
}

// AddMessage 向对话追加一条消息
// 对话不存在时返回 ErrConversationNotFound
// 持有对话锁写入，与进行中的聊天交换互斥，序号分配不会重复
func (s *ConversationService) AddMessage(ctx context.Context, conversationID, role, content string) (*MessageResponse, error) {
	unlock := s.locker.Lock(conversationID)
	defer unlock()

	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}

	message := &model.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	resp := toMessageResponse(message)
	return &resp, nil
}

// ListMessages 获取对话的所有消息
// 按创建时间正序排列，即完整的对话记录
func (s *ConversationService) ListMessages(ctx context.Context, conversationID string) ([]MessageResponse, error) {
	messages, err := s.messageRepo.GetByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	result := make([]MessageResponse, len(messages))
	for i := range messages {
		result[i] = toMessageResponse(&messages[i])
	}
	return result, nil
}

// toConversationResponse 把对话记录映射为响应结构
// MessageCount 和 HasKnowledge 由预加载的关联计算
func toConversationResponse(c *model.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:            c.ID,
		Title:         c.Title,
		ModelProvider: c.ModelProvider,
		ModelName:     c.ModelName,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		MessageCount:  len(c.Messages),
		HasKnowledge:  len(c.KnowledgePoints) > 0,
	}
}

// toMessageResponse 把消息记录映射为响应结构
func toMessageResponse(m *model.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           m.Role,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}
