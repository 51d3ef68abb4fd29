package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"knowledge-studio-server/internal/llm"
	"knowledge-studio-server/internal/model"
	"knowledge-studio-server/internal/repository"
	"knowledge-studio-server/pkg/util"
)

// newTestDB 创建基于临时文件的 SQLite 测试数据库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.Project{},
		&model.Conversation{},
		&model.Message{},
		&model.Topic{},
		&model.KnowledgePoint{},
		&model.ExplorationLink{},
		&model.KnowledgeSpace{},
		&model.ModelConfig{},
		&model.AppSettings{},
		&model.APIKeyStorage{},
	))

	return db
}

// fakeGateway 测试用补全网关
// 记录收到的请求，按预设内容或错误响应
type fakeGateway struct {
	content  string
	deltas   []string
	err      error
	lastReq  llm.Request
	streamAt int // 出错前成功返回的增量数量
}

func (g *fakeGateway) Complete(ctx context.Context, req llm.Request) (string, error) {
	g.lastReq = req
	if g.err != nil {
		return "", g.err
	}
	return g.content, nil
}

func (g *fakeGateway) Stream(ctx context.Context, req llm.Request) (llm.TokenStream, error) {
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	return &fakeTokenStream{deltas: g.deltas, failAt: g.streamAt}, nil
}

// fakeTokenStream 按预设增量逐个返回的流
// failAt 大于 0 时在返回该数量的增量后出错
type fakeTokenStream struct {
	deltas []string
	pos    int
	failAt int
}

func (s *fakeTokenStream) Recv() (string, error) {
	if s.failAt > 0 && s.pos >= s.failAt {
		return "", errors.New("LLM service error: connection reset")
	}
	if s.pos >= len(s.deltas) {
		return "", io.EOF
	}
	delta := s.deltas[s.pos]
	s.pos++
	return delta, nil
}

func (s *fakeTokenStream) Close() error { return nil }

// recordingSink 记录收到的全部流式事件
type recordingSink struct {
	contents  []string
	doneID    string
	errMsg    string
	dropAfter int // 大于 0 时在收到该数量的增量后模拟客户端断开
}

func (s *recordingSink) SendContent(delta string) error {
	if s.dropAfter > 0 && len(s.contents) >= s.dropAfter {
		return errors.New("client gone")
	}
	s.contents = append(s.contents, delta)
	return nil
}

func (s *recordingSink) SendDone(messageID string) error {
	s.doneID = messageID
	return nil
}

func (s *recordingSink) SendError(message string) error {
	s.errMsg = message
	return nil
}

// newChatTestEnv 组装聊天服务和一条已存在的对话
func newChatTestEnv(t *testing.T, gateway *fakeGateway) (*ChatService, *gorm.DB, string) {
	t.Helper()

	db := newTestDB(t)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)

	svc := NewChatService(db, conversationRepo, messageRepo, apiKeyRepo, gateway,
		llm.NewCatalog(nil), map[string]string{model.ProviderOpenAI: "env-key"},
		NewConversationLocker())

	conversation := &model.Conversation{
		Title:         "测试对话",
		ModelProvider: model.ProviderOpenAI,
		ModelName:     "gpt-4",
	}
	require.NoError(t, conversationRepo.Create(context.Background(), conversation))

	return svc, db, conversation.ID
}

func TestChatPersistsBothTurns(t *testing.T) {
	gateway := &fakeGateway{content: "你好，我是助手"}
	svc, db, conversationID := newChatTestEnv(t, gateway)

	resp, err := svc.Chat(context.Background(), &ChatRequest{
		ConversationID: conversationID,
		Content:        "你好",
		ModelProvider:  model.ProviderOpenAI,
		ModelName:      "gpt-4",
		Temperature:    util.Float32Ptr(0.2),
		MaxTokens:      util.IntPtr(256),
	})
	require.NoError(t, err)
	assert.Equal(t, "你好，我是助手", resp.Content)
	assert.Equal(t, model.MessageRoleAssistant, resp.Role)
	assert.NotEmpty(t, resp.MessageID)

	var messages []model.Message
	require.NoError(t, db.Order("seq ASC").Find(&messages, "conversation_id = ?", conversationID).Error)
	require.Len(t, messages, 2)
	assert.Equal(t, model.MessageRoleUser, messages[0].Role)
	assert.Equal(t, "你好", messages[0].Content)
	assert.Equal(t, model.MessageRoleAssistant, messages[1].Role)
	assert.Equal(t, resp.MessageID, messages[1].ID)

	// 网关看到的历史包含刚写入的用户回合，调用参数按请求透传
	require.Len(t, gateway.lastReq.Messages, 1)
	assert.Equal(t, "你好", gateway.lastReq.Messages[0].Content)
	assert.Equal(t, float32(0.2), gateway.lastReq.Temperature)
	assert.Equal(t, 256, gateway.lastReq.MaxTokens)
}

func TestChatGatewayFailureLeavesNoTrace(t *testing.T) {
	gateway := &fakeGateway{err: errors.New("LLM service error: boom")}
	svc, db, conversationID := newChatTestEnv(t, gateway)

	_, err := svc.Chat(context.Background(), &ChatRequest{
		ConversationID: conversationID,
		Content:        "你好",
		ModelProvider:  model.ProviderOpenAI,
		ModelName:      "gpt-4",
	})
	require.Error(t, err)

	// 补全失败时事务回滚，用户消息也不保留
	var count int64
	require.NoError(t, db.Model(&model.Message{}).Where("conversation_id = ?", conversationID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestChatUnsupportedModel(t *testing.T) {
	gateway := &fakeGateway{content: "不应该被调用"}
	svc, db, conversationID := newChatTestEnv(t, gateway)

	_, err := svc.Chat(context.Background(), &ChatRequest{
		ConversationID: conversationID,
		Content:        "你好",
		ModelProvider:  model.ProviderOpenAI,
		ModelName:      "claude-3-opus-20240229", // anthropic 的模型
	})
	require.ErrorIs(t, err, ErrModelNotSupported)

	var count int64
	require.NoError(t, db.Model(&model.Message{}).Where("conversation_id = ?", conversationID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestChatConversationNotFound(t *testing.T) {
	svc, _, _ := newChatTestEnv(t, &fakeGateway{})

	_, err := svc.Chat(context.Background(), &ChatRequest{
		ConversationID: "no-such-id",
		Content:        "你好",
		ModelProvider:  model.ProviderOpenAI,
		ModelName:      "gpt-4",
	})
	require.ErrorIs(t, err, ErrConversationNotFound)
}

func TestChatStreamPersistsForwardedContent(t *testing.T) {
	gateway := &fakeGateway{deltas: []string{"你好", "，我是", "助手"}}
	svc, db, conversationID := newChatTestEnv(t, gateway)

	sink := &recordingSink{}
	err := svc.ChatStream(context.Background(), &ChatRequest{
		ConversationID: conversationID,
		Content:        "你好",
		ModelProvider:  model.ProviderOpenAI,
		ModelName:      "gpt-4",
	}, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"你好", "，我是", "助手"}, sink.contents)
	assert.NotEmpty(t, sink.doneID)
	assert.Empty(t, sink.errMsg)

	// 落库内容与客户端收到的增量拼接严格一致
	var assistant model.Message
	require.NoError(t, db.First(&assistant, "id = ?", sink.doneID).Error)
	assert.Equal(t, "你好，我是助手", assistant.Content)
	assert.Equal(t, model.MessageRoleAssistant, assistant.Role)
}

func TestChatStreamMidStreamErrorKeepsUserTurnOnly(t *testing.T) {
	gateway := &fakeGateway{deltas: []string{"你好", "，我是"}, streamAt: 2}
	svc, db, conversationID := newChatTestEnv(t, gateway)

	sink := &recordingSink{}
	err := svc.ChatStream(context.Background(), &ChatRequest{
		ConversationID: conversationID,
		Content:        "你好",
		ModelProvider:  model.ProviderOpenAI,
		ModelName:      "gpt-4",
	}, sink)
	require.NoError(t, err)
	assert.NotEmpty(t, sink.errMsg)
	assert.Empty(t, sink.doneID)

	// 用户消息保留，部分回复不落库
	var messages []model.Message
	require.NoError(t, db.Order("seq ASC").Find(&messages, "conversation_id = ?", conversationID).Error)
	require.Len(t, messages, 1)
	assert.Equal(t, model.MessageRoleUser, messages[0].Role)
}

func TestChatStreamClientDisconnectDropsReply(t *testing.T) {
	gateway := &fakeGateway{deltas: []string{"你好", "，我是", "助手"}}
	svc, db, conversationID := newChatTestEnv(t, gateway)

	sink := &recordingSink{dropAfter: 1}
	err := svc.ChatStream(context.Background(), &ChatRequest{
		ConversationID: conversationID,
		Content:        "你好",
		ModelProvider:  model.ProviderOpenAI,
		ModelName:      "gpt-4",
	}, sink)
	require.NoError(t, err)
	assert.Empty(t, sink.doneID)

	// 客户端断开后助手回复不落库
	var count int64
	require.NoError(t, db.Model(&model.Message{}).
		Where("conversation_id = ? AND role = ?", conversationID, model.MessageRoleAssistant).
		Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestResolveAPIKeyPriority(t *testing.T) {
	gateway := &fakeGateway{content: "ok"}
	svc, db, conversationID := newChatTestEnv(t, gateway)

	req := &ChatRequest{
		ConversationID: conversationID,
		Content:        "你好",
		ModelProvider:  model.ProviderOpenAI,
		ModelName:      "gpt-4",
	}

	// 没有请求参数也没有存储的 Key 时使用环境级 Key
	_, err := svc.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "env-key", gateway.lastReq.APIKey)

	// 数据库中保存的 Key 优先于环境级 Key
	storedKey := "stored-key"
	require.NoError(t, db.Create(&model.APIKeyStorage{
		Provider:     model.ProviderOpenAI,
		EncryptedKey: &storedKey,
		IsValid:      true,
	}).Error)
	_, err = svc.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "stored-key", gateway.lastReq.APIKey)

	// 请求参数中的 Key 优先级最高
	req.APIKey = util.StringPtr("request-key")
	_, err = svc.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "request-key", gateway.lastReq.APIKey)
}

func TestSendMessageUsesConversationModel(t *testing.T) {
	gateway := &fakeGateway{content: "回复"}
	svc, _, conversationID := newChatTestEnv(t, gateway)

	resp, err := svc.SendMessage(context.Background(), conversationID, &SendMessageRequest{
		Content: "你好",
		Role:    model.MessageRoleUser,
	})
	require.NoError(t, err)
	assert.Equal(t, "你好", resp.UserMessage.Content)
	assert.Equal(t, "回复", resp.AssistantMessage.Content)

	// 使用对话创建时保存的提供商和模型
	assert.Equal(t, model.ProviderOpenAI, gateway.lastReq.Provider)
	assert.Equal(t, "gpt-4", gateway.lastReq.Model)
}
