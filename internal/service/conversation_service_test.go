package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"knowledge-studio-server/internal/model"
	"knowledge-studio-server/internal/repository"
)

func newConversationTestEnv(t *testing.T) (*ConversationService, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	svc := NewConversationService(
		repository.NewConversationRepository(db),
		repository.NewMessageRepository(db),
		NewConversationLocker(),
	)
	return svc, db
}

func TestCreateAndGetConversation(t *testing.T) {
	svc, _ := newConversationTestEnv(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateConversationRequest{
		Title:         "测试对话",
		ModelProvider: model.ProviderOpenAI,
		ModelName:     "gpt-4",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 0, created.MessageCount)
	assert.False(t, created.HasKnowledge)

	fetched, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "测试对话", fetched.Title)

	_, err = svc.Get(ctx, "no-such-id")
	require.ErrorIs(t, err, ErrConversationNotFound)
}

func TestListMessagesKeepsInsertionOrder(t *testing.T) {
	svc, _ := newConversationTestEnv(t)
	ctx := context.Background()

	conversation, err := svc.Create(ctx, &CreateConversationRequest{
		Title:         "测试对话",
		ModelProvider: model.ProviderOpenAI,
		ModelName:     "gpt-4",
	})
	require.NoError(t, err)

	// 同一秒内写入多条消息，顺序仍然稳定
	contents := []string{"第一条", "第二条", "第三条", "第四条"}
	for _, content := range contents {
		_, err := svc.AddMessage(ctx, conversation.ID, model.MessageRoleUser, content)
		require.NoError(t, err)
	}

	messages, err := svc.ListMessages(ctx, conversation.ID)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	for i, content := range contents {
		assert.Equal(t, content, messages[i].Content)
	}
}

func TestConcurrentAddMessageAssignsUniqueSeq(t *testing.T) {
	svc, db := newConversationTestEnv(t)
	ctx := context.Background()

	conversation, err := svc.Create(ctx, &CreateConversationRequest{
		Title:         "测试对话",
		ModelProvider: model.ProviderOpenAI,
		ModelName:     "gpt-4",
	})
	require.NoError(t, err)

	// 并发追加消息，对话锁保证写入串行化
	const total = 10
	var wg sync.WaitGroup
	errs := make(chan error, total)
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddMessage(ctx, conversation.ID, model.MessageRoleUser, "并发消息")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// 序号严格唯一且连续，不因并发写入重复
	var messages []model.Message
	require.NoError(t, db.Where("conversation_id = ?", conversation.ID).
		Order("seq ASC").Find(&messages).Error)
	require.Len(t, messages, total)
	for i := range messages {
		assert.Equal(t, int64(i+1), messages[i].Seq)
	}
}

func TestAddMessageConversationNotFound(t *testing.T) {
	svc, _ := newConversationTestEnv(t)

	_, err := svc.AddMessage(context.Background(), "no-such-id", model.MessageRoleUser, "你好")
	require.ErrorIs(t, err, ErrConversationNotFound)
}

func TestDeleteConversationCascades(t *testing.T) {
	svc, db := newConversationTestEnv(t)
	ctx := context.Background()

	conversation, err := svc.Create(ctx, &CreateConversationRequest{
		Title:         "测试对话",
		ModelProvider: model.ProviderOpenAI,
		ModelName:     "gpt-4",
	})
	require.NoError(t, err)

	message, err := svc.AddMessage(ctx, conversation.ID, model.MessageRoleAssistant, "机器学习是一种方法")
	require.NoError(t, err)

	require.NoError(t, db.Create(&model.KnowledgePoint{
		ConversationID:     conversation.ID,
		MessageID:          message.ID,
		SelectedText:       "机器学习",
		StartOffset:        0,
		EndOffset:          4,
		UnderstandingLevel: model.LevelNotUnderstood,
	}).Error)

	require.NoError(t, svc.Delete(ctx, conversation.ID))

	// 消息和知识点随对话一并删除
	var messageCount, knowledgeCount int64
	require.NoError(t, db.Model(&model.Message{}).Where("conversation_id = ?", conversation.ID).Count(&messageCount).Error)
	require.NoError(t, db.Model(&model.KnowledgePoint{}).Where("conversation_id = ?", conversation.ID).Count(&knowledgeCount).Error)
	assert.Equal(t, int64(0), messageCount)
	assert.Equal(t, int64(0), knowledgeCount)

	require.ErrorIs(t, svc.Delete(ctx, conversation.ID), ErrConversationNotFound)
}

func TestListConversationsOrderAndCounts(t *testing.T) {
	svc, _ := newConversationTestEnv(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, &CreateConversationRequest{
		Title: "旧对话", ModelProvider: model.ProviderOpenAI, ModelName: "gpt-4",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &CreateConversationRequest{
		Title: "新对话", ModelProvider: model.ProviderOpenAI, ModelName: "gpt-4",
	})
	require.NoError(t, err)

	_, err = svc.AddMessage(ctx, first.ID, model.MessageRoleUser, "你好")
	require.NoError(t, err)

	// 列表附带每条对话的消息数
	conversations, err := svc.List(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	assert.Equal(t, 1, conversations[0].MessageCount+conversations[1].MessageCount)

	// 分页参数生效
	page, err := svc.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
}
