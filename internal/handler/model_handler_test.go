package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-studio-server/internal/llm"
)

func newModelTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/models", nil)
	return c, recorder
}

func TestListModelsReturnsFlatList(t *testing.T) {
	h := NewModelHandler(llm.NewCatalog(nil))
	c, recorder := newModelTestContext(t)

	h.ListModels(c)
	require.Equal(t, http.StatusOK, recorder.Code)

	// 响应是平铺的模型数组，不按提供商分组
	var models []ModelInfo
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &models))
	require.NotEmpty(t, models)

	assert.Equal(t, "openai", models[0].Provider)
	assert.Equal(t, "gpt-4", models[0].ModelID)
	assert.Equal(t, "GPT-4", models[0].DisplayName)
	assert.True(t, models[0].Available)

	providers := make(map[string]bool)
	for _, m := range models {
		providers[m.Provider] = true
		assert.NotEmpty(t, m.ModelID)
		assert.NotEmpty(t, m.DisplayName)
	}
	assert.Len(t, providers, 4)

	// 每个条目携带全部四个字段
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &raw))
	for _, key := range []string{"provider", "model_id", "display_name", "available"} {
		assert.Contains(t, raw[0], key)
	}
}

func TestListProviderModelsReturnsFlatList(t *testing.T) {
	h := NewModelHandler(llm.NewCatalog(nil))
	c, recorder := newModelTestContext(t)
	c.Params = gin.Params{{Key: "provider", Value: "anthropic"}}

	h.ListProviderModels(c)
	require.Equal(t, http.StatusOK, recorder.Code)

	var models []ModelInfo
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &models))
	require.Len(t, models, 4)
	for _, m := range models {
		assert.Equal(t, "anthropic", m.Provider)
	}
	assert.Equal(t, "claude-3-5-sonnet-20241022", models[0].ModelID)
	assert.Equal(t, "Claude 3.5 Sonnet", models[0].DisplayName)
}

func TestListProviderModelsUnknownProvider(t *testing.T) {
	h := NewModelHandler(llm.NewCatalog(nil))
	c, recorder := newModelTestContext(t)
	c.Params = gin.Params{{Key: "provider", Value: "no-such-provider"}}

	h.ListProviderModels(c)

	// 未知提供商返回空数组而非错误
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "[]", recorder.Body.String())
}
