package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSSESink(t *testing.T) (*sseSink, *httptest.ResponseRecorder) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest("POST", "/api/chat/stream", nil)
	return &sseSink{c: c}, recorder
}

func TestSSESinkWireFormat(t *testing.T) {
	sink, recorder := newSSESink(t)

	require.NoError(t, sink.SendContent("你好"))
	require.NoError(t, sink.SendDone("msg-123"))

	assert.Equal(t, "text/event-stream", recorder.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", recorder.Header().Get("Cache-Control"))

	// 每个事件一行 data: {json} 加空行
	expected := "data: {\"content\":\"你好\"}\n\n" +
		"data: {\"message_id\":\"msg-123\",\"type\":\"done\"}\n\n"
	assert.Equal(t, expected, recorder.Body.String())
}

func TestSSESinkErrorEvent(t *testing.T) {
	sink, recorder := newSSESink(t)

	require.NoError(t, sink.SendError("Rate limit exceeded: slow down"))

	assert.Equal(t, "data: {\"error\":\"Rate limit exceeded: slow down\",\"type\":\"error\"}\n\n",
		recorder.Body.String())
}
