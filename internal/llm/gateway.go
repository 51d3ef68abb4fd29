package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"knowledge-studio-server/internal/config"
	"knowledge-studio-server/internal/model"
)

// defaultBaseURLs 各提供商的 OpenAI 兼容接口默认地址
var defaultBaseURLs = map[string]string{
	model.ProviderOpenAI:    "https://api.openai.com/v1",
	model.ProviderAnthropic: "https://api.anthropic.com/v1",
	model.ProviderGoogle:    "https://generativelanguage.googleapis.com/v1beta/openai",
	model.ProviderOllama:    "http://localhost:11434/v1",
}

// Message 发送给模型的单条消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request 一次补全调用的全部参数
// APIKey 作为显式参数传入，每次调用独立构建客户端，
// 绝不写入进程级全局状态，并发请求各自的凭证互不影响
type Request struct {
	Provider    string
	Model       string
	Messages    []Message
	APIKey      string
	Temperature float32
	MaxTokens   int
}

// TokenStream 流式补全的增量内容流
// Recv 返回下一段增量文本，流结束时返回 io.EOF
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// Gateway 补全网关
// 把 (provider, model) 解析为提供商特定的模型标识和接口地址，
// 注入凭证后发起单次或流式补全调用
type Gateway struct {
	cfg config.LLMConfig
}

// NewGateway 创建 Gateway 实例
func NewGateway(cfg config.LLMConfig) *Gateway {
	return &Gateway{cfg: cfg}
}

// newClient 为单次调用构建客户端
func (g *Gateway) newClient(req Request) *openai.Client {
	clientConfig := openai.DefaultConfig(req.APIKey)
	clientConfig.BaseURL = g.baseURL(req.Provider)
	return openai.NewClientWithConfig(clientConfig)
}

// baseURL 解析提供商的接口地址，配置优先于内置默认值
func (g *Gateway) baseURL(provider string) string {
	if url, ok := g.cfg.BaseURLs[provider]; ok && url != "" {
		return url
	}
	return defaultBaseURLs[provider]
}

// buildRequest 构建底层补全请求
func buildRequest(req Request, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}

	return openai.ChatCompletionRequest{
		Model:       ModelString(req.Provider, req.Model),
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

// Complete 发起单次补全调用，返回完整的回复内容
// 调用受 request_timeout 限制，外部服务可能无限阻塞
func (g *Gateway) Complete(ctx context.Context, req Request) (string, error) {
	if g.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.RequestTimeout)
		defer cancel()
	}

	response, err := g.newClient(req).CreateChatCompletion(ctx, buildRequest(req, false))
	if err != nil {
		log.Errorf("llm completion error: provider=%s model=%s err=%v", req.Provider, req.Model, err)
		return "", wrapProviderError(err)
	}

	if len(response.Choices) == 0 {
		return "", errors.New("LLM service error: no content returned")
	}

	return response.Choices[0].Message.Content, nil
}

// Stream 发起流式补全调用
// 返回的 TokenStream 关闭时同时取消超时上下文
func (g *Gateway) Stream(ctx context.Context, req Request) (TokenStream, error) {
	cancel := context.CancelFunc(func() {})
	if g.cfg.RequestTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, g.cfg.RequestTimeout)
	}

	stream, err := g.newClient(req).CreateChatCompletionStream(ctx, buildRequest(req, true))
	if err != nil {
		cancel()
		log.Errorf("llm stream creation error: provider=%s model=%s err=%v", req.Provider, req.Model, err)
		return nil, wrapProviderError(err)
	}

	return &tokenStream{stream: stream, cancel: cancel}, nil
}

// tokenStream 包装底层流，只向上传递非空的增量文本
type tokenStream struct {
	stream *openai.ChatCompletionStream
	cancel context.CancelFunc
}

// Recv 返回下一段增量文本
// 跳过没有内容的块（如仅携带 finish_reason 的收尾块）
func (s *tokenStream) Recv() (string, error) {
	for {
		response, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", wrapProviderError(err)
		}

		if len(response.Choices) == 0 {
			continue
		}
		if delta := response.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

// Close 关闭底层流并取消超时上下文
func (s *tokenStream) Close() error {
	s.cancel()
	return s.stream.Close()
}

// wrapProviderError 把底层调用的各类失败统一为带原始信息的错误
// 限流、超时、API 错误全部归入同一类别，原始消息保留为详情
func wrapProviderError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("Rate limit exceeded: %s", apiErr.Message)
		}
		return fmt.Errorf("API error: %s", apiErr.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("Request timeout: %v", err)
	}

	return fmt.Errorf("LLM service error: %v", err)
}
