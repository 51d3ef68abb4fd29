// Package llm 封装对外部大模型服务的调用
// 负责模型目录、模型字符串解析和补全请求的发起
package llm

import (
	"sort"

	"knowledge-studio-server/internal/model"
)

// providerOrder 内置提供商的展示顺序
var providerOrder = []string{
	model.ProviderOpenAI,
	model.ProviderAnthropic,
	model.ProviderGoogle,
	model.ProviderOllama,
}

// defaultSupportedModels 内置的支持模型表
// 提供商 -> 模型 ID 列表，可通过配置覆盖
var defaultSupportedModels = map[string][]string{
	model.ProviderOpenAI: {
		"gpt-4",
		"gpt-4-turbo",
		"gpt-4o",
		"gpt-3.5-turbo",
	},
	model.ProviderAnthropic: {
		"claude-3-5-sonnet-20241022",
		"claude-3-opus-20240229",
		"claude-3-sonnet-20240229",
		"claude-3-haiku-20240307",
	},
	model.ProviderGoogle: {
		"gemini-pro",
		"gemini-1.5-pro",
		"gemini-1.5-flash",
	},
	model.ProviderOllama: {
		"llama3.2",
		"llama3.1",
		"qwen2.5",
		"mistral",
	},
}

// displayNames 模型显示名称映射
var displayNames = map[string]string{
	"gpt-4":                      "GPT-4",
	"gpt-4-turbo":                "GPT-4 Turbo",
	"gpt-4o":                     "GPT-4o",
	"gpt-3.5-turbo":              "GPT-3.5 Turbo",
	"claude-3-5-sonnet-20241022": "Claude 3.5 Sonnet",
	"claude-3-opus-20240229":     "Claude 3 Opus",
	"claude-3-sonnet-20240229":   "Claude 3 Sonnet",
	"claude-3-haiku-20240307":    "Claude 3 Haiku",
	"gemini-pro":                 "Gemini Pro",
	"gemini-1.5-pro":             "Gemini 1.5 Pro",
	"gemini-1.5-flash":           "Gemini 1.5 Flash",
	"llama3.2":                   "Llama 3.2",
	"llama3.1":                   "Llama 3.1",
	"qwen2.5":                    "Qwen 2.5",
	"mistral":                    "Mistral",
}

// Catalog 支持模型目录
// 这是配置数据而非逻辑，构造后只读
type Catalog struct {
	models    map[string][]string
	providers []string
}

// NewCatalog 创建模型目录
// 参数:
//   - overrides: 配置中的覆盖表，为空时使用内置模型表
func NewCatalog(overrides map[string][]string) *Catalog {
	models := defaultSupportedModels
	if len(overrides) > 0 {
		models = overrides
	}

	// 先按内置顺序排列已知提供商，再追加配置新增的提供商
	providers := make([]string, 0, len(models))
	for _, p := range providerOrder {
		if _, ok := models[p]; ok {
			providers = append(providers, p)
		}
	}
	var extra []string
	for p := range models {
		if !contains(providers, p) {
			extra = append(extra, p)
		}
	}
	sort.Strings(extra)
	providers = append(providers, extra...)

	return &Catalog{models: models, providers: providers}
}

// Validate 验证 (provider, model) 组合是否受支持
// provider 必须是目录中的键，且 model 在该提供商的列表中
func (c *Catalog) Validate(provider, modelName string) bool {
	models, ok := c.models[provider]
	if !ok {
		return false
	}
	return contains(models, modelName)
}

// Providers 返回所有提供商，顺序稳定
func (c *Catalog) Providers() []string {
	return c.providers
}

// Models 返回指定提供商的模型列表
// 提供商未知时返回 nil
func (c *Catalog) Models(provider string) []string {
	return c.models[provider]
}

// ModelString 构建提供商特定的模型标识字符串
//
// 格式:
//   - OpenAI: "gpt-4"
//   - Anthropic: "claude-3-5-sonnet-20241022"
//   - Google: "gemini/gemini-pro"
//   - Ollama: "ollama/llama3.2"
func ModelString(provider, modelName string) string {
	switch provider {
	case model.ProviderGoogle:
		return "gemini/" + modelName
	case model.ProviderOllama:
		return "ollama/" + modelName
	default:
		return modelName
	}
}

// DisplayName 返回模型的显示名称
// 未知模型返回模型 ID 本身
func DisplayName(modelID string) string {
	if name, ok := displayNames[modelID]; ok {
		return name
	}
	return modelID
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
