package llm

import (
	"context"
	"strings"

	"github.com/bkplatform/backend-go/internal/config"
	apperrors "github.com/bkplatform/backend-go/internal/errors"
)

// 对话角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 一条对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Gateway 大模型对话网关
type Gateway interface {
	// Complete 执行一次对话补全，返回助手回复文本
	Complete(ctx context.Context, messages []Message) (string, error)
	// Name 提供商名称，用于日志
	Name() string
}

// Select 按提供商名称选择网关。
// provider为空时自动探测，顺序：OpenAI → HuggingFace → Ollama。
// 显式指定提供商但缺少凭据时返回配置错误，绝不静默改用其他提供商。
func Select(cfg config.LLMConfig, provider, model string) (Gateway, error) {
	p := strings.ToLower(strings.TrimSpace(provider))
	if p == "" {
		p = strings.ToLower(strings.TrimSpace(cfg.DefaultProvider))
	}

	switch p {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, apperrors.NewConfigurationError("OPENAI_API_KEY not configured")
		}
		return NewOpenAIProvider(cfg.OpenAI, model), nil
	case "hf", "huggingface":
		if cfg.HuggingFace.Token == "" {
			return nil, apperrors.NewConfigurationError("HF_TOKEN not configured")
		}
		return NewHuggingFaceProvider(cfg.HuggingFace, model), nil
	case "ollama":
		return NewOllamaProvider(cfg.Ollama, model), nil
	case "tinyllm":
		// ollama别名，未指定模型时固定tinyllama
		if model == "" {
			model = "tinyllama"
		}
		return NewOllamaProvider(cfg.Ollama, model), nil
	case "", "auto":
		if cfg.OpenAI.APIKey != "" {
			return NewOpenAIProvider(cfg.OpenAI, model), nil
		}
		if cfg.HuggingFace.Token != "" && (model != "" || cfg.HuggingFace.ModelID != "") {
			return NewHuggingFaceProvider(cfg.HuggingFace, model), nil
		}
		return NewOllamaProvider(cfg.Ollama, model), nil
	default:
		return nil, apperrors.NewConfigurationError("unknown llm provider: " + p)
	}
}
