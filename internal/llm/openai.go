package llm

import (
	"context"
	"errors"
	"net"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bkplatform/backend-go/internal/config"
	apperrors "github.com/bkplatform/backend-go/internal/errors"
)

// OpenAIProvider OpenAI Chat Completions网关
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(cfg config.OpenAIConfig, model string) *OpenAIProvider {
	if model == "" {
		model = cfg.Model
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0.2,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if isTimeout(err) {
			return "", apperrors.NewUpstreamTimeoutError("openai", err)
		}
		return "", apperrors.NewExternalError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewExternalError("openai", errors.New("empty choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
